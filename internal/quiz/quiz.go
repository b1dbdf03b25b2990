// Package quiz checks generated quizzes against their subject blueprint and
// scores submitted answers.
package quiz

import (
	"fmt"
	"math"
	"strings"

	"github.com/truonghoc/studio/internal/llm/prompts"
	"github.com/truonghoc/studio/internal/model"
)

// MaxScore is the full mark of every exam.
const MaxScore = 10.0

// Validate lists every way doc deviates from the blueprint of subject.
// An empty result means the quiz is well formed.
func Validate(doc *model.QuizDocument, subject model.Subject) []string {
	if doc == nil {
		return []string{"quiz document is nil"}
	}
	bp := prompts.BlueprintFor(subject)
	var issues []string
	if len(doc.Questions) != bp.Total() {
		issues = append(issues, fmt.Sprintf("expected %d questions, got %d", bp.Total(), len(doc.Questions)))
	}

	for i, q := range doc.Questions {
		n := i + 1
		if q.ID != n {
			issues = append(issues, fmt.Sprintf("question %d: id %d, want %d", n, q.ID, n))
		}
		slot, ok := bp.SlotAt(n)
		if ok && q.Type != slot.Type {
			issues = append(issues, fmt.Sprintf("question %d: expected %s, got %s", n, slot.Type, q.Type))
		}
		switch q.Type {
		case model.QuestionMCQ:
			if len(q.Options) != bp.OptionsPerMCQ {
				issues = append(issues, fmt.Sprintf("question %d: expected %d options, got %d", n, bp.OptionsPerMCQ, len(q.Options)))
			}
			if _, ok := optionLetter(q.CorrectAnswer); !ok {
				issues = append(issues, fmt.Sprintf("question %d: correct answer %q is not an option letter", n, q.CorrectAnswer))
			}
		case model.QuestionMatching:
			if len(q.MatchingPairs) != bp.MatchingPairs {
				issues = append(issues, fmt.Sprintf("question %d: expected %d pairs, got %d", n, bp.MatchingPairs, len(q.MatchingPairs)))
			}
		case model.QuestionFillIn:
			if len(q.FillInParts) == 0 {
				issues = append(issues, fmt.Sprintf("question %d: no fill-in passages", n))
			}
			for j, p := range q.FillInParts {
				if len(p.Answers) == 0 || (p.Blanks > 0 && p.Blanks != len(p.Answers)) {
					issues = append(issues, fmt.Sprintf("question %d part %d: %d blanks but %d answers", n, j+1, p.Blanks, len(p.Answers)))
				}
			}
		default:
			issues = append(issues, fmt.Sprintf("question %d: unknown type %q", n, q.Type))
		}
	}
	return issues
}

// Answer is a student's response to one question. Choice answers an MCQ,
// Matches maps column A items to column B items, Blanks fills the passages
// in order.
type Answer struct {
	Choice  string            `json:"choice,omitempty"`
	Matches map[string]string `json:"matches,omitempty"`
	Blanks  []string          `json:"blanks,omitempty"`
}

// ItemScore is the result for one question.
type ItemScore struct {
	ID      int                `json:"id"`
	Type    model.QuestionType `json:"type"`
	Points  float64            `json:"points"`
	Earned  float64            `json:"earned"`
	Correct bool               `json:"correct"`
}

// Score is the graded result of a quiz on a 10-point scale.
type Score struct {
	Earned  float64     `json:"earned"`
	Max     float64     `json:"max"`
	Correct int         `json:"correct"`
	Total   int         `json:"total"`
	Items   []ItemScore `json:"items"`
}

// Grade scores answers, keyed by question ID. When the IDs are missing or
// repeated, answers are keyed by position (1..N) instead. A quiz that
// matches its blueprint is weighted per slot; any other quiz weighs every
// question equally so the maximum stays 10.
func Grade(doc *model.QuizDocument, subject model.Subject, answers map[int]Answer) Score {
	score := Score{Max: MaxScore}
	if doc == nil || len(doc.Questions) == 0 {
		score.Max = 0
		return score
	}
	bp := prompts.BlueprintFor(subject)
	conforming := len(Validate(doc, subject)) == 0
	equal := MaxScore / float64(len(doc.Questions))
	keys := answerKeys(doc.Questions)

	for i, q := range doc.Questions {
		points := equal
		if conforming {
			slot, _ := bp.SlotAt(i + 1)
			points = slot.Points
		}
		frac := fraction(q, answers[keys[i]])
		item := ItemScore{
			ID:      keys[i],
			Type:    q.Type,
			Points:  points,
			Earned:  round2(points * frac),
			Correct: frac == 1,
		}
		if item.Correct {
			score.Correct++
		}
		score.Earned += item.Earned
		score.Items = append(score.Items, item)
	}
	score.Total = len(doc.Questions)
	score.Earned = round2(score.Earned)
	return score
}

// answerKeys returns the question IDs, or positions 1..N when any ID is
// non-positive or repeated.
func answerKeys(qs []model.Question) []int {
	keys := make([]int, len(qs))
	seen := make(map[int]bool, len(qs))
	unique := true
	for i, q := range qs {
		if q.ID <= 0 || seen[q.ID] {
			unique = false
		}
		seen[q.ID] = true
		keys[i] = q.ID
	}
	if !unique {
		for i := range keys {
			keys[i] = i + 1
		}
	}
	return keys
}

// fraction returns the share of q answered correctly, in [0, 1].
func fraction(q model.Question, a Answer) float64 {
	switch q.Type {
	case model.QuestionMCQ:
		want, ok := optionLetter(q.CorrectAnswer)
		if !ok {
			return 0
		}
		got, ok := optionLetter(a.Choice)
		if !ok {
			got, ok = letterOfOption(q.Options, a.Choice)
		}
		if ok && got == want {
			return 1
		}
		return 0
	case model.QuestionMatching:
		if len(q.MatchingPairs) == 0 {
			return 0
		}
		right := 0
		for _, p := range q.MatchingPairs {
			if same(a.Matches[p.A], p.B) {
				right++
			}
		}
		return float64(right) / float64(len(q.MatchingPairs))
	case model.QuestionFillIn:
		var want []string
		for _, p := range q.FillInParts {
			want = append(want, p.Answers...)
		}
		if len(want) == 0 {
			return 0
		}
		right := 0
		for i, w := range want {
			if i < len(a.Blanks) && same(a.Blanks[i], w) {
				right++
			}
		}
		return float64(right) / float64(len(want))
	}
	return 0
}

// optionLetter reads "B", "b", "B.", "B)" or "B. text" as option B. A
// letter followed by anything else is option text, not a letter.
func optionLetter(s string) (byte, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	c := s[0]
	if c >= 'a' && c <= 'd' {
		c -= 'a' - 'A'
	}
	if c < 'A' || c > 'D' {
		return 0, false
	}
	if len(s) > 1 && s[1] != '.' && s[1] != ')' {
		return 0, false
	}
	return c, true
}

// letterOfOption matches a choice given as the option text.
func letterOfOption(options []string, choice string) (byte, bool) {
	for i, o := range options {
		if i > 3 {
			break
		}
		if same(o, choice) || same(stripLetter(o), choice) {
			return byte('A' + i), true
		}
	}
	return 0, false
}

func stripLetter(o string) string {
	if _, ok := optionLetter(o); ok && len(o) > 2 {
		return strings.TrimSpace(o[2:])
	}
	return o
}

func same(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

package prompts

import "github.com/truonghoc/studio/internal/model"

// SubjectCategory selects the structural template applied to an exam.
type SubjectCategory int

const (
	// CategoryGeneral covers every subject without a dedicated template.
	CategoryGeneral SubjectCategory = iota
	// CategoryTechnology covers IT and Technology: MCQ plus one matching and one fill-in item.
	CategoryTechnology
	// CategoryEnglish is a long multiple-choice paper.
	CategoryEnglish
)

func (c SubjectCategory) String() string {
	switch c {
	case CategoryTechnology:
		return "technology"
	case CategoryEnglish:
		return "english"
	default:
		return "general"
	}
}

// CategoryOf maps a subject to its structural template.
func CategoryOf(s model.Subject) SubjectCategory {
	switch s {
	case model.SubjectIT, model.SubjectTech:
		return CategoryTechnology
	case model.SubjectEnglish:
		return CategoryEnglish
	default:
		return CategoryGeneral
	}
}

// Slot is one numbered question position in an exam.
type Slot struct {
	Number int
	Type   model.QuestionType
	Points float64
}

// Blueprint is the structured instruction behind an exam prompt: how many
// questions, of which type, in which order, worth how much.
type Blueprint struct {
	Category      SubjectCategory
	Slots         []Slot
	MatchingPairs int
	OptionsPerMCQ int
}

const (
	matchingPairs  = 4
	optionsPerMCQ  = 4
	technologyMCQs = 16
	englishMCQs    = 40
	generalMCQs    = 20
)

// BlueprintFor returns the fixed structure for a subject. Every blueprint is
// worth 10 points in total.
func BlueprintFor(s model.Subject) Blueprint {
	cat := CategoryOf(s)
	bp := Blueprint{Category: cat, MatchingPairs: matchingPairs, OptionsPerMCQ: optionsPerMCQ}

	switch cat {
	case CategoryTechnology:
		bp.Slots = mcqSlots(technologyMCQs, 0.5)
		bp.Slots = append(bp.Slots,
			Slot{Number: technologyMCQs + 1, Type: model.QuestionMatching, Points: 1},
			Slot{Number: technologyMCQs + 2, Type: model.QuestionFillIn, Points: 1},
		)
	case CategoryEnglish:
		bp.Slots = mcqSlots(englishMCQs, 0.25)
	default:
		bp.Slots = mcqSlots(generalMCQs, 0.5)
	}
	return bp
}

func mcqSlots(n int, points float64) []Slot {
	slots := make([]Slot, n)
	for i := range slots {
		slots[i] = Slot{Number: i + 1, Type: model.QuestionMCQ, Points: points}
	}
	return slots
}

// Total returns the number of questions.
func (b Blueprint) Total() int {
	return len(b.Slots)
}

// Count returns how many questions of type t the blueprint asks for.
func (b Blueprint) Count(t model.QuestionType) int {
	n := 0
	for _, s := range b.Slots {
		if s.Type == t {
			n++
		}
	}
	return n
}

// Points returns the summed points of all questions of type t.
func (b Blueprint) Points(t model.QuestionType) float64 {
	var p float64
	for _, s := range b.Slots {
		if s.Type == t {
			p += s.Points
		}
	}
	return p
}

// TotalPoints returns the maximum score.
func (b Blueprint) TotalPoints() float64 {
	var p float64
	for _, s := range b.Slots {
		p += s.Points
	}
	return p
}

// NumberOf returns the question number of the first slot of type t, or 0.
func (b Blueprint) NumberOf(t model.QuestionType) int {
	for _, s := range b.Slots {
		if s.Type == t {
			return s.Number
		}
	}
	return 0
}

// SlotAt returns the slot for question number n.
func (b Blueprint) SlotAt(n int) (Slot, bool) {
	if n < 1 || n > len(b.Slots) {
		return Slot{}, false
	}
	return b.Slots[n-1], true
}

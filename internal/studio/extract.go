package studio

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/truonghoc/studio/internal/llm"
	"github.com/truonghoc/studio/internal/media"
	"github.com/truonghoc/studio/internal/model"
)

// ExtractImage returns the first inline part of resp as a data URI.
// Leading text parts are ignored.
func ExtractImage(resp *llm.ContentResponse) (string, error) {
	if resp != nil {
		for _, p := range resp.Parts {
			if p.Inline != nil {
				return media.DataURI(*p.Inline), nil
			}
		}
	}
	return "", ErrNoImage
}

// ParseQuiz decodes a quiz response. Markdown code fences around the JSON are
// tolerated and an empty body decodes as an empty document.
func ParseQuiz(raw string) (*model.QuizDocument, error) {
	text := stripCodeFence(raw)
	if text == "" {
		text = "{}"
	}
	var doc model.QuizDocument
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedQuiz, err)
	}
	if doc.Questions == nil {
		doc.Questions = []model.Question{}
	}
	return &doc, nil
}

// stripCodeFence removes a surrounding ```json ... ``` block if present.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// cleanHTML strips a markdown fence the model sometimes wraps HTML in.
func cleanHTML(s string) string {
	return stripCodeFence(s)
}

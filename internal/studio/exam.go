package studio

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/truonghoc/studio/internal/i18n"
	"github.com/truonghoc/studio/internal/llm"
	"github.com/truonghoc/studio/internal/llm/prompts"
	"github.com/truonghoc/studio/internal/media"
	"github.com/truonghoc/studio/internal/model"
	"github.com/truonghoc/studio/internal/quiz"
)

// ExamDocument generates a printable exam as an HTML fragment. Image
// attachments follow the instruction as encoded parts; other attachments are
// only mentioned in the instruction.
func (s *Service) ExamDocument(ctx context.Context, cfg model.ExamConfig) (model.GenerationResult, error) {
	const c = model.CapabilityExamDocument
	if err := validateExam(cfg); err != nil {
		return model.GenerationResult{}, wrap(c, err)
	}
	a := s.begin(ctx, c, s.models.Text)

	parts, err := examParts(ctx, prompts.BuildExamPrompt(cfg, false), cfg.MatrixFile, cfg.SpecFile)
	if err != nil {
		return model.GenerationResult{}, a.finish(ctx, nil, err)
	}
	resp, err := s.text.GenerateContent(ctx, s.models.Text, parts, llm.ContentOptions{})
	if err != nil {
		return model.GenerationResult{}, a.finish(ctx, nil, err)
	}

	text := cleanHTML(resp.Text())
	if text == "" {
		text = i18n.T(ctx, "ExamEmptyResult")
	}
	res := model.TextResult(text)
	return res, a.finish(ctx, &res, nil)
}

// OnlineQuiz generates an exam as a structured QuizDocument. Only the matrix
// attachment is sent along.
func (s *Service) OnlineQuiz(ctx context.Context, cfg model.ExamConfig) (model.GenerationResult, error) {
	const c = model.CapabilityOnlineQuiz
	if err := validateExam(cfg); err != nil {
		return model.GenerationResult{}, wrap(c, err)
	}
	a := s.begin(ctx, c, s.models.Text)

	parts, err := examParts(ctx, prompts.BuildExamPrompt(cfg, true), cfg.MatrixFile)
	if err != nil {
		return model.GenerationResult{}, a.finish(ctx, nil, err)
	}
	resp, err := s.text.GenerateContent(ctx, s.models.Text, parts, llm.ContentOptions{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return model.GenerationResult{}, a.finish(ctx, nil, err)
	}

	doc, err := ParseQuiz(resp.Text())
	if err != nil {
		return model.GenerationResult{}, a.finish(ctx, nil, err)
	}
	if issues := quiz.Validate(doc, cfg.Subject); len(issues) > 0 {
		slog.Warn("quiz does not match blueprint", "subject", cfg.Subject, "issues", issues)
	}
	res := model.QuizResult(doc)
	return res, a.finish(ctx, &res, nil)
}

// ConvertDocument transcribes a scanned page or PDF into an HTML fragment.
func (s *Service) ConvertDocument(ctx context.Context, doc *model.MediaFile) (model.GenerationResult, error) {
	const c = model.CapabilityConvertDocument
	if doc == nil {
		return model.GenerationResult{}, wrap(c, fmt.Errorf("%w: document", ErrMissingInput))
	}
	a := s.begin(ctx, c, s.models.Text)

	p, err := media.Encode(ctx, doc)
	if err != nil {
		return model.GenerationResult{}, a.finish(ctx, nil, err)
	}
	if !strings.HasPrefix(p.MIMEType, "image/") && p.MIMEType != "application/pdf" {
		return model.GenerationResult{}, a.finish(ctx, nil, fmt.Errorf("%w: unsupported document type %s", ErrInvalidInput, p.MIMEType))
	}

	parts := []llm.Part{llm.InlinePart(p), llm.TextPart(prompts.ConvertDocumentPrompt)}
	resp, err := s.text.GenerateContent(ctx, s.models.Text, parts, llm.ContentOptions{})
	if err != nil {
		return model.GenerationResult{}, a.finish(ctx, nil, err)
	}
	text := cleanHTML(resp.Text())
	if text == "" {
		return model.GenerationResult{}, a.finish(ctx, nil, ErrEmptyText)
	}
	res := model.TextResult(text)
	return res, a.finish(ctx, &res, nil)
}

func validateExam(cfg model.ExamConfig) error {
	if strings.TrimSpace(string(cfg.Subject)) == "" {
		return fmt.Errorf("%w: subject", ErrMissingInput)
	}
	if strings.TrimSpace(cfg.Grade) == "" || strings.TrimSpace(cfg.Semester) == "" {
		return fmt.Errorf("%w: grade and semester", ErrMissingInput)
	}
	return nil
}

// examParts puts the instruction first, then every attachment that is an image.
func examParts(ctx context.Context, instruction string, attachments ...*model.MediaFile) ([]llm.Part, error) {
	parts := []llm.Part{llm.TextPart(instruction)}
	for _, f := range attachments {
		if !f.IsImage() {
			continue
		}
		p, err := media.Encode(ctx, f)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", f.Name, err)
		}
		parts = append(parts, llm.InlinePart(p))
	}
	return parts, nil
}

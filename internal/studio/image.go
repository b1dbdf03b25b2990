package studio

import (
	"context"
	"fmt"
	"strings"

	"github.com/truonghoc/studio/internal/llm"
	"github.com/truonghoc/studio/internal/llm/prompts"
	"github.com/truonghoc/studio/internal/media"
	"github.com/truonghoc/studio/internal/model"
)

// CareerImage places the portrait's face into a scene for career.
func (s *Service) CareerImage(ctx context.Context, portrait *model.MediaFile, career string) (model.GenerationResult, error) {
	career = strings.TrimSpace(career)
	if portrait == nil || career == "" {
		return model.GenerationResult{}, wrap(model.CapabilityCareerImage, fmt.Errorf("%w: portrait and career", ErrMissingInput))
	}
	return s.image(ctx, model.CapabilityCareerImage, []*model.MediaFile{portrait}, prompts.CareerPrompt(career), llm.ContentOptions{})
}

// MergeImages composites the person from subject into background.
func (s *Service) MergeImages(ctx context.Context, subject, background *model.MediaFile) (model.GenerationResult, error) {
	if subject == nil || background == nil {
		return model.GenerationResult{}, wrap(model.CapabilityMergeImages, fmt.Errorf("%w: subject and background images", ErrMissingInput))
	}
	return s.image(ctx, model.CapabilityMergeImages, []*model.MediaFile{subject, background}, prompts.MergePrompt, llm.ContentOptions{})
}

// EditImage applies a free-text instruction to img.
func (s *Service) EditImage(ctx context.Context, img *model.MediaFile, instruction string) (model.GenerationResult, error) {
	instruction = strings.TrimSpace(instruction)
	if img == nil || instruction == "" {
		return model.GenerationResult{}, wrap(model.CapabilityEditImage, fmt.Errorf("%w: image and instruction", ErrMissingInput))
	}
	return s.image(ctx, model.CapabilityEditImage, []*model.MediaFile{img}, instruction, llm.ContentOptions{})
}

// RemoveBackground isolates the subject of img on solid white.
func (s *Service) RemoveBackground(ctx context.Context, img *model.MediaFile) (model.GenerationResult, error) {
	if img == nil {
		return model.GenerationResult{}, wrap(model.CapabilityRemoveBackground, fmt.Errorf("%w: image", ErrMissingInput))
	}
	return s.image(ctx, model.CapabilityRemoveBackground, []*model.MediaFile{img}, prompts.RemoveBackgroundPrompt, llm.ContentOptions{})
}

// ProImage synthesizes a square image from prompt at the given tier.
func (s *Service) ProImage(ctx context.Context, prompt string, tier model.ResolutionTier) (model.GenerationResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return model.GenerationResult{}, wrap(model.CapabilityProImage, fmt.Errorf("%w: prompt", ErrMissingInput))
	}
	if !tier.Valid() {
		return model.GenerationResult{}, wrap(model.CapabilityProImage, fmt.Errorf("%w: resolution %q", ErrInvalidInput, tier))
	}
	s.ensureCredential(ctx, model.CapabilityProImage)
	return s.image(ctx, model.CapabilityProImage, nil, prompt, llm.ContentOptions{
		AspectRatio: "1:1",
		ImageSize:   string(tier),
	})
}

// image runs an image capability: encoded images first, then the instruction.
func (s *Service) image(ctx context.Context, c model.Capability, files []*model.MediaFile, instruction string, opts llm.ContentOptions) (model.GenerationResult, error) {
	modelName := s.models.Image
	if c == model.CapabilityProImage {
		modelName = s.models.ProImage
	}
	a := s.begin(ctx, c, modelName)

	parts := make([]llm.Part, 0, len(files)+1)
	for _, f := range files {
		p, err := media.Encode(ctx, f)
		if err != nil {
			return model.GenerationResult{}, a.finish(ctx, nil, err)
		}
		parts = append(parts, llm.InlinePart(p))
	}
	parts = append(parts, llm.TextPart(instruction))

	resp, err := s.content.GenerateContent(ctx, modelName, parts, opts)
	if err != nil {
		return model.GenerationResult{}, a.finish(ctx, nil, err)
	}
	uri, err := ExtractImage(resp)
	if err != nil {
		return model.GenerationResult{}, a.finish(ctx, nil, err)
	}
	res := model.ImageResult(uri)
	return res, a.finish(ctx, &res, nil)
}

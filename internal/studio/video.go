package studio

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/truonghoc/studio/internal/llm"
	"github.com/truonghoc/studio/internal/llm/prompts"
	"github.com/truonghoc/studio/internal/media"
	"github.com/truonghoc/studio/internal/model"
	"github.com/truonghoc/studio/internal/poller"
)

// VideoResolution is the output resolution requested for every video.
const VideoResolution = "720p"

// ErrVideoUnavailable is returned when the service has no video backend.
var ErrVideoUnavailable = errors.New("video generation is not configured")

// VideoInput describes an image-to-video request.
type VideoInput struct {
	Seed   *model.MediaFile
	Motion string
	Ratio  model.AspectRatio
	// OnTransition, when set, observes the job's polling states.
	OnTransition func(poller.State)
}

// Video animates a seed image and waits for the remote job to finish.
func (s *Service) Video(ctx context.Context, in VideoInput) (model.GenerationResult, error) {
	const c = model.CapabilityVideo
	if in.Seed == nil {
		return model.GenerationResult{}, wrap(c, fmt.Errorf("%w: seed image", ErrMissingInput))
	}
	if !in.Ratio.Valid() {
		return model.GenerationResult{}, wrap(c, fmt.Errorf("%w: aspect ratio %q", ErrInvalidInput, in.Ratio))
	}
	if !s.VideoAvailable() {
		return model.GenerationResult{}, wrap(c, ErrVideoUnavailable)
	}
	motion := strings.TrimSpace(in.Motion)
	if motion == "" {
		motion = prompts.DefaultVideoMotion
	}

	s.ensureCredential(ctx, c)
	a := s.begin(ctx, c, s.models.Video)

	if s.videoTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.videoTimeout)
		defer cancel()
	}

	seed, err := media.Encode(ctx, in.Seed)
	if err != nil {
		return model.GenerationResult{}, a.finish(ctx, nil, err)
	}

	p := s.poller
	if in.OnTransition != nil {
		p = p.WithObserver(in.OnTransition)
	}

	op, err := s.videos.GenerateVideos(ctx, llm.VideoRequest{
		Model:          s.models.Video,
		Prompt:         motion,
		Image:          seed,
		AspectRatio:    string(in.Ratio),
		Resolution:     VideoResolution,
		NumberOfVideos: 1,
	})
	if err != nil {
		return model.GenerationResult{}, a.finish(ctx, nil, fmt.Errorf("submit video job: %w", err))
	}

	out, err := p.Run(ctx, op, s.videos.GetVideosOperation, s.fetch)
	if err != nil {
		return model.GenerationResult{}, a.finish(ctx, nil, err)
	}

	mimeType := out.MIMEType
	if mimeType == "" || strings.HasPrefix(mimeType, "application/octet-stream") {
		mimeType = "video/mp4"
	}
	res := model.VideoResult(&model.Video{Data: out.Data, MIMEType: mimeType})
	return res, a.finish(ctx, &res, nil)
}

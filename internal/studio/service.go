// Package studio orchestrates the generation capabilities: it validates
// inputs, encodes attachments, assembles ordered multi-part requests, calls
// the remote models and extracts a GenerationResult.
package studio

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/truonghoc/studio/internal/llm"
	"github.com/truonghoc/studio/internal/media"
	"github.com/truonghoc/studio/internal/model"
	"github.com/truonghoc/studio/internal/poller"
)

// Models names the model variant used per capability group.
type Models struct {
	Image    string
	ProImage string
	Video    string
	Text     string
}

// DefaultModels returns the production model variants.
func DefaultModels() Models {
	return Models{
		Image:    llm.ModelImage,
		ProImage: llm.ModelProImage,
		Video:    llm.ModelVideo,
		Text:     llm.ModelText,
	}
}

func (m Models) withDefaults() Models {
	d := DefaultModels()
	if m.Image == "" {
		m.Image = d.Image
	}
	if m.ProImage == "" {
		m.ProImage = d.ProImage
	}
	if m.Video == "" {
		m.Video = d.Video
	}
	if m.Text == "" {
		m.Text = d.Text
	}
	return m
}

// CredentialSelector is the host-provided credential-selection step run
// before premium capabilities.
type CredentialSelector interface {
	HasCredential(ctx context.Context) (bool, error)
	RequestSelection(ctx context.Context) error
}

// Recorder keeps the operational log of generation attempts.
type Recorder interface {
	StartGeneration(ctx context.Context, g *model.Generation) error
	FinishGeneration(ctx context.Context, g *model.Generation) error
}

// Options configures a Service. Content is required; the rest is optional.
type Options struct {
	// Content serves image capabilities.
	Content llm.ContentGenerator
	// Text serves exam, quiz and conversion; defaults to Content.
	Text   llm.ContentGenerator
	Videos llm.VideoGenerator
	// Fetch downloads finished video assets.
	Fetch    poller.Fetcher
	Policy   poller.Policy
	Selector CredentialSelector
	Recorder Recorder
	Models   Models
	// VideoTimeout bounds a whole video job; zero waits for as long as the
	// remote job runs.
	VideoTimeout time.Duration
}

// Service exposes one method per capability.
type Service struct {
	content      llm.ContentGenerator
	text         llm.ContentGenerator
	videos       llm.VideoGenerator
	fetch        poller.Fetcher
	poller       *poller.Poller
	selector     CredentialSelector
	recorder     Recorder
	models       Models
	videoTimeout time.Duration
}

// New creates a Service.
func New(opts Options) *Service {
	text := opts.Text
	if text == nil {
		text = opts.Content
	}
	return &Service{
		content:      opts.Content,
		text:         text,
		videos:       opts.Videos,
		fetch:        opts.Fetch,
		poller:       poller.New(opts.Policy),
		selector:     opts.Selector,
		recorder:     opts.Recorder,
		models:       opts.Models.withDefaults(),
		videoTimeout: opts.VideoTimeout,
	}
}

// Models returns the effective model variants.
func (s *Service) Models() Models { return s.models }

// VideoAvailable reports whether a video backend is configured.
func (s *Service) VideoAvailable() bool { return s.videos != nil && s.fetch != nil }

// ensureCredential runs the selection step for premium capabilities. It
// never blocks the call: when selection is unavailable or fails, the remote
// call still goes ahead and any authorization failure surfaces from there.
func (s *Service) ensureCredential(ctx context.Context, c model.Capability) {
	if s.selector == nil {
		slog.Debug("no credential selector, proceeding best-effort", "capability", c)
		return
	}
	ok, err := s.selector.HasCredential(ctx)
	if err != nil {
		slog.Warn("credential check failed, proceeding best-effort", "capability", c, "error", err)
		return
	}
	if ok {
		return
	}
	if err := s.selector.RequestSelection(ctx); err != nil {
		slog.Warn("credential selection failed, proceeding best-effort", "capability", c, "error", err)
	}
}

// attempt is one logged generation.
type attempt struct {
	s   *Service
	gen *model.Generation
}

func (s *Service) begin(ctx context.Context, c model.Capability, modelName string) *attempt {
	g := &model.Generation{
		ID:         uuid.NewString(),
		Capability: c,
		Model:      modelName,
		Status:     model.GenerationRunning,
		StartedAt:  time.Now().UTC(),
	}
	slog.Info("generation started", "id", g.ID, "capability", c, "model", modelName)
	if s.recorder != nil {
		if err := s.recorder.StartGeneration(ctx, g); err != nil {
			slog.Warn("record generation start", "id", g.ID, "error", err)
		}
	}
	return &attempt{s: s, gen: g}
}

// finish logs the outcome and returns err wrapped in a CapabilityError.
func (a *attempt) finish(ctx context.Context, res *model.GenerationResult, err error) error {
	now := time.Now().UTC()
	g := a.gen
	g.FinishedAt = &now
	if err != nil {
		g.Status = model.GenerationFailed
		g.Error = err.Error()
		slog.Error("generation failed", "id", g.ID, "capability", g.Capability, "error", err)
	} else {
		g.Status = model.GenerationSucceeded
		g.OutputMIME, g.OutputBytes = describe(res)
		slog.Info("generation finished", "id", g.ID, "capability", g.Capability,
			"duration", g.Duration(), "bytes", g.OutputBytes)
	}
	if a.s.recorder != nil {
		// The request context may already be cancelled; the log row still
		// has to be closed.
		if rerr := a.s.recorder.FinishGeneration(context.WithoutCancel(ctx), g); rerr != nil {
			slog.Warn("record generation finish", "id", g.ID, "error", rerr)
		}
	}
	return wrap(g.Capability, err)
}

func describe(res *model.GenerationResult) (string, int) {
	if res == nil {
		return "", 0
	}
	switch res.Kind {
	case model.ResultImage:
		if p, err := media.ParseDataURI(res.DataURI); err == nil {
			return p.MIMEType, len(p.Data) * 3 / 4
		}
		return "", 0
	case model.ResultVideo:
		if res.Video != nil {
			return res.Video.MIMEType, len(res.Video.Data)
		}
	case model.ResultText:
		return "text/html", len(res.Text)
	case model.ResultStructuredQuiz:
		return "application/json", 0
	}
	return "", 0
}

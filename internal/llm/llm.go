// Package llm talks to the hosted generation models. It hides the concrete
// SDKs behind small request/response types so the orchestrator can be tested
// against fakes.
package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/truonghoc/studio/internal/model"
)

// Default model variants per capability.
const (
	ModelImage    = "gemini-2.5-flash-image"
	ModelProImage = "gemini-3-pro-image-preview"
	ModelVideo    = "veo-3.1-fast-generate-preview"
	ModelText     = "gemini-2.5-flash"
)

// ErrUnsupported is returned by backends that cannot serve a request kind.
var ErrUnsupported = errors.New("operation not supported by backend")

// Part is one ordered fragment of a multi-part request or response.
// Exactly one of Text or Inline is set.
type Part struct {
	Text   string
	Inline *model.EncodedPart
}

// TextPart builds a text part.
func TextPart(s string) Part { return Part{Text: s} }

// InlinePart builds a binary part.
func InlinePart(p model.EncodedPart) Part { return Part{Inline: &p} }

// ContentOptions carries per-capability generation settings.
type ContentOptions struct {
	ResponseMIMEType string
	AspectRatio      string
	ImageSize        string
}

// ContentResponse holds the parts of the first candidate.
type ContentResponse struct {
	Parts []Part
}

// Text concatenates the text parts.
func (r *ContentResponse) Text() string {
	if r == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// ContentGenerator produces content from ordered parts.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, modelName string, parts []Part, opts ContentOptions) (*ContentResponse, error)
}

// VideoRequest describes an image-to-video job.
type VideoRequest struct {
	Model          string
	Prompt         string
	Image          model.EncodedPart
	AspectRatio    string
	Resolution     string
	NumberOfVideos int
}

// Operation is an opaque long-running job handle. Callers inspect only Done,
// ResultURI and Error; Raw is owned by the backend.
type Operation struct {
	Name      string
	Done      bool
	ResultURI string
	Error     string
	Raw       any
}

// VideoGenerator starts and inspects long-running video jobs.
type VideoGenerator interface {
	GenerateVideos(ctx context.Context, req VideoRequest) (*Operation, error)
	GetVideosOperation(ctx context.Context, op *Operation) (*Operation, error)
}

// Pinger checks that a backend is reachable and credentials are accepted.
type Pinger interface {
	Ping(ctx context.Context) error
}

package studio

import (
	"context"
	"errors"
	"io"
	"os"
	"sync"
	"testing"

	"github.com/truonghoc/studio/internal/i18n"
	"github.com/truonghoc/studio/internal/llm"
	"github.com/truonghoc/studio/internal/model"
)

func TestMain(m *testing.M) {
	if err := i18n.Init("vi"); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type contentCall struct {
	model string
	parts []llm.Part
	opts  llm.ContentOptions
}

// fakeContent records every request and replays a fixed response.
type fakeContent struct {
	mu    sync.Mutex
	calls []contentCall
	resp  *llm.ContentResponse
	err   error
}

func (f *fakeContent) GenerateContent(_ context.Context, modelName string, parts []llm.Part, opts llm.ContentOptions) (*llm.ContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, contentCall{model: modelName, parts: parts, opts: opts})
	return f.resp, f.err
}

func (f *fakeContent) last(t *testing.T) contentCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		t.Fatal("no content call recorded")
	}
	return f.calls[len(f.calls)-1]
}

func imageResponse() *llm.ContentResponse {
	return &llm.ContentResponse{Parts: []llm.Part{
		llm.TextPart("ignore"),
		llm.InlinePart(model.EncodedPart{Data: "AAAA", MIMEType: "image/png"}),
	}}
}

func textResponse(s string) *llm.ContentResponse {
	return &llm.ContentResponse{Parts: []llm.Part{llm.TextPart(s)}}
}

// fakeVideos returns a pending handle on submission and replays queries.
type fakeVideos struct {
	submitted []llm.VideoRequest
	submitErr error
	queries   []*llm.Operation
	queried   int
}

func (f *fakeVideos) GenerateVideos(_ context.Context, req llm.VideoRequest) (*llm.Operation, error) {
	f.submitted = append(f.submitted, req)
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	return &llm.Operation{Name: "operations/v1"}, nil
}

func (f *fakeVideos) GetVideosOperation(_ context.Context, op *llm.Operation) (*llm.Operation, error) {
	if f.queried >= len(f.queries) {
		return nil, errors.New("no more scripted operations")
	}
	next := f.queries[f.queried]
	f.queried++
	return next, nil
}

type fakeSelector struct {
	has       bool
	hasErr    error
	selectErr error
	requested int
}

func (f *fakeSelector) HasCredential(context.Context) (bool, error) { return f.has, f.hasErr }

func (f *fakeSelector) RequestSelection(context.Context) error {
	f.requested++
	return f.selectErr
}

type memRecorder struct {
	mu       sync.Mutex
	started  []model.Generation
	finished []model.Generation
}

func (r *memRecorder) StartGeneration(_ context.Context, g *model.Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, *g)
	return nil
}

func (r *memRecorder) FinishGeneration(_ context.Context, g *model.Generation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, *g)
	return nil
}

func pngFile(name string) *model.MediaFile {
	return model.MediaFileFromBytes(name, "image/png", []byte{0x89, 'P', 'N', 'G'})
}

func unreadableFile() *model.MediaFile {
	return model.NewMediaFile("broken.png", "image/png", func() (io.ReadCloser, error) {
		return nil, errors.New("disk error")
	})
}

package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"google.golang.org/genai"

	"github.com/truonghoc/studio/internal/model"
)

// GeminiConfig configures the Gemini API backend.
type GeminiConfig struct {
	APIKey  string
	BaseURL string
	// Key, when set, is consulted on every call and takes precedence over
	// APIKey. The client is rebuilt whenever the returned key changes.
	Key func() string
	// PingModel is looked up by Ping; defaults to ModelText.
	PingModel string
}

// Gemini serves content and video requests through the Gemini API.
type Gemini struct {
	cfg GeminiConfig

	mu        sync.Mutex
	client    *genai.Client
	clientKey string
}

// NewGemini creates a Gemini backend. An empty key lets the SDK fall back
// to GEMINI_API_KEY / GOOGLE_API_KEY. When a Key source is configured, a
// missing key is tolerated until the first call.
func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	if cfg.PingModel == "" {
		cfg.PingModel = ModelText
	}
	g := &Gemini{cfg: cfg}
	if _, err := g.api(ctx); err != nil {
		if cfg.Key == nil {
			return nil, err
		}
		slog.Warn("gemini client deferred until a key is selected", "error", err)
	}
	return g, nil
}

func (g *Gemini) currentKey() string {
	if g.cfg.Key != nil {
		if k := g.cfg.Key(); k != "" {
			return k
		}
	}
	return g.cfg.APIKey
}

// api returns a client for the current key, creating one on first use or
// after the key changed.
func (g *Gemini) api(ctx context.Context) (*genai.Client, error) {
	key := g.currentKey()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.client != nil && g.clientKey == key {
		return g.client, nil
	}

	cc := &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	}
	if g.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: g.cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	g.client, g.clientKey = client, key
	return client, nil
}

// GenerateContent sends the parts as a single user turn.
func (g *Gemini) GenerateContent(ctx context.Context, modelName string, parts []Part, opts ContentOptions) (*ContentResponse, error) {
	client, err := g.api(ctx)
	if err != nil {
		return nil, err
	}
	contents, err := toGenaiContents(parts)
	if err != nil {
		return nil, err
	}

	resp, err := client.Models.GenerateContent(ctx, modelName, contents, toGenaiConfig(opts))
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}
	return fromGenaiResponse(resp), nil
}

// GenerateVideos submits an image-to-video job.
func (g *Gemini) GenerateVideos(ctx context.Context, req VideoRequest) (*Operation, error) {
	client, err := g.api(ctx)
	if err != nil {
		return nil, err
	}
	imageBytes, err := base64.StdEncoding.DecodeString(req.Image.Data)
	if err != nil {
		return nil, fmt.Errorf("decode seed image: %w", err)
	}
	n := int32(req.NumberOfVideos)
	if n <= 0 {
		n = 1
	}

	op, err := client.Models.GenerateVideos(ctx, req.Model, req.Prompt,
		&genai.Image{ImageBytes: imageBytes, MIMEType: req.Image.MIMEType},
		&genai.GenerateVideosConfig{
			NumberOfVideos: n,
			Resolution:     req.Resolution,
			AspectRatio:    req.AspectRatio,
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate videos: %w", err)
	}
	return fromGenaiOperation(op), nil
}

// GetVideosOperation refreshes a job handle.
func (g *Gemini) GetVideosOperation(ctx context.Context, op *Operation) (*Operation, error) {
	client, err := g.api(ctx)
	if err != nil {
		return nil, err
	}
	raw, ok := op.Raw.(*genai.GenerateVideosOperation)
	if !ok {
		raw = &genai.GenerateVideosOperation{Name: op.Name}
	}
	next, err := client.Operations.GetVideosOperation(ctx, raw, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini get videos operation: %w", err)
	}
	return fromGenaiOperation(next), nil
}

// Ping looks up the configured model, which fails fast on bad credentials.
func (g *Gemini) Ping(ctx context.Context) error {
	client, err := g.api(ctx)
	if err != nil {
		return err
	}
	if _, err := client.Models.Get(ctx, g.cfg.PingModel, nil); err != nil {
		return fmt.Errorf("gemini ping: %w", err)
	}
	return nil
}

// IsQuotaError reports whether err is a rate-limit or quota rejection.
func IsQuotaError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Status == "RESOURCE_EXHAUSTED"
	}
	return false
}

// IsAuthError reports whether err is a credential or permission rejection.
func IsAuthError(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusUnauthorized || apiErr.Code == http.StatusForbidden
	}
	return false
}

func toGenaiContents(parts []Part) ([]*genai.Content, error) {
	gparts := make([]*genai.Part, 0, len(parts))
	for i, p := range parts {
		if p.Inline != nil {
			data, err := base64.StdEncoding.DecodeString(p.Inline.Data)
			if err != nil {
				return nil, fmt.Errorf("decode part %d: %w", i, err)
			}
			gparts = append(gparts, genai.NewPartFromBytes(data, p.Inline.MIMEType))
			continue
		}
		gparts = append(gparts, genai.NewPartFromText(p.Text))
	}
	return []*genai.Content{genai.NewContentFromParts(gparts, genai.RoleUser)}, nil
}

func toGenaiConfig(opts ContentOptions) *genai.GenerateContentConfig {
	if opts == (ContentOptions{}) {
		return nil
	}
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: opts.ResponseMIMEType}
	if opts.AspectRatio != "" || opts.ImageSize != "" {
		cfg.ImageConfig = &genai.ImageConfig{
			AspectRatio: opts.AspectRatio,
			ImageSize:   opts.ImageSize,
		}
	}
	return cfg
}

func fromGenaiResponse(resp *genai.GenerateContentResponse) *ContentResponse {
	out := &ContentResponse{}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out
	}
	if len(resp.Candidates) > 1 {
		slog.Debug("multiple candidates returned, using the first", "count", len(resp.Candidates))
	}
	for _, p := range resp.Candidates[0].Content.Parts {
		if p == nil {
			continue
		}
		switch {
		case p.InlineData != nil:
			out.Parts = append(out.Parts, InlinePart(model.EncodedPart{
				Data:     base64.StdEncoding.EncodeToString(p.InlineData.Data),
				MIMEType: p.InlineData.MIMEType,
			}))
		case p.Text != "" && !p.Thought:
			out.Parts = append(out.Parts, TextPart(p.Text))
		}
	}
	return out
}

func fromGenaiOperation(op *genai.GenerateVideosOperation) *Operation {
	if op == nil {
		return &Operation{}
	}
	out := &Operation{Name: op.Name, Done: op.Done, Raw: op}
	if op.Error != nil {
		out.Error = fmt.Sprint(op.Error["message"])
	}
	if op.Response != nil && len(op.Response.GeneratedVideos) > 0 {
		if v := op.Response.GeneratedVideos[0]; v != nil && v.Video != nil {
			out.ResultURI = v.Video.URI
		}
	}
	return out
}

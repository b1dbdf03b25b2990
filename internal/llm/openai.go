package llm

import (
	"context"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/truonghoc/studio/internal/media"
)

// OpenAI wraps an OpenAI-compatible API client. It serves the text
// capabilities (exam, quiz, document conversion) when a local or
// self-hosted model is preferred over Gemini.
type OpenAI struct {
	api   *openai.Client
	model string
}

// NewOpenAI creates a new OpenAI-compatible text backend. modelName, when
// set, overrides the model requested by callers.
func NewOpenAI(baseURL, apiKey, modelName string) *OpenAI {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &OpenAI{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// GenerateContent sends all parts as one user message. Inline parts are
// passed as data-URI images.
func (c *OpenAI) GenerateContent(ctx context.Context, modelName string, parts []Part, opts ContentOptions) (*ContentResponse, error) {
	if opts.AspectRatio != "" || opts.ImageSize != "" {
		return nil, fmt.Errorf("openai image options: %w", ErrUnsupported)
	}
	if c.model != "" {
		modelName = c.model
	}

	req := openai.ChatCompletionRequest{
		Model:       modelName,
		Messages:    []openai.ChatCompletionMessage{buildUserMessage(parts)},
		Temperature: 0.4,
	}
	if opts.ResponseMIMEType == "application/json" {
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.api.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "model", modelName, "chars", len(raw))
	return &ContentResponse{Parts: []Part{TextPart(raw)}}, nil
}

// Ping lists models to verify the endpoint and key.
func (c *OpenAI) Ping(ctx context.Context) error {
	if _, err := c.api.ListModels(ctx); err != nil {
		return fmt.Errorf("LLM ping: %w", err)
	}
	return nil
}

func buildUserMessage(parts []Part) openai.ChatCompletionMessage {
	hasImage := false
	for _, p := range parts {
		if p.Inline != nil {
			hasImage = true
			break
		}
	}

	if !hasImage {
		var text string
		for i, p := range parts {
			if i > 0 {
				text += "\n\n"
			}
			text += p.Text
		}
		return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text}
	}

	multi := make([]openai.ChatMessagePart, 0, len(parts))
	for _, p := range parts {
		if p.Inline != nil {
			multi = append(multi, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    media.DataURI(*p.Inline),
					Detail: openai.ImageURLDetailAuto,
				},
			})
			continue
		}
		multi = append(multi, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: p.Text,
		})
	}
	return openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, MultiContent: multi}
}

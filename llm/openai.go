package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIChat is a ChatModel backed by any OpenAI-compatible endpoint. Both
// Mistral's hosted API and the common LLaMA hosts expose this protocol, so a
// single client covers the whole hybrid setup.
type OpenAIChat struct {
	client *openai.Client
	model  string
}

// OpenAIOption configures an OpenAIChat.
type OpenAIOption func(*openai.ClientConfig)

// WithBaseURL points the client at a non-OpenAI host.
func WithBaseURL(baseURL string) OpenAIOption {
	return func(cfg *openai.ClientConfig) {
		if baseURL != "" {
			cfg.BaseURL = baseURL
		}
	}
}

// NewOpenAIChat creates a chat model client for the given model name.
func NewOpenAIChat(apiKey, model string, opts ...OpenAIOption) (*OpenAIChat, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key not set for model %s", model)
	}
	if model == "" {
		return nil, fmt.Errorf("model name not set")
	}

	cfg := openai.DefaultConfig(apiKey)
	for _, opt := range opts {
		opt(&cfg)
	}

	return &OpenAIChat{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}, nil
}

// Name returns the model name.
func (c *OpenAIChat) Name() string {
	return c.model
}

// Generate sends the conversation to the chat completions endpoint and
// returns the first choice.
func (c *OpenAIChat) Generate(ctx context.Context, messages []Message, opts *GenerateOptions) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(m.Role),
			Content: m.Content,
		})
	}
	if opts != nil {
		req.Temperature = float32(opts.Temperature)
		req.MaxTokens = opts.MaxTokens
		if opts.JSONOnly {
			req.ResponseFormat = &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			}
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("chat completion failed for %s: %w", c.model, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model %s returned no choices", c.model)
	}
	return resp.Choices[0].Message.Content, nil
}

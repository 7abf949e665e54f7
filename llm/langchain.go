package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
)

// LangChainModel adapts a langchaingo llms.Model to the ChatModel interface,
// for providers only reachable through that ecosystem (local Ollama LLaMA
// builds, Bedrock, and so on).
type LangChainModel struct {
	model llms.Model
	name  string
}

// NewLangChainModel wraps a langchaingo model under the given display name.
func NewLangChainModel(model llms.Model, name string) *LangChainModel {
	return &LangChainModel{model: model, name: name}
}

// Name returns the display name given at construction.
func (m *LangChainModel) Name() string {
	return m.name
}

// Generate converts messages into langchaingo content parts and returns the
// first generated choice.
func (m *LangChainModel) Generate(ctx context.Context, messages []Message, opts *GenerateOptions) (string, error) {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		content = append(content, llms.TextParts(chatMessageType(msg.Role), msg.Content))
	}

	var callOpts []llms.CallOption
	if opts != nil {
		if opts.Temperature > 0 {
			callOpts = append(callOpts, llms.WithTemperature(opts.Temperature))
		}
		if opts.MaxTokens > 0 {
			callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
		}
		if opts.JSONOnly {
			callOpts = append(callOpts, llms.WithJSONMode())
		}
	}

	resp, err := m.model.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		return "", fmt.Errorf("generate content failed for %s: %w", m.name, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("model %s returned no choices", m.name)
	}
	return resp.Choices[0].Content, nil
}

func chatMessageType(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

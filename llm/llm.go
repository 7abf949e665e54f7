// Package llm abstracts the hosted chat models the analyst calls.
//
// Two model slots are configured: a reasoning model (Mistral by default) for
// analysis and summarization, and a visualization model (LLaMA 3 by default)
// for chart planning. Both speak an OpenAI-compatible chat API; a langchaingo
// adapter is provided for models only reachable through that ecosystem. The
// Router implements the hybrid strategy: route by purpose, fall back to the
// other model when the primary fails.
package llm

import (
	"context"
	"errors"
)

// Role identifies the author of a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat exchange.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// GenerateOptions tune a single generation call.
type GenerateOptions struct {
	// Temperature for sampling; zero means the provider default.
	Temperature float64

	// MaxTokens caps the response length; zero means no explicit cap.
	MaxTokens int

	// JSONOnly asks the provider for a JSON-object response where supported.
	JSONOnly bool
}

// ChatModel is a hosted chat model.
type ChatModel interface {
	// Name identifies the model for logging and history records.
	Name() string

	// Generate produces a completion for the conversation.
	Generate(ctx context.Context, messages []Message, opts *GenerateOptions) (string, error)
}

// ErrNoModel is returned when no model is configured for a purpose.
var ErrNoModel = errors.New("no model configured")

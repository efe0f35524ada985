package llm

import (
	"context"
)

// Provider is the model gateway. It sends one prompt and returns the raw
// text the model produced without interpreting it.
type Provider interface {
	// Generate sends a prompt to the model. Transport failures are
	// returned as *ErrProviderUnavailable or *ErrTimeout; refusals as
	// *ErrRateLimit or *ErrRejected. Empty or truncated output is not an
	// error at this layer.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes what to send to the model.
type Request struct {
	// System is the system prompt. Sets the model's role and constraints.
	System string

	// Messages is the conversation history. Question generation is single
	// turn, so this usually holds one user message.
	Messages []Message

	// Schema, when set, asks the provider to use its native structured
	// output mode. The returned Text is still unvalidated.
	Schema *Schema

	// MaxTokens is the maximum number of tokens in the response.
	MaxTokens int

	// Temperature controls randomness. Zero leaves the provider default.
	Temperature float64

	// TopP is the nucleus sampling cutoff. Zero leaves the provider default.
	TopP float64

	// Model overrides the configured model for this call. Friendly names
	// are resolved the same way as in the config.
	Model string
}

// Message represents a single message in the conversation.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema defines a JSON structure for validation or native structured output.
type Schema struct {
	// Name identifies this schema (used as tool name for Anthropic,
	// schema name for OpenAI). Kebab-case, e.g. "question-sol".
	Name string

	// Description is a human-readable description of what this schema
	// represents.
	Description string

	// Definition is the JSON Schema definition as a map.
	Definition map[string]any
}

// Response holds the model's output.
type Response struct {
	// Text is the raw generated text.
	Text string

	// Usage reports token consumption for this request.
	Usage Usage

	// Model is the actual model that served the request.
	Model string

	// StopReason indicates why generation stopped.
	// Normalized to: "end", "max_tokens", "error"
	StopReason string
}

// Usage tracks token consumption for a single request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// UserPrompt builds a single-turn request.
func UserPrompt(system, prompt string) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: prompt}},
	}
}

// Package llm is the text-generation collaborator: a provider abstraction
// over OpenAI, Anthropic and Gemini plus retry, timeout and logging decorators.
package llm

import "context"

// Provider generates text for a prompt.
type Provider interface {
	// Generate sends req and returns the model output. When req.Schema is
	// set the provider asks for JSON and the returned Text is validated
	// against the schema.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID returns the model identifier this provider is configured to use.
	ModelID() string
}

// Request describes one generation call.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, requests structured JSON output.
	Schema *Schema

	MaxTokens   int
	Temperature float64
}

// Message is a single conversation entry.
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

// Schema is a JSON Schema the response must conform to.
type Schema struct {
	// Name identifies the schema; also used as the cache key.
	Name        string
	Description string
	Definition  map[string]any
}

// Response holds the model output.
type Response struct {
	Text  string
	Usage Usage
	Model string
	// StopReason is normalized to "end" or "max_tokens".
	StopReason string
}

// Usage reports token consumption of a single call.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

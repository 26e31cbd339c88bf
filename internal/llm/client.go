// Package llm provides the completion client used by ranking and
// optimization: provider selection by model-name prefix, cross-model
// fallback, credential resolution, and recovery of structured JSON from
// imperfect model output.
package llm

import "context"

// Role constants for chat messages.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one chat-style message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes one logical completion call. Model is the caller's
// requested model; the fallback chain may substitute others following the
// family ordering rules. APIKey, MaxTokens and Temperature are optional
// per-call overrides.
type Request struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature *float64
	APIKey      string
}

// Usage carries token accounting returned by the provider.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Completion is the result of one successful call. Model records which model
// actually answered, which may differ from the requested one after fallback.
type Completion struct {
	Text  string
	Model string
	Usage Usage
}

// Client is the abstraction the rest of the system depends on. The concrete
// implementation is FallbackClient; tests substitute mocks.
type Client interface {
	Complete(ctx context.Context, req Request) (*Completion, error)
}

// Generation defaults, overridable per call.
const (
	DefaultMaxTokens   = 8192
	DefaultTemperature = 0.1
)

package llm

import "strings"

// Family identifies a group of models reachable through one API surface and
// credential type.
type Family string

// Provider families. Gemini models are identified by name prefix; everything
// else is assumed to speak the OpenAI-compatible chat-completions protocol.
const (
	FamilyGemini Family = "gemini"
	FamilyOpenAI Family = "openai"
)

// geminiPrefix is the model-name convention that routes a call to the Gemini
// API surface.
const geminiPrefix = "gemini"

// FamilyFor returns the provider family a model name belongs to.
func FamilyFor(model string) Family {
	if strings.HasPrefix(strings.ToLower(model), geminiPrefix) {
		return FamilyGemini
	}
	return FamilyOpenAI
}

// Config holds model ordering and stored credentials for the fallback client.
type Config struct {
	// GeminiModels and OpenAIModels define each family's fallback order,
	// strongest first.
	GeminiModels []string
	OpenAIModels []string

	// BaseURL is the OpenAI-compatible chat-completions endpoint base
	// (e.g. "https://api.openai.com/v1").
	BaseURL string

	// Stored credentials, outranked by per-call overrides and outranking
	// environment variables.
	GeminiAPIKey string
	OpenAIAPIKey string
}

// DefaultConfig returns the default model ordering.
func DefaultConfig() *Config {
	return &Config{
		GeminiModels: []string{
			"gemini-2.5-pro",
			"gemini-2.5-flash",
			"gemini-2.5-flash-lite",
		},
		OpenAIModels: []string{
			"gpt-4o",
			"gpt-4o-mini",
		},
		BaseURL: "https://api.openai.com/v1",
	}
}

// DefaultModel is the model used when the caller does not request one.
func (c *Config) DefaultModel() string {
	if len(c.OpenAIModels) > 0 {
		return c.OpenAIModels[0]
	}
	if len(c.GeminiModels) > 0 {
		return c.GeminiModels[0]
	}
	return ""
}

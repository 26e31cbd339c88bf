package llm

import "os"

// Environment variables consulted as the lowest-priority credential source.
const (
	EnvGeminiAPIKey = "GEMINI_API_KEY"
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
)

// CredentialResolver resolves the API key for one call. The priority chain is
// explicit rather than ambient: per-call override, then stored configuration,
// then environment default.
type CredentialResolver interface {
	Resolve(family Family, override string) string
}

// ConfigCredentialResolver resolves keys from a Config plus the process
// environment.
type ConfigCredentialResolver struct {
	Config *Config
}

// Resolve returns the first non-empty key in priority order, or "" when no
// source has one (the provider call will then fail with an auth status and
// advance the fallback chain).
func (r *ConfigCredentialResolver) Resolve(family Family, override string) string {
	if override != "" {
		return override
	}
	switch family {
	case FamilyGemini:
		if r.Config != nil && r.Config.GeminiAPIKey != "" {
			return r.Config.GeminiAPIKey
		}
		return os.Getenv(EnvGeminiAPIKey)
	default:
		if r.Config != nil && r.Config.OpenAIAPIKey != "" {
			return r.Config.OpenAIAPIKey
		}
		return os.Getenv(EnvOpenAIAPIKey)
	}
}

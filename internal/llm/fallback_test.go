package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCompleter records attempted models and serves scripted outcomes.
type fakeCompleter struct {
	attempts []string
	keys     []string
	respond  func(model string) (*Completion, error)
}

func (f *fakeCompleter) complete(_ context.Context, model string, _ Request, apiKey string) (*Completion, error) {
	f.attempts = append(f.attempts, model)
	f.keys = append(f.keys, apiKey)
	if f.respond != nil {
		return f.respond(model)
	}
	return &Completion{Text: "ok", Model: model}, nil
}

type staticResolver struct{ key string }

func (r *staticResolver) Resolve(Family, string) string { return r.key }

func newTestClient(gemini, openai *fakeCompleter) *FallbackClient {
	return &FallbackClient{
		config: &Config{
			GeminiModels: []string{"gemini-2.5-pro", "gemini-2.5-flash"},
			OpenAIModels: []string{"gpt-4o", "gpt-4o-mini"},
		},
		creds:  &staticResolver{key: "test-key"},
		gemini: gemini,
		openai: openai,
	}
}

func TestCompleteFirstModelSucceeds(t *testing.T) {
	openai := &fakeCompleter{}
	client := newTestClient(&fakeCompleter{}, openai)

	completion, err := client.Complete(context.Background(), Request{
		Model:    "gpt-4o",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", completion.Model)
	assert.Equal(t, []string{"gpt-4o"}, openai.attempts)
}

func TestCompleteRetryableAdvancesChain(t *testing.T) {
	openai := &fakeCompleter{
		respond: func(model string) (*Completion, error) {
			if model == "gpt-4o" {
				return nil, &APIError{StatusCode: 429, Model: model, Body: "rate limited"}
			}
			return &Completion{Text: "ok", Model: model}, nil
		},
	}
	client := newTestClient(&fakeCompleter{}, openai)

	completion, err := client.Complete(context.Background(), Request{
		Model:    "gpt-4o",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-mini", completion.Model)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, openai.attempts)
}

func TestCompleteNonRetryableAborts(t *testing.T) {
	fatal := errors.New("network unreachable")
	openai := &fakeCompleter{
		respond: func(string) (*Completion, error) { return nil, fatal },
	}
	client := newTestClient(&fakeCompleter{}, openai)

	_, err := client.Complete(context.Background(), Request{
		Model:    "gpt-4o",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})

	require.ErrorIs(t, err, fatal)
	assert.Len(t, openai.attempts, 1)
}

func TestCompleteStrictProviderInvariant(t *testing.T) {
	// Every Gemini model rate-limits; the chain must exhaust without ever
	// touching an OpenAI-compatible model.
	gemini := &fakeCompleter{
		respond: func(model string) (*Completion, error) {
			return nil, &APIError{StatusCode: 429, Model: model, Body: "quota"}
		},
	}
	openai := &fakeCompleter{}
	client := newTestClient(gemini, openai)

	_, err := client.Complete(context.Background(), Request{
		Model:    "gemini-2.5-flash",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})

	var exhausted *ProviderExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, FamilyGemini, exhausted.Family)
	assert.Empty(t, openai.attempts, "strict mode must never cross into family B")
	assert.Equal(t, []string{"gemini-2.5-flash", "gemini-2.5-pro"}, gemini.attempts)
	assert.True(t, exhausted.RateLimited())
}

func TestCompleteCrossFamilyFallback(t *testing.T) {
	// An OpenAI-family request falls back through family B then family A.
	gemini := &fakeCompleter{
		respond: func(model string) (*Completion, error) {
			return &Completion{Text: "ok", Model: model}, nil
		},
	}
	openai := &fakeCompleter{
		respond: func(model string) (*Completion, error) {
			return nil, &APIError{StatusCode: 503, Model: model, Body: "unavailable"}
		},
	}
	client := newTestClient(gemini, openai)

	completion, err := client.Complete(context.Background(), Request{
		Model:    "gpt-4o",
		Messages: []Message{{Role: RoleUser, Content: "hi"}},
	})

	require.NoError(t, err)
	assert.Equal(t, "gemini-2.5-pro", completion.Model)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, openai.attempts)
}

func TestFallbackOrderDeduplicates(t *testing.T) {
	client := newTestClient(&fakeCompleter{}, &fakeCompleter{})

	order := client.fallbackOrder("gpt-4o")
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini", "gemini-2.5-pro", "gemini-2.5-flash"}, order)

	order = client.fallbackOrder("gemini-2.5-pro")
	assert.Equal(t, []string{"gemini-2.5-pro", "gemini-2.5-flash"}, order)
}

func TestCompleteRequiresMessages(t *testing.T) {
	client := newTestClient(&fakeCompleter{}, &fakeCompleter{})
	_, err := client.Complete(context.Background(), Request{Model: "gpt-4o"})
	require.Error(t, err)
}

func TestProviderExhaustedDiagnosis(t *testing.T) {
	err := &ProviderExhaustedError{
		Family:    FamilyGemini,
		Attempted: []string{"gemini-2.5-pro"},
		LastErr:   &APIError{StatusCode: 401, Model: "gemini-2.5-pro", Body: "bad key"},
	}
	assert.Contains(t, err.Diagnosis(), EnvGeminiAPIKey)
	assert.False(t, err.RateLimited())

	err.LastErr = &APIError{StatusCode: 404, Model: "gemini-2.5-pro", Body: "missing"}
	assert.Contains(t, err.Diagnosis(), "model not found")
}

func TestFamilyFor(t *testing.T) {
	assert.Equal(t, FamilyGemini, FamilyFor("gemini-2.5-pro"))
	assert.Equal(t, FamilyGemini, FamilyFor("Gemini-2.5-flash"))
	assert.Equal(t, FamilyOpenAI, FamilyFor("gpt-4o"))
	assert.Equal(t, FamilyOpenAI, FamilyFor("llama-3.1-70b"))
}

func TestConfigCredentialResolverPriority(t *testing.T) {
	resolver := &ConfigCredentialResolver{Config: &Config{OpenAIAPIKey: "stored"}}

	assert.Equal(t, "override", resolver.Resolve(FamilyOpenAI, "override"))
	assert.Equal(t, "stored", resolver.Resolve(FamilyOpenAI, ""))

	t.Setenv(EnvOpenAIAPIKey, "from-env")
	resolver.Config.OpenAIAPIKey = ""
	assert.Equal(t, "from-env", resolver.Resolve(FamilyOpenAI, ""))
}

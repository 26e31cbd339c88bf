package llm

import (
	"context"
	"fmt"
)

// completer is the per-provider call surface the fallback chain iterates over.
type completer interface {
	complete(ctx context.Context, model string, req Request, apiKey string) (*Completion, error)
}

// FallbackClient implements Client with automatic cross-model fallback.
//
// Strict-provider invariant: when the requested model is a Gemini model the
// chain is restricted to Gemini models only and never crosses into the
// OpenAI-compatible family. For any other requested model the chain is all
// OpenAI-compatible models followed by all Gemini models. The requested model
// is always tried first and the list is deduplicated by name.
type FallbackClient struct {
	config *Config
	creds  CredentialResolver
	gemini completer
	openai completer
}

// NewFallbackClient builds the production client from configuration.
func NewFallbackClient(config *Config) *FallbackClient {
	if config == nil {
		config = DefaultConfig()
	}
	return &FallbackClient{
		config: config,
		creds:  &ConfigCredentialResolver{Config: config},
		gemini: &geminiProvider{},
		openai: newOpenAIProvider(config.BaseURL),
	}
}

// Complete executes the call against the fallback chain. A success returns
// immediately; a retryable failure advances to the next model; any other
// failure aborts and propagates. Exhausting the whole chain raises a single
// ProviderExhaustedError.
func (c *FallbackClient) Complete(ctx context.Context, req Request) (*Completion, error) {
	if req.Model == "" {
		req.Model = c.config.DefaultModel()
	}
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("completion request has no messages")
	}

	models := c.fallbackOrder(req.Model)
	family := FamilyFor(req.Model)

	var lastErr error
	for _, model := range models {
		apiKey := c.creds.Resolve(FamilyFor(model), req.APIKey)
		completion, err := c.providerFor(model).complete(ctx, model, req, apiKey)
		if err == nil {
			return completion, nil
		}
		if !IsRetryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, &ProviderExhaustedError{Family: family, Attempted: models, LastErr: lastErr}
}

// fallbackOrder builds the deduplicated model list for one call.
func (c *FallbackClient) fallbackOrder(requested string) []string {
	var candidates []string
	candidates = append(candidates, requested)

	if FamilyFor(requested) == FamilyGemini {
		candidates = append(candidates, c.config.GeminiModels...)
	} else {
		candidates = append(candidates, c.config.OpenAIModels...)
		candidates = append(candidates, c.config.GeminiModels...)
	}

	seen := make(map[string]bool, len(candidates))
	ordered := make([]string, 0, len(candidates))
	for _, model := range candidates {
		if model == "" || seen[model] {
			continue
		}
		seen[model] = true
		ordered = append(ordered, model)
	}
	return ordered
}

func (c *FallbackClient) providerFor(model string) completer {
	if FamilyFor(model) == FamilyGemini {
		return c.gemini
	}
	return c.openai
}

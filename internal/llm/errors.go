package llm

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a provider call failure carrying the HTTP status code the
// fallback chain's retryability predicate inspects.
type APIError struct {
	StatusCode int
	Model      string
	Body       string
}

func (e *APIError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("model %s returned status %d: %s", e.Model, e.StatusCode, body)
}

// retryableStatuses is the closed set of status codes that advance the
// fallback chain instead of aborting the call. 404/400/401 are included
// because a model missing or unauthorized under one provider account is
// frequently available under the next model in the chain.
var retryableStatuses = map[int]bool{
	429: true,
	413: true,
	404: true,
	400: true,
	401: true,
	503: true,
}

// IsRetryable reports whether an error should advance the fallback chain.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return retryableStatuses[apiErr.StatusCode]
	}
	return false
}

// ProviderExhaustedError is raised when every model in the fallback list
// failed with a retryable status. It is a single classified error so callers
// can render materially different guidance for rate limits versus other causes.
type ProviderExhaustedError struct {
	Family    Family
	Attempted []string
	LastErr   error
}

func (e *ProviderExhaustedError) Error() string {
	return fmt.Sprintf("all %s models exhausted (tried %s): %s",
		e.Family, strings.Join(e.Attempted, ", "), e.Diagnosis())
}

func (e *ProviderExhaustedError) Unwrap() error {
	return e.LastErr
}

// RateLimited reports whether the chain died on quota rather than some other
// cause.
func (e *ProviderExhaustedError) RateLimited() bool {
	var apiErr *APIError
	if errors.As(e.LastErr, &apiErr) {
		return apiErr.StatusCode == 429
	}
	return false
}

// Diagnosis returns a family-specific human-readable hint about the likely
// cause of exhaustion.
func (e *ProviderExhaustedError) Diagnosis() string {
	var apiErr *APIError
	status := 0
	if errors.As(e.LastErr, &apiErr) {
		status = apiErr.StatusCode
	}

	switch status {
	case 429:
		if e.Family == FamilyGemini {
			return "Gemini quota exceeded; check your Google AI Studio plan and billing"
		}
		return "rate limit exceeded on every model; wait and retry, or raise your provider quota"
	case 401:
		if e.Family == FamilyGemini {
			return fmt.Sprintf("authentication failed; verify %s", EnvGeminiAPIKey)
		}
		return fmt.Sprintf("authentication failed; verify %s or the configured base URL", EnvOpenAIAPIKey)
	case 404:
		return "model not found; verify the configured model names are available to your account"
	default:
		if e.LastErr != nil {
			return e.LastErr.Error()
		}
		return "no models available"
	}
}

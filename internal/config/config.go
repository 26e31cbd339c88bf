// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via
// CLI flags or environment variables.
type Config struct {
	// Inputs
	Leads   string `json:"leads,omitempty"`    // Path to leads JSON file (file mode)
	EvalSet string `json:"eval_set,omitempty"` // Path to labeled eval set JSON file
	Company string `json:"company,omitempty"`  // Company name (DB mode, single-company runs)

	// Models
	Model        string `json:"model,omitempty"`          // Requested model name
	GeminiAPIKey string `json:"gemini_api_key,omitempty"` // Gemini API key
	OpenAIAPIKey string `json:"openai_api_key,omitempty"` // OpenAI-compatible API key
	BaseURL      string `json:"base_url,omitempty" validate:"omitempty,url"`

	// Limits
	BatchSize     int `json:"batch_size,omitempty" validate:"min=0,max=50"`
	MaxAttempts   int `json:"max_attempts,omitempty" validate:"min=0,max=10"`
	MaxIterations int `json:"max_iterations,omitempty" validate:"min=0,max=25"`
	Concurrency   int `json:"concurrency,omitempty" validate:"min=0,max=64"`

	// Behavior
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values. Required fields
// are not checked here; the CLI enforces those after merging flags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.Leads != "" {
		if _, err := os.Stat(c.Leads); os.IsNotExist(err) {
			return fmt.Errorf("config error: leads file not found: %s", c.Leads)
		}
	}
	if c.EvalSet != "" {
		if _, err := os.Stat(c.EvalSet); os.IsNotExist(err) {
			return fmt.Errorf("config error: eval set file not found: %s", c.EvalSet)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.Leads == "" {
		result.Leads = defaults.Leads
	}
	if result.EvalSet == "" {
		result.EvalSet = defaults.EvalSet
	}
	if result.Company == "" {
		result.Company = defaults.Company
	}
	if result.Model == "" {
		result.Model = defaults.Model
	}
	if result.GeminiAPIKey == "" {
		result.GeminiAPIKey = defaults.GeminiAPIKey
	}
	if result.OpenAIAPIKey == "" {
		result.OpenAIAPIKey = defaults.OpenAIAPIKey
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Int fields: use default if zero
	if result.BatchSize == 0 {
		result.BatchSize = defaults.BatchSize
	}
	if result.MaxAttempts == 0 {
		result.MaxAttempts = defaults.MaxAttempts
	}
	if result.MaxIterations == 0 {
		result.MaxIterations = defaults.MaxIterations
	}
	if result.Concurrency == 0 {
		result.Concurrency = defaults.Concurrency
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// internal/llm/llm.go

// Package llm wraps the language-model capability the discovery and
// enrichment layers consume: given a prompt, return a best-effort
// JSON-shaped text response or an error. Responses are never trusted to be
// well-formed; callers run them through ExtractJSONObject.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Provider is the single capability the core needs from a language model
type Provider interface {
	// Complete sends one prompt and returns the raw text response.
	Complete(ctx context.Context, prompt string) (string, error)

	// Name identifies the provider for logs and metrics.
	Name() string
}

// Config selects and configures a provider backend
type Config struct {
	Provider    string        `yaml:"provider" json:"provider"` // openai or ollama
	Model       string        `yaml:"model" json:"model"`
	APIKey      string        `yaml:"api_key,omitempty" json:"api_key,omitempty"`
	BaseURL     string        `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	MaxTokens   int           `yaml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
	Temperature float64       `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	Timeout     time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// New creates a provider from configuration
func New(cfg Config) (Provider, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		return newOpenAIProvider(cfg, client)
	case "ollama":
		return newOllamaProvider(cfg, client)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", cfg.Provider)
	}
}

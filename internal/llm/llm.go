package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Provider is the interface for completion providers.
type Provider interface {
	Generate(ctx context.Context, req Request) (string, error)
	Name() string
}

// Request is a single completion call.
type Request struct {
	System    string
	Prompt    string
	MaxTokens int
	// Schema asks the provider for a JSON reply of this shape. Providers
	// without structured output fall back to the prompt's instructions.
	Schema *Schema
}

// Schema is the subset of JSON Schema understood by every provider.
type Schema struct {
	Type       string             `json:"type"`
	Items      *Schema            `json:"items,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

// Options configures NewProvider.
type Options struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
}

// NewProvider creates the completion provider named in opts.
func NewProvider(opts Options) (Provider, error) {
	if opts.Timeout == 0 {
		opts.Timeout = 120 * time.Second
	}
	switch strings.ToLower(opts.Provider) {
	case "gemini":
		return NewGeminiProvider(opts.Model, opts.APIKey, opts.BaseURL, opts.Timeout), nil
	case "openai":
		return NewOpenAIProvider(opts.Model, opts.APIKey, opts.BaseURL, opts.Timeout), nil
	case "anthropic":
		return NewAnthropicProvider(opts.Model, opts.APIKey, opts.BaseURL, opts.Timeout), nil
	case "ollama":
		return NewOllamaProvider(opts.Model, opts.BaseURL, opts.Timeout), nil
	}
	return nil, fmt.Errorf("unknown provider %q", opts.Provider)
}

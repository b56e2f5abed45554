// Package llm wraps the text-completion capability behind a small
// interface so flows can swap in test doubles and fall back on failure.
package llm

import (
	"context"
	"fmt"

	"github.com/fabfab/support-agent/config"
)

// Client produces a completion from system instructions and user
// content. Implementations must return an error on any transport or
// provider failure so callers can take their deterministic fallback.
type Client interface {
	Complete(ctx context.Context, system, user string, temperature float32) (string, error)
}

type Options struct {
	Provider string
	Model    string

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewClient(cfg config.Config) (Client, error) {
	opts := Options{
		Provider:      cfg.LLM.Provider,
		Model:         cfg.LLM.Model,
		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaClient(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIClient(opts), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", opts.Provider)
	}
}

// Package embeddings turns support-document chunks and customer
// queries into the fixed-length vectors the retrieval index stores.
package embeddings

import (
	"context"
	"fmt"

	"github.com/fabfab/support-agent/config"
)

// Embedder returns one vector per input text, in input order. The
// ingestion pipeline passes a document's chunks as one batch; the
// retriever passes a single query.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DimensionError reports a provider vector that does not fit the
// dimension the chunk index was created with. Storing it anyway would
// corrupt retrieval, so embedding fails instead.
type DimensionError struct {
	Want int
	Got  int
}

func (e *DimensionError) Error() string {
	return fmt.Sprintf("embedding dimension mismatch: index expects %d, provider returned %d", e.Want, e.Got)
}

func checkDimension(want, got int) error {
	if want > 0 && got != want {
		return &DimensionError{Want: want, Got: got}
	}
	return nil
}

// NewEmbedder selects the embedding provider from configuration.
func NewEmbedder(cfg config.Config) (Embedder, error) {
	switch cfg.Embeddings.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(cfg.OllamaHost, cfg.Embeddings.Model, cfg.Embeddings.Dimension), nil
	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("embeddings provider %q requires OPENAI_API_KEY", cfg.Embeddings.Provider)
		}
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.Embeddings.Model, cfg.Embeddings.Dimension), nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.Embeddings.Provider)
	}
}

// Package retrieval ranks stored document chunks against a query by
// cosine similarity. The scan is exhaustive; the corpus is small enough
// that no index structure is warranted.
package retrieval

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	"github.com/fabfab/support-agent/embeddings"
	"github.com/fabfab/support-agent/store"
)

// epsilon keeps the similarity denominator away from zero.
const epsilon = 1e-8

// ChunkSource lists every stored chunk in storage order.
type ChunkSource interface {
	AllChunks(ctx context.Context) ([]store.DocChunk, error)
}

// Result is one ranked chunk.
type Result struct {
	Score   float64
	Title   string
	Content string
}

type Retriever struct {
	chunks   ChunkSource
	embedder embeddings.Embedder
	logger   *zap.Logger
}

func NewRetriever(chunks ChunkSource, embedder embeddings.Embedder, logger *zap.Logger) *Retriever {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Retriever{
		chunks:   chunks,
		embedder: embedder,
		logger:   logger,
	}
}

// Retrieve returns at most topK chunks ranked by descending cosine
// similarity to the query. Ties keep storage order. An empty store
// yields an empty result without touching the embedding provider.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int) ([]Result, error) {
	stored, err := r.chunks.AllChunks(ctx)
	if err != nil {
		return nil, fmt.Errorf("load chunk index: %w", err)
	}
	if len(stored) == 0 || topK <= 0 {
		return []Result{}, nil
	}

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embedder returned no vectors")
	}
	queryVec := vectors[0]

	results := make([]Result, len(stored))
	mismatched := 0
	for i, chunk := range stored {
		title := chunk.Title
		if title == "" {
			title = chunk.DocID
		}
		// A chunk embedded at a different dimension (provider or model
		// changed without re-ingesting) scores zero rather than being
		// compared on truncated vectors.
		score := 0.0
		if len(chunk.Embedding) == len(queryVec) {
			score = cosineSimilarity(queryVec, chunk.Embedding)
		} else {
			mismatched++
		}
		results[i] = Result{
			Score:   score,
			Title:   title,
			Content: chunk.Content,
		}
	}
	if mismatched > 0 {
		r.logger.Warn("chunks embedded at a different dimension scored zero; re-ingest the index",
			zap.Int("count", mismatched),
			zap.Int("query_dimension", len(queryVec)))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK < len(results) {
		results = results[:topK]
	}

	r.logger.Debug("retrieved chunks", zap.Int("count", len(results)))
	return results, nil
}

// cosineSimilarity expects equal-length vectors; the caller screens
// dimension mismatches.
func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + epsilon)
}

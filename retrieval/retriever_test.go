package retrieval_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/support-agent/retrieval"
	"github.com/fabfab/support-agent/store"
)

type stubChunkSource struct {
	chunks []store.DocChunk
	err    error
}

func (s *stubChunkSource) AllChunks(ctx context.Context) ([]store.DocChunk, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.chunks, nil
}

type stubEmbedder struct {
	vector []float32
	err    error
	calls  int
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return [][]float32{s.vector}, nil
}

func TestRetrieveRanksByCosineSimilarity(t *testing.T) {
	source := &stubChunkSource{chunks: []store.DocChunk{
		{DocID: "orthogonal.md", Title: "orthogonal", Content: "unrelated", Embedding: []float32{0, 1, 0}},
		{DocID: "exact-a.md", Title: "exact-a", Content: "match a", Embedding: []float32{1, 0, 0}},
		{DocID: "exact-b.md", Title: "exact-b", Content: "match b", Embedding: []float32{1, 0, 0}},
	}}
	embedder := &stubEmbedder{vector: []float32{1, 0, 0}}

	r := retrieval.NewRetriever(source, embedder, nil)
	results, err := r.Retrieve(context.Background(), "query", 3)
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score, "scores must be non-increasing")
	}

	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 1.0, results[1].Score, 1e-6)
	// Identical embeddings keep storage order.
	assert.Equal(t, "exact-a", results[0].Title)
	assert.Equal(t, "exact-b", results[1].Title)
	assert.Equal(t, "orthogonal", results[2].Title)
	assert.InDelta(t, 0.0, results[2].Score, 1e-6)
}

func TestRetrieveLimitsToTopK(t *testing.T) {
	source := &stubChunkSource{chunks: []store.DocChunk{
		{DocID: "a", Embedding: []float32{1, 0}},
		{DocID: "b", Embedding: []float32{0.5, 0.5}},
		{DocID: "c", Embedding: []float32{0, 1}},
	}}
	r := retrieval.NewRetriever(source, &stubEmbedder{vector: []float32{1, 0}}, nil)

	results, err := r.Retrieve(context.Background(), "query", 2)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieveEmptyStore(t *testing.T) {
	embedder := &stubEmbedder{vector: []float32{1, 0}}
	r := retrieval.NewRetriever(&stubChunkSource{}, embedder, nil)

	results, err := r.Retrieve(context.Background(), "anything", 5)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Equal(t, 0, embedder.calls, "empty store must not trigger an embedding call")
}

func TestRetrieveZeroTopK(t *testing.T) {
	source := &stubChunkSource{chunks: []store.DocChunk{
		{DocID: "a", Embedding: []float32{1}},
	}}
	r := retrieval.NewRetriever(source, &stubEmbedder{vector: []float32{1}}, nil)

	results, err := r.Retrieve(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieveTitleFallsBackToDocID(t *testing.T) {
	source := &stubChunkSource{chunks: []store.DocChunk{
		{DocID: "docs/faq.md", Title: "", Content: "text", Embedding: []float32{1}},
	}}
	r := retrieval.NewRetriever(source, &stubEmbedder{vector: []float32{1}}, nil)

	results, err := r.Retrieve(context.Background(), "anything", 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "docs/faq.md", results[0].Title)
}

func TestRetrieveEmbedFailure(t *testing.T) {
	source := &stubChunkSource{chunks: []store.DocChunk{
		{DocID: "a", Embedding: []float32{1}},
	}}
	r := retrieval.NewRetriever(source, &stubEmbedder{err: errors.New("down")}, nil)

	_, err := r.Retrieve(context.Background(), "anything", 1)
	require.Error(t, err)
}

func TestRetrieveMismatchedDimensionScoresZero(t *testing.T) {
	// "stale" carries an embedding from a previous model; it must rank
	// below any chunk scored against the live query vector, not win on
	// a truncated comparison.
	source := &stubChunkSource{chunks: []store.DocChunk{
		{DocID: "stale.md", Title: "stale", Content: "old model", Embedding: []float32{1, 0}},
		{DocID: "weak.md", Title: "weak", Content: "weak match", Embedding: []float32{0.2, 0.1, 0.9}},
	}}
	r := retrieval.NewRetriever(source, &stubEmbedder{vector: []float32{1, 0, 0}}, nil)

	results, err := r.Retrieve(context.Background(), "query", 2)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "weak", results[0].Title)
	assert.Equal(t, "stale", results[1].Title)
	assert.Equal(t, 0.0, results[1].Score)
}

func TestRetrieveTopKLargerThanStore(t *testing.T) {
	source := &stubChunkSource{chunks: []store.DocChunk{
		{DocID: "a", Embedding: []float32{1, 0}},
		{DocID: "b", Embedding: []float32{0, 1}},
	}}
	r := retrieval.NewRetriever(source, &stubEmbedder{vector: []float32{1, 0}}, nil)

	results, err := r.Retrieve(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

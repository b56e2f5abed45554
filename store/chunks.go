package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkStore persists document chunks and their embeddings. The index
// is rebuilt wholesale on each ingestion run.
type ChunkStore struct {
	pool *pgxpool.Pool
}

func NewChunkStore(pool *pgxpool.Pool) *ChunkStore {
	return &ChunkStore{pool: pool}
}

// ReplaceChunks clears the entire index and inserts the given chunks in
// one transaction, so readers never observe a partial rebuild.
func (s *ChunkStore) ReplaceChunks(ctx context.Context, chunks []DocChunk) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if _, err = tx.Exec(ctx, "DELETE FROM support_doc_chunks"); err != nil {
		return fmt.Errorf("clear chunk index: %w", err)
	}

	for _, chunk := range chunks {
		if _, err = tx.Exec(ctx, `
			INSERT INTO support_doc_chunks (doc_id, chunk_index, title, content, embedding)
			VALUES ($1, $2, $3, $4, $5)
		`, chunk.DocID, chunk.ChunkIndex, chunk.Title, chunk.Content, pgvector.NewVector(chunk.Embedding)); err != nil {
			return fmt.Errorf("insert chunk %s[%d]: %w", chunk.DocID, chunk.ChunkIndex, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit chunk replacement: %w", err)
	}

	return nil
}

// AllChunks returns every stored chunk in insertion order, which is the
// tie-break order for similarity ranking.
func (s *ChunkStore) AllChunks(ctx context.Context) ([]DocChunk, error) {
	const query = `
        SELECT id, doc_id, chunk_index, COALESCE(title, ''), content, embedding, created_at
        FROM support_doc_chunks ORDER BY id`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	chunks := make([]DocChunk, 0)
	for rows.Next() {
		var (
			chunk DocChunk
			vec   pgvector.Vector
		)
		if err := rows.Scan(
			&chunk.ID,
			&chunk.DocID,
			&chunk.ChunkIndex,
			&chunk.Title,
			&chunk.Content,
			&vec,
			&chunk.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunk.Embedding = vec.Slice()
		chunks = append(chunks, chunk)
	}

	return chunks, rows.Err()
}

// ClearChunks removes every stored chunk.
func (s *ChunkStore) ClearChunks(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM support_doc_chunks"); err != nil {
		return fmt.Errorf("clear chunk index: %w", err)
	}
	return nil
}

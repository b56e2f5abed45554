package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema creates the support tables if they do not exist. The
// embedding dimension is fixed per deployment and baked into the chunk
// table's vector column.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("embedding dimension must be positive")
	}

	stmts := []string{
		"CREATE EXTENSION IF NOT EXISTS vector",
		`CREATE TABLE IF NOT EXISTS support_tickets (
			id BIGSERIAL PRIMARY KEY,
			ticket_number VARCHAR(32) UNIQUE NOT NULL,
			customer_name VARCHAR(255),
			message TEXT NOT NULL,
			status VARCHAR(64) NOT NULL DEFAULT 'Open',
			channel VARCHAR(64) NOT NULL DEFAULT 'api',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS agent_logs (
			id BIGSERIAL PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			session_id VARCHAR(128) NOT NULL,
			user_message TEXT NOT NULL,
			classifier VARCHAR(64),
			routed_agent VARCHAR(64),
			response TEXT,
			ticket_number VARCHAR(32),
			success BOOLEAN NOT NULL DEFAULT TRUE,
			error_message TEXT
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS support_doc_chunks (
			id BIGSERIAL PRIMARY KEY,
			doc_id VARCHAR(255) NOT NULL,
			chunk_index INT NOT NULL,
			title VARCHAR(255),
			content TEXT NOT NULL,
			embedding VECTOR(%d) NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(doc_id, chunk_index)
		)`, dimension),
		"CREATE INDEX IF NOT EXISTS idx_agent_logs_ts ON agent_logs(ts DESC)",
	}

	for _, stmt := range stmts {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("execute schema statement: %w", err)
		}
	}

	return nil
}

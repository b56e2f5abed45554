package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EventLog appends one record per handled message. Records are never
// mutated or deleted.
type EventLog struct {
	pool *pgxpool.Pool
}

func NewEventLog(pool *pgxpool.Pool) *EventLog {
	return &EventLog{pool: pool}
}

func (l *EventLog) Record(ctx context.Context, e LogEntry) error {
	const query = `
        INSERT INTO agent_logs (session_id, user_message, classifier, routed_agent, response, ticket_number, success, error_message)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	if _, err := l.pool.Exec(ctx, query,
		e.SessionID,
		e.UserMessage,
		e.Classifier,
		e.RoutedAgent,
		e.Response,
		e.TicketNumber,
		e.Success,
		e.ErrorMessage,
	); err != nil {
		return fmt.Errorf("insert agent log: %w", err)
	}

	return nil
}

// RecentLogs returns up to limit records, newest first.
func (l *EventLog) RecentLogs(ctx context.Context, limit int) ([]AgentLog, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
        SELECT id, ts, session_id, user_message,
               COALESCE(classifier, ''), COALESCE(routed_agent, ''), COALESCE(response, ''),
               COALESCE(ticket_number, ''), success, COALESCE(error_message, '')
        FROM agent_logs ORDER BY ts DESC LIMIT $1`

	rows, err := l.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list agent logs: %w", err)
	}
	defer rows.Close()

	logs := make([]AgentLog, 0)
	for rows.Next() {
		var entry AgentLog
		if err := rows.Scan(
			&entry.ID,
			&entry.Timestamp,
			&entry.SessionID,
			&entry.UserMessage,
			&entry.Classifier,
			&entry.RoutedAgent,
			&entry.Response,
			&entry.TicketNumber,
			&entry.Success,
			&entry.ErrorMessage,
		); err != nil {
			return nil, fmt.Errorf("scan agent log: %w", err)
		}
		logs = append(logs, entry)
	}

	return logs, rows.Err()
}

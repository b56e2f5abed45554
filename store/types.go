// Package store holds the Postgres-backed repositories for tickets,
// agent logs, and the document chunk index.
package store

import (
	"errors"
	"time"
)

// ErrTicketNotFound is returned when no ticket matches the requested
// number. A lookup miss is a defined response branch, not a failure.
var ErrTicketNotFound = errors.New("ticket not found")

// Ticket is a durable support-ticket record. The ticket number is
// unique and immutable once assigned.
type Ticket struct {
	ID           int64
	TicketNumber string
	CustomerName string
	Message      string
	Status       string
	Channel      string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewTicket carries the fields for ticket creation.
type NewTicket struct {
	TicketNumber string
	CustomerName string
	Message      string
	Status       string
	Channel      string
}

// AgentLog is one append-only record per orchestrated message.
type AgentLog struct {
	ID           int64
	Timestamp    time.Time
	SessionID    string
	UserMessage  string
	Classifier   string
	RoutedAgent  string
	Response     string
	TicketNumber string
	Success      bool
	ErrorMessage string
}

// LogEntry carries the fields recorded for a handled message.
type LogEntry struct {
	SessionID    string
	UserMessage  string
	Classifier   string
	RoutedAgent  string
	Response     string
	TicketNumber string
	Success      bool
	ErrorMessage string
}

// DocChunk is one embedded slice of a source document. Chunk indexes
// are contiguous from 0 within a doc and reflect source order.
type DocChunk struct {
	ID         int64
	DocID      string
	ChunkIndex int
	Title      string
	Content    string
	Embedding  []float32
	CreatedAt  time.Time
}

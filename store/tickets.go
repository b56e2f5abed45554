package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TicketStore persists support tickets.
type TicketStore struct {
	pool *pgxpool.Pool
}

func NewTicketStore(pool *pgxpool.Pool) *TicketStore {
	return &TicketStore{pool: pool}
}

// CreateTicket inserts a new ticket. A duplicate ticket number violates
// the unique constraint and surfaces as the driver's error; uniqueness
// is enforced by the store, not retried here.
func (s *TicketStore) CreateTicket(ctx context.Context, t NewTicket) (Ticket, error) {
	const query = `
        INSERT INTO support_tickets (ticket_number, customer_name, message, status, channel)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	ticket := Ticket{
		TicketNumber: t.TicketNumber,
		CustomerName: t.CustomerName,
		Message:      t.Message,
		Status:       t.Status,
		Channel:      t.Channel,
	}
	if ticket.Status == "" {
		ticket.Status = "Open"
	}

	if err := s.pool.QueryRow(ctx, query,
		ticket.TicketNumber,
		ticket.CustomerName,
		ticket.Message,
		ticket.Status,
		ticket.Channel,
	).Scan(&ticket.ID, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
		return Ticket{}, fmt.Errorf("insert ticket %s: %w", ticket.TicketNumber, err)
	}

	return ticket, nil
}

// TicketByNumber fetches a ticket by its unique number. Returns
// ErrTicketNotFound when absent.
func (s *TicketStore) TicketByNumber(ctx context.Context, number string) (Ticket, error) {
	const query = `
        SELECT id, ticket_number, COALESCE(customer_name, ''), message, status, channel, created_at, updated_at
        FROM support_tickets WHERE ticket_number = $1`

	var ticket Ticket
	if err := s.pool.QueryRow(ctx, query, number).Scan(
		&ticket.ID,
		&ticket.TicketNumber,
		&ticket.CustomerName,
		&ticket.Message,
		&ticket.Status,
		&ticket.Channel,
		&ticket.CreatedAt,
		&ticket.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Ticket{}, ErrTicketNotFound
		}
		return Ticket{}, fmt.Errorf("query ticket %s: %w", number, err)
	}

	return ticket, nil
}

// ListTickets returns up to limit tickets, newest first.
func (s *TicketStore) ListTickets(ctx context.Context, limit int) ([]Ticket, error) {
	if limit <= 0 {
		limit = 100
	}

	const query = `
        SELECT id, ticket_number, COALESCE(customer_name, ''), message, status, channel, created_at, updated_at
        FROM support_tickets ORDER BY created_at DESC LIMIT $1`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]Ticket, 0)
	for rows.Next() {
		var ticket Ticket
		if err := rows.Scan(
			&ticket.ID,
			&ticket.TicketNumber,
			&ticket.CustomerName,
			&ticket.Message,
			&ticket.Status,
			&ticket.Channel,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}

	return tickets, rows.Err()
}

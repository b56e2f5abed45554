package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/fabfab/support-agent/llm"
	"github.com/fabfab/support-agent/store"
)

const snippetLimit = 200

// TicketReader looks tickets up by number. A miss is reported as
// store.ErrTicketNotFound.
type TicketReader interface {
	TicketByNumber(ctx context.Context, number string) (store.Ticket, error)
}

// StatusAgent answers ticket-status queries.
type StatusAgent struct {
	llm     llm.Client
	tickets TicketReader
	logger  *zap.Logger
}

func NewStatusAgent(client llm.Client, tickets TicketReader, logger *zap.Logger) *StatusAgent {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StatusAgent{
		llm:     client,
		tickets: tickets,
		logger:  logger,
	}
}

// HandleQuery resolves a ticket-status question. The ticket number may
// come from the classifier; when empty it is re-extracted from the
// message. Unexpected store errors are returned; every capability
// failure resolves to a fixed sentence.
func (a *StatusAgent) HandleQuery(ctx context.Context, message, ticketNumber string) (string, error) {
	if ticketNumber == "" {
		ticketNumber = ExtractTicketNumber(message)
	}

	if ticketNumber == "" {
		return a.askForNumber(ctx, message), nil
	}

	ticket, err := a.tickets.TicketByNumber(ctx, ticketNumber)
	if err != nil {
		if errors.Is(err, store.ErrTicketNotFound) {
			return a.notFound(ctx, ticketNumber), nil
		}
		return "", fmt.Errorf("look up ticket %s: %w", ticketNumber, err)
	}

	return a.describeStatus(ctx, ticket), nil
}

func (a *StatusAgent) askForNumber(ctx context.Context, message string) string {
	system := `You are a banking customer support assistant.
The user is asking a question but has not provided a ticket number.
Politely ask them to provide their 6-digit ticket number.
Respond in one short, friendly sentence.`

	user := fmt.Sprintf("The customer is asking about their ticket, but no ticket number could be detected from the message:\n\n%q\n\nWrite a brief reply.", message)

	content, err := a.llm.Complete(ctx, system, user, 0.4)
	if err == nil {
		if content = strings.TrimSpace(content); content != "" {
			return content
		}
	} else {
		a.logger.Warn("ticket-number request completion failed", zap.Error(err))
	}

	return "Could you please provide your 6-digit ticket number so I can check its status?"
}

func (a *StatusAgent) notFound(ctx context.Context, ticketNumber string) string {
	system := `You are a helpful banking customer support assistant.
You could not find the ticket in the system.
Explain this to the customer politely, ask them to double-check the number, and offer alternative help.
Respond in 1-2 sentences, friendly and professional.
Include the ticket number as '#<ticket_number>'.`

	user := fmt.Sprintf("The user asked about ticket number %s, but it does not exist in our records.\n\nWrite a brief response for the customer.", ticketNumber)

	content, err := a.llm.Complete(ctx, system, user, 0.4)
	if err == nil {
		if content = strings.TrimSpace(content); content != "" {
			return content
		}
	} else {
		a.logger.Warn("ticket not-found completion failed", zap.Error(err))
	}

	return fmt.Sprintf("I'm unable to find ticket #%s in our records. Please double-check the number or contact support.", ticketNumber)
}

func (a *StatusAgent) describeStatus(ctx context.Context, ticket store.Ticket) string {
	statusText := ticket.Status
	if statusText == "" {
		statusText = "Open"
	}

	system := `You are a professional but friendly banking customer support agent.
You are given:
- a ticket number
- current ticket status
- optionally the customer's name
- optionally a short summary of the issue

Your job is to describe the ticket status clearly and reassure the customer.
Guidance:
- If status is 'Open' or an equivalent, let them know it's been logged and will be reviewed.
- If status is 'In Progress' / 'Pending', explain that the team is actively working on it.
- If status is 'Resolved' / 'Closed', inform them it is marked resolved and invite them to reach out again if needed.
Respond in 1-3 short sentences.
Always mention the ticket as '#<ticket_number>'.`

	parts := []string{
		"Ticket number: " + ticket.TicketNumber,
		"Ticket status: " + statusText,
		"Status category (for your reasoning): " + NormalizeStatus(statusText),
	}
	if ticket.CustomerName != "" {
		parts = append(parts, "Customer name: "+ticket.CustomerName)
	}
	if snippet := truncate(ticket.Message, snippetLimit); snippet != "" {
		parts = append(parts, fmt.Sprintf("Original issue summary/snippet: %q", snippet))
	}

	content, err := a.llm.Complete(ctx, system, strings.Join(parts, "\n"), 0.4)
	if err == nil {
		if content = strings.TrimSpace(content); content != "" {
			if !strings.Contains(content, ticket.TicketNumber) {
				content += fmt.Sprintf(" (This refers to ticket #%s.)", ticket.TicketNumber)
			}
			return content
		}
	} else {
		a.logger.Warn("ticket status completion failed", zap.Error(err))
	}

	return fmt.Sprintf("Your ticket #%s is currently marked as: %s.", ticket.TicketNumber, statusText)
}

// NormalizeStatus folds a raw status string into one of open,
// in_progress, or resolved.
func NormalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "resolved", "closed":
		return "resolved"
	case "in progress", "pending":
		return "in_progress"
	default:
		return "open"
	}
}

// truncate keeps at most limit characters, never splitting a rune.
func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit]) + "..."
}

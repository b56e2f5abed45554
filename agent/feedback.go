package agent

import (
	"context"
	"fmt"
	"math/rand"
	"strings"

	"go.uber.org/zap"

	"github.com/fabfab/support-agent/llm"
	"github.com/fabfab/support-agent/store"
)

// TicketCreator persists new tickets. The store enforces ticket-number
// uniqueness.
type TicketCreator interface {
	CreateTicket(ctx context.Context, t store.NewTicket) (store.Ticket, error)
}

// FeedbackAgent handles the positive and negative feedback flows.
type FeedbackAgent struct {
	llm     llm.Client
	tickets TicketCreator
	channel string
	logger  *zap.Logger
}

func NewFeedbackAgent(client llm.Client, tickets TicketCreator, channel string, logger *zap.Logger) *FeedbackAgent {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FeedbackAgent{
		llm:     client,
		tickets: tickets,
		channel: channel,
		logger:  logger,
	}
}

const positiveSystemPrompt = `You are a polite and concise banking customer support agent.
Your goal is to acknowledge and thank the customer for their positive feedback.
Respond in ONE or TWO sentences, friendly and professional.
If a customer name is provided, address them by name.`

// HandlePositive builds a short acknowledgment. It never fails; a
// completion failure falls back to a fixed template.
func (a *FeedbackAgent) HandlePositive(ctx context.Context, message, customerName string) string {
	user := fmt.Sprintf("%s\n\nThe customer left this positive feedback:\n%q\n\nWrite a brief response.",
		namePart(customerName), message)

	content, err := a.llm.Complete(ctx, positiveSystemPrompt, user, 0.3)
	if err == nil {
		if content = strings.TrimSpace(content); content != "" {
			return content
		}
	} else {
		a.logger.Warn("positive feedback completion failed, using template", zap.Error(err))
	}

	if customerName != "" {
		return fmt.Sprintf("Thank you for your kind words, %s! We're delighted to assist you.", customerName)
	}
	return "Thank you for your kind words! We're delighted to assist you."
}

const negativeSystemPrompt = `You are a banking customer support agent.
The customer is unhappy or reporting an issue.
You must respond with empathy, apologize for the inconvenience, and reassure them that their issue is being investigated.
Include the ticket number in the reply as '#<ticket_number>'.
Respond in about 2-3 sentences, professional but warm.`

// HandleNegative creates an Open ticket, then produces an empathetic
// response that always contains the ticket number. The ticket is
// persisted before any response generation, so it exists even when
// generation fails. A store error (including a ticket-number collision)
// is returned to the caller.
func (a *FeedbackAgent) HandleNegative(ctx context.Context, message, customerName string) (string, string, error) {
	ticketNumber := generateTicketNumber()

	if _, err := a.tickets.CreateTicket(ctx, store.NewTicket{
		TicketNumber: ticketNumber,
		CustomerName: customerName,
		Message:      message,
		Status:       "Open",
		Channel:      a.channel,
	}); err != nil {
		return "", "", fmt.Errorf("create ticket: %w", err)
	}

	user := fmt.Sprintf("%s\nNew ticket number: %s\n\nCustomer message:\n%q\n\nWrite a brief, empathetic response that mentions the ticket number.",
		namePart(customerName), ticketNumber, message)

	content, err := a.llm.Complete(ctx, negativeSystemPrompt, user, 0.4)
	if err == nil {
		if content = strings.TrimSpace(content); content != "" {
			if !strings.Contains(content, ticketNumber) {
				content += fmt.Sprintf(" Your ticket #%s has been created.", ticketNumber)
			}
			return content, ticketNumber, nil
		}
	} else {
		a.logger.Warn("negative feedback completion failed, using template", zap.Error(err))
	}

	if customerName != "" {
		return fmt.Sprintf("We apologize for the inconvenience, %s. A new ticket #%s has been generated, and our team will follow up shortly.",
			customerName, ticketNumber), ticketNumber, nil
	}
	return fmt.Sprintf("We apologize for the inconvenience. A new ticket #%s has been generated, and our team will follow up shortly.",
		ticketNumber), ticketNumber, nil
}

// generateTicketNumber draws a uniformly random zero-padded 6-digit
// number. Uniqueness is enforced only by the store's constraint; a
// collision surfaces as a store error rather than being retried.
func generateTicketNumber() string {
	return fmt.Sprintf("%06d", rand.Intn(1000000))
}

func namePart(customerName string) string {
	if customerName == "" {
		return "Customer name: (not provided)"
	}
	return "Customer name: " + customerName
}

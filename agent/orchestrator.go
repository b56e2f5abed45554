// Package agent implements the message-routing state machine and its
// handling flows for positive feedback, negative feedback, ticket
// status, and knowledge queries.
package agent

import (
	"context"

	"go.uber.org/zap"

	"github.com/fabfab/support-agent/store"
)

// Flow identifiers recorded in the event log and returned to callers.
const (
	AgentFeedbackPositive = "feedback_handler_positive"
	AgentFeedbackNegative = "feedback_handler_negative"
	AgentQuery            = "query_handler"
	AgentKnowledge        = "knowledge_handler"
)

const failureResponse = "We're experiencing issues right now. Please try again later or contact support."

// Result is the structured outcome of one handled message. Callers
// always receive a Result; errors never escape the orchestrator.
type Result struct {
	Response     string `json:"response"`
	Category     string `json:"category,omitempty"`
	Sentiment    string `json:"sentiment,omitempty"`
	TicketNumber string `json:"ticket_number,omitempty"`
	RoutedAgent  string `json:"routed_agent,omitempty"`
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// MessageClassifier decides the category for a message. Total: always
// returns a valid classification.
type MessageClassifier interface {
	Classify(ctx context.Context, message string) Classification
}

// FeedbackHandler serves the positive and negative feedback flows.
type FeedbackHandler interface {
	HandlePositive(ctx context.Context, message, customerName string) string
	HandleNegative(ctx context.Context, message, customerName string) (response, ticketNumber string, err error)
}

// StatusHandler serves ticket-status queries.
type StatusHandler interface {
	HandleQuery(ctx context.Context, message, ticketNumber string) (string, error)
}

// KnowledgeHandler serves knowledge-base queries.
type KnowledgeHandler interface {
	HandleQuery(ctx context.Context, message string) (string, error)
}

// EventRecorder appends the outcome of a handled message.
type EventRecorder interface {
	Record(ctx context.Context, e store.LogEntry) error
}

// Orchestrator classifies each message, routes it to one flow, and
// records the outcome. It holds no state across calls.
type Orchestrator struct {
	classifier MessageClassifier
	feedback   FeedbackHandler
	status     StatusHandler
	knowledge  KnowledgeHandler
	events     EventRecorder
	logger     *zap.Logger
}

func NewOrchestrator(
	classifier MessageClassifier,
	feedback FeedbackHandler,
	status StatusHandler,
	knowledge KnowledgeHandler,
	events EventRecorder,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Orchestrator{
		classifier: classifier,
		feedback:   feedback,
		status:     status,
		knowledge:  knowledge,
		events:     events,
		logger:     logger,
	}
}

// HandleMessage runs one message through classification, routing, flow
// execution, and logging. Any flow error is captured here: the caller
// gets a generic apology with Success=false, and the error detail is
// retained only in the event log.
func (o *Orchestrator) HandleMessage(ctx context.Context, message, sessionID, customerName string) Result {
	classification := o.classifier.Classify(ctx, message)

	result := Result{
		Category:     classification.Category,
		Sentiment:    classification.Sentiment,
		TicketNumber: classification.TicketNumber,
		Success:      true,
	}

	var flowErr error

	switch classification.Category {
	case CategoryPositiveFeedback:
		result.RoutedAgent = AgentFeedbackPositive
		result.Response = o.feedback.HandlePositive(ctx, message, customerName)

	case CategoryNegativeFeedback:
		result.RoutedAgent = AgentFeedbackNegative
		result.Response, result.TicketNumber, flowErr = o.feedback.HandleNegative(ctx, message, customerName)

	default:
		// Ticket-number presence always wins over knowledge routing.
		if classification.TicketNumber != "" {
			result.RoutedAgent = AgentQuery
			result.Response, flowErr = o.status.HandleQuery(ctx, message, classification.TicketNumber)
		} else {
			result.RoutedAgent = AgentKnowledge
			result.Response, flowErr = o.knowledge.HandleQuery(ctx, message)
		}
	}

	if flowErr != nil {
		o.logger.Error("flow execution failed",
			zap.String("routed_agent", result.RoutedAgent),
			zap.Error(flowErr))
		result.Success = false
		result.ErrorMessage = flowErr.Error()
		result.Response = failureResponse
	}

	entry := store.LogEntry{
		SessionID:    sessionID,
		UserMessage:  message,
		Classifier:   classification.Category,
		RoutedAgent:  result.RoutedAgent,
		Response:     result.Response,
		TicketNumber: result.TicketNumber,
		Success:      result.Success,
		ErrorMessage: result.ErrorMessage,
	}
	if err := o.events.Record(ctx, entry); err != nil {
		// A log write failure never fails the caller.
		o.logger.Error("record agent log failed", zap.Error(err))
	}

	return result
}

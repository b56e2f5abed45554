package agent_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/support-agent/agent"
	"github.com/fabfab/support-agent/retrieval"
	"github.com/fabfab/support-agent/store"
)

type orchestratorFixture struct {
	orchestrator *agent.Orchestrator
	tickets      *memTicketStore
	events       *memEventLog
	llm          *stubLLM
	retriever    *stubRetriever
}

func newFixture(client *stubLLM, retriever *stubRetriever) *orchestratorFixture {
	tickets := newMemTicketStore()
	events := &memEventLog{}
	if retriever == nil {
		retriever = &stubRetriever{}
	}

	orchestrator := agent.NewOrchestrator(
		agent.NewClassifier(client, nil),
		agent.NewFeedbackAgent(client, tickets, "api", nil),
		agent.NewStatusAgent(client, tickets, nil),
		agent.NewKnowledgeAgent(client, retriever, 4, nil),
		events,
		nil,
	)

	return &orchestratorFixture{
		orchestrator: orchestrator,
		tickets:      tickets,
		events:       events,
		llm:          client,
		retriever:    retriever,
	}
}

func TestHandleMessagePositiveFeedback(t *testing.T) {
	f := newFixture(&stubLLM{err: errors.New("down")}, nil)

	result := f.orchestrator.HandleMessage(context.Background(), "Thank you so much for your help!", "s1", "")

	assert.Equal(t, agent.CategoryPositiveFeedback, result.Category)
	assert.Equal(t, agent.AgentFeedbackPositive, result.RoutedAgent)
	assert.NotEmpty(t, result.Response)
	assert.True(t, result.Success)
	assert.Empty(t, result.TicketNumber)
	assert.Equal(t, 0, f.tickets.count())
}

func TestHandleMessageNegativeFeedbackCreatesTicket(t *testing.T) {
	f := newFixture(&stubLLM{err: errors.New("down")}, nil)

	result := f.orchestrator.HandleMessage(context.Background(), "This is terrible, my card was blocked for no reason", "s1", "Dana")

	require.Equal(t, agent.CategoryNegativeFeedback, result.Category)
	assert.Equal(t, agent.AgentFeedbackNegative, result.RoutedAgent)
	require.True(t, sixDigits.MatchString(result.TicketNumber))
	assert.Contains(t, result.Response, result.TicketNumber)

	ticket, err := f.tickets.TicketByNumber(context.Background(), result.TicketNumber)
	require.NoError(t, err)
	assert.Equal(t, "Open", ticket.Status)
}

func TestHandleMessageTicketStatusQuery(t *testing.T) {
	f := newFixture(&stubLLM{err: errors.New("down")}, nil)
	_, err := f.tickets.CreateTicket(context.Background(), store.NewTicket{
		TicketNumber: "650932",
		Message:      "card blocked",
		Status:       "Resolved",
	})
	require.NoError(t, err)

	result := f.orchestrator.HandleMessage(context.Background(), "What's the status of ticket 650932?", "s1", "")

	assert.Equal(t, agent.CategoryQuery, result.Category)
	assert.Equal(t, agent.AgentQuery, result.RoutedAgent)
	assert.Equal(t, "650932", result.TicketNumber)
	assert.Contains(t, result.Response, "#650932")
	assert.Contains(t, result.Response, "Resolved")
	assert.True(t, result.Success)
}

func TestHandleMessageKnowledgeQuery(t *testing.T) {
	// The completion returns plain text: the classifier falls back to
	// keywords, while the knowledge flow uses the text as its answer.
	client := &stubLLM{response: "Go to Settings, then Security, then Reset Password."}
	retriever := &stubRetriever{results: []retrieval.Result{
		{Score: 0.95, Title: "password_reset", Content: "Reset via Settings > Security."},
	}}
	f := newFixture(client, retriever)

	result := f.orchestrator.HandleMessage(context.Background(), "How do I reset my password?", "s1", "")

	assert.Equal(t, agent.CategoryQuery, result.Category)
	assert.Equal(t, agent.AgentKnowledge, result.RoutedAgent)
	assert.Equal(t, "Go to Settings, then Security, then Reset Password.", result.Response)
	assert.True(t, result.Success)
}

func TestHandleMessageTicketNumberWinsOverKnowledge(t *testing.T) {
	f := newFixture(&stubLLM{err: errors.New("down")}, &stubRetriever{results: []retrieval.Result{
		{Score: 0.9, Title: "doc", Content: "content"},
	}})

	result := f.orchestrator.HandleMessage(context.Background(), "How do I reset my password? See ticket #123456", "s1", "")

	assert.Equal(t, agent.AgentQuery, result.RoutedAgent)
	assert.Equal(t, 0, f.retriever.calls)
}

func TestHandleMessageFlowErrorProducesApology(t *testing.T) {
	f := newFixture(&stubLLM{err: errors.New("down")}, nil)
	f.tickets.createErr = errors.New("duplicate key value violates unique constraint")

	result := f.orchestrator.HandleMessage(context.Background(), "This is a terrible problem", "s1", "")

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.ErrorMessage)
	assert.Contains(t, result.Response, "experiencing issues")

	entry, ok := f.events.last()
	require.True(t, ok)
	assert.False(t, entry.Success)
	assert.Contains(t, entry.ErrorMessage, "unique constraint")
}

func TestHandleMessageAlwaysLogs(t *testing.T) {
	f := newFixture(&stubLLM{err: errors.New("down")}, nil)

	f.orchestrator.HandleMessage(context.Background(), "Thank you!", "session-42", "")

	entry, ok := f.events.last()
	require.True(t, ok)
	assert.Equal(t, "session-42", entry.SessionID)
	assert.Equal(t, "Thank you!", entry.UserMessage)
	assert.Equal(t, agent.CategoryPositiveFeedback, entry.Classifier)
	assert.Equal(t, agent.AgentFeedbackPositive, entry.RoutedAgent)
	assert.NotEmpty(t, entry.Response)
	assert.True(t, entry.Success)
}

func TestHandleMessageLogFailureDoesNotFailCaller(t *testing.T) {
	f := newFixture(&stubLLM{err: errors.New("down")}, nil)
	f.events.err = errors.New("log table unavailable")

	result := f.orchestrator.HandleMessage(context.Background(), "Thank you!", "s1", "")
	assert.True(t, result.Success)
	assert.NotEmpty(t, result.Response)
}

func TestEvaluateCountsCorrectCategories(t *testing.T) {
	f := newFixture(&stubLLM{err: errors.New("down")}, nil)

	report := f.orchestrator.Evaluate(context.Background(), "eval-session", []agent.EvalCase{
		{Input: "Thank you for helping me!", ExpectedCategory: agent.CategoryPositiveFeedback},
		{Input: "This is a terrible problem", ExpectedCategory: agent.CategoryNegativeFeedback},
		{Input: "How do I reset my password?", ExpectedCategory: agent.CategoryQuery},
		{Input: "Thank you!", ExpectedCategory: agent.CategoryNegativeFeedback},
	})

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 3, report.Correct)
	assert.InDelta(t, 0.75, report.Accuracy(), 1e-9)
}

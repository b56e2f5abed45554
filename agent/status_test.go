package agent_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabfab/support-agent/agent"
	"github.com/fabfab/support-agent/store"
)

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]string{
		"Resolved":    "resolved",
		"CLOSED":      "resolved",
		"In Progress": "in_progress",
		"pending":     "in_progress",
		"Open":        "open",
		"":            "open",
		"weird":       "open",
	}

	for raw, want := range cases {
		assert.Equal(t, want, agent.NormalizeStatus(raw), "status %q", raw)
	}
}

func TestHandleQueryAsksForTicketNumber(t *testing.T) {
	sa := agent.NewStatusAgent(&stubLLM{err: errors.New("down")}, newMemTicketStore(), nil)

	response, err := sa.HandleQuery(context.Background(), "where is my ticket?", "")
	require.NoError(t, err)
	assert.Contains(t, response, "6-digit ticket number")
}

func TestHandleQueryNotFound(t *testing.T) {
	sa := agent.NewStatusAgent(&stubLLM{err: errors.New("down")}, newMemTicketStore(), nil)

	response, err := sa.HandleQuery(context.Background(), "status of ticket 650932?", "650932")
	require.NoError(t, err)
	assert.Contains(t, response, "#650932")
}

func TestHandleQueryFallbackStatesRawStatus(t *testing.T) {
	tickets := newMemTicketStore()
	_, err := tickets.CreateTicket(context.Background(), store.NewTicket{
		TicketNumber: "650932",
		Message:      "card blocked",
		Status:       "Resolved",
		Channel:      "api",
	})
	require.NoError(t, err)

	sa := agent.NewStatusAgent(&stubLLM{err: errors.New("down")}, tickets, nil)

	response, err := sa.HandleQuery(context.Background(), "status of ticket 650932?", "650932")
	require.NoError(t, err)
	assert.Contains(t, response, "#650932")
	assert.Contains(t, response, "Resolved")
}

func TestHandleQueryReExtractsNumberFromMessage(t *testing.T) {
	tickets := newMemTicketStore()
	_, err := tickets.CreateTicket(context.Background(), store.NewTicket{
		TicketNumber: "441200",
		Message:      "login broken",
		Status:       "Open",
	})
	require.NoError(t, err)

	sa := agent.NewStatusAgent(&stubLLM{err: errors.New("down")}, tickets, nil)

	response, err := sa.HandleQuery(context.Background(), "any update on #441200?", "")
	require.NoError(t, err)
	assert.Contains(t, response, "#441200")
}

func TestHandleQueryAppendsTicketReference(t *testing.T) {
	tickets := newMemTicketStore()
	_, err := tickets.CreateTicket(context.Background(), store.NewTicket{
		TicketNumber: "650932",
		Message:      "card blocked",
		Status:       "Open",
	})
	require.NoError(t, err)

	// The completion mentions the status but not the ticket number.
	sa := agent.NewStatusAgent(&stubLLM{response: "Your issue has been logged and will be reviewed."}, tickets, nil)

	response, err := sa.HandleQuery(context.Background(), "status of ticket 650932?", "650932")
	require.NoError(t, err)
	assert.Contains(t, response, "(This refers to ticket #650932.)")
}

func TestHandleQueryTruncatesSnippet(t *testing.T) {
	tickets := newMemTicketStore()
	longMessage := strings.Repeat("x", 300)
	_, err := tickets.CreateTicket(context.Background(), store.NewTicket{
		TicketNumber: "650932",
		Message:      longMessage,
		Status:       "Open",
	})
	require.NoError(t, err)

	client := &stubLLM{response: "Ticket #650932 is open."}
	sa := agent.NewStatusAgent(client, tickets, nil)

	_, err = sa.HandleQuery(context.Background(), "status of ticket 650932?", "650932")
	require.NoError(t, err)

	assert.Contains(t, client.lastUser, strings.Repeat("x", 200)+"...")
	assert.NotContains(t, client.lastUser, strings.Repeat("x", 201))
}

func TestHandleQuerySnippetKeepsRunesIntact(t *testing.T) {
	tickets := newMemTicketStore()
	longMessage := strings.Repeat("支", 250)
	_, err := tickets.CreateTicket(context.Background(), store.NewTicket{
		TicketNumber: "650932",
		Message:      longMessage,
		Status:       "Open",
	})
	require.NoError(t, err)

	client := &stubLLM{response: "Ticket #650932 is open."}
	sa := agent.NewStatusAgent(client, tickets, nil)

	_, err = sa.HandleQuery(context.Background(), "status of ticket 650932?", "650932")
	require.NoError(t, err)

	assert.True(t, utf8.ValidString(client.lastUser), "snippet must not split a rune")
	assert.Contains(t, client.lastUser, strings.Repeat("支", 200)+"...")
	assert.NotContains(t, client.lastUser, strings.Repeat("支", 201))
}

func TestHandleQueryIsIdempotentForReads(t *testing.T) {
	tickets := newMemTicketStore()
	_, err := tickets.CreateTicket(context.Background(), store.NewTicket{
		TicketNumber: "650932",
		Message:      "card blocked",
		Status:       "In Progress",
	})
	require.NoError(t, err)

	sa := agent.NewStatusAgent(&stubLLM{err: errors.New("down")}, tickets, nil)

	first, err := sa.HandleQuery(context.Background(), "status of ticket 650932?", "650932")
	require.NoError(t, err)
	second, err := sa.HandleQuery(context.Background(), "status of ticket 650932?", "650932")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

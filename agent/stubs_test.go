package agent_test

import (
	"context"
	"sync"

	"github.com/fabfab/support-agent/retrieval"
	"github.com/fabfab/support-agent/store"
)

type stubLLM struct {
	mu         sync.Mutex
	response   string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (s *stubLLM) Complete(ctx context.Context, system, user string, temperature float32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.lastSystem = system
	s.lastUser = user
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

type memTicketStore struct {
	mu        sync.Mutex
	tickets   map[string]store.Ticket
	createErr error
	nextID    int64
}

func newMemTicketStore() *memTicketStore {
	return &memTicketStore{tickets: map[string]store.Ticket{}}
}

func (m *memTicketStore) CreateTicket(ctx context.Context, t store.NewTicket) (store.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return store.Ticket{}, m.createErr
	}
	m.nextID++
	ticket := store.Ticket{
		ID:           m.nextID,
		TicketNumber: t.TicketNumber,
		CustomerName: t.CustomerName,
		Message:      t.Message,
		Status:       t.Status,
		Channel:      t.Channel,
	}
	m.tickets[t.TicketNumber] = ticket
	return ticket, nil
}

func (m *memTicketStore) TicketByNumber(ctx context.Context, number string) (store.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ticket, ok := m.tickets[number]
	if !ok {
		return store.Ticket{}, store.ErrTicketNotFound
	}
	return ticket, nil
}

func (m *memTicketStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tickets)
}

type memEventLog struct {
	mu      sync.Mutex
	entries []store.LogEntry
	err     error
}

func (m *memEventLog) Record(ctx context.Context, e store.LogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, e)
	return nil
}

func (m *memEventLog) last() (store.LogEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) == 0 {
		return store.LogEntry{}, false
	}
	return m.entries[len(m.entries)-1], true
}

type stubRetriever struct {
	results []retrieval.Result
	err     error
	calls   int
}

func (s *stubRetriever) Retrieve(ctx context.Context, query string, topK int) ([]retrieval.Result, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if topK < len(s.results) {
		return s.results[:topK], nil
	}
	return s.results, nil
}

// Package api exposes the support agent over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fabfab/support-agent/agent"
	"github.com/fabfab/support-agent/store"
)

// MessageHandler drives one message through the orchestrator.
type MessageHandler interface {
	HandleMessage(ctx context.Context, message, sessionID, customerName string) agent.Result
}

// Ingestor rebuilds the retrieval index from a document tree.
type Ingestor interface {
	IngestDirectory(ctx context.Context, dir string) error
}

// TicketLister lists stored tickets.
type TicketLister interface {
	ListTickets(ctx context.Context, limit int) ([]store.Ticket, error)
}

// LogLister lists recent agent logs.
type LogLister interface {
	RecentLogs(ctx context.Context, limit int) ([]store.AgentLog, error)
}

// IndexClearer removes every chunk from the retrieval index.
type IndexClearer interface {
	ClearChunks(ctx context.Context) error
}

type Server struct {
	orchestrator MessageHandler
	ingestor     Ingestor
	tickets      TicketLister
	logs         LogLister
	index        IndexClearer
	knowledgeDir string
	logger       *zap.Logger
	handler      http.Handler
}

func New(orchestrator MessageHandler, ingestor Ingestor, tickets TicketLister, logs LogLister, index IndexClearer, knowledgeDir string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Server{
		orchestrator: orchestrator,
		ingestor:     ingestor,
		tickets:      tickets,
		logs:         logs,
		index:        index,
		knowledgeDir: knowledgeDir,
		logger:       logger,
	}
	s.handler = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/message", s.handleMessage)
	mux.HandleFunc("/v1/ingest", s.handleIngest)
	mux.HandleFunc("/v1/clear", s.handleClear)
	mux.HandleFunc("/v1/tickets", s.handleTickets)
	mux.HandleFunc("/v1/logs", s.handleLogs)
	return mux
}

type messageRequest struct {
	Message      string `json:"message"`
	SessionID    string `json:"session_id"`
	CustomerName string `json:"customer_name"`
}

type ingestRequest struct {
	Dir string `json:"dir"`
}

type clearRequest struct {
	Confirm bool `json:"confirm"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type ticketResponse struct {
	TicketNumber string    `json:"ticket_number"`
	CustomerName string    `json:"customer_name,omitempty"`
	Message      string    `json:"message"`
	Status       string    `json:"status"`
	Channel      string    `json:"channel"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type logResponse struct {
	Timestamp    time.Time `json:"timestamp"`
	SessionID    string    `json:"session_id"`
	UserMessage  string    `json:"user_message"`
	Classifier   string    `json:"classifier,omitempty"`
	RoutedAgent  string    `json:"routed_agent,omitempty"`
	Response     string    `json:"response,omitempty"`
	TicketNumber string    `json:"ticket_number,omitempty"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	result := s.orchestrator.HandleMessage(r.Context(), req.Message, req.SessionID, req.CustomerName)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	dir := req.Dir
	if dir == "" {
		dir = s.knowledgeDir
	}

	if err := s.ingestor.IngestDirectory(r.Context(), dir); err != nil {
		s.logger.Error("ingestion failed", zap.String("dir", dir), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "ingestion failed")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "ingested"})
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req clearRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Confirm {
		writeError(w, http.StatusBadRequest, "confirm must be true to clear the index")
		return
	}

	if err := s.index.ClearChunks(r.Context()); err != nil {
		s.logger.Error("clear index failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "clear failed")
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{Status: "cleared"})
}

func (s *Server) handleTickets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	tickets, err := s.tickets.ListTickets(r.Context(), queryLimit(r, 100))
	if err != nil {
		s.logger.Error("list tickets failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list tickets failed")
		return
	}

	out := make([]ticketResponse, len(tickets))
	for i, t := range tickets {
		out[i] = ticketResponse{
			TicketNumber: t.TicketNumber,
			CustomerName: t.CustomerName,
			Message:      t.Message,
			Status:       t.Status,
			Channel:      t.Channel,
			CreatedAt:    t.CreatedAt,
			UpdatedAt:    t.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	logs, err := s.logs.RecentLogs(r.Context(), queryLimit(r, 50))
	if err != nil {
		s.logger.Error("list logs failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list logs failed")
		return
	}

	out := make([]logResponse, len(logs))
	for i, entry := range logs {
		out[i] = logResponse{
			Timestamp:    entry.Timestamp,
			SessionID:    entry.SessionID,
			UserMessage:  entry.UserMessage,
			Classifier:   entry.Classifier,
			RoutedAgent:  entry.RoutedAgent,
			Response:     entry.Response,
			TicketNumber: entry.TicketNumber,
			Success:      entry.Success,
			ErrorMessage: entry.ErrorMessage,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return fallback
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

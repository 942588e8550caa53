// Package api implements the HTTP front end for the agent: query
// submission, tool listing, and health endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/tradewind-ai/tradewind/internal/agent"
	"github.com/tradewind-ai/tradewind/internal/buildinfo"
	"github.com/tradewind-ai/tradewind/internal/conversation"
	"github.com/tradewind-ai/tradewind/internal/llm"
)

// QueryProcessor runs one agent query and exposes the conversation.
type QueryProcessor interface {
	ProcessQuery(ctx context.Context, query string) (string, error)
	History() []conversation.Message
}

// ToolLister exposes the tool descriptors discovered at startup.
type ToolLister interface {
	Tools() []llm.Tool
}

// writeJSON encodes v as JSON to w, logging any errors at debug level.
// Errors here typically mean the client disconnected mid-response.
func writeJSON(w http.ResponseWriter, v any, logger *slog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Debug("failed to write JSON response", "error", err)
	}
}

// Server is the HTTP API server.
type Server struct {
	address   string
	port      int
	processor QueryProcessor
	tools     ToolLister
	logger    *slog.Logger
	server    *http.Server
}

// NewServer creates the API server.
func NewServer(address string, port int, processor QueryProcessor, tools ToolLister, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		address:   address,
		port:      port,
		processor: processor,
		tools:     tools,
		logger:    logger.With("component", "api"),
	}
}

// Handler builds the route table. Exposed separately so tests can
// drive it without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /query", s.handleQuery)
	mux.HandleFunc("GET /tools", s.handleTools)
	mux.HandleFunc("GET /conversation", s.handleConversation)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /version", s.handleVersion)

	return s.withCORS(s.withLogging(mux))
}

// Start begins serving HTTP requests and blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:        fmt.Sprintf("%s:%d", s.address, s.port),
		Handler:     s.Handler(),
		ReadTimeout: 30 * time.Second,
		// Queries can take minutes when the model chains many tools.
		WriteTimeout: 5 * time.Minute,
	}

	addr := s.address
	if addr == "" {
		addr = "0.0.0.0"
	}
	s.logger.Info("starting API server", "address", addr, "port", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug("request handled",
			"method", r.Method,
			"path", r.URL.Path,
			"duration", time.Since(start),
		)
	})
}

// withCORS allows browser front ends from any origin, matching how
// the service is deployed behind a separate web UI.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// errorResponse writes a JSON error body with the given status.
func (s *Server) errorResponse(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	writeJSON(w, map[string]string{"detail": message}, s.logger)
}

type queryRequest struct {
	Query string `json:"query"`
}

// displayMessage is one conversation turn in display projection.
type displayMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Query == "" {
		s.errorResponse(w, http.StatusBadRequest, "query is required")
		return
	}

	s.logger.Info("query received", "query_len", len(req.Query))

	answer, err := s.processor.ProcessQuery(r.Context(), req.Query)
	if err != nil {
		s.logger.Error("query failed", "error", err)

		status := http.StatusInternalServerError
		var connErr *agent.ConnectionError
		if errors.As(err, &connErr) {
			status = http.StatusBadGateway
		}
		s.errorResponse(w, status, err.Error())
		return
	}

	history := s.processor.History()
	messages := make([]displayMessage, 0, len(history))
	for _, m := range history {
		messages = append(messages, displayMessage{
			Role:    m.Role,
			Content: conversation.DisplayText(m),
		})
	}

	writeJSON(w, map[string]any{
		"answer":   answer,
		"messages": messages,
	}, s.logger)
}

func (s *Server) handleTools(w http.ResponseWriter, r *http.Request) {
	tools := s.tools.Tools()
	out := make([]map[string]any, 0, len(tools))
	for _, t := range tools {
		out = append(out, map[string]any{
			"name":         t.Name,
			"description":  t.Description,
			"input_schema": t.InputSchema,
		})
	}
	writeJSON(w, map[string]any{"tools": out}, s.logger)
}

func (s *Server) handleConversation(w http.ResponseWriter, r *http.Request) {
	history := s.processor.History()
	messages := make([]map[string]any, 0, len(history))
	for _, m := range history {
		messages = append(messages, conversation.ToPlain(m))
	}
	writeJSON(w, map[string]any{"messages": messages}, s.logger)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status": "ok",
		"uptime": buildinfo.Uptime().String(),
	}, s.logger)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, buildinfo.Info(), s.logger)
}

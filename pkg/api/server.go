// Package api exposes the session orchestrator over HTTP: JSON commands for
// the request/response operations and a WebSocket push channel for status
// events.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HarxSan/Mini-Manus/pkg/bus"
	"github.com/HarxSan/Mini-Manus/pkg/logging"
	"github.com/HarxSan/Mini-Manus/pkg/orchestrator"
	"github.com/HarxSan/Mini-Manus/pkg/session"
)

// Server is the orchestration API server.
type Server struct {
	orch       *orchestrator.Orchestrator
	eventBus   bus.EventBus
	log        *logging.Logger
	httpServer *http.Server
}

// ServerConfig configures the API server.
type ServerConfig struct {
	// Address to listen on (default: :8000)
	Address string

	// Orchestrator handles every session operation.
	Orchestrator *orchestrator.Orchestrator

	// EventBus feeds the push channel (optional; without it subscribers
	// are turned away and callers poll).
	EventBus bus.EventBus

	// Logger is the structured event log (optional).
	Logger *logging.Logger
}

// NewServer creates a new API server.
func NewServer(cfg ServerConfig) *Server {
	if cfg.Address == "" {
		cfg.Address = ":8000"
	}

	s := &Server{
		orch:     cfg.Orchestrator,
		eventBus: cfg.EventBus,
		log:      cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.withLogging)
	r.Use(withCORS)

	r.Get("/healthz", s.handleHealthz)
	r.Get("/readyz", s.handleReadyz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/sessions", func(r chi.Router) {
		r.Post("/", s.handleInitialize)
		r.Post("/{sessionID}/run", s.handleRun)
		r.Get("/{sessionID}/status", s.handleStatus)
		r.Post("/{sessionID}/input", s.handleProvideInput)
		r.Delete("/{sessionID}", s.handleClose)
		r.Get("/{sessionID}/events", s.handleEvents)
	})

	s.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // Push connections are long-lived
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the HTTP handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the API server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if s.orch == nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "reason": "orchestrator not initialized"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// Helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeOperationError maps orchestration failures onto HTTP status codes:
// unknown session 404, concurrency guard 409, nothing-to-answer 400,
// initialization and everything else 500.
func writeOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		writeError(w, http.StatusNotFound, "Session not found. Initialize a browser first.")
	case errors.Is(err, session.ErrTaskAlreadyRunning):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrSessionExists):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, session.ErrNoPendingInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrSessionClosed):
		writeError(w, http.StatusNotFound, "Session not found. Initialize a browser first.")
	case errors.Is(err, orchestrator.ErrInitializationFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/HarxSan/Mini-Manus/pkg/logging"
	"github.com/HarxSan/Mini-Manus/pkg/orchestrator"
)

type initializeRequest struct {
	SessionID         string `json:"session_id,omitempty"`
	ChromePath        string `json:"chrome_path,omitempty"`
	Headless          bool   `json:"headless,omitempty"`
	ViewportExpansion int    `json:"viewport_expansion,omitempty"`
}

type runRequest struct {
	Task     string `json:"task"`
	MaxSteps int    `json:"max_steps,omitempty"`
}

type inputRequest struct {
	Answer string `json:"answer"`
}

func (s *Server) handleInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	id, err := s.orch.Initialize(r.Context(), orchestrator.InitializeRequest{
		SessionID:         req.SessionID,
		ChromePath:        req.ChromePath,
		Headless:          req.Headless,
		ViewportExpansion: req.ViewportExpansion,
	})
	if err != nil {
		s.log.Error(logging.CategorySession, "session_init_failed", req.SessionID, err.Error(), nil)
		writeOperationError(w, err)
		return
	}

	s.log.Info(logging.CategorySession, "session_initialized", id, "browser session ready", nil)
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": id,
		"status":     "initialized",
	})
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req runRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Task) == "" {
		writeError(w, http.StatusBadRequest, "Task text is required")
		return
	}

	if err := s.orch.Run(r.Context(), sessionID, req.Task, req.MaxSteps); err != nil {
		writeOperationError(w, err)
		return
	}

	s.log.Info(logging.CategoryTask, "task_started", sessionID, req.Task, nil)
	writeJSON(w, http.StatusAccepted, map[string]string{
		"session_id": sessionID,
		"status":     "task_started",
		"message":    "Task is running. Poll status or subscribe to events for progress.",
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	snap, err := s.orch.Status(r.Context(), sessionID)
	if err != nil {
		writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleProvideInput(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var req inputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(req.Answer) == "" {
		writeError(w, http.StatusBadRequest, "Answer text is required")
		return
	}

	if err := s.orch.ProvideInput(r.Context(), sessionID, req.Answer); err != nil {
		writeOperationError(w, err)
		return
	}

	s.log.Info(logging.CategoryInput, "input_provided", sessionID, "answer delivered to running task", nil)
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"status":     "input_provided",
	})
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.orch.Close(r.Context(), sessionID); err != nil {
		writeOperationError(w, err)
		return
	}

	s.log.Info(logging.CategorySession, "session_closed", sessionID, "browser session closed", nil)
	writeJSON(w, http.StatusOK, map[string]string{
		"session_id": sessionID,
		"status":     "closed",
	})
}

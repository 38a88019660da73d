// File: internal/service/handlers.go
// Description: Endpoint handlers. The start endpoint is fire-and-forget: it
// validates, registers the session and responds immediately; the pipeline runs
// in its own goroutine with the session record as the only coordination point.

package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/hireflow/autoapply/internal/autofill"
	"github.com/hireflow/autoapply/internal/browser"
	"github.com/hireflow/autoapply/internal/profile"
	"github.com/hireflow/autoapply/internal/session"
	"github.com/hireflow/autoapply/internal/statuscheck"
)

// startRequest is the body of POST /api/automation/start. AutofillData is a
// pointer so a missing section is distinguishable from an empty one.
type startRequest struct {
	SessionID    string                `json:"session_id"`
	URL          string                `json:"url"`
	JobSource    string                `json:"job_source"`
	AutofillData *profile.AutofillData `json:"autofill_data"`
}

// checkStatusRequest is the body of POST /api/automation/check-status.
type checkStatusRequest struct {
	URL string `json:"url"`
}

// checkStatusResponse flattens the checker result next to the success flag.
// The embedded struct's omitempty tags keep optional evidence (matched
// keyword, screenshot) out of the body when absent.
type checkStatusResponse struct {
	Success bool `json:"success"`
	statuscheck.Result
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req.SessionID = strings.TrimSpace(req.SessionID)
	req.URL = strings.TrimSpace(req.URL)
	switch {
	case req.SessionID == "":
		s.writeError(w, http.StatusBadRequest, "session_id is required")
		return
	case req.URL == "":
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	case req.AutofillData == nil:
		s.writeError(w, http.StatusBadRequest, "autofill_data is required")
		return
	}

	sess, err := s.store.Create(req.SessionID, nil)
	if err != nil {
		if errors.Is(err, session.ErrDuplicateID) {
			s.writeError(w, http.StatusConflict,
				fmt.Sprintf("session %s already exists", req.SessionID))
			return
		}
		s.writeError(w, http.StatusInternalServerError, "could not create session")
		return
	}

	// Detached from the request context: the run outlives this response and
	// callers poll the status endpoint for progress.
	go s.runAutomation(sess, autofill.Request{
		SessionID: req.SessionID,
		TargetURL: req.URL,
		JobSource: req.JobSource,
		Data:      *req.AutofillData,
	})

	s.writeJSON(w, http.StatusAccepted, map[string]any{
		"success":            true,
		"browser_session_id": req.SessionID,
		"status":             "started",
	})
}

// runAutomation launches the browser and drives the pipeline. Launch failure
// is an ordinary terminal error on the session, observable by polling.
func (s *Server) runAutomation(sess *session.Session, req autofill.Request) {
	ctx := context.Background()

	b, err := browser.Launch(ctx, s.cfg, s.logger)
	if err != nil {
		s.logger.Error("Browser launch failed.",
			zap.String("session_id", sess.ID), zap.Error(err))
		sess.AppendError("could not start a browser for this session; try again")
		sess.SetStatus(session.StatusError)
		return
	}
	if !sess.AttachBrowser(b) {
		// The session was closed while the browser was launching;
		// AttachBrowser already shut the browser down.
		s.logger.Info("Session closed during browser launch; run abandoned.",
			zap.String("session_id", sess.ID))
		return
	}

	s.orchestrator.Run(ctx, sess, req)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]

	sess, err := s.store.Get(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("session %s not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["session_id"]

	if err := s.store.Close(id); err != nil {
		s.writeError(w, http.StatusNotFound, fmt.Sprintf("session %s not found", id))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"session_id": id,
	})
}

func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	var req checkStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := s.checker.Check(r.Context(), req.URL)
	if err != nil {
		s.logger.Warn("Status check failed.", zap.String("url", req.URL), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "could not load the application page")
		return
	}

	s.writeJSON(w, http.StatusOK, checkStatusResponse{Success: true, Result: result})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"active_sessions": s.store.Count(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Debug("Response encoding failed.", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, code int, message string) {
	s.writeJSON(w, code, map[string]any{
		"success": false,
		"error":   message,
	})
}

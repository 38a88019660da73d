// File: internal/service/server.go
// Description: HTTP surface of the automation service. Routing, lifecycle and
// graceful shutdown; the handlers live in handlers.go, cross-cutting
// middleware in middleware.go.

package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/hireflow/autoapply/internal/autofill"
	"github.com/hireflow/autoapply/internal/config"
	"github.com/hireflow/autoapply/internal/session"
	"github.com/hireflow/autoapply/internal/statuscheck"
)

// Server wires the HTTP layer to the automation pipeline.
type Server struct {
	cfg    *config.Config
	logger *zap.Logger

	store        *session.Store
	orchestrator *autofill.Orchestrator
	checker      *statuscheck.Checker
	limiter      *principalLimiter

	httpServer *http.Server
}

// NewServer builds the service around an existing session store.
func NewServer(cfg *config.Config, logger *zap.Logger, store *session.Store) *Server {
	s := &Server{
		cfg:          cfg,
		logger:       logger.Named("http"),
		store:        store,
		orchestrator: autofill.NewOrchestrator(cfg, logger, nil),
		checker:      statuscheck.NewChecker(cfg, logger),
		limiter:      newPrincipalLimiter(cfg.Server.RatePerMinute, cfg.Server.RateBurst),
	}
	s.httpServer = &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      s.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return s
}

// Router assembles the route table. Exposed separately so tests can drive the
// handler chain through httptest without binding a socket.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.requestLogging)

	// Automation endpoints: authenticated and rate limited.
	automation := r.PathPrefix("/api/automation").Subrouter()
	automation.Use(s.rateLimit, s.bearerAuth)
	automation.HandleFunc("/start", s.handleStart).Methods(http.MethodPost)
	automation.HandleFunc("/status/{session_id}", s.handleStatus).Methods(http.MethodGet)
	automation.HandleFunc("/close/{session_id}", s.handleClose).Methods(http.MethodPost)

	// The status probe and liveness are deliberately open; they touch no
	// session state.
	r.HandleFunc("/api/automation/check-status", s.handleCheckStatus).Methods(http.MethodPost)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	return r
}

// Start serves until the context is cancelled, then shuts down gracefully
// within the configured window.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening.", zap.String("address", s.cfg.Server.Address))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server.")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

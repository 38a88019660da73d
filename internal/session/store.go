// File: internal/session/store.go
// Description: In-memory session registry with a background reaper. Sessions
// are ephemeral; a restart drops them all, and idle ones are swept so
// abandoned browsers do not pile up.

package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hireflow/autoapply/internal/browser"
	"github.com/hireflow/autoapply/internal/config"
)

var (
	// ErrNotFound is returned when a session ID is unknown (or already swept).
	ErrNotFound = errors.New("session not found")
	// ErrDuplicateID is returned when creating a session whose ID is live.
	ErrDuplicateID = errors.New("session id already exists")
)

// Store is the concurrency-safe session registry.
type Store struct {
	logger *zap.Logger
	cfg    *config.Config

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore builds an empty registry.
func NewStore(cfg *config.Config, logger *zap.Logger) *Store {
	return &Store{
		logger:   logger.Named("sessions"),
		cfg:      cfg,
		sessions: make(map[string]*Session),
	}
}

// Create registers a new session owning the given browser.
func (s *Store) Create(id string, b *browser.Browser) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; exists {
		return nil, ErrDuplicateID
	}
	sess := newSession(id, b, time.Now())
	s.sessions[id] = sess
	s.logger.Info("Session created.", zap.String("session_id", id))
	return sess, nil
}

// Get looks up a live session.
func (s *Store) Get(id string) (*Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// Close tears down a session's browser and removes it from the registry.
func (s *Store) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	sess.markClosed()
	sess.CloseBrowser()
	s.logger.Info("Session closed.", zap.String("session_id", id))
	return nil
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// CloseAll tears down every live session. Used at shutdown.
func (s *Store) CloseAll() {
	s.mu.Lock()
	doomed := make([]*Session, 0, len(s.sessions))
	for id, sess := range s.sessions {
		doomed = append(doomed, sess)
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	for _, sess := range doomed {
		sess.markClosed()
		sess.CloseBrowser()
	}
	if len(doomed) > 0 {
		s.logger.Info("All sessions closed.", zap.Int("count", len(doomed)))
	}
}

// RunReaper sweeps idle sessions until the context is cancelled, then closes
// every remaining session. Intended to run as its own goroutine for the
// lifetime of the service.
func (s *Store) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Session.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.CloseAll()
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Store) sweep() {
	cutoff := time.Now().Add(-s.cfg.Session.IdleTTL)

	s.mu.Lock()
	var expired []*Session
	for id, sess := range s.sessions {
		if sess.idleSince().Before(cutoff) {
			expired = append(expired, sess)
			delete(s.sessions, id)
		}
	}
	s.mu.Unlock()

	for _, sess := range expired {
		sess.markClosed()
		sess.CloseBrowser()
		s.logger.Info("Reaped idle session.",
			zap.String("session_id", sess.ID),
			zap.Duration("idle_ttl", s.cfg.Session.IdleTTL))
	}
}

// File: internal/session/session.go
// Description: The automation session record. One per autofill request,
// mutated by the orchestration goroutine, snapshotted by the status endpoint.

package session

import (
	"sync"
	"time"

	"github.com/hireflow/autoapply/internal/browser"
	"github.com/hireflow/autoapply/internal/forms"
)

// Status is the session lifecycle state. Monotonic except for the explicit
// error/login_required escapes.
type Status string

const (
	StatusInitialized    Status = "initialized"
	StatusNavigating     Status = "navigating"
	StatusDetectingForms Status = "detecting_forms"
	StatusFillingForms   Status = "filling_forms"
	StatusLoginRequired  Status = "login_required"
	StatusCompleted      Status = "completed"
	StatusError          Status = "error"
)

// ErrorRecord is one appended orchestration error.
type ErrorRecord struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Session owns the resources of one automation run. The ownership chain is
// Session -> Browser -> pages; the active page is a mutable reference that
// gets reassigned when preparation follows a new tab.
type Session struct {
	ID string

	mu           sync.Mutex
	browser      *browser.Browser
	activePage   *browser.Page
	closed       bool
	status       Status
	filledFields []forms.FilledField
	errors       []ErrorRecord
	startedAt    time.Time
	updatedAt    time.Time
}

// Snapshot is the read-model handed to the HTTP layer. Status reads race
// concurrent writes by design; consumers treat them as eventually-consistent
// observations, never transactional reads.
type Snapshot struct {
	SessionID    string              `json:"session_id"`
	Status       Status              `json:"status"`
	StartedAt    time.Time           `json:"started_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	FilledFields []forms.FilledField `json:"filled_fields"`
	Errors       []ErrorRecord       `json:"errors"`
}

func newSession(id string, b *browser.Browser, now time.Time) *Session {
	s := &Session{
		ID:        id,
		browser:   b,
		status:    StatusInitialized,
		startedAt: now,
		updatedAt: now,
	}
	if b != nil {
		s.activePage = b.Page()
	}
	return s
}

// AttachBrowser hands the session its browser once the launch completes. The
// start endpoint responds before Chrome is up, so creation and attachment are
// separate steps. A close that lands during the launch wins the race: the
// incoming browser is shut down on the spot and false is returned, so the
// process can never outlive the session that owned it.
func (s *Session) AttachBrowser(b *browser.Browser) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if b != nil {
			b.Close()
		}
		return false
	}
	s.browser = b
	if b != nil {
		s.activePage = b.Page()
	}
	s.updatedAt = time.Now()
	s.mu.Unlock()
	return true
}

// markClosed flags the session as removed from the store, rejecting any
// late browser attachment.
func (s *Session) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Browser returns the owned browser handle.
func (s *Session) Browser() *browser.Browser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.browser
}

// ActivePage returns the page currently being driven.
func (s *Session) ActivePage() *browser.Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activePage
}

// SetActivePage reassigns the driven page (new-tab follow, tab recovery).
func (s *Session) SetActivePage(p *browser.Page) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activePage = p
	s.updatedAt = time.Now()
}

// SetStatus advances the lifecycle.
func (s *Session) SetStatus(status Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.updatedAt = time.Now()
}

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// AppendError records an orchestration error. Append-only.
func (s *Session) AppendError(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errors = append(s.errors, ErrorRecord{Message: message, Timestamp: time.Now()})
	s.updatedAt = time.Now()
}

// SetFilledFields stores the final filled-field list. Written once at
// completion.
func (s *Session) SetFilledFields(fields []forms.FilledField) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filledFields = fields
	s.updatedAt = time.Now()
}

// CloseBrowser tears down the owned browser. Idempotent.
func (s *Session) CloseBrowser() {
	s.mu.Lock()
	b := s.browser
	s.mu.Unlock()
	if b != nil {
		b.Close()
	}
}

// BrowserClosed reports whether the owned browser has been shut down.
func (s *Session) BrowserClosed() bool {
	s.mu.Lock()
	b := s.browser
	s.mu.Unlock()
	return b == nil || b.IsClosed()
}

// Snapshot copies the observable state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		SessionID: s.ID,
		Status:    s.status,
		StartedAt: s.startedAt,
		UpdatedAt: s.updatedAt,
	}
	snap.FilledFields = append(snap.FilledFields, s.filledFields...)
	snap.Errors = append(snap.Errors, s.errors...)
	return snap
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt
}

// File: internal/autofill/orchestrator_test.go
package autofill

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hireflow/autoapply/internal/browser"
	"github.com/hireflow/autoapply/internal/config"
	"github.com/hireflow/autoapply/internal/forms"
	"github.com/hireflow/autoapply/internal/profile"
	"github.com/hireflow/autoapply/internal/session"
)

// stubHandler scripts the per-site strategy so the pipeline's terminal paths
// can be driven without a browser.
type stubHandler struct {
	prepareErr error
	filled     []forms.FilledField
}

func (h *stubHandler) Name() string { return "stub" }

func (h *stubHandler) PreparePage(_ context.Context, _ *browser.Browser, page *browser.Page) (*browser.Page, error) {
	return page, h.prepareErr
}

func (h *stubHandler) FillForm(_ context.Context, _ *browser.Page, _ forms.Descriptor, _ profile.Flat) []forms.FilledField {
	return h.filled
}

type stubResolver struct{ handler Handler }

func (r stubResolver) HandlerFor(string, string) Handler { return r.handler }

// applicationForm is substantive enough to survive filtering.
func applicationForm() forms.Descriptor {
	return forms.Descriptor{
		Index:    0,
		Selector: "form#apply",
		Fields: []forms.Field{
			{Name: "full_name", Type: "text", Selector: "#name"},
			{Name: "email", Type: "email", Selector: "#email"},
			{Name: "phone", Type: "tel", Selector: "#phone"},
			{Name: "cover_letter", Type: "textarea", Selector: "#cover"},
		},
	}
}

func newStubbedRun(t *testing.T, handler Handler, detected []forms.Descriptor) (*Orchestrator, *session.Session) {
	t.Helper()
	cfg := config.NewDefaultConfig()
	cfg.Browser.ScreenshotDir = ""
	cfg.Autofill.LoginLinger = time.Millisecond
	logger := zaptest.NewLogger(t)

	store := session.NewStore(cfg, logger)
	sess, err := store.Create("s1", nil)
	require.NoError(t, err)
	sess.SetActivePage(&browser.Page{})

	orch := NewOrchestrator(cfg, logger, stubResolver{handler})
	orch.navigate = func(context.Context, *browser.Page, string) error { return nil }
	orch.detectForms = func(context.Context, *browser.Page) ([]forms.Descriptor, error) {
		return detected, nil
	}
	return orch, sess
}

func TestRunTerminalPaths(t *testing.T) {
	tests := []struct {
		name        string
		prepareErr  error
		detected    []forms.Descriptor
		filled      []forms.FilledField
		wantStatus  session.Status
		wantMessage string
	}{
		{
			name:        "login wall ends the run",
			prepareErr:  fmt.Errorf("login page detected: %w", ErrLoginRequired),
			wantStatus:  session.StatusLoginRequired,
			wantMessage: "log in manually",
		},
		{
			name:        "no forms on the page",
			detected:    nil,
			wantStatus:  session.StatusError,
			wantMessage: "apply manually",
		},
		{
			name: "only noise forms survive detection",
			detected: []forms.Descriptor{{Index: 0, Selector: "form#search", Fields: []forms.Field{
				{Name: "search", Type: "text", Selector: "#q"},
			}}},
			wantStatus:  session.StatusError,
			wantMessage: "apply manually",
		},
		{
			name:        "no field matched the profile",
			detected:    []forms.Descriptor{applicationForm()},
			filled:      nil,
			wantStatus:  session.StatusError,
			wantMessage: "apply manually",
		},
		{
			name:       "fields filled",
			detected:   []forms.Descriptor{applicationForm()},
			filled:     []forms.FilledField{{Field: "email", Value: "a@b.c", Type: "email"}},
			wantStatus: session.StatusCompleted,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			orch, sess := newStubbedRun(t, &stubHandler{
				prepareErr: tc.prepareErr,
				filled:     tc.filled,
			}, tc.detected)

			orch.Run(context.Background(), sess, Request{
				SessionID: "s1",
				TargetURL: "https://example.com/job",
			})

			snap := sess.Snapshot()
			assert.Equal(t, tc.wantStatus, snap.Status)
			if tc.wantMessage != "" {
				require.NotEmpty(t, snap.Errors)
				assert.Contains(t, snap.Errors[0].Message, tc.wantMessage)
			}
			if tc.wantStatus == session.StatusLoginRequired {
				assert.True(t, sess.BrowserClosed(), "login_required must release the browser")
			}
			if tc.wantStatus == session.StatusCompleted {
				assert.Equal(t, tc.filled, snap.FilledFields)
				assert.Empty(t, snap.Errors)
			}
		})
	}
}

func TestPreparationFailureIsNotFatal(t *testing.T) {
	// Anything short of a login wall during preparation degrades to the
	// unprepared page; the run must still reach detection and complete.
	filled := []forms.FilledField{{Field: "email", Value: "a@b.c", Type: "email"}}
	orch, sess := newStubbedRun(t, &stubHandler{
		prepareErr: errors.New("apply button never appeared"),
		filled:     filled,
	}, []forms.Descriptor{applicationForm()})

	orch.Run(context.Background(), sess, Request{
		SessionID: "s1",
		TargetURL: "https://example.com/job",
	})

	snap := sess.Snapshot()
	assert.Equal(t, session.StatusCompleted, snap.Status)
	assert.Equal(t, filled, snap.FilledFields)
	assert.Empty(t, snap.Errors)
}

func TestRunWithoutActivePageFailsSession(t *testing.T) {
	cfg := config.NewDefaultConfig()
	logger := zaptest.NewLogger(t)

	store := session.NewStore(cfg, logger)
	sess, err := store.Create("s1", nil)
	require.NoError(t, err)

	orch := NewOrchestrator(cfg, logger, nil)
	orch.Run(context.Background(), sess, Request{
		SessionID: "s1",
		TargetURL: "https://example.com/job",
	})

	snap := sess.Snapshot()
	assert.Equal(t, session.StatusError, snap.Status)
	require.Len(t, snap.Errors, 1)
	assert.Contains(t, snap.Errors[0].Message, "no active page")
}

func TestSentinelErrorsSurviveWrapping(t *testing.T) {
	// Every intermediate layer wraps with %w; errors.Is must still identify
	// the sentinel after multiple hops.
	wrapped := fmt.Errorf("page preparation failed: %w",
		fmt.Errorf("login wall after apply click: %w", ErrLoginRequired))
	assert.True(t, errors.Is(wrapped, ErrLoginRequired))
	assert.False(t, errors.Is(wrapped, ErrNoApplicationForms))

	for _, sentinel := range []error{ErrLoginRequired, ErrNoApplicationForms, ErrNothingFilled, ErrPageLost} {
		assert.True(t, errors.Is(fmt.Errorf("outer: %w", sentinel), sentinel))
	}
}

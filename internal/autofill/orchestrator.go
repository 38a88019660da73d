// File: internal/autofill/orchestrator.go
// Description: The per-session automation pipeline. Runs as a fire-and-forget
// goroutine per start request: navigate, prepare, detect, fill, and record the
// outcome on the session. Every terminal state is observable via the session
// snapshot; nothing is reported by return value.

package autofill

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/hireflow/autoapply/internal/browser"
	"github.com/hireflow/autoapply/internal/config"
	"github.com/hireflow/autoapply/internal/forms"
	"github.com/hireflow/autoapply/internal/profile"
	"github.com/hireflow/autoapply/internal/session"
)

// Request carries everything one automation run needs.
type Request struct {
	SessionID string
	TargetURL string
	JobSource string
	Data      profile.AutofillData
}

// HandlerResolver selects the site handler for a run. *Registry is the
// production implementation.
type HandlerResolver interface {
	HandlerFor(target, jobSource string) Handler
}

// Orchestrator executes automation runs against sessions.
type Orchestrator struct {
	cfg      *config.Config
	logger   *zap.Logger
	resolver HandlerResolver

	navigate    func(ctx context.Context, page *browser.Page, url string) error
	detectForms func(ctx context.Context, page *browser.Page) ([]forms.Descriptor, error)
}

// NewOrchestrator builds the pipeline driver. A nil resolver gets the default
// registry.
func NewOrchestrator(cfg *config.Config, logger *zap.Logger, resolver HandlerResolver) *Orchestrator {
	if resolver == nil {
		resolver = NewRegistry(logger)
	}
	return &Orchestrator{
		cfg:      cfg,
		logger:   logger.Named("orchestrator"),
		resolver: resolver,
		navigate: func(ctx context.Context, page *browser.Page, url string) error {
			return page.Navigate(ctx, url)
		},
		detectForms: forms.Detect,
	}
}

// Run drives one session from navigation to a terminal status. It never
// returns an error: outcomes land on the session record where the status
// endpoint can see them.
func (o *Orchestrator) Run(ctx context.Context, sess *session.Session, req Request) {
	logger := o.logger.With(zap.String("session_id", req.SessionID))
	logger.Info("Automation run starting.", zap.String("url", req.TargetURL))

	if err := o.run(ctx, sess, req, logger); err != nil {
		if errors.Is(err, ErrLoginRequired) {
			o.finishLoginRequired(ctx, sess, req, err, logger)
			return
		}
		o.finishError(ctx, sess, err, logger)
		return
	}
	logger.Info("Automation run completed.")
}

func (o *Orchestrator) run(ctx context.Context, sess *session.Session, req Request, logger *zap.Logger) error {
	handler := o.resolver.HandlerFor(req.TargetURL, req.JobSource)
	logger.Info("Handler selected.", zap.String("handler", handler.Name()))

	// -- Navigate --
	sess.SetStatus(session.StatusNavigating)
	page := sess.ActivePage()
	if page == nil {
		return fmt.Errorf("session has no active page: %w", ErrPageLost)
	}
	if err := o.navigate(ctx, page, req.TargetURL); err != nil {
		return fmt.Errorf("could not load %s: %w", req.TargetURL, err)
	}

	// -- Prepare --
	// Preparation is best effort: only a login wall stops the run. Anything
	// else (a popup that never appeared, a cookie banner that would not
	// dismiss) is logged and the pipeline proceeds with the page it has.
	prepared, err := handler.PreparePage(ctx, sess.Browser(), page)
	if err != nil {
		if errors.Is(err, ErrLoginRequired) {
			return err
		}
		logger.Warn("Page preparation failed; continuing with current page.", zap.Error(err))
	}
	if prepared != nil && prepared != page {
		sess.SetActivePage(prepared)
		page = prepared
	}

	// Preparation can leave the driven tab closed (site JS closing popups).
	// Recover any surviving tab before declaring the run dead.
	if page.IsClosed() {
		logger.Warn("Active page closed during preparation; attempting recovery.")
		b := sess.Browser()
		if b == nil {
			return fmt.Errorf("active tab was closed and no browser remains: %w", ErrPageLost)
		}
		recovered, rerr := b.RecoverPage(ctx)
		if rerr != nil {
			return fmt.Errorf("active tab was closed and no replacement found: %w", ErrPageLost)
		}
		sess.SetActivePage(recovered)
		page = recovered
	}

	// -- Detect --
	sess.SetStatus(session.StatusDetectingForms)
	detected, err := o.detectForms(ctx, page)
	if err != nil {
		return fmt.Errorf("form detection failed: %w", err)
	}
	candidates := forms.Filter(detected, logger)
	if len(candidates) == 0 {
		return fmt.Errorf("no fillable application form on the page; apply manually: %w", ErrNoApplicationForms)
	}
	logger.Info("Application forms detected.",
		zap.Int("detected", len(detected)), zap.Int("candidates", len(candidates)))

	// -- Fill --
	sess.SetStatus(session.StatusFillingForms)
	flat := profile.Flatten(req.Data)

	var filled []forms.FilledField
	for _, form := range candidates {
		filled = append(filled, handler.FillForm(ctx, page, form, flat)...)
	}
	if len(filled) == 0 {
		return fmt.Errorf("no form field matched the provided profile; apply manually: %w", ErrNothingFilled)
	}

	sess.SetFilledFields(filled)
	o.captureScreenshot(ctx, page, req.SessionID, "completed", logger)
	sess.SetStatus(session.StatusCompleted)
	logger.Info("Form filling finished.", zap.Int("filled_fields", len(filled)))
	return nil
}

// finishLoginRequired parks the session in login_required long enough for a
// status poll to observe it, then releases the browser. The caller cannot
// authenticate through us; holding Chrome open any longer buys nothing.
func (o *Orchestrator) finishLoginRequired(ctx context.Context, sess *session.Session, req Request, cause error, logger *zap.Logger) {
	logger.Info("Login wall blocks automation.", zap.Error(cause))

	// Detached context: evidence capture must work even when the run died to
	// a canceled or expired operational context.
	if page := sess.ActivePage(); page != nil && !page.IsClosed() {
		o.captureScreenshot(browser.Detach(ctx), page, req.SessionID, "login_required", logger)
	}
	sess.AppendError(fmt.Sprintf(
		"authentication required at %s; log in manually and retry: %v", req.TargetURL, cause))
	sess.SetStatus(session.StatusLoginRequired)

	select {
	case <-time.After(o.cfg.Autofill.LoginLinger):
	case <-ctx.Done():
	}
	sess.CloseBrowser()
}

// finishError records a terminal failure with a best-effort evidence
// screenshot. The browser stays open for inspection until closed or reaped.
func (o *Orchestrator) finishError(ctx context.Context, sess *session.Session, cause error, logger *zap.Logger) {
	logger.Error("Automation run failed.", zap.Error(cause))

	if page := sess.ActivePage(); page != nil && !page.IsClosed() {
		o.captureScreenshot(browser.Detach(ctx), page, sess.ID, "error", logger)
	}
	sess.AppendError(cause.Error())
	sess.SetStatus(session.StatusError)
}

// captureScreenshot saves an evidence screenshot. Failures are logged and
// swallowed; evidence never changes a run's outcome.
func (o *Orchestrator) captureScreenshot(ctx context.Context, page *browser.Page, sessionID, stage string, logger *zap.Logger) {
	dir := o.cfg.Browser.ScreenshotDir
	if dir == "" {
		return
	}

	buf, err := page.Screenshot(ctx)
	if err != nil {
		logger.Debug("Screenshot capture failed.", zap.String("stage", stage), zap.Error(err))
		return
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Debug("Screenshot directory unavailable.", zap.Error(err))
		return
	}

	name := fmt.Sprintf("%s_%s_%s.png", sessionID, stage, time.Now().Format("20060102-150405"))
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		logger.Debug("Screenshot write failed.", zap.Error(err))
		return
	}
	logger.Debug("Screenshot saved.", zap.String("path", path))
}

// File: internal/statuscheck/checker.go
// Description: Standalone application-status probe. Loads a URL in its own
// short-lived browser, keyword-matches the visible text against a
// priority-ordered vocabulary, and returns the inferred status with optional
// screenshot evidence.

package statuscheck

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/hireflow/autoapply/internal/browser"
	"github.com/hireflow/autoapply/internal/config"
)

// Status is the inferred state of an external application.
type Status string

const (
	StatusRejected  Status = "rejected"
	StatusOffer     Status = "offer"
	StatusInterview Status = "interview"
	StatusInReview  Status = "in_review"
	StatusApplied   Status = "applied"
	StatusUnknown   Status = "unknown"
)

// statusVocabulary is scanned in priority order; a rejection phrase beats an
// interview phrase appearing on the same page, since rejection mails routinely
// quote the earlier pipeline stages.
var statusVocabulary = []struct {
	status   Status
	keywords []string
}{
	{StatusRejected, []string{
		"unfortunately",
		"not moving forward",
		"not selected",
		"other candidates",
		"position has been filled",
		"no longer under consideration",
		"regret to inform",
	}},
	{StatusOffer, []string{
		"congratulations",
		"offer letter",
		"pleased to offer",
		"job offer",
	}},
	{StatusInterview, []string{
		"interview",
		"schedule a call",
		"next round",
		"meet the team",
	}},
	{StatusInReview, []string{
		"under review",
		"in review",
		"reviewing your application",
		"being reviewed",
		"being considered",
	}},
	{StatusApplied, []string{
		"application received",
		"application submitted",
		"thank you for applying",
		"successfully applied",
		"we have received your application",
	}},
}

// Result is the outcome of one status check.
type Result struct {
	Status           Status    `json:"status"`
	MatchedKeyword   string    `json:"matched_keyword,omitempty"`
	CurrentURL       string    `json:"current_url"`
	ScreenshotBase64 string    `json:"screenshot_base64,omitempty"`
	CheckedAt        time.Time `json:"checked_at"`
}

// Checker runs status probes. Each probe launches and tears down its own
// browser; probes share nothing.
type Checker struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewChecker builds a status checker.
func NewChecker(cfg *config.Config, logger *zap.Logger) *Checker {
	return &Checker{cfg: cfg, logger: logger.Named("statuscheck")}
}

// Check loads the URL and infers the application status from the rendered
// text. A page that resists text extraction yields unknown, not an error;
// only failing to load the page at all is fatal.
func (c *Checker) Check(ctx context.Context, url string) (Result, error) {
	b, err := browser.Launch(ctx, c.cfg, c.logger)
	if err != nil {
		return Result{}, fmt.Errorf("could not launch browser for status check: %w", err)
	}
	defer b.Close()

	page := b.Page()
	if err := page.Navigate(ctx, url); err != nil {
		return Result{}, fmt.Errorf("could not load %s: %w", url, err)
	}

	result := Result{CurrentURL: url, CheckedAt: time.Now()}
	if current, err := page.URL(ctx); err == nil && current != "" {
		result.CurrentURL = current
	}

	text, err := page.VisibleText(ctx)
	if err != nil || strings.TrimSpace(text) == "" {
		// Some boards render into shadow roots chromedp.Text cannot reach;
		// fall back to parsing the serialized document.
		if html, herr := page.OuterHTML(ctx); herr == nil {
			text = ExtractVisibleText(html)
		}
	}

	result.Status, result.MatchedKeyword = ClassifyText(text)
	c.logger.Info("Status check finished.",
		zap.String("url", url),
		zap.String("status", string(result.Status)),
		zap.String("matched_keyword", result.MatchedKeyword))

	// Screenshot only for statuses worth a human look; "applied" and
	// "unknown" carry no evidence value.
	if interesting(result.Status) {
		if buf, serr := page.Screenshot(ctx); serr == nil {
			result.ScreenshotBase64 = base64.StdEncoding.EncodeToString(buf)
		} else {
			c.logger.Debug("Evidence screenshot failed.", zap.Error(serr))
		}
	}
	return result, nil
}

// ClassifyText keyword-matches page text against the status vocabulary.
func ClassifyText(text string) (Status, string) {
	lowered := strings.ToLower(text)
	for _, entry := range statusVocabulary {
		for _, keyword := range entry.keywords {
			if strings.Contains(lowered, keyword) {
				return entry.status, keyword
			}
		}
	}
	return StatusUnknown, ""
}

func interesting(s Status) bool {
	return s != StatusUnknown && s != StatusApplied
}

// File: internal/autofill/remoteok.go
// Description: RemoteOK site handler. Its page preparation is the canonical
// pattern for site handlers: ordered button-discovery strategies, a click
// with a synthetic-event fallback, and a race between "new tab opened" and
// "same page navigated".

package autofill

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hireflow/autoapply/internal/browser"
	"github.com/hireflow/autoapply/internal/classifier"
)

// clickMarkAttr tags the element a discovery strategy selected so the click
// step can address it with a plain selector.
const clickMarkAttr = "data-autoapply-click"

// applyStrategy is one way of locating the apply control on a job page. The
// script must mark exactly one visible candidate with clickMarkAttr and
// return true, or return false.
type applyStrategy struct {
	name   string
	script string
}

// remoteOKStrategies are tried in order; cheap precise selectors first, a
// broad DOM scan last.
var remoteOKStrategies = []applyStrategy{
	{
		name: "css-class",
		script: markCandidateJS(`
            for (const sel of ['a.action-apply', 'button.action-apply', '.preventLink a.action-apply']) {
                const el = document.querySelector(sel);
                if (el && visible(el)) return el;
            }
            return null;`),
	},
	{
		name: "href-substring",
		script: markCandidateJS(`
            for (const el of document.querySelectorAll('a[href*="apply"]')) {
                if (visible(el)) return el;
            }
            return null;`),
	},
	{
		name: "accessible-name",
		script: markCandidateJS(`
            const re = /apply|start application/i;
            for (const el of document.querySelectorAll('button, a, [role="button"]')) {
                const name = (el.getAttribute('aria-label') || el.innerText || '').trim();
                if (visible(el) && re.test(name)) return el;
            }
            return null;`),
	},
	{
		// Last resort: scan everything visible. The length guard keeps us
		// from clicking single-letter company-initial badges that happen to
		// sit inside an "apply" container.
		name: "dom-scan",
		script: markCandidateJS(`
            const re = /apply/i;
            for (const el of document.querySelectorAll('*')) {
                if (!visible(el)) continue;
                const text = (el.childElementCount === 0 ? el.innerText || '' : '').trim();
                if (text.length > 1 && re.test(text)) return el;
            }
            return null;`),
	},
}

// markCandidateJS wraps a strategy body (which returns an element or null)
// with the shared marking plumbing.
func markCandidateJS(body string) string {
	return fmt.Sprintf(`(() => {
        document.querySelectorAll('[%s]').forEach(el => el.removeAttribute('%s'));
        const visible = (el) => el.offsetWidth > 0 && el.offsetHeight > 0;
        const find = () => { %s };
        const el = find();
        if (!el) return false;
        el.setAttribute('%s', '1');
        return true;
    })()`, clickMarkAttr, clickMarkAttr, body, clickMarkAttr)
}

// RemoteOKHandler drives remoteok.com / remoteok.io postings.
type RemoteOKHandler struct {
	*GenericHandler
	logger *zap.Logger
}

// NewRemoteOKHandler builds the RemoteOK handler on top of the generic one.
func NewRemoteOKHandler(logger *zap.Logger) *RemoteOKHandler {
	return &RemoteOKHandler{
		GenericHandler: NewGenericHandler(logger),
		logger:         logger.Named("handler.remoteok"),
	}
}

// Name implements Handler.
func (h *RemoteOKHandler) Name() string { return "remoteok" }

// PreparePage clicks through RemoteOK's apply flow until an application form
// is reached. Exhausting every strategy returns the original page unchanged:
// the orchestrator will still attempt detection on whatever is left.
func (h *RemoteOKHandler) PreparePage(ctx context.Context, b *browser.Browser, page *browser.Page) (*browser.Page, error) {
	if category, err := classifier.ClassifyPage(ctx, page); err == nil && category == classifier.CategoryApplication {
		h.logger.Debug("Already on an application page; no preparation needed.")
		return page, nil
	}

	current := page
	for _, strat := range remoteOKStrategies {
		var found bool
		if err := current.Evaluate(ctx, strat.script, &found); err != nil {
			h.logger.Debug("Apply-button strategy errored.", zap.String("strategy", strat.name), zap.Error(err))
			continue
		}
		if !found {
			h.logger.Debug("Apply-button strategy found no candidate.", zap.String("strategy", strat.name))
			continue
		}

		// Register the new-target watch before clicking; the tab can open
		// faster than a late listener would catch.
		watch := b.WatchNewTarget()
		if err := h.clickMarked(ctx, current); err != nil {
			h.logger.Debug("Click failed; trying next strategy.", zap.String("strategy", strat.name), zap.Error(err))
			continue
		}

		newPage, err := b.AwaitNewPage(ctx, watch, []*browser.Page{current})
		if err != nil {
			h.logger.Debug("New-tab wait aborted.", zap.Error(err))
			continue
		}
		result := current
		if newPage != nil {
			h.logger.Debug("Apply click opened a new tab.")
			result = newPage
		}
		result.Settle(ctx)

		category, err := classifier.ClassifyPage(ctx, result)
		if err != nil {
			h.logger.Debug("Could not classify post-click page.", zap.Error(err))
			current = result
			continue
		}

		switch category {
		case classifier.CategoryLogin, classifier.CategoryRegister:
			// Fatal and non-retryable; must propagate untouched through
			// every layer above.
			return result, fmt.Errorf("%s wall after apply click: %w", category, ErrLoginRequired)
		case classifier.CategoryApplication:
			h.logger.Info("Reached application page.", zap.String("strategy", strat.name))
			return result, nil
		default:
			h.logger.Debug("Post-click page is not an application; continuing.",
				zap.String("strategy", strat.name), zap.String("category", string(category)))
			current = result
		}
	}

	h.logger.Info("All apply-button strategies exhausted; proceeding with current page.")
	return current, nil
}

// clickMarked clicks the strategy-marked element, falling back to a
// synthetic dispatched event when the native click is intercepted by
// overlays.
func (h *RemoteOKHandler) clickMarked(ctx context.Context, page *browser.Page) error {
	selector := fmt.Sprintf("[%s]", clickMarkAttr)
	if err := page.Click(ctx, selector); err == nil {
		return nil
	}

	script := fmt.Sprintf(`(() => {
        const el = document.querySelector('[%s]');
        if (!el) return false;
        el.dispatchEvent(new MouseEvent('click', { bubbles: true, cancelable: true, view: window }));
        return true;
    })()`, clickMarkAttr)

	var dispatched bool
	if err := page.Evaluate(ctx, script, &dispatched); err != nil {
		return fmt.Errorf("synthetic click dispatch failed: %w", err)
	}
	if !dispatched {
		return fmt.Errorf("marked apply candidate disappeared before click")
	}
	return nil
}

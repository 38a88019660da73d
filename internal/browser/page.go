// File: internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// Page wraps a single tab. It is the unit the rest of the pipeline works
// against: navigation, in-page evaluation, element interaction and
// screenshots all go through here with bounded waits.
type Page struct {
	browser *Browser
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	watcher *networkWatcher

	mu       sync.Mutex
	isClosed bool
}

func newPage(b *Browser, ctx context.Context, cancel context.CancelFunc) *Page {
	p := &Page{
		browser: b,
		logger:  b.logger.Named("page"),
		ctx:     ctx,
		cancel:  cancel,
	}

	p.watcher = newNetworkWatcher(p.logger)
	if err := p.watcher.Start(ctx); err != nil {
		// Network tracking is diagnostic; the page works without it.
		p.logger.Debug("Could not start network watcher.", zap.Error(err))
	}
	return p
}

// Context returns the page's CDP context.
func (p *Page) Context() context.Context {
	return p.ctx
}

// IsClosed reports whether the page's target is gone, either via Close or
// because the tab was closed out from under us (e.g. by site JS).
func (p *Page) IsClosed() bool {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return true
	}
	p.mu.Unlock()
	if p.ctx == nil {
		return false
	}
	return p.ctx.Err() != nil
}

// Close cancels the page's context. The initial page of a browser is torn
// down by Browser.Close instead; closing it here is still safe.
func (p *Page) Close() {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return
	}
	p.isClosed = true
	p.mu.Unlock()

	if p.cancel != nil {
		p.cancel()
	}
}

// run executes chromedp actions respecting both the page lifetime and the
// caller's deadline.
func (p *Page) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := CombineContext(p.ctx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads a URL and waits for the page to settle: bounded navigation,
// best-effort network idle, then a fixed settle delay. Dynamic job boards
// often finish client-side rendering after the network is nominally idle,
// hence the extra delay.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating.", zap.String("url", url))

	opCtx, opCancel := CombineContext(p.ctx, ctx)
	defer opCancel()

	navTimeout := p.browser.cfg.Network.NavigationTimeout
	navCtx, navCancel := context.WithTimeout(opCtx, navTimeout)
	defer navCancel()

	if err := chromedp.Run(navCtx, chromedp.Navigate(url)); err != nil {
		if navCtx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("navigation timed out after %s: %w", navTimeout, err)
		}
		if opCtx.Err() != nil {
			return fmt.Errorf("navigation canceled: %w", opCtx.Err())
		}
		return fmt.Errorf("navigation failed: %w", err)
	}

	p.Settle(opCtx)
	return nil
}

// Settle waits for DOM readiness and network quiet, then sleeps the settle
// delay. Every wait in here is non-fatal.
func (p *Page) Settle(ctx context.Context) {
	settleCtx, cancel := context.WithTimeout(ctx, p.browser.cfg.Network.NetworkIdleWait)
	defer cancel()

	if err := chromedp.Run(settleCtx, chromedp.WaitReady("body", chromedp.ByQuery)); err != nil {
		p.logger.Debug("WaitReady failed while settling (non-critical).", zap.Error(err))
	}
	if p.watcher != nil {
		if err := p.watcher.WaitIdle(settleCtx, 500*time.Millisecond); err != nil {
			p.logger.Debug("Network idle wait failed while settling (non-critical).", zap.Error(err))
		}
	}

	select {
	case <-time.After(p.browser.cfg.Network.SettleDelay):
	case <-ctx.Done():
	}
}

// Evaluate runs a snippet of JavaScript in the current document and
// optionally unmarshals the result into res. This is the cross-boundary
// capability the classifier and form detector are built on: the snippet must
// be a pure function of the live DOM returning a plain serializable value.
func (p *Page) Evaluate(ctx context.Context, script string, res any) error {
	return p.run(ctx, chromedp.Evaluate(script, res))
}

// WaitVisible blocks until the selector is visible, bounded by the configured
// per-element wait.
func (p *Page) WaitVisible(ctx context.Context, selector string) error {
	waitCtx, cancel := context.WithTimeout(ctx, p.browser.cfg.Network.ElementWait)
	defer cancel()
	if err := p.run(waitCtx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("element '%s' did not become visible: %w", selector, err)
	}
	return nil
}

// Click scrolls the element into view and clicks it, bounded by the
// configured click timeout.
func (p *Page) Click(ctx context.Context, selector string) error {
	p.logger.Debug("Clicking element.", zap.String("selector", selector))

	clickCtx, cancel := context.WithTimeout(ctx, p.browser.cfg.Network.ClickTimeout)
	defer cancel()

	action := chromedp.Tasks{
		chromedp.ScrollIntoView(selector, chromedp.ByQuery),
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	}
	if err := p.run(clickCtx, action); err != nil {
		return fmt.Errorf("click failed for selector '%s': %w", selector, err)
	}
	return nil
}

// SendKeys types text into the element matching the selector.
func (p *Page) SendKeys(ctx context.Context, selector, text string) error {
	typeCtx, cancel := context.WithTimeout(ctx, p.browser.cfg.Network.ElementWait)
	defer cancel()

	action := chromedp.Tasks{
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, text, chromedp.ByQuery),
	}
	if err := p.run(typeCtx, action); err != nil {
		return fmt.Errorf("type failed for selector '%s': %w", selector, err)
	}
	return nil
}

// URL returns the page's current location.
func (p *Page) URL(ctx context.Context) (string, error) {
	var loc string
	if err := p.run(ctx, chromedp.Location(&loc)); err != nil {
		return "", err
	}
	return loc, nil
}

// Title returns the current document title.
func (p *Page) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// VisibleText returns the rendered body text of the page.
func (p *Page) VisibleText(ctx context.Context) (string, error) {
	var text string
	if err := p.run(ctx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return text, nil
}

// OuterHTML returns the full serialized document.
func (p *Page) OuterHTML(ctx context.Context) (string, error) {
	var html string
	if err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

// Screenshot captures a full-page screenshot.
func (p *Page) Screenshot(ctx context.Context) ([]byte, error) {
	var buf []byte
	shotCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := p.run(shotCtx, chromedp.FullScreenshot(&buf, 80)); err != nil {
		return nil, fmt.Errorf("screenshot capture failed: %w", err)
	}
	return buf, nil
}

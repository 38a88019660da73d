// File: internal/browser/browser.go
// Description: Lifecycle of a single headless browser process. Every automation
// session launches its own isolated process; concurrency across sessions is
// achieved by running N independent browsers, never by sharing one.

package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/hireflow/autoapply/internal/config"
)

// Browser owns one headless Chrome process and its (single) browser context.
// The ownership chain is: Browser -> browser context -> 1..N pages. Closing
// the Browser tears the whole chain down, child first.
type Browser struct {
	logger *zap.Logger
	cfg    *config.Config

	// allocatorCtx manages the browser process itself.
	allocatorCtx    context.Context
	allocatorCancel context.CancelFunc

	// browserCtx is the first tab's context; it carries the CDP connection
	// that all further pages are derived from.
	browserCtx    context.Context
	browserCancel context.CancelFunc

	initial *Page

	mu       sync.Mutex
	isClosed bool
}

// Launch starts a new browser process and verifies it is responsive.
func Launch(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Browser, error) {
	b := &Browser{
		logger: logger.Named("browser"),
		cfg:    cfg,
	}

	opts := buildAllocatorOptions(cfg)
	b.allocatorCtx, b.allocatorCancel = chromedp.NewExecAllocator(ctx, opts...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocatorCtx)

	// Run a trivial task to confirm the process started and CDP is connected.
	probeCtx, cancel := context.WithTimeout(b.browserCtx, 30*time.Second)
	defer cancel()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		b.Close()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	b.initial = newPage(b, b.browserCtx, b.browserCancel)
	b.logger.Debug("Browser launched and responsive.")
	return b, nil
}

// buildAllocatorOptions assembles the flags for a configurable headless instance.
func buildAllocatorOptions(cfg *config.Config) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		// Later flags override the defaults; this drops the automation banner.
		chromedp.Flag("enable-automation", false),
		chromedp.Flag("headless", cfg.Browser.Headless),
		chromedp.Flag("ignore-certificate-errors", cfg.Browser.IgnoreTLSErrors),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-gpu", cfg.Browser.Headless),
		chromedp.WindowSize(cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight),
	)
	if cfg.Browser.UserAgent != "" {
		opts = append(opts, chromedp.UserAgent(cfg.Browser.UserAgent))
	}

	// Custom arguments from the config file, "--name=value" or "--name".
	for _, arg := range cfg.Browser.Args {
		parts := strings.SplitN(arg, "=", 2)
		flagName := strings.TrimPrefix(parts[0], "--")
		if len(parts) == 2 {
			opts = append(opts, chromedp.Flag(flagName, parts[1]))
		} else {
			opts = append(opts, chromedp.Flag(flagName, true))
		}
	}

	// Flags required for running inside containers (e.g., Docker on Linux).
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
			chromedp.Flag("disable-setuid-sandbox", true),
		)
	}

	return opts
}

// Page returns the browser's initial page.
func (b *Browser) Page() *Page {
	return b.initial
}

// Context returns the browser-level CDP context. New pages and target queries
// derive from it.
func (b *Browser) Context() context.Context {
	return b.browserCtx
}

// IsClosed reports whether Close has already run.
func (b *Browser) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.isClosed
}

// Close terminates the browser context and then the OS process. It is
// idempotent; callers (the close endpoint, the reaper, login-required
// teardown) may race freely.
func (b *Browser) Close() {
	b.mu.Lock()
	if b.isClosed {
		b.mu.Unlock()
		return
	}
	b.isClosed = true
	b.mu.Unlock()

	b.logger.Debug("Closing browser.")

	// Context before process, so CDP gets a chance to shut targets down
	// before the allocator kills Chrome.
	if b.browserCancel != nil {
		b.browserCancel()
	}
	if b.allocatorCancel != nil {
		b.allocatorCancel()
		<-b.allocatorCtx.Done()
	}
}

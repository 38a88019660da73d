// File: internal/browser/tabs.go
// Description: New-tab detection and tab-switch recovery. Apply buttons on job
// boards routinely open the real application form in a fresh tab; the
// orchestrator needs to follow it, and to find a surviving tab when the page
// it was driving gets closed out from under it.

package browser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// WatchNewTarget must be called before the action that may spawn a tab.
// The returned channel receives the new target's ID once it appears.
func (b *Browser) WatchNewTarget() <-chan target.ID {
	return chromedp.WaitNewTarget(b.browserCtx, func(info *target.Info) bool {
		return info.Type == "page" && info.URL != "about:blank"
	})
}

// AwaitNewPage races two outcomes after a click: a new tab opening (watched
// via ch), or no new tab at all. The poll fallback catches tabs that opened
// before the watch fired. Returns (nil, nil) when no tab appeared within the
// window; that is not an error.
func (b *Browser) AwaitNewPage(ctx context.Context, ch <-chan target.ID, known []*Page) (*Page, error) {
	wait := b.cfg.Network.NewTabWait
	deadline := time.NewTimer(wait)
	defer deadline.Stop()

	// Poll the target list partway through the window as a fallback.
	poll := time.NewTimer(wait / 2)
	defer poll.Stop()

	for {
		select {
		case id := <-ch:
			return b.attach(id)
		case <-poll.C:
			if p, err := b.findUnknownPage(ctx, known); err == nil && p != nil {
				return p, nil
			}
		case <-deadline.C:
			return nil, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// RecoverPage scans the browser for any open, non-blank page. Used when the
// active page handle turns out to be closed after a preparation step.
func (b *Browser) RecoverPage(ctx context.Context) (*Page, error) {
	infos, err := b.listTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("could not list browser targets: %w", err)
	}
	for _, info := range infos {
		if info.Type != "page" || info.URL == "" || strings.HasPrefix(info.URL, "about:") {
			continue
		}
		b.logger.Debug("Recovered open tab.", zap.String("url", info.URL))
		return b.attach(info.TargetID)
	}
	return nil, fmt.Errorf("no recoverable page found in browser context")
}

// attach wraps an existing target in a Page.
func (b *Browser) attach(id target.ID) (*Page, error) {
	ctx, cancel := chromedp.NewContext(b.browserCtx, chromedp.WithTargetID(id))
	// Run an empty task list to establish the CDP attachment.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to attach to target %s: %w", id, err)
	}
	return newPage(b, ctx, cancel), nil
}

// findUnknownPage returns a page target not already tracked by the caller.
func (b *Browser) findUnknownPage(ctx context.Context, known []*Page) (*Page, error) {
	infos, err := b.listTargets(ctx)
	if err != nil {
		return nil, err
	}

	knownIDs := make(map[target.ID]struct{}, len(known))
	for _, p := range known {
		if tgt := chromedp.FromContext(p.ctx); tgt != nil && tgt.Target != nil {
			knownIDs[tgt.Target.TargetID] = struct{}{}
		}
	}

	for _, info := range infos {
		if info.Type != "page" || info.URL == "about:blank" {
			continue
		}
		if _, ok := knownIDs[info.TargetID]; ok {
			continue
		}
		return b.attach(info.TargetID)
	}
	return nil, nil
}

func (b *Browser) listTargets(ctx context.Context) ([]*target.Info, error) {
	listCtx, cancel := CombineContext(b.browserCtx, ctx)
	defer cancel()
	return chromedp.Targets(listCtx)
}

// File: internal/browser/netidle.go
package browser

import (
	"context"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// networkWatcher tracks in-flight requests on a page so callers can wait for
// the network to go quiet after a navigation or click.
type networkWatcher struct {
	logger *zap.Logger

	lock     sync.RWMutex
	inflight map[network.RequestID]struct{}
}

func newNetworkWatcher(logger *zap.Logger) *networkWatcher {
	return &networkWatcher{
		logger:   logger.Named("netwatch"),
		inflight: make(map[network.RequestID]struct{}),
	}
}

// Start enables CDP network events on the page context and begins tracking.
func (w *networkWatcher) Start(ctx context.Context) error {
	chromedp.ListenTarget(ctx, w.handleEvent)
	return chromedp.Run(ctx, network.Enable())
}

// handleEvent tracks request lifecycles. A redirect re-sends under the same
// request ID; the continuing leg is still in flight, so only LoadingFinished
// and LoadingFailed remove an ID.
func (w *networkWatcher) handleEvent(ev any) {
	switch e := ev.(type) {
	case *network.EventRequestWillBeSent:
		w.lock.Lock()
		w.inflight[e.RequestID] = struct{}{}
		w.lock.Unlock()
	case *network.EventLoadingFinished:
		w.lock.Lock()
		delete(w.inflight, e.RequestID)
		w.lock.Unlock()
	case *network.EventLoadingFailed:
		w.lock.Lock()
		delete(w.inflight, e.RequestID)
		w.lock.Unlock()
	}
}

func (w *networkWatcher) pending() int {
	w.lock.RLock()
	defer w.lock.RUnlock()
	return len(w.inflight)
}

// WaitIdle polls until there have been no in-flight requests for a full quiet
// period, or the context expires.
func (w *networkWatcher) WaitIdle(ctx context.Context, quietPeriod time.Duration) error {
	ticker := time.NewTicker(quietPeriod / 2)
	defer ticker.Stop()

	lastActivity := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.lock.RLock()
			inflightCount := len(w.inflight)
			w.lock.RUnlock()

			if inflightCount > 0 {
				lastActivity = time.Now()
				w.logger.Debug("Waiting for network idle...", zap.Int("inflight_requests", inflightCount))
			} else if time.Since(lastActivity) >= quietPeriod {
				return nil
			}
		}
	}
}

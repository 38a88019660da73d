// File: internal/browser/netidle_test.go
package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestNetworkWatcherTracksRequestLifecycle(t *testing.T) {
	w := newNetworkWatcher(zaptest.NewLogger(t))

	w.handleEvent(&network.EventRequestWillBeSent{RequestID: "r1"})
	w.handleEvent(&network.EventRequestWillBeSent{RequestID: "r2"})
	assert.Equal(t, 2, w.pending())

	w.handleEvent(&network.EventLoadingFinished{RequestID: "r1"})
	assert.Equal(t, 1, w.pending())

	w.handleEvent(&network.EventLoadingFailed{RequestID: "r2"})
	assert.Equal(t, 0, w.pending())
}

func TestNetworkWatcherKeepsRedirectLegInFlight(t *testing.T) {
	w := newNetworkWatcher(zaptest.NewLogger(t))

	w.handleEvent(&network.EventRequestWillBeSent{RequestID: "r1"})
	require.Equal(t, 1, w.pending())

	// A redirect re-sends under the same ID; the chain is still in flight
	// until the final leg finishes loading.
	w.handleEvent(&network.EventRequestWillBeSent{
		RequestID:        "r1",
		RedirectResponse: &network.Response{Status: 302},
	})
	assert.Equal(t, 1, w.pending(), "redirect must not be treated as completion")

	w.handleEvent(&network.EventLoadingFinished{RequestID: "r1"})
	assert.Equal(t, 0, w.pending())
}

func TestWaitIdle(t *testing.T) {
	w := newNetworkWatcher(zaptest.NewLogger(t))

	// Quiet network: idle should be reported within one quiet period.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, w.WaitIdle(ctx, 20*time.Millisecond))

	// Permanently busy network: the wait is bounded by the context.
	w.handleEvent(&network.EventRequestWillBeSent{RequestID: "stuck"})
	busyCtx, busyCancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer busyCancel()
	assert.Error(t, w.WaitIdle(busyCtx, 20*time.Millisecond))
}

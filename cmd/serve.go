// File: cmd/serve.go
package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hireflow/autoapply/internal/observability"
	"github.com/hireflow/autoapply/internal/service"
	"github.com/hireflow/autoapply/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the automation HTTP service.",
	Long: `Starts the HTTP service that accepts automation requests, drives
headless browsers to fill job-application forms, and exposes per-session
status polling. Stops gracefully on SIGINT/SIGTERM, closing every live
browser session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		defer observability.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		store := session.NewStore(cfg, logger)
		server := service.NewServer(cfg, logger, store)

		g, ctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return server.Start(ctx)
		})
		g.Go(func() error {
			// The reaper owns session teardown at shutdown.
			store.RunReaper(ctx)
			return nil
		})

		if err := g.Wait(); !isShutdownErr(err) {
			logger.Error("Service exited with error.", zap.Error(err))
			return err
		}
		logger.Info("Service stopped.")
		return nil
	},
}

// isShutdownErr reports whether the errgroup result is an orderly shutdown.
// Cancellation reaches g.Wait wrapped by the server loop, so it has to be
// matched with errors.Is, not equality.
func isShutdownErr(err error) bool {
	return err == nil || errors.Is(err, context.Canceled)
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

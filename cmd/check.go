// File: cmd/check.go
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hireflow/autoapply/internal/observability"
	"github.com/hireflow/autoapply/internal/statuscheck"
)

var checkCmd = &cobra.Command{
	Use:   "check <url>",
	Short: "Infer an application's status from its tracking page.",
	Long: `Loads the given URL in a headless browser and keyword-matches the
rendered text to infer the application status (rejected, offer, interview,
in_review, applied). One-shot variant of the check-status endpoint.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := observability.GetLogger()
		url := args[0]

		checker := statuscheck.NewChecker(cfg, logger)
		result, err := checker.Check(cmd.Context(), url)
		if err != nil {
			return fmt.Errorf("status check failed: %w", err)
		}

		logger.Info("Status check result.",
			zap.String("status", string(result.Status)),
			zap.String("matched_keyword", result.MatchedKeyword),
			zap.String("current_url", result.CurrentURL))
		fmt.Printf("%s\n", result.Status)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

package main

import (
	"context"
	"fmt"

	"carepath/internal/app"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Unlock every day whose scheduled time has passed",
	Long:  "Reads participants with a due unlock from the Redis index and sweeps each program.",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		if limit < 0 {
			return fmt.Errorf("--limit must not be negative")
		}
		return openApp(cmd, func(ctx context.Context, a *app.App) error {
			report, err := a.ProgramService.SweepDue(ctx, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "checked %d participants, unlocked %d days\n", report.Checked, report.Unlocked)
			if len(report.Failed) > 0 {
				return fmt.Errorf("sweep failed for %d participants: %v", len(report.Failed), report.Failed)
			}
			return nil
		})
	},
}

func init() {
	sweepCmd.Flags().Int("limit", 0, "Maximum participants to sweep (0 = all due)")
}

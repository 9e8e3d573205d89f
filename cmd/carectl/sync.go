package main

import (
	"context"
	"fmt"

	"carepath/internal/app"

	"github.com/spf13/cobra"
)

var syncLegacyCmd = &cobra.Command{
	Use:   "sync-legacy",
	Short: "Rebuild the legacy day configs from structures and translations",
	RunE: func(cmd *cobra.Command, args []string) error {
		day, _ := cmd.Flags().GetInt("day")
		return openApp(cmd, func(ctx context.Context, a *app.App) error {
			if day >= 0 {
				rec, err := a.ContentService.SyncLegacy(ctx, day)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "day %d synced (checksum %s)\n", day, rec.Checksum)
				return nil
			}
			n, err := a.ContentService.SyncAll(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d days synced\n", n)
			return nil
		})
	},
}

func init() {
	syncLegacyCmd.Flags().Int("day", -1, "Only sync this day")
}

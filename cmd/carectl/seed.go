package main

import (
	"context"
	"encoding/json"
	"fmt"

	"carepath/internal/app"
	"carepath/internal/model"
	"carepath/internal/seed"

	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Store starter day structures",
	Long: "Stores the built-in starter program, or the structure edits in --file, " +
		"for every day that has no structure yet. --force replaces existing days.",
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().String("file", "", "JSON array of structure edits to seed instead of the starter program")
	seedCmd.Flags().Bool("force", false, "Replace days that already have a structure")
	seedCmd.Flags().Bool("dry-run", false, "Print the edits instead of storing them")
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var edits []model.StructureEdit
	if path, _ := cmd.Flags().GetString("file"); path != "" {
		if edits, err = seed.LoadFile(path); err != nil {
			return err
		}
	} else {
		edits = seed.DefaultProgram(cfg.Policy)
	}

	if dry, _ := cmd.Flags().GetBool("dry-run"); dry {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(edits)
	}

	force, _ := cmd.Flags().GetBool("force")
	return openApp(cmd, func(ctx context.Context, a *app.App) error {
		res, err := seed.Apply(ctx, a.ContentService, edits, force)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "created %v, replaced %v, skipped %v\n", res.Created, res.Replaced, res.Skipped)
		return nil
	})
}

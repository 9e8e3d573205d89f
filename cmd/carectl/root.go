package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"carepath/internal/app"
	"carepath/internal/config"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:          "carectl",
	Short:        "Operations CLI for the care program backend",
	Long:         "carectl seeds day content, runs the due-unlock sweep and rebuilds legacy day configs.",
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("policy", "", "Path to the program policy YAML (overrides PROGRAM_POLICY_FILE)")
	rootCmd.PersistentFlags().Bool("events", false, "Write use-case events as JSON lines to stderr")

	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(syncLegacyCmd)
	rootCmd.AddCommand(policyCmd)
}

// loadConfig reads the environment, then the --policy file when given
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if p, _ := cmd.Flags().GetString("policy"); p != "" {
		policy, err := config.LoadPolicy(p)
		if err != nil {
			return nil, fmt.Errorf("config: %w", err)
		}
		cfg.PolicyFile = p
		cfg.Policy = policy
	}
	return cfg, nil
}

// openApp connects the stores and runs fn with the wired services
func openApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	var events io.Writer
	if on, _ := cmd.Flags().GetBool("events"); on {
		events = os.Stderr
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.Open(ctx, cfg, events)
	if err != nil {
		return err
	}
	defer a.Close(context.Background())
	return fn(ctx, a)
}

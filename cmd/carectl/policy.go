package main

import (
	"carepath/internal/seed"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var policyCmd = &cobra.Command{
	Use:   "policy",
	Short: "Print the effective program policy as YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		policy := cfg.Policy
		if with, _ := cmd.Flags().GetBool("seed-signals"); with {
			policy = seed.WithSignals(policy)
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(policy); err != nil {
			return err
		}
		return enc.Close()
	},
}

func init() {
	policyCmd.Flags().Bool("seed-signals", false, "Use the starter program's check-in tasks as escalation signals")
}

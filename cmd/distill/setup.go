package main

import (
	"fmt"

	"github.com/sandevgo/distill/internal/service/setup"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure the AI provider",
	Long:  `Runs the interactive wizard: pick a provider, enter an API key, choose a model, and set the summary prompt. The result is saved to the runtime .env file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := setup.RunWizard()
		if err != nil {
			return err
		}

		fmt.Printf("Configured %s with model %s. Run 'distill start' to begin.\n", cfg.ProviderID(), cfg.Model)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

package main

import (
	"fmt"

	"github.com/Harshitk-cp/signalrealm/internal/config"
	"github.com/Harshitk-cp/signalrealm/internal/prompts"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "Inspect prompt templates",
}

var templatesCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify every required template fragment is present and valid",
	Args:  cobra.NoArgs,
	RunE:  runTemplatesCheck,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
	templatesCmd.AddCommand(templatesCheckCmd)
}

func runTemplatesCheck(cmd *cobra.Command, args []string) error {
	source := config.PromptsDir()
	if source == "" {
		source = "embedded"
	}
	if err := prompts.NewStoreFromDir(config.PromptsDir()).Validate(); err != nil {
		return fmt.Errorf("templates (%s): %w", source, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "templates ok (%s)\n", source)
	return nil
}

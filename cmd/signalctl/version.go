package main

import (
	"fmt"

	"github.com/Harshitk-cp/signalrealm/internal/buildconfig"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the signalctl version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "signalctl %s\n", buildconfig.Current())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

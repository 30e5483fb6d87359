package main

import (
	"fmt"
	"os"

	"github.com/Harshitk-cp/signalrealm/internal/config"
	"github.com/Harshitk-cp/signalrealm/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending SQL migrations from MIGRATIONS_PATH",
	Args:  cobra.NoArgs,
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := store.Migrate(ctx, db, os.DirFS(config.MigrationsPath()))
	for _, name := range applied {
		logger.Info("migration applied", zap.String("name", name))
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d migration(s) applied\n", len(applied))
	return nil
}

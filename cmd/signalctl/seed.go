package main

import (
	"fmt"

	"github.com/Harshitk-cp/signalrealm/internal/store"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create a realm and its signals from a YAML fixture",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "Seed YAML file")
	_ = seedCmd.MarkFlagRequired("file")
}

func runSeed(cmd *cobra.Command, args []string) error {
	var fixture seedFixture
	if err := decodeYAMLFile(seedFile, &fixture); err != nil {
		return err
	}
	realm, err := fixture.Realm.toDomain()
	if err != nil {
		return err
	}
	if fixture.Realm.Name == "" {
		return fmt.Errorf("realm name is required")
	}

	ctx := cmd.Context()
	db, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := store.NewRealmStore(db).Create(ctx, fixture.Realm.Name, realm); err != nil {
		return fmt.Errorf("create realm: %w", err)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "realm %s (%s)\n", realm.RealmID, fixture.Realm.Name)

	signals := store.NewSignalStore(db)
	for _, sf := range fixture.Signals {
		sig, err := sf.toDomain(realm.RealmID)
		if err != nil {
			return err
		}
		if err := signals.Create(ctx, sig); err != nil {
			return fmt.Errorf("create signal: %w", err)
		}
		if len(sig.Fields) > 0 {
			if err := signals.UpdateAnalysisFields(ctx, sig.ID, sig.Fields); err != nil {
				return fmt.Errorf("seed fields for %s: %w", sig.ID, err)
			}
		}
		logger.Debug("signal seeded", zap.String("signal_id", sig.ID.String()))
		fmt.Fprintf(out, "signal %s (%s)\n", sig.ID, sig.Type)
	}
	return nil
}

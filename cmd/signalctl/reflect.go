package main

import (
	"fmt"

	"github.com/Harshitk-cp/signalrealm/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	reflectAccount string
	reflectTypes   []string
)

var reflectCmd = &cobra.Command{
	Use:   "reflect [signal-id]",
	Short: "Create reflection artifacts for a stored signal",
	Args:  cobra.ExactArgs(1),
	RunE:  runReflect,
}

func init() {
	rootCmd.AddCommand(reflectCmd)
	reflectCmd.Flags().StringVar(&reflectAccount, "account", "", "LLM account id (defaults to the realm default)")
	reflectCmd.Flags().StringArrayVar(&reflectTypes, "type", nil, "Reflection type: mirror, myth, narrative (repeatable)")
	_ = reflectCmd.MarkFlagRequired("type")
}

func runReflect(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid signal id: %w", err)
	}
	types, err := service.ParseReflectionTypes(reflectTypes)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	p, err := newPipeline(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	sig, err := p.signals.GetByID(ctx, id)
	if err != nil {
		return err
	}

	created, err := p.reflections.Reflect(ctx, sig, sig.RealmID, types, reflectAccount)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), created)
}

package main

import (
	"fmt"
	"strings"

	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/Harshitk-cp/signalrealm/internal/service"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var (
	analyzeAccount string
	analyzeFields  []string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [signal-id]",
	Short: "Run the analysis passes for a stored signal",
	Long: `Runs the surface and structure passes for a signal and prints the fields
written. With --fields only the layers producing those fields run, and nothing is
written unless every layer succeeds.`,
	Args: cobra.ExactArgs(1),
	RunE: runAnalyze,
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeAccount, "account", "", "LLM account id (defaults to the realm default)")
	analyzeCmd.Flags().StringSliceVar(&analyzeFields, "fields", nil, "Analyze only these fields")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid signal id: %w", err)
	}
	if unknown := domain.UnknownFields(analyzeFields); len(unknown) > 0 {
		return fmt.Errorf("unknown fields: %s", strings.Join(unknown, ", "))
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

	var fields domain.FieldMap
	if len(analyzeFields) == 0 {
		fields, err = p.analysis.Analyze(ctx, sig, sig.RealmID, analyzeAccount)
	} else {
		fields, err = p.analysis.AnalyzeSelective(ctx, service.SelectiveInput{
			SignalID:  sig.ID,
			RealmID:   sig.RealmID,
			AccountID: analyzeAccount,
			Fields:    analyzeFields,
		})
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), fields)
}

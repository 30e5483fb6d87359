package main

import (
	"fmt"
	"strings"

	"github.com/Harshitk-cp/signalrealm/internal/config"
	"github.com/Harshitk-cp/signalrealm/internal/domain"
	"github.com/Harshitk-cp/signalrealm/internal/prompts"
	"github.com/spf13/cobra"
)

var (
	promptPass       string
	promptSignalFile string
	promptRealmFile  string
	promptFields     []string
)

var promptCmd = &cobra.Command{
	Use:   "prompt",
	Short: "Print the composed prompts for one pass without calling a model",
	Long: `Composes the system and user prompts for an analysis layer (surface, structure)
or a reflection type (mirror, myth, narrative) from YAML signal and realm files.
Nothing is read from the database and no provider is called.`,
	Args: cobra.NoArgs,
	RunE: runPrompt,
}

func init() {
	rootCmd.AddCommand(promptCmd)
	promptCmd.Flags().StringVar(&promptPass, "pass", "surface", "Pass to compose: surface, structure, mirror, myth, narrative")
	promptCmd.Flags().StringVar(&promptSignalFile, "signal", "", "Signal YAML file")
	promptCmd.Flags().StringVar(&promptRealmFile, "realm", "", "Realm YAML file (optional)")
	promptCmd.Flags().StringSliceVar(&promptFields, "fields", nil, "Restrict analysis questions to these fields")
	_ = promptCmd.MarkFlagRequired("signal")
}

func runPrompt(cmd *cobra.Command, args []string) error {
	sig, err := loadSignalFixture(promptSignalFile)
	if err != nil {
		return err
	}
	realm := &domain.RealmLLMConfig{}
	if promptRealmFile != "" {
		if realm, err = loadRealmFixture(promptRealmFile); err != nil {
			return err
		}
	}

	compositor := prompts.NewCompositor(prompts.NewStoreFromDir(config.PromptsDir()))

	var p prompts.Prompt
	switch {
	case domain.ValidLayer(strings.ToLower(promptPass)):
		if unknown := domain.UnknownFields(promptFields); len(unknown) > 0 {
			return fmt.Errorf("unknown fields: %s", strings.Join(unknown, ", "))
		}
		p, err = compositor.ComposeAnalysis(domain.Layer(strings.ToLower(promptPass)), sig, realm, promptFields)
	default:
		rt, ok := domain.ParseReflectionType(promptPass)
		if !ok {
			return fmt.Errorf("unknown pass %q", promptPass)
		}
		p, err = compositor.ComposeReflection(rt, sig, realm)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "=== SYSTEM ===")
	fmt.Fprintln(out, p.System)
	fmt.Fprintln(out, "=== USER ===")
	fmt.Fprintln(out, p.User)
	return nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"chunklock/internal/adapter/guardrails"
	"chunklock/internal/adapter/tokenizer"
	"chunklock/internal/usecase"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the active locked configuration against production guardrails",
	Long: `Check the active locked configuration against production guardrails and
verify that any pinned run identity (CHUNK_VERSION, INGEST_RUN_ID,
CONFIG_HASH) matches it.`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	lockUC, st, err := openLockUseCase()
	if err != nil {
		return err
	}
	defer st.Close()

	active, err := lockUC.Active()
	if err != nil {
		return err
	}
	if active == nil {
		fmt.Println("No configuration has been locked yet.")
		return nil
	}

	report := guardrails.ValidateConfig(*active)

	fmt.Printf("Config %s (hash %s)\n", active.ChunkVersion, report.ConfigHash)
	for _, issue := range report.Issues {
		fmt.Printf("  issue:   %s\n", issue)
	}
	for _, warning := range report.Warnings {
		fmt.Printf("  warning: %s\n", warning)
	}
	if !report.Valid {
		return fmt.Errorf("configuration failed guardrails")
	}

	cfg := GetConfig()
	pins := usecase.IdentityPins{
		ChunkVersion: cfg.Eval.ChunkVersion,
		IngestRunID:  cfg.Eval.IngestRunID,
		ConfigHash:   cfg.Eval.ConfigHash,
	}
	mgr, err := usecase.NewEvalSession(*active, pins, cfg.DeterminismConfig(),
		tokenizer.New(active.EmbedderName), st)
	if err != nil {
		return fmt.Errorf("eval identity check failed: %w", err)
	}

	det := mgr.Determinism()
	fmt.Printf("  eval:    run id %s, seed %d, temperature %g, cache disabled %v\n",
		mgr.ExpectedRunID(), det.Seed, det.Temperature, det.DisableCache)
	fmt.Println("  valid")
	return nil
}

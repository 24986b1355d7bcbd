package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/user"

	"github.com/spf13/cobra"

	"chunklock/internal/domain"
)

var (
	createLock      bool
	createCreatedBy string
	showJSON        bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage locked chunking configurations",
}

var configCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a locked configuration from the current settings",
	Long: `Create a configuration snapshot from chunklock.yaml plus environment
overrides, resolving tokenizer identity and stamping a version. With --lock
the snapshot is immediately validated against guardrails and locked.`,
	RunE: runConfigCreate,
}

var configLockCmd = &cobra.Command{
	Use:   "lock",
	Short: "Validate and lock the configuration created from current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		createLock = true
		return runConfigCreate(cmd, args)
	},
}

var configPromoteCmd = &cobra.Command{
	Use:   "promote <chunk-version>",
	Short: "Promote a locked version to production",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigPromote,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the active locked configuration",
	RunE:  runConfigShow,
}

var configHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List all locked configurations",
	RunE:  runConfigHistory,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configCreateCmd, configLockCmd, configPromoteCmd, configShowCmd, configHistoryCmd)

	configCreateCmd.Flags().BoolVar(&createLock, "lock", false, "lock the configuration after creating it")
	configCmd.PersistentFlags().StringVar(&createCreatedBy, "created-by", "", "creator identity (default is the OS user)")
	configShowCmd.Flags().BoolVar(&showJSON, "json", false, "output as JSON")
}

func runConfigCreate(cmd *cobra.Command, args []string) error {
	chunking, err := GetConfig().ChunkingConfig()
	if err != nil {
		return err
	}

	lockUC, st, err := openLockUseCase()
	if err != nil {
		return err
	}
	defer st.Close()

	locked, err := lockUC.CreateLockedConfig(chunking, createdBy(), nil)
	if err != nil {
		return err
	}

	fmt.Printf("Created config %s (hash %s, tokenizer %s)\n",
		locked.ChunkVersion, locked.ConfigHash(), locked.TokenizerName)

	if !createLock {
		fmt.Println("Not locked. Re-run with --lock or use 'chunklock config lock'.")
		return nil
	}

	report, err := lockUC.Lock(locked)
	for _, w := range report.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Locked %s; ingest run id %s\n", locked.ChunkVersion, locked.IngestRunID())
	return nil
}

func runConfigPromote(cmd *cobra.Command, args []string) error {
	lockUC, st, err := openLockUseCase()
	if err != nil {
		return err
	}
	defer st.Close()

	promoted, err := lockUC.Promote(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Promoted %s to production (shadow table %s)\n",
		promoted.ChunkVersion, promoted.ShadowTable)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
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

	if showJSON {
		return json.NewEncoder(os.Stdout).Encode(active)
	}

	printLocked(*active)
	return nil
}

func runConfigHistory(cmd *cobra.Command, args []string) error {
	lockUC, st, err := openLockUseCase()
	if err != nil {
		return err
	}
	defer st.Close()

	history, err := lockUC.History()
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("No configurations locked yet.")
		return nil
	}

	for _, cfg := range history {
		marker := " "
		if cfg.IsProduction {
			marker = "*"
		}
		fmt.Printf("%s %s  hash=%s  size=%d  overlap=%.2f  by=%s\n",
			marker, cfg.ChunkVersion, cfg.ConfigHash(), cfg.ChunkSize, cfg.OverlapRatio, cfg.CreatedBy)
	}
	return nil
}

func printLocked(cfg domain.LockedConfig) {
	fmt.Printf("Version:       %s\n", cfg.ChunkVersion)
	fmt.Printf("Config hash:   %s\n", cfg.ConfigHash())
	fmt.Printf("Ingest run id: %s\n", cfg.IngestRunID())
	fmt.Printf("Embedder:      %s (tokenizer %s %s)\n", cfg.EmbedderName, cfg.TokenizerName, cfg.TokenizerHash)
	fmt.Printf("Chunk size:    %d tokens (overlap ratio %.2f, max %d)\n", cfg.ChunkSize, cfg.OverlapRatio, cfg.MaxTokens)
	fmt.Printf("Dedup:         %d-gram shingles, jaccard %.2f\n", cfg.NgramSize, cfg.JaccardThreshold)
	fmt.Printf("Prefix:        enabled=%v policy=%s\n", cfg.UseContextualPrefix, cfg.PrefixPolicy)
	fmt.Printf("Created:       %s by %s\n", cfg.CreatedAt.Format("2006-01-02 15:04:05"), cfg.CreatedBy)
	fmt.Printf("Production:    %v", cfg.IsProduction)
	if cfg.ShadowTable != "" {
		fmt.Printf(" (shadow table %s)", cfg.ShadowTable)
	}
	fmt.Println()
}

func createdBy() string {
	if createCreatedBy != "" {
		return createCreatedBy
	}
	if u, err := user.Current(); err == nil {
		return u.Username
	}
	return "unknown"
}

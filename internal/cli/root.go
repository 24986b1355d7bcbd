package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chunklock/config"
)

var (
	cfgFile string
	cfg     *config.Config
	rootDir string
)

var rootCmd = &cobra.Command{
	Use:   "chunklock",
	Short: "Reproducible, versioned chunking for RAG ingestion",
	Long: `chunklock ingests raw documents into dual-purpose text chunks (one form
tuned for embedding similarity, one for lexical BM25 search) under a locked,
hashed configuration, so an evaluation run can prove exactly which chunking
produced the corpus it measured.

Example usage:
  chunklock config create --lock       # Create and lock a configuration
  chunklock ingest ./docs              # Chunk documents under the active config
  chunklock validate                   # Check the active config against guardrails`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error

		if rootDir == "" {
			rootDir, err = os.Getwd()
			if err != nil {
				return fmt.Errorf("failed to get working directory: %w", err)
			}
		}

		if cfgFile != "" {
			cfg, err = config.Load(cfgFile)
		} else {
			cfg, err = config.LoadFromDir(rootDir)
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		return nil
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./chunklock.yaml)")
	rootCmd.PersistentFlags().StringVarP(&rootDir, "dir", "d", "", "root directory (default is current directory)")
}

func GetConfig() *config.Config {
	return cfg
}

func GetRootDir() string {
	return rootDir
}

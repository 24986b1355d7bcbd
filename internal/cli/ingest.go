package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"chunklock/internal/adapter/chunker"
	"chunklock/internal/adapter/fs"
	"chunklock/internal/adapter/tokenizer"
	"chunklock/internal/usecase"
)

var ingestOutput string

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Chunk documents under the active locked configuration",
	Long: `Chunk every document under the given path using the active locked
configuration and write the dual-text chunk records as JSONL for the
storage layer to index.

Examples:
  chunklock ingest ./docs
  chunklock ingest ./docs -o corpus.jsonl`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().StringVarP(&ingestOutput, "output", "o", "", "chunk record output path (default from config)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := GetRootDir()
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", path)
	}

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
		return fmt.Errorf("no locked configuration; run 'chunklock config create --lock' first")
	}

	chunkingCfg := active.ChunkingConfig()
	tok := tokenizer.New(chunkingCfg.EmbedderName)
	engine, err := chunker.NewEngine(chunkingCfg, tok)
	if err != nil {
		return err
	}

	cfg := GetConfig()
	output := ingestOutput
	if output == "" {
		output = cfg.Ingest.Output
	}

	walker := fs.NewWalker(cfg.Ingest.Includes, cfg.Ingest.Excludes)
	ingestUC := usecase.NewIngestUseCase(walker, engine, output)

	fmt.Printf("Ingesting %s under %s (hash %s)...\n", path, active.ChunkVersion, active.ConfigHash())

	var bar *progressbar.ProgressBar
	progress := func(processed, total int, currentFile string) {
		if bar == nil && total > 0 {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionShowBytes(false),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Chunking[reset]"),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		if bar != nil {
			bar.Set(processed)
		}
	}

	start := time.Now()
	result, err := ingestUC.Ingest(path, progress)
	if err != nil {
		return err
	}

	fmt.Printf("Done in %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("  documents: %d processed, %d failed\n", result.DocsProcessed, result.DocsFailed)
	fmt.Printf("  chunks:    %d written to %s", result.ChunksWritten, output)
	if result.OverBudget > 0 {
		fmt.Printf(" (%d over the max_tokens budget)", result.OverBudget)
	}
	fmt.Println()
	fmt.Printf("  run id:    %s\n", active.IngestRunID())

	for _, e := range result.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	return nil
}

package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chunklock/internal/adapter/guardrails"
	"chunklock/internal/domain"
)

var healthCmd = &cobra.Command{
	Use:   "health [snapshot.jsonl]",
	Short: "Check retrieval health signals over a snapshot of retrieved chunks",
	Long: `Read a JSONL snapshot of retrieved chunks and report prefix leakage,
token-budget violations and average snapshot size against the active locked
configuration. The snapshot path defaults to the eval path (EVAL_PATH).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)
}

func runHealth(cmd *cobra.Command, args []string) error {
	snapshotPath := GetConfig().Eval.Path
	if len(args) > 0 {
		snapshotPath = args[0]
	}
	if snapshotPath == "" {
		return fmt.Errorf("no snapshot path; pass one or set EVAL_PATH")
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
		return fmt.Errorf("no locked configuration to check against")
	}

	results, err := readSnapshot(snapshotPath)
	if err != nil {
		return err
	}

	health := guardrails.CheckRetrievalHealth(results, *active)

	fmt.Printf("Snapshot of %d chunks against %s:\n", len(results), active.ChunkVersion)
	fmt.Printf("  prefix leaks:   %d\n", health.PrefixLeaks)
	fmt.Printf("  over budget:    %d\n", health.OverBudget)
	fmt.Printf("  avg text size:  %.0f bytes\n", health.AvgSnapshotSize)
	if health.Healthy {
		fmt.Println("  healthy")
		return nil
	}
	return fmt.Errorf("retrieval health check failed")
}

func readSnapshot(path string) ([]domain.RetrievedChunk, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer f.Close()

	var results []domain.RetrievedChunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 1024*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var chunk domain.RetrievedChunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			return nil, fmt.Errorf("malformed snapshot line: %w", err)
		}
		results = append(results, chunk)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	return results, nil
}

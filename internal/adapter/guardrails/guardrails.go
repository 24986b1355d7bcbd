// Package guardrails validates locked configurations against hard
// operational caps and checks retrieval-time health signals. Everything
// here reports structured results; nothing panics or returns an error.
package guardrails

import (
	"fmt"
	"strings"

	"chunklock/internal/domain"
)

// Hard caps: configurations beyond these are rejected outright.
const (
	MaxChunkSize    = 1000
	MaxOverlapRatio = 0.5
)

// MinSafeJaccard is the threshold below which dedup becomes aggressive
// enough to warrant a warning.
const MinSafeJaccard = 0.5

// ConfigReport is the structured outcome of a config validation.
type ConfigReport struct {
	Valid      bool     `json:"valid"`
	Issues     []string `json:"issues,omitempty"`
	Warnings   []string `json:"warnings,omitempty"`
	ConfigHash string   `json:"config_hash"`
}

// ValidateConfig checks a locked config against the hard caps.
func ValidateConfig(cfg domain.LockedConfig) ConfigReport {
	report := ConfigReport{ConfigHash: cfg.ConfigHash()}

	if cfg.ChunkSize > MaxChunkSize {
		report.Issues = append(report.Issues,
			fmt.Sprintf("Chunk size too large: %d exceeds the %d token cap", cfg.ChunkSize, MaxChunkSize))
	}
	if cfg.OverlapRatio > MaxOverlapRatio {
		report.Issues = append(report.Issues,
			fmt.Sprintf("Overlap ratio too high: %.2f exceeds %.2f", cfg.OverlapRatio, MaxOverlapRatio))
	}
	if cfg.JaccardThreshold < MinSafeJaccard {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Jaccard threshold %.2f below %.2f may drop distinct chunks", cfg.JaccardThreshold, MinSafeJaccard))
	}
	if cfg.TokenizerName == "" || cfg.TokenizerHash == "" {
		report.Warnings = append(report.Warnings,
			"tokenizer identity unresolved; chunk token counts are heuristic")
	}

	report.Valid = len(report.Issues) == 0
	return report
}

// RetrievalHealth summarizes health signals over a retrieval snapshot.
type RetrievalHealth struct {
	Healthy         bool    `json:"healthy"`
	PrefixLeaks     int     `json:"prefix_leaks"`
	OverBudget      int     `json:"over_budget"`
	AvgSnapshotSize float64 `json:"avg_snapshot_size"`
}

// CheckRetrievalHealth flags BM25 texts carrying the contextual-prefix
// marker under policy A (leakage), counts embeddings over the chunk-size
// budget and reports the average embedding-text size of the snapshot.
func CheckRetrievalHealth(results []domain.RetrievedChunk, cfg domain.LockedConfig) RetrievalHealth {
	health := RetrievalHealth{}

	totalSize := 0
	for _, r := range results {
		if cfg.PrefixPolicy == domain.PrefixPolicyA &&
			strings.HasPrefix(r.BM25Text, domain.ContextPrefixMarker) {
			health.PrefixLeaks++
		}
		embTokens := r.TokenCounts.Embedding
		if embTokens == 0 {
			// Stored records always carry counts; fall back to a word count
			// for snapshots assembled by hand.
			embTokens = len(strings.Fields(r.EmbeddingText))
		}
		if embTokens > cfg.ChunkSize {
			health.OverBudget++
		}
		totalSize += len(r.EmbeddingText)
	}
	if len(results) > 0 {
		health.AvgSnapshotSize = float64(totalSize) / float64(len(results))
	}

	health.Healthy = health.PrefixLeaks == 0 && health.OverBudget == 0
	return health
}

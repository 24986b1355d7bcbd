package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// PrefixPolicy controls whether the contextual prefix is carried into the
// BM25 text. Policy A keeps the BM25 text bare; policy B prefixes both.
type PrefixPolicy string

const (
	PrefixPolicyA PrefixPolicy = "A"
	PrefixPolicyB PrefixPolicy = "B"
)

// MaxOverlapTokens caps the derived overlap regardless of chunk size.
const MaxOverlapTokens = 200

// ChunkingConfig drives a single run of the chunking engine.
type ChunkingConfig struct {
	EmbedderName        string       `json:"embedder_name"`
	ChunkSize           int          `json:"chunk_size"`
	OverlapRatio        float64      `json:"overlap_ratio"`
	MaxTokens           int          `json:"max_tokens"`
	NgramSize           int          `json:"ngram_size"`
	JaccardThreshold    float64      `json:"jaccard_threshold"`
	UseContextualPrefix bool         `json:"use_contextual_prefix"`
	PrefixPolicy        PrefixPolicy `json:"prefix_policy"`
	ChunkVersion        string       `json:"chunk_version"`
	IngestRunID         string       `json:"ingest_run_id"`
}

// NewChunkingConfig validates the overlap invariant at construction time so
// a bad ratio can never surface mid-pipeline.
func NewChunkingConfig(cfg ChunkingConfig) (ChunkingConfig, error) {
	if err := cfg.Validate(); err != nil {
		return ChunkingConfig{}, err
	}
	return cfg, nil
}

// Validate checks the derived-overlap invariant: 0 < overlap < chunk_size.
func (c ChunkingConfig) Validate() error {
	if c.ChunkSize <= 0 {
		return fmt.Errorf("invalid chunking config: chunk_size must be positive, got %d", c.ChunkSize)
	}
	overlap := c.Overlap()
	if overlap <= 0 || overlap >= c.ChunkSize {
		return fmt.Errorf("invalid chunking config: overlap %d out of range for chunk_size %d (overlap_ratio %.3f)",
			overlap, c.ChunkSize, c.OverlapRatio)
	}
	return nil
}

// Overlap returns the derived token overlap: min(round(size*ratio), 200).
func (c ChunkingConfig) Overlap() int {
	overlap := int(math.Round(float64(c.ChunkSize) * c.OverlapRatio))
	if overlap > MaxOverlapTokens {
		overlap = MaxOverlapTokens
	}
	return overlap
}

// hashedParams is the canonical identity tuple of a configuration. Struct
// marshaling guarantees a fixed key order, so the hash is invariant under any
// reordering of a serialized form a caller may have round-tripped through.
type hashedParams struct {
	ChunkSize        int     `json:"chunk_size"`
	OverlapRatio     float64 `json:"overlap_ratio"`
	JaccardThreshold float64 `json:"jaccard_threshold"`
	PrefixPolicy     string  `json:"prefix_policy"`
	EmbedderName     string  `json:"embedder_name"`
}

// ConfigHash returns the truncated sha256 identity of the tuning parameters
// that change chunk output.
func (c ChunkingConfig) ConfigHash() string {
	params := hashedParams{
		ChunkSize:        c.ChunkSize,
		OverlapRatio:     c.OverlapRatio,
		JaccardThreshold: c.JaccardThreshold,
		PrefixPolicy:     string(c.PrefixPolicy),
		EmbedderName:     c.EmbedderName,
	}
	data, _ := json.Marshal(params)
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])[:16]
}

// LockedConfig is an immutable snapshot of a chunking configuration together
// with tokenizer identity and promotion state. Once locked, the tuning fields
// never change; promotion only flips IsProduction and assigns ShadowTable.
type LockedConfig struct {
	EmbedderName        string       `json:"embedder_name"`
	ChunkSize           int          `json:"chunk_size"`
	OverlapRatio        float64      `json:"overlap_ratio"`
	MaxTokens           int          `json:"max_tokens"`
	NgramSize           int          `json:"ngram_size"`
	JaccardThreshold    float64      `json:"jaccard_threshold"`
	UseContextualPrefix bool         `json:"use_contextual_prefix"`
	PrefixPolicy        PrefixPolicy `json:"prefix_policy"`
	ChunkVersion        string       `json:"chunk_version"`

	TokenizerName   string             `json:"tokenizer_name"`
	TokenizerHash   string             `json:"tokenizer_hash"`
	CreatedAt       time.Time          `json:"created_at"`
	CreatedBy       string             `json:"created_by"`
	BaselineMetrics map[string]float64 `json:"baseline_metrics,omitempty"`
	IsLocked        bool               `json:"is_locked"`
	IsProduction    bool               `json:"is_production"`
	ShadowTable     string             `json:"shadow_table,omitempty"`
}

// ConfigHash returns the identity hash of the locked tuning parameters.
// It deliberately bypasses ChunkingConfig(), which derives IngestRunID from
// this hash; routing through it would recurse.
func (c LockedConfig) ConfigHash() string {
	return ChunkingConfig{
		EmbedderName:     c.EmbedderName,
		ChunkSize:        c.ChunkSize,
		OverlapRatio:     c.OverlapRatio,
		JaccardThreshold: c.JaccardThreshold,
		PrefixPolicy:     c.PrefixPolicy,
	}.ConfigHash()
}

// ChunkingConfig derives the engine-facing config from a locked snapshot.
func (c LockedConfig) ChunkingConfig() ChunkingConfig {
	return ChunkingConfig{
		EmbedderName:        c.EmbedderName,
		ChunkSize:           c.ChunkSize,
		OverlapRatio:        c.OverlapRatio,
		MaxTokens:           c.MaxTokens,
		NgramSize:           c.NgramSize,
		JaccardThreshold:    c.JaccardThreshold,
		UseContextualPrefix: c.UseContextualPrefix,
		PrefixPolicy:        c.PrefixPolicy,
		ChunkVersion:        c.ChunkVersion,
		IngestRunID:         c.IngestRunID(),
	}
}

// IngestRunID returns the shared identity key "{chunk_version}-{hash[:8]}"
// stamped on every chunk produced under this configuration.
func (c LockedConfig) IngestRunID() string {
	return c.ChunkVersion + "-" + c.ConfigHash()[:8]
}

// DocumentMeta describes the source document a chunk came from.
type DocumentMeta struct {
	SourcePath  string `json:"source_path"`
	Title       string `json:"title"`
	SectionPath string `json:"section_path,omitempty"`
	ContentType string `json:"content_type"`
}

// TokenCounts holds per-variant token counts of a dual-text chunk.
type TokenCounts struct {
	Embedding int `json:"embedding"`
	BM25      int `json:"bm25"`
}

// ChunkMetadata is the record metadata the storage collaborator indexes and
// the determinism manager later cross-checks at evaluation time.
type ChunkMetadata struct {
	IngestRunID  string `json:"ingest_run_id"`
	ChunkVersion string `json:"chunk_version"`
	ConfigHash   string `json:"config_hash"`
	ChunkSize    int    `json:"chunk_size"`
	SourcePath   string `json:"source_path"`
	Title        string `json:"title,omitempty"`
	SectionPath  string `json:"section_path,omitempty"`
	ContentType  string `json:"content_type,omitempty"`
	ChunkIndex   int    `json:"chunk_index"`
}

// Chunk is one immutable dual-text record produced by the chunking engine.
type Chunk struct {
	ChunkID       string        `json:"chunk_id"`
	EmbeddingText string        `json:"embedding_text"`
	BM25Text      string        `json:"bm25_text"`
	TokenCounts   TokenCounts   `json:"token_counts"`
	Metadata      ChunkMetadata `json:"metadata"`
}

// ChunkID derives the deterministic id of a chunk:
// sha256(embedding_text)[:16] + "-" + sha256(config params)[:8].
func ChunkID(embeddingText string, cfg ChunkingConfig) string {
	textHash := sha256.Sum256([]byte(embeddingText))
	return hex.EncodeToString(textHash[:])[:16] + "-" + cfg.ConfigHash()[:8]
}

// TokenDistribution summarizes token lengths across a set of sections or
// chunks.
type TokenDistribution struct {
	Count int `json:"count"`
	P50   int `json:"p50"`
	P95   int `json:"p95"`
	Max   int `json:"max"`
}

// ChunkMetrics aggregates one document's chunking run.
type ChunkMetrics struct {
	ChunkCount      int               `json:"chunk_count"`
	PreSplitTokens  TokenDistribution `json:"pre_split_tokens"`
	PostSplitTokens TokenDistribution `json:"post_split_tokens"`
	OverBudget      int               `json:"over_budget"`
	ProcessingTime  time.Duration     `json:"processing_time"`
	TimePer1KTokens time.Duration     `json:"time_per_1k_tokens"`
}

// RetrievedChunk is the evaluation-time view of a stored chunk: the dual
// texts plus whatever metadata the storage layer echoed back.
type RetrievedChunk struct {
	ChunkID       string        `json:"chunk_id"`
	EmbeddingText string        `json:"embedding_text"`
	BM25Text      string        `json:"bm25_text"`
	TokenCounts   TokenCounts   `json:"token_counts"`
	Metadata      ChunkMetadata `json:"metadata"`
}

// ValidationResult is the structured outcome of every guardrail and
// determinism check. Violations are reported, never raised.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Issues   []string `json:"issues,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// DeterminismConfig fixes the reproducibility switches an evaluation run
// must hold constant.
type DeterminismConfig struct {
	Temperature      float64 `json:"temperature"`
	Seed             int64   `json:"seed"`
	DisableCache     bool    `json:"disable_cache"`
	MinSnapshotSize  int     `json:"min_retrieval_snapshot_size"`
	SnapshotWarnBand int     `json:"snapshot_warn_band"`
}

// DefaultDeterminismConfig returns the fixed evaluation switches.
func DefaultDeterminismConfig() DeterminismConfig {
	return DeterminismConfig{
		Temperature:      0,
		Seed:             42,
		DisableCache:     true,
		MinSnapshotSize:  30,
		SnapshotWarnBand: 50,
	}
}

// FewShotExample is one in-context example shown to the model.
type FewShotExample struct {
	ID       string `json:"id,omitempty"`
	Question string `json:"question"`
	Answer   string `json:"answer,omitempty"`
}

// PromptAudit is the append-only fingerprint of one audited prompt, linked
// to the configuration identity the evaluation ran under.
type PromptAudit struct {
	SessionID     string    `json:"session_id"`
	PromptHash    string    `json:"prompt_hash"`
	FewShotIDs    []string  `json:"few_shot_ids,omitempty"`
	CoTEnabled    bool      `json:"cot_enabled"`
	ModelName     string    `json:"model_name"`
	TokenEstimate int       `json:"token_estimate"`
	IngestRunID   string    `json:"ingest_run_id"`
	ConfigHash    string    `json:"config_hash"`
	FewShotLeak   bool      `json:"few_shot_leak"`
	CreatedAt     time.Time `json:"created_at"`
}

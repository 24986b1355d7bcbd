package domain

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseConfig() ChunkingConfig {
	return ChunkingConfig{
		EmbedderName:        "text-embedding-3-small",
		ChunkSize:           450,
		OverlapRatio:        0.15,
		MaxTokens:           600,
		NgramSize:           5,
		JaccardThreshold:    0.85,
		UseContextualPrefix: true,
		PrefixPolicy:        PrefixPolicyA,
		ChunkVersion:        "2025-01-01-120000-v1",
	}
}

func TestOverlapInvariant(t *testing.T) {
	sizes := []int{10, 50, 100, 450, 1000, 2000}
	ratios := []float64{0.01, 0.04, 0.10, 0.15, 0.49, 0.90, 0.99}

	for _, size := range sizes {
		for _, ratio := range ratios {
			cfg := baseConfig()
			cfg.ChunkSize = size
			cfg.OverlapRatio = ratio

			overlap := int(math.Round(float64(size) * ratio))
			if overlap > MaxOverlapTokens {
				overlap = MaxOverlapTokens
			}
			wantValid := overlap > 0 && overlap < size

			_, err := NewChunkingConfig(cfg)
			if wantValid {
				require.NoError(t, err, "size=%d ratio=%.2f", size, ratio)
				assert.Equal(t, overlap, cfg.Overlap())
			} else {
				require.Error(t, err, "size=%d ratio=%.2f", size, ratio)
			}
		}
	}
}

func TestOverlapCappedAt200(t *testing.T) {
	cfg := baseConfig()
	cfg.ChunkSize = 2000
	cfg.OverlapRatio = 0.5

	assert.Equal(t, 200, cfg.Overlap())
}

func TestConfigHashKeyOrderInvariant(t *testing.T) {
	cfg := baseConfig()
	want := cfg.ConfigHash()

	// Round-trip the identity fields through JSON with keys in a different
	// order than the canonical struct; the hash must not change.
	reordered := `{
		"embedder_name": "text-embedding-3-small",
		"prefix_policy": "A",
		"jaccard_threshold": 0.85,
		"overlap_ratio": 0.15,
		"chunk_size": 450
	}`
	var decoded ChunkingConfig
	require.NoError(t, json.Unmarshal([]byte(reordered), &decoded))

	assert.Equal(t, want, decoded.ConfigHash())
}

func TestConfigHashSensitivity(t *testing.T) {
	base := baseConfig().ConfigHash()

	mutations := map[string]func(*ChunkingConfig){
		"chunk_size":        func(c *ChunkingConfig) { c.ChunkSize = 451 },
		"overlap_ratio":     func(c *ChunkingConfig) { c.OverlapRatio = 0.16 },
		"jaccard_threshold": func(c *ChunkingConfig) { c.JaccardThreshold = 0.84 },
		"prefix_policy":     func(c *ChunkingConfig) { c.PrefixPolicy = PrefixPolicyB },
		"embedder_name":     func(c *ChunkingConfig) { c.EmbedderName = "text-embedding-3-large" },
	}
	for name, mutate := range mutations {
		cfg := baseConfig()
		mutate(&cfg)
		assert.NotEqual(t, base, cfg.ConfigHash(), "mutating %s must change the hash", name)
	}

	// Fields outside the identity tuple must not affect the hash.
	cfg := baseConfig()
	cfg.MaxTokens = 9999
	cfg.NgramSize = 3
	cfg.ChunkVersion = "other"
	assert.Equal(t, base, cfg.ConfigHash())
}

func TestChunkIDFormat(t *testing.T) {
	cfg := baseConfig()
	id := ChunkID("some embedding text", cfg)

	parts := strings.Split(id, "-")
	require.Len(t, parts, 2)
	assert.Len(t, parts[0], 16)
	assert.Len(t, parts[1], 8)
	assert.Equal(t, cfg.ConfigHash()[:8], parts[1])

	// Deterministic.
	assert.Equal(t, id, ChunkID("some embedding text", cfg))
	assert.NotEqual(t, id, ChunkID("other embedding text", cfg))
}

func TestLockedConfigIngestRunID(t *testing.T) {
	locked := LockedConfig{
		EmbedderName:     "text-embedding-3-small",
		ChunkSize:        450,
		OverlapRatio:     0.15,
		JaccardThreshold: 0.85,
		PrefixPolicy:     PrefixPolicyA,
		ChunkVersion:     "2025-01-01-120000-v1",
	}

	runID := locked.IngestRunID()
	assert.Equal(t, "2025-01-01-120000-v1-"+locked.ConfigHash()[:8], runID)
}

func TestContextPrefix(t *testing.T) {
	meta := DocumentMeta{
		Title:       "API Guide",
		SectionPath: "docs > reference",
		ContentType: "markdown",
	}
	prefix := ContextPrefix(meta)
	assert.True(t, strings.HasPrefix(prefix, ContextPrefixMarker))
	assert.Contains(t, prefix, "API Guide")
	assert.Contains(t, prefix, "docs > reference")
	assert.Contains(t, prefix, "markdown")
	assert.True(t, strings.HasSuffix(prefix, "\n\n"))

	assert.Equal(t, "", ContextPrefix(DocumentMeta{}))
}

func TestDefaultDeterminismConfig(t *testing.T) {
	det := DefaultDeterminismConfig()
	assert.Equal(t, float64(0), det.Temperature)
	assert.True(t, det.DisableCache)
	assert.Equal(t, 30, det.MinSnapshotSize)
	assert.Equal(t, 50, det.SnapshotWarnBand)
}

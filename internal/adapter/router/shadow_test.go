package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"chunklock/internal/adapter/store"
	"chunklock/internal/domain"
)

func lockedFixture() domain.LockedConfig {
	return domain.LockedConfig{
		EmbedderName:     "text-embedding-3-small",
		ChunkSize:        450,
		OverlapRatio:     0.15,
		JaccardThreshold: 0.85,
		PrefixPolicy:     domain.PrefixPolicyA,
		ChunkVersion:     "2025-01-01-120000-v1",
	}
}

func TestRetrievalTableRouting(t *testing.T) {
	cfg := lockedFixture()

	// Not promoted: every request lands on the primary table.
	r := New(cfg)
	assert.Equal(t, store.PrimaryTable, r.RetrievalTable(false))
	assert.Equal(t, store.PrimaryTable, r.RetrievalTable(true))

	// Promoted with a shadow table: only an explicit opt-in routes there.
	cfg.IsProduction = true
	cfg.ShadowTable = store.ShadowTableName(cfg.ChunkVersion)
	r = New(cfg)
	assert.Equal(t, store.PrimaryTable, r.RetrievalTable(false))
	assert.Equal(t, "document_chunks_2025_01_01_120000_v1", r.RetrievalTable(true))

	// Production flag without a shadow table falls back to the primary.
	cfg.ShadowTable = ""
	r = New(cfg)
	assert.Equal(t, store.PrimaryTable, r.RetrievalTable(true))
}

func TestIngestRunIDShape(t *testing.T) {
	cfg := lockedFixture()
	r := New(cfg)

	id := r.IngestRunID()
	assert.Equal(t, cfg.ChunkVersion+"-"+cfg.ConfigHash()[:8], id)
}

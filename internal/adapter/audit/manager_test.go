package audit

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chunklock/internal/adapter/store"
	"chunklock/internal/domain"
)

type wordTokenizer struct{}

func (wordTokenizer) TokenLen(text string) int { return len(strings.Fields(text)) }

func (wordTokenizer) Encode(text string) []int {
	return make([]int, len(strings.Fields(text)))
}

func (wordTokenizer) Decode(ids []int) string { return "" }

func (wordTokenizer) Fingerprint() (string, string) { return "word-split", "test" }

func activeFixture() domain.LockedConfig {
	return domain.LockedConfig{
		EmbedderName:     "text-embedding-3-small",
		ChunkSize:        450,
		OverlapRatio:     0.15,
		JaccardThreshold: 0.85,
		PrefixPolicy:     domain.PrefixPolicyA,
		ChunkVersion:     "2025-01-01-120000-v1",
		IsLocked:         true,
	}
}

func newTestManager(sink AuditSink) *Manager {
	return NewManager(activeFixture(), domain.DefaultDeterminismConfig(), wordTokenizer{}, sink)
}

func TestManagerRunIdentity(t *testing.T) {
	active := activeFixture()
	m := newTestManager(nil)

	assert.Equal(t, active.IngestRunID(), m.ExpectedRunID())
	assert.NotEmpty(t, m.SessionID())
	assert.Equal(t, 0.0, m.Determinism().Temperature)
	assert.Equal(t, int64(42), m.Determinism().Seed)
	assert.True(t, m.Determinism().DisableCache)
}

func TestAuditPrompt(t *testing.T) {
	m := newTestManager(nil)
	fewShot := []domain.FewShotExample{
		{ID: "ex-1", Question: "How do I install?", Answer: "Run make install."},
		{Question: "How do I upgrade?", Answer: "Run make upgrade."},
	}

	entry, err := m.AuditPrompt("What ports does the server use?", fewShot, true, "gpt-4o-mini")
	require.NoError(t, err)

	assert.Equal(t, m.SessionID(), entry.SessionID)
	assert.Len(t, entry.PromptHash, 16)
	require.Len(t, entry.FewShotIDs, 2)
	assert.Equal(t, "ex-1", entry.FewShotIDs[0])
	// The second example has no explicit id: a question hash stands in.
	assert.Len(t, entry.FewShotIDs[1], 12)
	assert.True(t, entry.CoTEnabled)
	assert.Equal(t, "gpt-4o-mini", entry.ModelName)
	assert.Equal(t, 6, entry.TokenEstimate)
	assert.Equal(t, m.ExpectedRunID(), entry.IngestRunID)
	assert.Equal(t, activeFixture().ConfigHash(), entry.ConfigHash)
	assert.False(t, entry.FewShotLeak)
	assert.False(t, entry.CreatedAt.IsZero())
}

func TestAuditPromptFewShotLeak(t *testing.T) {
	m := newTestManager(nil)
	fewShot := []domain.FewShotExample{{Question: "How do I install?"}}

	first, err := m.AuditPrompt("What ports does the server use?", fewShot, false, "gpt-4o-mini")
	require.NoError(t, err)
	assert.False(t, first.FewShotLeak)

	// The evaluation question matches a question already shown in-context.
	second, err := m.AuditPrompt("How do I install?", nil, false, "gpt-4o-mini")
	require.NoError(t, err)
	assert.True(t, second.FewShotLeak)
}

func TestAuditPromptPersistsToSink(t *testing.T) {
	st, err := store.NewBoltStore(filepath.Join(t.TempDir(), "configs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	m := newTestManager(st)
	_, err = m.AuditPrompt("first question", nil, false, "gpt-4o-mini")
	require.NoError(t, err)
	_, err = m.AuditPrompt("second question", nil, false, "gpt-4o-mini")
	require.NoError(t, err)

	audits, err := st.PromptAudits()
	require.NoError(t, err)
	require.Len(t, audits, 2)
	assert.Equal(t, m.SessionID(), audits[0].SessionID)
	assert.NotEqual(t, audits[0].PromptHash, audits[1].PromptHash)
}

func TestValidateRetrievalBreadth(t *testing.T) {
	m := newTestManager(nil)

	snapshot := make([]domain.RetrievedChunk, 29)
	result := m.ValidateRetrievalBreadth(snapshot)
	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 1)
	assert.Contains(t, result.Issues[0], "too thin: 29 < 30")

	snapshot = make([]domain.RetrievedChunk, 30)
	result = m.ValidateRetrievalBreadth(snapshot)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "below the comfortable band")

	snapshot = make([]domain.RetrievedChunk, 50)
	result = m.ValidateRetrievalBreadth(snapshot)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Warnings)
}

func TestValidateOracleSanity(t *testing.T) {
	m := newTestManager(nil)

	result := m.ValidateOracleSanity(0)
	assert.False(t, result.Valid)
	assert.NotEmpty(t, result.Issues)

	result = m.ValidateOracleSanity(0.05)
	assert.False(t, result.Valid)
	assert.Empty(t, result.Issues)
	assert.NotEmpty(t, result.Warnings)

	result = m.ValidateOracleSanity(0.5)
	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)
	assert.Empty(t, result.Warnings)
}

func TestValidateRunIDGating(t *testing.T) {
	m := newTestManager(nil)

	good := domain.RetrievedChunk{
		ChunkID: "aaaa",
		Metadata: domain.ChunkMetadata{
			IngestRunID: m.ExpectedRunID(),
			ChunkSize:   450,
		},
	}
	staleRun := domain.RetrievedChunk{
		ChunkID: "bbbb",
		Metadata: domain.ChunkMetadata{
			IngestRunID: "2024-06-01-090000-v1-deadbeef",
			ChunkSize:   450,
		},
	}
	wrongSize := domain.RetrievedChunk{
		ChunkID: "cccc",
		Metadata: domain.ChunkMetadata{
			IngestRunID: m.ExpectedRunID(),
			ChunkSize:   300,
		},
	}
	// A zero chunk size means the metadata predates size stamping; only the
	// run id is enforced then.
	legacy := domain.RetrievedChunk{
		ChunkID:  "dddd",
		Metadata: domain.ChunkMetadata{IngestRunID: m.ExpectedRunID()},
	}

	result := m.ValidateRunIDGating([]domain.RetrievedChunk{good, legacy})
	assert.True(t, result.Valid)
	assert.Empty(t, result.Issues)

	result = m.ValidateRunIDGating([]domain.RetrievedChunk{good, staleRun, wrongSize})
	assert.False(t, result.Valid)
	require.Len(t, result.Issues, 2)
	assert.Contains(t, result.Issues[0], "bbbb")
	assert.Contains(t, result.Issues[1], "cccc")
}

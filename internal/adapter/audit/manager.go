// Package audit seeds reproducibility settings from the active locked
// config, fingerprints every prompt an evaluation builds, and validates the
// signals that prove a run used the configuration it claims. All checks
// report structured results; the evaluation harness decides what is fatal.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"chunklock/internal/domain"
	"chunklock/internal/port"
)

// AuditSink receives append-only prompt audit entries.
type AuditSink interface {
	AppendPromptAudit(audit domain.PromptAudit) error
}

// Manager holds a read-only view of the active locked config for the
// duration of one evaluation run. The (ingest run id, chunk version, config
// hash) triple it derives is the single source of truth every other stage
// must agree with.
type Manager struct {
	det       domain.DeterminismConfig
	sessionID string

	ingestRunID  string
	chunkVersion string
	configHash   string
	chunkSize    int

	tok  port.Tokenizer
	sink AuditSink

	seenQuestions map[string]struct{}
}

// NewManager derives the run identity from the active locked config. The
// sink may be nil; audits are then only returned, not persisted.
func NewManager(active domain.LockedConfig, det domain.DeterminismConfig, tok port.Tokenizer, sink AuditSink) *Manager {
	return &Manager{
		det:           det,
		sessionID:     uuid.NewString(),
		ingestRunID:   active.IngestRunID(),
		chunkVersion:  active.ChunkVersion,
		configHash:    active.ConfigHash(),
		chunkSize:     active.ChunkSize,
		tok:           tok,
		sink:          sink,
		seenQuestions: make(map[string]struct{}),
	}
}

// Determinism returns the fixed reproducibility switches of this run.
func (m *Manager) Determinism() domain.DeterminismConfig { return m.det }

// SessionID identifies this evaluation session in the audit log.
func (m *Manager) SessionID() string { return m.sessionID }

// ExpectedRunID is the ingest run id every retrieved chunk must carry.
func (m *Manager) ExpectedRunID() string { return m.ingestRunID }

// AuditPrompt fingerprints one prompt: hash prefix, few-shot example ids,
// token estimate and linkage to the run identity. A prompt that exactly
// matches a previously seen few-shot question is flagged as leakage, not
// rejected.
func (m *Manager) AuditPrompt(prompt string, fewShot []domain.FewShotExample, cotEnabled bool, modelName string) (domain.PromptAudit, error) {
	hash := sha256.Sum256([]byte(prompt))

	ids := make([]string, 0, len(fewShot))
	for _, ex := range fewShot {
		ids = append(ids, fewShotID(ex))
	}

	_, leaked := m.seenQuestions[prompt]
	for _, ex := range fewShot {
		m.seenQuestions[ex.Question] = struct{}{}
	}

	entry := domain.PromptAudit{
		SessionID:     m.sessionID,
		PromptHash:    hex.EncodeToString(hash[:])[:16],
		FewShotIDs:    ids,
		CoTEnabled:    cotEnabled,
		ModelName:     modelName,
		TokenEstimate: m.tok.TokenLen(prompt),
		IngestRunID:   m.ingestRunID,
		ConfigHash:    m.configHash,
		FewShotLeak:   leaked,
		CreatedAt:     time.Now().UTC(),
	}

	if m.sink != nil {
		if err := m.sink.AppendPromptAudit(entry); err != nil {
			return entry, fmt.Errorf("failed to persist prompt audit: %w", err)
		}
	}
	return entry, nil
}

// fewShotID prefers the explicit example id, else a hash of the question.
func fewShotID(ex domain.FewShotExample) string {
	if ex.ID != "" {
		return ex.ID
	}
	hash := sha256.Sum256([]byte(ex.Question))
	return hex.EncodeToString(hash[:])[:12]
}

// ValidateRetrievalBreadth rejects snapshots thinner than the minimum and
// warns inside the band above it.
func (m *Manager) ValidateRetrievalBreadth(snapshot []domain.RetrievedChunk) domain.ValidationResult {
	result := domain.ValidationResult{Valid: true}
	n := len(snapshot)

	if n < m.det.MinSnapshotSize {
		result.Valid = false
		result.Issues = append(result.Issues,
			fmt.Sprintf("retrieval snapshot too thin: %d < %d", n, m.det.MinSnapshotSize))
		return result
	}
	if n < m.det.SnapshotWarnBand {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("retrieval snapshot of %d is below the comfortable band of %d", n, m.det.SnapshotWarnBand))
	}
	return result
}

// ValidateOracleSanity rejects runs whose oracle hit rate indicates broken
// ground truth or retrieval wiring. A barely-positive rate is reported
// invalid with a warning rather than an error.
func (m *Manager) ValidateOracleSanity(oracleHit float64) domain.ValidationResult {
	result := domain.ValidationResult{Valid: true}

	if oracleHit <= 0 {
		result.Valid = false
		result.Issues = append(result.Issues,
			fmt.Sprintf("oracle hit rate %.3f: ground truth or retrieval wiring is broken", oracleHit))
		return result
	}
	if oracleHit < 0.1 {
		result.Valid = false
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("oracle hit rate %.3f is suspiciously low", oracleHit))
	}
	return result
}

// ValidateRunIDGating checks that every retrieved chunk was produced under
// the expected configuration: its ingest run id must match, and its chunk
// size metadata, when present, must match too. Mismatches are collected so
// the caller can abort the evaluation.
func (m *Manager) ValidateRunIDGating(snapshot []domain.RetrievedChunk) domain.ValidationResult {
	result := domain.ValidationResult{Valid: true}

	for _, chunk := range snapshot {
		if chunk.Metadata.IngestRunID != m.ingestRunID {
			result.Issues = append(result.Issues,
				fmt.Sprintf("chunk %s: ingest_run_id %q does not match expected %q",
					chunk.ChunkID, chunk.Metadata.IngestRunID, m.ingestRunID))
		}
		if chunk.Metadata.ChunkSize != 0 && chunk.Metadata.ChunkSize != m.chunkSize {
			result.Issues = append(result.Issues,
				fmt.Sprintf("chunk %s: chunk_size %d does not match expected %d",
					chunk.ChunkID, chunk.Metadata.ChunkSize, m.chunkSize))
		}
	}

	result.Valid = len(result.Issues) == 0
	return result
}

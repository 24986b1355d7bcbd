package usecase

import (
	"fmt"

	"chunklock/internal/adapter/audit"
	"chunklock/internal/domain"
	"chunklock/internal/port"
)

// IdentityPins is the run identity an evaluation was told to measure,
// typically from CHUNK_VERSION / INGEST_RUN_ID / CONFIG_HASH overrides.
// Empty fields are unpinned.
type IdentityPins struct {
	ChunkVersion string
	IngestRunID  string
	ConfigHash   string
}

// NewEvalSession cross-checks the pinned identity against the active locked
// config and builds the determinism manager for the run. A mismatched pin
// means the evaluation would measure a different corpus than it claims, so
// the session is refused.
func NewEvalSession(active domain.LockedConfig, pins IdentityPins, det domain.DeterminismConfig, tok port.Tokenizer, sink audit.AuditSink) (*audit.Manager, error) {
	if pins.ChunkVersion != "" && pins.ChunkVersion != active.ChunkVersion {
		return nil, fmt.Errorf("pinned chunk_version %q does not match active %q", pins.ChunkVersion, active.ChunkVersion)
	}
	if pins.IngestRunID != "" && pins.IngestRunID != active.IngestRunID() {
		return nil, fmt.Errorf("pinned ingest_run_id %q does not match active %q", pins.IngestRunID, active.IngestRunID())
	}
	if pins.ConfigHash != "" && pins.ConfigHash != active.ConfigHash() {
		return nil, fmt.Errorf("pinned config_hash %q does not match active %q", pins.ConfigHash, active.ConfigHash())
	}
	return audit.NewManager(active, det, tok, sink), nil
}

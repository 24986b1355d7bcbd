package port

import "chunklock/internal/domain"

// ConfigStore owns locked-configuration history and the single active
// pointer. History entries are append-only; the pointer swap is
// transactional so concurrent lock/promote calls cannot interleave.
type ConfigStore interface {
	// LockConfig appends cfg to history under its chunk version and swaps
	// the active pointer to it. Locking an already-present version fails.
	LockConfig(cfg domain.LockedConfig) error

	// ActiveConfig returns the active locked config, or (nil, nil) when no
	// configuration has ever been locked. A present-but-unreadable pointer
	// is reported as ErrCorruptConfig.
	ActiveConfig() (*domain.LockedConfig, error)

	// GetVersion returns the history entry for a chunk version.
	GetVersion(version string) (*domain.LockedConfig, error)

	// History returns all locked configs ordered by chunk version.
	History() ([]domain.LockedConfig, error)

	// PromoteToProduction marks the given version as production, derives
	// its shadow table and swaps the active pointer. The locked tuning
	// fields of the history entry are never rewritten.
	PromoteToProduction(version string) (*domain.LockedConfig, error)

	// AppendPromptAudit records one prompt audit entry. Entries are
	// append-only and never mutated.
	AppendPromptAudit(audit domain.PromptAudit) error

	// PromptAudits returns all recorded audit entries in insertion order.
	PromptAudits() ([]domain.PromptAudit, error)

	Close() error
}

package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"chunklock/internal/adapter/guardrails"
	"chunklock/internal/adapter/store"
	"chunklock/internal/adapter/tokenizer"
	"chunklock/internal/domain"
	"chunklock/internal/port"
)

// LockUseCase drives the locked-configuration lifecycle: create, lock,
// promote, inspect.
type LockUseCase struct {
	store    port.ConfigStore
	exporter *store.Exporter
	now      func() time.Time
}

// NewLockUseCase creates a lock use case. The exporter may be nil to skip
// mirroring the JSON file layout.
func NewLockUseCase(st port.ConfigStore, exporter *store.Exporter) *LockUseCase {
	return &LockUseCase{store: st, exporter: exporter, now: time.Now}
}

// CreateLockedConfig resolves tokenizer identity for the embedder, stamps a
// timestamp version and returns the unlocked in-memory snapshot. The overlap
// invariant is enforced here, before anything is persisted.
func (u *LockUseCase) CreateLockedConfig(chunking domain.ChunkingConfig, createdBy string, baseline map[string]float64) (domain.LockedConfig, error) {
	if _, err := domain.NewChunkingConfig(chunking); err != nil {
		return domain.LockedConfig{}, err
	}

	tokName, tokHash := tokenizer.New(chunking.EmbedderName).Fingerprint()

	version, err := u.nextVersion()
	if err != nil {
		return domain.LockedConfig{}, err
	}

	return domain.LockedConfig{
		EmbedderName:        chunking.EmbedderName,
		ChunkSize:           chunking.ChunkSize,
		OverlapRatio:        chunking.OverlapRatio,
		MaxTokens:           chunking.MaxTokens,
		NgramSize:           chunking.NgramSize,
		JaccardThreshold:    chunking.JaccardThreshold,
		UseContextualPrefix: chunking.UseContextualPrefix,
		PrefixPolicy:        chunking.PrefixPolicy,
		ChunkVersion:        version,
		TokenizerName:       tokName,
		TokenizerHash:       tokHash,
		CreatedAt:           u.now().UTC(),
		CreatedBy:           createdBy,
		BaselineMetrics:     baseline,
		IsLocked:            false,
	}, nil
}

// nextVersion stamps "YYYY-MM-DD-HHMMSS-vN", bumping N on a same-second
// collision with an existing history entry.
func (u *LockUseCase) nextVersion() (string, error) {
	stamp := u.now().UTC().Format("2006-01-02-150405")
	for n := 1; ; n++ {
		version := fmt.Sprintf("%s-v%d", stamp, n)
		_, err := u.store.GetVersion(version)
		if errors.Is(err, store.ErrVersionNotFound) {
			return version, nil
		}
		if err != nil {
			return "", fmt.Errorf("failed to probe version %s: %w", version, err)
		}
	}
}

// Lock validates cfg against the production guardrails and, when clean,
// writes the immutable history entry and swaps the active pointer. Guardrail
// warnings are returned for display; issues block the lock.
func (u *LockUseCase) Lock(cfg domain.LockedConfig) (guardrails.ConfigReport, error) {
	report := guardrails.ValidateConfig(cfg)
	if !report.Valid {
		return report, fmt.Errorf("config failed guardrails: %s", strings.Join(report.Issues, "; "))
	}

	if err := u.store.LockConfig(cfg); err != nil {
		return report, err
	}
	cfg.IsLocked = true

	if u.exporter != nil {
		if err := u.exporter.Export(cfg); err != nil {
			return report, fmt.Errorf("locked but failed to export snapshot: %w", err)
		}
	}
	return report, nil
}

// Promote marks a locked version as production and re-exports the active
// pointer file.
func (u *LockUseCase) Promote(version string) (*domain.LockedConfig, error) {
	promoted, err := u.store.PromoteToProduction(version)
	if err != nil {
		return nil, err
	}
	if u.exporter != nil {
		if err := u.exporter.Export(*promoted); err != nil {
			return promoted, fmt.Errorf("promoted but failed to export snapshot: %w", err)
		}
	}
	return promoted, nil
}

// Active returns the active locked config, nil when never configured.
func (u *LockUseCase) Active() (*domain.LockedConfig, error) {
	return u.store.ActiveConfig()
}

// History lists every locked config in version order.
func (u *LockUseCase) History() ([]domain.LockedConfig, error) {
	return u.store.History()
}

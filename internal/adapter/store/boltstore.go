// Package store persists locked chunking configurations in an embedded
// bbolt database: an append-only history bucket keyed by chunk version plus
// a single active pointer swapped inside the same write transaction, so
// concurrent lock/promote calls cannot silently overwrite each other.
package store

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.etcd.io/bbolt"

	"chunklock/internal/domain"
)

var (
	bucketHistory = []byte("config_history")
	bucketMeta    = []byte("meta")
	bucketAudits  = []byte("prompt_audits")

	// keyActive holds the full JSON snapshot of the active config, not just
	// a version name: promotion must update the pointer without rewriting
	// the immutable history entry, so promotion state lives here.
	keyActive = []byte("active_config")
)

var (
	// ErrCorruptConfig marks an active pointer or history entry that exists
	// but cannot be decoded, as opposed to one that was never written.
	ErrCorruptConfig = errors.New("corrupt locked config")

	// ErrVersionExists rejects re-locking a chunk version: history entries
	// are immutable once written.
	ErrVersionExists = errors.New("chunk version already locked")

	// ErrVersionNotFound reports a missing history entry.
	ErrVersionNotFound = errors.New("chunk version not found")
)

// PrimaryTable is the storage table served when no shadow is requested.
const PrimaryTable = "document_chunks"

type BoltStore struct {
	db *bbolt.DB
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bbolt.Open(path, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketHistory, bucketMeta, bucketAudits} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

// LockConfig appends cfg under its chunk version and swaps the active
// pointer, all in one transaction.
func (s *BoltStore) LockConfig(cfg domain.LockedConfig) error {
	if cfg.ChunkVersion == "" {
		return fmt.Errorf("cannot lock config without a chunk version")
	}
	cfg.IsLocked = true

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal locked config: %w", err)
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		history := tx.Bucket(bucketHistory)
		key := []byte(cfg.ChunkVersion)
		if history.Get(key) != nil {
			return fmt.Errorf("%w: %s", ErrVersionExists, cfg.ChunkVersion)
		}
		if err := history.Put(key, data); err != nil {
			return err
		}
		return tx.Bucket(bucketMeta).Put(keyActive, data)
	})
}

// ActiveConfig resolves the active pointer. Returns (nil, nil) when nothing
// has ever been locked, and ErrCorruptConfig when the pointer exists but
// cannot be decoded.
func (s *BoltStore) ActiveConfig() (*domain.LockedConfig, error) {
	var cfg *domain.LockedConfig
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyActive)
		if data == nil {
			return nil
		}
		var decoded domain.LockedConfig
		if err := json.Unmarshal(data, &decoded); err != nil {
			return fmt.Errorf("%w: active pointer: %v", ErrCorruptConfig, err)
		}
		cfg = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetVersion returns one immutable history entry.
func (s *BoltStore) GetVersion(version string) (*domain.LockedConfig, error) {
	var cfg *domain.LockedConfig
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketHistory).Get([]byte(version))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrVersionNotFound, version)
		}
		var decoded domain.LockedConfig
		if err := json.Unmarshal(data, &decoded); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptConfig, version, err)
		}
		cfg = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// History returns all locked configs ordered by chunk version. Versions are
// timestamp-prefixed, so lexical order is chronological order.
func (s *BoltStore) History() ([]domain.LockedConfig, error) {
	var configs []domain.LockedConfig
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHistory).ForEach(func(k, v []byte) error {
			var cfg domain.LockedConfig
			if err := json.Unmarshal(v, &cfg); err != nil {
				return fmt.Errorf("%w: %s: %v", ErrCorruptConfig, k, err)
			}
			configs = append(configs, cfg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(configs, func(i, j int) bool {
		return configs[i].ChunkVersion < configs[j].ChunkVersion
	})
	return configs, nil
}

// PromoteToProduction marks a version as production, derives its shadow
// table from the chunk version and swaps the active pointer. The immutable
// history entry is never rewritten; promotion state lives on the pointer.
func (s *BoltStore) PromoteToProduction(version string) (*domain.LockedConfig, error) {
	var promoted *domain.LockedConfig
	err := s.db.Update(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketHistory).Get([]byte(version))
		if data == nil {
			return fmt.Errorf("%w: %s", ErrVersionNotFound, version)
		}
		var cfg domain.LockedConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrCorruptConfig, version, err)
		}

		cfg.IsProduction = true
		cfg.ShadowTable = ShadowTableName(cfg.ChunkVersion)

		updated, err := json.Marshal(cfg)
		if err != nil {
			return err
		}
		if err := tx.Bucket(bucketMeta).Put(keyActive, updated); err != nil {
			return err
		}
		promoted = &cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return promoted, nil
}

// ShadowTableName derives the staging table for a chunk version.
func ShadowTableName(chunkVersion string) string {
	return PrimaryTable + "_" + strings.ReplaceAll(chunkVersion, "-", "_")
}

// AppendPromptAudit records one audit entry under a monotonically
// increasing sequence key. Entries are never rewritten.
func (s *BoltStore) AppendPromptAudit(audit domain.PromptAudit) error {
	data, err := json.Marshal(audit)
	if err != nil {
		return fmt.Errorf("failed to marshal prompt audit: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketAudits)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, data)
	})
}

// PromptAudits returns all audit entries in insertion order.
func (s *BoltStore) PromptAudits() ([]domain.PromptAudit, error) {
	var audits []domain.PromptAudit
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAudits).ForEach(func(k, v []byte) error {
			var audit domain.PromptAudit
			if err := json.Unmarshal(v, &audit); err != nil {
				return err
			}
			audits = append(audits, audit)
			return nil
		})
	})
	return audits, err
}

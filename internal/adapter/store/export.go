package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"chunklock/internal/domain"
)

// Exporter mirrors the locked-config store to the plain-JSON layout external
// tools read:
//
//	<dir>/locked_configs/active_config.json
//	<dir>/locked_configs/history/<chunk_version>.json
//
// History files are written once and never touched again; only the active
// pointer file is rewritten.
type Exporter struct {
	dir string
}

func NewExporter(dir string) *Exporter {
	return &Exporter{dir: filepath.Join(dir, "locked_configs")}
}

// ActivePath returns the path of the active pointer file.
func (e *Exporter) ActivePath() string {
	return filepath.Join(e.dir, "active_config.json")
}

// HistoryPath returns the immutable snapshot path for a chunk version.
func (e *Exporter) HistoryPath(chunkVersion string) string {
	return filepath.Join(e.dir, "history", chunkVersion+".json")
}

// Export writes the history snapshot for cfg (if absent) and rewrites the
// active pointer file.
func (e *Exporter) Export(cfg domain.LockedConfig) error {
	if err := os.MkdirAll(filepath.Join(e.dir, "history"), 0755); err != nil {
		return fmt.Errorf("failed to create export dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal locked config: %w", err)
	}

	historyPath := e.HistoryPath(cfg.ChunkVersion)
	if _, err := os.Stat(historyPath); os.IsNotExist(err) {
		if err := os.WriteFile(historyPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write history snapshot: %w", err)
		}
	}

	// Write-then-rename keeps the pointer readable at every instant.
	tmp := e.ActivePath() + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write active config: %w", err)
	}
	return os.Rename(tmp, e.ActivePath())
}

// ReadActive loads the exported active pointer file. Returns (nil, nil)
// when the file does not exist and ErrCorruptConfig when it cannot be
// decoded.
func (e *Exporter) ReadActive() (*domain.LockedConfig, error) {
	data, err := os.ReadFile(e.ActivePath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read active config: %w", err)
	}
	var cfg domain.LockedConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: active_config.json: %v", ErrCorruptConfig, err)
	}
	return &cfg, nil
}

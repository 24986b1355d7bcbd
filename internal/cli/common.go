package cli

import (
	"fmt"

	"chunklock/config"
	"chunklock/internal/adapter/store"
	"chunklock/internal/usecase"
)

// openLockUseCase opens the locked-config store under the root directory and
// wires it with the JSON snapshot exporter. Callers must Close the store.
func openLockUseCase() (*usecase.LockUseCase, *store.BoltStore, error) {
	dir := GetRootDir()
	if err := config.EnsureWorkDir(dir); err != nil {
		return nil, nil, fmt.Errorf("failed to create work directory: %w", err)
	}

	st, err := store.NewBoltStore(config.ConfigDBPath(dir))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open config store: %w", err)
	}

	exporter := store.NewExporter(config.ExportDir(dir))
	return usecase.NewLockUseCase(st, exporter), st, nil
}

package store

import (
	"fmt"
	"os"
	"path/filepath"

	"minirag/config"
	"minirag/internal/adapter/memstore"
	"minirag/internal/domain"
	"minirag/internal/port"
)

// Open returns the backend selected by cfg. Relative paths are resolved
// against rootDir and missing parent directories are created.
func Open(cfg config.StorageConfig, rootDir string) (port.Store, error) {
	path := config.ResolvePath(rootDir, cfg.Path)

	switch cfg.Backend {
	case "memory":
		return memstore.NewMemoryStore(), nil
	case "bolt", "":
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		return NewBoltStore(path)
	case "sqlite":
		if path != ":memory:" {
			if err := ensureDir(path); err != nil {
				return nil, err
			}
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}

func ensureDir(path string) error {
	if path == "" {
		return domain.NewStorageError("open", fmt.Errorf("empty storage path"))
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return domain.NewStorageError("open", err)
	}
	return nil
}

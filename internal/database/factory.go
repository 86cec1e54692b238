package database

import (
	"fmt"
	"os"
	"path/filepath"

	"fitsync-go/internal/config"
	"fitsync-go/internal/fitsync"
)

// NewStoreFromConfig creates a record store based on the store config type.
func NewStoreFromConfig(cfg config.StoreConfig, clock fitsync.Clock) (*SQLiteStore, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite store")
		}
		if err := os.MkdirAll(cfg.DataDir, 0700); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.DataDir, "fitsync.db"), clock)
	case "memory":
		return NewSQLiteStore(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown store type: %s", cfg.Type)
	}
}

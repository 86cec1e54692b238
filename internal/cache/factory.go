package cache

import (
	"fmt"
	"log/slog"

	"fitsync-go/internal/config"
	"fitsync-go/internal/fitsync"
)

// NewLocalStoreFromConfig creates the device cache described by cfg. When
// cfg.Encrypted is set the store is wrapped in an EncryptedStore using
// encryptor, which must then be non-nil.
func NewLocalStoreFromConfig(cfg config.CacheConfig, encryptor fitsync.Encryptor, logger *slog.Logger) (fitsync.LocalStore, error) {
	var store fitsync.LocalStore
	switch cfg.Type {
	case "memory":
		store = NewMemoryStore()
	case "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem cache requires dir to be set")
		}
		fs, err := NewFileSystemStore(cfg.Dir)
		if err != nil {
			return nil, err
		}
		store = fs
	case "badger":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("badger cache requires dir to be set")
		}
		b, err := OpenBadger(BadgerConfig{Path: cfg.Dir, SyncWrites: true, Logger: logger})
		if err != nil {
			return nil, err
		}
		store = b
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}

	if !cfg.Encrypted {
		return store, nil
	}
	if encryptor == nil {
		store.Close()
		return nil, fmt.Errorf("encrypted cache requires an encryptor")
	}
	return NewEncryptedStore(store, encryptor), nil
}

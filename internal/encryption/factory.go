package encryption

import (
	"fmt"

	"fitsync-go/internal/config"
	"fitsync-go/internal/fitsync"
)

// NewEncryptorFromConfig creates an Encryptor based on the cache encryption type.
func NewEncryptorFromConfig(cfg config.CacheConfig) (fitsync.Encryptor, error) {
	switch cfg.Encryption {
	case "age", "":
		return NewAgeEncryptor(cfg), nil
	case "test":
		return NewTestEncryptor(), nil
	default:
		return nil, fmt.Errorf("unknown encryption type: %q", cfg.Encryption)
	}
}

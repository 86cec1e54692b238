package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for fitsync.
type Config struct {
	UserID  string        `toml:"user_id"`
	BaseDir string        `toml:"base_dir"`
	LogDir  string        `toml:"log_dir"`
	Store   StoreConfig   `toml:"store"`
	Cache   CacheConfig   `toml:"cache"`
	Catalog CatalogConfig `toml:"catalog"`
	Search  SearchConfig  `toml:"search"`
}

// StoreConfig selects the record store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// CacheConfig selects the device-local snapshot cache.
type CacheConfig struct {
	Type           string `toml:"type"`          // "memory", "filesystem" or "badger"
	Dir            string `toml:"dir,omitempty"` // filesystem and badger only
	Encrypted      bool   `toml:"encrypted"`     // seal snapshots at rest
	Encryption     string `toml:"encryption"`    // "age" (default) or "test"
	PublicKeyPath  string `toml:"public_key_path"`
	PrivateKeyPath string `toml:"private_key_path"`
}

// CatalogConfig controls the exercise catalog cache.
type CatalogConfig struct {
	Freshness string `toml:"freshness"` // Go duration, e.g. "24h"
}

// SearchConfig throttles remote user searches.
type SearchConfig struct {
	RatePerSecond float64 `toml:"rate_per_second"` // 0 disables throttling
	Burst         int     `toml:"burst"`
}

// DefaultFreshness is used when the catalog freshness is unset.
const DefaultFreshness = 24 * time.Hour

// FreshnessWindow parses Catalog.Freshness, falling back to DefaultFreshness
// when it is empty.
func (c *Config) FreshnessWindow() (time.Duration, error) {
	if c.Catalog.Freshness == "" {
		return DefaultFreshness, nil
	}
	d, err := time.ParseDuration(c.Catalog.Freshness)
	if err != nil {
		return 0, fmt.Errorf("parsing catalog freshness %q: %w", c.Catalog.Freshness, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("catalog freshness must be positive, got %s", d)
	}
	return d, nil
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(userID, baseDir string) *Config {
	return &Config{
		UserID:  userID,
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Store: StoreConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "db"),
		},
		Cache: CacheConfig{
			Type:           "filesystem",
			Dir:            filepath.Join(baseDir, "cache"),
			PublicKeyPath:  filepath.Join(baseDir, "keys", "fitsync.pub"),
			PrivateKeyPath: filepath.Join(baseDir, "keys", "fitsync.key"),
		},
		Catalog: CatalogConfig{Freshness: DefaultFreshness.String()},
		Search:  SearchConfig{RatePerSecond: 2, Burst: 3},
	}
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. An existing file is left
// alone and reported as an error.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}

// Save overwrites the config file at path.
func Save(path string, cfg *Config) error {
	return writeToFile(path, cfg)
}

package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// PassphraseEnv names the variable holding the cache passphrase for
// non-interactive use.
const PassphraseEnv = "FITSYNC_PASSPHRASE"

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - FITSYNC_CONFIG_PATH: config file location (default: ~/.config/fitsync.toml)
//   - FITSYNC_HOME: base directory for fitsync data (default: ~/.local/share/fitsync)
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("FITSYNC_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "fitsync.toml"), nil
}

// getBaseDir returns the base directory for fitsync data, checking FITSYNC_HOME
// first, then falling back to the XDG default ~/.local/share/fitsync.
func getBaseDir() (string, error) {
	if path := os.Getenv("FITSYNC_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "fitsync"), nil
}

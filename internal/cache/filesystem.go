package cache

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"fitsync-go/internal/fitsync"
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// FileSystemStore keeps one file per key in a directory:
//
//	<dir>/
//	  profile_cache
//	  exercises_cache
//	  exercises_cache_timestamp
type FileSystemStore struct {
	dir string
}

// NewFileSystemStore creates the store, creating dir if needed.
func NewFileSystemStore(dir string) (*FileSystemStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileSystemStore{dir: dir}, nil
}

func (f *FileSystemStore) path(key string) (string, error) {
	if !validKey.MatchString(key) || key == "." || key == ".." {
		return "", fmt.Errorf("invalid cache key %q", key)
	}
	return filepath.Join(f.dir, key), nil
}

func (f *FileSystemStore) Get(key string) (string, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("reading %s: %w", key, err)
	}
	return string(data), true, nil
}

// Set replaces key's file atomically (temp file + rename), so a reader never
// sees a partial value.
func (f *FileSystemStore) Set(key, value string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(f.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func (f *FileSystemStore) Remove(key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing %s: %w", key, err)
	}
	return nil
}

func (f *FileSystemStore) Close() error { return nil }

var _ fitsync.LocalStore = (*FileSystemStore)(nil)

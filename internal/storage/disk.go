// Package storage writes rendered artifacts to the output directory.
package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrInvalidKey indicates a storage key that could escape the output directory.
var ErrInvalidKey = errors.New("invalid storage key")

// DiskStore keeps artifact files under a single directory.
type DiskStore struct {
	dir string
}

// NewDiskStore creates dir if needed and returns a store rooted there.
func NewDiskStore(dir string) (*DiskStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("storage: output directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve output directory: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: create output directory: %w", err)
	}
	return &DiskStore{dir: abs}, nil
}

// Dir returns the absolute output directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Save writes data atomically under a name derived from key and the extension
// of filename, and returns the final path. A reader never sees a partial file.
func (s *DiskStore) Save(key, filename string, data []byte) (string, error) {
	if key == "" || key != filepath.Base(key) || strings.HasPrefix(key, ".") {
		return "", ErrInvalidKey
	}
	path := filepath.Join(s.dir, key+filepath.Ext(filename))

	tmp, err := os.CreateTemp(s.dir, key+".tmp.*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		_ = tmp.Close()
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		return "", fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("sync artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close artifact: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("commit artifact: %w", err)
	}
	committed = true
	return path, nil
}

// Remove deletes a previously saved file. Missing files are not an error.
func (s *DiskStore) Remove(path string) error {
	if filepath.Dir(path) != s.dir {
		return ErrInvalidKey
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Check probes that the directory exists and accepts new files.
func (s *DiskStore) Check() error {
	f, err := os.CreateTemp(s.dir, ".probe-*")
	if err != nil {
		return fmt.Errorf("output directory not writable: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	return os.Remove(name)
}

// Package cache provides the content-addressed summary store.
package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Store is a key-value store keyed by content hash. Keys are written
// once per distinct content; overwriting an existing key with the same
// value is tolerated.
type Store interface {
	Get(key string) (string, bool)
	Put(key, value string) error
}

// FileStore keeps one file per key under a directory. Entries survive
// process restarts; eviction is time-based housekeeping via Sweep, not
// part of lookup.
type FileStore struct {
	dir string
}

// NewFileStore creates the cache directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Get returns the stored value for key, if present.
func (s *FileStore) Get(key string) (string, bool) {
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Put stores value under key.
func (s *FileStore) Put(key, value string) error {
	if err := os.WriteFile(s.path(key), []byte(value), 0o640); err != nil {
		return fmt.Errorf("write cache entry: %w", err)
	}
	return nil
}

// Sweep deletes entries whose file modification time is older than
// maxAge and returns the number removed.
func (s *FileStore) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0, fmt.Errorf("read cache dir: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".txt") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().Before(cutoff) {
			if err := os.Remove(filepath.Join(s.dir, e.Name())); err == nil {
				removed++
			}
		}
	}
	return removed, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.dir, key+".txt")
}

package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const fileExt = ".json"

// Cache errors.
var (
	ErrNotFound   = errors.New("cache entry not found")
	ErrExpired    = errors.New("cache entry expired")
	ErrInvalidKey = errors.New("cache key cannot be empty")
	ErrDisabled   = errors.New("cache is disabled")
)

// FileStore is a directory of JSON entry files. Safe for concurrent use.
type FileStore struct {
	dir        string
	enabled    bool
	ttlSeconds int
	now        func() time.Time

	mu sync.RWMutex
}

// NewFileStore creates the directory if needed. A disabled store answers
// every call with ErrDisabled.
func NewFileStore(dir string, enabled bool, ttlSeconds int) (*FileStore, error) {
	if !enabled {
		return &FileStore{now: time.Now}, nil
	}
	if dir == "" {
		return nil, errors.New("cache directory cannot be empty")
	}
	if err := ValidateTTL(ttlSeconds); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileStore{dir: dir, enabled: true, ttlSeconds: ttlSeconds, now: time.Now}, nil
}

// Enabled reports whether the store caches anything.
func (s *FileStore) Enabled() bool { return s.enabled }

// Dir returns the cache directory.
func (s *FileStore) Dir() string { return s.dir }

// TTL returns the entry TTL in seconds.
func (s *FileStore) TTL() int { return s.ttlSeconds }

// Get reads key. Expired entries return ErrExpired and are left for
// CleanupExpired.
func (s *FileStore) Get(key string) (*Entry, error) {
	if !s.enabled {
		return nil, ErrDisabled
	}
	if key == "" {
		return nil, ErrInvalidKey
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read cache file: %w", err)
	}
	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cache entry: %w", err)
	}
	if e.ExpiredAt(s.now()) {
		return nil, ErrExpired
	}
	return &e, nil
}

// Set writes key atomically through a temp file.
func (s *FileStore) Set(key, label string, data json.RawMessage) error {
	if !s.enabled {
		return ErrDisabled
	}
	if key == "" {
		return ErrInvalidKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.MarshalIndent(NewEntry(key, label, data, s.ttlSeconds, s.now()), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}
	target := s.path(key)
	tmp := target + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	if err := os.Rename(tmp, target); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to rename cache file: %w", err)
	}
	return nil
}

// Delete removes key. Missing keys are not an error.
func (s *FileStore) Delete(key string) error {
	if !s.enabled {
		return ErrDisabled
	}
	if key == "" {
		return ErrInvalidKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(s.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete cache file: %w", err)
	}
	return nil
}

// Clear removes every entry file.
func (s *FileStore) Clear() error {
	_, err := s.sweep(func(*Entry) bool { return true })
	return err
}

// CleanupExpired removes expired entries and returns how many it removed.
func (s *FileStore) CleanupExpired() (int, error) {
	now := s.now()
	return s.sweep(func(e *Entry) bool { return e != nil && e.ExpiredAt(now) })
}

// Count returns the number of entry files, expired or not.
func (s *FileStore) Count() (int, error) {
	if !s.enabled {
		return 0, ErrDisabled
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	files, err := s.files()
	return len(files), err
}

// sweep removes the entry files matching drop. Unreadable files are passed
// to drop as nil.
func (s *FileStore) sweep(drop func(*Entry) bool) (int, error) {
	if !s.enabled {
		return 0, ErrDisabled
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	files, err := s.files()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, f := range files {
		var e *Entry
		if data, readErr := os.ReadFile(f); readErr == nil {
			var decoded Entry
			if json.Unmarshal(data, &decoded) == nil {
				e = &decoded
			}
		}
		if !drop(e) {
			continue
		}
		if err := os.Remove(f); err != nil {
			return removed, fmt.Errorf("failed to remove cache file %s: %w", filepath.Base(f), err)
		}
		removed++
	}
	return removed, nil
}

func (s *FileStore) files() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache directory: %w", err)
	}
	var out []string
	for _, e := range entries {
		if !e.IsDir() && filepath.Ext(e.Name()) == fileExt {
			out = append(out, filepath.Join(s.dir, e.Name()))
		}
	}
	return out, nil
}

func (s *FileStore) path(key string) string {
	safe := strings.NewReplacer("/", "_", "\\", "_", ":", "_").Replace(key)
	return filepath.Join(s.dir, safe+fileExt)
}

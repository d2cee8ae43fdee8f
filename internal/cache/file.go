package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/shared"
)

// DefaultFilePath is where the file backend keeps its JSON object.
const DefaultFilePath = "./pickles/track_cache.json"

// FileStore keeps the whole cache in memory and persists it as one JSON object:
//
//	{"artist:A track:B": {"isrc": "USRC1", "uri": "spotify:track:1"}, "artist:C track:D": {"isrc": null, "uri": null}}
type FileStore struct {
	path    string
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
	dirty   bool
}

// OpenFile loads the cache at path. A missing file is an empty cache.
func OpenFile(path string) (*FileStore, error) {
	if path == "" {
		path = DefaultFilePath
	}

	s := &FileStore{path: path, entries: make(map[string]models.CacheEntry)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", shared.ErrCache, path, err)
	}

	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, fmt.Errorf("%w: failed to decode %s: %v", shared.ErrCache, path, err)
		}
	}
	return s, nil
}

// Path returns the backing file.
func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Get(_ context.Context, query string) (models.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[query]
	return e, ok, nil
}

func (s *FileStore) Put(_ context.Context, query string, entry models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[query] = entry
	s.dirty = true
	return nil
}

// Flush writes the cache to a temporary file beside the target and renames it into place.
func (s *FileStore) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dirty {
		return nil
	}

	if err := s.write(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCache, err)
	}
	s.dirty = false
	return nil
}

func (s *FileStore) write() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create cache directory: %w", err)
	}

	data, err := shared.MarshalJSON(s.entries, true)
	if err != nil {
		return fmt.Errorf("failed to encode cache: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to replace cache file: %w", err)
	}
	return nil
}

func (s *FileStore) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *FileStore) Misses(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countMisses(s.entries), nil
}

// Clear empties the cache and persists the empty object.
func (s *FileStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	clear(s.entries)
	s.dirty = true
	s.mu.Unlock()
	return s.Flush(ctx)
}

func (s *FileStore) Close() error { return nil }

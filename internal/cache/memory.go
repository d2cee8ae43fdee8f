package cache

import (
	"context"
	"sync"

	"github.com/desertthunder/weekly/internal/models"
)

// MemoryStore keeps entries in a map for the lifetime of the process.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]models.CacheEntry
	flushes int
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]models.CacheEntry)}
}

func (s *MemoryStore) Get(_ context.Context, query string) (models.CacheEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[query]
	return e, ok, nil
}

func (s *MemoryStore) Put(_ context.Context, query string, entry models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[query] = entry
	return nil
}

// Flush only counts calls.
func (s *MemoryStore) Flush(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

// Flushes returns how many times Flush was called.
func (s *MemoryStore) Flushes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flushes
}

func (s *MemoryStore) Len(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) Misses(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return countMisses(s.entries), nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.entries)
	return nil
}

func (s *MemoryStore) Close() error { return nil }

func countMisses(entries map[string]models.CacheEntry) int {
	n := 0
	for _, e := range entries {
		if e.NotFound() {
			n++
		}
	}
	return n
}

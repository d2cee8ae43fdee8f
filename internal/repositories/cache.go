package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"maps"
	"sync"

	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/shared"
)

// CacheRepository stores catalog lookups in the track_cache table.
//
// Put buffers entries in memory; Flush writes them in a single transaction.
// A negative result is stored as a row whose isrc and uri are both NULL.
type CacheRepository struct {
	db      *sql.DB
	mu      sync.Mutex
	pending map[string]models.CacheEntry
}

// NewCacheRepository creates a new CacheRepository with the given database connection
func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db, pending: make(map[string]models.CacheEntry)}
}

// Get returns the entry for query, checking unflushed entries first.
func (r *CacheRepository) Get(ctx context.Context, query string) (models.CacheEntry, bool, error) {
	r.mu.Lock()
	entry, ok := r.pending[query]
	r.mu.Unlock()
	if ok {
		return entry, true, nil
	}

	var isrc, uri sql.NullString
	err := r.db.QueryRowContext(ctx, "SELECT isrc, uri FROM track_cache WHERE query = ?", query).Scan(&isrc, &uri)
	if err == sql.ErrNoRows {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("%w: failed to read %q: %v", shared.ErrCache, query, err)
	}

	return models.NewCacheEntry(isrc.String, uri.String), true, nil
}

// Put records entry for query until the next Flush.
func (r *CacheRepository) Put(_ context.Context, query string, entry models.CacheEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pending[query] = entry
	return nil
}

// Flush upserts all pending entries.
func (r *CacheRepository) Flush(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.pending) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: failed to begin transaction: %v", shared.ErrCache, err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO track_cache (query, isrc, uri)
		VALUES (?, ?, ?)
		ON CONFLICT(query) DO UPDATE SET
			isrc = excluded.isrc,
			uri = excluded.uri,
			updated_at = CURRENT_TIMESTAMP
	`)
	if err != nil {
		return fmt.Errorf("%w: failed to prepare upsert: %v", shared.ErrCache, err)
	}
	defer stmt.Close()

	for query, entry := range r.pending {
		if _, err := stmt.ExecContext(ctx, query, entry.ExternalID, entry.ExternalURI); err != nil {
			return fmt.Errorf("%w: failed to write %q: %v", shared.ErrCache, query, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: failed to commit: %v", shared.ErrCache, err)
	}

	clear(r.pending)
	return nil
}

// Len returns the number of stored entries, including unflushed ones.
func (r *CacheRepository) Len(ctx context.Context) (int, error) {
	r.mu.Lock()
	pending := maps.Clone(r.pending)
	r.mu.Unlock()

	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM track_cache").Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: failed to count entries: %v", shared.ErrCache, err)
	}

	for query := range pending {
		var exists bool
		err := r.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM track_cache WHERE query = ?)", query).Scan(&exists)
		if err != nil {
			return 0, fmt.Errorf("%w: failed to count entries: %v", shared.ErrCache, err)
		}
		if !exists {
			count++
		}
	}
	return count, nil
}

// Misses returns the number of stored negative results.
func (r *CacheRepository) Misses(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM track_cache WHERE isrc IS NULL AND uri IS NULL").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count misses: %v", shared.ErrCache, err)
	}
	return count, nil
}

// Clear removes every entry.
func (r *CacheRepository) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.db.ExecContext(ctx, "DELETE FROM track_cache"); err != nil {
		return fmt.Errorf("%w: failed to clear: %v", shared.ErrCache, err)
	}
	clear(r.pending)
	return nil
}

// Close is a no-op; the database handle belongs to the caller.
func (r *CacheRepository) Close() error {
	return nil
}

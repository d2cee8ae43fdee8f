// package cache persists catalog lookup results keyed by query string.
//
// A cached [models.CacheEntry] with both fields nil records that the catalog had
// no match, so the query is never looked up again. Backends:
//   - [MemoryStore] : process local, for tests and --no-cache
//   - [FileStore] : a JSON object on disk, rewritten atomically on Flush
//   - [RedisStore] : a redis hash shared between hosts
//   - repositories.CacheRepository : the sqlite track_cache table (default)
package cache

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/repositories"
	"github.com/desertthunder/weekly/internal/shared"
)

// Store is the key-value contract used by the enricher.
//
// Put may buffer; entries are durable once Flush returns.
type Store interface {
	Get(ctx context.Context, query string) (models.CacheEntry, bool, error)
	Put(ctx context.Context, query string, entry models.CacheEntry) error
	Flush(ctx context.Context) error
}

// Backend is a [Store] with the administrative operations used by the cache command.
type Backend interface {
	Store
	Len(ctx context.Context) (int, error)
	Misses(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
	Close() error
}

const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Open builds the backend selected by cfg.
//
// db is only used by the sqlite backend and may be nil otherwise.
func Open(ctx context.Context, cfg shared.CacheConfig, db *sql.DB) (Backend, error) {
	switch cfg.Backend {
	case "", BackendSQLite:
		if db == nil {
			return nil, fmt.Errorf("%w: sqlite cache requires a database", shared.ErrInvalidConfig)
		}
		return repositories.NewCacheRepository(db), nil
	case BackendFile:
		return OpenFile(cfg.Path)
	case BackendRedis:
		return OpenRedis(ctx, RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Key:      cfg.RedisKey,
		})
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown cache backend %q", shared.ErrInvalidConfig, cfg.Backend)
	}
}

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisKey is the hash holding cache entries.
const DefaultRedisKey = "weekly:track_cache"

// RedisOptions configure a [RedisStore].
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Key      string
}

// RedisStore keeps entries as JSON values in a single redis hash, one field per query.
//
// Put buffers locally; Flush writes the buffer with one pipelined HSET.
type RedisStore struct {
	client  *redis.Client
	key     string
	mu      sync.Mutex
	pending map[string]models.CacheEntry
}

// OpenRedis connects to redis and verifies the connection.
func OpenRedis(ctx context.Context, opts RedisOptions) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: failed to connect to redis at %s: %v", shared.ErrCache, opts.Addr, err)
	}

	return NewRedisStore(client, opts.Key), nil
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client *redis.Client, key string) *RedisStore {
	if key == "" {
		key = DefaultRedisKey
	}
	return &RedisStore{client: client, key: key, pending: make(map[string]models.CacheEntry)}
}

func (s *RedisStore) Get(ctx context.Context, query string) (models.CacheEntry, bool, error) {
	s.mu.Lock()
	e, ok := s.pending[query]
	s.mu.Unlock()
	if ok {
		return e, true, nil
	}

	data, err := s.client.HGet(ctx, s.key, query).Bytes()
	if err == redis.Nil {
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("%w: failed to read %q: %v", shared.ErrCache, query, err)
	}

	if err := json.Unmarshal(data, &e); err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("%w: failed to decode %q: %v", shared.ErrCache, query, err)
	}
	return e, true, nil
}

func (s *RedisStore) Put(_ context.Context, query string, entry models.CacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[query] = entry
	return nil
}

func (s *RedisStore) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) == 0 {
		return nil
	}

	fields := make(map[string]any, len(s.pending))
	for query, entry := range s.pending {
		data, err := json.Marshal(entry)
		if err != nil {
			return fmt.Errorf("%w: failed to encode %q: %v", shared.ErrCache, query, err)
		}
		fields[query] = data
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key, fields)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: failed to write entries: %v", shared.ErrCache, err)
	}

	clear(s.pending)
	return nil
}

// Len returns the number of flushed entries plus unflushed queries not yet in the hash.
func (s *RedisStore) Len(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, err := s.client.HLen(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to count entries: %v", shared.ErrCache, err)
	}

	for query := range s.pending {
		exists, err := s.client.HExists(ctx, s.key, query).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: failed to count entries: %v", shared.ErrCache, err)
		}
		if !exists {
			n++
		}
	}
	return int(n), nil
}

// Misses counts flushed negative entries.
func (s *RedisStore) Misses(ctx context.Context) (int, error) {
	all, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: failed to read entries: %v", shared.ErrCache, err)
	}

	entries := make(map[string]models.CacheEntry, len(all))
	for query, raw := range all {
		var e models.CacheEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			return 0, fmt.Errorf("%w: failed to decode %q: %v", shared.ErrCache, query, err)
		}
		entries[query] = e
	}
	return countMisses(entries), nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("%w: failed to clear: %v", shared.ErrCache, err)
	}
	clear(s.pending)
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

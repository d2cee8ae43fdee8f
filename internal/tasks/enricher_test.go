package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/desertthunder/weekly/internal/cache"
	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/shared"
	th "github.com/desertthunder/weekly/internal/testing"
)

func station(id string, pairs ...models.TrackPair) *models.Station {
	st := &models.Station{ID: id}
	for _, p := range pairs {
		st.Tracks = append(st.Tracks, models.NewTrackRecord(p))
	}
	return st
}

func pair(artist, track string) models.TrackPair {
	return models.TrackPair{Artist: artist, Track: track}
}

type failingStore struct {
	*cache.MemoryStore
	getErr   error
	flushErr error
}

func (s *failingStore) Get(ctx context.Context, q string) (models.CacheEntry, bool, error) {
	if s.getErr != nil {
		return models.CacheEntry{}, false, s.getErr
	}
	return s.MemoryStore.Get(ctx, q)
}

func (s *failingStore) Flush(ctx context.Context) error {
	if s.flushErr != nil {
		return s.flushErr
	}
	return s.MemoryStore.Flush(ctx)
}

func TestEnricher(t *testing.T) {
	ctx := context.Background()

	t.Run("enriches tracks from catalog", func(t *testing.T) {
		catalog := th.NewFakeCatalog().Add("A", "T", "ISRC1", "spotify:track:1")
		store := cache.NewMemoryStore()
		st := station("us/demo", pair("A", "T"), pair("B", "T2"))

		stats, err := NewEnricher(catalog, store, EnrichOpts{}, nil).Enrich(ctx, []*models.Station{st}, nil)
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}

		if stats.Looked != 2 || stats.Found != 1 || stats.Missing != 1 || stats.Cached != 0 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if st.Tracks[0].URI() != "spotify:track:1" || st.Tracks[0].ISRC() != "ISRC1" {
			t.Errorf("track 0 not enriched: %+v", st.Tracks[0])
		}
		if st.Tracks[1].Enriched() {
			t.Errorf("track 1 should not be enriched: %+v", st.Tracks[1])
		}
		if store.Flushes() != 1 {
			t.Errorf("expected one flush, got %d", store.Flushes())
		}
	})

	t.Run("second run reuses the cache", func(t *testing.T) {
		catalog := th.NewFakeCatalog().Add("A", "T", "ISRC1", "spotify:track:1")
		store := cache.NewMemoryStore()
		enricher := NewEnricher(catalog, store, EnrichOpts{Concurrency: 2}, nil)

		if _, err := enricher.Enrich(ctx, []*models.Station{station("us/one", pair("A", "T"))}, nil); err != nil {
			t.Fatalf("first Enrich() error = %v", err)
		}

		st := station("us/two", pair("A", "T"))
		stats, err := enricher.Enrich(ctx, []*models.Station{st}, nil)
		if err != nil {
			t.Fatalf("second Enrich() error = %v", err)
		}

		q := models.BuildQuery("A", "T")
		if catalog.Calls(q) != 1 {
			t.Errorf("expected 1 lookup for %q, got %d", q, catalog.Calls(q))
		}
		if stats.Cached != 1 || stats.Looked != 0 {
			t.Errorf("unexpected stats %+v", stats)
		}
		if st.Tracks[0].URI() != "spotify:track:1" {
			t.Error("cached entry was not applied")
		}
	})

	t.Run("negative results are cached", func(t *testing.T) {
		catalog := th.NewFakeCatalog()
		store := cache.NewMemoryStore()
		enricher := NewEnricher(catalog, store, EnrichOpts{}, nil)
		q := models.BuildQuery("Nobody", "Nothing")

		for range 2 {
			if _, err := enricher.Enrich(ctx, []*models.Station{station("us/demo", pair("Nobody", "Nothing"))}, nil); err != nil {
				t.Fatalf("Enrich() error = %v", err)
			}
		}

		if catalog.Calls(q) != 1 {
			t.Errorf("expected 1 lookup, got %d", catalog.Calls(q))
		}

		entry, ok, _ := store.Get(ctx, q)
		if !ok {
			t.Fatal("expected negative entry in cache")
		}
		if !entry.NotFound() {
			t.Errorf("expected {null, null}, got %+v", entry)
		}
	})

	t.Run("distinct queries are looked up once", func(t *testing.T) {
		catalog := th.NewFakeCatalog()
		stations := []*models.Station{
			station("us/one", pair("A", "T"), pair("B", "T")),
			station("us/two", pair("A", "T")),
		}

		stats, err := NewEnricher(catalog, cache.NewMemoryStore(), EnrichOpts{Concurrency: 4}, nil).Enrich(ctx, stations, nil)
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}
		if catalog.TotalCalls() != 2 || stats.Looked != 2 {
			t.Errorf("expected 2 lookups, got %d (stats %+v)", catalog.TotalCalls(), stats)
		}
	})

	t.Run("lookup failure aborts without writes", func(t *testing.T) {
		catalog := th.NewFakeCatalog().Add("A", "T", "ISRC1", "spotify:track:1")
		catalog.Errors[models.BuildQuery("B", "T2")] = errors.New("rate limited")
		store := cache.NewMemoryStore()
		st := station("us/demo", pair("A", "T"), pair("B", "T2"))

		_, err := NewEnricher(catalog, store, EnrichOpts{Concurrency: 1}, nil).Enrich(ctx, []*models.Station{st}, nil)
		if !errors.Is(err, shared.ErrLookup) {
			t.Fatalf("expected ErrLookup, got %v", err)
		}

		if n, _ := store.Len(ctx); n != 0 {
			t.Errorf("expected empty cache, got %d entries", n)
		}
		if store.Flushes() != 0 {
			t.Error("store should not be flushed")
		}
		for _, tr := range st.Tracks {
			if tr.Enriched() {
				t.Errorf("track should not be modified: %+v", tr)
			}
		}
	})

	t.Run("cache read failure", func(t *testing.T) {
		store := &failingStore{MemoryStore: cache.NewMemoryStore(), getErr: shared.ErrCache}
		_, err := NewEnricher(th.NewFakeCatalog(), store, EnrichOpts{}, nil).Enrich(ctx, []*models.Station{station("us/demo", pair("A", "T"))}, nil)
		if !errors.Is(err, shared.ErrCache) {
			t.Errorf("expected ErrCache, got %v", err)
		}
	})

	t.Run("flush failure is returned", func(t *testing.T) {
		store := &failingStore{MemoryStore: cache.NewMemoryStore(), flushErr: shared.ErrCache}
		_, err := NewEnricher(th.NewFakeCatalog(), store, EnrichOpts{}, nil).Enrich(ctx, []*models.Station{station("us/demo", pair("A", "T"))}, nil)
		if !errors.Is(err, shared.ErrCache) {
			t.Errorf("expected ErrCache, got %v", err)
		}
	})

	t.Run("rate limited lookups complete", func(t *testing.T) {
		catalog := th.NewFakeCatalog()
		st := station("us/demo", pair("A", "T"), pair("B", "T"), pair("C", "T"))

		_, err := NewEnricher(catalog, cache.NewMemoryStore(), EnrichOpts{Concurrency: 3, RateLimit: 1000}, nil).Enrich(ctx, []*models.Station{st}, nil)
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}
		if catalog.TotalCalls() != 3 {
			t.Errorf("expected 3 lookups, got %d", catalog.TotalCalls())
		}
	})

	t.Run("reports lookup progress", func(t *testing.T) {
		progress := make(chan ProgressUpdate, 10)
		st := station("us/demo", pair("A", "T"), pair("B", "T"))

		if _, err := NewEnricher(th.NewFakeCatalog(), cache.NewMemoryStore(), EnrichOpts{}, nil).Enrich(ctx, []*models.Station{st}, progress); err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}
		close(progress)

		var last ProgressUpdate
		count := 0
		for u := range progress {
			if u.Phase != LookupTracks {
				t.Errorf("unexpected phase %v", u.Phase)
			}
			count++
			last = u
		}
		if count != 2 || last.Total != 2 || last.Station != "us/demo" {
			t.Errorf("unexpected progress: count=%d last=%+v", count, last)
		}
	})

	t.Run("empty station", func(t *testing.T) {
		catalog := th.NewFakeCatalog()
		store := cache.NewMemoryStore()
		stats, err := NewEnricher(catalog, store, EnrichOpts{}, nil).Enrich(ctx, []*models.Station{{ID: "us/empty"}}, nil)
		if err != nil {
			t.Fatalf("Enrich() error = %v", err)
		}
		if stats != (EnrichStats{}) || catalog.TotalCalls() != 0 {
			t.Errorf("expected no work, got %+v", stats)
		}
	})
}

package tasks

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/weekly/internal/cache"
	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/services"
	"github.com/desertthunder/weekly/internal/shared"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// EnrichOpts contains configuration for catalog lookups.
type EnrichOpts struct {
	Concurrency int     // Concurrent lookups (default: 8)
	RateLimit   float64 // Requests per second, 0 for unlimited
}

// EnrichStats counts how the distinct queries of a batch were resolved.
type EnrichStats struct {
	Cached  int `json:"cached"`  // Served from the cache, hits and cached misses alike
	Looked  int `json:"looked"`  // Sent to the catalog
	Found   int `json:"found"`   // Lookups with a match
	Missing int `json:"missing"` // Lookups without a match, now cached as negative
}

// Enricher resolves every track to catalog identifiers through a persistent cache.
//
// It is the only writer of the cache: entries are stored after all lookups of a batch have succeeded.
type Enricher struct {
	catalog     services.Catalog
	store       cache.Store
	concurrency int
	limiter     *rate.Limiter
	logger      *log.Logger
}

// NewEnricher creates an [Enricher].
func NewEnricher(catalog services.Catalog, store cache.Store, opts EnrichOpts, logger *log.Logger) *Enricher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 8
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}

	e := &Enricher{catalog: catalog, store: store, concurrency: opts.Concurrency, logger: logger}
	if opts.RateLimit > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	}
	return e
}

// Enrich fills ExternalID and ExternalURI on every track of stations.
//
// Each distinct query is looked up at most once and only when not cached. Any lookup
// failure aborts the batch: no records are modified and nothing is written to the cache.
func (e *Enricher) Enrich(ctx context.Context, stations []*models.Station, progress chan<- ProgressUpdate) (EnrichStats, error) {
	var stats EnrichStats

	queries := distinctQueries(stations)
	entries := make(map[string]models.CacheEntry, len(queries))

	var misses []string
	for _, q := range queries {
		entry, ok, err := e.store.Get(ctx, q)
		if err != nil {
			return stats, err
		}
		if ok {
			entries[q] = entry
			stats.Cached++
			continue
		}
		misses = append(misses, q)
	}

	results, err := e.lookup(ctx, stationLabel(stations), misses, progress)
	if err != nil {
		return stats, err
	}

	for i, q := range misses {
		entry := models.CacheEntry{}
		if len(results[i]) > 0 {
			best := results[i][0]
			entry = models.NewCacheEntry(best.ISRC, best.URI)
		}

		if entry.NotFound() {
			stats.Missing++
		} else {
			stats.Found++
		}
		stats.Looked++

		if err := e.store.Put(ctx, q, entry); err != nil {
			return stats, err
		}
		entries[q] = entry
	}

	for _, st := range stations {
		for i := range st.Tracks {
			st.Tracks[i].Apply(entries[st.Tracks[i].Query])
		}
	}

	if err := e.store.Flush(ctx); err != nil {
		return stats, err
	}

	e.logger.Info("enriched tracks", "queries", len(queries), "cached", stats.Cached, "found", stats.Found, "missing", stats.Missing)
	return stats, nil
}

// lookup searches every query concurrently; results are aligned with queries by index.
func (e *Enricher) lookup(ctx context.Context, station string, queries []string, progress chan<- ProgressUpdate) ([][]services.Candidate, error) {
	results := make([][]services.Candidate, len(queries))
	if len(queries) == 0 {
		return results, nil
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	var done atomic.Int64
	for i, q := range queries {
		g.Go(func() error {
			if e.limiter != nil {
				if err := e.limiter.Wait(ctx); err != nil {
					return fmt.Errorf("%w: %q: %w", shared.ErrLookup, q, err)
				}
			}

			candidates, err := e.catalog.Search(ctx, q)
			if err != nil {
				return fmt.Errorf("%w: %q: %w", shared.ErrLookup, q, err)
			}
			results[i] = candidates

			sendProgress(progress, lookupTracksUpdate(station, int(done.Add(1)), len(queries)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// distinctQueries returns each query once, in first-seen order across stations.
func distinctQueries(stations []*models.Station) []string {
	seen := make(map[string]struct{})
	var queries []string
	for _, st := range stations {
		for _, t := range st.Tracks {
			if _, ok := seen[t.Query]; ok {
				continue
			}
			seen[t.Query] = struct{}{}
			queries = append(queries, t.Query)
		}
	}
	return queries
}

func stationLabel(stations []*models.Station) string {
	if len(stations) == 1 {
		return stations[0].ID
	}
	return fmt.Sprintf("%d stations", len(stations))
}

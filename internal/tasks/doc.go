// Package tasks runs the weekly station pipeline with real-time progress reporting.
//
// # Core Operations
//
// [Engine] processes stations strictly one after another:
//
//  1. Fetch : a week of station pages via [Fetcher]
//  2. Extract : (artist, track) pairs and the reporting window via [Extractor]
//  3. Aggregate : deduplicated, optionally ranked tracks
//  4. Enrich : catalog identifiers through the lookup cache ([Enricher])
//  5. Playlist : one new platform playlist per station ([PlaylistBuilder])
//
// [Engine.Scrape] stops after aggregation and never touches the catalog.
//
// A failing station produces a [StageError] naming the stage it failed in; the next station still runs.
//
// # Progress Reporting
//
// The [ProgressUpdate] struct contains phase, station, step counters, messages, and optional data
// for advanced UI rendering. Updates use select with default to prevent blocking.
//
// # Lookup Cache
//
// The [Enricher] is the only writer of the cache. Lookups run concurrently behind a barrier;
// entries are stored only after every lookup of the batch succeeded, then flushed once.
// A query with no match is cached as a negative entry and never looked up again.
//
// # Reports
//
// [Export] writes a report per station and a manifest summarizing the run.
package tasks

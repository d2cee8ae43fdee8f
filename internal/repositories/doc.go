// Package repositories implements SQLite persistence for the lookup cache and run history.
//
// Key Implementations:
//   - [CacheRepository] : catalog lookup cache keyed by query string, with NULL columns for negative results
//   - [RunRepository] : per-station run outcomes for the history command
//
// Sequence numbers provide stable, human-readable ordering (e.g., run #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories

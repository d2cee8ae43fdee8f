// Package models defines the domain entities for the weekly station playlist pipeline.
//
// The package contains two categories of types:
//
// 1. Pipeline values: created fresh on every run from scraped input
//   - [TrackPair] : raw (artist, track) pair read from a station page
//   - [Page] : one day of extracted pairs plus its reporting window label
//   - [TrackRecord] : deduplicated track with play count and optional catalog fields
//   - [Station] : a station's reporting window and ranked track list
//
// 2. Persistent values
//   - [CacheEntry] : catalog lookup result keyed by a track's query string
//   - [Run] : one station's pipeline outcome, stored for the history command
//
// [CacheEntry] with both fields nil is the negative "not found" result. It is a valid,
// cacheable value and must not trigger another lookup.
package models

// package models defines the data model for the weekly station pipeline
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Window is the reporting window of a station, as labelled by the source site.
type Window struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// TrackPair is a raw (artist, track) pair extracted from a station page.
type TrackPair struct {
	Artist string `json:"artist"`
	Track  string `json:"track"`
}

// Key returns the canonical dedupe key for the pair: the pair itself, compared exactly.
func (p TrackPair) Key() TrackPair {
	return p
}

// Query returns the catalog search query for the pair.
func (p TrackPair) Query() string {
	return BuildQuery(p.Artist, p.Track)
}

// Page is the extracted content of a single day.
type Page struct {
	Pairs   []TrackPair
	Window  string // Active day label; empty when the page has none
	Invalid int    // Entries that could not be split into artist and track
}

// BuildQuery builds the catalog search string used as the cache and lookup key.
func BuildQuery(artist, track string) string {
	return fmt.Sprintf("artist:%s track:%s", artist, track)
}

// CacheEntry is a resolved catalog lookup.
//
// Both fields nil is the canonical negative result.
type CacheEntry struct {
	ExternalID  *string `json:"isrc"`
	ExternalURI *string `json:"uri"`
}

// NewCacheEntry builds a [CacheEntry], mapping empty strings to nil.
func NewCacheEntry(isrc, uri string) CacheEntry {
	var e CacheEntry
	if isrc != "" {
		e.ExternalID = &isrc
	}
	if uri != "" {
		e.ExternalURI = &uri
	}
	return e
}

// NotFound reports whether the entry is a negative lookup result.
func (e CacheEntry) NotFound() bool {
	return e.ExternalID == nil && e.ExternalURI == nil
}

// ISRC returns the external identifier or an empty string.
func (e CacheEntry) ISRC() string { return deref(e.ExternalID) }

// URI returns the external URI or an empty string.
func (e CacheEntry) URI() string { return deref(e.ExternalURI) }

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// TrackRecord is a unique track within a station with its play count.
type TrackRecord struct {
	Artist      string  `json:"artist"`
	Track       string  `json:"track"`
	Query       string  `json:"query"`
	Count       int     `json:"count"`
	ExternalID  *string `json:"isrc,omitempty"`
	ExternalURI *string `json:"uri,omitempty"`
}

// NewTrackRecord creates a record for the first occurrence of a pair.
func NewTrackRecord(p TrackPair) TrackRecord {
	return TrackRecord{
		Artist: p.Artist,
		Track:  p.Track,
		Query:  p.Query(),
		Count:  1,
	}
}

// Apply copies the catalog fields of a cache entry onto the record.
func (t *TrackRecord) Apply(e CacheEntry) {
	t.ExternalID = e.ExternalID
	t.ExternalURI = e.ExternalURI
}

// Enriched reports whether the record carries a usable URI.
func (t TrackRecord) Enriched() bool {
	return t.ExternalURI != nil && *t.ExternalURI != ""
}

// ISRC returns the external identifier or an empty string.
func (t TrackRecord) ISRC() string { return deref(t.ExternalID) }

// URI returns the external URI or an empty string.
func (t TrackRecord) URI() string { return deref(t.ExternalURI) }

// Station is a station's deduplicated week of tracks.
type Station struct {
	ID      string        `json:"station"` // Country coded identifier, e.g. "us/lightning100"
	Window  Window        `json:"window"`
	Tracks  []TrackRecord `json:"tracks"`
	Invalid int           `json:"invalid"` // Unparseable entries dropped during extraction
}

// Plays returns the total number of plays across all tracks.
func (s *Station) Plays() int {
	total := 0
	for _, t := range s.Tracks {
		total += t.Count
	}
	return total
}

// URIs returns the external URIs of enriched tracks in station order.
func (s *Station) URIs() []string {
	uris := make([]string, 0, len(s.Tracks))
	for _, t := range s.Tracks {
		if t.Enriched() {
			uris = append(uris, *t.ExternalURI)
		}
	}
	return uris
}

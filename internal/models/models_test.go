package models

import "testing"

func TestBuildQuery(t *testing.T) {
	tc := []struct {
		name   string
		artist string
		track  string
		want   string
	}{
		{name: "basic", artist: "Artist1", track: "Song1", want: "artist:Artist1 track:Song1"},
		{name: "case is preserved", artist: "the NATIONAL", track: "Bloodbuzz", want: "artist:the NATIONAL track:Bloodbuzz"},
		{name: "empty track", artist: "A", track: "", want: "artist:A track:"},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildQuery(tt.artist, tt.track); got != tt.want {
				t.Errorf("BuildQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCacheEntry(t *testing.T) {
	t.Run("empty strings are the negative result", func(t *testing.T) {
		e := NewCacheEntry("", "")
		if !e.NotFound() {
			t.Error("expected entry to be a negative result")
		}
	})

	t.Run("found entry", func(t *testing.T) {
		e := NewCacheEntry("USRC17607839", "spotify:track:abc")
		if e.NotFound() {
			t.Fatal("expected entry to be found")
		}
		if *e.ExternalID != "USRC17607839" || *e.ExternalURI != "spotify:track:abc" {
			t.Errorf("unexpected entry %+v", e)
		}
	})

	t.Run("uri without isrc is still found", func(t *testing.T) {
		e := NewCacheEntry("", "spotify:track:abc")
		if e.NotFound() {
			t.Error("expected entry to be found")
		}
		if e.ExternalID != nil {
			t.Error("expected nil isrc")
		}
	})
}

func TestTrackRecord(t *testing.T) {
	t.Run("NewTrackRecord", func(t *testing.T) {
		r := NewTrackRecord(TrackPair{Artist: "A", Track: "T"})
		if r.Count != 1 {
			t.Errorf("expected count 1, got %d", r.Count)
		}
		if r.Query != "artist:A track:T" {
			t.Errorf("unexpected query %q", r.Query)
		}
		if r.Enriched() {
			t.Error("new record should not be enriched")
		}
	})

	t.Run("Apply", func(t *testing.T) {
		r := NewTrackRecord(TrackPair{Artist: "A", Track: "T"})
		r.Apply(NewCacheEntry("ISRC1", "spotify:track:1"))
		if !r.Enriched() || r.URI() != "spotify:track:1" || r.ISRC() != "ISRC1" {
			t.Errorf("unexpected record after apply %+v", r)
		}

		r.Apply(CacheEntry{})
		if r.Enriched() || r.URI() != "" || r.ISRC() != "" {
			t.Error("negative entry should clear catalog fields")
		}
	})
}

func TestStation(t *testing.T) {
	uri := "spotify:track:1"
	s := Station{
		ID: "us/demo",
		Tracks: []TrackRecord{
			{Artist: "A", Track: "T", Count: 3, ExternalURI: &uri},
			{Artist: "B", Track: "T2", Count: 2},
		},
	}

	if s.Plays() != 5 {
		t.Errorf("expected 5 plays, got %d", s.Plays())
	}

	uris := s.URIs()
	if len(uris) != 1 || uris[0] != uri {
		t.Errorf("unexpected uris %v", uris)
	}
}

func TestRunValidate(t *testing.T) {
	tc := []struct {
		name    string
		run     *Run
		wantErr bool
	}{
		{name: "valid", run: NewRun(1, "us/demo", RunSucceeded)},
		{name: "missing station", run: NewRun(1, "", RunSucceeded), wantErr: true},
		{name: "bad status", run: NewRun(1, "us/demo", RunStatus("nope")), wantErr: true},
		{name: "failed without error", run: NewRun(1, "us/demo", RunFailed), wantErr: true},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

package tasks

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/services"
	"github.com/desertthunder/weekly/internal/shared"
)

// DefaultChunkSize is the largest batch the platform accepts per add call.
const DefaultChunkSize = services.MaxItemsPerRequest

// PlaylistOpts contains configuration for playlist materialization.
type PlaylistOpts struct {
	ChunkSize int  // URIs per add call; values <= 0 fall back to [DefaultChunkSize]
	Public    bool // Create public playlists
}

// PlaylistResult describes a materialized station playlist.
type PlaylistResult struct {
	PlaylistID string `json:"playlist_id"`
	Link       string `json:"link"`
	Added      int    `json:"added"`
	Chunks     int    `json:"chunks"`
}

// PlaylistBuilder writes an enriched station to a new platform playlist.
type PlaylistBuilder struct {
	platform services.Platform
	opts     PlaylistOpts
	owner    string
	logger   *log.Logger
}

// NewPlaylistBuilder creates a [PlaylistBuilder].
func NewPlaylistBuilder(platform services.Platform, opts PlaylistOpts, logger *log.Logger) *PlaylistBuilder {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &PlaylistBuilder{platform: platform, opts: opts, logger: logger}
}

// Build creates a playlist named after the station and adds every enriched track in station order.
//
// A station with tracks but no URIs has not been enriched and fails with [shared.ErrDataNotReady]
// before any platform call. A station without tracks yields an empty playlist.
func (b *PlaylistBuilder) Build(ctx context.Context, st *models.Station, progress chan<- ProgressUpdate) (*PlaylistResult, error) {
	uris := st.URIs()
	if len(st.Tracks) > 0 && len(uris) == 0 {
		return nil, fmt.Errorf("%w: %s has %d tracks", shared.ErrDataNotReady, st.ID, len(st.Tracks))
	}

	owner, err := b.ownerID(ctx)
	if err != nil {
		return nil, err
	}

	description := Description(st.Window)
	pl, err := b.platform.CreatePlaylist(ctx, owner, st.ID, description, b.opts.Public)
	if err != nil {
		return nil, err
	}

	result := &PlaylistResult{PlaylistID: pl.ID, Link: pl.Link}
	sendProgress(progress, createPlaylistUpdate(st.ID, result))

	chunks := Chunk(uris, b.opts.ChunkSize)
	for i, chunk := range chunks {
		if err := b.platform.AddItems(ctx, pl.ID, chunk); err != nil {
			return result, err
		}
		result.Added += len(chunk)
		result.Chunks++
		sendProgress(progress, addItemsUpdate(st.ID, i+1, len(chunks), result.Added))
	}

	if err := b.platform.UpdateDescription(ctx, pl.ID, description); err != nil {
		return result, err
	}

	b.logger.Info("playlist written", "station", st.ID, "playlist", pl.ID, "tracks", result.Added, "skipped", len(st.Tracks)-result.Added)
	return result, nil
}

func (b *PlaylistBuilder) ownerID(ctx context.Context) (string, error) {
	if b.owner != "" {
		return b.owner, nil
	}
	user, err := b.platform.CurrentUser(ctx)
	if err != nil {
		return "", err
	}
	b.owner = user.ID
	return b.owner, nil
}

// Description returns the playlist description for a reporting window.
func Description(w models.Window) string {
	return fmt.Sprintf("Detected tracks for station between %s and %s", w.Start, w.End)
}

// Chunk splits items into consecutive slices of at most size elements.
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = DefaultChunkSize
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := min(start+size, len(items))
		chunks = append(chunks, items[start:end])
	}
	return chunks
}

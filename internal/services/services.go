// package services defines the catalog and playlist platform interfaces and their Spotify implementation
package services

import (
	"context"

	"golang.org/x/oauth2"
)

// Candidate is a catalog search hit.
type Candidate struct {
	ID     string
	Name   string
	Artist string
	ISRC   string
	URI    string
}

// Catalog resolves search queries to candidate tracks.
type Catalog interface {
	// Search returns matches for query, best first. No match is an empty slice, not an error.
	Search(ctx context.Context, query string) ([]Candidate, error)
}

// User is the authenticated platform account.
type User struct {
	ID          string
	DisplayName string
}

// Playlist is a playlist created on the platform.
type Playlist struct {
	ID          string
	Name        string
	Description string
	Link        string // Public web link
	Public      bool
}

// Platform creates and fills playlists.
type Platform interface {
	CurrentUser(ctx context.Context) (*User, error)
	CreatePlaylist(ctx context.Context, owner, name, description string, public bool) (*Playlist, error)
	// AddItems appends uris, in order, in a single request.
	AddItems(ctx context.Context, playlistID string, uris []string) error
	UpdateDescription(ctx context.Context, playlistID, description string) error
}

// OAuthService is implemented by services that authorize through a browser redirect.
type OAuthService interface {
	Name() string
	GetAuthURL(state string) string
	// OAuthenticate exchanges an authorization code for a token and authenticates the service with it.
	OAuthenticate(ctx context.Context, code string) (*oauth2.Token, error)
}

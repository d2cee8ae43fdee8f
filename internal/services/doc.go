// Package services connects the pipeline to the music platform.
//
// # Interfaces
//
// [Catalog] answers track searches for the enricher. [Platform] creates playlists and appends items for
// the playlist builder. [OAuthService] covers the browser authorization used by the auth command.
//
// # Spotify Implementation
//
// [SpotifyService] implements all three on top of github.com/zmb3/spotify/v2. The HTTP client comes from an
// [oauth2.Config] token source seeded with the stored refresh token; rotated tokens are reported through
// [SpotifyService.SetTokenRefreshCallback] so the caller can persist them.
//
// # Error Handling
//
// Services use typed errors from shared package:
//   - [shared.ErrNotAuthenticated] : Authenticate not called
//   - [shared.ErrMissingCredentials] : client id or secret absent
//   - [shared.ErrLookup] : a search request failed
//   - [shared.ErrAPIRequest] : a playlist request failed
//
// # API Mappings
//
// A search hit maps to [Candidate] with the ISRC taken from external_ids. Playlist items are sent as track IDs,
// derived from "spotify:track:{id}" URIs.
package services

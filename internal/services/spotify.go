// Spotify implementation of [Catalog], [Platform] and [OAuthService]
package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/desertthunder/weekly/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const (
	// DefaultRedirectURI matches the local callback server's default address.
	DefaultRedirectURI = "http://127.0.0.1:3000/callback"
	// MaxItemsPerRequest is the platform limit for one add-items call.
	MaxItemsPerRequest = 100

	trackURIPrefix = "spotify:track:"
)

// SpotifyOption customizes a [SpotifyService].
type SpotifyOption func(*SpotifyService)

// WithAPIBaseURL points the client at a different API root, e.g. an httptest server.
func WithAPIBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) {
		if u != "" && !strings.HasSuffix(u, "/") {
			u += "/"
		}
		s.baseURL = u
	}
}

// WithMarket restricts searches to a market (ISO 3166-1 alpha-2).
func WithMarket(market string) SpotifyOption {
	return func(s *SpotifyService) { s.market = market }
}

// WithTokenURL overrides the token endpoint.
func WithTokenURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.config.Endpoint.TokenURL = u }
}

// SpotifyService implements [Catalog], [Platform] and [OAuthService] with the Spotify Web API.
// Uses [oauth2] for authentication; the client refreshes expired access tokens on its own.
type SpotifyService struct {
	config         *oauth2.Config
	baseURL        string
	market         string
	mu             sync.RWMutex
	token          *oauth2.Token
	client         *spotify.Client
	onTokenRefresh func(*oauth2.Token)
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
//
// Recognized keys are client_id, client_secret and redirect_uri.
func NewSpotifyService(credentials map[string]string, opts ...SpotifyOption) (*SpotifyService, error) {
	clientID := credentials["client_id"]
	if clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret := credentials["client_secret"]
	if clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI := credentials["redirect_uri"]
	if redirectURI == "" {
		redirectURI = DefaultRedirectURI
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopePlaylistModifyPublic,
			spotifyauth.ScopePlaylistModifyPrivate,
		},
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}

	s := &SpotifyService{config: config}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// OAuthConfig returns the underlying OAuth2 configuration.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// SetTokenRefreshCallback registers fn to receive every new token the service obtains.
//
// Set it before Authenticate; tokens issued earlier are not replayed.
func (s *SpotifyService) SetTokenRefreshCallback(fn func(*oauth2.Token)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTokenRefresh = fn
}

// Authenticate prepares the API client from stored credentials.
//
// Expects one of "access_token", "refresh_token" or "auth_code" in credentials.
func (s *SpotifyService) Authenticate(ctx context.Context, credentials map[string]string) error {
	if accessToken := credentials["access_token"]; accessToken != "" {
		s.use(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}), &oauth2.Token{AccessToken: accessToken})
		return nil
	}

	if refreshToken := credentials["refresh_token"]; refreshToken != "" {
		token := &oauth2.Token{RefreshToken: refreshToken}
		s.use(ctx, s.config.TokenSource(ctx, token), token)
		return nil
	}

	if authCode := credentials["auth_code"]; authCode != "" {
		_, err := s.OAuthenticate(ctx, authCode)
		return err
	}

	return fmt.Errorf("%w: missing access_token, refresh_token or auth_code", shared.ErrMissingCredentials)
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// OAuthenticate exchanges an authorization code and authenticates the service with the resulting token.
func (s *SpotifyService) OAuthenticate(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}

	s.use(ctx, s.config.TokenSource(ctx, token), token)
	return token, nil
}

// use installs a client built on source.
func (s *SpotifyService) use(ctx context.Context, source oauth2.TokenSource, token *oauth2.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := &refreshableTokenSource{source: source, callback: s.onTokenRefresh}
	httpClient := oauth2.NewClient(ctx, ts)

	opts := []spotify.ClientOption{spotify.WithRetry(true)}
	if s.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(s.baseURL))
	}

	s.token = token
	s.client = spotify.New(httpClient, opts...)
}

func (s *SpotifyService) api() (*spotify.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.client == nil {
		return nil, shared.ErrNotAuthenticated
	}
	return s.client, nil
}

// Search returns at most one candidate: the catalog's top track hit for query.
func (s *SpotifyService) Search(ctx context.Context, query string) ([]Candidate, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}

	opts := []spotify.RequestOption{spotify.Limit(1)}
	if s.market != "" {
		opts = append(opts, spotify.Market(s.market))
	}

	res, err := client.Search(ctx, query, spotify.SearchTypeTrack, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", shared.ErrLookup, query, err)
	}

	if res.Tracks == nil {
		return []Candidate{}, nil
	}

	candidates := make([]Candidate, 0, len(res.Tracks.Tracks))
	for _, track := range res.Tracks.Tracks {
		c := Candidate{
			ID:   string(track.ID),
			Name: track.Name,
			ISRC: track.ExternalIDs["isrc"],
			URI:  string(track.URI),
		}
		if len(track.Artists) > 0 {
			c.Artist = track.Artists[0].Name
		}
		candidates = append(candidates, c)
	}
	return candidates, nil
}

// CurrentUser retrieves the current authenticated user's profile.
func (s *SpotifyService) CurrentUser(ctx context.Context) (*User, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}

	u, err := client.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: current user: %v", shared.ErrAPIRequest, err)
	}
	return &User{ID: u.ID, DisplayName: u.DisplayName}, nil
}

// CreatePlaylist creates a playlist owned by owner.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, owner, name, description string, public bool) (*Playlist, error) {
	client, err := s.api()
	if err != nil {
		return nil, err
	}

	pl, err := client.CreatePlaylistForUser(ctx, owner, name, description, public, false)
	if err != nil {
		return nil, fmt.Errorf("%w: create playlist %q: %v", shared.ErrAPIRequest, name, err)
	}

	return &Playlist{
		ID:          string(pl.ID),
		Name:        name,
		Description: description,
		Link:        pl.ExternalURLs["spotify"],
		Public:      public,
	}, nil
}

// AddItems appends up to [MaxItemsPerRequest] track URIs to a playlist.
func (s *SpotifyService) AddItems(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) > MaxItemsPerRequest {
		return fmt.Errorf("%w: %d items exceeds the limit of %d per request", shared.ErrInvalidArgument, len(uris), MaxItemsPerRequest)
	}

	ids, err := TrackIDs(uris)
	if err != nil {
		return err
	}

	client, err := s.api()
	if err != nil {
		return err
	}

	if _, err := client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), ids...); err != nil {
		return fmt.Errorf("%w: add items to %s: %v", shared.ErrAPIRequest, playlistID, err)
	}
	return nil
}

// UpdateDescription replaces a playlist's description.
func (s *SpotifyService) UpdateDescription(ctx context.Context, playlistID, description string) error {
	client, err := s.api()
	if err != nil {
		return err
	}

	if err := client.ChangePlaylistDescription(ctx, spotify.ID(playlistID), description); err != nil {
		return fmt.Errorf("%w: update description of %s: %v", shared.ErrAPIRequest, playlistID, err)
	}
	return nil
}

// TrackIDs converts "spotify:track:{id}" URIs to track IDs.
func TrackIDs(uris []string) ([]spotify.ID, error) {
	ids := make([]spotify.ID, 0, len(uris))
	for _, uri := range uris {
		id, ok := strings.CutPrefix(uri, trackURIPrefix)
		if !ok || id == "" {
			return nil, fmt.Errorf("%w: not a track uri: %q", shared.ErrInvalidArgument, uri)
		}
		ids = append(ids, spotify.ID(id))
	}
	return ids, nil
}

// refreshableTokenSource reports each new access token to callback.
type refreshableTokenSource struct {
	source   oauth2.TokenSource
	callback func(*oauth2.Token)
	mu       sync.Mutex
	last     string
}

func (r *refreshableTokenSource) Token() (*oauth2.Token, error) {
	token, err := r.source.Token()
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	changed := token.AccessToken != r.last
	r.last = token.AccessToken
	r.mu.Unlock()

	if changed && r.callback != nil {
		r.callback(token)
	}
	return token, nil
}

package shared

import (
	"errors"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
)

// Environment variables that override the Spotify credentials in config.toml.
const (
	EnvSpotifyID     = "SPOTIFY_ID"
	EnvSpotifySecret = "SPOTIFY_SECRET"
	EnvSpotifyURI    = "SPOTIFY_URI"
	EnvSpotifyToken  = "SPOTIFY_HOST_TOKEN"
)

// LoadEnv loads a dotenv file into the process environment.
//
// A missing file is not an error. Variables already set in the environment win.
func LoadEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// ApplyEnv overrides Spotify credentials with any values present in the environment.
func (c *Config) ApplyEnv() {
	sp := &c.Credentials.Spotify
	for env, dst := range map[string]*string{
		EnvSpotifyID:     &sp.ClientID,
		EnvSpotifySecret: &sp.ClientSecret,
		EnvSpotifyURI:    &sp.RedirectURI,
		EnvSpotifyToken:  &sp.RefreshToken,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}
}

package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/desertthunder/weekly/internal/server"
	"github.com/desertthunder/weekly/internal/services"
	"github.com/desertthunder/weekly/internal/shared"
	"github.com/urfave/cli/v3"
)

const authTimeout = 2 * time.Minute

// SpotifyAuth runs the authorization code flow against a local callback server
// and stores the resulting refresh token in the config file.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	svc, err := services.NewSpotifyService(r.config.Credentials.Spotify.Map())
	if err != nil {
		return err
	}

	state, err := shared.GenerateState()
	if err != nil {
		return fmt.Errorf("failed to generate state: %w", err)
	}

	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	srv, err := server.NewCallbackServer(addr, server.NewOAuthHandler(svc, state), r.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	r.logger.Debug("callback server listening", "addr", srv.Addr())

	authURL := svc.GetAuthURL(state)
	if cmd.Bool("no-browser") {
		r.writePlain("Open this URL to authorize weekly:\n%s\n", authURL)
	} else if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser", "error", err)
		r.writePlain("Open this URL to authorize weekly:\n%s\n", authURL)
	}

	timeout := cmd.Duration("timeout")
	if timeout <= 0 {
		timeout = authTimeout
	}

	r.logger.Info("waiting for authorization", "timeout", timeout)
	token, err := srv.Wait(ctx, timeout)
	if err != nil {
		return err
	}

	if err := r.saveTokens(token); err != nil {
		return err
	}

	r.logger.Info("authentication successful")
	return r.writePlain("✓ Spotify authorization saved to %s\n", r.configPath)
}

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/weekly/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when missing, then initializes the database.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	if _, err := os.Stat(r.configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", r.configPath)
		if err := shared.CreateConfigFile(r.configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return fmt.Errorf("failed to load created config: %w", err)
			}
			config.ApplyEnv()
			r.config = config
			r.logger.Info("config file created", "path", r.configPath)
		}
	}

	if err := r.config.Validate(); err != nil {
		return err
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.database(); err != nil {
		return err
	}

	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	r.writePlain("✓ Configuration: %s\n", r.configPath)
	r.writePlain("✓ Database: %s\n", r.config.Database.Path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Add your Spotify client_id and client_secret to %s (or SPOTIFY_ID / SPOTIFY_SECRET)\n", r.configPath)
	r.writePlain("2. Run 'weekly auth' to authorize playlist access\n")
	return nil
}

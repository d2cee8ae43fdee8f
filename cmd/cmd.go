// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/weekly/internal/formatter"
	"github.com/urfave/cli/v3"
)

var formatFlag = &cli.StringFlag{
	Name:    "format",
	Aliases: []string{"f"},
	Usage:   "Report format: text, json, csv or markdown",
	Value:   formatter.FormatText,
}

// setupCommand writes the config template and prepares the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml (if missing), initialize the database and run migrations",
		Action: r.Setup,
	}
}

// authCommand runs the Spotify authorization code flow.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authorize weekly with Spotify and store the refresh token",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "How long to wait for the browser callback",
				Value: authTimeout,
			},
			&cli.BoolFlag{
				Name:  "no-browser",
				Usage: "Print the authorization URL instead of opening a browser",
			},
		},
		Action: r.SpotifyAuth,
	}
}

// runCommand runs the full pipeline.
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "Scrape, enrich and write a playlist for each station",
		ArgsUsage: "[stations...]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "chunk-size",
				Usage: "Tracks per add-items request (1-100, default from config)",
			},
			&cli.BoolFlag{
				Name:  "unordered",
				Usage: "Keep first-seen order instead of ranking by play count",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Enrich tracks but do not create playlists",
			},
			&cli.BoolFlag{
				Name:  "no-cache",
				Usage: "Use an in-memory lookup cache for this run",
			},
			&cli.BoolFlag{
				Name:  "tui",
				Usage: "Show an interactive progress view",
			},
			&cli.StringFlag{
				Name:  "export-dir",
				Usage: "Write a report per station and a manifest to this directory",
			},
			formatFlag,
		},
		Action: r.Run,
	}
}

// scrapeCommand fetches and aggregates a station without touching Spotify.
func scrapeCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "scrape",
		Usage:     "Print the ranked tracks of a station's week",
		ArgsUsage: "<station>",
		Flags: []cli.Flag{
			formatFlag,
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write the report to a file instead of stdout",
			},
			&cli.BoolFlag{
				Name:  "unordered",
				Usage: "Keep first-seen order instead of ranking by play count",
			},
		},
		Action: r.Scrape,
	}
}

// cacheCommand inspects and manages the lookup cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect and manage the track lookup cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show the number of cached lookups",
				Action: r.CacheStats,
			},
			{
				Name:      "get",
				Usage:     "Show the cached lookup for a track",
				ArgsUsage: "<artist> <track>",
				Action:    r.CacheGet,
			},
			{
				Name:  "clear",
				Usage: "Remove every cached lookup",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Do not ask for confirmation",
					},
				},
				Action: r.CacheClear,
			},
		},
	}
}

// historyCommand lists recorded runs.
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List recorded station runs",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "station",
				Usage: "Only runs of this station",
			},
			&cli.StringFlag{
				Name:  "status",
				Usage: "Only runs with this status: succeeded, failed or skipped",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of runs",
				Value: 20,
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.History,
	}
}

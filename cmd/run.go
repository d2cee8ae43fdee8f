package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/desertthunder/weekly/internal/formatter"
	"github.com/desertthunder/weekly/internal/services"
	"github.com/desertthunder/weekly/internal/shared"
	"github.com/desertthunder/weekly/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Run scrapes, enriches and writes a playlist for each requested station.
//
// Stations default to the configured list. A failed station does not stop the
// others, but makes the command exit non-zero.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	stations := cmd.Args().Slice()
	if len(stations) == 0 {
		stations = r.config.Stations
	}
	if len(stations) == 0 {
		return fmt.Errorf("%w: no stations given and none configured", shared.ErrMissingArgument)
	}

	chunkSize := int(cmd.Int("chunk-size"))
	if chunkSize < 0 || chunkSize > services.MaxItemsPerRequest {
		return fmt.Errorf("%w: chunk size must be between 1 and %d", shared.ErrInvalidArgument, services.MaxItemsPerRequest)
	}

	format := cmd.String("format")
	if err := formatter.ValidateFormat(format); err != nil {
		return err
	}

	if cmd.Bool("tui") {
		if err := r.redirectLogs(); err != nil {
			return err
		}
	}

	engine, err := r.engine(ctx, chunkSize, cmd.Bool("no-cache"))
	if err != nil {
		return err
	}

	opts := tasks.RunOpts{Ordered: !cmd.Bool("unordered"), DryRun: cmd.Bool("dry-run")}

	var results []tasks.StationResult
	var runErr error
	if cmd.Bool("tui") {
		results, runErr = r.TUI(ctx, engine, stations, opts)
	} else {
		results, runErr = r.runWithProgress(ctx, engine, stations, opts)
	}

	r.printResults(results, opts.DryRun)

	if dir := cmd.String("export-dir"); dir != "" && len(results) > 0 {
		exported, err := tasks.Export(ctx, results, tasks.ExportOpts{
			Format:    format,
			OutputDir: dir,
			DryRun:    opts.DryRun,
		}, nil)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		r.writePlainln("Reports written to %s", exported.Manifest.OutputDirectory)
		r.writePlain("Manifest: %s\n", exported.ManifestPath)
	}

	if runErr != nil {
		failed := 0
		for _, res := range results {
			if res.Err != nil {
				failed++
			}
		}
		if failed == 0 {
			return runErr
		}
		return fmt.Errorf("%d of %d stations failed: %w", failed, len(stations), runErr)
	}
	return nil
}

// runWithProgress runs the engine while logging its progress updates.
func (r *Runner) runWithProgress(ctx context.Context, engine *tasks.Engine, stations []string, opts tasks.RunOpts) ([]tasks.StationResult, error) {
	progress := make(chan tasks.ProgressUpdate, 32)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			switch update.Phase {
			case tasks.StationFailed:
				r.logger.Warn(update.Message, "station", update.Station)
			case tasks.LookupTracks, tasks.AddItems:
				r.logger.Debug(update.Message, "station", update.Station, "step", update.Step, "total", update.Total)
			default:
				r.logger.Info(update.Message, "station", update.Station)
			}
		}
	}()

	results, err := engine.Run(ctx, stations, opts, progress)
	close(progress)
	wg.Wait()
	return results, err
}

func (r *Runner) printResults(results []tasks.StationResult, dryRun bool) {
	if len(results) == 0 {
		return
	}

	r.writePlainHeader("Weekly Playlists")
	for _, res := range results {
		st := res.Station
		switch {
		case res.Err != nil:
			r.writePlain("✗ %s: %v\n", stationName(res), res.Err)
		case res.Playlist != nil:
			r.writePlain("✓ %s: %d tracks, %d added\n", st.ID, len(st.Tracks), res.Playlist.Added)
			r.writePlain("  %s\n", res.Playlist.Link)
		case dryRun:
			r.writePlain("- %s: %d tracks, %d matched (dry run)\n", st.ID, len(st.Tracks), len(st.URIs()))
		default:
			r.writePlain("- %s: no tracks\n", st.ID)
		}
	}
}

func stationName(res tasks.StationResult) string {
	if res.Station != nil {
		return res.Station.ID
	}
	var stageErr *tasks.StageError
	if errors.As(res.Err, &stageErr) {
		return stageErr.Station
	}
	return "station"
}

// Scrape fetches one station's week and prints its aggregated tracks without touching Spotify.
func (r *Runner) Scrape(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: station is required", shared.ErrMissingArgument)
	}

	st, err := r.scrapeEngine().Scrape(ctx, id, !cmd.Bool("unordered"))
	if err != nil {
		return err
	}

	data, err := formatter.Render(formatter.Report{Station: st}, cmd.String("format"))
	if err != nil {
		return err
	}

	if path := cmd.String("output"); path != "" {
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write report: %w", err)
		}
		r.logger.Info("report written", "station", st.ID, "path", path, "tracks", len(st.Tracks))
		return nil
	}

	if _, err := r.output.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

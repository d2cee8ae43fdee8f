package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/weekly/internal/formatter"
	"github.com/desertthunder/weekly/internal/models"
)

// ManifestName is the file name of the run summary written next to the reports.
const ManifestName = "manifest.json"

// ExportOpts contains configuration for writing station reports.
type ExportOpts struct {
	Format     string // Report format: text, json, csv, markdown
	OutputDir  string // Base output directory (default: weekly_export_{epoch})
	NumWorkers int    // Concurrent writers (default: 4)
	DryRun     bool   // Mark successful stations as skipped in the manifest
}

// ExportResult is the outcome of [Export].
type ExportResult struct {
	Manifest     *formatter.Manifest
	ManifestPath string
}

type exportJob struct {
	index  int
	result StationResult
}

// Export writes one report per station and a manifest summarizing the run.
//
// Reports are written by a small worker pool. Stations that failed before aggregation
// get a manifest entry but no report. Manifest entries keep the order of results.
func Export(ctx context.Context, results []StationResult, opts ExportOpts, progress chan<- ProgressUpdate) (*ExportResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("weekly_export_%d", time.Now().Unix())
	}
	if opts.Format == "" {
		opts.Format = formatter.FormatText
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manifest := &formatter.Manifest{
		GeneratedAt:     time.Now().UTC(),
		OutputDirectory: opts.OutputDir,
		Format:          opts.Format,
		Total:           len(results),
		Stations:        make([]formatter.ManifestEntry, len(results)),
	}

	jobs := make(chan exportJob, len(results))
	entries := make(chan exportJob, len(results))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				if ctx.Err() != nil {
					return
				}
				manifest.Stations[job.index] = exportStation(job.result, opts)
				entries <- job
			}
		}()
	}

	for i, res := range results {
		jobs <- exportJob{index: i, result: res}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(entries)
	}()

	completed := 0
	for job := range entries {
		completed++
		entry := manifest.Stations[job.index]
		if entry.Status == string(models.RunFailed) {
			manifest.Failed++
		} else {
			manifest.Succeeded++
		}

		var err error
		if entry.Error != "" {
			err = errors.New(entry.Error)
		}
		sendProgress(progress, exportReportUpdate(completed, len(results), entry.Station, err))
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(opts.OutputDir, ManifestName)
	if err := formatter.WriteManifest(manifest, path); err != nil {
		return &ExportResult{Manifest: manifest}, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	return &ExportResult{Manifest: manifest, ManifestPath: path}, nil
}

// exportStation writes the report for a single station and returns its manifest entry.
func exportStation(res StationResult, opts ExportOpts) formatter.ManifestEntry {
	entry := formatter.ManifestEntry{Status: string(models.RunSucceeded)}
	if opts.DryRun {
		entry.Status = string(models.RunSkipped)
	}

	if res.Station != nil {
		entry.Station = res.Station.ID
		entry.Tracks = len(res.Station.Tracks)
		entry.URIs = len(res.Station.URIs())
		entry.Invalid = res.Station.Invalid
	}

	report := formatter.Report{Station: res.Station}
	if res.Playlist != nil {
		entry.PlaylistID = res.Playlist.PlaylistID
		entry.Link = res.Playlist.Link
		report.Link = res.Playlist.Link
	}

	var serr *StageError
	if errors.As(res.Err, &serr) {
		entry.Status = string(models.RunFailed)
		entry.Stage = string(serr.Stage)
		entry.Error = serr.Err.Error()
		if serr.Stage == StageFetch || serr.Stage == StageExtract {
			return entry
		}
	}

	if res.Station == nil {
		return entry
	}

	path, err := formatter.WriteReport(report, opts.Format, opts.OutputDir)
	if err != nil {
		entry.Status = string(models.RunFailed)
		entry.Error = err.Error()
		return entry
	}
	entry.File = path
	return entry
}

package tasks

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/weekly/internal/aggregate"
	"github.com/desertthunder/weekly/internal/extract"
	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/shared"
	"github.com/desertthunder/weekly/internal/source"
)

// Fetcher retrieves a week of raw station pages.
type Fetcher interface {
	Fetch(ctx context.Context, station string) (source.Week, error)
}

// Extractor turns a week of raw pages into per-day track pairs.
type Extractor interface {
	ExtractWeek(pages [][]byte) (extract.Week, error)
}

// RunRecorder persists the outcome of a station run.
type RunRecorder interface {
	Record(ctx context.Context, run *models.Run) error
}

// Stage names the pipeline step a station failed in.
type Stage string

const (
	StageFetch    Stage = "fetch"
	StageExtract  Stage = "extract"
	StageEnrich   Stage = "enrich"
	StagePlaylist Stage = "playlist"
)

// StageError wraps a station failure with the stage it happened in.
type StageError struct {
	Station string
	Stage   Stage
	Err     error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Station, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// RunOpts controls a pipeline run.
type RunOpts struct {
	Ordered bool // Rank tracks by play count
	DryRun  bool // Stop after enrichment; no playlist is written
}

// StationResult is the outcome of one station's pipeline.
type StationResult struct {
	Station  *models.Station
	Playlist *PlaylistResult
	Stats    EnrichStats
	Err      error
}

// Engine runs the weekly pipeline for a list of stations: fetch, extract, aggregate, enrich and playlist.
type Engine struct {
	fetcher   Fetcher
	extractor Extractor
	enricher  *Enricher
	builder   *PlaylistBuilder
	recorder  RunRecorder
	logger    *log.Logger
}

// NewEngine creates an [Engine]. The builder and recorder may be nil for scrape-only or dry runs.
func NewEngine(fetcher Fetcher, extractor Extractor, enricher *Enricher, builder *PlaylistBuilder, recorder RunRecorder, logger *log.Logger) *Engine {
	if logger == nil {
		logger = shared.DiscardLogger()
	}
	return &Engine{
		fetcher:   fetcher,
		extractor: extractor,
		enricher:  enricher,
		builder:   builder,
		recorder:  recorder,
		logger:    logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Run processes stations one after another.
//
// A failing station is reported in its [StationResult] and does not stop the next one.
// The returned error joins every station failure.
func (e *Engine) Run(ctx context.Context, stations []string, opts RunOpts, progress chan<- ProgressUpdate) ([]StationResult, error) {
	if e.enricher == nil {
		return nil, fmt.Errorf("%w: enricher not initialized", shared.ErrServiceUnavailable)
	}
	if e.builder == nil && !opts.DryRun {
		return nil, fmt.Errorf("%w: playlist builder not initialized", shared.ErrServiceUnavailable)
	}

	results := make([]StationResult, 0, len(stations))
	var errs []error

	for i, id := range stations {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		res := e.runStation(ctx, id, i+1, len(stations), opts, progress)
		results = append(results, res)

		var serr *StageError
		if errors.As(res.Err, &serr) {
			errs = append(errs, serr)
			sendProgress(progress, stationFailedUpdate(i+1, len(stations), serr))
		} else {
			sendProgress(progress, stationDoneUpdate(i+1, len(stations), res.Station))
		}

		e.record(ctx, res, opts)
	}

	return results, errors.Join(errs...)
}

func (e *Engine) runStation(ctx context.Context, id string, step, total int, opts RunOpts, progress chan<- ProgressUpdate) StationResult {
	station, err := source.ResolveStation(id)
	if err != nil {
		return StationResult{Station: &models.Station{ID: id}, Err: &StageError{Station: id, Stage: StageFetch, Err: err}}
	}

	logger := shared.WithLogger(e.logger, "station", station)
	sendProgress(progress, fetchStationUpdate(step, total, station))

	st, stage, err := e.scrape(ctx, station, opts.Ordered, progress)
	if err != nil {
		logger.Error("station failed", "stage", stage, "error", err)
		return StationResult{Station: &models.Station{ID: station}, Err: &StageError{Station: station, Stage: stage, Err: err}}
	}

	res := StationResult{Station: st}
	if st.Invalid > 0 {
		logger.Warn("skipped unparseable entries", "count", st.Invalid)
	}

	res.Stats, err = e.enricher.Enrich(ctx, []*models.Station{st}, progress)
	if err != nil {
		logger.Error("station failed", "stage", StageEnrich, "error", err)
		res.Err = &StageError{Station: station, Stage: StageEnrich, Err: err}
		return res
	}

	if opts.DryRun {
		logger.Info("dry run, playlist skipped", "tracks", len(st.Tracks), "uris", len(st.URIs()))
		return res
	}

	res.Playlist, err = e.builder.Build(ctx, st, progress)
	if err != nil {
		logger.Error("station failed", "stage", StagePlaylist, "error", err)
		res.Err = &StageError{Station: station, Stage: StagePlaylist, Err: err}
		return res
	}

	logger.Info("station done", "link", res.Playlist.Link)
	return res
}

// Scrape fetches and aggregates a single station without touching the catalog.
func (e *Engine) Scrape(ctx context.Context, id string, ordered bool) (*models.Station, error) {
	station, err := source.ResolveStation(id)
	if err != nil {
		return nil, err
	}

	st, stage, err := e.scrape(ctx, station, ordered, nil)
	if err != nil {
		return nil, &StageError{Station: station, Stage: stage, Err: err}
	}
	return st, nil
}

func (e *Engine) scrape(ctx context.Context, station string, ordered bool, progress chan<- ProgressUpdate) (*models.Station, Stage, error) {
	week, err := e.fetcher.Fetch(ctx, station)
	if err != nil {
		return nil, StageFetch, err
	}

	sendProgress(progress, extractPagesUpdate(station, len(week)))
	extracted, err := e.extractor.ExtractWeek(week[:])
	if err != nil {
		return nil, StageExtract, err
	}

	return aggregate.Aggregate(station, extracted.Days, extracted.Window, extracted.Invalid, ordered), "", nil
}

// record stores the run outcome; failures are logged and never fail the run.
func (e *Engine) record(ctx context.Context, res StationResult, opts RunOpts) {
	if e.recorder == nil {
		return
	}

	run := models.NewRun(0, res.Station.ID, models.RunSucceeded)
	run.Tracks = len(res.Station.Tracks)
	run.URIs = len(res.Station.URIs())
	run.Invalid = res.Station.Invalid

	var serr *StageError
	switch {
	case errors.As(res.Err, &serr):
		run.Status = models.RunFailed
		run.Stage = string(serr.Stage)
		run.Error = serr.Err.Error()
	case opts.DryRun:
		run.Status = models.RunSkipped
	}
	if res.Playlist != nil {
		run.PlaylistID = res.Playlist.PlaylistID
		run.Link = res.Playlist.Link
	}

	if err := e.recorder.Record(ctx, run); err != nil {
		e.logger.Warn("failed to record run", "station", run.Station, "error", err)
	}
}

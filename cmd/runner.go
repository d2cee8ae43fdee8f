package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/weekly/internal/cache"
	"github.com/desertthunder/weekly/internal/extract"
	"github.com/desertthunder/weekly/internal/repositories"
	"github.com/desertthunder/weekly/internal/services"
	"github.com/desertthunder/weekly/internal/shared"
	"github.com/desertthunder/weekly/internal/source"
	"github.com/desertthunder/weekly/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Dependencies not supplied through [RunnerOpts] are built on first use from the configuration.
type Runner struct {
	config     *shared.Config
	configPath string
	configured bool
	logger     *log.Logger
	output     io.Writer
	db         *sql.DB
	cache      cache.Backend
	catalog    services.Catalog
	platform   services.Platform
	sourceOpts *source.Options
	closers    []io.Closer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	DB         *sql.DB
	Cache      cache.Backend
	Catalog    services.Catalog
	Platform   services.Platform
	Source     *source.Options // Overrides the [source] config section
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	configured := opts.Config != nil
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		configured: configured,
		logger:     opts.Logger,
		output:     opts.Output,
		db:         opts.DB,
		cache:      opts.Cache,
		catalog:    opts.Catalog,
		platform:   opts.Platform,
		sourceOpts: opts.Source,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, runCommand, scrapeCommand, cacheCommand, historyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// SetLogger replaces the logger, e.g. with a file logger while the TUI owns the terminal.
func (r *Runner) SetLogger(logger *log.Logger) {
	r.logger = logger
}

// Before loads the dotenv file and the configuration, then applies global flags.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.Bool("verbose") {
		shared.SetLogLevel(r.logger, log.DebugLevel)
	}

	if err := shared.LoadEnv(cmd.String("env")); err != nil {
		r.logger.Warn("failed to load env file", "path", cmd.String("env"), "error", err)
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
	}

	if !r.configured {
		if _, err := os.Stat(r.configPath); err == nil {
			config, err := shared.LoadConfig(r.configPath)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else {
			r.logger.Debug("config file not found, using defaults", "path", r.configPath)
		}
		r.configured = true
	}

	r.config.ApplyEnv()
	return ctx, r.config.Validate()
}

// After releases the database and cache opened by the runner, most recent first.
func (r *Runner) After(ctx context.Context, cmd *cli.Command) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		c := r.closers[i]
		errs = append(errs, c.Close())
		if db, ok := c.(*sql.DB); ok && db == r.db {
			r.db = nil
		}
		if r.cache != nil && c == io.Closer(r.cache) {
			r.cache = nil
		}
	}
	r.closers = nil
	return errors.Join(errs...)
}

// database opens the configured sqlite database and applies pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.closers = append(r.closers, db)
	return db, nil
}

// cacheBackend opens the configured cache; noCache forces the in-memory backend.
func (r *Runner) cacheBackend(ctx context.Context, noCache bool) (cache.Backend, error) {
	if r.cache != nil {
		return r.cache, nil
	}

	cfg := r.config.Cache
	if noCache {
		cfg.Backend = cache.BackendMemory
	}

	var db *sql.DB
	if cfg.Backend == "" || cfg.Backend == cache.BackendSQLite {
		var err error
		if db, err = r.database(); err != nil {
			return nil, err
		}
	}

	backend, err := cache.Open(ctx, cfg, db)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("cache opened", "backend", cfg.Backend)
	r.cache = backend
	r.closers = append(r.closers, backend)
	return backend, nil
}

// spotifyServices authenticates the Spotify service with the stored refresh token.
//
// Rotated tokens are written back to the config file.
func (r *Runner) spotifyServices(ctx context.Context) (services.Catalog, services.Platform, error) {
	if r.catalog != nil && r.platform != nil {
		return r.catalog, r.platform, nil
	}

	sp := r.config.Credentials.Spotify
	if sp.RefreshToken == "" {
		return nil, nil, fmt.Errorf("%w: no Spotify refresh token, run `weekly auth` first", shared.ErrNotAuthenticated)
	}

	svc, err := services.NewSpotifyService(sp.Map(), services.WithMarket(r.config.Catalog.Market))
	if err != nil {
		return nil, nil, err
	}

	svc.SetTokenRefreshCallback(func(token *oauth2.Token) {
		if err := r.saveTokens(token); err != nil {
			r.logger.Warn("failed to persist refreshed token", "error", err)
		}
	})

	if err := svc.Authenticate(ctx, map[string]string{"refresh_token": sp.RefreshToken}); err != nil {
		return nil, nil, err
	}

	if r.catalog == nil {
		r.catalog = svc
	}
	if r.platform == nil {
		r.platform = svc
	}
	return r.catalog, r.platform, nil
}

// saveTokens stores a newly issued token in the config and, when a config path is set, on disk.
func (r *Runner) saveTokens(token *oauth2.Token) error {
	if r.config == nil {
		return fmt.Errorf("%w: config is nil", shared.ErrMissingConfig)
	}

	if err := r.config.Credentials.Spotify.Update(token); err != nil {
		return fmt.Errorf("failed to update spotify configuration: %w", err)
	}

	if r.configPath == "" {
		return nil
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}
	return nil
}

// fetcher builds the station page fetcher from the [source] section.
func (r *Runner) fetcher() *source.Fetcher {
	opts := source.OptionsFromConfig(r.config.Source)
	if r.sourceOpts != nil {
		opts = *r.sourceOpts
	}
	return source.NewFetcher(opts, r.logger)
}

// scrapeEngine builds an [tasks.Engine] that can only scrape.
func (r *Runner) scrapeEngine() *tasks.Engine {
	return tasks.NewEngine(r.fetcher(), extract.New(source.DayCount), nil, nil, nil, r.logger)
}

// engine builds the full pipeline with its cache, catalog, platform and run history.
func (r *Runner) engine(ctx context.Context, chunkSize int, noCache bool) (*tasks.Engine, error) {
	store, err := r.cacheBackend(ctx, noCache)
	if err != nil {
		return nil, err
	}

	catalog, platform, err := r.spotifyServices(ctx)
	if err != nil {
		return nil, err
	}

	var recorder tasks.RunRecorder
	if db, err := r.database(); err != nil {
		r.logger.Warn("run history disabled", "error", err)
	} else {
		recorder = repositories.NewRunRepository(db)
	}

	if chunkSize <= 0 {
		chunkSize = r.config.Playlist.ChunkSize
	}

	enricher := tasks.NewEnricher(catalog, store, tasks.EnrichOpts{
		Concurrency: r.config.Catalog.Concurrency,
		RateLimit:   r.config.Catalog.RateLimit,
	}, r.logger)
	builder := tasks.NewPlaylistBuilder(platform, tasks.PlaylistOpts{
		ChunkSize: chunkSize,
		Public:    r.config.Playlist.Public,
	}, r.logger)

	return tasks.NewEngine(r.fetcher(), extract.New(source.DayCount), enricher, builder, recorder, r.logger), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

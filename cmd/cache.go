package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheStats prints the number of cached lookups and how many of them are negative.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	store, err := r.cacheBackend(ctx, false)
	if err != nil {
		return err
	}

	total, err := store.Len(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCache, err)
	}
	misses, err := store.Misses(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCache, err)
	}

	backend := r.config.Cache.Backend
	if backend == "" {
		backend = "sqlite"
	}

	r.writePlainHeader("Track Cache")
	r.writePlain("Backend:  %s\n", backend)
	r.writePlain("Entries:  %d\n", total)
	r.writePlain("Found:    %d\n", total-misses)
	r.writePlain("Missing:  %d\n", misses)
	return nil
}

// CacheGet prints the cached lookup for an artist and track pair.
func (r *Runner) CacheGet(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("%w: artist and track are required", shared.ErrMissingArgument)
	}

	store, err := r.cacheBackend(ctx, false)
	if err != nil {
		return err
	}

	query := models.BuildQuery(cmd.Args().Get(0), cmd.Args().Get(1))
	entry, ok, err := store.Get(ctx, query)
	if err != nil {
		return err
	}

	switch {
	case !ok:
		return r.writePlain("%s: not cached\n", query)
	case entry.NotFound():
		return r.writePlain("%s: not found in catalog\n", query)
	default:
		return r.writePlain("%s\n  ISRC: %s\n  URI:  %s\n", query, entry.ISRC(), entry.URI())
	}
}

// CacheClear removes every cached lookup after confirmation.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	if !cmd.Bool("yes") {
		return fmt.Errorf("%w: pass --yes to clear the cache", shared.ErrMissingArgument)
	}

	store, err := r.cacheBackend(ctx, false)
	if err != nil {
		return err
	}

	if err := store.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrCache, err)
	}

	r.logger.Info("cache cleared")
	return r.writePlain("✓ Cache cleared\n")
}

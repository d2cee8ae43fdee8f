package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/shared"
)

// RunRepository persists [models.Run] history.
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository with the given database connection
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new run into the database with generated ID and sequence
func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	if err := run.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(ctx, r.db, "runs")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	run.SetID(id)
	run.SetSequence(sequence)

	query := `
		INSERT INTO runs (
			id, sequence, station, stage, status, playlist_id, link,
			tracks, uris, invalid, error, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.ExecContext(ctx, query,
		id,
		sequence,
		run.Station,
		run.Stage,
		string(run.Status),
		run.PlaylistID,
		run.Link,
		run.Tracks,
		run.URIs,
		run.Invalid,
		run.Error,
		run.CreatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// Record implements the engine's run recorder.
func (r *RunRepository) Record(ctx context.Context, run *models.Run) error {
	return r.Create(ctx, run)
}

// Get retrieves a run by ID
func (r *RunRepository) Get(ctx context.Context, id string) (*models.Run, error) {
	query := `
		SELECT id, sequence, station, stage, status, playlist_id, link,
			tracks, uris, invalid, error, created_at
		FROM runs
		WHERE id = ?
	`

	run, err := scanRun(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found: %s", id)
	}
	return run, err
}

// List retrieves runs matching the given criteria, newest first.
//
// Supported criteria are "station" (string), "status" (string) and "limit" (int).
func (r *RunRepository) List(ctx context.Context, criteria map[string]any) ([]*models.Run, error) {
	query := `
		SELECT id, sequence, station, stage, status, playlist_id, link,
			tracks, uris, invalid, error, created_at
		FROM runs
		WHERE 1 = 1
	`

	args := []any{}

	if station, ok := criteria["station"].(string); ok && station != "" {
		query += " AND station = ?"
		args = append(args, station)
	}

	if status, ok := criteria["status"].(string); ok && status != "" {
		query += " AND status = ?"
		args = append(args, status)
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return runs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*models.Run, error) {
	var (
		id        string
		sequence  int
		status    string
		createdAt time.Time
		run       models.Run
	)

	err := row.Scan(
		&id, &sequence, &run.Station, &run.Stage, &status, &run.PlaylistID, &run.Link,
		&run.Tracks, &run.URIs, &run.Invalid, &run.Error, &createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}

	run.Status = models.RunStatus(status)
	run.SetID(id)
	run.SetSequence(sequence)
	run.SetCreatedAt(createdAt)
	return &run, nil
}

package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/repositories"
	"github.com/desertthunder/weekly/internal/shared"
	"github.com/urfave/cli/v3"
)

// runView is the JSON shape of a recorded run.
type runView struct {
	ID         string `json:"id"`
	Sequence   int    `json:"sequence"`
	CreatedAt  string `json:"created_at"`
	Station    string `json:"station"`
	Status     string `json:"status"`
	Stage      string `json:"stage,omitempty"`
	PlaylistID string `json:"playlist_id,omitempty"`
	Link       string `json:"link,omitempty"`
	Tracks     int    `json:"tracks"`
	URIs       int    `json:"uris"`
	Invalid    int    `json:"invalid"`
	Error      string `json:"error,omitempty"`
}

func newRunView(run *models.Run) runView {
	return runView{
		ID:         run.ID(),
		Sequence:   run.Sequence(),
		CreatedAt:  run.CreatedAt().Format("2006-01-02 15:04:05"),
		Station:    run.Station,
		Status:     string(run.Status),
		Stage:      run.Stage,
		PlaylistID: run.PlaylistID,
		Link:       run.Link,
		Tracks:     run.Tracks,
		URIs:       run.URIs,
		Invalid:    run.Invalid,
		Error:      run.Error,
	}
}

// History lists recorded station runs, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	status := cmd.String("status")
	switch models.RunStatus(status) {
	case "", models.RunSucceeded, models.RunFailed, models.RunSkipped:
	default:
		return fmt.Errorf("%w: unknown status %q", shared.ErrInvalidArgument, status)
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	runs, err := repositories.NewRunRepository(db).List(ctx, map[string]any{
		"station": cmd.String("station"),
		"status":  status,
		"limit":   int(cmd.Int("limit")),
	})
	if err != nil {
		return err
	}

	if cmd.Bool("json") {
		views := make([]runView, 0, len(runs))
		for _, run := range runs {
			views = append(views, newRunView(run))
		}
		return r.writeJSON(views, true)
	}

	if len(runs) == 0 {
		return r.writePlain("No runs recorded\n")
	}

	r.writePlainHeader("Run History")
	for _, run := range runs {
		v := newRunView(run)
		r.writePlain("#%d %s  %-28s %-9s %d/%d tracks", v.Sequence, v.CreatedAt, v.Station, v.Status, v.URIs, v.Tracks)
		if v.Error != "" {
			r.writePlain("  [%s] %s", v.Stage, v.Error)
		}
		r.writePlain("\n")
		if v.Link != "" {
			r.writePlain("    %s\n", v.Link)
		}
	}
	return nil
}

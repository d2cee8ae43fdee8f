package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/weekly/internal/shared"
	"github.com/desertthunder/weekly/internal/tasks"
	"github.com/desertthunder/weekly/internal/ui"
)

const tuiLogPath = "./tmp/weekly-tui.log"

// redirectLogs sends logs to a file so they do not interfere with TUI rendering.
//
// Call it before building the engine, which captures the logger.
func (r *Runner) redirectLogs() error {
	fileLogger, err := shared.NewFileLogger(tuiLogPath)
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)
	return nil
}

// TUI runs the engine behind the interactive station picker and progress view.
func (r *Runner) TUI(ctx context.Context, engine ui.Runner, stations []string, opts tasks.RunOpts) ([]tasks.StationResult, error) {
	model := ui.NewModel(ctx, engine, stations, opts)
	if _, err := tea.NewProgram(model).Run(); err != nil {
		return nil, fmt.Errorf("error running TUI: %w", err)
	}

	return model.Results()
}

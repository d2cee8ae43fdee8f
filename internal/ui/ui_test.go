package ui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/shared"
	"github.com/desertthunder/weekly/internal/tasks"
)

type fakeRunner struct {
	stations []string
	results  []tasks.StationResult
	err      error
}

func (f *fakeRunner) Run(_ context.Context, stations []string, _ tasks.RunOpts, progress chan<- tasks.ProgressUpdate) ([]tasks.StationResult, error) {
	f.stations = stations
	for i, id := range stations {
		progress <- tasks.ProgressUpdate{Phase: tasks.FetchStation, Station: id, Step: i + 1, Total: len(stations), Message: "Fetching " + id}
		progress <- tasks.ProgressUpdate{Phase: tasks.StationDone, Station: id, Step: i + 1, Total: len(stations)}
	}
	return f.results, f.err
}

// blockingRunner runs until its context is cancelled.
type blockingRunner struct {
	started   chan struct{}
	cancelled chan struct{}
}

func newBlockingRunner() *blockingRunner {
	return &blockingRunner{started: make(chan struct{}), cancelled: make(chan struct{})}
}

func (b *blockingRunner) Run(ctx context.Context, _ []string, _ tasks.RunOpts, _ chan<- tasks.ProgressUpdate) ([]tasks.StationResult, error) {
	close(b.started)
	<-ctx.Done()
	close(b.cancelled)
	return nil, ctx.Err()
}

func keyRune(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// drain runs cmd and feeds its messages back into the model until the run completes.
func drain(t *testing.T, m *Model, cmd tea.Cmd) {
	t.Helper()
	for range 100 {
		if cmd == nil || m.view == ResultView {
			return
		}
		_, cmd = m.Update(cmd())
	}
	t.Fatal("run did not complete")
}

func TestModel(t *testing.T) {
	ctx := context.Background()

	t.Run("runs selected stations", func(t *testing.T) {
		runner := &fakeRunner{results: []tasks.StationResult{
			{Station: &models.Station{ID: "us/one"}, Playlist: &tasks.PlaylistResult{Link: "https://open.spotify.com/playlist/pl1"}},
		}}
		m := NewModel(ctx, runner, []string{"us/one", "us/two"}, tasks.RunOpts{})
		m.Update(tea.WindowSizeMsg{Width: 80, Height: 40})

		m.stationList.Select(1)
		m.Update(tea.KeyMsg{Type: tea.KeySpace})
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != ConfirmView {
			t.Fatalf("expected confirm view, got %v", m.view)
		}
		if !slices.Equal(m.selected, []string{"us/one"}) {
			t.Errorf("unexpected selection %v", m.selected)
		}

		_, cmd := m.Update(keyRune('y'))
		if m.view != RunView {
			t.Fatalf("expected run view, got %v", m.view)
		}
		drain(t, m, cmd)

		if m.view != ResultView {
			t.Fatalf("expected result view, got %v", m.view)
		}
		if !slices.Equal(runner.stations, []string{"us/one"}) {
			t.Errorf("runner got %v", runner.stations)
		}
		if len(m.finished) != 1 {
			t.Errorf("expected 1 finished line, got %v", m.finished)
		}
		results, err := m.Results()
		if err != nil || len(results) != 1 {
			t.Errorf("unexpected results %v, %v", results, err)
		}
		if !strings.Contains(m.View(), "All stations done") {
			t.Errorf("unexpected view:\n%s", m.View())
		}
	})

	t.Run("shows failures", func(t *testing.T) {
		serr := &tasks.StageError{Station: "us/one", Stage: tasks.StagePlaylist, Err: shared.ErrDataNotReady}
		runner := &fakeRunner{
			results: []tasks.StationResult{{Station: &models.Station{ID: "us/one"}, Err: serr}},
			err:     errors.Join(serr),
		}
		m := NewModel(ctx, runner, []string{"us/one"}, tasks.RunOpts{DryRun: true})

		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if !strings.Contains(m.View(), "dry run") {
			t.Errorf("confirm view should mention dry run:\n%s", m.View())
		}
		_, cmd := m.Update(keyRune('y'))
		drain(t, m, cmd)

		if _, err := m.Results(); !errors.Is(err, shared.ErrDataNotReady) {
			t.Errorf("expected ErrDataNotReady, got %v", err)
		}
		if !strings.Contains(m.View(), "Finished with errors") {
			t.Errorf("unexpected view:\n%s", m.View())
		}
	})

	t.Run("nothing selected stays on list", func(t *testing.T) {
		m := NewModel(ctx, &fakeRunner{}, []string{"us/one"}, tasks.RunOpts{})
		m.Update(tea.KeyMsg{Type: tea.KeySpace})
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		if m.view != StationListView {
			t.Errorf("expected station list, got %v", m.view)
		}
	})

	t.Run("declining returns to list", func(t *testing.T) {
		m := NewModel(ctx, &fakeRunner{}, []string{"us/one"}, tasks.RunOpts{})
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m.Update(keyRune('n'))
		if m.view != StationListView {
			t.Errorf("expected station list, got %v", m.view)
		}
	})

	t.Run("quitting mid-run cancels the engine", func(t *testing.T) {
		runner := newBlockingRunner()
		m := NewModel(ctx, runner, []string{"us/one"}, tasks.RunOpts{})
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		m.Update(keyRune('y'))

		select {
		case <-runner.started:
		case <-time.After(time.Second):
			t.Fatal("run did not start")
		}

		_, cmd := m.Update(keyRune('q'))
		if cmd == nil {
			t.Fatal("expected quit command")
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Error("expected quit message")
		}

		select {
		case <-runner.cancelled:
		case <-time.After(time.Second):
			t.Fatal("engine context was not cancelled")
		}

		results, err := m.Results()
		if !errors.Is(err, ErrAborted) || !errors.Is(err, context.Canceled) {
			t.Errorf("expected aborted run error, got %v", err)
		}
		if results != nil {
			t.Errorf("expected no results, got %v", results)
		}
	})

	t.Run("quitting before a run reports nothing", func(t *testing.T) {
		m := NewModel(ctx, &fakeRunner{}, []string{"us/one"}, tasks.RunOpts{})
		m.Update(keyRune('q'))

		if _, err := m.Results(); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})

	t.Run("restart after results", func(t *testing.T) {
		m := NewModel(ctx, &fakeRunner{}, []string{"us/one"}, tasks.RunOpts{})
		m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		_, cmd := m.Update(keyRune('y'))
		drain(t, m, cmd)

		m.Update(keyRune('r'))
		if m.view != StationListView || m.results != nil {
			t.Errorf("expected reset model, got view %v", m.view)
		}
	})
}

func TestPercent(t *testing.T) {
	tc := []struct {
		name    string
		update  tasks.ProgressUpdate
		station int
		total   int
		want    float64
	}{
		{name: "not started", update: tasks.ProgressUpdate{}, station: 0, total: 2, want: 0},
		{name: "fetching first", update: tasks.ProgressUpdate{Phase: tasks.FetchStation}, station: 1, total: 2, want: 0},
		{name: "halfway lookups", update: tasks.ProgressUpdate{Phase: tasks.LookupTracks, Step: 5, Total: 10}, station: 1, total: 1, want: 0.45},
		{name: "first done", update: tasks.ProgressUpdate{Phase: tasks.StationDone}, station: 1, total: 2, want: 0.5},
		{name: "last done", update: tasks.ProgressUpdate{Phase: tasks.StationFailed}, station: 2, total: 2, want: 1},
		{name: "no stations", update: tasks.ProgressUpdate{}, station: 1, total: 0, want: 0},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			got := Percent(tt.update, tt.station, tt.total)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Percent() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestItems(t *testing.T) {
	item := stationItem{id: "us/one", selected: true}
	if item.Title() != "[x] us/one" {
		t.Errorf("unexpected title %q", item.Title())
	}

	res := resultItem{result: tasks.StationResult{Station: &models.Station{ID: "us/one"}, Err: errors.New("boom")}}
	if res.Description() != "boom" {
		t.Errorf("unexpected description %q", res.Description())
	}
}

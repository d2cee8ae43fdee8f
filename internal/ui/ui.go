package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/weekly/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	StationListView ViewState = iota
	ConfirmView
	RunView
	ResultView
)

// Runner runs the pipeline for a list of stations.
type Runner interface {
	Run(ctx context.Context, stations []string, opts tasks.RunOpts, progress chan<- tasks.ProgressUpdate) ([]tasks.StationResult, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	cancel       context.CancelFunc
	view         ViewState
	engine       Runner
	opts         tasks.RunOpts
	width        int
	height       int
	stationList  list.Model
	resultList   list.Model
	selected     []string
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	station      int
	finished     []string
	results      []tasks.StationResult
	err          error
	spinner      spinner.Model
	bar          progress.Model
	help         help.Model
	keys         keyMap
}

// NewModel creates a new TUI model for the given stations, all selected.
func NewModel(ctx context.Context, engine Runner, stations []string, opts tasks.RunOpts) *Model {
	items := make([]list.Item, len(stations))
	for i, id := range stations {
		items[i] = stationItem{id: id, selected: true}
	}

	stationList := list.New(items, list.NewDefaultDelegate(), 0, 0)
	stationList.Title = "Stations"

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = styles.spinner

	return &Model{
		ctx:         ctx,
		view:        StationListView,
		engine:      engine,
		opts:        opts,
		stationList: stationList,
		spinner:     s,
		bar:         progress.New(progress.WithDefaultGradient()),
		help:        help.New(),
		keys:        newKeyMap(),
	}
}

// ErrAborted is reported by [Model.Results] when the user quits during a run.
var ErrAborted = fmt.Errorf("run aborted: %w", context.Canceled)

// Results returns the station results of the last completed run.
func (m *Model) Results() ([]tasks.StationResult, error) {
	return m.results, m.err
}

// Init starts the spinner.
func (m *Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.stationList.SetSize(msg.Width-4, msg.Height-8)
		if m.view == ResultView {
			m.resultList.SetSize(msg.Width-4, msg.Height-8)
		}
		m.bar.Width = max(msg.Width-8, 10)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case StationListView:
			return m.handleStationListKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case RunView:
			if key.Matches(msg, m.keys.quit) {
				m.abort()
				return m, tea.Quit
			}
			return m, nil
		case ResultView:
			return m.handleResultKeys(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		switch msg.kind {
		case MsgProgressUpdate:
			m.applyProgress(msg.data.(tasks.ProgressUpdate))
			return m, m.waitForProgress()
		case MsgRunComplete:
			done := msg.data.(runComplete)
			m.release()
			m.results = done.results
			m.err = done.err
			m.progressChan = nil
			m.showResults()
			return m, nil
		}
	}

	return m.updateLists(msg)
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case StationListView:
		return m.renderStationList()
	case ConfirmView:
		return m.renderConfirm()
	case RunView:
		return m.renderRun()
	case ResultView:
		return m.renderResult()
	default:
		return ""
	}
}

func (m *Model) handleStationListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.toggle):
		if item, ok := m.stationList.SelectedItem().(stationItem); ok {
			item.selected = !item.selected
			m.stationList.SetItem(m.stationList.Index(), item)
		}
		return m, nil
	case key.Matches(msg, m.keys.enter):
		m.selected = m.selectedStations()
		if len(m.selected) > 0 {
			m.view = ConfirmView
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.stationList, cmd = m.stationList.Update(msg)
	return m, cmd
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit), key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.back):
		m.view = StationListView
		return m, nil
	case key.Matches(msg, m.keys.yes):
		m.view = RunView
		return m, m.startRun()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.restart):
		m.view = StationListView
		m.results = nil
		m.err = nil
		return m, nil
	}

	var cmd tea.Cmd
	m.resultList, cmd = m.resultList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case StationListView:
		m.stationList, cmd = m.stationList.Update(msg)
	case ResultView:
		m.resultList, cmd = m.resultList.Update(msg)
	}
	return m, cmd
}

func (m *Model) selectedStations() []string {
	var ids []string
	for _, it := range m.stationList.Items() {
		if item, ok := it.(stationItem); ok && item.selected {
			ids = append(ids, item.id)
		}
	}
	return ids
}

func (m *Model) startRun() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	m.progress = tasks.ProgressUpdate{}
	m.station = 0
	m.finished = nil
	m.results = nil
	m.err = nil

	ctx, cancel := context.WithCancel(m.ctx)
	m.cancel = cancel

	ch := m.progressChan
	stations := m.selected
	go func() {
		defer close(ch)
		results, err := m.engine.Run(ctx, stations, m.opts, ch)
		select {
		case ch <- tasks.ProgressUpdate{Data: runComplete{results: results, err: err}}:
		case <-ctx.Done():
		}
	}()

	return m.waitForProgress()
}

// abort cancels a run in progress; [Model.Results] then reports [ErrAborted].
func (m *Model) abort() {
	m.release()
	m.progressChan = nil
	m.err = ErrAborted
}

func (m *Model) release() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// waitForProgress reads the next update; the final update carries the run outcome.
func (m *Model) waitForProgress() tea.Cmd {
	ch := m.progressChan
	return func() tea.Msg {
		if ch == nil {
			return runCompleteMsg(m.results, m.err)
		}

		update, ok := <-ch
		if !ok {
			return runCompleteMsg(m.results, m.err)
		}
		if done, ok := update.Data.(runComplete); ok {
			return runCompleteMsg(done.results, done.err)
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) applyProgress(update tasks.ProgressUpdate) {
	m.progress = update
	switch update.Phase {
	case tasks.FetchStation:
		m.station = update.Step
	case tasks.StationDone:
		m.finished = append(m.finished, styles.ok.Render("✓ ")+update.Station)
	case tasks.StationFailed:
		m.finished = append(m.finished, styles.err.Render("✗ ")+update.Message)
	}
}

func (m *Model) showResults() {
	items := make([]list.Item, len(m.results))
	for i, res := range m.results {
		items[i] = resultItem{result: res}
	}
	m.resultList = list.New(items, list.NewDefaultDelegate(), max(m.width-4, 0), max(m.height-8, 0))
	m.resultList.Title = "Results"
	m.view = ResultView
}

// Percent estimates overall completion from the latest update.
//
// Each station is an equal share; within a station, lookups and adds advance by step.
func Percent(update tasks.ProgressUpdate, station, total int) float64 {
	if total <= 0 || station <= 0 {
		return 0
	}

	var within float64
	switch update.Phase {
	case tasks.FetchStation:
		within = 0
	case tasks.ExtractPages:
		within = 0.2
	case tasks.LookupTracks:
		within = 0.2 + 0.5*fraction(update.Step, update.Total)
	case tasks.CreatePlaylist:
		within = 0.75
	case tasks.AddItems:
		within = 0.75 + 0.25*fraction(update.Step, update.Total)
	case tasks.StationDone, tasks.StationFailed:
		within = 1
	}

	return min((float64(station-1)+within)/float64(total), 1)
}

func fraction(step, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(step) / float64(total)
}

func (m *Model) renderStationList() string {
	helpKeys := []key.Binding{m.keys.toggle, m.keys.enter, m.keys.quit}
	return fmt.Sprintf("%s\n\n%s", m.stationList.View(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderConfirm() string {
	action := "Create playlists"
	if m.opts.DryRun {
		action = "Enrich (dry run)"
	}
	title := styles.title.Render(fmt.Sprintf("%s for %d stations?", action, len(m.selected)))
	info := "\n" + strings.Join(m.selected, "\n") + "\n"

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	return fmt.Sprintf("%s\n%s\n%s", title, info, m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderRun() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Building weekly playlists"))
	b.WriteString("\n\n")

	for _, line := range m.finished {
		b.WriteString(line + "\n")
	}

	fmt.Fprintf(&b, "\n%s %s\n\n", m.spinner.View(), m.progress.Message)
	b.WriteString(m.bar.ViewAs(Percent(m.progress, m.station, len(m.selected))))
	b.WriteString("\n\n" + styles.help.Render("q to quit"))
	return b.String()
}

func (m *Model) renderResult() string {
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.restart, m.keys.quit})

	var header string
	if m.err != nil {
		header = styles.warn.Render(fmt.Sprintf("Finished with errors: %v", m.err))
	} else {
		header = styles.ok.Render("✓ All stations done")
	}
	return fmt.Sprintf("%s\n\n%s\n\n%s", header, m.resultList.View(), helpView)
}

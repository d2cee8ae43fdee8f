package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/weekly/internal/tasks"
)

var (
	_ list.Item = stationItem{}
	_ list.Item = resultItem{}
)

// stationItem is a configured station that can be toggled in or out of the run.
type stationItem struct {
	id       string
	selected bool
}

func (i stationItem) FilterValue() string { return i.id }
func (i stationItem) Title() string {
	if i.selected {
		return "[x] " + i.id
	}
	return "[ ] " + i.id
}
func (i stationItem) Description() string {
	if i.selected {
		return "included in this run"
	}
	return "skipped"
}

// resultItem wraps [tasks.StationResult] to implement [list.Item].
type resultItem struct {
	result tasks.StationResult
}

func (i resultItem) FilterValue() string { return i.result.Station.ID }
func (i resultItem) Title() string {
	if i.result.Err != nil {
		return styles.err.Render("✗ ") + i.result.Station.ID
	}
	return styles.ok.Render("✓ ") + i.result.Station.ID
}
func (i resultItem) Description() string {
	st := i.result.Station
	if i.result.Err != nil {
		return i.result.Err.Error()
	}

	desc := fmt.Sprintf("%d tracks • %d on Spotify", len(st.Tracks), len(st.URIs()))
	if i.result.Playlist != nil {
		desc = fmt.Sprintf("%s • %s", desc, i.result.Playlist.Link)
	}
	return desc
}

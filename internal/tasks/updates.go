package tasks

import (
	"fmt"

	"github.com/desertthunder/weekly/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Station string // Station being processed
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	FetchStation Phase = iota
	ExtractPages
	LookupTracks
	CreatePlaylist
	AddItems
	StationDone
	StationFailed
	ExportReports
)

func (p Phase) String() string {
	switch p {
	case FetchStation:
		return "fetch_station"
	case ExtractPages:
		return "extract_pages"
	case LookupTracks:
		return "lookup_tracks"
	case CreatePlaylist:
		return "create_playlist"
	case AddItems:
		return "add_items"
	case StationDone:
		return "station_done"
	case StationFailed:
		return "station_failed"
	case ExportReports:
		return "export_reports"
	default:
		return ""
	}
}

func fetchStationUpdate(step, total int, station string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchStation,
		Station: station,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching a week of %s...", step, total, station),
	}
}

func extractPagesUpdate(station string, days int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExtractPages,
		Station: station,
		Step:    days,
		Total:   days,
		Message: fmt.Sprintf("Extracting tracks from %d pages...", days),
	}
}

func lookupTracksUpdate(station string, step, total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   LookupTracks,
		Station: station,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Looking up tracks (%d/%d)...", step, total),
	}
}

func createPlaylistUpdate(station string, pl *PlaylistResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreatePlaylist,
		Station: station,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playlist created: %s (ID: %s)", station, pl.PlaylistID),
		Data:    pl,
	}
}

func addItemsUpdate(station string, step, total, added int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   AddItems,
		Station: station,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Added %d tracks", step, total, added),
	}
}

func stationDoneUpdate(step, total int, st *models.Station) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StationDone,
		Station: st.ID,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d tracks)", step, total, st.ID, len(st.Tracks)),
		Data:    st,
	}
}

func stationFailedUpdate(step, total int, err *StageError) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StationFailed,
		Station: err.Station,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, err.Station, err),
		Data:    err,
	}
}

func exportReportUpdate(step, total int, station string, err error) ProgressUpdate {
	msg := fmt.Sprintf("[%d/%d] ✓ %s", step, total, station)
	if err != nil {
		msg = fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, station, err)
	}
	return ProgressUpdate{
		Phase:   ExportReports,
		Station: station,
		Step:    step,
		Total:   total,
		Message: msg,
	}
}

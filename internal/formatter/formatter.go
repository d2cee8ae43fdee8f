// package formatter renders station reports (CSV, Markdown, JSON, plain text) and run manifests
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/shared"
)

// Supported report formats.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatCSV      = "csv"
	FormatMarkdown = "markdown"
)

// Formats lists the accepted --format values.
var Formats = []string{FormatText, FormatJSON, FormatCSV, FormatMarkdown}

// Report is a station plus the playlist it was written to, if any.
type Report struct {
	Station *models.Station `json:"station"`
	Link    string          `json:"link,omitempty"`
}

// ToCSV renders the tracks of a station with columns: Rank, Artist, Track, Count, ISRC, URI
func ToCSV(r Report) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"Rank", "Artist", "Track", "Count", "ISRC", "URI"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, track := range r.Station.Tracks {
		record := []string{
			strconv.Itoa(i + 1),
			track.Artist,
			track.Track,
			strconv.Itoa(track.Count),
			track.ISRC(),
			track.URI(),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown renders a station as a Markdown document.
func ToMarkdown(r Report) ([]byte, error) {
	var buf bytes.Buffer
	st := r.Station

	fmt.Fprintf(&buf, "# %s\n\n", st.ID)

	if w := WindowString(st.Window); w != "" {
		fmt.Fprintf(&buf, "**Window**: %s\n", w)
	}
	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(st.Tracks))
	fmt.Fprintf(&buf, "**Plays**: %d\n", st.Plays())
	if st.Invalid > 0 {
		fmt.Fprintf(&buf, "**Skipped entries**: %d\n", st.Invalid)
	}
	if r.Link != "" {
		fmt.Fprintf(&buf, "**Playlist**: [%s](%s)\n", st.ID, r.Link)
	}

	buf.WriteString("\n## Tracks\n\n")
	for i, track := range st.Tracks {
		marker := ""
		if r.Link != "" && !track.Enriched() {
			marker = " _(not found)_"
		}
		fmt.Fprintf(&buf, "%d. %s - %s (%d plays)%s\n", i+1, track.Artist, track.Track, track.Count, marker)
	}

	return buf.Bytes(), nil
}

// ToText renders a station as plain text.
func ToText(r Report) ([]byte, error) {
	var buf bytes.Buffer
	st := r.Station

	fmt.Fprintf(&buf, "Station: %s\n", st.ID)
	if w := WindowString(st.Window); w != "" {
		fmt.Fprintf(&buf, "Window: %s\n", w)
	}
	fmt.Fprintf(&buf, "Tracks: %d (%d plays, %d skipped)\n", len(st.Tracks), st.Plays(), st.Invalid)
	if r.Link != "" {
		fmt.Fprintf(&buf, "Playlist: %s\n", r.Link)
	}
	buf.WriteString("\n")

	width := len(strconv.Itoa(len(st.Tracks)))
	for i, track := range st.Tracks {
		fmt.Fprintf(&buf, "%*d. %s - %s (%d)\n", width, i+1, track.Artist, track.Track, track.Count)
	}

	return buf.Bytes(), nil
}

// ToJSON renders the report as indented JSON.
func ToJSON(r Report) ([]byte, error) {
	return shared.MarshalJSON(r, true)
}

// ValidateFormat reports whether format is one of [Formats] or an accepted alias.
func ValidateFormat(format string) error {
	switch format {
	case FormatText, "txt", "", FormatJSON, FormatCSV, FormatMarkdown, "md":
		return nil
	}
	return fmt.Errorf("%w: unknown format %q (want one of %s)", shared.ErrInvalidArgument, format, strings.Join(Formats, ", "))
}

// Render dispatches on format.
func Render(r Report, format string) ([]byte, error) {
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}
	if r.Station == nil {
		return nil, fmt.Errorf("%w: no station to render", shared.ErrInvalidArgument)
	}

	switch format {
	case FormatJSON:
		return ToJSON(r)
	case FormatCSV:
		return ToCSV(r)
	case FormatMarkdown, "md":
		return ToMarkdown(r)
	default:
		return ToText(r)
	}
}

// Extension returns the file extension for format.
func Extension(format string) string {
	switch format {
	case FormatJSON:
		return ".json"
	case FormatCSV:
		return ".csv"
	case FormatMarkdown, "md":
		return ".md"
	default:
		return ".txt"
	}
}

// WindowString formats a window as "start to end", or "" when both labels are empty.
func WindowString(w models.Window) string {
	if w.Start == "" && w.End == "" {
		return ""
	}
	return fmt.Sprintf("%s to %s", w.Start, w.End)
}

// FileName maps a station id to a report file name, e.g. "us/demo" -> "us_demo.csv".
func FileName(stationID, format string) string {
	return strings.ReplaceAll(stationID, "/", "_") + Extension(format)
}

// WriteReport renders r into dir and returns the written path.
func WriteReport(r Report, format, dir string) (string, error) {
	data, err := Render(r, format)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, FileName(r.Station.ID, format))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

// ManifestEntry summarizes one station of a run.
type ManifestEntry struct {
	Station    string `json:"station"`
	Status     string `json:"status"`
	Stage      string `json:"stage,omitempty"`
	PlaylistID string `json:"playlist_id,omitempty"`
	Link       string `json:"link,omitempty"`
	Tracks     int    `json:"tracks"`
	URIs       int    `json:"uris"`
	Invalid    int    `json:"invalid"`
	File       string `json:"file,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Manifest summarizes an exported run.
type Manifest struct {
	GeneratedAt     time.Time       `json:"generated_at"`
	OutputDirectory string          `json:"output_directory"`
	Format          string          `json:"format"`
	Total           int             `json:"total"`
	Succeeded       int             `json:"succeeded"`
	Failed          int             `json:"failed"`
	Stations        []ManifestEntry `json:"stations"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m *Manifest, path string) error {
	data, err := shared.MarshalJSON(m, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/weekly/internal/models"
	"github.com/desertthunder/weekly/internal/services"
)

// FakeCatalog is a test double for [services.Catalog].
//
// Queries missing from Results have no match. Queries in Errors fail.
type FakeCatalog struct {
	Results map[string]services.Candidate
	Errors  map[string]error

	mu    sync.Mutex
	calls map[string]int
}

func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Results: make(map[string]services.Candidate),
		Errors:  make(map[string]error),
		calls:   make(map[string]int),
	}
}

// Add registers a hit for the query of artist and track.
func (f *FakeCatalog) Add(artist, track, isrc, uri string) *FakeCatalog {
	f.Results[models.BuildQuery(artist, track)] = services.Candidate{Name: track, Artist: artist, ISRC: isrc, URI: uri}
	return f
}

func (f *FakeCatalog) Search(_ context.Context, query string) ([]services.Candidate, error) {
	f.mu.Lock()
	f.calls[query]++
	f.mu.Unlock()

	if err, ok := f.Errors[query]; ok {
		return nil, err
	}
	if c, ok := f.Results[query]; ok {
		return []services.Candidate{c}, nil
	}
	return []services.Candidate{}, nil
}

// Calls returns how many times query was searched.
func (f *FakeCatalog) Calls(query string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[query]
}

// TotalCalls returns the number of searches across all queries.
func (f *FakeCatalog) TotalCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

// FakePlatform is a test double for [services.Platform] that records every call in order.
type FakePlatform struct {
	UserID    string
	CreateErr error
	AddErr    error

	mu        sync.Mutex
	Calls     []string
	Created   []services.Playlist
	Added     [][]string
	Described map[string]string
}

func NewFakePlatform() *FakePlatform {
	return &FakePlatform{UserID: "owner", Described: make(map[string]string)}
}

func (f *FakePlatform) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, call)
}

func (f *FakePlatform) CurrentUser(context.Context) (*services.User, error) {
	f.record("me")
	return &services.User{ID: f.UserID, DisplayName: "Test Owner"}, nil
}

func (f *FakePlatform) CreatePlaylist(_ context.Context, owner, name, description string, public bool) (*services.Playlist, error) {
	f.record("create:" + name)
	if f.CreateErr != nil {
		return nil, f.CreateErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	id := fmt.Sprintf("pl%d", len(f.Created)+1)
	pl := services.Playlist{
		ID:          id,
		Name:        name,
		Description: description,
		Link:        "https://open.spotify.com/playlist/" + id,
		Public:      public,
	}
	f.Created = append(f.Created, pl)
	return &pl, nil
}

func (f *FakePlatform) AddItems(_ context.Context, playlistID string, uris []string) error {
	f.record(fmt.Sprintf("add:%s:%d", playlistID, len(uris)))
	if f.AddErr != nil {
		return f.AddErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Added = append(f.Added, append([]string(nil), uris...))
	return nil
}

func (f *FakePlatform) UpdateDescription(_ context.Context, playlistID, description string) error {
	f.record("describe:" + playlistID)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.Described[playlistID] = description
	return nil
}

// CallLog returns a copy of the recorded calls.
func (f *FakePlatform) CallLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Calls...)
}

// StationPage builds a minimal playlist page with an active day label and one row per entry.
func StationPage(label string, entries ...string) string {
	var sb strings.Builder
	sb.WriteString(`<html><body><ul class="days">`)
	if label != "" {
		fmt.Fprintf(&sb, `<li role="menuitem" class="active"><a href="#"><span>%s</span></a></li>`, label)
	}
	sb.WriteString(`</ul><table class="tablelist-schedule">`)
	for _, e := range entries {
		fmt.Fprintf(&sb, `<tr><td class="tablelist-schedule__time">10:00</td><td class="track_history_item">%s</td></tr>`, e)
	}
	sb.WriteString(`</table></body></html>`)
	return sb.String()
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

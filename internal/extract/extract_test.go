package extract

import (
	"fmt"
	"strings"
	"testing"

	"github.com/desertthunder/weekly/internal/models"
)

func page(label string, entries ...string) []byte {
	var sb strings.Builder
	sb.WriteString(`<html><body><ul class="nav">`)
	sb.WriteString(`<li role="menuitem" class="active dropdown"><span>Not a day</span></li>`)
	if label != "" {
		fmt.Fprintf(&sb, `<li role="menuitem" class="active"><a href="#"><span>%s</span></a></li>`, label)
	}
	sb.WriteString(`<li role="menuitem"><span>Other day</span></li></ul><table>`)
	for _, e := range entries {
		fmt.Fprintf(&sb, "<tr><td class=\"time\">12:00</td><td class=\"track_history_item\">\n  %s\n</td></tr>", e)
	}
	sb.WriteString(`</table></body></html>`)
	return []byte(sb.String())
}

func TestExtract(t *testing.T) {
	e := New(7)

	t.Run("pairs and invalid entries", func(t *testing.T) {
		body := page("Monday", "Artist1 - Song1", "Be right back!", `<a href="/x">Artist2</a> - Song2`, "A - B - Remix")

		got, err := e.Extract(0, body)
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}

		want := []models.TrackPair{
			{Artist: "Artist1", Track: "Song1"},
			{Artist: "Artist2", Track: "Song2"},
			{Artist: "A", Track: "B"},
		}
		if len(got.Pairs) != len(want) {
			t.Fatalf("expected %d pairs, got %d: %+v", len(want), len(got.Pairs), got.Pairs)
		}
		for i := range want {
			if got.Pairs[i] != want[i] {
				t.Errorf("pair %d = %+v, want %+v", i, got.Pairs[i], want[i])
			}
		}
		if got.Invalid != 1 {
			t.Errorf("expected 1 invalid entry, got %d", got.Invalid)
		}
	})

	t.Run("window label only on first and last day", func(t *testing.T) {
		tc := []struct {
			day  int
			want string
		}{
			{day: 0, want: "Monday"},
			{day: 3, want: ""},
			{day: 6, want: "Monday"},
		}

		for _, tt := range tc {
			t.Run(fmt.Sprintf("day %d", tt.day), func(t *testing.T) {
				got, err := e.Extract(tt.day, page("Monday"))
				if err != nil {
					t.Fatalf("Extract() error = %v", err)
				}
				if got.Window != tt.want {
					t.Errorf("Window = %q, want %q", got.Window, tt.want)
				}
			})
		}
	})

	t.Run("multi class active items are ignored", func(t *testing.T) {
		got, _ := e.Extract(0, page(""))
		if got.Window != "" {
			t.Errorf("expected no label, got %q", got.Window)
		}
	})

	t.Run("empty page", func(t *testing.T) {
		got, err := e.Extract(2, []byte(""))
		if err != nil {
			t.Fatalf("Extract() error = %v", err)
		}
		if len(got.Pairs) != 0 || got.Invalid != 0 {
			t.Errorf("expected empty page, got %+v", got)
		}
	})
}

func TestExtractWeek(t *testing.T) {
	pages := make([][]byte, 7)
	for day := range pages {
		pages[day] = page(fmt.Sprintf("Day %d", day), "Artist1 - Song1", "noise")
	}

	week, err := New(7).ExtractWeek(pages)
	if err != nil {
		t.Fatalf("ExtractWeek() error = %v", err)
	}

	if len(week.Days) != 7 {
		t.Fatalf("expected 7 days, got %d", len(week.Days))
	}
	if week.Window != (models.Window{Start: "Day 0", End: "Day 6"}) {
		t.Errorf("unexpected window %+v", week.Window)
	}
	if week.Invalid != 7 {
		t.Errorf("expected 7 invalid entries, got %d", week.Invalid)
	}
	for day, pairs := range week.Days {
		if len(pairs) != 1 || pairs[0].Artist != "Artist1" {
			t.Errorf("day %d pairs = %+v", day, pairs)
		}
	}
}

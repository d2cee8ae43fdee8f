// package extract turns station playlist pages into (artist, track) pairs.
package extract

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/desertthunder/weekly/internal/models"
	"golang.org/x/net/html"
)

const (
	trackClass = "track_history_item"
	separator  = " - "
)

// Extractor parses playlist pages.
//
// LastDay is the day offset whose active label ends the window.
type Extractor struct {
	LastDay int
}

// New returns an [Extractor] for a week of days pages.
func New(days int) *Extractor {
	return &Extractor{LastDay: days - 1}
}

// Extract parses the page for day offset day.
//
// Entries that cannot be split into artist and track are counted in [models.Page.Invalid].
// The active day label is only read for the first and last day of the week.
func (e *Extractor) Extract(day int, body []byte) (models.Page, error) {
	var page models.Page

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return page, fmt.Errorf("failed to parse page for day %d: %w", day, err)
	}

	wantLabel := day == 0 || day == e.LastDay

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch {
			case n.Data == "td" && hasClass(n, trackClass):
				if pair, ok := splitEntry(textContent(n)); ok {
					page.Pairs = append(page.Pairs, pair)
				} else {
					page.Invalid++
				}
				return
			case wantLabel && n.Data == "li" && isActiveMenuItem(n):
				if span := findElement(n, "span"); span != nil {
					page.Window = strings.TrimSpace(textContent(span))
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	return page, nil
}

// Week is the folded result of a week of pages.
type Week struct {
	Days    [][]models.TrackPair
	Window  models.Window
	Invalid int
}

// ExtractWeek parses every page in day order.
func (e *Extractor) ExtractWeek(pages [][]byte) (Week, error) {
	week := Week{Days: make([][]models.TrackPair, 0, len(pages))}

	for day, body := range pages {
		page, err := e.Extract(day, body)
		if err != nil {
			return Week{}, err
		}

		week.Days = append(week.Days, page.Pairs)
		week.Invalid += page.Invalid

		switch day {
		case 0:
			week.Window.Start = page.Window
		case e.LastDay:
			week.Window.End = page.Window
		}
	}
	return week, nil
}

func splitEntry(text string) (models.TrackPair, bool) {
	parts := strings.Split(strings.TrimSpace(text), separator)
	if len(parts) < 2 {
		return models.TrackPair{}, false
	}
	return models.TrackPair{Artist: parts[0], Track: parts[1]}, true
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasClass(n *html.Node, class string) bool {
	v, _ := attr(n, "class")
	return slices.Contains(strings.Fields(v), class)
}

// isActiveMenuItem matches the selected day tab, whose only class is "active".
func isActiveMenuItem(n *html.Node) bool {
	role, _ := attr(n, "role")
	class, _ := attr(n, "class")
	classes := strings.Fields(class)
	return role == "menuitem" && len(classes) == 1 && classes[0] == "active"
}

// findElement returns the first descendant of n with the given tag, depth first.
func findElement(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := findElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// package aggregate folds a week of extracted pairs into a deduplicated, counted station.
package aggregate

import (
	"cmp"
	"slices"

	"github.com/desertthunder/weekly/internal/models"
)

// Aggregate deduplicates the pairs of days by their canonical key and counts occurrences.
//
// Records appear in first-seen order (day order, then position within the day).
// When ordered is set they are sorted by count, highest first; ties keep first-seen order.
func Aggregate(id string, days [][]models.TrackPair, window models.Window, invalid int, ordered bool) *models.Station {
	index := make(map[models.TrackPair]int)
	tracks := make([]models.TrackRecord, 0)

	for _, day := range days {
		for _, pair := range day {
			key := pair.Key()
			if i, ok := index[key]; ok {
				tracks[i].Count++
				continue
			}
			index[key] = len(tracks)
			tracks = append(tracks, models.NewTrackRecord(pair))
		}
	}

	if ordered {
		slices.SortStableFunc(tracks, func(a, b models.TrackRecord) int {
			return cmp.Compare(b.Count, a.Count)
		})
	}

	return &models.Station{ID: id, Window: window, Tracks: tracks, Invalid: invalid}
}

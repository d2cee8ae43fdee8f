// package source retrieves a week of playlist pages for a radio station.
//
// A station is addressed by its country coded identifier ("cc/station"). Each
// of the [DayCount] days is fetched in parallel and the bodies are returned
// indexed by day offset, so day 0 is always the most recent page regardless
// of which request finished first.
package source

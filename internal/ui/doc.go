// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI drives a pipeline run:
//  1. [StationListView] : Pick the stations to run (space toggles)
//  2. [ConfirmView] : Confirm the run
//  3. [RunView] : Spinner, overall progress bar and a line per finished station
//  4. [ResultView] : Playlist links and per-station failures
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Progress updates flow through a channel from the [tasks.Engine], providing non-blocking status reporting during runs.
//
// Keyboard navigation uses vim-style bindings (j/k, space, enter, esc, y/n, q) with contextual help displayed via charmbracelet/bubbles/help.
package ui

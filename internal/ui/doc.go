// Package ui implements an interactive terminal view of the user's top artists using bubbletea's Elm architecture.
//
// The TUI has three views:
//  1. [LoadingView] : Streams progress while [tasks.BuildReport] resolves artists and their top tracks
//  2. [ArtistListView] : Browse the ranked artists with their top track
//  3. [TrackListView] : An artist's top tracks
//
// The [Model] implements the standard Init/Update/View pattern and receives its own messages through the Msg union type.
// Pressing enter on an artist whose tracks failed to load fetches them again; o opens the Spotify link in the system browser.
package ui

package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgProgressUpdate MsgKind = iota
	MsgReportReady
	MsgTracksFetched
	MsgLinkOpened
)

type reportReady struct {
	result *tasks.ReportResult
	err    error
}

type tracksFetched struct {
	index  int
	tracks []models.TrackRef
	err    error
}

// progressUpdateMsg is the constructor for [MsgProgressUpdate]
func progressUpdateMsg(update tasks.ProgressUpdate) Msg {
	return Msg{kind: MsgProgressUpdate, data: update}
}

// reportReadyMsg is the constructor for [MsgReportReady]
func reportReadyMsg(result *tasks.ReportResult, err error) Msg {
	return Msg{kind: MsgReportReady, data: reportReady{result, err}}
}

// tracksFetchedMsg is the constructor for [MsgTracksFetched]
func tracksFetchedMsg(index int, tracks []models.TrackRef, err error) Msg {
	return Msg{kind: MsgTracksFetched, data: tracksFetched{index, tracks, err}}
}

// linkOpenedMsg is the constructor for [MsgLinkOpened]
func linkOpenedMsg(url string, err error) Msg {
	return Msg{
		kind: MsgLinkOpened,
		data: struct {
			url string
			err error
		}{url, err},
	}
}

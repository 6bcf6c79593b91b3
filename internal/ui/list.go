package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/spotlight/internal/models"
)

var (
	_ list.Item = artistItem{}
	_ list.Item = trackItem{}
)

// artistItem wraps [models.ArtistSummary] to implement [list.Item].
type artistItem struct {
	rank    int
	summary models.ArtistSummary
}

func (i artistItem) FilterValue() string { return i.summary.Artist.Name }
func (i artistItem) Title() string {
	return fmt.Sprintf("%d. %s", i.rank, i.summary.Artist.Name)
}
func (i artistItem) Description() string {
	if i.summary.Error != "" {
		return "top tracks unavailable"
	}
	if track, ok := i.summary.TopTrack(); ok {
		return fmt.Sprintf("♪ %s", track.Name)
	}
	return "no top tracks"
}

// trackItem wraps [models.TrackRef] to implement [list.Item].
type trackItem struct {
	track models.TrackRef
}

func (i trackItem) FilterValue() string { return i.track.Name }
func (i trackItem) Title() string       { return i.track.Name }
func (i trackItem) Description() string {
	if i.track.ExternalURL == "" {
		return i.track.URI
	}
	return i.track.ExternalURL
}

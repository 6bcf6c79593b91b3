package ui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/tasks"
	tu "github.com/desertthunder/spotlight/internal/testing"
)

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func testCatalog() *tu.MockCatalog {
	return &tu.MockCatalog{
		Artists: []models.Artist{
			{ID: "a1", Name: "Artist One"},
			{ID: "a2", Name: "Artist Two"},
		},
		Tracks: map[string][]models.TrackRef{
			"a1": {{ID: "t1", Name: "Song One", URI: "spotify:track:t1", ExternalURL: "https://open.spotify.com/track/t1"}},
			"a2": {{ID: "t2", Name: "Song Two", URI: "spotify:track:t2"}},
		},
	}
}

func newTestModel(catalog *tu.MockCatalog, opened *[]string) *Model {
	m := NewModel(context.Background(), catalog, "token-1", Options{
		RateLimit: 1000,
		Open: func(url string) error {
			*opened = append(*opened, url)
			return nil
		},
	})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return m
}

// run feeds cmd results back into the model until no command remains.
func run(m *Model, cmd tea.Cmd) {
	for cmd != nil {
		msg := cmd()
		if msg == nil {
			return
		}
		_, cmd = m.Update(msg)
	}
}

func TestModel(t *testing.T) {
	t.Run("Loads Report", func(t *testing.T) {
		var opened []string
		m := newTestModel(testCatalog(), &opened)

		if !strings.Contains(m.View(), "Loading Top Artists") {
			t.Errorf("expected loading view, got:\n%s", m.View())
		}

		run(m, m.Init())

		if m.view != ArtistListView {
			t.Fatalf("expected artist list view, got %v", m.view)
		}
		if len(m.summaries) != 2 {
			t.Fatalf("expected 2 summaries, got %d", len(m.summaries))
		}
		view := m.View()
		for _, want := range []string{"Top Artists", "1. Artist One", "Song One"} {
			if !strings.Contains(view, want) {
				t.Errorf("view missing %q:\n%s", want, view)
			}
		}
	})

	t.Run("Enter Shows Tracks", func(t *testing.T) {
		var opened []string
		m := newTestModel(testCatalog(), &opened)
		run(m, m.Init())

		m.Update(keyPress("enter"))
		if m.view != TrackListView {
			t.Fatalf("expected track list view, got %v", m.view)
		}
		if !strings.Contains(m.View(), "Top tracks by Artist One") {
			t.Errorf("unexpected view:\n%s", m.View())
		}

		m.Update(keyPress("esc"))
		if m.view != ArtistListView {
			t.Errorf("esc should return to the artist list, got %v", m.view)
		}
	})

	t.Run("Open Link", func(t *testing.T) {
		var opened []string
		m := newTestModel(testCatalog(), &opened)
		run(m, m.Init())

		_, cmd := m.Update(keyPress("o"))
		run(m, cmd)

		if len(opened) != 1 || opened[0] != "https://open.spotify.com/track/t1" {
			t.Errorf("unexpected opened links: %v", opened)
		}
		if !strings.Contains(m.status, "Opened") {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("Open Without Link", func(t *testing.T) {
		var opened []string
		m := newTestModel(testCatalog(), &opened)
		run(m, m.Init())

		m.Update(keyPress("j"))
		m.Update(keyPress("o"))

		if len(opened) != 0 {
			t.Errorf("no link should be opened, got %v", opened)
		}
		if m.status != "No link for this artist" {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("Open Failure", func(t *testing.T) {
		m := NewModel(context.Background(), testCatalog(), "token-1", Options{
			RateLimit: 1000,
			Open:      func(string) error { return errors.New("no browser") },
		})
		m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
		run(m, m.Init())

		_, cmd := m.Update(keyPress("o"))
		run(m, cmd)
		if !strings.Contains(m.status, "no browser") {
			t.Errorf("unexpected status %q", m.status)
		}
	})

	t.Run("Refetches Failed Tracks", func(t *testing.T) {
		var opened []string
		catalog := testCatalog()
		m := newTestModel(catalog, &opened)

		m.Update(reportReadyMsg(&tasks.ReportResult{
			Summaries: []models.ArtistSummary{
				{Artist: catalog.Artists[0], Error: "status 500"},
			},
			Failed: 1,
		}, nil))
		if m.status != "1 artists without top tracks" {
			t.Errorf("unexpected status %q", m.status)
		}

		_, cmd := m.Update(keyPress("enter"))
		if cmd == nil {
			t.Fatal("expected a fetch command")
		}
		run(m, cmd)

		if catalog.TrackCalls() != 1 {
			t.Errorf("expected 1 top-track request, got %d", catalog.TrackCalls())
		}
		if m.view != TrackListView {
			t.Errorf("expected track list view, got %v", m.view)
		}
		if m.summaries[0].Error != "" || len(m.summaries[0].TopTracks) != 1 {
			t.Errorf("summary not updated: %+v", m.summaries[0])
		}
	})

	t.Run("Report Error", func(t *testing.T) {
		var opened []string
		catalog := testCatalog()
		catalog.Err = errors.New("status 401")
		m := newTestModel(catalog, &opened)
		run(m, m.Init())

		if !strings.Contains(m.View(), "Error: status 401") {
			t.Errorf("expected error view, got:\n%s", m.View())
		}
		if _, cmd := m.Update(keyPress("q")); cmd == nil {
			t.Error("q should quit")
		}
	})

	t.Run("Empty", func(t *testing.T) {
		var opened []string
		m := newTestModel(&tu.MockCatalog{}, &opened)
		run(m, m.Init())

		if !strings.Contains(m.View(), "No top artists to show yet.") {
			t.Errorf("unexpected view:\n%s", m.View())
		}
	})
}

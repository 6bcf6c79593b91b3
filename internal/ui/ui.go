package ui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/shared"
	"github.com/desertthunder/spotlight/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	ArtistListView
	TrackListView
)

// Options configures a [Model].
type Options struct {
	Limit     int
	RateLimit float64
	// Open opens a URL in the system browser. Defaults to shared.OpenBrowser.
	Open func(url string) error
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	catalog      tasks.Catalog
	credential   string
	opts         Options
	width        int
	height       int
	artistList   list.Model
	trackList    list.Model
	hasArtists   bool
	hasTracks    bool
	summaries    []models.ArtistSummary
	selected     int
	progressChan chan tasks.ProgressUpdate
	doneChan     chan Msg
	progress     tasks.ProgressUpdate
	status       string
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a TUI model listing the top artists of the account behind credential.
func NewModel(ctx context.Context, catalog tasks.Catalog, credential string, opts Options) *Model {
	if opts.Open == nil {
		opts.Open = shared.OpenBrowser
	}
	return &Model{
		ctx:        ctx,
		view:       LoadingView,
		catalog:    catalog,
		credential: credential,
		opts:       opts,
		help:       help.New(),
		keys:       newKeyMap(),
	}
}

// Init starts building the artist report.
func (m *Model) Init() tea.Cmd {
	return m.startReport()
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.hasArtists {
			m.artistList.SetSize(msg.Width-4, msg.Height-8)
		}
		if m.hasTracks {
			m.trackList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case LoadingView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
			return m, nil
		case ArtistListView:
			return m.handleArtistListKeys(msg)
		case TrackListView:
			return m.handleTrackListKeys(msg)
		}

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateLists(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgReportReady:
		data := msg.data.(reportReady)
		m.progressChan, m.doneChan = nil, nil
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.setSummaries(data.result.Summaries)
		m.view = ArtistListView
		if data.result.Failed > 0 {
			m.status = fmt.Sprintf("%d artists without top tracks", data.result.Failed)
		}
		return m, nil

	case MsgTracksFetched:
		data := msg.data.(tracksFetched)
		if data.index < 0 || data.index >= len(m.summaries) {
			return m, nil
		}
		summary := &m.summaries[data.index]
		if data.err != nil {
			summary.Error = data.err.Error()
			m.status = fmt.Sprintf("Could not load tracks for %s: %v", summary.Artist.Name, data.err)
			return m, nil
		}
		summary.Error = ""
		summary.TopTracks = data.tracks
		m.artistList.SetItem(data.index, artistItem{rank: data.index + 1, summary: *summary})
		m.showTracks(data.index)
		return m, nil

	case MsgLinkOpened:
		data := msg.data.(struct {
			url string
			err error
		})
		if data.err != nil {
			m.status = fmt.Sprintf("Could not open %s: %v", data.url, data.err)
		} else {
			m.status = fmt.Sprintf("Opened %s", data.url)
		}
		return m, nil
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case LoadingView:
		return m.renderLoading()
	case ArtistListView:
		return m.renderArtistList()
	case TrackListView:
		return m.renderTrackList()
	default:
		return ""
	}
}

func (m *Model) setSummaries(summaries []models.ArtistSummary) {
	m.summaries = summaries
	items := make([]list.Item, len(summaries))
	for i, s := range summaries {
		items[i] = artistItem{rank: i + 1, summary: s}
	}
	m.artistList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.artistList.Title = "Top Artists"
	m.hasArtists = true
	m.artistList.SetSize(m.width-4, m.height-8)
}

func (m *Model) showTracks(index int) {
	m.selected = index
	summary := m.summaries[index]
	items := make([]list.Item, len(summary.TopTracks))
	for i, t := range summary.TopTracks {
		items[i] = trackItem{track: t}
	}
	m.trackList = list.New(items, list.NewDefaultDelegate(), 0, 0)
	m.trackList.Title = fmt.Sprintf("Top tracks by %s", summary.Artist.Name)
	m.hasTracks = true
	m.trackList.SetSize(m.width-4, m.height-8)
	m.view = TrackListView
}

func (m *Model) handleArtistListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.artistList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.artistList, cmd = m.artistList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.refresh):
		m.view = LoadingView
		m.status = ""
		return m, m.startReport()
	case key.Matches(msg, m.keys.enter):
		index := m.artistList.Index()
		if index < 0 || index >= len(m.summaries) {
			return m, nil
		}
		if m.summaries[index].Error != "" {
			m.status = fmt.Sprintf("Loading tracks for %s...", m.summaries[index].Artist.Name)
			return m, m.fetchTracks(index)
		}
		m.status = ""
		m.showTracks(index)
		return m, nil
	case key.Matches(msg, m.keys.open):
		index := m.artistList.Index()
		if index < 0 || index >= len(m.summaries) {
			return m, nil
		}
		if track, ok := m.summaries[index].TopTrack(); ok && track.ExternalURL != "" {
			return m, m.openLink(track.ExternalURL)
		}
		m.status = "No link for this artist"
		return m, nil
	}

	var cmd tea.Cmd
	m.artistList, cmd = m.artistList.Update(msg)
	return m, cmd
}

func (m *Model) handleTrackListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.back):
		m.view = ArtistListView
		m.status = ""
		return m, nil
	case key.Matches(msg, m.keys.open), key.Matches(msg, m.keys.enter):
		if item, ok := m.trackList.SelectedItem().(trackItem); ok && item.track.ExternalURL != "" {
			return m, m.openLink(item.track.ExternalURL)
		}
		m.status = "No link for this track"
		return m, nil
	}

	var cmd tea.Cmd
	m.trackList, cmd = m.trackList.Update(msg)
	return m, cmd
}

func (m *Model) updateLists(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case ArtistListView:
		if m.hasArtists {
			m.artistList, cmd = m.artistList.Update(msg)
		}
	case TrackListView:
		if m.hasTracks {
			m.trackList, cmd = m.trackList.Update(msg)
		}
	}
	return m, cmd
}

// startReport runs [tasks.BuildReport] in the background and streams its progress.
func (m *Model) startReport() tea.Cmd {
	progress := make(chan tasks.ProgressUpdate, 50)
	done := make(chan Msg, 1)
	m.progressChan, m.doneChan = progress, done

	go func() {
		result, err := tasks.BuildReport(m.ctx, progress, m.catalog, m.credential, tasks.ReportOpts{
			Limit:     m.opts.Limit,
			RateLimit: m.opts.RateLimit,
		})
		done <- reportReadyMsg(result, err)
		close(progress)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	progress, done := m.progressChan, m.doneChan
	return func() tea.Msg {
		if progress == nil {
			return nil
		}
		update, ok := <-progress
		if !ok {
			return <-done
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) fetchTracks(index int) tea.Cmd {
	artistID := m.summaries[index].Artist.ID
	return func() tea.Msg {
		tracks, err := m.catalog.FetchTopTracks(m.ctx, artistID, m.credential)
		return tracksFetchedMsg(index, tracks, err)
	}
}

func (m *Model) openLink(url string) tea.Cmd {
	open := m.opts.Open
	return func() tea.Msg {
		return linkOpenedMsg(url, open(url))
	}
}

func (m *Model) renderLoading() string {
	title := styles.title.Render("Loading Top Artists")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchArtists:
		phase = "Fetching artists..."
	case tasks.FetchTracks:
		phase = fmt.Sprintf("Resolving top tracks (%d/%d)", m.progress.Step, m.progress.Total)
	default:
		phase = "Starting..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, styles.help.Render(m.progress.Message))
}

func (m *Model) renderStatus() string {
	if m.status == "" {
		return ""
	}
	return "\n" + styles.status.Render(m.status)
}

func (m *Model) renderArtistList() string {
	if len(m.summaries) == 0 {
		return fmt.Sprintf("%s\n\n%s\n\n%s",
			styles.title.Render("Top Artists"),
			styles.warn.Render("No top artists to show yet."),
			m.help.ShortHelpView([]key.Binding{m.keys.refresh, m.keys.quit}),
		)
	}
	helpKeys := []key.Binding{m.keys.enter, m.keys.open, m.keys.refresh, m.keys.quit}
	return fmt.Sprintf("%s%s\n\n%s", m.artistList.View(), m.renderStatus(), m.help.ShortHelpView(helpKeys))
}

func (m *Model) renderTrackList() string {
	if len(m.summaries[m.selected].TopTracks) == 0 {
		return fmt.Sprintf("%s\n\n%s\n\n%s",
			styles.title.Render(m.trackList.Title),
			styles.warn.Render("No top tracks."),
			m.help.ShortHelpView([]key.Binding{m.keys.back, m.keys.quit}),
		)
	}
	helpKeys := []key.Binding{m.keys.open, m.keys.back, m.keys.quit}
	return fmt.Sprintf("%s%s\n\n%s", m.trackList.View(), m.renderStatus(), m.help.ShortHelpView(helpKeys))
}

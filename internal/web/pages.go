package web

import (
	"net/http"

	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/playback"
	"github.com/desertthunder/spotlight/internal/server"
)

type artistTile struct {
	ID      string
	Name    string
	Image   string
	Loading bool
	Playing bool
}

type homeView struct {
	Title   string
	User    string
	PageID  string
	Artists []artistTile
	State   playback.Snapshot
}

type loginView struct {
	Title    string
	Callback string
	Error    string
}

// Home renders the artist grid for the signed-in user and opens the page's controller.
func (a *App) Home(w http.ResponseWriter, r *http.Request) {
	session, err := a.sessions.Current(r)
	if err != nil {
		a.render(w, http.StatusOK, "login.html", loginView{Title: "Sign in", Callback: server.HomePath})
		return
	}

	artists := a.artists.TopArtists(r.Context(), session.AccessToken(), a.opts.TopArtistsLimit)
	page := a.registry.Open(session.ID())

	w.Header().Set("Cache-Control", "no-store")
	a.render(w, http.StatusOK, "home.html", newHomeView(session.Label(), page.ID, artists, page.Controller.Snapshot()))
}

// newHomeView builds the grid. The active artist stays marked while its track is paused.
func newHomeView(user, pageID string, artists []models.Artist, snap playback.Snapshot) homeView {
	tiles := make([]artistTile, 0, len(artists))
	for _, artist := range artists {
		tile := artistTile{ID: artist.ID, Name: artist.Name, Image: artist.Thumbnail()}
		tile.Loading = snap.LoadingArtistID == artist.ID
		tile.Playing = snap.Playing() && snap.NowPlaying != nil && snap.NowPlaying.ArtistID == artist.ID
		tiles = append(tiles, tile)
	}

	return homeView{
		Title:   "Top artists",
		User:    user,
		PageID:  pageID,
		Artists: tiles,
		State:   snap,
	}
}

// Login renders the sign-in call to action. from is carried to the provider as the return target.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	a.render(w, http.StatusOK, "login.html", loginView{
		Title:    "Sign in",
		Callback: server.SafeReturnTo(q.Get("from")),
		Error:    q.Get("error"),
	})
}

// Logout renders the sign-out confirmation.
func (a *App) Logout(w http.ResponseWriter, r *http.Request) {
	a.render(w, http.StatusOK, "logout.html", map[string]string{"Title": "Sign out"})
}

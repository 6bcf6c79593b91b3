// Package web implements the browser front end: the login and logout pages, the top
// artists page and the playback intents that drive each page's controller.
//
// # Architecture
//
// Pages are rendered on the server with html/template. Each visit to / opens a
// [playback.Controller] in the registry under a fresh page id; the page then opens
// /playback/ws?page=<id>, which binds the tab's Web Playback SDK to the controller
// through an [sdk.Bridge]. Clicks are sent as small POST intents and answered with the
// controller snapshot; every transition is also pushed over the socket.
//
// Routes
//
//	GET  /healthz          → liveness, outside the guard
//	GET  /                 → top artists grid (requires auth)
//	GET  /login            → sign-in call to action
//	GET  /logout           → sign-out confirmation
//	/api/auth/*            → server.AuthHandler
//	POST /playback/select  → play an artist's top track
//	POST /playback/toggle  → pause or resume
//	POST /playback/stop    → pause and clear
//	GET  /playback/state   → current snapshot
//	GET  /playback/ws      → SDK bridge
//	GET  /static/*         → embedded assets
package web

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/playback"
	"github.com/desertthunder/spotlight/internal/sdk"
	"github.com/desertthunder/spotlight/internal/server"
	"github.com/desertthunder/spotlight/internal/shared"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// ArtistSource returns the user's top artists, empty on failure.
type ArtistSource interface {
	TopArtists(ctx context.Context, credential string, limit int) []models.Artist
}

// Options wires an [App].
type Options struct {
	Artists  ArtistSource
	Tracks   playback.TrackSource
	Commands playback.Commands
	Sessions *server.SessionManager
	Auth     *server.AuthHandler
	Logger   *log.Logger

	TopArtistsLimit int
	DeviceName      string
	Volume          float64
	ConnectTimeout  time.Duration

	// NewSDK overrides the per-page SDK. Defaults to a websocket bridge.
	NewSDK func(pageID string) playback.SDK
}

// App is the web application.
type App struct {
	opts     Options
	artists  ArtistSource
	sessions *server.SessionManager
	registry *playback.Registry
	guard    *server.Guard
	pages    map[string]*template.Template
	static   fs.FS
	logger   *log.Logger
}

// New builds the application and parses its templates.
func New(opts Options) (*App, error) {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.TopArtistsLimit <= 0 {
		opts.TopArtistsLimit = 10
	}

	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("failed to open static assets: %w", err)
	}

	a := &App{
		opts:     opts,
		artists:  opts.Artists,
		sessions: opts.Sessions,
		guard:    server.NewGuard(),
		pages:    pages,
		static:   static,
		logger:   opts.Logger,
	}
	a.registry = playback.NewRegistry(a.newController)
	return a, nil
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template)
	for _, name := range []string{"home.html", "login.html", "logout.html"} {
		t, err := template.ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, err
		}
		pages[name] = t
	}
	return pages, nil
}

func (a *App) newController(pageID, sessionID string) *playback.Controller {
	logger := shared.WithLogger(a.logger, "page", pageID)

	var s playback.SDK
	if a.opts.NewSDK != nil {
		s = a.opts.NewSDK(pageID)
	} else {
		s = sdk.NewBridge(sdk.Options{ConnectTimeout: a.opts.ConnectTimeout, Logger: logger})
	}

	return playback.NewController(s, a.opts.Commands, a.opts.Tracks, playback.Options{
		Name:       a.opts.DeviceName,
		Volume:     a.opts.Volume,
		Credential: func() string { return a.sessions.Credential(sessionID) },
		Logger:     logger,
	})
}

// Registry returns the live pages.
func (a *App) Registry() *playback.Registry {
	return a.registry
}

// EndSession closes the pages of a signed-out session.
func (a *App) EndSession(sessionID string) {
	a.registry.CloseSession(sessionID)
}

// Close closes every live page.
func (a *App) Close() {
	a.registry.CloseAll()
}

// Handler returns the root handler. /healthz is served before the session and guard layers.
func (a *App) Handler() http.Handler {
	router := server.NewBasicRouter()
	router.Use(
		server.Recover(a.logger),
		server.Logging(a.logger),
		a.sessions.Middleware(),
		a.guard.Middleware(a.sessions.Authenticated),
	)

	router.Handle(http.MethodGet, "/static/", http.StripPrefix("/static/", http.FileServerFS(a.static)))
	router.HandleFunc(http.MethodGet, "/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	if a.opts.Auth != nil {
		router.Handler(a.opts.Auth)
	}

	router.HandleFunc(http.MethodGet, "/{$}", a.Home)
	router.HandleFunc(http.MethodGet, "/login", a.Login)
	router.HandleFunc(http.MethodGet, "/logout", a.Logout)

	router.HandleFunc(http.MethodPost, "/playback/select", a.Select)
	router.HandleFunc(http.MethodPost, "/playback/toggle", a.Toggle)
	router.HandleFunc(http.MethodPost, "/playback/stop", a.Stop)
	router.HandleFunc(http.MethodGet, "/playback/state", a.State)
	router.HandleFunc(http.MethodGet, "/playback/ws", a.Socket)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", a.Health)
	mux.Handle("/", router)
	return mux
}

// Health reports liveness and the number of live pages.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "pages": a.registry.Len()})
}

func (a *App) render(w http.ResponseWriter, status int, page string, data any) {
	t, ok := a.pages[page]
	if !ok {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		a.logger.Error("failed to render page", "page", page, "error", err)
	}
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("failed to encode response", "status", status, "error", err)
	}
}

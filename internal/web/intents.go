package web

import (
	"context"
	"errors"
	"net/http"

	"github.com/desertthunder/spotlight/internal/playback"
	"github.com/desertthunder/spotlight/internal/sdk"
	"github.com/desertthunder/spotlight/internal/shared"
)

type intentResponse struct {
	State playback.Snapshot `json:"state"`
	Error string            `json:"error,omitempty"`
}

// page resolves the page named by the page parameter, which must belong to the caller's session.
func (a *App) page(w http.ResponseWriter, r *http.Request) (*playback.Page, bool) {
	session, err := a.sessions.Current(r)
	if err != nil {
		a.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not signed in"})
		return nil, false
	}

	page, ok := a.registry.Lookup(r.FormValue("page"))
	if !ok || page.SessionID != session.ID() {
		a.writeJSON(w, http.StatusNotFound, map[string]string{"error": "page not found"})
		return nil, false
	}
	return page, true
}

func (a *App) respond(w http.ResponseWriter, page *playback.Page, err error) {
	resp := intentResponse{State: page.Controller.Snapshot()}
	status := http.StatusOK

	switch {
	case err == nil:
	case errors.Is(err, shared.ErrDeviceNotReady), errors.Is(err, shared.ErrNotPlaying):
		status = http.StatusConflict
		resp.Error = err.Error()
	case errors.Is(err, shared.ErrInvalidArgument):
		status = http.StatusBadRequest
		resp.Error = err.Error()
	case errors.Is(err, context.Canceled):
		status = http.StatusServiceUnavailable
		resp.Error = "request cancelled"
	default:
		a.logger.Warn("playback intent failed", "page", page.ID, "error", err)
		status = http.StatusBadGateway
		resp.Error = "playback request failed"
	}
	a.writeJSON(w, status, resp)
}

// Select plays the top track of the posted artist on the page's device.
func (a *App) Select(w http.ResponseWriter, r *http.Request) {
	page, ok := a.page(w, r)
	if !ok {
		return
	}
	err := page.Controller.SelectArtist(r.Context(), r.FormValue("artist"))
	a.respond(w, page, err)
}

// Toggle pauses or resumes the page's playback.
func (a *App) Toggle(w http.ResponseWriter, r *http.Request) {
	page, ok := a.page(w, r)
	if !ok {
		return
	}
	a.respond(w, page, page.Controller.TogglePause(r.Context()))
}

// Stop pauses the device and clears Now-Playing.
func (a *App) Stop(w http.ResponseWriter, r *http.Request) {
	page, ok := a.page(w, r)
	if !ok {
		return
	}
	page.Controller.Stop(r.Context())
	a.respond(w, page, nil)
}

// State returns the page's snapshot.
func (a *App) State(w http.ResponseWriter, r *http.Request) {
	page, ok := a.page(w, r)
	if !ok {
		return
	}
	a.respond(w, page, nil)
}

// Socket binds the tab's SDK to the page controller and mounts it.
//
// The page is closed when the socket goes away.
func (a *App) Socket(w http.ResponseWriter, r *http.Request) {
	page, ok := a.page(w, r)
	if !ok {
		return
	}

	bridge, ok := page.Controller.SDK().(*sdk.Bridge)
	if !ok {
		http.Error(w, "Page has no player bridge", http.StatusInternalServerError)
		return
	}
	if bridge.Attached() {
		http.Error(w, "Page already connected", http.StatusConflict)
		return
	}

	conn, err := sdk.Upgrade(w, r)
	if err != nil {
		a.logger.Warn("websocket upgrade failed", "page", page.ID, "error", err)
		return
	}
	if err := bridge.Attach(conn); err != nil {
		a.logger.Warn("failed to attach bridge", "page", page.ID, "error", err)
		conn.Close()
		return
	}

	unsubscribe := page.Controller.Subscribe(func(s playback.Snapshot) {
		if err := bridge.SendState(s); err != nil {
			a.logger.Debug("failed to push state", "page", page.ID, "error", err)
		}
	})
	defer unsubscribe()

	bridge.SendState(page.Controller.Snapshot())
	page.Controller.Mount(r.Context())

	if err := bridge.Serve(r.Context()); err != nil {
		a.logger.Debug("bridge closed", "page", page.ID, "error", err)
	}
	a.registry.Close(page.ID)
}

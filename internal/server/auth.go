package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotlight/internal/shared"
	"golang.org/x/oauth2"
)

const (
	AuthPrefix      = "/api/auth/"
	stateCookieName = "spotlight_oauth"
	stateMaxAge     = 10 * time.Minute
)

// Authenticator is the identity provider side of the authorization code flow.
type Authenticator interface {
	GetAuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// ProfileFunc resolves the user id and display name for a fresh credential.
type ProfileFunc func(ctx context.Context, credential string) (id, name string, err error)

type pendingLogin struct {
	State    string `json:"state"`
	Callback string `json:"callback"`
}

// SessionInfo is the public view of the current session.
type SessionInfo struct {
	Authenticated bool       `json:"authenticated"`
	Name          string     `json:"name,omitempty"`
	Expires       *time.Time `json:"expires,omitempty"`
}

// AuthHandler serves the sign-in flow under /api/auth/.
type AuthHandler struct {
	auth      Authenticator
	sessions  *SessionManager
	profile   ProfileFunc
	onSignOut func(sessionID string)
	logger    *log.Logger
}

// AuthOption configures an [AuthHandler].
type AuthOption func(*AuthHandler)

// WithProfile looks up the user's profile after a successful exchange.
func WithProfile(fn ProfileFunc) AuthOption {
	return func(h *AuthHandler) { h.profile = fn }
}

// WithSignOutHook is called with the ended session id after sign-out.
func WithSignOutHook(fn func(sessionID string)) AuthOption {
	return func(h *AuthHandler) { h.onSignOut = fn }
}

// WithAuthLogger sets the handler's logger.
func WithAuthLogger(l *log.Logger) AuthOption {
	return func(h *AuthHandler) { h.logger = l }
}

// NewAuthHandler creates the web sign-in handler.
func NewAuthHandler(auth Authenticator, sessions *SessionManager, opts ...AuthOption) *AuthHandler {
	h := &AuthHandler{auth: auth, sessions: sessions, logger: shared.NewLogger(nil)}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes returns the HTTP routes this handler serves.
func (h *AuthHandler) Routes() []string {
	return []string{AuthPrefix}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch action := strings.TrimPrefix(r.URL.Path, AuthPrefix); action {
	case "signin":
		if r.Method != http.MethodGet && r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodGet, http.MethodPost)
			return
		}
		h.SignIn(w, r)
	case "callback":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.Callback(w, r)
	case "signout":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, http.MethodPost)
			return
		}
		h.SignOut(w, r)
	case "session":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, http.MethodGet)
			return
		}
		h.Session(w, r)
	default:
		http.NotFound(w, r)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
}

// SignIn stores a fresh state with the return target and redirects to the provider.
func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	callback := r.FormValue("callbackUrl")

	state, err := shared.RandomToken(32)
	if err != nil {
		h.logger.Error("failed to generate oauth state", "error", err)
		http.Redirect(w, r, LoginPath+"?error=OAuthSignin", http.StatusFound)
		return
	}

	value, err := h.sessions.Codec().Encode(stateCookieName, pendingLogin{State: state, Callback: SafeReturnTo(callback)})
	if err != nil {
		h.logger.Error("failed to encode oauth state", "error", err)
		http.Redirect(w, r, LoginPath+"?error=OAuthSignin", http.StatusFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    value,
		Path:     AuthPrefix,
		MaxAge:   int(stateMaxAge / time.Second),
		HttpOnly: true,
		Secure:   h.sessions.Secure(),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, h.auth.GetAuthURL(state), http.StatusFound)
}

func (h *AuthHandler) clearState(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Path:     AuthPrefix,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.sessions.Secure(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) pending(r *http.Request) (*pendingLogin, error) {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil {
		return nil, fmt.Errorf("%w: no pending sign-in", shared.ErrInvalidState)
	}
	var p pendingLogin
	if err := h.sessions.Codec().Decode(stateCookieName, cookie.Value, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidState, err)
	}
	return &p, nil
}

// Callback completes the flow: it checks state, exchanges the code and starts a session.
//
// Any failure lands on the login page with error=Callback.
func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	p, err := h.pending(r)
	h.clearState(w)

	fail := func(msg string, err error) {
		h.logger.Warn(msg, "error", err)
		http.Redirect(w, r, LoginPath+"?error=Callback", http.StatusFound)
	}

	if err != nil {
		fail("sign-in callback without valid state", err)
		return
	}

	q := r.URL.Query()
	if q.Get("state") != p.State {
		fail("sign-in state mismatch", shared.ErrInvalidState)
		return
	}

	code := q.Get("code")
	if code == "" {
		fail("authorization denied", fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description")))
		return
	}

	token, err := h.auth.Exchange(r.Context(), code)
	if err != nil {
		fail("token exchange failed", err)
		return
	}

	session, err := h.sessions.Start(w, token)
	if err != nil {
		fail("failed to start session", err)
		return
	}

	if h.profile != nil {
		if id, name, err := h.profile(r.Context(), token.AccessToken); err != nil {
			h.logger.Warn("failed to fetch profile", "error", err)
		} else {
			session.SetProfile(id, name)
			if err := h.sessions.store.Update(session); err != nil {
				h.logger.Warn("failed to store profile", "error", err)
			}
		}
	}

	h.logger.Info("signed in", "session", session.Sequence(), "user", session.Label())
	http.Redirect(w, r, SafeReturnTo(p.Callback), http.StatusFound)
}

// SignOut ends the session and returns to the login page.
func (h *AuthHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	id, err := h.sessions.End(w, r)
	if err != nil {
		h.logger.Error("failed to end session", "error", err)
	}
	if id != "" && h.onSignOut != nil {
		h.onSignOut(id)
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// Session reports whether the request is signed in, without exposing the credential.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	info := SessionInfo{}
	if session, err := h.sessions.Current(r); err == nil {
		info.Authenticated = true
		info.Name = session.Label()
		info.Expires = session.ExpiresAt()
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	if err := json.NewEncoder(w).Encode(info); err != nil {
		h.logger.Error("failed to write session info", "error", err)
	}
}

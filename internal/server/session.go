package server

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/shared"
	"github.com/gorilla/securecookie"
	"golang.org/x/oauth2"
)

const DefaultCookieName = "spotlight_session"

// SessionStore persists sessions. Implemented by repositories.SessionRepository.
type SessionStore interface {
	Create(session *models.Session) error
	Update(session *models.Session) error
	Lookup(id string, now time.Time) (*models.Session, error)
	Delete(id string) error
}

// SessionOptions configures a [SessionManager].
type SessionOptions struct {
	CookieName string
	MaxAge     time.Duration
	Secure     bool
	Logger     *log.Logger
	Now        func() time.Time
}

// SessionManager ties the signed session cookie to stored sessions.
//
// The cookie only carries the session id; tokens stay server-side.
type SessionManager struct {
	store  SessionStore
	codec  *securecookie.SecureCookie
	name   string
	maxAge time.Duration
	secure bool
	logger *log.Logger
	now    func() time.Time
}

type sessionKey struct{}

type lazySession struct {
	once    sync.Once
	resolve func() (*models.Session, error)
	session *models.Session
	err     error
}

func (l *lazySession) get() (*models.Session, error) {
	l.once.Do(func() { l.session, l.err = l.resolve() })
	return l.session, l.err
}

// NewSessionManager creates a manager signing cookies with a key derived from secret.
func NewSessionManager(store SessionStore, secret string, opts SessionOptions) *SessionManager {
	if opts.CookieName == "" {
		opts.CookieName = DefaultCookieName
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = time.Hour
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	hashKey := sha256.Sum256([]byte(secret))
	codec := securecookie.New(hashKey[:], nil)
	codec.SetSerializer(securecookie.JSONEncoder{})
	codec.MaxAge(int(opts.MaxAge / time.Second))

	return &SessionManager{
		store:  store,
		codec:  codec,
		name:   opts.CookieName,
		maxAge: opts.MaxAge,
		secure: opts.Secure,
		logger: opts.Logger,
		now:    opts.Now,
	}
}

// Start persists a session for token and sets the session cookie.
func (m *SessionManager) Start(w http.ResponseWriter, token *oauth2.Token) (*models.Session, error) {
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty token", shared.ErrAuthFailed)
	}

	session := models.NewSession(0, token.AccessToken, token.RefreshToken, token.Expiry)
	session.SetTokenType(token.TokenType)
	if scope, ok := token.Extra("scope").(string); ok {
		session.SetScope(scope)
	}
	if err := m.store.Create(session); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}
	if err := m.Issue(w, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Issue writes the signed cookie for session.
func (m *SessionManager) Issue(w http.ResponseWriter, session *models.Session) error {
	value, err := m.codec.Encode(m.name, session.ID())
	if err != nil {
		return fmt.Errorf("failed to encode session cookie: %w", err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(m.maxAge / time.Second),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the session cookie.
func (m *SessionManager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionID decodes the session id from the request cookie.
func (m *SessionManager) SessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.name)
	if err != nil {
		return "", shared.ErrNotAuthenticated
	}

	var id string
	if err := m.codec.Decode(m.name, cookie.Value, &id); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	return id, nil
}

func (m *SessionManager) load(r *http.Request) (*models.Session, error) {
	id, err := m.SessionID(r)
	if err != nil {
		return nil, err
	}
	session, err := m.store.Lookup(id, m.now())
	if err != nil {
		if !errors.Is(err, shared.ErrSessionNotFound) && !errors.Is(err, shared.ErrSessionExpired) {
			m.logger.Error("session lookup failed", "error", err)
		}
		return nil, fmt.Errorf("%w: %v", shared.ErrNotAuthenticated, err)
	}
	return session, nil
}

// Middleware attaches a lazily resolved session to the request context.
//
// The store is only queried when a handler (or the guard) asks for the session.
func (m *SessionManager) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			lazy := &lazySession{resolve: func() (*models.Session, error) { return m.load(r) }}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, lazy)))
		})
	}
}

// Current returns the request's valid session.
//
// Without the middleware the cookie is resolved directly.
func (m *SessionManager) Current(r *http.Request) (*models.Session, error) {
	if lazy, ok := r.Context().Value(sessionKey{}).(*lazySession); ok {
		return lazy.get()
	}
	return m.load(r)
}

// Authenticated reports whether the request carries a valid session.
func (m *SessionManager) Authenticated(r *http.Request) bool {
	_, err := m.Current(r)
	return err == nil
}

// End deletes the request's session, if any, and clears the cookie. It returns the ended session id.
func (m *SessionManager) End(w http.ResponseWriter, r *http.Request) (string, error) {
	defer m.Clear(w)

	id, err := m.SessionID(r)
	if err != nil {
		return "", nil
	}
	if err := m.store.Delete(id); err != nil && !errors.Is(err, shared.ErrSessionNotFound) {
		return id, fmt.Errorf("failed to delete session: %w", err)
	}
	return id, nil
}

// Credential returns the access token of the session with the given id, or "" once the
// session is gone or expired.
func (m *SessionManager) Credential(id string) string {
	session, err := m.store.Lookup(id, m.now())
	if err != nil {
		return ""
	}
	return session.AccessToken()
}

// Codec exposes the cookie codec for short-lived signed values such as OAuth state.
func (m *SessionManager) Codec() *securecookie.SecureCookie {
	return m.codec
}

// Secure reports whether cookies are marked Secure.
func (m *SessionManager) Secure() bool {
	return m.secure
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotlight/internal/models"
	tu "github.com/desertthunder/spotlight/internal/testing"
	"golang.org/x/oauth2"
)

type fakeAuth struct {
	token *oauth2.Token
	err   error
	codes []string
}

func (f *fakeAuth) GetAuthURL(state string) string {
	return "https://accounts.example/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	f.codes = append(f.codes, code)
	return f.token, f.err
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestManager(store SessionStore) *SessionManager {
	return NewSessionManager(store, testSecret, SessionOptions{MaxAge: time.Hour, Logger: log.New(io.Discard)})
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// signIn runs /api/auth/signin and returns the state cookie and the state sent to the provider.
func signIn(t *testing.T, h *AuthHandler, callback string) (*http.Cookie, string) {
	t.Helper()
	target := "/api/auth/signin"
	if callback != "" {
		target += "?callbackUrl=" + url.QueryEscape(callback)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

	if rec.Code != http.StatusFound {
		t.Fatalf("expected 302 from signin, got %d", rec.Code)
	}
	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad redirect: %v", err)
	}
	cookie := cookieNamed(rec, stateCookieName)
	if cookie == nil {
		t.Fatal("expected state cookie")
	}
	return cookie, loc.Query().Get("state")
}

func TestAuthHandler(t *testing.T) {
	expiry := time.Now().Add(time.Hour)
	token := &oauth2.Token{AccessToken: "access-1", RefreshToken: "refresh-1", TokenType: "Bearer", Expiry: expiry}

	t.Run("Routes", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuth{}, newTestManager(tu.NewMockSessionStore()))
		if routes := h.Routes(); len(routes) != 1 || routes[0] != "/api/auth/" {
			t.Errorf("unexpected routes %v", routes)
		}
	})

	t.Run("Sign In Redirects To Provider", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuth{}, newTestManager(tu.NewMockSessionStore()))
		cookie, state := signIn(t, h, "/")

		if state == "" {
			t.Error("expected state in provider url")
		}
		if !cookie.HttpOnly || cookie.Path != AuthPrefix {
			t.Errorf("unexpected state cookie %+v", cookie)
		}
	})

	t.Run("Callback Starts Session", func(t *testing.T) {
		store := tu.NewMockSessionStore()
		auth := &fakeAuth{token: token}
		h := NewAuthHandler(auth, newTestManager(store),
			WithAuthLogger(log.New(io.Discard)),
			WithProfile(func(ctx context.Context, credential string) (string, string, error) {
				if credential != "access-1" {
					t.Errorf("profile called with %q", credential)
				}
				return "user-1", "Listener", nil
			}))

		cookie, state := signIn(t, h, "/playback/state")

		req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=abc&state="+url.QueryEscape(state), nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusFound {
			t.Fatalf("expected 302, got %d", rec.Code)
		}
		if loc := rec.Header().Get("Location"); loc != "/playback/state" {
			t.Errorf("expected redirect to callback url, got %q", loc)
		}
		if len(auth.codes) != 1 || auth.codes[0] != "abc" {
			t.Errorf("expected exchange of abc, got %v", auth.codes)
		}
		if cookieNamed(rec, DefaultCookieName) == nil {
			t.Fatal("expected session cookie")
		}

		stored, ok := store.Get("session-1")
		if !ok {
			t.Fatal("expected stored session")
		}
		if stored.AccessToken() != "access-1" || stored.RefreshToken() != "refresh-1" {
			t.Errorf("unexpected stored tokens %q %q", stored.AccessToken(), stored.RefreshToken())
		}
		if stored.Label() != "Listener" {
			t.Errorf("expected profile name, got %q", stored.Label())
		}
	})

	t.Run("Callback Failures", func(t *testing.T) {
		tests := []struct {
			name  string
			query func(state string) string
			auth  *fakeAuth
			state bool
		}{
			{
				name:  "state mismatch",
				query: func(string) string { return "code=abc&state=other" },
				auth:  &fakeAuth{token: token},
				state: true,
			},
			{
				name:  "missing state cookie",
				query: func(s string) string { return "code=abc&state=" + url.QueryEscape(s) },
				auth:  &fakeAuth{token: token},
			},
			{
				name:  "access denied",
				query: func(s string) string { return "error=access_denied&state=" + url.QueryEscape(s) },
				auth:  &fakeAuth{token: token},
				state: true,
			},
			{
				name:  "exchange failure",
				query: func(s string) string { return "code=abc&state=" + url.QueryEscape(s) },
				auth:  &fakeAuth{err: errors.New("bad code")},
				state: true,
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				store := tu.NewMockSessionStore()
				h := NewAuthHandler(tt.auth, newTestManager(store), WithAuthLogger(log.New(io.Discard)))
				cookie, state := signIn(t, h, "/")

				req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?"+tt.query(state), nil)
				if tt.state {
					req.AddCookie(cookie)
				}
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, req)

				if loc := rec.Header().Get("Location"); loc != "/login?error=Callback" {
					t.Errorf("expected login error redirect, got %q", loc)
				}
				if cookieNamed(rec, DefaultCookieName) != nil {
					t.Error("no session cookie expected")
				}
				if _, ok := store.Get("session-1"); ok {
					t.Error("no session expected")
				}
			})
		}
	})

	t.Run("Callback Rejects Foreign Return Target", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuth{token: token}, newTestManager(tu.NewMockSessionStore()), WithAuthLogger(log.New(io.Discard)))
		cookie, state := signIn(t, h, "//evil.example/")

		req := httptest.NewRequest(http.MethodGet, "/api/auth/callback?code=abc&state="+url.QueryEscape(state), nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if loc := rec.Header().Get("Location"); loc != "/" {
			t.Errorf("expected redirect home, got %q", loc)
		}
	})

	t.Run("Sign Out", func(t *testing.T) {
		store := tu.NewMockSessionStore()
		m := newTestManager(store)
		var ended string
		h := NewAuthHandler(&fakeAuth{}, m, WithSignOutHook(func(id string) { ended = id }), WithAuthLogger(log.New(io.Discard)))

		issue := httptest.NewRecorder()
		session, err := m.Start(issue, token)
		if err != nil {
			t.Fatalf("failed to start session: %v", err)
		}

		req := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
		req.AddCookie(cookieNamed(issue, DefaultCookieName))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/login" {
			t.Errorf("expected 303 to /login, got %d %q", rec.Code, rec.Header().Get("Location"))
		}
		if c := cookieNamed(rec, DefaultCookieName); c == nil || c.MaxAge >= 0 {
			t.Errorf("expected cleared cookie, got %+v", c)
		}
		if ended != session.ID() {
			t.Errorf("expected hook with %q, got %q", session.ID(), ended)
		}
		if stored, _ := store.Get(session.ID()); stored.DeletedAt() == nil {
			t.Error("expected session soft-deleted")
		}
	})

	t.Run("Sign Out Requires POST", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuth{}, newTestManager(tu.NewMockSessionStore()))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/signout", nil))

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})

	t.Run("Session Info", func(t *testing.T) {
		store := tu.NewMockSessionStore()
		m := newTestManager(store)
		h := NewAuthHandler(&fakeAuth{}, m)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/session", nil))

		var anon SessionInfo
		if err := json.NewDecoder(rec.Body).Decode(&anon); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if anon.Authenticated {
			t.Error("expected anonymous session info")
		}

		issue := httptest.NewRecorder()
		if _, err := m.Start(issue, token); err != nil {
			t.Fatalf("failed to start session: %v", err)
		}
		req := httptest.NewRequest(http.MethodGet, "/api/auth/session", nil)
		req.AddCookie(cookieNamed(issue, DefaultCookieName))
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		body := rec.Body.String()
		if strings.Contains(body, "access-1") {
			t.Error("session info must not expose the credential")
		}
		var info SessionInfo
		if err := json.Unmarshal([]byte(body), &info); err != nil {
			t.Fatalf("failed to decode: %v", err)
		}
		if !info.Authenticated || info.Expires == nil {
			t.Errorf("unexpected session info %+v", info)
		}
	})

	t.Run("Unknown Action", func(t *testing.T) {
		h := NewAuthHandler(&fakeAuth{}, newTestManager(tu.NewMockSessionStore()))
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/nope", nil))

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected 404, got %d", rec.Code)
		}
	})
}

func TestSessionManager(t *testing.T) {
	token := &oauth2.Token{AccessToken: "access-1", Expiry: time.Now().Add(time.Hour)}

	t.Run("Round Trip", func(t *testing.T) {
		store := tu.NewMockSessionStore()
		m := newTestManager(store)

		rec := httptest.NewRecorder()
		session, err := m.Start(rec, token)
		if err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookieNamed(rec, DefaultCookieName))

		got, err := m.Current(req)
		if err != nil {
			t.Fatalf("expected session, got %v", err)
		}
		if got.ID() != session.ID() {
			t.Errorf("expected %q, got %q", session.ID(), got.ID())
		}
	})

	t.Run("Empty Token", func(t *testing.T) {
		m := newTestManager(tu.NewMockSessionStore())
		if _, err := m.Start(httptest.NewRecorder(), &oauth2.Token{}); err == nil {
			t.Error("expected error for empty token")
		}
	})

	t.Run("Tampered Cookie", func(t *testing.T) {
		m := newTestManager(tu.NewMockSessionStore())
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: "session-1"})

		if m.Authenticated(req) {
			t.Error("unsigned cookie must not authenticate")
		}
	})

	t.Run("Other Secret", func(t *testing.T) {
		store := tu.NewMockSessionStore()
		rec := httptest.NewRecorder()
		if _, err := newTestManager(store).Start(rec, token); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		other := NewSessionManager(store, "another-secret-of-enough-length", SessionOptions{Logger: log.New(io.Discard)})
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookieNamed(rec, DefaultCookieName))
		if other.Authenticated(req) {
			t.Error("cookie signed with another secret must not authenticate")
		}
	})

	t.Run("Expired Session", func(t *testing.T) {
		store := tu.NewMockSessionStore()
		m := newTestManager(store)
		rec := httptest.NewRecorder()
		if _, err := m.Start(rec, &oauth2.Token{AccessToken: "old", Expiry: time.Now().Add(-time.Minute)}); err != nil {
			t.Fatalf("failed to start: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookieNamed(rec, DefaultCookieName))
		if m.Authenticated(req) {
			t.Error("expired session must be treated as absent")
		}
	})

	t.Run("Lazy Lookup", func(t *testing.T) {
		store := tu.NewMockSessionStore()
		m := newTestManager(store)
		rec := httptest.NewRecorder()
		if _, err := m.Start(rec, token); err != nil {
			t.Fatalf("failed to start: %v", err)
		}
		cookie := cookieNamed(rec, DefaultCookieName)

		var calls int
		h := m.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/static/app.js" {
				return
			}
			for range 3 {
				if _, err := m.Current(r); err == nil {
					calls++
				}
			}
		}))

		req := httptest.NewRequest(http.MethodGet, "/static/app.js", nil)
		req.AddCookie(cookie)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if store.Lookups() != 0 {
			t.Errorf("expected no lookup, got %d", store.Lookups())
		}

		req = httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if store.Lookups() != 1 || calls != 3 {
			t.Errorf("expected one lookup for three reads, got %d lookups, %d reads", store.Lookups(), calls)
		}
	})

	t.Run("Store Failure", func(t *testing.T) {
		store := tu.NewMockSessionStore()
		store.CreateErr = errors.New("disk full")
		m := newTestManager(store)
		rec := httptest.NewRecorder()

		if _, err := m.Start(rec, token); err == nil {
			t.Error("expected store error")
		}
		if cookieNamed(rec, DefaultCookieName) != nil {
			t.Error("no cookie expected when the session was not stored")
		}
	})

	t.Run("End Without Cookie", func(t *testing.T) {
		m := newTestManager(tu.NewMockSessionStore())
		id, err := m.End(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", nil))
		if id != "" || err != nil {
			t.Errorf("expected no-op, got %q %v", id, err)
		}
	})

	t.Run("Deleted Session", func(t *testing.T) {
		store := tu.NewMockSessionStore()
		m := newTestManager(store)
		rec := httptest.NewRecorder()
		session, err := m.Start(rec, token)
		if err != nil {
			t.Fatalf("failed to start: %v", err)
		}
		now := time.Now()
		deleted := models.NewSession(session.Sequence(), "access-1", "", time.Time{})
		deleted.SetID(session.ID())
		deleted.SetDeletedAt(&now)
		store.Put(deleted)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookieNamed(rec, DefaultCookieName))
		if m.Authenticated(req) {
			t.Error("deleted session must not authenticate")
		}
	})
}

package server

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	LoginPath = "/login"
	HomePath  = "/"
)

// PublicPaths are reachable without a session. Matching is by prefix.
var PublicPaths = []string{"/api/auth", "/favicon.ico", "/static", "/assets"}

// Outcome is what the guard does with a request.
type Outcome int

const (
	Pass Outcome = iota
	RedirectLogin
	RedirectHome
)

func (o Outcome) String() string {
	switch o {
	case RedirectLogin:
		return "redirect_login"
	case RedirectHome:
		return "redirect_home"
	default:
		return "pass"
	}
}

// Decision is the guard's verdict for one path. Location is set for redirects.
type Decision struct {
	Outcome  Outcome
	Location string
}

// Guard decides, per request path, whether to pass the request or redirect it.
type Guard struct {
	public []string
}

// NewGuard returns a guard with the given public prefixes, or [PublicPaths] when none are given.
func NewGuard(public ...string) *Guard {
	if len(public) == 0 {
		public = PublicPaths
	}
	return &Guard{public: public}
}

// IsPublic reports whether path starts with one of the guard's public prefixes.
func (g *Guard) IsPublic(path string) bool {
	for _, p := range g.public {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// Decide maps a path and an authentication check to a [Decision].
//
// authenticated is only called for non-public paths.
func (g *Guard) Decide(path string, authenticated func() bool) Decision {
	if g.IsPublic(path) {
		return Decision{Outcome: Pass}
	}

	ok := authenticated != nil && authenticated()
	switch {
	case !ok && path != LoginPath:
		return Decision{Outcome: RedirectLogin, Location: LoginURL(path)}
	case ok && path == LoginPath:
		return Decision{Outcome: RedirectHome, Location: HomePath}
	default:
		return Decision{Outcome: Pass}
	}
}

// Decide uses a guard with the default public paths.
func Decide(path string, authenticated func() bool) Decision {
	return NewGuard().Decide(path, authenticated)
}

// Middleware adapts the guard to the router. authenticated receives the request being guarded.
func (g *Guard) Middleware(authenticated func(*http.Request) bool) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := g.Decide(r.URL.Path, func() bool { return authenticated(r) })
			switch d.Outcome {
			case RedirectLogin:
				http.Redirect(w, r, d.Location, http.StatusTemporaryRedirect)
			case RedirectHome:
				http.Redirect(w, r, d.Location, http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// LoginURL builds the login location carrying the original path in from.
// Slashes stay literal; other reserved characters are escaped.
func LoginURL(from string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(from), "%2F", "/")
	return LoginPath + "?from=" + escaped
}

// SafeReturnTo returns target when it is a local absolute path, otherwise "/".
func SafeReturnTo(target string) string {
	if target == "" || !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return HomePath
	}
	u, err := url.Parse(target)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return HomePath
	}
	return target
}

package server

import (
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/desertthunder/spotlight/internal/shared"
	"golang.org/x/oauth2"
)

// CallbackPath is where the provider redirects after authorization.
const CallbackPath = AuthPrefix + "callback"

// OAuthResult contains the result of a terminal sign-in.
type OAuthResult struct {
	Token *oauth2.Token
	err   error
}

func (o *OAuthResult) Error() error {
	return o.err
}

// OAuthHandler receives a single authorization callback for the CLI login command.
//
// Unlike [AuthHandler] it keeps no cookies: the state is known up front and the token
// is handed to the caller through [OAuthHandler.Result].
type OAuthHandler struct {
	auth       Authenticator
	state      string
	resultChan chan OAuthResult
	once       sync.Once
	mu         sync.Mutex
	handled    bool
}

// NewOAuthHandler creates a handler expecting the given state token.
func NewOAuthHandler(auth Authenticator, state string) *OAuthHandler {
	return &OAuthHandler{
		auth:       auth,
		state:      state,
		resultChan: make(chan OAuthResult, 1),
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *OAuthHandler) Routes() []string {
	return []string{CallbackPath}
}

var callbackPage = template.Must(template.New("callback").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>spotlight</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #121212; color: #fff; }
        .card { text-align: center; background: #181818; padding: 2rem; border-radius: 8px; }
        h1 { color: {{if .OK}}#1DB954{{else}}#e22134{{end}}; margin: 0 0 1rem 0; }
        p { color: #b3b3b3; margin: 0; }
    </style>
</head>
<body>
    <div class="card">
        <h1>{{.Title}}</h1>
        <p>{{.Message}}</p>
    </div>
</body>
</html>
`))

func (h *OAuthHandler) render(w http.ResponseWriter, status int, ok bool, title, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	callbackPage.Execute(w, map[string]any{"OK": ok, "Title": title, "Message": message})
}

// ServeHTTP validates state, exchanges the code and publishes the result.
//
// Only the first callback is processed.
func (h *OAuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	if h.handled {
		h.mu.Unlock()
		h.render(w, http.StatusBadRequest, false, "Already signed in", "This callback was already processed.")
		return
	}
	h.handled = true
	h.mu.Unlock()

	q := r.URL.Query()
	if q.Get("state") != h.state {
		h.Send(OAuthResult{err: shared.ErrInvalidState})
		h.render(w, http.StatusBadRequest, false, "Sign-in failed", "Invalid state parameter.")
		return
	}

	code := q.Get("code")
	if code == "" {
		err := fmt.Errorf("%w: %s - %s", shared.ErrAuthFailed, q.Get("error"), q.Get("error_description"))
		h.Send(OAuthResult{err: err})
		h.render(w, http.StatusBadRequest, false, "Sign-in failed", "Authorization was denied.")
		return
	}

	token, err := h.auth.Exchange(r.Context(), code)
	if err != nil {
		h.Send(OAuthResult{err: err})
		h.render(w, http.StatusInternalServerError, false, "Sign-in failed", "Token exchange failed.")
		return
	}

	h.Send(OAuthResult{Token: token})
	h.render(w, http.StatusOK, true, "✓ Signed in", "You can close this window and return to the terminal.")
}

// Send sends the result through the channel (only once).
func (h *OAuthHandler) Send(result OAuthResult) {
	h.once.Do(func() {
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel.
//
// Channel will receive exactly one result and then be closed.
func (h *OAuthHandler) Result() <-chan OAuthResult {
	return h.resultChan
}

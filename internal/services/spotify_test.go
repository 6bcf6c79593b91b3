package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotlight/internal/shared"
	tu "github.com/desertthunder/spotlight/internal/testing"
)

var testCredentials = map[string]string{
	"client_id":     "test_client_id",
	"client_secret": "test_client_secret",
	"redirect_uri":  "http://127.0.0.1:3000/api/auth/callback",
}

func newTestService(t *testing.T, handler http.HandlerFunc, opts ...Option) (*SpotifyService, *bytes.Buffer) {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	var buf bytes.Buffer
	opts = append([]Option{WithBaseURL(server.URL), WithLogger(log.New(&buf))}, opts...)
	srv, err := NewSpotifyService(testCredentials, opts...)
	if err != nil {
		t.Fatalf("failed to create service: %v", err)
	}
	return srv, &buf
}

func TestSpotifyService(t *testing.T) {
	t.Run("NewSpotifyService", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials)
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Name() != "Spotify" {
				t.Errorf("expected service name 'Spotify', got %s", srv.Name())
			}

			if srv.Market() != DefaultMarket {
				t.Errorf("expected default market %s, got %s", DefaultMarket, srv.Market())
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_secret": "test_client_secret"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			_, err := NewSpotifyService(map[string]string{"client_id": "test_client_id"})
			if !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Default Redirect URI", func(t *testing.T) {
			srv, err := NewSpotifyService(map[string]string{
				"client_id":     "test_client_id",
				"client_secret": "test_client_secret",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.config.RedirectURL != "http://127.0.0.1:3000/api/auth/callback" {
				t.Errorf("expected default redirect URI, got %s", srv.config.RedirectURL)
			}
		})

		t.Run("Options", func(t *testing.T) {
			srv, err := NewSpotifyService(testCredentials, WithMarket("US"), WithScopes([]string{"user-top-read"}))
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			if srv.Market() != "US" {
				t.Errorf("expected market US, got %s", srv.Market())
			}

			if len(srv.OAuthConfig().Scopes) != 1 {
				t.Errorf("expected configured scopes, got %v", srv.OAuthConfig().Scopes)
			}
		})
	})

	t.Run("Get AuthURL", func(t *testing.T) {
		srv, err := NewSpotifyService(testCredentials)
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		authURL := srv.GetAuthURL("test_state")

		if !strings.Contains(authURL, "accounts.spotify.com") {
			t.Error("auth URL should contain Spotify domain")
		}
		if !strings.Contains(authURL, "test_client_id") {
			t.Error("auth URL should contain client_id")
		}
		if !strings.Contains(authURL, "test_state") {
			t.Error("auth URL should contain state")
		}
		if !strings.Contains(authURL, "user-top-read") {
			t.Error("auth URL should request the top-read scope")
		}
	})
}

func TestClampLimit(t *testing.T) {
	tt := []struct {
		in, want int
	}{
		{0, 10},
		{-3, 10},
		{1, 1},
		{10, 10},
		{50, 50},
		{51, 50},
	}

	for _, tc := range tt {
		if got := ClampLimit(tc.in); got != tc.want {
			t.Errorf("ClampLimit(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestTopArtists(t *testing.T) {
	t.Run("Order And Auth Header", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/me/top/artists" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("limit"); got != "10" {
				t.Errorf("expected limit 10, got %s", got)
			}
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("expected bearer credential, got %q", got)
			}
			io.WriteString(w, `{"items":[
				{"id":"a1","name":"First","images":[{"url":"big"},{"url":"medium"}]},
				{"id":"a2","name":"Second","images":[]}
			]}`)
		})

		artists := srv.TopArtists(context.Background(), "tok", 0)
		if len(artists) != 2 {
			t.Fatalf("expected 2 artists, got %d", len(artists))
		}
		if artists[0].ID != "a1" || artists[1].ID != "a2" {
			t.Errorf("artists should keep API order, got %v", artists)
		}
		if artists[0].Thumbnail() != "medium" {
			t.Errorf("expected medium thumbnail, got %q", artists[0].Thumbnail())
		}
	})

	t.Run("Soft Fail", func(t *testing.T) {
		tt := []struct {
			name    string
			handler http.HandlerFunc
		}{
			{
				name: "unauthorized",
				handler: func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusUnauthorized)
					io.WriteString(w, `{"error":{"status":401,"message":"The access token expired"}}`)
				},
			},
			{
				name: "server error",
				handler: func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusInternalServerError)
				},
			},
			{
				name: "bad json",
				handler: func(w http.ResponseWriter, r *http.Request) {
					io.WriteString(w, `{"items":`)
				},
			},
		}

		for _, tc := range tt {
			t.Run(tc.name, func(t *testing.T) {
				srv, logs := newTestService(t, tc.handler)

				artists := srv.TopArtists(context.Background(), "tok", 10)
				if artists == nil {
					t.Fatal("soft-fail form must return a non-nil slice")
				}
				if len(artists) != 0 {
					t.Errorf("expected empty result, got %v", artists)
				}
				if !strings.Contains(logs.String(), "top artists unavailable") {
					t.Errorf("expected failure to be logged, got %q", logs.String())
				}

				if _, err := srv.FetchTopArtists(context.Background(), "tok", 10); !errors.Is(err, shared.ErrAPIRequest) {
					t.Errorf("explicit form should wrap ErrAPIRequest, got %v", err)
				}
			})
		}
	})

	t.Run("Transport Error", func(t *testing.T) {
		client := &http.Client{Transport: tu.NewMockRoundTripper(nil, errors.New("connection refused"))}
		var buf bytes.Buffer
		srv, err := NewSpotifyService(testCredentials, WithHTTPClient(client), WithLogger(log.New(&buf)))
		if err != nil {
			t.Fatalf("failed to create service: %v", err)
		}

		if artists := srv.TopArtists(context.Background(), "tok", 10); artists == nil || len(artists) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", artists)
		}
	})

	t.Run("Missing Credential", func(t *testing.T) {
		var calls atomic.Int32
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
		})

		if _, err := srv.FetchTopArtists(context.Background(), "", 10); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
		if calls.Load() != 0 {
			t.Error("no request should be made without a credential")
		}
	})
}

func TestTopTracks(t *testing.T) {
	t.Run("Market And Mapping", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/artists/a1/top-tracks" {
				t.Errorf("unexpected path %s", r.URL.Path)
			}
			if got := r.URL.Query().Get("market"); got != "FR" {
				t.Errorf("expected market FR, got %s", got)
			}
			io.WriteString(w, `{"tracks":[
				{"id":"t1","name":"Hit","uri":"spotify:track:t1","external_urls":{"spotify":"https://open.spotify.com/track/t1"}},
				{"id":"t2","name":"B-side","uri":"spotify:track:t2"}
			]}`)
		})

		tracks := srv.TopTracks(context.Background(), "a1", "tok")
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}
		if tracks[0].URI != "spotify:track:t1" || tracks[0].ExternalURL != "https://open.spotify.com/track/t1" {
			t.Errorf("unexpected first track %+v", tracks[0])
		}
	})

	t.Run("Soft Fail", func(t *testing.T) {
		srv, logs := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		})

		tracks := srv.TopTracks(context.Background(), "a1", "tok")
		if tracks == nil || len(tracks) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", tracks)
		}
		if !strings.Contains(logs.String(), "top tracks unavailable") {
			t.Errorf("expected failure to be logged, got %q", logs.String())
		}
	})

	t.Run("Empty Artist", func(t *testing.T) {
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {})
		if _, err := srv.FetchTopTracks(context.Background(), "", "tok"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})
}

func TestPlaybackCommands(t *testing.T) {
	type recorded struct {
		method string
		path   string
		query  string
		body   map[string]any
	}

	record := func(t *testing.T, status int, reply string) (*SpotifyService, *[]recorded) {
		t.Helper()
		var calls []recorded
		srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
			rec := recorded{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery}
			if data, _ := io.ReadAll(r.Body); len(data) > 0 {
				if err := json.Unmarshal(data, &rec.body); err != nil {
					t.Errorf("request body is not JSON: %v", err)
				}
			}
			calls = append(calls, rec)
			w.WriteHeader(status)
			io.WriteString(w, reply)
		})
		return srv, &calls
	}

	ctx := context.Background()

	t.Run("TransferPlayback", func(t *testing.T) {
		srv, calls := record(t, http.StatusNoContent, "")
		if err := srv.TransferPlayback(ctx, "tok", "dev-1", false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		c := (*calls)[0]
		if c.method != http.MethodPut || c.path != "/me/player" {
			t.Errorf("unexpected request %s %s", c.method, c.path)
		}
		ids, _ := c.body["device_ids"].([]any)
		if len(ids) != 1 || ids[0] != "dev-1" {
			t.Errorf("expected device_ids [dev-1], got %v", c.body["device_ids"])
		}
		if c.body["play"] != false {
			t.Errorf("expected play false, got %v", c.body["play"])
		}
	})

	t.Run("Play", func(t *testing.T) {
		srv, calls := record(t, http.StatusNoContent, "")
		if err := srv.Play(ctx, "tok", "dev-1", []string{"spotify:track:t1"}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		c := (*calls)[0]
		if c.path != "/me/player/play" || c.query != "device_id=dev-1" {
			t.Errorf("unexpected request %s?%s", c.path, c.query)
		}
		uris, _ := c.body["uris"].([]any)
		if len(uris) != 1 || uris[0] != "spotify:track:t1" {
			t.Errorf("expected uris [spotify:track:t1], got %v", c.body["uris"])
		}
	})

	t.Run("Resume Sends Empty Body", func(t *testing.T) {
		srv, calls := record(t, http.StatusNoContent, "")
		if err := srv.Resume(ctx, "tok", "dev-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		c := (*calls)[0]
		if c.path != "/me/player/play" || c.query != "device_id=dev-1" {
			t.Errorf("unexpected request %s?%s", c.path, c.query)
		}
		if _, ok := c.body["uris"]; ok {
			t.Error("resume must not send uris")
		}
	})

	t.Run("Pause", func(t *testing.T) {
		srv, calls := record(t, http.StatusNoContent, "")
		if err := srv.Pause(ctx, "tok", "dev-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		c := (*calls)[0]
		if c.method != http.MethodPut || c.path != "/me/player/pause" || c.query != "device_id=dev-1" {
			t.Errorf("unexpected request %s %s?%s", c.method, c.path, c.query)
		}
	})

	t.Run("Command Failure", func(t *testing.T) {
		srv, _ := record(t, http.StatusForbidden, `{"error":{"status":403,"message":"Player command failed: Restriction violated"}}`)
		err := srv.Pause(ctx, "tok", "dev-1")

		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected APIError, got %v", err)
		}
		if apiErr.Status != http.StatusForbidden || !strings.Contains(apiErr.Message, "Restriction") {
			t.Errorf("unexpected APIError %+v", apiErr)
		}
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Error("APIError should match ErrAPIRequest")
		}
	})

	t.Run("PlaybackState", func(t *testing.T) {
		srv, _ := record(t, http.StatusOK, `{"is_playing":false,"progress_ms":1200,"device":{"id":"dev-1"}}`)
		state, err := srv.PlaybackState(ctx, "tok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state == nil || state.IsPlaying || state.DeviceID != "dev-1" || state.ProgressMS != 1200 {
			t.Errorf("unexpected state %+v", state)
		}
	})

	t.Run("PlaybackState No Content", func(t *testing.T) {
		srv, _ := record(t, http.StatusNoContent, "")
		state, err := srv.PlaybackState(ctx, "tok")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if state != nil {
			t.Errorf("expected nil state on 204, got %+v", state)
		}
	})
}

func TestUserProfile(t *testing.T) {
	srv, _ := newTestService(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		io.WriteString(w, `{"id":"user-1","display_name":"Jane","product":"premium"}`)
	})

	user, err := srv.UserProfile(context.Background(), "tok")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.ID != "user-1" || user.DisplayName != "Jane" {
		t.Errorf("unexpected user %+v", user)
	}
}

func TestBuildURL(t *testing.T) {
	if got := BuildURL("/me/player/play", nil); got != "/me/player/play" {
		t.Errorf("expected path unchanged, got %s", got)
	}
	if got := BuildURL("/me/player/play", map[string]string{"device_id": "a b"}); got != "/me/player/play?device_id=a+b" {
		t.Errorf("unexpected url %s", got)
	}
}

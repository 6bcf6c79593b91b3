// Spotify Web API implementation of [Catalog] and [PlayerCommands]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spotlight/internal/models"
	"github.com/desertthunder/spotlight/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	DefaultTopArtistsLimit = 10
	MaxTopArtistsLimit     = 50
	DefaultMarket          = "FR"
)

// DefaultScopes is requested when no scopes are configured.
var DefaultScopes = []string{
	"user-top-read",
	"user-read-email",
	"user-read-private",
	"streaming",
	"user-read-playback-state",
	"user-modify-playback-state",
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Country     string         `json:"country"`
	Product     string         `json:"product"` // premium, free, etc.
	Images      []SpotifyImage `json:"images"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	DurationMS   int             `json:"duration_ms"`
	Popularity   int             `json:"popularity"`
	URI          string          `json:"uri"`
	ExternalURLs externalURLs    `json:"external_urls"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Genres []string       `json:"genres"`
	Images []SpotifyImage `json:"images"`
	URI    string         `json:"uri"`
}

// SpotifyDevice represents a playback device.
type SpotifyDevice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"`
	IsActive bool   `json:"is_active"`
}

// SpotifyPlaybackState represents the response of GET /me/player.
type SpotifyPlaybackState struct {
	Device     SpotifyDevice `json:"device"`
	ProgressMS int           `json:"progress_ms"`
	IsPlaying  bool          `json:"is_playing"`
	Item       *SpotifyTrack `json:"item"`
}

type topArtistsResponse struct {
	Items []SpotifyArtist `json:"items"`
}

type topTracksResponse struct {
	Tracks []SpotifyTrack `json:"tracks"`
}

// PlayOptions configures a play request.
type PlayOptions struct {
	URIs []string `json:"uris,omitempty"`
}

type transferRequest struct {
	DeviceIDs []string `json:"device_ids"`
	Play      bool     `json:"play"`
}

// APIError represents a Spotify API error response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("spotify API error: status %d", e.Status)
	}
	return fmt.Sprintf("spotify API error %d: %s", e.Status, e.Message)
}

// Unwrap lets callers match API failures with [shared.ErrAPIRequest].
func (e *APIError) Unwrap() error { return shared.ErrAPIRequest }

// Option configures a [SpotifyService].
type Option func(*SpotifyService)

// WithBaseURL points the service at a different API root, e.g. an [httptest.Server].
func WithBaseURL(baseURL string) Option {
	return func(s *SpotifyService) { s.baseURL = strings.TrimSuffix(baseURL, "/") }
}

// WithHTTPClient replaces the HTTP client used for API calls.
func WithHTTPClient(c *http.Client) Option {
	return func(s *SpotifyService) {
		if c != nil {
			s.httpClient = c
		}
	}
}

// WithMarket sets the market used for top-tracks lookups.
func WithMarket(market string) Option {
	return func(s *SpotifyService) {
		if market != "" {
			s.market = market
		}
	}
}

// WithRateLimit caps outbound requests per second. Zero or negative disables limiting.
func WithRateLimit(perSecond float64) Option {
	return func(s *SpotifyService) {
		if perSecond > 0 {
			s.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		} else {
			s.limiter = rate.NewLimiter(rate.Inf, 1)
		}
	}
}

// WithScopes replaces the requested OAuth scopes.
func WithScopes(scopes []string) Option {
	return func(s *SpotifyService) {
		if len(scopes) > 0 {
			s.config.Scopes = scopes
		}
	}
}

// WithLogger sets the logger used by the soft-fail catalog calls.
func WithLogger(l *log.Logger) Option {
	return func(s *SpotifyService) {
		if l != nil {
			s.logger = l
		}
	}
}

// SpotifyService implements [Catalog] and [PlayerCommands] for the Spotify Web API.
// Uses [oauth2] for the authorization code flow; API calls take the bearer credential explicitly.
type SpotifyService struct {
	config     *oauth2.Config
	httpClient *http.Client
	baseURL    string
	market     string
	limiter    *rate.Limiter
	logger     *log.Logger
}

// NewSpotifyService creates a new Spotify service with the given OAuth2 credentials.
func NewSpotifyService(credentials map[string]string, opts ...Option) (*SpotifyService, error) {
	clientID, ok := credentials["client_id"]
	if !ok || clientID == "" {
		return nil, fmt.Errorf("%w: missing client_id", shared.ErrMissingCredentials)
	}

	clientSecret, ok := credentials["client_secret"]
	if !ok || clientSecret == "" {
		return nil, fmt.Errorf("%w: missing client_secret", shared.ErrMissingCredentials)
	}

	redirectURI, ok := credentials["redirect_uri"]
	if !ok || redirectURI == "" {
		redirectURI = "http://127.0.0.1:3000/api/auth/callback"
	}

	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       append([]string(nil), DefaultScopes...),
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}

	s := &SpotifyService{
		config:     config,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    spotifyBaseURL,
		market:     DefaultMarket,
		limiter:    rate.NewLimiter(rate.Inf, 1),
		logger:     shared.NewLogger(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *SpotifyService) Name() string {
	return "Spotify"
}

// Market returns the market used for top-tracks lookups.
func (s *SpotifyService) Market() string {
	return s.market
}

// OAuthConfig returns the authorization code flow configuration.
func (s *SpotifyService) OAuthConfig() *oauth2.Config {
	return s.config
}

// GetAuthURL returns the OAuth2 authorization URL for user login.
func (s *SpotifyService) GetAuthURL(state string) string {
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for a token.
func (s *SpotifyService) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := s.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to exchange auth code: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// doRequest performs an authenticated HTTP request to the Spotify API.
//
// A 204 response leaves result untouched and reports found=false.
func (s *SpotifyService) doRequest(ctx context.Context, credential, method, endpoint string, body, result any) (found bool, err error) {
	if credential == "" {
		return false, shared.ErrNotAuthenticated
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("rate limiter: %w", err)
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+credential)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return false, nil
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, decodeAPIError(resp)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("%w: failed to decode response: %v", shared.ErrAPIRequest, err)
		}
	}

	return true, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var payload struct {
		Error struct {
			Status  int    `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error.Message != "" {
		apiErr.Message = payload.Error.Message
	}
	return apiErr
}

// BuildURL builds a URL with query parameters.
func BuildURL(path string, params map[string]string) string {
	if len(params) == 0 {
		return path
	}

	u, _ := url.Parse(path)
	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// UserProfile retrieves the profile of the credential holder.
func (s *SpotifyService) UserProfile(ctx context.Context, credential string) (*SpotifyUser, error) {
	var user SpotifyUser
	if _, err := s.doRequest(ctx, credential, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ClampLimit applies the default and the API maximum to a top artists limit.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultTopArtistsLimit
	case limit > MaxTopArtistsLimit:
		return MaxTopArtistsLimit
	default:
		return limit
	}
}

// FetchTopArtists retrieves the user's top artists.
func (s *SpotifyService) FetchTopArtists(ctx context.Context, credential string, limit int) ([]models.Artist, error) {
	endpoint := BuildURL("/me/top/artists", map[string]string{"limit": fmt.Sprint(ClampLimit(limit))})

	var response topArtistsResponse
	if _, err := s.doRequest(ctx, credential, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch top artists: %w", err)
	}

	artists := make([]models.Artist, 0, len(response.Items))
	for _, a := range response.Items {
		artists = append(artists, toArtist(a))
	}
	return artists, nil
}

// FetchTopTracks retrieves an artist's top tracks for the configured market.
func (s *SpotifyService) FetchTopTracks(ctx context.Context, artistID, credential string) ([]models.TrackRef, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id is required", shared.ErrInvalidArgument)
	}

	endpoint := BuildURL("/artists/"+url.PathEscape(artistID)+"/top-tracks", map[string]string{"market": s.market})

	var response topTracksResponse
	if _, err := s.doRequest(ctx, credential, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, fmt.Errorf("failed to fetch top tracks for %s: %w", artistID, err)
	}

	tracks := make([]models.TrackRef, 0, len(response.Tracks))
	for _, t := range response.Tracks {
		tracks = append(tracks, toTrackRef(t))
	}
	return tracks, nil
}

// TopArtists is the soft-fail form of [SpotifyService.FetchTopArtists].
func (s *SpotifyService) TopArtists(ctx context.Context, credential string, limit int) []models.Artist {
	artists, err := s.FetchTopArtists(ctx, credential, limit)
	if err != nil {
		s.logger.Error("top artists unavailable", "error", err)
		return []models.Artist{}
	}
	return artists
}

// TopTracks is the soft-fail form of [SpotifyService.FetchTopTracks].
func (s *SpotifyService) TopTracks(ctx context.Context, artistID, credential string) []models.TrackRef {
	tracks, err := s.FetchTopTracks(ctx, artistID, credential)
	if err != nil {
		s.logger.Error("top tracks unavailable", "artist", artistID, "error", err)
		return []models.TrackRef{}
	}
	return tracks
}

// TransferPlayback makes deviceID the account's active device.
func (s *SpotifyService) TransferPlayback(ctx context.Context, credential, deviceID string, play bool) error {
	body := transferRequest{DeviceIDs: []string{deviceID}, Play: play}
	if _, err := s.doRequest(ctx, credential, http.MethodPut, "/me/player", body, nil); err != nil {
		return fmt.Errorf("failed to transfer playback to %s: %w", deviceID, err)
	}
	return nil
}

// Play starts the given track URIs on deviceID.
func (s *SpotifyService) Play(ctx context.Context, credential, deviceID string, uris []string) error {
	endpoint := BuildURL("/me/player/play", map[string]string{"device_id": deviceID})
	if _, err := s.doRequest(ctx, credential, http.MethodPut, endpoint, PlayOptions{URIs: uris}, nil); err != nil {
		return fmt.Errorf("failed to start playback: %w", err)
	}
	return nil
}

// Resume continues the current playback on deviceID.
func (s *SpotifyService) Resume(ctx context.Context, credential, deviceID string) error {
	endpoint := BuildURL("/me/player/play", map[string]string{"device_id": deviceID})
	if _, err := s.doRequest(ctx, credential, http.MethodPut, endpoint, PlayOptions{}, nil); err != nil {
		return fmt.Errorf("failed to resume playback: %w", err)
	}
	return nil
}

// Pause pauses playback on deviceID.
func (s *SpotifyService) Pause(ctx context.Context, credential, deviceID string) error {
	endpoint := BuildURL("/me/player/pause", map[string]string{"device_id": deviceID})
	if _, err := s.doRequest(ctx, credential, http.MethodPut, endpoint, nil, nil); err != nil {
		return fmt.Errorf("failed to pause playback: %w", err)
	}
	return nil
}

// PlaybackState retrieves the account's playback state, or nil when nothing is active.
func (s *SpotifyService) PlaybackState(ctx context.Context, credential string) (*models.PlayerState, error) {
	var state SpotifyPlaybackState
	found, err := s.doRequest(ctx, credential, http.MethodGet, "/me/player", nil, &state)
	if err != nil {
		return nil, fmt.Errorf("failed to get playback state: %w", err)
	}
	if !found {
		return nil, nil
	}
	return &models.PlayerState{
		IsPlaying:  state.IsPlaying,
		DeviceID:   state.Device.ID,
		ProgressMS: state.ProgressMS,
	}, nil
}

func toArtist(a SpotifyArtist) models.Artist {
	images := make([]models.Image, 0, len(a.Images))
	for _, img := range a.Images {
		images = append(images, models.Image{URL: img.URL, Width: img.Width, Height: img.Height})
	}
	return models.Artist{ID: a.ID, Name: a.Name, Images: images}
}

func toTrackRef(t SpotifyTrack) models.TrackRef {
	return models.TrackRef{ID: t.ID, Name: t.Name, URI: t.URI, ExternalURL: t.ExternalURLs.Spotify}
}

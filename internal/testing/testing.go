// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/spotlight/internal/models"
)

// MockCatalog is a test double for [services.Catalog].
//
// Artists and Tracks are returned as-is; Err, when set, is returned instead.
// Every call is counted so tests can assert that no request was made.
type MockCatalog struct {
	mu          sync.Mutex
	Artists     []models.Artist
	Tracks      map[string][]models.TrackRef
	Err         error
	artistCalls int
	trackCalls  int
	credentials []string
}

func (m *MockCatalog) FetchTopArtists(ctx context.Context, credential string, limit int) ([]models.Artist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.artistCalls++
	m.credentials = append(m.credentials, credential)
	if m.Err != nil {
		return nil, m.Err
	}
	if limit > 0 && limit < len(m.Artists) {
		return m.Artists[:limit], nil
	}
	return m.Artists, nil
}

func (m *MockCatalog) FetchTopTracks(ctx context.Context, artistID, credential string) ([]models.TrackRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trackCalls++
	m.credentials = append(m.credentials, credential)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Tracks[artistID], nil
}

func (m *MockCatalog) Name() string { return "mock" }

// TopArtists is the soft form of FetchTopArtists: errors yield an empty slice.
func (m *MockCatalog) TopArtists(ctx context.Context, credential string, limit int) []models.Artist {
	artists, err := m.FetchTopArtists(ctx, credential, limit)
	if err != nil {
		return []models.Artist{}
	}
	return artists
}

// Credentials returns the credentials seen by the catalog, in call order.
func (m *MockCatalog) Credentials() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.credentials...)
}

// ArtistCalls returns how many times FetchTopArtists was called.
func (m *MockCatalog) ArtistCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.artistCalls
}

// TrackCalls returns how many times FetchTopTracks was called.
func (m *MockCatalog) TrackCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.trackCalls
}

// MockCommands is a test double for [services.PlayerCommands] that records every call as
// "<command> <device>" and fails the commands listed in Fail.
type MockCommands struct {
	mu       sync.Mutex
	calls    []string
	Fail     map[string]error
	State    *models.PlayerState
	StateErr error
}

func (m *MockCommands) record(name, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, fmt.Sprintf("%s %s", name, deviceID))
	return m.Fail[name]
}

func (m *MockCommands) TransferPlayback(ctx context.Context, credential, deviceID string, play bool) error {
	return m.record("transfer", deviceID)
}

func (m *MockCommands) Play(ctx context.Context, credential, deviceID string, uris []string) error {
	return m.record("play", deviceID)
}

func (m *MockCommands) Pause(ctx context.Context, credential, deviceID string) error {
	return m.record("pause", deviceID)
}

func (m *MockCommands) Resume(ctx context.Context, credential, deviceID string) error {
	return m.record("resume", deviceID)
}

func (m *MockCommands) PlaybackState(ctx context.Context, credential string) (*models.PlayerState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, "state")
	return m.State, m.StateErr
}

// Calls returns a copy of the recorded calls.
func (m *MockCommands) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// Reset forgets recorded calls.
func (m *MockCommands) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// MockSessionStore keeps sessions in memory. Ids are assigned as "session-<n>".
type MockSessionStore struct {
	mu        sync.Mutex
	sessions  map[string]*models.Session
	lookups   int
	CreateErr error
}

func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{sessions: make(map[string]*models.Session)}
}

func (m *MockSessionStore) Create(session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	seq := len(m.sessions) + 1
	session.SetID(fmt.Sprintf("session-%d", seq))
	session.SetSequence(seq)
	m.sessions[session.ID()] = session
	return nil
}

func (m *MockSessionStore) Update(session *models.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[session.ID()]; !ok {
		return fmt.Errorf("session not found: %s", session.ID())
	}
	m.sessions[session.ID()] = session
	return nil
}

func (m *MockSessionStore) Lookup(id string, now time.Time) (*models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	s, ok := m.sessions[id]
	if !ok || !s.Valid(now) {
		return nil, fmt.Errorf("session not usable: %s", id)
	}
	return s, nil
}

func (m *MockSessionStore) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("session not found: %s", id)
	}
	now := time.Now()
	s.SetDeletedAt(&now)
	return nil
}

// Put stores session under its current id.
func (m *MockSessionStore) Put(session *models.Session) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID()] = session
}

// Get returns the stored session, deleted or not.
func (m *MockSessionStore) Get(id string) (*models.Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	return s, ok
}

// Lookups returns how many times Lookup was called.
func (m *MockSessionStore) Lookups() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookups
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// LimitedWriter fails after a certain number of writes
type LimitedWriter struct {
	maxWrites int
	written   int
	target    io.Writer
}

func (l *LimitedWriter) Write(p []byte) (n int, err error) {
	if l.written >= l.maxWrites {
		return 0, errors.New("write limit exceeded")
	}
	l.written++
	return l.target.Write(p)
}

func NewLimitedWriter(maxWrites, written int, target io.Writer) LimitedWriter {
	return LimitedWriter{maxWrites: maxWrites, written: written, target: target}
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}

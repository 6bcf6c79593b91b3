package playback

import "github.com/desertthunder/spotlight/internal/models"

// Phase names the controller's lifecycle stage.
type Phase string

const (
	PhaseUninitialized    Phase = "uninitialized"
	PhaseSDKLoading       Phase = "sdk_loading"
	PhaseSDKReady         Phase = "sdk_ready"
	PhaseDeviceConnecting Phase = "device_connecting"
	PhaseDeviceReady      Phase = "device_ready"
)

// Activity is the playback sub-state while the device is ready.
type Activity string

const (
	ActivityIdle         Activity = "idle"
	ActivityTrackLoading Activity = "track_loading"
	ActivityPlaying      Activity = "playing"
	ActivityPaused       Activity = "paused"
)

// state is sealed: only the variants below implement it.
type state interface {
	phase() Phase
}

type uninitialized struct{}

type sdkLoading struct{}

type sdkReady struct {
	lastError string
}

type deviceConnecting struct {
	lastError string
}

type deviceReady struct {
	device        models.Device
	activity      Activity
	nowPlaying    *models.NowPlaying
	loadingArtist string
	transferred   bool
	externalURL   string
}

func (uninitialized) phase() Phase    { return PhaseUninitialized }
func (sdkLoading) phase() Phase       { return PhaseSDKLoading }
func (sdkReady) phase() Phase         { return PhaseSDKReady }
func (deviceConnecting) phase() Phase { return PhaseDeviceConnecting }
func (deviceReady) phase() Phase      { return PhaseDeviceReady }

// finish ends the loading indicator if it still belongs to artistID.
// A newer selection keeps its own indicator.
func (r *deviceReady) finish(artistID string, next Activity) {
	if r.loadingArtist != artistID {
		return
	}
	r.loadingArtist = ""
	r.activity = next
}

// settle maps the activity saved before a failed selection back to a resting one.
func settle(prev Activity, now *models.NowPlaying) Activity {
	if prev != ActivityTrackLoading {
		return prev
	}
	if now != nil {
		return ActivityPlaying
	}
	return ActivityIdle
}

// Snapshot is an immutable, JSON-serializable view of a controller.
type Snapshot struct {
	Phase           Phase              `json:"phase"`
	Activity        Activity           `json:"activity,omitempty"`
	DeviceID        string             `json:"device_id,omitempty"`
	DeviceReady     bool               `json:"device_ready"`
	NowPlaying      *models.NowPlaying `json:"now_playing,omitempty"`
	LoadingArtistID string             `json:"loading_artist_id,omitempty"`
	ExternalURL     string             `json:"external_url,omitempty"`
	LastError       string             `json:"last_error,omitempty"`
}

// Playing reports whether a track is playing or paused.
func (s Snapshot) Playing() bool {
	return s.Activity == ActivityPlaying || s.Activity == ActivityPaused
}

func snapshotOf(st state) Snapshot {
	snap := Snapshot{Phase: st.phase()}
	switch v := st.(type) {
	case sdkReady:
		snap.LastError = v.lastError
	case deviceConnecting:
		snap.LastError = v.lastError
	case deviceReady:
		snap.Activity = v.activity
		snap.DeviceID = v.device.ID
		snap.DeviceReady = true
		snap.LoadingArtistID = v.loadingArtist
		snap.ExternalURL = v.externalURL
		if v.nowPlaying != nil {
			np := *v.nowPlaying
			snap.NowPlaying = &np
		}
	}
	return snap
}

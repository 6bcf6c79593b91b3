package playback

import (
	"context"

	"github.com/desertthunder/spotlight/internal/models"
)

// Event is a player event name as emitted by the vendor SDK.
type Event string

const (
	EventReady               Event = "ready"
	EventNotReady            Event = "not_ready"
	EventInitializationError Event = "initialization_error"
	EventAuthenticationError Event = "authentication_error"
	EventAccountError        Event = "account_error"
)

// ErrorEvents are the events that disable the player until a new ready event.
var ErrorEvents = []Event{EventInitializationError, EventAuthenticationError, EventAccountError}

// EventPayload carries the fields the controller reads from player events.
type EventPayload struct {
	DeviceID string `json:"device_id,omitempty"`
	Message  string `json:"message,omitempty"`
}

// PlayerOptions configures a new player. Token is called whenever the SDK needs a credential.
type PlayerOptions struct {
	Name   string
	Token  func() string
	Volume float64
}

// Player is one in-browser playback device.
type Player interface {
	AddListener(event Event, fn func(EventPayload))
	Connect(ctx context.Context) (bool, error)
	Disconnect()
}

// SDK is the vendor playback SDK as seen from the controller.
type SDK interface {
	Loader() *Loader
	NewPlayer(opts PlayerOptions) (Player, error)
}

// Commands are the remote player commands. Every call names the target device.
type Commands interface {
	TransferPlayback(ctx context.Context, credential, deviceID string, play bool) error
	Play(ctx context.Context, credential, deviceID string, uris []string) error
	Pause(ctx context.Context, credential, deviceID string) error
	Resume(ctx context.Context, credential, deviceID string) error
	PlaybackState(ctx context.Context, credential string) (*models.PlayerState, error)
}

// TrackSource resolves an artist's most popular tracks.
type TrackSource interface {
	FetchTopTracks(ctx context.Context, artistID, credential string) ([]models.TrackRef, error)
}

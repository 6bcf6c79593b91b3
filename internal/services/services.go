// package services defines the Spotify Web API client
package services

import (
	"context"

	"github.com/desertthunder/spotlight/internal/models"
)

// Catalog reads artist and track data on behalf of a credential holder.
type Catalog interface {
	// FetchTopArtists returns up to limit of the user's top artists in API order.
	FetchTopArtists(ctx context.Context, credential string, limit int) ([]models.Artist, error)

	// FetchTopTracks returns the artist's most popular tracks in API order.
	FetchTopTracks(ctx context.Context, artistID, credential string) ([]models.TrackRef, error)

	// Name returns the name of the service
	Name() string
}

// PlayerCommands drives playback on a specific device.
type PlayerCommands interface {
	TransferPlayback(ctx context.Context, credential, deviceID string, play bool) error
	Play(ctx context.Context, credential, deviceID string, uris []string) error
	Pause(ctx context.Context, credential, deviceID string) error
	Resume(ctx context.Context, credential, deviceID string) error

	// PlaybackState returns nil without error when nothing is playing on the account.
	PlaybackState(ctx context.Context, credential string) (*models.PlayerState, error)
}

var (
	_ Catalog        = (*SpotifyService)(nil)
	_ PlayerCommands = (*SpotifyService)(nil)
)

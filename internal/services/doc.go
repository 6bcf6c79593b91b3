// Package services implements the Spotify Web API client used by the web player and the CLI.
//
// # Catalog
//
// [SpotifyService] fetches the signed-in user's top artists and an artist's top tracks.
// Every call takes the bearer credential explicitly so one service can serve every browser session.
//
// Each read has two forms:
//   - FetchTopArtists / FetchTopTracks return ([]T, error) and wrap failures in [shared.ErrAPIRequest]
//   - TopArtists / TopTracks log the failure and return an empty, non-nil slice
//
// Items are returned in API order. There are no retries and no cache.
//
// # Playback
//
// The player commands (transfer, play, pause, resume, state) always target an explicit device id
// and treat 204 No Content as success. Non-2xx responses are decoded into [APIError] when the body allows it.
//
// # OAuth
//
// The service owns the [oauth2.Config] for the authorization code flow: [SpotifyService.GetAuthURL] and
// [SpotifyService.Exchange] back the sign-in and callback routes.
//
// # Rate Limiting
//
// Outbound requests share a [rate.Limiter] so a burst of page loads cannot exceed the configured request rate.
package services

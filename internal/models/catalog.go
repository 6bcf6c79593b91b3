package models

// Image is an artwork reference. Width and Height are zero when unknown.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Artist is a performer entry from the user's top artists.
type Artist struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
}

// Thumbnail returns the medium image when present, else the first, else "".
func (a Artist) Thumbnail() string {
	switch {
	case len(a.Images) > 1:
		return a.Images[1].URL
	case len(a.Images) == 1:
		return a.Images[0].URL
	default:
		return ""
	}
}

// TrackRef identifies a playable track.
type TrackRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	URI         string `json:"uri"`
	ExternalURL string `json:"external_url,omitempty"`
}

// Device is the browser playback device registered by the SDK.
type Device struct {
	ID string `json:"id"`
}

// NowPlaying is the track the controller last started.
type NowPlaying struct {
	ArtistID string `json:"artist_id"`
	TrackID  string `json:"track_id"`
	Title    string `json:"title"`
}

// PlayerState is the subset of the account's playback state the controller acts on.
type PlayerState struct {
	IsPlaying  bool   `json:"is_playing"`
	DeviceID   string `json:"device_id"`
	ProgressMS int    `json:"progress_ms"`
}

// ArtistSummary pairs an artist with its resolved top tracks. Error is set when the
// tracks could not be fetched.
type ArtistSummary struct {
	Artist    Artist     `json:"artist"`
	TopTracks []TrackRef `json:"top_tracks"`
	Error     string     `json:"error,omitempty"`
}

// TopTrack returns the first top track, if any.
func (s ArtistSummary) TopTrack() (TrackRef, bool) {
	if len(s.TopTracks) == 0 {
		return TrackRef{}, false
	}
	return s.TopTracks[0], true
}

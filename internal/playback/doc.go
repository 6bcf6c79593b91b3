// Package playback implements the per-page playback controller that drives the in-browser player.
//
// # States
//
// A [Controller] moves through five phases:
//
//	uninitialized → sdk_loading → sdk_ready → device_connecting → device_ready
//
// Inside device_ready the activity is one of idle, track_loading, playing or paused.
// The device id and the now-playing track exist only in the device_ready variant, so a
// controller cannot claim to be playing without a device.
//
// # Collaborators
//
// The vendor SDK is reached through the [SDK] and [Player] interfaces; the script is loaded once
// per page through a [Loader], a single-resolution future. Remote commands go through [Commands]
// and track lookups through [TrackSource]. Both take the bearer credential supplied by the page's session.
//
// # Concurrency
//
// All state lives behind one mutex. Network calls are made without holding it; their results are
// applied only if the device that issued them is still the active one. Between overlapping
// selections the last result to arrive wins.
//
// # Registry
//
// [Registry] keeps at most one controller per browser session. Opening a page closes the
// previous page's controller.
package playback

// Package sdk bridges the vendor Web Playback SDK running in the browser to the server-side playback controller.
//
// The page hosts the SDK and relays it over a websocket as JSON frames. [Bridge] implements
// [playback.SDK] on top of that connection, so the controller never knows the player is remote.
//
// Browser to server:
//
//	{"type":"sdk_ready"}                                   resolves the page's loader
//	{"type":"event","event":"ready","device_id":"…"}       player events, with "message" for errors
//	{"type":"connected","ok":true}                         reply to a connect frame
//	{"type":"token_request"}                               the SDK needs a credential
//
// Server to browser:
//
//	{"type":"load"}                                        insert the SDK script (sent once)
//	{"type":"connect","name":"…","volume":0.7}             create and connect the player
//	{"type":"disconnect"}
//	{"type":"token","token":"…"}
//	{"type":"state","state":{…}}                           controller snapshot after each transition
//
// Writes are serialized; player events are dispatched in order on a dedicated goroutine so a slow
// listener never stalls token replies.
package sdk

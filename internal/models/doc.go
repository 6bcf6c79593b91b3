// Package models defines domain entities and persistence interfaces for the spotlight web player.
//
// The package contains two categories of types:
//
// 1. Data Transfer Objects (DTOs): Lightweight structs carried between the catalog client, the playback controller and the views
//   - [Artist] : Artist metadata with images, fetched per page view
//   - [Image] : Artwork reference with dimensions
//   - [TrackRef] : Playable track reference with URI and deep link
//   - [NowPlaying] : The track the controller last started, if any
//   - [Device] : The browser playback device, present only once the player is ready
//
// 2. Persistent Entities: Database-backed models with full lifecycle management
//   - [Session] : Signed-in browser sessions holding the bearer credential
//
// All persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models

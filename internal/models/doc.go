// Package models defines the domain objects shared across the playlist generation pipeline.
//
// Two categories of types:
//
// 1. Session state:
//   - [Credential] : OAuth access/refresh token pair with expiry, one per signed-in user
//
// 2. Pipeline values, derived fresh per request and never persisted:
//   - [ConversationTurn] : one chat transcript entry
//   - [PlaylistIntent] : the classified seeding [Strategy] plus extracted entities
//   - [PendingCreation] : confirmed name + song count, consumed once by the materializer
//   - [SuggestedTrack] : "Artist - Title" pair from the completion model
//   - [CreatedPlaylist] : immutable result reporting added vs requested track counts
//   - [TasteContext] : the user's top artists/tracks, used only as an optional seed
package models

// Package services implements typed HTTP clients for the two external collaborators:
// the Spotify Web API and an OpenAI-compatible chat completion endpoint.
//
// # Spotify Gateway
//
// [SpotifyService] wraps one operation per catalog endpoint used by the
// pipeline (profile, top items, search, playlist create, track add). Every
// call fetches a bearer token from its [TokenSource] first, so token expiry is
// handled in exactly one place (the session package).
//
// Non-2xx responses surface as [*StatusError] carrying the HTTP status and
// response body text. Callers map 401 to "reauthenticate", 403 to
// "forbidden/scope", 404 to "not found", 429 to "rate limited".
//
// The profile fetch used during playlist creation retries up to 3 times with a
// fixed 1-second backoff, because Spotify requires the owning user id before a
// playlist can be created. No other operation retries.
//
// # Completion Client
//
// [CompletionService] posts chat completion requests and returns the first
// choice's text. It makes no determinism guarantees; all structural parsing of
// the returned text (creation marker, song lines) lives in the tasks package.
package services

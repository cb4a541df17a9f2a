// Package server is the HTTP edge of the playlist generator.
//
// # Routes
//
//	GET  /healthz        → liveness probe
//	GET  /login          → redirect to the Spotify authorization page
//	GET  /callback       → OAuth code exchange, installs the credential
//	GET  /api/me         → signed-in user's profile
//	POST /api/chat       → one conversational turn of playlist planning
//	POST /api/playlists  → create and populate a playlist
//
// The /api routes require authentication: either a bearer token in the
// Authorization header, or a server-side credential installed by the OAuth
// flow. Upstream failures surface with their real status where the client can
// act on it (401 means reauthenticate, 429 means back off); everything else
// maps to 502 for upstream faults and 500 for local ones.
//
// # CLI OAuth capture
//
// [CallbackRelay] runs the same code-exchange flow on a short-lived localhost
// listener for the terminal auth command, delivering the resulting credential
// over a single-shot channel.
package server

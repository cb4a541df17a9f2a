// Package tasks implements the chat-to-playlist orchestration pipeline.
//
// # Components
//
//   - [Classifier] : turns a chat message (plus transcript and taste context)
//     into either a conversational reply or a confirmed [models.PendingCreation]
//   - [Generator] : requests a fixed-size "Artist - Title" suggestion list from
//     the completion model, with a fallback list and at most one supplementary call
//   - [Materializer] : resolves suggestions to catalog URIs and creates the
//     populated playlist, tolerating partial resolution failures
//   - [Engine] : bundles the three for the HTTP server, CLI, and TUI
//
// # Contracts
//
// The classifier only reports ready-to-create when the completion output
// carries a well-formed creation marker with an explicit song count in [1,100];
// anything else is treated as conversation and re-prompted. Strategy rules hold
// regardless of prompt wording: similar-to/style and artist-catalog requests
// never seed from the user's taste.
//
// The generator issues at most two completion calls per creation. The
// materializer's search loop is sequential and rate-limited; one failed search
// skips that track and never aborts the rest.
//
// Long-running operations emit [ProgressUpdate] values through an optional
// channel using non-blocking sends, so progress reporting can never stall the
// pipeline.
package tasks

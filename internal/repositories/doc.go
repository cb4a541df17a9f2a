// Package repositories implements SQLite persistence for the playlist generator.
//
// [ResolutionRepository] memoizes (artist, title) → URI so repeated
// materializations skip the catalog search entirely. Catalog search is the
// highest-volume outbound call of a materialization, and suggestions repeat
// heavily across playlists ("Queen - Bohemian Rhapsody" resolves to the same
// URI every time). Only successful resolutions are stored; misses are retried
// on the next run. The cache is strictly best-effort: every caller treats a
// cache failure as a miss, never as a fatal error.
//
// [CredentialRepository] stores the signed-in user's OAuth credential so the
// CLI and server keep their session across restarts. Its Save method is the
// session layer's persist callback.
package repositories

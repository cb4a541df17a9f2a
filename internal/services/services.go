// package services defines clients for the external HTTP collaborators
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/mixtape-labs/mixtape/internal/models"
)

// TokenSource supplies a valid bearer token before each outbound catalog call.
//
// Implemented by session.TokenKeeper.
type TokenSource interface {
	Access(ctx context.Context) (string, error)
}

// Catalog is the surface of the Spotify gateway consumed by the pipeline.
type Catalog interface {
	// Profile fetches the signed-in user's profile.
	Profile(ctx context.Context) (*SpotifyUser, error)

	// ProfileWithRetry fetches the profile with the documented 3-attempt retry,
	// used as the hard prerequisite of playlist creation.
	ProfileWithRetry(ctx context.Context) (*SpotifyUser, error)

	// TopArtists returns the names of the user's top artists.
	TopArtists(ctx context.Context, limit int) ([]string, error)

	// TopTracks returns the names of the user's top tracks.
	TopTracks(ctx context.Context, limit int) ([]string, error)

	// SearchTrackURI searches the catalog and returns the top match's URI,
	// or "" when nothing matches (not an error).
	SearchTrackURI(ctx context.Context, query string) (string, error)

	// CreatePlaylist creates a private playlist owned by userID.
	CreatePlaylist(ctx context.Context, userID, name, description string) (*SpotifyPlaylist, error)

	// AddTracks attaches URIs to a playlist in one batch call.
	AddTracks(ctx context.Context, playlistID string, uris []string) error
}

// Completer is the external text-completion dependency.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (string, error)
}

// CompletionRequest is the narrow contract with the completion service.
type CompletionRequest struct {
	System      string
	Messages    []models.ConversationTurn
	MaxTokens   int
	Temperature float64
}

// StatusError is a typed failure for a non-2xx upstream response, carrying the
// HTTP status and response body text for diagnosability.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.Status, e.Body)
}

// AsStatusError unwraps err into a *StatusError if one is in its chain.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsUnauthorized reports whether err is an upstream 401.
func IsUnauthorized(err error) bool {
	se, ok := AsStatusError(err)
	return ok && se.Status == http.StatusUnauthorized
}

// IsRateLimited reports whether err is an upstream 429.
func IsRateLimited(err error) bool {
	se, ok := AsStatusError(err)
	return ok && se.Status == http.StatusTooManyRequests
}

// retryable reports whether a profile fetch should be reattempted: transport
// errors, 5xx, and 429 are transient; 4xx auth/shape failures are not.
func retryable(status int) bool {
	return status >= 500 || status == http.StatusTooManyRequests
}

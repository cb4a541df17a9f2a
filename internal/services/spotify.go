// Spotify Web API gateway
//
// Response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/mixtape-labs/mixtape/internal/shared"
	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"

	profileRetries = 3
	profileBackoff = time.Second
)

// Scopes requested at sign-in, matching the playlist creation and taste-context reads.
var spotifyScopes = []string{
	"user-read-email",
	"user-read-playback-state",
	"user-modify-playback-state",
	"user-top-read",
	"user-read-recently-played",
	"playlist-read-private",
	"playlist-modify-private",
	"playlist-modify-public",
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID      string          `json:"id"`
	Name    string          `json:"name"`
	Artists []SpotifyArtist `json:"artists"`
	URI     string          `json:"uri"`
}

// SpotifyPlaylist represents a Spotify playlist.
type SpotifyPlaylist struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	Public       bool              `json:"public"`
	ExternalURLs map[string]string `json:"external_urls"`
}

// topItems is the paginated /me/top/{type} response shape.
type topItems[T any] struct {
	Items []T `json:"items"`
}

// searchResponse is the /search response shape; only the top track matters.
type searchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

// SpotifyService implements [Catalog] against the Spotify Web API.
//
// Constructed per request around the caller's token source; holds no state
// shared across users.
type SpotifyService struct {
	tokens     TokenSource
	httpClient *http.Client
	baseURL    string
	backoff    time.Duration
}

// SpotifyOption configures a SpotifyService.
type SpotifyOption func(*SpotifyService)

// WithSpotifyBaseURL overrides the API base URL (tests).
func WithSpotifyBaseURL(u string) SpotifyOption {
	return func(s *SpotifyService) { s.baseURL = u }
}

// WithSpotifyHTTPClient overrides the HTTP client.
func WithSpotifyHTTPClient(c *http.Client) SpotifyOption {
	return func(s *SpotifyService) { s.httpClient = c }
}

// WithSpotifyBackoff overrides the fixed retry backoff (tests).
func WithSpotifyBackoff(d time.Duration) SpotifyOption {
	return func(s *SpotifyService) { s.backoff = d }
}

// NewSpotifyService creates a gateway that authenticates every call through tokens.
func NewSpotifyService(tokens TokenSource, opts ...SpotifyOption) *SpotifyService {
	s := &SpotifyService{
		tokens:     tokens,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    spotifyBaseURL,
		backoff:    profileBackoff,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewOAuthConfig builds the oauth2 configuration for the Spotify sign-in flow.
func NewOAuthConfig(clientID, clientSecret, redirectURI string) (*oauth2.Config, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}
	if redirectURI == "" {
		redirectURI = "http://localhost:3000/callback"
	}

	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Scopes:       spotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyAuthURL,
			TokenURL: spotifyTokenURL,
		},
	}, nil
}

// doRequest performs one authenticated request and decodes the JSON body into result.
//
// Non-2xx responses become a *StatusError with the body text preserved.
func (s *SpotifyService) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	token, err := s.tokens.Access(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		text, _ := io.ReadAll(resp.Body)
		return &StatusError{Status: resp.StatusCode, Body: string(text)}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// Profile retrieves the current authenticated user's profile.
func (s *SpotifyService) Profile(ctx context.Context) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := s.doRequest(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ProfileWithRetry retrieves the profile, retrying transient failures up to 3
// times with a fixed 1-second backoff.
//
// The profile is a hard prerequisite for playlist creation (the owning user id
// comes from it), so it is the one call worth retrying. Auth and shape
// failures (401/403/404) fail fast.
func (s *SpotifyService) ProfileWithRetry(ctx context.Context) (*SpotifyUser, error) {
	var lastErr error

	for attempt := 1; attempt <= profileRetries; attempt++ {
		user, err := s.Profile(ctx)
		if err == nil {
			return user, nil
		}
		lastErr = err

		if se, ok := AsStatusError(err); ok && !retryable(se.Status) {
			return nil, err
		}

		if attempt < profileRetries {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.backoff):
			}
		}
	}

	return nil, fmt.Errorf("profile fetch failed after %d attempts: %w", profileRetries, lastErr)
}

// TopArtists returns the names of the user's top artists (medium term).
func (s *SpotifyService) TopArtists(ctx context.Context, limit int) ([]string, error) {
	endpoint := fmt.Sprintf("/me/top/artists?limit=%d&time_range=medium_term", clampLimit(limit))

	var response topItems[SpotifyArtist]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(response.Items))
	for _, artist := range response.Items {
		names = append(names, artist.Name)
	}
	return names, nil
}

// TopTracks returns the names of the user's top tracks (medium term).
func (s *SpotifyService) TopTracks(ctx context.Context, limit int) ([]string, error) {
	endpoint := fmt.Sprintf("/me/top/tracks?limit=%d&time_range=medium_term", clampLimit(limit))

	var response topItems[SpotifyTrack]
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return nil, err
	}

	names := make([]string, 0, len(response.Items))
	for _, track := range response.Items {
		names = append(names, track.Name)
	}
	return names, nil
}

// SearchTrackURI searches the catalog for the query and returns the top
// match's URI, or "" when the result set is empty.
func (s *SpotifyService) SearchTrackURI(ctx context.Context, query string) (string, error) {
	endpoint := "/search?q=" + url.QueryEscape(query) + "&type=track&limit=1"

	var response searchResponse
	if err := s.doRequest(ctx, http.MethodGet, endpoint, nil, &response); err != nil {
		return "", err
	}

	if len(response.Tracks.Items) == 0 {
		return "", nil
	}
	return response.Tracks.Items[0].URI, nil
}

// CreatePlaylist creates a new private playlist owned by userID.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, userID, name, description string) (*SpotifyPlaylist, error) {
	if description == "" {
		description = "AI-generated playlist: " + name
	}

	body := map[string]any{
		"name":        name,
		"description": description,
		"public":      false,
	}

	var playlist SpotifyPlaylist
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(userID))
	if err := s.doRequest(ctx, http.MethodPost, endpoint, body, &playlist); err != nil {
		return nil, err
	}
	return &playlist, nil
}

// AddTracks attaches the URIs to the playlist in a single batch call.
func (s *SpotifyService) AddTracks(ctx context.Context, playlistID string, uris []string) error {
	if len(uris) == 0 {
		return fmt.Errorf("%w: no track URIs to add", shared.ErrInvalidInput)
	}

	body := map[string]any{"uris": uris}
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return s.doRequest(ctx, http.MethodPost, endpoint, body, nil)
}

// ExternalURL returns the public web URL of the playlist if present.
func (p *SpotifyPlaylist) ExternalURL() string {
	return p.ExternalURLs["spotify"]
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 10
	}
	if limit > 50 {
		return 50
	}
	return limit
}

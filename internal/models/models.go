package models

import (
	"fmt"
	"strings"
	"time"
)

// Song count bounds for a playlist creation request.
const (
	MinSongCount = 1
	MaxSongCount = 100
)

// Credential holds one user's OAuth access/refresh token pair and expiry.
//
// Created at sign-in from the provider exchange and mutated in place by token
// refresh. RefreshError marks a terminal refresh failure: the user must
// reauthenticate, no retry will help.
type Credential struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // unix seconds
	RefreshError bool
}

// Valid reports whether the cached access token is still usable at the given time.
func (c *Credential) Valid(now time.Time) bool {
	return c.AccessToken != "" && !c.RefreshError && now.Unix() < c.ExpiresAt
}

// Role of a conversation turn.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ConversationTurn is one entry of the chat transcript, supplied by the caller on every request.
type ConversationTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Strategy is the seeding policy chosen for a playlist request.
type Strategy int

const (
	// StrategyUserTaste seeds from the user's top artists/tracks (generic mood or personal requests).
	StrategyUserTaste Strategy = iota
	// StrategyArtistCatalog draws only from a named artist's own songs.
	StrategyArtistCatalog
	// StrategySimilarArtist seeds from a named artist and similar artists; user taste is forbidden.
	StrategySimilarArtist
	// StrategySimilarStyle seeds from a named song or style; user taste is forbidden.
	StrategySimilarStyle
	// StrategyPremadeVibe is a premade activity label (workout, roadtrip, study, party) seeded from user taste.
	StrategyPremadeVibe
)

func (s Strategy) String() string {
	switch s {
	case StrategyUserTaste:
		return "user_taste"
	case StrategyArtistCatalog:
		return "artist_catalog"
	case StrategySimilarArtist:
		return "similar_artist"
	case StrategySimilarStyle:
		return "similar_style"
	case StrategyPremadeVibe:
		return "premade_vibe"
	default:
		return ""
	}
}

// UsesTaste reports whether the strategy may seed from the user's listening history.
//
// The two similar-to strategies and artist catalogs must ignore personal taste entirely.
func (s Strategy) UsesTaste() bool {
	switch s {
	case StrategyArtistCatalog, StrategySimilarArtist, StrategySimilarStyle:
		return false
	default:
		return true
	}
}

// PlaylistIntent is the structured interpretation of a user's chat message.
//
// Derived fresh per turn and never persisted.
type PlaylistIntent struct {
	Strategy Strategy
	Artists  []string
	Tracks   []string
	Styles   []string
}

// PendingCreation exists only after the user has confirmed both a playlist name
// and a valid song count. Consumed exactly once by the materializer.
type PendingCreation struct {
	Name        string `json:"playlistName"`
	SongCount   int    `json:"songCount"`
	Request     string `json:"userRequest"`
	Description string `json:"description,omitempty"`
}

// Validate checks the creation parameters against the documented bounds.
func (p *PendingCreation) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("playlist name is required")
	}
	if p.SongCount < MinSongCount || p.SongCount > MaxSongCount {
		return fmt.Errorf("song count must be between %d and %d, got %d", MinSongCount, MaxSongCount, p.SongCount)
	}
	return nil
}

// SuggestedTrack is one "Artist - Title" suggestion from the completion model.
type SuggestedTrack struct {
	Artist string `json:"artist"`
	Title  string `json:"title"`
}

// String renders the track in the canonical "Artist - Title" search form.
func (s SuggestedTrack) String() string {
	return s.Artist + " - " + s.Title
}

// ParseSuggestion splits a completion output line into a SuggestedTrack.
//
// Lines without a dash separator keep the whole text as the title so they can
// still be searched verbatim.
func ParseSuggestion(line string) SuggestedTrack {
	line = strings.TrimSpace(line)
	if artist, title, found := strings.Cut(line, " - "); found {
		return SuggestedTrack{Artist: strings.TrimSpace(artist), Title: strings.TrimSpace(title)}
	}
	return SuggestedTrack{Title: line}
}

// CreatedPlaylist is the immutable result of a successful materialization.
//
// TracksAdded may be less than TracksRequested (or zero); the counts let the
// caller distinguish full, partial, and empty successes.
type CreatedPlaylist struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	ExternalURL     string `json:"external_url"`
	TracksAdded     int    `json:"tracks_added"`
	TracksRequested int    `json:"total_requested"`
}

// TasteContext carries the user's top artists and tracks, used only as an optional seeding signal.
type TasteContext struct {
	TopArtists []string
	TopTracks  []string
}

// Empty reports whether no listening history is available.
func (t TasteContext) Empty() bool {
	return len(t.TopArtists) == 0 && len(t.TopTracks) == 0
}

// Render formats the context for inclusion in a completion prompt.
func (t TasteContext) Render() string {
	return fmt.Sprintf("User's Top Artists: %s\nUser's Top Tracks: %s\n",
		strings.Join(t.TopArtists, ", "), strings.Join(t.TopTracks, ", "))
}

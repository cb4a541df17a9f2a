package tasks

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/services"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// scriptedCompleter returns canned replies in order and records every request.
type scriptedCompleter struct {
	replies  []string
	err      error
	requests []services.CompletionRequest
}

func (s *scriptedCompleter) Complete(_ context.Context, req services.CompletionRequest) (string, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return "", s.err
	}
	i := len(s.requests) - 1
	if i >= len(s.replies) {
		return "", fmt.Errorf("unexpected completion call %d", i+1)
	}
	return s.replies[i], nil
}

// fakeCatalog is a configurable in-memory Catalog.
type fakeCatalog struct {
	profileErr error
	artists    []string
	tracks     []string
	artistsErr error
	tracksErr  error

	searchResults map[string]string
	searchErrs    map[string]error
	searchCalls   []string

	createErr error
	created   []string

	addErr   error
	addedTo  string
	addedURI []string
}

func (f *fakeCatalog) Profile(ctx context.Context) (*services.SpotifyUser, error) {
	return f.ProfileWithRetry(ctx)
}

func (f *fakeCatalog) ProfileWithRetry(context.Context) (*services.SpotifyUser, error) {
	if f.profileErr != nil {
		return nil, f.profileErr
	}
	return &services.SpotifyUser{ID: "user-1", DisplayName: "Test User"}, nil
}

func (f *fakeCatalog) TopArtists(context.Context, int) ([]string, error) {
	return f.artists, f.artistsErr
}

func (f *fakeCatalog) TopTracks(context.Context, int) ([]string, error) {
	return f.tracks, f.tracksErr
}

func (f *fakeCatalog) SearchTrackURI(_ context.Context, query string) (string, error) {
	f.searchCalls = append(f.searchCalls, query)
	if err, ok := f.searchErrs[query]; ok {
		return "", err
	}
	return f.searchResults[query], nil
}

func (f *fakeCatalog) CreatePlaylist(_ context.Context, userID, name, description string) (*services.SpotifyPlaylist, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, name)
	return &services.SpotifyPlaylist{
		ID:           "pl-1",
		Name:         name,
		Description:  description,
		ExternalURLs: map[string]string{"spotify": "https://open.spotify.com/playlist/pl-1"},
	}, nil
}

func (f *fakeCatalog) AddTracks(_ context.Context, playlistID string, uris []string) error {
	if f.addErr != nil {
		return f.addErr
	}
	f.addedTo = playlistID
	f.addedURI = append(f.addedURI, uris...)
	return nil
}

// memResolver is an in-memory TrackResolver.
type memResolver struct {
	entries map[string]string
	gets    int
	puts    int
}

func (m *memResolver) key(artist, title string) string {
	return strings.ToLower(artist) + "|" + strings.ToLower(title)
}

func (m *memResolver) Get(artist, title string) (string, error) {
	m.gets++
	return m.entries[m.key(artist, title)], nil
}

func (m *memResolver) Put(artist, title, uri string) error {
	m.puts++
	if m.entries == nil {
		m.entries = map[string]string{}
	}
	m.entries[m.key(artist, title)] = uri
	return nil
}

func TestEngineCreate(t *testing.T) {
	pending := &models.PendingCreation{Name: "Road Trip", SongCount: 2, Request: "make me a roadtrip playlist"}

	t.Run("runs full pipeline", func(t *testing.T) {
		completer := &scriptedCompleter{replies: []string{"Artist A - Song A\nArtist B - Song B"}}
		catalog := &fakeCatalog{searchResults: map[string]string{
			"Artist A - Song A": "spotify:track:a",
			"Artist B - Song B": "spotify:track:b",
		}}
		engine := NewEngine(completer, catalog, nil, testLogger())

		result, err := engine.Create(context.Background(), pending, nil)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if result.TracksAdded != 2 || result.TracksRequested != 2 {
			t.Errorf("expected 2/2, got %d/%d", result.TracksAdded, result.TracksRequested)
		}
		if result.ExternalURL == "" {
			t.Error("expected external URL")
		}
	})

	t.Run("rejects invalid pending", func(t *testing.T) {
		engine := NewEngine(&scriptedCompleter{}, &fakeCatalog{}, nil, testLogger())
		bad := &models.PendingCreation{Name: "x", SongCount: 0, Request: "r"}
		if _, err := engine.Create(context.Background(), bad, nil); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("generation failure aborts before any catalog write", func(t *testing.T) {
		completer := &scriptedCompleter{err: fmt.Errorf("upstream down")}
		catalog := &fakeCatalog{}
		engine := NewEngine(completer, catalog, nil, testLogger())

		if _, err := engine.Create(context.Background(), pending, nil); err == nil {
			t.Fatal("expected error")
		}
		if len(catalog.created) != 0 {
			t.Error("no playlist should be created when generation fails")
		}
	})
}

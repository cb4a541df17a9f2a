package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/mixtape-labs/mixtape/internal/services"
	"github.com/mixtape-labs/mixtape/internal/session"
	"github.com/mixtape-labs/mixtape/internal/tasks"
)

type stubCompleter struct {
	reply string
	err   error
}

func (s *stubCompleter) Complete(context.Context, services.CompletionRequest) (string, error) {
	return s.reply, s.err
}

type stubCatalog struct {
	profileErr error
	searchURI  string
}

func (s *stubCatalog) Profile(context.Context) (*services.SpotifyUser, error) {
	if s.profileErr != nil {
		return nil, s.profileErr
	}
	return &services.SpotifyUser{ID: "user-1", DisplayName: "Test User", Email: "test@example.com"}, nil
}

func (s *stubCatalog) ProfileWithRetry(ctx context.Context) (*services.SpotifyUser, error) {
	return s.Profile(ctx)
}

func (s *stubCatalog) TopArtists(context.Context, int) ([]string, error) { return nil, nil }
func (s *stubCatalog) TopTracks(context.Context, int) ([]string, error)  { return nil, nil }

func (s *stubCatalog) SearchTrackURI(context.Context, string) (string, error) {
	return s.searchURI, nil
}

func (s *stubCatalog) CreatePlaylist(_ context.Context, _, name, description string) (*services.SpotifyPlaylist, error) {
	return &services.SpotifyPlaylist{ID: "pl-1", Name: name, Description: description}, nil
}

func (s *stubCatalog) AddTracks(context.Context, string, []string) error { return nil }

func newTestServer(completer services.Completer, catalog services.Catalog, keeper *session.TokenKeeper) *Server {
	logger := log.New(io.Discard)
	engine := tasks.NewEngine(completer, catalog, nil, logger)
	return New(keeper, catalog, engine, nil, logger)
}

func doJSON(t *testing.T, s *Server, method, path, bearer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return v
}

func TestAuthMiddleware(t *testing.T) {
	t.Run("401 without any credential", func(t *testing.T) {
		s := newTestServer(&stubCompleter{}, &stubCatalog{}, nil)
		rec := doJSON(t, s, http.MethodGet, "/api/me", "", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("bearer token admits the request", func(t *testing.T) {
		s := newTestServer(&stubCompleter{}, &stubCatalog{}, nil)
		rec := doJSON(t, s, http.MethodGet, "/api/me", "tok", "")
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("session credential admits the request", func(t *testing.T) {
		keeper := session.Static("session-token")
		s := newTestServer(&stubCompleter{}, &stubCatalog{}, keeper)
		rec := doJSON(t, s, http.MethodGet, "/api/me", "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("healthz is open", func(t *testing.T) {
		s := newTestServer(&stubCompleter{}, &stubCatalog{}, nil)
		rec := doJSON(t, s, http.MethodGet, "/healthz", "", "")
		if rec.Code != http.StatusOK {
			t.Errorf("expected 200, got %d", rec.Code)
		}
	})
}

func TestHandleChat(t *testing.T) {
	t.Run("conversational turn", func(t *testing.T) {
		s := newTestServer(&stubCompleter{reply: "What mood are you after?"}, &stubCatalog{}, nil)
		rec := doJSON(t, s, http.MethodPost, "/api/chat", "tok", `{"message":"make me a playlist"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		resp := decode[chatResponse](t, rec)
		if resp.Ready {
			t.Error("conversational reply must not be ready")
		}
		if resp.Message != "What mood are you after?" {
			t.Errorf("unexpected message: %q", resp.Message)
		}
	})

	t.Run("creation marker surfaces name and count", func(t *testing.T) {
		s := newTestServer(&stubCompleter{reply: "CREATE_PLAYLIST: Focus Time | SONGS: 15"}, &stubCatalog{}, nil)
		rec := doJSON(t, s, http.MethodPost, "/api/chat", "tok", `{"message":"yes"}`)
		resp := decode[chatResponse](t, rec)
		if !resp.Ready {
			t.Fatal("expected ready response")
		}
		if resp.PlaylistName != "Focus Time" || resp.SongCount != 15 {
			t.Errorf("unexpected payload: %+v", resp)
		}
	})

	t.Run("missing message is 400", func(t *testing.T) {
		s := newTestServer(&stubCompleter{}, &stubCatalog{}, nil)
		rec := doJSON(t, s, http.MethodPost, "/api/chat", "tok", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("malformed body is 400", func(t *testing.T) {
		s := newTestServer(&stubCompleter{}, &stubCatalog{}, nil)
		rec := doJSON(t, s, http.MethodPost, "/api/chat", "tok", `{`)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestHandleCreatePlaylist(t *testing.T) {
	body := `{"playlistName":"Focus Time","numberOfSongs":2,"userRequest":"focus music"}`

	t.Run("happy path", func(t *testing.T) {
		completer := &stubCompleter{reply: "Artist A - Song A\nArtist B - Song B"}
		s := newTestServer(completer, &stubCatalog{searchURI: "spotify:track:x"}, nil)
		rec := doJSON(t, s, http.MethodPost, "/api/playlists", "tok", body)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		resp := decode[createResponse](t, rec)
		if !resp.Success {
			t.Error("expected success")
		}
		if resp.Playlist.Name != "Focus Time" || resp.Playlist.TracksAdded != 2 {
			t.Errorf("unexpected playlist: %+v", resp.Playlist)
		}
	})

	t.Run("count out of range is 400", func(t *testing.T) {
		s := newTestServer(&stubCompleter{}, &stubCatalog{}, nil)
		bad := `{"playlistName":"X","numberOfSongs":500,"userRequest":"r"}`
		rec := doJSON(t, s, http.MethodPost, "/api/playlists", "tok", bad)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("upstream rate limit passes through as 429", func(t *testing.T) {
		completer := &stubCompleter{err: fmt.Errorf("completion: %w", &services.StatusError{Status: 429, Body: "slow down"})}
		s := newTestServer(completer, &stubCatalog{}, nil)
		rec := doJSON(t, s, http.MethodPost, "/api/playlists", "tok", body)
		if rec.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %d", rec.Code)
		}
	})

	t.Run("upstream 500 maps to 502", func(t *testing.T) {
		completer := &stubCompleter{err: fmt.Errorf("completion: %w", &services.StatusError{Status: 500, Body: "oops"})}
		s := newTestServer(completer, &stubCatalog{}, nil)
		rec := doJSON(t, s, http.MethodPost, "/api/playlists", "tok", body)
		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected 502, got %d", rec.Code)
		}
	})
}

func TestHandleMe(t *testing.T) {
	s := newTestServer(&stubCompleter{}, &stubCatalog{}, nil)
	rec := doJSON(t, s, http.MethodGet, "/api/me", "tok", "")
	user := decode[services.SpotifyUser](t, rec)
	if user.ID != "user-1" || user.DisplayName != "Test User" {
		t.Errorf("unexpected profile: %+v", user)
	}
}

func TestFailMapping(t *testing.T) {
	t.Run("upstream 401 surfaces as 401", func(t *testing.T) {
		catalog := &stubCatalog{profileErr: &services.StatusError{Status: 401, Body: "expired"}}
		s := newTestServer(&stubCompleter{}, catalog, nil)
		rec := doJSON(t, s, http.MethodGet, "/api/me", "tok", "")
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401, got %d", rec.Code)
		}
	})

	t.Run("plain error is 500", func(t *testing.T) {
		catalog := &stubCatalog{profileErr: fmt.Errorf("disk on fire")}
		s := newTestServer(&stubCompleter{}, catalog, nil)
		rec := doJSON(t, s, http.MethodGet, "/api/me", "tok", "")
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("expected 500, got %d", rec.Code)
		}
	})
}

func TestContextTokens(t *testing.T) {
	t.Run("bearer wins", func(t *testing.T) {
		tokens := &ContextTokens{Keeper: session.Static("keeper-token")}
		ctx := context.WithValue(context.Background(), bearerKey, "header-token")
		got, err := tokens.Access(ctx)
		if err != nil || got != "header-token" {
			t.Errorf("expected header token, got %q err=%v", got, err)
		}
	})

	t.Run("falls back to keeper", func(t *testing.T) {
		tokens := &ContextTokens{Keeper: session.Static("keeper-token")}
		got, err := tokens.Access(context.Background())
		if err != nil || got != "keeper-token" {
			t.Errorf("expected keeper token, got %q err=%v", got, err)
		}
	})

	t.Run("no credential at all", func(t *testing.T) {
		tokens := &ContextTokens{}
		if _, err := tokens.Access(context.Background()); err == nil {
			t.Error("expected error with no token source")
		}
	})
}

func TestCredentialFromToken(t *testing.T) {
	t.Run("explicit expiry is kept", func(t *testing.T) {
		expiry := time.Now().Add(30 * time.Minute)
		cred := CredentialFromToken(&oauth2.Token{AccessToken: "access", RefreshToken: "refresh", Expiry: expiry})
		if cred.AccessToken != "access" || cred.RefreshToken != "refresh" {
			t.Errorf("unexpected credential: %+v", cred)
		}
		if cred.ExpiresAt != expiry.Unix() {
			t.Errorf("expected expiry %d, got %d", expiry.Unix(), cred.ExpiresAt)
		}
		if !cred.Valid(time.Now()) {
			t.Error("fresh credential should be valid")
		}
	})

	t.Run("zero expiry defaults to one hour out", func(t *testing.T) {
		cred := CredentialFromToken(&oauth2.Token{AccessToken: "access"})
		if !cred.Valid(time.Now()) {
			t.Error("credential with defaulted expiry should be valid now")
		}
	})
}

func TestCallbackRelay(t *testing.T) {
	t.Run("state mismatch is delivered as error", func(t *testing.T) {
		relay := NewCallbackRelay(nil, "expected-state")
		req := httptest.NewRequest(http.MethodGet, "/callback?state=wrong&code=abc", nil)
		rec := httptest.NewRecorder()
		relay.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if _, err := relay.Result(context.Background()); err == nil {
			t.Error("expected state mismatch error")
		}
	})

	t.Run("denied authorization is delivered as error", func(t *testing.T) {
		relay := NewCallbackRelay(nil, "s")
		req := httptest.NewRequest(http.MethodGet, "/callback?state=s&error=access_denied", nil)
		rec := httptest.NewRecorder()
		relay.ServeHTTP(rec, req)

		_, err := relay.Result(context.Background())
		if err == nil || !strings.Contains(err.Error(), "access_denied") {
			t.Errorf("expected access_denied error, got %v", err)
		}
	})

	t.Run("second callback is rejected", func(t *testing.T) {
		relay := NewCallbackRelay(nil, "s")
		first := httptest.NewRequest(http.MethodGet, "/callback?state=wrong", nil)
		relay.ServeHTTP(httptest.NewRecorder(), first)

		rec := httptest.NewRecorder()
		relay.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback?state=s&code=x", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 on replay, got %d", rec.Code)
		}
	})

	t.Run("result respects context timeout", func(t *testing.T) {
		relay := NewCallbackRelay(nil, "s")
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := relay.Result(ctx); err == nil {
			t.Error("expected timeout error")
		}
	})
}


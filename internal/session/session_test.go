package session

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/shared"
)

func fixedClock(at int64) func() time.Time {
	return func() time.Time { return time.Unix(at, 0) }
}

func TestTokenKeeper(t *testing.T) {
	now := int64(1_700_000_000)

	t.Run("Fresh Token No Network", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
		}))
		defer srv.Close()

		credential := &models.Credential{
			AccessToken:  "cached_token",
			RefreshToken: "refresh",
			ExpiresAt:    now + 3600,
		}
		keeper := NewTokenKeeper(credential, "id", "secret",
			WithTokenURL(srv.URL), WithClock(fixedClock(now)))

		token, err := keeper.Access(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "cached_token" {
			t.Errorf("expected cached token, got %s", token)
		}
		if calls != 0 {
			t.Errorf("expected zero network calls, got %d", calls)
		}
	})

	t.Run("Expired Token Refreshes Once", func(t *testing.T) {
		calls := 0
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			if err := r.ParseForm(); err != nil {
				t.Fatalf("failed to parse form: %v", err)
			}
			if r.PostForm.Get("grant_type") != "refresh_token" {
				t.Errorf("expected grant_type refresh_token, got %s", r.PostForm.Get("grant_type"))
			}
			if r.PostForm.Get("refresh_token") != "old_refresh" {
				t.Errorf("expected stored refresh token, got %s", r.PostForm.Get("refresh_token"))
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"new_token","expires_in":3600}`))
		}))
		defer srv.Close()

		persisted := false
		credential := &models.Credential{
			AccessToken:  "stale_token",
			RefreshToken: "old_refresh",
			ExpiresAt:    now - 10,
		}
		keeper := NewTokenKeeper(credential, "id", "secret",
			WithTokenURL(srv.URL), WithClock(fixedClock(now)),
			WithPersist(func(c *models.Credential) error {
				persisted = true
				return nil
			}))

		token, err := keeper.Access(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "new_token" {
			t.Errorf("expected refreshed token, got %s", token)
		}
		if calls != 1 {
			t.Errorf("expected exactly one refresh call, got %d", calls)
		}
		if credential.ExpiresAt != now+3600 {
			t.Errorf("expected expiry now+3600, got %d", credential.ExpiresAt)
		}
		if credential.RefreshToken != "old_refresh" {
			t.Errorf("expected old refresh token preserved, got %s", credential.RefreshToken)
		}
		if !persisted {
			t.Error("expected persist callback to run")
		}
	})

	t.Run("Rotated Refresh Token Stored", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"access_token":"new_token","refresh_token":"rotated","expires_in":3600}`))
		}))
		defer srv.Close()

		credential := &models.Credential{
			AccessToken:  "stale_token",
			RefreshToken: "old_refresh",
			ExpiresAt:    now - 10,
		}
		keeper := NewTokenKeeper(credential, "id", "secret",
			WithTokenURL(srv.URL), WithClock(fixedClock(now)))

		if _, err := keeper.Access(context.Background()); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if credential.RefreshToken != "rotated" {
			t.Errorf("expected rotated refresh token, got %s", credential.RefreshToken)
		}
	})

	t.Run("Refresh Failure Is Terminal", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
		}))
		defer srv.Close()

		credential := &models.Credential{
			AccessToken:  "stale_token",
			RefreshToken: "revoked",
			ExpiresAt:    now - 10,
		}
		keeper := NewTokenKeeper(credential, "id", "secret",
			WithTokenURL(srv.URL), WithClock(fixedClock(now)))

		_, err := keeper.Access(context.Background())
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
		if !credential.RefreshError {
			t.Error("expected credential to carry terminal refresh error flag")
		}

		// Subsequent calls fail fast without hitting the network again.
		_, err = keeper.Access(context.Background())
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed on second call, got %v", err)
		}
	})

	t.Run("Missing Refresh Token", func(t *testing.T) {
		credential := &models.Credential{
			AccessToken: "stale_token",
			ExpiresAt:   now - 10,
		}
		keeper := NewTokenKeeper(credential, "id", "secret", WithClock(fixedClock(now)))

		_, err := keeper.Access(context.Background())
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}
	})

	t.Run("No Credential", func(t *testing.T) {
		keeper := NewTokenKeeper(nil, "id", "secret")
		_, err := keeper.Access(context.Background())
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Static Token", func(t *testing.T) {
		keeper := Static("explicit_token")
		token, err := keeper.Access(context.Background())
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if token != "explicit_token" {
			t.Errorf("expected explicit token, got %s", token)
		}
	})
}

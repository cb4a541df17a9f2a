// Package session owns the OAuth credential lifecycle for one signed-in user.
//
// The [TokenKeeper] is the only place expiry math happens: every outbound
// catalog call asks it for a valid access token, and refresh is lazy, triggered
// by the next use of an expired credential. There is no background refresh.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/shared"
)

const defaultTokenURL = "https://accounts.spotify.com/api/token"

// PersistFunc is called after a successful refresh so the session layer can
// store the updated credential (e.g. back into a session token or cookie).
type PersistFunc func(*models.Credential) error

// TokenKeeper guards a credential and refreshes it against the provider's
// token endpoint when expired. Safe for concurrent use.
type TokenKeeper struct {
	mu           sync.Mutex
	credential   *models.Credential
	clientID     string
	clientSecret string
	tokenURL     string
	httpClient   *http.Client
	persist      PersistFunc
	now          func() time.Time
}

// Option configures a TokenKeeper.
type Option func(*TokenKeeper)

// WithTokenURL overrides the provider token endpoint (tests).
func WithTokenURL(u string) Option {
	return func(k *TokenKeeper) { k.tokenURL = u }
}

// WithHTTPClient overrides the HTTP client used for refresh calls.
func WithHTTPClient(c *http.Client) Option {
	return func(k *TokenKeeper) { k.httpClient = c }
}

// WithPersist registers a callback invoked with the credential after every successful refresh.
func WithPersist(fn PersistFunc) Option {
	return func(k *TokenKeeper) { k.persist = fn }
}

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(k *TokenKeeper) { k.now = now }
}

// NewTokenKeeper creates a TokenKeeper for the given credential and client credentials.
func NewTokenKeeper(credential *models.Credential, clientID, clientSecret string, opts ...Option) *TokenKeeper {
	k := &TokenKeeper{
		credential:   credential,
		clientID:     clientID,
		clientSecret: clientSecret,
		tokenURL:     defaultTokenURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Credential returns the guarded credential. The pointer is shared with the
// session layer; callers must treat it as read-only.
func (k *TokenKeeper) Credential() *models.Credential {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.credential
}

// SetCredential installs a freshly-issued credential, clearing any terminal
// error state from a previous one, and persists it.
func (k *TokenKeeper) SetCredential(credential *models.Credential) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	k.credential = credential
	if k.persist != nil {
		if err := k.persist(credential); err != nil {
			return fmt.Errorf("failed to persist credential: %w", err)
		}
	}
	return nil
}

// Access returns a valid access token, refreshing first if the cached one has expired.
//
// A fresh credential is returned as-is with zero network calls. A refresh
// failure marks the credential with a terminal error state and returns
// [shared.ErrRefreshFailed]; callers must treat that as "reauthentication
// required", not as a retryable fault.
func (k *TokenKeeper) Access(ctx context.Context) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.credential == nil || k.credential.AccessToken == "" {
		return "", shared.ErrNotAuthenticated
	}
	if k.credential.RefreshError {
		return "", fmt.Errorf("%w: credential requires reauthentication", shared.ErrRefreshFailed)
	}

	if k.now().Unix() < k.credential.ExpiresAt {
		return k.credential.AccessToken, nil
	}

	if err := k.refresh(ctx); err != nil {
		k.credential.RefreshError = true
		return "", fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	return k.credential.AccessToken, nil
}

// refreshResponse is the provider token endpoint payload.
type refreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// refresh exchanges the stored refresh token for a new access token and
// mutates the credential in place. Caller holds the lock.
func (k *TokenKeeper) refresh(ctx context.Context) error {
	if k.credential.RefreshToken == "" {
		return shared.ErrNoRefreshToken
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {k.credential.RefreshToken},
		"client_id":     {k.clientID},
		"client_secret": {k.clientSecret},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, k.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := k.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("refresh request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var refreshed refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&refreshed); err != nil {
		return fmt.Errorf("failed to decode refresh response: %w", err)
	}

	k.credential.AccessToken = refreshed.AccessToken
	k.credential.ExpiresAt = k.now().Unix() + refreshed.ExpiresIn
	// Keep the old refresh token unless the provider rotates it.
	if refreshed.RefreshToken != "" {
		k.credential.RefreshToken = refreshed.RefreshToken
	}

	if k.persist != nil {
		if err := k.persist(k.credential); err != nil {
			return fmt.Errorf("failed to persist refreshed credential: %w", err)
		}
	}

	return nil
}

// Static returns a TokenKeeper wrapping a bare access token with no refresh
// capability, for requests that carry an explicit token. The token is assumed
// valid for the life of the request; a 401 from the catalog still surfaces to
// the caller as reauthentication required.
func Static(accessToken string) *TokenKeeper {
	credential := &models.Credential{
		AccessToken: accessToken,
		ExpiresAt:   time.Now().Add(time.Hour).Unix(),
	}
	return NewTokenKeeper(credential, "", "")
}

package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/shared"
)

const stateCookie = "oauth_state"

// CredentialFromToken converts an exchanged OAuth token into the stored
// credential shape.
func CredentialFromToken(token *oauth2.Token) *models.Credential {
	expiresAt := token.Expiry.Unix()
	if token.Expiry.IsZero() {
		expiresAt = time.Now().Add(time.Hour).Unix()
	}
	return &models.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
	}
}

// handleLogin starts the authorization code flow: a random state goes in a
// short-lived cookie and the user is sent to the provider's consent page.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	state := shared.GenerateID()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.oauth.AuthCodeURL(state), http.StatusFound)
}

// handleCallback finishes the flow: verify state, exchange the code, and
// install the credential on the session keeper.
func (s *Server) handleCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || r.URL.Query().Get("state") != cookie.Value {
		writeError(w, http.StatusBadRequest, "state mismatch")
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("authorization failed: %s", r.URL.Query().Get("error")))
		return
	}

	token, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Error("code exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, "token exchange failed")
		return
	}

	if s.keeper == nil {
		writeError(w, http.StatusInternalServerError, "no session store configured")
		return
	}
	if err := s.keeper.SetCredential(CredentialFromToken(token)); err != nil {
		s.logger.Error("credential install failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store credential")
		return
	}

	s.logger.Info("signed in")
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed in"})
}

// CallbackRelay captures a single OAuth callback on a localhost listener for
// the terminal sign-in flow.
//
// The relay accepts exactly one callback; its outcome arrives on [Result],
// which yields one value and closes.
type CallbackRelay struct {
	config  *oauth2.Config
	state   string
	results chan relayResult
	once    sync.Once
	mu      sync.Mutex
	used    bool
}

type relayResult struct {
	credential *models.Credential
	err        error
}

func NewCallbackRelay(config *oauth2.Config, state string) *CallbackRelay {
	return &CallbackRelay{
		config:  config,
		state:   state,
		results: make(chan relayResult, 1),
	}
}

// Result blocks until the callback arrives or ctx expires.
func (c *CallbackRelay) Result(ctx context.Context) (*models.Credential, error) {
	select {
	case res := <-c.results:
		return res.credential, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("authorization timed out: %w", ctx.Err())
	}
}

func (c *CallbackRelay) deliver(res relayResult) {
	c.once.Do(func() {
		c.results <- res
		close(c.results)
	})
}

func (c *CallbackRelay) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	if c.used {
		c.mu.Unlock()
		http.Error(w, "callback already processed", http.StatusBadRequest)
		return
	}
	c.used = true
	c.mu.Unlock()

	query := r.URL.Query()
	if query.Get("state") != c.state {
		c.deliver(relayResult{err: errors.New("state mismatch in callback")})
		http.Error(w, "state mismatch", http.StatusBadRequest)
		return
	}

	code := query.Get("code")
	if code == "" {
		err := fmt.Errorf("authorization failed: %s (%s)", query.Get("error"), query.Get("error_description"))
		c.deliver(relayResult{err: err})
		http.Error(w, "authorization failed", http.StatusBadRequest)
		return
	}

	token, err := c.config.Exchange(r.Context(), code)
	if err != nil {
		c.deliver(relayResult{err: fmt.Errorf("token exchange failed: %w", err)})
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		return
	}

	c.deliver(relayResult{credential: CredentialFromToken(token)})

	w.Header().Set("Content-Type", "text/html")
	fmt.Fprint(w, callbackPage)
}

const callbackPage = `<!DOCTYPE html>
<html>
<head>
    <title>Signed In</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #f5f5f5; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: #1DB954; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>&#10003; Signed in to Spotify</h1>
        <p>You can close this window and return to the terminal.</p>
    </div>
</body>
</html>
`

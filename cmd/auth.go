package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/mixtape-labs/mixtape/internal/server"
	"github.com/mixtape-labs/mixtape/internal/services"
	"github.com/mixtape-labs/mixtape/internal/shared"
)

// AuthLogin runs the OAuth2 authorization code flow.
//
// Starts a local HTTP server for the callback, opens the browser for consent,
// and stores the exchanged credential.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	spotify := config.Credentials.Spotify
	if spotify.ClientID == "" || spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	oauthConfig, err := services.NewOAuthConfig(spotify.ClientID, spotify.ClientSecret, spotify.RedirectURI)
	if err != nil {
		return fmt.Errorf("failed to build oauth config: %w", err)
	}

	d, err := r.buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	state := shared.GenerateID()
	relay := server.NewCallbackRelay(oauthConfig, state)

	mux := http.NewServeMux()
	mux.Handle("/callback", relay)

	addr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{Addr: addr, Handler: mux}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting callback server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	authURL := oauthConfig.AuthCodeURL(state)
	r.writePlain("→ Opening browser for Spotify sign-in...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	var credential = make(chan error, 1)
	go func() {
		cred, err := relay.Result(waitCtx)
		if err != nil {
			credential <- err
			return
		}
		credential <- d.keeper.SetCredential(cred)
	}()

	select {
	case err = <-credential:
	case err = <-serverErrors:
		err = fmt.Errorf("callback server error: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if shutdownErr := httpServer.Shutdown(shutdownCtx); shutdownErr != nil {
		r.logger.Warn("error shutting down callback server", "error", shutdownErr)
	}

	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}

	r.writePlainln("✓ Signed in to Spotify")
	r.writePlain("You can now use: mixtape chat\n")
	return nil
}

// AuthStatus reports the stored session state and verifies it against the API.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	d, err := r.buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	credential := d.keeper.Credential()
	if credential == nil {
		r.writePlain("✗ Not signed in. Run 'mixtape auth login'.\n")
		return nil
	}

	if credential.RefreshError {
		r.writePlain("✗ Session is broken: token refresh failed previously.\n")
		r.writePlain("Run 'mixtape auth login' to sign in again.\n")
		return nil
	}

	if credential.Valid(time.Now()) {
		r.writePlain("✓ Access token valid until %s\n", time.Unix(credential.ExpiresAt, 0).Format(time.RFC1123))
	} else {
		r.writePlain("• Access token expired; it will refresh on next use.\n")
	}

	user, err := d.catalog.Profile(ctx)
	if err != nil {
		return fmt.Errorf("profile check failed: %w", err)
	}

	r.writePlain("✓ Signed in as %s", user.DisplayName)
	if user.Email != "" {
		r.writePlain(" (%s)", user.Email)
	}
	r.writePlain("\n")
	return nil
}

// AuthLogout deletes the stored credential.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	d, err := r.buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.credentials.Delete(); err != nil {
		return err
	}

	r.writePlain("✓ Signed out\n")
	return nil
}

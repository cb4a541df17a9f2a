package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v3"

	"github.com/mixtape-labs/mixtape/internal/server"
	"github.com/mixtape-labs/mixtape/internal/services"
	"github.com/mixtape-labs/mixtape/internal/shared"
	"github.com/mixtape-labs/mixtape/internal/tasks"
)

// Serve runs the HTTP API until interrupted.
//
// API requests may carry their own bearer token; otherwise the server falls
// back to the credential installed by 'auth login' or the /login flow.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	d, err := r.buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	if _, err := d.requireEngine(); err != nil {
		return err
	}

	// The server's catalog prefers the request's bearer token over the
	// stored session, so rebuild the pipeline on that token source.
	tokens := &server.ContextTokens{Keeper: d.keeper}
	catalog := services.NewSpotifyService(tokens)
	engine := tasks.NewEngine(d.completer, catalog, d.cache, shared.WithLogger(r.logger, "component", "engine"))

	spotify := config.Credentials.Spotify
	oauthConfig, err := services.NewOAuthConfig(spotify.ClientID, spotify.ClientSecret, spotify.RedirectURI)
	if err != nil {
		r.logger.Warn("oauth sign-in disabled", "error", err)
		oauthConfig = nil
	}

	srv := server.New(d.keeper, catalog, engine, oauthConfig, r.logger)

	host := cmd.String("host")
	if host == "" {
		host = config.Server.Host
	}
	port := int(cmd.Int("port"))
	if port == 0 {
		port = config.Server.Port
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.Start(runCtx, fmt.Sprintf("%s:%d", host, port))
}

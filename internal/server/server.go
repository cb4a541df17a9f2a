package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/oauth2"

	"github.com/mixtape-labs/mixtape/internal/services"
	"github.com/mixtape-labs/mixtape/internal/session"
	"github.com/mixtape-labs/mixtape/internal/shared"
	"github.com/mixtape-labs/mixtape/internal/tasks"
)

// Server hosts the playlist generator API.
type Server struct {
	keeper  *session.TokenKeeper
	catalog services.Catalog
	engine  *tasks.Engine
	oauth   *oauth2.Config
	logger  *log.Logger

	mux  *chi.Mux
	http *http.Server
}

// New wires the router. oauth may be nil when the deployment handles sign-in
// elsewhere; the /login and /callback routes then respond 404.
func New(keeper *session.TokenKeeper, catalog services.Catalog, engine *tasks.Engine, oauth *oauth2.Config, logger *log.Logger) *Server {
	s := &Server{
		keeper:  keeper,
		catalog: catalog,
		engine:  engine,
		oauth:   oauth,
		logger:  logger,
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Use(middleware.RequestID)
	s.mux.Use(middleware.RealIP)
	s.mux.Use(s.logRequests)
	s.mux.Use(middleware.Recoverer)

	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if s.oauth != nil {
		s.mux.Get("/login", s.handleLogin)
		s.mux.Get("/callback", s.handleCallback)
	}

	s.mux.Route("/api", func(r chi.Router) {
		r.Use(s.extractBearer)
		r.Use(s.requireAuth)
		r.Get("/me", s.handleMe)
		r.Post("/chat", s.handleChat)
		r.Post("/playlists", s.handleCreatePlaylist)
	})
}

// ServeHTTP makes the server usable directly with httptest.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// Start runs the listener until ctx is cancelled, then drains with a 10s
// shutdown grace period.
func (s *Server) Start(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	s.logger.Info("http server stopped")
	return nil
}

// ContextTokens is the token source for API requests: a bearer token on the
// request wins, otherwise the server-side session credential is used.
type ContextTokens struct {
	Keeper *session.TokenKeeper
}

func (t *ContextTokens) Access(ctx context.Context) (string, error) {
	if token, ok := BearerToken(ctx); ok {
		return token, nil
	}
	if t.Keeper != nil {
		return t.Keeper.Access(ctx)
	}
	return "", shared.ErrNotAuthenticated
}

package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/mixtape-labs/mixtape/internal/repositories"
	"github.com/mixtape-labs/mixtape/internal/services"
	"github.com/mixtape-labs/mixtape/internal/session"
	"github.com/mixtape-labs/mixtape/internal/shared"
	"github.com/mixtape-labs/mixtape/internal/tasks"
)

// Runner holds the dependencies for CLI commands and provides a method for each command action.
type Runner struct {
	config *shared.Config
	logger *log.Logger
	output io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config *shared.Config
	Logger *log.Logger
	Output io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config: opts.Config,
		logger: opts.Logger,
		output: opts.Output,
	}
}

// deps bundles the wired-up services a command needs. Built per command so
// commands that never touch the database or the network stay cheap.
type deps struct {
	db          *sql.DB
	credentials *repositories.CredentialRepository
	cache       *repositories.ResolutionRepository
	keeper      *session.TokenKeeper
	catalog     services.Catalog
	completer   services.Completer
	engine      *tasks.Engine
}

func (d *deps) Close() {
	if d.db != nil {
		d.db.Close()
	}
}

// buildDeps opens the database, restores the stored session, and wires the
// pipeline. The completion service is left nil when no API key is configured;
// commands that need it check first.
func (r *Runner) buildDeps() (*deps, error) {
	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	credentials := repositories.NewCredentialRepository(db)
	credential, err := credentials.Load()
	if err != nil {
		r.logger.Warn("failed to load stored credential", "error", err)
	}

	spotify := r.config.Credentials.Spotify
	keeper := session.NewTokenKeeper(credential, spotify.ClientID, spotify.ClientSecret,
		session.WithPersist(credentials.Save))

	catalog := services.NewSpotifyService(keeper)
	cache := repositories.NewResolutionRepository(db)

	d := &deps{
		db:          db,
		credentials: credentials,
		cache:       cache,
		keeper:      keeper,
		catalog:     catalog,
	}

	openai := r.config.Credentials.OpenAI
	if openai.APIKey != "" {
		completer, err := services.NewCompletionService(openai.BaseURL, openai.APIKey, openai.Model)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to create completion service: %w", err)
		}
		d.completer = completer
		d.engine = tasks.NewEngine(completer, catalog, cache, shared.WithLogger(r.logger, "component", "engine"))
	}

	return d, nil
}

// requireEngine returns the pipeline engine or a config error naming what is missing.
func (d *deps) requireEngine() (*tasks.Engine, error) {
	if d.engine == nil {
		return nil, fmt.Errorf("%w: openai api_key must be set in config.toml or OPENAI_API_KEY", shared.ErrMissingCredentials)
	}
	return d.engine, nil
}

// loadConfig honors a command's --config flag when it points somewhere other
// than the default already loaded at startup.
func (r *Runner) loadConfig(path string) *shared.Config {
	if path == "" || path == "config.toml" {
		return r.config
	}
	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using current settings", "path", path, "error", err)
		return r.config
	}
	config.ApplyEnv()
	return config
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

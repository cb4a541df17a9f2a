package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/mixtape-labs/mixtape/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)
	if os.Getenv("MIXTAPE_DEBUG") != "" {
		shared.SetLogLevel(logger, log.DebugLevel)
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat("config.toml"); err == nil {
		if loaded, err := shared.LoadConfig("config.toml"); err == nil {
			config = loaded
		} else {
			logger.Warn("failed to load config.toml, using defaults", "error", err)
		}
	}
	config.ApplyEnv()

	runner := NewRunner(RunnerOpts{
		Config: config,
		Logger: logger,
	})

	app := &cli.Command{
		Name:     "mixtape",
		Usage:    "Chat with an assistant that builds Spotify playlists for you",
		Version:  "0.1.0",
		Commands: runner.register(),
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		logger.Fatalf("application error: %v", err)
	}
}

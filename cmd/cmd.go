// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, serveCommand, chatCommand, createCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func configFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to configuration file",
		Value:   "config.toml",
	}
}

// setupCommand initializes the config file and database
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create the config file and initialize the database",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Setup,
	}
}

// authCommand manages the Spotify session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authentication",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in to Spotify via the browser",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the current session and verify it against the API",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthStatus,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored credential",
				Flags:  []cli.Flag{configFlag()},
				Action: r.AuthLogout,
			},
		},
	}
}

// serveCommand runs the HTTP API
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the playlist generator HTTP API",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:  "host",
				Usage: "Bind address (defaults to config)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Bind port (defaults to config)",
			},
		},
		Action: r.Serve,
	}
}

// chatCommand launches the interactive chat TUI
func chatCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "chat",
		Usage:  "Chat with the playlist assistant in the terminal",
		Flags:  []cli.Flag{configFlag()},
		Action: r.Chat,
	}
}

// createCommand is the one-shot, non-interactive creation path
func createCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a playlist from a single request without chatting",
		Flags: []cli.Flag{
			configFlag(),
			&cli.StringFlag{
				Name:     "name",
				Usage:    "Playlist name",
				Required: true,
			},
			&cli.IntFlag{
				Name:     "count",
				Usage:    "Number of songs (1-100)",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "request",
				Usage:    "What the playlist should be (\"songs by Queen\", \"workout mix\", ...)",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "description",
				Usage: "Playlist description (defaults to one derived from the name)",
			},
			&cli.StringFlag{
				Name:  "export",
				Usage: "Also write the track list to this file",
			},
			&cli.StringFlag{
				Name:  "format",
				Usage: "Export format: csv, md, txt",
				Value: "md",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the result as JSON",
			},
		},
		Action: r.Create,
	}
}

// cacheCommand inspects the track resolution cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect or clear the track resolution cache",
		Commands: []*cli.Command{
			{
				Name:   "stats",
				Usage:  "Show cache size",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheStats,
			},
			{
				Name:   "clear",
				Usage:  "Remove all cached resolutions",
				Flags:  []cli.Flag{configFlag()},
				Action: r.CacheClear,
			},
		},
	}
}

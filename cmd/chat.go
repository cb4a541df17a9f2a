package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/mixtape-labs/mixtape/internal/shared"
	"github.com/mixtape-labs/mixtape/internal/ui"
)

// Chat launches the interactive chat TUI.
func (r *Runner) Chat(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/mixtape-chat.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.logger = fileLogger

	d, err := r.buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	engine, err := d.requireEngine()
	if err != nil {
		return err
	}

	if d.keeper.Credential() == nil {
		return fmt.Errorf("%w: run 'mixtape auth login' first", shared.ErrNotAuthenticated)
	}

	model := ui.NewModel(ctx, engine)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}

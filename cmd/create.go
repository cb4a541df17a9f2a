package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/urfave/cli/v3"

	"github.com/mixtape-labs/mixtape/internal/formatter"
	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/tasks"
)

// Create runs the one-shot creation pipeline: plan suggestions for the
// request, then materialize the playlist, streaming progress to the terminal.
func (r *Runner) Create(ctx context.Context, cmd *cli.Command) error {
	pending := &models.PendingCreation{
		Name:        cmd.String("name"),
		SongCount:   int(cmd.Int("count")),
		Request:     cmd.String("request"),
		Description: cmd.String("description"),
	}
	if err := pending.Validate(); err != nil {
		return err
	}

	d, err := r.buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	engine, err := d.requireEngine()
	if err != nil {
		return err
	}

	r.writePlain("→ Planning %q (%d songs)...\n", pending.Name, pending.SongCount)

	tracks, err := engine.Plan(ctx, pending)
	if err != nil {
		return fmt.Errorf("planning failed: %w", err)
	}
	r.writePlain("→ %d suggestions ready\n", len(tracks))

	progress := make(chan tasks.ProgressUpdate, 50)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if update.Phase == tasks.SearchTracks {
				r.writePlain("  [%d/%d] %s\n", update.Step, update.Total, update.Message)
			} else {
				r.writePlain("→ %s\n", update.Message)
			}
		}
	}()

	playlist, err := engine.Materialize(ctx, pending, tracks, progress)
	close(progress)
	wg.Wait()
	if err != nil {
		return fmt.Errorf("creation failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(playlist, true)
	}

	r.writePlainln("✓ Created %q with %d of %d tracks", playlist.Name, playlist.TracksAdded, playlist.TracksRequested)
	if playlist.ExternalURL != "" {
		r.writePlain("%s\n", playlist.ExternalURL)
	}

	if exportPath := cmd.String("export"); exportPath != "" {
		written, err := formatter.WriteExport(playlist, tracks, cmd.String("format"), exportPath)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		r.writePlain("✓ Track list exported to %s\n", written)
	}

	return nil
}

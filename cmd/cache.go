package main

import (
	"context"

	"github.com/urfave/cli/v3"
)

// CacheStats shows the resolution cache size.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	d, err := r.buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	count, err := d.cache.Count()
	if err != nil {
		return err
	}

	r.writePlain("Cached track resolutions: %d\n", count)
	return nil
}

// CacheClear removes all cached resolutions.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	d, err := r.buildDeps()
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.cache.Clear(); err != nil {
		return err
	}

	r.writePlain("✓ Resolution cache cleared\n")
	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"estatemap/internal/mapping"
)

// errLocked is returned when another mapping run holds the lock
var errLocked = errors.New("another mapping run is in progress")

func newMapCommand(ctx *commandContext) *cobra.Command {
	var batchSize, maxBatches int
	var photos bool

	cmd := &cobra.Command{
		Use:   "map",
		Short: "Map pending properties to estate buildings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := ctx.cfg
			if cmd.Flags().Changed("batch-size") {
				cfg.Mapping.BatchSize = batchSize
			}
			if cmd.Flags().Changed("max-batches") {
				cfg.Mapping.MaxBatches = maxBatches
			}
			if cmd.Flags().Changed("photos") {
				cfg.Mapping.DownloadPhotos = photos
			}

			lock, err := acquireLock(cfg.Mapping.LockPath)
			if err != nil {
				return err
			}
			defer lock.Unlock()

			signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(signalCtx, cfg, ctx.logger, true)
			if err != nil {
				return err
			}
			defer a.Close()

			summary, err := a.runMapping(signalCtx)
			fmt.Fprintln(cmd.OutOrStdout(), formatSummary(summary))
			if errors.Is(err, context.Canceled) {
				ctx.logger.Warn("Mapping run interrupted")
			}
			return err
		},
	}

	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "Override MAP_BATCH_SIZE")
	cmd.Flags().IntVar(&maxBatches, "max-batches", 0, "Override MAP_MAX_BATCHES (0 runs until nothing is pending)")
	cmd.Flags().BoolVar(&photos, "photos", false, "Download photos of mapped places")
	return cmd
}

// runMapping runs the mapping driver over every pending property
func (a *app) runMapping(ctx context.Context) (mapping.Summary, error) {
	var downloader mapping.PhotoDownloader
	if a.cfg.Mapping.DownloadPhotos {
		downloader = a.places
	}
	driver := mapping.NewDriver(a.store, a.resolver, a.buildings, downloader, mapping.Config{
		BatchSize:      a.cfg.Mapping.BatchSize,
		MaxBatches:     a.cfg.Mapping.MaxBatches,
		DownloadPhotos: a.cfg.Mapping.DownloadPhotos,
	}, a.logger)
	return driver.Run(ctx)
}

// acquireLock takes the exclusive mapping lock without waiting
func acquireLock(path string) (*flock.Flock, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create lock directory: %w", err)
		}
	}

	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", errLocked, path)
	}
	return lock, nil
}

func formatSummary(s mapping.Summary) string {
	return fmt.Sprintf("run %s: %d batches, %d processed, %d mapped, %d not found, %d failed",
		s.RunID, s.Batches, s.Processed, s.Mapped, s.NotFound, s.Failed)
}

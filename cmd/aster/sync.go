package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Ramsey-B/aster/pkg/models"
	"github.com/Ramsey-B/aster/pkg/reconcile"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile catalog snapshots into the store",
}

var syncMovieCmd = &cobra.Command{
	Use:   "movie <file-or-dir>...",
	Short: "Reconcile movie snapshots from JSON files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), args, func(ctx context.Context, data []byte, r *reconcile.Reconciler) (*models.SyncResult, error) {
			var snap models.MovieSnapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return nil, err
			}
			return r.SyncMovie(ctx, &snap)
		})
	},
}

var syncSeriesCmd = &cobra.Command{
	Use:   "series <file-or-dir>...",
	Short: "Reconcile series snapshots from JSON files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSync(cmd.Context(), args, func(ctx context.Context, data []byte, r *reconcile.Reconciler) (*models.SyncResult, error) {
			var snap models.SeriesSnapshot
			if err := json.Unmarshal(data, &snap); err != nil {
				return nil, err
			}
			return r.SyncSeries(ctx, &snap)
		})
	},
}

type snapshotSync func(ctx context.Context, data []byte, r *reconcile.Reconciler) (*models.SyncResult, error)

// runSync drives the batch loop: one transaction per snapshot, per-file
// failures reported but never aborting the rest of the batch.
func runSync(ctx context.Context, args []string, syncOne snapshotSync) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := newLogger()

	shutdownTracing, err := setupTracing(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = shutdownTracing(ctx) }()

	db, err := connectDatabase(cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	emitter, closeEmitter := newEmitter(cfg, logger)
	defer func() { _ = closeEmitter() }()

	reconciler := newReconciler(cfg, db, logger, emitter)

	files, err := collectFiles(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no snapshot files found in %v", args)
	}

	var processed, unchanged, failed int
	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			logger.WithError(err).WithFields(map[string]any{"file": file}).Error("Failed to read snapshot file")
			failed++
			continue
		}

		result, err := syncOne(ctx, data, reconciler)
		if err != nil {
			logger.WithError(err).WithFields(map[string]any{"file": file}).Error("Failed to reconcile snapshot")
			failed++
			continue
		}

		if result.Changed() {
			processed++
		} else {
			unchanged++
		}
	}

	logger.WithFields(map[string]any{
		"processed": processed,
		"unchanged": unchanged,
		"failed":    failed,
	}).Info("Sync batch finished")

	if failed > 0 {
		return fmt.Errorf("%d of %d snapshots failed", failed, len(files))
	}
	return nil
}

func collectFiles(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}

		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			files = append(files, filepath.Join(arg, entry.Name()))
		}
	}
	return files, nil
}

func init() {
	syncCmd.AddCommand(syncMovieCmd)
	syncCmd.AddCommand(syncSeriesCmd)
	rootCmd.AddCommand(syncCmd)
}

package worker

import (
	"context"
	"log/slog"
	"time"

	"runclub-strava-sync/internal/database"
	"runclub-strava-sync/internal/metrics"
	syncer "runclub-strava-sync/internal/sync"
)

// ConnectionLister enumerates the connections to re-sync
type ConnectionLister interface {
	ListConnections() ([]*database.Connection, error)
}

// WindowSyncer runs a windowed activity sync for one connection
type WindowSyncer interface {
	Sync(ctx context.Context, conn *database.Connection, after, before int64, source string) (*syncer.Result, error)
}

// Worker periodically re-syncs every connection over a trailing window,
// catching activities whose webhook delivery was missed
type Worker struct {
	connections ConnectionLister
	syncer      WindowSyncer
	interval    time.Duration
	window      time.Duration
	logger      *slog.Logger
}

func New(connections ConnectionLister, s WindowSyncer, interval, window time.Duration) *Worker {
	return &Worker{
		connections: connections,
		syncer:      s,
		interval:    interval,
		window:      window,
		logger:      slog.Default().With("component", "background_sync"),
	}
}

// Start runs sync passes until the context is cancelled. The first pass
// starts one full interval after startup so a deploy does not trigger an
// immediate burst of upstream calls.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("starting background sync", "interval", w.interval, "window", w.window)
	metrics.BackgroundSyncActive.Set(1)
	defer metrics.BackgroundSyncActive.Set(0)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping background sync")
			return ctx.Err()
		case <-ticker.C:
			w.runPass(ctx)
		}
	}
}

// runPass syncs every connection once. Per-connection failures are logged
// and do not stop the pass.
func (w *Worker) runPass(ctx context.Context) {
	start := time.Now()

	connections, err := w.connections.ListConnections()
	if err != nil {
		w.logger.Error("failed to list connections", "error", err)
		metrics.BackgroundSyncRunsTotal.WithLabelValues(metrics.ResultFailure).Inc()
		return
	}

	before := start.Unix()
	after := start.Add(-w.window).Unix()

	synced := 0
	failed := 0
	for _, conn := range connections {
		if ctx.Err() != nil {
			return
		}

		result, err := w.syncer.Sync(ctx, conn, after, before, metrics.SourceBackground)
		if err != nil {
			failed++
			w.logger.Error("background sync failed for connection",
				"user_id", conn.UserID, "athlete_id", conn.AthleteID, "error", err)
			continue
		}
		synced += result.Synced
	}

	result := metrics.ResultSuccess
	if failed > 0 {
		result = metrics.ResultFailure
	}
	metrics.BackgroundSyncRunsTotal.WithLabelValues(result).Inc()

	w.logger.Info("background sync pass complete",
		"connections", len(connections),
		"failed_connections", failed,
		"activities_synced", synced,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Package pipeline runs recurring jobs: periodic scans and retention-based
// archiving of old findings.
package pipeline

import (
	"context"
	"log/slog"
	"time"
)

// Job is one run of a recurring task.
type Job func(ctx context.Context) error

// RunEvery runs job immediately and then on every tick of interval until ctx
// is cancelled. A failed run is logged and the loop continues. Runs never
// overlap; ticks missed during a long run are dropped.
func RunEvery(ctx context.Context, name string, interval time.Duration, job Job, logger *slog.Logger) error {
	log := logger.With(slog.String("component", "scheduler"), slog.String("job", name))

	run := func() {
		started := time.Now()
		if err := job(ctx); err != nil {
			log.ErrorContext(ctx, "job failed", slog.String("error", err.Error()))
			return
		}
		log.DebugContext(ctx, "job complete", slog.Duration("elapsed", time.Since(started)))
	}

	run()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.InfoContext(ctx, "loop stopped")
			return ctx.Err()
		case <-ticker.C:
			run()
		}
	}
}

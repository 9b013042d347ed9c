package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// FindingArchiver exports findings detected before a cutoff.
type FindingArchiver interface {
	ArchiveFindings(ctx context.Context, before time.Time) (int64, error)
}

// Retention archives findings older than a fixed number of days.
type Retention struct {
	archiver      FindingArchiver
	retentionDays int
	logger        *slog.Logger
	now           func() time.Time
}

// NewRetention creates a retention job.
func NewRetention(archiver FindingArchiver, retentionDays int, logger *slog.Logger) *Retention {
	return &Retention{
		archiver:      archiver,
		retentionDays: retentionDays,
		logger:        logger.With(slog.String("component", "retention")),
		now:           time.Now,
	}
}

// Cutoff is the instant before which findings are archived.
func (r *Retention) Cutoff() time.Time {
	return r.now().UTC().Add(-time.Duration(r.retentionDays) * 24 * time.Hour)
}

// Run executes a single archive run and returns the number of findings
// exported.
func (r *Retention) Run(ctx context.Context) (int64, error) {
	cutoff := r.Cutoff()
	r.logger.InfoContext(ctx, "starting archive run",
		slog.Time("cutoff", cutoff),
		slog.Int("retention_days", r.retentionDays),
	)

	n, err := r.archiver.ArchiveFindings(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("archiving findings before %v: %w", cutoff, err)
	}

	r.logger.InfoContext(ctx, "archive run complete", slog.Int64("findings_archived", n))
	return n, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/pipeline"
	"github.com/alanyoungcy/oddsarb/internal/server"
	"github.com/alanyoungcy/oddsarb/internal/service"
)

// ScanMode scans every configured sport once against the live provider and
// exits.
func (a *App) ScanMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting scan mode")
	a.checkSports(ctx, deps)
	return a.scanOnce(ctx, deps, a.newScanService(deps, deps.Provider))
}

// ReplayMode runs one scan pass over the latest recorded snapshots in object
// storage instead of the live provider.
func (a *App) ReplayMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting replay mode", slog.String("prefix", a.cfg.Replay.Prefix))
	return a.scanOnce(ctx, deps, a.newScanService(deps, deps.Snapshots))
}

// MonitorMode scans on every scan.interval until the context is cancelled and
// serves /metrics when enabled.
func (a *App) MonitorMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting monitor mode",
		slog.Duration("interval", a.cfg.Scan.Interval.Duration),
	)

	a.checkSports(ctx, deps)
	svc := a.newScanService(deps, deps.Provider)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return pipeline.RunEvery(ctx, "scan", a.cfg.Scan.Interval.Duration, func(ctx context.Context) error {
			res := svc.Run(ctx)
			a.logResult(ctx, deps, res)
			return res.Err()
		}, a.logger)
	})

	if deps.Metrics != nil {
		a.startMetricsServer(ctx, g, deps)
	}

	return g.Wait()
}

// ArchiveMode exports findings older than archive.retention_days to object
// storage and exits.
func (a *App) ArchiveMode(ctx context.Context, deps *Dependencies) error {
	if deps.Archiver == nil {
		return errors.New("archive mode: archiver requires postgres and s3")
	}
	a.logger.InfoContext(ctx, "starting archive mode", slog.Int("retention_days", a.cfg.Archive.RetentionDays))

	retention := pipeline.NewRetention(deps.Archiver, a.cfg.Archive.RetentionDays, a.logger)
	n, err := retention.Run(ctx)
	if err != nil {
		return fmt.Errorf("archive mode: %w", err)
	}

	attrs := []any{slog.Int64("findings_archived", n)}
	if deps.FindingStore != nil {
		counts, err := deps.FindingStore.CountByKind(ctx, retention.Cutoff())
		if err != nil {
			a.logger.WarnContext(ctx, "count retained findings failed", slog.String("error", err.Error()))
		} else {
			attrs = append(attrs, kindCounts(counts))
		}
	}
	a.logger.InfoContext(ctx, "archive mode complete", attrs...)
	return nil
}

// kindCounts renders per-kind finding counts as a log group.
func kindCounts(counts map[domain.FindingKind]int64) slog.Attr {
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	attrs := make([]any, 0, len(kinds))
	for _, k := range kinds {
		attrs = append(attrs, slog.Int64(k, counts[domain.FindingKind(k)]))
	}
	return slog.Group("findings_retained", attrs...)
}

// checkSports warns about configured sports the provider does not know or
// has out of season. Scanning goes ahead regardless.
func (a *App) checkSports(ctx context.Context, deps *Dependencies) {
	if deps.Provider == nil {
		return
	}
	check, err := service.CheckSports(ctx, deps.Provider, a.cfg.OddsAPI.Sports)
	switch {
	case err != nil:
		a.logger.WarnContext(ctx, "sport catalogue unavailable", slog.String("error", err.Error()))
	case !check.OK():
		a.logger.WarnContext(ctx, "configured sports not scannable",
			slog.Any("unknown", check.Unknown),
			slog.Any("inactive", check.Inactive),
		)
	}
}

func (a *App) newScanService(deps *Dependencies, source domain.EventSource) *service.ScanService {
	sd := service.ScanDeps{
		Source:     source,
		Summarizer: deps.Summarizer,
		Direct:     deps.Direct,
		Audit:      deps.AuditStore,
		Cache:      deps.ReportCache,
		Bus:        deps.SignalBus,
		Quota:      deps.QuotaTracker,
		Locks:      deps.LockManager,
		Notifier:   deps.Notifier,
		Metrics:    deps.Metrics,
	}
	// Assigning a nil *FindingStore would yield a non-nil interface.
	if deps.FindingStore != nil {
		sd.Findings = deps.FindingStore
	}
	return service.NewScanService(sd, service.ScanConfig{
		Sports:      a.cfg.OddsAPI.Sports,
		Concurrency: a.cfg.Scan.Concurrency,
		LockTTL:     a.cfg.Scan.LockTTL.Duration,
	}, a.logger)
}

// scanOnce runs a single pass. It fails only when no sport could be fetched.
func (a *App) scanOnce(ctx context.Context, deps *Dependencies, svc *service.ScanService) error {
	res := svc.Run(ctx)
	a.logResult(ctx, deps, res)

	failed := 0
	for _, s := range res.Sports {
		if s.Err != nil {
			failed++
		}
	}
	if len(res.Sports) > 0 && failed == len(res.Sports) {
		return fmt.Errorf("scan: every sport failed: %w", res.Err())
	}
	return nil
}

func (a *App) logResult(ctx context.Context, deps *Dependencies, res service.ScanResult) {
	var events, reports, failures int
	for _, s := range res.Sports {
		events += s.Events
		reports += len(s.Reports)
		failures += len(s.Failures)
	}
	attrs := []any{
		slog.Int("sports", len(res.Sports)),
		slog.Int("events", events),
		slog.Int("reports", reports),
		slog.Int("event_failures", failures),
		slog.Int("findings", len(res.Findings())),
	}
	// The shared tracker reflects every scanner using the same API key.
	if deps.QuotaTracker != nil {
		if q, err := deps.QuotaTracker.GetQuota(ctx); err == nil {
			attrs = append(attrs, slog.Int("requests_remaining", q.Remaining))
		}
	}
	a.logger.InfoContext(ctx, "scan pass complete", attrs...)
}

func (a *App) startMetricsServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	srv := server.New(server.Config{Addr: a.cfg.Metrics.Addr}, deps.Metrics.Handler(), a.logger)
	g.Go(func() error {
		return srv.Run(ctx)
	})
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/metrics"
	"github.com/alanyoungcy/oddsarb/internal/notify"
	"github.com/alanyoungcy/oddsarb/internal/scan"
)

// ScanConfig holds the tunables of a scan pass.
type ScanConfig struct {
	Sports      []string
	Concurrency int
	LockTTL     time.Duration
}

// ScanDeps are the collaborators of a ScanService. Source, Summarizer and
// Direct are required; every sink may be nil.
type ScanDeps struct {
	Source     domain.EventSource
	Summarizer *scan.Summarizer
	Direct     *scan.DirectScanner

	Findings domain.FindingStore
	Audit    domain.AuditStore
	Cache    domain.ReportCache
	Bus      domain.SignalBus
	Quota    domain.QuotaTracker
	Locks    domain.LockManager
	Notifier *notify.Notifier
	Metrics  *metrics.Registry
}

// quotaReporter is implemented by sources that track a request allowance.
type quotaReporter interface {
	Quota() domain.Quota
}

// SportResult is the outcome of scanning one sport. Err is set when the
// sport could not be fetched; Locked when another scanner held it.
type SportResult struct {
	Sport          string
	Events         int
	Reports        []domain.EventReport
	Failures       []domain.EventFailure
	Skipped        []string
	DirectFindings []domain.Finding
	Summaries      []domain.BestOddsSummary
	Locked         bool
	Err            error
}

// Findings returns the findings of every report.
func (r SportResult) Findings() []domain.Finding {
	var out []domain.Finding
	for _, rep := range r.Reports {
		out = append(out, rep.Findings...)
	}
	return out
}

// ScanResult collects every sport of one pass, in configured order.
type ScanResult struct {
	Sports []SportResult
}

// Findings returns every report finding across sports.
func (r ScanResult) Findings() []domain.Finding {
	var out []domain.Finding
	for _, s := range r.Sports {
		out = append(out, s.Findings()...)
	}
	return out
}

// Err joins the per-sport fetch errors.
func (r ScanResult) Err() error {
	var errs []error
	for _, s := range r.Sports {
		if s.Err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Sport, s.Err))
		}
	}
	return errors.Join(errs...)
}

// ScanService runs a scan pass: fetch events per sport, summarise them, run
// the direct scanner, and record results to whichever sinks are configured.
// Recording failures are logged and never fail the pass.
type ScanService struct {
	deps   ScanDeps
	cfg    ScanConfig
	logger *slog.Logger
}

// NewScanService creates a ScanService.
func NewScanService(deps ScanDeps, cfg ScanConfig, logger *slog.Logger) *ScanService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &ScanService{
		deps:   deps,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "scan_service")),
	}
}

// Run scans every configured sport concurrently. A sport that fails to fetch
// does not stop the others; its error is carried on its SportResult.
func (s *ScanService) Run(ctx context.Context) ScanResult {
	results := make([]SportResult, len(s.cfg.Sports))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, sport := range s.cfg.Sports {
		g.Go(func() error {
			results[i] = s.ScanSport(gctx, sport)
			return nil
		})
	}
	_ = g.Wait()

	return ScanResult{Sports: results}
}

// ScanSport runs one sport end to end.
func (s *ScanService) ScanSport(ctx context.Context, sport string) SportResult {
	res := SportResult{Sport: sport}
	started := time.Now()
	log := s.logger.With(slog.String("sport", sport), slog.String("source", s.deps.Source.Name()))

	if s.deps.Locks != nil {
		unlock, err := s.deps.Locks.Acquire(ctx, "scan:"+sport, s.cfg.LockTTL)
		switch {
		case errors.Is(err, domain.ErrLockHeld):
			log.InfoContext(ctx, "sport locked by another scanner")
			res.Locked = true
			return res
		case err != nil:
			log.WarnContext(ctx, "lock unavailable, scanning anyway", slog.String("error", err.Error()))
		default:
			defer unlock()
		}
	}

	events, err := s.deps.Source.FetchEvents(ctx, sport)
	s.recordQuota(ctx, log)
	if err != nil {
		res.Err = fmt.Errorf("fetch events: %w", err)
		log.ErrorContext(ctx, "fetch failed", slog.String("error", err.Error()))
		s.observe(sport, started, res.Err)
		if s.deps.Notifier.Enabled() {
			if nerr := s.deps.Notifier.NotifyFailure(ctx, sport, err); nerr != nil {
				log.WarnContext(ctx, "failure notification failed", slog.String("error", nerr.Error()))
			}
		}
		return res
	}
	res.Events = len(events)

	batch := s.deps.Summarizer.SummarizeBatch(ctx, events)
	res.Reports = batch.Reports
	res.Failures = batch.Failures
	res.Skipped = batch.Skipped
	res.DirectFindings, res.Summaries = s.deps.Direct.Scan(ctx, events)

	s.record(ctx, log, res)
	s.observe(sport, started, nil)

	log.InfoContext(ctx, "sport scanned",
		slog.Int("events", res.Events),
		slog.Int("reports", len(res.Reports)),
		slog.Int("failures", len(res.Failures)),
		slog.Int("skipped", len(res.Skipped)),
		slog.Int("findings", len(res.Findings())),
		slog.Duration("elapsed", time.Since(started)),
	)
	return res
}

func (s *ScanService) record(ctx context.Context, log *slog.Logger, res SportResult) {
	findings := res.Findings()

	if s.deps.Findings != nil && len(findings) > 0 {
		if err := s.deps.Findings.InsertBatch(ctx, findings); err != nil {
			log.ErrorContext(ctx, "persist findings failed", slog.String("error", err.Error()))
		}
	}

	alerted := s.alerted(ctx, log, res.Reports)
	if s.deps.Cache != nil {
		for _, rep := range res.Reports {
			if err := s.deps.Cache.SetReport(ctx, rep); err != nil {
				log.WarnContext(ctx, "cache report failed", slog.String("event_id", rep.EventID), slog.String("error", err.Error()))
			}
		}
		for _, sum := range res.Summaries {
			if err := s.deps.Cache.SetSummary(ctx, sum); err != nil {
				log.WarnContext(ctx, "cache summary failed", slog.String("event_id", sum.EventID), slog.String("error", err.Error()))
			}
		}
	}

	for _, f := range findings {
		s.publish(ctx, log, f)
		if s.deps.Notifier.Enabled() && !alerted[findingKey(f)] {
			if err := s.deps.Notifier.NotifyFinding(ctx, f); err != nil {
				log.WarnContext(ctx, "finding notification failed", slog.String("finding_id", f.ID), slog.String("error", err.Error()))
			}
		}
	}

	s.audit(ctx, log, res)

	if m := s.deps.Metrics; m != nil {
		m.RecordEvents(res.Sport, len(res.Reports), len(res.Failures))
		m.RecordFindings(res.Sport, findings)
		for _, rep := range res.Reports {
			m.RecordFaults(rep.Faults)
		}
	}
}

// alerted collects the keys of findings already held in the cached reports
// of this pass's events. A finding that persists across passes is alerted
// once; it is still persisted and published every pass.
func (s *ScanService) alerted(ctx context.Context, log *slog.Logger, reports []domain.EventReport) map[string]bool {
	if s.deps.Cache == nil || !s.deps.Notifier.Enabled() {
		return nil
	}
	seen := make(map[string]bool)
	for _, rep := range reports {
		prev, err := s.deps.Cache.GetReport(ctx, rep.EventID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				log.DebugContext(ctx, "cached report unavailable", slog.String("event_id", rep.EventID), slog.String("error", err.Error()))
			}
			continue
		}
		for _, f := range prev.Findings {
			seen[findingKey(f)] = true
		}
	}
	return seen
}

// findingKey identifies a finding independently of its ID and detection time.
func findingKey(f domain.Finding) string {
	point := "-"
	if f.Point != nil {
		point = strconv.FormatFloat(*f.Point, 'f', -1, 64)
	}
	return strings.Join([]string{f.EventID, string(f.Kind), f.Strategy, f.Market, point, f.Outcome}, "|")
}

func (s *ScanService) publish(ctx context.Context, log *slog.Logger, f domain.Finding) {
	if s.deps.Bus == nil {
		return
	}
	payload, err := json.Marshal(f)
	if err != nil {
		log.WarnContext(ctx, "marshal finding failed", slog.String("finding_id", f.ID), slog.String("error", err.Error()))
		return
	}
	if err := s.deps.Bus.Publish(ctx, domain.ChannelFindings, payload); err != nil {
		log.WarnContext(ctx, "publish finding failed", slog.String("finding_id", f.ID), slog.String("error", err.Error()))
	}
	if err := s.deps.Bus.StreamAppend(ctx, domain.StreamFindings, payload); err != nil {
		log.WarnContext(ctx, "stream finding failed", slog.String("finding_id", f.ID), slog.String("error", err.Error()))
	}
}

func (s *ScanService) audit(ctx context.Context, log *slog.Logger, res SportResult) {
	if s.deps.Audit == nil {
		return
	}
	logEntry := func(event string, detail map[string]any) {
		if err := s.deps.Audit.Log(ctx, event, detail); err != nil {
			log.WarnContext(ctx, "audit failed", slog.String("event", event), slog.String("error", err.Error()))
		}
	}
	for _, f := range res.Failures {
		logEntry("scan.event_failed", map[string]any{"sport": res.Sport, "event_id": f.EventID, "error": f.Error})
	}
	for _, id := range res.Skipped {
		logEntry("scan.event_skipped", map[string]any{"sport": res.Sport, "event_id": id})
	}
	for _, rep := range res.Reports {
		for _, fault := range rep.Faults {
			logEntry("scan.strategy_fault", map[string]any{
				"sport":    res.Sport,
				"event_id": rep.EventID,
				"strategy": fault.Strategy,
				"error":    fault.Error,
			})
		}
	}
}

func (s *ScanService) recordQuota(ctx context.Context, log *slog.Logger) {
	qr, ok := s.deps.Source.(quotaReporter)
	if !ok {
		return
	}
	q := qr.Quota()
	if q.UpdatedAt.IsZero() {
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.SetQuota(s.deps.Source.Name(), q.Remaining)
	}
	if s.deps.Quota != nil {
		if err := s.deps.Quota.SetQuota(ctx, q); err != nil {
			log.WarnContext(ctx, "store quota failed", slog.String("error", err.Error()))
		}
	}
}

func (s *ScanService) observe(sport string, started time.Time, err error) {
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveScan(sport, started, err)
	}
}

// Package scan turns provider events into per-event reports and arbitrage
// findings. Every event is processed independently; a failing event never
// voids the rest of its batch.
package scan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/arbitrage"
	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/odds"
)

// Summarizer builds one EventReport per event: normalised quotes, the
// best-line table and every strategy's findings.
type Summarizer struct {
	agg    *arbitrage.Aggregator
	logger *slog.Logger
	now    func() time.Time
}

// NewSummarizer creates a summarizer running the given aggregator.
func NewSummarizer(agg *arbitrage.Aggregator, logger *slog.Logger) *Summarizer {
	return &Summarizer{
		agg:    agg,
		logger: logger.With(slog.String("component", "summarizer")),
		now:    time.Now,
	}
}

// BatchResult is the outcome of summarising a batch of events. Reports holds
// every event that was summarised; Skipped names events without bookmakers.
type BatchResult struct {
	Reports  []domain.EventReport
	Failures []domain.EventFailure
	Skipped  []string
}

// Findings returns the findings of every report in batch order.
func (r BatchResult) Findings() []domain.Finding {
	var out []domain.Finding
	for _, rep := range r.Reports {
		out = append(out, rep.Findings...)
	}
	return out
}

// Summarize reports on a single event. It returns domain.ErrNoBookmakers for
// an event nobody quotes and a domain.ErrMalformedInput chain when a quote is
// missing a required field. Strategy faults do not fail the event; they are
// carried on the report.
func (s *Summarizer) Summarize(ctx context.Context, ev domain.Event) (domain.EventReport, error) {
	if len(ev.Bookmakers) == 0 {
		return domain.EventReport{}, fmt.Errorf("summarize %s: %w", ev.ID, domain.ErrNoBookmakers)
	}
	quotes, err := odds.Normalize(ev)
	if err != nil {
		return domain.EventReport{}, fmt.Errorf("summarize %s: %w", ev.ID, err)
	}

	table := odds.SelectBest(quotes)
	findings, faults := s.agg.Run(ctx, table)
	stamp(findings, ev, s.now().UTC())

	lastUpdate := odds.LatestUpdate(quotes)
	return domain.EventReport{
		EventID:      ev.ID,
		SportKey:     ev.SportKey,
		SportTitle:   ev.SportTitle,
		CommenceTime: ev.CommenceTime,
		HomeTeam:     ev.HomeTeam,
		AwayTeam:     ev.AwayTeam,
		Live:         !ev.CommenceTime.IsZero() && lastUpdate.After(ev.CommenceTime),
		LastUpdate:   lastUpdate,
		Quotes:       quotes,
		BestLines:    table,
		Findings:     findings,
		Faults:       faults,
	}, nil
}

// SummarizeBatch summarises every event in order. Events without bookmakers
// are skipped and other failures are recorded; neither stops the batch. A
// cancelled context ends the batch early with the results gathered so far.
func (s *Summarizer) SummarizeBatch(ctx context.Context, events []domain.Event) BatchResult {
	var res BatchResult
	for _, ev := range events {
		if ctx.Err() != nil {
			s.logger.Warn("batch cancelled",
				slog.Int("summarized", len(res.Reports)),
				slog.Int("remaining", len(events)-len(res.Reports)-len(res.Failures)-len(res.Skipped)),
			)
			break
		}
		rep, err := s.Summarize(ctx, ev)
		switch {
		case errors.Is(err, domain.ErrNoBookmakers):
			s.logger.Debug("event skipped", slog.String("event_id", ev.ID), slog.String("error", err.Error()))
			res.Skipped = append(res.Skipped, ev.ID)
		case err != nil:
			s.logger.Warn("event failed",
				slog.String("event_id", ev.ID),
				slog.String("sport", ev.SportKey),
				slog.String("error", err.Error()),
			)
			res.Failures = append(res.Failures, domain.EventFailure{
				EventID:  ev.ID,
				SportKey: ev.SportKey,
				Error:    err.Error(),
			})
		default:
			res.Reports = append(res.Reports, rep)
		}
	}
	return res
}

// stamp copies event metadata onto findings produced for that event.
func stamp(findings []domain.Finding, ev domain.Event, now time.Time) {
	for i := range findings {
		f := &findings[i]
		f.EventID = ev.ID
		f.SportKey = ev.SportKey
		f.SportTitle = ev.SportTitle
		f.CommenceTime = ev.CommenceTime
		f.DetectedAt = now
	}
}

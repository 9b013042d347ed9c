package scan

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/arbitrage"
	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/odds"
)

// DirectScanner reports best back and lay odds per head-to-head outcome for a
// batch of events, with Back Arb and Lay Arb findings. It is a projection of
// the same best-line selection the Summarizer uses, with lay prices taken at
// their minimum, and runs the same back and back/lay strategies.
type DirectScanner struct {
	agg    *arbitrage.Aggregator
	logger *slog.Logger
	now    func() time.Time
}

// NewDirectScanner creates a direct scanner.
func NewDirectScanner(logger *slog.Logger) *DirectScanner {
	return &DirectScanner{
		agg: arbitrage.NewAggregator([]arbitrage.Strategy{
			arbitrage.NewBack(logger),
			arbitrage.NewBackLay(logger),
		}, logger),
		logger: logger.With(slog.String("component", "direct_scanner")),
		now:    time.Now,
	}
}

// Scan returns all findings for the batch and exactly one summary per input
// event, whether or not arbitrage was found. Outcomes with a missing price or
// name are skipped.
func (d *DirectScanner) Scan(ctx context.Context, events []domain.Event) ([]domain.Finding, []domain.BestOddsSummary) {
	var findings []domain.Finding
	summaries := make([]domain.BestOddsSummary, 0, len(events))

	for _, ev := range events {
		table := d.headToHead(ev)

		summaries = append(summaries, domain.BestOddsSummary{
			EventID:      ev.ID,
			SportTitle:   ev.SportTitle,
			CommenceTime: ev.CommenceTime,
			BestBack:     bestOdds(table.Market(domain.MarketH2H)),
			BestLay:      bestOdds(table.Market(domain.MarketH2HLay)),
		})

		found, faults := d.agg.Run(ctx, table)
		for _, f := range faults {
			d.logger.Warn("strategy fault",
				slog.String("event_id", ev.ID),
				slog.String("strategy", f.Strategy),
				slog.String("error", f.Error),
			)
		}
		stamp(found, ev, d.now().UTC())
		findings = append(findings, found...)
	}
	return findings, summaries
}

// headToHead selects the best h2h back and h2h_lay prices of one event.
func (d *DirectScanner) headToHead(ev domain.Event) domain.BestLineTable {
	quotes, err := odds.Normalize(ev)
	if err != nil {
		d.logger.Debug("skipping malformed outcomes",
			slog.String("event_id", ev.ID),
			slog.String("error", err.Error()),
		)
	}
	h2h := quotes[:0]
	for _, q := range quotes {
		if domain.IsHeadToHead(q.Market) {
			h2h = append(h2h, q)
		}
	}
	return odds.SelectBackLay(h2h)
}

func bestOdds(rows domain.BestLineTable) map[string]domain.BestOdds {
	out := make(map[string]domain.BestOdds, len(rows))
	for _, row := range rows {
		out[row.Outcome] = domain.BestOdds{
			Price:             row.Price,
			ImpliedLikelihood: row.ImpliedLikelihood,
			Bookmakers:        append([]string(nil), row.Bookmakers...),
		}
	}
	return out
}

package arbitrage

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// Back finds two-way and N-way arbitrage on the h2h market: backing every
// outcome at its best price pays out for sure when the implied likelihoods sum
// to less than one.
type Back struct {
	logger *slog.Logger
}

// NewBack creates the head-to-head back strategy.
func NewBack(logger *slog.Logger) *Back {
	return &Back{logger: logger.With(slog.String("arb_strategy", "back"))}
}

// Name returns the strategy identifier.
func (b *Back) Name() string { return "back" }

// Detect returns one Back Arb finding when the best h2h implied likelihoods
// sum to strictly less than one.
//
// A market with a single quoted outcome still qualifies. That finding is a
// lone bet rather than a hedge, so it is logged at warn level with
// single_outcome=true.
func (b *Back) Detect(_ context.Context, table domain.BestLineTable) ([]domain.Finding, error) {
	rows := table.Market(domain.MarketH2H)
	if len(rows) == 0 {
		return nil, nil
	}
	sum := impliedSum(rows)
	if sum >= 1 {
		return nil, nil
	}

	f := newFinding(domain.KindBackArb, b.Name())
	f.Market = domain.MarketH2H
	f.ImpliedSum = sum
	f.BestBack = bestOddsByOutcome(rows)

	if len(rows) == 1 {
		b.logger.Warn("back arbitrage from single outcome",
			slog.String("outcome", rows[0].Outcome),
			slog.Float64("implied_sum", sum),
			slog.Bool("single_outcome", true),
		)
		return []domain.Finding{f}, nil
	}
	b.logger.Debug("back arbitrage detected",
		slog.Float64("implied_sum", sum),
		slog.Int("outcomes", len(rows)),
	)
	return []domain.Finding{f}, nil
}

// bestOddsByOutcome indexes best-line rows by outcome name.
func bestOddsByOutcome(rows domain.BestLineTable) map[string]domain.BestOdds {
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

package arbitrage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// Aggregator runs a fixed list of strategies against one table and
// concatenates their findings in list order.
type Aggregator struct {
	strategies []Strategy
	logger     *slog.Logger
}

// NewAggregator creates an aggregator over the given strategies.
func NewAggregator(strategies []Strategy, logger *slog.Logger) *Aggregator {
	return &Aggregator{
		strategies: strategies,
		logger:     logger.With(slog.String("component", "arb_aggregator")),
	}
}

// Strategies returns the names of the configured strategies in run order.
func (a *Aggregator) Strategies() []string {
	names := make([]string, len(a.strategies))
	for i, s := range a.strategies {
		names[i] = s.Name()
	}
	return names
}

// Run executes every strategy. A strategy that returns an error or panics is
// recorded as a StrategyFault; the others still run and their findings are
// returned.
func (a *Aggregator) Run(ctx context.Context, table domain.BestLineTable) ([]domain.Finding, []domain.StrategyFault) {
	var (
		findings []domain.Finding
		faults   []domain.StrategyFault
	)
	for _, s := range a.strategies {
		if err := ctx.Err(); err != nil {
			faults = append(faults, domain.StrategyFault{Strategy: s.Name(), Error: err.Error()})
			continue
		}
		out, err := a.detect(ctx, s, table)
		if err != nil {
			a.logger.Warn("strategy failed",
				slog.String("strategy", s.Name()),
				slog.String("error", err.Error()),
			)
			faults = append(faults, domain.StrategyFault{Strategy: s.Name(), Error: err.Error()})
			continue
		}
		findings = append(findings, out...)
	}
	return findings, faults
}

func (a *Aggregator) detect(ctx context.Context, s Strategy, table domain.BestLineTable) (out []domain.Finding, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("%w: %s: panic: %v", domain.ErrStrategyFault, s.Name(), r)
		}
	}()
	out, err = s.Detect(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrStrategyFault, s.Name(), err)
	}
	return out, nil
}

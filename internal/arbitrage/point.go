package arbitrage

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// PointSymmetric looks for arbitrage on handicap and totals markets by pairing
// the +p and -p lines of each market.
//
// A pair with only one side quoted is still summed. Such a sum is a single bet
// rather than a hedge, so these findings are logged at warn level with
// one_sided=true for the operator to discount.
type PointSymmetric struct {
	logger *slog.Logger
}

// NewPointSymmetric creates the point-symmetric strategy.
func NewPointSymmetric(logger *slog.Logger) *PointSymmetric {
	return &PointSymmetric{logger: logger.With(slog.String("arb_strategy", "point"))}
}

// Name returns the strategy identifier.
func (s *PointSymmetric) Name() string { return "point" }

// Detect evaluates every (market, |point|) combination independently. Rows
// without a point are ignored.
func (s *PointSymmetric) Detect(_ context.Context, table domain.BestLineTable) ([]domain.Finding, error) {
	var findings []domain.Finding
	for _, market := range table.PointMarkets() {
		rows := table.Market(market)

		var points []float64
		seen := make(map[float64]bool)
		for _, row := range rows {
			if row.Point == nil {
				continue
			}
			p := absPoint(*row.Point)
			if !seen[p] {
				seen[p] = true
				points = append(points, p)
			}
		}

		for _, p := range points {
			var pair domain.BestLineTable
			signs := make(map[bool]bool)
			for _, row := range rows {
				if row.Point != nil && absPoint(*row.Point) == p {
					pair = append(pair, row)
					signs[*row.Point < 0] = true
				}
			}
			sum := impliedSum(pair)
			if sum >= 1 {
				continue
			}

			point := p
			f := newFinding(domain.KindPointArb, s.Name())
			f.Market = market
			f.Point = &point
			f.ImpliedSum = sum
			findings = append(findings, f)

			if p != 0 && len(signs) < 2 {
				s.logger.Warn("point arbitrage from one-sided pair",
					slog.String("market", market),
					slog.Float64("point", p),
					slog.Float64("implied_sum", sum),
					slog.Bool("one_sided", true),
				)
				continue
			}
			s.logger.Debug("point arbitrage detected",
				slog.String("market", market),
				slog.Float64("point", p),
				slog.Float64("implied_sum", sum),
			)
		}
	}
	return findings, nil
}

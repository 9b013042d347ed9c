// Package arbitrage detects risk-free price combinations in one event's
// best-line table. Each strategy is independent; the Aggregator runs them in a
// fixed order and isolates their failures from one another.
package arbitrage

import (
	"context"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// Strategy inspects one event's best-line table and returns zero or more
// findings. Strategies must not retain the table or share state across calls.
type Strategy interface {
	Name() string
	Detect(ctx context.Context, table domain.BestLineTable) ([]domain.Finding, error)
}

func newFinding(kind domain.FindingKind, strategy string) domain.Finding {
	return domain.Finding{
		ID:         uuid.NewString(),
		Kind:       kind,
		Strategy:   strategy,
		DetectedAt: time.Now().UTC(),
	}
}

// impliedSum adds implied likelihoods exactly and rounds the total to eight
// decimal places.
func impliedSum(rows domain.BestLineTable) float64 {
	sum := decimal.Zero
	for _, row := range rows {
		sum = sum.Add(decimal.NewFromFloat(row.ImpliedLikelihood))
	}
	v, _ := sum.Round(8).Float64()
	return v
}

// absPoint returns |p| with -0 folded into 0.
func absPoint(p float64) float64 {
	p = math.Abs(p)
	if p == 0 {
		return 0
	}
	return p
}

package arbitrage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// LayAllocationConfig configures the N-way lay allocation strategy.
type LayAllocationConfig struct {
	TotalStake float64 // budget split across the lay bets
	Fee        float64 // commission on winnings, 0 <= Fee < 1
}

// LayAllocation sizes lay stakes across every outcome of the h2h_lay market.
type LayAllocation struct {
	cfg    LayAllocationConfig
	solver Solver
	logger *slog.Logger
}

// NewLayAllocation creates the lay allocation strategy. A nil solver uses
// EqualProfitSolver.
func NewLayAllocation(cfg LayAllocationConfig, solver Solver, logger *slog.Logger) *LayAllocation {
	if solver == nil {
		solver = EqualProfitSolver{}
	}
	return &LayAllocation{
		cfg:    cfg,
		solver: solver,
		logger: logger.With(slog.String("arb_strategy", "lay_allocation")),
	}
}

// Name returns the strategy identifier.
func (s *LayAllocation) Name() string { return "lay_allocation" }

// Detect solves the allocation for the h2h_lay rows. An infeasible problem is
// not an error and yields no finding.
func (s *LayAllocation) Detect(ctx context.Context, table domain.BestLineTable) ([]domain.Finding, error) {
	rows := table.Market(domain.MarketH2HLay)
	if len(rows) == 0 {
		return nil, nil
	}

	outcomes := make([]string, len(rows))
	layOdds := make([]float64, len(rows))
	for i, row := range rows {
		outcomes[i] = row.Outcome
		layOdds[i] = row.Price
	}

	stakes, err := s.solver.Solve(ctx, AllocationProblem{
		LayOdds: layOdds,
		Budget:  s.cfg.TotalStake,
		Fee:     s.cfg.Fee,
	})
	if errors.Is(err, domain.ErrInfeasible) {
		s.logger.Debug("lay allocation infeasible", slog.String("reason", err.Error()))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lay allocation: solve: %w", err)
	}
	if len(stakes) != len(layOdds) {
		return nil, fmt.Errorf("lay allocation: solver returned %d stakes for %d outcomes", len(stakes), len(layOdds))
	}

	alloc := settle(outcomes, layOdds, stakes, s.cfg.TotalStake, s.cfg.Fee)

	f := newFinding(domain.KindLayAllocation, s.Name())
	f.Market = domain.MarketH2HLay
	f.Allocation = &alloc

	s.logger.Debug("lay allocation computed",
		slog.Int("outcomes", len(outcomes)),
		slog.Float64("min_profit", alloc.MinProfit()),
		slog.Bool("is_arbitrage", alloc.IsArbitrage),
	)
	return []domain.Finding{f}, nil
}

// settle rounds stakes to cents, moves the rounding residual onto the largest
// stake so the total matches the budget, then recomputes every profit exactly
// from the rounded stakes. IsArbitrage reflects the exact profits; the
// reported profits are rounded to cents.
func settle(outcomes []string, layOdds, raw []float64, budget, fee float64) domain.LayAllocation {
	n := len(raw)
	stakes := make([]decimal.Decimal, n)
	total := decimal.Zero
	largest := 0
	for i, v := range raw {
		stakes[i] = decimal.NewFromFloat(v).Round(2)
		total = total.Add(stakes[i])
		if stakes[i].GreaterThan(stakes[largest]) {
			largest = i
		}
	}
	b := decimal.NewFromFloat(budget).Round(2)
	if residual := b.Sub(total); !residual.IsZero() {
		stakes[largest] = stakes[largest].Add(residual)
		if stakes[largest].IsNegative() {
			stakes[largest] = decimal.Zero
		}
	}

	keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(fee))
	one := decimal.NewFromInt(1)

	alloc := domain.LayAllocation{
		Outcomes:    append([]string(nil), outcomes...),
		LayOdds:     append([]float64(nil), layOdds...),
		Stakes:      make([]float64, n),
		Profits:     make(map[string]float64, n),
		TotalStake:  budget,
		Fee:         fee,
		IsArbitrage: true,
	}
	for i := range stakes {
		alloc.Stakes[i] = stakes[i].InexactFloat64()

		profit := decimal.Zero
		for j := range stakes {
			if j == i {
				liability := stakes[j].Mul(decimal.NewFromFloat(layOdds[j]).Sub(one))
				profit = profit.Sub(liability)
				continue
			}
			profit = profit.Add(stakes[j].Mul(keep))
		}
		if profit.IsNegative() {
			alloc.IsArbitrage = false
		}
		alloc.Profits[outcomes[i]] = profit.Round(2).InexactFloat64()
	}
	return alloc
}

package arbitrage

import (
	"context"
	"fmt"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// AllocationProblem describes an N-way lay allocation: lay every outcome so
// that the minimum profit across outcomes is maximised, subject to the stakes
// summing to Budget. Fee is the proportional commission charged on winnings.
//
// If outcome i wins, the profit is
//
//	-s_i*(L_i-1) + sum_{j!=i} s_j*(1-Fee)
type AllocationProblem struct {
	LayOdds []float64
	Budget  float64
	Fee     float64
}

// Solver computes a stake vector for an AllocationProblem. Implementations
// return domain.ErrInfeasible when no non-negative split guarantees every
// profit is at least zero. Solvers hold no state between calls.
type Solver interface {
	Solve(ctx context.Context, p AllocationProblem) ([]float64, error)
}

// EqualProfitSolver solves the allocation in closed form. Profit for outcome i
// simplifies to (1-f)B - s_i(L_i-f), which is linear in s_i alone, so the
// max-min optimum equalises every profit: s_i = k/(L_i-f) with
// k = B / sum(1/(L_j-f)). The split is feasible iff (1-f)*sum(1/(L_j-f)) >= 1.
type EqualProfitSolver struct{}

var _ Solver = EqualProfitSolver{}

// Solve returns the equal-profit stakes or domain.ErrInfeasible.
func (EqualProfitSolver) Solve(ctx context.Context, p AllocationProblem) ([]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.validate(); err != nil {
		return nil, err
	}

	var inv float64
	for _, l := range p.LayOdds {
		inv += 1 / (l - p.Fee)
	}
	if (1-p.Fee)*inv < 1 {
		return nil, fmt.Errorf("%w: (1-fee)*sum(1/(odds-fee)) = %.6f", domain.ErrInfeasible, (1-p.Fee)*inv)
	}

	k := p.Budget / inv
	stakes := make([]float64, len(p.LayOdds))
	for i, l := range p.LayOdds {
		stakes[i] = clamp(k/(l-p.Fee), 0, p.Budget)
	}
	return stakes, nil
}

func (p AllocationProblem) validate() error {
	if len(p.LayOdds) == 0 {
		return fmt.Errorf("%w: no lay odds", domain.ErrMalformedInput)
	}
	if p.Budget <= 0 {
		return fmt.Errorf("%w: budget %v must be positive", domain.ErrMalformedInput, p.Budget)
	}
	if p.Fee < 0 || p.Fee >= 1 {
		return fmt.Errorf("%w: fee %v outside [0, 1)", domain.ErrMalformedInput, p.Fee)
	}
	for i, l := range p.LayOdds {
		if l-p.Fee <= 0 {
			return fmt.Errorf("%w: lay odds %v at #%d do not exceed fee %v", domain.ErrMalformedInput, l, i, p.Fee)
		}
	}
	return nil
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

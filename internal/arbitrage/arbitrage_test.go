package arbitrage

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/odds"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(v float64) *float64 { return &v }

func q(company, market, outcome string, price float64, point *float64) domain.Quote {
	return domain.Quote{Company: company, Market: market, Outcome: outcome, Price: price, Point: point}
}

func TestBack_TwoWayArbitrage(t *testing.T) {
	table := odds.SelectBest([]domain.Quote{
		q("A", "h2h", "Home", 2.10, nil),
		q("B", "h2h", "Away", 2.20, nil),
		q("C", "h2h", "Away", 1.90, nil),
	})

	findings, err := NewBack(testLogger()).Detect(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, domain.KindBackArb, f.Kind)
	assert.InDelta(t, 0.93073593, f.ImpliedSum, 1e-8)
	assert.NotEmpty(t, f.ID)
	require.Contains(t, f.BestBack, "Away")
	assert.Equal(t, []string{"B"}, f.BestBack["Away"].Bookmakers)
}

func TestBack_NoArbitrage(t *testing.T) {
	tests := []struct {
		name   string
		quotes []domain.Quote
	}{
		{"sum above one", []domain.Quote{
			q("A", "h2h", "Home", 1.90, nil),
			q("A", "h2h", "Away", 1.90, nil),
		}},
		{"sum exactly one", []domain.Quote{
			q("A", "h2h", "Home", 2.00, nil),
			q("A", "h2h", "Away", 2.00, nil),
		}},
		{"single outcome above one", []domain.Quote{
			q("A", "h2h", "Home", 0.90, nil),
		}},
		{"lay rows only", []domain.Quote{
			q("A", "h2h_lay", "Home", 5.00, nil),
			q("A", "h2h_lay", "Away", 5.00, nil),
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, err := NewBack(testLogger()).Detect(context.Background(), odds.SelectBest(tt.quotes))
			require.NoError(t, err)
			assert.Empty(t, findings)
		})
	}
}

func TestBack_SingleOutcomeStillSummed(t *testing.T) {
	table := odds.SelectBest([]domain.Quote{
		q("A", "h2h", "Home", 3.00, nil),
	})

	findings, err := NewBack(testLogger()).Detect(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, domain.KindBackArb, f.Kind)
	assert.InDelta(t, 0.33333333, f.ImpliedSum, 1e-8)
	require.Contains(t, f.BestBack, "Home")
	assert.Equal(t, []string{"A"}, f.BestBack["Home"].Bookmakers)
}

func TestBack_EmptyMarket(t *testing.T) {
	findings, err := NewBack(testLogger()).Detect(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestPointSymmetric_SpreadPair(t *testing.T) {
	table := odds.SelectBest([]domain.Quote{
		q("A", "spreads", "Home", 2.00, ptr(3.5)),
		q("B", "spreads", "Away", 2.05, ptr(-3.5)),
		q("A", "spreads", "Home", 1.50, ptr(7.5)),
		q("B", "spreads", "Away", 1.50, ptr(-7.5)),
	})

	findings, err := NewPointSymmetric(testLogger()).Detect(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	f := findings[0]
	assert.Equal(t, domain.KindPointArb, f.Kind)
	assert.Equal(t, "spreads", f.Market)
	require.NotNil(t, f.Point)
	assert.Equal(t, 3.5, *f.Point)
	assert.InDelta(t, 0.98780488, f.ImpliedSum, 1e-8)
}

func TestPointSymmetric_MarketsEvaluatedIndependently(t *testing.T) {
	table := odds.SelectBest([]domain.Quote{
		q("A", "totals", "Over", 2.10, ptr(2.5)),
		q("A", "totals", "Under", 2.10, ptr(2.5)),
		q("A", "totals", "Over", 2.05, ptr(3.5)),
		q("A", "totals", "Under", 2.05, ptr(3.5)),
		q("A", "spreads", "Home", 2.10, ptr(-1.5)),
		q("A", "spreads", "Away", 2.10, ptr(1.5)),
	})

	findings, err := NewPointSymmetric(testLogger()).Detect(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, findings, 3)
	assert.Equal(t, "totals", findings[0].Market)
	assert.Equal(t, 2.5, *findings[0].Point)
	assert.Equal(t, "totals", findings[1].Market)
	assert.Equal(t, 3.5, *findings[1].Point)
	assert.Equal(t, "spreads", findings[2].Market)
	assert.Equal(t, 1.5, *findings[2].Point)
}

func TestPointSymmetric_OneSidedPairStillSummed(t *testing.T) {
	table := odds.SelectBest([]domain.Quote{
		q("A", "spreads", "Home", 1.80, ptr(4.5)),
	})

	findings, err := NewPointSymmetric(testLogger()).Detect(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.InDelta(t, 0.55555556, findings[0].ImpliedSum, 1e-8)
}

func TestBackLay(t *testing.T) {
	tests := []struct {
		name     string
		layPrice float64
		want     int
	}{
		{"lay below back", 2.30, 1},
		{"lay above back", 2.60, 0},
		{"lay equals back", 2.50, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := odds.SelectBest([]domain.Quote{
				q("A", "h2h", "Home", 2.50, nil),
				q("X", "h2h_lay", "Home", tt.layPrice, nil),
			})
			findings, err := NewBackLay(testLogger()).Detect(context.Background(), table)
			require.NoError(t, err)
			require.Len(t, findings, tt.want)
			if tt.want == 0 {
				return
			}
			f := findings[0]
			assert.Equal(t, domain.KindLayArb, f.Kind)
			assert.Equal(t, "Home", f.Outcome)
			assert.Equal(t, 2.50, f.BackPrice)
			assert.Equal(t, tt.layPrice, f.LayPrice)
			assert.Equal(t, []string{"A"}, f.BackBookmakers)
			assert.Equal(t, []string{"X"}, f.LayBookmakers)
		})
	}
}

func TestBackLay_SkipsOutcomesMissingASide(t *testing.T) {
	table := odds.SelectBest([]domain.Quote{
		q("A", "h2h", "Home", 2.50, nil),
		q("X", "h2h_lay", "Away", 1.20, nil),
	})
	findings, err := NewBackLay(testLogger()).Detect(context.Background(), table)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestLayAllocation_EvenSplit(t *testing.T) {
	table := odds.SelectBest([]domain.Quote{
		q("X", "h2h_lay", "Home", 1.9, nil),
		q("X", "h2h_lay", "Away", 1.9, nil),
	})
	s := NewLayAllocation(LayAllocationConfig{TotalStake: 100}, nil, testLogger())

	findings, err := s.Detect(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, findings, 1)

	alloc := findings[0].Allocation
	require.NotNil(t, alloc)
	assert.Equal(t, []string{"Home", "Away"}, alloc.Outcomes)
	assert.Equal(t, []float64{50, 50}, alloc.Stakes)
	assert.Equal(t, 5.0, alloc.Profits["Home"])
	assert.Equal(t, 5.0, alloc.Profits["Away"])
	assert.True(t, alloc.IsArbitrage)
	assert.Equal(t, 5.0, alloc.MinProfit())
}

func TestLayAllocation_InfeasibleYieldsNoFinding(t *testing.T) {
	table := odds.SelectBest([]domain.Quote{
		q("X", "h2h_lay", "Home", 2.2, nil),
		q("X", "h2h_lay", "Away", 2.2, nil),
	})
	s := NewLayAllocation(LayAllocationConfig{TotalStake: 100}, nil, testLogger())

	findings, err := s.Detect(context.Background(), table)
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestLayAllocation_RoundedStakesAreConsistent(t *testing.T) {
	cases := []struct {
		odds   []float64
		budget float64
		fee    float64
	}{
		{[]float64{1.5, 3.2, 4.1}, 100, 0},
		{[]float64{1.5, 3.2, 4.1}, 250, 0.05},
		{[]float64{1.3, 2.0}, 33.33, 0.02},
		{[]float64{2.9, 2.95, 3.05}, 1000, 0},
		{[]float64{1.01, 1.5}, 10, 0},
	}
	names := []string{"A", "B", "C"}

	for _, tc := range cases {
		var quotes []domain.Quote
		for i, o := range tc.odds {
			quotes = append(quotes, q("X", "h2h_lay", names[i], o, nil))
		}
		s := NewLayAllocation(LayAllocationConfig{TotalStake: tc.budget, Fee: tc.fee}, nil, testLogger())
		findings, err := s.Detect(context.Background(), odds.SelectBest(quotes))
		require.NoError(t, err)
		require.Len(t, findings, 1, "odds %v", tc.odds)
		alloc := findings[0].Allocation

		total := decimal.Zero
		for _, st := range alloc.Stakes {
			assert.GreaterOrEqual(t, st, 0.0)
			assert.LessOrEqual(t, st, tc.budget)
			total = total.Add(decimal.NewFromFloat(st))
		}
		assert.True(t, total.Equal(decimal.NewFromFloat(tc.budget).Round(2)), "stakes %v sum to %s", alloc.Stakes, total)

		keep := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(tc.fee))
		allNonNegative := true
		for i := range alloc.Stakes {
			profit := decimal.Zero
			for j, st := range alloc.Stakes {
				stake := decimal.NewFromFloat(st)
				if i == j {
					profit = profit.Sub(stake.Mul(decimal.NewFromFloat(tc.odds[j]).Sub(decimal.NewFromInt(1))))
				} else {
					profit = profit.Add(stake.Mul(keep))
				}
			}
			if profit.IsNegative() {
				allNonNegative = false
			}
			assert.InDelta(t, profit.InexactFloat64(), alloc.Profits[names[i]], 0.005)
		}
		assert.Equal(t, allNonNegative, alloc.IsArbitrage, "odds %v", tc.odds)
	}
}

type fixedSolver struct {
	stakes []float64
	calls  int
}

func (s *fixedSolver) Solve(_ context.Context, _ AllocationProblem) ([]float64, error) {
	s.calls++
	return s.stakes, nil
}

func TestLayAllocation_PluggableSolver(t *testing.T) {
	solver := &fixedSolver{stakes: []float64{30, 70}}
	table := odds.SelectBest([]domain.Quote{
		q("X", "h2h_lay", "Home", 1.9, nil),
		q("X", "h2h_lay", "Away", 1.9, nil),
	})
	s := NewLayAllocation(LayAllocationConfig{TotalStake: 100}, solver, testLogger())

	findings, err := s.Detect(context.Background(), table)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, 1, solver.calls)

	alloc := findings[0].Allocation
	assert.Equal(t, []float64{30, 70}, alloc.Stakes)
	assert.Equal(t, 43.0, alloc.Profits["Home"])
	assert.Equal(t, -33.0, alloc.Profits["Away"])
	assert.False(t, alloc.IsArbitrage)
}

func TestEqualProfitSolver_RejectsOddsNotAboveFee(t *testing.T) {
	_, err := EqualProfitSolver{}.Solve(context.Background(), AllocationProblem{
		LayOdds: []float64{0.5, 2},
		Budget:  100,
		Fee:     0.6,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrMalformedInput)
}

func TestHeadToHeadOnlyNeverProducesLayFindings(t *testing.T) {
	agg := NewAggregator(defaultStrategies(t), testLogger())
	for _, prices := range [][2]float64{{1.5, 1.5}, {2.5, 2.5}, {10, 10}, {1.01, 100}} {
		table := odds.SelectBest([]domain.Quote{
			q("A", "h2h", "Home", prices[0], nil),
			q("B", "h2h", "Away", prices[1], nil),
		})
		findings, faults := agg.Run(context.Background(), table)
		assert.Empty(t, faults)
		for _, f := range findings {
			assert.NotEqual(t, domain.KindLayArb, f.Kind)
			assert.NotEqual(t, domain.KindLayAllocation, f.Kind)
		}
	}
}

func TestAggregator_DeclarationOrder(t *testing.T) {
	table := odds.SelectBest([]domain.Quote{
		q("A", "h2h", "Home", 2.10, nil),
		q("A", "h2h", "Away", 2.20, nil),
		q("X", "h2h_lay", "Home", 1.90, nil),
		q("X", "h2h_lay", "Away", 1.90, nil),
		q("A", "spreads", "Home", 2.00, ptr(3.5)),
		q("A", "spreads", "Away", 2.05, ptr(-3.5)),
	})

	findings, faults := NewAggregator(defaultStrategies(t), testLogger()).Run(context.Background(), table)
	require.Empty(t, faults)

	var kinds []domain.FindingKind
	for _, f := range findings {
		kinds = append(kinds, f.Kind)
	}
	assert.Equal(t, []domain.FindingKind{
		domain.KindBackArb,
		domain.KindLayArb,
		domain.KindLayArb,
		domain.KindLayAllocation,
		domain.KindPointArb,
	}, kinds)
}

type fakeStrategy struct {
	name     string
	err      error
	panicked bool
	findings []domain.Finding
}

func (f fakeStrategy) Name() string { return f.name }

func (f fakeStrategy) Detect(context.Context, domain.BestLineTable) ([]domain.Finding, error) {
	if f.panicked {
		var m map[string]int
		m["boom"]++
	}
	return f.findings, f.err
}

func TestAggregator_IsolatesFaults(t *testing.T) {
	agg := NewAggregator([]Strategy{
		fakeStrategy{name: "first", findings: []domain.Finding{{ID: "1"}}},
		fakeStrategy{name: "broken", err: errors.New("missing column")},
		fakeStrategy{name: "panics", panicked: true},
		fakeStrategy{name: "last", findings: []domain.Finding{{ID: "2"}}},
	}, testLogger())

	findings, faults := agg.Run(context.Background(), nil)
	require.Len(t, findings, 2)
	assert.Equal(t, "1", findings[0].ID)
	assert.Equal(t, "2", findings[1].ID)

	require.Len(t, faults, 2)
	assert.Equal(t, "broken", faults[0].Strategy)
	assert.Contains(t, faults[0].Error, "missing column")
	assert.Equal(t, "panics", faults[1].Strategy)
	assert.Contains(t, faults[1].Error, "panic")
}

func TestRegistry_Select(t *testing.T) {
	reg := NewDefaultRegistry(LayAllocationConfig{TotalStake: 100}, nil, testLogger())
	assert.Equal(t, []string{"back", "back_lay", "lay_allocation", "point"}, reg.List())

	all, err := reg.Select(nil)
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, "back", all[0].Name())
	assert.Equal(t, "point", all[3].Name())

	some, err := reg.Select([]string{"point", " back "})
	require.NoError(t, err)
	assert.Equal(t, "point", some[0].Name())
	assert.Equal(t, "back", some[1].Name())

	_, err = reg.Select([]string{"back", "back"})
	assert.Error(t, err)
	_, err = reg.Select([]string{"martingale"})
	assert.Error(t, err)
}

func defaultStrategies(t *testing.T) []Strategy {
	t.Helper()
	strategies, err := NewDefaultRegistry(LayAllocationConfig{TotalStake: 100}, nil, testLogger()).Select(nil)
	require.NoError(t, err)
	return strategies
}

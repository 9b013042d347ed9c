package arbitrage

import (
	"context"
	"log/slog"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// BackLay compares the best back price with the cheapest lay price of each
// head-to-head outcome. Backing at B and laying at L < B locks in a profit.
type BackLay struct {
	logger *slog.Logger
}

// NewBackLay creates the back-vs-lay strategy.
func NewBackLay(logger *slog.Logger) *BackLay {
	return &BackLay{logger: logger.With(slog.String("arb_strategy", "back_lay"))}
}

// Name returns the strategy identifier.
func (s *BackLay) Name() string { return "back_lay" }

// Detect runs only when the table carries an h2h_lay row. It emits one Lay Arb
// finding per outcome whose minimum lay price is strictly below its maximum
// back price. Outcomes missing either side are skipped.
func (s *BackLay) Detect(_ context.Context, table domain.BestLineTable) ([]domain.Finding, error) {
	if !table.HasMarket(domain.MarketH2HLay) {
		return nil, nil
	}
	backRows := table.Market(domain.MarketH2H)
	layRows := table.Market(domain.MarketH2HLay)

	var findings []domain.Finding
	for _, outcome := range table.HeadToHead().Outcomes() {
		back, ok := extreme(backRows, outcome, func(a, b float64) bool { return a > b })
		if !ok {
			continue
		}
		lay, ok := extreme(layRows, outcome, func(a, b float64) bool { return a < b })
		if !ok {
			continue
		}
		if lay.Price >= back.Price {
			continue
		}

		f := newFinding(domain.KindLayArb, s.Name())
		f.Market = domain.MarketH2HLay
		f.Outcome = outcome
		f.BackPrice = back.Price
		f.LayPrice = lay.Price
		f.BackBookmakers = back.Bookmakers
		f.LayBookmakers = lay.Bookmakers
		findings = append(findings, f)

		s.logger.Debug("back/lay arbitrage detected",
			slog.String("outcome", outcome),
			slog.Float64("back", back.Price),
			slog.Float64("lay", lay.Price),
		)
	}
	return findings, nil
}

// extreme returns the preferred price among rows for outcome, merging the
// bookmakers of every row at that price.
func extreme(rows domain.BestLineTable, outcome string, prefer func(a, b float64) bool) (domain.BestOdds, bool) {
	var (
		best  domain.BestOdds
		found bool
	)
	for _, row := range rows {
		if row.Outcome != outcome {
			continue
		}
		switch {
		case !found || prefer(row.Price, best.Price):
			best = domain.BestOdds{
				Price:             row.Price,
				ImpliedLikelihood: row.ImpliedLikelihood,
				Bookmakers:        append([]string(nil), row.Bookmakers...),
			}
			found = true
		case row.Price == best.Price:
			for _, bk := range row.Bookmakers {
				best.Bookmakers = appendUnique(best.Bookmakers, bk)
			}
		}
	}
	return best, found
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

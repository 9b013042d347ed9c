package odds

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// impliedPlaces is the number of decimal places implied likelihoods are
// rounded to.
const impliedPlaces = 8

// better reports whether candidate beats current for the given market.
type better func(market string, candidate, current float64) bool

// highest prefers the maximum price in every market.
func highest(_ string, candidate, current float64) bool {
	return candidate > current
}

// highestBackLowestLay prefers the maximum price on back markets and the
// minimum price on the h2h_lay market.
func highestBackLowestLay(market string, candidate, current float64) bool {
	if market == domain.MarketH2HLay {
		return candidate < current
	}
	return candidate > current
}

// SelectBest groups quotes by line and keeps the maximum price of each line.
// Head-to-head lines are keyed by (market, outcome); every other market is
// additionally keyed by point. All companies tied at the best price are kept.
// Rows are returned in the order their line was first seen.
func SelectBest(quotes []domain.Quote) domain.BestLineTable {
	return selectLines(quotes, highest)
}

// SelectBackLay is SelectBest with the h2h_lay market preferring the lowest
// price, which is the cheapest lay available for each outcome.
func SelectBackLay(quotes []domain.Quote) domain.BestLineTable {
	return selectLines(quotes, highestBackLowestLay)
}

func selectLines(quotes []domain.Quote, prefer better) domain.BestLineTable {
	index := make(map[string]int)
	var table domain.BestLineTable

	for _, q := range quotes {
		line := domain.LineOf(q)
		key := lineKey(line)

		i, ok := index[key]
		if !ok {
			index[key] = len(table)
			table = append(table, domain.BestLine{
				Market:     line.Market,
				Outcome:    line.Outcome,
				Point:      line.Point,
				Price:      q.Price,
				Bookmakers: []string{q.Company},
			})
			continue
		}

		row := &table[i]
		switch {
		case prefer(q.Market, q.Price, row.Price):
			row.Price = q.Price
			row.Bookmakers = []string{q.Company}
		case q.Price == row.Price:
			row.Bookmakers = appendUnique(row.Bookmakers, q.Company)
		}
	}

	for i := range table {
		table[i].ImpliedLikelihood = ImpliedLikelihood(table[i].Price)
	}
	return table
}

// ImpliedLikelihood returns 1/price rounded to eight decimal places.
func ImpliedLikelihood(price float64) float64 {
	v, _ := decimal.NewFromInt(1).DivRound(decimal.NewFromFloat(price), impliedPlaces).Float64()
	return v
}

// lineKey encodes a line as a map key. A nil point and a zero point are
// distinct lines.
func lineKey(l domain.Line) string {
	key := l.Market + "\x00" + l.Outcome
	if l.Point != nil {
		p := *l.Point
		if p == 0 {
			p = 0 // fold -0 into 0
		}
		key += "\x00" + strconv.FormatFloat(p, 'g', -1, 64)
	}
	return key
}

func appendUnique(list []string, s string) []string {
	for _, v := range list {
		if v == s {
			return list
		}
	}
	return append(list, s)
}

package domain

import "time"

// FindingKind tags an arbitrage finding with the strategy family that
// produced it.
type FindingKind string

const (
	KindBackArb       FindingKind = "Back Arb"
	KindLayArb        FindingKind = "Lay Arb"
	KindPointArb      FindingKind = "Point Arb"
	KindLayAllocation FindingKind = "Lay Allocation"
)

// Finding is a detected arbitrage. Only the fields relevant to Kind are set:
//
//   - Back Arb / Point Arb: ImpliedSum (< 1), plus Market/Point for Point Arb
//     and BestBack for findings produced by the direct scanner.
//   - Lay Arb: Outcome, BackPrice, LayPrice and the contributing bookmakers.
//   - Lay Allocation: Allocation.
type Finding struct {
	ID           string      `json:"id"`
	Kind         FindingKind `json:"type"`
	Strategy     string      `json:"strategy"`
	EventID      string      `json:"eventId,omitempty"`
	SportKey     string      `json:"sport,omitempty"`
	SportTitle   string      `json:"sportTitle,omitempty"`
	CommenceTime time.Time   `json:"commenceTime"`

	Market     string   `json:"market,omitempty"`
	Point      *float64 `json:"point,omitempty"`
	Outcome    string   `json:"team,omitempty"`
	ImpliedSum float64  `json:"payOut,omitempty"`

	BackPrice      float64  `json:"backOdds,omitempty"`
	LayPrice       float64  `json:"layOdds,omitempty"`
	BackBookmakers []string `json:"backBookmakers,omitempty"`
	LayBookmakers  []string `json:"layBookmakers,omitempty"`

	BestBack   map[string]BestOdds `json:"bestOdds,omitempty"`
	Allocation *LayAllocation      `json:"allocation,omitempty"`

	DetectedAt time.Time `json:"detectedAt"`
}

// LayAllocation is a stake split across lay bets on every outcome of a market.
// Stakes and Profits are rounded to cents; Profits are recomputed from the
// rounded stakes.
type LayAllocation struct {
	Outcomes    []string           `json:"outcomes"`
	LayOdds     []float64          `json:"layOdds"`
	Stakes      []float64          `json:"bets"`
	Profits     map[string]float64 `json:"profitsPerOutcome"`
	TotalStake  float64            `json:"totalStake"`
	Fee         float64            `json:"fee"`
	IsArbitrage bool               `json:"isArbitrage"`
}

// MinProfit returns the smallest per-outcome profit of the allocation.
func (a LayAllocation) MinProfit() float64 {
	first := true
	var lowest float64
	for _, p := range a.Profits {
		if first || p < lowest {
			lowest = p
			first = false
		}
	}
	return lowest
}

// BestOdds is the best price for one outcome together with every bookmaker
// offering it.
type BestOdds struct {
	Price             float64  `json:"price"`
	ImpliedLikelihood float64  `json:"impliedLikelihood"`
	Bookmakers        []string `json:"bookmakers"`
}

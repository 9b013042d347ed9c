package domain

import "time"

// StrategyFault records a strategy that failed while scanning one event. The
// remaining strategies still contribute their findings.
type StrategyFault struct {
	Strategy string `json:"strategy"`
	Error    string `json:"error"`
}

// EventReport is the per-event result of a scan. It is built once and not
// mutated afterwards.
type EventReport struct {
	EventID      string          `json:"eventId"`
	SportKey     string          `json:"sport"`
	SportTitle   string          `json:"sportTitle"`
	CommenceTime time.Time       `json:"commencement"`
	HomeTeam     string          `json:"homeTeam"`
	AwayTeam     string          `json:"awayTeam"`
	Live         bool            `json:"liveMatch"`
	LastUpdate   time.Time       `json:"lastUpdate"`
	Quotes       []Quote         `json:"odds"`
	BestLines    BestLineTable   `json:"bestOdds"`
	Findings     []Finding       `json:"arbitrage"`
	Faults       []StrategyFault `json:"faults,omitempty"`
}

// BestOddsSummary is the direct scanner's per-event view of the best back and
// lay price for every head-to-head outcome.
type BestOddsSummary struct {
	EventID      string              `json:"eventId"`
	SportTitle   string              `json:"sportTitle"`
	CommenceTime time.Time           `json:"commenceTime"`
	BestBack     map[string]BestOdds `json:"bestOdds"`
	BestLay      map[string]BestOdds `json:"bestLayOdds"`
}

// EventFailure names an event that could not be summarised.
type EventFailure struct {
	EventID  string `json:"eventId"`
	SportKey string `json:"sport"`
	Error    string `json:"error"`
}

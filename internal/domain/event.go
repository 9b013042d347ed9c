package domain

import "time"

// Market keys understood by the scanner. Any other key is treated as a
// point-based market (spreads, totals, alternate lines).
const (
	MarketH2H    = "h2h"
	MarketH2HLay = "h2h_lay"
)

// IsHeadToHead reports whether the market key is a head-to-head market whose
// lines are keyed by outcome only.
func IsHeadToHead(market string) bool {
	return market == MarketH2H || market == MarketH2HLay
}

// Event is one sporting event as delivered by the odds provider, with the
// nested bookmaker -> market -> outcome structure left intact. The JSON tags
// follow the provider's wire format so recorded snapshots decode directly.
type Event struct {
	ID           string      `json:"id"`
	SportKey     string      `json:"sport_key"`
	SportTitle   string      `json:"sport_title"`
	CommenceTime time.Time   `json:"commence_time"`
	HomeTeam     string      `json:"home_team"`
	AwayTeam     string      `json:"away_team"`
	Bookmakers   []Bookmaker `json:"bookmakers"`
}

// Bookmaker is one company's block of markets for an event.
type Bookmaker struct {
	Key        string    `json:"key"`
	Title      string    `json:"title"`
	LastUpdate time.Time `json:"last_update"`
	Markets    []Market  `json:"markets"`
}

// Market is a single market offered by a bookmaker.
type Market struct {
	Key        string    `json:"key"`
	LastUpdate time.Time `json:"last_update"`
	Outcomes   []Outcome `json:"outcomes"`
}

// Outcome is a priced selection within a market. Price and Point are pointers
// so that an absent field can be told apart from a zero value.
type Outcome struct {
	Name  string   `json:"name"`
	Price *float64 `json:"price"`
	Point *float64 `json:"point,omitempty"`
}

// Sport is an entry of the provider's sport catalogue.
type Sport struct {
	Key          string `json:"key"`
	Group        string `json:"group"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	Active       bool   `json:"active"`
	HasOutrights bool   `json:"has_outrights"`
}

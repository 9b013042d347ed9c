package domain

import "time"

// Quote is one bookmaker's price for one line.
type Quote struct {
	Company   string    `json:"company"`
	Market    string    `json:"market"`
	Outcome   string    `json:"outcome"`
	Price     float64   `json:"price"`
	Point     *float64  `json:"point,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Line identifies a distinct betting line: market, outcome and optional point.
type Line struct {
	Market  string
	Outcome string
	Point   *float64
}

// LineOf returns the line a quote belongs to. Head-to-head markets are keyed
// by outcome only, so any point they carry is dropped.
func LineOf(q Quote) Line {
	l := Line{Market: q.Market, Outcome: q.Outcome}
	if !IsHeadToHead(q.Market) && q.Point != nil {
		p := *q.Point
		l.Point = &p
	}
	return l
}

// Same reports whether two lines are identical. Points are compared by value
// and a nil point only matches another nil point.
func (l Line) Same(o Line) bool {
	if l.Market != o.Market || l.Outcome != o.Outcome {
		return false
	}
	if l.Point == nil || o.Point == nil {
		return l.Point == nil && o.Point == nil
	}
	return *l.Point == *o.Point
}

// BestLine is the winning quote(s) for one line. Bookmakers holds every
// company quoting the best price.
type BestLine struct {
	Market            string   `json:"market"`
	Outcome           string   `json:"outcome"`
	Point             *float64 `json:"point,omitempty"`
	Price             float64  `json:"price"`
	ImpliedLikelihood float64  `json:"impliedLikelihood"`
	Bookmakers        []string `json:"bookmakers"`
}

// BestLineTable is the best-price relation for one event, in the order lines
// were first seen.
type BestLineTable []BestLine

// Market returns the rows belonging to the given market key.
func (t BestLineTable) Market(key string) BestLineTable {
	var out BestLineTable
	for _, row := range t {
		if row.Market == key {
			out = append(out, row)
		}
	}
	return out
}

// HasMarket reports whether any row belongs to the given market key.
func (t BestLineTable) HasMarket(key string) bool {
	for _, row := range t {
		if row.Market == key {
			return true
		}
	}
	return false
}

// HeadToHead returns the rows of the h2h and h2h_lay markets.
func (t BestLineTable) HeadToHead() BestLineTable {
	var out BestLineTable
	for _, row := range t {
		if IsHeadToHead(row.Market) {
			out = append(out, row)
		}
	}
	return out
}

// PointMarkets returns the distinct non head-to-head market keys in
// first-seen order.
func (t BestLineTable) PointMarkets() []string {
	seen := make(map[string]bool)
	var keys []string
	for _, row := range t {
		if IsHeadToHead(row.Market) || seen[row.Market] {
			continue
		}
		seen[row.Market] = true
		keys = append(keys, row.Market)
	}
	return keys
}

// Outcomes returns the distinct outcome names in first-seen order.
func (t BestLineTable) Outcomes() []string {
	seen := make(map[string]bool)
	var names []string
	for _, row := range t {
		if seen[row.Outcome] {
			continue
		}
		seen[row.Outcome] = true
		names = append(names, row.Outcome)
	}
	return names
}

// ImpliedSum returns the sum of implied likelihoods over all rows.
func (t BestLineTable) ImpliedSum() float64 {
	var sum float64
	for _, row := range t {
		sum += row.ImpliedLikelihood
	}
	return sum
}

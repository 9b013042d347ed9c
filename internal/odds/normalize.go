// Package odds flattens provider event data into quotes and reduces them to
// the best available price per betting line.
package odds

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// Normalize flattens one event into a quote per company, market, outcome and
// point. An absent point is left nil. Outcomes missing a required field are
// reported as domain.ErrMalformedInput; the returned error joins every such
// problem and the well-formed quotes are still returned, so the caller decides
// whether a partial event is usable.
func Normalize(ev domain.Event) ([]domain.Quote, error) {
	var (
		quotes []domain.Quote
		errs   []error
	)
	for bi, bk := range ev.Bookmakers {
		company := strings.TrimSpace(bk.Title)
		if company == "" {
			errs = append(errs, fmt.Errorf("%w: event %s bookmaker #%d has no title", domain.ErrMalformedInput, ev.ID, bi))
			continue
		}
		for _, mkt := range bk.Markets {
			if mkt.Key == "" {
				errs = append(errs, fmt.Errorf("%w: event %s %s: market without key", domain.ErrMalformedInput, ev.ID, company))
				continue
			}
			ts := mkt.LastUpdate
			if ts.IsZero() {
				ts = bk.LastUpdate
			}
			for _, out := range mkt.Outcomes {
				q, err := quoteOf(company, mkt.Key, out, ts)
				if err != nil {
					errs = append(errs, fmt.Errorf("event %s %s %s: %w", ev.ID, company, mkt.Key, err))
					continue
				}
				quotes = append(quotes, q)
			}
		}
	}
	return quotes, errors.Join(errs...)
}

func quoteOf(company, market string, out domain.Outcome, ts time.Time) (domain.Quote, error) {
	if out.Name == "" {
		return domain.Quote{}, fmt.Errorf("%w: outcome without name", domain.ErrMalformedInput)
	}
	if out.Price == nil {
		return domain.Quote{}, fmt.Errorf("%w: outcome %q has no price", domain.ErrMalformedInput, out.Name)
	}
	if *out.Price <= 0 {
		return domain.Quote{}, fmt.Errorf("%w: outcome %q has non-positive price %v", domain.ErrMalformedInput, out.Name, *out.Price)
	}
	q := domain.Quote{
		Company:   company,
		Market:    market,
		Outcome:   out.Name,
		Price:     *out.Price,
		Timestamp: ts,
	}
	if out.Point != nil {
		p := *out.Point
		q.Point = &p
	}
	return q, nil
}

// LatestUpdate returns the most recent quote timestamp, or the zero time when
// there are no quotes.
func LatestUpdate(quotes []domain.Quote) time.Time {
	var latest time.Time
	for _, q := range quotes {
		if q.Timestamp.After(latest) {
			latest = q.Timestamp
		}
	}
	return latest
}

package domain

import "context"

// EventSource yields the current events, with their nested bookmaker odds, for
// one sport.
type EventSource interface {
	Name() string
	FetchEvents(ctx context.Context, sportKey string) ([]Event, error)
}

// SportCatalog lists the sports a provider offers. When all is false only
// in-season sports are returned.
type SportCatalog interface {
	ListSports(ctx context.Context, all bool) ([]Sport, error)
}

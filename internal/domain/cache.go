package domain

import (
	"context"
	"time"
)

// ReportCache keeps the latest report and best-odds summary per event so that
// downstream consumers can read the current view without rescanning.
type ReportCache interface {
	SetReport(ctx context.Context, report EventReport) error
	GetReport(ctx context.Context, eventID string) (EventReport, error)
	ListReports(ctx context.Context, sportKey string) ([]EventReport, error)
	SetSummary(ctx context.Context, summary BestOddsSummary) error
	GetSummary(ctx context.Context, eventID string) (BestOddsSummary, error)
}

// QuotaTracker records the provider's remaining request allowance.
type QuotaTracker interface {
	SetQuota(ctx context.Context, q Quota) error
	GetQuota(ctx context.Context) (Quota, error)
}

const (
	// ChannelFindings carries every new finding as JSON.
	ChannelFindings = "arbitrage"
	// StreamFindings is the durable copy of ChannelFindings.
	StreamFindings = "arbitrage:findings"
)

// StreamMessage represents a single entry from a Redis stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub and durable streams.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}

// LockManager hands out short-lived exclusive locks so that concurrent
// scanners do not spend provider quota on the same sport.
type LockManager interface {
	// Acquire returns ErrLockHeld when another holder owns key.
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// Quota is the provider's request allowance as reported in response headers.
type Quota struct {
	Remaining int       `json:"remaining"`
	Used      int       `json:"used"`
	Last      int       `json:"last"`
	UpdatedAt time.Time `json:"updatedAt"`
}

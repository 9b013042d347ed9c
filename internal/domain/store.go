package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// FindingStore persists detected arbitrage findings. Quotes are never stored.
type FindingStore interface {
	Insert(ctx context.Context, f Finding) error
	InsertBatch(ctx context.Context, fs []Finding) error
	ListRecent(ctx context.Context, opts ListOpts) ([]Finding, error)
	CountByKind(ctx context.Context, since time.Time) (map[FindingKind]int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log of scan failures and skips.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

const quotaKey = "oddsapi:quota"

// QuotaTracker implements domain.QuotaTracker as a single Redis hash so that
// every scanner sharing an API key sees the same allowance.
type QuotaTracker struct {
	rdb *redis.Client
}

var _ domain.QuotaTracker = (*QuotaTracker)(nil)

// NewQuotaTracker creates a quota tracker.
func NewQuotaTracker(c *Client) *QuotaTracker {
	return &QuotaTracker{rdb: c.Underlying()}
}

// SetQuota overwrites the stored allowance.
func (qt *QuotaTracker) SetQuota(ctx context.Context, q domain.Quota) error {
	err := qt.rdb.HSet(ctx, quotaKey,
		"remaining", q.Remaining,
		"used", q.Used,
		"last", q.Last,
		"updated_at", q.UpdatedAt.UTC().Format(time.RFC3339Nano),
	).Err()
	if err != nil {
		return fmt.Errorf("redis: set quota: %w", err)
	}
	return nil
}

// GetQuota returns domain.ErrNotFound before the first SetQuota.
func (qt *QuotaTracker) GetQuota(ctx context.Context) (domain.Quota, error) {
	fields, err := qt.rdb.HGetAll(ctx, quotaKey).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return domain.Quota{}, fmt.Errorf("redis: get quota: %w", err)
	}
	if len(fields) == 0 {
		return domain.Quota{}, domain.ErrNotFound
	}

	var q domain.Quota
	q.Remaining, _ = strconv.Atoi(fields["remaining"])
	q.Used, _ = strconv.Atoi(fields["used"])
	q.Last, _ = strconv.Atoi(fields["last"])
	if ts := fields["updated_at"]; ts != "" {
		q.UpdatedAt, err = time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return domain.Quota{}, fmt.Errorf("redis: parse quota timestamp: %w", err)
		}
	}
	return q, nil
}

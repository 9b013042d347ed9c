package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

const defaultReportTTL = 10 * time.Minute

// ReportCache implements domain.ReportCache. Entries expire after the TTL so
// that finished events drop out without explicit cleanup.
//
// Key schema:
//
//	report:{eventID}       - JSON EventReport
//	summary:{eventID}      - JSON BestOddsSummary
//	reports:sport:{sport}  - set of event IDs with a cached report
type ReportCache struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ domain.ReportCache = (*ReportCache)(nil)

// NewReportCache creates a report cache. A non-positive ttl selects the
// default of ten minutes.
func NewReportCache(c *Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = defaultReportTTL
	}
	return &ReportCache{rdb: c.Underlying(), ttl: ttl}
}

func reportKey(eventID string) string  { return "report:" + eventID }
func summaryKey(eventID string) string { return "summary:" + eventID }
func sportKey(sport string) string     { return "reports:sport:" + sport }

// SetReport stores the report and indexes it under its sport.
func (rc *ReportCache) SetReport(ctx context.Context, report domain.EventReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("redis: marshal report %s: %w", report.EventID, err)
	}

	pipe := rc.rdb.TxPipeline()
	pipe.Set(ctx, reportKey(report.EventID), data, rc.ttl)
	if report.SportKey != "" {
		pipe.SAdd(ctx, sportKey(report.SportKey), report.EventID)
		pipe.Expire(ctx, sportKey(report.SportKey), rc.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set report %s: %w", report.EventID, err)
	}
	return nil
}

// GetReport returns domain.ErrNotFound when no live report is cached.
func (rc *ReportCache) GetReport(ctx context.Context, eventID string) (domain.EventReport, error) {
	var report domain.EventReport
	if err := rc.getJSON(ctx, reportKey(eventID), &report); err != nil {
		return domain.EventReport{}, fmt.Errorf("redis: get report %s: %w", eventID, err)
	}
	return report, nil
}

// ListReports returns the cached reports of a sport. Index entries whose
// report has expired are removed.
func (rc *ReportCache) ListReports(ctx context.Context, sport string) ([]domain.EventReport, error) {
	ids, err := rc.rdb.SMembers(ctx, sportKey(sport)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list reports %s: %w", sport, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = reportKey(id)
	}
	values, err := rc.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: list reports %s: %w", sport, err)
	}

	var (
		reports []domain.EventReport
		stale   []any
	)
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			stale = append(stale, ids[i])
			continue
		}
		var report domain.EventReport
		if err := json.Unmarshal([]byte(s), &report); err != nil {
			return nil, fmt.Errorf("redis: unmarshal report %s: %w", ids[i], err)
		}
		reports = append(reports, report)
	}
	if len(stale) > 0 {
		if err := rc.rdb.SRem(ctx, sportKey(sport), stale...).Err(); err != nil {
			return reports, fmt.Errorf("redis: prune reports %s: %w", sport, err)
		}
	}
	return reports, nil
}

// SetSummary stores the direct scanner's best-odds summary.
func (rc *ReportCache) SetSummary(ctx context.Context, summary domain.BestOddsSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("redis: marshal summary %s: %w", summary.EventID, err)
	}
	if err := rc.rdb.Set(ctx, summaryKey(summary.EventID), data, rc.ttl).Err(); err != nil {
		return fmt.Errorf("redis: set summary %s: %w", summary.EventID, err)
	}
	return nil
}

// GetSummary returns domain.ErrNotFound when no live summary is cached.
func (rc *ReportCache) GetSummary(ctx context.Context, eventID string) (domain.BestOddsSummary, error) {
	var summary domain.BestOddsSummary
	if err := rc.getJSON(ctx, summaryKey(eventID), &summary); err != nil {
		return domain.BestOddsSummary{}, fmt.Errorf("redis: get summary %s: %w", eventID, err)
	}
	return summary, nil
}

func (rc *ReportCache) getJSON(ctx context.Context, key string, v any) error {
	data, err := rc.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.ErrNotFound
		}
		return err
	}
	return json.Unmarshal(data, v)
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// FindingStore implements domain.FindingStore. The searchable columns are
// denormalised from the finding; payload keeps the full JSON document.
type FindingStore struct {
	db DBTX
}

var _ domain.FindingStore = (*FindingStore)(nil)

// NewFindingStore creates a finding store on db.
func NewFindingStore(db DBTX) *FindingStore {
	return &FindingStore{db: db}
}

const insertFinding = `
	INSERT INTO findings (
		id, kind, strategy, event_id, sport_key, sport_title, commence_time,
		market, point, outcome, implied_sum, back_price, lay_price,
		payload, detected_at
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7,
		$8, $9, $10, $11, $12, $13,
		$14, $15
	)
	ON CONFLICT (id) DO NOTHING`

func findingArgs(f domain.Finding) ([]any, error) {
	payload, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal finding %s: %w", f.ID, err)
	}
	var commence *time.Time
	if !f.CommenceTime.IsZero() {
		t := f.CommenceTime
		commence = &t
	}
	return []any{
		f.ID, string(f.Kind), f.Strategy, f.EventID, f.SportKey, f.SportTitle, commence,
		f.Market, f.Point, f.Outcome, f.ImpliedSum, f.BackPrice, f.LayPrice,
		payload, f.DetectedAt,
	}, nil
}

// Insert stores one finding. Re-inserting an ID is a no-op.
func (s *FindingStore) Insert(ctx context.Context, f domain.Finding) error {
	args, err := findingArgs(f)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	if _, err := s.db.Exec(ctx, insertFinding, args...); err != nil {
		return fmt.Errorf("postgres: insert finding %s: %w", f.ID, err)
	}
	return nil
}

// InsertBatch stores findings in a single transaction.
func (s *FindingStore) InsertBatch(ctx context.Context, fs []domain.Finding) error {
	if len(fs) == 0 {
		return nil
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin finding batch: %w", err)
	}

	for _, f := range fs {
		args, err := findingArgs(f)
		if err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("postgres: %w", err)
		}
		if _, err := tx.Exec(ctx, insertFinding, args...); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("postgres: insert finding %s: %w", f.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit finding batch: %w", err)
	}
	return nil
}

// ListRecent returns findings newest first.
func (s *FindingStore) ListRecent(ctx context.Context, opts domain.ListOpts) ([]domain.Finding, error) {
	query := `SELECT payload FROM findings WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND detected_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND detected_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY detected_at DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	return s.queryPayloads(ctx, "list recent findings", query, args...)
}

// ListBefore returns findings detected strictly before the cutoff, oldest
// first. It backs the S3 archiver.
func (s *FindingStore) ListBefore(ctx context.Context, before time.Time) ([]domain.Finding, error) {
	const query = `SELECT payload FROM findings WHERE detected_at < $1 ORDER BY detected_at`
	return s.queryPayloads(ctx, "list findings before", query, before)
}

// CountByKind counts findings per kind detected at or after since.
func (s *FindingStore) CountByKind(ctx context.Context, since time.Time) (map[domain.FindingKind]int64, error) {
	const query = `SELECT kind, COUNT(*) FROM findings WHERE detected_at >= $1 GROUP BY kind`

	rows, err := s.db.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: count findings: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.FindingKind]int64)
	for rows.Next() {
		var (
			kind string
			n    int64
		)
		if err := rows.Scan(&kind, &n); err != nil {
			return nil, fmt.Errorf("postgres: scan finding count: %w", err)
		}
		counts[domain.FindingKind(kind)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: count findings rows: %w", err)
	}
	return counts, nil
}

func (s *FindingStore) queryPayloads(ctx context.Context, op, query string, args ...any) ([]domain.Finding, error) {
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: %s: %w", op, err)
	}
	defer rows.Close()

	var findings []domain.Finding
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("postgres: scan finding: %w", err)
		}
		var f domain.Finding
		if err := json.Unmarshal(payload, &f); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal finding: %w", err)
		}
		findings = append(findings, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: %s rows: %w", op, err)
	}
	return findings, nil
}

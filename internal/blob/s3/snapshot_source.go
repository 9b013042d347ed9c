package s3blob

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// SnapshotSource replays recorded provider responses. Each object under
// <prefix>/<sport>/ holds one JSON array of events in the provider's wire
// format; FetchEvents returns the most recently modified one.
type SnapshotSource struct {
	reader domain.BlobReader
	prefix string
	logger *slog.Logger
}

var _ domain.EventSource = (*SnapshotSource)(nil)

// NewSnapshotSource creates a snapshot source over reader.
func NewSnapshotSource(reader domain.BlobReader, prefix string, logger *slog.Logger) *SnapshotSource {
	return &SnapshotSource{
		reader: reader,
		prefix: strings.Trim(prefix, "/"),
		logger: logger.With(slog.String("component", "snapshot_source")),
	}
}

// Name identifies the source in logs and audit entries.
func (s *SnapshotSource) Name() string { return "s3_snapshot" }

// FetchEvents decodes the latest snapshot for sportKey. A sport with no
// snapshots is reported as domain.ErrNotFound.
func (s *SnapshotSource) FetchEvents(ctx context.Context, sportKey string) ([]domain.Event, error) {
	dir := path.Join(s.prefix, sportKey) + "/"
	objects, err := s.reader.List(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("s3blob: snapshots %s: %w", sportKey, err)
	}

	var latest *domain.BlobInfo
	for i := range objects {
		obj := &objects[i]
		if !strings.HasSuffix(obj.Path, ".json") {
			continue
		}
		if latest == nil || obj.LastModified.After(latest.LastModified) ||
			(obj.LastModified.Equal(latest.LastModified) && obj.Path > latest.Path) {
			latest = obj
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("s3blob: snapshots %s: %w", sportKey, domain.ErrNotFound)
	}

	body, err := s.reader.Get(ctx, latest.Path)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var events []domain.Event
	if err := json.NewDecoder(body).Decode(&events); err != nil {
		return nil, fmt.Errorf("s3blob: decode snapshot %s: %w", latest.Path, err)
	}

	s.logger.Info("snapshot loaded",
		slog.String("sport", sportKey),
		slog.String("path", latest.Path),
		slog.Int("events", len(events)),
	)
	return events, nil
}

package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alanyoungcy/oddsarb/internal/domain"
)

// FindingArchiveStore is the query the archiver needs from the finding store.
type FindingArchiveStore interface {
	// ListBefore returns findings detected strictly before the cutoff.
	ListBefore(ctx context.Context, before time.Time) ([]domain.Finding, error)
}

// Archiver exports old findings as JSONL to object storage. Archived rows are
// not deleted from the primary store.
type Archiver struct {
	writer   domain.BlobWriter
	findings FindingArchiveStore
	audit    domain.AuditStore
	prefix   string
}

// NewArchiver creates an archiver writing under prefix (default "archive").
func NewArchiver(writer domain.BlobWriter, findings FindingArchiveStore, audit domain.AuditStore, prefix string) *Archiver {
	if prefix == "" {
		prefix = "archive"
	}
	return &Archiver{writer: writer, findings: findings, audit: audit, prefix: prefix}
}

// ArchiveFindings uploads every finding detected before the cutoff to
// <prefix>/findings/YYYY-MM.jsonl and records the export in the audit log.
// It returns the number of findings archived.
func (a *Archiver) ArchiveFindings(ctx context.Context, before time.Time) (int64, error) {
	findings, err := a.findings.ListBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive findings query: %w", err)
	}
	if len(findings) == 0 {
		return 0, nil
	}

	buf, err := marshalJSONL(findings)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive findings marshal: %w", err)
	}

	path := archivePath(a.prefix, "findings", before)
	if int64(len(buf)) > minPartSize {
		err = a.writer.PutMultipart(ctx, path, bytes.NewReader(buf), minPartSize)
	} else {
		err = a.writer.Put(ctx, path, bytes.NewReader(buf), "application/x-ndjson")
	}
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive findings upload: %w", err)
	}

	count := int64(len(findings))
	if a.audit != nil {
		if err := a.audit.Log(ctx, "archive.findings", map[string]any{
			"path":   path,
			"count":  count,
			"before": before.Format(time.RFC3339),
		}); err != nil {
			return count, fmt.Errorf("s3blob: archive findings audit log: %w", err)
		}
	}
	return count, nil
}

// archivePath partitions archives by the year-month of the cutoff:
//
//	archive/findings/2026-01.jsonl
func archivePath(prefix, kind string, before time.Time) string {
	return fmt.Sprintf("%s/%s/%s.jsonl", prefix, kind, before.UTC().Format("2006-01"))
}

// marshalJSONL encodes records as newline-delimited JSON.
func marshalJSONL[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for i, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return nil, fmt.Errorf("jsonl encode record %d: %w", i, err)
		}
	}
	return buf.Bytes(), nil
}

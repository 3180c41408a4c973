package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/easybetio/easybet/internal/domain"
)

// blobWriter is the narrow upload interface the archiver needs. *Writer
// satisfies it; tests substitute an in-memory fake.
type blobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}

// Archiver uploads settlement snapshots of resolved activities: the final
// activity record and the full ticket set, serialized under a per-activity
// key prefix. The durable mirror stays authoritative; the archive is a
// write-once record of the settlement outcome.
type Archiver struct {
	writer blobWriter
}

// NewArchiver creates an Archiver that uploads through the given writer.
func NewArchiver(writer *Writer) *Archiver {
	return &Archiver{writer: writer}
}

// ArchiveSettlement uploads the snapshot for one resolved activity:
//
//	settlements/{activityID}/activity.json
//	settlements/{activityID}/tickets.jsonl
//
// It returns the key prefix the snapshot was written under.
func (a *Archiver) ArchiveSettlement(ctx context.Context, activity domain.Activity, tickets []domain.Ticket) (string, error) {
	prefix := fmt.Sprintf("settlements/%d", activity.ID)

	record, err := json.Marshal(activity)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal activity %d: %w", activity.ID, err)
	}
	if err := a.writer.Put(ctx, prefix+"/activity.json", bytes.NewReader(record), "application/json"); err != nil {
		return "", fmt.Errorf("s3blob: archive activity %d: %w", activity.ID, err)
	}

	lines, err := marshalJSONL(tickets)
	if err != nil {
		return "", fmt.Errorf("s3blob: marshal tickets for activity %d: %w", activity.ID, err)
	}
	if err := a.writer.Put(ctx, prefix+"/tickets.jsonl", bytes.NewReader(lines), "application/x-ndjson"); err != nil {
		return "", fmt.Errorf("s3blob: archive tickets for activity %d: %w", activity.ID, err)
	}

	return prefix, nil
}

// marshalJSONL serialises a slice of values as newline-delimited JSON (JSONL).
// Each element is marshalled as a single compact JSON line followed by '\n'.
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

package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/easybetio/easybet/internal/domain"
)

// EventStore implements domain.EventStore using PostgreSQL. It is the
// durable audit log: one row per emitted ledger event, append-only.
type EventStore struct {
	pool *pgxpool.Pool
}

// NewEventStore creates a new EventStore backed by the given connection
// pool.
func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

// Append journals a single ledger event. The payload is stored as JSONB.
func (s *EventStore) Append(ctx context.Context, evt domain.Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("postgres: marshal event %s: %w", evt.Kind(), err)
	}

	const query = `INSERT INTO events (kind, payload) VALUES ($1, $2)`
	if _, err := s.pool.Exec(ctx, query, string(evt.Kind()), payload); err != nil {
		return fmt.Errorf("postgres: append event %s: %w", evt.Kind(), err)
	}
	return nil
}

// List returns journal entries in append order with pagination and optional
// time filtering.
func (s *EventStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.JournalEntry, error) {
	return s.list(ctx, "", opts)
}

// ListByKind returns journal entries of a single kind in append order.
func (s *EventStore) ListByKind(ctx context.Context, kind domain.EventKind, opts domain.ListOpts) ([]domain.JournalEntry, error) {
	return s.list(ctx, string(kind), opts)
}

func (s *EventStore) list(ctx context.Context, kind string, opts domain.ListOpts) ([]domain.JournalEntry, error) {
	query := `SELECT id, kind, payload, created_at FROM events WHERE 1=1`
	args := []any{}
	argIdx := 1

	if kind != "" {
		query += fmt.Sprintf(" AND kind = $%d", argIdx)
		args = append(args, kind)
		argIdx++
	}
	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY id"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list events: %w", err)
	}
	defer rows.Close()

	var entries []domain.JournalEntry
	for rows.Next() {
		var (
			e           domain.JournalEntry
			kindText    string
			payloadJSON []byte
		)
		if err := rows.Scan(&e.ID, &kindText, &payloadJSON, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan event: %w", err)
		}
		e.Kind = domain.EventKind(kindText)
		if err := json.Unmarshal(payloadJSON, &e.Payload); err != nil {
			return nil, fmt.Errorf("postgres: unmarshal event payload: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list events rows: %w", err)
	}
	return entries, nil
}

// Compile-time interface check.
var _ domain.EventStore = (*EventStore)(nil)

package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/easybetio/easybet/internal/domain"
)

// ActivityStore implements domain.ActivityStore using PostgreSQL.
type ActivityStore struct {
	pool *pgxpool.Pool
}

// NewActivityStore creates a new ActivityStore backed by the given
// connection pool.
func NewActivityStore(pool *pgxpool.Pool) *ActivityStore {
	return &ActivityStore{pool: pool}
}

// Upsert inserts or updates a single activity.
func (s *ActivityStore) Upsert(ctx context.Context, a domain.Activity) error {
	const query = `
		INSERT INTO activities (
			id, owner_address, description, choices, choice_amounts,
			prize_pool, created_at, end_time, is_resolved, winning_choice,
			is_active, ticket_count, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, NOW()
		)
		ON CONFLICT (id) DO UPDATE SET
			choice_amounts = EXCLUDED.choice_amounts,
			prize_pool     = EXCLUDED.prize_pool,
			is_resolved    = EXCLUDED.is_resolved,
			winning_choice = EXCLUDED.winning_choice,
			is_active      = EXCLUDED.is_active,
			ticket_count   = EXCLUDED.ticket_count,
			updated_at     = NOW()`

	_, err := s.pool.Exec(ctx, query,
		int64(a.ID), a.Owner.Hex(), a.Description,
		a.Choices, amountsToText(a.ChoiceAmounts),
		weiToText(a.PrizePool), a.CreatedAt, a.EndTime,
		a.Resolved, a.WinningChoice, a.Active, int64(a.TicketCount),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert activity %d: %w", a.ID, err)
	}
	return nil
}

const activityCols = `id, owner_address, description, choices, choice_amounts,
	prize_pool, created_at, end_time, is_resolved, winning_choice,
	is_active, ticket_count`

// scanActivity scans a single activity row.
func scanActivity(row pgx.Row) (domain.Activity, error) {
	var (
		a       domain.Activity
		id      int64
		owner   string
		amounts []string
		pool    string
		count   int64
	)
	err := row.Scan(
		&id, &owner, &a.Description, &a.Choices, &amounts,
		&pool, &a.CreatedAt, &a.EndTime, &a.Resolved, &a.WinningChoice,
		&a.Active, &count,
	)
	if err != nil {
		return domain.Activity{}, err
	}

	a.ID = uint64(id)
	a.Owner = common.HexToAddress(owner)
	a.TicketCount = uint64(count)
	if a.ChoiceAmounts, err = textToAmounts(amounts); err != nil {
		return domain.Activity{}, err
	}
	if a.PrizePool, err = textToWei(pool); err != nil {
		return domain.Activity{}, err
	}
	return a, nil
}

// GetByID retrieves an activity by its id.
func (s *ActivityStore) GetByID(ctx context.Context, id uint64) (domain.Activity, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+activityCols+` FROM activities WHERE id = $1`, int64(id))
	a, err := scanActivity(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Activity{}, domain.ErrActivityNotFound
		}
		return domain.Activity{}, fmt.Errorf("postgres: get activity %d: %w", id, err)
	}
	return a, nil
}

// List returns activities in creation order with pagination and optional
// time filtering.
func (s *ActivityStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Activity, error) {
	query := `SELECT ` + activityCols + ` FROM activities WHERE 1=1`
	args := []any{}
	argIdx := 1

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
		return nil, fmt.Errorf("postgres: list activities: %w", err)
	}
	defer rows.Close()

	var activities []domain.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list activities rows: %w", err)
	}
	return activities, nil
}

// Count returns the total number of activities.
func (s *ActivityStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM activities").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count activities: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.ActivityStore = (*ActivityStore)(nil)

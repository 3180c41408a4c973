package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/easybetio/easybet/internal/domain"
)

// TicketStore implements domain.TicketStore using PostgreSQL.
type TicketStore struct {
	pool *pgxpool.Pool
}

// NewTicketStore creates a new TicketStore backed by the given connection
// pool.
func NewTicketStore(pool *pgxpool.Pool) *TicketStore {
	return &TicketStore{pool: pool}
}

const ticketUpsert = `
	INSERT INTO tickets (
		token_id, activity_id, local_index, choice_index, amount,
		owner_address, approved_address, claimed, minted_at, updated_at
	) VALUES (
		$1, $2, $3, $4, $5,
		$6, $7, $8, $9, NOW()
	)
	ON CONFLICT (token_id) DO UPDATE SET
		owner_address    = EXCLUDED.owner_address,
		approved_address = EXCLUDED.approved_address,
		claimed          = EXCLUDED.claimed,
		updated_at       = NOW()`

func ticketArgs(t domain.Ticket) []any {
	approved := ""
	if t.Approved != (common.Address{}) {
		approved = t.Approved.Hex()
	}
	return []any{
		t.ID.String(), int64(t.ActivityID), int64(t.ID.LocalIndex),
		t.ChoiceIndex, weiToText(t.Amount),
		t.Owner.Hex(), approved, t.Claimed, t.MintedAt,
	}
}

// Upsert inserts or updates a single ticket.
func (s *TicketStore) Upsert(ctx context.Context, t domain.Ticket) error {
	if _, err := s.pool.Exec(ctx, ticketUpsert, ticketArgs(t)...); err != nil {
		return fmt.Errorf("postgres: upsert ticket %s: %w", t.ID, err)
	}
	return nil
}

// UpsertBatch inserts or updates multiple tickets in a single batch.
func (s *TicketStore) UpsertBatch(ctx context.Context, tickets []domain.Ticket) error {
	if len(tickets) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, t := range tickets {
		batch.Queue(ticketUpsert, ticketArgs(t)...)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range tickets {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("postgres: upsert ticket batch item %d: %w", i, err)
		}
	}
	return nil
}

const ticketCols = `token_id, activity_id, choice_index, amount,
	owner_address, approved_address, claimed, minted_at`

// scanTicket scans a single ticket row.
func scanTicket(row pgx.Row) (domain.Ticket, error) {
	var (
		t          domain.Ticket
		tokenID    string
		activityID int64
		amount     string
		owner      string
		approved   string
	)
	err := row.Scan(
		&tokenID, &activityID, &t.ChoiceIndex, &amount,
		&owner, &approved, &t.Claimed, &t.MintedAt,
	)
	if err != nil {
		return domain.Ticket{}, err
	}

	if t.ID, err = domain.ParseTokenID(tokenID); err != nil {
		return domain.Ticket{}, err
	}
	t.ActivityID = uint64(activityID)
	if t.Amount, err = textToWei(amount); err != nil {
		return domain.Ticket{}, err
	}
	t.Owner = common.HexToAddress(owner)
	if approved != "" {
		t.Approved = common.HexToAddress(approved)
	}
	return t, nil
}

// GetByID retrieves a ticket by its token id.
func (s *TicketStore) GetByID(ctx context.Context, id domain.TokenID) (domain.Ticket, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+ticketCols+` FROM tickets WHERE token_id = $1`, id.String())
	t, err := scanTicket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("postgres: get ticket %s: %w", id, err)
	}
	return t, nil
}

// ListByActivity returns an activity's tickets ordered by local index.
func (s *TicketStore) ListByActivity(ctx context.Context, activityID uint64) ([]domain.Ticket, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+ticketCols+` FROM tickets WHERE activity_id = $1 ORDER BY local_index`,
		int64(activityID))
	if err != nil {
		return nil, fmt.Errorf("postgres: list tickets for activity %d: %w", activityID, err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

// ListByOwner returns all tickets held by an address, ordered by token id.
func (s *TicketStore) ListByOwner(ctx context.Context, owner common.Address) ([]domain.Ticket, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+ticketCols+` FROM tickets WHERE owner_address = $1 ORDER BY activity_id, local_index`,
		owner.Hex())
	if err != nil {
		return nil, fmt.Errorf("postgres: list tickets for owner %s: %w", owner.Hex(), err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

func collectTickets(rows pgx.Rows) ([]domain.Ticket, error) {
	var tickets []domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: ticket rows: %w", err)
	}
	return tickets, nil
}

// Compile-time interface check.
var _ domain.TicketStore = (*TicketStore)(nil)

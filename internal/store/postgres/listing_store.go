package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/easybetio/easybet/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a new ListingStore backed by the given connection
// pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Upsert inserts or updates a listing.
func (s *ListingStore) Upsert(ctx context.Context, l domain.Listing) error {
	const query = `
		INSERT INTO listings (
			token_id, seller_address, price, active, listed_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (token_id) DO UPDATE SET
			seller_address = EXCLUDED.seller_address,
			price          = EXCLUDED.price,
			active         = EXCLUDED.active,
			listed_at      = EXCLUDED.listed_at,
			updated_at     = NOW()`

	_, err := s.pool.Exec(ctx, query,
		l.TokenID.String(), l.Seller.Hex(), weiToText(l.Price), l.Active, l.ListedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert listing %s: %w", l.TokenID, err)
	}
	return nil
}

const listingCols = `token_id, seller_address, price, active, listed_at`

func scanListing(row pgx.Row) (domain.Listing, error) {
	var (
		l       domain.Listing
		tokenID string
		seller  string
		price   string
	)
	err := row.Scan(&tokenID, &seller, &price, &l.Active, &l.ListedAt)
	if err != nil {
		return domain.Listing{}, err
	}

	if l.TokenID, err = domain.ParseTokenID(tokenID); err != nil {
		return domain.Listing{}, err
	}
	l.Seller = common.HexToAddress(seller)
	if l.Price, err = textToWei(price); err != nil {
		return domain.Listing{}, err
	}
	return l, nil
}

// GetByToken retrieves the listing attached to a token id.
func (s *ListingStore) GetByToken(ctx context.Context, id domain.TokenID) (domain.Listing, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+listingCols+` FROM listings WHERE token_id = $1`, id.String())
	l, err := scanListing(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Listing{}, domain.ErrNotFound
		}
		return domain.Listing{}, fmt.Errorf("postgres: get listing %s: %w", id, err)
	}
	return l, nil
}

// ListActive returns active listings ordered by listing time.
func (s *ListingStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Listing, error) {
	query := `SELECT ` + listingCols + ` FROM listings WHERE active ORDER BY listed_at`
	args := []any{}
	argIdx := 1

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
		return nil, fmt.Errorf("postgres: list active listings: %w", err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: active listings rows: %w", err)
	}
	return listings, nil
}

// Compile-time interface check.
var _ domain.ListingStore = (*ListingStore)(nil)

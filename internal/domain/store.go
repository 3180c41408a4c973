package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// ActivityStore persists the durable mirror of activities.
type ActivityStore interface {
	Upsert(ctx context.Context, activity Activity) error
	GetByID(ctx context.Context, id uint64) (Activity, error)
	List(ctx context.Context, opts ListOpts) ([]Activity, error)
	Count(ctx context.Context) (int64, error)
}

// TicketStore persists the durable mirror of tickets.
type TicketStore interface {
	Upsert(ctx context.Context, ticket Ticket) error
	UpsertBatch(ctx context.Context, tickets []Ticket) error
	GetByID(ctx context.Context, id TokenID) (Ticket, error)
	ListByActivity(ctx context.Context, activityID uint64) ([]Ticket, error)
	ListByOwner(ctx context.Context, owner common.Address) ([]Ticket, error)
}

// ListingStore persists the durable mirror of marketplace listings.
type ListingStore interface {
	Upsert(ctx context.Context, listing Listing) error
	GetByToken(ctx context.Context, id TokenID) (Listing, error)
	ListActive(ctx context.Context, opts ListOpts) ([]Listing, error)
}

// JournalEntry is a single persisted ledger event.
type JournalEntry struct {
	ID        int64          `json:"id"`
	Kind      EventKind      `json:"kind"`
	Payload   map[string]any `json:"payload"`
	CreatedAt time.Time      `json:"created_at"`
}

// EventStore persists the append-only event journal that external observers
// rely on as the durable audit log.
type EventStore interface {
	Append(ctx context.Context, evt Event) error
	List(ctx context.Context, opts ListOpts) ([]JournalEntry, error)
	ListByKind(ctx context.Context, kind EventKind, opts ListOpts) ([]JournalEntry, error)
}

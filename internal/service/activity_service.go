package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybetio/easybet/internal/domain"
	"github.com/easybetio/easybet/internal/ledger"
)

// SettlementArchiver snapshots a resolved activity to blob storage. It
// returns the storage key prefix the snapshot was written under.
type SettlementArchiver interface {
	ArchiveSettlement(ctx context.Context, activity domain.Activity, tickets []domain.Ticket) (string, error)
}

// ActivityService handles activity lifecycle: creation, resolution, and
// reads. Mutations go through the ledger first; on success the durable
// mirror is written through and the cache entry invalidated.
type ActivityService struct {
	ledger     *ledger.Ledger
	activities domain.ActivityStore
	tickets    domain.TicketStore
	listings   domain.ListingStore
	cache      domain.ActivityCache
	archiver   SettlementArchiver
	logger     *slog.Logger
}

// NewActivityService creates an ActivityService. The archiver may be nil,
// in which case resolved activities are not snapshotted.
func NewActivityService(
	ledger *ledger.Ledger,
	activities domain.ActivityStore,
	tickets domain.TicketStore,
	listings domain.ListingStore,
	cache domain.ActivityCache,
	archiver SettlementArchiver,
	logger *slog.Logger,
) *ActivityService {
	return &ActivityService{
		ledger:     ledger,
		activities: activities,
		tickets:    tickets,
		listings:   listings,
		cache:      cache,
		archiver:   archiver,
		logger:     logger,
	}
}

// Create registers a new activity and mirrors it to the store.
func (s *ActivityService) Create(ctx context.Context, caller common.Address, description string, choices []string, durationHours uint64) (domain.Activity, error) {
	a, err := s.ledger.CreateActivity(ctx, caller, description, choices, durationHours)
	if err != nil {
		return domain.Activity{}, err
	}

	if err := s.activities.Upsert(ctx, a); err != nil {
		// The ledger has committed; a missing mirror row would corrupt the
		// next restore, so surface this loudly.
		return domain.Activity{}, fmt.Errorf("activity_service: mirror activity %d: %w", a.ID, err)
	}

	s.logger.InfoContext(ctx, "activity_service: created activity",
		slog.Uint64("activity_id", a.ID),
		slog.Int("choices", len(a.Choices)),
	)
	return a, nil
}

// Resolve fixes the winning choice, mirrors the change, and archives a
// settlement snapshot.
func (s *ActivityService) Resolve(ctx context.Context, caller common.Address, activityID uint64, winningChoice int) (domain.Activity, error) {
	a, err := s.ledger.ResolveActivity(ctx, caller, activityID, winningChoice)
	if err != nil {
		return domain.Activity{}, err
	}

	if err := s.activities.Upsert(ctx, a); err != nil {
		return domain.Activity{}, fmt.Errorf("activity_service: mirror activity %d: %w", a.ID, err)
	}

	// Resolution deactivates the activity's listings; mirror those too so a
	// restart does not rehydrate a tradable listing on a settled activity.
	for _, lst := range s.ledger.ListingsOfActivity(a.ID) {
		if lst.Active {
			continue
		}
		if err := s.listings.Upsert(ctx, lst); err != nil {
			return domain.Activity{}, fmt.Errorf("activity_service: mirror listing %s: %w", lst.TokenID, err)
		}
	}
	s.invalidate(ctx, a.ID)

	s.logger.InfoContext(ctx, "activity_service: resolved activity",
		slog.Uint64("activity_id", a.ID),
		slog.Int("winning_choice", winningChoice),
	)

	s.archive(ctx, a)
	return a, nil
}

// archive snapshots a resolved activity. Failures are logged, not returned:
// resolution has already committed and the archive can be re-run.
func (s *ActivityService) archive(ctx context.Context, a domain.Activity) {
	if s.archiver == nil {
		return
	}

	tickets, err := s.tickets.ListByActivity(ctx, a.ID)
	if err != nil {
		s.logger.ErrorContext(ctx, "activity_service: load tickets for archive failed",
			slog.Uint64("activity_id", a.ID),
			slog.String("error", err.Error()),
		)
		return
	}

	key, err := s.archiver.ArchiveSettlement(ctx, a, tickets)
	if err != nil {
		s.logger.ErrorContext(ctx, "activity_service: settlement archive failed",
			slog.Uint64("activity_id", a.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	s.logger.InfoContext(ctx, "activity_service: settlement archived",
		slog.Uint64("activity_id", a.ID),
		slog.String("key", key),
	)
}

// Get retrieves one activity, checking the cache first and falling back to
// the ledger on a miss.
func (s *ActivityService) Get(ctx context.Context, id uint64) (domain.Activity, error) {
	a, err := s.cache.Get(ctx, id)
	if err == nil {
		return a, nil
	}

	a, err = s.ledger.GetActivityInfo(id)
	if err != nil {
		return domain.Activity{}, err
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, a); cacheErr != nil {
		s.logger.WarnContext(ctx, "activity_service: cache set failed",
			slog.Uint64("activity_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}
	return a, nil
}

// List returns activities in creation order from the durable mirror, which
// supports pagination.
func (s *ActivityService) List(ctx context.Context, opts domain.ListOpts) ([]domain.Activity, error) {
	activities, err := s.activities.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("activity_service: list: %w", err)
	}
	return activities, nil
}

// Count returns the number of activities ever created.
func (s *ActivityService) Count(ctx context.Context) uint64 {
	return s.ledger.ActivityCount()
}

func (s *ActivityService) invalidate(ctx context.Context, id uint64) {
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "activity_service: cache invalidate failed",
			slog.Uint64("activity_id", id),
			slog.String("error", err.Error()),
		)
		// Non-fatal: the cache entry expires on its own.
	}
}

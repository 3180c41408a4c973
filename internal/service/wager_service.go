package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybetio/easybet/internal/domain"
	"github.com/easybetio/easybet/internal/ledger"
)

// claimLockTTL bounds how long a claim lock can outlive a crashed holder.
const claimLockTTL = 10 * time.Second

// WagerService handles ticket purchases, prize claims, approvals, and
// direct transfers.
type WagerService struct {
	ledger     *ledger.Ledger
	activities domain.ActivityStore
	tickets    domain.TicketStore
	listings   domain.ListingStore
	cache      domain.ActivityCache
	locks      domain.LockManager
	bank       domain.Bank
	logger     *slog.Logger
}

// NewWagerService creates a WagerService with all required dependencies.
func NewWagerService(
	ledger *ledger.Ledger,
	activities domain.ActivityStore,
	tickets domain.TicketStore,
	listings domain.ListingStore,
	cache domain.ActivityCache,
	locks domain.LockManager,
	bank domain.Bank,
	logger *slog.Logger,
) *WagerService {
	return &WagerService{
		ledger:     ledger,
		activities: activities,
		tickets:    tickets,
		listings:   listings,
		cache:      cache,
		locks:      locks,
		bank:       bank,
		logger:     logger,
	}
}

// PlaceBet buys one ticket for the caller and mirrors the minted ticket and
// the updated pool totals.
func (s *WagerService) PlaceBet(ctx context.Context, caller common.Address, activityID uint64, choiceIndex int, value *big.Int) (domain.Ticket, error) {
	t, err := s.ledger.BuyTicket(ctx, caller, activityID, choiceIndex, value)
	if err != nil {
		return domain.Ticket{}, err
	}

	if err := s.mirrorTicket(ctx, t); err != nil {
		return domain.Ticket{}, err
	}
	if err := s.mirrorActivity(ctx, activityID); err != nil {
		return domain.Ticket{}, err
	}

	s.logger.InfoContext(ctx, "wager_service: bet placed",
		slog.String("token_id", t.ID.String()),
		slog.Uint64("activity_id", activityID),
		slog.Int("choice_index", choiceIndex),
		slog.String("amount", value.String()),
	)
	return t, nil
}

// Claim pays out the caller's winnings for an activity. A distributed lock
// per (activity, claimant) keeps a retried request from racing its first
// attempt across server instances.
func (s *WagerService) Claim(ctx context.Context, caller common.Address, activityID uint64) (*big.Int, []domain.Ticket, error) {
	lockKey := fmt.Sprintf("claim:%d:%s", activityID, caller.Hex())
	unlock, err := s.locks.Acquire(ctx, lockKey, claimLockTTL)
	if err != nil {
		return nil, nil, err
	}
	defer unlock()

	payout, claimed, err := s.ledger.ClaimPrize(ctx, caller, activityID)
	if err != nil {
		return nil, nil, err
	}

	if err := s.tickets.UpsertBatch(ctx, claimed); err != nil {
		return nil, nil, fmt.Errorf("wager_service: mirror claimed tickets: %w", err)
	}

	s.logger.InfoContext(ctx, "wager_service: prize claimed",
		slog.Uint64("activity_id", activityID),
		slog.String("claimant", caller.Hex()),
		slog.String("payout", payout.String()),
		slog.Int("tickets", len(claimed)),
	)
	return payout, claimed, nil
}

// Approve grants a delegate transfer rights over a ticket.
func (s *WagerService) Approve(ctx context.Context, caller common.Address, tokenID domain.TokenID, delegate common.Address) (domain.Ticket, error) {
	t, err := s.ledger.Approve(ctx, caller, tokenID, delegate)
	if err != nil {
		return domain.Ticket{}, err
	}
	if err := s.mirrorTicket(ctx, t); err != nil {
		return domain.Ticket{}, err
	}
	return t, nil
}

// Transfer moves ticket ownership directly, outside the marketplace. Any
// active listing is deactivated by the ledger and mirrored here.
func (s *WagerService) Transfer(ctx context.Context, caller common.Address, tokenID domain.TokenID, to common.Address) (domain.Ticket, error) {
	t, err := s.ledger.TransferTicket(ctx, caller, tokenID, to)
	if err != nil {
		return domain.Ticket{}, err
	}
	if err := s.mirrorTicket(ctx, t); err != nil {
		return domain.Ticket{}, err
	}

	// A transfer deactivates any listing on the ticket.
	if lst, err := s.ledger.GetListing(tokenID); err == nil {
		if err := s.listings.Upsert(ctx, lst); err != nil {
			return domain.Ticket{}, fmt.Errorf("wager_service: mirror listing %s: %w", tokenID, err)
		}
	}
	return t, nil
}

// GetTicket returns the ticket record for a token id.
func (s *WagerService) GetTicket(ctx context.Context, tokenID domain.TokenID) (domain.Ticket, error) {
	return s.ledger.GetTicket(tokenID)
}

// GetTokenInfo returns the ticket joined with its activity metadata.
func (s *WagerService) GetTokenInfo(ctx context.Context, tokenID domain.TokenID) (domain.TokenInfo, error) {
	return s.ledger.GetTokenInfo(tokenID)
}

// TicketsOfOwner enumerates an address's tickets in (activity, local) order.
func (s *WagerService) TicketsOfOwner(ctx context.Context, owner common.Address) []domain.Ticket {
	return s.ledger.TicketsOfOwner(owner)
}

// Deposit credits an account's bank balance.
func (s *WagerService) Deposit(ctx context.Context, account common.Address, amount *big.Int) error {
	return s.bank.Deposit(ctx, account, amount)
}

// Balance reports an account's bank balance and ticket count.
func (s *WagerService) Balance(ctx context.Context, account common.Address) (*big.Int, uint64, error) {
	funds, err := s.bank.Balance(ctx, account)
	if err != nil {
		return nil, 0, fmt.Errorf("wager_service: balance %s: %w", account.Hex(), err)
	}
	return funds, s.ledger.BalanceOf(account), nil
}

func (s *WagerService) mirrorTicket(ctx context.Context, t domain.Ticket) error {
	if err := s.tickets.Upsert(ctx, t); err != nil {
		return fmt.Errorf("wager_service: mirror ticket %s: %w", t.ID, err)
	}
	return nil
}

// mirrorActivity re-reads an activity from the ledger and writes it through
// to the store and cache.
func (s *WagerService) mirrorActivity(ctx context.Context, id uint64) error {
	a, err := s.ledger.GetActivityInfo(id)
	if err != nil {
		return err
	}
	if err := s.activities.Upsert(ctx, a); err != nil {
		return fmt.Errorf("wager_service: mirror activity %d: %w", id, err)
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.logger.WarnContext(ctx, "wager_service: cache invalidate failed",
			slog.Uint64("activity_id", id),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

// Package ledger implements the activity/ticket ledger: a process-wide,
// serialized state machine covering activity lifecycle, ticket minting,
// pooled-stake accounting, resolution, prize claims, and the secondary
// marketplace. Every mutating operation executes to completion under one
// mutex, mirroring the deterministic transaction model of the chain it
// replaces; cross-operation ordering is the caller's concern.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybetio/easybet/internal/domain"
)

// Config carries the fixed parameters of a ledger instance.
type Config struct {
	// Owner is the only address allowed to create and resolve activities.
	Owner common.Address

	// Escrow is the account that holds pooled stakes between purchase and
	// claim. It must not collide with any participant address.
	Escrow common.Address

	// RequireEnded, when true, rejects resolution before an activity's end
	// time has passed. The reference implementation was loose here; the
	// guard defaults on.
	RequireEnded bool
}

// Ledger is the single in-process instance of the activity/ticket ledger.
// It is constructed once at startup and lives for the process lifetime.
type Ledger struct {
	mu sync.Mutex

	cfg   Config
	bank  domain.Bank
	clock domain.Clock
	sink  domain.EventSink

	activities []*domain.Activity
	tickets    map[domain.TokenID]*domain.Ticket
	listings   map[domain.TokenID]*domain.Listing
}

// nopSink discards events.
type nopSink struct{}

func (nopSink) Emit(domain.Event) {}

// New constructs a Ledger. A nil sink disables event emission; a nil clock
// falls back to the wall clock.
func New(cfg Config, bank domain.Bank, clock domain.Clock, sink domain.EventSink) *Ledger {
	if clock == nil {
		clock = domain.RealClock()
	}
	if sink == nil {
		sink = nopSink{}
	}
	return &Ledger{
		cfg:      cfg,
		bank:     bank,
		clock:    clock,
		sink:     sink,
		tickets:  make(map[domain.TokenID]*domain.Ticket),
		listings: make(map[domain.TokenID]*domain.Listing),
	}
}

// Owner returns the ledger owner address.
func (l *Ledger) Owner() common.Address { return l.cfg.Owner }

// Escrow returns the pool escrow account address.
func (l *Ledger) Escrow() common.Address { return l.cfg.Escrow }

// Restore loads previously persisted state into an empty ledger. It is used
// at startup to rehydrate from the durable mirror and must not be called
// after the ledger has begun serving operations.
func (l *Ledger) Restore(activities []domain.Activity, tickets []domain.Ticket, listings []domain.Listing) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.activities) > 0 || len(l.tickets) > 0 {
		return fmt.Errorf("ledger: restore into non-empty ledger")
	}

	byID := make(map[uint64]bool, len(activities))
	for _, a := range activities {
		if a.ID != uint64(len(l.activities)) {
			return fmt.Errorf("ledger: restore: activity ids not contiguous at %d", a.ID)
		}
		cp := a.Clone()
		l.activities = append(l.activities, &cp)
		byID[a.ID] = true
	}
	for _, t := range tickets {
		if !byID[t.ActivityID] {
			return fmt.Errorf("ledger: restore: ticket %s references unknown activity %d", t.ID, t.ActivityID)
		}
		cp := t.Clone()
		l.tickets[t.ID] = &cp
	}
	for _, a := range l.activities {
		for local := uint64(0); local < a.TicketCount; local++ {
			if l.tickets[domain.NewTokenID(a.ID, local)] == nil {
				return fmt.Errorf("ledger: restore: activity %d missing ticket %d of %d", a.ID, local, a.TicketCount)
			}
		}
	}
	for _, lst := range listings {
		t, ok := l.tickets[lst.TokenID]
		if !ok {
			return fmt.Errorf("ledger: restore: listing references unknown ticket %s", lst.TokenID)
		}
		cp := lst.Clone()
		// A listing may only be active while its activity is unresolved. A
		// stale mirror row from before a resolution is normalised here.
		if l.activities[t.ActivityID].Resolved {
			cp.Active = false
		}
		l.listings[lst.TokenID] = &cp
	}
	return nil
}

// ---------------------------------------------------------------------------
// Activity lifecycle
// ---------------------------------------------------------------------------

// CreateActivity registers a new activity. Owner only. Duration is in hours;
// zero means the activity is already ended at creation time.
func (l *Ledger) CreateActivity(ctx context.Context, caller common.Address, description string, choices []string, durationHours uint64) (domain.Activity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.cfg.Owner {
		return domain.Activity{}, domain.ErrNotAuthorized
	}
	if description == "" {
		return domain.Activity{}, domain.ErrEmptyDescription
	}
	if len(choices) < 2 {
		return domain.Activity{}, domain.ErrInvalidChoiceCount
	}

	now := l.clock.Now()
	amounts := make([]*big.Int, len(choices))
	for i := range amounts {
		amounts[i] = new(big.Int)
	}

	a := &domain.Activity{
		ID:            uint64(len(l.activities)),
		Owner:         caller,
		Description:   description,
		Choices:       append([]string(nil), choices...),
		ChoiceAmounts: amounts,
		PrizePool:     new(big.Int),
		CreatedAt:     now,
		EndTime:       now.Add(time.Duration(durationHours) * time.Hour),
		WinningChoice: -1,
		Active:        true,
	}
	l.activities = append(l.activities, a)

	l.sink.Emit(domain.ActivityCreated{
		ActivityID:  a.ID,
		Owner:       a.Owner,
		Description: a.Description,
		Choices:     append([]string(nil), a.Choices...),
	})
	return a.Clone(), nil
}

// BuyTicket mints one ticket for the caller against an activity choice,
// moving the attached value into the pool escrow. The composite token id is
// (activityID << 64) | localIndex.
func (l *Ledger) BuyTicket(ctx context.Context, caller common.Address, activityID uint64, choiceIndex int, value *big.Int) (domain.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.activity(activityID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if !a.ValidChoice(choiceIndex) {
		return domain.Ticket{}, domain.ErrInvalidChoice
	}
	if value == nil || value.Sign() <= 0 {
		return domain.Ticket{}, domain.ErrZeroAmount
	}
	if !a.Active || a.Ended(l.clock.Now()) {
		return domain.Ticket{}, domain.ErrActivityEnded
	}

	// Collect the stake before touching ledger state. Minting cannot fail
	// past this point, so payment and state stay consistent.
	if err := l.bank.Transfer(ctx, caller, l.cfg.Escrow, value); err != nil {
		return domain.Ticket{}, fmt.Errorf("ledger: collect stake: %w", err)
	}

	t := &domain.Ticket{
		ID:          domain.NewTokenID(a.ID, a.TicketCount),
		ActivityID:  a.ID,
		ChoiceIndex: choiceIndex,
		Amount:      new(big.Int).Set(value),
		Owner:       caller,
		MintedAt:    l.clock.Now(),
	}
	l.tickets[t.ID] = t
	a.TicketCount++
	a.ChoiceAmounts[choiceIndex].Add(a.ChoiceAmounts[choiceIndex], value)
	a.PrizePool.Add(a.PrizePool, value)

	l.sink.Emit(domain.BetPlaced{
		TokenID:     t.ID,
		Amount:      new(big.Int).Set(value),
		Buyer:       caller,
		ActivityID:  a.ID,
		ChoiceIndex: choiceIndex,
	})
	return t.Clone(), nil
}

// ResolveActivity irreversibly fixes the winning choice. Owner only, once
// per activity, and (by policy) only after the activity's end time.
func (l *Ledger) ResolveActivity(ctx context.Context, caller common.Address, activityID uint64, winningChoice int) (domain.Activity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if caller != l.cfg.Owner {
		return domain.Activity{}, domain.ErrNotAuthorized
	}
	a, err := l.activity(activityID)
	if err != nil {
		return domain.Activity{}, err
	}
	if !a.ValidChoice(winningChoice) {
		return domain.Activity{}, domain.ErrInvalidChoice
	}
	if a.Resolved {
		return domain.Activity{}, domain.ErrAlreadyResolved
	}
	if l.cfg.RequireEnded && !a.Ended(l.clock.Now()) {
		return domain.Activity{}, domain.ErrActivityNotEnded
	}

	a.Resolved = true
	a.WinningChoice = winningChoice
	a.Active = false

	// Resolution closes the secondary market: deactivate every listing on
	// the activity's tickets so a claimed or worthless ticket cannot trade.
	for local := uint64(0); local < a.TicketCount; local++ {
		if lst := l.listings[domain.NewTokenID(a.ID, local)]; lst != nil && lst.Active {
			lst.Active = false
		}
	}

	l.sink.Emit(domain.ActivityResolved{
		ActivityID:    a.ID,
		WinningChoice: winningChoice,
	})
	return a.Clone(), nil
}

// ClaimPrize pays the caller their proportional share of the prize pool for
// every unclaimed winning ticket they hold on the activity. Each winning
// wei-stake earns stake * pool / totalWinningStake, so losing stakes are
// distributed to winners. Tickets are marked claimed before the payout is
// attempted; a failed payout rolls the marks back and reports TransferFailed.
func (l *Ledger) ClaimPrize(ctx context.Context, caller common.Address, activityID uint64) (*big.Int, []domain.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.activity(activityID)
	if err != nil {
		return nil, nil, err
	}
	if !a.Resolved {
		return nil, nil, domain.ErrNotResolved
	}

	winning := a.ChoiceAmounts[a.WinningChoice]
	stake := new(big.Int)
	var claimed []*domain.Ticket
	for local := uint64(0); local < a.TicketCount; local++ {
		t := l.tickets[domain.NewTokenID(a.ID, local)]
		if t == nil || t.Owner != caller || t.Claimed || t.ChoiceIndex != a.WinningChoice {
			continue
		}
		stake.Add(stake, t.Amount)
		claimed = append(claimed, t)
	}
	if len(claimed) == 0 || stake.Sign() == 0 {
		return nil, nil, domain.ErrNoClaimable
	}

	// payout = stake * pool / winning (floor). winning > 0 because the
	// caller holds at least one winning ticket with positive stake.
	payout := new(big.Int).Mul(stake, a.PrizePool)
	payout.Div(payout, winning)

	// Effects before interaction: flip the flags, then pay.
	for _, t := range claimed {
		t.Claimed = true
	}
	if err := l.bank.Transfer(ctx, l.cfg.Escrow, caller, payout); err != nil {
		for _, t := range claimed {
			t.Claimed = false
		}
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	out := make([]domain.Ticket, len(claimed))
	for i, t := range claimed {
		out[i] = t.Clone()
	}
	l.sink.Emit(domain.PrizeClaimed{
		ActivityID: a.ID,
		Claimant:   caller,
		Amount:     new(big.Int).Set(payout),
	})
	return payout, out, nil
}

// ---------------------------------------------------------------------------
// Transfers and approvals
// ---------------------------------------------------------------------------

// Approve grants a delegate the right to transfer the ticket. The zero
// address clears any approval.
func (l *Ledger) Approve(ctx context.Context, caller common.Address, tokenID domain.TokenID, delegate common.Address) (domain.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.ticket(tokenID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if t.Owner != caller {
		return domain.Ticket{}, domain.ErrNotOwner
	}
	t.Approved = delegate
	return t.Clone(), nil
}

// TransferTicket moves ownership from the current owner to another address.
// Only the owner or the approved delegate may call. Transferring clears the
// approval and deactivates any active listing so stale offers cannot be
// exercised after the ownership change.
func (l *Ledger) TransferTicket(ctx context.Context, caller common.Address, tokenID domain.TokenID, to common.Address) (domain.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.ticket(tokenID)
	if err != nil {
		return domain.Ticket{}, err
	}
	if caller != t.Owner && caller != t.Approved {
		return domain.Ticket{}, domain.ErrNotOwner
	}

	from := t.Owner
	t.Owner = to
	t.Approved = common.Address{}
	if lst := l.listings[tokenID]; lst != nil && lst.Active {
		lst.Active = false
	}

	l.sink.Emit(domain.TicketTransferred{TokenID: tokenID, From: from, To: to})
	return t.Clone(), nil
}

// ---------------------------------------------------------------------------
// Marketplace
// ---------------------------------------------------------------------------

// ListTicket puts a ticket up for resale at a fixed price. Tickets on
// resolved activities cannot trade.
func (l *Ledger) ListTicket(ctx context.Context, caller common.Address, tokenID domain.TokenID, price *big.Int) (domain.Listing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.ticket(tokenID)
	if err != nil {
		return domain.Listing{}, err
	}
	if t.Owner != caller {
		return domain.Listing{}, domain.ErrNotOwner
	}
	a, err := l.activity(t.ActivityID)
	if err != nil {
		return domain.Listing{}, err
	}
	if a.Resolved {
		return domain.Listing{}, domain.ErrAlreadyResolved
	}
	if price == nil || price.Sign() <= 0 {
		return domain.Listing{}, domain.ErrZeroPrice
	}

	lst := &domain.Listing{
		TokenID:  tokenID,
		Seller:   caller,
		Price:    new(big.Int).Set(price),
		Active:   true,
		ListedAt: l.clock.Now(),
	}
	l.listings[tokenID] = lst

	l.sink.Emit(domain.TicketListed{TokenID: tokenID, Price: new(big.Int).Set(price)})
	return lst.Clone(), nil
}

// CancelListing withdraws an active listing. Seller only.
func (l *Ledger) CancelListing(ctx context.Context, caller common.Address, tokenID domain.TokenID) (domain.Listing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lst := l.listings[tokenID]
	if lst == nil || !lst.Active {
		return domain.Listing{}, domain.ErrNotListedOrInactive
	}
	if lst.Seller != caller {
		return domain.Listing{}, domain.ErrNotSeller
	}

	lst.Active = false

	l.sink.Emit(domain.ListingCancelled{TokenID: tokenID})
	return lst.Clone(), nil
}

// BuyListedTicket purchases a listed ticket at exactly the asked price.
// Payment to the seller and the ownership transfer commit together: the
// seller is paid first, and every mutation after that point is infallible.
func (l *Ledger) BuyListedTicket(ctx context.Context, caller common.Address, tokenID domain.TokenID, value *big.Int) (domain.Ticket, domain.Listing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lst := l.listings[tokenID]
	if lst == nil || !lst.Active {
		return domain.Ticket{}, domain.Listing{}, domain.ErrNotListedOrInactive
	}
	if value == nil || value.Cmp(lst.Price) != 0 {
		return domain.Ticket{}, domain.Listing{}, domain.ErrIncorrectPrice
	}
	t, err := l.ticket(tokenID)
	if err != nil {
		return domain.Ticket{}, domain.Listing{}, err
	}

	if err := l.bank.Transfer(ctx, caller, lst.Seller, value); err != nil {
		return domain.Ticket{}, domain.Listing{}, fmt.Errorf("%w: %v", domain.ErrTransferFailed, err)
	}

	seller := lst.Seller
	lst.Active = false
	t.Owner = caller
	t.Approved = common.Address{}

	l.sink.Emit(domain.TicketSold{
		TokenID: tokenID,
		Seller:  seller,
		Buyer:   caller,
		Price:   new(big.Int).Set(lst.Price),
	})
	return t.Clone(), lst.Clone(), nil
}

// ---------------------------------------------------------------------------
// Internal lookups
// ---------------------------------------------------------------------------

func (l *Ledger) activity(id uint64) (*domain.Activity, error) {
	if id >= uint64(len(l.activities)) {
		return nil, domain.ErrActivityNotFound
	}
	return l.activities[id], nil
}

func (l *Ledger) ticket(id domain.TokenID) (*domain.Ticket, error) {
	t := l.tickets[id]
	if t == nil {
		return nil, domain.ErrTicketNotFound
	}
	return t, nil
}

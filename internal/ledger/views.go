package ledger

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybetio/easybet/internal/domain"
)

// Read views. All return deep copies taken under the ledger lock, so they
// are snapshot-consistent with respect to mutating operations.

// ActivityCount returns the number of activities ever created.
func (l *Ledger) ActivityCount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return uint64(len(l.activities))
}

// GetActivityInfo returns the full record for one activity.
func (l *Ledger) GetActivityInfo(id uint64) (domain.Activity, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.activity(id)
	if err != nil {
		return domain.Activity{}, err
	}
	return a.Clone(), nil
}

// ListActivities returns all activities in creation order.
func (l *Ledger) ListActivities() []domain.Activity {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]domain.Activity, len(l.activities))
	for i, a := range l.activities {
		out[i] = a.Clone()
	}
	return out
}

// ActivityTicketCount returns how many tickets an activity has minted, which
// is also the next local index.
func (l *Ledger) ActivityTicketCount(id uint64) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.activity(id)
	if err != nil {
		return 0, err
	}
	return a.TicketCount, nil
}

// GetTicket returns the ticket record for a token id.
func (l *Ledger) GetTicket(id domain.TokenID) (domain.Ticket, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.ticket(id)
	if err != nil {
		return domain.Ticket{}, err
	}
	return t.Clone(), nil
}

// GetTokenInfo returns the ticket joined with its activity's description and
// choice label.
func (l *Ledger) GetTokenInfo(id domain.TokenID) (domain.TokenInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.ticket(id)
	if err != nil {
		return domain.TokenInfo{}, err
	}
	a, err := l.activity(t.ActivityID)
	if err != nil {
		return domain.TokenInfo{}, err
	}
	return domain.TokenInfo{
		TokenID:             t.ID,
		ActivityID:          t.ActivityID,
		ChoiceIndex:         t.ChoiceIndex,
		ActivityDescription: a.Description,
		ChoiceName:          a.Choices[t.ChoiceIndex],
	}, nil
}

// GetListing returns the listing attached to a token id, whether active or
// not. Tickets that were never listed report ErrNotFound.
func (l *Ledger) GetListing(id domain.TokenID) (domain.Listing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lst := l.listings[id]
	if lst == nil {
		return domain.Listing{}, domain.ErrNotFound
	}
	return lst.Clone(), nil
}

// OwnerOf returns the current owner of a ticket.
func (l *Ledger) OwnerOf(id domain.TokenID) (common.Address, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, err := l.ticket(id)
	if err != nil {
		return common.Address{}, err
	}
	return t.Owner, nil
}

// BalanceOf returns the number of tickets an address currently owns.
func (l *Ledger) BalanceOf(owner common.Address) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	var n uint64
	for _, t := range l.tickets {
		if t.Owner == owner {
			n++
		}
	}
	return n
}

// TicketsOfOwner enumerates an address's tickets ordered by
// (activity, local index). TokenOfOwnerByIndex is index into this slice.
func (l *Ledger) TicketsOfOwner(owner common.Address) []domain.Ticket {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Ticket
	for _, a := range l.activities {
		for local := uint64(0); local < a.TicketCount; local++ {
			t := l.tickets[domain.NewTokenID(a.ID, local)]
			if t != nil && t.Owner == owner {
				out = append(out, t.Clone())
			}
		}
	}
	return out
}

// TokenOfOwnerByIndex returns the owner's index-th ticket in enumeration
// order.
func (l *Ledger) TokenOfOwnerByIndex(owner common.Address, index uint64) (domain.Ticket, error) {
	tickets := l.TicketsOfOwner(owner)
	if index >= uint64(len(tickets)) {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return tickets[index], nil
}

// ListingsOfActivity returns every listing attached to an activity's
// tickets, active or not, in local index order.
func (l *Ledger) ListingsOfActivity(id uint64) []domain.Listing {
	l.mu.Lock()
	defer l.mu.Unlock()

	a, err := l.activity(id)
	if err != nil {
		return nil
	}
	var out []domain.Listing
	for local := uint64(0); local < a.TicketCount; local++ {
		if lst := l.listings[domain.NewTokenID(a.ID, local)]; lst != nil {
			out = append(out, lst.Clone())
		}
	}
	return out
}

// OutstandingLiability returns the total value the escrow account must hold
// to cover every future claim: the full pool of each unresolved activity
// plus the unpaid remainder of each resolved one. Used to re-fund escrow
// when the ledger is rehydrated into a fresh bank.
//
// Paid-out amounts are reconstructed per claimed ticket. A per-ticket floor
// division never exceeds what the aggregated claim actually paid, so the
// reconstruction can overshoot the requirement only by division dust, never
// undershoot it.
func (l *Ledger) OutstandingLiability() *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := new(big.Int)
	for _, a := range l.activities {
		if !a.Resolved {
			total.Add(total, a.PrizePool)
			continue
		}
		winning := a.ChoiceAmounts[a.WinningChoice]
		remaining := new(big.Int).Set(a.PrizePool)
		if winning.Sign() > 0 {
			for local := uint64(0); local < a.TicketCount; local++ {
				t := l.tickets[domain.NewTokenID(a.ID, local)]
				if t == nil || !t.Claimed || t.ChoiceIndex != a.WinningChoice {
					continue
				}
				paid := new(big.Int).Mul(t.Amount, a.PrizePool)
				paid.Div(paid, winning)
				remaining.Sub(remaining, paid)
			}
		}
		if remaining.Sign() > 0 {
			total.Add(total, remaining)
		}
	}
	return total
}

// ActiveListings returns every active listing, ordered by token id.
func (l *Ledger) ActiveListings() []domain.Listing {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []domain.Listing
	for _, a := range l.activities {
		for local := uint64(0); local < a.TicketCount; local++ {
			if lst := l.listings[domain.NewTokenID(a.ID, local)]; lst != nil && lst.Active {
				out = append(out, lst.Clone())
			}
		}
	}
	return out
}

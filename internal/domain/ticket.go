package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Ticket is a non-fungible receipt for one wager: one activity, one choice,
// one stake. Tickets are transferable and never destroyed; the claimed flag
// flips exactly once, on successful prize withdrawal.
type Ticket struct {
	ID          TokenID        `json:"token_id"`
	ActivityID  uint64         `json:"activity_id"`
	ChoiceIndex int            `json:"choice_index"`
	Amount      *big.Int       `json:"amount"`
	Owner       common.Address `json:"owner"`
	Approved    common.Address `json:"approved,omitempty"`
	Claimed     bool           `json:"claimed"`
	MintedAt    time.Time      `json:"minted_at"`
}

// Clone returns a deep copy of the ticket.
func (t Ticket) Clone() Ticket {
	out := t
	if t.Amount != nil {
		out.Amount = new(big.Int).Set(t.Amount)
	}
	return out
}

// TokenInfo is the read view joining a ticket with its activity's metadata,
// shaped for display.
type TokenInfo struct {
	TokenID             TokenID `json:"token_id"`
	ActivityID          uint64  `json:"activity_id"`
	ChoiceIndex         int     `json:"choice_index"`
	ActivityDescription string  `json:"activity_description"`
	ChoiceName          string  `json:"choice_name"`
}

package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Activity is a single wager with a fixed set of choices and a deadline.
// Per-choice stakes accumulate on every ticket purchase; resolution is a
// one-way transition that fixes the winning choice.
type Activity struct {
	ID            uint64         `json:"id"`
	Owner         common.Address `json:"owner"`
	Description   string         `json:"description"`
	Choices       []string       `json:"choices"`
	ChoiceAmounts []*big.Int     `json:"choice_amounts"`
	PrizePool     *big.Int       `json:"prize_pool"`
	CreatedAt     time.Time      `json:"created_at"`
	EndTime       time.Time      `json:"end_time"`
	Resolved      bool           `json:"is_resolved"`
	WinningChoice int            `json:"winning_choice_index"`
	Active        bool           `json:"is_active"`
	TicketCount   uint64         `json:"ticket_count"`
}

// Ended reports whether the activity's deadline has passed at the given
// instant. The deadline itself counts as ended.
func (a Activity) Ended(now time.Time) bool {
	return !now.Before(a.EndTime)
}

// ValidChoice reports whether idx addresses one of the activity's choices.
func (a Activity) ValidChoice(idx int) bool {
	return idx >= 0 && idx < len(a.Choices)
}

// Clone returns a deep copy so callers can hand activities across goroutine
// boundaries without aliasing the ledger's big.Int accumulators.
func (a Activity) Clone() Activity {
	out := a
	out.Choices = append([]string(nil), a.Choices...)
	out.ChoiceAmounts = make([]*big.Int, len(a.ChoiceAmounts))
	for i, amt := range a.ChoiceAmounts {
		out.ChoiceAmounts[i] = new(big.Int).Set(amt)
	}
	if a.PrizePool != nil {
		out.PrizePool = new(big.Int).Set(a.PrizePool)
	}
	return out
}

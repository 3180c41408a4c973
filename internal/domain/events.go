package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EventKind names a ledger event type. Collaborators pattern-match on these
// names to extract generated ids, so they are part of the wire contract.
type EventKind string

const (
	KindActivityCreated   EventKind = "ActivityCreated"
	KindBetPlaced         EventKind = "BetPlaced"
	KindActivityResolved  EventKind = "ActivityResolved"
	KindPrizeClaimed      EventKind = "PrizeClaimed"
	KindTicketListed      EventKind = "TicketListed"
	KindTicketSold        EventKind = "TicketSold"
	KindListingCancelled  EventKind = "ListingCancelled"
	KindTicketTransferred EventKind = "TicketTransferred"
)

// Event is one entry of the ledger's audit log. The ledger emits exactly one
// event per successful state transition, in transition order.
type Event interface {
	Kind() EventKind
}

// EventSink receives events synchronously as the ledger commits transitions.
// Implementations must not call back into the ledger.
type EventSink interface {
	Emit(evt Event)
}

// ActivityCreated fires when the owner creates a new activity.
type ActivityCreated struct {
	ActivityID  uint64         `json:"activity_id"`
	Owner       common.Address `json:"owner"`
	Description string         `json:"description"`
	Choices     []string       `json:"choices"`
}

func (ActivityCreated) Kind() EventKind { return KindActivityCreated }

// BetPlaced fires when a ticket is minted.
type BetPlaced struct {
	TokenID     TokenID        `json:"token_id"`
	Amount      *big.Int       `json:"amount"`
	Buyer       common.Address `json:"buyer"`
	ActivityID  uint64         `json:"activity_id"`
	ChoiceIndex int            `json:"choice_index"`
}

func (BetPlaced) Kind() EventKind { return KindBetPlaced }

// ActivityResolved fires once per activity, when the winning choice is set.
type ActivityResolved struct {
	ActivityID    uint64 `json:"activity_id"`
	WinningChoice int    `json:"winning_choice_index"`
}

func (ActivityResolved) Kind() EventKind { return KindActivityResolved }

// PrizeClaimed fires when a claimant withdraws winnings for an activity.
type PrizeClaimed struct {
	ActivityID uint64         `json:"activity_id"`
	Claimant   common.Address `json:"claimant"`
	Amount     *big.Int       `json:"amount"`
}

func (PrizeClaimed) Kind() EventKind { return KindPrizeClaimed }

// TicketListed fires when a ticket is offered for resale.
type TicketListed struct {
	TokenID TokenID  `json:"token_id"`
	Price   *big.Int `json:"price"`
}

func (TicketListed) Kind() EventKind { return KindTicketListed }

// TicketSold fires when a listed ticket changes hands at the asked price.
type TicketSold struct {
	TokenID TokenID        `json:"token_id"`
	Seller  common.Address `json:"seller"`
	Buyer   common.Address `json:"buyer"`
	Price   *big.Int       `json:"price"`
}

func (TicketSold) Kind() EventKind { return KindTicketSold }

// ListingCancelled fires when a seller withdraws a listing.
type ListingCancelled struct {
	TokenID TokenID `json:"token_id"`
}

func (ListingCancelled) Kind() EventKind { return KindListingCancelled }

// TicketTransferred fires on direct ownership transfers outside the
// marketplace path.
type TicketTransferred struct {
	TokenID TokenID        `json:"token_id"`
	From    common.Address `json:"from"`
	To      common.Address `json:"to"`
}

func (TicketTransferred) Kind() EventKind { return KindTicketTransferred }

package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Listing is a fixed-price resale offer attached to a ticket. At most one
// listing exists per ticket; it is only meaningful while active, the stated
// seller still owns the ticket, and the activity is unresolved.
type Listing struct {
	TokenID  TokenID        `json:"token_id"`
	Seller   common.Address `json:"seller"`
	Price    *big.Int       `json:"price"`
	Active   bool           `json:"active"`
	ListedAt time.Time      `json:"listed_at"`
}

// Clone returns a deep copy of the listing.
func (l Listing) Clone() Listing {
	out := l
	if l.Price != nil {
		out.Price = new(big.Int).Set(l.Price)
	}
	return out
}

package domain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Bank is the value-movement port backing payable operations. Stakes flow
// from buyers into the ledger's escrow account; claims and sale proceeds
// flow back out. Amounts are wei and must be positive or zero.
type Bank interface {
	// Deposit credits an account, minting balance from outside the system.
	Deposit(ctx context.Context, account common.Address, amount *big.Int) error

	// Transfer moves amount from one account to another. It must either
	// fully apply or fully fail; ErrInsufficientFunds signals the former
	// account cannot cover the amount.
	Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error

	// Balance returns the current balance of an account.
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
}

// Clock abstracts the execution environment's clock so deadlines can be
// evaluated freshly on each call and driven deterministically in tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// RealClock returns a Clock backed by time.Now.
func RealClock() Clock {
	return ClockFunc(time.Now)
}

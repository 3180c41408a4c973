// Package bank implements the domain.Bank port with an in-memory wei
// account book. It stands in for native value transfer: buyers fund their
// accounts via Deposit, payable ledger operations move balances through the
// escrow account.
package bank

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybetio/easybet/internal/domain"
)

// Memory is a mutex-guarded account book. All amounts are wei.
type Memory struct {
	mu       sync.Mutex
	balances map[common.Address]*big.Int
}

// NewMemory creates an empty account book.
func NewMemory() *Memory {
	return &Memory{balances: make(map[common.Address]*big.Int)}
}

// Deposit credits an account from outside the system.
func (m *Memory) Deposit(ctx context.Context, account common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("bank: deposit amount must be non-negative")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.credit(account, amount)
	return nil
}

// Transfer moves amount from one account to another, failing atomically with
// ErrInsufficientFunds when the source balance cannot cover it.
func (m *Memory) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("bank: transfer amount must be non-negative")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.balances[from]
	if bal == nil || bal.Cmp(amount) < 0 {
		return fmt.Errorf("bank: %s: %w", from.Hex(), domain.ErrInsufficientFunds)
	}
	bal.Sub(bal, amount)
	m.credit(to, amount)
	return nil
}

// Balance returns a copy of the account's current balance.
func (m *Memory) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bal := m.balances[account]
	if bal == nil {
		return new(big.Int), nil
	}
	return new(big.Int).Set(bal), nil
}

func (m *Memory) credit(account common.Address, amount *big.Int) {
	bal := m.balances[account]
	if bal == nil {
		bal = new(big.Int)
		m.balances[account] = bal
	}
	bal.Add(bal, amount)
}

// Compile-time interface check.
var _ domain.Bank = (*Memory)(nil)

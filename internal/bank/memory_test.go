package bank

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easybetio/easybet/internal/domain"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func TestDepositAndBalance(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	require.NoError(t, m.Deposit(ctx, alice, big.NewInt(100)))
	require.NoError(t, m.Deposit(ctx, alice, big.NewInt(50)))

	bal, err := m.Balance(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(150), bal.Int64())

	// Unknown accounts report zero, not an error.
	bal, err = m.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, bal.Sign())
}

func TestDepositRejectsNegative(t *testing.T) {
	m := NewMemory()
	assert.Error(t, m.Deposit(context.Background(), alice, big.NewInt(-1)))
	assert.Error(t, m.Deposit(context.Background(), alice, nil))
}

func TestTransfer(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Deposit(ctx, alice, big.NewInt(100)))

	require.NoError(t, m.Transfer(ctx, alice, bob, big.NewInt(60)))

	aliceBal, _ := m.Balance(ctx, alice)
	bobBal, _ := m.Balance(ctx, bob)
	assert.Equal(t, int64(40), aliceBal.Int64())
	assert.Equal(t, int64(60), bobBal.Int64())
}

func TestTransferInsufficientFunds(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Deposit(ctx, alice, big.NewInt(10)))

	err := m.Transfer(ctx, alice, bob, big.NewInt(11))
	require.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Nothing moved.
	aliceBal, _ := m.Balance(ctx, alice)
	bobBal, _ := m.Balance(ctx, bob)
	assert.Equal(t, int64(10), aliceBal.Int64())
	assert.Zero(t, bobBal.Sign())
}

func TestBalanceReturnsCopy(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	require.NoError(t, m.Deposit(ctx, alice, big.NewInt(5)))

	bal, _ := m.Balance(ctx, alice)
	bal.SetInt64(999)

	fresh, _ := m.Balance(ctx, alice)
	assert.Equal(t, int64(5), fresh.Int64())
}

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easybetio/easybet/internal/domain"
)

func TestPlaceBetWritesThrough(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "who wins", []string{"red", "blue"}, 24)
	require.NoError(t, err)

	tk, err := f.wagerSvc.PlaceBet(ctx, alice, a.ID, 1, bigInt(250))
	require.NoError(t, err)

	// Ticket mirrored.
	stored, err := f.tickets.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, stored.Owner)

	// Pool totals mirrored and the cached activity dropped.
	mirrored, err := f.activities.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), mirrored.PrizePool.Int64())
	assert.Equal(t, 1, f.cache.invalidations)
}

func TestPlaceBetRejectionLeavesMirrorUntouched(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 24)
	require.NoError(t, err)

	_, err = f.wagerSvc.PlaceBet(ctx, alice, a.ID, 5, bigInt(10))
	assert.ErrorIs(t, err, domain.ErrInvalidChoice)
	assert.Empty(t, f.tickets.byID)
}

func TestClaimHoldsPerClaimantLock(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 1)
	require.NoError(t, err)
	tk, err := f.wagerSvc.PlaceBet(ctx, alice, a.ID, 0, bigInt(100))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.activitySvc.Resolve(ctx, owner, a.ID, 0)
	require.NoError(t, err)

	payout, claimed, err := f.wagerSvc.Claim(ctx, alice, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), payout.Int64())
	require.Len(t, claimed, 1)

	// Lock scoped to (activity, claimant) and released afterwards.
	require.Len(t, f.locks.keys, 1)
	assert.Equal(t, fmt.Sprintf("claim:%d:%s", a.ID, alice.Hex()), f.locks.keys[0])
	assert.Equal(t, 1, f.locks.unlocks)

	// Claimed flags mirrored in one batch.
	assert.Equal(t, 1, f.tickets.batchCalls)
	stored, err := f.tickets.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.True(t, stored.Claimed)
}

func TestClaimBlockedWhileLockHeld(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 1)
	require.NoError(t, err)
	_, err = f.wagerSvc.PlaceBet(ctx, alice, a.ID, 0, bigInt(100))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.activitySvc.Resolve(ctx, owner, a.ID, 0)
	require.NoError(t, err)

	f.locks.held = true
	_, _, err = f.wagerSvc.Claim(ctx, alice, a.ID)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	// The claim never reached the ledger, so it still succeeds once the
	// lock clears.
	f.locks.held = false
	payout, _, err := f.wagerSvc.Claim(ctx, alice, a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), payout.Int64())
}

func TestApproveMirrorsDelegate(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 24)
	require.NoError(t, err)
	tk, err := f.wagerSvc.PlaceBet(ctx, alice, a.ID, 0, bigInt(10))
	require.NoError(t, err)

	_, err = f.wagerSvc.Approve(ctx, alice, tk.ID, bob)
	require.NoError(t, err)

	stored, err := f.tickets.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, stored.Approved)
}

func TestTransferMirrorsListingDeactivation(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 24)
	require.NoError(t, err)
	tk, err := f.wagerSvc.PlaceBet(ctx, alice, a.ID, 0, bigInt(10))
	require.NoError(t, err)
	_, err = f.marketSvc.List(ctx, alice, tk.ID, bigInt(50))
	require.NoError(t, err)

	_, err = f.wagerSvc.Transfer(ctx, alice, tk.ID, bob)
	require.NoError(t, err)

	stored, err := f.tickets.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, stored.Owner)

	lst, err := f.listings.GetByToken(ctx, tk.ID)
	require.NoError(t, err)
	assert.False(t, lst.Active)
}

func TestDepositAndBalance(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	require.NoError(t, f.wagerSvc.Deposit(ctx, bob, bigInt(500)))

	funds, tickets, err := f.wagerSvc.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_500), funds.Int64())
	assert.Zero(t, tickets)

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 24)
	require.NoError(t, err)
	_, err = f.wagerSvc.PlaceBet(ctx, bob, a.ID, 0, bigInt(100))
	require.NoError(t, err)

	funds, tickets, err = f.wagerSvc.Balance(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_400), funds.Int64())
	assert.Equal(t, uint64(1), tickets)
}

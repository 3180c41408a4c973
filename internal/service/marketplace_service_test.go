package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easybetio/easybet/internal/domain"
)

func TestListMirrorsListing(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 24)
	require.NoError(t, err)
	tk, err := f.wagerSvc.PlaceBet(ctx, alice, a.ID, 0, bigInt(100))
	require.NoError(t, err)

	lst, err := f.marketSvc.List(ctx, alice, tk.ID, bigInt(500))
	require.NoError(t, err)
	assert.True(t, lst.Active)

	stored, err := f.listings.GetByToken(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(500), stored.Price.Int64())
	assert.True(t, stored.Active)
}

func TestCancelMirrorsDeactivation(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 24)
	require.NoError(t, err)
	tk, err := f.wagerSvc.PlaceBet(ctx, alice, a.ID, 0, bigInt(100))
	require.NoError(t, err)
	_, err = f.marketSvc.List(ctx, alice, tk.ID, bigInt(500))
	require.NoError(t, err)

	_, err = f.marketSvc.Cancel(ctx, alice, tk.ID)
	require.NoError(t, err)

	stored, err := f.listings.GetByToken(ctx, tk.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestBuyMirrorsOwnershipAndListing(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 24)
	require.NoError(t, err)
	tk, err := f.wagerSvc.PlaceBet(ctx, alice, a.ID, 0, bigInt(100))
	require.NoError(t, err)
	_, err = f.marketSvc.List(ctx, alice, tk.ID, bigInt(500))
	require.NoError(t, err)

	bought, err := f.marketSvc.Buy(ctx, bob, tk.ID, bigInt(500))
	require.NoError(t, err)
	assert.Equal(t, bob, bought.Owner)

	storedTicket, err := f.tickets.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, bob, storedTicket.Owner)

	storedListing, err := f.listings.GetByToken(ctx, tk.ID)
	require.NoError(t, err)
	assert.False(t, storedListing.Active)
}

func TestBuyRejectionLeavesMirrorUntouched(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 24)
	require.NoError(t, err)
	tk, err := f.wagerSvc.PlaceBet(ctx, alice, a.ID, 0, bigInt(100))
	require.NoError(t, err)
	_, err = f.marketSvc.List(ctx, alice, tk.ID, bigInt(500))
	require.NoError(t, err)

	_, err = f.marketSvc.Buy(ctx, bob, tk.ID, bigInt(400))
	assert.ErrorIs(t, err, domain.ErrIncorrectPrice)

	stored, err := f.tickets.GetByID(ctx, tk.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, stored.Owner)
}

func TestActiveListingsView(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 24)
	require.NoError(t, err)
	t0, err := f.wagerSvc.PlaceBet(ctx, alice, a.ID, 0, bigInt(100))
	require.NoError(t, err)
	t1, err := f.wagerSvc.PlaceBet(ctx, bob, a.ID, 1, bigInt(100))
	require.NoError(t, err)

	_, err = f.marketSvc.List(ctx, alice, t0.ID, bigInt(500))
	require.NoError(t, err)
	_, err = f.marketSvc.List(ctx, bob, t1.ID, bigInt(600))
	require.NoError(t, err)
	_, err = f.marketSvc.Cancel(ctx, alice, t0.ID)
	require.NoError(t, err)

	active := f.marketSvc.ActiveListings(ctx)
	require.Len(t, active, 1)
	assert.Equal(t, t1.ID, active[0].TokenID)

	// Cancelled listings stay queryable individually.
	lst, err := f.marketSvc.GetListing(ctx, t0.ID)
	require.NoError(t, err)
	assert.False(t, lst.Active)
}

package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easybetio/easybet/internal/domain"
)

func TestCreateMirrorsToStore(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "who wins", []string{"red", "blue"}, 24)
	require.NoError(t, err)

	stored, err := f.activities.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.Description, stored.Description)
}

func TestCreateSurfacesMirrorFailure(t *testing.T) {
	f := newSvcFixture(t)
	f.activities.failUpsert = true

	_, err := f.activitySvc.Create(context.Background(), owner, "d", []string{"a", "b"}, 1)
	assert.ErrorContains(t, err, "mirror activity")
}

func TestCreateValidationSkipsMirror(t *testing.T) {
	f := newSvcFixture(t)

	_, err := f.activitySvc.Create(context.Background(), alice, "d", []string{"a", "b"}, 1)
	assert.ErrorIs(t, err, domain.ErrNotAuthorized)
	assert.Empty(t, f.activities.byID)
}

func TestResolveMirrorsInvalidatesAndArchives(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "who wins", []string{"red", "blue"}, 1)
	require.NoError(t, err)
	_, err = f.wagerSvc.PlaceBet(ctx, alice, a.ID, 0, bigInt(100))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	resolved, err := f.activitySvc.Resolve(ctx, owner, a.ID, 0)
	require.NoError(t, err)
	assert.True(t, resolved.Resolved)

	stored, err := f.activities.GetByID(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, stored.Resolved)

	// Cache entry is gone and the settlement snapshot captured the tickets.
	_, err = f.cache.Get(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	require.Len(t, f.archiver.activities, 1)
	assert.Len(t, f.archiver.tickets[0], 1)
}

func TestResolveMirrorsListingDeactivation(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "who wins", []string{"red", "blue"}, 1)
	require.NoError(t, err)
	tk, err := f.wagerSvc.PlaceBet(ctx, alice, a.ID, 0, bigInt(100))
	require.NoError(t, err)
	_, err = f.marketSvc.List(ctx, alice, tk.ID, bigInt(500))
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.activitySvc.Resolve(ctx, owner, a.ID, 0)
	require.NoError(t, err)

	// The durable row follows the ledger, so a restart cannot rehydrate a
	// tradable listing on a settled activity.
	stored, err := f.listings.GetByToken(ctx, tk.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestResolveArchiveFailureIsNonFatal(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()
	f.archiver.fail = true

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 1)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	_, err = f.activitySvc.Resolve(ctx, owner, a.ID, 1)
	assert.NoError(t, err)
}

func TestGetReadsThroughCache(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	a, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 24)
	require.NoError(t, err)

	// First read misses and back-fills.
	got, err := f.activitySvc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)
	assert.Equal(t, 1, f.cache.sets)

	// Second read is served from the cache.
	_, err = f.activitySvc.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, f.cache.sets)
}

func TestGetUnknownActivity(t *testing.T) {
	f := newSvcFixture(t)
	_, err := f.activitySvc.Get(context.Background(), 42)
	assert.ErrorIs(t, err, domain.ErrActivityNotFound)
}

func TestListPaginates(t *testing.T) {
	f := newSvcFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := f.activitySvc.Create(ctx, owner, "d", []string{"a", "b"}, 24)
		require.NoError(t, err)
	}

	page, err := f.activitySvc.List(ctx, domain.ListOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, uint64(1), page[0].ID)
	assert.Equal(t, uint64(2), page[1].ID)

	assert.Equal(t, uint64(5), f.activitySvc.Count(ctx))
}

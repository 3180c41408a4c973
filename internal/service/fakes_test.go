package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"sort"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/easybetio/easybet/internal/bank"
	"github.com/easybetio/easybet/internal/domain"
	"github.com/easybetio/easybet/internal/ledger"
)

var (
	owner  = common.HexToAddress("0x0000000000000000000000000000000000000001")
	escrow = common.HexToAddress("0x00000000000000000000000000000000ea5bE700")
	alice  = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob    = common.HexToAddress("0x00000000000000000000000000000000000000b0")
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func bigInt(v int64) *big.Int { return big.NewInt(v) }

// ---------------------------------------------------------------------------
// In-memory doubles for the durable mirror, cache, locks, and bus.
// ---------------------------------------------------------------------------

type fakeActivityStore struct {
	byID       map[uint64]domain.Activity
	failUpsert bool
}

func newFakeActivityStore() *fakeActivityStore {
	return &fakeActivityStore{byID: make(map[uint64]domain.Activity)}
}

func (s *fakeActivityStore) Upsert(ctx context.Context, a domain.Activity) error {
	if s.failUpsert {
		return fmt.Errorf("store down")
	}
	s.byID[a.ID] = a
	return nil
}

func (s *fakeActivityStore) GetByID(ctx context.Context, id uint64) (domain.Activity, error) {
	a, ok := s.byID[id]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	return a, nil
}

func (s *fakeActivityStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Activity, error) {
	ids := make([]uint64, 0, len(s.byID))
	for id := range s.byID {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []domain.Activity
	for i, id := range ids {
		if i < opts.Offset {
			continue
		}
		if opts.Limit > 0 && len(out) >= opts.Limit {
			break
		}
		out = append(out, s.byID[id])
	}
	return out, nil
}

func (s *fakeActivityStore) Count(ctx context.Context) (int64, error) {
	return int64(len(s.byID)), nil
}

type fakeTicketStore struct {
	byID       map[domain.TokenID]domain.Ticket
	batchCalls int
}

func newFakeTicketStore() *fakeTicketStore {
	return &fakeTicketStore{byID: make(map[domain.TokenID]domain.Ticket)}
}

func (s *fakeTicketStore) Upsert(ctx context.Context, t domain.Ticket) error {
	s.byID[t.ID] = t
	return nil
}

func (s *fakeTicketStore) UpsertBatch(ctx context.Context, tickets []domain.Ticket) error {
	s.batchCalls++
	for _, t := range tickets {
		s.byID[t.ID] = t
	}
	return nil
}

func (s *fakeTicketStore) GetByID(ctx context.Context, id domain.TokenID) (domain.Ticket, error) {
	t, ok := s.byID[id]
	if !ok {
		return domain.Ticket{}, domain.ErrTicketNotFound
	}
	return t, nil
}

func (s *fakeTicketStore) ListByActivity(ctx context.Context, activityID uint64) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range s.byID {
		if t.ActivityID == activityID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *fakeTicketStore) ListByOwner(ctx context.Context, owner common.Address) ([]domain.Ticket, error) {
	var out []domain.Ticket
	for _, t := range s.byID {
		if t.Owner == owner {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeListingStore struct {
	byToken map[domain.TokenID]domain.Listing
}

func newFakeListingStore() *fakeListingStore {
	return &fakeListingStore{byToken: make(map[domain.TokenID]domain.Listing)}
}

func (s *fakeListingStore) Upsert(ctx context.Context, lst domain.Listing) error {
	s.byToken[lst.TokenID] = lst
	return nil
}

func (s *fakeListingStore) GetByToken(ctx context.Context, id domain.TokenID) (domain.Listing, error) {
	lst, ok := s.byToken[id]
	if !ok {
		return domain.Listing{}, domain.ErrNotFound
	}
	return lst, nil
}

func (s *fakeListingStore) ListActive(ctx context.Context, opts domain.ListOpts) ([]domain.Listing, error) {
	var out []domain.Listing
	for _, lst := range s.byToken {
		if lst.Active {
			out = append(out, lst)
		}
	}
	return out, nil
}

type fakeCache struct {
	byID          map[uint64]domain.Activity
	sets          int
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{byID: make(map[uint64]domain.Activity)}
}

func (c *fakeCache) Set(ctx context.Context, a domain.Activity) error {
	c.sets++
	c.byID[a.ID] = a
	return nil
}

func (c *fakeCache) Get(ctx context.Context, id uint64) (domain.Activity, error) {
	a, ok := c.byID[id]
	if !ok {
		return domain.Activity{}, domain.ErrNotFound
	}
	return a, nil
}

func (c *fakeCache) Invalidate(ctx context.Context, id uint64) error {
	c.invalidations++
	delete(c.byID, id)
	return nil
}

type fakeLocks struct {
	keys    []string
	unlocks int
	held    bool
}

func (l *fakeLocks) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	if l.held {
		return nil, domain.ErrLockHeld
	}
	l.keys = append(l.keys, key)
	return func() { l.unlocks++ }, nil
}

type published struct {
	channel string
	payload []byte
}

type fakeBus struct {
	messages chan published
}

func newFakeBus() *fakeBus {
	return &fakeBus{messages: make(chan published, 64)}
}

func (b *fakeBus) Publish(ctx context.Context, channel string, payload []byte) error {
	b.messages <- published{channel: channel, payload: payload}
	return nil
}

func (b *fakeBus) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	return nil, fmt.Errorf("not implemented")
}

type fakeEventStore struct {
	appended chan domain.Event
}

func newFakeEventStore() *fakeEventStore {
	return &fakeEventStore{appended: make(chan domain.Event, 64)}
}

func (s *fakeEventStore) Append(ctx context.Context, evt domain.Event) error {
	s.appended <- evt
	return nil
}

func (s *fakeEventStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.JournalEntry, error) {
	return nil, nil
}

func (s *fakeEventStore) ListByKind(ctx context.Context, kind domain.EventKind, opts domain.ListOpts) ([]domain.JournalEntry, error) {
	return nil, nil
}

type fakeArchiver struct {
	activities []domain.Activity
	tickets    [][]domain.Ticket
	fail       bool
}

func (a *fakeArchiver) ArchiveSettlement(ctx context.Context, activity domain.Activity, tickets []domain.Ticket) (string, error) {
	if a.fail {
		return "", fmt.Errorf("bucket unavailable")
	}
	a.activities = append(a.activities, activity)
	a.tickets = append(a.tickets, tickets)
	return fmt.Sprintf("settlements/%d", activity.ID), nil
}

// ---------------------------------------------------------------------------
// Shared fixture wiring the three services over one ledger.
// ---------------------------------------------------------------------------

type clock struct{ now time.Time }

func (c *clock) Now() time.Time          { return c.now }
func (c *clock) Advance(d time.Duration) { c.now = c.now.Add(d) }

type svcFixture struct {
	ledger      *ledger.Ledger
	bank        *bank.Memory
	clock       *clock
	activities  *fakeActivityStore
	tickets     *fakeTicketStore
	listings    *fakeListingStore
	cache       *fakeCache
	locks       *fakeLocks
	archiver    *fakeArchiver
	activitySvc *ActivityService
	wagerSvc    *WagerService
	marketSvc   *MarketplaceService
}

func newSvcFixture(t *testing.T) *svcFixture {
	t.Helper()
	f := &svcFixture{
		clock:      &clock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)},
		bank:       bank.NewMemory(),
		activities: newFakeActivityStore(),
		tickets:    newFakeTicketStore(),
		listings:   newFakeListingStore(),
		cache:      newFakeCache(),
		locks:      &fakeLocks{},
		archiver:   &fakeArchiver{},
	}
	f.ledger = ledger.New(ledger.Config{Owner: owner, Escrow: escrow, RequireEnded: true}, f.bank, f.clock, nil)

	logger := testLogger()
	f.activitySvc = NewActivityService(f.ledger, f.activities, f.tickets, f.listings, f.cache, f.archiver, logger)
	f.wagerSvc = NewWagerService(f.ledger, f.activities, f.tickets, f.listings, f.cache, f.locks, f.bank, logger)
	f.marketSvc = NewMarketplaceService(f.ledger, f.tickets, f.listings, logger)

	ctx := context.Background()
	require.NoError(t, f.bank.Deposit(ctx, alice, bigInt(1_000_000)))
	require.NoError(t, f.bank.Deposit(ctx, bob, bigInt(1_000_000)))
	return f
}

package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/easybetio/easybet/internal/bank"
	s3blob "github.com/easybetio/easybet/internal/blob/s3"
	"github.com/easybetio/easybet/internal/cache/redis"
	"github.com/easybetio/easybet/internal/config"
	"github.com/easybetio/easybet/internal/crypto"
	"github.com/easybetio/easybet/internal/domain"
	"github.com/easybetio/easybet/internal/ledger"
	"github.com/easybetio/easybet/internal/service"
	"github.com/easybetio/easybet/internal/store/postgres"
)

// Dependencies bundles everything the server mode needs to operate. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	Ledger *ledger.Ledger
	Bank   domain.Bank

	// Stores
	ActivityStore domain.ActivityStore
	TicketStore   domain.TicketStore
	ListingStore  domain.ListingStore
	EventStore    domain.EventStore

	// Redis
	ActivityCache domain.ActivityCache
	SignalBus     domain.SignalBus
	LockManager   domain.LockManager
	RateLimiter   domain.RateLimiter

	// Services
	Recorder    *service.EventRecorder
	Activities  *service.ActivityService
	Wagers      *service.WagerService
	Marketplace *service.MarketplaceService

	// Auth
	Verifier *crypto.Verifier
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL: the durable mirror and event journal ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.ActivityStore = postgres.NewActivityStore(pool)
	deps.TicketStore = postgres.NewTicketStore(pool)
	deps.ListingStore = postgres.NewListingStore(pool)
	deps.EventStore = postgres.NewEventStore(pool)

	// --- Redis: cache, signal bus, locks, rate limiting ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.ActivityCache = redis.NewActivityCache(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)

	// --- S3 settlement archive (optional: empty bucket disables it) ---
	var archiver service.SettlementArchiver
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })
		archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client))
	}

	// --- Owner key (optional: validates that the configured key matches
	// the owner address) ---
	if cfg.Ledger.OwnerKey != "" || cfg.Ledger.EncryptedKeyPath != "" {
		keyHex, err := crypto.LoadKey(crypto.KeyConfig{
			RawPrivateKey:    cfg.Ledger.OwnerKey,
			EncryptedKeyPath: cfg.Ledger.EncryptedKeyPath,
			KeyPassword:      cfg.Ledger.KeyPassword,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: owner key: %w", err)
		}
		signer, err := crypto.NewSigner(keyHex)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: owner key: %w", err)
		}
		if signer.Address() != cfg.OwnerAddr() {
			cleanup()
			return nil, nil, fmt.Errorf("wire: owner key resolves to %s, config says %s",
				signer.Address().Hex(), cfg.Ledger.OwnerAddress)
		}
	}

	// --- Bank, recorder, ledger ---
	deps.Bank = bank.NewMemory()
	deps.Recorder = service.NewEventRecorder(deps.EventStore, deps.SignalBus, logger)
	deps.Ledger = ledger.New(ledger.Config{
		Owner:        cfg.OwnerAddr(),
		Escrow:       cfg.EscrowAddr(),
		RequireEnded: cfg.Ledger.RequireEnded,
	}, deps.Bank, nil, deps.Recorder)

	if err := restoreLedger(ctx, deps); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: restore ledger: %w", err)
	}

	// --- Services ---
	deps.Activities = service.NewActivityService(
		deps.Ledger, deps.ActivityStore, deps.TicketStore, deps.ListingStore,
		deps.ActivityCache, archiver, logger,
	)
	deps.Wagers = service.NewWagerService(
		deps.Ledger, deps.ActivityStore, deps.TicketStore, deps.ListingStore,
		deps.ActivityCache, deps.LockManager, deps.Bank, logger,
	)
	deps.Marketplace = service.NewMarketplaceService(
		deps.Ledger, deps.TicketStore, deps.ListingStore, logger,
	)

	maxSkew := cfg.SignatureMaxSkew()
	deps.Verifier = crypto.NewVerifier(maxSkew)

	return deps, cleanup, nil
}

// restoreLedger rehydrates the in-memory ledger from the durable mirror.
func restoreLedger(ctx context.Context, deps *Dependencies) error {
	activities, err := deps.ActivityStore.List(ctx, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("load activities: %w", err)
	}

	var tickets []domain.Ticket
	for _, a := range activities {
		ts, err := deps.TicketStore.ListByActivity(ctx, a.ID)
		if err != nil {
			return fmt.Errorf("load tickets for activity %d: %w", a.ID, err)
		}
		tickets = append(tickets, ts...)
	}

	listings, err := deps.ListingStore.ListActive(ctx, domain.ListOpts{})
	if err != nil {
		return fmt.Errorf("load listings: %w", err)
	}

	if err := deps.Ledger.Restore(activities, tickets, listings); err != nil {
		return err
	}

	// The in-memory bank starts empty on every boot, so the pooled stakes
	// escrow held before the restart must be re-funded or claims against
	// restored activities would all fail.
	if liability := deps.Ledger.OutstandingLiability(); liability.Sign() > 0 {
		if err := deps.Bank.Deposit(ctx, deps.Ledger.Escrow(), liability); err != nil {
			return fmt.Errorf("fund escrow: %w", err)
		}
	}
	return nil
}

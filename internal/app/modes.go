package app

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/easybetio/easybet/internal/server"
	"github.com/easybetio/easybet/internal/server/handler"
	"github.com/easybetio/easybet/internal/server/ws"
	"github.com/easybetio/easybet/internal/service"
	"github.com/easybetio/easybet/internal/store/postgres"
)

// shutdownGrace bounds how long in-flight requests may take to drain.
const shutdownGrace = 10 * time.Second

// ServerMode starts the event recorder, WebSocket hub, and HTTP API server,
// and blocks until the context is cancelled or a component fails.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")

	g, ctx := errgroup.WithContext(ctx)

	// Event recorder: journals ledger events and feeds the signal bus.
	g.Go(func() error {
		return deps.Recorder.Run(ctx)
	})

	// WebSocket hub: fans bus events out to connected clients.
	hub := ws.NewHub(deps.SignalBus, service.EventsChannel, a.logger)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	handlers := server.Handlers{
		Health:      handler.NewHealthHandler(a.logger),
		Activities:  handler.NewActivityHandler(deps.Activities, a.logger),
		Tickets:     handler.NewTicketHandler(deps.Wagers, a.logger),
		Marketplace: handler.NewMarketplaceHandler(deps.Marketplace, a.logger),
		Accounts:    handler.NewAccountHandler(deps.Wagers, a.logger),
		Events:      handler.NewEventHandler(deps.EventStore, a.logger),
	}

	srv := server.NewServer(server.Config{
		Port:             a.cfg.Server.Port,
		CORSOrigins:      a.cfg.Server.CORSOrigins,
		RequireSignature: a.cfg.Server.RequireSignature,
	}, handlers, hub, deps.Verifier, deps.RateLimiter, a.logger)

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// MigrateMode runs database migrations and exits.
func (a *App) MigrateMode(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting migrate mode")

	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      a.cfg.Postgres.DSN,
		Host:     a.cfg.Postgres.Host,
		Port:     a.cfg.Postgres.Port,
		Database: a.cfg.Postgres.Database,
		User:     a.cfg.Postgres.User,
		Password: a.cfg.Postgres.Password,
		SSLMode:  a.cfg.Postgres.SSLMode,
		MaxConns: a.cfg.Postgres.PoolMaxConns,
		MinConns: a.cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		return fmt.Errorf("app: postgres: %w", err)
	}
	defer pgClient.Close()

	if err := pgClient.RunMigrations(ctx); err != nil {
		return fmt.Errorf("app: migrations: %w", err)
	}

	a.logger.InfoContext(ctx, "migrations complete")
	return nil
}

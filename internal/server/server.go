// Package server assembles the HTTP API: routes, middleware, and the
// WebSocket event feed.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/easybetio/easybet/internal/crypto"
	"github.com/easybetio/easybet/internal/domain"
	"github.com/easybetio/easybet/internal/server/handler"
	"github.com/easybetio/easybet/internal/server/middleware"
	"github.com/easybetio/easybet/internal/server/ws"
)

// Per-client request budget enforced when a rate limiter is wired in.
const (
	rateLimitRequests = 100
	rateLimitWindow   = time.Second
)

// Config holds the HTTP server configuration.
type Config struct {
	Port             int
	CORSOrigins      []string
	RequireSignature bool
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health      *handler.HealthHandler
	Activities  *handler.ActivityHandler
	Tickets     *handler.TicketHandler
	Marketplace *handler.MarketplaceHandler
	Accounts    *handler.AccountHandler
	Events      *handler.EventHandler
}

// Server is the HTTP + WebSocket API server for the easybet ledger.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, signature auth, rate limiting) and
// attaches the WebSocket hub. The limiter may be nil to disable rate
// limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, verifier *crypto.Verifier, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Activity lifecycle.
	mux.HandleFunc("POST /api/activities", handlers.Activities.CreateActivity)
	mux.HandleFunc("GET /api/activities", handlers.Activities.ListActivities)
	mux.HandleFunc("GET /api/activities/{id}", handlers.Activities.GetActivity)
	mux.HandleFunc("POST /api/activities/{id}/resolve", handlers.Activities.ResolveActivity)

	// Betting and claims.
	mux.HandleFunc("POST /api/activities/{id}/tickets", handlers.Tickets.BuyTicket)
	mux.HandleFunc("POST /api/activities/{id}/claim", handlers.Tickets.ClaimPrize)

	// Tickets.
	mux.HandleFunc("GET /api/tickets/{id}", handlers.Tickets.GetTicket)
	mux.HandleFunc("POST /api/tickets/{id}/transfer", handlers.Tickets.TransferTicket)
	mux.HandleFunc("POST /api/tickets/{id}/approve", handlers.Tickets.ApproveTicket)

	// Secondary market.
	mux.HandleFunc("POST /api/tickets/{id}/listing", handlers.Marketplace.ListTicket)
	mux.HandleFunc("GET /api/tickets/{id}/listing", handlers.Marketplace.GetListing)
	mux.HandleFunc("DELETE /api/tickets/{id}/listing", handlers.Marketplace.CancelListing)
	mux.HandleFunc("POST /api/tickets/{id}/purchase", handlers.Marketplace.PurchaseTicket)
	mux.HandleFunc("GET /api/marketplace/listings", handlers.Marketplace.ActiveListings)

	// Accounts.
	mux.HandleFunc("GET /api/accounts/{address}/tickets", handlers.Accounts.ListTickets)
	mux.HandleFunc("GET /api/accounts/{address}/balance", handlers.Accounts.GetBalance)
	mux.HandleFunc("POST /api/accounts/{address}/deposit", handlers.Accounts.Deposit)

	// Event journal.
	mux.HandleFunc("GET /api/events", handlers.Events.ListEvents)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	h = middleware.Auth(verifier, cfg.RequireSignature)(h)
	if limiter != nil {
		h = middleware.RateLimit(limiter, rateLimitRequests, rateLimitWindow)(h)
	}
	h = middleware.Logging(logger)(h)
	h = middleware.CORS(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

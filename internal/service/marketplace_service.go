package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybetio/easybet/internal/domain"
	"github.com/easybetio/easybet/internal/ledger"
)

// MarketplaceService handles the secondary market: listing tickets for
// resale, cancelling listings, and purchases at the asked price.
type MarketplaceService struct {
	ledger   *ledger.Ledger
	tickets  domain.TicketStore
	listings domain.ListingStore
	logger   *slog.Logger
}

// NewMarketplaceService creates a MarketplaceService with all required
// dependencies.
func NewMarketplaceService(
	ledger *ledger.Ledger,
	tickets domain.TicketStore,
	listings domain.ListingStore,
	logger *slog.Logger,
) *MarketplaceService {
	return &MarketplaceService{
		ledger:   ledger,
		tickets:  tickets,
		listings: listings,
		logger:   logger,
	}
}

// List offers a ticket for resale at a fixed price.
func (s *MarketplaceService) List(ctx context.Context, caller common.Address, tokenID domain.TokenID, price *big.Int) (domain.Listing, error) {
	lst, err := s.ledger.ListTicket(ctx, caller, tokenID, price)
	if err != nil {
		return domain.Listing{}, err
	}
	if err := s.mirrorListing(ctx, lst); err != nil {
		return domain.Listing{}, err
	}

	s.logger.InfoContext(ctx, "marketplace_service: ticket listed",
		slog.String("token_id", tokenID.String()),
		slog.String("price", price.String()),
	)
	return lst, nil
}

// Cancel withdraws an active listing.
func (s *MarketplaceService) Cancel(ctx context.Context, caller common.Address, tokenID domain.TokenID) (domain.Listing, error) {
	lst, err := s.ledger.CancelListing(ctx, caller, tokenID)
	if err != nil {
		return domain.Listing{}, err
	}
	if err := s.mirrorListing(ctx, lst); err != nil {
		return domain.Listing{}, err
	}
	return lst, nil
}

// Buy purchases a listed ticket at exactly the asked price, mirroring both
// the ownership change and the deactivated listing.
func (s *MarketplaceService) Buy(ctx context.Context, caller common.Address, tokenID domain.TokenID, value *big.Int) (domain.Ticket, error) {
	t, lst, err := s.ledger.BuyListedTicket(ctx, caller, tokenID, value)
	if err != nil {
		return domain.Ticket{}, err
	}

	if err := s.tickets.Upsert(ctx, t); err != nil {
		return domain.Ticket{}, fmt.Errorf("marketplace_service: mirror ticket %s: %w", tokenID, err)
	}
	if err := s.mirrorListing(ctx, lst); err != nil {
		return domain.Ticket{}, err
	}

	s.logger.InfoContext(ctx, "marketplace_service: ticket sold",
		slog.String("token_id", tokenID.String()),
		slog.String("seller", lst.Seller.Hex()),
		slog.String("buyer", caller.Hex()),
		slog.String("price", lst.Price.String()),
	)
	return t, nil
}

// GetListing returns the listing attached to a token id, active or not.
func (s *MarketplaceService) GetListing(ctx context.Context, tokenID domain.TokenID) (domain.Listing, error) {
	return s.ledger.GetListing(tokenID)
}

// ActiveListings returns every active listing in token id order.
func (s *MarketplaceService) ActiveListings(ctx context.Context) []domain.Listing {
	return s.ledger.ActiveListings()
}

func (s *MarketplaceService) mirrorListing(ctx context.Context, lst domain.Listing) error {
	if err := s.listings.Upsert(ctx, lst); err != nil {
		return fmt.Errorf("marketplace_service: mirror listing %s: %w", lst.TokenID, err)
	}
	return nil
}

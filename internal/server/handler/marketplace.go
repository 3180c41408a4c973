package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybetio/easybet/internal/domain"
)

// MarketplaceService defines the methods that the marketplace handler
// requires from the service layer.
type MarketplaceService interface {
	List(ctx context.Context, caller common.Address, tokenID domain.TokenID, price *big.Int) (domain.Listing, error)
	Cancel(ctx context.Context, caller common.Address, tokenID domain.TokenID) (domain.Listing, error)
	Buy(ctx context.Context, caller common.Address, tokenID domain.TokenID, value *big.Int) (domain.Ticket, error)
	GetListing(ctx context.Context, tokenID domain.TokenID) (domain.Listing, error)
	ActiveListings(ctx context.Context) []domain.Listing
}

// MarketplaceHandler serves secondary-market endpoints.
type MarketplaceHandler struct {
	marketplace MarketplaceService
	logger      *slog.Logger
}

// NewMarketplaceHandler creates a MarketplaceHandler with the given service
// and logger.
func NewMarketplaceHandler(marketplace MarketplaceService, logger *slog.Logger) *MarketplaceHandler {
	return &MarketplaceHandler{
		marketplace: marketplace,
		logger:      logger,
	}
}

type listTicketRequest struct {
	Price string `json:"price"`
}

// ListTicket offers a ticket for resale at a fixed price.
// POST /api/tickets/{id}/listing
func (h *MarketplaceHandler) ListTicket(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}
	tokenID, err := pathTokenID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	var req listTicketRequest
	if !decodeBody(w, r, &req) {
		return
	}
	price, ok := parseWei(req.Price)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid price")
		return
	}

	lst, err := h.marketplace.List(r.Context(), addr, tokenID, price)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: list ticket failed",
			slog.String("token_id", tokenID.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list ticket")
		return
	}

	writeJSON(w, http.StatusCreated, lst)
}

// CancelListing withdraws an active listing. Seller only.
// DELETE /api/tickets/{id}/listing
func (h *MarketplaceHandler) CancelListing(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}
	tokenID, err := pathTokenID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	lst, err := h.marketplace.Cancel(r.Context(), addr, tokenID)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: cancel listing failed",
			slog.String("token_id", tokenID.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to cancel listing")
		return
	}

	writeJSON(w, http.StatusOK, lst)
}

type purchaseRequest struct {
	Value string `json:"value"`
}

// PurchaseTicket buys a listed ticket at exactly the asked price.
// POST /api/tickets/{id}/purchase
func (h *MarketplaceHandler) PurchaseTicket(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}
	tokenID, err := pathTokenID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	var req purchaseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	value, ok := parseWei(req.Value)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid value")
		return
	}

	t, err := h.marketplace.Buy(r.Context(), addr, tokenID, value)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: purchase ticket failed",
			slog.String("token_id", tokenID.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to purchase ticket")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

// GetListing returns the listing attached to a token id, active or not.
// GET /api/tickets/{id}/listing
func (h *MarketplaceHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	tokenID, err := pathTokenID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	lst, err := h.marketplace.GetListing(r.Context(), tokenID)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get listing")
		return
	}

	writeJSON(w, http.StatusOK, lst)
}

// ActiveListings returns every active listing.
// GET /api/marketplace/listings
func (h *MarketplaceHandler) ActiveListings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"listings": h.marketplace.ActiveListings(r.Context()),
	})
}

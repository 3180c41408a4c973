package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybetio/easybet/internal/domain"
)

// WagerService defines the methods that the ticket and account handlers
// require from the service layer.
type WagerService interface {
	PlaceBet(ctx context.Context, caller common.Address, activityID uint64, choiceIndex int, value *big.Int) (domain.Ticket, error)
	Claim(ctx context.Context, caller common.Address, activityID uint64) (*big.Int, []domain.Ticket, error)
	Approve(ctx context.Context, caller common.Address, tokenID domain.TokenID, delegate common.Address) (domain.Ticket, error)
	Transfer(ctx context.Context, caller common.Address, tokenID domain.TokenID, to common.Address) (domain.Ticket, error)
	GetTicket(ctx context.Context, tokenID domain.TokenID) (domain.Ticket, error)
	GetTokenInfo(ctx context.Context, tokenID domain.TokenID) (domain.TokenInfo, error)
	TicketsOfOwner(ctx context.Context, owner common.Address) []domain.Ticket
	Deposit(ctx context.Context, account common.Address, amount *big.Int) error
	Balance(ctx context.Context, account common.Address) (*big.Int, uint64, error)
}

// TicketHandler serves ticket purchase, claim, approval, and transfer
// endpoints.
type TicketHandler struct {
	wagers WagerService
	logger *slog.Logger
}

// NewTicketHandler creates a TicketHandler with the given service and logger.
func NewTicketHandler(wagers WagerService, logger *slog.Logger) *TicketHandler {
	return &TicketHandler{
		wagers: wagers,
		logger: logger,
	}
}

type buyTicketRequest struct {
	ChoiceIndex int    `json:"choice_index"`
	Amount      string `json:"amount"`
}

// BuyTicket mints a ticket for the caller against an activity choice.
// POST /api/activities/{id}/tickets
func (h *TicketHandler) BuyTicket(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}
	activityID, err := pathActivityID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	var req buyTicketRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, ok := parseWei(req.Amount)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	t, err := h.wagers.PlaceBet(r.Context(), addr, activityID, req.ChoiceIndex, amount)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: buy ticket failed",
			slog.Uint64("activity_id", activityID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to buy ticket")
		return
	}

	writeJSON(w, http.StatusCreated, t)
}

// claimResponse reports a successful prize claim.
type claimResponse struct {
	ActivityID uint64          `json:"activity_id"`
	Payout     string          `json:"payout"`
	Tickets    []domain.Ticket `json:"tickets"`
}

// ClaimPrize pays out the caller's winnings for an activity.
// POST /api/activities/{id}/claim
func (h *TicketHandler) ClaimPrize(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}
	activityID, err := pathActivityID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	payout, tickets, err := h.wagers.Claim(r.Context(), addr, activityID)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: claim prize failed",
			slog.Uint64("activity_id", activityID),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to claim prize")
		return
	}

	writeJSON(w, http.StatusOK, claimResponse{
		ActivityID: activityID,
		Payout:     payout.String(),
		Tickets:    tickets,
	})
}

// ticketResponse joins a ticket with its activity metadata.
type ticketResponse struct {
	Ticket domain.Ticket    `json:"ticket"`
	Info   domain.TokenInfo `json:"info"`
}

// GetTicket returns a ticket and its token info by composite token id.
// GET /api/tickets/{id}
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	tokenID, err := pathTokenID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	t, err := h.wagers.GetTicket(r.Context(), tokenID)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get ticket")
		return
	}
	info, err := h.wagers.GetTokenInfo(r.Context(), tokenID)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get token info")
		return
	}

	writeJSON(w, http.StatusOK, ticketResponse{Ticket: t, Info: info})
}

type transferRequest struct {
	To string `json:"to"`
}

// TransferTicket moves ticket ownership to another address.
// POST /api/tickets/{id}/transfer
func (h *TicketHandler) TransferTicket(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}
	tokenID, err := pathTokenID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	var req transferRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !common.IsHexAddress(req.To) {
		writeError(w, http.StatusBadRequest, "invalid recipient address")
		return
	}

	t, err := h.wagers.Transfer(r.Context(), addr, tokenID, common.HexToAddress(req.To))
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: transfer ticket failed",
			slog.String("token_id", tokenID.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to transfer ticket")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

type approveRequest struct {
	Delegate string `json:"delegate"`
}

// ApproveTicket grants a delegate transfer rights over a ticket. The zero
// address clears the approval.
// POST /api/tickets/{id}/approve
func (h *TicketHandler) ApproveTicket(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}
	tokenID, err := pathTokenID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	var req approveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if !common.IsHexAddress(req.Delegate) {
		writeError(w, http.StatusBadRequest, "invalid delegate address")
		return
	}

	t, err := h.wagers.Approve(r.Context(), addr, tokenID, common.HexToAddress(req.Delegate))
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: approve ticket failed",
			slog.String("token_id", tokenID.String()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to approve ticket")
		return
	}

	writeJSON(w, http.StatusOK, t)
}

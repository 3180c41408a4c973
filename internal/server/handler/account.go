package handler

import (
	"log/slog"
	"net/http"
)

// AccountHandler serves per-address views and the dev deposit endpoint.
type AccountHandler struct {
	wagers WagerService
	logger *slog.Logger
}

// NewAccountHandler creates an AccountHandler with the given service and
// logger.
func NewAccountHandler(wagers WagerService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		wagers: wagers,
		logger: logger,
	}
}

// ListTickets enumerates an address's tickets in (activity, local) order.
// GET /api/accounts/{address}/tickets
func (h *AccountHandler) ListTickets(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr.Hex(),
		"tickets": h.wagers.TicketsOfOwner(r.Context(), addr),
	})
}

// GetBalance reports an address's funds and ticket count.
// GET /api/accounts/{address}/balance
func (h *AccountHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	funds, tickets, err := h.wagers.Balance(r.Context(), addr)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: get balance failed",
			slog.String("address", addr.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr.Hex(),
		"funds":   funds.String(),
		"tickets": tickets,
	})
}

type depositRequest struct {
	Amount string `json:"amount"`
}

// Deposit credits the caller's account balance.
// POST /api/accounts/{address}/deposit
func (h *AccountHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	addr, ok := pathAddress(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}
	from, ok := caller(w, r)
	if !ok {
		return
	}
	if from != addr {
		writeError(w, http.StatusForbidden, "can only deposit to own account")
		return
	}

	var req depositRequest
	if !decodeBody(w, r, &req) {
		return
	}
	amount, ok := parseWei(req.Amount)
	if !ok || amount.Sign() == 0 {
		writeError(w, http.StatusBadRequest, "invalid amount")
		return
	}

	if err := h.wagers.Deposit(r.Context(), addr, amount); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: deposit failed",
			slog.String("address", addr.Hex()),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to deposit")
		return
	}

	funds, tickets, err := h.wagers.Balance(r.Context(), addr)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get balance")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"address": addr.Hex(),
		"funds":   funds.String(),
		"tickets": tickets,
	})
}

// Package handler contains the HTTP handlers for the easybet API.
package handler

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybetio/easybet/internal/domain"
	"github.com/easybetio/easybet/internal/server/middleware"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps ledger sentinel errors to HTTP statuses, preserving
// the stable reason strings that clients match on. Unknown errors become an
// opaque 500.
func writeDomainError(w http.ResponseWriter, err error) bool {
	status := 0
	switch {
	case errors.Is(err, domain.ErrActivityNotFound),
		errors.Is(err, domain.ErrTicketNotFound),
		errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrNotAuthorized),
		errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrNotSeller):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrInvalidChoice),
		errors.Is(err, domain.ErrInvalidChoiceCount),
		errors.Is(err, domain.ErrEmptyDescription),
		errors.Is(err, domain.ErrZeroAmount),
		errors.Is(err, domain.ErrZeroPrice),
		errors.Is(err, domain.ErrIncorrectPrice):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrActivityEnded),
		errors.Is(err, domain.ErrActivityNotEnded),
		errors.Is(err, domain.ErrAlreadyResolved),
		errors.Is(err, domain.ErrNotResolved),
		errors.Is(err, domain.ErrNoClaimable),
		errors.Is(err, domain.ErrNotListedOrInactive),
		errors.Is(err, domain.ErrLockHeld),
		errors.Is(err, domain.ErrTransferFailed),
		errors.Is(err, domain.ErrInsufficientFunds):
		status = http.StatusConflict
	default:
		return false
	}
	writeError(w, status, err.Error())
	return true
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// pathParam extracts a named path parameter from the request using Go 1.22+
// built-in routing (http.Request.PathValue).
func pathParam(r *http.Request, name string) string {
	return r.PathValue(name)
}

// pathActivityID parses the {id} path segment as an activity id.
func pathActivityID(r *http.Request) (uint64, error) {
	return strconv.ParseUint(pathParam(r, "id"), 10, 64)
}

// pathTokenID parses the {id} path segment as a composite token id.
func pathTokenID(r *http.Request) (domain.TokenID, error) {
	return domain.ParseTokenID(pathParam(r, "id"))
}

// pathAddress parses the {address} path segment.
func pathAddress(r *http.Request) (common.Address, bool) {
	hexAddr := pathParam(r, "address")
	if !common.IsHexAddress(hexAddr) {
		return common.Address{}, false
	}
	return common.HexToAddress(hexAddr), true
}

// caller returns the authenticated caller, writing a 401 if absent.
func caller(w http.ResponseWriter, r *http.Request) (common.Address, bool) {
	addr, ok := middleware.CallerFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "caller identity required")
		return common.Address{}, false
	}
	return addr, true
}

// parseWei parses a decimal wei amount, requiring it to be non-negative.
func parseWei(s string) (*big.Int, bool) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, false
	}
	return v, true
}

// decodeBody decodes a JSON request body into v.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

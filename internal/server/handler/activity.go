package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybetio/easybet/internal/domain"
)

// ActivityService defines the methods that the activity handler requires
// from the service layer. It is declared locally so the handler package does
// not depend on the concrete service implementation.
type ActivityService interface {
	Create(ctx context.Context, caller common.Address, description string, choices []string, durationHours uint64) (domain.Activity, error)
	Resolve(ctx context.Context, caller common.Address, activityID uint64, winningChoice int) (domain.Activity, error)
	Get(ctx context.Context, id uint64) (domain.Activity, error)
	List(ctx context.Context, opts domain.ListOpts) ([]domain.Activity, error)
	Count(ctx context.Context) uint64
}

// ActivityHandler serves activity lifecycle endpoints.
type ActivityHandler struct {
	activities ActivityService
	logger     *slog.Logger
}

// NewActivityHandler creates an ActivityHandler with the given service and
// logger.
func NewActivityHandler(activities ActivityService, logger *slog.Logger) *ActivityHandler {
	return &ActivityHandler{
		activities: activities,
		logger:     logger,
	}
}

type createActivityRequest struct {
	Description   string   `json:"description"`
	Choices       []string `json:"choices"`
	DurationHours uint64   `json:"duration_hours"`
}

// CreateActivity registers a new activity. Owner only.
// POST /api/activities
func (h *ActivityHandler) CreateActivity(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}

	var req createActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	a, err := h.activities.Create(r.Context(), addr, req.Description, req.Choices, req.DurationHours)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: create activity failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to create activity")
		return
	}

	writeJSON(w, http.StatusCreated, a)
}

// listActivitiesResponse wraps the list endpoint output with metadata.
type listActivitiesResponse struct {
	Activities []domain.Activity `json:"activities"`
	Total      uint64            `json:"total"`
	Limit      int               `json:"limit"`
	Offset     int               `json:"offset"`
}

// ListActivities returns activities in creation order with pagination.
// GET /api/activities?limit=50&offset=0
func (h *ActivityHandler) ListActivities(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	activities, err := h.activities.List(r.Context(), opts)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list activities failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list activities")
		return
	}

	writeJSON(w, http.StatusOK, listActivitiesResponse{
		Activities: activities,
		Total:      h.activities.Count(r.Context()),
		Limit:      opts.Limit,
		Offset:     opts.Offset,
	})
}

// GetActivity returns a single activity by its id.
// GET /api/activities/{id}
func (h *ActivityHandler) GetActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathActivityID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	a, err := h.activities.Get(r.Context(), id)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: get activity failed",
			slog.Uint64("activity_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to get activity")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

type resolveActivityRequest struct {
	WinningChoiceIndex int `json:"winning_choice_index"`
}

// ResolveActivity fixes the winning choice of an activity. Owner only.
// POST /api/activities/{id}/resolve
func (h *ActivityHandler) ResolveActivity(w http.ResponseWriter, r *http.Request) {
	addr, ok := caller(w, r)
	if !ok {
		return
	}
	id, err := pathActivityID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid activity id")
		return
	}

	var req resolveActivityRequest
	if !decodeBody(w, r, &req) {
		return
	}

	a, err := h.activities.Resolve(r.Context(), addr, id, req.WinningChoiceIndex)
	if err != nil {
		if writeDomainError(w, err) {
			return
		}
		h.logger.ErrorContext(r.Context(), "handler: resolve activity failed",
			slog.Uint64("activity_id", id),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to resolve activity")
		return
	}

	writeJSON(w, http.StatusOK, a)
}

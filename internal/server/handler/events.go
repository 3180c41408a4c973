package handler

import (
	"log/slog"
	"net/http"

	"github.com/easybetio/easybet/internal/domain"
)

// EventHandler serves the journaled event log.
type EventHandler struct {
	events domain.EventStore
	logger *slog.Logger
}

// NewEventHandler creates an EventHandler over the event journal.
func NewEventHandler(events domain.EventStore, logger *slog.Logger) *EventHandler {
	return &EventHandler{
		events: events,
		logger: logger,
	}
}

// ListEvents returns journal entries in append order, optionally filtered by
// kind.
// GET /api/events?kind=BetPlaced&limit=50&offset=0
func (h *EventHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	var (
		entries []domain.JournalEntry
		err     error
	)
	if kind := r.URL.Query().Get("kind"); kind != "" {
		entries, err = h.events.ListByKind(r.Context(), domain.EventKind(kind), opts)
	} else {
		entries, err = h.events.List(r.Context(), opts)
	}
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list events failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"events": entries,
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

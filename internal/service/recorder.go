// Package service coordinates the ledger with the durable mirror, cache,
// signal bus, and settlement archive.
package service

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/easybetio/easybet/internal/domain"
)

// EventsChannel is the pub/sub channel carrying serialized ledger events.
const EventsChannel = "easybet:events"

// eventEnvelope is the wire form of a ledger event: the kind plus the
// event's own fields. WebSocket clients receive exactly these bytes.
type eventEnvelope struct {
	Kind domain.EventKind `json:"kind"`
	Data domain.Event     `json:"data"`
}

// EventRecorder implements domain.EventSink. Emit is called synchronously
// under the ledger lock, so it only hands the event to a buffered channel;
// a background Run loop journals each event to the durable store and fans
// it out on the signal bus.
type EventRecorder struct {
	events domain.EventStore
	bus    domain.SignalBus
	logger *slog.Logger

	queue chan domain.Event
}

// NewEventRecorder creates an EventRecorder with all required dependencies.
func NewEventRecorder(events domain.EventStore, bus domain.SignalBus, logger *slog.Logger) *EventRecorder {
	return &EventRecorder{
		events: events,
		bus:    bus,
		logger: logger,
		queue:  make(chan domain.Event, 1024),
	}
}

// Emit enqueues an event for journaling. It never blocks the ledger: if the
// queue is full the event is dropped from the live feed with a warning. The
// ledger state itself is mirrored by the services, so a dropped event loses
// only the audit row and the websocket notification.
func (r *EventRecorder) Emit(evt domain.Event) {
	select {
	case r.queue <- evt:
	default:
		r.logger.Warn("recorder: event queue full, dropping",
			slog.String("kind", string(evt.Kind())),
		)
	}
}

// Run drains the queue until the context is cancelled, journaling each event
// and publishing it on the events channel. Failures are logged and skipped;
// the journal is append-only and an individual miss must not stall the feed.
func (r *EventRecorder) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt := <-r.queue:
			r.record(ctx, evt)
		}
	}
}

func (r *EventRecorder) record(ctx context.Context, evt domain.Event) {
	if err := r.events.Append(ctx, evt); err != nil {
		r.logger.ErrorContext(ctx, "recorder: journal append failed",
			slog.String("kind", string(evt.Kind())),
			slog.String("error", err.Error()),
		)
	}

	payload, err := json.Marshal(eventEnvelope{Kind: evt.Kind(), Data: evt})
	if err != nil {
		r.logger.ErrorContext(ctx, "recorder: marshal event failed",
			slog.String("kind", string(evt.Kind())),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := r.bus.Publish(ctx, EventsChannel, payload); err != nil {
		r.logger.WarnContext(ctx, "recorder: publish failed",
			slog.String("kind", string(evt.Kind())),
			slog.String("error", err.Error()),
		)
	}
}

// Compile-time interface check.
var _ domain.EventSink = (*EventRecorder)(nil)

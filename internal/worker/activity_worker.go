package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/events"
	"github.com/deskline/ticket-sync/internal/observability"
)

const defaultActivityLimit = 50

// ActivityWorker consumes store events: it logs them, counts mutation outcomes and keeps a
// bounded feed of the most recent ones for display.
type ActivityWorker struct {
	logger  *zap.Logger
	metrics *observability.Metrics
	limit   int

	mu     sync.Mutex
	recent []events.Event
}

// NewActivityWorker creates the worker. A non-positive limit keeps the last 50 events.
func NewActivityWorker(logger *zap.Logger, metrics *observability.Metrics, limit int) *ActivityWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	return &ActivityWorker{logger: logger, metrics: metrics, limit: limit}
}

// Start subscribes the worker to every store event type.
func (w *ActivityWorker) Start(dispatcher events.Dispatcher) {
	if dispatcher == nil {
		return
	}
	for _, eventType := range events.AllEventTypes {
		dispatcher.Subscribe(eventType, w.handle)
	}
}

// Recent returns the feed, newest first.
func (w *ActivityWorker) Recent() []events.Event {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]events.Event, len(w.recent))
	for i, e := range w.recent {
		out[len(w.recent)-1-i] = e
	}
	return out
}

func (w *ActivityWorker) handle(_ context.Context, event events.Event) error {
	operation, outcome := classify(event)
	w.metrics.RecordMutation(operation, outcome)

	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.Int64s("ticket_ids", event.TicketIDs),
	}
	if outcome == observability.OutcomeRolledBack {
		w.logger.Warn("mutation rolled back", append(fields, zap.Any("payload", event.Payload))...)
	} else {
		w.logger.Info("ticket activity", fields...)
	}

	w.mu.Lock()
	w.recent = append(w.recent, event)
	if over := len(w.recent) - w.limit; over > 0 {
		w.recent = append([]events.Event(nil), w.recent[over:]...)
	}
	w.mu.Unlock()
	return nil
}

func classify(event events.Event) (string, string) {
	switch payload := event.Payload.(type) {
	case events.RolledBackPayload:
		return payload.Operation, observability.OutcomeRolledBack
	case events.BulkUpdatedPayload:
		return payload.Operation, observability.OutcomeCommitted
	}
	return string(event.Type), observability.OutcomeCommitted
}

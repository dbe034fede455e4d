package worker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/ticket-sync/internal/events"
	"github.com/deskline/ticket-sync/internal/observability"
)

func TestActivityWorkerCountsOutcomes(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	metrics := observability.NewMetrics()
	w := NewActivityWorker(nil, metrics, 0)
	w.Start(dispatcher)
	ctx := context.Background()

	require.NoError(t, dispatcher.Publish(ctx, events.Event{Type: events.EventTicketCreated, TicketIDs: []int64{1}}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:    events.EventTicketsBulkUpdated,
		Payload: events.BulkUpdatedPayload{Operation: "bulk close", Field: "status", Value: "closed"},
	}))
	require.NoError(t, dispatcher.Publish(ctx, events.Event{
		Type:    events.EventMutationRolledBack,
		Payload: events.RolledBackPayload{Operation: "bulk close", Strategy: "stats_snapshot"},
	}))

	mutations := metrics.Snapshot().Mutations
	assert.Equal(t, int64(1), mutations["ticket_created|committed"])
	assert.Equal(t, int64(1), mutations["bulk close|committed"])
	assert.Equal(t, int64(1), mutations["bulk close|rolled_back"])

	recent := w.Recent()
	require.Len(t, recent, 3)
	assert.Equal(t, events.EventMutationRolledBack, recent[0].Type)
	assert.NotEmpty(t, recent[0].ID)
}

func TestActivityFeedIsBounded(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	w := NewActivityWorker(nil, nil, 2)
	w.Start(dispatcher)

	for i := int64(1); i <= 3; i++ {
		require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventTicketDeleted, TicketIDs: []int64{i}}))
	}

	recent := w.Recent()
	require.Len(t, recent, 2)
	assert.Equal(t, []int64{3}, recent[0].TicketIDs)
	assert.Equal(t, []int64{2}, recent[1].TicketIDs)
}

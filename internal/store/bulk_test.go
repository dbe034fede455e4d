package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/ticket-sync/internal/domain"
)

func bulkFixture() ([]domain.Ticket, domain.TicketStats) {
	tickets := []domain.Ticket{
		tk(1, "new", "low", "incident"),
		tk(2, "open", "high", "request"),
		tk(3, "closed", "low", "incident"),
	}
	stats := domain.TicketStats{
		Total: 10, New: 3, Open: 4, Closed: 3,
		ByPriority: map[string]int{"low": 6, "high": 4},
		ByType:     map[string]int{"incident": 7, "request": 3},
	}
	return tickets, stats
}

func TestBulkCloseSuccessMovesCounters(t *testing.T) {
	svc := newFakeService()
	tickets, stats := bulkFixture()
	s := newTestStore(svc, tickets, stats)

	result, err := s.BulkCloseTickets(context.Background(), []int64{1, 2})

	require.NoError(t, err)
	assert.Equal(t, 2, result.Updated)
	got := s.Stats().Get()
	assert.Equal(t, 10, got.Total)
	assert.Equal(t, 2, got.New)
	assert.Equal(t, 3, got.Open)
	assert.Equal(t, 5, got.Closed)
	for _, tkt := range s.Tickets().Get() {
		assert.Equal(t, domain.TicketStatusClosed, tkt.Status)
	}
}

func TestBulkCloseAppliesStatsBeforeCallResolves(t *testing.T) {
	svc := newFakeService()
	tickets, stats := bulkFixture()
	s := newTestStore(svc, tickets, stats)
	g := svc.hold("bulk-close")

	done := make(chan error)
	go func() {
		_, err := s.BulkCloseTickets(context.Background(), []int64{1, 2})
		done <- err
	}()
	<-g.started
	assert.Equal(t, 5, s.Stats().Get().Closed)
	got, _ := s.Ticket(1)
	assert.Equal(t, domain.TicketStatusNew, got.Status, "ticket fields change only on success")
	close(g.release)
	require.NoError(t, <-done)
}

func TestBulkCloseFailureRestoresExactSnapshot(t *testing.T) {
	svc := newFakeService()
	tickets, stats := bulkFixture()
	s := newTestStore(svc, tickets, stats)
	svc.failOn("bulk-close", remoteErr("Permission denied"))

	_, err := s.BulkCloseTickets(context.Background(), []int64{1, 2})

	require.Error(t, err)
	assert.Equal(t, stats, s.Stats().Get())
	assert.Equal(t, tickets, s.Tickets().Get())
	assert.Equal(t, "Permission denied", s.LastError().Get())
}

func TestBulkStatusSkipsTicketsAlreadyAtTarget(t *testing.T) {
	svc := newFakeService()
	tickets, stats := bulkFixture()
	s := newTestStore(svc, tickets, stats)

	_, err := s.BulkUpdateStatus(context.Background(), []int64{2, 3, 42}, domain.TicketStatusClosed)

	require.NoError(t, err)
	got := s.Stats().Get()
	assert.Equal(t, 3, got.Open)
	assert.Equal(t, 4, got.Closed)
	assert.Equal(t, []any{[]int64{2, 3, 42}, domain.TicketStatusClosed}, svc.lastArgs["bulk-status"])

	svc.failOn("bulk-status", remoteErr(""))
	_, err = s.BulkUpdateStatus(context.Background(), []int64{1}, domain.TicketStatusPending)
	require.Error(t, err)
	assert.Equal(t, MsgBulkStatus, s.LastError().Get())
	assert.Equal(t, got, s.Stats().Get())
}

func TestBulkAssignOpensNewTickets(t *testing.T) {
	svc := newFakeService()
	tickets, stats := bulkFixture()
	s := newTestStore(svc, tickets, stats)

	_, err := s.BulkAssignTickets(context.Background(), []int64{1, 2}, 7)

	require.NoError(t, err)
	first, _ := s.Ticket(1)
	second, _ := s.Ticket(2)
	assert.Equal(t, domain.TicketStatusOpen, first.Status)
	assert.True(t, first.IsAssignedTo(7))
	assert.True(t, second.IsAssignedTo(7))
	got := s.Stats().Get()
	assert.Equal(t, 2, got.New)
	assert.Equal(t, 5, got.Open)
}

func TestBulkAssignFailureRestoresEachTicket(t *testing.T) {
	svc := newFakeService()
	tickets, stats := bulkFixture()
	tickets[1].AssignedToID = domain.Int64Ptr(3)
	s := newTestStore(svc, tickets, stats)
	svc.failOn("bulk-assign", remoteErr(""))

	_, err := s.BulkAssignTickets(context.Background(), []int64{1, 2}, 7)

	require.Error(t, err)
	assert.Equal(t, MsgBulkAssign, s.LastError().Get())
	first, _ := s.Ticket(1)
	second, _ := s.Ticket(2)
	assert.Equal(t, domain.TicketStatusNew, first.Status)
	assert.Nil(t, first.AssignedToID)
	assert.True(t, second.IsAssignedTo(3))
	assert.Equal(t, stats, s.Stats().Get())
}

func TestBulkPriorityMovesTagCounters(t *testing.T) {
	svc := newFakeService()
	tickets, stats := bulkFixture()
	s := newTestStore(svc, tickets, stats)

	_, err := s.BulkUpdatePriority(context.Background(), []int64{1, 2}, "urgent")

	require.NoError(t, err)
	got := s.Stats().Get()
	assert.Equal(t, 5, got.ByPriority["low"])
	assert.Equal(t, 3, got.ByPriority["high"])
	assert.Equal(t, 2, got.ByPriority["urgent"])
	first, _ := s.Ticket(1)
	assert.Equal(t, "urgent", first.Priority)
	assert.Equal(t, 0, svc.called("stats"))
}

func TestBulkPriorityFailureRestoresFieldsAndReloadsStats(t *testing.T) {
	svc := newFakeService()
	tickets, stats := bulkFixture()
	s := newTestStore(svc, tickets, stats)
	svc.stats = domain.TicketStats{Total: 11, New: 4, Open: 4, Closed: 3, ByPriority: map[string]int{"low": 7, "high": 4}}
	svc.failOn("bulk-priority", remoteErr("Invalid priority"))

	_, err := s.BulkUpdatePriority(context.Background(), []int64{1, 2}, "urgent")

	require.Error(t, err)
	assert.Equal(t, "Invalid priority", s.LastError().Get())
	assert.Equal(t, tickets, s.Tickets().Get())
	assert.Equal(t, 1, svc.called("stats"))
	assert.Equal(t, svc.stats, s.Stats().Get(), "server stats replace the optimistic counters")
}

func TestBulkTypeFailureKeepsOriginalErrorWhenStatsReloadFails(t *testing.T) {
	svc := newFakeService()
	tickets, stats := bulkFixture()
	s := newTestStore(svc, tickets, stats)
	svc.failOn("bulk-type", remoteErr("Invalid type"))
	svc.failOn("stats", remoteErr("Service unavailable"))

	_, err := s.BulkUpdateType(context.Background(), []int64{1}, "problem")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid type")
	assert.Equal(t, "Invalid type", s.LastError().Get())
	first, _ := s.Ticket(1)
	assert.Equal(t, "incident", first.TicketType)
	assert.Equal(t, 1, s.Stats().Get().ByType["problem"], "optimistic counters stay until a reload succeeds")
}

func TestOverlappingFetchesLastCompletedWins(t *testing.T) {
	svc := newFakeService()
	s := newTestStore(svc, nil, domain.NewTicketStats())
	g := svc.hold("list")

	done := make(chan error)
	go func() {
		_, err := s.FetchTickets(context.Background(), domain.Pagination{})
		done <- err
	}()
	<-g.started

	svc.page = domain.TicketPage{Items: []domain.Ticket{tk(1, "new", "low", "incident")}}
	_, err := s.FetchTickets(context.Background(), domain.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, ids(s.Tickets().Get()))

	svc.mu.Lock()
	svc.page = domain.TicketPage{Items: []domain.Ticket{tk(2, "open", "low", "incident")}}
	svc.mu.Unlock()
	close(g.release)
	require.NoError(t, <-done)
	assert.Equal(t, []int64{2}, ids(s.Tickets().Get()))
}

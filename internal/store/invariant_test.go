package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/ticket-sync/internal/domain"
)

var allStatuses = []domain.TicketStatus{
	domain.TicketStatusNew, domain.TicketStatusOpen, domain.TicketStatusPending,
	domain.TicketStatusResolved, domain.TicketStatusClosed,
}

// assertStatsMatchCollection checks that the counters add up and agree with the mirrored tickets.
func assertStatsMatchCollection(t *testing.T, s *TicketStore, step string) {
	t.Helper()
	stats := s.Stats().Get()
	tickets := s.Tickets().Get()

	assert.Equal(t, stats.Total, stats.StatusSum(), "%s: total vs status counters", step)
	assert.Equal(t, stats.Total, sumCounts(stats.ByPriority), "%s: total vs by_priority", step)
	assert.Equal(t, stats.Total, sumCounts(stats.ByType), "%s: total vs by_type", step)
	assert.Equal(t, len(tickets), stats.Total, "%s: total vs collection", step)

	want := domain.StatsFromTickets(tickets)
	for _, status := range allStatuses {
		got, ok := stats.StatusCount(status)
		require.True(t, ok)
		expected, _ := want.StatusCount(status)
		assert.Equal(t, expected, got, "%s: %s counter", step, status)
	}
	assert.Equal(t, nonZero(want.ByPriority), nonZero(stats.ByPriority), "%s: by_priority", step)
	assert.Equal(t, nonZero(want.ByType), nonZero(stats.ByType), "%s: by_type", step)
}

func sumCounts(counts map[string]int) int {
	n := 0
	for _, c := range counts {
		n += c
	}
	return n
}

func nonZero(counts map[string]int) map[string]int {
	out := map[string]int{}
	for k, c := range counts {
		if c != 0 {
			out[k] = c
		}
	}
	return out
}

func TestStatsStayConsistentAcrossMutations(t *testing.T) {
	svc := newFakeService()
	seeded := []domain.Ticket{
		tk(1, domain.TicketStatusNew, "low", "incident"),
		tk(2, domain.TicketStatusOpen, "high", "incident"),
		tk(3, domain.TicketStatusPending, "low", "request"),
	}
	svc.put(seeded...)
	s := newTestStore(svc, append([]domain.Ticket(nil), seeded...), domain.StatsFromTickets(seeded))
	ctx := context.Background()
	assertStatsMatchCollection(t, s, "seed")

	status := domain.TicketStatusNew
	created, err := s.CreateTicket(ctx, domain.TicketInput{
		Title: domain.StringPtr("Printer"), Status: &status,
		Priority: domain.StringPtr("medium"), TicketType: domain.StringPtr("problem"),
	})
	require.NoError(t, err)
	assertStatsMatchCollection(t, s, "create")

	steps := []struct {
		name string
		run  func() error
	}{
		{"delete", func() error { return s.DeleteTicket(ctx, 1) }},
		{"bulk close", func() error {
			_, err := s.BulkCloseTickets(ctx, []int64{2, created.ID})
			return err
		}},
		{"reopen", func() error {
			_, err := s.ReopenTicket(ctx, 2, "")
			return err
		}},
		{"bulk status", func() error {
			_, err := s.BulkUpdateStatus(ctx, []int64{2, 3}, domain.TicketStatusNew)
			return err
		}},
		{"bulk assign", func() error {
			_, err := s.BulkAssignTickets(ctx, []int64{2, 3, created.ID}, 7)
			return err
		}},
		{"bulk priority", func() error {
			_, err := s.BulkUpdatePriority(ctx, []int64{2, 3}, "urgent")
			return err
		}},
		{"bulk type", func() error {
			_, err := s.BulkUpdateType(ctx, []int64{3, created.ID}, "change")
			return err
		}},
		{"resolve", func() error {
			_, err := s.ResolveTicket(ctx, 3, "patched", "")
			return err
		}},
		{"close", func() error {
			_, err := s.CloseTicket(ctx, 2)
			return err
		}},
	}
	for _, step := range steps {
		require.NoError(t, step.run(), step.name)
		assertStatsMatchCollection(t, s, step.name)
	}

	for _, op := range []string{"bulk-close", "bulk-assign", "delete"} {
		svc.failOn(op, remoteErr("rejected"))
	}
	_, err = s.BulkCloseTickets(ctx, []int64{2, 3, created.ID})
	require.Error(t, err)
	assertStatsMatchCollection(t, s, "failed bulk close")

	_, err = s.BulkAssignTickets(ctx, []int64{2, 3, created.ID}, 9)
	require.Error(t, err)
	assertStatsMatchCollection(t, s, "failed bulk assign")

	require.Error(t, s.DeleteTicket(ctx, 3))
	assertStatsMatchCollection(t, s, "failed delete")
}

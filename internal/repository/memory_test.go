package repository

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/ticket-sync/internal/domain"
)

func seedTickets(t *testing.T, repo TicketRepository, tickets ...domain.Ticket) []int64 {
	t.Helper()
	ids := make([]int64, 0, len(tickets))
	for i := range tickets {
		require.NoError(t, repo.Create(context.Background(), &tickets[i]))
		ids = append(ids, tickets[i].ID)
	}
	return ids
}

func TestMemoryTicketListFiltersAndPages(t *testing.T) {
	repo := NewMemoryStore().Tickets()
	seedTickets(t, repo,
		domain.Ticket{Title: "VPN down", Status: "open", Priority: "high", TicketType: "incident", AssignedToID: domain.Int64Ptr(2)},
		domain.Ticket{Title: "New laptop", Status: "new", Priority: "low", TicketType: "request", RequesterID: domain.Int64Ptr(2)},
		domain.Ticket{Title: "Printer", Description: "vpn printer", Status: "open", Priority: "low", TicketType: "incident"},
	)
	ctx := context.Background()

	items, total, err := repo.List(ctx, TicketFilter{Status: "open"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Equal(t, int64(3), items[0].ID, "newest first")

	items, _, err = repo.List(ctx, TicketFilter{SearchTerm: "VPN"})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, _, err = repo.List(ctx, TicketFilter{InvolvedUserID: domain.Int64Ptr(2)})
	require.NoError(t, err)
	assert.Len(t, items, 2)

	items, total, err = repo.List(ctx, TicketFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, int64(2), items[0].ID)
}

func TestMemoryBulkUpdateOpensNewTickets(t *testing.T) {
	repo := NewMemoryStore().Tickets()
	ids := seedTickets(t, repo,
		domain.Ticket{Title: "a", Status: "new"},
		domain.Ticket{Title: "b", Status: "pending"},
	)

	updated, err := repo.BulkUpdate(context.Background(), append(ids, 99, ids[0]), TicketPatch{AssignedToID: domain.Int64Ptr(5), OpenIfNew: true})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	first, err := repo.GetByID(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusOpen, first.Status)
	assert.True(t, first.IsAssignedTo(5))
	second, err := repo.GetByID(context.Background(), ids[1])
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusPending, second.Status)
}

func TestMemoryMissingRowsUseErrNoRows(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Tickets().GetByID(ctx, 1)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	assert.ErrorIs(t, store.Tickets().Delete(ctx, 1), pgx.ErrNoRows)
	assert.ErrorIs(t, store.Comments().Create(ctx, &domain.Comment{TicketID: 1}), pgx.ErrNoRows)
	_, err = store.Users().GetByUsername(ctx, "ghost")
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestMemoryDeleteDropsComments(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ids := seedTickets(t, store.Tickets(), domain.Ticket{Title: "a", Status: "new"})
	require.NoError(t, store.Comments().Create(ctx, &domain.Comment{TicketID: ids[0], Content: "hi"}))

	require.NoError(t, store.Tickets().Delete(ctx, ids[0]))
	comments, err := store.Comments().ListByTicket(ctx, ids[0])
	require.NoError(t, err)
	assert.Empty(t, comments)
}

func TestResolutionCodeRoundTrip(t *testing.T) {
	var ticket domain.Ticket
	assert.Empty(t, ResolutionCode(ticket))

	SetResolutionCode(&ticket, "workaround")
	assert.Equal(t, "workaround", ResolutionCode(ticket))

	SetResolutionCode(&ticket, "")
	assert.Empty(t, ResolutionCode(ticket))
}

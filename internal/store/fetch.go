package store

import (
	"context"

	"github.com/deskline/ticket-sync/internal/domain"
)

// FetchTickets replaces the collection with the page matching the current filters.
func (s *TicketStore) FetchTickets(ctx context.Context, page domain.Pagination) (domain.TicketPage, error) {
	s.mu.Lock()
	s.beginLoading()
	query := domain.TicketQuery{Filters: s.filters.Get(), Pagination: page}
	s.mu.Unlock()

	result, err := s.service.ListTickets(ctx, query)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.loading.Set(false)
	if err != nil {
		return domain.TicketPage{}, s.fail("fetch tickets", err, MsgFetchTickets)
	}
	items := make([]domain.Ticket, len(result.Items))
	copy(items, result.Items)
	s.tickets.Set(items)
	return result, nil
}

// ShowPage replaces the collection with a page fetched earlier, without a remote call.
func (s *TicketStore) ShowPage(page domain.TicketPage) {
	items := make([]domain.Ticket, len(page.Items))
	copy(items, page.Items)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets.Set(items)
}

// FetchTicketStats replaces the stats aggregate wholesale.
func (s *TicketStore) FetchTicketStats(ctx context.Context) (domain.TicketStats, error) {
	stats, err := s.refreshStats(ctx)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return domain.TicketStats{}, s.fail("fetch ticket stats", err, MsgFetchStats)
	}
	return stats, nil
}

// refreshStats reloads stats without touching the last error.
func (s *TicketStore) refreshStats(ctx context.Context) (domain.TicketStats, error) {
	stats, err := s.service.GetStats(ctx)
	if err != nil {
		return domain.TicketStats{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.Set(stats.Clone())
	return stats, nil
}

// FetchTicket loads one ticket, comments included, into the detail view.
func (s *TicketStore) FetchTicket(ctx context.Context, id int64) (domain.Ticket, error) {
	s.mu.Lock()
	s.beginLoading()
	s.mu.Unlock()

	ticket, err := s.service.GetTicket(ctx, id)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.loading.Set(false)
	if err != nil {
		return domain.Ticket{}, s.fail("fetch ticket", err, MsgFetchTicket)
	}
	detail := ticket.Clone()
	s.current.Set(&detail)
	return ticket, nil
}

package store

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/domain"
	"github.com/deskline/ticket-sync/internal/events"
)

// CreateTicket creates a ticket remotely, then prepends it and counts it in the stats.
// Nothing local changes before the server has assigned the id.
func (s *TicketStore) CreateTicket(ctx context.Context, input domain.TicketInput) (domain.Ticket, error) {
	s.mu.Lock()
	s.beginLoading()
	s.mu.Unlock()

	created, err := s.service.CreateTicket(ctx, input)

	s.mu.Lock()
	if err != nil {
		s.loading.Set(false)
		err = s.fail("create ticket", err, MsgCreateTicket)
		s.mu.Unlock()
		return domain.Ticket{}, err
	}
	current := s.tickets.Get()
	next := make([]domain.Ticket, 0, len(current)+1)
	next = append(next, created.Clone())
	next = append(next, current...)
	s.tickets.Set(next)
	s.editStats(func(st *domain.TicketStats) {
		st.AddTicket(created.Status, created.Priority, created.TicketType)
	})
	s.loading.Set(false)
	s.mu.Unlock()

	s.publish(ctx, events.Event{Type: events.EventTicketCreated, TicketIDs: []int64{created.ID}})
	return created, nil
}

// UpdateTicket sends the edit, merges the server's answer into the local record and then
// reloads stats, since arbitrary fields may have moved between counters.
func (s *TicketStore) UpdateTicket(ctx context.Context, id int64, input domain.TicketInput) (domain.Ticket, error) {
	s.mu.Lock()
	s.beginLoading()
	s.mu.Unlock()

	updated, err := s.service.UpdateTicket(ctx, id, input)

	s.mu.Lock()
	if err != nil {
		s.loading.Set(false)
		err = s.fail("update ticket", err, MsgUpdateTicket)
		s.mu.Unlock()
		return domain.Ticket{}, err
	}
	s.mergeTicket(updated, true)
	s.mu.Unlock()

	s.publish(ctx, events.Event{Type: events.EventTicketUpdated, TicketIDs: []int64{id}})

	_, statsErr := s.refreshStats(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	defer s.loading.Set(false)
	if statsErr != nil {
		return updated, s.fail("update ticket", statsErr, MsgUpdateTicket)
	}
	return updated, nil
}

// DeleteTicket removes the ticket locally before the call and puts it back at its original
// position if the call fails. Stats are only decremented once the server confirms.
func (s *TicketStore) DeleteTicket(ctx context.Context, id int64) error {
	s.mu.Lock()
	s.beginLoading()
	current := s.tickets.Get()
	index := indexOf(current, id)
	var removed *domain.Ticket
	if index >= 0 {
		t := current[index].Clone()
		removed = &t
		next := make([]domain.Ticket, 0, len(current)-1)
		next = append(next, current[:index]...)
		next = append(next, current[index+1:]...)
		s.tickets.Set(next)
		s.logger.Debug("optimistic delete applied", zap.Int64("ticket_id", id), zap.Int("index", index))
	}
	s.mu.Unlock()

	err := s.service.DeleteTicket(ctx, id)

	s.mu.Lock()
	if err != nil {
		if removed != nil {
			s.reinsert(*removed, index)
		}
		s.loading.Set(false)
		err = s.fail("delete ticket", err, MsgDeleteTicket)
		s.mu.Unlock()
		s.rolledBack(ctx, "delete", "reinsert_at_index", []int64{id}, err)
		return err
	}
	if cur := s.current.Get(); cur != nil && cur.ID == id {
		s.current.Set(nil)
	}
	if removed != nil {
		s.editStats(func(st *domain.TicketStats) { st.RemoveTicket(*removed) })
	}
	s.loading.Set(false)
	s.mu.Unlock()

	s.publish(ctx, events.Event{Type: events.EventTicketDeleted, TicketIDs: []int64{id}})
	return nil
}

func (s *TicketStore) reinsert(t domain.Ticket, index int) {
	current := s.tickets.Get()
	if index > len(current) {
		index = len(current)
	}
	next := make([]domain.Ticket, 0, len(current)+1)
	next = append(next, current[:index]...)
	next = append(next, t)
	next = append(next, current[index:]...)
	s.tickets.Set(next)
}

// AddComment posts a comment and appends it to the detail view if that ticket is loaded.
func (s *TicketStore) AddComment(ctx context.Context, ticketID int64, input domain.CommentInput) (domain.Comment, error) {
	comment, err := s.service.AddComment(ctx, ticketID, input)

	s.mu.Lock()
	if err != nil {
		err = s.fail("add comment", err, MsgAddComment)
		s.mu.Unlock()
		return domain.Comment{}, err
	}
	if cur := s.current.Get(); cur != nil && cur.ID == ticketID {
		next := cur.Clone()
		next.Comments = append(next.Comments, comment)
		s.current.Set(&next)
	}
	s.mu.Unlock()

	s.publish(ctx, events.Event{Type: events.EventCommentAdded, TicketIDs: []int64{ticketID}})
	return comment, nil
}

// AssignTicket assigns the ticket and reloads its detail. Status counters are unaffected.
func (s *TicketStore) AssignTicket(ctx context.Context, ticketID, userID int64) (domain.Ticket, error) {
	resp, err := s.service.AssignTicket(ctx, ticketID, userID)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return domain.Ticket{}, s.fail("assign ticket", err, MsgAssignTicket)
	}
	if err := s.reloadDetail(ctx, ticketID); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return resp, s.fail("assign ticket", err, MsgAssignTicket)
	}
	s.publish(ctx, events.Event{
		Type:      events.EventTicketAssigned,
		TicketIDs: []int64{ticketID},
		Payload:   events.AssignedPayload{AssignedToID: userID},
	})
	return resp, nil
}

// ResolveTicket resolves the ticket; an empty code means DefaultResolutionCode.
func (s *TicketStore) ResolveTicket(ctx context.Context, ticketID int64, resolution, code string) (domain.Ticket, error) {
	if code == "" {
		code = DefaultResolutionCode
	}
	return s.changeStatus(ctx, "resolve ticket", ticketID, domain.TicketStatusResolved, MsgResolveTicket,
		func() (domain.Ticket, error) { return s.service.ResolveTicket(ctx, ticketID, resolution, code) })
}

// CloseTicket closes the ticket.
func (s *TicketStore) CloseTicket(ctx context.Context, ticketID int64) (domain.Ticket, error) {
	return s.changeStatus(ctx, "close ticket", ticketID, domain.TicketStatusClosed, MsgCloseTicket,
		func() (domain.Ticket, error) { return s.service.CloseTicket(ctx, ticketID) })
}

// ReopenTicket reopens the ticket; reason may be empty.
func (s *TicketStore) ReopenTicket(ctx context.Context, ticketID int64, reason string) (domain.Ticket, error) {
	return s.changeStatus(ctx, "reopen ticket", ticketID, domain.TicketStatusOpen, MsgReopenTicket,
		func() (domain.Ticket, error) { return s.service.ReopenTicket(ctx, ticketID, reason) })
}

// changeStatus records the status the ticket had before the call, runs it, reloads the
// detail and then moves one unit from the old status counter to target. Tickets that were
// not mirrored locally, or were already at target, leave the counters alone.
func (s *TicketStore) changeStatus(ctx context.Context, op string, ticketID int64, target domain.TicketStatus, fallback string, call func() (domain.Ticket, error)) (domain.Ticket, error) {
	original, known := s.Ticket(ticketID)

	resp, err := call()
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return domain.Ticket{}, s.fail(op, err, fallback)
	}
	if err := s.reloadDetail(ctx, ticketID); err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return resp, s.fail(op, err, fallback)
	}

	s.mu.Lock()
	if known && original.Status != target {
		s.editStats(func(st *domain.TicketStats) { st.TransitionStatus(original.Status, target, 1) })
	}
	s.mu.Unlock()

	if known && original.Status != target {
		s.publish(ctx, events.Event{
			Type:      events.EventTicketStatusChanged,
			TicketIDs: []int64{ticketID},
			Payload:   events.StatusChangedPayload{OldStatus: original.Status, NewStatus: target},
		})
	}
	return resp, nil
}

// reloadDetail fetches the ticket into the detail view and reconciles the collection entry.
func (s *TicketStore) reloadDetail(ctx context.Context, ticketID int64) error {
	fresh, err := s.FetchTicket(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("reload ticket %d: %w", ticketID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeTicket(fresh, false)
	return nil
}

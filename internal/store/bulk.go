package store

import (
	"context"

	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/domain"
	"github.com/deskline/ticket-sync/internal/events"
)

// Each bulk family compensates differently on failure and the difference is observable:
//   - status (close, status): the whole stats aggregate is restored from a snapshot; the
//     ticket status fields were never touched before success, so nothing else is reverted.
//   - assign: every ticket gets its previous assignee and status back individually, along
//     with the new->open counter move made for it.
//   - priority, type: every ticket gets its previous tag back and the stats are reloaded
//     from the server instead of being reversed.

// BulkCloseTickets closes every listed ticket.
func (s *TicketStore) BulkCloseTickets(ctx context.Context, ids []int64) (domain.BulkResult, error) {
	return s.bulkStatus(ctx, "bulk close", ids, domain.TicketStatusClosed, MsgBulkClose,
		func() (domain.BulkResult, error) { return s.service.BulkClose(ctx, ids) })
}

// BulkUpdateStatus moves every listed ticket to status.
func (s *TicketStore) BulkUpdateStatus(ctx context.Context, ids []int64, status domain.TicketStatus) (domain.BulkResult, error) {
	return s.bulkStatus(ctx, "bulk status", ids, status, MsgBulkStatus,
		func() (domain.BulkResult, error) { return s.service.BulkUpdateStatus(ctx, ids, status) })
}

func (s *TicketStore) bulkStatus(ctx context.Context, op string, ids []int64, target domain.TicketStatus, fallback string, call func() (domain.BulkResult, error)) (domain.BulkResult, error) {
	wanted := idSet(ids)

	s.mu.Lock()
	snapshot := s.stats.Get().Clone()
	affected := map[int64]struct{}{}
	affectedIDs := []int64{}
	s.editStats(func(st *domain.TicketStats) {
		for _, t := range s.tickets.Get() {
			if _, ok := wanted[t.ID]; !ok || t.Status == target {
				continue
			}
			st.TransitionStatus(t.Status, target, 1)
			affected[t.ID] = struct{}{}
			affectedIDs = append(affectedIDs, t.ID)
		}
	})
	s.logger.Debug("optimistic bulk status applied",
		zap.String("operation", op), zap.String("status", string(target)), zap.Int64s("ticket_ids", affectedIDs))
	s.mu.Unlock()

	result, err := call()

	s.mu.Lock()
	if err != nil {
		s.stats.Set(snapshot)
		err = s.fail(op, err, fallback)
		s.mu.Unlock()
		s.rolledBack(ctx, op, "stats_snapshot", affectedIDs, err)
		return domain.BulkResult{}, err
	}
	s.editTickets(affected, func(t *domain.Ticket) { t.Status = target })
	s.mu.Unlock()

	s.publish(ctx, events.Event{
		Type:      events.EventTicketsBulkUpdated,
		TicketIDs: affectedIDs,
		Payload:   events.BulkUpdatedPayload{Operation: op, Field: "status", Value: string(target)},
	})
	return result, nil
}

type assignSnapshot struct {
	assignedToID *int64
	status       domain.TicketStatus
	autoOpened   bool
}

// BulkAssignTickets assigns every listed ticket to userID. Tickets still in "new" are opened
// as part of the assignment.
func (s *TicketStore) BulkAssignTickets(ctx context.Context, ids []int64, userID int64) (domain.BulkResult, error) {
	const op = "bulk assign"
	wanted := idSet(ids)

	s.mu.Lock()
	originals := map[int64]assignSnapshot{}
	affectedIDs := []int64{}
	for _, t := range s.tickets.Get() {
		if _, ok := wanted[t.ID]; !ok {
			continue
		}
		snap := assignSnapshot{status: t.Status, autoOpened: t.Status == domain.TicketStatusNew}
		if t.AssignedToID != nil {
			snap.assignedToID = domain.Int64Ptr(*t.AssignedToID)
		}
		originals[t.ID] = snap
		affectedIDs = append(affectedIDs, t.ID)
	}
	s.editTickets(wanted, func(t *domain.Ticket) {
		t.AssignedToID = domain.Int64Ptr(userID)
		if t.Status == domain.TicketStatusNew {
			t.Status = domain.TicketStatusOpen
		}
	})
	s.editStats(func(st *domain.TicketStats) {
		for _, snap := range originals {
			if snap.autoOpened {
				st.TransitionStatus(domain.TicketStatusNew, domain.TicketStatusOpen, 1)
			}
		}
	})
	s.mu.Unlock()

	result, err := s.service.BulkAssign(ctx, ids, userID)

	s.mu.Lock()
	if err != nil {
		restored := map[int64]struct{}{}
		s.editTickets(wanted, func(t *domain.Ticket) {
			snap, ok := originals[t.ID]
			if !ok {
				return
			}
			t.AssignedToID = snap.assignedToID
			t.Status = snap.status
			restored[t.ID] = struct{}{}
		})
		s.editStats(func(st *domain.TicketStats) {
			for id := range restored {
				if originals[id].autoOpened {
					st.TransitionStatus(domain.TicketStatusOpen, domain.TicketStatusNew, 1)
				}
			}
		})
		err = s.fail(op, err, MsgBulkAssign)
		s.mu.Unlock()
		s.rolledBack(ctx, op, "per_ticket", affectedIDs, err)
		return domain.BulkResult{}, err
	}
	s.mu.Unlock()

	s.publish(ctx, events.Event{
		Type:      events.EventTicketsBulkUpdated,
		TicketIDs: affectedIDs,
		Payload:   events.BulkUpdatedPayload{Operation: op, Field: "assigned_to_id", Value: formatID(userID)},
	})
	return result, nil
}

// BulkUpdatePriority sets priority on every listed ticket.
func (s *TicketStore) BulkUpdatePriority(ctx context.Context, ids []int64, priority string) (domain.BulkResult, error) {
	return s.bulkTag(ctx, "bulk priority", ids, priority, MsgBulkPriority, tagField{
		name: "priority",
		get:  func(t domain.Ticket) string { return t.Priority },
		set:  func(t *domain.Ticket, v string) { t.Priority = v },
		move: func(st *domain.TicketStats, from, to string) { st.MovePriority(from, to) },
	}, func() (domain.BulkResult, error) { return s.service.BulkUpdatePriority(ctx, ids, priority) })
}

// BulkUpdateType sets the ticket type on every listed ticket.
func (s *TicketStore) BulkUpdateType(ctx context.Context, ids []int64, ticketType string) (domain.BulkResult, error) {
	return s.bulkTag(ctx, "bulk type", ids, ticketType, MsgBulkTicketType, tagField{
		name: "ticket_type",
		get:  func(t domain.Ticket) string { return t.TicketType },
		set:  func(t *domain.Ticket, v string) { t.TicketType = v },
		move: func(st *domain.TicketStats, from, to string) { st.MoveType(from, to) },
	}, func() (domain.BulkResult, error) { return s.service.BulkUpdateType(ctx, ids, ticketType) })
}

type tagField struct {
	name string
	get  func(domain.Ticket) string
	set  func(*domain.Ticket, string)
	move func(st *domain.TicketStats, from, to string)
}

func (s *TicketStore) bulkTag(ctx context.Context, op string, ids []int64, value, fallback string, field tagField, call func() (domain.BulkResult, error)) (domain.BulkResult, error) {
	wanted := idSet(ids)

	s.mu.Lock()
	originals := map[int64]string{}
	affectedIDs := []int64{}
	for _, t := range s.tickets.Get() {
		if _, ok := wanted[t.ID]; ok {
			originals[t.ID] = field.get(t)
			affectedIDs = append(affectedIDs, t.ID)
		}
	}
	s.editStats(func(st *domain.TicketStats) {
		for _, id := range affectedIDs {
			field.move(st, originals[id], value)
		}
	})
	s.editTickets(wanted, func(t *domain.Ticket) { field.set(t, value) })
	s.mu.Unlock()

	result, err := call()
	if err == nil {
		s.publish(ctx, events.Event{
			Type:      events.EventTicketsBulkUpdated,
			TicketIDs: affectedIDs,
			Payload:   events.BulkUpdatedPayload{Operation: op, Field: field.name, Value: value},
		})
		return result, nil
	}

	s.mu.Lock()
	s.editTickets(wanted, func(t *domain.Ticket) {
		if prev, ok := originals[t.ID]; ok {
			field.set(t, prev)
		}
	})
	s.mu.Unlock()

	if _, statsErr := s.refreshStats(ctx); statsErr != nil {
		s.logger.Error("stats reload after rollback failed", zap.String("operation", op), zap.Error(statsErr))
	}

	s.mu.Lock()
	err = s.fail(op, err, fallback)
	s.mu.Unlock()
	s.rolledBack(ctx, op, "per_ticket_reload_stats", affectedIDs, err)
	return domain.BulkResult{}, err
}

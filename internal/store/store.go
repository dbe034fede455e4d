// Package store keeps the local mirror of tickets and their aggregate statistics.
//
// Mutations are optimistic where the remote call allows it: the local edit is applied first,
// confirmed or reconciled when the Ticket Service answers, and compensated when it fails.
// Each synchronous segment of an operation runs under the store mutex; the mutex is never
// held across a remote call, so overlapping operations interleave only at those points and
// the segment that completes last wins.
package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/domain"
	"github.com/deskline/ticket-sync/internal/events"
	"github.com/deskline/ticket-sync/internal/reactive"
	apperrors "github.com/deskline/ticket-sync/pkg/util/errorutil"
)

// TicketService is the remote collaborator the store mirrors.
type TicketService interface {
	ListTickets(ctx context.Context, query domain.TicketQuery) (domain.TicketPage, error)
	GetStats(ctx context.Context) (domain.TicketStats, error)
	GetTicket(ctx context.Context, id int64) (domain.Ticket, error)
	CreateTicket(ctx context.Context, input domain.TicketInput) (domain.Ticket, error)
	UpdateTicket(ctx context.Context, id int64, input domain.TicketInput) (domain.Ticket, error)
	DeleteTicket(ctx context.Context, id int64) error
	AddComment(ctx context.Context, ticketID int64, input domain.CommentInput) (domain.Comment, error)
	AssignTicket(ctx context.Context, ticketID, userID int64) (domain.Ticket, error)
	ResolveTicket(ctx context.Context, ticketID int64, resolution, code string) (domain.Ticket, error)
	CloseTicket(ctx context.Context, ticketID int64) (domain.Ticket, error)
	ReopenTicket(ctx context.Context, ticketID int64, reason string) (domain.Ticket, error)
	BulkClose(ctx context.Context, ids []int64) (domain.BulkResult, error)
	BulkUpdateStatus(ctx context.Context, ids []int64, status domain.TicketStatus) (domain.BulkResult, error)
	BulkAssign(ctx context.Context, ids []int64, userID int64) (domain.BulkResult, error)
	BulkUpdatePriority(ctx context.Context, ids []int64, priority string) (domain.BulkResult, error)
	BulkUpdateType(ctx context.Context, ids []int64, ticketType string) (domain.BulkResult, error)
}

// Session supplies the identity of the signed-in user.
type Session interface {
	CurrentUserID() (int64, bool)
}

// Dependencies bundles collaborators for the store.
type Dependencies struct {
	Service    TicketService
	Session    Session
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// Fallback messages recorded as the last error when the server gives no detail.
const (
	MsgFetchTickets   = "Failed to fetch tickets"
	MsgFetchStats     = "Failed to fetch ticket stats"
	MsgFetchTicket    = "Failed to fetch ticket"
	MsgCreateTicket   = "Failed to create ticket"
	MsgUpdateTicket   = "Failed to update ticket"
	MsgDeleteTicket   = "Failed to delete ticket"
	MsgAddComment     = "Failed to add comment"
	MsgAssignTicket   = "Failed to assign ticket"
	MsgResolveTicket  = "Failed to resolve ticket"
	MsgCloseTicket    = "Failed to close ticket"
	MsgReopenTicket   = "Failed to reopen ticket"
	MsgBulkClose      = "Failed to close tickets"
	MsgBulkStatus     = "Failed to update ticket status"
	MsgBulkAssign     = "Failed to assign tickets"
	MsgBulkPriority   = "Failed to update ticket priority"
	MsgBulkTicketType = "Failed to update ticket type"
)

// DefaultResolutionCode is sent when a ticket is resolved without a code.
const DefaultResolutionCode = "fixed"

// TicketStore is the single owner of the ticket collection, the current detail record,
// the stats aggregate and the filter set for one session.
type TicketStore struct {
	service    TicketService
	session    Session
	dispatcher events.Dispatcher
	logger     *zap.Logger

	mu sync.Mutex

	tickets *reactive.Value[[]domain.Ticket]
	current *reactive.Value[*domain.Ticket]
	stats   *reactive.Value[domain.TicketStats]
	loading *reactive.Value[bool]
	lastErr *reactive.Value[string]
	filters *reactive.Value[domain.Filters]
}

// NewTicketStore constructs the store.
func NewTicketStore(deps Dependencies) *TicketStore {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketStore{
		service:    deps.Service,
		session:    deps.Session,
		dispatcher: deps.Dispatcher,
		logger:     logger.Named("ticket_store"),
		tickets:    reactive.NewValue[[]domain.Ticket](nil),
		current:    reactive.NewValue[*domain.Ticket](nil),
		stats:      reactive.NewValue(domain.NewTicketStats()),
		loading:    reactive.NewValue(false),
		lastErr:    reactive.NewValue(""),
		filters:    reactive.NewValue(domain.Filters{}),
	}
}

// Tickets is the mirrored collection. Slices handed out are never mutated by the store.
func (s *TicketStore) Tickets() reactive.ReadOnly[[]domain.Ticket] { return s.tickets }

// Current is the ticket loaded in the detail view, nil when none.
func (s *TicketStore) Current() reactive.ReadOnly[*domain.Ticket] { return s.current }

// Stats is the aggregate counters.
func (s *TicketStore) Stats() reactive.ReadOnly[domain.TicketStats] { return s.stats }

// Loading is true while a list, detail, create, update or delete call is outstanding.
func (s *TicketStore) Loading() reactive.ReadOnly[bool] { return s.loading }

// LastError is the display message of the most recent failure, empty when cleared.
func (s *TicketStore) LastError() reactive.ReadOnly[string] { return s.lastErr }

// Filters is the filter set applied by FetchTickets.
func (s *TicketStore) Filters() reactive.ReadOnly[domain.Filters] { return s.filters }

// SetFilters replaces the whole filter set.
func (s *TicketStore) SetFilters(f domain.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.filters.Set(f)
}

// PatchFilters applies fn to a copy of the filter set and stores the result.
func (s *TicketStore) PatchFilters(fn func(*domain.Filters)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.filters.Get()
	fn(&next)
	s.filters.Set(next)
}

// ClearFilters resets every filter.
func (s *TicketStore) ClearFilters() {
	s.SetFilters(domain.Filters{})
}

// OpenTickets returns tickets in new, open or pending status.
func (s *TicketStore) OpenTickets() []domain.Ticket {
	var out []domain.Ticket
	for _, t := range s.tickets.Get() {
		if t.Status.IsOpen() {
			out = append(out, t)
		}
	}
	return out
}

// MyTickets returns tickets assigned to or requested by the session user.
func (s *TicketStore) MyTickets() []domain.Ticket {
	if s.session == nil {
		return nil
	}
	userID, ok := s.session.CurrentUserID()
	if !ok {
		return nil
	}
	var out []domain.Ticket
	for _, t := range s.tickets.Get() {
		if t.IsAssignedTo(userID) || t.IsRequestedBy(userID) {
			out = append(out, t)
		}
	}
	return out
}

// Ticket looks up a mirrored ticket by id.
func (s *TicketStore) Ticket(id int64) (domain.Ticket, bool) {
	tickets := s.tickets.Get()
	if i := indexOf(tickets, id); i >= 0 {
		return tickets[i], true
	}
	return domain.Ticket{}, false
}

// The helpers below expect s.mu to be held.

func (s *TicketStore) beginLoading() {
	s.loading.Set(true)
	s.lastErr.Set("")
}

func (s *TicketStore) fail(op string, err error, fallback string) error {
	s.lastErr.Set(apperrors.DetailOr(err, fallback))
	return fmt.Errorf("%s: %w", op, err)
}

func (s *TicketStore) editStats(fn func(*domain.TicketStats)) {
	next := s.stats.Get().Clone()
	fn(&next)
	s.stats.Set(next)
}

// editTickets applies fn to copies of the tickets whose ids are in ids and publishes one new
// collection. Ids missing from the collection are skipped.
func (s *TicketStore) editTickets(ids map[int64]struct{}, fn func(*domain.Ticket)) {
	current := s.tickets.Get()
	next := make([]domain.Ticket, len(current))
	changed := false
	for i, t := range current {
		if _, ok := ids[t.ID]; ok {
			t = t.Clone()
			fn(&t)
			changed = true
		}
		next[i] = t
	}
	if changed {
		s.tickets.Set(next)
	}
}

func (s *TicketStore) editTicket(id int64, fn func(*domain.Ticket)) {
	s.editTickets(map[int64]struct{}{id: {}}, fn)
}

// mergeTicket shallow-merges a server representation into the collection entry and, when it
// is the same record, into the detail view.
func (s *TicketStore) mergeTicket(fresh domain.Ticket, intoCurrent bool) {
	listPatch := fresh.Clone()
	listPatch.Comments = nil
	s.editTicket(fresh.ID, func(t *domain.Ticket) {
		*t = s.merged(*t, listPatch)
	})
	if !intoCurrent {
		return
	}
	if cur := s.current.Get(); cur != nil && cur.ID == fresh.ID {
		next := s.merged(*cur, fresh)
		s.current.Set(&next)
	}
}

func (s *TicketStore) merged(base, patch domain.Ticket) domain.Ticket {
	out, err := domain.MergeTicket(base, patch)
	if err != nil {
		s.logger.Warn("merge ticket failed; using server copy", zap.Int64("ticket_id", base.ID), zap.Error(err))
		return patch
	}
	return out
}

func (s *TicketStore) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func (s *TicketStore) rolledBack(ctx context.Context, op, strategy string, ids []int64, err error) {
	s.logger.Warn("optimistic update rolled back",
		zap.String("operation", op),
		zap.String("strategy", strategy),
		zap.Int64s("ticket_ids", ids),
		zap.Error(err))
	s.publish(ctx, events.Event{
		Type:      events.EventMutationRolledBack,
		TicketIDs: ids,
		Payload:   events.RolledBackPayload{Operation: op, Strategy: strategy, Error: err.Error()},
	})
}

func indexOf(tickets []domain.Ticket, id int64) int {
	for i := range tickets {
		if tickets[i].ID == id {
			return i
		}
	}
	return -1
}

func idSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

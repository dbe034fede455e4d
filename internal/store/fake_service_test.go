package store

import (
	"context"
	"net/http"
	"sync"

	"github.com/deskline/ticket-sync/internal/domain"
	apperrors "github.com/deskline/ticket-sync/pkg/util/errorutil"
)

type gate struct {
	started chan struct{}
	release chan struct{}
}

// fakeService is an in-memory Ticket Service with per-call failure injection and gates that
// hold a call open until released.
type fakeService struct {
	mu        sync.Mutex
	tickets   map[int64]domain.Ticket
	stats     domain.TicketStats
	page      domain.TicketPage
	errs      map[string]error
	gates     map[string]*gate
	calls     []string
	nextID    int64
	lastQuery domain.TicketQuery
	lastArgs  map[string][]any

	// updateReply, when set, is returned by UpdateTicket instead of the stored ticket.
	updateReply *domain.Ticket
}

func newFakeService() *fakeService {
	return &fakeService{
		tickets:  map[int64]domain.Ticket{},
		stats:    domain.NewTicketStats(),
		errs:     map[string]error{},
		gates:    map[string]*gate{},
		nextID:   100,
		lastArgs: map[string][]any{},
	}
}

func remoteErr(detail string) error {
	return apperrors.NewRemoteFailure(http.StatusBadRequest, detail, nil)
}

func (f *fakeService) put(tickets ...domain.Ticket) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range tickets {
		f.tickets[t.ID] = t
	}
}

func (f *fakeService) failOn(name string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[name] = err
}

func (f *fakeService) hold(name string) *gate {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := &gate{started: make(chan struct{}), release: make(chan struct{})}
	f.gates[name] = g
	return g
}

func (f *fakeService) called(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

func (f *fakeService) enter(name string, args ...any) error {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.lastArgs[name] = args
	g := f.gates[name]
	delete(f.gates, name)
	err := f.errs[name]
	f.mu.Unlock()

	if g != nil {
		close(g.started)
		<-g.release
	}
	return err
}

func (f *fakeService) setStatus(id int64, status domain.TicketStatus) domain.Ticket {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[id]
	t.Status = status
	f.tickets[id] = t
	return t
}

// apply edits the stored tickets a bulk call touched; unknown ids are skipped.
func (f *fakeService) apply(ids []int64, fn func(*domain.Ticket)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, id := range ids {
		if t, ok := f.tickets[id]; ok {
			fn(&t)
			f.tickets[id] = t
		}
	}
}

func (f *fakeService) ListTickets(_ context.Context, q domain.TicketQuery) (domain.TicketPage, error) {
	if err := f.enter("list", q); err != nil {
		return domain.TicketPage{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = q
	return f.page, nil
}

func (f *fakeService) GetStats(context.Context) (domain.TicketStats, error) {
	if err := f.enter("stats"); err != nil {
		return domain.TicketStats{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stats.Clone(), nil
}

func (f *fakeService) GetTicket(_ context.Context, id int64) (domain.Ticket, error) {
	if err := f.enter("get", id); err != nil {
		return domain.Ticket{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tickets[id]
	if !ok {
		return domain.Ticket{}, apperrors.NewRemoteFailure(http.StatusNotFound, "Ticket not found", nil)
	}
	return t.Clone(), nil
}

func (f *fakeService) CreateTicket(_ context.Context, in domain.TicketInput) (domain.Ticket, error) {
	if err := f.enter("create", in); err != nil {
		return domain.Ticket{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	t := domain.Ticket{ID: f.nextID}
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Status != nil {
		t.Status = *in.Status
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	if in.TicketType != nil {
		t.TicketType = *in.TicketType
	}
	f.tickets[t.ID] = t
	return t, nil
}

func (f *fakeService) UpdateTicket(_ context.Context, id int64, in domain.TicketInput) (domain.Ticket, error) {
	if err := f.enter("update", id, in); err != nil {
		return domain.Ticket{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[id]
	if in.Title != nil {
		t.Title = *in.Title
	}
	if in.Priority != nil {
		t.Priority = *in.Priority
	}
	f.tickets[id] = t
	if f.updateReply != nil {
		return *f.updateReply, nil
	}
	return t, nil
}

func (f *fakeService) DeleteTicket(_ context.Context, id int64) error {
	if err := f.enter("delete", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tickets, id)
	return nil
}

func (f *fakeService) AddComment(_ context.Context, ticketID int64, in domain.CommentInput) (domain.Comment, error) {
	if err := f.enter("comment", ticketID, in); err != nil {
		return domain.Comment{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return domain.Comment{ID: f.nextID, TicketID: ticketID, Content: in.Content}, nil
}

func (f *fakeService) AssignTicket(_ context.Context, ticketID, userID int64) (domain.Ticket, error) {
	if err := f.enter("assign", ticketID, userID); err != nil {
		return domain.Ticket{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	t := f.tickets[ticketID]
	t.AssignedToID = domain.Int64Ptr(userID)
	f.tickets[ticketID] = t
	return t, nil
}

func (f *fakeService) ResolveTicket(_ context.Context, ticketID int64, resolution, code string) (domain.Ticket, error) {
	if err := f.enter("resolve", ticketID, resolution, code); err != nil {
		return domain.Ticket{}, err
	}
	return f.setStatus(ticketID, domain.TicketStatusResolved), nil
}

func (f *fakeService) CloseTicket(_ context.Context, ticketID int64) (domain.Ticket, error) {
	if err := f.enter("close", ticketID); err != nil {
		return domain.Ticket{}, err
	}
	return f.setStatus(ticketID, domain.TicketStatusClosed), nil
}

func (f *fakeService) ReopenTicket(_ context.Context, ticketID int64, reason string) (domain.Ticket, error) {
	if err := f.enter("reopen", ticketID, reason); err != nil {
		return domain.Ticket{}, err
	}
	return f.setStatus(ticketID, domain.TicketStatusOpen), nil
}

func (f *fakeService) BulkClose(_ context.Context, ids []int64) (domain.BulkResult, error) {
	if err := f.enter("bulk-close", ids); err != nil {
		return domain.BulkResult{}, err
	}
	f.apply(ids, func(t *domain.Ticket) { t.Status = domain.TicketStatusClosed })
	return domain.BulkResult{Updated: len(ids)}, nil
}

func (f *fakeService) BulkUpdateStatus(_ context.Context, ids []int64, status domain.TicketStatus) (domain.BulkResult, error) {
	if err := f.enter("bulk-status", ids, status); err != nil {
		return domain.BulkResult{}, err
	}
	f.apply(ids, func(t *domain.Ticket) { t.Status = status })
	return domain.BulkResult{Updated: len(ids)}, nil
}

func (f *fakeService) BulkAssign(_ context.Context, ids []int64, userID int64) (domain.BulkResult, error) {
	if err := f.enter("bulk-assign", ids, userID); err != nil {
		return domain.BulkResult{}, err
	}
	f.apply(ids, func(t *domain.Ticket) {
		t.AssignedToID = domain.Int64Ptr(userID)
		if t.Status == domain.TicketStatusNew {
			t.Status = domain.TicketStatusOpen
		}
	})
	return domain.BulkResult{Updated: len(ids)}, nil
}

func (f *fakeService) BulkUpdatePriority(_ context.Context, ids []int64, priority string) (domain.BulkResult, error) {
	if err := f.enter("bulk-priority", ids, priority); err != nil {
		return domain.BulkResult{}, err
	}
	f.apply(ids, func(t *domain.Ticket) { t.Priority = priority })
	return domain.BulkResult{Updated: len(ids)}, nil
}

func (f *fakeService) BulkUpdateType(_ context.Context, ids []int64, ticketType string) (domain.BulkResult, error) {
	if err := f.enter("bulk-type", ids, ticketType); err != nil {
		return domain.BulkResult{}, err
	}
	f.apply(ids, func(t *domain.Ticket) { t.TicketType = ticketType })
	return domain.BulkResult{Updated: len(ids)}, nil
}

type fixedSession struct {
	id int64
	ok bool
}

func (s fixedSession) CurrentUserID() (int64, bool) { return s.id, s.ok }

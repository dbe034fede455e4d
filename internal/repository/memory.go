package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/deskline/ticket-sync/internal/domain"
)

// MemoryStore backs the in-memory repositories. Tickets, comments and users share one lock
// so deleting a ticket drops its comments atomically.
type MemoryStore struct {
	mu            sync.RWMutex
	now           func() time.Time
	tickets       map[int64]domain.Ticket
	comments      map[int64][]domain.Comment
	users         map[int64]domain.User
	nextTicketID  int64
	nextCommentID int64
	nextUserID    int64
}

// NewMemoryStore creates empty storage.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		now:      time.Now,
		tickets:  map[int64]domain.Ticket{},
		comments: map[int64][]domain.Comment{},
		users:    map[int64]domain.User{},
	}
}

// Tickets returns a TicketRepository over the store.
func (m *MemoryStore) Tickets() TicketRepository { return memoryTickets{m} }

// Comments returns a CommentRepository over the store.
func (m *MemoryStore) Comments() CommentRepository { return memoryComments{m} }

// Users returns a UserRepository over the store.
func (m *MemoryStore) Users() UserRepository { return memoryUsers{m} }

func (m *MemoryStore) stamp() *time.Time {
	now := m.now().UTC()
	return &now
}

type memoryTickets struct{ m *MemoryStore }

func (r memoryTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	r.m.nextTicketID++
	ticket.ID = r.m.nextTicketID
	ticket.CreatedAt = r.m.stamp()
	ticket.UpdatedAt = ticket.CreatedAt
	stored := ticket.Clone()
	stored.Comments = nil
	r.m.tickets[ticket.ID] = stored
	return nil
}

func (r memoryTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.tickets[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = r.m.stamp()
	stored := ticket.Clone()
	stored.Comments = nil
	r.m.tickets[ticket.ID] = stored
	return nil
}

func (r memoryTickets) Delete(_ context.Context, id int64) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.tickets[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.m.tickets, id)
	delete(r.m.comments, id)
	return nil
}

func (r memoryTickets) GetByID(_ context.Context, id int64) (*domain.Ticket, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	ticket, ok := r.m.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	out := ticket.Clone()
	return &out, nil
}

func (r memoryTickets) List(_ context.Context, filter TicketFilter) ([]domain.Ticket, int, error) {
	r.m.mu.RLock()
	matched := []domain.Ticket{}
	for _, ticket := range r.m.tickets {
		if matchesFilter(ticket, filter) {
			matched = append(matched, ticket.Clone())
		}
	}
	r.m.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })
	total := len(matched)
	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []domain.Ticket{}, total, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, total, nil
}

func matchesFilter(t domain.Ticket, f TicketFilter) bool {
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	if f.Priority != "" && t.Priority != f.Priority {
		return false
	}
	if f.TicketType != "" && t.TicketType != f.TicketType {
		return false
	}
	if f.Category != "" && t.Category != f.Category {
		return false
	}
	if f.InvolvedUserID != nil && !t.IsAssignedTo(*f.InvolvedUserID) && !t.IsRequestedBy(*f.InvolvedUserID) {
		return false
	}
	if term := strings.ToLower(strings.TrimSpace(f.SearchTerm)); term != "" {
		if !strings.Contains(strings.ToLower(t.Title), term) && !strings.Contains(strings.ToLower(t.Description), term) {
			return false
		}
	}
	return true
}

func (r memoryTickets) BulkUpdate(_ context.Context, ids []int64, patch TicketPatch) (int, error) {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	updated := 0
	seen := map[int64]struct{}{}
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ticket, ok := r.m.tickets[id]
		if !ok {
			continue
		}
		patch.Apply(&ticket)
		ticket.UpdatedAt = r.m.stamp()
		r.m.tickets[id] = ticket
		updated++
	}
	return updated, nil
}

func (r memoryTickets) Stats(_ context.Context) (domain.TicketStats, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	all := make([]domain.Ticket, 0, len(r.m.tickets))
	for _, ticket := range r.m.tickets {
		all = append(all, ticket)
	}
	return domain.StatsFromTickets(all), nil
}

type memoryComments struct{ m *MemoryStore }

func (r memoryComments) Create(_ context.Context, comment *domain.Comment) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	if _, ok := r.m.tickets[comment.TicketID]; !ok {
		return pgx.ErrNoRows
	}
	r.m.nextCommentID++
	comment.ID = r.m.nextCommentID
	comment.CreatedAt = r.m.stamp()
	r.m.comments[comment.TicketID] = append(r.m.comments[comment.TicketID], *comment)
	return nil
}

func (r memoryComments) ListByTicket(_ context.Context, ticketID int64) ([]domain.Comment, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	return append([]domain.Comment{}, r.m.comments[ticketID]...), nil
}

type memoryUsers struct{ m *MemoryStore }

func (r memoryUsers) Create(_ context.Context, user *domain.User) error {
	r.m.mu.Lock()
	defer r.m.mu.Unlock()
	for id, existing := range r.m.users {
		if existing.Username == user.Username {
			user.ID = id
			r.m.users[id] = *user
			return nil
		}
	}
	r.m.nextUserID++
	user.ID = r.m.nextUserID
	r.m.users[user.ID] = *user
	return nil
}

func (r memoryUsers) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	user, ok := r.m.users[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &user, nil
}

func (r memoryUsers) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.m.mu.RLock()
	defer r.m.mu.RUnlock()
	for _, user := range r.m.users {
		if user.Username == username {
			out := user
			return &out, nil
		}
	}
	return nil, pgx.ErrNoRows
}

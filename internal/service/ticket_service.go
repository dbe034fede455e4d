package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/domain"
	"github.com/deskline/ticket-sync/internal/repository"
	apperrors "github.com/deskline/ticket-sync/pkg/util/errorutil"
)

const (
	defaultPageSize = 100
	maxPageSize     = 500
)

// TicketService implements the Ticket Service workflows served by the dev server.
type TicketService struct {
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	stats    StatsCache
	logger   *zap.Logger
}

// TicketDependencies bundles repositories for ticket service. Stats may be nil.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Stats       StatsCache
	Logger      *zap.Logger
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:  deps.TicketRepo,
		comments: deps.CommentRepo,
		users:    deps.UserRepo,
		stats:    deps.Stats,
		logger:   logger,
	}
}

// ListTickets returns a page of tickets matching query. my_tickets narrows to tickets the
// caller is assigned to or requested.
func (s *TicketService) ListTickets(ctx context.Context, caller *domain.User, query domain.TicketQuery) (domain.TicketPage, error) {
	if query.Status != "" && !query.Status.Valid() {
		return domain.TicketPage{}, apperrors.NewValidationError("Invalid status", map[string]any{"status": query.Status})
	}
	limit := query.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	filter := repository.TicketFilter{
		Status:     query.Status,
		Priority:   query.Priority,
		TicketType: query.TicketType,
		Category:   query.Category,
		SearchTerm: query.Search,
		Limit:      limit,
		Offset:     query.Skip,
	}
	if query.MyTickets && caller != nil {
		filter.InvolvedUserID = &caller.ID
	}
	items, total, err := s.tickets.List(ctx, filter)
	if err != nil {
		return domain.TicketPage{}, err
	}
	return domain.TicketPage{Items: items, Total: total}, nil
}

// Stats returns the aggregate, served from the stats cache when it holds one.
func (s *TicketService) Stats(ctx context.Context) (domain.TicketStats, error) {
	if s.stats != nil {
		cached, ok, err := s.stats.Get(ctx)
		if err != nil {
			s.logger.Warn("stats cache read failed", zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}
	stats, err := s.tickets.Stats(ctx)
	if err != nil {
		return domain.TicketStats{}, err
	}
	if s.stats != nil {
		if err := s.stats.Set(ctx, stats); err != nil {
			s.logger.Warn("stats cache write failed", zap.Error(err))
		}
	}
	return stats, nil
}

// GetTicket returns a ticket with its comments.
func (s *TicketService) GetTicket(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, id)
	if err != nil {
		return nil, err
	}
	ticket.Comments = comments
	return ticket, nil
}

// CreateTicket creates a ticket requested by caller. Missing tags get the defaults.
func (s *TicketService) CreateTicket(ctx context.Context, caller *domain.User, input domain.TicketInput) (*domain.Ticket, error) {
	ticket := &domain.Ticket{
		Status:     domain.TicketStatusNew,
		Priority:   domain.DefaultPriority,
		TicketType: domain.DefaultTicketType,
	}
	if caller != nil {
		ticket.RequesterID = domain.Int64Ptr(caller.ID)
	}
	if err := applyInput(ticket, input); err != nil {
		return nil, err
	}
	if ticket.Title == "" {
		return nil, apperrors.NewValidationError("Title is required", nil)
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}
	s.invalidateStats(ctx)
	s.logger.Info("ticket created", zap.Int64("ticket_id", ticket.ID))
	return ticket, nil
}

// UpdateTicket applies the non-nil fields of input.
func (s *TicketService) UpdateTicket(ctx context.Context, id int64, input domain.TicketInput) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := applyInput(ticket, input); err != nil {
		return nil, err
	}
	if ticket.Title == "" {
		return nil, apperrors.NewValidationError("Title is required", nil)
	}
	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// DeleteTicket removes a ticket and its comments.
func (s *TicketService) DeleteTicket(ctx context.Context, id int64) error {
	if err := s.tickets.Delete(ctx, id); err != nil {
		return notFound(err, "Ticket")
	}
	s.invalidateStats(ctx)
	s.logger.Info("ticket deleted", zap.Int64("ticket_id", id))
	return nil
}

// AddComment appends a comment authored by caller.
func (s *TicketService) AddComment(ctx context.Context, caller *domain.User, ticketID int64, input domain.CommentInput) (*domain.Comment, error) {
	content := strings.TrimSpace(input.Content)
	if content == "" {
		return nil, apperrors.NewValidationError("Comment content is required", nil)
	}
	comment := &domain.Comment{TicketID: ticketID, Content: content, IsInternal: input.IsInternal}
	if caller != nil {
		comment.AuthorID = domain.Int64Ptr(caller.ID)
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, notFound(err, "Ticket")
	}
	return comment, nil
}

// AssignTicket sets the assignee. The status is left unchanged.
func (s *TicketService) AssignTicket(ctx context.Context, ticketID, userID int64) (*domain.Ticket, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, notFound(err, "User")
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.AssignedToID = domain.Int64Ptr(userID)
	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ResolveTicket marks the ticket resolved with a resolution text and code.
func (s *TicketService) ResolveTicket(ctx context.Context, ticketID int64, resolution, code string) (*domain.Ticket, error) {
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return nil, apperrors.NewValidationError("Resolution is required", nil)
	}
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	ticket.Status = domain.TicketStatusResolved
	ticket.Resolution = resolution
	repository.SetResolutionCode(ticket, code)
	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// CloseTicket closes the ticket. Closing a closed ticket succeeds without change.
func (s *TicketService) CloseTicket(ctx context.Context, ticketID int64) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status == domain.TicketStatusClosed {
		return ticket, nil
	}
	ticket.Status = domain.TicketStatusClosed
	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ReopenTicket moves a resolved or closed ticket back to open. A reason is kept as an
// internal comment.
func (s *TicketService) ReopenTicket(ctx context.Context, caller *domain.User, ticketID int64, reason string) (*domain.Ticket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.Status != domain.TicketStatusResolved && ticket.Status != domain.TicketStatusClosed {
		return nil, apperrors.NewValidationError("Only resolved or closed tickets can be reopened", map[string]any{"status": ticket.Status})
	}
	ticket.Status = domain.TicketStatusOpen
	ticket.Resolution = ""
	repository.SetResolutionCode(ticket, "")
	if err := s.save(ctx, ticket); err != nil {
		return nil, err
	}
	if reason = strings.TrimSpace(reason); reason != "" {
		if _, err := s.AddComment(ctx, caller, ticketID, domain.CommentInput{Content: "Reopened: " + reason, IsInternal: true}); err != nil {
			s.logger.Warn("recording reopen reason failed", zap.Int64("ticket_id", ticketID), zap.Error(err))
		}
	}
	return ticket, nil
}

// BulkUpdate applies patch to every listed ticket that exists.
func (s *TicketService) BulkUpdate(ctx context.Context, ids []int64, patch repository.TicketPatch) (domain.BulkResult, error) {
	if len(ids) == 0 {
		return domain.BulkResult{}, apperrors.NewValidationError("No tickets selected", nil)
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return domain.BulkResult{}, apperrors.NewValidationError("Invalid status", map[string]any{"status": *patch.Status})
	}
	if patch.Priority != nil && strings.TrimSpace(*patch.Priority) == "" {
		return domain.BulkResult{}, apperrors.NewValidationError("Priority is required", nil)
	}
	if patch.TicketType != nil && strings.TrimSpace(*patch.TicketType) == "" {
		return domain.BulkResult{}, apperrors.NewValidationError("Ticket type is required", nil)
	}
	if patch.AssignedToID != nil {
		if _, err := s.users.GetByID(ctx, *patch.AssignedToID); err != nil {
			return domain.BulkResult{}, notFound(err, "User")
		}
	}
	updated, err := s.tickets.BulkUpdate(ctx, ids, patch)
	if err != nil {
		return domain.BulkResult{}, err
	}
	s.invalidateStats(ctx)
	s.logger.Info("bulk update", zap.Int64s("ticket_ids", ids), zap.Int("updated", updated))
	return domain.BulkResult{Updated: updated, Message: fmt.Sprintf("%d tickets updated", updated)}, nil
}

func (s *TicketService) load(ctx context.Context, id int64) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "Ticket")
	}
	return ticket, nil
}

func (s *TicketService) save(ctx context.Context, ticket *domain.Ticket) error {
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return notFound(err, "Ticket")
	}
	s.invalidateStats(ctx)
	return nil
}

func (s *TicketService) invalidateStats(ctx context.Context) {
	if s.stats == nil {
		return
	}
	if err := s.stats.Invalidate(ctx); err != nil {
		s.logger.Warn("stats cache invalidation failed", zap.Error(err))
	}
}

func applyInput(ticket *domain.Ticket, input domain.TicketInput) error {
	if input.Status != nil {
		if !input.Status.Valid() {
			return apperrors.NewValidationError("Invalid status", map[string]any{"status": *input.Status})
		}
		ticket.Status = *input.Status
	}
	if input.Title != nil {
		ticket.Title = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil && *input.Priority != "" {
		ticket.Priority = *input.Priority
	}
	if input.TicketType != nil && *input.TicketType != "" {
		ticket.TicketType = *input.TicketType
	}
	if input.Category != nil {
		ticket.Category = *input.Category
	}
	if input.AssignedToID != nil {
		ticket.AssignedToID = domain.Int64Ptr(*input.AssignedToID)
	}
	if input.SLABreached != nil {
		ticket.SLABreached = *input.SLABreached
	}
	return nil
}

func notFound(err error, resource string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound(resource, nil)
	}
	return err
}

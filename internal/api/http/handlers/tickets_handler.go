package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/deskline/ticket-sync/internal/api/dto"
	"github.com/deskline/ticket-sync/internal/auth"
	"github.com/deskline/ticket-sync/internal/domain"
	"github.com/deskline/ticket-sync/internal/repository"
	"github.com/deskline/ticket-sync/internal/service"
	apperrors "github.com/deskline/ticket-sync/pkg/util/errorutil"
)

// TicketsHandler serves the /tickets endpoints.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /tickets/.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	params, err := url.ParseQuery(string(c.Request().URI().QueryString()))
	if err != nil {
		return apperrors.NewValidationError("Invalid query string", nil)
	}
	page, err := h.service.ListTickets(c.UserContext(), caller(c), domain.ParseTicketQuery(params))
	if err != nil {
		return err
	}
	return c.JSON(page)
}

// Stats GET /tickets/stats.
func (h *TicketsHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.service.Stats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// GetTicket GET /tickets/:id.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.GetTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

// CreateTicket POST /tickets/.
func (h *TicketsHandler) CreateTicket(c *fiber.Ctx) error {
	var input domain.TicketInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("Invalid payload", nil)
	}
	ticket, err := h.service.CreateTicket(c.UserContext(), caller(c), input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(ticket)
}

// UpdateTicket PUT /tickets/:id.
func (h *TicketsHandler) UpdateTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var input domain.TicketInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("Invalid payload", nil)
	}
	ticket, err := h.service.UpdateTicket(c.UserContext(), id, input)
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

// DeleteTicket DELETE /tickets/:id.
func (h *TicketsHandler) DeleteTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	if err := h.service.DeleteTicket(c.UserContext(), id); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// AddComment POST /tickets/:id/comments.
func (h *TicketsHandler) AddComment(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	var input domain.CommentInput
	if err := c.BodyParser(&input); err != nil {
		return apperrors.NewValidationError("Invalid payload", nil)
	}
	comment, err := h.service.AddComment(c.UserContext(), caller(c), id, input)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(comment)
}

// AssignTicket POST /tickets/:id/assign?user_id=.
func (h *TicketsHandler) AssignTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	userID, err := strconv.ParseInt(c.Query("user_id"), 10, 64)
	if err != nil {
		return apperrors.NewValidationError("user_id must be an integer", nil)
	}
	ticket, err := h.service.AssignTicket(c.UserContext(), id, userID)
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

// ResolveTicket POST /tickets/:id/resolve?resolution=&resolution_code=.
func (h *TicketsHandler) ResolveTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.ResolveTicket(c.UserContext(), id, c.Query("resolution"), c.Query("resolution_code"))
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

// CloseTicket POST /tickets/:id/close.
func (h *TicketsHandler) CloseTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.CloseTicket(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

// ReopenTicket POST /tickets/:id/reopen.
func (h *TicketsHandler) ReopenTicket(c *fiber.Ctx) error {
	id, err := ticketID(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.ReopenTicket(c.UserContext(), caller(c), id, c.Query("reason"))
	if err != nil {
		return err
	}
	return c.JSON(ticket)
}

// BulkClose POST /tickets/bulk-close.
func (h *TicketsHandler) BulkClose(c *fiber.Ctx) error {
	return h.bulk(c, func(req dto.BulkRequest) (repository.TicketPatch, error) {
		closed := domain.TicketStatusClosed
		return repository.TicketPatch{Status: &closed}, nil
	})
}

// BulkStatus POST /tickets/bulk-status.
func (h *TicketsHandler) BulkStatus(c *fiber.Ctx) error {
	return h.bulk(c, func(req dto.BulkRequest) (repository.TicketPatch, error) {
		if req.Status == nil {
			return repository.TicketPatch{}, apperrors.NewValidationError("status is required", nil)
		}
		return repository.TicketPatch{Status: req.Status}, nil
	})
}

// BulkAssign POST /tickets/bulk-assign. New tickets are opened as they are assigned.
func (h *TicketsHandler) BulkAssign(c *fiber.Ctx) error {
	return h.bulk(c, func(req dto.BulkRequest) (repository.TicketPatch, error) {
		if req.AssignedToID == nil {
			return repository.TicketPatch{}, apperrors.NewValidationError("assigned_to_id is required", nil)
		}
		return repository.TicketPatch{AssignedToID: req.AssignedToID, OpenIfNew: true}, nil
	})
}

// BulkPriority POST /tickets/bulk-priority.
func (h *TicketsHandler) BulkPriority(c *fiber.Ctx) error {
	return h.bulk(c, func(req dto.BulkRequest) (repository.TicketPatch, error) {
		if req.Priority == nil {
			return repository.TicketPatch{}, apperrors.NewValidationError("priority is required", nil)
		}
		return repository.TicketPatch{Priority: req.Priority}, nil
	})
}

// BulkType POST /tickets/bulk-type.
func (h *TicketsHandler) BulkType(c *fiber.Ctx) error {
	return h.bulk(c, func(req dto.BulkRequest) (repository.TicketPatch, error) {
		if req.TicketType == nil {
			return repository.TicketPatch{}, apperrors.NewValidationError("ticket_type is required", nil)
		}
		return repository.TicketPatch{TicketType: req.TicketType}, nil
	})
}

func (h *TicketsHandler) bulk(c *fiber.Ctx, patchFor func(dto.BulkRequest) (repository.TicketPatch, error)) error {
	var req dto.BulkRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("Invalid payload", nil)
	}
	patch, err := patchFor(req)
	if err != nil {
		return err
	}
	result, err := h.service.BulkUpdate(c.UserContext(), req.TicketIDs, patch)
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func ticketID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.NewValidationError("Ticket id must be a positive integer", map[string]any{"id": c.Params("id")})
	}
	return id, nil
}

func caller(c *fiber.Ctx) *domain.User {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return nil
	}
	return principal.User
}

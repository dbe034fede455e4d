package dto

import (
	"github.com/deskline/ticket-sync/internal/domain"
)

// BulkRequest is the body of every /tickets/bulk-* endpoint. Each endpoint reads the one
// field it changes.
type BulkRequest struct {
	TicketIDs    []int64              `json:"ticket_ids"`
	Status       *domain.TicketStatus `json:"status,omitempty"`
	AssignedToID *int64               `json:"assigned_to_id,omitempty"`
	Priority     *string              `json:"priority,omitempty"`
	TicketType   *string              `json:"ticket_type,omitempty"`
}

// ErrorResponse is the error body understood by the client.
type ErrorResponse struct {
	Detail string         `json:"detail"`
	Code   string         `json:"code,omitempty"`
	Extra  map[string]any `json:"details,omitempty"`
}

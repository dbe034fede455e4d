package events

import (
	"time"

	"github.com/deskline/ticket-sync/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketUpdated       EventType = "ticket_updated"
	EventTicketDeleted       EventType = "ticket_deleted"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventCommentAdded        EventType = "comment_added"
	EventTicketsBulkUpdated  EventType = "tickets_bulk_updated"
	EventMutationRolledBack  EventType = "mutation_rolled_back"
)

// AllEventTypes lists every type the store publishes.
var AllEventTypes = []EventType{
	EventTicketCreated,
	EventTicketUpdated,
	EventTicketDeleted,
	EventTicketStatusChanged,
	EventTicketAssigned,
	EventCommentAdded,
	EventTicketsBulkUpdated,
	EventMutationRolledBack,
}

// Event represents a state change in the local ticket mirror.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	TicketIDs []int64   `json:"ticket_ids,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload,omitempty"`
}

// StatusChangedPayload payload.
type StatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// AssignedPayload payload.
type AssignedPayload struct {
	AssignedToID int64 `json:"assigned_to_id"`
}

// BulkUpdatedPayload payload.
type BulkUpdatedPayload struct {
	Operation string `json:"operation"`
	Field     string `json:"field"`
	Value     string `json:"value"`
}

// RolledBackPayload payload.
type RolledBackPayload struct {
	Operation string `json:"operation"`
	Strategy  string `json:"strategy"`
	Error     string `json:"error"`
}

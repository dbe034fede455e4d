package domain

import (
	"encoding/json"
	"time"
)

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew      TicketStatus = "new"
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusPending  TicketStatus = "pending"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

// Statuses lists every status that owns a counter in TicketStats.
var Statuses = []TicketStatus{
	TicketStatusNew,
	TicketStatusOpen,
	TicketStatusPending,
	TicketStatusResolved,
	TicketStatusClosed,
}

// IsOpen reports whether the status counts as an open (actionable) ticket.
func (s TicketStatus) IsOpen() bool {
	return s == TicketStatusNew || s == TicketStatusOpen || s == TicketStatusPending
}

// Valid reports whether s is one of the known statuses.
func (s TicketStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Priority and type are open tags; these are the values the server uses by default.
const (
	DefaultPriority   = "medium"
	DefaultTicketType = "incident"
)

// Ticket is the locally mirrored ticket record. Keys the client does not model are kept in
// Extra and written back untouched.
type Ticket struct {
	ID           int64        `json:"id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Status       TicketStatus `json:"status"`
	Priority     string       `json:"priority"`
	TicketType   string       `json:"ticket_type"`
	Category     string       `json:"category"`
	AssignedToID *int64       `json:"assigned_to_id"`
	RequesterID  *int64       `json:"requester_id"`
	SLABreached  bool         `json:"sla_breached"`
	Resolution   string       `json:"resolution,omitempty"`
	CreatedAt    *time.Time   `json:"created_at,omitempty"`
	UpdatedAt    *time.Time   `json:"updated_at,omitempty"`
	Comments     []Comment    `json:"comments,omitempty"`

	Extra map[string]json.RawMessage `json:"-"`

	// keys holds the top-level keys of the document the ticket was decoded from.
	keys map[string]struct{}
}

// Comment is a message attached to a ticket.
type Comment struct {
	ID         int64      `json:"id"`
	TicketID   int64      `json:"ticket_id"`
	AuthorID   *int64     `json:"author_id,omitempty"`
	Content    string     `json:"content"`
	IsInternal bool       `json:"is_internal"`
	CreatedAt  *time.Time `json:"created_at,omitempty"`
}

// CommentInput is the payload for adding a comment.
type CommentInput struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"is_internal"`
}

// TicketInput carries create/update fields; nil pointers are omitted from the payload.
type TicketInput struct {
	Title        *string       `json:"title,omitempty"`
	Description  *string       `json:"description,omitempty"`
	Status       *TicketStatus `json:"status,omitempty"`
	Priority     *string       `json:"priority,omitempty"`
	TicketType   *string       `json:"ticket_type,omitempty"`
	Category     *string       `json:"category,omitempty"`
	AssignedToID *int64        `json:"assigned_to_id,omitempty"`
	SLABreached  *bool         `json:"sla_breached,omitempty"`
}

// TicketPage is a page of tickets returned by the list endpoint.
type TicketPage struct {
	Items []Ticket `json:"items"`
	Total int      `json:"total"`
}

// BulkResult is the acknowledgement returned by bulk endpoints.
type BulkResult struct {
	Updated int    `json:"updated"`
	Message string `json:"message,omitempty"`
}

// IsAssignedTo reports whether the ticket is assigned to userID.
func (t Ticket) IsAssignedTo(userID int64) bool {
	return t.AssignedToID != nil && *t.AssignedToID == userID
}

// IsRequestedBy reports whether userID opened the ticket.
func (t Ticket) IsRequestedBy(userID int64) bool {
	return t.RequesterID != nil && *t.RequesterID == userID
}

// Clone returns a copy that shares no mutable state with t.
func (t Ticket) Clone() Ticket {
	out := t
	if t.AssignedToID != nil {
		v := *t.AssignedToID
		out.AssignedToID = &v
	}
	if t.RequesterID != nil {
		v := *t.RequesterID
		out.RequesterID = &v
	}
	if t.Comments != nil {
		out.Comments = append([]Comment(nil), t.Comments...)
	}
	if t.Extra != nil {
		out.Extra = make(map[string]json.RawMessage, len(t.Extra))
		for k, v := range t.Extra {
			out.Extra[k] = v
		}
	}
	return out
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }

// StringPtr returns a pointer to v.
func StringPtr(v string) *string { return &v }

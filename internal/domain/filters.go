package domain

import (
	"net/url"
	"strconv"
)

// Filters is the mutable filter set consumed by the list fetch.
type Filters struct {
	Status     TicketStatus
	Priority   string
	TicketType string
	Category   string
	Search     string
	MyTickets  bool
}

// Pagination selects a window of the list result. Zero values are not sent.
type Pagination struct {
	Skip  int
	Limit int
}

// TicketQuery is the full list request.
type TicketQuery struct {
	Filters
	Pagination
}

// Values encodes the query the way the list endpoint expects: empty filters are dropped.
func (q TicketQuery) Values() url.Values {
	params := url.Values{}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	if q.Priority != "" {
		params.Set("priority", q.Priority)
	}
	if q.TicketType != "" {
		params.Set("ticket_type", q.TicketType)
	}
	if q.Category != "" {
		params.Set("category", q.Category)
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.MyTickets {
		params.Set("my_tickets", "true")
	}
	if q.Skip > 0 {
		params.Set("skip", strconv.Itoa(q.Skip))
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}
	return params
}

// ParseTicketQuery is the inverse of Values; unknown or malformed values are ignored.
func ParseTicketQuery(params url.Values) TicketQuery {
	q := TicketQuery{
		Filters: Filters{
			Status:     TicketStatus(params.Get("status")),
			Priority:   params.Get("priority"),
			TicketType: params.Get("ticket_type"),
			Category:   params.Get("category"),
			Search:     params.Get("search"),
		},
	}
	q.MyTickets, _ = strconv.ParseBool(params.Get("my_tickets"))
	if skip, err := strconv.Atoi(params.Get("skip")); err == nil && skip > 0 {
		q.Skip = skip
	}
	if limit, err := strconv.Atoi(params.Get("limit")); err == nil && limit > 0 {
		q.Limit = limit
	}
	return q
}

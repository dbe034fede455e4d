package domain

// TicketStats holds the aggregate counters shown on the ticket board.
type TicketStats struct {
	Total       int            `json:"total"`
	New         int            `json:"new"`
	Open        int            `json:"open"`
	Pending     int            `json:"pending"`
	Resolved    int            `json:"resolved"`
	Closed      int            `json:"closed"`
	SLABreached int            `json:"sla_breached"`
	ByPriority  map[string]int `json:"by_priority"`
	ByType      map[string]int `json:"by_type"`
}

// NewTicketStats returns zeroed stats with empty tag mappings.
func NewTicketStats() TicketStats {
	return TicketStats{ByPriority: map[string]int{}, ByType: map[string]int{}}
}

// Clone returns a deep copy.
func (s TicketStats) Clone() TicketStats {
	out := s
	out.ByPriority = cloneCounts(s.ByPriority)
	out.ByType = cloneCounts(s.ByType)
	return out
}

// StatusCount returns the counter for status; ok is false for statuses without a counter.
func (s TicketStats) StatusCount(status TicketStatus) (int, bool) {
	c := (&s).statusCounter(status)
	if c == nil {
		return 0, false
	}
	return *c, true
}

func (s *TicketStats) statusCounter(status TicketStatus) *int {
	switch status {
	case TicketStatusNew:
		return &s.New
	case TicketStatusOpen:
		return &s.Open
	case TicketStatusPending:
		return &s.Pending
	case TicketStatusResolved:
		return &s.Resolved
	case TicketStatusClosed:
		return &s.Closed
	}
	return nil
}

// TransitionStatus moves count units from one status counter to another. The source is
// floored at zero; unknown statuses are ignored on either side.
func (s *TicketStats) TransitionStatus(from, to TicketStatus, count int) {
	if c := s.statusCounter(from); c != nil {
		*c = floorZero(*c - count)
	}
	if c := s.statusCounter(to); c != nil {
		*c += count
	}
}

// AddTicket accounts for a newly created ticket. Empty tags fall back to the server defaults.
func (s *TicketStats) AddTicket(status TicketStatus, priority, ticketType string) {
	if status == "" {
		status = TicketStatusNew
	}
	if priority == "" {
		priority = DefaultPriority
	}
	if ticketType == "" {
		ticketType = DefaultTicketType
	}
	s.Total++
	if c := s.statusCounter(status); c != nil {
		*c++
	}
	if s.ByPriority == nil {
		s.ByPriority = map[string]int{}
	}
	s.ByPriority[priority]++
	if s.ByType == nil {
		s.ByType = map[string]int{}
	}
	s.ByType[ticketType]++
}

// RemoveTicket accounts for a deleted ticket. Every counter is floored at zero and tag
// entries that do not exist are left absent.
func (s *TicketStats) RemoveTicket(t Ticket) {
	s.Total = floorZero(s.Total - 1)
	if c := s.statusCounter(t.Status); c != nil {
		*c = floorZero(*c - 1)
	}
	decrementTag(s.ByPriority, t.Priority)
	decrementTag(s.ByType, t.TicketType)
	if t.SLABreached && s.SLABreached > 0 {
		s.SLABreached--
	}
}

// MovePriority moves one ticket from priority from to priority to.
func (s *TicketStats) MovePriority(from, to string) {
	if s.ByPriority == nil {
		s.ByPriority = map[string]int{}
	}
	decrementTag(s.ByPriority, from)
	s.ByPriority[to]++
}

// MoveType moves one ticket from type from to type to.
func (s *TicketStats) MoveType(from, to string) {
	if s.ByType == nil {
		s.ByType = map[string]int{}
	}
	decrementTag(s.ByType, from)
	s.ByType[to]++
}

// StatusSum adds up the per-status counters.
func (s TicketStats) StatusSum() int {
	return s.New + s.Open + s.Pending + s.Resolved + s.Closed
}

// StatsFromTickets computes stats from a full ticket set.
func StatsFromTickets(tickets []Ticket) TicketStats {
	stats := NewTicketStats()
	for _, t := range tickets {
		stats.Total++
		if c := stats.statusCounter(t.Status); c != nil {
			*c++
		}
		if t.SLABreached {
			stats.SLABreached++
		}
		stats.ByPriority[t.Priority]++
		stats.ByType[t.TicketType]++
	}
	return stats
}

func decrementTag(counts map[string]int, tag string) {
	if tag == "" || counts == nil {
		return
	}
	if v, ok := counts[tag]; ok {
		counts[tag] = floorZero(v - 1)
	}
}

func cloneCounts(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func floorZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

package domain

import (
	"encoding/json"
	"fmt"
)

// ticketFields is Ticket without its methods, used to avoid recursive (un)marshalling.
type ticketFields Ticket

var knownTicketKeys = map[string]struct{}{
	"id": {}, "title": {}, "description": {}, "status": {}, "priority": {},
	"ticket_type": {}, "category": {}, "assigned_to_id": {}, "requester_id": {},
	"sla_breached": {}, "resolution": {}, "created_at": {}, "updated_at": {}, "comments": {},
}

// UnmarshalJSON decodes the modelled fields and stashes every other key in Extra.
func (t *Ticket) UnmarshalJSON(data []byte) error {
	var fields ticketFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	keys := make(map[string]struct{}, len(raw))
	for key := range raw {
		keys[key] = struct{}{}
		if _, ok := knownTicketKeys[key]; ok {
			delete(raw, key)
		}
	}
	if len(raw) == 0 {
		raw = nil
	}
	fields.Extra = raw
	fields.keys = keys
	*t = Ticket(fields)
	return nil
}

// MarshalJSON writes the modelled fields followed by the passthrough keys.
func (t Ticket) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(ticketFields(t))
	if err != nil {
		return nil, err
	}
	if len(t.Extra) == 0 {
		return data, nil
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for key, value := range t.Extra {
		if _, ok := knownTicketKeys[key]; ok {
			continue
		}
		merged[key] = value
	}
	return json.Marshal(merged)
}

// MergeTicket shallow-merges patch over base. When patch was decoded from JSON only the keys
// that document carried replace base's values; a ticket built in code replaces every key.
func MergeTicket(base, patch Ticket) (Ticket, error) {
	baseRaw, err := toRawMap(base)
	if err != nil {
		return base, fmt.Errorf("merge ticket %d: %w", base.ID, err)
	}
	patchRaw, err := toRawMap(patch)
	if err != nil {
		return base, fmt.Errorf("merge ticket %d: %w", base.ID, err)
	}
	for key, value := range patchRaw {
		if !patch.carries(key) {
			continue
		}
		baseRaw[key] = value
	}
	data, err := json.Marshal(baseRaw)
	if err != nil {
		return base, fmt.Errorf("merge ticket %d: %w", base.ID, err)
	}
	var merged Ticket
	if err := json.Unmarshal(data, &merged); err != nil {
		return base, fmt.Errorf("merge ticket %d: %w", base.ID, err)
	}
	return merged, nil
}

func (t Ticket) carries(key string) bool {
	if t.keys == nil {
		return true
	}
	_, ok := t.keys[key]
	return ok
}

func toRawMap(t Ticket) (map[string]json.RawMessage, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, err
	}
	out := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

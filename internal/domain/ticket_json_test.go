package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeTicketReplacesOnlyDecodedKeys(t *testing.T) {
	base := Ticket{
		ID: 1, Title: "VPN down", Status: TicketStatusNew, Category: "network", Priority: "high",
		RequesterID: Int64Ptr(4), SLABreached: true,
		Extra: map[string]json.RawMessage{"source": json.RawMessage(`"email"`)},
	}
	var patch Ticket
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"status":"open","assigned_to_id":9,"team":"net"}`), &patch))

	merged, err := MergeTicket(base, patch)
	require.NoError(t, err)

	assert.Equal(t, TicketStatusOpen, merged.Status)
	require.NotNil(t, merged.AssignedToID)
	assert.Equal(t, int64(9), *merged.AssignedToID)
	assert.Equal(t, "VPN down", merged.Title)
	assert.Equal(t, "network", merged.Category)
	assert.Equal(t, "high", merged.Priority)
	require.NotNil(t, merged.RequesterID)
	assert.Equal(t, int64(4), *merged.RequesterID)
	assert.True(t, merged.SLABreached)
	assert.JSONEq(t, `"email"`, string(merged.Extra["source"]))
	assert.JSONEq(t, `"net"`, string(merged.Extra["team"]))
}

func TestMergeTicketExplicitNullClears(t *testing.T) {
	base := Ticket{ID: 1, Status: TicketStatusOpen, AssignedToID: Int64Ptr(3)}
	var patch Ticket
	require.NoError(t, json.Unmarshal([]byte(`{"id":1,"assigned_to_id":null}`), &patch))

	merged, err := MergeTicket(base, patch)
	require.NoError(t, err)

	assert.Nil(t, merged.AssignedToID)
	assert.Equal(t, TicketStatusOpen, merged.Status)
}

func TestMergeTicketBuiltInCodeReplacesEveryField(t *testing.T) {
	base := Ticket{ID: 1, Title: "old", Category: "network"}
	patch := Ticket{ID: 1, Title: "new"}

	merged, err := MergeTicket(base, patch)
	require.NoError(t, err)

	assert.Equal(t, "new", merged.Title)
	assert.Empty(t, merged.Category)
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/ticket-sync/internal/config"
	"github.com/deskline/ticket-sync/internal/domain"
	"github.com/deskline/ticket-sync/internal/testutil"
)

func runAs(t *testing.T, srv *testutil.DevServer, user config.DevUser, args ...string) (string, error) {
	t.Helper()
	if user.Username != "" {
		args = append(args, "--username", user.Username, "--password", user.Password)
	}
	return run(t, srv, args...)
}

func run(t *testing.T, srv *testutil.DevServer, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd(func() (*config.Config, error) {
		return srv.Config(), nil
	})
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(append(args, "--log-level", "error"))
	err := root.Execute()
	return out.String(), err
}

func seedTicket(t *testing.T, srv *testutil.DevServer, title string, status domain.TicketStatus) int64 {
	t.Helper()
	ticket := &domain.Ticket{Title: title, Status: status, Priority: domain.DefaultPriority, TicketType: domain.DefaultTicketType}
	require.NoError(t, srv.Store.Tickets().Create(context.Background(), ticket))
	return ticket.ID
}

func TestCreateAndList(t *testing.T) {
	srv := testutil.StartDevServer(t)

	out, err := runAs(t, srv, testutil.Agent, "create", "--title", "Printer jammed", "--priority", "high")
	require.NoError(t, err)
	assert.Contains(t, out, "Printer jammed")
	assert.Contains(t, out, "high")

	out, err = runAs(t, srv, testutil.Agent, "list", "--status", "new")
	require.NoError(t, err)
	assert.Contains(t, out, "TITLE")
	assert.Contains(t, out, "Printer jammed")

	out, err = runAs(t, srv, testutil.Agent, "list", "--mine", "-o", "json")
	require.NoError(t, err)
	var page domain.TicketPage
	require.NoError(t, json.Unmarshal([]byte(out), &page))
	assert.Equal(t, 1, page.Total)
}

func TestListRejectsUnknownStatus(t *testing.T) {
	srv := testutil.StartDevServer(t)

	_, err := runAs(t, srv, testutil.Agent, "list", "--status", "archived")
	assert.EqualError(t, err, `invalid status "archived"`)
}

func TestStatsAsJSON(t *testing.T) {
	srv := testutil.StartDevServer(t)
	seedTicket(t, srv, "Keyboard", domain.TicketStatusOpen)
	seedTicket(t, srv, "Mouse", domain.TicketStatusClosed)

	out, err := runAs(t, srv, testutil.Agent, "stats", "--output", "json")
	require.NoError(t, err)
	var stats domain.TicketStats
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Open)
	assert.Equal(t, 1, stats.Closed)
}

func TestWorkflowCommands(t *testing.T) {
	srv := testutil.StartDevServer(t)
	id := strconv.FormatInt(seedTicket(t, srv, "VPN drops", domain.TicketStatusOpen), 10)

	_, err := runAs(t, srv, testutil.Agent, "resolve", id)
	require.Error(t, err)

	out, err := runAs(t, srv, testutil.Agent, "resolve", id, "--resolution", "rebooted router")
	require.NoError(t, err)
	assert.Contains(t, out, "resolved")
	assert.Contains(t, out, "rebooted router")

	out, err = runAs(t, srv, testutil.Agent, "reopen", id, "--reason", "came back")
	require.NoError(t, err)
	assert.Contains(t, out, "open")
	assert.Contains(t, out, "Reopened: came back")

	_, err = runAs(t, srv, testutil.Agent, "comment", id, "checking logs")
	require.NoError(t, err)

	out, err = runAs(t, srv, testutil.Agent, "close", id)
	require.NoError(t, err)
	assert.Contains(t, out, "closed")
	assert.Contains(t, out, "checking logs")

	out, err = runAs(t, srv, testutil.Agent, "assign", id, "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Assignee")
}

func TestServerDetailIsReported(t *testing.T) {
	srv := testutil.StartDevServer(t)
	id := strconv.FormatInt(seedTicket(t, srv, "VPN drops", domain.TicketStatusNew), 10)

	_, err := runAs(t, srv, testutil.Agent, "reopen", id)
	assert.EqualError(t, err, "Only resolved or closed tickets can be reopened")

	_, err = runAs(t, srv, testutil.Agent, "delete", id)
	assert.EqualError(t, err, "Not enough permissions")

	out, err := runAs(t, srv, testutil.Admin, "delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted ticket #"+id)

	_, err = runAs(t, srv, testutil.Admin, "show", id)
	assert.EqualError(t, err, "Ticket not found")
}

func TestBulkCommands(t *testing.T) {
	srv := testutil.StartDevServer(t)
	first := seedTicket(t, srv, "Keyboard", domain.TicketStatusNew)
	second := seedTicket(t, srv, "Mouse", domain.TicketStatusNew)
	ids := strconv.FormatInt(first, 10) + "," + strconv.FormatInt(second, 10)

	out, err := runAs(t, srv, testutil.Agent, "bulk", "priority", "urgent", ids)
	require.NoError(t, err)
	assert.Contains(t, out, "2 tickets updated")

	out, err = runAs(t, srv, testutil.Agent, "bulk", "close", strconv.FormatInt(first, 10), strconv.FormatInt(second, 10))
	require.NoError(t, err)
	assert.Contains(t, out, "2 tickets updated")

	for _, id := range []int64{first, second} {
		ticket, err := srv.Store.Tickets().GetByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "urgent", ticket.Priority)
		assert.Equal(t, domain.TicketStatusClosed, ticket.Status)
	}

	_, err = runAs(t, srv, testutil.Agent, "bulk", "status", "archived", ids)
	assert.EqualError(t, err, `invalid status "archived"`)
}

func TestLoginPrintsToken(t *testing.T) {
	srv := testutil.StartDevServer(t)

	out, err := runAs(t, srv, testutil.Admin, "login", "-o", "json")
	require.NoError(t, err)
	var body struct {
		AccessToken string      `json:"access_token"`
		User        domain.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &body))
	assert.NotEmpty(t, body.AccessToken)
	assert.Equal(t, domain.UserRoleAdmin, body.User.Role)

	out, err = run(t, srv, "list", "--token", body.AccessToken)
	require.NoError(t, err)
	assert.Contains(t, out, "No tickets found")
}

func TestMissingCredentials(t *testing.T) {
	srv := testutil.StartDevServer(t)

	_, err := run(t, srv, "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no access token or username configured")
}

func TestRejectsUnknownOutputFormat(t *testing.T) {
	srv := testutil.StartDevServer(t)

	_, err := runAs(t, srv, testutil.Agent, "stats", "-o", "yaml")
	assert.EqualError(t, err, `unknown output format "yaml"`)
}

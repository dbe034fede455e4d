package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/domain"
	apperrors "github.com/deskline/ticket-sync/pkg/util/errorutil"
)

// TokenSource supplies the bearer token sent with every request. An empty token sends none.
type TokenSource interface {
	Token() string
}

// Config configures a TicketClient.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Tokens  TokenSource
	Logger  *zap.Logger
}

// TicketClient talks to the Ticket Service over HTTP. It satisfies store.TicketService.
type TicketClient struct {
	baseURL string
	timeout time.Duration
	tokens  TokenSource
	logger  *zap.Logger
}

// New builds a client for the service rooted at cfg.BaseURL.
func New(cfg Config) *TicketClient {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		timeout: cfg.Timeout,
		tokens:  cfg.Tokens,
		logger:  logger,
	}
}

// LoginResult is the answer to a successful login.
type LoginResult struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	User        domain.User `json:"user"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type bulkRequest struct {
	TicketIDs    []int64              `json:"ticket_ids"`
	Status       *domain.TicketStatus `json:"status,omitempty"`
	AssignedToID *int64               `json:"assigned_to_id,omitempty"`
	Priority     *string              `json:"priority,omitempty"`
	TicketType   *string              `json:"ticket_type,omitempty"`
}

// Login exchanges credentials for an access token.
func (c *TicketClient) Login(ctx context.Context, username, password string) (LoginResult, error) {
	var out LoginResult
	err := c.do(ctx, http.MethodPost, "/auth/login", nil, loginRequest{Username: username, Password: password}, &out)
	return out, err
}

func (c *TicketClient) ListTickets(ctx context.Context, query domain.TicketQuery) (domain.TicketPage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/tickets/", query.Values(), nil, &raw); err != nil {
		return domain.TicketPage{}, err
	}
	return decodePage(raw)
}

// decodePage accepts both the paginated wrapper and a bare array.
func decodePage(raw json.RawMessage) (domain.TicketPage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return domain.TicketPage{}, nil
	}
	if trimmed[0] == '[' {
		var items []domain.Ticket
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return domain.TicketPage{}, apperrors.NewRemoteFailure(0, "", fmt.Errorf("decode ticket list: %w", err))
		}
		return domain.TicketPage{Items: items, Total: len(items)}, nil
	}
	var page domain.TicketPage
	if err := json.Unmarshal(trimmed, &page); err != nil {
		return domain.TicketPage{}, apperrors.NewRemoteFailure(0, "", fmt.Errorf("decode ticket page: %w", err))
	}
	return page, nil
}

func (c *TicketClient) GetStats(ctx context.Context) (domain.TicketStats, error) {
	var out domain.TicketStats
	err := c.do(ctx, http.MethodGet, "/tickets/stats", nil, nil, &out)
	return out, err
}

func (c *TicketClient) GetTicket(ctx context.Context, id int64) (domain.Ticket, error) {
	var out domain.Ticket
	err := c.do(ctx, http.MethodGet, ticketPath(id, ""), nil, nil, &out)
	return out, err
}

func (c *TicketClient) CreateTicket(ctx context.Context, input domain.TicketInput) (domain.Ticket, error) {
	var out domain.Ticket
	err := c.do(ctx, http.MethodPost, "/tickets/", nil, input, &out)
	return out, err
}

func (c *TicketClient) UpdateTicket(ctx context.Context, id int64, input domain.TicketInput) (domain.Ticket, error) {
	var out domain.Ticket
	err := c.do(ctx, http.MethodPut, ticketPath(id, ""), nil, input, &out)
	return out, err
}

func (c *TicketClient) DeleteTicket(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, ticketPath(id, ""), nil, nil, nil)
}

func (c *TicketClient) AddComment(ctx context.Context, ticketID int64, input domain.CommentInput) (domain.Comment, error) {
	var out domain.Comment
	err := c.do(ctx, http.MethodPost, ticketPath(ticketID, "comments"), nil, input, &out)
	return out, err
}

func (c *TicketClient) AssignTicket(ctx context.Context, ticketID, userID int64) (domain.Ticket, error) {
	var out domain.Ticket
	query := url.Values{"user_id": {strconv.FormatInt(userID, 10)}}
	err := c.do(ctx, http.MethodPost, ticketPath(ticketID, "assign"), query, nil, &out)
	return out, err
}

func (c *TicketClient) ResolveTicket(ctx context.Context, ticketID int64, resolution, code string) (domain.Ticket, error) {
	var out domain.Ticket
	query := url.Values{"resolution": {resolution}, "resolution_code": {code}}
	err := c.do(ctx, http.MethodPost, ticketPath(ticketID, "resolve"), query, nil, &out)
	return out, err
}

func (c *TicketClient) CloseTicket(ctx context.Context, ticketID int64) (domain.Ticket, error) {
	var out domain.Ticket
	err := c.do(ctx, http.MethodPost, ticketPath(ticketID, "close"), nil, nil, &out)
	return out, err
}

func (c *TicketClient) ReopenTicket(ctx context.Context, ticketID int64, reason string) (domain.Ticket, error) {
	var out domain.Ticket
	var query url.Values
	if reason != "" {
		query = url.Values{"reason": {reason}}
	}
	err := c.do(ctx, http.MethodPost, ticketPath(ticketID, "reopen"), query, nil, &out)
	return out, err
}

func (c *TicketClient) BulkClose(ctx context.Context, ids []int64) (domain.BulkResult, error) {
	return c.bulk(ctx, "bulk-close", bulkRequest{TicketIDs: ids})
}

func (c *TicketClient) BulkUpdateStatus(ctx context.Context, ids []int64, status domain.TicketStatus) (domain.BulkResult, error) {
	return c.bulk(ctx, "bulk-status", bulkRequest{TicketIDs: ids, Status: &status})
}

func (c *TicketClient) BulkAssign(ctx context.Context, ids []int64, userID int64) (domain.BulkResult, error) {
	return c.bulk(ctx, "bulk-assign", bulkRequest{TicketIDs: ids, AssignedToID: &userID})
}

func (c *TicketClient) BulkUpdatePriority(ctx context.Context, ids []int64, priority string) (domain.BulkResult, error) {
	return c.bulk(ctx, "bulk-priority", bulkRequest{TicketIDs: ids, Priority: &priority})
}

func (c *TicketClient) BulkUpdateType(ctx context.Context, ids []int64, ticketType string) (domain.BulkResult, error) {
	return c.bulk(ctx, "bulk-type", bulkRequest{TicketIDs: ids, TicketType: &ticketType})
}

func (c *TicketClient) bulk(ctx context.Context, action string, body bulkRequest) (domain.BulkResult, error) {
	if body.TicketIDs == nil {
		body.TicketIDs = []int64{}
	}
	var out domain.BulkResult
	err := c.do(ctx, http.MethodPost, "/tickets/"+action, nil, body, &out)
	return out, err
}

func ticketPath(id int64, action string) string {
	path := "/tickets/" + strconv.FormatInt(id, 10)
	if action != "" {
		path += "/" + action
	}
	return path
}

// do issues one request. Once sent a request runs to completion; ctx is only consulted
// before sending.
func (c *TicketClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if err := ctx.Err(); err != nil {
		return apperrors.NewRemoteFailure(0, "", err)
	}

	agent := c.agent(method, c.baseURL+path)
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			agent.Set(fiber.HeaderAuthorization, "Bearer "+token)
		}
	}
	if len(query) > 0 {
		agent.QueryString(query.Encode())
	}
	if body != nil {
		agent.JSON(body)
	}
	if c.timeout > 0 {
		agent.Timeout(c.timeout)
	}
	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return apperrors.NewRemoteFailure(0, "", fmt.Errorf("%s %s: %w", method, path, err))
	}

	started := time.Now()
	status, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		err := errors.Join(errs...)
		c.logger.Warn("ticket service unreachable",
			zap.String("method", method), zap.String("path", path), zap.Error(err))
		return apperrors.NewRemoteFailure(0, "", fmt.Errorf("%s %s: %w", method, path, err))
	}
	c.logger.Debug("ticket service call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(started)))

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		return apperrors.NewRemoteFailure(status, parseDetail(respBody),
			fmt.Errorf("%s %s: unexpected status %d", method, path, status))
	}
	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return apperrors.NewRemoteFailure(status, "", fmt.Errorf("decode %s %s: %w", method, path, err))
	}
	return nil
}

func (c *TicketClient) agent(method, target string) *fiber.Agent {
	switch method {
	case http.MethodPost:
		return fiber.Post(target)
	case http.MethodPut:
		return fiber.Put(target)
	case http.MethodDelete:
		return fiber.Delete(target)
	default:
		return fiber.Get(target)
	}
}

// parseDetail extracts {"detail": "..."} from an error body. Non-string details are ignored.
func parseDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}
	var detail string
	if err := json.Unmarshal(payload.Detail, &detail); err != nil {
		return ""
	}
	return detail
}

package auth

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskline/ticket-sync/internal/domain"
	"github.com/deskline/ticket-sync/internal/repository"
	apperrors "github.com/deskline/ticket-sync/pkg/util/errorutil"
)

func newProtectedApp(t *testing.T, users ...domain.User) (*fiber.App, *TokenManager, []domain.User) {
	t.Helper()
	store := repository.NewMemoryStore()
	for i := range users {
		require.NoError(t, store.Users().Create(context.Background(), &users[i]))
	}
	tm := NewTokenManager("secret", 5)
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			domainErr := apperrors.ToDomainError(err)
			return c.Status(domainErr.HTTPStatus).SendString(domainErr.Message)
		},
	})
	mw := NewAuthMiddleware(tm, store.Users())
	app.Get("/me", mw.Handle, func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return fiber.ErrInternalServerError
		}
		return c.SendString(principal.User.Username)
	})
	app.Get("/admin", mw.Handle, RequireRole(domain.UserRoleAdmin), func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusNoContent)
	})
	return app, tm, users
}

func request(t *testing.T, app *fiber.App, path, authorization string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(fiber.HeaderAuthorization, authorization)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	buf := make([]byte, 256)
	n, _ := resp.Body.Read(buf)
	return resp.StatusCode, string(buf[:n])
}

func TestAuthMiddleware(t *testing.T) {
	app, tm, users := newProtectedApp(t,
		domain.User{Username: "ana", Role: domain.UserRoleAdmin, IsActive: true},
		domain.User{Username: "bo", Role: domain.UserRoleUser, IsActive: true},
		domain.User{Username: "gone", Role: domain.UserRoleUser, IsActive: false},
	)
	tokenFor := func(u domain.User) string {
		token, _, err := tm.GenerateToken(u)
		require.NoError(t, err)
		return "Bearer " + token
	}

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{name: "missing header", path: "/me", status: fiber.StatusUnauthorized, body: "Not authenticated"},
		{name: "wrong scheme", path: "/me", header: "Basic abc", status: fiber.StatusUnauthorized, body: "Invalid authorization header"},
		{name: "bad token", path: "/me", header: "Bearer abc", status: fiber.StatusUnauthorized, body: "Could not validate credentials"},
		{name: "unknown user", path: "/me", header: tokenFor(domain.User{ID: 99}), status: fiber.StatusUnauthorized, body: "User not found"},
		{name: "inactive user", path: "/me", header: tokenFor(users[2]), status: fiber.StatusForbidden, body: "Inactive user"},
		{name: "authenticated", path: "/me", header: tokenFor(users[1]), status: fiber.StatusOK, body: "bo"},
		{name: "role denied", path: "/admin", header: tokenFor(users[1]), status: fiber.StatusForbidden, body: "Not enough permissions"},
		{name: "role granted", path: "/admin", header: tokenFor(users[0]), status: fiber.StatusNoContent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := request(t, app, tc.path, tc.header)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.body, body)
		})
	}
}

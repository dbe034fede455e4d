// Package testutil starts an in-memory dev Ticket Service for tests that talk HTTP.
package testutil

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	httpapi "github.com/deskline/ticket-sync/internal/api/http"
	"github.com/deskline/ticket-sync/internal/config"
	"github.com/deskline/ticket-sync/internal/observability"
	"github.com/deskline/ticket-sync/internal/repository"
	"github.com/deskline/ticket-sync/internal/service"
)

// Seeded logins.
var (
	Admin = config.DevUser{Username: "admin", Password: "admin", Role: "admin"}
	Agent = config.DevUser{Username: "agent", Password: "agent", Role: "user"}
)

// DevServer is a running dev Ticket Service backed by memory storage.
type DevServer struct {
	URL     string
	Store   *repository.MemoryStore
	Metrics *observability.Metrics
}

// StartDevServer serves the API on a loopback port until the test ends.
func StartDevServer(t testing.TB) *DevServer {
	t.Helper()
	store := repository.NewMemoryStore()
	logger := zap.NewNop()

	authService := service.NewAuthService(config.AuthConfig{
		JWTSecret:             "test-secret",
		AccessTokenTTLMinutes: 30,
		BcryptCost:            4,
	}, store.Users(), logger)
	require.NoError(t, authService.SeedUsers(context.Background(), []config.DevUser{Admin, Agent}))

	metrics := observability.NewMetrics()
	app := httpapi.NewServer(httpapi.ServerDependencies{
		Name:    "ticket-devserver",
		Version: "test",
		Logger:  logger,
		Metrics: metrics,
		Users:   store.Users(),
		Auth:    authService,
		Tickets: service.NewTicketService(service.TicketDependencies{
			TicketRepo:  store.Tickets(),
			CommentRepo: store.Comments(),
			UserRepo:    store.Users(),
			Logger:      logger,
		}),
	})

	srv := httptest.NewServer(adaptor.FiberApp(app))
	t.Cleanup(srv.Close)
	return &DevServer{URL: srv.URL + httpapi.APIPrefix, Store: store, Metrics: metrics}
}

// Config returns client configuration pointed at the server.
func (d *DevServer) Config() *config.Config {
	return &config.Config{
		API: config.APIConfig{BaseURL: d.URL},
	}
}

package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/deskline/ticket-sync/internal/api/http/handlers"
	"github.com/deskline/ticket-sync/internal/auth"
	"github.com/deskline/ticket-sync/internal/observability"
	"github.com/deskline/ticket-sync/internal/persistence"
	"github.com/deskline/ticket-sync/internal/repository"
	"github.com/deskline/ticket-sync/internal/service"
)

// ServerDependencies bundles everything the dev Ticket Service needs to serve requests.
type ServerDependencies struct {
	Name     string
	Version  string
	Timeout  time.Duration
	Logger   *zap.Logger
	Metrics  *observability.Metrics
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Users    repository.UserRepository
	Auth     *service.AuthService
	Tickets  *service.TicketService
}

// NewServer builds the fiber application with middlewares and routes registered.
func NewServer(deps ServerDependencies) *fiber.App {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	app := fiber.New(fiber.Config{
		AppName:               deps.Name,
		DisableStartupMessage: true,
	})
	RegisterMiddlewares(app, logger, deps.Metrics, deps.Timeout)
	RegisterRoutes(app, RouteConfig{
		Health:         handlers.NewHealthHandler(deps.Name, deps.Version, deps.Postgres, deps.Redis),
		Auth:           handlers.NewAuthHandler(deps.Auth),
		Tickets:        handlers.NewTicketsHandler(deps.Tickets),
		AuthMiddleware: auth.NewAuthMiddleware(deps.Auth.TokenManager(), deps.Users),
	})
	return app
}

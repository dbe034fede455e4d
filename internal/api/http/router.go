package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/deskline/ticket-sync/internal/api/http/handlers"
	"github.com/deskline/ticket-sync/internal/auth"
	"github.com/deskline/ticket-sync/internal/domain"
)

// APIPrefix is where the Ticket Service endpoints are mounted.
const APIPrefix = "/api/v1"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	api := app.Group(APIPrefix)
	api.Post("/auth/login", cfg.Auth.Login)

	tickets := api.Group("/tickets", cfg.AuthMiddleware.Handle)
	tickets.Get("/", cfg.Tickets.ListTickets)
	tickets.Post("/", cfg.Tickets.CreateTicket)
	tickets.Get("/stats", cfg.Tickets.Stats)

	tickets.Post("/bulk-close", cfg.Tickets.BulkClose)
	tickets.Post("/bulk-status", cfg.Tickets.BulkStatus)
	tickets.Post("/bulk-assign", cfg.Tickets.BulkAssign)
	tickets.Post("/bulk-priority", cfg.Tickets.BulkPriority)
	tickets.Post("/bulk-type", cfg.Tickets.BulkType)

	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Put("/:id", cfg.Tickets.UpdateTicket)
	tickets.Delete("/:id", auth.RequireRole(domain.UserRoleAdmin), cfg.Tickets.DeleteTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)
	tickets.Post("/:id/assign", cfg.Tickets.AssignTicket)
	tickets.Post("/:id/resolve", cfg.Tickets.ResolveTicket)
	tickets.Post("/:id/close", cfg.Tickets.CloseTicket)
	tickets.Post("/:id/reopen", cfg.Tickets.ReopenTicket)
}

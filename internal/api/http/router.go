package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-kit/servicedesk/internal/api/http/handlers"
	"github.com/helpdesk-kit/servicedesk/internal/auth"
	"github.com/helpdesk-kit/servicedesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Tickets        *handlers.TicketsHandler
	Workflow       *handlers.WorkflowHandler
	Notifications  *handlers.NotificationsHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/register", cfg.Auth.Register)
	authGroup.Post("/login", cfg.Auth.Login)

	tickets := app.Group("/tickets", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	tickets.Post("", cfg.Tickets.CreateTicket)
	tickets.Get("", cfg.Tickets.ListTickets)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/comments", cfg.Tickets.AddComment)

	tickets.Post("/:id/transition", auth.RequireOperator(), cfg.Workflow.Transition)
	tickets.Post("/:id/reopen", cfg.Workflow.Reopen)
	tickets.Post("/:id/escalate",
		auth.RequireRole(domain.RoleAgentTier2, domain.RoleSupervisor, domain.RoleAdmin),
		cfg.Workflow.Escalate)
	tickets.Post("/:id/escalation-requests",
		auth.RequireRole(domain.RoleAgentTier1),
		cfg.Workflow.RequestEscalation)
	tickets.Delete("/:id", auth.RequireOperator(), cfg.Workflow.SoftDelete)

	notifications := app.Group("/notifications", cfg.AuthMiddleware.Handle, auth.RequireAuthenticated())
	notifications.Get("", cfg.Notifications.List)
	notifications.Patch("/:id/read", cfg.Notifications.MarkRead)
}

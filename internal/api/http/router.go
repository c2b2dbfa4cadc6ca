package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/hospital-ops/internal/api/http/handlers"
	"github.com/spec-kit/hospital-ops/internal/auth"
	"github.com/spec-kit/hospital-ops/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Resolve        *handlers.ResolveHandler
	Notifications  *handlers.NotificationsHandler
	Emergencies    *handlers.EmergenciesHandler
	Treatments     *handlers.TreatmentsHandler
	Shifts         *handlers.ShiftsHandler
	HelpRequests   *handlers.HelpRequestsHandler
	Dashboard      *handlers.DashboardHandler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)
	app.Get("/health/metrics", cfg.Health.Metrics)

	// Function endpoints opened from email links and browsers; no bearer token.
	app.Use("/resolve-emergency", functionCORS())
	app.Get("/resolve-emergency", cfg.Resolve.Resolve)
	app.Post("/resolve-emergency", cfg.Resolve.Resolve)
	app.Use("/send-emergency-notifications", functionCORS())
	app.Post("/send-emergency-notifications", cfg.Notifications.Send)

	api := app.Group("/api", cfg.AuthMiddleware.Handle, auth.RequireAnyRole())

	staffOnly := auth.RequireRole(domain.RoleStaff)
	doctorOnly := auth.RequireRole(domain.RoleDoctor)
	clinical := auth.RequireRole(domain.RoleDoctor, domain.RoleStaff)

	emergencies := api.Group("/emergencies")
	emergencies.Post("", staffOnly, cfg.Emergencies.Create)
	emergencies.Get("/active", clinical, cfg.Emergencies.ListActive)
	emergencies.Post("/:id/resolve", clinical, cfg.Emergencies.Resolve)

	treatments := api.Group("/treatments")
	treatments.Post("", staffOnly, cfg.Treatments.Assign)
	treatments.Get("", cfg.Treatments.List)
	treatments.Patch("/:id/status", doctorOnly, cfg.Treatments.UpdateStatus)

	shifts := api.Group("/shifts")
	shifts.Put("/me", doctorOnly, cfg.Shifts.SaveMine)
	shifts.Get("/me", doctorOnly, cfg.Shifts.GetMine)
	shifts.Get("/on-duty", clinical, cfg.Shifts.ListOnDuty)

	help := api.Group("/help-requests", clinical)
	help.Post("", cfg.HelpRequests.Create)
	help.Get("", cfg.HelpRequests.List)
	help.Post("/:id/assign", cfg.HelpRequests.Assign)
	help.Post("/:id/resolve", cfg.HelpRequests.Resolve)
	help.Post("/:id/cancel", cfg.HelpRequests.Cancel)

	dashboard := api.Group("/dashboard")
	dashboard.Get("/stats", clinical, cfg.Dashboard.Stats)
	dashboard.Get("/stream", cfg.Dashboard.Stream)
}

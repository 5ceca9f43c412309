package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/agency-ops-api/internal/config"
	"github.com/noah-isme/agency-ops-api/internal/handler"
	"github.com/noah-isme/agency-ops-api/internal/middleware"
	"github.com/noah-isme/agency-ops-api/internal/models"
	"github.com/noah-isme/agency-ops-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	UserHandler            *handler.UserHandler
	CatalogHandler         *handler.CatalogHandler
	AdminAssignmentHandler *handler.AdminAssignmentHandler
	MyAssignmentHandler    *handler.MyAssignmentHandler
	AdminActivityHandler   *handler.AdminActivityHandler
	JWTMiddleware          fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/roles", handler.ListRoles())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	admin := api.Group("/admin", jwtMiddleware, middleware.RequireRole(models.ManagementRoles...))
	if deps.UserHandler != nil {
		deps.UserHandler.Register(admin.Group("/users"))
	}
	if deps.CatalogHandler != nil {
		deps.CatalogHandler.Register(admin.Group("/catalog"))
	}
	if deps.AdminAssignmentHandler != nil {
		deps.AdminAssignmentHandler.Register(admin.Group("/assignments"))
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activity"))
	}

	// Current user's inbox
	if deps.MyAssignmentHandler != nil {
		me := api.Group("/me", jwtMiddleware, middleware.RequireUser())
		deps.MyAssignmentHandler.Register(me.Group("/assignments"))
	}
}

package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/election-service/internal/api/http/handlers"
	"github.com/spec-kit/election-service/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health          *handlers.HealthHandler
	Verification    *handlers.VerificationHandler
	Ballots         *handlers.BallotHandler
	Admin           *handlers.AdminHandler
	AdminMiddleware *auth.AdminMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	verification := app.Group("/verification")
	verification.Post("/initiate", cfg.Verification.Initiate)
	verification.Post("/verify", cfg.Verification.Verify)
	verification.Post("/resend", cfg.Verification.Resend)

	app.Post("/ballots", cfg.Ballots.Submit)

	admin := app.Group("/admin", cfg.AdminMiddleware.Handle)
	admin.Post("/sweeps/activation", cfg.Admin.RunActivationSweep)
	admin.Post("/sweeps/closure", cfg.Admin.RunClosureSweep)
}

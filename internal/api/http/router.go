package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/car-marketplace/internal/api/http/handlers"
	"github.com/spec-kit/car-marketplace/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Accounts          *handlers.AccountsHandler
	Password          *handlers.PasswordHandler
	Verification      *handlers.VerificationHandler
	SessionMiddleware *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	accounts := app.Group("/accounts")
	accounts.Post("/register", cfg.Accounts.Register)
	accounts.Post("/login", cfg.Accounts.Login)

	app.Post("/password/forgot", cfg.Password.Forgot)
	app.Post("/password/reset", cfg.Password.Reset)
	app.Get("/verify", cfg.Verification.Verify)

	protected := accounts.Group("", cfg.SessionMiddleware.Handle)
	protected.Post("/logout", cfg.Accounts.Logout)
	protected.Get("/me", cfg.Accounts.Me)
	protected.Put("/profile", cfg.Accounts.Edit)
	protected.Delete("/", cfg.Accounts.Remove)

	app.Post("/verify/resend", cfg.SessionMiddleware.Handle, cfg.Verification.Resend)
}

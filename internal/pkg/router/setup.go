package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/controllers"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/security"
)

// Router registers a group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Handlers bundles the controllers and settings the routers need.
type Handlers struct {
	Licenses      *controllers.LicenseController
	Notifications *controllers.NotificationController
	Transactions  *controllers.TransactionController
	Admin         *controllers.AdminController

	APIKey        *security.KeyVerifier
	WebhookSecret string

	// LimiterStorage backs the /api rate limiter. Nil keeps counters in
	// process memory.
	LimiterStorage fiber.Storage
	RateLimit      int

	MetricsUser     string
	MetricsPassword string

	// Health reports the first failing dependency, if any.
	Health func() error
}

func InstallRouter(app *fiber.App, h Handlers) {
	setup(app, NewHttpRouter(h), NewApiRouter(h))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}

package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/middleware"
)

const defaultRateLimit = 120

// ApiRouter serves the JSON API under /api
type ApiRouter struct {
	h Handlers
}

func (r ApiRouter) InstallRouter(app *fiber.App) {
	limit := r.h.RateLimit
	if limit <= 0 {
		limit = defaultRateLimit
	}
	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        limit,
		Expiration: time.Minute,
		Storage:    r.h.LimiterStorage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "rate_limited",
				"message": "Too many requests",
			})
		},
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Nexius billing API",
			"version": "v1",
		})
	})

	v1 := api.Group("/v1")
	auth := middleware.APIKeyAuthMiddleware(r.h.APIKey)

	licenses := v1.Group("/licenses", auth)
	licenses.Get("/", r.h.Licenses.HandleList)
	licenses.Post("/", r.h.Licenses.HandleCreate)
	licenses.Get("/by-domain/:domain", r.h.Licenses.HandleByDomain)
	licenses.Get("/by-code/:code", r.h.Licenses.HandleByCode)
	licenses.Get("/:id", r.h.Licenses.HandleGet)
	licenses.Patch("/:id", r.h.Licenses.HandlePatch)
	licenses.Post("/:id/payment-intent", r.h.Licenses.HandlePaymentIntent)
	licenses.Post("/:id/reminders", r.h.Licenses.HandleSendReminder)

	jobs := v1.Group("/notification-jobs", auth)
	jobs.Get("/", r.h.Notifications.HandleList)
	jobs.Post("/", r.h.Notifications.HandleCreate)
	jobs.Get("/:id", r.h.Notifications.HandleGet)
	jobs.Patch("/:id", r.h.Notifications.HandlePatch)
	jobs.Post("/:id/deliver", r.h.Notifications.HandleDeliver)
	jobs.Get("/:id/logs", r.h.Notifications.HandleListLogs)
	jobs.Post("/:id/logs", r.h.Notifications.HandleCreateLog)

	// Ingest also accepts a signed body from the payment notifier.
	v1.Post("/transactions", middleware.SignatureOrAPIKeyMiddleware(r.h.WebhookSecret, r.h.APIKey), r.h.Transactions.HandleIngest)
	v1.Get("/transactions", auth, r.h.Transactions.HandleList)
	v1.Get("/transactions/:transactionId", auth, r.h.Transactions.HandleGet)

	admin := v1.Group("/admin", auth)
	admin.Get("/queue", r.h.Admin.HandleQueueStats)
	admin.Post("/sweep", r.h.Admin.HandleSweep)
	admin.Post("/archive", r.h.Admin.HandleArchive)
}

func NewApiRouter(h Handlers) *ApiRouter {
	return &ApiRouter{h: h}
}

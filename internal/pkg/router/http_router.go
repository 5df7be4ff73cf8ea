package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/metrics"
)

// HttpRouter serves the operational endpoints outside /api
type HttpRouter struct {
	h Handlers
}

func (r HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", r.handleHealth)

	var guard []fiber.Handler
	if r.h.MetricsUser != "" {
		guard = append(guard, basicauth.New(basicauth.Config{
			Users: map[string]string{r.h.MetricsUser: r.h.MetricsPassword},
			Realm: "Nexius Metrics",
		}))
	}
	app.Get("/metrics", append(guard, monitor.New(monitor.Config{Title: "Nexius Metrics"}))...)
	app.Get("/metrics/prometheus", append(guard, adaptor.HTTPHandler(metrics.Handler()))...)
}

func (r HttpRouter) handleHealth(c *fiber.Ctx) error {
	if r.h.Health != nil {
		if err := r.h.Health(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

func NewHttpRouter(h Handlers) *HttpRouter {
	return &HttpRouter{h: h}
}

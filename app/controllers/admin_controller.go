package controllers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/jobqueue"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/odoo"
)

// ============================================================================
// ADMIN CONTROLLER - background task monitor
// ============================================================================

// AdminController reports on and drives the background tasks
type AdminController struct {
	manager *jobqueue.Manager
	odoo    *odoo.Dispatcher
}

// NewAdminController creates a new admin controller. dispatcher may be nil
// when the accounting sync is disabled.
func NewAdminController(manager *jobqueue.Manager, dispatcher *odoo.Dispatcher) *AdminController {
	return &AdminController{
		manager: manager,
		odoo:    dispatcher,
	}
}

// HandleQueueStats returns queue sizes and the job counters
func (ac *AdminController) HandleQueueStats(c *fiber.Ctx) error {
	body := fiber.Map{
		"running": ac.manager.IsRunning(),
	}
	if ac.odoo != nil {
		body["odooPending"] = ac.odoo.Pending()
	}

	queue := ac.manager.GetQueue()
	if queue == nil {
		body["queue"] = fiber.Map{"enabled": false}
		return c.JSON(body)
	}

	ctx := c.Context()
	pending, err := queue.GetQueueSize(ctx)
	if err != nil {
		return handleError(c, err)
	}
	processing, err := queue.GetProcessingSize(ctx)
	if err != nil {
		return handleError(c, err)
	}
	stats, err := queue.GetJobStats(ctx)
	if err != nil {
		return handleError(c, err)
	}
	body["queue"] = fiber.Map{
		"enabled":    true,
		"pending":    pending,
		"processing": processing,
		"stats":      stats,
	}
	return c.JSON(body)
}

// HandleSweep runs one overdue sweep right away
func (ac *AdminController) HandleSweep(c *fiber.Ctx) error {
	report, err := ac.manager.SweepOnce(c.Context())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(report)
}

// HandleArchive writes a ledger snapshot right away
func (ac *AdminController) HandleArchive(c *fiber.Ctx) error {
	key, err := ac.manager.ArchiveOnce(c.Context())
	if errors.Is(err, jobqueue.ErrArchiveDisabled) {
		return errorResponse(c, fiber.StatusServiceUnavailable, "archive_disabled", err.Error())
	}
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"key": key})
}

package controllers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/repository"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/notifications"
)

const defaultLogLimit = 50

// NotificationController exposes reminder jobs and their delivery logs
type NotificationController struct {
	reminders  *notifications.Service
	dispatcher ReminderDispatcher
}

// NewNotificationController creates a new notification controller
func NewNotificationController(reminders *notifications.Service, dispatcher ReminderDispatcher) *NotificationController {
	return &NotificationController{
		reminders:  reminders,
		dispatcher: dispatcher,
	}
}

type createJobRequest struct {
	notifications.JobInput
	Dispatch bool `json:"dispatch"`
}

func (nc *NotificationController) HandleList(c *fiber.Ctx) error {
	jobs, err := nc.reminders.Find(c.Context(), repository.NotificationJobFilter{
		Status:    c.Query("status"),
		RucOrDni:  c.Query("rucOrDni"),
		LicenseID: c.Query("licenseId"),
		Severity:  c.Query("severity"),
		Limit:     c.QueryInt("limit", 0),
		Offset:    c.QueryInt("offset", 0),
	})
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"jobs":  jobs,
		"count": len(jobs),
	})
}

// HandleCreate upserts a candidate job. An identical existing job is
// returned with duplicate set and is never dispatched again.
func (nc *NotificationController) HandleCreate(c *fiber.Ctx) error {
	var req createJobRequest
	if err := parseBody(c, &req, false); err != nil {
		return handleError(c, err)
	}
	res, err := nc.reminders.Upsert(c.Context(), req.JobInput)
	if err != nil {
		return handleError(c, err)
	}
	if res.Duplicate {
		return c.JSON(res)
	}

	if req.Dispatch && nc.dispatcher != nil {
		if _, err := nc.dispatcher.DispatchReminder(c.Context(), res.Job); err != nil {
			log.Warnf("[API] Notification job %s dispatch failed: %v", res.Job.ID, err)
		}
		if fresh, err := nc.reminders.Get(c.Context(), res.Job.ID); err == nil && fresh != nil {
			res.Job = fresh
		}
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (nc *NotificationController) HandleGet(c *fiber.Ctx) error {
	job, err := nc.reminders.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	if job == nil {
		return notFound(c, "notification job")
	}
	return c.JSON(job)
}

func (nc *NotificationController) HandlePatch(c *fiber.Ctx) error {
	var patch notifications.JobPatch
	if err := parseBody(c, &patch, false); err != nil {
		return handleError(c, err)
	}
	job, err := nc.reminders.Update(c.Context(), c.Params("id"), patch)
	if err != nil {
		return handleError(c, err)
	}
	if job == nil {
		return notFound(c, "notification job")
	}
	return c.JSON(job)
}

// HandleDeliver hands an existing job to delivery.
func (nc *NotificationController) HandleDeliver(c *fiber.Ctx) error {
	job, err := nc.reminders.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	if job == nil {
		return notFound(c, "notification job")
	}
	if nc.dispatcher == nil {
		return errorResponse(c, fiber.StatusServiceUnavailable, "delivery_unavailable", "reminder delivery is not configured")
	}

	queued, dispatchErr := nc.dispatcher.DispatchReminder(c.Context(), job)
	if fresh, err := nc.reminders.Get(c.Context(), job.ID); err == nil && fresh != nil {
		job = fresh
	}
	body := fiber.Map{"job": job, "queued": queued}
	if dispatchErr != nil {
		body["dispatchError"] = dispatchErr.Error()
	}
	return c.Status(fiber.StatusAccepted).JSON(body)
}

func (nc *NotificationController) HandleListLogs(c *fiber.Ctx) error {
	job, err := nc.reminders.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	if job == nil {
		return notFound(c, "notification job")
	}
	logs, err := nc.reminders.ListLogs(c.Context(), job.ID, c.QueryInt("limit", defaultLogLimit))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"logs":  logs,
		"count": len(logs),
	})
}

// HandleCreateLog records a delivery attempt made outside this service.
func (nc *NotificationController) HandleCreateLog(c *fiber.Ctx) error {
	job, err := nc.reminders.Get(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	if job == nil {
		return notFound(c, "notification job")
	}

	// Validated by LogNotification once the job's fields are filled in.
	var in notifications.LogInput
	if err := decodeBody(c, &in, false); err != nil {
		return handleError(c, err)
	}
	in.JobID = job.ID
	if in.RucOrDni == "" {
		in.RucOrDni = job.RucOrDni
	}
	if len(in.LicenseIDs) == 0 {
		in.LicenseIDs = job.LicenseIDs
	}
	entry, err := nc.reminders.LogNotification(c.Context(), in)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(entry)
}

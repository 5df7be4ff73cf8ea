package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/app/repository"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/licensing"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/notifications"
)

const reminderOrigin = "api"

// ReminderDispatcher hands a stored notification job to delivery. queued is
// false when the job was delivered inline.
type ReminderDispatcher interface {
	DispatchReminder(ctx context.Context, job *models.NotificationJob) (queued bool, err error)
}

// LicenseController exposes the license lifecycle over HTTP
type LicenseController struct {
	licenses    *licensing.Service
	reminders   *notifications.Service
	dispatcher  ReminderDispatcher
	dueSoonDays int
}

// NewLicenseController creates a new license controller
func NewLicenseController(licenses *licensing.Service, reminders *notifications.Service, dispatcher ReminderDispatcher, dueSoonDays int) *LicenseController {
	return &LicenseController{
		licenses:    licenses,
		reminders:   reminders,
		dispatcher:  dispatcher,
		dueSoonDays: dueSoonDays,
	}
}

type createLicenseRequest struct {
	LicenseKey     string `json:"licenseKey" validate:"omitempty,max=32"`
	Domain         string `json:"domain" validate:"omitempty,max=191"`
	Service        string `json:"service" validate:"omitempty,max=191"`
	Notes          string `json:"notes" validate:"omitempty,max=5000"`
	ClientName     string `json:"clientName" validate:"omitempty,max=191"`
	ClientEmail    string `json:"clientEmail" validate:"omitempty,email,max=191"`
	ClientPhone    string `json:"clientPhone" validate:"omitempty,max=32"`
	ClientDocument string `json:"rucOrDni" validate:"omitempty,max=20"`

	Amount            *moneyValue `json:"amount" validate:"omitempty,gte=0"`
	Currency          string      `json:"currency" validate:"omitempty,len=3"`
	Frequency         string      `json:"frequency" validate:"omitempty,oneof=monthly annual"`
	ScheduleMode      string      `json:"scheduleMode" validate:"omitempty,oneof=manual monthly_first annual_jan5"`
	GracePeriodDays   *int        `json:"gracePeriodDays" validate:"omitempty,gte=0,lte=365"`
	LateFeeAmount     *moneyValue `json:"lateFeeAmount" validate:"omitempty,gte=0"`
	LateFeePercentage *float64    `json:"lateFeePercentage" validate:"omitempty,gte=0,lte=100"`

	StartDate          *dateValue  `json:"startDate"`
	EndDate            *dateValue  `json:"endDate"`
	NextPaymentDue     *dateValue  `json:"nextPaymentDue"`
	OutstandingBalance *moneyValue `json:"outstandingBalance" validate:"omitempty,gte=0"`
	Status             string      `json:"status" validate:"omitempty,oneof=pending overdue cancelled"`
}

func (r *createLicenseRequest) input(loc *time.Location) licensing.CreateInput {
	return licensing.CreateInput{
		LicenseKey:         r.LicenseKey,
		Domain:             r.Domain,
		Service:            r.Service,
		Notes:              r.Notes,
		ClientName:         r.ClientName,
		ClientEmail:        r.ClientEmail,
		ClientPhone:        r.ClientPhone,
		ClientDocument:     r.ClientDocument,
		Amount:             r.Amount.value(),
		Currency:           r.Currency,
		Frequency:          r.Frequency,
		ScheduleMode:       r.ScheduleMode,
		GracePeriodDays:    r.GracePeriodDays,
		LateFeeAmount:      r.LateFeeAmount.value(),
		LateFeePercentage:  r.LateFeePercentage,
		StartDate:          r.StartDate.in(loc),
		EndDate:            r.EndDate.in(loc),
		NextPaymentDue:     r.NextPaymentDue.in(loc),
		OutstandingBalance: r.OutstandingBalance.ptr(),
		Status:             r.Status,
	}
}

type paymentRequest struct {
	Amount         *moneyValue `json:"amount" validate:"omitempty,gt=0"`
	Method         string      `json:"method" validate:"omitempty,max=32"`
	Currency       string      `json:"currency" validate:"omitempty,len=3"`
	TransactionID  string      `json:"transactionId" validate:"omitempty,max=191"`
	Notes          string      `json:"notes" validate:"omitempty,max=1000"`
	LateFeePortion *moneyValue `json:"lateFeePortion" validate:"omitempty,gte=0"`
}

// patchLicenseRequest is the PATCH body. Every field is optional; the set
// fields become typed intents.
type patchLicenseRequest struct {
	Status        *string         `json:"status" validate:"omitempty,oneof=pending paid overdue cancelled"`
	TransactionID string          `json:"transactionId" validate:"omitempty,max=191"`
	Payment       *paymentRequest `json:"payment"`

	ScheduleMode           *string     `json:"scheduleMode" validate:"omitempty,oneof=manual monthly_first annual_jan5"`
	Frequency              *string     `json:"frequency" validate:"omitempty,oneof=monthly annual"`
	Amount                 *moneyValue `json:"amount" validate:"omitempty,gte=0"`
	Currency               *string     `json:"currency" validate:"omitempty,len=3"`
	GracePeriodDays        *int        `json:"gracePeriodDays" validate:"omitempty,gte=0,lte=365"`
	LateFeeAmount          *moneyValue `json:"lateFeeAmount" validate:"omitempty,gte=0"`
	LateFeePercentage      *float64    `json:"lateFeePercentage" validate:"omitempty,gte=0,lte=100"`
	ClearLateFeePercentage bool        `json:"clearLateFeePercentage"`

	Domain         *string `json:"domain" validate:"omitempty,max=191"`
	Service        *string `json:"service" validate:"omitempty,max=191"`
	Notes          *string `json:"notes" validate:"omitempty,max=5000"`
	ClientName     *string `json:"clientName" validate:"omitempty,max=191"`
	ClientEmail    *string `json:"clientEmail" validate:"omitempty,max=191"`
	ClientPhone    *string `json:"clientPhone" validate:"omitempty,max=32"`
	ClientDocument *string `json:"rucOrDni" validate:"omitempty,max=20"`

	StartDate          *dateValue  `json:"startDate"`
	EndDate            *dateValue  `json:"endDate"`
	NextPaymentDue     *dateValue  `json:"nextPaymentDue"`
	OutstandingBalance *moneyValue `json:"outstandingBalance" validate:"omitempty,gte=0"`
}

// intents converts the request into lifecycle intents. A payment object is
// only meaningful together with status "paid".
func (r *patchLicenseRequest) intents(loc *time.Location) ([]licensing.Intent, error) {
	var out []licensing.Intent

	if r.Domain != nil || r.Service != nil || r.Notes != nil || r.ClientName != nil ||
		r.ClientEmail != nil || r.ClientPhone != nil || r.ClientDocument != nil {
		out = append(out, licensing.UpdateDetails{
			Domain:         r.Domain,
			Service:        r.Service,
			Notes:          r.Notes,
			ClientName:     r.ClientName,
			ClientEmail:    r.ClientEmail,
			ClientPhone:    r.ClientPhone,
			ClientDocument: r.ClientDocument,
		})
	}

	billing := licensing.UpdateBilling{
		Amount:                 r.Amount.ptr(),
		Currency:               r.Currency,
		GracePeriodDays:        r.GracePeriodDays,
		LateFeeAmount:          r.LateFeeAmount.ptr(),
		LateFeePercentage:      r.LateFeePercentage,
		ClearLateFeePercentage: r.ClearLateFeePercentage,
	}
	if r.ScheduleMode != nil {
		sched := licensing.ChangeSchedule{Mode: *r.ScheduleMode}
		if r.Frequency != nil {
			sched.Frequency = *r.Frequency
		}
		out = append(out, sched)
	} else {
		billing.Frequency = r.Frequency
	}
	if billing.Amount != nil || billing.Currency != nil || billing.Frequency != nil || billing.GracePeriodDays != nil ||
		billing.LateFeeAmount != nil || billing.LateFeePercentage != nil || billing.ClearLateFeePercentage {
		out = append(out, billing)
	}

	if r.StartDate != nil || r.EndDate != nil || r.NextPaymentDue != nil {
		out = append(out, licensing.SetDates{
			StartDate:      r.StartDate.in(loc),
			EndDate:        r.EndDate.in(loc),
			NextPaymentDue: r.NextPaymentDue.in(loc),
		})
	}
	if r.OutstandingBalance != nil {
		out = append(out, licensing.AdjustBalance{OutstandingBalance: r.OutstandingBalance.value()})
	}

	paid := r.Status != nil && *r.Status == models.LicenseStatusPaid
	if r.Payment != nil && !paid {
		return nil, &badRequestError{errBadPayment}
	}
	switch {
	case paid:
		payment := licensing.ApplyPayment{TransactionID: r.TransactionID}
		if p := r.Payment; p != nil {
			payment.Amount = p.Amount.ptr()
			payment.Method = p.Method
			payment.Currency = p.Currency
			payment.Notes = p.Notes
			payment.LateFeePortion = p.LateFeePortion.ptr()
			if p.TransactionID != "" {
				payment.TransactionID = p.TransactionID
			}
		}
		out = append(out, payment)
	case r.Status != nil:
		out = append(out, licensing.SetStatus{Status: *r.Status})
	}
	return out, nil
}

// HandleList lists licenses, normalizing each one on the way out.
func (lc *LicenseController) HandleList(c *fiber.Ctx) error {
	filter := repository.LicenseFilter{
		Status:         c.Query("status"),
		Domain:         c.Query("domain"),
		ClientDocument: c.Query("rucOrDni"),
		ScheduleMode:   c.Query("scheduleMode"),
		Limit:          c.QueryInt("limit", 0),
		Offset:         c.QueryInt("offset", 0),
	}
	results, err := lc.licenses.FindMany(c.Context(), filter)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"licenses": results,
		"count":    len(results),
	})
}

func (lc *LicenseController) HandleCreate(c *fiber.Ctx) error {
	var req createLicenseRequest
	if err := parseBody(c, &req, false); err != nil {
		return handleError(c, err)
	}
	res, err := lc.licenses.Create(c.Context(), req.input(lc.licenses.Calendar().Location()))
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

func (lc *LicenseController) HandleGet(c *fiber.Ctx) error {
	res, err := lc.licenses.GetByID(c.Context(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	if res == nil {
		return notFound(c, "license")
	}
	return c.JSON(res)
}

// HandlePatch updates a license from a partial body.
func (lc *LicenseController) HandlePatch(c *fiber.Ctx) error {
	var req patchLicenseRequest
	if err := parseBody(c, &req, false); err != nil {
		return handleError(c, err)
	}
	intents, err := req.intents(lc.licenses.Calendar().Location())
	if err != nil {
		return handleError(c, err)
	}
	res, err := lc.licenses.Update(c.Context(), c.Params("id"), intents...)
	if err != nil {
		return handleError(c, err)
	}
	if res == nil {
		return notFound(c, "license")
	}
	return c.JSON(res)
}

type paymentIntentRequest struct {
	TTLMinutes int `json:"ttlMinutes" validate:"gte=0,lte=10080"`
}

// HandlePaymentIntent issues a payment code the customer quotes when paying.
func (lc *LicenseController) HandlePaymentIntent(c *fiber.Ctx) error {
	var req paymentIntentRequest
	if err := parseBody(c, &req, true); err != nil {
		return handleError(c, err)
	}
	intent, err := lc.licenses.CreatePaymentIntent(c.Context(), c.Params("id"), req.TTLMinutes)
	if err != nil {
		return handleError(c, err)
	}
	if intent == nil {
		return notFound(c, "license")
	}
	return c.Status(fiber.StatusCreated).JSON(intent)
}

type reminderRequest struct {
	Channel   string `json:"channel" validate:"omitempty,oneof=whatsapp email log"`
	Recipient string `json:"recipient" validate:"omitempty,max=191"`
}

// HandleSendReminder builds one reminder for every open license of the
// license's client and dispatches it unless an identical job exists.
func (lc *LicenseController) HandleSendReminder(c *fiber.Ctx) error {
	var req reminderRequest
	if err := parseBody(c, &req, true); err != nil {
		return handleError(c, err)
	}
	ctx := c.Context()

	res, err := lc.licenses.GetByID(ctx, c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	if res == nil {
		return notFound(c, "license")
	}
	doc := res.License.ClientDocument
	if doc == "" {
		return errorResponse(c, fiber.StatusBadRequest, "missing_document", "license has no client document")
	}

	siblings, err := lc.licenses.FindMany(ctx, repository.LicenseFilter{
		ClientDocument: doc,
		ExcludeStatus:  []string{models.LicenseStatusCancelled},
		Limit:          1000,
	})
	if err != nil {
		return handleError(c, err)
	}
	licenses := make([]*models.License, 0, len(siblings))
	for _, s := range siblings {
		licenses = append(licenses, s.License)
	}

	channel := req.Channel
	if channel == "" {
		channel = lc.reminders.Config().DefaultChannel
	}
	in, ok := notifications.BuildReminder(doc, licenses, lc.licenses.Now(), notifications.ReminderOptions{
		Calendar:    lc.licenses.Calendar(),
		DueSoonDays: lc.dueSoonDays,
		Channel:     channel,
		Origin:      reminderOrigin,
	})
	if !ok {
		return c.JSON(fiber.Map{
			"created": false,
			"reason":  "nothing_due",
		})
	}
	if req.Recipient != "" {
		in.Recipient = req.Recipient
	}

	up, err := lc.reminders.Upsert(ctx, in)
	if err != nil {
		return handleError(c, err)
	}
	if up.Duplicate {
		return c.JSON(fiber.Map{
			"created":   false,
			"duplicate": true,
			"job":       up.Job,
		})
	}

	body := fiber.Map{
		"created":   true,
		"duplicate": false,
		"job":       up.Job,
	}
	if lc.dispatcher != nil {
		queued, err := lc.dispatcher.DispatchReminder(ctx, up.Job)
		body["queued"] = queued
		if err != nil {
			log.Warnf("[API] Reminder %s dispatch failed: %v", up.Job.ID, err)
			body["dispatchError"] = err.Error()
		}
		if fresh, err := lc.reminders.Get(ctx, up.Job.ID); err == nil && fresh != nil {
			body["job"] = fresh
		}
	}
	return c.Status(fiber.StatusCreated).JSON(body)
}

func (lc *LicenseController) HandleByDomain(c *fiber.Ctx) error {
	res, err := lc.licenses.FindByDomain(c.Context(), c.Params("domain"))
	if err != nil {
		return handleError(c, err)
	}
	if res == nil {
		return notFound(c, "license")
	}
	return c.JSON(res)
}

// HandleByCode resolves an active payment code to its license.
func (lc *LicenseController) HandleByCode(c *fiber.Ctx) error {
	res, err := lc.licenses.ResolvePaymentCode(c.Context(), c.Params("code"))
	if err != nil {
		return handleError(c, err)
	}
	if res == nil {
		return notFound(c, "payment code")
	}
	return c.JSON(res)
}

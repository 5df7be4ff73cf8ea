package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/app/repository"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/licensing"
)

const defaultTransactionType = "yape"

// TransactionController ingests payment notifications and matches them to
// licenses
type TransactionController struct {
	transactions repository.TransactionRepository
	licenses     *licensing.Service
}

// NewTransactionController creates a new transaction controller
func NewTransactionController(transactions repository.TransactionRepository, licenses *licensing.Service) *TransactionController {
	return &TransactionController{
		transactions: transactions,
		licenses:     licenses,
	}
}

type transactionRequest struct {
	TransactionID   string      `json:"transactionId" validate:"required,max=191"`
	Amount          *moneyValue `json:"amount" validate:"required,gt=0"`
	Currency        string      `json:"currency" validate:"omitempty,len=3"`
	Type            string      `json:"type" validate:"omitempty,max=32"`
	Timestamp       *dateValue  `json:"timestamp"`
	Message         string      `json:"message" validate:"omitempty,max=5000"`
	ContactName     string      `json:"contactName" validate:"omitempty,max=191"`
	ContactPhone    string      `json:"contactPhone" validate:"omitempty,max=32"`
	ContactEmail    string      `json:"contactEmail" validate:"omitempty,max=191"`
	ContactDocument string      `json:"contactDocument" validate:"omitempty,max=20"`
	LicenseID       string      `json:"licenseId" validate:"omitempty,max=36"`
	LicenseKey      string      `json:"licenseKey" validate:"omitempty,max=32"`
	PaymentCode     string      `json:"paymentCode" validate:"omitempty,max=16"`

	YapeCode             string     `json:"yapeCode" validate:"omitempty,max=32"`
	AppVersion           string     `json:"appVersion" validate:"omitempty,max=32"`
	DeviceID             string     `json:"deviceId" validate:"omitempty,max=191"`
	NotificationTitle    string     `json:"notificationTitle" validate:"omitempty,max=255"`
	NotificationText     string     `json:"notificationText"`
	NotificationPackage  string     `json:"notificationPackage" validate:"omitempty,max=191"`
	NotificationPostedAt *dateValue `json:"notificationPostedAt"`
}

func (r *transactionRequest) record(loc *time.Location, now time.Time) *models.Transaction {
	tx := &models.Transaction{
		TransactionID:        strings.TrimSpace(r.TransactionID),
		Amount:               r.Amount.value(),
		Currency:             strings.ToUpper(strings.TrimSpace(r.Currency)),
		Type:                 strings.TrimSpace(r.Type),
		Timestamp:            now,
		Message:              r.Message,
		ContactName:          strings.TrimSpace(r.ContactName),
		ContactPhone:         strings.TrimSpace(r.ContactPhone),
		ContactEmail:         strings.TrimSpace(r.ContactEmail),
		ContactDocument:      strings.TrimSpace(r.ContactDocument),
		LicenseID:            strings.TrimSpace(r.LicenseID),
		LicenseKey:           strings.TrimSpace(r.LicenseKey),
		PaymentCode:          strings.ToUpper(strings.TrimSpace(r.PaymentCode)),
		YapeCode:             r.YapeCode,
		AppVersion:           r.AppVersion,
		DeviceID:             r.DeviceID,
		NotificationTitle:    r.NotificationTitle,
		NotificationText:     r.NotificationText,
		NotificationPackage:  r.NotificationPackage,
		NotificationPostedAt: r.NotificationPostedAt.in(loc),
	}
	if ts := r.Timestamp.in(loc); ts != nil {
		tx.Timestamp = *ts
	}
	if tx.Currency == "" {
		tx.Currency = models.DefaultCurrency
	}
	if tx.Type == "" {
		tx.Type = defaultTransactionType
	}
	return tx
}

// HandleIngest stores a payment notification once per transactionId and
// applies it to the license it names, by payment code or by license id.
// Replays are answered with the stored record and re-matching is a no-op
// because payments are keyed by transactionId.
func (tc *TransactionController) HandleIngest(c *fiber.Ctx) error {
	var req transactionRequest
	if err := parseBody(c, &req, false); err != nil {
		return handleError(c, err)
	}
	ctx := c.Context()
	tx := req.record(tc.licenses.Calendar().Location(), tc.licenses.Now())

	created, stored, err := tc.transactions.CreateIfNotExists(ctx, tx)
	if err != nil {
		return handleError(c, err)
	}

	body := fiber.Map{
		"created":   created,
		"duplicate": !created,
		"matched":   false,
	}

	res, matchErr := tc.match(c, stored)
	switch {
	case matchErr != nil && errors.Is(matchErr, licensing.ErrPaymentCodeExpired):
		body["matchError"] = "payment_code_expired"
	case matchErr != nil:
		log.Errorf("[API] Matching transaction %s failed: %v", stored.TransactionID, matchErr)
		body["matchError"] = "match_failed"
	case res != nil:
		if err := tc.transactions.LinkLicense(ctx, stored.TransactionID, res.License.ID, res.License.LicenseKey); err != nil {
			log.Warnf("[API] Failed to link transaction %s to license %s: %v", stored.TransactionID, res.License.ID, err)
		} else {
			stored.LicenseID = res.License.ID
			stored.LicenseKey = res.License.LicenseKey
		}
		body["matched"] = true
		body["license"] = res
	}
	body["transaction"] = stored

	status := fiber.StatusOK
	if created {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(body)
}

func (tc *TransactionController) match(c *fiber.Ctx, tx *models.Transaction) (*licensing.Result, error) {
	if tx.PaymentCode != "" {
		return tc.licenses.ConfirmPayment(c.Context(), tx.PaymentCode, *tx)
	}
	if tx.LicenseID == "" {
		return nil, nil
	}
	amount := tx.Amount
	return tc.licenses.Update(c.Context(), tx.LicenseID, licensing.ApplyPayment{
		Amount:        &amount,
		Method:        tx.Type,
		Currency:      tx.Currency,
		TransactionID: tx.TransactionID,
	})
}

func (tc *TransactionController) HandleList(c *fiber.Ctx) error {
	filter := repository.TransactionFilter{
		LicenseID:   c.Query("licenseId"),
		PaymentCode: strings.ToUpper(c.Query("paymentCode")),
		Limit:       c.QueryInt("limit", 0),
		Offset:      c.QueryInt("offset", 0),
	}
	if raw := c.Query("since"); raw != "" {
		var since dateValue
		if err := since.UnmarshalJSON([]byte(`"` + raw + `"`)); err != nil {
			return errorResponse(c, fiber.StatusBadRequest, "invalid_request", err.Error())
		}
		filter.Since = since.in(tc.licenses.Calendar().Location())
	}

	txs, err := tc.transactions.List(c.Context(), filter)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"transactions": txs,
		"count":        len(txs),
	})
}

func (tc *TransactionController) HandleGet(c *fiber.Ctx) error {
	tx, err := tc.transactions.GetByTransactionID(c.Context(), c.Params("transactionId"))
	if err != nil {
		return handleError(c, err)
	}
	if tx == nil {
		return notFound(c, "transaction")
	}
	return c.JSON(tx)
}

package odoo

import (
	"strings"
	"time"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
)

// PaymentPayload is the JSON body posted to the accounting endpoint. The
// receiver deduplicates on ExternalTransactionID.
type PaymentPayload struct {
	ExternalTransactionID string      `json:"external_transaction_id"`
	Timestamp             string      `json:"timestamp"`
	Date                  string      `json:"date"`
	Amount                float64     `json:"amount"`
	Currency              string      `json:"currency"`
	Type                  string      `json:"type"`
	ContactName           string      `json:"contact_name,omitempty"`
	ContactPhone          string      `json:"contact_phone,omitempty"`
	LicenseID             string      `json:"license_id,omitempty"`
	LicenseKey            string      `json:"license_key,omitempty"`
	Message               string      `json:"message,omitempty"`
	Meta                  PaymentMeta `json:"meta"`
}

type PaymentMeta struct {
	YapeCode             string `json:"yape_code,omitempty"`
	AppVersion           string `json:"app_version,omitempty"`
	DeviceID             string `json:"device_id,omitempty"`
	NotificationTitle    string `json:"notification_title,omitempty"`
	NotificationText     string `json:"notification_text,omitempty"`
	NotificationPackage  string `json:"notification_package,omitempty"`
	NotificationPostedAt string `json:"notification_posted_at,omitempty"`
}

// BuildPaymentPayload maps a transaction to the accounting payload. date is
// the calendar day of the timestamp in loc.
func BuildPaymentPayload(tx models.Transaction, loc *time.Location, appVersion string) PaymentPayload {
	if loc == nil {
		loc = time.UTC
	}
	ts := tx.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	ts = ts.In(loc)

	currency := strings.ToUpper(strings.TrimSpace(tx.Currency))
	if currency == "" {
		currency = models.DefaultCurrency
	}
	kind := strings.TrimSpace(tx.Type)
	if kind == "" {
		kind = "yape"
	}
	version := strings.TrimSpace(tx.AppVersion)
	if version == "" {
		version = appVersion
	}

	p := PaymentPayload{
		ExternalTransactionID: tx.TransactionID,
		Timestamp:             ts.Format(time.RFC3339),
		Date:                  ts.Format("2006-01-02"),
		Amount:                tx.Amount,
		Currency:              currency,
		Type:                  kind,
		ContactName:           tx.ContactName,
		ContactPhone:          tx.ContactPhone,
		LicenseID:             tx.LicenseID,
		LicenseKey:            tx.LicenseKey,
		Message:               tx.Message,
		Meta: PaymentMeta{
			YapeCode:            tx.YapeCode,
			AppVersion:          version,
			DeviceID:            tx.DeviceID,
			NotificationTitle:   tx.NotificationTitle,
			NotificationText:    tx.NotificationText,
			NotificationPackage: tx.NotificationPackage,
		},
	}
	if tx.NotificationPostedAt != nil {
		p.Meta.NotificationPostedAt = tx.NotificationPostedAt.In(loc).Format(time.RFC3339)
	}
	return p
}

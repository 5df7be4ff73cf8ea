package licensing

import (
	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
)

// EnrichTransaction builds the record forwarded to accounting. Fields missing
// from the stored transaction fall back to the payment entry and the license.
func EnrichTransaction(tx *models.Transaction, l *models.License, p models.LicensePayment) models.Transaction {
	var out models.Transaction
	if tx != nil {
		out = *tx
	} else {
		out = models.Transaction{
			TransactionID: p.TransactionID,
			Amount:        p.Amount,
			Currency:      p.Currency,
			Type:          p.Method,
			Timestamp:     p.PaidAt,
			Message:       p.Notes,
		}
	}

	fill := func(dst *string, fallback string) {
		if *dst == "" {
			*dst = fallback
		}
	}
	fill(&out.TransactionID, p.TransactionID)
	fill(&out.Currency, l.Currency)
	fill(&out.Type, p.Method)
	fill(&out.ContactName, l.ClientName)
	fill(&out.ContactPhone, l.ClientPhone)
	fill(&out.ContactEmail, l.ClientEmail)
	fill(&out.ContactDocument, l.ClientDocument)
	fill(&out.LicenseID, l.ID)
	fill(&out.LicenseKey, l.LicenseKey)
	fill(&out.Message, p.Notes)
	if out.Amount == 0 {
		out.Amount = p.Amount
	}
	if out.Timestamp.IsZero() {
		out.Timestamp = p.PaidAt
	}
	return out
}

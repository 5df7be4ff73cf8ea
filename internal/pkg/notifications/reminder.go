package notifications

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/licensing"
)

// ReminderOptions controls how reminders are derived from licenses.
type ReminderOptions struct {
	Calendar    licensing.Calendar
	DueSoonDays int
	Channel     string
	Origin      string
}

type reminderLine struct {
	license *models.License
	due     *time.Time
	amount  float64
	overdue bool
}

// BuildReminders groups licenses by client document and returns one
// candidate job per client that has something overdue or due soon. Licenses
// without a client document are skipped.
func BuildReminders(licenses []*models.License, now time.Time, opts ReminderOptions) []JobInput {
	groups := make(map[string][]*models.License)
	for _, l := range licenses {
		if l == nil {
			continue
		}
		doc := strings.TrimSpace(l.ClientDocument)
		if doc == "" {
			continue
		}
		groups[doc] = append(groups[doc], l)
	}

	docs := make([]string, 0, len(groups))
	for doc := range groups {
		docs = append(docs, doc)
	}
	sort.Strings(docs)

	out := make([]JobInput, 0, len(docs))
	for _, doc := range docs {
		if in, ok := BuildReminder(doc, groups[doc], now, opts); ok {
			out = append(out, in)
		}
	}
	return out
}

// BuildReminder aggregates one client's licenses into a candidate job. ok is
// false when none of them needs a reminder.
func BuildReminder(rucOrDni string, licenses []*models.License, now time.Time, opts ReminderOptions) (JobInput, bool) {
	cal := opts.Calendar
	today := cal.DayStart(now)
	soonLimit := today.AddDate(0, 0, opts.DueSoonDays)

	var lines []reminderLine
	for _, l := range licenses {
		if l == nil || l.Status == models.LicenseStatusCancelled {
			continue
		}
		line := reminderLine{license: l, due: l.NextPaymentDue, amount: l.OutstandingBalance}
		switch {
		case l.Status == models.LicenseStatusOverdue:
			line.overdue = true
		case l.NextPaymentDue != nil:
			due := cal.DayStart(*l.NextPaymentDue)
			if due.Before(today) || due.After(soonLimit) {
				continue
			}
			if line.amount <= 0 {
				line.amount = l.Amount
			}
		default:
			continue
		}
		if line.amount <= 0 {
			continue
		}
		lines = append(lines, line)
	}
	if len(lines) == 0 {
		return JobInput{}, false
	}

	sort.Slice(lines, func(i, j int) bool {
		a, b := lines[i], lines[j]
		if a.overdue != b.overdue {
			return a.overdue
		}
		if a.due != nil && b.due != nil && !a.due.Equal(*b.due) {
			return a.due.Before(*b.due)
		}
		return a.license.ID < b.license.ID
	})

	ids := make([]string, 0, len(lines))
	amounts := make([]float64, 0, len(lines))
	severity := models.SeverityMedium
	for _, ln := range lines {
		ids = append(ids, ln.license.ID)
		amounts = append(amounts, ln.amount)
		if ln.overdue {
			severity = models.SeverityHigh
		}
	}
	total := licensing.AddMoney(amounts...)
	first := lines[0].license

	channel := opts.Channel
	recipient := ""
	for _, ln := range lines {
		if r := recipientFor(channel, ln.license); r != "" {
			recipient = r
			break
		}
	}

	return JobInput{
		RucOrDni:   rucOrDni,
		LicenseIDs: ids,
		TotalDue:   total,
		Currency:   first.Currency,
		Severity:   severity,
		Message:    reminderMessage(cal, first.ClientName, severity, lines, total, first.Currency),
		Channel:    channel,
		Recipient:  recipient,
		Origin:     opts.Origin,
	}, true
}

func recipientFor(channel string, l *models.License) string {
	switch channel {
	case models.ChannelEmail:
		return strings.TrimSpace(l.ClientEmail)
	case models.ChannelLog:
		return ""
	default:
		return strings.TrimSpace(l.ClientPhone)
	}
}

// reminderMessage renders customer-facing text. It only depends on stored
// dates and amounts so the same situation always renders the same text.
func reminderMessage(cal licensing.Calendar, clientName, severity string, lines []reminderLine, total float64, currency string) string {
	var b strings.Builder
	name := strings.TrimSpace(clientName)
	if name == "" {
		name = "cliente"
	}
	if severity == models.SeverityHigh {
		fmt.Fprintf(&b, "Hola %s, registramos pagos vencidos en sus servicios con Nexius:\n", name)
	} else {
		fmt.Fprintf(&b, "Hola %s, le recordamos que se acerca el vencimiento de sus servicios con Nexius:\n", name)
	}
	for _, ln := range lines {
		label := ln.license.Domain
		if label == "" {
			label = ln.license.LicenseKey
		}
		if ln.license.Service != "" {
			label += " (" + ln.license.Service + ")"
		}
		due := "sin fecha"
		if ln.due != nil {
			due = cal.DateKey(*ln.due)
		}
		fmt.Fprintf(&b, "- %s: vence %s, monto %s\n", label, due, formatAmount(ln.amount, currency))
	}
	if severity == models.SeverityHigh {
		fmt.Fprintf(&b, "Total pendiente: %s. Por favor regularice su pago para evitar la suspensión del servicio.", formatAmount(total, currency))
	} else {
		fmt.Fprintf(&b, "Total a pagar: %s. Gracias por su preferencia.", formatAmount(total, currency))
	}
	return b.String()
}

func formatAmount(v float64, currency string) string {
	if currency == "" || currency == models.DefaultCurrency {
		return "S/ " + licensing.FormatMoney(v)
	}
	return currency + " " + licensing.FormatMoney(v)
}

package licensing

import (
	"fmt"
	"strings"
	"time"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
)

// Normalize repairs ledger drift and applies any late fee that became due.
// It mutates l; a non-empty result means l differs from what was stored.
func (c Calendar) Normalize(l *models.License, now time.Time) []SideEffect {
	var effects []SideEffect

	applyDefaults(l)

	if removed := dedupeCharges(l); removed > 0 {
		effects = append(effects, SideEffect{Kind: EffectLedgerRepaired, Detail: fmt.Sprintf("removed %d duplicate charges", removed)})
	}
	if removed := dedupePayments(l); removed > 0 {
		effects = append(effects, SideEffect{Kind: EffectLedgerRepaired, Detail: fmt.Sprintf("removed %d duplicate payments", removed)})
	}

	if enforceGrace(l) {
		effects = append(effects, SideEffect{Kind: EffectGraceEnforced, Detail: "monthly_first requires at least 1 grace day"})
	}

	if b := FloorMoney(l.OutstandingBalance); b != l.OutstandingBalance {
		effects = append(effects, SideEffect{Kind: EffectBalanceCorrected, Detail: fmt.Sprintf("%v -> %v", l.OutstandingBalance, b)})
		l.OutstandingBalance = b
	}

	if c.alignDates(l) {
		effects = append(effects, SideEffect{Kind: EffectDatesRealigned, Detail: l.ScheduleMode})
	}

	effects = append(effects, c.ApplyLateFeeIfNeeded(l, now)...)
	return effects
}

func applyDefaults(l *models.License) {
	if l.ChargesHistory == nil {
		l.ChargesHistory = []models.LicenseCharge{}
	}
	if l.PaymentHistory == nil {
		l.PaymentHistory = []models.LicensePayment{}
	}
	if strings.TrimSpace(l.Currency) == "" {
		l.Currency = models.DefaultCurrency
	}
	if l.Frequency == "" {
		l.Frequency = models.FrequencyMonthly
	}
	if l.ScheduleMode == "" {
		l.ScheduleMode = models.ScheduleManual
	}
	if l.Status == "" {
		l.Status = models.LicenseStatusPending
	}
}

// dedupeCharges keeps the first charge of every (type, periodKey) pair.
func dedupeCharges(l *models.License) int {
	seen := make(map[string]struct{}, len(l.ChargesHistory))
	kept := l.ChargesHistory[:0:0]
	for _, ch := range l.ChargesHistory {
		k := ch.Type + "|" + ch.PeriodKey
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		kept = append(kept, ch)
	}
	removed := len(l.ChargesHistory) - len(kept)
	if removed > 0 {
		l.ChargesHistory = kept
	}
	return removed
}

// dedupePayments keeps the first payment of every transaction id.
func dedupePayments(l *models.License) int {
	seen := make(map[string]struct{}, len(l.PaymentHistory))
	kept := l.PaymentHistory[:0:0]
	for _, p := range l.PaymentHistory {
		if p.TransactionID != "" {
			if _, dup := seen[p.TransactionID]; dup {
				continue
			}
			seen[p.TransactionID] = struct{}{}
		}
		kept = append(kept, p)
	}
	removed := len(l.PaymentHistory) - len(kept)
	if removed > 0 {
		l.PaymentHistory = kept
	}
	return removed
}

func enforceGrace(l *models.License) bool {
	if l.GracePeriodDays < 0 {
		l.GracePeriodDays = 0
	}
	if l.ScheduleMode == models.ScheduleMonthlyFirst && l.GracePeriodDays < 1 {
		l.GracePeriodDays = 1
		return true
	}
	return false
}

// alignDates keeps end and due dates consistent with the schedule formula.
func (c Calendar) alignDates(l *models.License) bool {
	if !models.IsFixedAnchor(l.ScheduleMode) {
		if l.NextPaymentDue == nil && l.EndDate != nil {
			due := *l.EndDate
			l.NextPaymentDue = &due
			return true
		}
		return false
	}

	switch {
	case l.NextPaymentDue != nil:
		wantEnd := c.AddDays(*l.NextPaymentDue, -1)
		if l.EndDate != nil && l.EndDate.Equal(wantEnd) {
			return false
		}
		l.EndDate = &wantEnd
	case l.EndDate != nil:
		due := c.AddDays(*l.EndDate, 1)
		l.NextPaymentDue = &due
	default:
		p, _ := c.AnchorPeriod(l.ScheduleMode, l.StartDate)
		l.EndDate = &p.EndDate
		l.NextPaymentDue = &p.NextPaymentDue
	}
	return true
}

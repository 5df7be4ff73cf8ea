package licensing

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
)

// EffectiveLateFee is the configured fixed fee, or the percentage of the base
// amount when no fixed fee is set.
func EffectiveLateFee(l *models.License) float64 {
	if l.LateFeeAmount > 0 {
		return RoundMoney(l.LateFeeAmount)
	}
	if l.LateFeePercentage != nil && *l.LateFeePercentage > 0 {
		return RoundMoney(l.Amount * *l.LateFeePercentage / 100)
	}
	return 0
}

// EffectiveGraceDays applies the per-mode default when no grace is configured.
func EffectiveGraceDays(l *models.License) int {
	if l.GracePeriodDays > 0 {
		return l.GracePeriodDays
	}
	if l.ScheduleMode == models.ScheduleMonthlyFirst {
		return 1
	}
	return 0
}

// LateFeePeriodKey identifies the billing period a late fee belongs to.
func (c Calendar) LateFeePeriodKey(due time.Time) string {
	return "late_fee:" + c.DateKey(due)
}

// LateFeeThreshold is the first day on which a late fee applies.
func (c Calendar) LateFeeThreshold(l *models.License) *time.Time {
	if l.NextPaymentDue == nil {
		return nil
	}
	grace := EffectiveGraceDays(l)
	if grace < 1 {
		grace = 1
	}
	t := c.AddDays(*l.NextPaymentDue, grace)
	return &t
}

// ApplyLateFeeIfNeeded appends at most one late fee per due date and keeps the
// status overdue once the fee exists. It mutates l and reports what changed.
func (c Calendar) ApplyLateFeeIfNeeded(l *models.License, now time.Time) []SideEffect {
	if l.Status == models.LicenseStatusCancelled || l.NextPaymentDue == nil {
		return nil
	}
	fee := EffectiveLateFee(l)
	if fee <= 0 {
		return nil
	}
	threshold := c.LateFeeThreshold(l)
	if c.DayStart(now).Before(*threshold) {
		return nil
	}

	key := c.LateFeePeriodKey(*l.NextPaymentDue)
	if l.FindCharge(models.ChargeTypeLateFee, key) != nil {
		if l.Status == models.LicenseStatusOverdue {
			return nil
		}
		l.Status = models.LicenseStatusOverdue
		return []SideEffect{{Kind: EffectStatusOverdue, Detail: key}}
	}

	due := c.DayStart(*l.NextPaymentDue)
	l.ChargesHistory = append(l.ChargesHistory, models.LicenseCharge{
		ID:          uuid.New().String(),
		Type:        models.ChargeTypeLateFee,
		PeriodKey:   key,
		Amount:      fee,
		Currency:    l.Currency,
		AppliedAt:   now,
		Description: fmt.Sprintf("Recargo por pago tardío (vencimiento %s)", c.DateKey(due)),
		PeriodEnd:   &due,
		Metadata: map[string]any{
			"nextPaymentDue": c.DateKey(due),
			"graceDays":      EffectiveGraceDays(l),
		},
	})
	l.OutstandingBalance = FloorMoney(AddMoney(l.OutstandingBalance, fee))

	effects := []SideEffect{{Kind: EffectLateFeeApplied, Detail: key, Amount: fee}}
	if l.Status != models.LicenseStatusOverdue {
		l.Status = models.LicenseStatusOverdue
		effects = append(effects, SideEffect{Kind: EffectStatusOverdue, Detail: key})
	}
	return effects
}

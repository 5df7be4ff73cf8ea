package licensing

import "github.com/Carlos-mc14/nexius-landing-sub000/app/models"

// SideEffectKind names a change the lifecycle manager made on its own.
type SideEffectKind string

const (
	EffectProrationApplied   SideEffectKind = "proration_applied"
	EffectLateFeeApplied     SideEffectKind = "late_fee_applied"
	EffectStatusOverdue      SideEffectKind = "status_overdue"
	EffectLedgerRepaired     SideEffectKind = "ledger_repaired"
	EffectBalanceCorrected   SideEffectKind = "balance_corrected"
	EffectDatesRealigned     SideEffectKind = "dates_realigned"
	EffectGraceEnforced      SideEffectKind = "grace_enforced"
	EffectPaymentApplied     SideEffectKind = "payment_applied"
	EffectDuplicatePayment   SideEffectKind = "duplicate_payment_skipped"
	EffectPeriodAdvanced     SideEffectKind = "period_advanced"
	EffectDatesOverridden    SideEffectKind = "dates_overridden"
	EffectPaymentIntent      SideEffectKind = "payment_intent_created"
	EffectSyncScheduled      SideEffectKind = "sync_scheduled"
	EffectLateFeeRecomputed  SideEffectKind = "late_fee_recomputed"
	EffectScheduleRecomputed SideEffectKind = "schedule_recomputed"
)

// SideEffect is reported alongside every license the manager returns so the
// caller can see when a read or update wrote more than it asked for.
type SideEffect struct {
	Kind   SideEffectKind `json:"kind"`
	Detail string         `json:"detail,omitempty"`
	Amount float64        `json:"amount,omitempty"`
}

// Result is a normalized license plus the side effects that produced it.
type Result struct {
	License *models.License `json:"license"`
	Effects []SideEffect    `json:"sideEffects"`
}

// Has reports whether kind appears in the effects.
func (r *Result) Has(kind SideEffectKind) bool {
	if r == nil {
		return false
	}
	for _, e := range r.Effects {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

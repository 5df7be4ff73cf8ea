package models

import (
	"time"
)

const (
	LicenseStatusPending   = "pending"
	LicenseStatusPaid      = "paid"
	LicenseStatusOverdue   = "overdue"
	LicenseStatusCancelled = "cancelled"
)

const (
	FrequencyMonthly = "monthly"
	FrequencyAnnual  = "annual"
)

const (
	ScheduleManual       = "manual"
	ScheduleMonthlyFirst = "monthly_first"
	ScheduleAnnualJan5   = "annual_jan5"
)

const (
	ChargeTypeProration = "proration"
	ChargeTypeLateFee   = "late_fee"
)

const (
	VerificationAwaiting = "awaiting"
	VerificationVerified = "verified"
)

const DefaultCurrency = "PEN"

// License is a recurring service contract together with its charge and
// payment ledger. Ledgers are stored as JSON columns so a license is read and
// written as one document.
type License struct {
	ID         string `gorm:"primaryKey;type:char(36)" json:"id"`
	LicenseKey string `gorm:"type:varchar(32);not null;uniqueIndex" json:"licenseKey"`
	Domain     string `gorm:"type:varchar(191);index" json:"domain,omitempty"`
	Service    string `gorm:"type:varchar(191)" json:"service,omitempty"`
	Notes      string `gorm:"type:text" json:"notes,omitempty"`

	ClientName     string `gorm:"type:varchar(191)" json:"clientName,omitempty"`
	ClientEmail    string `gorm:"type:varchar(191)" json:"clientEmail,omitempty"`
	ClientPhone    string `gorm:"type:varchar(32)" json:"clientPhone,omitempty"`
	ClientDocument string `gorm:"type:varchar(20);index" json:"rucOrDni,omitempty"`

	Amount            float64  `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Currency          string   `gorm:"type:varchar(3);not null;default:'PEN'" json:"currency"`
	Frequency         string   `gorm:"type:varchar(16);not null;default:'monthly'" json:"frequency"`
	ScheduleMode      string   `gorm:"type:varchar(20);not null;default:'manual';index" json:"scheduleMode"`
	GracePeriodDays   int      `gorm:"not null;default:0" json:"gracePeriodDays"`
	LateFeeAmount     float64  `gorm:"type:decimal(12,2);not null;default:0" json:"lateFeeAmount"`
	LateFeePercentage *float64 `gorm:"type:decimal(5,2);default:null" json:"lateFeePercentage,omitempty"`

	StartDate      time.Time  `gorm:"type:datetime;not null" json:"startDate"`
	EndDate        *time.Time `gorm:"type:datetime;default:null" json:"endDate,omitempty"`
	NextPaymentDue *time.Time `gorm:"type:datetime;default:null;index" json:"nextPaymentDue,omitempty"`

	OutstandingBalance float64          `gorm:"type:decimal(12,2);not null;default:0" json:"outstandingBalance"`
	ProratedAmountDue  *float64         `gorm:"type:decimal(12,2);default:null" json:"proratedAmountDue,omitempty"`
	ProratedDays       *int             `gorm:"default:null" json:"proratedDays,omitempty"`
	BillingCycleDays   *int             `gorm:"default:null" json:"billingCycleDays,omitempty"`
	ChargesHistory     []LicenseCharge  `gorm:"type:json;serializer:json" json:"chargesHistory"`
	PaymentHistory     []LicensePayment `gorm:"type:json;serializer:json" json:"paymentHistory"`
	LastPaymentAt      *time.Time       `gorm:"type:datetime;default:null" json:"lastPaymentAt,omitempty"`

	Status string `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`

	CurrentPaymentCode          string     `gorm:"type:varchar(16);index" json:"currentPaymentCode,omitempty"`
	CurrentPaymentCodeExpiresAt *time.Time `gorm:"type:datetime;default:null" json:"currentPaymentCodeExpiresAt,omitempty"`
	PaymentVerificationState    string     `gorm:"type:varchar(16)" json:"paymentVerificationState,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// LicenseCharge is one entry of the append-only charge ledger.
type LicenseCharge struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	PeriodKey   string         `json:"periodKey"`
	Amount      float64        `json:"amount"`
	Currency    string         `json:"currency"`
	AppliedAt   time.Time      `json:"appliedAt"`
	Description string         `json:"description,omitempty"`
	PeriodStart *time.Time     `json:"periodStart,omitempty"`
	PeriodEnd   *time.Time     `json:"periodEnd,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// LicensePayment is one entry of the append-only payment ledger.
type LicensePayment struct {
	ID             string     `json:"id"`
	Amount         float64    `json:"amount"`
	Currency       string     `json:"currency"`
	Method         string     `json:"method"`
	PaidAt         time.Time  `json:"paidAt"`
	PeriodStart    *time.Time `json:"periodStart,omitempty"`
	PeriodEnd      *time.Time `json:"periodEnd,omitempty"`
	TransactionID  string     `json:"transactionId,omitempty"`
	LateFeePortion *float64   `json:"lateFeePortion,omitempty"`
	Notes          string     `json:"notes,omitempty"`
}

func (License) TableName() string {
	return "licenses"
}

// IsFixedAnchor reports whether due dates come from the calendar anchor
// rather than from stored dates.
func IsFixedAnchor(mode string) bool {
	return mode == ScheduleMonthlyFirst || mode == ScheduleAnnualJan5
}

// HasTransaction reports whether a payment with the given transaction id is
// already in the ledger.
func (l *License) HasTransaction(transactionID string) bool {
	if transactionID == "" {
		return false
	}
	for _, p := range l.PaymentHistory {
		if p.TransactionID == transactionID {
			return true
		}
	}
	return false
}

// FindCharge returns the charge with the given type and period key.
func (l *License) FindCharge(chargeType, periodKey string) *LicenseCharge {
	for i := range l.ChargesHistory {
		if l.ChargesHistory[i].Type == chargeType && l.ChargesHistory[i].PeriodKey == periodKey {
			return &l.ChargesHistory[i]
		}
	}
	return nil
}

// Clone returns a deep copy so callers can mutate ledgers without aliasing.
func (l *License) Clone() *License {
	if l == nil {
		return nil
	}
	c := *l
	c.LateFeePercentage = cloneFloat(l.LateFeePercentage)
	c.EndDate = cloneTime(l.EndDate)
	c.NextPaymentDue = cloneTime(l.NextPaymentDue)
	c.ProratedAmountDue = cloneFloat(l.ProratedAmountDue)
	c.ProratedDays = cloneInt(l.ProratedDays)
	c.BillingCycleDays = cloneInt(l.BillingCycleDays)
	c.LastPaymentAt = cloneTime(l.LastPaymentAt)
	c.CurrentPaymentCodeExpiresAt = cloneTime(l.CurrentPaymentCodeExpiresAt)

	if l.ChargesHistory != nil {
		c.ChargesHistory = make([]LicenseCharge, len(l.ChargesHistory))
		for i, ch := range l.ChargesHistory {
			ch.PeriodStart = cloneTime(ch.PeriodStart)
			ch.PeriodEnd = cloneTime(ch.PeriodEnd)
			if ch.Metadata != nil {
				md := make(map[string]any, len(ch.Metadata))
				for k, v := range ch.Metadata {
					md[k] = v
				}
				ch.Metadata = md
			}
			c.ChargesHistory[i] = ch
		}
	}
	if l.PaymentHistory != nil {
		c.PaymentHistory = make([]LicensePayment, len(l.PaymentHistory))
		for i, p := range l.PaymentHistory {
			p.PeriodStart = cloneTime(p.PeriodStart)
			p.PeriodEnd = cloneTime(p.PeriodEnd)
			p.LateFeePortion = cloneFloat(p.LateFeePortion)
			c.PaymentHistory[i] = p
		}
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneFloat(f *float64) *float64 {
	if f == nil {
		return nil
	}
	v := *f
	return &v
}

func cloneInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}

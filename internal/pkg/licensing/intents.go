package licensing

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Intent is one typed change requested by an update. The concrete types below
// are the only implementations.
type Intent interface {
	intentName() string
}

// ApplyPayment logs a payment. A nil Amount means the license's base amount.
type ApplyPayment struct {
	Amount         *float64 `json:"amount,omitempty" validate:"omitempty,gt=0"`
	Method         string   `json:"method,omitempty" validate:"omitempty,max=32"`
	Currency       string   `json:"currency,omitempty" validate:"omitempty,len=3"`
	TransactionID  string   `json:"transactionId,omitempty" validate:"omitempty,max=191"`
	Notes          string   `json:"notes,omitempty" validate:"omitempty,max=1000"`
	LateFeePortion *float64 `json:"lateFeePortion,omitempty" validate:"omitempty,gte=0"`
}

// ChangeSchedule switches the schedule mode and optionally the frequency.
type ChangeSchedule struct {
	Mode      string `json:"mode" validate:"required,oneof=manual monthly_first annual_jan5"`
	Frequency string `json:"frequency,omitempty" validate:"omitempty,oneof=monthly annual"`
}

// SetStatus changes the status directly. Paid is reached through ApplyPayment.
type SetStatus struct {
	Status string `json:"status" validate:"required,oneof=pending overdue cancelled"`
}

// UpdateBilling changes the billing configuration.
type UpdateBilling struct {
	Amount                 *float64 `json:"amount,omitempty" validate:"omitempty,gte=0"`
	Currency               *string  `json:"currency,omitempty" validate:"omitempty,len=3"`
	Frequency              *string  `json:"frequency,omitempty" validate:"omitempty,oneof=monthly annual"`
	GracePeriodDays        *int     `json:"gracePeriodDays,omitempty" validate:"omitempty,gte=0,lte=365"`
	LateFeeAmount          *float64 `json:"lateFeeAmount,omitempty" validate:"omitempty,gte=0"`
	LateFeePercentage      *float64 `json:"lateFeePercentage,omitempty" validate:"omitempty,gte=0,lte=100"`
	ClearLateFeePercentage bool     `json:"clearLateFeePercentage,omitempty"`
}

// UpdateDetails changes descriptive and contact fields.
type UpdateDetails struct {
	Domain         *string `json:"domain,omitempty" validate:"omitempty,max=191"`
	Service        *string `json:"service,omitempty" validate:"omitempty,max=191"`
	Notes          *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
	ClientName     *string `json:"clientName,omitempty" validate:"omitempty,max=191"`
	ClientEmail    *string `json:"clientEmail,omitempty" validate:"omitempty,max=191"`
	ClientPhone    *string `json:"clientPhone,omitempty" validate:"omitempty,max=32"`
	ClientDocument *string `json:"rucOrDni,omitempty" validate:"omitempty,max=20"`
}

// SetDates edits period dates. End and due dates are ignored under
// fixed-anchor schedules.
type SetDates struct {
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
	NextPaymentDue *time.Time `json:"nextPaymentDue,omitempty"`
}

// AdjustBalance overwrites the outstanding balance. Negative values floor at 0.
type AdjustBalance struct {
	OutstandingBalance float64 `json:"outstandingBalance"`
}

func (ApplyPayment) intentName() string   { return "apply_payment" }
func (ChangeSchedule) intentName() string { return "change_schedule" }
func (SetStatus) intentName() string      { return "set_status" }
func (UpdateBilling) intentName() string  { return "update_billing" }
func (UpdateDetails) intentName() string  { return "update_details" }
func (SetDates) intentName() string       { return "set_dates" }
func (AdjustBalance) intentName() string  { return "adjust_balance" }

var validate = validator.New()

// intentPlan holds at most one intent of each kind in application order.
type intentPlan struct {
	details  *UpdateDetails
	billing  *UpdateBilling
	schedule *ChangeSchedule
	dates    *SetDates
	balance  *AdjustBalance
	status   *SetStatus
	payment  *ApplyPayment
}

// ValidateIntents checks every intent and rejects repeated kinds.
func ValidateIntents(intents []Intent) error {
	_, err := planIntents(intents)
	return err
}

func planIntents(intents []Intent) (*intentPlan, error) {
	plan := &intentPlan{}
	seen := make(map[string]struct{}, len(intents))
	for _, in := range intents {
		if in == nil {
			continue
		}
		name := in.intentName()
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %s given more than once", ErrValidation, name)
		}
		seen[name] = struct{}{}

		if err := validate.Struct(in); err != nil {
			return nil, fmt.Errorf("%w: %s: %s", ErrValidation, name, describeValidation(err))
		}

		switch v := in.(type) {
		case UpdateDetails:
			plan.details = &v
		case UpdateBilling:
			plan.billing = &v
		case ChangeSchedule:
			plan.schedule = &v
		case SetDates:
			plan.dates = &v
		case AdjustBalance:
			plan.balance = &v
		case SetStatus:
			plan.status = &v
		case ApplyPayment:
			plan.payment = &v
		case *UpdateDetails:
			plan.details = v
		case *UpdateBilling:
			plan.billing = v
		case *ChangeSchedule:
			plan.schedule = v
		case *SetDates:
			plan.dates = v
		case *AdjustBalance:
			plan.balance = v
		case *SetStatus:
			plan.status = v
		case *ApplyPayment:
			plan.payment = v
		default:
			return nil, fmt.Errorf("%w: unsupported intent %T", ErrValidation, in)
		}
	}
	return plan, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, ", ")
}

package licensing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/app/repository"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/metrics"
	"github.com/Carlos-mc14/nexius-landing-sub000/internal/pkg/shortener"
)

// PaymentCodeIndex maps short-lived payment codes to license ids.
type PaymentCodeIndex interface {
	Put(ctx context.Context, code, licenseID string, ttl time.Duration) error
	Lookup(ctx context.Context, code string) (string, error)
	Delete(ctx context.Context, code string) error
}

// PaymentSyncer forwards a logged payment to the accounting system without
// blocking. It reports whether the payment was accepted for delivery.
type PaymentSyncer interface {
	Dispatch(tx models.Transaction) bool
}

// Service is the license lifecycle manager. It assumes a single writer per
// license; duplicate detection on period keys and transaction ids is what
// makes repeated calls safe.
type Service struct {
	licenses     repository.LicenseRepository
	transactions repository.TransactionRepository
	calendar     Calendar
	cfg          Config
	now          func() time.Time
	codes        PaymentCodeIndex
	syncer       PaymentSyncer
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithPaymentCodeIndex(idx PaymentCodeIndex) Option {
	return func(s *Service) { s.codes = idx }
}

func WithSyncer(syncer PaymentSyncer) Option {
	return func(s *Service) { s.syncer = syncer }
}

// NewService creates a lifecycle manager over injected repositories.
func NewService(licenses repository.LicenseRepository, transactions repository.TransactionRepository, cfg *Config, opts ...Option) *Service {
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.applyDefaults()

	s := &Service{
		licenses:     licenses,
		transactions: transactions,
		calendar:     NewCalendar(c.Location),
		cfg:          c,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Calendar() Calendar {
	return s.calendar
}

func (s *Service) Now() time.Time {
	return s.now()
}

// CreateInput is the payload accepted by Create.
type CreateInput struct {
	LicenseKey     string `json:"licenseKey" validate:"omitempty,max=32"`
	Domain         string `json:"domain" validate:"omitempty,max=191"`
	Service        string `json:"service" validate:"omitempty,max=191"`
	Notes          string `json:"notes" validate:"omitempty,max=5000"`
	ClientName     string `json:"clientName" validate:"omitempty,max=191"`
	ClientEmail    string `json:"clientEmail" validate:"omitempty,email,max=191"`
	ClientPhone    string `json:"clientPhone" validate:"omitempty,max=32"`
	ClientDocument string `json:"rucOrDni" validate:"omitempty,max=20"`

	Amount            float64  `json:"amount" validate:"gte=0"`
	Currency          string   `json:"currency" validate:"omitempty,len=3"`
	Frequency         string   `json:"frequency" validate:"omitempty,oneof=monthly annual"`
	ScheduleMode      string   `json:"scheduleMode" validate:"omitempty,oneof=manual monthly_first annual_jan5"`
	GracePeriodDays   *int     `json:"gracePeriodDays" validate:"omitempty,gte=0,lte=365"`
	LateFeeAmount     float64  `json:"lateFeeAmount" validate:"gte=0"`
	LateFeePercentage *float64 `json:"lateFeePercentage" validate:"omitempty,gte=0,lte=100"`

	StartDate          *time.Time `json:"startDate"`
	EndDate            *time.Time `json:"endDate"`
	NextPaymentDue     *time.Time `json:"nextPaymentDue"`
	OutstandingBalance *float64   `json:"outstandingBalance" validate:"omitempty,gte=0"`
	Status             string     `json:"status" validate:"omitempty,oneof=pending overdue cancelled"`
}

// Create assigns defaults, computes the first period and any proration,
// persists the license and returns it normalized.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Result, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, describeValidation(err))
	}

	domain := normalizeDomain(in.Domain)
	if domain != "" {
		existing, err := s.licenses.FindByDomain(ctx, domain)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, fmt.Errorf("%w: %s", ErrDomainTaken, domain)
		}
	}

	key := strings.ToUpper(strings.TrimSpace(in.LicenseKey))
	if key == "" {
		generated, err := shortener.GenerateLicenseKey()
		if err != nil {
			return nil, fmt.Errorf("failed to generate license key: %w", err)
		}
		key = generated
	}

	now := s.now()
	start := now
	if in.StartDate != nil {
		start = *in.StartDate
	}

	l := &models.License{
		ID:             uuid.New().String(),
		LicenseKey:     key,
		Domain:         domain,
		Service:        strings.TrimSpace(in.Service),
		Notes:          strings.TrimSpace(in.Notes),
		ClientName:     strings.TrimSpace(in.ClientName),
		ClientEmail:    strings.ToLower(strings.TrimSpace(in.ClientEmail)),
		ClientPhone:    strings.TrimSpace(in.ClientPhone),
		ClientDocument: strings.TrimSpace(in.ClientDocument),
		Amount:         RoundMoney(in.Amount),
		Currency:       strings.ToUpper(strings.TrimSpace(in.Currency)),
		Frequency:      in.Frequency,
		ScheduleMode:   in.ScheduleMode,
		LateFeeAmount:  FloorMoney(in.LateFeeAmount),
		StartDate:      start,
		Status:         in.Status,
		ChargesHistory: []models.LicenseCharge{},
		PaymentHistory: []models.LicensePayment{},
	}
	applyDefaults(l)
	forceAnchorFrequency(l)

	if in.LateFeePercentage != nil {
		pct := RoundMoney(*in.LateFeePercentage)
		l.LateFeePercentage = &pct
	}
	deriveLateFee(l)

	if in.GracePeriodDays != nil {
		l.GracePeriodDays = *in.GracePeriodDays
	} else if l.ScheduleMode == models.ScheduleMonthlyFirst {
		l.GracePeriodDays = 1
	}
	enforceGrace(l)

	if in.OutstandingBalance != nil {
		l.OutstandingBalance = FloorMoney(*in.OutstandingBalance)
	}

	if p, ok := s.calendar.AnchorPeriod(l.ScheduleMode, start); ok {
		l.EndDate = &p.EndDate
		l.NextPaymentDue = &p.NextPaymentDue
	} else {
		var end time.Time
		switch {
		case in.EndDate != nil:
			end = *in.EndDate
		case in.NextPaymentDue != nil:
			end = *in.NextPaymentDue
		default:
			end = s.calendar.CoverageEnd(start, l.Frequency)
		}
		due := end
		l.EndDate = &end
		l.NextPaymentDue = &due
	}

	effects := []SideEffect{}
	if l.ScheduleMode == models.ScheduleMonthlyFirst {
		if p := s.calendar.CalculateMonthlyFirstProration(start, l.Amount); p != nil {
			s.recordProration(l, p, now)
			effects = append(effects, SideEffect{Kind: EffectProrationApplied, Detail: fmt.Sprintf("%d/%d days", p.DaysCharged, p.DaysInCycle), Amount: p.Amount})
		}
	}

	if err := s.licenses.Create(ctx, l); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, fmt.Errorf("%w: %s", ErrLicenseKeyTaken, l.LicenseKey)
		}
		return nil, fmt.Errorf("failed to create license: %w", err)
	}
	log.Infof("[Licensing] Created license %s (%s, mode=%s, amount=%.2f %s)", l.ID, l.LicenseKey, l.ScheduleMode, l.Amount, l.Currency)

	res, err := s.normalizeAndPersist(ctx, l)
	if err != nil {
		return nil, err
	}
	res.Effects = append(effects, res.Effects...)
	return res, nil
}

func (s *Service) recordProration(l *models.License, p *Proration, now time.Time) {
	start := s.calendar.DayStart(l.StartDate)
	amount, days, cycle := p.Amount, p.DaysCharged, p.DaysInCycle
	l.ProratedAmountDue = &amount
	l.ProratedDays = &days
	l.BillingCycleDays = &cycle

	charge := models.LicenseCharge{
		ID:          uuid.New().String(),
		Type:        models.ChargeTypeProration,
		PeriodKey:   "proration:" + s.calendar.DateKey(start),
		Amount:      p.Amount,
		Currency:    l.Currency,
		AppliedAt:   now,
		Description: fmt.Sprintf("Prorrateo del primer periodo (%d de %d días)", p.DaysCharged, p.DaysInCycle),
		PeriodStart: &start,
		Metadata: map[string]any{
			"baseAmount":  l.Amount,
			"daysCharged": p.DaysCharged,
			"daysInCycle": p.DaysInCycle,
		},
	}
	if l.EndDate != nil {
		end := *l.EndDate
		charge.PeriodEnd = &end
	}
	l.ChargesHistory = append(l.ChargesHistory, charge)
	l.OutstandingBalance = FloorMoney(AddMoney(l.OutstandingBalance, p.Amount))
}

// Update applies typed intents to a license. A missing license yields
// (nil, nil).
func (s *Service) Update(ctx context.Context, id string, intents ...Intent) (*Result, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	plan, err := planIntents(intents)
	if err != nil {
		return nil, err
	}

	current, err := s.licenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, nil
	}

	l := current.Clone()
	applyDefaults(l)
	now := s.now()
	// Charges already due are settled against the stored period before any
	// intent can move it.
	effects := s.calendar.Normalize(l, now)
	s.recordRepairs(l, effects)
	if effects == nil {
		effects = []SideEffect{}
	}

	if plan.details != nil {
		if err := s.applyDetails(ctx, l, plan.details); err != nil {
			return nil, err
		}
	}
	if plan.billing != nil {
		effects = append(effects, applyBilling(l, plan.billing)...)
	}
	effects = append(effects, s.applySchedule(l, plan.schedule, plan.dates, now)...)
	if plan.balance != nil {
		l.OutstandingBalance = FloorMoney(plan.balance.OutstandingBalance)
	}
	if plan.status != nil {
		l.Status = plan.status.Status
	}
	if enforceGrace(l) {
		effects = append(effects, SideEffect{Kind: EffectGraceEnforced, Detail: "monthly_first requires at least 1 grace day"})
	}

	var logged *models.LicensePayment
	if plan.payment != nil {
		var paymentEffects []SideEffect
		logged, paymentEffects = s.applyPayment(l, plan.payment, now)
		effects = append(effects, paymentEffects...)
	}

	if err := s.licenses.Save(ctx, l); err != nil {
		return nil, fmt.Errorf("failed to save license %s: %w", id, err)
	}
	if logged != nil && current.CurrentPaymentCode != "" {
		s.dropPaymentCode(ctx, current.CurrentPaymentCode)
	}

	fresh, err := s.licenses.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if fresh == nil {
		return nil, nil
	}
	res, err := s.normalizeAndPersist(ctx, fresh)
	if err != nil {
		return nil, err
	}
	res.Effects = append(effects, res.Effects...)

	if logged != nil && logged.TransactionID != "" && s.scheduleSync(ctx, res.License, *logged) {
		res.Effects = append(res.Effects, SideEffect{Kind: EffectSyncScheduled, Detail: logged.TransactionID})
	}
	return res, nil
}

func (s *Service) applyDetails(ctx context.Context, l *models.License, d *UpdateDetails) error {
	if d.Domain != nil {
		domain := normalizeDomain(*d.Domain)
		if domain != "" && domain != l.Domain {
			existing, err := s.licenses.FindByDomain(ctx, domain)
			if err != nil {
				return err
			}
			if existing != nil && existing.ID != l.ID {
				return fmt.Errorf("%w: %s", ErrDomainTaken, domain)
			}
		}
		l.Domain = domain
	}
	setTrimmed(&l.Service, d.Service)
	setTrimmed(&l.Notes, d.Notes)
	setTrimmed(&l.ClientName, d.ClientName)
	setTrimmed(&l.ClientPhone, d.ClientPhone)
	setTrimmed(&l.ClientDocument, d.ClientDocument)
	if d.ClientEmail != nil {
		l.ClientEmail = strings.ToLower(strings.TrimSpace(*d.ClientEmail))
	}
	return nil
}

func applyBilling(l *models.License, b *UpdateBilling) []SideEffect {
	if b.Amount != nil {
		l.Amount = RoundMoney(*b.Amount)
	}
	if b.Currency != nil {
		l.Currency = strings.ToUpper(strings.TrimSpace(*b.Currency))
	}
	if b.Frequency != nil {
		l.Frequency = *b.Frequency
	}
	if b.GracePeriodDays != nil {
		l.GracePeriodDays = *b.GracePeriodDays
	}
	if b.LateFeeAmount != nil {
		l.LateFeeAmount = FloorMoney(*b.LateFeeAmount)
	}
	if b.ClearLateFeePercentage {
		l.LateFeePercentage = nil
	}
	if b.LateFeePercentage != nil {
		pct := RoundMoney(*b.LateFeePercentage)
		l.LateFeePercentage = &pct
	}
	if deriveLateFee(l) {
		return []SideEffect{{Kind: EffectLateFeeRecomputed, Detail: fmt.Sprintf("%.2f%% of %.2f", *l.LateFeePercentage, l.Amount), Amount: l.LateFeeAmount}}
	}
	return nil
}

// applySchedule handles mode transitions and date edits. Fixed-anchor modes
// own their dates, so caller-supplied end/due dates are discarded for them.
func (s *Service) applySchedule(l *models.License, sched *ChangeSchedule, dates *SetDates, now time.Time) []SideEffect {
	var effects []SideEffect
	prevMode := l.ScheduleMode

	if sched != nil {
		if sched.Frequency != "" {
			l.Frequency = sched.Frequency
		}
		l.ScheduleMode = sched.Mode
	}
	forceAnchorFrequency(l)
	if dates != nil && dates.StartDate != nil {
		l.StartDate = *dates.StartDate
	}

	if models.IsFixedAnchor(l.ScheduleMode) {
		if dates != nil && (dates.EndDate != nil || dates.NextPaymentDue != nil) {
			effects = append(effects, SideEffect{Kind: EffectDatesOverridden, Detail: l.ScheduleMode})
		}
		if l.ScheduleMode != prevMode {
			p, _ := s.calendar.AnchorPeriod(l.ScheduleMode, now)
			l.EndDate = &p.EndDate
			l.NextPaymentDue = &p.NextPaymentDue
			effects = append(effects, SideEffect{Kind: EffectScheduleRecomputed, Detail: prevMode + " -> " + l.ScheduleMode})
		}
		return effects
	}

	if l.ScheduleMode != prevMode {
		if l.EndDate != nil {
			due := *l.EndDate
			l.NextPaymentDue = &due
		}
		effects = append(effects, SideEffect{Kind: EffectScheduleRecomputed, Detail: prevMode + " -> " + l.ScheduleMode})
	}
	if dates != nil {
		if dates.EndDate != nil {
			end := *dates.EndDate
			l.EndDate = &end
			if dates.NextPaymentDue == nil {
				due := end
				l.NextPaymentDue = &due
			}
		}
		if dates.NextPaymentDue != nil {
			due := *dates.NextPaymentDue
			l.NextPaymentDue = &due
		}
	}
	return effects
}

// applyPayment logs p unless its transaction id is already in the ledger.
// Only a full settlement advances the period; the license then starts the
// next cycle as pending.
func (s *Service) applyPayment(l *models.License, p *ApplyPayment, now time.Time) (*models.LicensePayment, []SideEffect) {
	if l.HasTransaction(p.TransactionID) {
		metrics.PaymentsApplied.WithLabelValues("duplicate").Inc()
		log.Infof("[Licensing] Transaction %s already logged for license %s, skipping", p.TransactionID, l.ID)
		return nil, []SideEffect{{Kind: EffectDuplicatePayment, Detail: p.TransactionID}}
	}

	// Without an explicit amount the base recurring charge is assumed, even
	// when the balance also carries late fees or proration.
	amount := l.Amount
	if p.Amount != nil {
		amount = *p.Amount
	}
	amount = RoundMoney(amount)

	currency := strings.ToUpper(strings.TrimSpace(p.Currency))
	if currency == "" {
		currency = l.Currency
	}
	method := strings.TrimSpace(p.Method)
	if method == "" {
		method = "manual"
	}

	entry := models.LicensePayment{
		ID:            uuid.New().String(),
		Amount:        amount,
		Currency:      currency,
		Method:        method,
		PaidAt:        now,
		PeriodStart:   s.calendar.PeriodStart(l),
		TransactionID: strings.TrimSpace(p.TransactionID),
		Notes:         strings.TrimSpace(p.Notes),
	}
	if l.EndDate != nil {
		end := *l.EndDate
		entry.PeriodEnd = &end
	}
	if p.LateFeePortion != nil {
		portion := FloorMoney(*p.LateFeePortion)
		entry.LateFeePortion = &portion
	}

	l.PaymentHistory = append(l.PaymentHistory, entry)
	l.OutstandingBalance = FloorMoney(AddMoney(l.OutstandingBalance, -amount))
	if l.ProratedAmountDue != nil {
		remaining := FloorMoney(AddMoney(*l.ProratedAmountDue, -amount))
		l.ProratedAmountDue = &remaining
	}
	paidAt := now
	l.LastPaymentAt = &paidAt
	l.CurrentPaymentCode = ""
	l.CurrentPaymentCodeExpiresAt = nil
	l.PaymentVerificationState = models.VerificationVerified

	effects := []SideEffect{{Kind: EffectPaymentApplied, Detail: entry.TransactionID, Amount: amount}}

	if l.OutstandingBalance <= settlementTolerance {
		l.OutstandingBalance = 0
		next := s.calendar.ExtendPeriod(l)
		l.EndDate = &next.EndDate
		l.NextPaymentDue = &next.NextPaymentDue
		effects = append(effects, SideEffect{Kind: EffectPeriodAdvanced, Detail: "next due " + s.calendar.DateKey(next.NextPaymentDue)})
		metrics.PaymentsApplied.WithLabelValues("settled").Inc()
	} else {
		metrics.PaymentsApplied.WithLabelValues("partial").Inc()
	}
	l.Status = models.LicenseStatusPending

	log.Infof("[Licensing] Payment %.2f %s logged for license %s (tx=%q, balance=%.2f)", amount, currency, l.ID, entry.TransactionID, l.OutstandingBalance)
	return &entry, effects
}

// GetByID loads and normalizes a license. A missing license yields (nil, nil).
func (s *Service) GetByID(ctx context.Context, id string) (*Result, error) {
	if err := validateID(id); err != nil {
		return nil, err
	}
	l, err := s.licenses.GetByID(ctx, id)
	if err != nil || l == nil {
		return nil, err
	}
	return s.normalizeAndPersist(ctx, l)
}

// FindByDomain loads and normalizes the license bound to domain.
func (s *Service) FindByDomain(ctx context.Context, domain string) (*Result, error) {
	d := normalizeDomain(domain)
	if d == "" {
		return nil, nil
	}
	l, err := s.licenses.FindByDomain(ctx, d)
	if err != nil || l == nil {
		return nil, err
	}
	return s.normalizeAndPersist(ctx, l)
}

// FindMany lists and normalizes licenses.
func (s *Service) FindMany(ctx context.Context, filter repository.LicenseFilter) ([]*Result, error) {
	licenses, err := s.licenses.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	out := make([]*Result, 0, len(licenses))
	for i := range licenses {
		res, err := s.normalizeAndPersist(ctx, &licenses[i])
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, nil
}

func (s *Service) normalizeAndPersist(ctx context.Context, l *models.License) (*Result, error) {
	effects := s.calendar.Normalize(l, s.now())
	if len(effects) > 0 {
		if err := s.licenses.Save(ctx, l); err != nil {
			return nil, fmt.Errorf("failed to persist normalized license %s: %w", l.ID, err)
		}
		s.recordRepairs(l, effects)
	}
	if effects == nil {
		effects = []SideEffect{}
	}
	return &Result{License: l, Effects: effects}, nil
}

func (s *Service) recordRepairs(l *models.License, effects []SideEffect) {
	for _, e := range effects {
		metrics.ReadRepairs.WithLabelValues(string(e.Kind)).Inc()
		if e.Kind == EffectLateFeeApplied {
			metrics.LateFeesApplied.Inc()
			log.Infof("[Licensing] Late fee %.2f applied to license %s (%s)", e.Amount, l.ID, e.Detail)
		}
	}
}

func (s *Service) scheduleSync(ctx context.Context, l *models.License, payment models.LicensePayment) bool {
	if s.syncer == nil {
		return false
	}
	var tx *models.Transaction
	if s.transactions != nil {
		found, err := s.transactions.GetByTransactionID(ctx, payment.TransactionID)
		if err != nil {
			log.Warnf("[Licensing] Transaction lookup for %s failed, syncing from license data: %v", payment.TransactionID, err)
		} else {
			tx = found
		}
	}
	return s.syncer.Dispatch(EnrichTransaction(tx, l, payment))
}

func (s *Service) dropPaymentCode(ctx context.Context, code string) {
	if s.codes == nil {
		return
	}
	if err := s.codes.Delete(ctx, code); err != nil {
		log.Warnf("[Licensing] Failed to remove payment code %s from index: %v", code, err)
	}
}

// deriveLateFee stores the percentage-based fee as the fixed amount when a
// percentage is configured.
func deriveLateFee(l *models.License) bool {
	if l.LateFeePercentage == nil || *l.LateFeePercentage <= 0 {
		return false
	}
	fee := RoundMoney(l.Amount * *l.LateFeePercentage / 100)
	if fee == l.LateFeeAmount {
		return false
	}
	l.LateFeeAmount = fee
	return true
}

func forceAnchorFrequency(l *models.License) {
	switch l.ScheduleMode {
	case models.ScheduleMonthlyFirst:
		l.Frequency = models.FrequencyMonthly
	case models.ScheduleAnnualJan5:
		l.Frequency = models.FrequencyAnnual
	}
}

func validateID(id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

func normalizeDomain(domain string) string {
	d := strings.ToLower(strings.TrimSpace(domain))
	d = strings.TrimPrefix(d, "https://")
	d = strings.TrimPrefix(d, "http://")
	d = strings.TrimPrefix(d, "www.")
	return strings.TrimSuffix(d, "/")
}

func setTrimmed(dst *string, v *string) {
	if v != nil {
		*dst = strings.TrimSpace(*v)
	}
}

package licensing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
	"github.com/Carlos-mc14/nexius-landing-sub000/app/repository"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

type recordingSyncer struct {
	mu  sync.Mutex
	txs []models.Transaction
}

func (r *recordingSyncer) Dispatch(tx models.Transaction) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, tx)
	return true
}

type memoryCodeIndex struct {
	mu    sync.Mutex
	codes map[string]string
}

func (m *memoryCodeIndex) Put(_ context.Context, code, licenseID string, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.codes == nil {
		m.codes = map[string]string{}
	}
	m.codes[code] = licenseID
	return nil
}

func (m *memoryCodeIndex) Lookup(_ context.Context, code string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.codes[code], nil
}

func (m *memoryCodeIndex) Delete(_ context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.codes, code)
	return nil
}

type fixture struct {
	svc   *Service
	repos *repository.Repositories
	clock *testClock
}

func newFixture(t *testing.T, now time.Time, opts ...Option) *fixture {
	t.Helper()
	repos := repository.NewMemoryRepositories()
	clock := &testClock{now: now}
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	svc := NewService(repos.License, repos.Transaction, &Config{Location: testLoc}, opts...)
	return &fixture{svc: svc, repos: repos, clock: clock}
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

// Mid-month monthly_first license in a 30 day month.
func (f *fixture) createProrated(t *testing.T) *Result {
	t.Helper()
	start := time.Date(2025, 4, 11, 10, 0, 0, 0, testLoc)
	res, err := f.svc.Create(context.Background(), CreateInput{
		Domain:         "acme.pe",
		ClientName:     "ACME SAC",
		ClientDocument: "20123456789",
		Amount:         100,
		ScheduleMode:   models.ScheduleMonthlyFirst,
		LateFeeAmount:  10,
		StartDate:      &start,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

// Manual license due on 2025-04-15 with no grace.
func (f *fixture) createManual(t *testing.T) *Result {
	t.Helper()
	start := day(2025, 3, 16)
	end := day(2025, 4, 15)
	res, err := f.svc.Create(context.Background(), CreateInput{
		ClientName:      "Bodega Lucha",
		ClientPhone:     "+51999888777",
		ClientDocument:  "10456789",
		Amount:          100,
		ScheduleMode:    models.ScheduleManual,
		Frequency:       models.FrequencyMonthly,
		LateFeeAmount:   10,
		GracePeriodDays: intPtr(0),
		StartDate:       &start,
		EndDate:         &end,
	})
	require.NoError(t, err)
	require.NotNil(t, res)
	return res
}

func TestCreate_MonthlyFirstProration(t *testing.T) {
	f := newFixture(t, time.Date(2025, 4, 11, 10, 0, 0, 0, testLoc))
	res := f.createProrated(t)
	l := res.License
	cal := f.svc.Calendar()

	assert.True(t, res.Has(EffectProrationApplied))
	require.NotNil(t, l.ProratedAmountDue)
	assert.Equal(t, 66.67, *l.ProratedAmountDue)
	assert.Equal(t, 20, *l.ProratedDays)
	assert.Equal(t, 30, *l.BillingCycleDays)
	assert.Equal(t, 66.67, l.OutstandingBalance)

	require.Len(t, l.ChargesHistory, 1)
	assert.Equal(t, models.ChargeTypeProration, l.ChargesHistory[0].Type)
	assert.Equal(t, "proration:2025-04-11", l.ChargesHistory[0].PeriodKey)

	assert.Equal(t, "2025-05-01", cal.DateKey(*l.NextPaymentDue))
	assert.Equal(t, "2025-04-30", cal.DateKey(*l.EndDate))
	assert.Equal(t, 1, l.GracePeriodDays)
	assert.Equal(t, models.FrequencyMonthly, l.Frequency)
	assert.Equal(t, models.LicenseStatusPending, l.Status)
	assert.Equal(t, "PEN", l.Currency)
	assert.Regexp(t, `^[2-9A-Z]{4}(-[2-9A-Z]{4}){3}$`, l.LicenseKey)

	stored, err := f.repos.License.GetByID(context.Background(), l.ID)
	require.NoError(t, err)
	assert.Equal(t, 66.67, stored.OutstandingBalance)
}

func TestCreate_StartOnFirstHasNoProration(t *testing.T) {
	f := newFixture(t, day(2025, 4, 1))
	start := day(2025, 4, 1)
	res, err := f.svc.Create(context.Background(), CreateInput{
		Amount:       100,
		ScheduleMode: models.ScheduleMonthlyFirst,
		StartDate:    &start,
	})
	require.NoError(t, err)

	assert.False(t, res.Has(EffectProrationApplied))
	assert.Nil(t, res.License.ProratedAmountDue)
	assert.Empty(t, res.License.ChargesHistory)
	assert.Equal(t, 0.0, res.License.OutstandingBalance)
	assert.Equal(t, "2025-05-01", f.svc.Calendar().DateKey(*res.License.NextPaymentDue))
}

func TestCreate_ManualDefaultsCoverOneUnit(t *testing.T) {
	f := newFixture(t, day(2025, 3, 10))
	res, err := f.svc.Create(context.Background(), CreateInput{Amount: 50})
	require.NoError(t, err)

	l := res.License
	assert.Equal(t, models.ScheduleManual, l.ScheduleMode)
	assert.Equal(t, "2025-04-09", f.svc.Calendar().DateKey(*l.EndDate))
	assert.Equal(t, "2025-04-09", f.svc.Calendar().DateKey(*l.NextPaymentDue))
	assert.Equal(t, 0, l.GracePeriodDays)
}

func TestCreate_AnnualForcesFrequency(t *testing.T) {
	f := newFixture(t, day(2025, 7, 10))
	res, err := f.svc.Create(context.Background(), CreateInput{
		Amount:       1200,
		ScheduleMode: models.ScheduleAnnualJan5,
		Frequency:    models.FrequencyMonthly,
	})
	require.NoError(t, err)

	assert.Equal(t, models.FrequencyAnnual, res.License.Frequency)
	assert.Equal(t, "2026-01-05", f.svc.Calendar().DateKey(*res.License.NextPaymentDue))
	assert.False(t, res.Has(EffectProrationApplied))
}

func TestCreate_PercentageLateFee(t *testing.T) {
	f := newFixture(t, day(2025, 3, 10))
	res, err := f.svc.Create(context.Background(), CreateInput{Amount: 250, LateFeePercentage: floatPtr(10)})
	require.NoError(t, err)
	assert.Equal(t, 25.0, res.License.LateFeeAmount)
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t, day(2025, 3, 10))
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{Amount: -1})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Create(ctx, CreateInput{Amount: 10, ScheduleMode: "weekly"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Create(ctx, CreateInput{Amount: 10, Status: models.LicenseStatusPaid})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreate_DomainMustBeUnique(t *testing.T) {
	f := newFixture(t, day(2025, 3, 10))
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{Amount: 10, Domain: "https://www.Tienda.pe/"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, CreateInput{Amount: 10, Domain: "tienda.pe"})
	assert.ErrorIs(t, err, ErrDomainTaken)

	res, err := f.svc.FindByDomain(ctx, "TIENDA.PE")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, "tienda.pe", res.License.Domain)
}

func TestCreate_LicenseKeyMustBeUnique(t *testing.T) {
	f := newFixture(t, day(2025, 3, 10))
	ctx := context.Background()

	_, err := f.svc.Create(ctx, CreateInput{Amount: 10, LicenseKey: "NXS-0001"})
	require.NoError(t, err)

	res, err := f.svc.Create(ctx, CreateInput{Amount: 10, LicenseKey: " nxs-0001 "})
	assert.ErrorIs(t, err, ErrLicenseKeyTaken)
	assert.Nil(t, res)
}

func TestGetByID_AppliesLateFeeOnce(t *testing.T) {
	f := newFixture(t, day(2025, 4, 10))
	ctx := context.Background()
	created := f.createManual(t)
	assert.Equal(t, models.LicenseStatusPending, created.License.Status)
	assert.Empty(t, created.License.ChargesHistory)

	f.clock.Set(time.Date(2025, 4, 20, 9, 0, 0, 0, testLoc))

	res, err := f.svc.GetByID(ctx, created.License.ID)
	require.NoError(t, err)
	assert.True(t, res.Has(EffectLateFeeApplied))
	assert.True(t, res.Has(EffectStatusOverdue))
	assert.Equal(t, models.LicenseStatusOverdue, res.License.Status)
	assert.Equal(t, 10.0, res.License.OutstandingBalance)

	for i := 0; i < 3; i++ {
		again, err := f.svc.GetByID(ctx, created.License.ID)
		require.NoError(t, err)
		assert.Empty(t, again.Effects)
		assert.Len(t, again.License.ChargesHistory, 1)
		assert.Equal(t, 10.0, again.License.OutstandingBalance)
	}

	list, err := f.svc.FindMany(ctx, repository.LicenseFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Len(t, list[0].License.ChargesHistory, 1)
}

func TestUpdate_FullPaymentAdvancesPeriod(t *testing.T) {
	f := newFixture(t, day(2025, 4, 10))
	ctx := context.Background()
	created := f.createManual(t)
	f.clock.Set(day(2025, 4, 20))
	_, err := f.svc.GetByID(ctx, created.License.ID)
	require.NoError(t, err)

	res, err := f.svc.Update(ctx, created.License.ID, ApplyPayment{})
	require.NoError(t, err)
	require.NotNil(t, res)

	l := res.License
	cal := f.svc.Calendar()
	assert.True(t, res.Has(EffectPaymentApplied))
	assert.True(t, res.Has(EffectPeriodAdvanced))
	assert.Equal(t, 0.0, l.OutstandingBalance)
	assert.Equal(t, models.LicenseStatusPending, l.Status)
	assert.Equal(t, "2025-05-15", cal.DateKey(*l.EndDate))
	assert.Equal(t, "2025-05-15", cal.DateKey(*l.NextPaymentDue))

	require.Len(t, l.PaymentHistory, 1)
	p := l.PaymentHistory[0]
	assert.Equal(t, 100.0, p.Amount, "omitted amount defaults to the base amount")
	assert.Equal(t, "manual", p.Method)
	assert.Equal(t, "2025-03-16", cal.DateKey(*p.PeriodStart))
	assert.Equal(t, "2025-04-15", cal.DateKey(*p.PeriodEnd))
	require.NotNil(t, l.LastPaymentAt)
}

func TestUpdate_PaymentAfterDueAppliesPendingLateFee(t *testing.T) {
	cal := NewCalendar(testLoc)
	settle := func(t *testing.T, readFirst bool) *models.License {
		f := newFixture(t, day(2025, 4, 10))
		ctx := context.Background()
		id := f.createManual(t).License.ID
		f.clock.Set(day(2025, 4, 20))
		if readFirst {
			_, err := f.svc.GetByID(ctx, id)
			require.NoError(t, err)
		}

		res, err := f.svc.Update(ctx, id, ApplyPayment{Amount: floatPtr(100)})
		require.NoError(t, err)
		require.NotNil(t, res)
		if !readFirst {
			assert.True(t, res.Has(EffectLateFeeApplied))
		}
		assert.True(t, res.Has(EffectPeriodAdvanced))

		stored, err := f.repos.License.GetByID(ctx, id)
		require.NoError(t, err)
		return stored
	}

	direct := settle(t, false)
	require.Len(t, direct.ChargesHistory, 1)
	assert.Equal(t, "late_fee:2025-04-15", direct.ChargesHistory[0].PeriodKey)
	assert.Equal(t, 10.0, direct.ChargesHistory[0].Amount)
	assert.Equal(t, models.LicenseStatusPending, direct.Status)
	assert.Equal(t, 0.0, direct.OutstandingBalance)
	assert.Equal(t, "2025-05-15", cal.DateKey(*direct.NextPaymentDue))

	afterRead := settle(t, true)
	assert.Len(t, afterRead.ChargesHistory, len(direct.ChargesHistory), "ledger must not depend on an earlier read")
	assert.Equal(t, afterRead.OutstandingBalance, direct.OutstandingBalance)
	assert.Equal(t, cal.DateKey(*afterRead.NextPaymentDue), cal.DateKey(*direct.NextPaymentDue))
}

func TestUpdate_PartialPaymentKeepsDates(t *testing.T) {
	f := newFixture(t, time.Date(2025, 4, 11, 10, 0, 0, 0, testLoc))
	ctx := context.Background()
	created := f.createProrated(t)
	id := created.License.ID
	cal := f.svc.Calendar()

	res, err := f.svc.Update(ctx, id, ApplyPayment{Amount: floatPtr(30), TransactionID: "YP-001"})
	require.NoError(t, err)
	assert.False(t, res.Has(EffectPeriodAdvanced))
	assert.Equal(t, 36.67, res.License.OutstandingBalance)
	assert.Equal(t, 36.67, *res.License.ProratedAmountDue)
	assert.Equal(t, models.LicenseStatusPending, res.License.Status)
	assert.Equal(t, "2025-05-01", cal.DateKey(*res.License.NextPaymentDue))

	res, err = f.svc.Update(ctx, id, ApplyPayment{Amount: floatPtr(36.67), TransactionID: "YP-002"})
	require.NoError(t, err)
	assert.True(t, res.Has(EffectPeriodAdvanced))
	assert.Equal(t, 0.0, res.License.OutstandingBalance)
	assert.Equal(t, "2025-06-01", cal.DateKey(*res.License.NextPaymentDue))
	assert.Equal(t, "2025-05-31", cal.DateKey(*res.License.EndDate))
	assert.Len(t, res.License.PaymentHistory, 2)
}

func TestUpdate_DuplicateTransactionIsSkipped(t *testing.T) {
	f := newFixture(t, time.Date(2025, 4, 11, 10, 0, 0, 0, testLoc))
	ctx := context.Background()
	id := f.createProrated(t).License.ID

	_, err := f.svc.Update(ctx, id, ApplyPayment{Amount: floatPtr(30), TransactionID: "YP-001"})
	require.NoError(t, err)

	res, err := f.svc.Update(ctx, id, ApplyPayment{Amount: floatPtr(30), TransactionID: "YP-001"})
	require.NoError(t, err)
	assert.True(t, res.Has(EffectDuplicatePayment))
	assert.False(t, res.Has(EffectPaymentApplied))
	assert.Len(t, res.License.PaymentHistory, 1)
	assert.Equal(t, 36.67, res.License.OutstandingBalance)
}

func TestUpdate_SyncsEnrichedTransaction(t *testing.T) {
	syncer := &recordingSyncer{}
	f := newFixture(t, time.Date(2025, 4, 11, 10, 0, 0, 0, testLoc), WithSyncer(syncer))
	ctx := context.Background()
	created := f.createProrated(t)

	_, _, err := f.repos.Transaction.CreateIfNotExists(ctx, &models.Transaction{
		TransactionID: "YP-777",
		Amount:        30,
		Currency:      "PEN",
		Type:          "yape",
		Timestamp:     time.Date(2025, 4, 11, 9, 58, 0, 0, testLoc),
		ContactPhone:  "+51911222333",
		YapeCode:      "123456",
	})
	require.NoError(t, err)

	res, err := f.svc.Update(ctx, created.License.ID, ApplyPayment{Amount: floatPtr(30), Method: "yape", TransactionID: "YP-777"})
	require.NoError(t, err)
	assert.True(t, res.Has(EffectSyncScheduled))

	require.Len(t, syncer.txs, 1)
	tx := syncer.txs[0]
	assert.Equal(t, "YP-777", tx.TransactionID)
	assert.Equal(t, "ACME SAC", tx.ContactName, "missing contact falls back to the client")
	assert.Equal(t, "+51911222333", tx.ContactPhone)
	assert.Equal(t, "123456", tx.YapeCode)
	assert.Equal(t, created.License.ID, tx.LicenseID)
	assert.Equal(t, created.License.LicenseKey, tx.LicenseKey)

	// Payments without a transaction id are not forwarded.
	_, err = f.svc.Update(ctx, created.License.ID, ApplyPayment{Amount: floatPtr(5)})
	require.NoError(t, err)
	assert.Len(t, syncer.txs, 1)
}

func TestUpdate_ScheduleTransitions(t *testing.T) {
	f := newFixture(t, day(2025, 4, 10))
	ctx := context.Background()
	id := f.createManual(t).License.ID
	cal := f.svc.Calendar()

	f.clock.Set(day(2025, 4, 12))
	res, err := f.svc.Update(ctx, id, ChangeSchedule{Mode: models.ScheduleMonthlyFirst})
	require.NoError(t, err)
	assert.True(t, res.Has(EffectScheduleRecomputed))
	assert.Equal(t, "2025-05-01", cal.DateKey(*res.License.NextPaymentDue))
	assert.Equal(t, "2025-04-30", cal.DateKey(*res.License.EndDate))
	assert.Equal(t, 1, res.License.GracePeriodDays)

	end := day(2025, 9, 9)
	res, err = f.svc.Update(ctx, id, SetDates{EndDate: &end})
	require.NoError(t, err)
	assert.True(t, res.Has(EffectDatesOverridden))
	assert.Equal(t, "2025-04-30", cal.DateKey(*res.License.EndDate))

	res, err = f.svc.Update(ctx, id, ChangeSchedule{Mode: models.ScheduleManual}, SetDates{EndDate: &end})
	require.NoError(t, err)
	assert.Equal(t, "2025-09-09", cal.DateKey(*res.License.EndDate))
	assert.Equal(t, "2025-09-09", cal.DateKey(*res.License.NextPaymentDue))
}

func TestUpdate_BillingAndStatus(t *testing.T) {
	f := newFixture(t, day(2025, 4, 10))
	ctx := context.Background()
	id := f.createManual(t).License.ID

	res, err := f.svc.Update(ctx, id,
		UpdateBilling{Amount: floatPtr(300), LateFeePercentage: floatPtr(5)},
		UpdateDetails{ClientEmail: stringPtr("  Pagos@Lucha.PE ")},
	)
	require.NoError(t, err)
	assert.True(t, res.Has(EffectLateFeeRecomputed))
	assert.Equal(t, 15.0, res.License.LateFeeAmount)
	assert.Equal(t, "pagos@lucha.pe", res.License.ClientEmail)

	res, err = f.svc.Update(ctx, id, SetStatus{Status: models.LicenseStatusCancelled})
	require.NoError(t, err)
	assert.Equal(t, models.LicenseStatusCancelled, res.License.Status)

	// Cancelled licenses never accrue late fees.
	f.clock.Set(day(2025, 6, 1))
	res, err = f.svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, res.Effects)
	assert.Empty(t, res.License.ChargesHistory)

	res, err = f.svc.Update(ctx, id, AdjustBalance{OutstandingBalance: -20})
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.License.OutstandingBalance)
}

func TestUpdate_RejectsBadInput(t *testing.T) {
	f := newFixture(t, day(2025, 4, 10))
	ctx := context.Background()
	id := f.createManual(t).License.ID

	_, err := f.svc.Update(ctx, "not-a-uuid", SetStatus{Status: models.LicenseStatusPending})
	assert.ErrorIs(t, err, ErrInvalidID)

	_, err = f.svc.Update(ctx, id, SetStatus{Status: models.LicenseStatusPaid})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Update(ctx, id, ApplyPayment{Amount: floatPtr(-5)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Update(ctx, id, SetStatus{Status: "pending"}, SetStatus{Status: "overdue"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestMissingLicenseYieldsNil(t *testing.T) {
	f := newFixture(t, day(2025, 4, 10))
	ctx := context.Background()
	missing := uuid.New().String()

	res, err := f.svc.GetByID(ctx, missing)
	assert.NoError(t, err)
	assert.Nil(t, res)

	res, err = f.svc.Update(ctx, missing, ApplyPayment{})
	assert.NoError(t, err)
	assert.Nil(t, res)

	_, err = f.svc.GetByID(ctx, "1234")
	assert.ErrorIs(t, err, ErrInvalidID)
}

func TestGetByID_PersistsRepairs(t *testing.T) {
	f := newFixture(t, day(2025, 4, 10))
	ctx := context.Background()
	id := f.createManual(t).License.ID

	stored, err := f.repos.License.GetByID(ctx, id)
	require.NoError(t, err)
	stored.OutstandingBalance = -3
	stored.PaymentHistory = append(stored.PaymentHistory,
		models.LicensePayment{ID: "p1", TransactionID: "T-1", Amount: 3},
		models.LicensePayment{ID: "p2", TransactionID: "T-1", Amount: 3},
	)
	require.NoError(t, f.repos.License.Save(ctx, stored))

	res, err := f.svc.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, res.Has(EffectLedgerRepaired))
	assert.True(t, res.Has(EffectBalanceCorrected))

	stored, err = f.repos.License.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Len(t, stored.PaymentHistory, 1)
	assert.Equal(t, 0.0, stored.OutstandingBalance)
}

func TestPaymentIntentLifecycle(t *testing.T) {
	idx := &memoryCodeIndex{}
	f := newFixture(t, time.Date(2025, 4, 11, 10, 0, 0, 0, testLoc), WithPaymentCodeIndex(idx))
	ctx := context.Background()
	id := f.createProrated(t).License.ID

	intent, err := f.svc.CreatePaymentIntent(ctx, id, 15)
	require.NoError(t, err)
	require.NotNil(t, intent)
	assert.Len(t, intent.Code, DefaultPaymentCodeLength)
	assert.True(t, intent.Has(EffectPaymentIntent))
	assert.Equal(t, models.VerificationAwaiting, intent.License.PaymentVerificationState)
	assert.Equal(t, f.clock.Now().Add(15*time.Minute), intent.ExpiresAt)
	assert.Equal(t, id, idx.codes[intent.Code])

	res, err := f.svc.ResolvePaymentCode(ctx, " "+intent.Code[:3]+" "+intent.Code[3:]+" ")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, id, res.License.ID)

	confirmed, err := f.svc.ConfirmPayment(ctx, intent.Code, models.Transaction{
		TransactionID: "YP-900",
		Amount:        66.67,
		Currency:      "PEN",
		Type:          "yape",
	})
	require.NoError(t, err)
	require.NotNil(t, confirmed)
	assert.True(t, confirmed.Has(EffectPeriodAdvanced))
	assert.Equal(t, "", confirmed.License.CurrentPaymentCode)
	assert.Equal(t, models.VerificationVerified, confirmed.License.PaymentVerificationState)
	assert.Equal(t, "yape", confirmed.License.PaymentHistory[0].Method)
	assert.Empty(t, idx.codes, "settled codes leave the index")

	res, err = f.svc.ResolvePaymentCode(ctx, intent.Code)
	assert.NoError(t, err)
	assert.Nil(t, res)
}

func TestResolvePaymentCode_Expired(t *testing.T) {
	f := newFixture(t, time.Date(2025, 4, 11, 10, 0, 0, 0, testLoc))
	ctx := context.Background()
	id := f.createProrated(t).License.ID

	intent, err := f.svc.CreatePaymentIntent(ctx, id, 0)
	require.NoError(t, err)

	f.clock.Set(intent.ExpiresAt)
	_, err = f.svc.ResolvePaymentCode(ctx, intent.Code)
	assert.ErrorIs(t, err, ErrPaymentCodeExpired)
}

func stringPtr(v string) *string { return &v }

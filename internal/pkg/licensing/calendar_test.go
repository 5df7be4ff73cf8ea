package licensing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carlos-mc14/nexius-landing-sub000/app/models"
)

var testLoc = time.FixedZone("PET", -5*60*60)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, testLoc)
}

func ptr[T any](v T) *T {
	return &v
}

func TestComputeNextPaymentFromSchedule(t *testing.T) {
	cal := NewCalendar(testLoc)

	tests := []struct {
		name string
		mode string
		ref  time.Time
		want string
	}{
		{"monthly mid month", models.ScheduleMonthlyFirst, time.Date(2025, 3, 15, 18, 30, 0, 0, testLoc), "2025-04-01"},
		{"monthly on the first", models.ScheduleMonthlyFirst, day(2025, 3, 1), "2025-04-01"},
		{"monthly december rolls year", models.ScheduleMonthlyFirst, day(2025, 12, 31), "2026-01-01"},
		{"annual before jan 5", models.ScheduleAnnualJan5, day(2025, 1, 4), "2025-01-05"},
		{"annual on jan 5", models.ScheduleAnnualJan5, day(2025, 1, 5), "2026-01-05"},
		{"annual mid year", models.ScheduleAnnualJan5, day(2025, 7, 10), "2026-01-05"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			due := cal.ComputeNextPaymentFromSchedule(tt.mode, tt.ref)
			require.NotNil(t, due)
			assert.Equal(t, tt.want, cal.DateKey(*due))
			assert.Equal(t, 0, due.In(testLoc).Hour())
		})
	}

	assert.Nil(t, cal.ComputeNextPaymentFromSchedule(models.ScheduleManual, day(2025, 3, 15)))
}

func TestAnchorPeriodEndsDayBeforeDue(t *testing.T) {
	cal := NewCalendar(testLoc)

	p, ok := cal.AnchorPeriod(models.ScheduleMonthlyFirst, day(2024, 2, 10))
	require.True(t, ok)
	assert.Equal(t, "2024-03-01", cal.DateKey(p.NextPaymentDue))
	assert.Equal(t, "2024-02-29", cal.DateKey(p.EndDate))

	p, ok = cal.AnchorPeriod(models.ScheduleAnnualJan5, day(2025, 6, 1))
	require.True(t, ok)
	assert.Equal(t, "2026-01-04", cal.DateKey(p.EndDate))

	_, ok = cal.AnchorPeriod(models.ScheduleManual, day(2025, 6, 1))
	assert.False(t, ok)
}

func TestExtendPeriod(t *testing.T) {
	cal := NewCalendar(testLoc)

	tests := []struct {
		name    string
		license models.License
		wantEnd string
		wantDue string
	}{
		{
			name:    "manual monthly from end date",
			license: models.License{ScheduleMode: models.ScheduleManual, Frequency: models.FrequencyMonthly, StartDate: day(2025, 2, 15), EndDate: ptr(day(2025, 3, 14))},
			wantEnd: "2025-04-14",
			wantDue: "2025-04-14",
		},
		{
			name:    "manual monthly clamps short month",
			license: models.License{ScheduleMode: models.ScheduleManual, Frequency: models.FrequencyMonthly, StartDate: day(2025, 1, 1), EndDate: ptr(day(2025, 1, 31))},
			wantEnd: "2025-02-28",
			wantDue: "2025-02-28",
		},
		{
			name:    "manual annual",
			license: models.License{ScheduleMode: models.ScheduleManual, Frequency: models.FrequencyAnnual, StartDate: day(2024, 7, 1), EndDate: ptr(day(2025, 6, 30))},
			wantEnd: "2026-06-30",
			wantDue: "2026-06-30",
		},
		{
			name:    "manual without end uses start",
			license: models.License{ScheduleMode: models.ScheduleManual, Frequency: models.FrequencyMonthly, StartDate: day(2025, 3, 10)},
			wantEnd: "2025-04-09",
			wantDue: "2025-04-09",
		},
		{
			name:    "monthly first from due date",
			license: models.License{ScheduleMode: models.ScheduleMonthlyFirst, StartDate: day(2025, 10, 3), EndDate: ptr(day(2025, 10, 31)), NextPaymentDue: ptr(day(2025, 11, 1))},
			wantEnd: "2025-11-30",
			wantDue: "2025-12-01",
		},
		{
			name:    "annual jan5 from due date",
			license: models.License{ScheduleMode: models.ScheduleAnnualJan5, StartDate: day(2025, 3, 3), NextPaymentDue: ptr(day(2026, 1, 5))},
			wantEnd: "2027-01-04",
			wantDue: "2027-01-05",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := cal.ExtendPeriod(&tt.license)
			assert.Equal(t, tt.wantEnd, cal.DateKey(p.EndDate))
			assert.Equal(t, tt.wantDue, cal.DateKey(p.NextPaymentDue))
		})
	}
}

func TestCoverageEnd(t *testing.T) {
	cal := NewCalendar(testLoc)
	assert.Equal(t, "2025-04-09", cal.DateKey(cal.CoverageEnd(day(2025, 3, 10), models.FrequencyMonthly)))
	assert.Equal(t, "2026-03-09", cal.DateKey(cal.CoverageEnd(day(2025, 3, 10), models.FrequencyAnnual)))
}

func TestPeriodStart(t *testing.T) {
	cal := NewCalendar(testLoc)

	l := models.License{ScheduleMode: models.ScheduleMonthlyFirst, StartDate: day(2025, 4, 11), EndDate: ptr(day(2025, 4, 30))}
	assert.Equal(t, "2025-04-11", cal.DateKey(*cal.PeriodStart(&l)))

	l = models.License{ScheduleMode: models.ScheduleMonthlyFirst, StartDate: day(2025, 1, 11), EndDate: ptr(day(2025, 4, 30))}
	assert.Equal(t, "2025-04-01", cal.DateKey(*cal.PeriodStart(&l)))

	l = models.License{ScheduleMode: models.ScheduleManual, Frequency: models.FrequencyMonthly, StartDate: day(2025, 1, 16), EndDate: ptr(day(2025, 4, 15))}
	assert.Equal(t, "2025-03-16", cal.DateKey(*cal.PeriodStart(&l)))
}

func TestDaysInMonth(t *testing.T) {
	cal := NewCalendar(testLoc)
	assert.Equal(t, 29, cal.DaysInMonth(day(2024, 2, 10)))
	assert.Equal(t, 28, cal.DaysInMonth(day(2025, 2, 10)))
	assert.Equal(t, 30, cal.DaysInMonth(day(2025, 4, 1)))
	assert.Equal(t, 31, cal.DaysInMonth(day(2025, 12, 31)))
}

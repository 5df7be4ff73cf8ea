package licensing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateMonthlyFirstProration(t *testing.T) {
	cal := NewCalendar(testLoc)

	tests := []struct {
		name        string
		start       time.Time
		base        float64
		wantAmount  float64
		wantCharged int
		wantCycle   int
	}{
		{"eleventh of a 30 day month", time.Date(2025, 4, 11, 9, 15, 0, 0, testLoc), 100, 66.67, 20, 30},
		{"second of april", day(2025, 4, 2), 100, 96.67, 29, 30},
		{"last day of april", day(2025, 4, 30), 100, 3.33, 1, 30},
		{"leap february", day(2024, 2, 15), 290, 150, 15, 29},
		{"31 day month", day(2025, 1, 17), 310, 150, 15, 31},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := cal.CalculateMonthlyFirstProration(tt.start, tt.base)
			require.NotNil(t, p)
			assert.Equal(t, tt.wantAmount, p.Amount)
			assert.Equal(t, tt.wantCharged, p.DaysCharged)
			assert.Equal(t, tt.wantCycle, p.DaysInCycle)
		})
	}
}

func TestCalculateMonthlyFirstProration_MatchesFormulaEveryDay(t *testing.T) {
	cal := NewCalendar(testLoc)
	for d := 2; d <= 30; d++ {
		p := cal.CalculateMonthlyFirstProration(day(2025, 4, d), 100)
		require.NotNil(t, p, "day %d", d)
		want := math.Round(100*float64(30-d+1)/30*100) / 100
		assert.InDelta(t, want, p.Amount, 0.001, "day %d", d)
		assert.Equal(t, 30-d+1, p.DaysCharged)
	}
}

func TestCalculateMonthlyFirstProration_NoProration(t *testing.T) {
	cal := NewCalendar(testLoc)

	assert.Nil(t, cal.CalculateMonthlyFirstProration(day(2025, 4, 1), 100), "starting on the 1st")
	assert.Nil(t, cal.CalculateMonthlyFirstProration(day(2025, 4, 11), 0), "zero amount")
	assert.Nil(t, cal.CalculateMonthlyFirstProration(day(2025, 4, 11), math.NaN()), "nan amount")
}

func TestCalculateMonthlyFirstProration_UsesBillingZone(t *testing.T) {
	cal := NewCalendar(testLoc)

	// 02:00 UTC on the 1st is still the 31st of the previous month in the
	// billing zone.
	start := time.Date(2025, 4, 1, 2, 0, 0, 0, time.UTC)
	p := cal.CalculateMonthlyFirstProration(start, 310)
	require.NotNil(t, p)
	assert.Equal(t, 1, p.DaysCharged)
	assert.Equal(t, 31, p.DaysInCycle)
	assert.Equal(t, 10.0, p.Amount)
}

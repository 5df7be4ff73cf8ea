package licensing

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// Proration is the reduced first-period charge for a mid-month start.
type Proration struct {
	Amount      float64 `json:"amount"`
	DaysCharged int     `json:"daysCharged"`
	DaysInCycle int     `json:"daysInCycle"`
}

// CalculateMonthlyFirstProration charges the days from start through the end
// of its month, start day included. Starting on the 1st needs no proration.
func (c Calendar) CalculateMonthlyFirstProration(start time.Time, baseAmount float64) *Proration {
	if math.IsNaN(baseAmount) || math.IsInf(baseAmount, 0) {
		return nil
	}
	day := start.In(c.loc).Day()
	if day <= 1 {
		return nil
	}
	daysInCycle := c.DaysInMonth(start)
	daysCharged := daysInCycle - day + 1
	if daysInCycle <= 0 || daysCharged <= 0 {
		return nil
	}

	amount := decimal.NewFromFloat(baseAmount).
		Mul(decimal.NewFromInt(int64(daysCharged))).
		Div(decimal.NewFromInt(int64(daysInCycle))).
		Round(2).
		InexactFloat64()
	if amount <= 0 {
		return nil
	}

	return &Proration{Amount: amount, DaysCharged: daysCharged, DaysInCycle: daysInCycle}
}

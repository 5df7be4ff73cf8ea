package licensing

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// settlementTolerance is the remaining balance treated as fully paid.
const settlementTolerance = 0.01

// RoundMoney rounds to cents. Non-finite input yields 0.
func RoundMoney(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FloorMoney rounds to cents and clamps at zero.
func FloorMoney(v float64) float64 {
	r := RoundMoney(v)
	if r < 0 {
		return 0
	}
	return r
}

// AddMoney sums amounts in decimal space and rounds the result.
func AddMoney(values ...float64) float64 {
	sum := decimal.Zero
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	return sum.Round(2).InexactFloat64()
}

// FormatMoney renders v with exactly two decimals.
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(RoundMoney(v)).StringFixed(2)
}

// CoerceMoney accepts numbers and numeric strings such as "S/ 1,250.50" and
// returns the rounded amount. ok is false when v carries no usable number.
func CoerceMoney(v any) (float64, bool) {
	switch n := v.(type) {
	case nil:
		return 0, false
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return RoundMoney(n), true
	case float32:
		return CoerceMoney(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		return CoerceMoney(n.String())
	case string:
		s := strings.TrimSpace(n)
		s = strings.TrimPrefix(s, "S/")
		s = strings.TrimPrefix(s, "s/")
		s = strings.TrimPrefix(s, "PEN")
		s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
		if s == "" {
			return 0, false
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return 0, false
		}
		return d.Round(2).InexactFloat64(), true
	default:
		return 0, false
	}
}

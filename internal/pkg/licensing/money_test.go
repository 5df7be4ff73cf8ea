package licensing

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"already cents", 12.34, 12.34},
		{"rounds up", 66.666666, 66.67},
		{"rounds down", 33.333333, 33.33},
		{"half away from zero", 1.005, 1.01},
		{"nan", math.NaN(), 0},
		{"inf", math.Inf(1), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundMoney(tt.in))
		})
	}
}

func TestFloorMoney(t *testing.T) {
	assert.Equal(t, 0.0, FloorMoney(-3))
	assert.Equal(t, 0.0, FloorMoney(-0.001))
	assert.Equal(t, 4.5, FloorMoney(4.499999))
}

func TestAddMoney(t *testing.T) {
	assert.Equal(t, 0.3, AddMoney(0.1, 0.2))
	assert.Equal(t, 56.67, AddMoney(66.67, -10))
	assert.Equal(t, 5.0, AddMoney(5, math.NaN()))
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "50.00", FormatMoney(50))
	assert.Equal(t, "0.10", FormatMoney(0.1))
	assert.Equal(t, "66.67", FormatMoney(66.666))
}

func TestCoerceMoney(t *testing.T) {
	tests := []struct {
		name   string
		in     any
		want   float64
		wantOK bool
	}{
		{"float", 12.345, 12.35, true},
		{"int", 7, 7, true},
		{"json number", json.Number("12.5"), 12.5, true},
		{"plain string", "25", 25, true},
		{"soles string", "S/ 1,250.50", 1250.5, true},
		{"garbage", "abc", 0, false},
		{"empty", "  ", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := CoerceMoney(tt.in)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

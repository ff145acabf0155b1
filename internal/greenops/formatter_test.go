package greenops

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{n: 0, want: "0"},
		{n: 123, want: "123"},
		{n: 1234, want: "1,234"},
		{n: 18248, want: "18,248"},
		{n: -1234, want: "-1,234"},
		{n: 1234567890, want: "1,234,567,890"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatNumber(tt.n))
		})
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		name      string
		f         float64
		precision int
		want      string
	}{
		{name: "two decimals", f: 1234.567, precision: 2, want: "1,234.57"},
		{name: "small", f: 7.05, precision: 2, want: "7.05"},
		{name: "zero precision rounds", f: 1499.5, precision: 0, want: "1,500"},
		{name: "negative", f: -9876.5, precision: 1, want: "-9,876.5"},
		{name: "negative fraction", f: -0.25, precision: 2, want: "-0.25"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatFloat(tt.f, tt.precision))
		})
	}
}

func TestFormatLarge(t *testing.T) {
	assert.Equal(t, "999,999", FormatLarge(999_999))
	assert.Equal(t, "~1.5 million", FormatLarge(1_500_000))
	assert.Equal(t, "~2.0 billion", FormatLarge(2_000_000_000))
}

func TestNormalizeToKg(t *testing.T) {
	tests := []struct {
		name    string
		value   float64
		unit    string
		want    float64
		wantErr error
	}{
		{name: "kg identity", value: 3.5, unit: "kg", want: 3.5},
		{name: "empty unit is kg", value: 2, unit: "", want: 2},
		{name: "grams", value: 500, unit: "g", want: 0.5},
		{name: "tonnes", value: 0.2, unit: "tonne", want: 200},
		{name: "pounds", value: 10, unit: "LB", want: 4.53592},
		{name: "co2e suffix", value: 1, unit: "tCO2e", want: 1000},
		{name: "negative", value: -1, unit: "kg", wantErr: ErrNegativeValue},
		{name: "bad unit", value: 1, unit: "stone", wantErr: ErrInvalidUnit},
		{name: "nan", value: math.NaN(), unit: "kg", wantErr: ErrCalculationOverflow},
		{name: "overflow", value: math.MaxFloat64, unit: "t", wantErr: ErrCalculationOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeToKg(tt.value, tt.unit)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}

	assert.True(t, IsRecognizedUnit("g"))
	assert.False(t, IsRecognizedUnit("oz"))
}

package fees

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBaseFee_Tiers(t *testing.T) {
	cases := []struct {
		distance float64
		want     float64
	}{
		{0.01, 2.0},
		{1, 2.0},
		{4.99, 2.0},
		{5.0, 3.0},
		{6.5, 3.0},
		{6.999, 3.0},
		{7.0, 5.0},
		{42, 5.0},
		{100, 5.0},
	}
	for _, tc := range cases {
		got, err := BaseFee(tc.distance)
		require.NoError(t, err, "distance %v", tc.distance)
		assert.Equal(t, tc.want, got, "distance %v", tc.distance)
	}
}

func TestBaseFee_RejectsOutOfRange(t *testing.T) {
	for _, distance := range []float64{0, -1, 100.01, math.NaN(), math.Inf(1)} {
		_, err := BaseFee(distance)
		assert.ErrorIs(t, err, ErrInvalidDistance, "distance %v", distance)
	}
}

func TestSplit_SharesAddUpToBase(t *testing.T) {
	for _, base := range []float64{2.0, 3.0, 5.0} {
		for _, bonus := range []bool{false, true} {
			company, courier := Split(base, bonus)
			assert.InDelta(t, base, company+courier, 1e-6, "base=%v bonus=%v", base, bonus)
		}
	}
}

func TestSplit_Percentages(t *testing.T) {
	company, courier := Split(5.0, false)
	assert.InDelta(t, 2.0, company, 1e-9)
	assert.InDelta(t, 3.0, courier, 1e-9)

	company, courier = Split(5.0, true)
	assert.InDelta(t, 1.75, company, 1e-9)
	assert.InDelta(t, 3.25, courier, 1e-9)

	company, courier = Split(3.0, true)
	assert.InDelta(t, 1.05, company, 1e-9)
	assert.InDelta(t, 1.95, courier, 1e-9)
}

func TestNewFeeCalculation(t *testing.T) {
	now := time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	calc, err := NewFeeCalculation(3, 2.5, true, now)
	require.NoError(t, err)
	assert.Equal(t, 2.0, calc.BaseFee)
	assert.InDelta(t, 0.7, calc.CompanyShare, 1e-9)
	assert.InDelta(t, 1.3, calc.CourierShare, 1e-9)
	assert.True(t, calc.HighVolumeBonus)
	assert.Equal(t, now, calc.CreatedAt)

	_, err = NewFeeCalculation(0, 2.5, false, now)
	assert.ErrorIs(t, err, ErrInvalidID)
	_, err = NewFeeCalculation(3, 0, false, now)
	assert.ErrorIs(t, err, ErrInvalidDistance)
}

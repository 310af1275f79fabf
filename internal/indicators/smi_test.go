package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockIndicators/internal/ports"
)

func TestSMI_Compute(t *testing.T) {
	points := ohlc(
		[4]float64{9, 10, 8, 9},
		[4]float64{11, 12, 8, 11},
		[4]float64{10, 12, 10, 10},
		[4]float64{13, 13, 11, 13},
	)

	tests := []struct {
		name       string
		params     SMIConfig
		wantValue  []float64
		wantSignal []float64
	}{
		{
			name:       "unit smoothing",
			params:     SMIConfig{KPeriod: 2, DPeriod: 1, EMAPeriod: 1},
			wantValue:  []float64{nan, 50, 0, 100},
			wantSignal: []float64{nan, 50, 0, 100},
		},
		{
			name:       "double ema smoothing",
			params:     SMIConfig{KPeriod: 2, DPeriod: 3, EMAPeriod: 2},
			wantValue:  []float64{nan, 50, 37.5, 46.666667},
			wantSignal: []float64{nan, nan, 43.75, 42.083333},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compute(tt.params, points)
			require.NoError(t, err)
			assertSeries(t, tt.wantValue, values(out.Points))
			assertSeries(t, tt.wantSignal, signals(out.Points))
		})
	}
}

func TestSMI_FlatRangeIsAbsent(t *testing.T) {
	out, err := Compute(DefaultSMIConfig(), closes(3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3, 3))
	require.NoError(t, err)
	for i, p := range out.Points {
		assert.False(t, p.Value.Valid, "index %d", i)
		assert.False(t, p.Signal.Valid, "index %d", i)
	}
}

func TestSMI_ShorterThanKPeriod(t *testing.T) {
	out, err := Compute(DefaultSMIConfig(), closes(1, 2, 3))
	require.NoError(t, err)
	require.Len(t, out.Points, 3)
	for _, p := range out.Points {
		assert.False(t, p.Value.Valid)
	}
}

func TestSMI_Validate(t *testing.T) {
	assert.NoError(t, DefaultSMIConfig().Validate())
	assert.ErrorIs(t, SMIConfig{KPeriod: 0, DPeriod: 3, EMAPeriod: 3}.Validate(), ports.ErrInvalidPeriod)
	assert.ErrorIs(t, SMIConfig{KPeriod: 10, DPeriod: -1, EMAPeriod: 3}.Validate(), ports.ErrInvalidPeriod)
	assert.ErrorIs(t, SMIConfig{KPeriod: 10, DPeriod: 3, EMAPeriod: 0}.Validate(), ports.ErrInvalidPeriod)
	assert.Equal(t, "SMI_10_3_3", DefaultSMIConfig().Name())
}

package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockIndicators/internal/ports"
)

type unsupportedParams struct{}

func (unsupportedParams) Kind() Kind              { return "volume_profile" }
func (unsupportedParams) Validate() error         { return nil }
func (unsupportedParams) RequiredDataPoints() int { return 0 }
func (unsupportedParams) Name() string            { return "VP" }

func TestCompute_Errors(t *testing.T) {
	_, err := Compute(nil, closes(1, 2, 3))
	assert.ErrorIs(t, err, ports.ErrConfigurationError)

	_, err = Compute(unsupportedParams{}, closes(1, 2, 3))
	assert.ErrorIs(t, err, ports.ErrUnknownIndicator)

	_, err = Compute(CCIConfig{IndicatorConfig{Period: 0}}, closes(1, 2, 3))
	assert.ErrorIs(t, err, ports.ErrInvalidPeriod)
}

func TestCompute_DoesNotModifyInput(t *testing.T) {
	points := closes(1, 2, 3, 4, 5)
	before := make([]float64, len(points))
	for i, p := range points {
		before[i] = p.Close.Value
	}

	for _, kind := range Kinds {
		params, err := DefaultParams(kind)
		require.NoError(t, err)
		_, err = Compute(params, points)
		require.NoError(t, err)
	}

	for i, p := range points {
		assert.Equal(t, before[i], p.Close.Value)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	points := closes(5, 7, 6, 9, 8, 11, 10, 12, 14, 13, 15, 16, 14, 18, 17, 19, 21, 20, 22, 24, 23)
	for _, kind := range Kinds {
		t.Run(string(kind), func(t *testing.T) {
			params, err := DefaultParams(kind)
			require.NoError(t, err)
			first, err := Compute(params, points)
			require.NoError(t, err)
			second, err := Compute(params, points)
			require.NoError(t, err)
			assert.Equal(t, first, second)
			assert.Equal(t, len(points), first.Len())
		})
	}
}

func TestMovingAverage(t *testing.T) {
	tests := []struct {
		name   string
		params MovingAverageConfig
		want   []float64
	}{
		{
			name:   "sma",
			params: MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 2}, Type: SimpleMovingAverage, Field: FieldClose},
			want:   []float64{nan, 1.5, 2.5, 3.5},
		},
		{
			name:   "ema",
			params: MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 3}, Type: ExponentialMovingAverage, Field: FieldClose},
			want:   []float64{1, 1.5, 2.25, 3.125},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compute(tt.params, closes(1, 2, 3, 4))
			require.NoError(t, err)
			assertSeries(t, tt.want, values(out.Points))
		})
	}

	bad := DefaultMovingAverageConfig()
	bad.Type = "WMA"
	assert.ErrorIs(t, bad.Validate(), ports.ErrConfigurationError)
	assert.Equal(t, "SMA_20", DefaultMovingAverageConfig().Name())
}

func TestParseKind(t *testing.T) {
	k, err := ParseKind(" RSI ")
	require.NoError(t, err)
	assert.Equal(t, KindRSI, k)

	_, err = ParseKind("macd")
	assert.ErrorIs(t, err, ports.ErrUnknownIndicator)

	_, err = DefaultParams("macd")
	assert.ErrorIs(t, err, ports.ErrUnknownIndicator)
}

package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockIndicators/internal/domain"
)

func TestWilliamsR_Compute(t *testing.T) {
	tests := []struct {
		name   string
		points []domain.PricePoint
		period int
		want   []float64
	}{
		{
			// The window at index 2 still reaches back to index 0.
			name: "window spans period plus one points",
			points: ohlc(
				[4]float64{9, 10, 6, 9},
				[4]float64{11, 12, 9, 11},
				[4]float64{8, 11, 7, 8},
				[4]float64{12, 13, 10, 12},
			),
			period: 2,
			want:   []float64{-25, -16.666667, -66.666667, -16.666667},
		},
		{
			name:   "flat range is absent",
			points: closes(5, 5, 5),
			period: 14,
			want:   []float64{nan, nan, nan},
		},
		{
			name:   "close at the high",
			points: ohlc([4]float64{1, 10, 5, 10}),
			period: 14,
			want:   []float64{0},
		},
		{
			name:   "close at the low",
			points: ohlc([4]float64{1, 10, 5, 5}),
			period: 14,
			want:   []float64{-100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compute(WilliamsRConfig{IndicatorConfig{Period: tt.period}}, tt.points)
			require.NoError(t, err)
			assertSeries(t, tt.want, values(out.Points))
		})
	}
}

func TestWilliamsR_MissingClose(t *testing.T) {
	points := ohlc(
		[4]float64{9, 10, 6, 9},
		[4]float64{11, 12, 9, 11},
	)
	points[1].Close = domain.None()

	out, err := Compute(DefaultWilliamsRConfig(), points)
	require.NoError(t, err)
	assert.True(t, out.Points[0].Value.Valid)
	assert.False(t, out.Points[1].Value.Valid)
}

func TestWilliamsR_Range(t *testing.T) {
	rows := make([][4]float64, 50)
	for i := range rows {
		base := float64(100 + (i*7)%13)
		rows[i] = [4]float64{base, base + 3, base - 2, base + float64(i%4) - 1}
	}

	out, err := Compute(DefaultWilliamsRConfig(), ohlc(rows...))
	require.NoError(t, err)
	for i, p := range out.Points {
		require.True(t, p.Value.Valid, "index %d", i)
		assert.GreaterOrEqual(t, p.Value.Value, -100.0)
		assert.LessOrEqual(t, p.Value.Value, 0.0)
	}
}

package indicators

import (
	"math"
	"testing"

	"github.com/markcheno/go-talib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockIndicators/internal/domain"
)

func TestCCI_Compute(t *testing.T) {
	tests := []struct {
		name   string
		points []domain.PricePoint
		period int
		want   []float64
	}{
		{
			name:   "linear typical price",
			points: closes(1, 2, 3, 4),
			period: 3,
			want:   []float64{nan, nan, 100, 100},
		},
		{
			name:   "zero deviation is absent",
			points: closes(7, 7, 7, 7),
			period: 3,
			want:   []float64{nan, nan, nan, nan},
		},
		{
			name:   "empty input",
			points: nil,
			period: 20,
			want:   []float64{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compute(CCIConfig{IndicatorConfig{Period: tt.period}}, tt.points)
			require.NoError(t, err)
			assertSeries(t, tt.want, values(out.Points))
		})
	}
}

func TestCCI_FlatWindowWithInexactPrices(t *testing.T) {
	flat := make([]float64, 20)
	for i := range flat {
		flat[i] = 0.1
	}

	tests := []struct {
		name   string
		prices []float64
	}{
		{"only flat prices", flat},
		{"flat run after moving prices", append([]float64{1.3, 7.7, 0.9, 11.1, 3.3}, flat...)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Compute(CCIConfig{IndicatorConfig{Period: 20}}, closes(tt.prices...))
			require.NoError(t, err)
			last := out.Points[len(out.Points)-1]
			assert.False(t, last.Value.Valid, "flat window must stay absent, got %v", last.Value)
		})
	}
}

func TestCCI_MatchesTalib(t *testing.T) {
	const n, period = 80, 14
	high := make([]float64, n)
	low := make([]float64, n)
	closePrices := make([]float64, n)
	rows := make([][4]float64, n)
	for i := 0; i < n; i++ {
		mid := 100 + 8*math.Sin(float64(i)/5) + float64(i)*0.1
		high[i] = mid + 1.5 + math.Abs(math.Cos(float64(i)))
		low[i] = mid - 1.2
		closePrices[i] = mid + 0.5*math.Sin(float64(i))
		rows[i] = [4]float64{mid, high[i], low[i], closePrices[i]}
	}

	out, err := Compute(CCIConfig{IndicatorConfig{Period: period}}, ohlc(rows...))
	require.NoError(t, err)
	want := talib.Cci(high, low, closePrices, period)

	for i := period - 1; i < n; i++ {
		require.True(t, out.Points[i].Value.Valid, "index %d", i)
		assert.InDelta(t, want[i], out.Points[i].Value.Value, 1e-6, "index %d", i)
	}
}

func TestCCI_GapInWindow(t *testing.T) {
	points := closes(1, 2, 3, 4, 5, 6)
	points[2].High = domain.None()

	out, err := Compute(CCIConfig{IndicatorConfig{Period: 2}}, points)
	require.NoError(t, err)
	assertSeries(t, []float64{nan, 66.666667, nan, nan, 66.666667, 66.666667}, values(out.Points))
}

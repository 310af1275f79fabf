package indicators

import (
	"math"

	"stockIndicators/internal/domain"
)

// HeikinAshiConfig has no parameters; the transform is a fold over the whole
// series.
type HeikinAshiConfig struct{}

func (HeikinAshiConfig) Kind() Kind { return KindHeikinAshi }

func (HeikinAshiConfig) Name() string { return "HeikinAshi" }

func (HeikinAshiConfig) RequiredDataPoints() int { return 1 }

func (HeikinAshiConfig) Validate() error { return nil }

// computeHeikinAshi folds the candles left to right. The first complete
// candle's open and close seed the chain. Candles missing any OHLC component
// come out absent and leave the chain where it was. Volume passes through.
func computeHeikinAshi(points []domain.PricePoint) []domain.PricePoint {
	out := make([]domain.PricePoint, len(points))
	var prevOpen, prevClose float64
	seeded := false
	for i, p := range points {
		out[i].Time = p.Time
		out[i].Volume = p.Volume
		if !p.Open.Valid || !p.High.Valid || !p.Low.Valid || !p.Close.Valid {
			continue
		}
		if !seeded {
			prevOpen, prevClose = p.Open.Value, p.Close.Value
			seeded = true
		}

		haClose := (p.Open.Value + p.Close.Value + p.High.Value + p.Low.Value) / 4
		haOpen := (prevOpen + prevClose) / 2
		out[i].Open = domain.Some(haOpen)
		out[i].Close = domain.Some(haClose)
		out[i].High = domain.Some(math.Max(p.High.Value, math.Max(haOpen, haClose)))
		out[i].Low = domain.Some(math.Min(p.Low.Value, math.Min(haOpen, haClose)))

		prevOpen, prevClose = haOpen, haClose
	}
	return out
}

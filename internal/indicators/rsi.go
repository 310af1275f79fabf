package indicators

import (
	"fmt"

	"stockIndicators/internal/domain"
)

// RSIConfig holds configuration for the RSI indicator
type RSIConfig struct {
	IndicatorConfig
	SMAPeriod int // period of the signal line
	Field     PriceField
}

// DefaultRSIConfig returns RSI(14) of close with a 3 period signal line.
func DefaultRSIConfig() RSIConfig {
	return RSIConfig{
		IndicatorConfig: IndicatorConfig{Period: 14},
		SMAPeriod:       3,
		Field:           FieldClose,
	}
}

func (c RSIConfig) Kind() Kind { return KindRSI }

func (c RSIConfig) Name() string { return nameWithPeriods("RSI", c.Period) }

// RequiredDataPoints is one more than the period: the first value needs
// Period price changes.
func (c RSIConfig) RequiredDataPoints() int { return c.Period + 1 }

func (c RSIConfig) Validate() error {
	if err := validatePeriod("RSI period", c.Period); err != nil {
		return err
	}
	if err := validatePeriod("RSI SMA period", c.SMAPeriod); err != nil {
		return err
	}
	return c.Field.Validate()
}

// computeRSI uses Wilder's method: the first average gain/loss is the simple
// mean of the first Period changes, later ones are smoothed with weight
// 1/Period. Absent prices are skipped; the change is taken against the last
// defined price.
func computeRSI(c RSIConfig, points []domain.PricePoint) ([]domain.DerivedPoint, error) {
	src, err := Prices(points, c.Field)
	if err != nil {
		return nil, err
	}

	period := float64(c.Period)
	rsi := make([]domain.Float, len(points))
	var avgGain, avgLoss, prev float64
	n := 0 // ordinal of the current defined price
	for i, v := range src {
		if !v.Valid {
			continue
		}
		if n == 0 {
			prev = v.Value
			n++
			continue
		}

		change := v.Value - prev
		prev = v.Value
		gain := max(change, 0)
		loss := max(-change, 0)

		if n <= c.Period {
			avgGain += gain / period
			avgLoss += loss / period
		} else {
			avgGain = (avgGain*(period-1) + gain) / period
			avgLoss = (avgLoss*(period-1) + loss) / period
		}
		if n >= c.Period {
			rsi[i] = domain.Some(relativeStrengthIndex(avgGain, avgLoss))
		}
		n++
	}

	signal, err := SMA(rsi, c.SMAPeriod)
	if err != nil {
		return nil, fmt.Errorf("RSI signal line: %w", err)
	}

	out := newDerived(points)
	for i := range out {
		out[i].Value = rsi[i]
		out[i].Signal = signal[i]
	}
	return out, nil
}

// relativeStrengthIndex maps average gain/loss to [0, 100]. A zero average
// loss means an infinite ratio (100) unless the average gain is zero too, in
// which case the ratio is undefined and the result is 0.
func relativeStrengthIndex(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			return 0
		}
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

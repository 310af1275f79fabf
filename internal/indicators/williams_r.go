package indicators

import (
	"math"

	"stockIndicators/internal/domain"
)

// WilliamsRConfig holds configuration for Williams %R. The value is always
// measured on the close.
type WilliamsRConfig struct {
	IndicatorConfig
}

// DefaultWilliamsRConfig returns Williams %R(14).
func DefaultWilliamsRConfig() WilliamsRConfig {
	return WilliamsRConfig{IndicatorConfig: IndicatorConfig{Period: 14}}
}

func (c WilliamsRConfig) Kind() Kind { return KindWilliamsR }

func (c WilliamsRConfig) Name() string { return nameWithPeriods("WilliamsR", c.Period) }

// RequiredDataPoints is 1: values are produced from the first point on, over
// a window that grows until it holds Period+1 points.
func (c WilliamsRConfig) RequiredDataPoints() int { return 1 }

func (c WilliamsRConfig) Validate() error {
	return validatePeriod("Williams %R period", c.Period)
}

// computeWilliamsR scans the window [max(0, i-Period), i], which holds up to
// Period+1 points. Flat ranges and points with missing inputs stay absent.
func computeWilliamsR(c WilliamsRConfig, points []domain.PricePoint) []domain.DerivedPoint {
	out := newDerived(points)
	for i, p := range points {
		if !p.Close.Valid {
			continue
		}
		highest, lowest := math.Inf(-1), math.Inf(1)
		for j := max(0, i-c.Period); j <= i; j++ {
			if h := points[j].High; h.Valid && h.Value > highest {
				highest = h.Value
			}
			if l := points[j].Low; l.Valid && l.Value < lowest {
				lowest = l.Value
			}
		}
		if math.IsInf(highest, 0) || math.IsInf(lowest, 0) || highest == lowest {
			continue
		}
		out[i].Value = domain.Some(-100 * (highest - p.Close.Value) / (highest - lowest))
	}
	return out
}

package indicators

import (
	"math"

	"stockIndicators/internal/domain"
)

const cciConstant = 0.015

// CCIConfig holds configuration for the Commodity Channel Index.
// The input is always the typical price (H+L+C)/3.
type CCIConfig struct {
	IndicatorConfig
}

// DefaultCCIConfig returns CCI(20).
func DefaultCCIConfig() CCIConfig {
	return CCIConfig{IndicatorConfig: IndicatorConfig{Period: 20}}
}

func (c CCIConfig) Kind() Kind { return KindCCI }

func (c CCIConfig) Name() string { return nameWithPeriods("CCI", c.Period) }

func (c CCIConfig) Validate() error {
	return validatePeriod("CCI period", c.Period)
}

// computeCCI divides the distance of the typical price from its SMA by the
// mean absolute deviation around that SMA. Points whose window holds equal
// typical prices have zero deviation and stay absent, even when the SMA's
// running sum leaves a rounding residue.
func computeCCI(c CCIConfig, points []domain.PricePoint) ([]domain.DerivedPoint, error) {
	tp, err := Prices(points, FieldHLC3)
	if err != nil {
		return nil, err
	}
	ma, err := SMA(tp, c.Period)
	if err != nil {
		return nil, err
	}

	out := newDerived(points)
	for i := c.Period - 1; i < len(points); i++ {
		if !ma[i].Valid {
			continue
		}
		// A defined SMA implies every typical price in the window is defined.
		deviation := 0.0
		lo, hi := tp[i].Value, tp[i].Value
		for j := i - c.Period + 1; j <= i; j++ {
			deviation += math.Abs(tp[j].Value - ma[i].Value)
			lo = math.Min(lo, tp[j].Value)
			hi = math.Max(hi, tp[j].Value)
		}
		deviation /= float64(c.Period)
		if lo == hi || deviation == 0 {
			continue
		}
		out[i].Value = domain.Some((tp[i].Value - ma[i].Value) / (cciConstant * deviation))
	}
	return out, nil
}

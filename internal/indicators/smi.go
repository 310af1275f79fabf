package indicators

import (
	"fmt"
	"math"

	"stockIndicators/internal/domain"
)

// SMIConfig holds configuration for the Stochastic Momentum Index.
type SMIConfig struct {
	KPeriod   int // rolling high/low window
	DPeriod   int // double EMA smoothing period
	EMAPeriod int // signal line period
}

// DefaultSMIConfig returns SMI(10, 3, 3).
func DefaultSMIConfig() SMIConfig {
	return SMIConfig{KPeriod: 10, DPeriod: 3, EMAPeriod: 3}
}

func (c SMIConfig) Kind() Kind { return KindSMI }

func (c SMIConfig) Name() string {
	return nameWithPeriods("SMI", c.KPeriod, c.DPeriod, c.EMAPeriod)
}

func (c SMIConfig) RequiredDataPoints() int { return c.KPeriod }

func (c SMIConfig) Validate() error {
	if err := validatePeriod("SMI k period", c.KPeriod); err != nil {
		return err
	}
	if err := validatePeriod("SMI d period", c.DPeriod); err != nil {
		return err
	}
	return validatePeriod("SMI ema period", c.EMAPeriod)
}

// computeSMI measures the close relative to the midpoint of the KPeriod
// high/low range. Both the distance and the range are smoothed by an EMA of
// an EMA before taking their ratio.
func computeSMI(c SMIConfig, points []domain.PricePoint) ([]domain.DerivedPoint, error) {
	hhh := make([]domain.Float, len(points))
	dhl := make([]domain.Float, len(points))
	for i := c.KPeriod - 1; i < len(points); i++ {
		if !points[i].Close.Valid {
			continue
		}
		hp, lp, ok := rollingRange(points[i-c.KPeriod+1 : i+1])
		if !ok {
			continue
		}
		hhh[i] = domain.Some(points[i].Close.Value - (hp+lp)/2)
		dhl[i] = domain.Some(hp - lp)
	}

	hhhSmoothed, err := doubleEMA(hhh, c.DPeriod)
	if err != nil {
		return nil, err
	}
	dhlSmoothed, err := doubleEMA(dhl, c.DPeriod)
	if err != nil {
		return nil, err
	}

	smi := make([]domain.Float, len(points))
	for i := range smi {
		num, den := hhhSmoothed[i], dhlSmoothed[i]
		if !num.Valid || !den.Valid || den.Value == 0 {
			continue
		}
		smi[i] = domain.Some(num.Value / den.Value * 200)
	}

	signal, err := SMA(smi, c.EMAPeriod)
	if err != nil {
		return nil, fmt.Errorf("SMI signal line: %w", err)
	}

	out := newDerived(points)
	for i := range out {
		out[i].Value = smi[i]
		out[i].Signal = signal[i]
	}
	return out, nil
}

// rollingRange returns the highest high and lowest low of window. ok is false
// if any high or low is missing.
func rollingRange(window []domain.PricePoint) (highest, lowest float64, ok bool) {
	highest, lowest = math.Inf(-1), math.Inf(1)
	for _, p := range window {
		if !p.High.Valid || !p.Low.Valid {
			return 0, 0, false
		}
		highest = math.Max(highest, p.High.Value)
		lowest = math.Min(lowest, p.Low.Value)
	}
	return highest, lowest, len(window) > 0
}

func doubleEMA(values []domain.Float, period int) ([]domain.Float, error) {
	first, err := EMA(values, period)
	if err != nil {
		return nil, err
	}
	return EMA(first, period)
}

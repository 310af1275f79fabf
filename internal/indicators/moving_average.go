package indicators

import (
	"fmt"

	"stockIndicators/internal/domain"
	"stockIndicators/internal/ports"
)

// MovingAverageType defines the type of moving average
type MovingAverageType string

const (
	// SimpleMovingAverage represents a simple moving average
	SimpleMovingAverage MovingAverageType = "SMA"
	// ExponentialMovingAverage represents an exponential moving average
	ExponentialMovingAverage MovingAverageType = "EMA"
)

// MovingAverageConfig holds configuration for moving average indicators
type MovingAverageConfig struct {
	IndicatorConfig
	Type  MovingAverageType
	Field PriceField
}

// DefaultMovingAverageConfig returns a 20 period SMA of close.
func DefaultMovingAverageConfig() MovingAverageConfig {
	return MovingAverageConfig{
		IndicatorConfig: IndicatorConfig{Period: 20},
		Type:            SimpleMovingAverage,
		Field:           FieldClose,
	}
}

func (c MovingAverageConfig) Kind() Kind { return KindMovingAverage }

// Name returns e.g. "SMA_20".
func (c MovingAverageConfig) Name() string {
	return nameWithPeriods(string(c.Type), c.Period)
}

// Validate checks the period, type and field.
func (c MovingAverageConfig) Validate() error {
	if err := validatePeriod("moving average period", c.Period); err != nil {
		return err
	}
	switch c.Type {
	case SimpleMovingAverage, ExponentialMovingAverage:
	default:
		return fmt.Errorf("unsupported moving average type %q: %w", c.Type, ports.ErrConfigurationError)
	}
	return c.Field.Validate()
}

func computeMovingAverage(c MovingAverageConfig, points []domain.PricePoint) ([]domain.DerivedPoint, error) {
	src, err := Prices(points, c.Field)
	if err != nil {
		return nil, err
	}

	var values []domain.Float
	switch c.Type {
	case SimpleMovingAverage:
		values, err = SMA(src, c.Period)
	case ExponentialMovingAverage:
		values, err = EMA(src, c.Period)
	}
	if err != nil {
		return nil, err
	}

	out := newDerived(points)
	for i := range out {
		out[i].Value = values[i]
	}
	return out, nil
}

package indicators

import (
	"fmt"

	"stockIndicators/internal/domain"
	"stockIndicators/internal/ports"
)

// SMA computes a simple moving average over values.
//
// Index i carries the mean of the window [i-period+1, i]. The result is absent
// while the window is incomplete, when values[i] is absent, or when any value in
// the window is absent.
func SMA(values []domain.Float, period int) ([]domain.Float, error) {
	if period <= 0 {
		return nil, fmt.Errorf("SMA period %d: %w", period, ports.ErrInvalidPeriod)
	}

	out := make([]domain.Float, len(values))
	sum := 0.0
	run := 0 // consecutive defined values ending at i
	for i, v := range values {
		if !v.Valid {
			sum, run = 0, 0
			continue
		}
		sum += v.Value
		run++
		if run > period {
			sum -= values[i-period].Value
			run = period
		}
		if run == period {
			out[i] = domain.Some(sum / float64(period))
		}
	}
	return out, nil
}

// EMA computes an exponential moving average over values.
//
// The first defined value seeds the average. Absent inputs produce absent
// outputs and do not advance the recurrence: the next defined value is
// smoothed against the last defined average.
func EMA(values []domain.Float, period int) ([]domain.Float, error) {
	if period <= 0 {
		return nil, fmt.Errorf("EMA period %d: %w", period, ports.ErrInvalidPeriod)
	}

	multiplier := 2.0 / float64(period+1)
	out := make([]domain.Float, len(values))
	var ema float64
	seeded := false
	for i, v := range values {
		if !v.Valid {
			continue
		}
		if !seeded {
			ema = v.Value
			seeded = true
		} else {
			ema += multiplier * (v.Value - ema)
		}
		out[i] = domain.Some(ema)
	}
	return out, nil
}

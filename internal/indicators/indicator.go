// Package indicators computes technical indicator series from price series.
//
// Every indicator is a pure transform from a parameter set (Params) and a full
// price series to a derived series. Nothing is carried between passes: each
// recompute iterates the whole input again.
package indicators

import (
	"fmt"
	"strconv"
	"strings"

	"stockIndicators/internal/domain"
	"stockIndicators/internal/ports"
)

// Kind identifies one of the supported indicator variants.
type Kind string

const (
	KindMovingAverage Kind = "moving_average"
	KindRSI           Kind = "rsi"
	KindCCI           Kind = "cci"
	KindWilliamsR     Kind = "williams_r"
	KindSMI           Kind = "smi"
	KindHeikinAshi    Kind = "heikin_ashi"
)

// Kinds lists every supported variant.
var Kinds = []Kind{KindMovingAverage, KindRSI, KindCCI, KindWilliamsR, KindSMI, KindHeikinAshi}

// ParseKind converts a configuration string into a Kind.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("%q: %w", s, ports.ErrUnknownIndicator)
}

// Params is the set of parameters that determine an indicator's output.
// Changing any of them invalidates the derived series. Implementations are
// value types so a parameter set can be copied and compared freely.
type Params interface {
	// Kind returns the indicator variant these parameters configure.
	Kind() Kind
	// Validate reports configuration errors (ErrInvalidPeriod, ErrUnknownField).
	Validate() error
	// RequiredDataPoints returns the warm-up length before the first defined output.
	RequiredDataPoints() int
	// Name returns a display name such as "RSI_14".
	Name() string
}

// IndicatorConfig holds the lookback shared by most indicators.
type IndicatorConfig struct {
	Period int
}

// RequiredDataPoints returns the minimum number of points needed for a value.
func (c IndicatorConfig) RequiredDataPoints() int {
	return c.Period
}

func validatePeriod(name string, period int) error {
	if period <= 0 {
		return fmt.Errorf("%s %d: %w", name, period, ports.ErrInvalidPeriod)
	}
	return nil
}

// Output is the result of one compute pass. Line indicators fill Points;
// Heikin-Ashi fills Candles.
type Output struct {
	Kind    Kind
	Points  []domain.DerivedPoint
	Candles []domain.PricePoint
}

// Len returns the number of produced records.
func (o Output) Len() int {
	if o.Kind == KindHeikinAshi {
		return len(o.Candles)
	}
	return len(o.Points)
}

// Compute runs the indicator selected by params over points. The input is
// never modified. Empty or too-short input yields an empty or all-absent
// output, not an error.
func Compute(params Params, points []domain.PricePoint) (Output, error) {
	if params == nil {
		return Output{}, fmt.Errorf("nil indicator params: %w", ports.ErrConfigurationError)
	}
	if err := params.Validate(); err != nil {
		return Output{}, fmt.Errorf("invalid %s params: %w", params.Kind(), err)
	}

	out := Output{Kind: params.Kind()}
	var err error
	switch p := params.(type) {
	case MovingAverageConfig:
		out.Points, err = computeMovingAverage(p, points)
	case RSIConfig:
		out.Points, err = computeRSI(p, points)
	case CCIConfig:
		out.Points, err = computeCCI(p, points)
	case WilliamsRConfig:
		out.Points = computeWilliamsR(p, points)
	case SMIConfig:
		out.Points, err = computeSMI(p, points)
	case HeikinAshiConfig:
		out.Candles = computeHeikinAshi(points)
	default:
		return Output{}, fmt.Errorf("%T: %w", params, ports.ErrUnknownIndicator)
	}
	if err != nil {
		return Output{}, fmt.Errorf("failed to compute %s: %w", params.Name(), err)
	}
	return out, nil
}

// DefaultParams returns the default parameter set for a kind.
func DefaultParams(kind Kind) (Params, error) {
	switch kind {
	case KindMovingAverage:
		return DefaultMovingAverageConfig(), nil
	case KindRSI:
		return DefaultRSIConfig(), nil
	case KindCCI:
		return DefaultCCIConfig(), nil
	case KindWilliamsR:
		return DefaultWilliamsRConfig(), nil
	case KindSMI:
		return DefaultSMIConfig(), nil
	case KindHeikinAshi:
		return HeikinAshiConfig{}, nil
	default:
		return nil, fmt.Errorf("%q: %w", string(kind), ports.ErrUnknownIndicator)
	}
}

// newDerived allocates an output aligned with points (timestamps copied,
// every field absent).
func newDerived(points []domain.PricePoint) []domain.DerivedPoint {
	out := make([]domain.DerivedPoint, len(points))
	for i, p := range points {
		out[i].Time = p.Time
	}
	return out
}

func nameWithPeriods(prefix string, periods ...int) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	for _, p := range periods {
		sb.WriteByte('_')
		sb.WriteString(strconv.Itoa(p))
	}
	return sb.String()
}

package domain

import (
	"math"
	"strconv"
)

// Float is an optional numeric field. The zero value is absent, which is
// distinct from a present zero.
type Float struct {
	Value float64
	Valid bool
}

// Some returns a present value. NaN and infinities are treated as absent so
// they can never leak into a derived series.
func Some(v float64) Float {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Float{}
	}
	return Float{Value: v, Valid: true}
}

// None returns an absent value.
func None() Float {
	return Float{}
}

// Or returns the value if present, otherwise fallback.
func (f Float) Or(fallback float64) float64 {
	if !f.Valid {
		return fallback
	}
	return f.Value
}

// String renders absent values as an empty string (CSV friendly).
func (f Float) String() string {
	if !f.Valid {
		return ""
	}
	return strconv.FormatFloat(f.Value, 'f', -1, 64)
}

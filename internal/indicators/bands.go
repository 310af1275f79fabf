package indicators

import "math"

// Bands are the overbought/oversold thresholds of an oscillator. They only
// affect presentation and never invalidate a computed series.
type Bands struct {
	OverBought float64
	OverSold   float64
}

// Mid returns the midpoint between the thresholds.
func (b Bands) Mid() float64 {
	return (b.OverBought + b.OverSold) / 2
}

// Threshold names one of the two band edges.
type Threshold int

const (
	OverBoughtThreshold Threshold = iota
	OverSoldThreshold
)

// Zone classifies a value against the bands.
type Zone int

const (
	ZoneNeutral Zone = iota
	ZoneOverBought
	ZoneOverSold
)

// Zone reports where v sits. Values on a threshold count as beyond it.
func (b Bands) Zone(v float64) Zone {
	switch {
	case v >= b.OverBought:
		return ZoneOverBought
	case v <= b.OverSold:
		return ZoneOverSold
	default:
		return ZoneNeutral
	}
}

// PlotRange maps between vertical pixel positions and data values of a plot.
// Top is the pixel at which Max is drawn, Bottom the pixel for Min.
type PlotRange struct {
	Top    float64
	Bottom float64
	Max    float64
	Min    float64
}

// Clamp limits a pixel position to the visible plot.
func (r PlotRange) Clamp(pixel float64) float64 {
	lo, hi := math.Min(r.Top, r.Bottom), math.Max(r.Top, r.Bottom)
	return math.Min(math.Max(pixel, lo), hi)
}

// ValueAt converts a pixel position into a data value.
func (r PlotRange) ValueAt(pixel float64) float64 {
	if r.Bottom == r.Top {
		return r.Min
	}
	ratio := (pixel - r.Bottom) / (r.Top - r.Bottom)
	return r.Min + ratio*(r.Max-r.Min)
}

// PixelAt converts a data value into a pixel position.
func (r PlotRange) PixelAt(value float64) float64 {
	if r.Max == r.Min {
		return r.Bottom
	}
	ratio := (value - r.Min) / (r.Max - r.Min)
	return r.Bottom + ratio*(r.Top-r.Bottom)
}

// Drag moves a threshold to the value under pixel. The pixel is clamped into
// the plot first and the stored value is rounded to an integer. It returns the
// new threshold value.
func (b *Bands) Drag(t Threshold, pixel float64, plot PlotRange) float64 {
	v := math.Round(plot.ValueAt(plot.Clamp(pixel)))
	switch t {
	case OverBoughtThreshold:
		b.OverBought = v
	case OverSoldThreshold:
		b.OverSold = v
	}
	return v
}

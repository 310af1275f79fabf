package domain

import "time"

// PricePoint is a single OHLCV observation. Only Time is mandatory; indicators
// read whichever subset of the price fields they need.
type PricePoint struct {
	Time   time.Time // Start time of the interval
	Open   Float
	High   Float
	Low    Float
	Close  Float
	Volume Float
}

// NewCandle builds a fully populated PricePoint.
func NewCandle(t time.Time, open, high, low, close, volume float64) PricePoint {
	return PricePoint{
		Time:   t,
		Open:   Some(open),
		High:   Some(high),
		Low:    Some(low),
		Close:  Some(close),
		Volume: Some(volume),
	}
}

// PriceSeries is an ordered (time ascending) snapshot of price points for one
// symbol and interval.
type PriceSeries struct {
	Symbol   string
	Interval string
	Points   []PricePoint
}

// Len returns the number of points in the series.
func (s *PriceSeries) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Points)
}

// Snapshot returns a copy of the points so a compute pass works on stable data
// even if the series is appended to concurrently.
func (s *PriceSeries) Snapshot() []PricePoint {
	if s == nil || len(s.Points) == 0 {
		return nil
	}
	out := make([]PricePoint, len(s.Points))
	copy(out, s.Points)
	return out
}

// Upsert appends a point, or replaces the last one if it shares its timestamp
// (a still-forming candle being updated).
func (s *PriceSeries) Upsert(p PricePoint) {
	if n := len(s.Points); n > 0 && s.Points[n-1].Time.Equal(p.Time) {
		s.Points[n-1] = p
		return
	}
	s.Points = append(s.Points, p)
}

// DerivedPoint is one output observation of an indicator. Value carries the
// primary line and Signal the secondary line (RSI's SMA, SMI's EMA).
type DerivedPoint struct {
	Time   time.Time
	Value  Float
	Signal Float
}

package indicators

import (
	"context"
	"time"

	"stockIndicators/internal/domain"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct {
	debugMsgs []string
	errorMsgs []string
}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {
	m.debugMsgs = append(m.debugMsgs, msg)
}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
	m.errorMsgs = append(m.errorMsgs, msg)
}

var baseTime = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// ohlc builds candles from (open, high, low, close) tuples, one hour apart.
func ohlc(rows ...[4]float64) []domain.PricePoint {
	out := make([]domain.PricePoint, len(rows))
	for i, r := range rows {
		out[i] = domain.NewCandle(baseTime.Add(time.Duration(i)*time.Hour), r[0], r[1], r[2], r[3], 100)
	}
	return out
}

// closes builds candles whose open/high/low/close all equal the given price.
func closes(prices ...float64) []domain.PricePoint {
	out := make([]domain.PricePoint, len(prices))
	for i, p := range prices {
		out[i] = domain.NewCandle(baseTime.Add(time.Duration(i)*time.Hour), p, p, p, p, 100)
	}
	return out
}

func floats(values ...float64) []domain.Float {
	out := make([]domain.Float, len(values))
	for i, v := range values {
		out[i] = domain.Some(v)
	}
	return out
}

func values(points []domain.DerivedPoint) []domain.Float {
	out := make([]domain.Float, len(points))
	for i, p := range points {
		out[i] = p.Value
	}
	return out
}

func signals(points []domain.DerivedPoint) []domain.Float {
	out := make([]domain.Float, len(points))
	for i, p := range points {
		out[i] = p.Signal
	}
	return out
}

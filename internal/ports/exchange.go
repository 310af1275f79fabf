package ports

import (
	"context"
	"time"

	"stockIndicators/internal/domain"
)

// KlineSource provides historical and live candlestick data from an exchange.
type KlineSource interface {
	// Ping checks connectivity to the exchange API.
	Ping(ctx context.Context) error

	// GetKlines retrieves the most recent klines for the given symbol.
	GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.PricePoint, error)

	// GetKlinesRange retrieves all klines between start and end.
	GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.PricePoint, error)

	// StreamKlines starts a WebSocket stream for K-line/candlestick data.
	// final reports whether the candle for the interval has closed.
	// Returns channels to control the stream (doneCh, stopCh) or an error if connection fails.
	StreamKlines(ctx context.Context, symbol, interval string, handler func(point domain.PricePoint, final bool), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error)
}

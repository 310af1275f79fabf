package ports

import (
	"context"
	"time"

	"stockIndicators/internal/domain"
)

// PriceRepository stores and retrieves source price series.
type PriceRepository interface {
	// SavePricePoints upserts points for a symbol/interval keyed by timestamp.
	SavePricePoints(ctx context.Context, symbol, interval string, points []domain.PricePoint) error
	// LoadPricePoints returns points in ascending time order. A zero from/to
	// leaves that side of the range open.
	LoadPricePoints(ctx context.Context, symbol, interval string, from, to time.Time) ([]domain.PricePoint, error)
}

// SeriesSink receives a derived series each time an indicator recomputes.
// The previous series stored under the same name is replaced wholesale.
type SeriesSink interface {
	ReplaceSeries(ctx context.Context, name string, points []domain.DerivedPoint, candles []domain.PricePoint) error
}

package indicators

import (
	"fmt"
	"strings"

	"stockIndicators/internal/domain"
	"stockIndicators/internal/ports"
)

// PriceField selects the scalar an indicator reads from each price point.
type PriceField string

const (
	FieldOpen  PriceField = "open"
	FieldClose PriceField = "close"
	FieldLow   PriceField = "low"
	FieldHigh  PriceField = "high"
	FieldHL2   PriceField = "hl/2"
	FieldHLC3  PriceField = "hlc/3"
	FieldHLCC4 PriceField = "hlcc/4"
	FieldOHLC4 PriceField = "ohlc/4"
)

// ParsePriceField converts a configuration string into a PriceField.
func ParsePriceField(s string) (PriceField, error) {
	f := PriceField(strings.ToLower(strings.TrimSpace(s)))
	if err := f.Validate(); err != nil {
		return "", err
	}
	return f, nil
}

// Validate reports ErrUnknownField for anything outside the supported set.
func (f PriceField) Validate() error {
	switch f {
	case FieldOpen, FieldClose, FieldLow, FieldHigh, FieldHL2, FieldHLC3, FieldHLCC4, FieldOHLC4:
		return nil
	default:
		return fmt.Errorf("%q: %w", string(f), ports.ErrUnknownField)
	}
}

// Price derives the selected scalar from a point. Composite fields are absent
// if any of their components is absent.
func Price(p domain.PricePoint, field PriceField) (domain.Float, error) {
	switch field {
	case FieldOpen:
		return p.Open, nil
	case FieldClose:
		return p.Close, nil
	case FieldLow:
		return p.Low, nil
	case FieldHigh:
		return p.High, nil
	case FieldHL2:
		if !p.High.Valid || !p.Low.Valid {
			return domain.None(), nil
		}
		return domain.Some((p.High.Value + p.Low.Value) / 2), nil
	case FieldHLC3:
		if !p.High.Valid || !p.Low.Valid || !p.Close.Valid {
			return domain.None(), nil
		}
		return domain.Some((p.High.Value + p.Low.Value + p.Close.Value) / 3), nil
	case FieldHLCC4:
		if !p.High.Valid || !p.Low.Valid || !p.Close.Valid {
			return domain.None(), nil
		}
		return domain.Some((p.High.Value + p.Low.Value + 2*p.Close.Value) / 4), nil
	case FieldOHLC4:
		if !p.Open.Valid || !p.High.Valid || !p.Low.Valid || !p.Close.Valid {
			return domain.None(), nil
		}
		return domain.Some((p.Open.Value + p.High.Value + p.Low.Value + p.Close.Value) / 4), nil
	default:
		return domain.None(), fmt.Errorf("%q: %w", string(field), ports.ErrUnknownField)
	}
}

// Prices extracts the selected field for every point.
func Prices(points []domain.PricePoint, field PriceField) ([]domain.Float, error) {
	if err := field.Validate(); err != nil {
		return nil, err
	}
	out := make([]domain.Float, len(points))
	for i, p := range points {
		out[i], _ = Price(p, field)
	}
	return out, nil
}

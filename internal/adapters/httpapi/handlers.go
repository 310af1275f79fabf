package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"stockIndicators/internal/domain"
	"stockIndicators/internal/indicators"
	"stockIndicators/internal/ports"
)

// Absent values are encoded as JSON null.
type pointBody struct {
	Time   time.Time `json:"time"`
	Value  *float64  `json:"value"`
	Signal *float64  `json:"signal"`
}

type candleBody struct {
	Time   time.Time `json:"time"`
	Open   *float64  `json:"open"`
	High   *float64  `json:"high"`
	Low    *float64  `json:"low"`
	Close  *float64  `json:"close"`
	Volume *float64  `json:"volume"`
}

type presentationBody struct {
	OverBought  float64 `json:"overBought"`
	OverSold    float64 `json:"overSold"`
	Mid         float64 `json:"mid"`
	Color       string  `json:"color"`
	SignalColor string  `json:"signalColor"`
}

// presentationUpdate is a PUT body. Omitted fields keep their current value.
type presentationUpdate struct {
	OverBought  *float64 `json:"overBought"`
	OverSold    *float64 `json:"overSold"`
	Color       *string  `json:"color"`
	SignalColor *string  `json:"signalColor"`
}

func (u presentationUpdate) rule() indicators.PresentationRule {
	return indicators.PresentationRule{
		OverBought:  u.OverBought,
		OverSold:    u.OverSold,
		Color:       u.Color,
		SignalColor: u.SignalColor,
	}
}

type seriesBody struct {
	Name         string           `json:"name"`
	Kind         string           `json:"kind"`
	Points       []pointBody      `json:"points,omitempty"`
	Candles      []candleBody     `json:"candles,omitempty"`
	Presentation presentationBody `json:"presentation"`
}

func optional(f domain.Float) *float64 {
	if !f.Valid {
		return nil
	}
	v := f.Value
	return &v
}

func toCandles(points []domain.PricePoint) []candleBody {
	out := make([]candleBody, len(points))
	for i, p := range points {
		out[i] = candleBody{
			Time:   p.Time,
			Open:   optional(p.Open),
			High:   optional(p.High),
			Low:    optional(p.Low),
			Close:  optional(p.Close),
			Volume: optional(p.Volume),
		}
	}
	return out
}

func toPoints(points []domain.DerivedPoint) []pointBody {
	out := make([]pointBody, len(points))
	for i, p := range points {
		out[i] = pointBody{Time: p.Time, Value: optional(p.Value), Signal: optional(p.Signal)}
	}
	return out
}

func toPresentation(p indicators.Presentation) presentationBody {
	return presentationBody{
		OverBought:  p.Bands.OverBought,
		OverSold:    p.Bands.OverSold,
		Mid:         p.Bands.Mid(),
		Color:       p.Color,
		SignalColor: p.SignalColor,
	}
}

// tailParam reads the optional ?tail=N limit. Zero means no limit.
func tailParam(r *http.Request) (int, error) {
	s := r.URL.Query().Get("tail")
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("tail %q must be a non-negative integer: %w", s, ports.ErrInvalidRequest)
	}
	return n, nil
}

func tail[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[len(items)-n:]
	}
	return items
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ports.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ports.ErrInvalidRequest), errors.Is(err, ports.ErrConfigurationError):
		status = http.StatusBadRequest
	default:
		s.logger.Error(r.Context(), err, "HTTP handler failed", map[string]interface{}{"path": r.URL.Path})
	}
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"error": err.Error()})
}

func (s *Server) handlePrices(w http.ResponseWriter, r *http.Request) {
	n, err := tailParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, toCandles(tail(s.service.Prices(), n)))
}

func (s *Server) handleListSeries(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string][]string{"series": s.service.Names()})
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	n, err := tailParam(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.service.Output(r.Context(), name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	p, err := s.service.Presentation(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	body := seriesBody{Name: name, Kind: string(out.Kind), Presentation: toPresentation(p)}
	if out.Kind == indicators.KindHeikinAshi {
		body.Candles = toCandles(tail(out.Candles, n))
	} else {
		body.Points = toPoints(tail(out.Points, n))
	}
	render.JSON(w, r, body)
}

func (s *Server) handleGetPresentation(w http.ResponseWriter, r *http.Request) {
	p, err := s.service.Presentation(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, toPresentation(p))
}

// handlePutPresentation overrides the bands and colors present in the body
// and keeps the rest. It never recomputes the series.
func (s *Server) handlePutPresentation(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	current, err := s.service.Presentation(name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var body presentationUpdate
	if err := render.DecodeJSON(r.Body, &body); err != nil {
		s.writeError(w, r, fmt.Errorf("invalid presentation body: %w: %w", ports.ErrInvalidRequest, err))
		return
	}

	p := body.rule().Apply(current)
	if p.Bands.OverBought <= p.Bands.OverSold {
		s.writeError(w, r, fmt.Errorf("overBought must be greater than overSold: %w", ports.ErrInvalidRequest))
		return
	}
	if err := s.service.SetPresentation(name, p); err != nil {
		s.writeError(w, r, err)
		return
	}
	render.JSON(w, r, toPresentation(p))
}

package indicators

import (
	"context"
	"fmt"
	"time"

	"stockIndicators/internal/domain"
	"stockIndicators/internal/ports"
)

// Source provides a stable snapshot of the price series an indicator is bound to.
type Source interface {
	Snapshot() []domain.PricePoint
}

// State is the recompute state of a bound indicator.
type State int

const (
	// StateIdle means the output reflects the current params and source.
	StateIdle State = iota
	// StateDirty means a recompute is required before the output is read.
	StateDirty
)

func (s State) String() string {
	if s == StateDirty {
		return "dirty"
	}
	return "idle"
}

// Config holds everything needed to bind an indicator to a source series.
type Config struct {
	Name         string        // series name used for the sink; defaults to Params.Name()
	Params       Params        // compute parameters (required)
	Presentation *Presentation // nil means DefaultPresentation(Params.Kind())
	Source       Source        // price series (required)
	Sink         ports.SeriesSink
	Observer     ports.RecomputeObserver
	Logger       ports.Logger // required
}

// Indicator binds a parameter set to a source series and keeps the derived
// output. Changing params or the source marks it dirty; changing presentation
// does not. An Indicator must not be used from several goroutines at once.
type Indicator struct {
	name         string
	params       Params
	presentation Presentation
	source       Source
	sink         ports.SeriesSink
	observer     ports.RecomputeObserver
	logger       ports.Logger

	state  State
	output Output
}

// New creates a bound indicator. It starts dirty so the first read computes.
func New(cfg Config) (*Indicator, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for indicator: %w", ports.ErrConfigurationError)
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("source series is required for indicator: %w", ports.ErrConfigurationError)
	}
	if cfg.Params == nil {
		return nil, fmt.Errorf("params are required for indicator: %w", ports.ErrConfigurationError)
	}
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}

	name := cfg.Name
	if name == "" {
		name = cfg.Params.Name()
	}
	presentation := DefaultPresentation(cfg.Params.Kind())
	if cfg.Presentation != nil {
		presentation = *cfg.Presentation
	}

	return &Indicator{
		name:         name,
		params:       cfg.Params,
		presentation: presentation,
		source:       cfg.Source,
		sink:         cfg.Sink,
		observer:     cfg.Observer,
		logger:       cfg.Logger,
		state:        StateDirty,
		output:       Output{Kind: cfg.Params.Kind()},
	}, nil
}

func (ind *Indicator) Name() string               { return ind.name }
func (ind *Indicator) Kind() Kind                 { return ind.params.Kind() }
func (ind *Indicator) Params() Params             { return ind.params }
func (ind *Indicator) Presentation() Presentation { return ind.presentation }
func (ind *Indicator) State() State               { return ind.state }

// SetParams replaces the compute parameters. Invalid params are rejected
// immediately and leave the indicator unchanged. The kind cannot change.
func (ind *Indicator) SetParams(p Params) error {
	if p == nil {
		return fmt.Errorf("nil params for %s: %w", ind.name, ports.ErrConfigurationError)
	}
	if p.Kind() != ind.params.Kind() {
		return fmt.Errorf("cannot change %s indicator to %s: %w", ind.params.Kind(), p.Kind(), ports.ErrConfigurationError)
	}
	if err := p.Validate(); err != nil {
		return err
	}
	if p == ind.params {
		return nil
	}
	ind.params = p
	ind.state = StateDirty
	return nil
}

// SetPresentation replaces bands and colors without touching the output.
func (ind *Indicator) SetPresentation(p Presentation) {
	ind.presentation = p
}

// DragThreshold moves one band edge to the value under pixel. See Bands.Drag.
func (ind *Indicator) DragThreshold(t Threshold, pixel float64, plot PlotRange) float64 {
	return ind.presentation.Bands.Drag(t, pixel, plot)
}

// SetSource binds a new source series and marks the indicator dirty.
func (ind *Indicator) SetSource(src Source) {
	ind.source = src
	ind.state = StateDirty
}

// Invalidate marks the output stale, typically after the source changed.
func (ind *Indicator) Invalidate() {
	ind.state = StateDirty
}

// Prepare recomputes the output if the indicator is dirty. The whole source
// is read again and the previous output is replaced wholesale. On failure the
// indicator stays dirty and keeps its previous output.
func (ind *Indicator) Prepare(ctx context.Context) error {
	if ind.state == StateIdle {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("prepare %s: %w", ind.name, err)
	}

	points := ind.source.Snapshot()
	start := time.Now()
	out, err := Compute(ind.params, points)
	if ind.observer != nil {
		ind.observer.ObserveRecompute(ind.name, time.Since(start), out.Len(), err)
	}
	if err != nil {
		ind.logger.Error(ctx, err, "Indicator recompute failed", map[string]interface{}{"indicator": ind.name})
		return err
	}
	// A pass that outlived its context is discarded rather than published.
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("prepare %s: %w", ind.name, err)
	}

	if ind.sink != nil {
		if err := ind.sink.ReplaceSeries(ctx, ind.name, out.Points, out.Candles); err != nil {
			ind.logger.Error(ctx, err, "Failed to publish indicator series", map[string]interface{}{"indicator": ind.name})
			return fmt.Errorf("publish %s: %w", ind.name, err)
		}
	}

	ind.output = out
	ind.state = StateIdle
	ind.logger.Debug(ctx, "Indicator recomputed", map[string]interface{}{
		"indicator": ind.name,
		"points":    len(points),
		"elapsed":   time.Since(start).String(),
	})
	return nil
}

// Output returns the derived series, recomputing first if needed.
func (ind *Indicator) Output(ctx context.Context) (Output, error) {
	if err := ind.Prepare(ctx); err != nil {
		return Output{}, err
	}
	return ind.output, nil
}

package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"stockIndicators/config"
	"stockIndicators/internal/domain"
	"stockIndicators/internal/indicators"
	"stockIndicators/internal/ports"
)

const (
	maxSeriesPoints = 10000 // Limit the in-memory source series
)

// IndicatorService keeps one source price series and the indicators bound to
// it up to date, from stored history and optionally the live kline stream.
type IndicatorService struct {
	cfg      *config.Config
	logger   ports.Logger
	source   ports.KlineSource
	repo     ports.PriceRepository
	sink     ports.SeriesSink
	observer ports.RecomputeObserver
	stream   ports.StreamObserver
	rules    *config.PresentationRules

	// State fields
	mu         sync.Mutex // Serializes updates and recompute passes
	series     domain.PriceSeries
	indicators []*indicators.Indicator
	byName     map[string]*indicators.Indicator
}

// Dependencies groups the optional collaborators of the service. A nil
// source disables fetching, a nil repo disables persistence.
type Dependencies struct {
	Source   ports.KlineSource
	Repo     ports.PriceRepository
	Sink     ports.SeriesSink
	Observer ports.RecomputeObserver
	Rules    *config.PresentationRules
}

// NewIndicatorService creates a new application service instance. If the
// observer also implements ports.StreamObserver it receives stream events.
func NewIndicatorService(cfg *config.Config, logger ports.Logger, deps Dependencies) (*IndicatorService, error) {
	if cfg == nil || logger == nil {
		return nil, fmt.Errorf("missing required dependencies for IndicatorService: %w", ports.ErrConfigurationError)
	}
	if cfg.Symbol == "" || cfg.Interval == "" {
		return nil, fmt.Errorf("symbol and interval are required: %w", ports.ErrConfigurationError)
	}

	s := &IndicatorService{
		cfg:      cfg,
		logger:   logger,
		source:   deps.Source,
		repo:     deps.Repo,
		sink:     deps.Sink,
		observer: deps.Observer,
		rules:    deps.Rules,
		series:   domain.PriceSeries{Symbol: cfg.Symbol, Interval: cfg.Interval},
		byName:   make(map[string]*indicators.Indicator),
	}
	if so, ok := deps.Observer.(ports.StreamObserver); ok {
		s.stream = so
	}
	return s, nil
}

// seriesSource exposes the service's series to bound indicators. It is only
// read from Prepare, which always runs with s.mu held.
type seriesSource struct {
	s *IndicatorService
}

func (src seriesSource) Snapshot() []domain.PricePoint {
	return src.s.series.Snapshot()
}

// AddIndicator binds a new indicator to the source series and returns its
// series name. Names must be unique.
func (s *IndicatorService) AddIndicator(params indicators.Params) (string, error) {
	if params == nil {
		return "", fmt.Errorf("nil indicator params: %w", ports.ErrConfigurationError)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	name := params.Name()
	if _, exists := s.byName[name]; exists {
		return "", fmt.Errorf("indicator %s already registered: %w", name, ports.ErrConfigurationError)
	}

	presentation := indicators.ResolvePresentation(s.rules, params.Kind(), s.cfg.ThemeTags...)
	ind, err := indicators.New(indicators.Config{
		Name:         name,
		Params:       params,
		Presentation: &presentation,
		Source:       seriesSource{s: s},
		Sink:         s.sink,
		Observer:     s.observer,
		Logger:       s.logger,
	})
	if err != nil {
		return "", fmt.Errorf("failed to add indicator %s: %w", name, err)
	}

	s.indicators = append(s.indicators, ind)
	s.byName[name] = ind
	s.logger.Info(context.Background(), "Indicator added", map[string]interface{}{
		"indicator": name,
		"kind":      string(params.Kind()),
	})
	return name, nil
}

// AddConfigured binds every indicator enabled in the configuration.
func (s *IndicatorService) AddConfigured() error {
	for _, kind := range s.cfg.Indicators {
		params, err := s.cfg.IndicatorParams(kind)
		if err != nil {
			return err
		}
		if _, err := s.AddIndicator(params); err != nil {
			return err
		}
	}
	return nil
}

// Names returns the series names in the order indicators were added.
func (s *IndicatorService) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.indicators))
	for i, ind := range s.indicators {
		names[i] = ind.Name()
	}
	return names
}

// lookup must be called with s.mu held.
func (s *IndicatorService) lookup(name string) (*indicators.Indicator, error) {
	ind, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("indicator %q: %w", name, ports.ErrNotFound)
	}
	return ind, nil
}

// Output returns the derived series of an indicator, recomputing it first
// if it is dirty.
func (s *IndicatorService) Output(ctx context.Context, name string) (indicators.Output, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ind, err := s.lookup(name)
	if err != nil {
		return indicators.Output{}, err
	}
	return ind.Output(ctx)
}

// State reports whether an indicator's output is current.
func (s *IndicatorService) State(name string) (indicators.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ind, err := s.lookup(name)
	if err != nil {
		return indicators.StateIdle, err
	}
	return ind.State(), nil
}

// SetParams changes an indicator's parameters. The series keeps its name.
// The new output is computed on the next read or Refresh.
func (s *IndicatorService) SetParams(name string, params indicators.Params) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ind, err := s.lookup(name)
	if err != nil {
		return err
	}
	return ind.SetParams(params)
}

// Presentation returns an indicator's current bands and colors.
func (s *IndicatorService) Presentation(name string) (indicators.Presentation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ind, err := s.lookup(name)
	if err != nil {
		return indicators.Presentation{}, err
	}
	return ind.Presentation(), nil
}

// SetPresentation replaces an indicator's bands and colors. It never
// triggers a recompute.
func (s *IndicatorService) SetPresentation(name string, p indicators.Presentation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ind, err := s.lookup(name)
	if err != nil {
		return err
	}
	ind.SetPresentation(p)
	return nil
}

// DragThreshold moves one band edge of an indicator to the value under pixel.
func (s *IndicatorService) DragThreshold(name string, t indicators.Threshold, pixel float64, plot indicators.PlotRange) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ind, err := s.lookup(name)
	if err != nil {
		return 0, err
	}
	return ind.DragThreshold(t, pixel, plot), nil
}

// ApplyTheme resolves every indicator's presentation again for tags,
// discarding manual changes.
func (s *IndicatorService) ApplyTheme(tags ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, ind := range s.indicators {
		ind.SetPresentation(indicators.ResolvePresentation(s.rules, ind.Kind(), tags...))
	}
}

// Prices returns a copy of the current source series.
func (s *IndicatorService) Prices() []domain.PricePoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.series.Snapshot()
}

// LoadHistory fills the source series from the repository, fetching from
// the exchange when fewer than KlineLimit points are stored, and recomputes
// every indicator.
func (s *IndicatorService) LoadHistory(ctx context.Context) error {
	var points []domain.PricePoint
	var err error

	if s.repo != nil {
		points, err = s.repo.LoadPricePoints(ctx, s.cfg.Symbol, s.cfg.Interval, time.Time{}, time.Time{})
		if err != nil {
			s.logger.Error(ctx, err, "Failed to load stored price history")
			return fmt.Errorf("failed to load price history: %w", err)
		}
		s.logger.Info(ctx, "Loaded stored price history", map[string]interface{}{"count": len(points)})
	}

	if len(points) < s.cfg.KlineLimit && s.source != nil {
		if err := s.source.Ping(ctx); err != nil {
			s.logger.Error(ctx, err, "Exchange is unreachable", map[string]interface{}{"symbol": s.cfg.Symbol})
			return fmt.Errorf("exchange connectivity check failed: %w", err)
		}
		fetched, err := s.source.GetKlines(ctx, s.cfg.Symbol, s.cfg.Interval, s.cfg.KlineLimit)
		if err != nil {
			s.logger.Error(ctx, err, "Failed to fetch klines", map[string]interface{}{"symbol": s.cfg.Symbol})
			return fmt.Errorf("failed to fetch klines: %w", err)
		}
		s.logger.Info(ctx, "Fetched klines", map[string]interface{}{"count": len(fetched)})

		if s.repo == nil {
			points = fetched
		} else {
			if err := s.repo.SavePricePoints(ctx, s.cfg.Symbol, s.cfg.Interval, fetched); err != nil {
				s.logger.Error(ctx, err, "Failed to store fetched klines")
				return fmt.Errorf("failed to store klines: %w", err)
			}
			points, err = s.repo.LoadPricePoints(ctx, s.cfg.Symbol, s.cfg.Interval, time.Time{}, time.Time{})
			if err != nil {
				return fmt.Errorf("failed to reload price history: %w", err)
			}
		}
	}

	if len(points) > maxSeriesPoints {
		points = points[len(points)-maxSeriesPoints:]
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.series.Points = points
	s.invalidateAll()
	return s.refreshLocked(ctx)
}

// OnPriceUpdate applies one price point to the series and recomputes every
// indicator. A point sharing the last timestamp replaces it. Final points
// are persisted. Points older than the last one are rejected.
func (s *IndicatorService) OnPriceUpdate(ctx context.Context, point domain.PricePoint, final bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n := len(s.series.Points); n > 0 && point.Time.Before(s.series.Points[n-1].Time) {
		return fmt.Errorf("price point at %s precedes the series end %s: %w",
			point.Time.Format(time.RFC3339), s.series.Points[n-1].Time.Format(time.RFC3339), ports.ErrInvalidRequest)
	}

	s.series.Upsert(point)
	if len(s.series.Points) > maxSeriesPoints {
		s.series.Points = s.series.Points[len(s.series.Points)-maxSeriesPoints:]
	}
	if s.stream != nil {
		s.stream.ObservePriceUpdate()
	}

	if final && s.repo != nil {
		if err := s.repo.SavePricePoints(ctx, s.cfg.Symbol, s.cfg.Interval, []domain.PricePoint{point}); err != nil {
			// The in-memory series stays authoritative; a gap in storage is refetched on restart.
			s.logger.Error(ctx, err, "Failed to persist final price point", map[string]interface{}{
				"time": point.Time.Format(time.RFC3339),
			})
		}
	}

	s.invalidateAll()
	return s.refreshLocked(ctx)
}

// Refresh recomputes every dirty indicator and reports all failures.
func (s *IndicatorService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked(ctx)
}

func (s *IndicatorService) invalidateAll() {
	for _, ind := range s.indicators {
		ind.Invalidate()
	}
}

func (s *IndicatorService) refreshLocked(ctx context.Context) error {
	var errs []error
	for _, ind := range s.indicators {
		if err := ind.Prepare(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Start loads history and, when streaming is enabled, follows the live kline
// stream until the context is canceled or a shutdown signal arrives.
func (s *IndicatorService) Start(ctx context.Context) error {
	s.logger.Info(ctx, "Starting Indicator Service...", map[string]interface{}{
		"symbol":   s.cfg.Symbol,
		"interval": s.cfg.Interval,
	})

	// Create a context that can be canceled by signals
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			s.logger.Info(ctx, "Received shutdown signal", map[string]interface{}{"signal": sig.String()})
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := s.LoadHistory(ctx); err != nil {
		return err
	}

	if !s.cfg.Stream || s.source == nil {
		s.logger.Info(ctx, "Indicator Service finished (streaming disabled)")
		return nil
	}

	doneCh, stopCh, err := s.source.StreamKlines(ctx, s.cfg.Symbol, s.cfg.Interval, s.handleKline, s.handleStreamError)
	if err != nil {
		s.logger.Error(ctx, err, "Failed to start WebSocket stream")
		return fmt.Errorf("failed to start WebSocket stream: %w", err)
	}
	s.logger.Info(ctx, "WebSocket stream started", map[string]interface{}{
		"symbol":   s.cfg.Symbol,
		"interval": s.cfg.Interval,
	})

	select {
	case <-ctx.Done():
		s.logger.Info(ctx, "Main context cancelled, initiating shutdown...")
		select {
		case stopCh <- struct{}{}:
		default:
			s.logger.Warn(ctx, "Failed to send stop signal to WebSocket (already closed?)")
		}
		select {
		case <-doneCh:
			s.logger.Info(ctx, "WebSocket stream shut down gracefully")
		case <-time.After(5 * time.Second):
			s.logger.Warn(ctx, "Timeout waiting for WebSocket stream to shut down")
		}
	case <-doneCh:
		err := errors.New("websocket stream stopped unexpectedly")
		s.logger.Error(ctx, err, "WebSocket stream stopped")
		return err
	}

	s.logger.Info(ctx, "Indicator Service stopped.")
	return nil
}

// handleKline applies a streamed candle. Forming candles replace the last
// point so indicators follow the live price.
func (s *IndicatorService) handleKline(point domain.PricePoint, final bool) {
	ctx := context.Background()
	s.logger.Debug(ctx, "Received kline event", map[string]interface{}{
		"time":    point.Time.Format(time.RFC3339),
		"close":   point.Close.Value,
		"isFinal": final,
	})
	if err := s.OnPriceUpdate(ctx, point, final); err != nil {
		s.logger.Error(ctx, err, "Failed to apply kline update")
	}
}

func (s *IndicatorService) handleStreamError(err error) {
	s.logger.Error(context.Background(), err, "WebSocket stream error reported")
	if s.stream != nil {
		s.stream.ObserveStreamError(err)
	}
}

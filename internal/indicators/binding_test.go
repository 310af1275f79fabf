package indicators

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stockIndicators/internal/domain"
	"stockIndicators/internal/ports"
)

type staticSource struct {
	points []domain.PricePoint
	reads  int
}

func (s *staticSource) Snapshot() []domain.PricePoint {
	s.reads++
	return s.points
}

type mockSink struct {
	calls int
	name  string
	err   error
}

func (m *mockSink) ReplaceSeries(ctx context.Context, name string, points []domain.DerivedPoint, candles []domain.PricePoint) error {
	m.calls++
	m.name = name
	return m.err
}

type mockObserver struct {
	observed []string
	errs     []error
}

func (m *mockObserver) ObserveRecompute(indicator string, elapsed time.Duration, points int, err error) {
	m.observed = append(m.observed, indicator)
	m.errs = append(m.errs, err)
}

func newTestIndicator(t *testing.T, params Params, src Source, sink ports.SeriesSink) (*Indicator, *mockLogger) {
	t.Helper()
	logger := &mockLogger{}
	ind, err := New(Config{Params: params, Source: src, Sink: sink, Logger: logger})
	require.NoError(t, err)
	return ind, logger
}

func TestNew_Validation(t *testing.T) {
	src := &staticSource{}
	logger := &mockLogger{}

	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{"missing logger", Config{Params: DefaultRSIConfig(), Source: src}, ports.ErrConfigurationError},
		{"missing source", Config{Params: DefaultRSIConfig(), Logger: logger}, ports.ErrConfigurationError},
		{"missing params", Config{Source: src, Logger: logger}, ports.ErrConfigurationError},
		{"invalid params", Config{Params: CCIConfig{}, Source: src, Logger: logger}, ports.ErrInvalidPeriod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestIndicator_Lifecycle(t *testing.T) {
	src := &staticSource{points: closes(1, 2, 3, 4, 5)}
	sink := &mockSink{}
	ind, logger := newTestIndicator(t, DefaultRSIConfig(), src, sink)

	assert.Equal(t, "RSI_14", ind.Name())
	assert.Equal(t, KindRSI, ind.Kind())
	assert.Equal(t, StateDirty, ind.State())
	assert.Equal(t, DefaultPresentation(KindRSI), ind.Presentation())

	out, err := ind.Output(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateIdle, ind.State())
	assert.Len(t, out.Points, 5)
	assert.Equal(t, 1, sink.calls)
	assert.Equal(t, "RSI_14", sink.name)
	assert.NotEmpty(t, logger.debugMsgs)

	// Idle reads do not recompute.
	_, err = ind.Output(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, src.reads)
	assert.Equal(t, 1, sink.calls)
}

func TestIndicator_RecomputeIsIdempotent(t *testing.T) {
	src := &staticSource{points: closes(3, 5, 4, 6, 8, 7, 9, 11, 10, 12, 13, 12, 14, 16, 15, 17)}
	ind, _ := newTestIndicator(t, DefaultCCIConfig(), src, nil)

	first, err := ind.Output(context.Background())
	require.NoError(t, err)

	ind.Invalidate()
	assert.Equal(t, StateDirty, ind.State())
	second, err := ind.Output(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 2, src.reads)
}

func TestIndicator_PresentationDoesNotDirty(t *testing.T) {
	src := &staticSource{points: closes(1, 2, 3)}
	ind, _ := newTestIndicator(t, DefaultWilliamsRConfig(), src, nil)
	require.NoError(t, ind.Prepare(context.Background()))

	ind.SetPresentation(Presentation{Bands: Bands{OverBought: -10, OverSold: -90}, Color: "#000000"})
	assert.Equal(t, StateIdle, ind.State())

	v := ind.DragThreshold(OverSoldThreshold, 75, PlotRange{Top: 0, Bottom: 100, Max: 0, Min: -100})
	assert.Equal(t, -75.0, v)
	assert.Equal(t, -75.0, ind.Presentation().Bands.OverSold)
	assert.Equal(t, StateIdle, ind.State())
	assert.Equal(t, 1, src.reads)
}

func TestIndicator_SetParams(t *testing.T) {
	src := &staticSource{points: closes(1, 2, 3, 4)}
	ind, _ := newTestIndicator(t, DefaultRSIConfig(), src, nil)
	require.NoError(t, ind.Prepare(context.Background()))

	t.Run("equal params stay idle", func(t *testing.T) {
		require.NoError(t, ind.SetParams(DefaultRSIConfig()))
		assert.Equal(t, StateIdle, ind.State())
	})

	t.Run("invalid params are rejected", func(t *testing.T) {
		err := ind.SetParams(rsiParams(0, 3))
		assert.ErrorIs(t, err, ports.ErrInvalidPeriod)
		assert.Equal(t, StateIdle, ind.State())
		assert.Equal(t, DefaultRSIConfig(), ind.Params())
	})

	t.Run("kind cannot change", func(t *testing.T) {
		err := ind.SetParams(DefaultCCIConfig())
		assert.ErrorIs(t, err, ports.ErrConfigurationError)
		assert.Equal(t, StateIdle, ind.State())
	})

	t.Run("changed params dirty", func(t *testing.T) {
		require.NoError(t, ind.SetParams(rsiParams(2, 1)))
		assert.Equal(t, StateDirty, ind.State())

		out, err := ind.Output(context.Background())
		require.NoError(t, err)
		assert.True(t, out.Points[2].Value.Valid)
	})
}

func TestIndicator_FailedPublishKeepsOutput(t *testing.T) {
	src := &staticSource{points: closes(1, 2, 3, 4, 5)}
	sink := &mockSink{}
	observer := &mockObserver{}
	logger := &mockLogger{}
	ind, err := New(Config{
		Params:   MovingAverageConfig{IndicatorConfig: IndicatorConfig{Period: 2}, Type: SimpleMovingAverage, Field: FieldClose},
		Source:   src,
		Sink:     sink,
		Observer: observer,
		Logger:   logger,
	})
	require.NoError(t, err)

	before, err := ind.Output(context.Background())
	require.NoError(t, err)

	sink.err = errors.New("disk full")
	src.points = closes(10, 20, 30)
	ind.SetSource(src)

	err = ind.Prepare(context.Background())
	require.Error(t, err)
	assert.Equal(t, StateDirty, ind.State())
	assert.Len(t, logger.errorMsgs, 1)
	assert.Len(t, observer.observed, 2)

	sink.err = nil
	after, err := ind.Output(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, before, after)
	assert.Len(t, after.Points, 3)
}

func TestIndicator_CanceledContext(t *testing.T) {
	src := &staticSource{points: closes(1, 2, 3)}
	ind, _ := newTestIndicator(t, DefaultCCIConfig(), src, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := ind.Prepare(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateDirty, ind.State())
	assert.Equal(t, 0, src.reads)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "dirty", StateDirty.String())
}

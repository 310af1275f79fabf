package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"stockIndicators/internal/domain"
	"stockIndicators/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockLogger implements ports.Logger for testing
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, fields ...map[string]interface{}) {}
func (m *mockLogger) Info(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Warn(ctx context.Context, msg string, fields ...map[string]interface{})  {}
func (m *mockLogger) Error(ctx context.Context, err error, msg string, fields ...map[string]interface{}) {
}

// setupTestDB creates a temporary database for testing
func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "indicators-test-*")
	require.NoError(t, err)

	dbPath := filepath.Join(tmpDir, "test.db")
	repo, err := NewRepository(Config{
		DBPath: dbPath,
		Logger: &mockLogger{},
	})
	require.NoError(t, err)

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

var t0 = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func candle(i int, c float64) domain.PricePoint {
	return domain.NewCandle(t0.Add(time.Duration(i)*time.Hour), c-1, c+2, c-2, c, 1000)
}

func TestNewRepository_RequiresLogger(t *testing.T) {
	_, err := NewRepository(Config{DBPath: filepath.Join(t.TempDir(), "x.db")})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}

func TestRepository_SaveAndLoadPricePoints(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	gap := candle(2, 103)
	gap.Volume = domain.None()
	gap.High = domain.None()

	points := []domain.PricePoint{candle(0, 100), candle(1, 101), gap, candle(3, 102)}
	require.NoError(t, repo.SavePricePoints(ctx, "AAPL", "1h", points))

	got, err := repo.LoadPricePoints(ctx, "AAPL", "1h", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, points, got)
	assert.False(t, got[2].High.Valid)
	assert.False(t, got[2].Volume.Valid)

	other, err := repo.LoadPricePoints(ctx, "AAPL", "1d", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRepository_LoadPricePointsRange(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	var points []domain.PricePoint
	for i := 0; i < 10; i++ {
		points = append(points, candle(i, float64(100+i)))
	}
	require.NoError(t, repo.SavePricePoints(ctx, "MSFT", "1h", points))

	tests := []struct {
		name      string
		from, to  time.Time
		wantFirst float64
		wantLen   int
	}{
		{"open range", time.Time{}, time.Time{}, 100, 10},
		{"from only", t0.Add(7 * time.Hour), time.Time{}, 107, 3},
		{"to only", time.Time{}, t0.Add(2 * time.Hour), 100, 3},
		{"bounded", t0.Add(3 * time.Hour), t0.Add(5 * time.Hour), 103, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.LoadPricePoints(ctx, "MSFT", "1h", tt.from, tt.to)
			require.NoError(t, err)
			require.Len(t, got, tt.wantLen)
			assert.Equal(t, tt.wantFirst, got[0].Close.Value)
			for i := 1; i < len(got); i++ {
				assert.True(t, got[i].Time.After(got[i-1].Time))
			}
		})
	}
}

func TestRepository_SavePricePointsUpserts(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, repo.SavePricePoints(ctx, "AAPL", "1h", []domain.PricePoint{candle(0, 100), candle(1, 101)}))
	require.NoError(t, repo.SavePricePoints(ctx, "AAPL", "1h", []domain.PricePoint{candle(1, 111)}))

	got, err := repo.LoadPricePoints(ctx, "AAPL", "1h", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 111.0, got[1].Close.Value)
}

func TestRepository_SavePricePointsValidation(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	err := repo.SavePricePoints(context.Background(), "", "1h", []domain.PricePoint{candle(0, 1)})
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
	assert.NoError(t, repo.SavePricePoints(context.Background(), "AAPL", "1h", nil))
}

func TestRepository_ReplaceSeries(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	first := []domain.DerivedPoint{
		{Time: t0, Value: domain.None(), Signal: domain.None()},
		{Time: t0.Add(time.Hour), Value: domain.Some(55.5), Signal: domain.None()},
		{Time: t0.Add(2 * time.Hour), Value: domain.Some(0), Signal: domain.Some(27.75)},
	}
	require.NoError(t, repo.ReplaceSeries(ctx, "RSI_14", first, nil))

	points, candles, err := repo.LoadSeries(ctx, "RSI_14")
	require.NoError(t, err)
	assert.Nil(t, candles)
	assert.Equal(t, first, points)
	assert.True(t, points[2].Value.Valid, "present zero must not become absent")

	second := first[:1]
	require.NoError(t, repo.ReplaceSeries(ctx, "RSI_14", second, nil))
	points, _, err = repo.LoadSeries(ctx, "RSI_14")
	require.NoError(t, err)
	assert.Len(t, points, 1)
}

func TestRepository_ReplaceSeriesCandles(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()
	ctx := context.Background()

	ha := []domain.PricePoint{candle(0, 10), {Time: t0.Add(time.Hour)}}
	require.NoError(t, repo.ReplaceSeries(ctx, "HeikinAshi", nil, ha))

	points, candles, err := repo.LoadSeries(ctx, "HeikinAshi")
	require.NoError(t, err)
	assert.Nil(t, points)
	assert.Equal(t, ha, candles)
}

func TestRepository_LoadSeriesNotFound(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	_, _, err := repo.LoadSeries(context.Background(), "missing")
	assert.ErrorIs(t, err, ports.ErrNotFound)

	err = repo.ReplaceSeries(context.Background(), "", nil, nil)
	assert.ErrorIs(t, err, ports.ErrInvalidRequest)
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stockIndicators/internal/domain"
	"stockIndicators/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements the ports.PriceRepository and ports.SeriesSink interfaces using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository: %w", ports.ErrConfigurationError)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/indicators.db" // Default path
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w: %w", dbPath, ports.ErrDBConnection, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// A single connection serializes writers; WAL keeps readers unblocked.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	cfg.Logger.Info(context.Background(), "SQLite database connection established", map[string]interface{}{"path": dbPath})

	repo := &Repository{db: db, logger: cfg.Logger}

	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "Database schema initialized/verified")

	return repo, nil
}

// initializeSchema creates tables if they don't exist. Timestamps are stored
// as unix milliseconds and absent values as NULL.
func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS price_points (
		symbol TEXT NOT NULL,
		interval TEXT NOT NULL,
		open_time INTEGER NOT NULL,
		open REAL,
		high REAL,
		low REAL,
		close REAL,
		volume REAL,
		PRIMARY KEY (symbol, interval, open_time)
	);

	CREATE TABLE IF NOT EXISTS series (
		name TEXT PRIMARY KEY,
		candles INTEGER NOT NULL DEFAULT 0,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS series_points (
		name TEXT NOT NULL,
		idx INTEGER NOT NULL,
		open_time INTEGER NOT NULL,
		value REAL,
		signal REAL,
		open REAL,
		high REAL,
		low REAL,
		close REAL,
		volume REAL,
		PRIMARY KEY (name, idx)
	);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// --- PriceRepository Implementation ---

// SavePricePoints upserts points keyed by symbol, interval and open time.
func (r *Repository) SavePricePoints(ctx context.Context, symbol, interval string, points []domain.PricePoint) error {
	if symbol == "" || interval == "" {
		return fmt.Errorf("symbol and interval are required: %w", ports.ErrInvalidRequest)
	}
	if len(points) == 0 {
		return nil
	}

	const query = `
	INSERT INTO price_points (symbol, interval, open_time, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (symbol, interval, open_time) DO UPDATE SET
		open = excluded.open, high = excluded.high, low = excluded.low,
		close = excluded.close, volume = excluded.volume`

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range points {
			if _, err := stmt.ExecContext(ctx, symbol, interval, toMillis(p.Time),
				nullFloat(p.Open), nullFloat(p.High), nullFloat(p.Low), nullFloat(p.Close), nullFloat(p.Volume)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save price points for %s %s: %w: %w", symbol, interval, ports.ErrUpdateFailed, err)
	}

	r.logger.Debug(ctx, "Price points saved", map[string]interface{}{"symbol": symbol, "interval": interval, "count": len(points)})
	return nil
}

// LoadPricePoints returns stored points in ascending time order. A zero from
// or to leaves that side of the range open.
func (r *Repository) LoadPricePoints(ctx context.Context, symbol, interval string, from, to time.Time) ([]domain.PricePoint, error) {
	query := `
	SELECT open_time, open, high, low, close, volume
	FROM price_points
	WHERE symbol = ? AND interval = ?`
	args := []interface{}{symbol, interval}
	if !from.IsZero() {
		query += " AND open_time >= ?"
		args = append(args, toMillis(from))
	}
	if !to.IsZero() {
		query += " AND open_time <= ?"
		args = append(args, toMillis(to))
	}
	query += " ORDER BY open_time ASC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query price points for %s %s: %w: %w", symbol, interval, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	points := make([]domain.PricePoint, 0)
	for rows.Next() {
		p, err := scanPricePoint(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price point: %w", err)
		}
		points = append(points, p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price point rows: %w", err)
	}
	return points, nil
}

// --- SeriesSink Implementation ---

// ReplaceSeries stores a derived series under name, replacing whatever was
// stored before in a single transaction. Line indicators pass points and
// Heikin-Ashi passes candles.
func (r *Repository) ReplaceSeries(ctx context.Context, name string, points []domain.DerivedPoint, candles []domain.PricePoint) error {
	if name == "" {
		return fmt.Errorf("series name is required: %w", ports.ErrInvalidRequest)
	}
	isCandles := len(candles) > 0 && len(points) == 0

	const insertPoint = `
	INSERT INTO series_points (name, idx, open_time, value, signal, open, high, low, close, volume)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM series_points WHERE name = ?`, name); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO series (name, candles, updated_at) VALUES (?, ?, ?)
			ON CONFLICT (name) DO UPDATE SET candles = excluded.candles, updated_at = excluded.updated_at`,
			name, isCandles, toMillis(time.Now())); err != nil {
			return err
		}

		stmt, err := tx.PrepareContext(ctx, insertPoint)
		if err != nil {
			return err
		}
		defer stmt.Close()

		if isCandles {
			for i, c := range candles {
				if _, err := stmt.ExecContext(ctx, name, i, toMillis(c.Time), nil, nil,
					nullFloat(c.Open), nullFloat(c.High), nullFloat(c.Low), nullFloat(c.Close), nullFloat(c.Volume)); err != nil {
					return err
				}
			}
			return nil
		}
		for i, p := range points {
			if _, err := stmt.ExecContext(ctx, name, i, toMillis(p.Time), nullFloat(p.Value), nullFloat(p.Signal),
				nil, nil, nil, nil, nil); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace series %s: %w: %w", name, ports.ErrUpdateFailed, err)
	}

	r.logger.Debug(ctx, "Series replaced", map[string]interface{}{"series": name, "points": len(points), "candles": len(candles)})
	return nil
}

// LoadSeries returns the series last stored under name. Exactly one of the
// returned slices is populated. An unknown name yields ports.ErrNotFound.
func (r *Repository) LoadSeries(ctx context.Context, name string) ([]domain.DerivedPoint, []domain.PricePoint, error) {
	var isCandles bool
	err := r.db.QueryRowContext(ctx, `SELECT candles FROM series WHERE name = ?`, name).Scan(&isCandles)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, fmt.Errorf("series %s: %w", name, ports.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("failed to query series %s: %w: %w", name, ports.ErrQueryFailed, err)
	}

	rows, err := r.db.QueryContext(ctx, `
	SELECT open_time, value, signal, open, high, low, close, volume
	FROM series_points
	WHERE name = ? ORDER BY idx ASC`, name)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query series points for %s: %w: %w", name, ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	points := make([]domain.DerivedPoint, 0)
	candles := make([]domain.PricePoint, 0)
	for rows.Next() {
		var openTime int64
		var value, signal, open, high, low, closePrice, volume sql.NullFloat64
		if err := rows.Scan(&openTime, &value, &signal, &open, &high, &low, &closePrice, &volume); err != nil {
			return nil, nil, fmt.Errorf("failed to scan series point: %w", err)
		}
		if isCandles {
			candles = append(candles, domain.PricePoint{
				Time:   fromMillis(openTime),
				Open:   fromNull(open),
				High:   fromNull(high),
				Low:    fromNull(low),
				Close:  fromNull(closePrice),
				Volume: fromNull(volume),
			})
			continue
		}
		points = append(points, domain.DerivedPoint{
			Time:   fromMillis(openTime),
			Value:  fromNull(value),
			Signal: fromNull(signal),
		})
	}
	if err = rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating series rows: %w", err)
	}

	if isCandles {
		return nil, candles, nil
	}
	return points, nil, nil
}

// --- Helpers ---

func (r *Repository) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			r.logger.Warn(ctx, "Transaction rollback failed", map[string]interface{}{"error": rbErr.Error()})
		}
		return err
	}
	return tx.Commit()
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

// scanPricePoint scans a row into a domain.PricePoint struct.
func scanPricePoint(s scanner) (domain.PricePoint, error) {
	var openTime int64
	var open, high, low, closePrice, volume sql.NullFloat64
	if err := s.Scan(&openTime, &open, &high, &low, &closePrice, &volume); err != nil {
		return domain.PricePoint{}, err
	}
	return domain.PricePoint{
		Time:   fromMillis(openTime),
		Open:   fromNull(open),
		High:   fromNull(high),
		Low:    fromNull(low),
		Close:  fromNull(closePrice),
		Volume: fromNull(volume),
	}, nil
}

func nullFloat(f domain.Float) sql.NullFloat64 {
	return sql.NullFloat64{Float64: f.Value, Valid: f.Valid}
}

func fromNull(n sql.NullFloat64) domain.Float {
	if !n.Valid {
		return domain.None()
	}
	return domain.Some(n.Float64)
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

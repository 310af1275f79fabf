package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"stockIndicators/config"
	"stockIndicators/internal/adapters/logger"
	"stockIndicators/internal/indicators"
	"stockIndicators/internal/ports"
	"stockIndicators/internal/utils"
)

// Computes the configured indicators over price CSV files without touching
// the exchange or the database. Files are processed concurrently.
func main() {
	outDir := flag.String("out", "output", "Directory for the derived CSV files")
	workers := flag.Int("workers", 4, "Files processed in parallel")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		log.Fatalf("usage: compute_csv [-out dir] [-workers n] prices.csv...")
	}
	g, ctx, err := workerGroup(context.Background(), *workers)
	if err != nil {
		log.Fatalf("FATAL: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	appLogger := logger.NewConsole(cfg.LogLevel)

	params := make([]indicators.Params, 0, len(cfg.Indicators))
	for _, kind := range cfg.Indicators {
		p, err := cfg.IndicatorParams(kind)
		if err != nil {
			log.Fatalf("FATAL: %v", err)
		}
		params = append(params, p)
	}

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		log.Fatalf("FATAL: Failed to create output directory: %v", err)
	}

	var mu sync.Mutex
	written := 0

	for _, file := range files {
		g.Go(func() error {
			n, err := processFile(ctx, appLogger, file, *outDir, params)
			if err != nil {
				return fmt.Errorf("%s: %w", file, err)
			}
			mu.Lock()
			written += n
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		appLogger.Error(context.Background(), err, "Computation failed")
		log.Fatalf("FATAL: %v", err)
	}
	appLogger.Info(context.Background(), "Computation finished", map[string]interface{}{
		"files":  len(files),
		"series": written,
	})
}

// workerGroup returns an errgroup running at most workers files at once.
// A limit of zero would block the first Go call forever.
func workerGroup(ctx context.Context, workers int) (*errgroup.Group, context.Context, error) {
	if workers <= 0 {
		return nil, nil, fmt.Errorf("-workers must be positive, got %d", workers)
	}
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	return g, ctx, nil
}

// processFile computes every indicator for one price file and returns the
// number of series written.
func processFile(ctx context.Context, appLogger ports.Logger, file, outDir string, params []indicators.Params) (int, error) {
	points, err := utils.ReadPricePointsFromCSV(file)
	if err != nil {
		return 0, err
	}
	appLogger.Info(ctx, "Loaded price points", map[string]interface{}{"file": file, "count": len(points)})

	base := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
	for _, p := range params {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		out, err := indicators.Compute(p, points)
		if err != nil {
			return 0, err
		}
		filename := filepath.Join(outDir, fmt.Sprintf("%s_%s.csv", base, p.Name()))
		if out.Kind == indicators.KindHeikinAshi {
			err = utils.WritePricePointsToCSV(out.Candles, filename)
		} else {
			err = utils.WriteDerivedToCSV(out.Points, filename)
		}
		if err != nil {
			return 0, err
		}
	}
	return len(params), nil
}

package main

import (
	"context"
	"fmt"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"stockIndicators/config"
	"stockIndicators/internal/adapters/binanceclient"
	"stockIndicators/internal/adapters/httpapi"
	"stockIndicators/internal/adapters/logger"
	"stockIndicators/internal/adapters/metrics"
	"stockIndicators/internal/adapters/sqlite"
	"stockIndicators/internal/app"
	"stockIndicators/internal/indicators"
	"stockIndicators/internal/utils"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err) // Use standard log before logger is ready
	}

	// 2. Initialize Logger
	appLogger := logger.NewConsole(cfg.LogLevel)
	ctx := context.Background()
	appLogger.Info(ctx, "Logger initialized", map[string]interface{}{"level": cfg.LogLevel.String()})

	// 3. Initialize Repository (Database Adapter)
	if dir := filepath.Dir(cfg.DBPath); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("FATAL: Failed to create database directory: %v", err)
		}
	}
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(ctx, err, "Error closing database repository")
		}
	}()
	appLogger.Info(ctx, "Database repository initialized")

	// 4. Initialize Exchange Client (Binance Adapter)
	binanceClient, err := binanceclient.New(binanceclient.Config{
		APIKey:               cfg.APIKey,
		SecretKey:            cfg.SecretKey,
		UseTestnet:           cfg.IsTestnet,
		Logger:               appLogger,
		ReconnectDelay:       cfg.ReconnectDelay,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize Binance client")
		log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
	}
	appLogger.Info(ctx, "Binance client initialized")

	// 5. Presentation rules (env thresholds plus optional presets file)
	rules, err := cfg.LoadPresentationRules()
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to load presentation rules")
		log.Fatalf("FATAL: Failed to load presentation rules: %v", err)
	}

	// 6. Initialize Application Service
	recorder := metrics.NewRecorder()
	service, err := app.NewIndicatorService(cfg, appLogger, app.Dependencies{
		Source:   binanceClient,
		Repo:     repo,
		Sink:     repo,
		Observer: recorder,
		Rules:    rules,
	})
	if err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to initialize indicator service")
		log.Fatalf("FATAL: Failed to initialize indicator service: %v", err)
	}
	if err := service.AddConfigured(); err != nil {
		appLogger.Error(ctx, err, "FATAL: Failed to add configured indicators")
		log.Fatalf("FATAL: Failed to add configured indicators: %v", err)
	}
	appLogger.Info(ctx, "Indicator service initialized", map[string]interface{}{"indicators": service.Names()})

	// 7. Optional HTTP API and /metrics
	var server *httpapi.Server
	if cfg.HTTPAddr != "" {
		server, err = httpapi.New(httpapi.Config{
			Addr:    cfg.HTTPAddr,
			Service: service,
			Metrics: recorder.Handler(),
			Logger:  appLogger,
		})
		if err != nil {
			log.Fatalf("FATAL: Failed to initialize HTTP API: %v", err)
		}
		server.Start(ctx)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				appLogger.Error(ctx, err, "Error stopping HTTP server")
			}
		}()
	}

	// 8. Start the Service (returns after loading history unless streaming)
	if err := service.Start(ctx); err != nil {
		appLogger.Error(ctx, err, "Indicator service exited with error")
		log.Fatalf("FATAL: Indicator service exited with error: %v", err)
	}

	// 9. Export results
	if cfg.OutputDir != "" {
		if err := exportCSV(ctx, service, cfg); err != nil {
			appLogger.Error(ctx, err, "Failed to export series")
		} else {
			appLogger.Info(ctx, "Exported series", map[string]interface{}{"dir": cfg.OutputDir})
		}
	}

	// Keep serving computed history until interrupted.
	if server != nil && !cfg.Stream {
		sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
		appLogger.Info(ctx, "Serving computed series, press Ctrl+C to exit")
		<-sigCtx.Done()
		stop()
	}

	appLogger.Info(ctx, "Application finished gracefully.")
}

// exportCSV writes the source series and every derived series into cfg.OutputDir.
func exportCSV(ctx context.Context, service *app.IndicatorService, cfg *config.Config) error {
	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	prefix := fmt.Sprintf("%s_%s", cfg.Symbol, cfg.Interval)
	if err := utils.WritePricePointsToCSV(service.Prices(), filepath.Join(cfg.OutputDir, prefix+"_prices.csv")); err != nil {
		return err
	}
	for _, name := range service.Names() {
		out, err := service.Output(ctx, name)
		if err != nil {
			return err
		}
		filename := filepath.Join(cfg.OutputDir, fmt.Sprintf("%s_%s.csv", prefix, name))
		if out.Kind == indicators.KindHeikinAshi {
			err = utils.WritePricePointsToCSV(out.Candles, filename)
		} else {
			err = utils.WriteDerivedToCSV(out.Points, filename)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

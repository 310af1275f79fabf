package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"stockIndicators/internal/adapters/logger"
	"stockIndicators/internal/indicators"
)

// validIntervals are the kline intervals accepted by the exchange.
var validIntervals = map[string]bool{
	"1m": true, "3m": true, "5m": true, "15m": true, "30m": true,
	"1h": true, "2h": true, "4h": true, "6h": true, "8h": true, "12h": true,
	"1d": true, "3d": true, "1w": true, "1M": true,
}

// Config holds all application configuration.
type Config struct {
	// Binance API (klines are public, keys are optional)
	APIKey    string
	SecretKey string
	IsTestnet bool

	// Source series
	Symbol     string
	Interval   string
	KlineLimit int  // history length fetched on startup
	Stream     bool // follow the live kline stream after loading history

	// Indicators to compute, in display order
	Indicators []indicators.Kind

	// Indicator Parameters
	MAType          indicators.MovingAverageType
	MAPeriod        int
	MAField         indicators.PriceField
	RSIPeriod       int
	RSISMAPeriod    int
	RSIField        indicators.PriceField
	CCIPeriod       int
	WilliamsRPeriod int
	SMIKPeriod      int
	SMIDPeriod      int
	SMIEMAPeriod    int

	// Presentation
	RSIOverbought float64
	RSIOversold   float64
	PresetsPath   string   // optional YAML file of presentation rules
	ThemeTags     []string // tags used to resolve presentation rules

	// Storage and output
	DBPath    string
	OutputDir string // optional directory for CSV exports

	// Logging
	LogLevel logger.LogLevel

	// HTTP API and metrics
	HTTPAddr string // empty disables the HTTP server

	// Connection Settings
	ReconnectDelay       time.Duration
	MaxReconnectAttempts int
}

// LoadConfig loads configuration from environment variables (.env file).
func LoadConfig() (*Config, error) {
	// Load .env file, but don't fail if it doesn't exist (allow pure env vars)
	_ = godotenv.Load()

	cfg := &Config{}
	var err error
	var errs []string // Collect validation errors

	// Unparsable values are reported instead of falling back to the default.
	intVar := func(dst *int, key string, defaultValue int) bool {
		v, err := getEnvAsIntRequired(key, defaultValue)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
			return false
		}
		*dst = v
		return true
	}
	floatVar := func(dst *float64, key string, defaultValue float64) bool {
		v, err := getEnvAsFloatRequired(key, defaultValue)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
			return false
		}
		*dst = v
		return true
	}
	boolVar := func(dst *bool, key string, defaultValue bool) {
		v, err := getEnvAsBoolRequired(key, defaultValue)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s: %v", key, err))
			return
		}
		*dst = v
	}

	// Binance API
	cfg.APIKey = getEnv("BINANCE_API_KEY", "")
	cfg.SecretKey = getEnv("BINANCE_API_SECRET", "")
	boolVar(&cfg.IsTestnet, "IS_TESTNET", false)

	// Source series
	cfg.Symbol = strings.ToUpper(getEnv("SYMBOL", "BTCUSDT"))
	if cfg.Symbol == "" {
		errs = append(errs, "SYMBOL must be set")
	}
	cfg.Interval = getEnv("INTERVAL", "1h")
	if !validIntervals[cfg.Interval] {
		errs = append(errs, fmt.Sprintf("INTERVAL %q is not a supported kline interval", cfg.Interval))
	}

	cfg.KlineLimit, err = getEnvAsIntRequired("KLINE_LIMIT", 500)
	if err != nil {
		errs = append(errs, fmt.Sprintf("invalid KLINE_LIMIT: %v", err))
	} else if cfg.KlineLimit <= 0 || cfg.KlineLimit > 1500 {
		errs = append(errs, "KLINE_LIMIT must be between 1 and 1500")
	}
	boolVar(&cfg.Stream, "STREAM", false)

	// Indicators
	for _, name := range getEnvAsList("INDICATORS", "moving_average,rsi,cci,williams_r,smi,heikin_ashi") {
		kind, err := indicators.ParseKind(name)
		if err != nil {
			errs = append(errs, fmt.Sprintf("invalid INDICATORS entry: %v", err))
			continue
		}
		cfg.Indicators = append(cfg.Indicators, kind)
	}

	// Indicator Parameters
	cfg.MAType = indicators.MovingAverageType(strings.ToUpper(getEnv("MA_TYPE", string(indicators.SimpleMovingAverage))))
	periodsParsed := true
	for _, v := range []struct {
		dst          *int
		key          string
		defaultValue int
	}{
		{&cfg.MAPeriod, "MA_PERIOD", 20},
		{&cfg.RSIPeriod, "RSI_PERIOD", 14},
		{&cfg.RSISMAPeriod, "RSI_SMA_PERIOD", 3},
		{&cfg.CCIPeriod, "CCI_PERIOD", 20},
		{&cfg.WilliamsRPeriod, "WILLIAMS_R_PERIOD", 14},
		{&cfg.SMIKPeriod, "SMI_K_PERIOD", 10},
		{&cfg.SMIDPeriod, "SMI_D_PERIOD", 3},
		{&cfg.SMIEMAPeriod, "SMI_EMA_PERIOD", 3},
	} {
		if !intVar(v.dst, v.key, v.defaultValue) {
			periodsParsed = false
		}
	}

	if cfg.MAField, err = indicators.ParsePriceField(getEnv("MA_FIELD", string(indicators.FieldClose))); err != nil {
		errs = append(errs, fmt.Sprintf("invalid MA_FIELD: %v", err))
	}
	if cfg.RSIField, err = indicators.ParsePriceField(getEnv("RSI_FIELD", string(indicators.FieldClose))); err != nil {
		errs = append(errs, fmt.Sprintf("invalid RSI_FIELD: %v", err))
	}

	// Validate every configured parameter set, including ones not enabled,
	// so a typo is reported before it is switched on.
	for _, kind := range indicators.Kinds {
		if !periodsParsed {
			break
		}
		p, err := cfg.IndicatorParams(kind)
		if err != nil {
			errs = append(errs, err.Error())
			continue
		}
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("invalid %s parameters: %v", kind, err))
		}
	}

	// Presentation
	overboughtOK := floatVar(&cfg.RSIOverbought, "RSI_OVERBOUGHT", 70.0)
	oversoldOK := floatVar(&cfg.RSIOversold, "RSI_OVERSOLD", 30.0)
	if overboughtOK && oversoldOK &&
		(cfg.RSIOverbought <= cfg.RSIOversold || cfg.RSIOverbought > 100 || cfg.RSIOversold < 0) {
		errs = append(errs, "invalid RSI thresholds (Overbought must be > Oversold, between 0-100)")
	}
	cfg.PresetsPath = getEnv("PRESETS_PATH", "")
	cfg.ThemeTags = getEnvAsList("THEME_TAGS", "")

	// Storage and output
	cfg.DBPath = getEnv("DB_PATH", "./data/indicators.db")
	if cfg.DBPath == "" {
		errs = append(errs, "DB_PATH must be set")
	}
	cfg.OutputDir = getEnv("OUTPUT_DIR", "")

	// Logging
	logLevelStr := getEnv("LOG_LEVEL", "INFO")
	cfg.LogLevel = logger.ParseLevel(logLevelStr)

	// HTTP API and metrics
	cfg.HTTPAddr = getEnv("HTTP_ADDR", "")

	// Connection Settings
	reconnectDelaySeconds := 5
	if intVar(&reconnectDelaySeconds, "RECONNECT_DELAY_SECONDS", 5) && reconnectDelaySeconds <= 0 {
		errs = append(errs, "RECONNECT_DELAY_SECONDS must be positive")
	}
	cfg.ReconnectDelay = time.Duration(reconnectDelaySeconds) * time.Second

	if intVar(&cfg.MaxReconnectAttempts, "MAX_RECONNECT_ATTEMPTS", 10) && cfg.MaxReconnectAttempts < 0 {
		errs = append(errs, "MAX_RECONNECT_ATTEMPTS cannot be negative")
	}

	// Combine validation errors
	if len(errs) > 0 {
		return nil, fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return cfg, nil
}

// IndicatorParams builds the parameter set for kind from the configuration.
func (c *Config) IndicatorParams(kind indicators.Kind) (indicators.Params, error) {
	switch kind {
	case indicators.KindMovingAverage:
		return indicators.MovingAverageConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: c.MAPeriod},
			Type:            c.MAType,
			Field:           c.MAField,
		}, nil
	case indicators.KindRSI:
		return indicators.RSIConfig{
			IndicatorConfig: indicators.IndicatorConfig{Period: c.RSIPeriod},
			SMAPeriod:       c.RSISMAPeriod,
			Field:           c.RSIField,
		}, nil
	case indicators.KindCCI:
		return indicators.CCIConfig{IndicatorConfig: indicators.IndicatorConfig{Period: c.CCIPeriod}}, nil
	case indicators.KindWilliamsR:
		return indicators.WilliamsRConfig{IndicatorConfig: indicators.IndicatorConfig{Period: c.WilliamsRPeriod}}, nil
	case indicators.KindSMI:
		return indicators.SMIConfig{KPeriod: c.SMIKPeriod, DPeriod: c.SMIDPeriod, EMAPeriod: c.SMIEMAPeriod}, nil
	case indicators.KindHeikinAshi:
		return indicators.HeikinAshiConfig{}, nil
	default:
		return indicators.DefaultParams(kind)
	}
}

// --- Env Var Helpers ---

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated value, dropping empty entries.
func getEnvAsList(key, defaultValue string) []string {
	var out []string
	for _, item := range strings.Split(getEnv(key, defaultValue), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnvAsIntRequired(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsFloatRequired(key string, defaultValue float64) (float64, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid float value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

func getEnvAsBoolRequired(key string, defaultValue bool) (bool, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("invalid boolean value '%s' for key %s: %w", valueStr, key, err)
	}
	return value, nil
}

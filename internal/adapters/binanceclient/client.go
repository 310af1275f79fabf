package binanceclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stockIndicators/internal/domain"
	"stockIndicators/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/jpillora/backoff"
	"github.com/shopspring/decimal"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	// maxKlinesPerRequest is the largest page the klines endpoint serves.
	maxKlinesPerRequest = 1500
)

// Client implements the ports.KlineSource interface using the go-binance library.
type Client struct {
	futuresClient        *futures.Client
	logger               ports.Logger
	reconnectDelay       time.Duration
	maxReconnectAttempts int
}

// Config holds configuration specific to the Binance client adapter.
type Config struct {
	APIKey               string
	SecretKey            string
	UseTestnet           bool
	Logger               ports.Logger
	ReconnectDelay       time.Duration // Base reconnect delay (e.g., 1 * time.Second)
	MaxReconnectAttempts int           // Max attempts before giving up
}

// New creates a new Binance client adapter. Klines are public market data, so
// empty API keys are accepted.
func New(cfg Config) (*Client, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance client: %w", ports.ErrConfigurationError)
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Debug(context.Background(), "APIKey or SecretKey is empty, using public endpoints only")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance client configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance client configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	reconnectDelay := cfg.ReconnectDelay
	if reconnectDelay <= 0 {
		reconnectDelay = 1 * time.Second
	}
	maxAttempts := cfg.MaxReconnectAttempts
	if maxAttempts <= 0 {
		maxAttempts = 10
	}

	return &Client{
		futuresClient:        client,
		logger:               cfg.Logger,
		reconnectDelay:       reconnectDelay,
		maxReconnectAttempts: maxAttempts,
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (c *Client) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp for this request is outside of the recvWindow
			mappedErr = ports.ErrTimeout
		case -1022, -2014, -2015: // Invalid signature or API key
			mappedErr = ports.ErrAuthenticationFailed
		case -1100, -1101, -1102, -1103, -1104, -1105, -1106, -1111, -1120, -1121, -1125, -1127, -1130: // Parameter/Request format errors
			mappedErr = ports.ErrInvalidRequest
		case -1000, -1001, -1007, -1008: // Unknown error, disconnected, timeout, server busy
			mappedErr = ports.ErrExchangeUnavailable
		default:
			mappedErr = ports.ErrUnknown
		}
		finalErr := fmt.Errorf("%s failed: %w: %w", operation, mappedErr, err)
		c.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return finalErr
	}

	// Handle non-API errors (network, context cancellation, etc.)
	var finalErr error
	if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrTimeout, err)
	} else if errors.Is(err, context.Canceled) {
		finalErr = fmt.Errorf("%s operation canceled: %w: %w", operation, ports.ErrContextCanceled, err)
	} else if strings.Contains(err.Error(), "use of closed network connection") ||
		strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %w", operation, ports.ErrUnknown, err)
	}

	c.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// Ping checks the connectivity to the exchange API.
func (c *Client) Ping(ctx context.Context) error {
	op := "Ping"
	err := c.futuresClient.NewPingService().Do(ctx)
	if err != nil {
		return c.handleError(ctx, fmt.Errorf("ping failed: %w", err), op)
	}
	c.logger.Debug(ctx, op+" successful")
	return nil
}

// GetKlines retrieves the most recent klines for the given symbol.
func (c *Client) GetKlines(ctx context.Context, symbol, interval string, limit int) ([]domain.PricePoint, error) {
	op := "GetKlines"
	if limit <= 0 || limit > maxKlinesPerRequest {
		return nil, fmt.Errorf("%s: limit %d outside 1..%d: %w", op, limit, maxKlinesPerRequest, ports.ErrInvalidRequest)
	}

	binanceKlines, err := c.futuresClient.NewKlinesService().Symbol(symbol).Interval(interval).Limit(limit).Do(ctx)
	if err != nil {
		return nil, c.handleError(ctx, err, op)
	}

	points := make([]domain.PricePoint, 0, len(binanceKlines))
	for _, bk := range binanceKlines {
		p, err := translateBinanceKline(bk)
		if err != nil {
			return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline: %w", err), op)
		}
		points = append(points, p)
	}

	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "interval": interval, "count": len(points)})
	return points, nil
}

// GetKlinesRange fetches all klines for a symbol/interval between start and
// end, paging through the endpoint.
func (c *Client) GetKlinesRange(ctx context.Context, symbol, interval string, start, end time.Time) ([]domain.PricePoint, error) {
	op := "GetKlinesRange"
	if !end.After(start) {
		return nil, fmt.Errorf("%s: end %s is not after start %s: %w", op, end, start, ports.ErrInvalidRequest)
	}

	var all []domain.PricePoint
	from := start
	for {
		klines, err := c.futuresClient.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(maxKlinesPerRequest).
			Do(ctx)
		if err != nil {
			return nil, c.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, bk := range klines {
			p, err := translateBinanceKline(bk)
			if err != nil {
				return nil, c.handleError(ctx, fmt.Errorf("failed to translate historical kline range: %w", err), op)
			}
			all = append(all, p)
		}
		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime + 1)
		if from.After(end) || len(klines) < maxKlinesPerRequest {
			break
		}
	}

	c.logger.Debug(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "interval": interval, "count": len(all)})
	return all, nil
}

// StreamKlines starts a WebSocket stream for K-line/candlestick data and
// reconnects with exponential backoff until ctx is cancelled, stopCh is
// signalled or the attempts are exhausted. doneCh is closed when the stream
// has stopped for good.
func (c *Client) StreamKlines(ctx context.Context, symbol, interval string, handler func(point domain.PricePoint, final bool), errHandler func(err error)) (doneCh chan struct{}, stopCh chan struct{}, err error) {
	op := "StreamKlines"
	if handler == nil {
		return nil, nil, fmt.Errorf("%s: handler is required: %w", op, ports.ErrInvalidRequest)
	}
	wsCtx, cancelWs := context.WithCancel(ctx)
	fields := map[string]interface{}{"symbol": symbol, "interval": interval}

	binanceHandler := func(event *futures.WsKlineEvent) {
		point, final, err := translateWsKline(event)
		if err != nil {
			// Translation errors are not connection errors; do not trigger a reconnect.
			c.logger.Error(wsCtx, err, op+": Failed to translate WebSocket kline event")
			return
		}
		handler(point, final)
	}

	binanceErrHandler := func(err error) {
		translatedErr := c.handleError(wsCtx, err, op+" WebSocket")
		if errHandler != nil {
			errHandler(translatedErr)
		}
	}

	retry := &backoff.Backoff{
		Min:    c.reconnectDelay,
		Max:    c.reconnectDelay * 64,
		Factor: 2,
		Jitter: true,
	}

	go func() {
		defer cancelWs()

		for {
			select {
			case <-wsCtx.Done():
				c.logger.Info(wsCtx, op+": Context cancelled, stopping connection attempts.", fields)
				return
			default:
			}

			c.logger.Info(wsCtx, op+": Attempting WebSocket connection...", withField(fields, "attempt", int(retry.Attempt())+1))
			innerDoneCh, innerStopCh, connectErr := futures.WsKlineServe(symbol, interval, binanceHandler, binanceErrHandler)
			if connectErr != nil {
				c.handleError(wsCtx, connectErr, op+" connection attempt")
				if int(retry.Attempt())+1 >= c.maxReconnectAttempts {
					c.logger.Error(wsCtx, connectErr, op+": Max reconnection attempts exceeded, giving up.", withField(fields, "maxAttempts", c.maxReconnectAttempts))
					if errHandler != nil {
						errHandler(fmt.Errorf("%s: %w: %w", op, ports.ErrConnectionFailed, connectErr))
					}
					return
				}

				delay := retry.Duration()
				c.logger.Info(wsCtx, op+": Connection failed, retrying...", withField(fields, "delay", delay.String()))
				select {
				case <-time.After(delay):
					continue
				case <-wsCtx.Done():
					c.logger.Info(wsCtx, op+": Context cancelled during backoff.", fields)
					return
				}
			}

			c.logger.Info(wsCtx, op+": WebSocket connection established.", fields)
			retry.Reset()

			select {
			case <-innerDoneCh:
				c.logger.Warn(wsCtx, op+": WebSocket connection closed unexpectedly. Reconnecting...", fields)
			case <-wsCtx.Done():
				c.logger.Info(wsCtx, op+": Context cancelled, stopping WebSocket.", fields)
				select {
				case innerStopCh <- struct{}{}:
				default:
					c.logger.Warn(wsCtx, op+": Failed to send stop signal to inner WebSocket (already closed?).", fields)
				}
				return
			}
		}
	}()

	doneCh = make(chan struct{})
	stopCh = make(chan struct{})

	go func() {
		select {
		case <-stopCh:
			c.logger.Info(ctx, op+": Received external stop signal, cancelling WebSocket context.", fields)
			cancelWs()
		case <-wsCtx.Done():
		}
	}()

	go func() {
		<-wsCtx.Done()
		c.logger.Debug(ctx, op+": WebSocket context done, closing external done channel.", fields)
		close(doneCh)
	}()

	return doneCh, stopCh, nil
}

func withField(fields map[string]interface{}, key string, value interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out[key] = value
	return out
}

// --- Translation Helpers ---

// parsePrice parses an exchange decimal string. An empty string is absent.
func parsePrice(name, s string) (domain.Float, error) {
	if s == "" {
		return domain.None(), nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return domain.None(), fmt.Errorf("parsing %s '%s': %w", name, s, err)
	}
	return domain.Some(d.InexactFloat64()), nil
}

func translateOHLCV(openTime int64, open, high, low, closePrice, volume string) (domain.PricePoint, error) {
	p := domain.PricePoint{Time: time.UnixMilli(openTime).UTC()}
	var err error
	if p.Open, err = parsePrice("open price", open); err != nil {
		return domain.PricePoint{}, err
	}
	if p.High, err = parsePrice("high price", high); err != nil {
		return domain.PricePoint{}, err
	}
	if p.Low, err = parsePrice("low price", low); err != nil {
		return domain.PricePoint{}, err
	}
	if p.Close, err = parsePrice("close price", closePrice); err != nil {
		return domain.PricePoint{}, err
	}
	if p.Volume, err = parsePrice("volume", volume); err != nil {
		return domain.PricePoint{}, err
	}
	return p, nil
}

func translateWsKline(event *futures.WsKlineEvent) (domain.PricePoint, bool, error) {
	if event == nil {
		return domain.PricePoint{}, false, errors.New("received nil kline event")
	}
	k := event.Kline
	p, err := translateOHLCV(k.StartTime, k.Open, k.High, k.Low, k.Close, k.Volume)
	if err != nil {
		return domain.PricePoint{}, false, err
	}
	return p, k.IsFinal, nil
}

func translateBinanceKline(bk *futures.Kline) (domain.PricePoint, error) {
	if bk == nil {
		return domain.PricePoint{}, errors.New("received nil historical kline")
	}
	return translateOHLCV(bk.OpenTime, bk.Open, bk.High, bk.Low, bk.Close, bk.Volume)
}

package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"btc-trading-bot-go/internal/config"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	baseURL         = "https://api.binance.com/api/v3"
	testnetBaseURL  = "https://testnet.binance.vision/api/v3"
	recvWindow      = "5000" // How long a request is valid in milliseconds
	OrderTypeMarket = "MARKET"
	OrderSideBuy    = "BUY"
	OrderSideSell   = "SELL"
)

// RestClientInterface defines the interface for the Binance REST API client.
type RestClientInterface interface {
	GetServerTime() (int64, error)
	GetTickerPrice(symbol string) (float64, error)
	GetKlines(symbol, interval string, limit int) ([]Kline, error)
	GetBalances() (map[string]float64, error)
	CreateOrder(symbol, side string, quantity float64) (*CreateOrderResponse, error)
}

// RestClient is a client for the Binance REST API.
// It implements the RestClientInterface.
type RestClient struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
	limiter   *rate.Limiter
}

// ensure RestClient implements the interface
var _ RestClientInterface = (*RestClient)(nil)

// NewRestClient creates a new Binance REST API client.
func NewRestClient(cfg *config.Binance, logger *zap.Logger) *RestClient {
	var url string
	if cfg.Testnet {
		url = testnetBaseURL
		logger.Warn("Using Binance Testnet")
	} else {
		url = baseURL
		logger.Info("Using Binance Production API")
	}

	client := resty.New().SetBaseURL(url)

	// Initialize the rate limiter
	// rate.Limit is requests per second.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &RestClient{
		client:    client,
		apiKey:    cfg.ApiKey,
		secretKey: cfg.SecretKey,
		logger:    logger,
		limiter:   limiter,
	}
}

// sign creates a HMAC-SHA256 signature for the request.
func (c *RestClient) sign(data string) string {
	h := hmac.New(sha256.New, []byte(c.secretKey))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}

// doRequest handles the actual request execution with rate limiting and retry logic.
func (c *RestClient) doRequest(ctx context.Context, method, url string, req *resty.Request) (*resty.Response, error) {
	var resp *resty.Response
	var err error
	const maxRetries = 3

	for i := 0; i < maxRetries; i++ {
		// Wait for the rate limiter
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait failed: %w", err)
		}

		c.logger.Debug("Executing request", zap.String("method", method), zap.String("url", c.client.BaseURL+url))
		resp, err = req.Execute(method, url)

		if err == nil && !resp.IsError() {
			return resp, nil // Success
		}

		// Analyze error and decide whether to retry
		shouldRetry := false
		var retryAfter time.Duration

		if resp != nil {
			statusCode := resp.StatusCode()
			if statusCode == http.StatusTooManyRequests || statusCode == 418 { // HTTP 429 or 418
				shouldRetry = true
				retryAfterHeader := resp.Header().Get("Retry-After")
				if seconds, err := strconv.Atoi(retryAfterHeader); err == nil {
					retryAfter = time.Duration(seconds) * time.Second
				}
			} else if statusCode >= 500 { // Server errors
				shouldRetry = true
			}
		} else { // Network or other client-side errors
			shouldRetry = true
		}

		if !shouldRetry {
			return nil, fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
		}

		// If we should retry, calculate wait time
		if retryAfter == 0 {
			// Exponential backoff: 1s, 2s, 4s
			retryAfter = time.Duration(math.Pow(2, float64(i))) * time.Second
		}

		c.logger.Warn("Request failed, retrying...",
			zap.Int("attempt", i+1),
			zap.Duration("retry_after", retryAfter),
			zap.Error(err),
		)

		select {
		case <-time.After(retryAfter):
			continue
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", maxRetries, err)
}

// GetServerTime fetches the current server time from Binance.
// This is a good endpoint to test connectivity.
func (c *RestClient) GetServerTime() (int64, error) {
	type ServerTimeResponse struct {
		ServerTime int64 `json:"serverTime"`
	}

	req := c.client.R().
		SetResult(&ServerTimeResponse{})
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/time", req)
	if err != nil {
		c.logger.Error("Failed to get server time", zap.Error(err))
		return 0, fmt.Errorf("failed to get server time: %w", err)
	}

	result := resp.Result().(*ServerTimeResponse)
	return result.ServerTime, nil
}

// TickerPrice represents the response for a single ticker price.
type TickerPrice struct {
	Symbol string `json:"symbol"`
	Price  string `json:"price"`
}

// GetTickerPrice fetches the latest price for a single symbol.
func (c *RestClient) GetTickerPrice(symbol string) (float64, error) {
	var ticker TickerPrice

	req := c.client.R().
		SetResult(&ticker).
		SetQueryParam("symbol", symbol).
		SetHeader("Content-Type", "application/json")
	ctx := context.Background()

	_, err := c.doRequest(ctx, "GET", "/ticker/price", req)
	if err != nil {
		return 0, fmt.Errorf("failed to get ticker price for %s: %w", symbol, err)
	}

	price, err := strconv.ParseFloat(ticker.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse ticker price %q: %w", ticker.Price, err)
	}
	return price, nil
}

// Kline is a single OHLCV candle as returned by the /klines endpoint.
type Kline struct {
	OpenTime int64
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// GetKlines fetches up to limit candles for a symbol/interval, oldest first.
func (c *RestClient) GetKlines(symbol, interval string, limit int) ([]Kline, error) {
	// Binance returns klines as heterogeneous JSON arrays:
	// [openTime, "open", "high", "low", "close", "volume", closeTime, ...]
	var raw [][]interface{}

	req := c.client.R().
		SetResult(&raw).
		SetQueryParams(map[string]string{
			"symbol":   symbol,
			"interval": interval,
			"limit":    strconv.Itoa(limit),
		}).
		SetHeader("Content-Type", "application/json")
	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/klines", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get klines for %s %s: %w", symbol, interval, err)
	}

	result := resp.Result().(*[][]interface{})
	klines := make([]Kline, 0, len(*result))
	for _, row := range *result {
		k, err := parseKlineRow(row)
		if err != nil {
			return nil, fmt.Errorf("failed to parse kline row: %w", err)
		}
		klines = append(klines, k)
	}
	return klines, nil
}

func parseKlineRow(row []interface{}) (Kline, error) {
	if len(row) < 6 {
		return Kline{}, fmt.Errorf("kline row has %d fields, want at least 6", len(row))
	}

	openTime, ok := row[0].(float64)
	if !ok {
		return Kline{}, fmt.Errorf("unexpected open time type %T", row[0])
	}

	fields := make([]float64, 5)
	for i := 1; i <= 5; i++ {
		s, ok := row[i].(string)
		if !ok {
			return Kline{}, fmt.Errorf("unexpected kline field type %T at index %d", row[i], i)
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Kline{}, fmt.Errorf("failed to parse kline field %q: %w", s, err)
		}
		fields[i-1] = v
	}

	return Kline{
		OpenTime: int64(openTime),
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		Volume:   fields[4],
	}, nil
}

// accountResponse represents the signed /account endpoint response.
type accountResponse struct {
	Balances []struct {
		Asset  string `json:"asset"`
		Free   string `json:"free"`
		Locked string `json:"locked"`
	} `json:"balances"`
}

// GetBalances fetches the free balance for every asset on the account.
func (c *RestClient) GetBalances() (map[string]float64, error) {
	params := url.Values{}
	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	params.Set("recvWindow", recvWindow)

	queryString := params.Encode()
	signature := c.sign(queryString)
	params.Set("signature", signature)

	var account accountResponse
	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetQueryParamsFromValues(params).
		SetResult(&account)

	ctx := context.Background()

	resp, err := c.doRequest(ctx, "GET", "/account", req)
	if err != nil {
		return nil, fmt.Errorf("failed to get account balances: %w", err)
	}

	result := resp.Result().(*accountResponse)
	balances := make(map[string]float64, len(result.Balances))
	for _, b := range result.Balances {
		free, err := strconv.ParseFloat(b.Free, 64)
		if err != nil {
			c.logger.Warn("Skipping unparseable balance",
				zap.String("asset", b.Asset), zap.String("free", b.Free))
			continue
		}
		balances[b.Asset] = free
	}
	return balances, nil
}

// CreateOrderResponse represents the response from creating a new order.
type CreateOrderResponse struct {
	Symbol              string `json:"symbol"`
	OrderID             int64  `json:"orderId"`
	ClientOrderID       string `json:"clientOrderId"`
	TransactTime        int64  `json:"transactTime"`
	Price               string `json:"price"`
	OrigQuantity        string `json:"origQty"`
	ExecutedQuantity    string `json:"executedQty"`
	CummulativeQuoteQty string `json:"cummulativeQuoteQty"`
	Status              string `json:"status"`
	TimeInForce         string `json:"timeInForce"`
	Type                string `json:"type"`
	Side                string `json:"side"`
}

// FillPrice returns the average fill price, or 0 if it cannot be derived.
func (r *CreateOrderResponse) FillPrice() float64 {
	qty, err1 := strconv.ParseFloat(r.ExecutedQuantity, 64)
	quote, err2 := strconv.ParseFloat(r.CummulativeQuoteQty, 64)
	if err1 != nil || err2 != nil || qty <= 0 {
		return 0
	}
	return quote / qty
}

// CreateOrder places a new MARKET order on Binance.
func (c *RestClient) CreateOrder(symbol, side string, quantity float64) (*CreateOrderResponse, error) {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("side", side)
	params.Set("type", OrderTypeMarket)
	params.Set("quantity", strconv.FormatFloat(quantity, 'f', -1, 64))
	params.Set("timestamp", fmt.Sprintf("%d", time.Now().UnixMilli()))
	params.Set("recvWindow", recvWindow)

	queryString := params.Encode()
	signature := c.sign(queryString)
	params.Set("signature", signature)

	req := c.client.R().
		SetHeader("X-MBX-APIKEY", c.apiKey).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(params.Encode()).
		SetResult(&CreateOrderResponse{})

	ctx := context.Background()

	resp, err := c.doRequest(ctx, "POST", "/order", req)
	if err != nil {
		c.logger.Error("Failed to create order after multiple attempts",
			zap.Error(err),
			zap.String("symbol", symbol),
		)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	result := resp.Result().(*CreateOrderResponse)
	c.logger.Info("Successfully created order", zap.Any("order", result))
	return result, nil
}

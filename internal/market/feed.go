package market

import (
	"context"
	"fmt"
	"time"

	"btc-trading-bot-go/internal/binance"
	"go.uber.org/zap"
)

// Trend values reported by HourlyTrend.
const (
	TrendDown = -1
	TrendFlat = 0 // indeterminate or insufficient data
	TrendUp   = 1
)

// DataFeed produces the latest candle window plus a longer-horizon trend
// signal. The engine only depends on this contract, never on the transport
// behind it.
type DataFeed interface {
	// Latest returns the most recent candles, oldest first. An empty slice
	// means no data is available this cycle.
	Latest(ctx context.Context) ([]Candle, error)

	// HourlyTrend classifies the 1h timeframe as -1, 0 or 1.
	HourlyTrend(ctx context.Context) (int, error)
}

const hourlyTrendLookback = 20

// BinanceFeed fetches candles from the Binance klines endpoint.
type BinanceFeed struct {
	client    binance.RestClientInterface
	logger    *zap.Logger
	symbol    string
	timeframe string
	limit     int
}

var _ DataFeed = (*BinanceFeed)(nil)

// NewBinanceFeed creates a feed for one symbol/timeframe.
func NewBinanceFeed(client binance.RestClientInterface, logger *zap.Logger, symbol, timeframe string, limit int) *BinanceFeed {
	return &BinanceFeed{
		client:    client,
		logger:    logger,
		symbol:    symbol,
		timeframe: timeframe,
		limit:     limit,
	}
}

// Latest fetches the newest candles for the feed's timeframe.
func (f *BinanceFeed) Latest(ctx context.Context) ([]Candle, error) {
	klines, err := f.client.GetKlines(f.symbol, f.timeframe, f.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch latest candles: %w", err)
	}

	candles := make([]Candle, 0, len(klines))
	for _, k := range klines {
		candles = append(candles, Candle{
			OpenTime: time.UnixMilli(k.OpenTime).UTC(),
			Open:     k.Open,
			High:     k.High,
			Low:      k.Low,
			Close:    k.Close,
			Volume:   k.Volume,
		})
	}

	if err := Validate(candles); err != nil {
		return nil, fmt.Errorf("exchange returned malformed candle sequence: %w", err)
	}
	return candles, nil
}

// HourlyTrend compares the latest 1h close against the SMA of recent 1h
// closes. Insufficient data yields TrendFlat rather than an error so a thin
// history never blocks the trading cycle.
func (f *BinanceFeed) HourlyTrend(ctx context.Context) (int, error) {
	klines, err := f.client.GetKlines(f.symbol, "1h", hourlyTrendLookback)
	if err != nil {
		return TrendFlat, fmt.Errorf("failed to fetch 1h candles: %w", err)
	}
	if len(klines) < hourlyTrendLookback {
		f.logger.Debug("Not enough 1h candles for trend", zap.Int("rows", len(klines)))
		return TrendFlat, nil
	}

	var sum float64
	for _, k := range klines {
		sum += k.Close
	}
	sma := sum / float64(len(klines))
	last := klines[len(klines)-1].Close

	switch {
	case last > sma:
		return TrendUp, nil
	case last < sma:
		return TrendDown, nil
	default:
		return TrendFlat, nil
	}
}

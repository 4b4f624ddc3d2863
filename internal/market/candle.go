package market

import (
	"fmt"
	"time"
)

// Candle is a fixed-interval OHLCV summary of price activity. Candle slices
// are ordered by strictly increasing OpenTime and immutable once produced by
// a feed.
type Candle struct {
	OpenTime time.Time
	Open     float64
	High     float64
	Low      float64
	Close    float64
	Volume   float64
}

// IntervalDuration resolves a timeframe string like "1m" or "5m" to its
// candle length. ok is false for unrecognized strings; the caller decides the
// fallback policy.
func IntervalDuration(timeframe string) (time.Duration, bool) {
	switch timeframe {
	case "1m":
		return time.Minute, true
	case "3m":
		return 3 * time.Minute, true
	case "5m":
		return 5 * time.Minute, true
	case "15m":
		return 15 * time.Minute, true
	case "1h":
		return time.Hour, true
	default:
		return 0, false
	}
}

// Validate checks ordering and uniqueness of a candle sequence.
func Validate(candles []Candle) error {
	for i := 1; i < len(candles); i++ {
		if !candles[i].OpenTime.After(candles[i-1].OpenTime) {
			return fmt.Errorf("candle %d open time %s is not after previous %s",
				i, candles[i].OpenTime, candles[i-1].OpenTime)
		}
	}
	return nil
}

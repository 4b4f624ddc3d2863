package strategy

import (
	"btc-trading-bot-go/internal/market"
)

// VolatilityBreakout is the rule-based variant: band breakout with trend
// strength and momentum confirmation, mean-reversion trailing exit plus a
// fixed hard stop.
type VolatilityBreakout struct{}

var _ Strategy = (*VolatilityBreakout)(nil)

// NewVolatilityBreakout creates the rule-based breakout strategy.
func NewVolatilityBreakout() *VolatilityBreakout {
	return &VolatilityBreakout{}
}

func (s *VolatilityBreakout) Name() string {
	return "btc_volatility_breakout"
}

func (s *VolatilityBreakout) Timeframe() string {
	return "15m"
}

func (s *VolatilityBreakout) Indicators(candles []market.Candle) []FeatureRow {
	return ComputeFeatures(candles)
}

// ShouldEnter requires the breakout edge trigger, ADX above 20 and RSI in a
// momentum band that avoids buying an extreme top.
func (s *VolatilityBreakout) ShouldEnter(rows []FeatureRow) bool {
	if len(rows) < 2 {
		return false
	}
	current := &rows[len(rows)-1]
	prev := &rows[len(rows)-2]
	if !current.Valid || !prev.Valid {
		return false
	}

	if !breakout(prev, current) {
		return false
	}
	strongTrend := current.ADX > 20
	goodMomentum := current.RSI > 50 && current.RSI < 85
	return strongTrend && goodMomentum
}

// ShouldExit closes when price falls back below the middle band (trend
// broken) or breaches the 3% hard stop.
func (s *VolatilityBreakout) ShouldExit(rows []FeatureRow, position *Position) bool {
	if len(rows) == 0 || position == nil {
		return false
	}
	current := &rows[len(rows)-1]

	trendBroken := current.Close < current.BBMid
	stopLoss := current.Close < position.EntryPrice*0.97
	return trendBroken || stopLoss
}

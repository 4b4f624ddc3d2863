package strategy

import (
	"time"

	"btc-trading-bot-go/internal/config"
	"btc-trading-bot-go/internal/market"
)

// MinLookback is the warm-up window: the minimum number of candles required
// before every indicator (including SMA 200 and its lags) is defined.
const MinLookback = 200

// Position is the single open long exposure. A plain value struct: no
// behavior, no identity beyond its fields.
type Position struct {
	EntryPrice float64
	Size       float64 // base asset units
	EntryTime  time.Time
	Capital    float64 // quote capital committed at entry
}

// Strategy is the contract both engines drive. Indicators is pure and must
// not mutate its input; ShouldEnter is only evaluated while flat and
// ShouldExit only while long, always against fully-closed bars.
type Strategy interface {
	// Name returns the unique name of the strategy.
	Name() string

	// Timeframe returns the candle interval string, e.g. "1m" or "5m".
	Timeframe() string

	// Indicators derives one FeatureRow per input candle. Rows inside the
	// warm-up window have Valid=false and must be dropped by the caller
	// before any decision is made.
	Indicators(candles []market.Candle) []FeatureRow

	// ShouldEnter reports whether a new long should be opened. The last row
	// is the most recent fully-closed bar.
	ShouldEnter(rows []FeatureRow) bool

	// ShouldExit reports whether the open position should be closed. Exit
	// thresholds are recomputed from current parameters on every call, not
	// frozen at entry.
	ShouldExit(rows []FeatureRow, position *Position) bool
}

// DynamicParams is the optional capability for strategies whose risk
// parameters are live-editable. The live engine resolves it once at
// construction via a type assertion, never per call.
type DynamicParams interface {
	UpdateParameters(cfg config.RiskConfig)
}

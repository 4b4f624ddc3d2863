package trader

import "time"

// ClosedTrade is one row of the backtest trade ledger. Rows are immutable
// once appended; the ledger is the source of truth for every statistic.
type ClosedTrade struct {
	EntryPrice float64
	ExitPrice  float64
	Size       float64
	EntryTime  time.Time
	ExitTime   time.Time
	PnL        float64
	PnLPct     float64
	Duration   time.Duration
}

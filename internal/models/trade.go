package models

import "gorm.io/gorm"

// Trade sides as stored in the audit log.
const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// Trade is one row of the append-only trade audit log. Rows are only ever
// created, never updated or deleted: the log is the dashboard's data source
// and the live audit trail.
type Trade struct {
	gorm.Model
	Symbol    string  `json:"symbol"`
	Side      string  `json:"side"` // "BUY" or "SELL"
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`  // base asset units
	Value     float64 `json:"value"` // quote asset value at fill
	PnL       float64 `json:"pnl"`   // realized, SELL rows only
	PnLPct    float64 `json:"pnl_pct"`
	Timestamp int64   `json:"timestamp"`
	Simulated bool    `json:"simulated"`
}

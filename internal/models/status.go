package models

import "gorm.io/gorm"

// Position states as reported in the status snapshot.
const (
	PositionFlat = "FLAT"
	PositionLong = "LONG"
)

// Status is the single-row live status snapshot. It is overwritten wholesale
// each cycle; no history is kept beyond the current row.
type Status struct {
	gorm.Model
	Price       float64 `json:"price"`
	Balance     float64 `json:"balance"`
	Position    string  `json:"position"` // "FLAT" or "LONG"
	Strategy    string  `json:"strategy"`
	HourlyTrend int     `json:"hourly_trend"` // -1, 0 or 1
	LastUpdated string  `json:"last_updated"`
}

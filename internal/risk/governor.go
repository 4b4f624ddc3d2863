// Package risk gates new entries against the operator's risk limits.
package risk

import (
	"time"

	"btc-trading-bot-go/internal/config"
	"go.uber.org/zap"
)

// Governor authorizes or denies new entries. It never touches exits: an open
// position can always be closed.
type Governor struct {
	logger    *zap.Logger
	cooldown  time.Duration
	lastEntry time.Time
	now       func() time.Time
}

// NewGovernor creates a governor with the given post-entry cooldown.
func NewGovernor(logger *zap.Logger, cooldown time.Duration) *Governor {
	return &Governor{
		logger:   logger,
		cooldown: cooldown,
		now:      time.Now,
	}
}

// CanTrade reports whether a new entry is authorized given the number of
// currently open positions and the risk parameters in effect right now.
func (g *Governor) CanTrade(openPositions int, cfg config.RiskConfig) bool {
	if openPositions >= cfg.MaxOpenPositions {
		g.logger.Warn("Entry denied: max open positions reached",
			zap.Int("open", openPositions),
			zap.Int("max", cfg.MaxOpenPositions))
		return false
	}
	if !g.lastEntry.IsZero() && g.now().Sub(g.lastEntry) < g.cooldown {
		g.logger.Warn("Entry denied: cooldown active",
			zap.Duration("cooldown", g.cooldown),
			zap.Time("last_entry", g.lastEntry))
		return false
	}
	return true
}

// RecordEntry stamps the cooldown clock after a successful buy.
func (g *Governor) RecordEntry() {
	g.lastEntry = g.now()
}

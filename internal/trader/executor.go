package trader

import (
	"context"
	"fmt"
	"time"

	"btc-trading-bot-go/internal/binance"
	"btc-trading-bot-go/internal/config"
	"btc-trading-bot-go/internal/models"
	"btc-trading-bot-go/internal/strategy"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	// dustThreshold is the base-asset quantity below which a balance is not
	// considered a position.
	dustThreshold = 0.0001

	// minNotional is the smallest quote value the exchange accepts for a
	// market order.
	minNotional = 5.0

	// spendFraction of the free quote balance is committed on each buy,
	// leaving headroom for fees.
	spendFraction = 0.99
)

// Executor owns the authoritative position belief in live mode: it is the
// only component allowed to mutate real (or simulated) exchange balances.
type Executor interface {
	// SyncPosition reconciles the internal position mirror against the
	// exchange-reported balance. Called once on startup.
	SyncPosition(ctx context.Context) error

	// HasPosition is a pure read of the mirrored state.
	HasPosition() bool

	// Position returns the mirrored open position, or nil when flat.
	Position() *strategy.Position

	// QuoteBalance returns the free quote-asset balance.
	QuoteBalance(ctx context.Context) (float64, error)

	// Buy opens a long with a fixed fraction of the free quote balance.
	Buy(ctx context.Context) error

	// Sell closes the full held base balance.
	Sell(ctx context.Context) error
}

// BinanceExecutor executes against the Binance spot API, or simulates fills
// at the quoted price in dry-run mode. Every successful buy/sell appends an
// immutable row to the trade audit log.
type BinanceExecutor struct {
	logger   *zap.Logger
	client   binance.RestClientInterface
	db       *gorm.DB
	trading  config.Trading
	position *strategy.Position
}

var _ Executor = (*BinanceExecutor)(nil)

// NewBinanceExecutor creates an executor for the configured symbol.
func NewBinanceExecutor(logger *zap.Logger, client binance.RestClientInterface, db *gorm.DB, trading config.Trading) *BinanceExecutor {
	return &BinanceExecutor{
		logger:  logger,
		client:  client,
		db:      db,
		trading: trading,
	}
}

// SyncPosition restores the position mirror from the exchange balance on
// startup. The true entry price is unknowable from a balance alone, so it is
// approximated by the current market price: stop-loss and take-profit
// effectively reset on restart. Logged loudly for the operator.
func (e *BinanceExecutor) SyncPosition(ctx context.Context) error {
	balances, err := e.client.GetBalances()
	if err != nil {
		return fmt.Errorf("failed to sync position: %w", err)
	}

	baseFree := balances[e.trading.BaseAsset]
	if baseFree <= dustThreshold {
		e.logger.Info("No existing position found, ready to buy",
			zap.Float64("base_free", baseFree),
			zap.Float64("quote_free", balances[e.trading.QuoteAsset]))
		e.position = nil
		return nil
	}

	price, err := e.client.GetTickerPrice(e.trading.Symbol)
	if err != nil {
		return fmt.Errorf("failed to price restored position: %w", err)
	}

	e.logger.Warn("Restoring position from exchange balance; entry price unknown, approximating with current market price",
		zap.Float64("size", baseFree),
		zap.Float64("approx_entry", price))

	e.position = &strategy.Position{
		EntryPrice: price,
		Size:       baseFree,
		EntryTime:  time.Now().UTC(),
		Capital:    price * baseFree,
	}
	return nil
}

// HasPosition is a pure read of the mirrored state.
func (e *BinanceExecutor) HasPosition() bool {
	return e.position != nil
}

// Position returns the mirrored open position, or nil when flat.
func (e *BinanceExecutor) Position() *strategy.Position {
	return e.position
}

// QuoteBalance returns the free quote-asset balance.
func (e *BinanceExecutor) QuoteBalance(ctx context.Context) (float64, error) {
	balances, err := e.client.GetBalances()
	if err != nil {
		return 0, fmt.Errorf("failed to get quote balance: %w", err)
	}
	return balances[e.trading.QuoteAsset], nil
}

// Buy commits spendFraction of the free quote balance at market. Below the
// minimum notional the buy is skipped with a warning and no state changes.
// Any exchange failure leaves the mirror untouched; the next cycle retries
// from the same state.
func (e *BinanceExecutor) Buy(ctx context.Context) error {
	balances, err := e.client.GetBalances()
	if err != nil {
		return fmt.Errorf("buy aborted: %w", err)
	}
	quoteFree := balances[e.trading.QuoteAsset]

	price, err := e.client.GetTickerPrice(e.trading.Symbol)
	if err != nil {
		return fmt.Errorf("buy aborted: %w", err)
	}

	spend := quoteFree * spendFraction
	if spend < minNotional {
		e.logger.Warn("Insufficient funds to buy, skipping",
			zap.Float64("quote_free", quoteFree),
			zap.Float64("min_notional", minNotional))
		return nil
	}
	size := spend / price

	fillPrice := price
	if !e.trading.DryRun {
		order, err := e.client.CreateOrder(e.trading.Symbol, binance.OrderSideBuy, size)
		if err != nil {
			return fmt.Errorf("buy order failed: %w", err)
		}
		if p := order.FillPrice(); p > 0 {
			fillPrice = p
		}
	} else {
		e.logger.Info("[SIM] Market buy", zap.Float64("size", size), zap.Float64("price", price))
	}

	e.position = &strategy.Position{
		EntryPrice: fillPrice,
		Size:       size,
		EntryTime:  time.Now().UTC(),
		Capital:    spend,
	}
	e.logger.Info("Position opened",
		zap.Float64("entry", fillPrice),
		zap.Float64("size", size),
		zap.Bool("simulated", e.trading.DryRun))

	e.appendAudit(models.SideBuy, fillPrice, size, 0, 0)
	return nil
}

// Sell closes the full held base balance at market, realizing PnL against
// the mirrored entry price.
func (e *BinanceExecutor) Sell(ctx context.Context) error {
	balances, err := e.client.GetBalances()
	if err != nil {
		return fmt.Errorf("sell aborted: %w", err)
	}
	baseFree := balances[e.trading.BaseAsset]
	if baseFree <= dustThreshold {
		e.logger.Warn("No base asset to sell, clearing position mirror",
			zap.Float64("base_free", baseFree))
		e.position = nil
		return nil
	}

	price, err := e.client.GetTickerPrice(e.trading.Symbol)
	if err != nil {
		return fmt.Errorf("sell aborted: %w", err)
	}

	fillPrice := price
	if !e.trading.DryRun {
		order, err := e.client.CreateOrder(e.trading.Symbol, binance.OrderSideSell, baseFree)
		if err != nil {
			return fmt.Errorf("sell order failed: %w", err)
		}
		if p := order.FillPrice(); p > 0 {
			fillPrice = p
		}
	} else {
		e.logger.Info("[SIM] Market sell", zap.Float64("size", baseFree), zap.Float64("price", price))
	}

	var pnl, pnlPct float64
	if e.position != nil && e.position.EntryPrice > 0 {
		pnl = (fillPrice - e.position.EntryPrice) * baseFree
		pnlPct = (fillPrice - e.position.EntryPrice) / e.position.EntryPrice * 100
	}

	e.logger.Info("Position closed",
		zap.Float64("exit", fillPrice),
		zap.Float64("size", baseFree),
		zap.Float64("pnl", pnl),
		zap.Bool("simulated", e.trading.DryRun))

	e.appendAudit(models.SideSell, fillPrice, baseFree, pnl, pnlPct)
	e.position = nil
	return nil
}

// appendAudit adds one immutable row to the trade audit log. A persistence
// failure is logged but never rolls back the executed trade: the exchange
// state has already moved.
func (e *BinanceExecutor) appendAudit(side string, price, size, pnl, pnlPct float64) {
	trade := models.Trade{
		Symbol:    e.trading.Symbol,
		Side:      side,
		Price:     price,
		Size:      size,
		Value:     price * size,
		PnL:       pnl,
		PnLPct:    pnlPct,
		Timestamp: time.Now().Unix(),
		Simulated: e.trading.DryRun,
	}
	if err := e.db.Create(&trade).Error; err != nil {
		e.logger.Error("Failed to append trade audit row", zap.Error(err))
	}
}

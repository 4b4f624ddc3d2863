package trader

import (
	"context"
	"fmt"
	"time"

	"btc-trading-bot-go/internal/config"
	"btc-trading-bot-go/internal/market"
	"btc-trading-bot-go/internal/models"
	"btc-trading-bot-go/internal/risk"
	"btc-trading-bot-go/internal/status"
	"btc-trading-bot-go/internal/strategy"
	"go.uber.org/zap"
)

const (
	// boundaryBuffer is added after the candle boundary so the exchange has
	// definitely sealed the bar before we fetch it.
	boundaryBuffer = time.Second

	// errorCooldown guards against a tight crash loop after a failed cycle.
	errorCooldown = 10 * time.Second
)

// LiveEngine drives the strategy over wall-clock time: sleep to the next
// candle boundary, fetch, decide, act. Strictly sequential; a cycle never
// starts before the previous one finished.
type LiveEngine struct {
	logger      *zap.Logger
	strat       strategy.Strategy
	feed        market.DataFeed
	executor    Executor
	governor    *risk.Governor
	riskStore   *config.RiskStore
	statusStore *status.Store

	// dynamic is non-nil iff the strategy supports live parameter updates.
	// Resolved once here, never probed per call.
	dynamic  strategy.DynamicParams
	interval time.Duration

	now func() time.Time
}

// NewLiveEngine wires the live trading loop. An unrecognized strategy
// timeframe falls back to a 60s interval; this mirrors long-standing bot
// behavior and is logged rather than treated as an error.
func NewLiveEngine(logger *zap.Logger, strat strategy.Strategy, feed market.DataFeed, executor Executor,
	governor *risk.Governor, riskStore *config.RiskStore, statusStore *status.Store) *LiveEngine {

	interval, ok := market.IntervalDuration(strat.Timeframe())
	if !ok {
		logger.Warn("Unrecognized strategy timeframe, defaulting interval to 60s",
			zap.String("timeframe", strat.Timeframe()))
		interval = time.Minute
	}

	dynamic, _ := strat.(strategy.DynamicParams)

	logger.Info("Live engine initialized",
		zap.String("strategy", strat.Name()),
		zap.Duration("interval", interval),
		zap.Bool("dynamic_params", dynamic != nil))

	return &LiveEngine{
		logger:      logger,
		strat:       strat,
		feed:        feed,
		executor:    executor,
		governor:    governor,
		riskStore:   riskStore,
		statusStore: statusStore,
		dynamic:     dynamic,
		interval:    interval,
		now:         time.Now,
	}
}

// Run executes the polling loop until the context is cancelled. Any error
// from a cycle is logged and followed by a fixed cooldown; the loop itself
// never terminates on its own.
func (e *LiveEngine) Run(ctx context.Context) {
	e.logger.Info("Starting live trading loop")

	if err := e.executor.SyncPosition(ctx); err != nil {
		e.logger.Error("Startup position sync failed, assuming flat", zap.Error(err))
	}

	for {
		if err := e.sleepUntilBoundary(ctx); err != nil {
			e.logger.Info("Stopping live trading loop")
			return
		}

		if err := e.cycle(ctx); err != nil {
			e.logger.Error("Cycle failed", zap.Error(err))
			select {
			case <-time.After(errorCooldown):
			case <-ctx.Done():
				e.logger.Info("Stopping live trading loop")
				return
			}
		}
	}
}

// sleepUntilBoundary blocks until just after the next candle close: the
// smallest interval multiple at or past now, plus a fixed buffer.
func (e *LiveEngine) sleepUntilBoundary(ctx context.Context) error {
	now := e.now()
	boundary := now.Truncate(e.interval)
	if boundary.Before(now) {
		boundary = boundary.Add(e.interval)
	}
	sleep := boundary.Sub(now) + boundaryBuffer

	e.logger.Info("Waiting for candle close", zap.Duration("sleep", sleep))
	select {
	case <-time.After(sleep):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cycle runs one fetch-decide-act pass. Data insufficiency skips the cycle
// with a warning and no state change; external failures propagate to the
// single top-level handler in Run.
func (e *LiveEngine) cycle(ctx context.Context) error {
	// Risk parameters are live-editable; reload them every cycle so changes
	// apply to the very next evaluation.
	riskCfg := e.riskStore.Load()
	if e.dynamic != nil {
		e.dynamic.UpdateParameters(riskCfg)
	}

	candles, err := e.feed.Latest(ctx)
	if err != nil {
		return fmt.Errorf("data fetch failed: %w", err)
	}
	candles = e.dropFormingCandle(candles)
	if len(candles) < strategy.MinLookback {
		e.logger.Warn("Insufficient data, retrying next cycle",
			zap.Int("rows", len(candles)),
			zap.Int("required", strategy.MinLookback))
		return nil
	}
	currentPrice := candles[len(candles)-1].Close

	trend, err := e.feed.HourlyTrend(ctx)
	if err != nil {
		e.logger.Warn("Hourly trend unavailable", zap.Error(err))
		trend = market.TrendFlat
	}

	e.writeStatus(ctx, currentPrice, trend)

	rows := strategy.DropInvalid(e.strat.Indicators(candles))
	if len(rows) == 0 {
		e.logger.Warn("No usable feature rows after warm-up filtering, skipping cycle")
		return nil
	}

	if !e.executor.HasPosition() {
		if e.strat.ShouldEnter(rows) {
			if !e.governor.CanTrade(0, riskCfg) {
				return nil
			}
			e.logger.Info("Entry signal detected", zap.Float64("price", currentPrice))
			if err := e.executor.Buy(ctx); err != nil {
				return err
			}
			// Buy can decline without error (below the notional floor);
			// the cooldown only starts on an actual fill.
			if e.executor.HasPosition() {
				e.governor.RecordEntry()
			}
		}
		return nil
	}

	if e.strat.ShouldExit(rows, e.executor.Position()) {
		e.logger.Info("Exit signal detected", zap.Float64("price", currentPrice))
		return e.executor.Sell(ctx)
	}
	return nil
}

// dropFormingCandle removes a trailing candle whose interval has not elapsed
// yet. Decisions must only ever see fully-closed bars.
func (e *LiveEngine) dropFormingCandle(candles []market.Candle) []market.Candle {
	if len(candles) == 0 {
		return candles
	}
	last := candles[len(candles)-1]
	if last.OpenTime.Add(e.interval).After(e.now()) {
		return candles[:len(candles)-1]
	}
	return candles
}

// writeStatus persists the dashboard snapshot. Best-effort: a failure here
// must never abort the decision logic.
func (e *LiveEngine) writeStatus(ctx context.Context, price float64, trend int) {
	positionState := models.PositionFlat
	if e.executor.HasPosition() {
		positionState = models.PositionLong
	}

	balance, err := e.executor.QuoteBalance(ctx)
	if err != nil {
		e.logger.Warn("Balance unavailable for status snapshot", zap.Error(err))
	}

	snapshot := models.Status{
		Price:       price,
		Balance:     balance,
		Position:    positionState,
		Strategy:    e.strat.Name(),
		HourlyTrend: trend,
	}
	if err := e.statusStore.Write(snapshot); err != nil {
		e.logger.Warn("Failed to persist status snapshot", zap.Error(err))
	}
}

package trader

import (
	"fmt"

	"btc-trading-bot-go/internal/market"
	"btc-trading-bot-go/internal/strategy"
	"go.uber.org/zap"
)

// StartingEquity is the fixed capital every backtest begins with.
const StartingEquity = 10000.0

// BacktestEngine replays a fixed historical candle sequence bar by bar
// through a strategy, keeping a synthetic position ledger. Fills are
// instantaneous at the bar close: no slippage model, no partial fills.
type BacktestEngine struct {
	logger      *zap.Logger
	strat       strategy.Strategy
	candles     []market.Candle
	compounding bool
	fixedStake  float64
}

// Result carries the final state of a completed replay.
type Result struct {
	FinalEquity float64
	Trades      []ClosedTrade
	Summary     Summary
}

// NewBacktestEngine creates a replay over the given candles. With
// compounding enabled every entry commits the full current equity; otherwise
// min(fixedStake, equity).
func NewBacktestEngine(logger *zap.Logger, strat strategy.Strategy, candles []market.Candle, compounding bool, fixedStake float64) *BacktestEngine {
	return &BacktestEngine{
		logger:      logger,
		strat:       strat,
		candles:     candles,
		compounding: compounding,
		fixedStake:  fixedStake,
	}
}

// Run executes the replay and computes the post-run statistics. It fails
// before simulating anything if the history is malformed or too short; there
// is no partial-run recovery.
func (e *BacktestEngine) Run() (*Result, error) {
	if err := market.Validate(e.candles); err != nil {
		return nil, fmt.Errorf("invalid historical data: %w", err)
	}
	if len(e.candles) <= strategy.MinLookback {
		return nil, fmt.Errorf("insufficient historical data: %d candles, need more than %d",
			len(e.candles), strategy.MinLookback)
	}

	e.logger.Info("Starting backtest",
		zap.String("strategy", e.strat.Name()),
		zap.Int("candles", len(e.candles)),
		zap.Bool("compounding", e.compounding),
		zap.Float64("starting_equity", StartingEquity))

	// Indicators are precomputed once over the full history; causality is
	// preserved below by only ever handing the strategy a strict prefix.
	rows := e.strat.Indicators(e.candles)

	equity := StartingEquity
	var position *strategy.Position
	var trades []ClosedTrade

	// window accumulates the valid rows of the prefix ending at the current
	// bar, so each decision sees exactly the defined history up to now.
	window := make([]strategy.FeatureRow, 0, len(rows))
	for i := 0; i < strategy.MinLookback && i < len(rows); i++ {
		if rows[i].Valid {
			window = append(window, rows[i])
		}
	}

	for i := strategy.MinLookback; i < len(rows); i++ {
		if !rows[i].Valid {
			continue
		}
		window = append(window, rows[i])
		current := &rows[i]

		if position == nil {
			if e.strat.ShouldEnter(window) {
				capital := e.fixedStake
				if e.compounding {
					capital = equity
				} else if equity < capital {
					capital = equity
				}
				position = &strategy.Position{
					EntryPrice: current.Close,
					Size:       capital / current.Close,
					EntryTime:  current.OpenTime,
					Capital:    capital,
				}
			}
			continue
		}

		if e.strat.ShouldExit(window, position) {
			exitPrice := current.Close
			pnl := position.Size * (exitPrice - position.EntryPrice)
			equity += pnl

			trades = append(trades, ClosedTrade{
				EntryPrice: position.EntryPrice,
				ExitPrice:  exitPrice,
				Size:       position.Size,
				EntryTime:  position.EntryTime,
				ExitTime:   current.OpenTime,
				PnL:        pnl,
				PnLPct:     (exitPrice - position.EntryPrice) / position.EntryPrice,
				Duration:   current.OpenTime.Sub(position.EntryTime),
			})
			position = nil
		}
	}

	e.logger.Info("Backtest finished",
		zap.Float64("final_equity", equity),
		zap.Int("trades", len(trades)))

	return &Result{
		FinalEquity: equity,
		Trades:      trades,
		Summary:     ComputeSummary(trades, StartingEquity),
	}, nil
}

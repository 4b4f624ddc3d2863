package trader

import (
	"testing"
	"time"

	"btc-trading-bot-go/internal/market"
	"btc-trading-bot-go/internal/strategy"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

// scriptedStrategy is a deterministic test double: it marks every row valid,
// enters on a single-bar threshold cross and exits at a fixed take-profit.
type scriptedStrategy struct {
	threshold  float64
	takeProfit float64
	calls      []string // records "enter"/"exit" evaluation order
}

func (s *scriptedStrategy) Name() string      { return "scripted" }
func (s *scriptedStrategy) Timeframe() string { return "1m" }

func (s *scriptedStrategy) Indicators(candles []market.Candle) []strategy.FeatureRow {
	rows := make([]strategy.FeatureRow, len(candles))
	for i, c := range candles {
		rows[i] = strategy.FeatureRow{Candle: c, Valid: true}
	}
	return rows
}

func (s *scriptedStrategy) ShouldEnter(rows []strategy.FeatureRow) bool {
	s.calls = append(s.calls, "enter")
	if len(rows) < 2 {
		return false
	}
	last := rows[len(rows)-1]
	prev := rows[len(rows)-2]
	return last.Close > s.threshold && prev.Close <= s.threshold
}

func (s *scriptedStrategy) ShouldExit(rows []strategy.FeatureRow, pos *strategy.Position) bool {
	s.calls = append(s.calls, "exit")
	last := rows[len(rows)-1]
	return last.Close >= pos.EntryPrice*(1+s.takeProfit)
}

// churnStrategy enters on every bar while flat and exits on the next bar.
type churnStrategy struct{ scriptedStrategy }

func (s *churnStrategy) ShouldEnter(rows []strategy.FeatureRow) bool {
	s.calls = append(s.calls, "enter")
	return true
}

func (s *churnStrategy) ShouldExit(rows []strategy.FeatureRow, pos *strategy.Position) bool {
	s.calls = append(s.calls, "exit")
	return true
}

// risingCandles produces n one-minute candles with closes 100+i.
func risingCandles(n int) []market.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]market.Candle, n)
	for i := range candles {
		c := 100.0 + float64(i)
		candles[i] = market.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Minute),
			Open:     c, High: c + 1, Low: c - 1, Close: c, Volume: 1,
		}
	}
	return candles
}

func TestBacktest_InsufficientDataAborts(t *testing.T) {
	s := &scriptedStrategy{threshold: 300, takeProfit: 0.01}
	engine := NewBacktestEngine(zap.NewNop(), s, risingCandles(50), false, 10000)

	_, err := engine.Run()

	assert.Error(t, err)
	// Nothing was evaluated: the abort happens before simulation starts.
	assert.Empty(t, s.calls)
}

func TestBacktest_SingleBreakoutScenario(t *testing.T) {
	// 300 strictly increasing closes; threshold 300 crosses exactly once at
	// bar 201 (close 301). Take-profit 1% triggers at close >= 304.01.
	s := &scriptedStrategy{threshold: 300, takeProfit: 0.01}
	engine := NewBacktestEngine(zap.NewNop(), s, risingCandles(300), false, 10000)

	res, err := engine.Run()

	assert.NoError(t, err)
	assert.Len(t, res.Trades, 1)

	trade := res.Trades[0]
	assert.Equal(t, 301.0, trade.EntryPrice)
	assert.Equal(t, 305.0, trade.ExitPrice)
	assert.InDelta(t, 10000.0/301.0, trade.Size, 1e-9)

	// Equity moved by exactly size * (exit - entry).
	expectedPnL := trade.Size * (trade.ExitPrice - trade.EntryPrice)
	assert.InDelta(t, expectedPnL, trade.PnL, 1e-9)
	assert.InDelta(t, StartingEquity+expectedPnL, res.FinalEquity, 1e-9)
}

func TestBacktest_StateMachineExclusivity(t *testing.T) {
	s := &churnStrategy{}
	engine := NewBacktestEngine(zap.NewNop(), s, risingCandles(210), false, 10000)

	_, err := engine.Run()
	assert.NoError(t, err)

	// While flat only ShouldEnter is evaluated, while long only ShouldExit:
	// with a strategy that always fires, the calls must strictly alternate.
	assert.NotEmpty(t, s.calls)
	for i, call := range s.calls {
		if i%2 == 0 {
			assert.Equal(t, "enter", call, "call %d", i)
		} else {
			assert.Equal(t, "exit", call, "call %d", i)
		}
	}
}

func TestBacktest_Deterministic(t *testing.T) {
	candles := risingCandles(300)

	run := func() []ClosedTrade {
		s := &scriptedStrategy{threshold: 300, takeProfit: 0.01}
		res, err := NewBacktestEngine(zap.NewNop(), s, candles, false, 10000).Run()
		assert.NoError(t, err)
		return res.Trades
	}

	assert.Equal(t, run(), run())
}

func TestBacktest_FixedStakeSizing(t *testing.T) {
	s := &churnStrategy{}
	engine := NewBacktestEngine(zap.NewNop(), s, risingCandles(260), false, 10000)

	res, err := engine.Run()
	assert.NoError(t, err)
	assert.NotEmpty(t, res.Trades)

	// With compounding off, committed capital never exceeds the fixed stake.
	for _, tr := range res.Trades {
		committed := tr.Size * tr.EntryPrice
		assert.LessOrEqual(t, committed, 10000.0+1e-9)
	}
}

func TestBacktest_CompoundingSizing(t *testing.T) {
	s := &churnStrategy{}
	engine := NewBacktestEngine(zap.NewNop(), s, risingCandles(260), true, 10000)

	res, err := engine.Run()
	assert.NoError(t, err)
	assert.NotEmpty(t, res.Trades)

	// With compounding on, committed capital equals equity at entry time.
	equity := StartingEquity
	for _, tr := range res.Trades {
		committed := tr.Size * tr.EntryPrice
		assert.InDelta(t, equity, committed, 1e-6)
		equity += tr.PnL
	}
	assert.InDelta(t, equity, res.FinalEquity, 1e-6)
}

func TestBacktest_InvalidRowsNeverDecided(t *testing.T) {
	// A strategy whose rows are all invalid must never be asked to decide.
	s := &scriptedStrategy{threshold: 0, takeProfit: 0.01}
	candles := risingCandles(250)

	engine := NewBacktestEngine(zap.NewNop(), &invalidRowsStrategy{inner: s}, candles, false, 10000)
	res, err := engine.Run()

	assert.NoError(t, err)
	assert.Empty(t, res.Trades)
	assert.Empty(t, s.calls)
}

// invalidRowsStrategy wraps another strategy but marks every row invalid.
type invalidRowsStrategy struct {
	inner *scriptedStrategy
}

func (s *invalidRowsStrategy) Name() string      { return "invalid" }
func (s *invalidRowsStrategy) Timeframe() string { return "1m" }

func (s *invalidRowsStrategy) Indicators(candles []market.Candle) []strategy.FeatureRow {
	rows := s.inner.Indicators(candles)
	for i := range rows {
		rows[i].Valid = false
	}
	return rows
}

func (s *invalidRowsStrategy) ShouldEnter(rows []strategy.FeatureRow) bool {
	return s.inner.ShouldEnter(rows)
}

func (s *invalidRowsStrategy) ShouldExit(rows []strategy.FeatureRow, pos *strategy.Position) bool {
	return s.inner.ShouldExit(rows, pos)
}

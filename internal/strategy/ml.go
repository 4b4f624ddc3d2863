package strategy

import (
	"btc-trading-bot-go/internal/config"
	"btc-trading-bot-go/internal/market"
	"btc-trading-bot-go/internal/ml"
	"go.uber.org/zap"
)

// Default stop/target fractions until the first UpdateParameters call.
const (
	defaultStopLoss   = 0.0035
	defaultTakeProfit = 0.0035
)

// MLBreakout gates the breakout edge trigger behind a trained classifier:
// the entry only fires when the model's probability clears the tuned
// threshold. Exits are pure price thresholds relative to the entry, derived
// from the live-editable risk parameters.
type MLBreakout struct {
	name      string
	timeframe string
	predictor ml.Predictor
	threshold float64
	logger    *zap.Logger

	stopLoss   float64
	takeProfit float64
}

var (
	_ Strategy      = (*MLBreakout)(nil)
	_ DynamicParams = (*MLBreakout)(nil)
)

// NewMLBreakout creates an ML-gated breakout strategy. A nil predictor is
// allowed: the strategy then rejects every entry, which keeps a bot with a
// missing model file safely flat.
func NewMLBreakout(name, timeframe string, predictor ml.Predictor, threshold float64, logger *zap.Logger) *MLBreakout {
	return &MLBreakout{
		name:       name,
		timeframe:  timeframe,
		predictor:  predictor,
		threshold:  threshold,
		logger:     logger,
		stopLoss:   defaultStopLoss,
		takeProfit: defaultTakeProfit,
	}
}

// NewMLBreakout1m is the 1-minute scalper variant.
func NewMLBreakout1m(predictor ml.Predictor, threshold float64, logger *zap.Logger) *MLBreakout {
	return NewMLBreakout("btc_ml_1m", "1m", predictor, threshold, logger)
}

// NewMLBreakout5m is the 5-minute variant.
func NewMLBreakout5m(predictor ml.Predictor, threshold float64, logger *zap.Logger) *MLBreakout {
	return NewMLBreakout("btc_ml_5m", "5m", predictor, threshold, logger)
}

func (s *MLBreakout) Name() string {
	return s.name
}

func (s *MLBreakout) Timeframe() string {
	return s.timeframe
}

// UpdateParameters applies the current risk configuration. Percent values
// are converted to fractions; non-positive values keep the previous ones.
func (s *MLBreakout) UpdateParameters(cfg config.RiskConfig) {
	if cfg.StopLossPct > 0 {
		s.stopLoss = cfg.StopLossPct / 100.0
	}
	if cfg.TakeProfitPct > 0 {
		s.takeProfit = cfg.TakeProfitPct / 100.0
	}
}

func (s *MLBreakout) Indicators(candles []market.Candle) []FeatureRow {
	return ComputeFeatures(candles)
}

// ShouldEnter fires only on a fresh breakout confirmed by the classifier.
func (s *MLBreakout) ShouldEnter(rows []FeatureRow) bool {
	if s.predictor == nil || len(rows) < 2 {
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

	prob, err := s.predictor.Predict(FeatureVector(current))
	if err != nil {
		s.logger.Error("ML prediction failed", zap.Error(err))
		return false
	}

	l := s.logger.With(
		zap.Float64("price", current.Close),
		zap.Float64("rsi", current.RSI),
		zap.Float64("adx", current.ADX),
		zap.Float32("probability", prob),
		zap.Float64("threshold", s.threshold),
	)
	if float64(prob) >= s.threshold {
		l.Info("Breakout confirmed by model, going long")
		return true
	}
	l.Info("Breakout rejected by model, low confidence")
	return false
}

// ShouldExit checks the dynamic take-profit and stop-loss thresholds against
// the entry price. The fractions reflect the risk config at call time.
func (s *MLBreakout) ShouldExit(rows []FeatureRow, position *Position) bool {
	if len(rows) == 0 || position == nil {
		return false
	}
	current := &rows[len(rows)-1]

	if current.Close >= position.EntryPrice*(1+s.takeProfit) {
		return true
	}
	if current.Close <= position.EntryPrice*(1-s.stopLoss) {
		return true
	}
	return false
}

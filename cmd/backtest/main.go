package main

import (
	"flag"
	"fmt"
	"os"

	"btc-trading-bot-go/internal/market"
	"btc-trading-bot-go/internal/ml"
	"btc-trading-bot-go/internal/strategy"
	"btc-trading-bot-go/internal/trader"
	"go.uber.org/zap"
)

func main() {
	var (
		csvPath       = flag.String("csv", "data/historical/BTC_USDT_5m.csv", "path to historical candle CSV")
		strategyName  = flag.String("strategy", "ml_5m", "strategy to replay: breakout, ml_1m or ml_5m")
		compounding   = flag.Bool("compounding", false, "reinvest profits instead of a fixed stake")
		stake         = flag.Float64("stake", 10000, "fixed stake per trade when compounding is off")
		days          = flag.Int("days", 365, "trailing days of history to replay (0 = all)")
		modelPath     = flag.String("model", "models/btc_classifier.onnx", "path to the ONNX classifier")
		thresholdPath = flag.String("threshold", "models/btc_classifier_threshold.json", "path to the tuned threshold sidecar")
		libraryPath   = flag.String("onnx-lib", "", "override path to the onnxruntime shared library")
	)
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	candles, err := market.LoadCSV(*csvPath)
	if err != nil {
		log.Fatal("Failed to load historical data", zap.String("path", *csvPath), zap.Error(err))
	}
	log.Info("Historical data loaded", zap.Int("candles", len(candles)), zap.String("path", *csvPath))

	if *days > 0 && len(candles) > 0 {
		cutoff := candles[len(candles)-1].OpenTime.AddDate(0, 0, -*days)
		candles = market.FilterSince(candles, cutoff)
		log.Info("Filtered to trailing window",
			zap.Int("days", *days),
			zap.Int("candles", len(candles)),
			zap.Time("cutoff", cutoff))
	}

	strat, err := buildStrategy(*strategyName, *modelPath, *thresholdPath, *libraryPath, log)
	if err != nil {
		log.Fatal("Failed to build strategy", zap.Error(err))
	}

	engine := trader.NewBacktestEngine(log, strat, candles, *compounding, *stake)
	result, err := engine.Run()
	if err != nil {
		log.Fatal("Backtest failed", zap.Error(err))
	}

	fmt.Println(result.Summary.Render())
}

func buildStrategy(name, modelPath, thresholdPath, libraryPath string, log *zap.Logger) (strategy.Strategy, error) {
	switch name {
	case "breakout":
		return strategy.NewVolatilityBreakout(), nil
	case "ml_1m", "ml_5m":
		model, err := ml.NewModel(modelPath, libraryPath)
		if err != nil {
			return nil, fmt.Errorf("could not load classifier: %w", err)
		}
		threshold := ml.LoadThreshold(thresholdPath, ml.DefaultThreshold)
		if name == "ml_1m" {
			return strategy.NewMLBreakout1m(model, threshold, log), nil
		}
		return strategy.NewMLBreakout5m(model, threshold, log), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

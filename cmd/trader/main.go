package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"btc-trading-bot-go/internal/binance"
	"btc-trading-bot-go/internal/config"
	"btc-trading-bot-go/internal/database"
	"btc-trading-bot-go/internal/logger"
	"btc-trading-bot-go/internal/market"
	"btc-trading-bot-go/internal/ml"
	"btc-trading-bot-go/internal/risk"
	"btc-trading-bot-go/internal/status"
	"btc-trading-bot-go/internal/strategy"
	"btc-trading-bot-go/internal/trader"
	"go.uber.org/zap"
)

// entryCooldown throttles back-to-back entries after a buy.
const entryCooldown = time.Minute

func main() {
	// Load application configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		// We can't use the logger here because it's not initialized yet.
		fmt.Fprintf(os.Stderr, "could not load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("Configuration loaded")

	// Initialize database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connection successful and schema migrated.")

	// Initialize Binance REST client
	restClient := binance.NewRestClient(&cfg.Binance, log)
	if _, err := restClient.GetServerTime(); err != nil {
		log.Fatal("Failed to connect to Binance API", zap.Error(err))
	}
	log.Info("Successfully connected to Binance API.")

	strat, err := buildStrategy(&cfg, log)
	if err != nil {
		log.Fatal("Failed to build strategy", zap.Error(err))
	}
	log.Info("Strategy selected", zap.String("strategy", strat.Name()))

	feed := market.NewBinanceFeed(restClient, log, cfg.Trading.Symbol, strat.Timeframe(), cfg.Trading.CandleLimit)
	executor := trader.NewBinanceExecutor(log, restClient, db, cfg.Trading)
	governor := risk.NewGovernor(log, entryCooldown)
	riskStore := config.NewRiskStore(cfg.Trading.RiskConfig)
	statusStore := status.NewStore(db)

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		sigchan := make(chan os.Signal, 1)
		signal.Notify(sigchan, syscall.SIGINT, syscall.SIGTERM)
		<-sigchan
		log.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	engine := trader.NewLiveEngine(log, strat, feed, executor, governor, riskStore, statusStore)
	engine.Run(ctx)

	log.Info("Bot has been shut down.")
}

// buildStrategy resolves the configured strategy name. The ML variants share
// one classifier; only the candle timeframe differs.
func buildStrategy(cfg *config.Config, log *zap.Logger) (strategy.Strategy, error) {
	switch cfg.Trading.Strategy {
	case "breakout":
		return strategy.NewVolatilityBreakout(), nil
	case "ml_1m", "ml_5m":
		model, err := ml.NewModel(cfg.Model.Path, cfg.Model.LibraryPath)
		if err != nil {
			return nil, fmt.Errorf("could not load classifier: %w", err)
		}
		threshold := ml.LoadThreshold(cfg.Model.ThresholdPath, ml.DefaultThreshold)
		if cfg.Trading.Strategy == "ml_1m" {
			return strategy.NewMLBreakout1m(model, threshold, log), nil
		}
		return strategy.NewMLBreakout5m(model, threshold, log), nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", cfg.Trading.Strategy)
	}
}

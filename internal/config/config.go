package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all static configuration for the application.
type Config struct {
	Binance  Binance  `mapstructure:"binance"`
	Trading  Trading  `mapstructure:"trading"`
	Logger   Logger   `mapstructure:"logger"`
	Server   Server   `mapstructure:"server"`
	Database Database `mapstructure:"database"`
	Model    Model    `mapstructure:"model"`
	Jobs     Jobs     `mapstructure:"jobs"`
}

// Binance holds the configuration for the Binance API.
type Binance struct {
	ApiKey         string  `mapstructure:"apiKey"`
	SecretKey      string  `mapstructure:"secretKey"`
	Testnet        bool    `mapstructure:"testnet"`
	RateLimit      float64 `mapstructure:"rate_limit"`
	RateLimitBurst int     `mapstructure:"rate_limit_burst"`
}

// Server holds the configuration for the operator API server.
type Server struct {
	Port         int    `mapstructure:"port"`
	DashboardKey string `mapstructure:"dashboard_key"`
}

// Database holds the configuration for the database.
type Database struct {
	DSN string `mapstructure:"dsn"`
}

// Trading holds the configuration for the trading logic.
type Trading struct {
	Symbol      string  `mapstructure:"symbol"`       // e.g. "BTCUSDT"
	BaseAsset   string  `mapstructure:"base_asset"`   // e.g. "BTC"
	QuoteAsset  string  `mapstructure:"quote_asset"`  // e.g. "USDT"
	Strategy    string  `mapstructure:"strategy"`     // "breakout", "ml_1m" or "ml_5m"
	DryRun      bool    `mapstructure:"dry_run"`
	Compounding bool    `mapstructure:"compounding"`
	FixedStake  float64 `mapstructure:"fixed_stake"`
	CandleLimit int     `mapstructure:"candle_limit"`
	RiskConfig  string  `mapstructure:"risk_config"` // path to the live-editable risk file
}

// Model holds the configuration for the ML classifier.
type Model struct {
	Path          string `mapstructure:"path"`
	ThresholdPath string `mapstructure:"threshold_path"`
	LibraryPath   string `mapstructure:"library_path"`
}

// Jobs holds the operator-triggered maintenance commands.
type Jobs struct {
	BacktestCmd []string `mapstructure:"backtest_cmd"`
	RetrainCmd  []string `mapstructure:"retrain_cmd"`
}

// Logger holds the configuration for the logger.
type Logger struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")

	// Allow environment variables to override config file
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("binance.rate_limit", 20)      // requests per second
	viper.SetDefault("binance.rate_limit_burst", 5) // burst size
	viper.SetDefault("trading.symbol", "BTCUSDT")
	viper.SetDefault("trading.base_asset", "BTC")
	viper.SetDefault("trading.quote_asset", "USDT")
	viper.SetDefault("trading.strategy", "ml_5m")
	viper.SetDefault("trading.dry_run", true)
	viper.SetDefault("trading.fixed_stake", 10000.0)
	viper.SetDefault("trading.candle_limit", 400)
	viper.SetDefault("trading.risk_config", "data/config.json")
	viper.SetDefault("database.dsn", "data/bot.db")

	err = viper.ReadInConfig()
	if err != nil {
		return
	}

	err = viper.Unmarshal(&config)
	return
}

package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// RiskConfig holds the live-editable risk parameters. The live engine reloads
// it at the start of every cycle, so operator edits apply to the very next
// entry/exit evaluation, never retroactively to a frozen snapshot.
type RiskConfig struct {
	StopLossPct      float64 `mapstructure:"stop_loss_pct" json:"stop_loss_pct"`
	TakeProfitPct    float64 `mapstructure:"take_profit_pct" json:"take_profit_pct"`
	RiskPerTrade     float64 `mapstructure:"risk_per_trade" json:"risk_per_trade"`
	MaxOpenPositions int     `mapstructure:"max_open_positions" json:"max_open_positions"`
}

// DefaultRiskConfig returns the parameters used when the risk file is missing
// or unreadable.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		StopLossPct:      0.5,
		TakeProfitPct:    1.0,
		RiskPerTrade:     1.0,
		MaxOpenPositions: 1,
	}
}

// RiskStore reads and writes the risk parameter file. It uses its own viper
// instance so the static application config is never touched.
type RiskStore struct {
	path string
}

// NewRiskStore creates a store bound to the given JSON file path.
func NewRiskStore(path string) *RiskStore {
	return &RiskStore{path: path}
}

// Load reads the risk file. A missing or corrupt file yields the defaults
// rather than an error: the bot must keep trading on sane parameters even if
// an operator mangles the file by hand.
func (s *RiskStore) Load() RiskConfig {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")

	def := DefaultRiskConfig()
	v.SetDefault("stop_loss_pct", def.StopLossPct)
	v.SetDefault("take_profit_pct", def.TakeProfitPct)
	v.SetDefault("risk_per_trade", def.RiskPerTrade)
	v.SetDefault("max_open_positions", def.MaxOpenPositions)

	if err := v.ReadInConfig(); err != nil {
		return def
	}

	var cfg RiskConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return def
	}
	return cfg
}

// Save writes the risk file, creating it if necessary.
func (s *RiskStore) Save(cfg RiskConfig) error {
	v := viper.New()
	v.SetConfigFile(s.path)
	v.SetConfigType("json")

	v.Set("stop_loss_pct", cfg.StopLossPct)
	v.Set("take_profit_pct", cfg.TakeProfitPct)
	v.Set("risk_per_trade", cfg.RiskPerTrade)
	v.Set("max_open_positions", cfg.MaxOpenPositions)

	if err := v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("failed to write risk config: %w", err)
	}
	return nil
}

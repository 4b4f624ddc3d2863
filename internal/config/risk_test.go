package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRiskStore_LoadMissingFileReturnsDefaults(t *testing.T) {
	store := NewRiskStore(filepath.Join(t.TempDir(), "config.json"))

	cfg := store.Load()

	assert.Equal(t, DefaultRiskConfig(), cfg)
}

func TestRiskStore_LoadCorruptFileReturnsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte("{not json"), 0o644)
	assert.NoError(t, err)

	store := NewRiskStore(path)

	assert.Equal(t, DefaultRiskConfig(), store.Load())
}

func TestRiskStore_SaveThenLoadRoundTrip(t *testing.T) {
	store := NewRiskStore(filepath.Join(t.TempDir(), "config.json"))

	want := RiskConfig{
		StopLossPct:      2.0,
		TakeProfitPct:    3.5,
		RiskPerTrade:     1.0,
		MaxOpenPositions: 2,
	}
	assert.NoError(t, store.Save(want))

	assert.Equal(t, want, store.Load())
}

func TestRiskStore_PartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(path, []byte(`{"stop_loss_pct": 1.5}`), 0o644)
	assert.NoError(t, err)

	cfg := NewRiskStore(path).Load()

	assert.Equal(t, 1.5, cfg.StopLossPct)
	assert.Equal(t, DefaultRiskConfig().TakeProfitPct, cfg.TakeProfitPct)
	assert.Equal(t, DefaultRiskConfig().MaxOpenPositions, cfg.MaxOpenPositions)
}

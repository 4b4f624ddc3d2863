package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"btc-trading-bot-go/internal/config"
	"btc-trading-bot-go/internal/jobs"
	"btc-trading-bot-go/internal/models"
	"btc-trading-bot-go/internal/status"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupRouter(t *testing.T, dashboardKey string) (*gin.Engine, *APIHandler) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	assert.NoError(t, err)
	assert.NoError(t, db.AutoMigrate(&models.Trade{}, &models.Status{}))

	log := zap.NewNop()
	cfg := &config.Config{}
	cfg.Server.DashboardKey = dashboardKey
	cfg.Jobs.BacktestCmd = []string{"sh", "-c", "echo backtest done"}

	hub := jobs.NewHub(log)
	go hub.Run()
	runner := jobs.NewRunner(log, hub)

	h := NewAPIHandler(log, db, cfg, status.NewStore(db),
		config.NewRiskStore(filepath.Join(t.TempDir(), "risk_config.json")), runner, hub)
	return NewRouter(h, dashboardKey), h
}

func TestKeyAuth_RejectsMissingKey(t *testing.T) {
	router, _ := setupRouter(t, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestKeyAuth_AcceptsHeaderAndQuery(t *testing.T) {
	router, _ := setupRouter(t, "secret")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	req.Header.Set("X-API-Key", "secret")
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/status?key=secret", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestStatusHandler_EmptySnapshot(t *testing.T) {
	router, _ := setupRouter(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/status", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Contains(t, body, "position")
	assert.Contains(t, body, "active_job")
}

func TestTradesHandler_MostRecentFirst(t *testing.T) {
	router, h := setupRouter(t, "")
	assert.NoError(t, h.db.Create(&models.Trade{Symbol: "BTCUSDT", Side: models.SideBuy, Timestamp: 100}).Error)
	assert.NoError(t, h.db.Create(&models.Trade{Symbol: "BTCUSDT", Side: models.SideSell, Timestamp: 200}).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/trades", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var trades []models.Trade
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &trades))
	assert.Len(t, trades, 2)
	assert.Equal(t, int64(200), trades[0].Timestamp)
}

func TestStatisticsHandler_OnlySellsCounted(t *testing.T) {
	router, h := setupRouter(t, "")
	assert.NoError(t, h.db.Create(&models.Trade{Side: models.SideBuy, PnL: 0, Timestamp: 100}).Error)
	assert.NoError(t, h.db.Create(&models.Trade{Side: models.SideSell, PnL: 50, Timestamp: 100}).Error)
	assert.NoError(t, h.db.Create(&models.Trade{Side: models.SideSell, PnL: -20, Timestamp: 100}).Error)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/statistics", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp StatisticsResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(2), resp.AllTime.TotalTrades)
	assert.Equal(t, int64(1), resp.AllTime.ProfitableTrades)
	assert.InDelta(t, 30.0, resp.AllTime.TotalProfit, 1e-9)
	assert.InDelta(t, 50.0, resp.AllTime.WinRate, 1e-9)
}

func TestConfigHandlers_RoundTrip(t *testing.T) {
	router, _ := setupRouter(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/config", nil)
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	var cfg config.RiskConfig
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &cfg))
	assert.Equal(t, config.DefaultRiskConfig(), cfg)

	cfg.StopLossPct = 2.0
	body, _ := json.Marshal(cfg)
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPut, "/api/config", strings.NewReader(string(body)))
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/config", nil)
	router.ServeHTTP(w, req)
	var updated config.RiskConfig
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, 2.0, updated.StopLossPct)
}

func TestPutConfig_RejectsOutOfRange(t *testing.T) {
	router, _ := setupRouter(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPut, "/api/config",
		strings.NewReader(`{"stop_loss_pct":-1,"take_profit_pct":1,"risk_per_trade":1,"max_open_positions":1}`))
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartJob_ConflictWhileBusy(t *testing.T) {
	router, h := setupRouter(t, "")

	// Hold the permit with a slow job, then try to start another.
	assert.NoError(t, h.runner.Start(context.Background(), "retrain", []string{"sh", "-c", "sleep 0.5"}))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/backtest", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusConflict, w.Code)
	h.runner.Wait()
}

func TestStartJob_NoCommandConfigured(t *testing.T) {
	router, _ := setupRouter(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/retrain", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStartJob_Accepted(t *testing.T) {
	router, h := setupRouter(t, "")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/jobs/backtest", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)
	h.runner.Wait()
}

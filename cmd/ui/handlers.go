package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"btc-trading-bot-go/internal/config"
	"btc-trading-bot-go/internal/jobs"
	"btc-trading-bot-go/internal/models"
	"btc-trading-bot-go/internal/status"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// KeyAuth restricts access to requests carrying the dashboard key, either as
// an X-API-Key header or a key query parameter. An empty configured key
// disables the check for local development.
func KeyAuth(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		provided := c.GetHeader("X-API-Key")
		if provided == "" {
			provided = c.Query("key")
		}
		if provided != key {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid dashboard key"})
			return
		}
		c.Next()
	}
}

// APIHandler holds dependencies for the API endpoints.
type APIHandler struct {
	log         *zap.Logger
	db          *gorm.DB
	cfg         *config.Config
	statusStore *status.Store
	riskStore   *config.RiskStore
	runner      *jobs.Runner
	hub         *jobs.Hub
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(log *zap.Logger, db *gorm.DB, cfg *config.Config, statusStore *status.Store,
	riskStore *config.RiskStore, runner *jobs.Runner, hub *jobs.Hub) *APIHandler {
	return &APIHandler{
		log:         log,
		db:          db,
		cfg:         cfg,
		statusStore: statusStore,
		riskStore:   riskStore,
		runner:      runner,
		hub:         hub,
	}
}

// StatusHandler returns the latest bot status snapshot.
func (h *APIHandler) StatusHandler(c *gin.Context) {
	snapshot, err := h.statusStore.Read()
	if err != nil {
		h.log.Error("Failed to read status snapshot", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read status"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"price":        snapshot.Price,
		"balance":      snapshot.Balance,
		"position":     snapshot.Position,
		"strategy":     snapshot.Strategy,
		"hourly_trend": snapshot.HourlyTrend,
		"last_updated": snapshot.LastUpdated,
		"active_job":   h.runner.ActiveJob(),
	})
}

// TradesHandler returns all historical trades, most recent first.
func (h *APIHandler) TradesHandler(c *gin.Context) {
	var trades []models.Trade
	if err := h.db.Order("timestamp desc").Find(&trades).Error; err != nil {
		h.log.Error("Failed to get trades from database", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get trades"})
		return
	}
	c.JSON(http.StatusOK, trades)
}

// StatsDetail holds calculated statistics for a given period.
type StatsDetail struct {
	TotalTrades      int64   `json:"total_trades"`
	ProfitableTrades int64   `json:"profitable_trades"`
	WinRate          float64 `json:"win_rate"`
	TotalProfit      float64 `json:"total_profit"`
}

// StatisticsResponse is the structure for the /api/statistics endpoint.
type StatisticsResponse struct {
	Since24h StatsDetail `json:"since_24h"`
	AllTime  StatsDetail `json:"all_time"`
}

// StatisticsHandler calculates and returns trading statistics. Only closed
// trades carry realized PnL, so buys are excluded.
func (h *APIHandler) StatisticsHandler(c *gin.Context) {
	var sells []models.Trade
	if err := h.db.Where("side = ?", models.SideSell).Find(&sells).Error; err != nil {
		h.log.Error("Failed to get trades for statistics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to calculate statistics"})
		return
	}

	since24h := time.Now().Add(-24 * time.Hour).Unix()
	var resp StatisticsResponse

	for _, trade := range sells {
		resp.AllTime.TotalTrades++
		if trade.PnL > 0 {
			resp.AllTime.ProfitableTrades++
		}
		resp.AllTime.TotalProfit += trade.PnL

		if trade.Timestamp >= since24h {
			resp.Since24h.TotalTrades++
			if trade.PnL > 0 {
				resp.Since24h.ProfitableTrades++
			}
			resp.Since24h.TotalProfit += trade.PnL
		}
	}
	if resp.AllTime.TotalTrades > 0 {
		resp.AllTime.WinRate = float64(resp.AllTime.ProfitableTrades) / float64(resp.AllTime.TotalTrades) * 100
	}
	if resp.Since24h.TotalTrades > 0 {
		resp.Since24h.WinRate = float64(resp.Since24h.ProfitableTrades) / float64(resp.Since24h.TotalTrades) * 100
	}

	c.JSON(http.StatusOK, resp)
}

// LogsHandler returns the tail of the bot log file.
func (h *APIHandler) LogsHandler(c *gin.Context) {
	lines := 200
	if raw := c.Query("lines"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 5000 {
			lines = n
		}
	}

	if h.cfg.Logger.File == "" {
		c.JSON(http.StatusOK, gin.H{"lines": []string{}})
		return
	}
	data, err := os.ReadFile(h.cfg.Logger.File)
	if err != nil {
		h.log.Warn("Failed to read log file", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"lines": []string{}})
		return
	}

	all := strings.Split(strings.TrimRight(string(data), "\n"), "\n")
	if len(all) > lines {
		all = all[len(all)-lines:]
	}
	c.JSON(http.StatusOK, gin.H{"lines": all})
}

// GetConfigHandler returns the live risk parameters.
func (h *APIHandler) GetConfigHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.riskStore.Load())
}

// PutConfigHandler replaces the live risk parameters. The trading loop picks
// the new values up on its next cycle.
func (h *APIHandler) PutConfigHandler(c *gin.Context) {
	var cfg config.RiskConfig
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed risk config"})
		return
	}
	if cfg.StopLossPct <= 0 || cfg.TakeProfitPct <= 0 || cfg.RiskPerTrade <= 0 || cfg.MaxOpenPositions < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "risk parameters out of range"})
		return
	}
	if err := h.riskStore.Save(cfg); err != nil {
		h.log.Error("Failed to save risk config", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save config"})
		return
	}
	h.log.Info("Risk config updated",
		zap.Float64("stop_loss_pct", cfg.StopLossPct),
		zap.Float64("take_profit_pct", cfg.TakeProfitPct))
	c.JSON(http.StatusOK, cfg)
}

// StartBacktestHandler launches the configured backtest command.
func (h *APIHandler) StartBacktestHandler(c *gin.Context) {
	h.startJob(c, "backtest", h.cfg.Jobs.BacktestCmd)
}

// StartRetrainHandler launches the configured model retraining command.
func (h *APIHandler) StartRetrainHandler(c *gin.Context) {
	h.startJob(c, "retrain", h.cfg.Jobs.RetrainCmd)
}

func (h *APIHandler) startJob(c *gin.Context, name string, command []string) {
	// Deliberately not the request context: the job must outlive the
	// response that acknowledged it.
	err := h.runner.Start(context.Background(), name, command)
	switch {
	case errors.Is(err, jobs.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": "a job is already running", "active": h.runner.ActiveJob()})
	case errors.Is(err, jobs.ErrNoCommand):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no command configured for " + name})
	case err != nil:
		h.log.Error("Failed to start job", zap.String("job", name), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start job"})
	default:
		c.JSON(http.StatusAccepted, gin.H{"job": name, "status": "started"})
	}
}

// StreamHandler upgrades the connection and attaches it to the job output
// stream.
func (h *APIHandler) StreamHandler(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}
	h.hub.Attach(conn)
}

package main

import (
	"fmt"
	"os"

	"btc-trading-bot-go/internal/config"
	"btc-trading-bot-go/internal/database"
	"btc-trading-bot-go/internal/jobs"
	"btc-trading-bot-go/internal/logger"
	"btc-trading-bot-go/internal/status"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig("./configs")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Logger.Level, cfg.Logger.Format, cfg.Logger.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Connect to the database
	db, err := database.NewDatabase(cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	hub := jobs.NewHub(log)
	go hub.Run()
	runner := jobs.NewRunner(log, hub)

	apiHandler := NewAPIHandler(log, db, &cfg, status.NewStore(db),
		config.NewRiskStore(cfg.Trading.RiskConfig), runner, hub)

	router := NewRouter(apiHandler, cfg.Server.DashboardKey)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	log.Info("Starting operator API", zap.String("address", addr))
	if err := router.Run(addr); err != nil {
		log.Fatal("Operator API failed", zap.Error(err))
	}
}

// NewRouter wires the operator routes behind the dashboard-key middleware.
func NewRouter(h *APIHandler, dashboardKey string) *gin.Engine {
	r := gin.Default()

	api := r.Group("/api")
	api.Use(KeyAuth(dashboardKey))
	{
		api.GET("/status", h.StatusHandler)
		api.GET("/trades", h.TradesHandler)
		api.GET("/statistics", h.StatisticsHandler)
		api.GET("/logs", h.LogsHandler)
		api.GET("/config", h.GetConfigHandler)
		api.PUT("/config", h.PutConfigHandler)
		api.POST("/jobs/backtest", h.StartBacktestHandler)
		api.POST("/jobs/retrain", h.StartRetrainHandler)
		api.GET("/jobs/stream", h.StreamHandler)
	}

	// Static file serving for CSS, JS, etc.
	r.Static("/static", "web/static")
	r.GET("/", func(c *gin.Context) {
		c.File("web/templates/index.html")
	})

	return r
}

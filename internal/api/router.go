package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"equity-backtest/internal/api/handlers"
	"equity-backtest/internal/api/middleware"
	"equity-backtest/internal/checkpoint"
	"equity-backtest/internal/config"
	"equity-backtest/internal/data"
)

// NewRouter wires the middleware and route tree. The caller owns the
// shared stage, checkpoint store and calendar.
func NewRouter(cfg *config.Config, stage *data.Stage, store *checkpoint.Store, calendar data.Calendar, log *zap.SugaredLogger) *gin.Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	router := gin.New()
	router.Use(middleware.Logger(log))
	router.Use(middleware.ErrorHandler(log))
	router.Use(middleware.CORS())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	backtestHandler := handlers.NewBacktestHandler(cfg, stage, store, calendar, log)
	strategyHandler := handlers.NewStrategyHandler()

	v1 := router.Group("/api/v1")
	{
		v1.POST("/backtest", backtestHandler.RunBacktest)
		v1.GET("/backtest/:id", backtestHandler.GetBacktest)
		v1.GET("/strategies", strategyHandler.ListStrategies)
	}

	return router
}

package main

import (
	"log"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"equity-backtest/internal/api"
	"equity-backtest/internal/checkpoint"
	"equity-backtest/internal/config"
	"equity-backtest/internal/data"
	"equity-backtest/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()

	source, err := data.NewSource(cfg.Data.Source, logger)
	if err != nil {
		logger.Fatalw("init data source", "error", err)
	}

	var cache *data.BarCache
	if cfg.Data.CachePath != "" {
		cache, err = data.OpenCache(cfg.Data.CachePath, logger)
		if err != nil {
			logger.Fatalw("open bar cache", "error", err)
		}
		defer cache.Close()
	}
	stage := data.NewStage(source, cache, cfg.Data.Period, logger)

	store, err := checkpoint.NewStore(cfg.Backtest.CheckpointDir, logger)
	if err != nil {
		logger.Fatalw("init checkpoint store", "error", err)
	}

	if os.Getenv("API_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(cfg, stage, store, source, logger)

	port := os.Getenv("API_PORT")
	if port == "" {
		port = "8080"
	}
	logger.Infow("api listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		logger.Fatalw("server stopped", "error", err)
	}
}

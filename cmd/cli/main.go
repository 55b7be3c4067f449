package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"equity-backtest/internal/backtest"
	"equity-backtest/internal/checkpoint"
	"equity-backtest/internal/config"
	"equity-backtest/internal/data"
	"equity-backtest/internal/ledger"
	"equity-backtest/internal/logging"
	"equity-backtest/internal/performance"
	"equity-backtest/internal/strategy"
	"equity-backtest/internal/trader"
)

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	switch os.Args[1] {
	case "backtest":
		cmdBacktest(os.Args[2:])
	case "live":
		cmdLive(os.Args[2:])
	case "strategies":
		cmdStrategies()
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  cli backtest --config config.yaml [--data dataset.json] [--out results/]")
	fmt.Println("  cli live --config config.yaml [--data dataset.json]")
	fmt.Println("  cli strategies")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - backtest prints a JSON summary and writes trades/returns CSVs to --out")
	fmt.Println("  - live runs the strategy against a paper broker until interrupted")
	fmt.Println("  - --data forces the file data source regardless of config")
}

func cmdBacktest(args []string) {
	fs := flag.NewFlagSet("backtest", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	dataPath := fs.String("data", "", "Dataset JSON path (overrides the configured source)")
	outDir := fs.String("out", "", "Directory for trades/returns CSVs (optional)")
	_ = fs.Parse(args)

	cfg, logger := load(*cfgPath, *dataPath)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	source, stage, cleanup := buildStage(cfg, logger)
	defer cleanup()

	store, err := checkpoint.NewStore(cfg.Backtest.CheckpointDir, logger)
	if err != nil {
		logger.Fatalw("init checkpoint store", "error", err)
	}

	strat, err := strategy.New(cfg)
	if err != nil {
		logger.Fatalw("build strategy", "error", err)
	}

	engine := backtest.NewEngine(cfg, stage, store, source, logger)
	res := engine.Run(ctx, strat)

	if res.Failed() {
		logger.Errorw("backtest failed", "error", res.Error)
	} else {
		stats := performance.AnalyzeTrades(res.Trades)
		logger.Infow("trade breakdown",
			"wins", stats.WinTrades,
			"losses", stats.LossTrades,
			"profit_factor", stats.ProfitFactor,
			"total_commission", stats.TotalCommission,
			"total_slippage", stats.TotalSlippage)
	}

	if *outDir != "" && !res.Failed() {
		if err := os.MkdirAll(*outDir, 0o755); err != nil {
			logger.Fatalw("create output dir", "error", err)
		}
		tradesPath := filepath.Join(*outDir, "trades.csv")
		if err := backtest.WriteTradesCSV(tradesPath, res.Trades); err != nil {
			logger.Fatalw("write trades csv", "error", err)
		}
		returnsPath := filepath.Join(*outDir, "returns.csv")
		if err := backtest.WriteReturnsCSV(returnsPath, res.Returns); err != nil {
			logger.Fatalw("write returns csv", "error", err)
		}
		logger.Infow("wrote results", "trades", tradesPath, "returns", returnsPath)
	}

	out := *res
	out.Returns = nil
	out.Trades = nil
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		logger.Fatalw("encode result", "error", err)
	}

	if res.Failed() {
		os.Exit(1)
	}
}

func cmdLive(args []string) {
	fs := flag.NewFlagSet("live", flag.ExitOnError)
	cfgPath := fs.String("config", "", "Path to YAML config")
	dataPath := fs.String("data", "", "Dataset JSON path (overrides the configured source)")
	_ = fs.Parse(args)

	cfg, logger := load(*cfgPath, *dataPath)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, stage, cleanup := buildStage(cfg, logger)
	defer cleanup()

	strat, err := strategy.New(cfg)
	if err != nil {
		logger.Fatalw("build strategy", "error", err)
	}

	led, err := ledger.New(
		cfg.Backtest.InitialCapitalDecimal(),
		cfg.Backtest.CommissionRateDecimal(),
		cfg.Backtest.SlippageRateDecimal(),
		logger,
	)
	if err != nil {
		logger.Fatalw("init ledger", "error", err)
	}

	engine, err := trader.NewEngine(cfg, stage, trader.NewPaperBroker(led), logger)
	if err != nil {
		logger.Fatalw("init live engine", "error", err)
	}
	if err := engine.Run(ctx, strat); err != nil && ctx.Err() == nil {
		logger.Fatalw("live loop stopped", "error", err)
	}
}

func cmdStrategies() {
	for _, name := range strategy.Names() {
		fmt.Println(name)
	}
}

func load(cfgPath, dataPath string) (*config.Config, *zap.SugaredLogger) {
	if cfgPath == "" {
		fmt.Println("--config is required")
		os.Exit(2)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if dataPath != "" {
		cfg.Data.Source.Type = "file"
		cfg.Data.Source.Path = dataPath
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	return cfg, logger
}

func buildStage(cfg *config.Config, logger *zap.SugaredLogger) (data.Source, *data.Stage, func()) {
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
	}
	stage := data.NewStage(source, cache, cfg.Data.Period, logger)
	return source, stage, func() {
		if cache != nil {
			cache.Close()
		}
	}
}

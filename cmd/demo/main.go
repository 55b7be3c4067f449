package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"equity-backtest/internal/backtest"
	"equity-backtest/internal/checkpoint"
	"equity-backtest/internal/config"
	"equity-backtest/internal/data"
	"equity-backtest/internal/model"
	"equity-backtest/internal/strategy"
)

// Demo:
// - Generate a deterministic synthetic price history for two symbols
// - Run the ma_cross strategy over it end to end
// - Print the resulting summary as JSON
func main() {
	days := flag.Int("days", 180, "Number of trading days to simulate")
	interval := flag.Int("interval", 5, "Checkpoint interval in days")
	flag.Parse()

	cfg := config.Default()
	cfg.Data.Universe = []string{"DEMO.A", "DEMO.B"}
	cfg.Strategy.Name = "ma_cross"
	cfg.Backtest.CheckpointInterval = *interval

	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	calendar := tradingDays(start, *days)
	cfg.Backtest.StartDate = calendar[0].Format(model.DateFormat)
	cfg.Backtest.EndDate = calendar[len(calendar)-1].Format(model.DateFormat)

	ckDir, err := os.MkdirTemp("", "demo-checkpoints")
	if err != nil {
		panic(err)
	}
	defer os.RemoveAll(ckDir)
	cfg.Backtest.CheckpointDir = ckDir

	source := data.NewMemorySource(calendar, map[string]model.BarSeries{
		"DEMO.A": syntheticBars(calendar, 100, 0.06, 17),
		"DEMO.B": syntheticBars(calendar, 50, 0.10, 29),
	})

	logger := zap.NewNop().Sugar()
	stage := data.NewStage(source, nil, cfg.Data.Period, logger)
	store, err := checkpoint.NewStore(ckDir, logger)
	if err != nil {
		panic(err)
	}
	strat, err := strategy.New(cfg)
	if err != nil {
		panic(err)
	}

	engine := backtest.NewEngine(cfg, stage, store, source, logger)
	res := engine.Run(context.Background(), strat)
	if res.Failed() {
		fmt.Fprintln(os.Stderr, "backtest failed:", res.Error)
		os.Exit(1)
	}

	out := *res
	out.Returns = nil
	out.Trades = nil
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(&out); err != nil {
		panic(err)
	}
	fmt.Printf("trades: %d, final equity: %s\n", len(res.Trades), res.FinalEquity)
}

// tradingDays returns n consecutive weekdays starting at start.
func tradingDays(start time.Time, n int) []time.Time {
	out := make([]time.Time, 0, n)
	d := start
	for len(out) < n {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			out = append(out, d)
		}
		d = d.AddDate(0, 0, 1)
	}
	return out
}

// syntheticBars builds a deterministic oscillating price path so the
// crossover strategy has something to trade.
func syntheticBars(calendar []time.Time, base, amplitude float64, period int) model.BarSeries {
	bars := make(model.BarSeries, 0, len(calendar))
	for i, date := range calendar {
		phase := 2 * math.Pi * float64(i) / float64(period)
		drift := 1 + 0.0005*float64(i)
		close := base * drift * (1 + amplitude*math.Sin(phase))
		open := base * drift * (1 + amplitude*math.Sin(phase-0.2))
		high := math.Max(open, close) * 1.005
		low := math.Min(open, close) * 0.995
		bars = append(bars, model.Bar{
			Time:   date,
			Open:   decimal.NewFromFloat(open).Round(4),
			High:   decimal.NewFromFloat(high).Round(4),
			Low:    decimal.NewFromFloat(low).Round(4),
			Close:  decimal.NewFromFloat(close).Round(4),
			Volume: decimal.NewFromInt(int64(100000 + 1000*i)),
		})
	}
	return bars
}

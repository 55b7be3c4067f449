package backtest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-backtest/internal/checkpoint"
	"equity-backtest/internal/config"
	"equity-backtest/internal/data"
	"equity-backtest/internal/model"
	"equity-backtest/internal/strategy"
)

// scriptedSource serves a fixed day -> bars script, so individual days
// can be made empty or failing.
type scriptedSource struct {
	calendar []time.Time
	days     map[string]model.DayBars // keyed by YYYY-MM-DD
	failDays map[string]error
}

func (s *scriptedSource) TradingDates(_ context.Context, start, end time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, d := range s.calendar {
		if !d.Before(start) && !d.After(end) {
			out = append(out, d)
		}
	}
	return out, nil
}

func (s *scriptedSource) History(_ context.Context, symbol, _ string, asOf time.Time, _ int) (model.BarSeries, error) {
	key := asOf.Format(model.DateFormat)
	if err, ok := s.failDays[key]; ok {
		return nil, err
	}
	return s.days[key][symbol], nil
}

func (s *scriptedSource) BatchHistory(ctx context.Context, symbols []string, period string, asOf time.Time, count int) (map[string]model.BarSeries, error) {
	out := map[string]model.BarSeries{}
	for _, symbol := range symbols {
		series, err := s.History(ctx, symbol, period, asOf, count)
		if err != nil {
			return nil, err
		}
		if len(series) > 0 {
			out[symbol] = series
		}
	}
	return out, nil
}

// holdStrategy buys a fixed lot on the first day it sees bars and holds.
// failOn scripts one-shot or permanent failures per date.
type holdStrategy struct {
	failOn    map[string]int // date -> times to fail
	onBarSeen int
}

func (h *holdStrategy) Name() string       { return "hold" }
func (h *holdStrategy) Universe() []string { return []string{"SYM"} }
func (h *holdStrategy) HistoryLength() int { return 3 }

func (h *holdStrategy) OnBar(ctx *strategy.Context) error {
	h.onBarSeen++
	key := ctx.Date.Format(model.DateFormat)
	if h.failOn[key] > 0 {
		h.failOn[key]--
		return errors.New("scripted strategy failure")
	}
	series, ok := ctx.Bars["SYM"]
	if !ok {
		return nil
	}
	if _, held := ctx.Broker.Position("SYM"); held {
		return nil
	}
	last, _ := series.Latest()
	ctx.Broker.PlaceOrder("SYM", model.Buy, decimal.NewFromInt(100), last.Close)
	return nil
}

// tenDays builds a 10-weekday calendar with a rising close and the
// matching source script.
func tenDays() (*scriptedSource, string, string) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	src := &scriptedSource{days: map[string]model.DayBars{}, failDays: map[string]error{}}
	d := start
	price := 100.0
	for len(src.calendar) < 10 {
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			src.calendar = append(src.calendar, d)
			c := decimal.NewFromFloat(price)
			src.days[d.Format(model.DateFormat)] = model.DayBars{
				"SYM": {{Time: d, Open: c, High: c, Low: c, Close: c, Volume: decimal.NewFromInt(1000)}},
			}
			price += 1
		}
		d = d.AddDate(0, 0, 1)
	}
	first := src.calendar[0].Format(model.DateFormat)
	last := src.calendar[len(src.calendar)-1].Format(model.DateFormat)
	return src, first, last
}

func testConfig(t *testing.T, start, end string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Backtest.StartDate = start
	cfg.Backtest.EndDate = end
	cfg.Backtest.InitialCapital = 100000
	cfg.Backtest.CheckpointInterval = 3
	cfg.Backtest.CheckpointDir = t.TempDir()
	cfg.Backtest.RunRetryDelay = "1ms"
	cfg.Data.FetchAttempts = 1
	cfg.Data.FetchRetryDelay = "1ms"
	return cfg
}

func newTestEngine(t *testing.T, cfg *config.Config, src *scriptedSource) (*Engine, *checkpoint.Store) {
	t.Helper()
	store, err := checkpoint.NewStore(cfg.Backtest.CheckpointDir, nil)
	require.NoError(t, err)
	stage := data.NewStage(src, nil, cfg.Data.Period, nil)
	return NewEngine(cfg, stage, store, src, nil), store
}

func TestRunCompletes(t *testing.T) {
	src, first, last := tenDays()
	cfg := testConfig(t, first, last)
	engine, store := newTestEngine(t, cfg, src)

	res := engine.Run(context.Background(), &holdStrategy{})
	require.False(t, res.Failed(), "run error: %s", res.Error)

	assert.Equal(t, 10, res.Stats.DaysProcessed)
	assert.Equal(t, 0, res.Stats.DaysSkipped)
	// Days 3, 6, 9 on the interval plus the final day.
	assert.Equal(t, 4, res.Stats.CheckpointsSaved)
	assert.Len(t, res.Returns, 10)
	require.Len(t, res.Trades, 1)
	assert.Greater(t, res.TotalReturn, 0.0, "rising market with a held position must gain")

	start, end, err := cfg.Backtest.DateRange()
	require.NoError(t, err)
	snap, err := store.Load(checkpoint.Key("hold", start, end))
	require.NoError(t, err)
	require.NotNil(t, snap, "final day must be checkpointed")
	assert.True(t, snap.Date.Equal(src.calendar[9]))
}

func TestRunShortCircuitsWhenCheckpointCoversRange(t *testing.T) {
	src, first, last := tenDays()
	cfg := testConfig(t, first, last)
	engine, _ := newTestEngine(t, cfg, src)

	res1 := engine.Run(context.Background(), &holdStrategy{})
	require.False(t, res1.Failed())

	strat := &holdStrategy{}
	res2 := engine.Run(context.Background(), strat)
	require.False(t, res2.Failed())

	assert.Equal(t, 0, strat.onBarSeen, "a completed range must not be replayed")
	assert.True(t, res2.Stats.Resumed)
	assert.True(t, res2.FinalEquity.Equal(res1.FinalEquity))
}

func TestRunSkipsEmptyAndFailedDays(t *testing.T) {
	src, first, last := tenDays()
	// Day 4 has no bars at all; day 6 fails upstream.
	d4 := src.calendar[3].Format(model.DateFormat)
	src.days[d4] = model.DayBars{}
	d6 := src.calendar[5].Format(model.DateFormat)
	src.failDays[d6] = errors.New("provider outage")

	cfg := testConfig(t, first, last)
	engine, _ := newTestEngine(t, cfg, src)

	res := engine.Run(context.Background(), &holdStrategy{})
	require.False(t, res.Failed(), "run error: %s", res.Error)
	assert.Equal(t, 8, res.Stats.DaysProcessed)
	assert.Equal(t, 2, res.Stats.DaysSkipped)
	assert.Len(t, res.Returns, 8)
}

func TestRunRecoversFromTransientStrategyFailure(t *testing.T) {
	src, first, last := tenDays()
	cfg := testConfig(t, first, last)
	engine, _ := newTestEngine(t, cfg, src)

	// Day 5 fails once: by then the day-3 checkpoint exists, so the run
	// restores it and replays days 4 and 5.
	failDate := src.calendar[4].Format(model.DateFormat)
	strat := &holdStrategy{failOn: map[string]int{failDate: 1}}

	res := engine.Run(context.Background(), strat)
	require.False(t, res.Failed(), "run error: %s", res.Error)

	assert.True(t, res.Stats.Resumed, "recovery must mark the run resumed")
	assert.Len(t, res.Returns, 10, "replayed days must not duplicate returns")
	assert.Equal(t, 10, res.Stats.DaysProcessed)
}

func TestRecoveredRunMatchesUninterrupted(t *testing.T) {
	srcA, first, last := tenDays()
	cfgA := testConfig(t, first, last)
	engineA, _ := newTestEngine(t, cfgA, srcA)
	clean := engineA.Run(context.Background(), &holdStrategy{})
	require.False(t, clean.Failed())

	srcB, _, _ := tenDays()
	cfgB := testConfig(t, first, last)
	engineB, _ := newTestEngine(t, cfgB, srcB)
	failDate := srcB.calendar[6].Format(model.DateFormat)
	recovered := engineB.Run(context.Background(), &holdStrategy{failOn: map[string]int{failDate: 1}})
	require.False(t, recovered.Failed())

	assert.True(t, recovered.FinalEquity.Equal(clean.FinalEquity),
		"recovered %s != clean %s", recovered.FinalEquity, clean.FinalEquity)
	assert.True(t, recovered.FinalCash.Equal(clean.FinalCash))
	assert.Len(t, recovered.Returns, len(clean.Returns))
}

func TestRunFailsAfterExhaustedAttemptsAndSavesForensic(t *testing.T) {
	src, first, last := tenDays()
	cfg := testConfig(t, first, last)
	cfg.Backtest.MaxRunAttempts = 2
	engine, store := newTestEngine(t, cfg, src)

	// Day 5 always fails: each attempt recovers once, replays, fails
	// the same day again and gives up.
	failDate := src.calendar[4].Format(model.DateFormat)
	strat := &holdStrategy{failOn: map[string]int{failDate: 1 << 30}}

	res := engine.Run(context.Background(), strat)
	require.True(t, res.Failed())
	assert.Contains(t, res.Error, "failed again after recovery")

	snap, err := store.Load("hold_error")
	require.NoError(t, err)
	require.NotNil(t, snap, "failed run must leave a forensic checkpoint")
}

func TestRunFailureBeforeFirstCheckpoint(t *testing.T) {
	src, first, last := tenDays()
	cfg := testConfig(t, first, last)
	cfg.Backtest.MaxRunAttempts = 2
	engine, _ := newTestEngine(t, cfg, src)

	// Day 1 fails once; there is no checkpoint yet, so the first
	// attempt dies and the second starts fresh and completes.
	failDate := src.calendar[0].Format(model.DateFormat)
	strat := &holdStrategy{failOn: map[string]int{failDate: 1}}

	res := engine.Run(context.Background(), strat)
	require.False(t, res.Failed(), "run error: %s", res.Error)
	assert.Equal(t, 10, res.Stats.DaysProcessed)
}

func TestRunResumesAfterInterruption(t *testing.T) {
	src, first, last := tenDays()
	cfg := testConfig(t, first, last)
	cfg.Backtest.MaxRunAttempts = 1
	engine, _ := newTestEngine(t, cfg, src)

	// Simulate a crash after day 6: day 7 fails forever so attempt 1
	// dies with the day-6 checkpoint on disk.
	failDate := src.calendar[6].Format(model.DateFormat)
	crashed := engine.Run(context.Background(), &holdStrategy{failOn: map[string]int{failDate: 1 << 30}})
	require.True(t, crashed.Failed())

	// A fresh run picks up from the checkpoint and only replays the tail.
	strat := &holdStrategy{}
	res := engine.Run(context.Background(), strat)
	require.False(t, res.Failed(), "run error: %s", res.Error)
	assert.True(t, res.Stats.Resumed)
	assert.Equal(t, 10, res.Stats.DaysProcessed)
	assert.Less(t, strat.onBarSeen, 10, "resume must not replay completed days")
	assert.Len(t, res.Returns, 10)
}

func TestResultJSONIncludesErrorOnly(t *testing.T) {
	res := &Result{Strategy: "hold", Error: "boom"}
	assert.True(t, res.Failed())
	res2 := &Result{Strategy: "hold"}
	assert.False(t, res2.Failed())
}

func TestIndexAfter(t *testing.T) {
	src, _, _ := tenDays()
	dates := src.calendar

	assert.Equal(t, 1, indexAfter(dates, dates[0]))
	assert.Equal(t, len(dates), indexAfter(dates, dates[len(dates)-1]))
	assert.Equal(t, 0, indexAfter(dates, dates[0].AddDate(0, 0, -1)))
}

func TestWriteCSVOutputs(t *testing.T) {
	src, first, last := tenDays()
	cfg := testConfig(t, first, last)
	engine, _ := newTestEngine(t, cfg, src)
	res := engine.Run(context.Background(), &holdStrategy{})
	require.False(t, res.Failed())

	dir := t.TempDir()
	tradesPath := fmt.Sprintf("%s/trades.csv", dir)
	require.NoError(t, WriteTradesCSV(tradesPath, res.Trades))
	returnsPath := fmt.Sprintf("%s/returns.csv", dir)
	require.NoError(t, WriteReturnsCSV(returnsPath, res.Returns))
}

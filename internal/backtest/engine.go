package backtest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"equity-backtest/internal/checkpoint"
	"equity-backtest/internal/config"
	"equity-backtest/internal/data"
	"equity-backtest/internal/ledger"
	"equity-backtest/internal/model"
	"equity-backtest/internal/performance"
	"equity-backtest/internal/strategy"
)

// Engine replays a date range day by day, feeding each day's bars to
// the strategy and marking the ledger to market. Progress is
// checkpointed so an interrupted or failed run resumes instead of
// starting over.
type Engine struct {
	cfg      *config.Config
	stage    *data.Stage
	store    *checkpoint.Store
	calendar data.Calendar
	log      *zap.SugaredLogger
}

func NewEngine(cfg *config.Config, stage *data.Stage, store *checkpoint.Store, calendar data.Calendar, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Engine{cfg: cfg, stage: stage, store: store, calendar: calendar, log: log}
}

// runState is the mutable state of one attempt, kept separate from the
// engine so a failed attempt can still be inspected and persisted.
type runState struct {
	key    string
	ledger *ledger.Ledger
	stats  checkpoint.RunStats
	date   time.Time
}

// Run executes the backtest and always returns a result: metrics on
// success, the failure message on defeat. Transient failures are
// retried up to max_run_attempts; a broken checkpoint is not, since
// every retry would reload the same snapshot.
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy) *Result {
	attempts := e.cfg.Backtest.MaxRunAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := e.cfg.Backtest.RunRetryDelayDuration()

	var st *runState
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		cur, err := e.runOnce(ctx, strat)
		if cur != nil {
			st = cur
		}
		if err == nil {
			e.log.Infow("backtest complete",
				"strategy", strat.Name(),
				"days_processed", st.stats.DaysProcessed,
				"days_skipped", st.stats.DaysSkipped,
				"final_equity", st.ledger.Equity())
			return e.buildResult(strat, st)
		}
		lastErr = err

		var rerr *RecoveryError
		if errors.As(err, &rerr) {
			e.log.Errorw("checkpoint recovery failed, not retrying", "error", err)
			break
		}
		if ctx.Err() != nil {
			break
		}
		e.log.Warnw("backtest attempt failed", "attempt", attempt, "of", attempts, "error", err)
		if attempt < attempts {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
			}
		}
	}

	e.saveForensic(strat, st)
	return &Result{
		Strategy: strat.Name(),
		Error:    lastErr.Error(),
		Stats:    statsOf(st),
	}
}

func (e *Engine) runOnce(ctx context.Context, strat strategy.Strategy) (*runState, error) {
	start, end, err := e.cfg.Backtest.DateRange()
	if err != nil {
		return nil, err
	}

	led, err := ledger.New(
		e.cfg.Backtest.InitialCapitalDecimal(),
		e.cfg.Backtest.CommissionRateDecimal(),
		e.cfg.Backtest.SlippageRateDecimal(),
		e.log,
	)
	if err != nil {
		return nil, err
	}

	st := &runState{
		key:    checkpoint.Key(strat.Name(), start, end),
		ledger: led,
	}

	dates, err := e.calendar.TradingDates(ctx, start, end)
	if err != nil {
		return st, fmt.Errorf("trading dates: %w", err)
	}
	if len(dates) == 0 {
		return st, fmt.Errorf("no trading dates between %s and %s",
			start.Format(model.DateFormat), end.Format(model.DateFormat))
	}

	resume := 0
	if snap, lerr := e.store.Load(st.key); lerr != nil {
		// A checkpoint we cannot read at startup is discarded rather
		// than fatal; the run simply starts from scratch.
		e.log.Warnw("ignoring unreadable checkpoint", "key", st.key, "error", lerr)
	} else if snap != nil {
		led.Restore(snap.Ledger)
		st.stats = snap.Stats
		st.stats.Resumed = true
		st.date = snap.Date
		resume = indexAfter(dates, snap.Date)
		e.log.Infow("resuming from checkpoint",
			"key", st.key,
			"checkpoint_date", snap.Date.Format(model.DateFormat),
			"remaining_days", len(dates)-resume)
		if resume >= len(dates) {
			e.log.Infow("checkpoint already covers the full range", "key", st.key)
			return st, nil
		}
	}

	interval := e.cfg.Backtest.CheckpointInterval
	if interval < 1 {
		interval = 1
	}
	lastFailed := -1

	for i := resume; i < len(dates); i++ {
		if err := ctx.Err(); err != nil {
			return st, err
		}
		date := dates[i]

		bars, err := e.fetchDay(ctx, strat, date)
		if err != nil {
			st.stats.DaysSkipped++
			e.log.Warnw("skipping day, data unavailable",
				"date", date.Format(model.DateFormat), "error", err)
			continue
		}
		if len(bars) == 0 {
			st.stats.DaysSkipped++
			e.log.Debugw("skipping day, no bars", "date", date.Format(model.DateFormat))
			continue
		}

		if err := e.applyDay(led, strat, date, bars); err != nil {
			if i == lastFailed {
				return st, fmt.Errorf("day %s failed again after recovery: %w",
					date.Format(model.DateFormat), err)
			}
			lastFailed = i

			snap, lerr := e.store.Load(st.key)
			if lerr != nil {
				return st, &RecoveryError{Key: st.key, Err: lerr}
			}
			if snap == nil {
				return st, err
			}
			led.Restore(snap.Ledger)
			st.stats = snap.Stats
			st.stats.Resumed = true
			st.date = snap.Date
			e.log.Warnw("day failed, restored checkpoint",
				"date", date.Format(model.DateFormat),
				"checkpoint_date", snap.Date.Format(model.DateFormat),
				"error", err)
			i = indexAfter(dates, snap.Date) - 1
			continue
		}

		st.stats.DaysProcessed++
		st.date = date

		if (i+1)%interval == 0 || i == len(dates)-1 {
			snap := &checkpoint.Snapshot{
				Date:    date,
				Ledger:  led.Snapshot(),
				Stats:   st.stats,
				SavedAt: time.Now().UTC(),
			}
			snap.Stats.CheckpointsSaved++
			if err := e.store.Save(st.key, snap); err != nil {
				return st, fmt.Errorf("save checkpoint: %w", err)
			}
			st.stats.CheckpointsSaved++
		}
	}

	return st, nil
}

// fetchDay pulls the day's bars with bounded retries. Exhausting the
// retries is not fatal to the run; the caller skips the day.
func (e *Engine) fetchDay(ctx context.Context, strat strategy.Strategy, date time.Time) (model.DayBars, error) {
	var bars model.DayBars
	err := data.Retry(ctx, e.cfg.Data.FetchAttempts, e.cfg.Data.FetchRetryDelayDuration(), func() error {
		var err error
		bars, err = e.stage.GetDailyBars(ctx, strat.Universe(), date, strat.HistoryLength())
		return err
	})
	return bars, err
}

func (e *Engine) applyDay(led *ledger.Ledger, strat strategy.Strategy, date time.Time, bars model.DayBars) error {
	led.SetDate(date)
	sctx := &strategy.Context{Date: date, Bars: bars, Broker: led}
	if err := strat.OnBar(sctx); err != nil {
		return fmt.Errorf("strategy %s on %s: %w", strat.Name(), date.Format(model.DateFormat), err)
	}
	if err := led.MarkToMarket(date, bars); err != nil {
		return fmt.Errorf("mark to market on %s: %w", date.Format(model.DateFormat), err)
	}
	return nil
}

func (e *Engine) buildResult(strat strategy.Strategy, st *runState) *Result {
	led := st.ledger
	summary := performance.Summarize(led.DailyReturns(), led.Trades(), nil, e.cfg.Backtest.RiskFreeRate)
	return &Result{
		Strategy:    strat.Name(),
		Summary:     summary,
		FinalEquity: led.Equity(),
		FinalCash:   led.Cash(),
		Returns:     led.DailyReturns(),
		Trades:      led.Trades(),
		Stats:       st.stats,
	}
}

// saveForensic writes the failing state under a separate key so the
// regular checkpoint for the range stays untouched.
func (e *Engine) saveForensic(strat strategy.Strategy, st *runState) {
	if st == nil || st.ledger == nil {
		return
	}
	key := strat.Name() + "_error"
	snap := &checkpoint.Snapshot{
		Date:    st.date,
		Ledger:  st.ledger.Snapshot(),
		Stats:   st.stats,
		SavedAt: time.Now().UTC(),
	}
	if err := e.store.Save(key, snap); err != nil {
		e.log.Errorw("failed to save forensic checkpoint", "key", key, "error", err)
		return
	}
	e.log.Infow("saved forensic checkpoint", "key", key)
}

func statsOf(st *runState) checkpoint.RunStats {
	if st == nil {
		return checkpoint.RunStats{}
	}
	return st.stats
}

// indexAfter returns the index of the first date strictly after t, or
// len(dates) when t is at or past the end.
func indexAfter(dates []time.Time, t time.Time) int {
	for i, d := range dates {
		if d.After(t) {
			return i
		}
	}
	return len(dates)
}

package data

import (
	"context"
	"fmt"
	"time"

	"equity-backtest/internal/model"

	"go.uber.org/zap"
)

// Stage acquires one trading day's bars for a set of symbols.
//
// Lookup order per call: cache, then one batch fetch for all misses,
// then individual fetches for anything the batch left behind. Individual
// failures are logged and the symbol omitted; partial results are fine.
// Everything fetched is written back to the cache, and everything
// returned has passed validation.
type Stage struct {
	provider Provider
	cache    *BarCache
	period   string
	log      *zap.SugaredLogger
}

// NewStage builds a Stage. cache may be nil to disable caching.
func NewStage(provider Provider, cache *BarCache, period string, log *zap.SugaredLogger) *Stage {
	if period == "" {
		period = "1d"
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Stage{provider: provider, cache: cache, period: period, log: log}
}

// GetDailyBars returns symbol -> lookback series for date. It errors
// only on total upstream failure (batch failed and every individual
// fetch failed too); a partial day is returned without error.
func (s *Stage) GetDailyBars(ctx context.Context, symbols []string, date time.Time, historyLength int) (model.DayBars, error) {
	result := model.DayBars{}

	var misses []string
	for _, symbol := range symbols {
		if series, ok := s.cache.Get(ctx, symbol, date, historyLength); ok {
			result[symbol] = series
			continue
		}
		misses = append(misses, symbol)
	}

	upstreamFailures := 0
	if len(misses) > 0 {
		fetched, err := s.provider.BatchHistory(ctx, misses, s.period, date, historyLength)
		if err != nil {
			s.log.Warnw("batch fetch failed, falling back to per-symbol",
				"date", date.Format(model.DateFormat), "symbols", len(misses), "error", err)
			fetched = nil
		}

		var leftover []string
		for _, symbol := range misses {
			series, ok := fetched[symbol]
			if !ok || len(series) == 0 {
				leftover = append(leftover, symbol)
				continue
			}
			s.store(ctx, symbol, date, historyLength, series)
			result[symbol] = series
		}

		for _, symbol := range leftover {
			series, err := s.provider.History(ctx, symbol, s.period, date, historyLength)
			if err != nil || len(series) == 0 {
				upstreamFailures++
				s.log.Warnw("symbol fetch failed, omitting from day",
					"symbol", symbol, "date", date.Format(model.DateFormat), "error", err)
				continue
			}
			s.store(ctx, symbol, date, historyLength, series)
			result[symbol] = series
		}

		if len(result) == 0 && upstreamFailures == len(misses) && upstreamFailures > 0 {
			return nil, fmt.Errorf("all %d symbols failed to fetch for %s",
				upstreamFailures, date.Format(model.DateFormat))
		}
	}

	for symbol, series := range result {
		if err := series.Validate(); err != nil {
			s.log.Warnw("dropping symbol with invalid bars", "symbol", symbol, "error", err)
			delete(result, symbol)
		}
	}
	return result, nil
}

func (s *Stage) store(ctx context.Context, symbol string, date time.Time, historyLength int, series model.BarSeries) {
	if err := s.cache.Put(ctx, symbol, date, historyLength, series); err != nil {
		s.log.Warnw("bar cache write failed", "symbol", symbol, "error", err)
	}
}

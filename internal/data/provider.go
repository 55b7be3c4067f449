package data

import (
	"context"
	"time"

	"equity-backtest/internal/model"
)

// Provider supplies historical bars. Both calls may fail per-invocation;
// retries are the caller's responsibility, not the provider's.
type Provider interface {
	// History returns up to count bars for one symbol, ending at the
	// asOf trading date, oldest first.
	History(ctx context.Context, symbol, period string, asOf time.Time, count int) (model.BarSeries, error)

	// BatchHistory fetches several symbols in one call. Symbols the
	// upstream could not serve are simply absent from the result.
	BatchHistory(ctx context.Context, symbols []string, period string, asOf time.Time, count int) (map[string]model.BarSeries, error)
}

// Calendar yields the ordered, deduplicated trading-day sequence for a
// date range.
type Calendar interface {
	TradingDates(ctx context.Context, start, end time.Time) ([]time.Time, error)
}

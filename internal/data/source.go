package data

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"equity-backtest/internal/model"
)

// MemorySource serves a fixed calendar and per-symbol bar history from
// memory. It backs the file source, the demo and the engine tests.
type MemorySource struct {
	calendar []time.Time
	bars     map[string]model.BarSeries
}

// NewMemorySource copies and sorts its inputs. Bars must carry ascending
// timestamps per symbol; the calendar is deduplicated and sorted here.
func NewMemorySource(calendar []time.Time, bars map[string]model.BarSeries) *MemorySource {
	seen := map[time.Time]struct{}{}
	dates := make([]time.Time, 0, len(calendar))
	for _, d := range calendar {
		d = model.Day(d)
		if _, dup := seen[d]; dup {
			continue
		}
		seen[d] = struct{}{}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	copied := make(map[string]model.BarSeries, len(bars))
	for symbol, series := range bars {
		s := make(model.BarSeries, len(series))
		copy(s, series)
		copied[symbol] = s
	}
	return &MemorySource{calendar: dates, bars: copied}
}

// TradingDates returns the calendar dates within [start, end].
func (m *MemorySource) TradingDates(_ context.Context, start, end time.Time) ([]time.Time, error) {
	var out []time.Time
	for _, d := range m.calendar {
		if d.Before(model.Day(start)) || d.After(model.Day(end)) {
			continue
		}
		out = append(out, d)
	}
	return out, nil
}

// History returns the last count bars for symbol with time <= end of
// the asOf date.
func (m *MemorySource) History(_ context.Context, symbol, _ string, asOf time.Time, count int) (model.BarSeries, error) {
	series, ok := m.bars[symbol]
	if !ok {
		return nil, fmt.Errorf("unknown symbol %q", symbol)
	}
	cutoff := model.Day(asOf).Add(24 * time.Hour)
	var window model.BarSeries
	for _, b := range series {
		if b.Time.Before(cutoff) {
			window = append(window, b)
		}
	}
	if count > 0 && len(window) > count {
		window = window[len(window)-count:]
	}
	return window, nil
}

// BatchHistory serves each requested symbol, omitting unknown ones.
func (m *MemorySource) BatchHistory(ctx context.Context, symbols []string, period string, asOf time.Time, count int) (map[string]model.BarSeries, error) {
	out := make(map[string]model.BarSeries, len(symbols))
	for _, symbol := range symbols {
		series, err := m.History(ctx, symbol, period, asOf, count)
		if err != nil {
			continue
		}
		out[symbol] = series
	}
	return out, nil
}

// fileDataset matches the on-disk JSON shape consumed by the CLI and
// demo: a trading calendar plus the full bar history per symbol.
type fileDataset struct {
	Calendar []string                   `json:"calendar"`
	Bars     map[string]model.BarSeries `json:"bars"`
}

// LoadFileSource reads a dataset JSON file into a MemorySource.
func LoadFileSource(path string) (*MemorySource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var ds fileDataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return nil, fmt.Errorf("parse dataset %s: %w", path, err)
	}
	calendar := make([]time.Time, 0, len(ds.Calendar))
	for _, s := range ds.Calendar {
		d, err := time.Parse(model.DateFormat, s)
		if err != nil {
			return nil, fmt.Errorf("invalid calendar date %q in %s: %w", s, path, err)
		}
		calendar = append(calendar, d)
	}
	return NewMemorySource(calendar, ds.Bars), nil
}

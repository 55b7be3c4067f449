package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the layout used for trading dates throughout the system.
const DateFormat = "2006-01-02"

// Bar is one period's OHLCV record for a symbol.
// All timestamps are provided in JSON as RFC3339 strings.
type Bar struct {
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// BarSeries is a chronologically ascending run of bars for one symbol.
type BarSeries []Bar

// DayBars maps symbol -> lookback series for a single trading day.
type DayBars map[string]BarSeries

// Validate checks that the series is non-empty and that every bar carries
// the full OHLCV field set. Symbols failing validation are dropped from
// a day's data rather than aborting the day.
func (s BarSeries) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("empty bar series")
	}
	for i, b := range s {
		if b.Time.IsZero() {
			return fmt.Errorf("bar %d: missing time", i)
		}
		if !b.Open.IsPositive() || !b.High.IsPositive() || !b.Low.IsPositive() || !b.Close.IsPositive() {
			return fmt.Errorf("bar %d: non-positive price field", i)
		}
		if b.Volume.IsNegative() {
			return fmt.Errorf("bar %d: negative volume", i)
		}
	}
	return nil
}

// Latest returns the most recent bar in the series.
func (s BarSeries) Latest() (Bar, bool) {
	if len(s) == 0 {
		return Bar{}, false
	}
	return s[len(s)-1], true
}

// Closes returns the close prices as float64, oldest first.
// Indicator math runs on floats; money stays decimal.
func (s BarSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i, b := range s {
		out[i] = b.Close.InexactFloat64()
	}
	return out
}

// Day truncates a timestamp to its calendar date in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

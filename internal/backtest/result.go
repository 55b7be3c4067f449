package backtest

import (
	"github.com/shopspring/decimal"

	"equity-backtest/internal/checkpoint"
	"equity-backtest/internal/model"
	"equity-backtest/internal/performance"
)

// Result is the complete outcome of a run. A failed run carries the
// failure in Error with zero metrics; Run never returns a Go error.
type Result struct {
	Strategy string `json:"strategy"`
	Error    string `json:"error,omitempty"`

	performance.Summary

	FinalEquity decimal.Decimal     `json:"final_equity"`
	FinalCash   decimal.Decimal     `json:"final_cash"`
	Returns     []model.DailyReturn `json:"daily_returns,omitempty"`
	Trades      []model.Trade       `json:"trades,omitempty"`

	Stats checkpoint.RunStats `json:"stats"`
}

// Failed reports whether the run ended with an error instead of
// metrics.
func (r *Result) Failed() bool { return r.Error != "" }

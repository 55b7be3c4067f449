package models

import (
	"github.com/shopspring/decimal"

	"equity-backtest/internal/checkpoint"
	"equity-backtest/internal/model"
	"equity-backtest/internal/performance"
)

// BacktestResponse is the response from a backtest run. Trades and
// returns are included only when the request asked for them.
type BacktestResponse struct {
	ID      string `json:"id"`
	Status  string `json:"status"` // "completed" or "failed"
	Error   string `json:"error,omitempty"`

	Summary     performance.Summary `json:"summary"`
	FinalEquity decimal.Decimal     `json:"final_equity"`
	FinalCash   decimal.Decimal     `json:"final_cash"`
	Stats       checkpoint.RunStats `json:"stats"`

	Trades  []model.Trade       `json:"trades,omitempty"`
	Returns []model.DailyReturn `json:"daily_returns,omitempty"`
}

// StrategyInfo describes one registered strategy.
type StrategyInfo struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters,omitempty"`
}

// ParameterInfo documents one strategy parameter.
type ParameterInfo struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
	Default     any    `json:"default,omitempty"`
}

// ErrorResponse is the uniform error envelope.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries a machine-readable code and a human message.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

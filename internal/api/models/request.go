package models

// BacktestRequest is the body for running a backtest. Fields left zero
// fall back to the server's configuration.
type BacktestRequest struct {
	Backtest BacktestParams  `json:"backtest" binding:"required"`
	Strategy StrategyParams  `json:"strategy" binding:"required"`
	Options  BacktestOptions `json:"options,omitempty"`
}

// BacktestParams overrides the simulation window and cost model.
type BacktestParams struct {
	StartDate      string   `json:"start_date" binding:"required"` // YYYY-MM-DD
	EndDate        string   `json:"end_date" binding:"required"`   // YYYY-MM-DD
	Universe       []string `json:"universe,omitempty"`
	InitialCapital float64  `json:"initial_capital,omitempty"`
	CommissionRate float64  `json:"commission_rate,omitempty"`
	SlippageRate   float64  `json:"slippage_rate,omitempty"`
}

// StrategyParams names the strategy and its tuning parameters.
type StrategyParams struct {
	Name   string         `json:"name" binding:"required"`
	Params map[string]any `json:"params,omitempty"`
}

// BacktestOptions controls response verbosity.
type BacktestOptions struct {
	IncludeTrades  bool `json:"include_trades,omitempty"`
	IncludeReturns bool `json:"include_returns,omitempty"`
}

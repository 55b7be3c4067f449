package ledger

import (
	"time"

	"equity-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// State is the serializable snapshot of a ledger. Decimals marshal as
// JSON strings, so a save/load/restore cycle reproduces the ledger
// exactly.
type State struct {
	Date         time.Time                  `json:"date"`
	Cash         decimal.Decimal            `json:"cash"`
	Equity       decimal.Decimal            `json:"equity"`
	Positions    map[string]model.Position  `json:"positions"`
	LastClose    map[string]decimal.Decimal `json:"last_close"`
	Trades       []model.Trade              `json:"trades"`
	DailyReturns []model.DailyReturn        `json:"daily_returns"`
}

// Snapshot captures the full ledger state.
func (l *Ledger) Snapshot() State {
	positions := make(map[string]model.Position, len(l.positions))
	for k, v := range l.positions {
		positions[k] = v
	}
	lastClose := make(map[string]decimal.Decimal, len(l.lastClose))
	for k, v := range l.lastClose {
		lastClose[k] = v
	}
	trades := make([]model.Trade, len(l.trades))
	copy(trades, l.trades)
	returns := make([]model.DailyReturn, len(l.dailyReturns))
	copy(returns, l.dailyReturns)

	return State{
		Date:         l.date,
		Cash:         l.cash,
		Equity:       l.equity,
		Positions:    positions,
		LastClose:    lastClose,
		Trades:       trades,
		DailyReturns: returns,
	}
}

// Restore replaces the ledger's state wholesale with a snapshot.
// It never merges: anything accumulated since the snapshot is discarded.
func (l *Ledger) Restore(s State) {
	l.date = s.Date
	l.cash = s.Cash
	l.equity = s.Equity
	l.positions = make(map[string]model.Position, len(s.Positions))
	for k, v := range s.Positions {
		l.positions[k] = v
	}
	l.lastClose = make(map[string]decimal.Decimal, len(s.LastClose))
	for k, v := range s.LastClose {
		l.lastClose[k] = v
	}
	l.trades = make([]model.Trade, len(s.Trades))
	copy(l.trades, s.Trades)
	l.dailyReturns = make([]model.DailyReturn, len(s.DailyReturns))
	copy(l.dailyReturns, s.DailyReturns)
}

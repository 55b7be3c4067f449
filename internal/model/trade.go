package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is an order side.
type Direction string

const (
	Buy  Direction = "buy"
	Sell Direction = "sell"
)

// Position is a long holding in one symbol. Zero-volume positions are
// removed from the ledger, never stored.
type Position struct {
	Volume  decimal.Decimal `json:"volume"`
	AvgCost decimal.Decimal `json:"avg_cost"`
}

// Trade is one immutable fill record. PnL on a buy is the cost drag
// (commission + slippage, negated); on a sell it is the realized gain
// against the position's average cost, net of costs.
type Trade struct {
	Date       time.Time       `json:"date"`
	Symbol     string          `json:"symbol"`
	Direction  Direction       `json:"direction"`
	Volume     decimal.Decimal `json:"volume"`
	Price      decimal.Decimal `json:"price"`
	Commission decimal.Decimal `json:"commission"`
	Slippage   decimal.Decimal `json:"slippage"`
	PnL        decimal.Decimal `json:"pnl"`
}

// DailyReturn is one processed trading day's equity return.
type DailyReturn struct {
	Date   time.Time       `json:"date"`
	Return decimal.Decimal `json:"return"`
}

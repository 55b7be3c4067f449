package strategy

import (
	"time"

	"equity-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// Broker is the order surface a strategy trades against. The backtest
// ledger satisfies it directly; the live engine adapts a real broker.
type Broker interface {
	// PlaceOrder returns false when the order is rejected (insufficient
	// cash or holdings); rejection is not an error.
	PlaceOrder(symbol string, direction model.Direction, volume, price decimal.Decimal) bool
	Cash() decimal.Decimal
	Position(symbol string) (model.Position, bool)
}

// Context carries one trading day's view into a strategy hook.
type Context struct {
	Date   time.Time
	Bars   model.DayBars
	Broker Broker
}

// Strategy is the capability interface shared by backtest and live
// execution. OnBar is invoked once per trading day with that day's bar
// mapping and may place orders through the broker.
type Strategy interface {
	Name() string
	Universe() []string
	HistoryLength() int
	OnBar(ctx *Context) error
}

package ledger

import (
	"fmt"
	"time"

	"equity-backtest/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Ledger owns cash, positions, equity and the trade log for one run.
// All mutation funnels through PlaceOrder and MarkToMarket; the engine
// advances the date with SetDate before either is called.
type Ledger struct {
	log *zap.SugaredLogger

	commissionRate decimal.Decimal
	slippageRate   decimal.Decimal

	date         time.Time
	cash         decimal.Decimal
	equity       decimal.Decimal
	positions    map[string]model.Position
	lastClose    map[string]decimal.Decimal
	trades       []model.Trade
	dailyReturns []model.DailyReturn
}

// New constructs a ledger holding initialCapital in cash.
func New(initialCapital, commissionRate, slippageRate decimal.Decimal, log *zap.SugaredLogger) (*Ledger, error) {
	if !initialCapital.IsPositive() {
		return nil, fmt.Errorf("initial capital must be > 0, got %s", initialCapital)
	}
	if commissionRate.IsNegative() || slippageRate.IsNegative() {
		return nil, fmt.Errorf("commission and slippage rates must be >= 0")
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Ledger{
		log:            log,
		commissionRate: commissionRate,
		slippageRate:   slippageRate,
		cash:           initialCapital,
		equity:         initialCapital,
		positions:      map[string]model.Position{},
		lastClose:      map[string]decimal.Decimal{},
	}, nil
}

// SetDate sets the simulation date stamped onto trades and returns.
func (l *Ledger) SetDate(date time.Time) { l.date = date }

// PlaceOrder executes a simulated fill. A false return means the order
// was rejected without any state change: insufficient cash on a buy,
// insufficient holdings on a sell, or invalid arguments.
//
// Cost model: commission = price*volume*commissionRate and
// slippage = price*volume*slippageRate always reduce the trader's
// benefit. A buy debits gross+commission+slippage; a sell credits
// gross-commission-slippage.
func (l *Ledger) PlaceOrder(symbol string, direction model.Direction, volume, price decimal.Decimal) bool {
	if symbol == "" || !volume.IsPositive() || !price.IsPositive() {
		l.log.Warnw("rejecting invalid order",
			"symbol", symbol, "direction", direction, "volume", volume, "price", price)
		return false
	}

	gross := price.Mul(volume)
	commission := gross.Mul(l.commissionRate)
	slippage := gross.Mul(l.slippageRate)
	costs := commission.Add(slippage)

	var pnl decimal.Decimal

	switch direction {
	case model.Buy:
		total := gross.Add(costs)
		if total.GreaterThan(l.cash) {
			l.log.Warnw("insufficient cash, order rejected",
				"symbol", symbol, "required", total, "available", l.cash)
			return false
		}
		pos := l.positions[symbol]
		newVolume := pos.Volume.Add(volume)
		// Average cost tracks trade price only; fees show up in trade PnL.
		newCost := pos.AvgCost.Mul(pos.Volume).Add(gross).Div(newVolume)
		l.positions[symbol] = model.Position{Volume: newVolume, AvgCost: newCost}
		l.cash = l.cash.Sub(total)
		pnl = costs.Neg()

	case model.Sell:
		pos, held := l.positions[symbol]
		if !held || pos.Volume.LessThan(volume) {
			l.log.Warnw("insufficient position, order rejected",
				"symbol", symbol, "requested", volume, "held", pos.Volume)
			return false
		}
		remaining := pos.Volume.Sub(volume)
		if remaining.IsZero() {
			delete(l.positions, symbol)
		} else {
			l.positions[symbol] = model.Position{Volume: remaining, AvgCost: pos.AvgCost}
		}
		l.cash = l.cash.Add(gross.Sub(costs))
		pnl = price.Sub(pos.AvgCost).Mul(volume).Sub(costs)

	default:
		l.log.Warnw("unknown order direction", "symbol", symbol, "direction", direction)
		return false
	}

	l.trades = append(l.trades, model.Trade{
		Date:       l.date,
		Symbol:     symbol,
		Direction:  direction,
		Volume:     volume,
		Price:      price,
		Commission: commission,
		Slippage:   slippage,
		PnL:        pnl,
	})
	return true
}

// MarkToMarket revalues every held position at the day's latest close,
// appends the daily return and updates equity. Held symbols absent from
// bars are carried at their last known close; a symbol that has never
// been priced contributes nothing and is logged.
func (l *Ledger) MarkToMarket(date time.Time, bars model.DayBars) error {
	if l.equity.IsZero() {
		return fmt.Errorf("mark to market: previous equity is zero")
	}

	value := l.cash
	for symbol, pos := range l.positions {
		closePrice, ok := l.closeFor(symbol, bars)
		if !ok {
			l.log.Warnw("no price known for held position, omitting from equity", "symbol", symbol)
			continue
		}
		value = value.Add(pos.Volume.Mul(closePrice))
	}

	ret := value.Sub(l.equity).Div(l.equity)
	l.dailyReturns = append(l.dailyReturns, model.DailyReturn{Date: date, Return: ret})
	l.equity = value
	return nil
}

func (l *Ledger) closeFor(symbol string, bars model.DayBars) (decimal.Decimal, bool) {
	if series, ok := bars[symbol]; ok {
		if latest, ok := series.Latest(); ok {
			l.lastClose[symbol] = latest.Close
			return latest.Close, true
		}
	}
	if last, ok := l.lastClose[symbol]; ok {
		l.log.Debugw("carrying forward stale close", "symbol", symbol, "close", last)
		return last, true
	}
	return decimal.Zero, false
}

// Cash returns the current cash balance.
func (l *Ledger) Cash() decimal.Decimal { return l.cash }

// Equity returns the last mark-to-market equity.
func (l *Ledger) Equity() decimal.Decimal { return l.equity }

// Position reports the holding in symbol, if any.
func (l *Ledger) Position(symbol string) (model.Position, bool) {
	pos, ok := l.positions[symbol]
	return pos, ok
}

// Positions returns a copy of the current holdings.
func (l *Ledger) Positions() map[string]model.Position {
	out := make(map[string]model.Position, len(l.positions))
	for k, v := range l.positions {
		out[k] = v
	}
	return out
}

// Trades returns the trade log.
func (l *Ledger) Trades() []model.Trade { return l.trades }

// DailyReturns returns the per-day return series.
func (l *Ledger) DailyReturns() []model.DailyReturn { return l.dailyReturns }

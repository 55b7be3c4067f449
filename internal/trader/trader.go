package trader

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"equity-backtest/internal/config"
	"equity-backtest/internal/data"
	"equity-backtest/internal/model"
	"equity-backtest/internal/strategy"
)

// Broker places real orders. Implementations wrap an actual brokerage
// API; order rejection comes back as ok=false, transport failure as an
// error.
type Broker interface {
	Buy(ctx context.Context, symbol string, volume, price decimal.Decimal) (ok bool, err error)
	Sell(ctx context.Context, symbol string, volume, price decimal.Decimal) (ok bool, err error)
	Cash(ctx context.Context) (decimal.Decimal, error)
	Positions(ctx context.Context) (map[string]model.Position, error)
}

// Engine drives a strategy against a live broker on a polling loop,
// reusing the same OnBar hook the backtest uses.
type Engine struct {
	cfg    *config.Config
	stage  *data.Stage
	broker Broker
	hours  *Hours
	log    *zap.SugaredLogger
}

func NewEngine(cfg *config.Config, stage *data.Stage, broker Broker, log *zap.SugaredLogger) (*Engine, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	hours, err := ParseHours(cfg.Trading.TradingHours)
	if err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, stage: stage, broker: broker, hours: hours, log: log}, nil
}

// Run polls until ctx is cancelled. Each in-hours tick fetches the
// latest bars and hands them to the strategy; a failed tick is logged
// and the loop keeps going.
func (e *Engine) Run(ctx context.Context, strat strategy.Strategy) error {
	interval := e.cfg.Trading.PollIntervalDuration()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.log.Infow("live loop started", "strategy", strat.Name(), "poll_interval", interval)

	for {
		select {
		case <-ctx.Done():
			e.log.Infow("live loop stopped")
			return ctx.Err()
		case now := <-ticker.C:
			if !e.hours.Open(now) {
				continue
			}
			if err := e.tick(ctx, strat, now); err != nil {
				e.log.Warnw("tick failed", "time", now.Format(time.RFC3339), "error", err)
			}
		}
	}
}

func (e *Engine) tick(ctx context.Context, strat strategy.Strategy, now time.Time) error {
	bars, err := e.stage.GetDailyBars(ctx, strat.Universe(), now, strat.HistoryLength())
	if err != nil {
		return err
	}
	if len(bars) == 0 {
		return nil
	}

	adapter, err := newBrokerAdapter(ctx, e.broker, e.log)
	if err != nil {
		return err
	}
	return strat.OnBar(&strategy.Context{Date: model.Day(now), Bars: bars, Broker: adapter})
}

// brokerAdapter presents the live broker through the synchronous
// strategy.Broker surface. Cash and positions are snapshotted once per
// tick; a transport error during PlaceOrder reads as a rejection.
type brokerAdapter struct {
	ctx       context.Context
	broker    Broker
	cash      decimal.Decimal
	positions map[string]model.Position
	log       *zap.SugaredLogger
}

func newBrokerAdapter(ctx context.Context, b Broker, log *zap.SugaredLogger) (*brokerAdapter, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	cash, err := b.Cash(ctx)
	if err != nil {
		return nil, err
	}
	positions, err := b.Positions(ctx)
	if err != nil {
		return nil, err
	}
	return &brokerAdapter{ctx: ctx, broker: b, cash: cash, positions: positions, log: log}, nil
}

func (a *brokerAdapter) PlaceOrder(symbol string, direction model.Direction, volume, price decimal.Decimal) bool {
	var ok bool
	var err error
	switch direction {
	case model.Buy:
		ok, err = a.broker.Buy(a.ctx, symbol, volume, price)
	case model.Sell:
		ok, err = a.broker.Sell(a.ctx, symbol, volume, price)
	default:
		return false
	}
	if err != nil {
		a.log.Errorw("order failed", "symbol", symbol, "direction", direction, "error", err)
		return false
	}
	return ok
}

func (a *brokerAdapter) Cash() decimal.Decimal { return a.cash }

func (a *brokerAdapter) Position(symbol string) (model.Position, bool) {
	pos, ok := a.positions[symbol]
	return pos, ok
}

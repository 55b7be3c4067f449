package trader

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"equity-backtest/internal/ledger"
	"equity-backtest/internal/model"
)

// PaperBroker simulates fills against a ledger, so the live loop can
// run without a real brokerage account. Safe for concurrent use.
type PaperBroker struct {
	mu     sync.Mutex
	ledger *ledger.Ledger
}

func NewPaperBroker(l *ledger.Ledger) *PaperBroker {
	return &PaperBroker{ledger: l}
}

func (p *PaperBroker) Buy(_ context.Context, symbol string, volume, price decimal.Decimal) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.PlaceOrder(symbol, model.Buy, volume, price), nil
}

func (p *PaperBroker) Sell(_ context.Context, symbol string, volume, price decimal.Decimal) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.PlaceOrder(symbol, model.Sell, volume, price), nil
}

func (p *PaperBroker) Cash(_ context.Context) (decimal.Decimal, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.Cash(), nil
}

func (p *PaperBroker) Positions(_ context.Context) (map[string]model.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.Positions(), nil
}

package strategy

import (
	"fmt"
	"math"

	"equity-backtest/internal/config"
	"equity-backtest/internal/indicator"
	"equity-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// MACross trades fast/slow moving-average crossovers with an RSI
// filter: buy on a golden cross while RSI is oversold, exit on a death
// cross or an overbought RSI.
type MACross struct {
	universe      []string
	historyLength int

	maShort   int
	maLong    int
	rsiPeriod int
	rsiBuy    float64
	rsiSell   float64

	riskLimit    decimal.Decimal
	maxPositions int
	lotSize      decimal.Decimal
}

func init() {
	Register("ma_cross", NewMACross)
}

// NewMACross builds the strategy from config. history_length must cover
// the slow average plus one bar for the crossover comparison.
func NewMACross(cfg *config.Config) (Strategy, error) {
	p := cfg.Strategy.Params
	s := &MACross{
		universe:      cfg.Data.Universe,
		historyLength: cfg.Data.HistoryLength,
		maShort:       intParam(p, "ma_short", 5),
		maLong:        intParam(p, "ma_long", 20),
		rsiPeriod:     intParam(p, "rsi_period", 14),
		rsiBuy:        numParam(p, "rsi_buy", 30),
		rsiSell:       numParam(p, "rsi_sell", 70),
		riskLimit:     decimal.NewFromFloat(cfg.Trading.RiskLimit),
		maxPositions:  cfg.Trading.MaxPositions,
		lotSize:       decimal.NewFromInt(int64(intParam(p, "lot_size", 100))),
	}
	if s.maShort >= s.maLong {
		return nil, fmt.Errorf("ma_short (%d) must be < ma_long (%d)", s.maShort, s.maLong)
	}
	need := s.maLong + 1
	if s.rsiPeriod+1 > need {
		need = s.rsiPeriod + 1
	}
	if s.historyLength < need {
		return nil, fmt.Errorf("history_length %d too short, need at least %d bars", s.historyLength, need)
	}
	return s, nil
}

func (s *MACross) Name() string       { return "ma_cross" }
func (s *MACross) Universe() []string { return s.universe }
func (s *MACross) HistoryLength() int { return s.historyLength }

// OnBar evaluates each symbol's crossover state and routes orders
// through the broker. Held symbols without bars today are left alone.
func (s *MACross) OnBar(ctx *Context) error {
	for _, symbol := range s.universe {
		series, ok := ctx.Bars[symbol]
		if !ok || len(series) < s.maLong+1 {
			continue
		}

		closes := series.Closes()
		maShort := indicator.SMA(closes, s.maShort)
		maLong := indicator.SMA(closes, s.maLong)
		rsi := indicator.RSI(closes, s.rsiPeriod)

		last := len(closes) - 1
		prev := last - 1
		if math.IsNaN(maShort[prev]) || math.IsNaN(maLong[prev]) || math.IsNaN(rsi[last]) {
			continue
		}

		crossUp := maShort[prev] < maLong[prev] && maShort[last] > maLong[last]
		crossDown := maShort[prev] > maLong[prev] && maShort[last] < maLong[last]

		price := series[last].Close
		_, held := ctx.Broker.Position(symbol)

		switch {
		case crossUp && rsi[last] < s.rsiBuy && !held:
			volume := s.entryVolume(ctx.Broker.Cash(), price)
			if volume.IsPositive() && s.openSlots(ctx.Broker) > 0 {
				ctx.Broker.PlaceOrder(symbol, model.Buy, volume, price)
			}
		case (crossDown || rsi[last] > s.rsiSell) && held:
			pos, _ := ctx.Broker.Position(symbol)
			ctx.Broker.PlaceOrder(symbol, model.Sell, pos.Volume, price)
		}
	}
	return nil
}

// entryVolume spends at most riskLimit of cash, rounded down to whole
// lots.
func (s *MACross) entryVolume(cash, price decimal.Decimal) decimal.Decimal {
	if !price.IsPositive() {
		return decimal.Zero
	}
	budget := cash.Mul(s.riskLimit)
	lots := budget.Div(price.Mul(s.lotSize)).Floor()
	return lots.Mul(s.lotSize)
}

func (s *MACross) openSlots(b Broker) int {
	held := 0
	for _, symbol := range s.universe {
		if _, ok := b.Position(symbol); ok {
			held++
		}
	}
	return s.maxPositions - held
}

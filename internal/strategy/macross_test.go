package strategy

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-backtest/internal/config"
	"equity-backtest/internal/model"
)

type recordedOrder struct {
	symbol    string
	direction model.Direction
	volume    decimal.Decimal
	price     decimal.Decimal
}

type fakeBroker struct {
	cash      decimal.Decimal
	positions map[string]model.Position
	orders    []recordedOrder
}

func (b *fakeBroker) PlaceOrder(symbol string, direction model.Direction, volume, price decimal.Decimal) bool {
	b.orders = append(b.orders, recordedOrder{symbol, direction, volume, price})
	return true
}

func (b *fakeBroker) Cash() decimal.Decimal { return b.cash }

func (b *fakeBroker) Position(symbol string) (model.Position, bool) {
	pos, ok := b.positions[symbol]
	return pos, ok
}

func maCrossConfig() *config.Config {
	cfg := config.Default()
	cfg.Data.Universe = []string{"SYM"}
	cfg.Data.HistoryLength = 10
	cfg.Strategy.Name = "ma_cross"
	cfg.Strategy.Params = map[string]any{
		"ma_short":   2,
		"ma_long":    3,
		"rsi_period": 2,
		// Disable the RSI gates so the crossover drives the test.
		"rsi_buy":  101.0,
		"rsi_sell": 101.0,
	}
	return cfg
}

func closesToBars(closes []float64) model.BarSeries {
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	out := make(model.BarSeries, 0, len(closes))
	for i, c := range closes {
		d := decimal.NewFromFloat(c)
		out = append(out, model.Bar{
			Time: start.AddDate(0, 0, i), Open: d, High: d, Low: d, Close: d,
			Volume: decimal.NewFromInt(1000),
		})
	}
	return out
}

func barCtx(b *fakeBroker, closes []float64) *Context {
	series := closesToBars(closes)
	return &Context{
		Date:   series[len(series)-1].Time,
		Bars:   model.DayBars{"SYM": series},
		Broker: b,
	}
}

func TestNewMACrossValidation(t *testing.T) {
	cfg := maCrossConfig()
	cfg.Strategy.Params["ma_short"] = 20
	cfg.Strategy.Params["ma_long"] = 5
	_, err := NewMACross(cfg)
	assert.Error(t, err, "fast period must be shorter than slow")

	cfg = maCrossConfig()
	cfg.Data.HistoryLength = 2
	_, err = NewMACross(cfg)
	assert.Error(t, err, "history must cover the slow average")
}

func TestRegistryResolvesMAcross(t *testing.T) {
	cfg := maCrossConfig()
	strat, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, "ma_cross", strat.Name())
	assert.Equal(t, []string{"SYM"}, strat.Universe())

	cfg.Strategy.Name = "nope"
	_, err = New(cfg)
	assert.Error(t, err)
}

func TestMACrossBuysOnGoldenCross(t *testing.T) {
	strat, err := NewMACross(maCrossConfig())
	require.NoError(t, err)

	broker := &fakeBroker{cash: decimal.NewFromInt(100000), positions: map[string]model.Position{}}
	// Falling then a jump: the fast average crosses above the slow one
	// on the last bar.
	require.NoError(t, strat.OnBar(barCtx(broker, []float64{10, 9, 8, 7, 12})))

	require.Len(t, broker.orders, 1)
	order := broker.orders[0]
	assert.Equal(t, model.Buy, order.direction)
	// 10% of 100000 = 10000 budget; 10000/(12*100) = 8 lots of 100.
	assert.True(t, order.volume.Equal(decimal.NewFromInt(800)), "volume = %s", order.volume)
	assert.True(t, order.price.Equal(decimal.NewFromInt(12)))
}

func TestMACrossHoldsWithoutSignal(t *testing.T) {
	strat, err := NewMACross(maCrossConfig())
	require.NoError(t, err)

	broker := &fakeBroker{cash: decimal.NewFromInt(100000), positions: map[string]model.Position{}}
	require.NoError(t, strat.OnBar(barCtx(broker, []float64{10, 10, 10, 10, 10})))
	assert.Empty(t, broker.orders)
}

func TestMACrossSellsEntirePositionOnDeathCross(t *testing.T) {
	strat, err := NewMACross(maCrossConfig())
	require.NoError(t, err)

	broker := &fakeBroker{
		cash: decimal.NewFromInt(100000),
		positions: map[string]model.Position{
			"SYM": {Volume: decimal.NewFromInt(800), AvgCost: decimal.NewFromInt(9)},
		},
	}
	// Rising then a drop: the fast average crosses below on the last bar.
	require.NoError(t, strat.OnBar(barCtx(broker, []float64{7, 8, 9, 10, 6})))

	require.Len(t, broker.orders, 1)
	order := broker.orders[0]
	assert.Equal(t, model.Sell, order.direction)
	assert.True(t, order.volume.Equal(decimal.NewFromInt(800)), "must exit the full position")
}

func TestMACrossRespectsMaxPositions(t *testing.T) {
	cfg := maCrossConfig()
	cfg.Trading.MaxPositions = 1
	strat, err := NewMACross(cfg)
	require.NoError(t, err)

	broker := &fakeBroker{
		cash: decimal.NewFromInt(100000),
		positions: map[string]model.Position{
			"SYM": {Volume: decimal.NewFromInt(100), AvgCost: decimal.NewFromInt(9)},
		},
	}
	// Golden cross, but the symbol is already held: no re-entry either way.
	require.NoError(t, strat.OnBar(barCtx(broker, []float64{10, 9, 8, 7, 12})))
	assert.Empty(t, broker.orders)
}

func TestMACrossSkipsShortHistory(t *testing.T) {
	strat, err := NewMACross(maCrossConfig())
	require.NoError(t, err)

	broker := &fakeBroker{cash: decimal.NewFromInt(100000), positions: map[string]model.Position{}}
	require.NoError(t, strat.OnBar(barCtx(broker, []float64{10, 12})))
	assert.Empty(t, broker.orders)
}

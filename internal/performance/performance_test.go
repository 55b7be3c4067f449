package performance

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"equity-backtest/internal/model"
)

func tradeWithPnL(pnl string) model.Trade {
	return model.Trade{
		Date:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		Symbol:     "AAPL",
		Direction:  model.Sell,
		Volume:     decimal.NewFromInt(100),
		Price:      decimal.NewFromInt(10),
		Commission: decimal.RequireFromString("1"),
		Slippage:   decimal.RequireFromString("0.5"),
		PnL:        decimal.RequireFromString(pnl),
	}
}

func TestTotalReturnCompounds(t *testing.T) {
	assert.Equal(t, 0.0, TotalReturn(nil))
	assert.InDelta(t, 0.1*1.1+0.1, TotalReturn([]float64{0.1, 0.1}), 1e-12)
	assert.InDelta(t, -0.19, TotalReturn([]float64{-0.1, -0.1}), 1e-12)
}

func TestAnnualizedReturnScalesLinearly(t *testing.T) {
	assert.Equal(t, 0.0, AnnualizedReturn(0.5, 0))
	assert.InDelta(t, 0.1, AnnualizedReturn(0.1, 252), 1e-12)
	assert.InDelta(t, 0.2, AnnualizedReturn(0.1, 126), 1e-12)
}

func TestMaxDrawdown(t *testing.T) {
	assert.Equal(t, 0.0, MaxDrawdown(nil))
	assert.Equal(t, 0.0, MaxDrawdown([]float64{0.01, 0.02, 0.03}),
		"a monotonically rising curve has no drawdown")

	// Up 10%, down 20%, partial recovery: trough is 0.88 of the 1.10 peak.
	dd := MaxDrawdown([]float64{0.1, -0.2, 0.05})
	assert.InDelta(t, 0.2, dd, 1e-12)
}

func TestSharpeRatioConstantSeriesIsZero(t *testing.T) {
	// Zero standard deviation must not divide.
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01, 0.01, 0.01}, 0))
	assert.Equal(t, 0.0, SharpeRatio([]float64{0.01}, 0))
	assert.Equal(t, 0.0, SharpeRatio(nil, 0.03))
}

func TestSharpeRatioSign(t *testing.T) {
	up := SharpeRatio([]float64{0.01, 0.02, 0.01, 0.03}, 0)
	assert.Greater(t, up, 0.0)

	down := SharpeRatio([]float64{-0.01, -0.02, -0.01, -0.03}, 0)
	assert.Less(t, down, 0.0)
}

func TestSortinoRatioNoDownsideIsZero(t *testing.T) {
	assert.Equal(t, 0.0, SortinoRatio([]float64{0.01, 0.02}, 0))
	assert.Equal(t, 0.0, SortinoRatio(nil, 0.03))
}

func TestSortinoRatioUsesDownsideOnly(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.02, -0.01}
	sortino := SortinoRatio(returns, 0)
	// mean 0.005, downside RMS 0.01
	assert.InDelta(t, math.Sqrt(252)*0.005/0.01, sortino, 1e-9)
}

func TestAlphaBetaDefaults(t *testing.T) {
	alpha, beta := AlphaBeta([]float64{0.01, 0.02}, nil)
	assert.Equal(t, 0.0, alpha)
	assert.Equal(t, 1.0, beta)

	// Length mismatch.
	alpha, beta = AlphaBeta([]float64{0.01, 0.02}, []float64{0.01})
	assert.Equal(t, 0.0, alpha)
	assert.Equal(t, 1.0, beta)

	// Flat benchmark has zero variance.
	alpha, beta = AlphaBeta([]float64{0.01, 0.02}, []float64{0.01, 0.01})
	assert.Equal(t, 0.0, alpha)
	assert.Equal(t, 1.0, beta)
}

func TestAlphaBetaTracksBenchmark(t *testing.T) {
	bench := []float64{0.01, -0.02, 0.03, -0.01}
	alpha, beta := AlphaBeta(bench, bench)
	assert.InDelta(t, 1.0, beta, 1e-12)
	assert.InDelta(t, 0.0, alpha, 1e-12)
}

func TestWinRate(t *testing.T) {
	assert.Equal(t, 0.0, WinRate(nil))

	trades := []model.Trade{
		tradeWithPnL("10"),
		tradeWithPnL("-5"),
		tradeWithPnL("3"),
		tradeWithPnL("0"),
	}
	assert.InDelta(t, 0.5, WinRate(trades), 1e-12)
}

func TestSummarizeEmptyRunIsAllDefaults(t *testing.T) {
	s := Summarize(nil, nil, nil, DefaultRiskFreeRate)
	assert.Equal(t, Summary{Beta: 1}, s)
}

func TestSummarizeKnownSeries(t *testing.T) {
	series := []model.DailyReturn{
		{Date: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), Return: decimal.RequireFromString("0.01")},
		{Date: time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), Return: decimal.RequireFromString("-0.005")},
		{Date: time.Date(2024, 1, 4, 0, 0, 0, 0, time.UTC), Return: decimal.RequireFromString("0.02")},
	}
	trades := []model.Trade{tradeWithPnL("10"), tradeWithPnL("-5")}

	s := Summarize(series, trades, nil, DefaultRiskFreeRate)

	wantTotal := 1.01*0.995*1.02 - 1
	assert.InDelta(t, wantTotal, s.TotalReturn, 1e-12)
	assert.InDelta(t, wantTotal/3*252, s.AnnualReturn, 1e-12)
	assert.InDelta(t, 0.005, s.MaxDrawdown, 1e-12)
	assert.Equal(t, 2, s.TradeCount)
	assert.InDelta(t, 0.5, s.WinRate, 1e-12)
	assert.Equal(t, 1.0, s.Beta)
}

func TestAnalyzeTrades(t *testing.T) {
	stats := AnalyzeTrades(nil)
	assert.Equal(t, TradeStats{}, stats)

	trades := []model.Trade{
		tradeWithPnL("10"),
		tradeWithPnL("6"),
		tradeWithPnL("-4"),
	}
	stats = AnalyzeTrades(trades)
	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 2, stats.WinTrades)
	assert.Equal(t, 1, stats.LossTrades)
	assert.InDelta(t, 8.0, stats.AvgProfit, 1e-12)
	assert.InDelta(t, -4.0, stats.AvgLoss, 1e-12)
	assert.InDelta(t, 4.0, stats.ProfitFactor, 1e-12)
	assert.True(t, stats.TotalCommission.Equal(decimal.RequireFromString("3")))
	assert.True(t, stats.TotalSlippage.Equal(decimal.RequireFromString("1.5")))
}

func TestAnalyzeTradesNoLosses(t *testing.T) {
	stats := AnalyzeTrades([]model.Trade{tradeWithPnL("10")})
	require.True(t, math.IsInf(stats.ProfitFactor, 1))
}

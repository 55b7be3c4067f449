package performance

import (
	"math"

	"equity-backtest/internal/model"

	"github.com/shopspring/decimal"
)

// Summary is the headline statistics block for a completed run.
type Summary struct {
	TotalReturn  float64 `json:"total_return"`
	AnnualReturn float64 `json:"annual_return"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	SharpeRatio  float64 `json:"sharpe_ratio"`
	SortinoRatio float64 `json:"sortino_ratio"`
	Volatility   float64 `json:"volatility"`
	Alpha        float64 `json:"alpha"`
	Beta         float64 `json:"beta"`
	TradeCount   int     `json:"trade_count"`
	WinRate      float64 `json:"win_rate"`
}

// TradeStats breaks the trade log down by outcome.
type TradeStats struct {
	TotalTrades     int             `json:"total_trades"`
	WinTrades       int             `json:"win_trades"`
	LossTrades      int             `json:"loss_trades"`
	WinRate         float64         `json:"win_rate"`
	AvgProfit       float64         `json:"avg_profit"`
	AvgLoss         float64         `json:"avg_loss"`
	ProfitFactor    float64         `json:"profit_factor"`
	TotalCommission decimal.Decimal `json:"total_commission"`
	TotalSlippage   decimal.Decimal `json:"total_slippage"`
}

// Summarize computes the full statistics block from a return series and
// trade log. benchmark may be nil, in which case alpha/beta fall back to
// the neutral (0, 1).
func Summarize(series []model.DailyReturn, trades []model.Trade, benchmark []float64, riskFree float64) Summary {
	returns := Returns(series)
	total := TotalReturn(returns)
	alpha, beta := AlphaBeta(returns, benchmark)
	return Summary{
		TotalReturn:  total,
		AnnualReturn: AnnualizedReturn(total, len(returns)),
		MaxDrawdown:  MaxDrawdown(returns),
		SharpeRatio:  SharpeRatio(returns, riskFree),
		SortinoRatio: SortinoRatio(returns, riskFree),
		Volatility:   Volatility(returns),
		Alpha:        alpha,
		Beta:         beta,
		TradeCount:   len(trades),
		WinRate:      WinRate(trades),
	}
}

// AnalyzeTrades computes per-outcome trade statistics. An empty trade
// log yields the zero value.
func AnalyzeTrades(trades []model.Trade) TradeStats {
	stats := TradeStats{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return stats
	}

	var profitSum, lossSum float64
	for _, t := range trades {
		pnl := t.PnL.InexactFloat64()
		if t.PnL.IsPositive() {
			stats.WinTrades++
			profitSum += pnl
		} else {
			stats.LossTrades++
			lossSum += pnl
		}
		stats.TotalCommission = stats.TotalCommission.Add(t.Commission)
		stats.TotalSlippage = stats.TotalSlippage.Add(t.Slippage)
	}

	stats.WinRate = float64(stats.WinTrades) / float64(stats.TotalTrades)
	if stats.WinTrades > 0 {
		stats.AvgProfit = profitSum / float64(stats.WinTrades)
	}
	if stats.LossTrades > 0 {
		stats.AvgLoss = lossSum / float64(stats.LossTrades)
	}
	if lossSum != 0 {
		stats.ProfitFactor = profitSum / -lossSum
	} else if profitSum > 0 {
		stats.ProfitFactor = math.Inf(1)
	}
	return stats
}

package performance

import (
	"math"

	"equity-backtest/internal/model"
)

// Annualization assumes daily bars.
const (
	PeriodsPerYear      = 252
	DefaultRiskFreeRate = 0.03
)

// Every function here degrades to a defined default instead of failing:
// these are reporting numbers, not control flow. An empty series, a zero
// standard deviation or a missing benchmark all produce the documented
// neutral value.

// TotalReturn is the compounded return of the series: prod(1+r) - 1.
func TotalReturn(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	cum := 1.0
	for _, r := range returns {
		cum *= 1 + r
	}
	return cum - 1
}

// AnnualizedReturn linearly scales a total return over n daily periods
// to a yearly figure.
func AnnualizedReturn(totalReturn float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return totalReturn / float64(n) * PeriodsPerYear
}

// MaxDrawdown is the largest peak-to-trough decline of the cumulative
// return curve, reported as a positive fraction.
func MaxDrawdown(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}
	cum := 1.0
	peak := 1.0
	maxDD := 0.0
	for _, r := range returns {
		cum *= 1 + r
		if cum > peak {
			peak = cum
		}
		if peak > 0 {
			if dd := 1 - cum/peak; dd > maxDD {
				maxDD = dd
			}
		}
	}
	return maxDD
}

// SharpeRatio is the annualized mean excess return over its standard
// deviation. Returns 0 when the deviation is zero or the series is too
// short.
func SharpeRatio(returns []float64, riskFree float64) float64 {
	excess := excessReturns(returns, riskFree)
	if len(excess) < 2 {
		return 0
	}
	sd := stddev(excess)
	if sd == 0 {
		return 0
	}
	return math.Sqrt(PeriodsPerYear) * mean(excess) / sd
}

// SortinoRatio is like Sharpe but penalizes only downside deviation:
// the denominator is the root mean square of the negative excess
// returns.
func SortinoRatio(returns []float64, riskFree float64) float64 {
	excess := excessReturns(returns, riskFree)
	if len(excess) == 0 {
		return 0
	}
	var sumSq float64
	var n int
	for _, r := range excess {
		if r < 0 {
			sumSq += r * r
			n++
		}
	}
	if n == 0 {
		return 0
	}
	downside := math.Sqrt(sumSq / float64(n))
	if downside == 0 {
		return 0
	}
	return math.Sqrt(PeriodsPerYear) * mean(excess) / downside
}

// Volatility is the annualized standard deviation of returns.
func Volatility(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	return stddev(returns) * math.Sqrt(PeriodsPerYear)
}

// AlphaBeta regresses the return series against a benchmark:
// beta = cov(r, bench)/var(bench), alpha = mean(r) - beta*mean(bench).
// With no benchmark (or degenerate input) it returns the neutral pair
// (0, 1) rather than an estimate.
func AlphaBeta(returns, benchmark []float64) (alpha, beta float64) {
	if len(benchmark) == 0 || len(returns) != len(benchmark) || len(returns) < 2 {
		return 0, 1
	}
	bVar := variance(benchmark)
	if bVar == 0 {
		return 0, 1
	}
	beta = covariance(returns, benchmark) / bVar
	alpha = mean(returns) - beta*mean(benchmark)
	return alpha, beta
}

// WinRate is the fraction of trades with positive PnL; 0 for an empty
// trade list.
func WinRate(trades []model.Trade) float64 {
	if len(trades) == 0 {
		return 0
	}
	wins := 0
	for _, t := range trades {
		if t.PnL.IsPositive() {
			wins++
		}
	}
	return float64(wins) / float64(len(trades))
}

// Returns converts a daily return series to float64 for the statistics
// above.
func Returns(series []model.DailyReturn) []float64 {
	out := make([]float64, len(series))
	for i, r := range series {
		out[i] = r.Return.InexactFloat64()
	}
	return out
}

func excessReturns(returns []float64, riskFree float64) []float64 {
	rf := riskFree / PeriodsPerYear
	out := make([]float64, len(returns))
	for i, r := range returns {
		out[i] = r - rf
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev and covariance use the sample (n-1) estimator.
func stddev(xs []float64) float64 {
	return math.Sqrt(variance(xs))
}

func variance(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	m := mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - m
		sum += d * d
	}
	return sum / float64(len(xs)-1)
}

func covariance(xs, ys []float64) float64 {
	if len(xs) != len(ys) || len(xs) < 2 {
		return 0
	}
	mx, my := mean(xs), mean(ys)
	var sum float64
	for i := range xs {
		sum += (xs[i] - mx) * (ys[i] - my)
	}
	return sum / float64(len(xs)-1)
}

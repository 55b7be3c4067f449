// Package indicator implements the common technical indicators used by
// the bundled strategies: moving averages, RSI, MACD, Bollinger bands
// and VWAP. All functions return a slice aligned with the input, with
// NaN where the indicator is not yet defined.
package indicator

import "math"

// SMA is the simple moving average over period.
func SMA(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 || len(values) < period {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}

// EMA is the exponential moving average with the given span,
// alpha = 2/(span+1), seeded at the first value.
func EMA(values []float64, span int) []float64 {
	out := nanSlice(len(values))
	if span < 1 || len(values) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1)
	ema := values[0]
	out[0] = ema
	for i := 1; i < len(values); i++ {
		ema = alpha*values[i] + (1-alpha)*ema
		out[i] = ema
	}
	return out
}

// RSI is the relative strength index with Wilder smoothing. Values
// before the first full period repeat the seed reading.
func RSI(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period < 1 || len(values) <= period {
		return out
	}

	var up, down float64
	for i := 1; i <= period; i++ {
		delta := values[i] - values[i-1]
		if delta >= 0 {
			up += delta
		} else {
			down -= delta
		}
	}
	up /= float64(period)
	down /= float64(period)

	seed := rsiValue(up, down)
	for i := 0; i < period; i++ {
		out[i] = seed
	}
	for i := period; i < len(values); i++ {
		delta := values[i] - values[i-1]
		var upVal, downVal float64
		if delta > 0 {
			upVal = delta
		} else {
			downVal = -delta
		}
		up = (up*float64(period-1) + upVal) / float64(period)
		down = (down*float64(period-1) + downVal) / float64(period)
		out[i] = rsiValue(up, down)
	}
	return out
}

func rsiValue(up, down float64) float64 {
	if down == 0 {
		if up == 0 {
			return 50
		}
		return 100
	}
	rs := up / down
	return 100 - 100/(1+rs)
}

// MACD returns the MACD line, signal line and histogram.
func MACD(values []float64, fast, slow, signal int) (macd, signalLine, histogram []float64) {
	emaFast := EMA(values, fast)
	emaSlow := EMA(values, slow)
	macd = make([]float64, len(values))
	for i := range values {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	signalLine = EMA(macd, signal)
	histogram = make([]float64, len(values))
	for i := range values {
		histogram[i] = macd[i] - signalLine[i]
	}
	return macd, signalLine, histogram
}

// Bollinger returns the upper, middle and lower bands for the given
// period and standard-deviation multiple.
func Bollinger(values []float64, period int, numStd float64) (upper, middle, lower []float64) {
	middle = SMA(values, period)
	upper = nanSlice(len(values))
	lower = nanSlice(len(values))
	if period < 1 || len(values) < period {
		return upper, middle, lower
	}
	for i := period - 1; i < len(values); i++ {
		var sumSq float64
		for j := i - period + 1; j <= i; j++ {
			d := values[j] - middle[i]
			sumSq += d * d
		}
		sd := math.Sqrt(sumSq / float64(period))
		upper[i] = middle[i] + numStd*sd
		lower[i] = middle[i] - numStd*sd
	}
	return upper, middle, lower
}

// VWAP is the cumulative volume-weighted average price.
func VWAP(prices, volumes []float64) []float64 {
	out := nanSlice(len(prices))
	if len(prices) != len(volumes) {
		return out
	}
	var pvSum, vSum float64
	for i := range prices {
		pvSum += prices[i] * volumes[i]
		vSum += volumes[i]
		if vSum > 0 {
			out[i] = pvSum / vSum
		}
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

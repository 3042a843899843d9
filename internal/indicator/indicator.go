// Package indicator implements the technical-analysis series math used by
// the built-in strategies: simple and exponential moving averages, standard
// deviation, Wilder RSI, MACD, and N-day momentum.
//
// Indicators operate on plain float64 close series. They are dimensionless
// ratios used only for signal generation; monetary amounts never pass
// through this package. Leading values that are undefined because the
// lookback window is not yet full are reported as NaN.
package indicator

import "math"

// SMA returns the simple moving average of the period values ending at index
// end (inclusive). It returns NaN when the window does not fit.
func SMA(values []float64, end, period int) float64 {
	if period <= 0 || end < period-1 || end >= len(values) {
		return math.NaN()
	}
	sum := 0.0
	for i := end - period + 1; i <= end; i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// StdDev returns the population standard deviation of the period values
// ending at index end (inclusive). It returns NaN when the window does not
// fit.
func StdDev(values []float64, end, period int) float64 {
	mean := SMA(values, end, period)
	if math.IsNaN(mean) {
		return math.NaN()
	}
	sum := 0.0
	for i := end - period + 1; i <= end; i++ {
		d := values[i] - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(period))
}

// Momentum returns the percentage return over the period ending at index end:
// (values[end] - values[end-period]) / values[end-period] * 100. It returns
// NaN when the lookback does not fit or the base value is zero.
func Momentum(values []float64, end, period int) float64 {
	if period <= 0 || end < period || end >= len(values) {
		return math.NaN()
	}
	base := values[end-period]
	if base == 0 {
		return math.NaN()
	}
	return (values[end] - base) / base * 100
}

// EMASeries returns the exponential moving average of values. The first
// defined element is at index period-1, seeded with the simple average of
// the first period values; earlier elements are NaN.
func EMASeries(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) < period {
		return out
	}
	seed := SMA(values, period-1, period)
	out[period-1] = seed
	k := 2.0 / float64(period+1)
	prev := seed
	for i := period; i < len(values); i++ {
		prev = (values[i]-prev)*k + prev
		out[i] = prev
	}
	return out
}

// RSISeries returns the Wilder relative strength index of values. The first
// defined element is at index period; earlier elements are NaN. When the
// average loss over the lookback is zero the RSI is defined as 100.
func RSISeries(values []float64, period int) []float64 {
	out := nanSlice(len(values))
	if period <= 0 || len(values) <= period {
		return out
	}

	// Seed with the simple average gain/loss over the first period changes.
	avgGain, avgLoss := 0.0, 0.0
	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiValue(avgGain, avgLoss)

	// Wilder smoothing for the remainder of the series.
	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiValue(avgGain, avgLoss)
	}
	return out
}

func rsiValue(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// MACDSeries returns the MACD line (EMA(fast) - EMA(slow)) and its signal
// line. The MACD line is first defined at index slow-1. The signal line is
// seeded with the simple average of the first signalPeriod MACD values and
// EMA-recursed from there, so its first defined element is at index
// slow+signalPeriod-2.
func MACDSeries(values []float64, fast, slow, signalPeriod int) (macd, signal []float64) {
	n := len(values)
	macd = nanSlice(n)
	signal = nanSlice(n)
	if fast <= 0 || slow <= fast || signalPeriod <= 0 {
		return macd, signal
	}

	emaFast := EMASeries(values, fast)
	emaSlow := EMASeries(values, slow)
	for i := slow - 1; i < n; i++ {
		macd[i] = emaFast[i] - emaSlow[i]
	}

	seedEnd := slow + signalPeriod - 2
	if seedEnd >= n {
		return macd, signal
	}
	sum := 0.0
	for i := slow - 1; i <= seedEnd; i++ {
		sum += macd[i]
	}
	prev := sum / float64(signalPeriod)
	signal[seedEnd] = prev
	k := 2.0 / float64(signalPeriod+1)
	for i := seedEnd + 1; i < n; i++ {
		prev = (macd[i]-prev)*k + prev
		signal[i] = prev
	}
	return macd, signal
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

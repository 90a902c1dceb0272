package indicators

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/rustyeddy/tradesim/market"
)

// nanSeries returns n NaNs.
func nanSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

// mask replaces the first lookback values of out with NaN. talib leaves them 0.
func mask(out []float64, lookback int) []float64 {
	for i := 0; i < lookback && i < len(out); i++ {
		out[i] = math.NaN()
	}
	return out
}

// SMA is the simple moving average of in over period.
func SMA(in []float64, period int) []float64 {
	if period < 1 || len(in) < period {
		return nanSeries(len(in))
	}
	if period == 1 {
		out := make([]float64, len(in))
		copy(out, in)
		return out
	}
	return mask(talib.Sma(in, period), period-1)
}

// EMA is the exponential moving average of in, seeded with the first SMA.
func EMA(in []float64, period int) []float64 {
	if period < 2 || len(in) < period {
		return nanSeries(len(in))
	}
	return mask(talib.Ema(in, period), period-1)
}

// RSI is Wilder's relative strength index, 0..100.
func RSI(in []float64, period int) []float64 {
	if period < 2 || len(in) <= period {
		return nanSeries(len(in))
	}
	return mask(talib.Rsi(in, period), period)
}

// MACD returns the MACD line, its signal line and the histogram.
func MACD(in []float64, fast, slow, signal int) (line, sig, hist []float64) {
	lookback := slow - 1 + signal - 1
	if fast < 2 || slow <= fast || signal < 1 || len(in) <= lookback {
		return nanSeries(len(in)), nanSeries(len(in)), nanSeries(len(in))
	}
	line, sig, hist = talib.Macd(in, fast, slow, signal)
	return mask(line, lookback), mask(sig, lookback), mask(hist, lookback)
}

// Bollinger returns the upper, middle and lower bands at devs population
// standard deviations around the SMA.
func Bollinger(in []float64, period int, devs float64) (upper, middle, lower []float64) {
	if period < 2 || len(in) < period {
		return nanSeries(len(in)), nanSeries(len(in)), nanSeries(len(in))
	}
	upper, middle, lower = talib.BBands(in, period, devs, devs, talib.SMA)
	return mask(upper, period-1), mask(middle, period-1), mask(lower, period-1)
}

// Stochastic returns slow %K and %D, both smoothed with an SMA.
func Stochastic(highs, lows, closes []float64, kPeriod, slowK, dPeriod int) (k, d []float64) {
	n := len(closes)
	lookback := kPeriod - 1 + slowK - 1 + dPeriod - 1
	if kPeriod < 1 || slowK < 1 || dPeriod < 1 || n <= lookback || len(highs) != n || len(lows) != n {
		return nanSeries(n), nanSeries(n)
	}
	k, d = talib.Stoch(highs, lows, closes, kPeriod, slowK, talib.SMA, dPeriod, talib.SMA)
	return mask(k, lookback), mask(d, lookback)
}

// TrueRange is max(high-low, |high-prevClose|, |low-prevClose|). The first
// element has no previous close and is high-low.
func TrueRange(highs, lows, closes []float64) []float64 {
	n := len(closes)
	if n == 0 || len(highs) != n || len(lows) != n {
		return nil
	}
	var out []float64
	if n > 1 {
		out = talib.TRange(highs, lows, closes)
	} else {
		out = make([]float64, 1)
	}
	out[0] = highs[0] - lows[0]
	return out
}

// ATR is the simple moving average of the true range over period.
func ATR(highs, lows, closes []float64, period int) []float64 {
	tr := TrueRange(highs, lows, closes)
	if tr == nil {
		return nanSeries(len(closes))
	}
	return SMA(tr, period)
}

// WilderATR is the classic exponentially smoothed ATR.
func WilderATR(highs, lows, closes []float64, period int) []float64 {
	n := len(closes)
	if period < 1 || n <= period || len(highs) != n || len(lows) != n {
		return nanSeries(n)
	}
	return mask(talib.Atr(highs, lows, closes, period), period)
}

// StdDev is the rolling population standard deviation.
func StdDev(in []float64, period int) []float64 {
	if period < 2 || len(in) < period {
		return nanSeries(len(in))
	}
	return mask(talib.StdDev(in, period, 1), period-1)
}

// Last returns the final element of s, NaN when s is empty.
func Last(s []float64) float64 {
	if len(s) == 0 {
		return math.NaN()
	}
	return s[len(s)-1]
}

// BarsATR is ATR over a bar slice.
func BarsATR(bars []market.Bar, period int) []float64 {
	return ATR(market.Highs(bars), market.Lows(bars), market.Closes(bars), period)
}

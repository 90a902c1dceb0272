package patterns

import (
	"sort"

	"github.com/rustyeddy/tradesim/indicators"
	"github.com/rustyeddy/tradesim/market"
)

// SwingLows returns every value strictly below both neighbours, in order.
func SwingLows(lows []float64) []float64 {
	var out []float64
	for j := 1; j < len(lows)-1; j++ {
		if lows[j] < lows[j-1] && lows[j] < lows[j+1] {
			out = append(out, lows[j])
		}
	}
	return out
}

// SwingHighs returns every value strictly above both neighbours, in order.
func SwingHighs(highs []float64) []float64 {
	var out []float64
	for j := 1; j < len(highs)-1; j++ {
		if highs[j] > highs[j-1] && highs[j] > highs[j+1] {
			out = append(out, highs[j])
		}
	}
	return out
}

// ClusterLevels sorts levels and merges neighbours within threshold (a
// fraction, 0.03 == 3%) of the previous member into one averaged level.
func ClusterLevels(levels []float64, threshold float64) []float64 {
	if len(levels) == 0 {
		return nil
	}
	sorted := append([]float64(nil), levels...)
	sort.Float64s(sorted)

	var out []float64
	group := []float64{sorted[0]}
	flush := func() {
		sum := 0.0
		for _, v := range group {
			sum += v
		}
		out = append(out, sum/float64(len(group)))
	}
	for _, lvl := range sorted[1:] {
		last := group[len(group)-1]
		if last != 0 && abs(lvl-last)/abs(last) <= threshold {
			group = append(group, lvl)
			continue
		}
		flush()
		group = []float64{lvl}
	}
	flush()
	return out
}

// SupportResistance collects swing lows and highs from every trailing window
// of period bars and clusters them.
func SupportResistance(highs, lows []float64, period int, threshold float64) (supports, resistances []float64) {
	if period < 3 {
		return nil, nil
	}
	var s, r []float64
	for i := period; i < len(lows) && i <= len(highs); i++ {
		s = append(s, SwingLows(lows[i-period:i])...)
		r = append(r, SwingHighs(highs[i-period:i])...)
	}
	return ClusterLevels(s, threshold), ClusterLevels(r, threshold)
}

// WindowLevels clusters the swing points inside a single window.
func WindowLevels(highs, lows []float64, threshold float64) (supports, resistances []float64) {
	return ClusterLevels(SwingLows(lows), threshold), ClusterLevels(SwingHighs(highs), threshold)
}

// Trend reports Buy while the short SMA is above the long one, Sell while it
// is below and None otherwise, including during warm-up.
func Trend(bars []market.Bar, short, long int) []market.Direction {
	closes := market.Closes(bars)
	fast := indicators.SMA(closes, short)
	slow := indicators.SMA(closes, long)

	out := make([]market.Direction, len(bars))
	for i := range out {
		switch {
		case fast[i] > slow[i]:
			out[i] = market.Buy
		case fast[i] < slow[i]:
			out[i] = market.Sell
		}
	}
	return out
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

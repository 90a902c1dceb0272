package risk

import (
	"math"

	"github.com/rustyeddy/tradesim/market"
)

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

// PositionSize returns how many units to trade so that hitting stop loses
// riskPct percent of capital. riskPct is a percentage (1.0 == 1%).
// A zero stop distance is degenerate and yields 0.
func PositionSize(capital, riskPct, entry, stop float64) float64 {
	dist := abs(entry - stop)
	if dist == 0 {
		return 0
	}
	return capital * (riskPct / 100) / dist
}

// StopLossFromATR places the stop multiplier ATRs away from entry on the losing side.
func StopLossFromATR(entry float64, dir market.Direction, atr, multiplier float64) float64 {
	switch dir {
	case market.Buy:
		return entry - multiplier*atr
	case market.Sell:
		return entry + multiplier*atr
	default:
		return entry
	}
}

// TakeProfit extends the entry-to-stop distance by rewardRatio on the profitable side.
// Direction is inferred from the stop: below entry means long.
func TakeProfit(entry, stop, rewardRatio float64) float64 {
	dist := abs(entry - stop)
	if entry > stop {
		return entry + dist*rewardRatio
	}
	return entry - dist*rewardRatio
}

// RR returns the reward to risk multiple of a planned trade.
func RR(entry, stop, takeProfit float64) float64 {
	risk := abs(entry - stop)
	reward := abs(takeProfit - entry)
	if risk == 0 {
		return 0
	}
	return reward / risk
}

// TrailingStop computes a trailing stop level for every step of path.
// Longs trail the running maximum by trailPct percent and never drop below entry;
// shorts trail the running minimum and never rise above entry.
func TrailingStop(path []float64, entry float64, dir market.Direction, trailPct float64) []float64 {
	out := make([]float64, len(path))
	if len(path) == 0 {
		return out
	}

	extreme := path[0]
	for i, p := range path {
		if dir == market.Sell {
			extreme = math.Min(extreme, p)
			out[i] = math.Min(extreme*(1+trailPct/100), entry)
			continue
		}
		extreme = math.Max(extreme, p)
		out[i] = math.Max(extreme*(1-trailPct/100), entry)
	}
	return out
}

// MaxExposure is the largest notional allowed open at once.
func MaxExposure(capital, exposurePct float64) float64 {
	return capital * (exposurePct / 100)
}

package paper

import (
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/strategies"
)

// SignalFunc produces the direction and confidence for the newest bar of an
// instrument's history.
type SignalFunc func(instrument string, history []market.Bar) (market.Direction, float64)

// StrategySignal evaluates src over the history and attaches a fixed
// confidence to any non-zero direction.
func StrategySignal(src strategies.Source, confidence float64) SignalFunc {
	return func(_ string, history []market.Bar) (market.Direction, float64) {
		d := strategies.Latest(src, history)
		if d == market.None {
			return d, 0
		}
		return d, confidence
	}
}

// DefaultWeights is the combination the paper driver runs unless configured
// otherwise. Pattern legs are left out.
func DefaultWeights() strategies.Params {
	return strategies.Params{
		"sma-cross":   1.0,
		"rsi":         1.0,
		"macd-cross":  1.0,
		"bollinger":   0.8,
		"pin-bar":     0,
		"sr-breakout": 0,
		"threshold":   strategies.DefaultThreshold,
	}
}

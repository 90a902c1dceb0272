package strategies

import (
	"fmt"

	"github.com/rustyeddy/tradesim/indicators"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/patterns"
)

func init() {
	register("noop", Params{}, func(Params) (Source, error) { return Noop{}, nil })

	register("sma-cross", Params{"short": 9, "long": 21}, func(p Params) (Source, error) {
		short, err := p.period("short")
		if err != nil {
			return nil, err
		}
		long, err := p.period("long")
		if err != nil {
			return nil, err
		}
		if short >= long {
			return nil, fmt.Errorf("%w: short %d must be below long %d", ErrBadParam, short, long)
		}
		return SMACross{Short: short, Long: long}, nil
	})

	register("rsi", Params{"period": 14, "overbought": 70, "oversold": 30}, func(p Params) (Source, error) {
		period, err := p.period("period")
		if err != nil {
			return nil, err
		}
		if p["oversold"] >= p["overbought"] {
			return nil, fmt.Errorf("%w: oversold %v must be below overbought %v", ErrBadParam, p["oversold"], p["overbought"])
		}
		return RSIReversal{Period: period, Overbought: p["overbought"], Oversold: p["oversold"]}, nil
	})

	register("macd-cross", Params{"fast": 12, "slow": 26, "signal": 9}, func(p Params) (Source, error) {
		fast, err := p.period("fast")
		if err != nil {
			return nil, err
		}
		slow, err := p.period("slow")
		if err != nil {
			return nil, err
		}
		signal, err := p.period("signal")
		if err != nil {
			return nil, err
		}
		if fast >= slow {
			return nil, fmt.Errorf("%w: fast %d must be below slow %d", ErrBadParam, fast, slow)
		}
		return MACDCross{Fast: fast, Slow: slow, Signal: signal}, nil
	})

	register("bollinger", Params{"period": 20, "devs": 2}, func(p Params) (Source, error) {
		period, err := p.period("period")
		if err != nil {
			return nil, err
		}
		if p["devs"] <= 0 {
			return nil, fmt.Errorf("%w: devs must be positive", ErrBadParam)
		}
		return BollingerReversal{Period: period, Devs: p["devs"]}, nil
	})

	register("pin-bar", Params{"shadow_factor": 2}, func(p Params) (Source, error) {
		if p["shadow_factor"] <= 0 {
			return nil, fmt.Errorf("%w: shadow_factor must be positive", ErrBadParam)
		}
		return PinBar{ShadowFactor: p["shadow_factor"]}, nil
	})

	register("sr-breakout", Params{"period": 14, "threshold": 0.03}, func(p Params) (Source, error) {
		period, err := p.period("period")
		if err != nil {
			return nil, err
		}
		if p["threshold"] < 0 {
			return nil, fmt.Errorf("%w: threshold must not be negative", ErrBadParam)
		}
		return Breakout{Period: period, Threshold: p["threshold"]}, nil
	})
}

// Noop never trades.
type Noop struct{}

func (Noop) Name() string { return "noop" }

func (Noop) Signals(bars []market.Bar) []market.Direction {
	return make([]market.Direction, len(bars))
}

// crosses emits Buy where a crosses above b and Sell where it crosses below.
// NaN on either side of a comparison yields no signal.
func crosses(a, b []float64) []market.Direction {
	out := make([]market.Direction, len(a))
	for i := 1; i < len(a); i++ {
		switch {
		case a[i] > b[i] && a[i-1] <= b[i-1]:
			out[i] = market.Buy
		case a[i] < b[i] && a[i-1] >= b[i-1]:
			out[i] = market.Sell
		}
	}
	return out
}

// SMACross buys when the short SMA crosses above the long one.
type SMACross struct {
	Short, Long int
}

func (s SMACross) Name() string { return fmt.Sprintf("sma-cross(%d,%d)", s.Short, s.Long) }

func (s SMACross) Signals(bars []market.Bar) []market.Direction {
	closes := market.Closes(bars)
	return crosses(indicators.SMA(closes, s.Short), indicators.SMA(closes, s.Long))
}

// RSIReversal buys when RSI climbs back over Oversold and sells when it drops
// back under Overbought.
type RSIReversal struct {
	Period     int
	Overbought float64
	Oversold   float64
}

func (r RSIReversal) Name() string { return fmt.Sprintf("rsi(%d)", r.Period) }

func (r RSIReversal) Signals(bars []market.Bar) []market.Direction {
	rsi := indicators.RSI(market.Closes(bars), r.Period)
	out := make([]market.Direction, len(bars))
	for i := 1; i < len(rsi); i++ {
		switch {
		case rsi[i] > r.Oversold && rsi[i-1] <= r.Oversold:
			out[i] = market.Buy
		case rsi[i] < r.Overbought && rsi[i-1] >= r.Overbought:
			out[i] = market.Sell
		}
	}
	return out
}

// MACDCross buys when the MACD line crosses above its signal line.
type MACDCross struct {
	Fast, Slow, Signal int
}

func (m MACDCross) Name() string {
	return fmt.Sprintf("macd-cross(%d,%d,%d)", m.Fast, m.Slow, m.Signal)
}

func (m MACDCross) Signals(bars []market.Bar) []market.Direction {
	line, sig, _ := indicators.MACD(market.Closes(bars), m.Fast, m.Slow, m.Signal)
	return crosses(line, sig)
}

// BollingerReversal fades a previous close outside the bands.
type BollingerReversal struct {
	Period int
	Devs   float64
}

func (b BollingerReversal) Name() string { return fmt.Sprintf("bollinger(%d,%g)", b.Period, b.Devs) }

func (b BollingerReversal) Signals(bars []market.Bar) []market.Direction {
	closes := market.Closes(bars)
	upper, _, lower := indicators.Bollinger(closes, b.Period, b.Devs)
	out := make([]market.Direction, len(bars))
	for i := 1; i < len(closes); i++ {
		switch {
		case closes[i-1] <= lower[i-1]:
			out[i] = market.Buy
		case closes[i-1] >= upper[i-1]:
			out[i] = market.Sell
		}
	}
	return out
}

// PinBar trades in the direction a pin bar rejects.
type PinBar struct {
	ShadowFactor float64
}

func (PinBar) Name() string { return "pin-bar" }

func (p PinBar) Signals(bars []market.Bar) []market.Direction {
	bull, bear := patterns.PinBars(bars, p.ShadowFactor)
	out := make([]market.Direction, len(bars))
	for i := range bars {
		switch {
		case bear[i]:
			out[i] = market.Sell
		case bull[i]:
			out[i] = market.Buy
		}
	}
	return out
}

// Breakout buys a close above the lowest resistance of the trailing window and
// sells a close below its highest support, each widened by half the threshold.
type Breakout struct {
	Period    int
	Threshold float64
}

func (b Breakout) Name() string { return fmt.Sprintf("sr-breakout(%d)", b.Period) }

func (b Breakout) Signals(bars []market.Bar) []market.Direction {
	highs, lows := market.Highs(bars), market.Lows(bars)
	out := make([]market.Direction, len(bars))
	for i := b.Period; i < len(bars); i++ {
		supports, resistances := patterns.WindowLevels(highs[i-b.Period:i], lows[i-b.Period:i], b.Threshold)
		if len(supports) == 0 || len(resistances) == 0 {
			continue
		}
		// clustered levels come back sorted
		lowestRes := resistances[0]
		highestSup := supports[len(supports)-1]
		c := bars[i].Close
		switch {
		case c > lowestRes*(1+b.Threshold/2):
			out[i] = market.Buy
		case c < highestSup*(1-b.Threshold/2):
			out[i] = market.Sell
		}
	}
	return out
}

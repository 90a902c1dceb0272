// Package patterns detects price-action patterns. Every detector is a pure
// transform returning one value per input bar.
package patterns

import (
	"math"

	"github.com/rustyeddy/tradesim/market"
)

// Anatomy splits a bar into body and shadows.
type Anatomy struct {
	Body        float64
	UpperShadow float64
	LowerShadow float64
}

func anatomy(b market.Bar) Anatomy {
	return Anatomy{
		Body:        math.Abs(b.Close - b.Open),
		UpperShadow: b.High - math.Max(b.Close, b.Open),
		LowerShadow: math.Min(b.Close, b.Open) - b.Low,
	}
}

func bullish(b market.Bar) bool { return b.Close > b.Open }
func bearish(b market.Bar) bool { return b.Close < b.Open }

// PinBars flags bars whose rejection shadow is longer than shadowFactor times
// both the body and the opposite shadow. A long lower shadow is bullish.
func PinBars(bars []market.Bar, shadowFactor float64) (bull, bear []bool) {
	bull = make([]bool, len(bars))
	bear = make([]bool, len(bars))
	for i, b := range bars {
		a := anatomy(b)
		bear[i] = a.UpperShadow > shadowFactor*a.Body && a.UpperShadow > shadowFactor*a.LowerShadow
		bull[i] = a.LowerShadow > shadowFactor*a.Body && a.LowerShadow > shadowFactor*a.UpperShadow
	}
	return bull, bear
}

// InsideBars flags bars whose range sits within the previous bar's range.
func InsideBars(bars []market.Bar) []bool {
	out := make([]bool, len(bars))
	for i := 1; i < len(bars); i++ {
		out[i] = bars[i].High <= bars[i-1].High && bars[i].Low >= bars[i-1].Low
	}
	return out
}

// CandlePatterns holds one flag series per classic candle pattern.
type CandlePatterns struct {
	Doji             []bool
	Hammer           []bool
	InvertedHammer   []bool
	BullishEngulfing []bool
	BearishEngulfing []bool
	MorningStar      []bool
	EveningStar      []bool
}

// Candles runs every candle detector over bars. Doji bodies are measured
// against the mean body of the whole slice.
func Candles(bars []market.Bar) CandlePatterns {
	n := len(bars)
	p := CandlePatterns{
		Doji:             make([]bool, n),
		Hammer:           make([]bool, n),
		InvertedHammer:   make([]bool, n),
		BullishEngulfing: make([]bool, n),
		BearishEngulfing: make([]bool, n),
		MorningStar:      make([]bool, n),
		EveningStar:      make([]bool, n),
	}
	if n == 0 {
		return p
	}

	an := make([]Anatomy, n)
	meanBody := 0.0
	for i, b := range bars {
		an[i] = anatomy(b)
		meanBody += an[i].Body
	}
	meanBody /= float64(n)

	for i, b := range bars {
		a := an[i]
		p.Doji[i] = a.Body < 0.1*meanBody
		p.Hammer[i] = a.LowerShadow > 2*a.Body && a.UpperShadow < 0.3*a.Body
		p.InvertedHammer[i] = a.UpperShadow > 2*a.Body && a.LowerShadow < 0.3*a.Body

		if i >= 1 {
			prev := bars[i-1]
			p.BullishEngulfing[i] = bullish(b) && bearish(prev) && b.Open <= prev.Close && b.Close >= prev.Open
			p.BearishEngulfing[i] = bearish(b) && bullish(prev) && b.Open >= prev.Close && b.Close <= prev.Open
		}
		if i >= 2 {
			first := bars[i-2]
			mid := (first.Open + first.Close) / 2
			small := an[i-1].Body < 0.5*an[i-2].Body
			p.MorningStar[i] = bearish(first) && small && bullish(b) && b.Close > mid
			p.EveningStar[i] = bullish(first) && small && bearish(b) && b.Close < mid
		}
	}
	return p
}

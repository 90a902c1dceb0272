package strategies

import (
	"fmt"
	"sort"

	"github.com/rustyeddy/tradesim/market"
)

// Leg is one weighted input to a Combined source.
type Leg struct {
	Weight float64
	Source Source
}

// Combined averages its legs' directions by weight and trades when the score
// clears Threshold in either direction.
type Combined struct {
	Legs      []Leg
	Threshold float64
}

// DefaultThreshold is the score a combination needs to trade.
const DefaultThreshold = 0.3

func init() {
	defaults := Params{"threshold": DefaultThreshold}
	for _, name := range combinedLegs {
		defaults[name] = 1.0
	}
	register("combined", defaults, func(p Params) (Source, error) {
		c := Combined{Threshold: p["threshold"]}
		sum := 0.0
		for _, name := range combinedLegs {
			w := p[name]
			if w < 0 {
				return nil, fmt.Errorf("%w: weight %s must not be negative", ErrBadParam, name)
			}
			sum += w
			if w == 0 {
				continue
			}
			src, err := New(name, nil)
			if err != nil {
				return nil, err
			}
			c.Legs = append(c.Legs, Leg{Weight: w, Source: src})
		}
		if sum == 0 {
			return nil, fmt.Errorf("%w: combined weights sum to zero", ErrBadParam)
		}
		return c, nil
	})
}

// combinedLegs are the sources the registered combination draws on, each at
// its default parameters.
var combinedLegs = []string{"sma-cross", "rsi", "macd-cross", "bollinger", "pin-bar", "sr-breakout"}

func (c Combined) Name() string {
	names := make([]string, len(c.Legs))
	for i, l := range c.Legs {
		names[i] = l.Source.Name()
	}
	sort.Strings(names)
	return fmt.Sprintf("combined%v", names)
}

// Scores returns the weighted mean direction per bar, in [-1, 1].
func (c Combined) Scores(bars []market.Bar) []float64 {
	out := make([]float64, len(bars))
	total := 0.0
	for _, l := range c.Legs {
		total += l.Weight
		for i, d := range l.Source.Signals(bars) {
			out[i] += l.Weight * float64(d)
		}
	}
	if total == 0 {
		return out
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

func (c Combined) Signals(bars []market.Bar) []market.Direction {
	scores := c.Scores(bars)
	out := make([]market.Direction, len(bars))
	for i, s := range scores {
		switch {
		case s > c.Threshold:
			out[i] = market.Buy
		case s < -c.Threshold:
			out[i] = market.Sell
		}
	}
	return out
}

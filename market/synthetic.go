package market

import (
	"math"
	"math/rand"
	"time"
)

// SyntheticConfig drives the random-walk bar generator.
type SyntheticConfig struct {
	Seed       int64
	Bars       int
	Start      time.Time
	Interval   time.Duration
	StartPrice float64
	Drift      float64 // mean return per bar, e.g. 0.0005
	Volatility float64 // stddev of return per bar, e.g. 0.015
}

// DefaultSynthetic mirrors 100 daily bars around 100 with mild upward drift.
func DefaultSynthetic() SyntheticConfig {
	return SyntheticConfig{
		Seed:       42,
		Bars:       100,
		Start:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:   24 * time.Hour,
		StartPrice: 100,
		Drift:      0.0005,
		Volatility: 0.015,
	}
}

// Synthetic generates a deterministic random-walk OHLCV series.
// Each bar opens at the previous close; high/low extend beyond the body by up to
// Volatility.
func Synthetic(cfg SyntheticConfig) []Bar {
	if cfg.Bars <= 0 {
		return nil
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.StartPrice <= 0 {
		cfg.StartPrice = 100
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	bars := make([]Bar, cfg.Bars)

	cum := 0.0
	prevClose := 0.0
	for i := range bars {
		ret := cfg.Drift + cfg.Volatility*rng.NormFloat64()
		cum += ret
		cl := cfg.StartPrice * (1 + cum)

		op := prevClose
		if i == 0 {
			op = cl * (1 - cfg.Volatility)
		}

		hi := math.Max(op, cl) * (1 + rng.Float64()*cfg.Volatility)
		lo := math.Min(op, cl) * (1 - rng.Float64()*cfg.Volatility)

		bars[i] = Bar{
			Time:   cfg.Start.Add(time.Duration(i) * cfg.Interval),
			Open:   op,
			High:   hi,
			Low:    lo,
			Close:  cl,
			Volume: (1000 + rng.Float64()*9000) * (1 + math.Abs(ret)*10),
		}
		prevClose = cl
	}
	return bars
}

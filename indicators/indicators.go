// Package indicators provides technical analysis indicators over bar series.
//
// The batch functions return one value per input element; positions inside the
// indicator's warm-up are NaN. The streaming types consume one closed bar at a
// time and are what the paper driver keeps per instrument.
package indicators

import "github.com/rustyeddy/tradesim/market"

// Indicator computes a single streaming value from bars.
type Indicator interface {
	// Name returns a stable identifier like "SMA(20)" or "ATR(14)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	Reset()

	// Update consumes the next closed bar.
	Update(b market.Bar)

	Ready() bool

	// Value is 0 until Ready().
	Value() float64
}

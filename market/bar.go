// Package market holds the price and signal types shared by the simulators.
package market

import "time"

// Direction is a discrete trading signal: -1 sell, 0 none, +1 buy.
type Direction int8

const (
	Sell Direction = -1
	None Direction = 0
	Buy  Direction = +1
)

func (d Direction) String() string {
	switch d {
	case Buy:
		return "buy"
	case Sell:
		return "sell"
	default:
		return "none"
	}
}

// Opposes reports whether d is a non-zero signal pointing against held.
func (d Direction) Opposes(held Direction) bool {
	return d != None && held != None && d != held
}

// DirectionOf clamps any integer-like score to -1, 0 or +1.
func DirectionOf(v float64) Direction {
	switch {
	case v > 0:
		return Buy
	case v < 0:
		return Sell
	default:
		return None
	}
}

// Bar is one OHLCV step. Bars are expected in timestamp order; gaps are not checked.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Signal is produced by a signal source for one instrument at one timestamp.
type Signal struct {
	Time       time.Time
	Instrument string
	Direction  Direction
	Confidence float64 // 0..1, only used by the paper driver
}

// Opens returns the open prices of bars.
func Opens(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Open
	}
	return out
}

// Highs returns the high prices of bars.
func Highs(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.High
	}
	return out
}

// Lows returns the low prices of bars.
func Lows(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Low
	}
	return out
}

// Closes returns the close prices of bars.
func Closes(bars []Bar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}

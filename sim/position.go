// Package sim holds the per-instrument position state machine shared by the
// backtest and paper drivers.
package sim

import (
	"time"

	"github.com/rustyeddy/tradesim/market"
)

type State int

const (
	Flat State = iota
	Long
	Short
)

func (s State) String() string {
	switch s {
	case Long:
		return "long"
	case Short:
		return "short"
	default:
		return "flat"
	}
}

type ExitReason string

const (
	StopLoss       ExitReason = "StopLoss"
	TakeProfit     ExitReason = "TakeProfit"
	OppositeSignal ExitReason = "OppositeSignal"
)

// Position is the single open position a Machine may hold.
type Position struct {
	ID         string
	Instrument string
	Direction  market.Direction // Buy or Sell
	EntryPrice float64
	EntryTime  time.Time
	StopLoss   float64
	TakeProfit float64
	Size       float64
}

// Notional is the capital the position ties up at its entry price.
func (p Position) Notional() float64 {
	n := p.Size * p.EntryPrice
	if n < 0 {
		return -n
	}
	return n
}

// ClosedTrade is the immutable record of a finished round trip.
type ClosedTrade struct {
	ID         string
	Instrument string
	EntryTime  time.Time
	ExitTime   time.Time
	Direction  market.Direction
	EntryPrice float64
	ExitPrice  float64
	Size       float64

	GrossResultPct float64 // dir*(exit-entry)/entry*100
	NetResultPct   float64 // gross minus commission
	Reason         ExitReason
}

// Win reports whether the trade's result after commission was positive.
// Win/loss statistics are taken on the net result.
func (t ClosedTrade) Win() bool { return t.NetResultPct > 0 }

// ResultPct returns the signed percent move of a round trip.
func ResultPct(dir market.Direction, entry, exit float64) float64 {
	return float64(dir) * (exit - entry) / entry * 100
}

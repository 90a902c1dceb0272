// Package journal writes run output: closed trades, capital snapshots and run
// summaries. Nothing here is read back to resume a simulation.
package journal

import (
	"time"

	"go.uber.org/multierr"

	"github.com/rustyeddy/tradesim/sim"
)

type TradeRecord struct {
	RunID      string
	TradeID    string
	Instrument string
	Direction  string // "buy" or "sell"
	Size       float64
	EntryPrice float64
	ExitPrice  float64
	OpenTime   time.Time
	CloseTime  time.Time
	GrossPct   float64
	NetPct     float64
	Capital    float64 // capital after the trade was booked
	Reason     string
}

// FromClosedTrade converts a closed trade for journaling.
func FromClosedTrade(runID string, t sim.ClosedTrade, capitalAfter float64) TradeRecord {
	return TradeRecord{
		RunID:      runID,
		TradeID:    t.ID,
		Instrument: t.Instrument,
		Direction:  t.Direction.String(),
		Size:       t.Size,
		EntryPrice: t.EntryPrice,
		ExitPrice:  t.ExitPrice,
		OpenTime:   t.EntryTime,
		CloseTime:  t.ExitTime,
		GrossPct:   t.GrossResultPct,
		NetPct:     t.NetResultPct,
		Capital:    capitalAfter,
		Reason:     string(t.Reason),
	}
}

type EquitySnapshot struct {
	RunID       string
	Step        int
	Time        time.Time
	Capital     float64
	DrawdownPct float64
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordEquity(EquitySnapshot) error
	Close() error
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error     { return nil }
func (Nop) RecordEquity(EquitySnapshot) error { return nil }
func (Nop) Close() error                      { return nil }

// Multi fans records out to several journals. Every journal sees every record;
// errors are combined.
type Multi []Journal

func (m Multi) RecordTrade(t TradeRecord) error {
	var err error
	for _, j := range m {
		err = multierr.Append(err, j.RecordTrade(t))
	}
	return err
}

func (m Multi) RecordEquity(e EquitySnapshot) error {
	var err error
	for _, j := range m {
		err = multierr.Append(err, j.RecordEquity(e))
	}
	return err
}

func (m Multi) Close() error {
	var err error
	for _, j := range m {
		err = multierr.Append(err, j.Close())
	}
	return err
}

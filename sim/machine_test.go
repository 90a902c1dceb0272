package sim

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/risk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC)

func bar(i int, o, h, l, c float64) market.Bar {
	return market.Bar{Time: t0.Add(time.Duration(i) * time.Minute), Open: o, High: h, Low: l, Close: c}
}

func defaultParams() Params {
	return Params{RiskPct: 1, StopATRMultiplier: 2, RewardRatio: 2}
}

// openLong enters at 100 with ATR 2: stop 96, target 108.
func openLong(t *testing.T, m *Machine) Position {
	t.Helper()
	res := m.Step(Input{Bar: bar(0, 100, 101, 99, 100.5), Signal: market.Buy, ATR: 2, Capital: 10000}, nil)
	require.NotNil(t, res.Opened)
	require.Nil(t, res.Closed)
	return *res.Opened
}

func TestMachineEntryLevels(t *testing.T) {
	t.Parallel()

	m := NewMachine("PETR4", defaultParams())
	assert.Equal(t, Flat, m.State())

	p := openLong(t, m)
	assert.Equal(t, Long, m.State())
	assert.Equal(t, "PETR4", p.Instrument)
	assert.Equal(t, 100.0, p.EntryPrice)
	assert.Equal(t, 96.0, p.StopLoss)
	assert.Equal(t, 108.0, p.TakeProfit)
	assert.InDelta(t, 25.0, p.Size, 1e-9) // 100 risked over a 4 point stop
	assert.NotEmpty(t, p.ID)
	assert.InDelta(t, 2500.0, p.Notional(), 1e-9)

	held, ok := m.Position()
	require.True(t, ok)
	assert.Equal(t, p, held)
}

func TestMachineStopLossScenario(t *testing.T) {
	t.Parallel()

	m := NewMachine("X", defaultParams())
	p := openLong(t, m)

	res := m.Step(Input{Bar: bar(1, 99, 100, 95, 97), Capital: 10000}, nil)
	require.NotNil(t, res.Closed)
	assert.Nil(t, res.Opened)

	ct := *res.Closed
	assert.Equal(t, StopLoss, ct.Reason)
	assert.Equal(t, 96.0, ct.ExitPrice)
	assert.InDelta(t, -4.0, ct.GrossResultPct, 1e-9)
	assert.InDelta(t, -4.0, ct.NetResultPct, 1e-9)
	assert.Equal(t, p.ID, ct.ID)
	assert.Equal(t, t0.Add(time.Minute), ct.ExitTime)
	assert.False(t, ct.Win())
	assert.Equal(t, Flat, m.State())
}

func TestMachineStopBeatsTargetSameBar(t *testing.T) {
	t.Parallel()

	m := NewMachine("X", defaultParams())
	openLong(t, m)

	res := m.Step(Input{Bar: bar(1, 100, 110, 95, 105)}, nil)
	require.NotNil(t, res.Closed)
	assert.Equal(t, StopLoss, res.Closed.Reason)
	assert.Equal(t, 96.0, res.Closed.ExitPrice)
}

func TestMachineTakeProfit(t *testing.T) {
	t.Parallel()

	p := defaultParams()
	p.CommissionPct = 0.1
	m := NewMachine("X", p)
	openLong(t, m)

	res := m.Step(Input{Bar: bar(1, 104, 109, 103, 108.5)}, nil)
	require.NotNil(t, res.Closed)
	assert.Equal(t, TakeProfit, res.Closed.Reason)
	assert.Equal(t, 108.0, res.Closed.ExitPrice)
	assert.InDelta(t, 8.0, res.Closed.GrossResultPct, 1e-9)
	assert.InDelta(t, 7.9, res.Closed.NetResultPct, 1e-9)
	assert.True(t, res.Closed.Win())
}

func TestMachineShortExits(t *testing.T) {
	t.Parallel()

	m := NewMachine("X", defaultParams())
	res := m.Step(Input{Bar: bar(0, 100, 101, 99, 100), Signal: market.Sell, ATR: 2, Capital: 10000}, nil)
	require.NotNil(t, res.Opened)
	assert.Equal(t, Short, m.State())
	assert.Equal(t, 104.0, res.Opened.StopLoss)
	assert.Equal(t, 92.0, res.Opened.TakeProfit)

	res = m.Step(Input{Bar: bar(1, 95, 96, 91, 93)}, nil)
	require.NotNil(t, res.Closed)
	assert.Equal(t, TakeProfit, res.Closed.Reason)
	assert.InDelta(t, 8.0, res.Closed.GrossResultPct, 1e-9)

	m.Step(Input{Bar: bar(2, 100, 101, 99, 100), Signal: market.Sell, ATR: 2, Capital: 10000}, nil)
	res = m.Step(Input{Bar: bar(3, 103, 105, 102, 104)}, nil)
	require.NotNil(t, res.Closed)
	assert.Equal(t, StopLoss, res.Closed.Reason)
	assert.InDelta(t, -4.0, res.Closed.GrossResultPct, 1e-9)
}

func TestMachineOppositeSignalReverses(t *testing.T) {
	t.Parallel()

	m := NewMachine("X", defaultParams())
	openLong(t, m)

	res := m.Step(Input{Bar: bar(1, 102, 103, 101, 102.5), Signal: market.Sell, ATR: 2, Capital: 10000}, nil)
	require.NotNil(t, res.Closed)
	require.NotNil(t, res.Opened)

	assert.Equal(t, OppositeSignal, res.Closed.Reason)
	assert.Equal(t, 102.0, res.Closed.ExitPrice)
	assert.InDelta(t, 2.0, res.Closed.GrossResultPct, 1e-9)

	assert.Equal(t, market.Sell, res.Opened.Direction)
	assert.Equal(t, 102.0, res.Opened.EntryPrice)
	assert.Equal(t, 106.0, res.Opened.StopLoss)
	assert.Equal(t, Short, m.State())
	assert.NotEqual(t, res.Closed.ID, res.Opened.ID)
}

func TestMachineSameSignalHolds(t *testing.T) {
	t.Parallel()

	m := NewMachine("X", defaultParams())
	p := openLong(t, m)

	res := m.Step(Input{Bar: bar(1, 101, 102, 100, 101), Signal: market.Buy, ATR: 2, Capital: 10000}, nil)
	assert.Nil(t, res.Closed)
	assert.Nil(t, res.Opened)

	held, ok := m.Position()
	require.True(t, ok)
	assert.Equal(t, p.ID, held.ID)
}

func TestMachineZeroSignalNeverOpens(t *testing.T) {
	t.Parallel()

	m := NewMachine("X", defaultParams())
	for i := 0; i < 20; i++ {
		res := m.Step(Input{Bar: bar(i, 100, 110, 90, 100), ATR: 2, Capital: 10000}, nil)
		assert.Nil(t, res.Opened)
		assert.Nil(t, res.Closed)
		assert.Nil(t, res.Rejected)
	}
	assert.Equal(t, Flat, m.State())
}

func TestMachineDegenerateATRSkipsEntry(t *testing.T) {
	t.Parallel()

	for _, atr := range []float64{0, -1, math.NaN()} {
		m := NewMachine("X", defaultParams())
		res := m.Step(Input{Bar: bar(0, 100, 101, 99, 100), Signal: market.Buy, ATR: atr, Capital: 10000}, nil)
		assert.Nil(t, res.Opened)
		require.NotNil(t, res.Rejected)
		assert.True(t, res.Rejected.Has(risk.DegenerateRisk))
		assert.Equal(t, Flat, m.State())
	}
}

func TestMachineGate(t *testing.T) {
	t.Parallel()

	var seen risk.EntryIntent
	halve := func(in risk.EntryIntent) risk.Decision {
		seen = in
		return risk.Decision{Allowed: true, Size: in.Size / 2}
	}

	m := NewMachine("X", defaultParams())
	res := m.Step(Input{Bar: bar(0, 100, 101, 99, 100), Signal: market.Buy, Confidence: 0.9, ATR: 2, Capital: 10000}, halve)
	require.NotNil(t, res.Opened)
	assert.InDelta(t, 12.5, res.Opened.Size, 1e-9)
	assert.Equal(t, 0.9, seen.Confidence)
	assert.Equal(t, 96.0, seen.Stop)
	assert.Equal(t, 108.0, seen.TakeProfit)

	deny := func(in risk.EntryIntent) risk.Decision {
		return risk.Decision{Violations: []risk.Violation{{Code: risk.LowConfidence}}}
	}
	m = NewMachine("X", defaultParams())
	res = m.Step(Input{Bar: bar(0, 100, 101, 99, 100), Signal: market.Buy, ATR: 2, Capital: 10000}, deny)
	assert.Nil(t, res.Opened)
	require.NotNil(t, res.Rejected)
	assert.Equal(t, "LOW_CONFIDENCE", res.Rejected.Reason())
}

func TestMachineTrailingStop(t *testing.T) {
	t.Parallel()

	p := defaultParams()
	p.TrailingPct = 2
	p.RewardRatio = 10 // keep the target out of reach
	m := NewMachine("X", p)
	openLong(t, m)

	// close 101: trail level 98.98 is under entry, stop stays at 96
	m.Step(Input{Bar: bar(1, 100, 101.5, 99, 101)}, nil)
	pos, _ := m.Position()
	assert.Equal(t, 96.0, pos.StopLoss)

	// close 105: trail level 102.9 is past entry
	m.Step(Input{Bar: bar(2, 101, 105.5, 100.5, 105)}, nil)
	pos, _ = m.Position()
	assert.InDelta(t, 102.9, pos.StopLoss, 1e-9)

	// a lower close never loosens the stop
	m.Step(Input{Bar: bar(3, 104, 104.5, 103, 103.5)}, nil)
	pos, _ = m.Position()
	assert.InDelta(t, 102.9, pos.StopLoss, 1e-9)

	res := m.Step(Input{Bar: bar(4, 103, 103.2, 102, 102.5)}, nil)
	require.NotNil(t, res.Closed)
	assert.Equal(t, StopLoss, res.Closed.Reason)
	assert.InDelta(t, 102.9, res.Closed.ExitPrice, 1e-9)
	assert.Greater(t, res.Closed.NetResultPct, 0.0)
}

func TestMachineTrailingBreakevenKeepsStop(t *testing.T) {
	t.Parallel()

	p := defaultParams()
	p.TrailingPct = 50
	p.RewardRatio = 100 // keep the target out of reach
	m := NewMachine("X", p)
	openLong(t, m)

	// close 200: trail level is exactly the 100 entry, the stop is not moved
	m.Step(Input{Bar: bar(1, 150, 200, 150, 200)}, nil)
	pos, _ := m.Position()
	assert.Equal(t, 96.0, pos.StopLoss)

	// close 202: trail level 101 is past entry
	m.Step(Input{Bar: bar(2, 200, 202, 199, 202)}, nil)
	pos, _ = m.Position()
	assert.Equal(t, 101.0, pos.StopLoss)
}

func TestMachineExitThenEnterUsesNewCapital(t *testing.T) {
	t.Parallel()

	m := NewMachine("X", defaultParams())
	openLong(t, m)

	in := Input{Bar: bar(1, 97, 98, 97, 97.5), Signal: market.Sell, ATR: 2}
	closed := m.Exit(in)
	require.NotNil(t, closed)
	assert.Equal(t, OppositeSignal, closed.Reason)
	assert.Equal(t, Flat, m.State())

	in.Capital = 9700
	opened, rejected := m.Enter(in, nil)
	require.NotNil(t, opened)
	assert.Nil(t, rejected)
	assert.InDelta(t, 24.25, opened.Size, 1e-9) // 1% of 9700 over a 4 point stop
	assert.Equal(t, Short, m.State())

	// a held position is not re-entered
	opened, rejected = m.Enter(in, nil)
	assert.Nil(t, opened)
	assert.Nil(t, rejected)
}

func TestStateString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "flat", Flat.String())
	assert.Equal(t, "long", Long.String())
	assert.Equal(t, "short", Short.String())
}

package sim

import (
	"time"

	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/risk"
)

// Params are the per-trade rules a Machine applies. Percentages are in
// percent units (1.0 == 1%).
type Params struct {
	RiskPct           float64
	StopATRMultiplier float64
	RewardRatio       float64
	CommissionPct     float64
	TrailingPct       float64 // 0 disables the trailing stop
}

// ParamsFrom copies the trade rules out of a risk policy.
func ParamsFrom(p risk.Policy) Params {
	return Params{
		RiskPct:           p.RiskPct,
		StopATRMultiplier: p.StopATRMultiplier,
		RewardRatio:       p.RewardRatio,
		CommissionPct:     p.CommissionPct,
		TrailingPct:       p.TrailingPct,
	}
}

// Input is everything a Machine needs to advance one step.
type Input struct {
	Bar        market.Bar
	Signal     market.Direction
	Confidence float64
	ATR        float64 // volatility at this step, sizes the stop
	Capital    float64 // capital available for sizing
}

// EntryGate may veto or resize a candidate entry. A nil gate only rejects
// degenerate sizes.
type EntryGate func(intent risk.EntryIntent) risk.Decision

// Result reports what a step did. At most one trade closes and at most one
// position opens per step; both can happen when a position is reversed.
type Result struct {
	Closed   *ClosedTrade
	Opened   *Position
	Rejected *risk.Decision
}

// Machine tracks the lifecycle of at most one position for one instrument:
// Flat -> Long|Short -> Flat. It is not safe for concurrent use; drivers
// serialise access per instrument.
type Machine struct {
	instrument string
	params     Params

	pos    *Position
	closes []float64 // closes seen since entry, feeds the trailing stop
}

func NewMachine(instrument string, p Params) *Machine {
	return &Machine{instrument: instrument, params: p}
}

func (m *Machine) Instrument() string { return m.instrument }

func (m *Machine) Params() Params { return m.params }

func (m *Machine) State() State {
	switch {
	case m.pos == nil:
		return Flat
	case m.pos.Direction == market.Buy:
		return Long
	default:
		return Short
	}
}

// Position returns a copy of the open position, if any.
func (m *Machine) Position() (Position, bool) {
	if m.pos == nil {
		return Position{}, false
	}
	return *m.pos, true
}

// Step advances the machine by one bar. Exits are checked first (stop, target,
// opposing signal); a machine that is flat afterwards enters at the bar open
// when the signal is non-zero and the gate allows it. Both phases size from
// in.Capital; drivers that book the exit before sizing the next entry call
// Exit and Enter themselves.
func (m *Machine) Step(in Input, gate EntryGate) Result {
	var res Result
	res.Closed = m.Exit(in)
	res.Opened, res.Rejected = m.Enter(in, gate)
	return res
}

// Exit runs the exit checks for one bar and returns the trade they close, if
// any. A surviving position has its trailing stop tightened.
func (m *Machine) Exit(in Input) *ClosedTrade {
	if m.pos == nil {
		return nil
	}
	if px, reason, hit := checkExit(*m.pos, in.Bar, in.Signal); hit {
		t := m.close(in.Bar.Time, px, reason)
		return &t
	}
	if m.params.TrailingPct > 0 {
		m.trail(in.Bar.Close)
	}
	return nil
}

// Enter opens a position at the bar open when the machine is flat and the
// signal is non-zero. It reports the opened position or the gate's refusal;
// both are nil when there was nothing to do.
func (m *Machine) Enter(in Input, gate EntryGate) (*Position, *risk.Decision) {
	if m.pos != nil || in.Signal == market.None {
		return nil, nil
	}
	var res Result
	m.enter(in, gate, &res)
	return res.Opened, res.Rejected
}

func (m *Machine) enter(in Input, gate EntryGate, res *Result) {
	entry := in.Bar.Open
	stop := risk.StopLossFromATR(entry, in.Signal, in.ATR, m.params.StopATRMultiplier)
	take := risk.TakeProfit(entry, stop, m.params.RewardRatio)

	size := 0.0
	if in.ATR > 0 {
		size = risk.PositionSize(in.Capital, m.params.RiskPct, entry, stop)
	}

	intent := risk.EntryIntent{
		Time:       in.Bar.Time,
		Instrument: m.instrument,
		Direction:  in.Signal,
		Confidence: in.Confidence,
		Entry:      entry,
		Stop:       stop,
		TakeProfit: take,
		Size:       size,
	}
	if gate == nil {
		gate = defaultGate
	}
	d := gate(intent)
	if !d.Allowed {
		res.Rejected = &d
		return
	}

	m.pos = &Position{
		ID:         id.NewAt(in.Bar.Time),
		Instrument: m.instrument,
		Direction:  in.Signal,
		EntryPrice: entry,
		EntryTime:  in.Bar.Time,
		StopLoss:   stop,
		TakeProfit: take,
		Size:       d.Size,
	}
	m.closes = m.closes[:0]

	p := *m.pos
	res.Opened = &p
}

func (m *Machine) close(t time.Time, px float64, reason ExitReason) ClosedTrade {
	p := *m.pos
	gross := ResultPct(p.Direction, p.EntryPrice, px)

	m.pos = nil
	m.closes = m.closes[:0]

	return ClosedTrade{
		ID:             p.ID,
		Instrument:     p.Instrument,
		EntryTime:      p.EntryTime,
		ExitTime:       t,
		Direction:      p.Direction,
		EntryPrice:     p.EntryPrice,
		ExitPrice:      px,
		Size:           p.Size,
		GrossResultPct: gross,
		NetResultPct:   gross - m.params.CommissionPct,
		Reason:         reason,
	}
}

// trail tightens the stop once the trailing level moves strictly past entry,
// so a breakeven level leaves the original stop in place. The path starts
// with the first close after the entry bar. The stop never loosens.
func (m *Machine) trail(lastClose float64) {
	m.closes = append(m.closes, lastClose)

	p := m.pos
	levels := risk.TrailingStop(m.closes, p.EntryPrice, p.Direction, m.params.TrailingPct)
	lvl := levels[len(levels)-1]

	if p.Direction == market.Buy {
		if lvl > p.EntryPrice && lvl > p.StopLoss {
			p.StopLoss = lvl
		}
		return
	}
	if lvl < p.EntryPrice && lvl < p.StopLoss {
		p.StopLoss = lvl
	}
}

func defaultGate(intent risk.EntryIntent) risk.Decision {
	return risk.Evaluate(risk.Policy{}, intent, risk.ExposureSnapshot{})
}

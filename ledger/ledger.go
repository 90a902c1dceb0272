// Package ledger accumulates capital and closed trades for a run and derives
// performance statistics from them.
package ledger

import (
	"sync"

	"github.com/rustyeddy/tradesim/sim"
)

// Compound applies one closed trade to capital. The net percent result is
// scaled by the risk fraction and then by 100 again, so the risk fraction is
// effectively applied twice. Kept literal pending a product decision; at 1%
// risk it reduces to capital*(1+net/100).
func Compound(capital, netPct, riskPct float64) float64 {
	return capital * (1 + (netPct/100)*(riskPct/100)*100)
}

// Ledger is safe for concurrent use. Appends are serialised so the capital
// trace and the trade list always agree on ordering.
type Ledger struct {
	mu      sync.Mutex
	riskPct float64
	initial float64
	capital float64
	trace   []float64
	trades  []sim.ClosedTrade
}

// New returns a ledger whose trace is seeded with initial capital.
func New(initial, riskPct float64) *Ledger {
	return &Ledger{
		riskPct: riskPct,
		initial: initial,
		capital: initial,
		trace:   []float64{initial},
	}
}

func (l *Ledger) Initial() float64 { return l.initial }

func (l *Ledger) Capital() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.capital
}

// Record compounds capital by t's net result and appends t. It returns the
// capital after the trade.
func (l *Ledger) Record(t sim.ClosedTrade) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.capital = Compound(l.capital, t.NetResultPct, l.riskPct)
	l.trades = append(l.trades, t)
	return l.capital
}

// Mark appends the current capital to the trace, closing out one step.
func (l *Ledger) Mark() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.trace = append(l.trace, l.capital)
	return l.capital
}

// Trace returns a copy of the capital trace.
func (l *Ledger) Trace() []float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]float64, len(l.trace))
	copy(out, l.trace)
	return out
}

// Trades returns a copy of the closed trades in the order they were recorded.
func (l *Ledger) Trades() []sim.ClosedTrade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]sim.ClosedTrade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Metrics computes statistics over a consistent snapshot of the ledger.
func (l *Ledger) Metrics() Metrics {
	l.mu.Lock()
	trace := make([]float64, len(l.trace))
	copy(trace, l.trace)
	trades := make([]sim.ClosedTrade, len(l.trades))
	copy(trades, l.trades)
	l.mu.Unlock()

	return Compute(l.initial, trace, trades)
}

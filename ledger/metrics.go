package ledger

import (
	"math"

	"github.com/rustyeddy/tradesim/sim"
)

// Metrics summarises a run. Percent fields are in percent units.
type Metrics struct {
	InitialCapital float64 `json:"initial_capital"`
	FinalCapital   float64 `json:"final_capital"`
	TotalReturnPct float64 `json:"total_return_pct"`

	TotalTrades   int     `json:"total_trades"`
	Winners       int     `json:"winners"`
	Losers        int     `json:"losers"`
	WinRate       float64 `json:"win_rate"`
	ProfitFactor  float64 `json:"profit_factor"` // +Inf with wins and no losses
	AvgWinPct     float64 `json:"avg_win_pct"`
	AvgLossPct    float64 `json:"avg_loss_pct"` // positive magnitude
	ExpectancyPct float64 `json:"expectancy_pct"`

	MaxDrawdownPct     float64 `json:"max_drawdown_pct"` // <= 0
	CurrentDrawdownPct float64 `json:"current_drawdown_pct"`
	VolatilityPct      float64 `json:"volatility_pct"`
	Sharpe             float64 `json:"sharpe"`
}

// Compute derives Metrics from a capital trace and the trades that produced it.
// Empty inputs yield zeros rather than errors. Win and loss figures use each
// trade's gross result.
func Compute(initial float64, trace []float64, trades []sim.ClosedTrade) Metrics {
	m := Metrics{InitialCapital: initial, FinalCapital: initial}
	if len(trace) > 0 {
		m.FinalCapital = trace[len(trace)-1]
	}
	if initial != 0 {
		m.TotalReturnPct = (m.FinalCapital/initial - 1) * 100
	}

	tradeStats(&m, trades)

	dd := DrawdownSeries(trace)
	for _, v := range dd {
		m.MaxDrawdownPct = math.Min(m.MaxDrawdownPct, v)
	}
	if len(dd) > 0 {
		m.CurrentDrawdownPct = dd[len(dd)-1]
	}

	rets := StepReturns(trace)
	mean, std := meanStd(rets)
	m.VolatilityPct = std * 100
	if std > 0 {
		m.Sharpe = mean / std * math.Sqrt(252)
	}
	return m
}

func tradeStats(m *Metrics, trades []sim.ClosedTrade) {
	m.TotalTrades = len(trades)
	if m.TotalTrades == 0 {
		return
	}

	var gains, losses float64
	for _, t := range trades {
		if t.Win() {
			m.Winners++
			gains += t.NetResultPct
		} else {
			losses += t.NetResultPct
		}
	}
	losses = math.Abs(losses)
	m.Losers = m.TotalTrades - m.Winners
	m.WinRate = float64(m.Winners) / float64(m.TotalTrades) * 100

	switch {
	case losses > 0:
		m.ProfitFactor = gains / losses
	case m.Winners > 0:
		m.ProfitFactor = math.Inf(1)
	}

	if m.Winners > 0 {
		m.AvgWinPct = gains / float64(m.Winners)
	}
	if m.Losers > 0 {
		m.AvgLossPct = losses / float64(m.Losers)
	}
	m.ExpectancyPct = m.WinRate/100*m.AvgWinPct - (1-m.WinRate/100)*m.AvgLossPct
}

// DrawdownSeries returns, per trace point, the percent distance below the
// running peak. Points where the peak is not positive report 0.
func DrawdownSeries(trace []float64) []float64 {
	out := make([]float64, len(trace))
	peak := math.Inf(-1)
	for i, v := range trace {
		peak = math.Max(peak, v)
		if peak > 0 {
			out[i] = (v - peak) / peak * 100
		}
	}
	return out
}

// StepReturns returns the fractional change between consecutive trace points.
// A step from zero capital counts as no change.
func StepReturns(trace []float64) []float64 {
	if len(trace) < 2 {
		return nil
	}
	out := make([]float64, len(trace)-1)
	for i := 1; i < len(trace); i++ {
		if prev := trace[i-1]; prev != 0 {
			out[i-1] = (trace[i] - prev) / prev
		}
	}
	return out
}

// meanStd returns the mean and population standard deviation of xs.
func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))

	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(xs)))
}

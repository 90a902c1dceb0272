package sim

import "github.com/rustyeddy/tradesim/market"

// checkExit applies the exit rules in their fixed order: stop, then target,
// then an opposing signal filled at the bar open. When stop and target are both
// touched within one bar the stop wins.
func checkExit(p Position, b market.Bar, signal market.Direction) (exitPx float64, reason ExitReason, hit bool) {
	switch {
	case hitStopLoss(p, b):
		return p.StopLoss, StopLoss, true
	case hitTakeProfit(p, b):
		return p.TakeProfit, TakeProfit, true
	case signal.Opposes(p.Direction):
		return b.Open, OppositeSignal, true
	}
	return 0, "", false
}

func hitStopLoss(p Position, b market.Bar) bool {
	if p.Direction == market.Buy {
		return b.Low <= p.StopLoss
	}
	return b.High >= p.StopLoss
}

func hitTakeProfit(p Position, b market.Bar) bool {
	if p.Direction == market.Buy {
		return b.High >= p.TakeProfit
	}
	return b.Low <= p.TakeProfit
}

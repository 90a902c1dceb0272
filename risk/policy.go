package risk

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// ErrUnknownParam is returned by Policy.Set for names it does not recognise.
var ErrUnknownParam = errors.New("unknown risk parameter")

type Policy struct {
	RiskPct           float64 // 1.0 == 1% of capital per trade
	StopATRMultiplier float64 // 2.0
	RewardRatio       float64 // 2.0
	CommissionPct     float64 // charged once per round trip, e.g. 0.1

	// Optional trailing stop, percent of the best close since entry. 0 disables.
	TrailingPct float64

	// Paper trading gates. Zero values disable them.
	ExposurePct         float64 // 20.0
	ConfidenceThreshold float64 // 0.8
	Window              *TradingWindow
}

// DefaultPolicy risks 1% per trade with a 2 ATR stop and a 1:2 target.
func DefaultPolicy() Policy {
	return Policy{
		RiskPct:           1.0,
		StopATRMultiplier: 2.0,
		RewardRatio:       2.0,
	}
}

// EntryIntent is a candidate entry as planned by the state machine.
type EntryIntent struct {
	Time       time.Time
	Instrument string
	Direction  market.Direction
	Confidence float64

	Entry      float64
	Stop       float64
	TakeProfit float64
	Size       float64
}

// Notional is the capital tied up by the intent.
func (in EntryIntent) Notional() float64 {
	return abs(in.Size * in.Entry)
}

// ExposureSnapshot is the account state the gate checks against.
type ExposureSnapshot struct {
	Capital      float64
	OpenNotional float64
}

var params = map[string]func(p *Policy) *float64{
	"risk_pct":             func(p *Policy) *float64 { return &p.RiskPct },
	"stop_atr_multiplier":  func(p *Policy) *float64 { return &p.StopATRMultiplier },
	"reward_ratio":         func(p *Policy) *float64 { return &p.RewardRatio },
	"commission_pct":       func(p *Policy) *float64 { return &p.CommissionPct },
	"trailing_pct":         func(p *Policy) *float64 { return &p.TrailingPct },
	"exposure_pct":         func(p *Policy) *float64 { return &p.ExposurePct },
	"confidence_threshold": func(p *Policy) *float64 { return &p.ConfidenceThreshold },
}

// Set assigns a numeric parameter by its configuration name.
func (p *Policy) Set(name string, v float64) error {
	f, ok := params[name]
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownParam, name)
	}
	*f(p) = v
	return nil
}

// ParamNames lists the names accepted by Set, sorted.
func ParamNames() []string {
	out := make([]string, 0, len(params))
	for k := range params {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

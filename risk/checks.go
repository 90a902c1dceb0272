package risk

import (
	"fmt"
	"math"
	"strings"
)

const (
	OutsideWindow     = "OUTSIDE_WINDOW"
	LowConfidence     = "LOW_CONFIDENCE"
	DegenerateRisk    = "DEGENERATE_RISK"
	ExposureExhausted = "EXPOSURE_EXHAUSTED"
)

type Violation struct {
	Code string
	Msg  string
}

type Decision struct {
	Allowed    bool
	Violations []Violation

	// Size is the approved size, possibly clamped below the intent's.
	Size      float64
	Clamped   bool
	PlannedRR float64
}

func (d *Decision) add(code, msg string) {
	d.Violations = append(d.Violations, Violation{Code: code, Msg: msg})
	d.Allowed = false
	d.Size = 0
}

// Has reports whether the decision carries a violation with code.
func (d Decision) Has(code string) bool {
	for _, v := range d.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Reason joins the violation codes, "" when allowed.
func (d Decision) Reason() string {
	codes := make([]string, len(d.Violations))
	for i, v := range d.Violations {
		codes[i] = v.Code
	}
	return strings.Join(codes, ",")
}

// Evaluate decides whether a candidate entry may open.
// Gates disabled in p (nil window, zero threshold, zero exposure) are skipped.
// When the exposure cap would be exceeded the size is clamped to the remaining
// headroom; the entry is refused only when no headroom is left.
func Evaluate(p Policy, intent EntryIntent, acct ExposureSnapshot) Decision {
	d := Decision{Allowed: true, Size: intent.Size}

	if intent.Size <= 0 || math.IsNaN(intent.Size) || math.IsInf(intent.Size, 0) || intent.Entry <= 0 {
		d.add(DegenerateRisk, fmt.Sprintf("size %.4f at entry %.4f", intent.Size, intent.Entry))
		return d
	}
	d.PlannedRR = RR(intent.Entry, intent.Stop, intent.TakeProfit)

	if p.Window != nil && !InTradingWindow(intent.Time, *p.Window) {
		d.add(OutsideWindow, fmt.Sprintf("%s outside %s", intent.Time.Format("15:04"), p.Window))
	}
	if p.ConfidenceThreshold > 0 && intent.Confidence < p.ConfidenceThreshold {
		d.add(LowConfidence, fmt.Sprintf("confidence %.2f below %.2f", intent.Confidence, p.ConfidenceThreshold))
	}
	if !d.Allowed || p.ExposurePct <= 0 {
		return d
	}

	headroom := MaxExposure(acct.Capital, p.ExposurePct) - acct.OpenNotional
	if headroom <= 0 {
		d.add(ExposureExhausted, fmt.Sprintf("open %.2f >= max %.2f",
			acct.OpenNotional, MaxExposure(acct.Capital, p.ExposurePct)))
		return d
	}
	if intent.Notional() > headroom {
		d.Size = headroom / intent.Entry
		d.Clamped = true
	}
	return d
}

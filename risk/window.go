package risk

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TradingWindow bounds new entries to a range of minutes within the day.
// Both ends are inclusive.
type TradingWindow struct {
	Start int // minute of day, 0..1439
	End   int
}

// AllDay never blocks an entry.
var AllDay = TradingWindow{Start: 0, End: 24*60 - 1}

// ParseWindow builds a window from two "HH:MM" clock strings.
func ParseWindow(start, end string) (TradingWindow, error) {
	s, err := ParseClock(start)
	if err != nil {
		return TradingWindow{}, fmt.Errorf("window start: %w", err)
	}
	e, err := ParseClock(end)
	if err != nil {
		return TradingWindow{}, fmt.Errorf("window end: %w", err)
	}
	return TradingWindow{Start: s, End: e}, nil
}

// ParseClock converts "HH:MM" to minutes past midnight.
func ParseClock(s string) (int, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("bad clock %q (want HH:MM)", s)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("bad hour in %q", s)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("bad minute in %q", s)
	}
	return h*60 + m, nil
}

// InTradingWindow reports whether ts falls inside w, comparing minute of day in
// ts's own location. A window whose end precedes its start admits nothing.
func InTradingWindow(ts time.Time, w TradingWindow) bool {
	now := ts.Hour()*60 + ts.Minute()
	return w.Start <= now && now <= w.End
}

func (w TradingWindow) String() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", w.Start/60, w.Start%60, w.End/60, w.End%60)
}

package paper

import (
	"context"
	"sort"
	"time"

	"github.com/rustyeddy/tradesim/market"
)

// Feed yields ticks one at a time. Next returns ok=false with a nil error at
// the end of the data.
type Feed interface {
	Next(ctx context.Context) (t market.Tick, ok bool, err error)
	Close() error
}

// ReplayFeed replays recorded ticks, waiting cadence between them. The first
// tick is delivered immediately; a zero cadence replays as fast as possible.
type ReplayFeed struct {
	ticks   []market.Tick
	cadence time.Duration
	pos     int
	timer   *time.Timer
}

func NewReplayFeed(ticks []market.Tick, cadence time.Duration) *ReplayFeed {
	return &ReplayFeed{ticks: ticks, cadence: cadence}
}

func (f *ReplayFeed) Next(ctx context.Context) (market.Tick, bool, error) {
	if err := ctx.Err(); err != nil {
		return market.Tick{}, false, err
	}
	if f.pos >= len(f.ticks) {
		return market.Tick{}, false, nil
	}

	if f.pos > 0 && f.cadence > 0 {
		if f.timer == nil {
			f.timer = time.NewTimer(f.cadence)
		} else {
			f.timer.Reset(f.cadence)
		}
		select {
		case <-ctx.Done():
			return market.Tick{}, false, ctx.Err()
		case <-f.timer.C:
		}
	}

	t := f.ticks[f.pos]
	f.pos++
	return t, true, nil
}

func (f *ReplayFeed) Close() error {
	if f.timer != nil {
		f.timer.Stop()
	}
	return nil
}

// TicksFromBars labels every bar with the instrument.
func TicksFromBars(instrument string, bars []market.Bar) []market.Tick {
	out := make([]market.Tick, len(bars))
	for i, b := range bars {
		out[i] = market.Tick{Instrument: instrument, Bar: b}
	}
	return out
}

// FeedsByInstrument splits ticks into one replay feed per instrument, sorted
// by instrument name.
func FeedsByInstrument(ticks []market.Tick, cadence time.Duration) []Feed {
	grouped := market.GroupByInstrument(ticks)
	names := make([]string, 0, len(grouped))
	for name := range grouped {
		names = append(names, name)
	}
	sort.Strings(names)

	feeds := make([]Feed, len(names))
	for i, name := range names {
		feeds[i] = NewReplayFeed(TicksFromBars(name, grouped[name]), cadence)
	}
	return feeds
}

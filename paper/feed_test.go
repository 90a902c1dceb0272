package paper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/strategies"
)

func TestReplayFeed(t *testing.T) {
	t.Parallel()

	f := NewReplayFeed([]market.Tick{quiet("A", 0), quiet("A", 1)}, 0)
	defer f.Close()

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		tk, ok, err := f.Next(ctx)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, noon.Add(time.Duration(i)*time.Minute), tk.Time)
	}
	_, ok, err := f.Next(ctx)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestFeedsByInstrument(t *testing.T) {
	t.Parallel()

	ticks := []market.Tick{quiet("VALE3", 0), quiet("PETR4", 0), quiet("VALE3", 1)}
	feeds := FeedsByInstrument(ticks, 0)
	require.Len(t, feeds, 2)

	tk, ok, err := feeds[0].Next(context.Background())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "PETR4", tk.Instrument)

	n := 0
	for {
		_, ok, err := feeds[1].Next(context.Background())
		require.NoError(t, err)
		if !ok {
			break
		}
		n++
	}
	assert.Equal(t, 2, n)
}

func TestStrategySignal(t *testing.T) {
	t.Parallel()

	fn := StrategySignal(strategies.Noop{}, 0.8)
	d, c := fn("A", []market.Bar{quiet("A", 0).Bar})
	assert.Equal(t, market.None, d)
	assert.Zero(t, c)

	w := DefaultWeights()
	assert.Equal(t, 0.8, w["bollinger"])
	assert.Zero(t, w["pin-bar"])
	_, err := strategies.New("combined", w)
	assert.NoError(t, err)
}

package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/tradesim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestBars() []market.Bar {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	raw := [][3]float64{
		{10, 8, 9},
		{11, 9, 10},
		{12, 10, 11},
		{11, 9, 10},
		{12, 10, 11},
		{13, 11, 12},
		{20, 18, 19}, // gap up: true range 8
	}
	bars := make([]market.Bar, len(raw))
	for i, r := range raw {
		bars[i] = market.Bar{Time: base.Add(time.Duration(i) * time.Hour), Open: r[2], High: r[0], Low: r[1], Close: r[2]}
	}
	return bars
}

func ramp(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = float64(i + 1)
	}
	return out
}

func TestSMA(t *testing.T) {
	t.Parallel()

	got := SMA(ramp(10), 3)
	require.Len(t, got, 10)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 2.0, got[2], 1e-9)
	assert.InDelta(t, 9.0, got[9], 1e-9)

	short := SMA([]float64{1, 2}, 3)
	require.Len(t, short, 2)
	assert.True(t, math.IsNaN(short[1]))

	assert.Equal(t, []float64{1, 2}, SMA([]float64{1, 2}, 1))
}

func TestEMAMatchesStreaming(t *testing.T) {
	t.Parallel()

	in := []float64{102, 105, 106, 108, 110, 111, 113, 114, 116, 118}
	batch := EMA(in, 5)
	require.Len(t, batch, len(in))
	assert.True(t, math.IsNaN(batch[3]))
	assert.InDelta(t, (102.0+105+106+108+110)/5, batch[4], 1e-9)

	s := NewEMA(5)
	for _, v := range in {
		s.Update(market.Bar{Close: v})
	}
	require.True(t, s.Ready())
	assert.InDelta(t, Last(batch), s.Value(), 1e-9)
}

func TestRSI(t *testing.T) {
	t.Parallel()

	got := RSI(ramp(30), 14)
	require.Len(t, got, 30)
	assert.True(t, math.IsNaN(got[13]))
	assert.InDelta(t, 100.0, got[29], 1e-9)

	zig := make([]float64, 40)
	for i := range zig {
		zig[i] = 100 + float64(i%2)
	}
	for _, v := range RSI(zig, 14)[14:] {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}

func TestMACDShape(t *testing.T) {
	t.Parallel()

	in := make([]float64, 60)
	for i := range in {
		in[i] = 100 + 10*math.Sin(float64(i)/5)
	}
	line, sig, hist := MACD(in, 12, 26, 9)
	require.Len(t, line, 60)
	require.Len(t, sig, 60)
	require.Len(t, hist, 60)
	assert.True(t, math.IsNaN(line[32]))
	assert.False(t, math.IsNaN(line[33]))
	assert.InDelta(t, line[59]-sig[59], hist[59], 1e-9)

	l, _, _ := MACD(in[:10], 12, 26, 9)
	assert.True(t, math.IsNaN(l[9]))
}

func TestBollinger(t *testing.T) {
	t.Parallel()

	up, mid, lo := Bollinger([]float64{1, 2, 3}, 3, 1)
	assert.InDelta(t, 2.0, mid[2], 1e-9)
	assert.InDelta(t, 2+math.Sqrt(2.0/3), up[2], 1e-9)
	assert.InDelta(t, 2-math.Sqrt(2.0/3), lo[2], 1e-9)
	assert.True(t, math.IsNaN(mid[1]))

	flat := []float64{5, 5, 5, 5}
	up, mid, lo = Bollinger(flat, 3, 2)
	assert.InDelta(t, up[3], lo[3], 1e-9)
	assert.InDelta(t, 5.0, mid[3], 1e-9)

	sd := StdDev([]float64{1, 2, 3}, 3)
	assert.InDelta(t, math.Sqrt(2.0/3), sd[2], 1e-9)
}

func TestStochasticRange(t *testing.T) {
	t.Parallel()

	bars := market.Synthetic(market.DefaultSynthetic())
	k, d := Stochastic(market.Highs(bars), market.Lows(bars), market.Closes(bars), 14, 3, 3)
	require.Len(t, k, len(bars))
	require.Len(t, d, len(bars))
	for i := 17; i < len(bars); i++ {
		assert.GreaterOrEqual(t, k[i], 0.0)
		assert.LessOrEqual(t, k[i], 100.0)
	}
	assert.True(t, math.IsNaN(k[0]))
}

func TestTrueRangeAndATR(t *testing.T) {
	t.Parallel()

	bars := createTestBars()
	tr := TrueRange(market.Highs(bars), market.Lows(bars), market.Closes(bars))
	assert.Equal(t, []float64{2, 2, 2, 2, 2, 2, 8}, tr)

	atr := BarsATR(bars, 3)
	require.Len(t, atr, len(bars))
	assert.True(t, math.IsNaN(atr[1]))
	assert.InDelta(t, 2.0, atr[2], 1e-9)
	assert.InDelta(t, 4.0, atr[6], 1e-9)

	single := TrueRange([]float64{5}, []float64{3}, []float64{4})
	assert.Equal(t, []float64{2}, single)
	assert.Nil(t, TrueRange([]float64{1}, nil, []float64{1}))

	w := WilderATR(market.Highs(bars), market.Lows(bars), market.Closes(bars), 3)
	require.Len(t, w, len(bars))
	assert.True(t, math.IsNaN(w[2]))
	assert.Greater(t, w[6], 2.0)
}

func TestRollingATRMatchesBatch(t *testing.T) {
	t.Parallel()

	bars := market.Synthetic(market.DefaultSynthetic())
	batch := BarsATR(bars, 14)

	a := NewATR(14)
	assert.Equal(t, "ATR(14)", a.Name())
	assert.Equal(t, 14, a.Warmup())
	for i, b := range bars {
		a.Update(b)
		if i < 13 {
			assert.False(t, a.Ready())
			continue
		}
		require.True(t, a.Ready())
		assert.InDelta(t, batch[i], a.Value(), 1e-6)
	}

	a.Reset()
	assert.False(t, a.Ready())
	assert.Zero(t, a.Value())
}

func TestSimpleMAStreaming(t *testing.T) {
	t.Parallel()

	ma := NewSMA(3)
	assert.Equal(t, "SMA(3)", ma.Name())
	assert.False(t, ma.Ready())
	assert.Zero(t, ma.Value())

	for _, c := range []float64{102, 105, 106} {
		ma.Update(market.Bar{Close: c})
	}
	require.True(t, ma.Ready())
	assert.InDelta(t, (102.0+105+106)/3, ma.Value(), 1e-9)

	ma.Update(market.Bar{Close: 108})
	assert.InDelta(t, (105.0+106+108)/3, ma.Value(), 1e-9)

	ma.Reset()
	assert.False(t, ma.Ready())
}

func TestLast(t *testing.T) {
	t.Parallel()
	assert.True(t, math.IsNaN(Last(nil)))
	assert.Equal(t, 3.0, Last([]float64{1, 3}))
}

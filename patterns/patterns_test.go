package patterns

import (
	"testing"

	"github.com/rustyeddy/tradesim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ohlc(o, h, l, c float64) market.Bar {
	return market.Bar{Open: o, High: h, Low: l, Close: c}
}

func TestPinBars(t *testing.T) {
	t.Parallel()

	bars := []market.Bar{
		ohlc(100, 101, 90, 100.5), // long lower shadow
		ohlc(100, 110, 98.5, 99),  // long upper shadow
		ohlc(100, 102, 98, 101),   // ordinary
	}
	bull, bear := PinBars(bars, 2)
	assert.Equal(t, []bool{true, false, false}, bull)
	assert.Equal(t, []bool{false, true, false}, bear)
}

func TestInsideBars(t *testing.T) {
	t.Parallel()

	bars := []market.Bar{
		ohlc(100, 105, 95, 101),
		ohlc(101, 104, 96, 102),
		ohlc(102, 106, 97, 103),
	}
	assert.Equal(t, []bool{false, true, false}, InsideBars(bars))
	assert.Empty(t, InsideBars(nil))
}

func TestCandles(t *testing.T) {
	t.Parallel()

	engulf := []market.Bar{
		ohlc(102, 103, 99, 100), // bearish
		ohlc(99, 104, 98, 103),  // bullish, opens <= 100, closes >= 102
		ohlc(104, 105, 97, 98),  // bearish, opens >= 103, closes <= 99
	}
	p := Candles(engulf)
	assert.Equal(t, []bool{false, true, false}, p.BullishEngulfing)
	assert.Equal(t, []bool{false, false, true}, p.BearishEngulfing)

	star := []market.Bar{
		ohlc(110, 111, 99, 100),   // big bearish
		ohlc(99, 100, 97, 99.5),   // small body
		ohlc(100, 107, 99.5, 106), // bullish close above 105
	}
	p = Candles(star)
	assert.True(t, p.MorningStar[2])
	assert.False(t, p.EveningStar[2])

	evening := []market.Bar{
		ohlc(100, 111, 99, 110),
		ohlc(111, 112, 110, 110.5),
		ohlc(110, 110.5, 103, 104),
	}
	p = Candles(evening)
	assert.True(t, p.EveningStar[2])

	shapes := []market.Bar{
		ohlc(100, 101.1, 95, 101), // hammer
		ohlc(100, 106, 99.9, 101), // inverted hammer
		ohlc(100, 101, 99, 100),   // doji
		ohlc(100, 105, 95, 104),
	}
	p = Candles(shapes)
	assert.True(t, p.Hammer[0])
	assert.True(t, p.InvertedHammer[1])
	assert.True(t, p.Doji[2])
	assert.False(t, p.Doji[3])

	empty := Candles(nil)
	assert.Empty(t, empty.Doji)
}

func TestSwingsAndClusters(t *testing.T) {
	t.Parallel()

	lows := []float64{10, 8, 9, 7, 9, 8.1, 10}
	assert.Equal(t, []float64{8, 7, 8.1}, SwingLows(lows))
	assert.Equal(t, []float64{9, 9}, SwingHighs(lows))

	got := ClusterLevels([]float64{100, 101, 102, 120, 121}, 0.03)
	require.Len(t, got, 2)
	assert.InDelta(t, 101.0, got[0], 1e-9)
	assert.InDelta(t, 120.5, got[1], 1e-9)

	assert.Nil(t, ClusterLevels(nil, 0.03))
	assert.Equal(t, []float64{5}, ClusterLevels([]float64{5}, 0.03))
}

func TestSupportResistance(t *testing.T) {
	t.Parallel()

	highs := []float64{10, 12, 10, 11, 13, 11, 10, 12.1, 10}
	lows := []float64{9, 8, 9, 7, 9, 8, 9, 8.05, 9}
	s, r := SupportResistance(highs, lows, 5, 0.03)
	assert.NotEmpty(t, s)
	assert.NotEmpty(t, r)
	for _, v := range s {
		assert.Less(t, v, 9.0)
	}

	ws, wr := WindowLevels(highs, lows, 0.03)
	assert.NotEmpty(t, ws)
	assert.NotEmpty(t, wr)

	s, r = SupportResistance(highs, lows, 2, 0.03)
	assert.Nil(t, s)
	assert.Nil(t, r)
}

func TestTrend(t *testing.T) {
	t.Parallel()

	bars := make([]market.Bar, 30)
	for i := range bars {
		bars[i] = market.Bar{Close: float64(100 + i)}
	}
	tr := Trend(bars, 5, 10)
	require.Len(t, tr, 30)
	assert.Equal(t, market.None, tr[5])
	assert.Equal(t, market.Buy, tr[29])

	for i := range bars {
		bars[i].Close = float64(200 - i)
	}
	assert.Equal(t, market.Sell, Trend(bars, 5, 10)[29])
}

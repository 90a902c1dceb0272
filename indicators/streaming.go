package indicators

import (
	"fmt"
	"math"

	"github.com/rustyeddy/tradesim/market"
)

// SimpleMA is a streaming simple moving average of closes.
type SimpleMA struct {
	period int
	window []float64
	sum    float64
}

func NewSMA(period int) *SimpleMA {
	return &SimpleMA{period: period, window: make([]float64, 0, period)}
}

func (m *SimpleMA) Name() string { return fmt.Sprintf("SMA(%d)", m.period) }

func (m *SimpleMA) Warmup() int { return m.period }

func (m *SimpleMA) Reset() {
	m.window = m.window[:0]
	m.sum = 0
}

func (m *SimpleMA) Update(b market.Bar) { m.push(b.Close) }

func (m *SimpleMA) push(v float64) {
	m.window = append(m.window, v)
	m.sum += v
	if len(m.window) > m.period {
		m.sum -= m.window[0]
		m.window = m.window[1:]
	}
}

func (m *SimpleMA) Ready() bool { return m.period > 0 && len(m.window) >= m.period }

func (m *SimpleMA) Value() float64 {
	if !m.Ready() {
		return 0
	}
	return m.sum / float64(len(m.window))
}

// ExponentialMA is a streaming EMA of closes, seeded with the SMA of the first
// period closes.
type ExponentialMA struct {
	period     int
	multiplier float64
	ema        float64
	count      int
	warmupSum  float64
}

func NewEMA(period int) *ExponentialMA {
	return &ExponentialMA{
		period:     period,
		multiplier: 2.0 / float64(period+1),
	}
}

func (e *ExponentialMA) Name() string { return fmt.Sprintf("EMA(%d)", e.period) }

func (e *ExponentialMA) Warmup() int { return e.period }

func (e *ExponentialMA) Reset() {
	e.ema = 0
	e.count = 0
	e.warmupSum = 0
}

func (e *ExponentialMA) Update(b market.Bar) {
	if e.count < e.period {
		e.warmupSum += b.Close
		e.count++
		if e.count == e.period {
			e.ema = e.warmupSum / float64(e.period)
		}
		return
	}
	e.ema = (b.Close-e.ema)*e.multiplier + e.ema
}

func (e *ExponentialMA) Ready() bool { return e.period > 0 && e.count >= e.period }

func (e *ExponentialMA) Value() float64 {
	if !e.Ready() {
		return 0
	}
	return e.ema
}

// RollingATR streams the same value ATR computes in batch: the simple average
// of the last period true ranges.
type RollingATR struct {
	tr        *SimpleMA
	prevClose float64
	hasPrev   bool
}

func NewATR(period int) *RollingATR {
	return &RollingATR{tr: NewSMA(period)}
}

func (a *RollingATR) Name() string { return fmt.Sprintf("ATR(%d)", a.tr.period) }

func (a *RollingATR) Warmup() int { return a.tr.period }

func (a *RollingATR) Reset() {
	a.tr.Reset()
	a.prevClose = 0
	a.hasPrev = false
}

func (a *RollingATR) Update(b market.Bar) {
	tr := b.High - b.Low
	if a.hasPrev {
		tr = math.Max(tr, math.Max(math.Abs(b.High-a.prevClose), math.Abs(b.Low-a.prevClose)))
	}
	a.tr.push(tr)
	a.prevClose = b.Close
	a.hasPrev = true
}

func (a *RollingATR) Ready() bool { return a.tr.Ready() }

func (a *RollingATR) Value() float64 { return a.tr.Value() }

var (
	_ Indicator = (*SimpleMA)(nil)
	_ Indicator = (*ExponentialMA)(nil)
	_ Indicator = (*RollingATR)(nil)
)

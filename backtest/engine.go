// Package backtest replays one instrument's bars through the position state
// machine and reports the resulting capital trace, trades and metrics.
package backtest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/rustyeddy/tradesim/indicators"
	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/risk"
	"github.com/rustyeddy/tradesim/sim"
)

var ErrLengthMismatch = errors.New("series length mismatch")

const DefaultATRPeriod = 14

type Config struct {
	InitialCapital float64
	Policy         risk.Policy
	ATRPeriod      int // used when Input.ATR is empty
}

// DefaultConfig starts with 10,000 of capital and the default risk policy.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 10000,
		Policy:         risk.DefaultPolicy(),
		ATRPeriod:      DefaultATRPeriod,
	}
}

// Input is one instrument's history with a direction for every bar.
type Input struct {
	RunID      string // generated when empty
	Instrument string
	Bars       []market.Bar
	Signals    []market.Direction
	ATR        []float64 // optional, computed from Bars when nil
}

type Result struct {
	RunID      string
	Instrument string
	Start      time.Time
	End        time.Time
	Steps      int

	Trace   []float64
	Trades  []sim.ClosedTrade
	Metrics ledger.Metrics

	// Open is the position still held after the last bar, if any. It is not
	// closed out and does not count towards the metrics.
	Open *sim.Position
}

type Engine struct {
	cfg     Config
	log     zerolog.Logger
	journal journal.Journal
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithJournal records every closed trade and every step's capital.
func WithJournal(j journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

func NewEngine(cfg Config, opts ...Option) *Engine {
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = DefaultATRPeriod
	}
	e := &Engine{
		cfg:     cfg,
		log:     zerolog.Nop(),
		journal: journal.Nop{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Config() Config { return e.cfg }

// Run simulates in.Bars in order. Bar 0 only seeds the capital trace; every
// later bar is one step: exits first, then entry at the bar open, then the
// capital is marked. Runs with fewer than two bars return neutral metrics.
func (e *Engine) Run(ctx context.Context, in Input) (Result, error) {
	n := len(in.Bars)
	if len(in.Signals) != n {
		return Result{}, fmt.Errorf("backtest: %d signals for %d bars: %w", len(in.Signals), n, ErrLengthMismatch)
	}
	atr := in.ATR
	if atr == nil {
		atr = indicators.BarsATR(in.Bars, e.cfg.ATRPeriod)
	}
	if len(atr) != n {
		return Result{}, fmt.Errorf("backtest: %d ATR values for %d bars: %w", len(atr), n, ErrLengthMismatch)
	}

	runID := in.RunID
	if runID == "" {
		runID = id.New()
	}
	res := Result{RunID: runID, Instrument: in.Instrument}
	if n > 0 {
		res.Start = in.Bars[0].Time
		res.End = in.Bars[n-1].Time
	}

	log := e.log.With().Str("run_id", runID).Str("instrument", in.Instrument).Logger()

	book := ledger.New(e.cfg.InitialCapital, e.cfg.Policy.RiskPct)
	m := sim.NewMachine(in.Instrument, sim.ParamsFrom(e.cfg.Policy))
	peak := e.cfg.InitialCapital

	if n > 0 {
		if err := e.journal.RecordEquity(journal.EquitySnapshot{
			RunID: runID, Step: 0, Time: in.Bars[0].Time, Capital: book.Capital(),
		}); err != nil {
			return Result{}, fmt.Errorf("backtest: journal equity: %w", err)
		}
	}

	for i := 1; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("backtest: step %d: %w", i, err)
		}

		bar := in.Bars[i]
		input := sim.Input{
			Bar:    bar,
			Signal: in.Signals[i],
			ATR:    atr[i],
		}

		// The exit is booked before a reversal entry is sized.
		var step sim.Result
		step.Closed = m.Exit(input)
		if t := step.Closed; t != nil {
			after := book.Record(*t)
			log.Info().
				Str("trade_id", t.ID).
				Str("reason", string(t.Reason)).
				Float64("price", t.ExitPrice).
				Float64("net_pct", t.NetResultPct).
				Float64("capital", after).
				Msg("exit")
			if err := e.journal.RecordTrade(journal.FromClosedTrade(runID, *t, after)); err != nil {
				return Result{}, fmt.Errorf("backtest: journal trade: %w", err)
			}
		}
		input.Capital = book.Capital()
		step.Opened, step.Rejected = m.Enter(input, e.gate(input.Capital))
		if p := step.Opened; p != nil {
			log.Info().
				Str("trade_id", p.ID).
				Str("direction", p.Direction.String()).
				Float64("price", p.EntryPrice).
				Float64("stop", p.StopLoss).
				Float64("take_profit", p.TakeProfit).
				Float64("size", p.Size).
				Msg("entry")
		}
		if d := step.Rejected; d != nil {
			log.Debug().Time("time", bar.Time).Str("reason", d.Reason()).Msg("entry skipped")
		}

		c := book.Mark()
		peak = math.Max(peak, c)
		if err := e.journal.RecordEquity(journal.EquitySnapshot{
			RunID:       runID,
			Step:        i,
			Time:        bar.Time,
			Capital:     c,
			DrawdownPct: drawdownPct(c, peak),
		}); err != nil {
			return Result{}, fmt.Errorf("backtest: journal equity: %w", err)
		}
		res.Steps++
	}

	res.Trace = book.Trace()
	res.Trades = book.Trades()
	res.Metrics = book.Metrics()
	if p, ok := m.Position(); ok {
		res.Open = &p
	}

	log.Info().
		Int("steps", res.Steps).
		Int("trades", res.Metrics.TotalTrades).
		Float64("return_pct", res.Metrics.TotalReturnPct).
		Float64("max_dd_pct", res.Metrics.MaxDrawdownPct).
		Msg("backtest complete")

	return res, nil
}

// The backtest holds one position at a time so nothing else is open when an
// entry is evaluated.
func (e *Engine) gate(capital float64) sim.EntryGate {
	p := e.cfg.Policy
	return func(intent risk.EntryIntent) risk.Decision {
		return risk.Evaluate(p, intent, risk.ExposureSnapshot{Capital: capital})
	}
}

func drawdownPct(capital, peak float64) float64 {
	if peak <= 0 {
		return 0
	}
	return (capital/peak - 1) * 100
}

// Package paper runs the position state machine tick by tick across several
// instruments, sharing one ledger between them.
package paper

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/rustyeddy/tradesim/indicators"
	"github.com/rustyeddy/tradesim/internal/id"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/metrics"
	"github.com/rustyeddy/tradesim/risk"
	"github.com/rustyeddy/tradesim/sim"
)

var ErrNilFeed = errors.New("nil feed")

type Config struct {
	InitialCapital float64
	Policy         risk.Policy

	HistoryLen int // bars kept per instrument for signals, 100
	MinHistory int // bars required before signals are asked for, 26
	ATRPeriod  int // 14
}

// DefaultConfig charges 0.1% per round trip and gates entries on confidence
// 0.8, a 20% exposure cap and the 09:30-16:30 window.
func DefaultConfig() Config {
	p := risk.DefaultPolicy()
	p.CommissionPct = 0.1
	p.ExposurePct = 20
	p.ConfidenceThreshold = 0.8
	w := risk.TradingWindow{Start: 9*60 + 30, End: 16*60 + 30}
	p.Window = &w

	return Config{
		InitialCapital: 10000,
		Policy:         p,
		HistoryLen:     100,
		MinHistory:     26,
		ATRPeriod:      14,
	}
}

// TradeListener is told about every closed trade as soon as it is booked.
// It is called without any engine lock held.
type TradeListener interface {
	OnTradeClosed(t sim.ClosedTrade, capitalAfter float64)
}

type ListenerFunc func(t sim.ClosedTrade, capitalAfter float64)

func (f ListenerFunc) OnTradeClosed(t sim.ClosedTrade, capitalAfter float64) { f(t, capitalAfter) }

// Event is what one tick did.
type Event struct {
	Tick       market.Tick
	Signal     market.Direction
	Confidence float64
	Closed     *sim.ClosedTrade
	Opened     *sim.Position
	Rejected   *risk.Decision
	Capital    float64
}

type instrument struct {
	mu      sync.Mutex
	machine *sim.Machine
	history []market.Bar
	atr     *indicators.RollingATR
}

type Engine struct {
	cfg     Config
	runID   string
	log     zerolog.Logger
	journal journal.Journal
	signal  SignalFunc
	book    *ledger.Ledger

	mu          sync.Mutex
	instruments map[string]*instrument
	notional    map[string]float64 // open notional per instrument
	listener    TradeListener
	steps       int
	peak        float64
	start, end  time.Time
}

type Option func(*Engine)

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.log = l }
}

func WithJournal(j journal.Journal) Option {
	return func(e *Engine) { e.journal = j }
}

func WithRunID(runID string) Option {
	return func(e *Engine) { e.runID = runID }
}

func NewEngine(cfg Config, signal SignalFunc, opts ...Option) *Engine {
	if cfg.HistoryLen <= 0 {
		cfg.HistoryLen = 100
	}
	if cfg.ATRPeriod <= 0 {
		cfg.ATRPeriod = 14
	}
	e := &Engine{
		cfg:         cfg,
		log:         zerolog.Nop(),
		journal:     journal.Nop{},
		signal:      signal,
		book:        ledger.New(cfg.InitialCapital, cfg.Policy.RiskPct),
		instruments: make(map[string]*instrument),
		notional:    make(map[string]float64),
		peak:        cfg.InitialCapital,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID == "" {
		e.runID = id.New()
	}
	e.log = e.log.With().Str("run_id", e.runID).Logger()
	metrics.Capital.Set(cfg.InitialCapital)
	return e
}

func (e *Engine) RunID() string { return e.runID }

func (e *Engine) Ledger() *ledger.Ledger { return e.book }

// SetTradeListener replaces the listener. Pass nil to remove it.
func (e *Engine) SetTradeListener(l TradeListener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listener = l
}

func (e *Engine) instrument(name string) *instrument {
	e.mu.Lock()
	defer e.mu.Unlock()

	in, ok := e.instruments[name]
	if !ok {
		in = &instrument{
			machine: sim.NewMachine(name, sim.ParamsFrom(e.cfg.Policy)),
			atr:     indicators.NewATR(e.cfg.ATRPeriod),
		}
		e.instruments[name] = in
	}
	return in
}

// OnTick processes one tick for its instrument. Ticks of the same instrument
// are serialised; different instruments may be processed concurrently.
func (e *Engine) OnTick(ctx context.Context, tk market.Tick) (Event, error) {
	if err := ctx.Err(); err != nil {
		return Event{}, err
	}
	ev := Event{Tick: tk}
	log := e.log.With().Str("instrument", tk.Instrument).Logger()

	in := e.instrument(tk.Instrument)
	in.mu.Lock()

	in.history = append(in.history, tk.Bar)
	if over := len(in.history) - e.cfg.HistoryLen; over > 0 {
		in.history = append(in.history[:0], in.history[over:]...)
	}
	in.atr.Update(tk.Bar)

	if e.signal != nil && len(in.history) >= e.cfg.MinHistory {
		ev.Signal, ev.Confidence = e.signal(tk.Instrument, in.history)
	}

	input := sim.Input{
		Bar:        tk.Bar,
		Signal:     ev.Signal,
		Confidence: ev.Confidence,
		ATR:        in.atr.Value(),
	}

	// Book the exit first so a reversal entry is sized and gated on the
	// capital and exposure left after it.
	var res sim.Result
	after := 0.0
	if res.Closed = in.machine.Exit(input); res.Closed != nil {
		e.mu.Lock()
		delete(e.notional, tk.Instrument)
		after = e.book.Record(*res.Closed)
		e.mu.Unlock()
	}
	input.Capital = e.book.Capital()
	res.Opened, res.Rejected = in.machine.Enter(input, e.gate(tk.Instrument))
	ev.Closed, ev.Opened, ev.Rejected = res.Closed, res.Opened, res.Rejected

	e.mu.Lock()
	ev.Capital = e.book.Mark()
	e.peak = math.Max(e.peak, ev.Capital)
	e.steps++
	if e.start.IsZero() || tk.Time.Before(e.start) {
		e.start = tk.Time
	}
	if tk.Time.After(e.end) {
		e.end = tk.Time
	}
	err := e.journalLocked(tk, res.Closed, after, ev.Capital)
	open := e.openNotionalLocked("")
	listener := e.listener
	e.mu.Unlock()
	in.mu.Unlock()

	metrics.TicksTotal.WithLabelValues(tk.Instrument).Inc()
	metrics.Capital.Set(ev.Capital)
	metrics.OpenNotional.Set(open)

	if t := res.Closed; t != nil {
		metrics.ExitsTotal.WithLabelValues(t.Instrument, string(t.Reason)).Inc()
		log.Info().
			Str("trade_id", t.ID).
			Str("reason", string(t.Reason)).
			Float64("price", t.ExitPrice).
			Float64("net_pct", t.NetResultPct).
			Float64("capital", after).
			Msg("exit")
		if listener != nil {
			listener.OnTradeClosed(*t, after)
		}
	}
	if p := res.Opened; p != nil {
		metrics.EntriesTotal.WithLabelValues(p.Instrument, p.Direction.String()).Inc()
		log.Info().
			Str("trade_id", p.ID).
			Str("direction", p.Direction.String()).
			Float64("price", p.EntryPrice).
			Float64("stop", p.StopLoss).
			Float64("take_profit", p.TakeProfit).
			Float64("size", p.Size).
			Float64("confidence", ev.Confidence).
			Msg("entry")
	}
	if d := res.Rejected; d != nil {
		for _, v := range d.Violations {
			metrics.RejectionsTotal.WithLabelValues(tk.Instrument, v.Code).Inc()
		}
		log.Debug().Str("reason", d.Reason()).Time("time", tk.Time).Msg("entry skipped")
	}

	if err != nil {
		return ev, fmt.Errorf("paper: journal: %w", err)
	}
	return ev, nil
}

// gate checks an entry against the capital and the notional held by the other
// instruments, and reserves the approved notional in the same critical
// section so concurrent entries cannot overrun the cap together.
func (e *Engine) gate(name string) sim.EntryGate {
	return func(intent risk.EntryIntent) risk.Decision {
		e.mu.Lock()
		defer e.mu.Unlock()

		d := risk.Evaluate(e.cfg.Policy, intent, risk.ExposureSnapshot{
			Capital:      e.book.Capital(),
			OpenNotional: e.openNotionalLocked(name),
		})
		if d.Allowed {
			e.notional[name] = math.Abs(d.Size * intent.Entry)
		}
		return d
	}
}

func (e *Engine) openNotionalLocked(except string) float64 {
	sum := 0.0
	for name, n := range e.notional {
		if name != except {
			sum += n
		}
	}
	return sum
}

func (e *Engine) journalLocked(tk market.Tick, closed *sim.ClosedTrade, after, capital float64) error {
	var err error
	if closed != nil {
		err = e.journal.RecordTrade(journal.FromClosedTrade(e.runID, *closed, after))
	}
	if err != nil {
		return err
	}
	return e.journal.RecordEquity(journal.EquitySnapshot{
		RunID:       e.runID,
		Step:        e.steps,
		Time:        tk.Time,
		Capital:     capital,
		DrawdownPct: drawdownPct(capital, e.peak),
	})
}

func drawdownPct(capital, peak float64) float64 {
	if peak <= 0 {
		return 0
	}
	return (capital/peak - 1) * 100
}

// Run consumes feed until it is exhausted or ctx ends. Reaching a context
// deadline is a normal end of session.
func (e *Engine) Run(ctx context.Context, feed Feed) error {
	if feed == nil {
		return fmt.Errorf("paper: run: %w", ErrNilFeed)
	}
	defer feed.Close()

	for {
		tk, ok, err := feed.Next(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("paper: feed: %w", err)
		}
		if !ok {
			return nil
		}
		if _, err := e.OnTick(ctx, tk); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
	}
}

// RunConcurrent runs every feed in its own goroutine and waits for all of
// them. The first error cancels the rest.
func (e *Engine) RunConcurrent(ctx context.Context, feeds []Feed) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, f := range feeds {
		f := f
		g.Go(func() error { return e.Run(gctx, f) })
	}
	return g.Wait()
}

// Open returns the positions currently held, keyed by instrument.
func (e *Engine) Open() map[string]sim.Position {
	e.mu.Lock()
	names := make([]*instrument, 0, len(e.instruments))
	for _, in := range e.instruments {
		names = append(names, in)
	}
	e.mu.Unlock()

	out := make(map[string]sim.Position)
	for _, in := range names {
		in.mu.Lock()
		if p, ok := in.machine.Position(); ok {
			out[p.Instrument] = p
		}
		in.mu.Unlock()
	}
	return out
}

// Instruments lists the instruments seen so far, sorted.
func (e *Engine) Instruments() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.instruments))
	for name := range e.instruments {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

type Summary struct {
	RunID   string
	Start   time.Time
	End     time.Time
	Steps   int
	Trace   []float64
	Trades  []sim.ClosedTrade
	Metrics ledger.Metrics
	Open    map[string]sim.Position
}

func (e *Engine) Summary() Summary {
	open := e.Open()

	e.mu.Lock()
	defer e.mu.Unlock()
	return Summary{
		RunID:   e.runID,
		Start:   e.start,
		End:     e.end,
		Steps:   e.steps,
		Trace:   e.book.Trace(),
		Trades:  e.book.Trades(),
		Metrics: e.book.Metrics(),
		Open:    open,
	}
}

// RunRecord turns the session into the summary the journal stores.
func (e *Engine) RunRecord(strategy, dataset string) journal.Run {
	s := e.Summary()
	p := e.cfg.Policy
	return journal.Run{
		RunID:             s.RunID,
		Created:           time.Now().UTC(),
		Mode:              "paper",
		Strategy:          strategy,
		Instruments:       e.Instruments(),
		Dataset:           dataset,
		Start:             s.Start,
		End:               s.End,
		Steps:             s.Steps,
		RiskPct:           p.RiskPct,
		StopATRMultiplier: p.StopATRMultiplier,
		RewardRatio:       p.RewardRatio,
		CommissionPct:     p.CommissionPct,
		Metrics:           s.Metrics,
	}
}

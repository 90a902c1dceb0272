package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/metrics"
	"github.com/rustyeddy/tradesim/paper"
	"github.com/rustyeddy/tradesim/sim"
	"github.com/rustyeddy/tradesim/strategies"
)

var paperCmd = &cobra.Command{
	Use:   "paper",
	Short: "Paper trade several instruments tick by tick",
	Long: `Paper runs one position state machine per instrument against a tick
stream, sharing one capital ledger. Entries must pass the trading window,
the confidence threshold and the exposure cap. Closed trades are printed as
they happen.

Ticks come from a CSV file (time,instrument,open,high,low,close[,volume]) or
from seeded random walks, one per instrument.

Examples:
  tradesim paper --duration 10m --cadence 2s
  tradesim paper --ticks ticks.csv --cadence 0 --metrics-addr :9100
  tradesim paper -s combined -p bollinger=0.8 -r exposure_pct=30`,
	RunE: runPaper,
}

var (
	ppTicks       string
	ppInstruments []string
	ppCadence     string
	ppDuration    string
	ppCapital     float64
	ppMetricsAddr string
	ppSeed        int64
	ppOrg         string
)

func init() {
	rootCmd.AddCommand(paperCmd)
	addRunFlags(paperCmd)

	paperCmd.Flags().StringVarP(&ppTicks, "ticks", "t", "", "ticks CSV (synthetic data when empty)")
	paperCmd.Flags().StringSliceVarP(&ppInstruments, "instruments", "i", nil, "instruments for synthetic data (overrides config)")
	paperCmd.Flags().StringVar(&ppCadence, "cadence", "", "delay between ticks, e.g. 2s (overrides config)")
	paperCmd.Flags().StringVar(&ppDuration, "duration", "", "session length, e.g. 10m (overrides config)")
	paperCmd.Flags().Float64Var(&ppCapital, "capital", 0, "initial capital (overrides config)")
	paperCmd.Flags().StringVar(&ppMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")
	paperCmd.Flags().Int64Var(&ppSeed, "seed", 0, "synthetic data seed (time based when 0)")
	paperCmd.Flags().StringVar(&ppOrg, "org", "", "write an Org-mode summary to this file")
}

func runPaper(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	pc := cfg.Paper
	if ppTicks != "" {
		pc.Ticks = ppTicks
	}
	if len(ppInstruments) > 0 {
		pc.Instruments = ppInstruments
	}
	if ppCadence != "" {
		pc.Cadence = ppCadence
	}
	if ppDuration != "" {
		pc.Duration = ppDuration
	}
	if ppCapital > 0 {
		cfg.Account.Capital = ppCapital
	}
	if ppMetricsAddr != "" {
		cfg.Metrics.Addr = ppMetricsAddr
	}
	cadence, err := pc.CadenceDuration()
	if err != nil {
		return &config.ConfigurationError{Param: "paper.cadence", Reason: err.Error(), Err: err}
	}
	duration, err := pc.RunDuration()
	if err != nil {
		return &config.ConfigurationError{Param: "paper.duration", Reason: err.Error(), Err: err}
	}

	log := newLogger(cfg)

	params := cfg.Strategy.Params
	if strings.EqualFold(cfg.Strategy.Name, "combined") && len(params) == 0 {
		params = paper.DefaultWeights()
	}
	src, err := strategies.New(cfg.Strategy.Name, params)
	if err != nil {
		return &config.ConfigurationError{Param: "strategy", Reason: err.Error(), Err: err}
	}

	ticks, dataset, err := paperTicks(pc, cfg.Risk, cadence, duration)
	if err != nil {
		return err
	}

	j, db, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	if cfg.Metrics.Addr != "" {
		srv := metrics.Serve(cfg.Metrics.Addr)
		defer srv.Close()
		log.Info().Str("addr", cfg.Metrics.Addr).Msg("metrics up")
	}

	engine := paper.NewEngine(paper.Config{
		InitialCapital: cfg.Account.Capital,
		Policy:         cfg.Risk.Policy(),
		HistoryLen:     pc.HistoryLen,
		MinHistory:     pc.MinHistory,
		ATRPeriod:      pc.ATRPeriod,
	}, paper.StrategySignal(src, pc.Confidence), paper.WithLogger(log), paper.WithJournal(j))

	out := cmd.OutOrStdout()
	engine.SetTradeListener(paper.ListenerFunc(func(t sim.ClosedTrade, capital float64) {
		fmt.Fprintf(out, "%s closed %s %s %.2f -> %.2f (%s) net %.2f%% capital %.2f\n",
			t.ExitTime.Format(time.RFC3339), t.Instrument, t.Direction,
			t.EntryPrice, t.ExitPrice, t.Reason, t.NetResultPct, capital)
	}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, duration)
		defer cancel()
	}

	feeds := paper.FeedsByInstrument(ticks, cadence)
	log.Info().
		Str("run_id", engine.RunID()).
		Str("strategy", src.Name()).
		Int("instruments", len(feeds)).
		Dur("cadence", cadence).
		Dur("duration", duration).
		Msg("paper session started")

	if err := engine.RunConcurrent(ctx, feeds); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	rec := engine.RunRecord(src.Name(), dataset)
	if db != nil {
		if err := db.RecordRun(context.Background(), rec); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	org := ppOrg
	if org == "" {
		org = cfg.Journal.OrgFile
	}
	if org != "" {
		rec.OrgPath = org
		if err := rec.SaveOrg(); err != nil {
			return err
		}
	}

	backtest.PrintRun(out, rec)
	for name, p := range engine.Open() {
		fmt.Fprintf(out, "Open position: %s %s at %.2f (not counted)\n", name, p.Direction, p.EntryPrice)
	}
	return nil
}

// paperTicks loads the tick file or generates one random walk per
// instrument. Synthetic bars are a minute apart starting at the opening of
// the trading window, enough of them to fill the session at the cadence.
func paperTicks(pc config.PaperConfig, rc config.RiskConfig, cadence, duration time.Duration) ([]market.Tick, string, error) {
	if pc.Ticks != "" {
		ticks, err := market.LoadTicksCSV(pc.Ticks)
		if err != nil {
			return nil, "", fmt.Errorf("load ticks: %w", err)
		}
		return ticks, pc.Ticks, nil
	}

	n := 100
	if cadence > 0 && duration > 0 {
		n = int(duration / cadence)
	}
	seed := ppSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	now := time.Now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if w, err := rc.Window(); err == nil && w != nil {
		start = start.Add(time.Duration(w.Start) * time.Minute)
	}

	var ticks []market.Tick
	for i, name := range pc.Instruments {
		bars := market.Synthetic(market.SyntheticConfig{
			Seed:       seed + int64(i),
			Bars:       n,
			Start:      start,
			Interval:   time.Minute,
			StartPrice: 100,
			Drift:      0.0003,
			Volatility: 0.002,
		})
		ticks = append(ticks, paper.TicksFromBars(name, bars)...)
	}
	return ticks, fmt.Sprintf("synthetic(seed=%d,ticks=%d)", seed, n), nil
}

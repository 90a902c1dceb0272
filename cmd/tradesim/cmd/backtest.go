package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradesim/backtest"
	"github.com/rustyeddy/tradesim/market"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Backtest a strategy on one instrument",
	Long: `Backtest replays a bar series through the position state machine.

Bars come from a CSV file (time,open,high,low,close[,volume]) or, when no
file is given, from a seeded random walk.

Examples:
  tradesim backtest --data bars/petr4.csv --strategy sma-cross
  tradesim backtest --strategy rsi -p period=10 -r risk_pct=0.5
  tradesim backtest -c sim.yaml --org run.org`,
	RunE: runBacktest,
}

var (
	btData       string
	btInstrument string
	btCapital    float64
	btSeed       int64
	btBars       int
	btOrg        string
)

func init() {
	rootCmd.AddCommand(backtestCmd)
	addRunFlags(backtestCmd)

	backtestCmd.Flags().StringVarP(&btData, "data", "d", "", "bars CSV (synthetic data when empty)")
	backtestCmd.Flags().StringVarP(&btInstrument, "instrument", "i", "", "instrument label")
	backtestCmd.Flags().Float64Var(&btCapital, "capital", 0, "initial capital (overrides config)")
	backtestCmd.Flags().Int64Var(&btSeed, "seed", 0, "synthetic data seed (overrides config)")
	backtestCmd.Flags().IntVar(&btBars, "bars", 0, "synthetic bar count (overrides config)")
	backtestCmd.Flags().StringVar(&btOrg, "org", "", "write an Org-mode summary to this file")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	bc := cfg.Backtest
	if btData != "" {
		bc.Data = btData
	}
	if btInstrument != "" {
		bc.Instrument = btInstrument
	}
	if btSeed != 0 {
		bc.Seed = btSeed
	}
	if btBars > 0 {
		bc.Bars = btBars
	}
	if btCapital > 0 {
		cfg.Account.Capital = btCapital
	}

	log := newLogger(cfg)

	var bars []market.Bar
	dataset := bc.Data
	if bc.Data != "" {
		if bars, err = market.LoadBarsCSV(bc.Data); err != nil {
			return fmt.Errorf("load bars: %w", err)
		}
	} else {
		sc := market.DefaultSynthetic()
		sc.Seed = bc.Seed
		sc.Bars = bc.Bars
		bars = market.Synthetic(sc)
		dataset = fmt.Sprintf("synthetic(seed=%d,bars=%d)", bc.Seed, bc.Bars)
	}

	src, err := cfg.Strategy.Source()
	if err != nil {
		return err
	}

	j, db, err := openJournal(cfg.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	policy := cfg.Risk.BacktestPolicy()
	engine := backtest.NewEngine(backtest.Config{
		InitialCapital: cfg.Account.Capital,
		Policy:         policy,
		ATRPeriod:      bc.ATRPeriod,
	}, backtest.WithLogger(log), backtest.WithJournal(j))

	log.Info().
		Str("strategy", src.Name()).
		Str("instrument", bc.Instrument).
		Str("dataset", dataset).
		Int("bars", len(bars)).
		Msg("running backtest")

	ctx := context.Background()
	res, err := engine.Run(ctx, backtest.Input{
		Instrument: bc.Instrument,
		Bars:       bars,
		Signals:    src.Signals(bars),
	})
	if err != nil {
		return err
	}

	rec := res.RunRecord(src.Name(), dataset, policy)
	if db != nil {
		if err := db.RecordRun(ctx, rec); err != nil {
			return fmt.Errorf("record run: %w", err)
		}
	}
	org := btOrg
	if org == "" {
		org = cfg.Journal.OrgFile
	}
	if org != "" {
		rec.OrgPath = org
		if err := rec.SaveOrg(); err != nil {
			return err
		}
	}

	backtest.PrintRun(cmd.OutOrStdout(), rec)
	if res.Open != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Open position: %s %s at %.2f (not counted)\n",
			res.Open.Instrument, res.Open.Direction, res.Open.EntryPrice)
	}
	return nil
}

package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/internal/util"
	"github.com/rustyeddy/tradesim/journal"
)

var rootCmd = &cobra.Command{
	Use:   "tradesim",
	Short: "Backtest and paper-trade signal strategies",
	Long: `Tradesim simulates trading strategies against historical or streaming
price series and reports performance.

It provides tools for:
  - Backtesting a strategy bar by bar on one instrument
  - Paper trading several instruments tick by tick
  - Risk-based position sizing with ATR stops and R multiple targets
  - Win rate, profit factor, drawdown, volatility and Sharpe reporting
  - SQLite, CSV and Org-mode run journals`,
	SilenceUsage: true,
}

var (
	cfgFile    string
	logLevel   string
	riskParams []string
	stratName  string
	stratArgs  []string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file, YAML or JSON (defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug, info, warn, error)")
}

// addRunFlags registers the flags shared by backtest and paper.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&riskParams, "risk-param", "r", nil, "risk parameter override name=value (repeatable)")
	cmd.Flags().StringVarP(&stratName, "strategy", "s", "", "strategy name (overrides config)")
	cmd.Flags().StringArrayVarP(&stratArgs, "param", "p", nil, "strategy parameter name=value (repeatable)")
}

// loadConfig reads the config file, applies command line overrides and
// validates the result.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if cfgFile != "" {
		data, err := os.ReadFile(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if cfg, err = config.Parse(data); err != nil {
			return nil, err
		}
	}

	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if err := cfg.ApplyRiskOverrides(riskParams); err != nil {
		return nil, err
	}
	if stratName != "" && stratName != cfg.Strategy.Name {
		cfg.Strategy = config.StrategyConfig{Name: stratName}
	}
	if len(stratArgs) > 0 {
		params, err := parsePairs(stratArgs)
		if err != nil {
			return nil, err
		}
		if cfg.Strategy.Params == nil {
			cfg.Strategy.Params = map[string]float64{}
		}
		for k, v := range params {
			cfg.Strategy.Params[k] = v
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parsePairs(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, &config.ConfigurationError{Param: "param", Reason: fmt.Sprintf("%q is not name=value", kv)}
		}
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, &config.ConfigurationError{Param: "param." + k, Reason: fmt.Sprintf("bad number %q", v), Err: err}
		}
		out[strings.TrimSpace(k)] = f
	}
	return out, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	if cfg.Log.Console {
		return util.NewConsoleLogger(cfg.Log.Level, os.Stderr)
	}
	return util.NewLogger(cfg.Log.Level, os.Stderr)
}

// openJournal returns the configured sink. The SQLite handle is also returned
// when that is the sink so the run summary can be stored.
func openJournal(c config.JournalConfig) (journal.Journal, *journal.SQLite, error) {
	switch c.Type {
	case "csv":
		j, err := journal.NewCSV(c.TradesFile, c.EquityFile)
		if err != nil {
			return nil, nil, fmt.Errorf("open csv journal: %w", err)
		}
		return j, nil, nil
	case "sqlite":
		db, err := journal.NewSQLite(c.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open db: %w", err)
		}
		return db, db, nil
	default:
		return journal.Nop{}, nil, nil
	}
}

package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/tradesim/config"
	"github.com/rustyeddy/tradesim/risk"
	"github.com/rustyeddy/tradesim/strategies"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Generate or validate configuration files",
	Long: `Manage configuration files for backtests and paper sessions.

Subcommands:
  init     - Generate a default configuration file
  validate - Validate an existing configuration file
  params   - List risk parameters and strategies

Examples:
  tradesim config init -o sim.yaml
  tradesim config validate -f sim.yaml`,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Generate a default configuration file",
	RunE:  runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Check that a configuration file loads and every setting is usable.
All problems are reported, not just the first.`,
	RunE: runConfigValidate,
}

var configParamsCmd = &cobra.Command{
	Use:   "params",
	Short: "List risk parameters and strategies with their defaults",
	Args:  cobra.NoArgs,
	RunE:  runConfigParams,
}

var (
	configInitOutput   string
	configValidatePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configParamsCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "tradesim.yaml", "output config file path")
	configValidateCmd.Flags().StringVarP(&configValidatePath, "file", "f", "", "path to config file (required)")
	configValidateCmd.MarkFlagRequired("file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg := config.Default()
	if err := cfg.SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created default configuration: %s\n", configInitOutput)
	fmt.Fprintln(out, "\nEdit the file and run with:")
	fmt.Fprintf(out, "  tradesim backtest -c %s\n", configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	data, err := os.ReadFile(configValidatePath)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	cfg, err := config.Parse(data)
	if err == nil {
		err = cfg.Validate()
	}
	if err != nil {
		for _, p := range config.Problems(err) {
			fmt.Fprintf(out, "  %s: %s\n", p.Param, p.Reason)
		}
		return fmt.Errorf("validation failed: %s", configValidatePath)
	}

	fmt.Fprintf(out, "Configuration valid: %s\n", configValidatePath)
	fmt.Fprintf(out, "  Capital:  %.2f\n", cfg.Account.Capital)
	fmt.Fprintf(out, "  Strategy: %s\n", cfg.Strategy.Name)
	fmt.Fprintf(out, "  Risk:     %.2f%% per trade, stop %.1f ATR, R:R %.1f\n",
		cfg.Risk.RiskPct, cfg.Risk.StopATRMultiplier, cfg.Risk.RewardRatio)
	fmt.Fprintf(out, "  Journal:  %s\n", cfg.Journal.Type)
	return nil
}

func runConfigParams(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Risk parameters (--risk-param name=value):")
	for _, name := range risk.ParamNames() {
		fmt.Fprintf(out, "  %s\n", name)
	}

	fmt.Fprintln(out, "\nStrategies (--strategy name, --param name=value):")
	for _, name := range strategies.Names() {
		defaults, err := strategies.Defaults(name)
		if err != nil {
			return err
		}
		keys := make([]string, 0, len(defaults))
		for k, v := range defaults {
			keys = append(keys, fmt.Sprintf("%s=%g", k, v))
		}
		sort.Strings(keys)
		fmt.Fprintf(out, "  %-12s %s\n", name, strings.Join(keys, " "))
	}
	return nil
}

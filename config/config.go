package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/multierr"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradesim/risk"
	"github.com/rustyeddy/tradesim/strategies"
)

// ConfigurationError reports a setting that cannot be used. Runs are refused
// before they start when any is present.
type ConfigurationError struct {
	Param  string
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Param, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

func invalid(param, format string, args ...any) error {
	return &ConfigurationError{Param: param, Reason: fmt.Sprintf(format, args...)}
}

// Config represents the complete simulation configuration
type Config struct {
	Account  AccountConfig  `json:"account" yaml:"account"`
	Risk     RiskConfig     `json:"risk" yaml:"risk"`
	Strategy StrategyConfig `json:"strategy" yaml:"strategy"`
	Backtest BacktestConfig `json:"backtest" yaml:"backtest"`
	Paper    PaperConfig    `json:"paper" yaml:"paper"`
	Journal  JournalConfig  `json:"journal" yaml:"journal"`
	Log      LogConfig      `json:"log" yaml:"log"`
	Metrics  MetricsConfig  `json:"metrics" yaml:"metrics"`
}

type AccountConfig struct {
	Capital float64 `json:"capital" yaml:"capital"`
}

// RiskConfig holds the trade rules and entry gates. Percentages are in percent
// units (1.0 == 1%).
type RiskConfig struct {
	RiskPct             float64       `json:"risk_pct" yaml:"risk_pct"`
	StopATRMultiplier   float64       `json:"stop_atr_multiplier" yaml:"stop_atr_multiplier"`
	RewardRatio         float64       `json:"reward_ratio" yaml:"reward_ratio"`
	CommissionPct       float64       `json:"commission_pct" yaml:"commission_pct"`
	TrailingPct         float64       `json:"trailing_pct" yaml:"trailing_pct"`
	ExposurePct         float64       `json:"exposure_pct" yaml:"exposure_pct"`
	ConfidenceThreshold float64       `json:"confidence_threshold" yaml:"confidence_threshold"`
	TradingWindow       *WindowConfig `json:"trading_window,omitempty" yaml:"trading_window,omitempty"`
}

// WindowConfig is a "HH:MM" pair, both ends inclusive.
type WindowConfig struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

type StrategyConfig struct {
	Name   string             `json:"name" yaml:"name"`
	Params map[string]float64 `json:"params,omitempty" yaml:"params,omitempty"`
}

type BacktestConfig struct {
	Instrument string `json:"instrument" yaml:"instrument"`
	Data       string `json:"data,omitempty" yaml:"data,omitempty"` // bars CSV; synthetic when empty
	ATRPeriod  int    `json:"atr_period" yaml:"atr_period"`
	Seed       int64  `json:"seed" yaml:"seed"`
	Bars       int    `json:"bars" yaml:"bars"`
}

type PaperConfig struct {
	Instruments []string `json:"instruments" yaml:"instruments"`
	Ticks       string   `json:"ticks,omitempty" yaml:"ticks,omitempty"` // ticks CSV; synthetic when empty
	Cadence     string   `json:"cadence" yaml:"cadence"`                 // e.g. "2s"
	Duration    string   `json:"duration" yaml:"duration"`               // e.g. "10m"; "" runs to the end of data
	Confidence  float64  `json:"confidence" yaml:"confidence"`
	HistoryLen  int      `json:"history_len" yaml:"history_len"`
	MinHistory  int      `json:"min_history" yaml:"min_history"`
	ATRPeriod   int      `json:"atr_period" yaml:"atr_period"`
}

// CadenceDuration parses Cadence.
func (p PaperConfig) CadenceDuration() (time.Duration, error) {
	return parseDuration(p.Cadence)
}

// RunDuration parses Duration. Zero means no limit.
func (p PaperConfig) RunDuration() (time.Duration, error) {
	return parseDuration(p.Duration)
}

func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	return time.ParseDuration(s)
}

// JournalConfig contains journaling parameters
type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "none", "csv" or "sqlite"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	OrgFile    string `json:"org_file,omitempty" yaml:"org_file,omitempty"`
}

type LogConfig struct {
	Level   string `json:"level" yaml:"level"`
	Console bool   `json:"console" yaml:"console"`
}

type MetricsConfig struct {
	Addr string `json:"addr,omitempty" yaml:"addr,omitempty"` // "" disables the endpoint
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{Capital: 10000},
		Risk: RiskConfig{
			RiskPct:             1,
			StopATRMultiplier:   2,
			RewardRatio:         2,
			CommissionPct:       0,
			ExposurePct:         20,
			ConfidenceThreshold: 0.8,
			TradingWindow:       &WindowConfig{Start: "09:30", End: "16:30"},
		},
		Strategy: StrategyConfig{Name: "sma-cross"},
		Backtest: BacktestConfig{
			Instrument: "SYNTH",
			ATRPeriod:  14,
			Seed:       42,
			Bars:       100,
		},
		Paper: PaperConfig{
			Instruments: []string{"PETR4", "VALE3", "ITUB4", "BBDC4"},
			Cadence:     "2s",
			Duration:    "10m",
			Confidence:  0.8,
			HistoryLen:  100,
			MinHistory:  26,
			ATRPeriod:   14,
		},
		Journal: JournalConfig{Type: "none"},
		Log:     LogConfig{Level: "info", Console: true},
	}
}

// LoadFromFile reads YAML, or JSON when the file is not YAML, over the
// defaults. Unknown keys are rejected in both formats.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Parse decodes data without validating it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	yerr := decodeYAML(data, cfg)
	if yerr == nil {
		return cfg, nil
	}

	cfg = Default()
	jerr := decodeJSON(data, cfg)
	if jerr == nil {
		return cfg, nil
	}
	return nil, &ConfigurationError{
		Param:  "file",
		Reason: fmt.Sprintf("not valid YAML (%v) or JSON (%v)", yerr, jerr),
		Err:    yerr,
	}
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func decodeJSON(data []byte, cfg *Config) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(cfg)
}

// SaveToFile saves configuration to a file (JSON or YAML based on extension)
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate reports every problem in the configuration, not just the first.
func (c *Config) Validate() error {
	var err error
	add := func(e error) { err = multierr.Append(err, e) }

	if c.Account.Capital <= 0 {
		add(invalid("account.capital", "must be positive"))
	}

	r := c.Risk
	if r.RiskPct <= 0 || r.RiskPct > 100 {
		add(invalid("risk.risk_pct", "must be in (0, 100]"))
	}
	if r.StopATRMultiplier <= 0 {
		add(invalid("risk.stop_atr_multiplier", "must be positive"))
	}
	if r.RewardRatio <= 0 {
		add(invalid("risk.reward_ratio", "must be positive"))
	}
	if r.CommissionPct < 0 {
		add(invalid("risk.commission_pct", "must not be negative"))
	}
	if r.TrailingPct < 0 || r.TrailingPct >= 100 {
		add(invalid("risk.trailing_pct", "must be in [0, 100)"))
	}
	if r.ExposurePct < 0 || r.ExposurePct > 100 {
		add(invalid("risk.exposure_pct", "must be in [0, 100]"))
	}
	if r.ConfidenceThreshold < 0 || r.ConfidenceThreshold > 1 {
		add(invalid("risk.confidence_threshold", "must be in [0, 1]"))
	}
	if _, werr := r.Window(); werr != nil {
		add(&ConfigurationError{Param: "risk.trading_window", Reason: werr.Error(), Err: werr})
	}

	if _, serr := c.Strategy.Source(); serr != nil {
		add(&ConfigurationError{Param: "strategy", Reason: serr.Error(), Err: serr})
	}

	if c.Backtest.ATRPeriod < 1 {
		add(invalid("backtest.atr_period", "must be at least 1"))
	}

	p := c.Paper
	if _, derr := p.CadenceDuration(); derr != nil {
		add(invalid("paper.cadence", "%v", derr))
	}
	if d, derr := p.RunDuration(); derr != nil || d < 0 {
		add(invalid("paper.duration", "must be a non-negative duration"))
	}
	if p.Confidence < 0 || p.Confidence > 1 {
		add(invalid("paper.confidence", "must be in [0, 1]"))
	}
	if p.HistoryLen < 1 {
		add(invalid("paper.history_len", "must be at least 1"))
	}
	if p.MinHistory < 0 || p.MinHistory > p.HistoryLen {
		add(invalid("paper.min_history", "must be in [0, history_len]"))
	}
	if p.ATRPeriod < 1 {
		add(invalid("paper.atr_period", "must be at least 1"))
	}

	switch c.Journal.Type {
	case "", "none":
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			add(invalid("journal", "trades_file and equity_file required for CSV type"))
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			add(invalid("journal.db_path", "required for SQLite type"))
		}
	default:
		add(invalid("journal.type", "must be 'none', 'csv' or 'sqlite', got %q", c.Journal.Type))
	}

	return err
}

// Window parses the trading window; nil when none is configured.
func (r RiskConfig) Window() (*risk.TradingWindow, error) {
	if r.TradingWindow == nil {
		return nil, nil
	}
	w, err := risk.ParseWindow(r.TradingWindow.Start, r.TradingWindow.End)
	if err != nil {
		return nil, err
	}
	if w.End < w.Start {
		return nil, fmt.Errorf("window end %s before start %s", r.TradingWindow.End, r.TradingWindow.Start)
	}
	return &w, nil
}

// Policy converts the risk section. The trading window is dropped when it
// does not parse; Validate reports that case.
func (r RiskConfig) Policy() risk.Policy {
	w, _ := r.Window()
	return risk.Policy{
		RiskPct:             r.RiskPct,
		StopATRMultiplier:   r.StopATRMultiplier,
		RewardRatio:         r.RewardRatio,
		CommissionPct:       r.CommissionPct,
		TrailingPct:         r.TrailingPct,
		ExposurePct:         r.ExposurePct,
		ConfidenceThreshold: r.ConfidenceThreshold,
		Window:              w,
	}
}

// BacktestPolicy is Policy without the paper-only gates. Backtest signals
// carry no confidence and only one position is ever open.
func (r RiskConfig) BacktestPolicy() risk.Policy {
	p := r.Policy()
	p.ConfidenceThreshold = 0
	p.ExposurePct = 0
	p.Window = nil
	return p
}

func (r *RiskConfig) setPolicy(p risk.Policy) {
	r.RiskPct = p.RiskPct
	r.StopATRMultiplier = p.StopATRMultiplier
	r.RewardRatio = p.RewardRatio
	r.CommissionPct = p.CommissionPct
	r.TrailingPct = p.TrailingPct
	r.ExposurePct = p.ExposurePct
	r.ConfidenceThreshold = p.ConfidenceThreshold
}

// Source builds the configured signal source.
func (s StrategyConfig) Source() (strategies.Source, error) {
	return strategies.New(s.Name, s.Params)
}

// ApplyRiskOverrides applies "name=value" pairs such as "risk_pct=0.5". Every
// bad pair is reported.
func (c *Config) ApplyRiskOverrides(pairs []string) error {
	var err error
	p := c.Risk.Policy()
	for _, kv := range pairs {
		name, val, ok := strings.Cut(kv, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			err = multierr.Append(err, invalid("risk-param", "%q is not name=value", kv))
			continue
		}
		v, perr := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if perr != nil {
			err = multierr.Append(err, invalid("risk."+name, "bad number %q", val))
			continue
		}
		if serr := p.Set(name, v); serr != nil {
			err = multierr.Append(err, &ConfigurationError{
				Param:  "risk." + name,
				Reason: fmt.Sprintf("unknown risk parameter (supported: %s)", strings.Join(risk.ParamNames(), ", ")),
				Err:    serr,
			})
		}
	}
	if err != nil {
		return err
	}
	c.Risk.setPolicy(p)
	return nil
}

// Problems flattens a Validate or ApplyRiskOverrides error into its parts.
func Problems(err error) []*ConfigurationError {
	var out []*ConfigurationError
	for _, e := range multierr.Errors(err) {
		var ce *ConfigurationError
		if errors.As(e, &ce) {
			out = append(out, ce)
		}
	}
	return out
}

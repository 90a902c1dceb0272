package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned by lookups that match no row.
var ErrNotFound = errors.New("not found")

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, run_id, instrument, direction, size, entry_price, exit_price,
		 open_time, close_time, gross_pct, net_pct, capital, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.RunID, t.Instrument, t.Direction, t.Size, t.EntryPrice, t.ExitPrice,
		t.OpenTime.UTC(), t.CloseTime.UTC(), t.GrossPct, t.NetPct, t.Capital, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(run_id, step, time, capital, drawdown_pct)
		VALUES (?, ?, ?, ?, ?)`,
		e.RunID, e.Step, e.Time.UTC(), e.Capital, e.DrawdownPct,
	)
	return err
}

// RecordRun inserts or replaces a run summary.
func (j *SQLite) RecordRun(ctx context.Context, r Run) error {
	m := r.Metrics
	_, err := j.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
		(run_id, created, mode, strategy, instruments, dataset, start_time, end_time, steps,
		 risk_pct, stop_atr_multiplier, reward_ratio, commission_pct,
		 initial_capital, final_capital, total_return_pct, total_trades, winners, losers,
		 win_rate, profit_factor, avg_win_pct, avg_loss_pct, expectancy_pct,
		 max_drawdown_pct, volatility_pct, sharpe)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created.UTC(), r.Mode, r.Strategy, strings.Join(r.Instruments, " "), r.Dataset,
		r.Start.UTC(), r.End.UTC(), r.Steps,
		r.RiskPct, r.StopATRMultiplier, r.RewardRatio, r.CommissionPct,
		m.InitialCapital, m.FinalCapital, m.TotalReturnPct, m.TotalTrades, m.Winners, m.Losers,
		m.WinRate, profitFactorValue(m.ProfitFactor), m.AvgWinPct, m.AvgLossPct, m.ExpectancyPct,
		m.MaxDrawdownPct, m.VolatilityPct, m.Sharpe,
	)
	return err
}

const runColumns = `run_id, created, mode, strategy, instruments, dataset, start_time, end_time, steps,
	risk_pct, stop_atr_multiplier, reward_ratio, commission_pct,
	initial_capital, final_capital, total_return_pct, total_trades, winners, losers,
	win_rate, profit_factor, avg_win_pct, avg_loss_pct, expectancy_pct,
	max_drawdown_pct, volatility_pct, sharpe`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var (
		r           Run
		instruments string
		pf          sql.NullFloat64
	)
	m := &r.Metrics
	err := s.Scan(
		&r.RunID, &r.Created, &r.Mode, &r.Strategy, &instruments, &r.Dataset,
		&r.Start, &r.End, &r.Steps,
		&r.RiskPct, &r.StopATRMultiplier, &r.RewardRatio, &r.CommissionPct,
		&m.InitialCapital, &m.FinalCapital, &m.TotalReturnPct, &m.TotalTrades, &m.Winners, &m.Losers,
		&m.WinRate, &pf, &m.AvgWinPct, &m.AvgLossPct, &m.ExpectancyPct,
		&m.MaxDrawdownPct, &m.VolatilityPct, &m.Sharpe,
	)
	if err != nil {
		return Run{}, err
	}
	r.Instruments = strings.Fields(instruments)
	m.ProfitFactor = math.Inf(1)
	if pf.Valid {
		m.ProfitFactor = pf.Float64
	}
	return r, nil
}

func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
	}
	return r, err
}

// ListRuns returns every run, newest first.
func (j *SQLite) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := j.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY created DESC, run_id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (j *SQLite) ListTradesByRunID(ctx context.Context, runID string) ([]TradeRecord, error) {
	return j.queryTrades(ctx, `SELECT `+tradeColumns+` FROM trades
		WHERE run_id = ?
		ORDER BY close_time ASC, trade_id ASC`, runID)
}

func (j *SQLite) ListEquityByRunID(ctx context.Context, runID string) ([]EquitySnapshot, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT run_id, step, time, capital, drawdown_pct
		FROM equity
		WHERE run_id = ?
		ORDER BY step ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []EquitySnapshot
	for rows.Next() {
		var e EquitySnapshot
		if err := rows.Scan(&e.RunID, &e.Step, &e.Time, &e.Capital, &e.DrawdownPct); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ExportRunOrg loads a run and its trades and returns the Org block.
func (j *SQLite) ExportRunOrg(ctx context.Context, runID string) (string, error) {
	r, err := j.GetRun(ctx, runID)
	if err != nil {
		return "", err
	}
	trades, err := j.ListTradesByRunID(ctx, runID)
	if err != nil {
		return "", err
	}

	s, err := r.FormatOrg()
	if err != nil {
		return "", err
	}
	if len(trades) == 0 {
		return s, nil
	}
	return s + "\n** Trades\n" + FormatTradesOrg(trades), nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

// SQLite has no representation for infinity; NULL stands in for it.
func profitFactorValue(pf float64) any {
	if math.IsInf(pf, 0) || math.IsNaN(pf) {
		return nil
	}
	return pf
}

package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	trade_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	instrument TEXT NOT NULL,
	direction TEXT NOT NULL,
	size REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	gross_pct REAL NOT NULL,
	net_pct REAL NOT NULL,
	capital REAL NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_run ON trades(run_id, close_time);

CREATE TABLE IF NOT EXISTS equity (
	run_id TEXT NOT NULL,
	step INTEGER NOT NULL,
	time DATETIME NOT NULL,
	capital REAL NOT NULL,
	drawdown_pct REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_run ON equity(run_id, step);

CREATE TABLE IF NOT EXISTS runs (
	run_id TEXT PRIMARY KEY,
	created DATETIME NOT NULL,
	mode TEXT NOT NULL,
	strategy TEXT NOT NULL,
	instruments TEXT NOT NULL,
	dataset TEXT NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NOT NULL,
	steps INTEGER NOT NULL,
	risk_pct REAL NOT NULL,
	stop_atr_multiplier REAL NOT NULL,
	reward_ratio REAL NOT NULL,
	commission_pct REAL NOT NULL,
	initial_capital REAL NOT NULL,
	final_capital REAL NOT NULL,
	total_return_pct REAL NOT NULL,
	total_trades INTEGER NOT NULL,
	winners INTEGER NOT NULL,
	losers INTEGER NOT NULL,
	win_rate REAL NOT NULL,
	profit_factor REAL,
	avg_win_pct REAL NOT NULL,
	avg_loss_pct REAL NOT NULL,
	expectancy_pct REAL NOT NULL,
	max_drawdown_pct REAL NOT NULL,
	volatility_pct REAL NOT NULL,
	sharpe REAL NOT NULL
);
`

package journal

import (
	"context"
	"database/sql"
	"math"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradesim/ledger"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func testTrade(id, runID string, closeT time.Time, net float64) TradeRecord {
	return TradeRecord{
		RunID:      runID,
		TradeID:    id,
		Instrument: "PETR4",
		Direction:  "buy",
		Size:       50,
		EntryPrice: 100,
		ExitPrice:  96,
		OpenTime:   closeT.Add(-time.Hour),
		CloseTime:  closeT,
		GrossPct:   net,
		NetPct:     net,
		Capital:    9996,
		Reason:     "StopLoss",
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('trades','equity','runs')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["trades"])
	assert.True(t, found["equity"])
	assert.True(t, found["runs"])
}

func TestSQLiteRecordTrade(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	closeT := time.Date(2024, 1, 2, 4, 5, 6, 0, time.UTC)
	rec := testTrade("T1", "R1", closeT, -4)
	require.NoError(t, j.RecordTrade(rec))

	got, err := j.GetTrade("T1")
	require.NoError(t, err)

	assert.Equal(t, rec.TradeID, got.TradeID)
	assert.Equal(t, rec.RunID, got.RunID)
	assert.Equal(t, rec.Instrument, got.Instrument)
	assert.Equal(t, rec.Direction, got.Direction)
	assert.InDelta(t, rec.Size, got.Size, 1e-9)
	assert.InDelta(t, rec.EntryPrice, got.EntryPrice, 1e-9)
	assert.InDelta(t, rec.ExitPrice, got.ExitPrice, 1e-9)
	assert.True(t, got.OpenTime.Equal(rec.OpenTime))
	assert.True(t, got.CloseTime.Equal(rec.CloseTime))
	assert.InDelta(t, rec.NetPct, got.NetPct, 1e-9)
	assert.Equal(t, rec.Reason, got.Reason)

	_, err = j.GetTrade("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteListTradesClosedBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"A", "B", "C"} {
		require.NoError(t, j.RecordTrade(testTrade(id, "R1", base.Add(time.Duration(i)*24*time.Hour), 1)))
	}

	got, err := j.ListTradesClosedBetween(base, base.Add(48*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A", got[0].TradeID)
	assert.Equal(t, "B", got[1].TradeID)
}

func TestSQLiteRecordEquity(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	ts := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	for step, c := range []float64{10000, 9996, 10004} {
		require.NoError(t, j.RecordEquity(EquitySnapshot{
			RunID:   "R1",
			Step:    step,
			Time:    ts.Add(time.Duration(step) * time.Minute),
			Capital: c,
		}))
	}
	require.NoError(t, j.RecordEquity(EquitySnapshot{RunID: "R2", Time: ts, Capital: 1}))

	got, err := j.ListEquityByRunID(context.Background(), "R1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 2, got[2].Step)
	assert.InDelta(t, 10004.0, got[2].Capital, 1e-9)
	assert.True(t, got[1].Time.Equal(ts.Add(time.Minute)))
}

func testRun(id string, created time.Time, pf float64) Run {
	return Run{
		RunID:             id,
		Created:           created,
		Mode:              "backtest",
		Strategy:          "sma-cross",
		Instruments:       []string{"PETR4", "VALE3"},
		Dataset:           "bars.csv",
		Start:             created.Add(-24 * time.Hour),
		End:               created,
		Steps:             99,
		RiskPct:           1,
		StopATRMultiplier: 2,
		RewardRatio:       2,
		Metrics: ledger.Metrics{
			InitialCapital: 10000,
			FinalCapital:   10400,
			TotalReturnPct: 4,
			TotalTrades:    3,
			Winners:        2,
			Losers:         1,
			WinRate:        66.67,
			ProfitFactor:   pf,
			MaxDrawdownPct: -1.5,
		},
	}
}

func TestSQLiteRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordRun(ctx, testRun("R1", t0, 2.5)))
	require.NoError(t, j.RecordRun(ctx, testRun("R2", t0.Add(time.Hour), math.Inf(1))))

	r1, err := j.GetRun(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, []string{"PETR4", "VALE3"}, r1.Instruments)
	assert.Equal(t, 99, r1.Steps)
	assert.Equal(t, 2, r1.Metrics.Winners)
	assert.InDelta(t, 2.5, r1.Metrics.ProfitFactor, 1e-12)
	assert.True(t, r1.Created.Equal(t0))

	r2, err := j.GetRun(ctx, "R2")
	require.NoError(t, err)
	assert.True(t, math.IsInf(r2.Metrics.ProfitFactor, 1))

	runs, err := j.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "R2", runs[0].RunID)

	_, err = j.GetRun(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	// Recording again replaces the summary.
	upd := testRun("R1", t0, 3)
	upd.Steps = 5
	require.NoError(t, j.RecordRun(ctx, upd))
	r1, err = j.GetRun(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, 5, r1.Steps)
}

func TestSQLiteExportRunOrg(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)
	t.Cleanup(func() { _ = j.Close() })

	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, j.RecordRun(ctx, testRun("R1", t0, 2.5)))
	require.NoError(t, j.RecordTrade(testTrade("01HXTRADE0001", "R1", t0, -4)))

	out, err := j.ExportRunOrg(ctx, "R1")
	require.NoError(t, err)
	assert.Contains(t, out, "* BACKTEST: sma-cross PETR4, VALE3")
	assert.Contains(t, out, ":RUN_ID:      R1")
	assert.Contains(t, out, ":PROFIT_FAC:  2.50")
	assert.Contains(t, out, "** Trades")
	assert.Contains(t, out, ":TRADE_ID: 01HXTRADE0001")
}

package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"

	"go.uber.org/multierr"
)

type CSVJournal struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSVJournal, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	j := &CSVJournal{csv.NewWriter(tf), csv.NewWriter(ef), tf, ef}

	err = j.writeRow(j.trades, []string{"run_id", "trade_id", "instrument", "direction", "size",
		"entry_price", "exit_price", "open_time", "close_time", "gross_pct", "net_pct", "capital", "reason"})
	if err == nil {
		err = j.writeRow(j.equity, []string{"run_id", "step", "time", "capital", "drawdown_pct"})
	}
	if err != nil {
		return nil, multierr.Append(err, j.Close())
	}
	return j, nil
}

func (j *CSVJournal) writeRow(w *csv.Writer, row []string) error {
	if err := w.Write(row); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (j *CSVJournal) RecordTrade(t TradeRecord) error {
	return j.writeRow(j.trades, []string{
		t.RunID,
		t.TradeID,
		t.Instrument,
		t.Direction,
		f(t.Size),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.UTC().Format(time.RFC3339),
		t.CloseTime.UTC().Format(time.RFC3339),
		f(t.GrossPct),
		f(t.NetPct),
		f(t.Capital),
		t.Reason,
	})
}

func (j *CSVJournal) RecordEquity(e EquitySnapshot) error {
	return j.writeRow(j.equity, []string{
		e.RunID,
		strconv.Itoa(e.Step),
		e.Time.UTC().Format(time.RFC3339),
		f(e.Capital),
		f(e.DrawdownPct),
	})
}

func (j *CSVJournal) Close() error {
	j.trades.Flush()
	j.equity.Flush()
	return multierr.Combine(
		j.trades.Error(),
		j.equity.Error(),
		j.tf.Close(),
		j.ef.Close(),
	)
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}

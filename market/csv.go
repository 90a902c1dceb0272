package market

import (
	"compress/gzip"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ulikunitz/xz"
)

// Tick is a bar tagged with the instrument it belongs to.
type Tick struct {
	Instrument string
	Bar
}

// openData opens path, decompressing .gz and .xz files on the fly.
func openData(path string) (io.Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	switch {
	case strings.HasSuffix(path, ".gz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("gzip %s: %w", path, err)
		}
		return zr, func() error { zr.Close(); return f.Close() }, nil
	case strings.HasSuffix(path, ".xz"):
		xr, err := xz.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("xz %s: %w", path, err)
		}
		return xr, f.Close, nil
	}
	return f, f.Close, nil
}

// LoadBarsCSV reads bars from a file, optionally gzip or xz compressed.
// See ReadBarsCSV for the format.
func LoadBarsCSV(path string) ([]Bar, error) {
	r, closeFn, err := openData(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return ReadBarsCSV(r)
}

// ReadBarsCSV parses rows of time,open,high,low,close[,volume].
// A header row starting with "time" is skipped. Times are RFC3339 or unix seconds.
func ReadBarsCSV(r io.Reader) ([]Bar, error) {
	var bars []Bar
	err := readRows(r, func(line int, row []string) error {
		if len(row) < 5 {
			return fmt.Errorf("line %d: need at least 5 cols time,open,high,low,close: %v", line, row)
		}
		b, err := parseBar(row[0], row[1:])
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		bars = append(bars, b)
		return nil
	})
	return bars, err
}

// LoadTicksCSV reads instrument-tagged bars from a file, optionally
// compressed like LoadBarsCSV. See ReadTicksCSV.
func LoadTicksCSV(path string) ([]Tick, error) {
	r, closeFn, err := openData(path)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return ReadTicksCSV(r)
}

// ReadTicksCSV parses rows of time,instrument,open,high,low,close[,volume].
func ReadTicksCSV(r io.Reader) ([]Tick, error) {
	var ticks []Tick
	err := readRows(r, func(line int, row []string) error {
		if len(row) < 6 {
			return fmt.Errorf("line %d: need at least 6 cols time,instrument,open,high,low,close: %v", line, row)
		}
		inst := strings.TrimSpace(row[1])
		if inst == "" {
			return fmt.Errorf("line %d: empty instrument", line)
		}
		b, err := parseBar(row[0], row[2:])
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		ticks = append(ticks, Tick{Instrument: inst, Bar: b})
		return nil
	})
	return ticks, err
}

// GroupByInstrument splits ticks per instrument, preserving order.
func GroupByInstrument(ticks []Tick) map[string][]Bar {
	out := make(map[string][]Bar)
	for _, t := range ticks {
		out[t.Instrument] = append(out[t.Instrument], t.Bar)
	}
	return out
}

func readRows(r io.Reader, fn func(line int, row []string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	line := 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		line++
		if len(row) == 0 {
			continue
		}
		if line == 1 && strings.EqualFold(strings.TrimSpace(row[0]), "time") {
			continue
		}
		if err := fn(line, row); err != nil {
			return err
		}
	}
}

func parseBar(ts string, cols []string) (Bar, error) {
	t, err := parseTime(ts)
	if err != nil {
		return Bar{}, err
	}

	var v [5]float64
	n := len(cols)
	if n > 5 {
		n = 5
	}
	for i := 0; i < n; i++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(cols[i]), 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad number %q: %w", cols[i], err)
		}
		v[i] = f
	}

	return Bar{
		Time:   t,
		Open:   v[0],
		High:   v[1],
		Low:    v[2],
		Close:  v[3],
		Volume: v[4],
	}, nil
}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	sec, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad time %q", s)
	}
	return time.Unix(sec, 0).UTC(), nil
}

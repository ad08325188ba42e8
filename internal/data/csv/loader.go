// Package csv loads bar histories from the on-disk CSV hand-off format
// produced by the market-data collector: one file per instrument, header
// timestamp,open,high,low,close,volume, RFC3339 or unix-second timestamps.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sawpanic/signalrun/internal/domain/bars"
)

var columns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// LoadFile reads one instrument's bars and validates ordering.
func LoadFile(path string) ([]bars.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	seq, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return seq, nil
}

// Read parses bars from r. The header row is mandatory and must match the
// expected column order.
func Read(r io.Reader) ([]bars.Bar, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	if err := checkHeader(header); err != nil {
		return nil, err
	}

	var seq []bars.Bar
	line := 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		b, err := parseRecord(record)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		seq = append(seq, b)
	}

	if err := bars.ValidateSequence(seq); err != nil {
		return nil, err
	}
	return seq, nil
}

// LoadDir loads every *.csv in dir; the instrument symbol is the uppercased
// file stem. Files that fail to parse are skipped with a logged warning so
// one bad file does not sink a multi-symbol run.
func LoadDir(dir string) (map[string][]bars.Bar, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no CSV files in %s", dir)
	}

	out := make(map[string][]bars.Bar, len(matches))
	for _, path := range matches {
		seq, err := LoadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("file", path).Msg("skipping unreadable bar file")
			continue
		}
		symbol := strings.ToUpper(strings.TrimSuffix(filepath.Base(path), ".csv"))
		out[symbol] = seq
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no loadable CSV files in %s", dir)
	}
	return out, nil
}

func checkHeader(header []string) error {
	if len(header) != len(columns) {
		return fmt.Errorf("header has %d columns, want %d", len(header), len(columns))
	}
	for i, want := range columns {
		if !strings.EqualFold(strings.TrimSpace(header[i]), want) {
			return fmt.Errorf("header column %d is %q, want %q", i, header[i], want)
		}
	}
	return nil
}

func parseRecord(record []string) (bars.Bar, error) {
	if len(record) != len(columns) {
		return bars.Bar{}, fmt.Errorf("row has %d columns, want %d", len(record), len(columns))
	}

	ts, err := parseTimestamp(record[0])
	if err != nil {
		return bars.Bar{}, err
	}

	vals := make([]float64, 5)
	for i := 1; i < len(record); i++ {
		v, err := strconv.ParseFloat(strings.TrimSpace(record[i]), 64)
		if err != nil {
			return bars.Bar{}, fmt.Errorf("column %s: %w", columns[i], err)
		}
		vals[i-1] = v
	}

	b := bars.Bar{
		Timestamp: ts,
		Open:      vals[0],
		High:      vals[1],
		Low:       vals[2],
		Close:     vals[3],
		Volume:    vals[4],
	}
	if b.High < b.Low {
		return bars.Bar{}, fmt.Errorf("high %f below low %f", b.High, b.Low)
	}
	return b, nil
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	ts, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("timestamp %q: %w", s, err)
	}
	return ts.UTC(), nil
}

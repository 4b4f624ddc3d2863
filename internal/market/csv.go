package market

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// csvColumns is the required header for historical data files.
var csvColumns = []string{"timestamp", "open", "high", "low", "close", "volume"}

// LoadCSV reads a historical candle file. The file must carry the exact
// header timestamp,open,high,low,close,volume; timestamps may be RFC3339 or
// unix milliseconds. Malformed data is a hard error: a backtest must never
// start on a partially-parsed history.
func LoadCSV(path string) ([]Candle, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open data file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	if len(header) < len(csvColumns) {
		return nil, fmt.Errorf("data file has %d columns, expected %v", len(header), csvColumns)
	}
	for i, col := range csvColumns {
		if header[i] != col {
			return nil, fmt.Errorf("unexpected column %q at position %d, expected %q", header[i], i, col)
		}
	}

	var candles []Candle
	line := 1
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Wrong field count, bad quoting: a hard error like any other
			// malformed value, never a truncated load.
			return nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		ts, err := parseTimestamp(record[0])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		vals := make([]float64, 5)
		for i := 1; i <= 5; i++ {
			v, err := strconv.ParseFloat(record[i], 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: failed to parse %q: %w", line, record[i], err)
			}
			vals[i-1] = v
		}

		candles = append(candles, Candle{
			OpenTime: ts,
			Open:     vals[0],
			High:     vals[1],
			Low:      vals[2],
			Close:    vals[3],
			Volume:   vals[4],
		})
	}

	if len(candles) == 0 {
		return nil, fmt.Errorf("data file %s contains no candles", path)
	}
	if err := Validate(candles); err != nil {
		return nil, fmt.Errorf("data file %s: %w", path, err)
	}
	return candles, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// FilterSince drops candles older than the cutoff, preserving order.
func FilterSince(candles []Candle, cutoff time.Time) []Candle {
	out := make([]Candle, 0, len(candles))
	for _, c := range candles {
		if !c.OpenTime.Before(cutoff) {
			out = append(out, c)
		}
	}
	return out
}

package feed

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/coretrade/engine/pkg/types"
)

// FileFeed replays bars from a CSV file for the backtest path. Expected
// columns: time (RFC3339), ticker, open, high, low, close, volume.
// Consecutive rows sharing the same timestamp are grouped into one
// BarSet, matching how a real multi-ticker tick recorder batches ticks.
type FileFeed struct {
	file    *os.File
	reader  *csv.Reader
	pending []string // the first row of the next group, read ahead
	done    bool
}

// NewFileFeed opens path and prepares to stream bars from it.
func NewFileFeed(path string) (*FileFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("feed: opening %s: %w", path, err)
	}
	r := csv.NewReader(bufio.NewReaderSize(f, 64*1024))
	r.FieldsPerRecord = 7

	// Skip an optional header row.
	first, err := r.Read()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("feed: reading header of %s: %w", path, err)
	}
	ff := &FileFeed{file: f, reader: r}
	if _, err := time.Parse(time.RFC3339, first[0]); err == nil {
		ff.pending = first
	}
	return ff, nil
}

func parseRow(row []string) (types.Bar, error) {
	t, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: invalid timestamp %q: %w", row[0], err)
	}
	open, err := decimal.NewFromString(row[2])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: invalid open %q: %w", row[2], err)
	}
	high, err := decimal.NewFromString(row[3])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: invalid high %q: %w", row[3], err)
	}
	low, err := decimal.NewFromString(row[4])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: invalid low %q: %w", row[4], err)
	}
	closePrice, err := decimal.NewFromString(row[5])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: invalid close %q: %w", row[5], err)
	}
	volume, err := decimal.NewFromString(row[6])
	if err != nil {
		return types.Bar{}, fmt.Errorf("feed: invalid volume %q: %w", row[6], err)
	}
	return types.Bar{Ticker: row[1], Time: t, Open: open, High: high, Low: low, Close: closePrice, Volume: volume}, nil
}

// Next returns the next timestamp's BarSet, or ok=false at EOF.
func (f *FileFeed) Next() (types.BarSet, bool) {
	if f.done {
		return types.BarSet{}, false
	}

	row := f.pending
	f.pending = nil
	if row == nil {
		var err error
		row, err = f.reader.Read()
		if err == io.EOF {
			f.done = true
			return types.BarSet{}, false
		}
		if err != nil {
			f.done = true
			return types.BarSet{}, false
		}
	}

	bar, err := parseRow(row)
	if err != nil {
		f.done = true
		return types.BarSet{}, false
	}

	set := types.BarSet{Time: bar.Time, Bars: map[string]types.Bar{bar.Ticker: bar}}

	for {
		next, err := f.reader.Read()
		if err == io.EOF {
			f.done = true
			return set, true
		}
		if err != nil {
			f.done = true
			return set, true
		}
		nextBar, err := parseRow(next)
		if err != nil {
			f.done = true
			return set, true
		}
		if !nextBar.Time.Equal(bar.Time) {
			f.pending = next
			return set, true
		}
		set.Bars[nextBar.Ticker] = nextBar
	}
}

// Close releases the underlying file handle.
func (f *FileFeed) Close() error {
	return f.file.Close()
}

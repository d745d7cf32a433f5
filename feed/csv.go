package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rustyeddy/stratengine/market"
)

// csvColumns is the expected header of a replay file.
var csvColumns = []string{"time", "symbol", "timeframe", "open", "high", "low", "close", "volume"}

// CSV replays candles from a file, for backtesting and scripted
// scenarios. Rows must be in time order; the feed does not sort.
type CSV struct {
	ticks chan market.Tick
	errs  chan error
	quit  chan struct{}
}

func NewCSV(path string) (*CSV, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(file)
	header, err := r.Read()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("feed: read csv header: %w", err)
	}
	if len(header) != len(csvColumns) {
		file.Close()
		return nil, fmt.Errorf("feed: csv header has %d columns, want %d", len(header), len(csvColumns))
	}

	f := &CSV{
		ticks: make(chan market.Tick),
		errs:  make(chan error, 8),
		quit:  make(chan struct{}),
	}
	go f.pump(file, r)
	return f, nil
}

func (f *CSV) Ticks() <-chan market.Tick { return f.ticks }
func (f *CSV) Errs() <-chan error        { return f.errs }

func (f *CSV) Close() error {
	close(f.quit)
	return nil
}

func (f *CSV) pump(file *os.File, r *csv.Reader) {
	defer file.Close()
	defer close(f.ticks)

	line := 1
	for {
		line++
		row, err := r.Read()
		if err == io.EOF {
			return
		}
		if err != nil {
			f.report(fmt.Errorf("feed: csv line %d: %w", line, err))
			continue
		}

		tick, err := parseRow(row)
		if err != nil {
			f.report(fmt.Errorf("feed: csv line %d: %w", line, err))
			continue
		}

		select {
		case f.ticks <- tick:
		case <-f.quit:
			return
		}
	}
}

func (f *CSV) report(err error) {
	select {
	case f.errs <- err:
	default:
	}
}

func parseRow(row []string) (market.Tick, error) {
	if len(row) != len(csvColumns) {
		return market.Tick{}, fmt.Errorf("row has %d columns, want %d", len(row), len(csvColumns))
	}

	t, err := time.Parse(time.RFC3339, row[0])
	if err != nil {
		return market.Tick{}, fmt.Errorf("bad time %q: %w", row[0], err)
	}

	tf := market.Timeframe(row[2])
	if !tf.Valid() {
		return market.Tick{}, fmt.Errorf("bad timeframe %q", row[2])
	}

	vals := make([]float64, 5)
	for i, col := range row[3:] {
		v, err := strconv.ParseFloat(col, 64)
		if err != nil {
			return market.Tick{}, fmt.Errorf("bad %s %q: %w", csvColumns[3+i], col, err)
		}
		vals[i] = v
	}

	return market.Tick{
		Symbol:    row[1],
		Timeframe: tf,
		Candle: market.Candle{
			Open:   vals[0],
			High:   vals[1],
			Low:    vals[2],
			Close:  vals[3],
			Volume: vals[4],
			Time:   t,
		},
	}, nil
}

package feed

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratengine/market"
)

func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "candles.csv")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCSVReplay(t *testing.T) {
	path := writeCSV(t, `time,symbol,timeframe,open,high,low,close,volume
2024-06-01T00:00:00Z,BTCUSDT,1m,100,105,99,104,12.5
2024-06-01T00:01:00Z,BTCUSDT,1m,104,110,103,109,8.25
`)

	f, err := NewCSV(path)
	require.NoError(t, err)
	defer f.Close()

	var got []market.Tick
	for tick := range f.Ticks() {
		got = append(got, tick)
	}

	require.Len(t, got, 2)
	assert.Equal(t, "BTCUSDT", got[0].Symbol)
	assert.Equal(t, market.TF1m, got[0].Timeframe)
	assert.Equal(t, 104.0, got[0].Candle.Close)
	assert.Equal(t, 12.5, got[0].Candle.Volume)
	assert.True(t, got[0].Candle.Time.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 109.0, got[1].Candle.Close)
}

func TestCSVSkipsBadRows(t *testing.T) {
	path := writeCSV(t, `time,symbol,timeframe,open,high,low,close,volume
not-a-time,BTCUSDT,1m,100,105,99,104,1
2024-06-01T00:00:00Z,BTCUSDT,7m,100,105,99,104,1
2024-06-01T00:01:00Z,BTCUSDT,1m,104,110,103,oops,1
2024-06-01T00:02:00Z,BTCUSDT,1m,104,110,103,109,1
`)

	f, err := NewCSV(path)
	require.NoError(t, err)
	defer f.Close()

	var got []market.Tick
	for tick := range f.Ticks() {
		got = append(got, tick)
	}

	require.Len(t, got, 1, "only the well-formed row survives")
	assert.Equal(t, 109.0, got[0].Candle.Close)

	var errCount int
	for {
		select {
		case <-f.Errs():
			errCount++
			continue
		default:
		}
		break
	}
	assert.Equal(t, 3, errCount)
}

func TestCSVRejectsBadHeader(t *testing.T) {
	path := writeCSV(t, "time,symbol\n")
	_, err := NewCSV(path)
	assert.Error(t, err)

	_, err = NewCSV(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

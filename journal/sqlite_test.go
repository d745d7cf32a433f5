package journal

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratengine/market"
)

func testTrade(id, strategyID string, exitTime time.Time, pnl float64) TradeRecord {
	return TradeRecord{
		PositionID:  id,
		StrategyID:  strategyID,
		Symbol:      "BTCUSDT",
		Side:        market.Buy,
		Size:        0.5,
		EntryPrice:  50000,
		ExitPrice:   50000 + pnl/0.5,
		EntryTime:   exitTime.Add(-time.Hour),
		ExitTime:    exitTime,
		RealizedPnL: pnl,
		Reason:      "exit-condition",
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, j.RecordTrade(testTrade("p-1", "strat-a", base, 100)))
	require.NoError(t, j.RecordTrade(testTrade("p-2", "strat-a", base.Add(time.Hour), -40)))
	require.NoError(t, j.RecordTrade(testTrade("p-3", "strat-b", base.Add(2*time.Hour), 10)))

	got, err := j.GetTrade("p-1")
	require.NoError(t, err)
	assert.Equal(t, "strat-a", got.StrategyID)
	assert.Equal(t, market.Buy, got.Side)
	assert.InDelta(t, 100.0, got.RealizedPnL, 1e-9)
	assert.True(t, got.ExitTime.Equal(base))

	_, err = j.GetTrade("missing")
	assert.Error(t, err)

	byStrat, err := j.ListTradesByStrategy("strat-a")
	require.NoError(t, err)
	require.Len(t, byStrat, 2)
	assert.Equal(t, "p-1", byStrat[0].PositionID, "oldest first")

	window, err := j.ListTradesClosedBetween(base.Add(30*time.Minute), base.Add(3*time.Hour))
	require.NoError(t, err)
	require.Len(t, window, 2)
	assert.Equal(t, "p-2", window[0].PositionID)
	assert.Equal(t, "p-3", window[1].PositionID)
}

func TestSQLiteEquity(t *testing.T) {
	j, err := NewSQLite(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	defer j.Close()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, j.RecordEquity(EquitySnapshot{
			Time:          base.Add(time.Duration(i) * time.Minute),
			Equity:        1000 + float64(i),
			Reserved:      10,
			Unrealized:    float64(i),
			OpenPositions: 1,
		}))
	}

	snaps, err := j.ListEquityBetween(base, base.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.InDelta(t, 1000.0, snaps[0].Equity, 1e-9)
	assert.Equal(t, 1, snaps[1].OpenPositions)
}

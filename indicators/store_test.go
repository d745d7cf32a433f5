package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratengine/market"
)

func TestResolve(t *testing.T) {
	known := []string{
		"RSI", "RSI_9", "EMA_12", "SMA_50",
		"MACD", "Signal", "MACD_Signal", "MACD_Histogram",
		"BB_Upper", "BB_Middle", "BB_Lower", "BB_Width",
		"SMA_20_Volume", "SMA_Volume_10",
	}
	for _, name := range known {
		assert.NoError(t, Resolve(name), name)
	}

	unknown := []string{"POC", "Kumo_Cloud", "StochRSI_K", "Fib_61.8", "EMA_x", "EMA_0"}
	for _, name := range unknown {
		err := Resolve(name)
		require.Error(t, err, name)
		var uerr *UnknownIndicatorError
		assert.ErrorAs(t, err, &uerr, name)
	}
}

func TestStoreUpdateAndSnapshot(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Ensure("BTCUSDT", market.TF1h, []string{"SMA_3", "Price"}))

	cs := candles(100, 102, 104, 106)

	// During warmup only Price/Volume change.
	keys := s.Update("BTCUSDT", market.TF1h, cs[0])
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, k.Name)
	}
	assert.ElementsMatch(t, []string{"Price", "Volume"}, names)

	view := s.Snapshot("BTCUSDT", market.TF1h)
	_, ok := view.Value("SMA_3")
	assert.False(t, ok, "SMA_3 must not report a value in warmup")

	price, ok := view.Value("Price")
	require.True(t, ok)
	assert.Equal(t, 100.0, price)

	s.Update("BTCUSDT", market.TF1h, cs[1])
	keys = s.Update("BTCUSDT", market.TF1h, cs[2])
	assert.Contains(t, keys, Key{Symbol: "BTCUSDT", Timeframe: market.TF1h, Name: "SMA_3"})

	view = s.Snapshot("BTCUSDT", market.TF1h)
	v, ok := view.Value("SMA_3")
	require.True(t, ok)
	assert.InDelta(t, 102.0, v, 0.001)

	// First ready value has no predecessor yet.
	_, ok = view.Prev("SMA_3")
	assert.False(t, ok)

	s.Update("BTCUSDT", market.TF1h, cs[3])
	view = s.Snapshot("BTCUSDT", market.TF1h)

	v, _ = view.Value("SMA_3")
	assert.InDelta(t, 104.0, v, 0.001)
	prev, ok := view.Prev("SMA_3")
	require.True(t, ok)
	assert.InDelta(t, 102.0, prev, 0.001)

	prevPrice, ok := view.Prev("Price")
	require.True(t, ok)
	assert.Equal(t, 104.0, prevPrice)
}

func TestStoreEnsureUnknownRegistersNothing(t *testing.T) {
	s := NewStore()
	err := s.Ensure("BTCUSDT", market.TF1h, []string{"EMA_12", "Price near POC"})
	require.Error(t, err)

	s.Update("BTCUSDT", market.TF1h, candles(100)[0])
	view := s.Snapshot("BTCUSDT", market.TF1h)
	_, ok := view.Value("EMA_12")
	assert.False(t, ok, "a failed Ensure must not register any series")
}

func TestStoreSharedInstances(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Ensure("ETHUSDT", market.TF1h, []string{"MACD", "Signal", "MACD_Histogram"}))

	b := s.bucket("ETHUSDT", market.TF1h, false)
	require.NotNil(t, b)
	assert.Len(t, b.instances, 1, "MACD names share one instance")

	for _, c := range candles(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14,
		15, 16, 17, 18, 19, 20, 21, 22, 23, 24, 25, 26, 27, 28, 29, 30, 31, 32, 33, 34, 35) {
		s.Update("ETHUSDT", market.TF1h, c)
	}

	view := s.Snapshot("ETHUSDT", market.TF1h)
	line, ok := view.Value("MACD")
	require.True(t, ok)
	sig, ok := view.Value("Signal")
	require.True(t, ok)
	hist, ok := view.Value("MACD_Histogram")
	require.True(t, ok)
	assert.InDelta(t, line-sig, hist, 1e-9)
}

func TestStoreBucketsAreIndependent(t *testing.T) {
	s := NewStore()
	require.NoError(t, s.Ensure("BTCUSDT", market.TF1h, []string{"SMA_2"}))
	require.NoError(t, s.Ensure("BTCUSDT", market.TF5m, []string{"SMA_2"}))

	for _, c := range candles(10, 20) {
		s.Update("BTCUSDT", market.TF1h, c)
	}

	hourly := s.Snapshot("BTCUSDT", market.TF1h)
	v, ok := hourly.Value("SMA_2")
	require.True(t, ok)
	assert.InDelta(t, 15.0, v, 0.001)

	fiveMin := s.Snapshot("BTCUSDT", market.TF5m)
	_, ok = fiveMin.Value("SMA_2")
	assert.False(t, ok, "updates must not leak across timeframes")
}

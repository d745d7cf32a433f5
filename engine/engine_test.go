package engine

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/stratengine/broker/paper"
	"github.com/rustyeddy/stratengine/dispatch"
	"github.com/rustyeddy/stratengine/expr"
	"github.com/rustyeddy/stratengine/indicators"
	"github.com/rustyeddy/stratengine/ledger"
	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/risk"
	"github.com/rustyeddy/stratengine/sched"
	"github.com/rustyeddy/stratengine/store"
	"github.com/rustyeddy/stratengine/strategy"
)

type fixture struct {
	engine *Engine
	sched  *sched.Scheduler
	venue  *paper.Venue
	repo   store.StrategyRepo
}

func newFixture(t *testing.T, withRepo bool) *fixture {
	t.Helper()

	venue := paper.New(paper.Config{Cash: 100000, DefaultMinQty: 0.0001})
	venue.UpdatePrice(market.Tick{
		Symbol:    "BTCUSDT",
		Timeframe: market.TF1m,
		Candle:    market.Candle{Close: 50000, Time: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)},
	})

	d := dispatch.New(venue)
	t.Cleanup(d.Close)

	account := risk.NewAccount(10000)
	book := ledger.NewBook(10000)
	trader := dispatch.NewTrader(venue, d, account, book, nil)
	sc := sched.New(indicators.NewStore(), book, trader, venue)

	var repo store.StrategyRepo
	if withRepo {
		db, err := store.Open(filepath.Join(t.TempDir(), "strategies.db"))
		require.NoError(t, err)
		repo = store.NewStrategyRepo(db)
	}

	return &fixture{
		engine: New(sc, trader, book, repo),
		sched:  sc,
		venue:  venue,
		repo:   repo,
	}
}

func validRequest() CreateRequest {
	return CreateRequest{
		Name: "rsi dip",
		Type: strategy.MeanReversion,
		Params: strategy.Params{
			Symbol:       "BTCUSDT",
			Timeframe:    market.TF1m,
			StopLossPct:  2,
			RiskPct:      1,
			MaxPositions: 1,
		},
		Entry: []string{"RSI < 30"},
		Exit:  []string{"RSI > 70"},
	}
}

func TestCreateStartStop(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	s, err := f.engine.CreateStrategy(ctx, validRequest())
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	assert.Len(t, f.engine.Strategies(), 1)

	res := f.engine.Start(ctx, s.ID)
	assert.True(t, res.IsActive)
	assert.True(t, f.sched.IsActive(s.ID))

	res = f.engine.Stop(ctx, s.ID)
	assert.False(t, res.IsActive)
	assert.False(t, f.sched.IsActive(s.ID))

	res = f.engine.Start(ctx, "missing")
	assert.False(t, res.IsActive)
	assert.NotEmpty(t, res.Message)
}

func TestCreateRejectsFreeTextConditions(t *testing.T) {
	f := newFixture(t, false)

	req := validRequest()
	req.Entry = []string{"RSI < 30", "Price near POC"}

	_, err := f.engine.CreateStrategy(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "entry", verr.Set)
	assert.Equal(t, 1, verr.Line)
	assert.Equal(t, "Price near POC", verr.Text)

	var perr *expr.ParseError
	assert.ErrorAs(t, err, &perr, "the root cause is a parse error")

	assert.Empty(t, f.engine.Strategies(), "invalid strategy is never registered")
}

func TestCreateRejectsUnknownOperand(t *testing.T) {
	f := newFixture(t, false)

	req := validRequest()
	req.Exit = []string{"StochRSI_K < 20"}

	_, err := f.engine.CreateStrategy(context.Background(), req)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "exit", verr.Set)

	var uerr *expr.UnknownOperandError
	assert.ErrorAs(t, err, &uerr)
	assert.Empty(t, f.engine.Strategies())
}

func TestCreateRejectsBadParams(t *testing.T) {
	f := newFixture(t, false)

	req := validRequest()
	req.Params.RiskPct = 0

	_, err := f.engine.CreateStrategy(context.Background(), req)
	assert.Error(t, err)
	assert.Empty(t, f.engine.Strategies())
}

func TestManualExecute(t *testing.T) {
	f := newFixture(t, false)

	res, err := f.engine.ManualExecute(context.Background(), "BTCUSDT", market.Buy, 0.5)
	require.NoError(t, err)
	assert.Equal(t, ManualResult{
		Side:   market.Buy,
		Amount: 0.5,
		Symbol: "BTCUSDT",
		Price:  50000,
		Live:   false,
	}, res)

	_, err = f.engine.ManualExecute(context.Background(), "DOGEUSDT", market.Buy, 1)
	assert.Error(t, err, "no price for symbol")
}

func TestPersistenceRoundTrip(t *testing.T) {
	f := newFixture(t, true)
	ctx := context.Background()

	s, err := f.engine.CreateStrategy(ctx, validRequest())
	require.NoError(t, err)

	// A fresh engine over the same repo sees the strategy again.
	f2 := newFixture(t, false)
	f2.engine.repo = f.repo
	require.NoError(t, f2.engine.LoadPersisted(ctx))

	loaded := f2.engine.Strategies()
	require.Len(t, loaded, 1)
	assert.Equal(t, s.ID, loaded[0].ID)
	assert.Equal(t, s.EntryText, loaded[0].EntryText)
	assert.NotNil(t, loaded[0].Entry, "conditions recompiled on load")

	require.NoError(t, f.engine.DeleteStrategy(ctx, s.ID))
	recs, err := f.repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestPerformanceUnknownStrategy(t *testing.T) {
	f := newFixture(t, false)
	_, ok := f.engine.Performance("missing")
	assert.False(t, ok)
}

func TestEndToEndScenario(t *testing.T) {
	// Drive a created strategy through the scheduler with real candles:
	// RSI warms up, dips under 30 to open, then recovers over 70 to
	// close via the exit condition.
	f := newFixture(t, false)
	ctx := context.Background()

	req := validRequest()
	req.Params.StopLossPct = 50 // keep thresholds out of the way
	s, err := f.engine.CreateStrategy(ctx, req)
	require.NoError(t, err)
	require.True(t, f.engine.Start(ctx, s.ID).IsActive)

	base := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	emit := func(i int, close float64) {
		f.sched.OnTick(market.Tick{
			Symbol:    "BTCUSDT",
			Timeframe: market.TF1m,
			Candle: market.Candle{
				Open: close, High: close, Low: close, Close: close, Volume: 1,
				Time: base.Add(time.Duration(i) * time.Minute),
			},
		})
	}

	i := 0
	// Warmup: steady rises keep RSI high.
	for ; i < 15; i++ {
		emit(i, 50000+float64(i)*10)
	}
	// Hard sell-off drives RSI under 30.
	for ; i < 30; i++ {
		emit(i, 50150-float64(i-14)*200)
	}
	require.Eventually(t, func() bool {
		perf, ok := f.engine.Performance(s.ID)
		return ok && perf.OpenCount == 1
	}, 2*time.Second, 10*time.Millisecond, "sell-off opens a position")

	// Sharp recovery drives RSI over 70.
	low := 50150 - float64(29-14)*200
	for ; i < 50; i++ {
		emit(i, low+float64(i-29)*300)
	}
	require.Eventually(t, func() bool {
		perf, ok := f.engine.Performance(s.ID)
		return ok && perf.OpenCount == 0 && perf.TotalTrades == 1
	}, 2*time.Second, 10*time.Millisecond, "recovery closes it")
}

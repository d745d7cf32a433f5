// Package sched owns the set of registered strategies and drives them
// from the market data stream. Each strategy evaluates on its own
// goroutine, strictly one tick at a time; a slow strategy never stalls
// the ingestion path or its peers, it just skips to the freshest tick.
package sched

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/rustyeddy/stratengine/expr"
	"github.com/rustyeddy/stratengine/indicators"
	"github.com/rustyeddy/stratengine/ledger"
	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/metrics"
	"github.com/rustyeddy/stratengine/strategy"
)

// PriceSink receives every ingested tick before strategies evaluate. The
// paper venue implements it to keep fill prices current.
type PriceSink interface {
	UpdatePrice(market.Tick)
}

type tickEvent struct {
	view expr.View
}

type entry struct {
	strat *strategy.Strategy
	rt    *strategy.Runtime

	// mu serializes OnTick against Start/Stop; the runtime itself is
	// not safe for concurrent use.
	mu    sync.Mutex
	ticks chan tickEvent
	quit  chan struct{}
	done  chan struct{}
}

// Scheduler fans ticks out to registered strategies and guards their
// lifecycle: register, activate, deactivate, unregister.
type Scheduler struct {
	store  *indicators.Store
	book   *ledger.Book
	trader strategy.Trader
	sinks  []PriceSink

	mu      sync.Mutex
	entries map[string]*entry
}

func New(store *indicators.Store, book *ledger.Book, trader strategy.Trader, sinks ...PriceSink) *Scheduler {
	return &Scheduler{
		store:   store,
		book:    book,
		trader:  trader,
		sinks:   sinks,
		entries: make(map[string]*entry),
	}
}

// Register adds a strategy in the inactive state and provisions its
// indicator series. The strategy must already be validated and compiled.
func (sc *Scheduler) Register(s *strategy.Strategy) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if err := sc.store.Ensure(s.Params.Symbol, s.Params.Timeframe, s.Refs()); err != nil {
		return fmt.Errorf("register strategy %s: %w", s.ID, err)
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if _, exists := sc.entries[s.ID]; exists {
		return fmt.Errorf("strategy %s already registered", s.ID)
	}

	e := &entry{
		strat: s,
		rt:    strategy.NewRuntime(s, sc.trader, sc.book.Ledger(s.ID)),
		ticks: make(chan tickEvent, 1),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
	sc.entries[s.ID] = e

	go e.loop()
	return nil
}

// Activate starts evaluation for a registered strategy.
func (sc *Scheduler) Activate(id string) error {
	e, err := sc.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	was := e.rt.State()
	e.rt.Start()
	e.mu.Unlock()

	if was == strategy.Inactive {
		metrics.ActiveStrategies.Inc()
	}
	return nil
}

// Deactivate stops evaluation. Takes effect before the strategy's next
// tick; an in-flight evaluation finishes first.
func (sc *Scheduler) Deactivate(ctx context.Context, id string) error {
	e, err := sc.entry(id)
	if err != nil {
		return err
	}

	e.mu.Lock()
	was := e.rt.State()
	e.rt.Stop(ctx)
	e.mu.Unlock()

	if was != strategy.Inactive {
		metrics.ActiveStrategies.Dec()
	}
	return nil
}

// Unregister deactivates a strategy, stops its goroutine and drops its
// ledger.
func (sc *Scheduler) Unregister(ctx context.Context, id string) error {
	if err := sc.Deactivate(ctx, id); err != nil {
		return err
	}

	sc.mu.Lock()
	e := sc.entries[id]
	delete(sc.entries, id)
	sc.mu.Unlock()

	close(e.quit)
	<-e.done

	sc.book.Remove(id)
	metrics.OpenPositions.DeleteLabelValues(id)
	return nil
}

// IsActive reports whether the strategy is currently evaluating ticks.
func (sc *Scheduler) IsActive(id string) bool {
	e, err := sc.entry(id)
	if err != nil {
		return false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rt.State() != strategy.Inactive
}

// State returns the runtime state for observability.
func (sc *Scheduler) State(id string) (strategy.State, error) {
	e, err := sc.entry(id)
	if err != nil {
		return "", err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rt.State(), nil
}

// LastError returns the strategy's most recent sizing or execution
// failure, if any.
func (sc *Scheduler) LastError(id string) error {
	e, err := sc.entry(id)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rt.LastError()
}

// Strategies returns the registered strategy records.
func (sc *Scheduler) Strategies() []*strategy.Strategy {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	out := make([]*strategy.Strategy, 0, len(sc.entries))
	for _, e := range sc.entries {
		out = append(out, e.strat)
	}
	return out
}

// OnTick ingests one tick: indicator state first, then venue and ledger
// marks, then fan-out. Subscribers always observe post-update state.
func (sc *Scheduler) OnTick(t market.Tick) {
	metrics.TicksProcessed.WithLabelValues(t.Symbol, string(t.Timeframe)).Inc()

	sc.store.Update(t.Symbol, t.Timeframe, t.Candle)
	for _, sink := range sc.sinks {
		sink.UpdatePrice(t)
	}
	sc.book.MarkPrice(t.Symbol, t.Candle.Close)

	view := sc.store.Snapshot(t.Symbol, t.Timeframe)
	ev := tickEvent{view: view}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	for _, e := range sc.entries {
		if e.strat.Params.Symbol != t.Symbol || e.strat.Params.Timeframe != t.Timeframe {
			continue
		}
		e.offer(ev)
	}
}

// Run pumps the feed until the context ends or the tick channel closes,
// then deactivates every strategy.
func (sc *Scheduler) Run(ctx context.Context, ticks <-chan market.Tick, errs <-chan error) {
	defer sc.shutdown(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case err, ok := <-errs:
			if ok && err != nil {
				log.Printf("sched: feed: %v", err)
			}
		case t, ok := <-ticks:
			if !ok {
				return
			}
			sc.OnTick(t)
		}
	}
}

func (sc *Scheduler) shutdown(ctx context.Context) {
	sc.mu.Lock()
	ids := make([]string, 0, len(sc.entries))
	for id := range sc.entries {
		ids = append(ids, id)
	}
	sc.mu.Unlock()

	for _, id := range ids {
		if err := sc.Deactivate(ctx, id); err != nil {
			log.Printf("sched: deactivate %s: %v", id, err)
		}
	}
}

func (sc *Scheduler) entry(id string) (*entry, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	e, ok := sc.entries[id]
	if !ok {
		return nil, fmt.Errorf("strategy %s not registered", id)
	}
	return e, nil
}

// offer delivers the event without blocking: if the strategy is still on
// a previous tick, the stale pending event is replaced by the fresh one.
func (e *entry) offer(ev tickEvent) {
	for {
		select {
		case e.ticks <- ev:
			return
		default:
		}
		select {
		case <-e.ticks:
		default:
		}
	}
}

func (e *entry) loop() {
	defer close(e.done)
	for {
		select {
		case <-e.quit:
			return
		case ev := <-e.ticks:
			e.evaluate(ev)
		}
	}
}

// evaluate isolates one strategy's failure to that strategy.
func (e *entry) evaluate(ev tickEvent) {
	e.mu.Lock()
	defer e.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("sched: strategy %s panicked: %v", e.strat.ID, r)
		}
	}()
	e.rt.OnTick(context.Background(), ev.view)
}

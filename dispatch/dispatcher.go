// Package dispatch routes orders to the venue. Orders on the same symbol
// are submitted in strict arrival order; different symbols run in
// parallel. The production Trader combines sizing, dispatch, booking and
// journaling behind the strategy runtime's Trader interface.
package dispatch

import (
	"context"
	"errors"
	"sync"

	"github.com/rustyeddy/stratengine/broker"
)

var ErrClosed = errors.New("dispatch: dispatcher closed")

type request struct {
	ctx   context.Context
	order broker.Order
	reply chan result
}

type result struct {
	fill broker.Fill
	err  error
}

// Dispatcher serializes order submission per symbol. Each symbol gets a
// worker goroutine fed by a FIFO channel; channel order is arrival order.
type Dispatcher struct {
	venue broker.Broker

	mu      sync.Mutex
	lanes   map[string]chan request
	closed  bool
	pending sync.WaitGroup // Submits between lane lookup and enqueue
	wg      sync.WaitGroup // lane workers
}

func New(venue broker.Broker) *Dispatcher {
	return &Dispatcher{
		venue: venue,
		lanes: make(map[string]chan request),
	}
}

// Submit queues the order on its symbol's lane and waits for the venue's
// answer. Rejections come back as *broker.Rejection errors.
func (d *Dispatcher) Submit(ctx context.Context, o broker.Order) (broker.Fill, error) {
	lane, err := d.lane(o.Symbol)
	if err != nil {
		return broker.Fill{}, err
	}

	req := request{ctx: ctx, order: o, reply: make(chan result, 1)}
	select {
	case lane <- req:
		d.pending.Done()
	case <-ctx.Done():
		d.pending.Done()
		return broker.Fill{}, ctx.Err()
	}

	select {
	case res := <-req.reply:
		return res.fill, res.err
	case <-ctx.Done():
		// The order may still execute; only the caller stops waiting.
		return broker.Fill{}, ctx.Err()
	}
}

func (d *Dispatcher) lane(symbol string) (chan request, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil, ErrClosed
	}
	lane, ok := d.lanes[symbol]
	if !ok {
		lane = make(chan request, 64)
		d.lanes[symbol] = lane
		d.wg.Add(1)
		go d.run(lane)
	}
	// Registered under the lock, so Close cannot close this lane before
	// the caller's enqueue finishes.
	d.pending.Add(1)
	return lane, nil
}

func (d *Dispatcher) run(lane chan request) {
	defer d.wg.Done()
	for req := range lane {
		fill, err := d.venue.SubmitOrder(req.ctx, req.order)
		req.reply <- result{fill: fill, err: err}
	}
}

// Close drains the lanes and stops the workers. Submit calls after Close
// fail with ErrClosed.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	// Let in-flight Submits finish enqueueing before the lanes close.
	d.pending.Wait()

	d.mu.Lock()
	for _, lane := range d.lanes {
		close(lane)
	}
	d.mu.Unlock()

	d.wg.Wait()
}

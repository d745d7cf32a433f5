package strategy

import (
	"context"
	"log"

	"github.com/rustyeddy/stratengine/expr"
	"github.com/rustyeddy/stratengine/indicators"
	"github.com/rustyeddy/stratengine/ledger"
	"github.com/rustyeddy/stratengine/market"
)

// State is the runtime's lifecycle position. PendingEntry is only
// observable from another goroutine while an entry order is in flight.
type State string

const (
	Inactive     State = "inactive"
	Active       State = "active"
	PendingEntry State = "pending_entry"
	Holding      State = "holding"
)

// Close reasons recorded on the position and in the journal.
const (
	ReasonExitCondition   = "exit-condition"
	ReasonStopLoss        = "stop-loss"
	ReasonTakeProfit      = "take-profit"
	ReasonStrategyStopped = "strategy-stopped"
	ReasonManual          = "manual"
)

// Trader sizes, routes and books trades on behalf of a runtime. The
// dispatch package provides the production implementation. price is the
// tick price the entry was decided on; fills may differ.
type Trader interface {
	Open(ctx context.Context, s *Strategy, side market.Side, price float64) (*ledger.Position, error)
	Close(ctx context.Context, s *Strategy, positionID, reason string) (ledger.Position, error)
}

// Runtime drives one strategy. The scheduler guarantees OnTick is never
// invoked concurrently for the same runtime; the mutex only guards
// against Start/Stop racing a tick.
type Runtime struct {
	strat  *Strategy
	trader Trader
	led    *ledger.Ledger

	state   State
	lastErr error
}

func NewRuntime(s *Strategy, trader Trader, led *ledger.Ledger) *Runtime {
	return &Runtime{
		strat:  s,
		trader: trader,
		led:    led,
		state:  Inactive,
	}
}

func (r *Runtime) Strategy() *Strategy { return r.strat }

func (r *Runtime) State() State { return r.state }

// LastError reports the most recent sizing or execution failure, cleared
// on the next successful entry. Failures never stop the runtime.
func (r *Runtime) LastError() error { return r.lastErr }

// Start moves the runtime to Active. Restarting an already-active
// runtime is a no-op.
func (r *Runtime) Start() {
	if r.state != Inactive {
		return
	}
	if r.led.OpenCount() > 0 {
		r.state = Holding
		return
	}
	r.state = Active
}

// Stop deactivates the runtime. Open positions are force-closed when the
// strategy is configured for it, otherwise left open and unmanaged.
func (r *Runtime) Stop(ctx context.Context) {
	if r.state == Inactive {
		return
	}
	r.state = Inactive

	if !r.strat.Params.ForceCloseOnStop {
		return
	}
	for _, p := range r.led.OpenPositions() {
		if _, err := r.trader.Close(ctx, r.strat, p.ID, ReasonStrategyStopped); err != nil {
			log.Printf("strategy %s: force close %s: %v", r.strat.ID, p.ID, err)
		}
	}
}

// OnTick runs one evaluation pass: exit conditions first, then stop-loss
// before take-profit, then the entry set. Warmup gaps evaluate to false,
// so a runtime simply waits out its indicators.
func (r *Runtime) OnTick(ctx context.Context, view expr.View) {
	if r.state == Inactive {
		return
	}

	price, ok := view.Value(indicators.SeriesPrice)
	if !ok {
		return
	}

	open := r.led.OpenPositions()
	ectx := expr.Context{View: view, HasPosition: len(open) > 0}

	if len(open) > 0 {
		if r.strat.Exit.EvalAny(ectx) {
			for _, p := range open {
				r.close(ctx, p.ID, ReasonExitCondition)
			}
		} else {
			// Stop-loss outranks take-profit when both trigger on the
			// same tick.
			for _, p := range open {
				switch {
				case r.stopLossHit(p, price):
					r.close(ctx, p.ID, ReasonStopLoss)
				case r.takeProfitHit(p, price):
					r.close(ctx, p.ID, ReasonTakeProfit)
				}
			}
		}
	}

	r.settleState()

	// The entry set is evaluated even while holding, so that an attempt
	// to pyramid past the position cap surfaces as a sizing rejection
	// rather than being silently skipped.
	ectx.HasPosition = r.led.OpenCount() > 0
	if r.strat.Entry.EvalAll(ectx) {
		r.state = PendingEntry
		if _, err := r.trader.Open(ctx, r.strat, market.Buy, price); err != nil {
			r.lastErr = err
			log.Printf("strategy %s: entry not taken: %v", r.strat.ID, err)
		} else {
			r.lastErr = nil
		}
		r.settleState()
	}
}

func (r *Runtime) close(ctx context.Context, positionID, reason string) {
	if _, err := r.trader.Close(ctx, r.strat, positionID, reason); err != nil {
		r.lastErr = err
		log.Printf("strategy %s: close %s (%s): %v", r.strat.ID, positionID, reason, err)
	}
}

func (r *Runtime) settleState() {
	if r.led.OpenCount() > 0 {
		r.state = Holding
	} else {
		r.state = Active
	}
}

// stopLossHit reports whether price has moved against the position by at
// least StopLossPct of the entry price.
func (r *Runtime) stopLossHit(p ledger.Position, price float64) bool {
	pct := r.strat.Params.StopLossPct
	if pct <= 0 {
		return false
	}
	adverse := (p.EntryPrice - price) * p.Side.Sign()
	return adverse >= p.EntryPrice*pct/100
}

func (r *Runtime) takeProfitHit(p ledger.Position, price float64) bool {
	pct := r.strat.Params.TakeProfitPct
	if pct <= 0 {
		return false
	}
	favorable := (price - p.EntryPrice) * p.Side.Sign()
	return favorable >= p.EntryPrice*pct/100
}

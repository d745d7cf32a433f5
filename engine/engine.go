// Package engine is the control surface the dashboard's API layer calls:
// strategy creation with compile-time condition validation, start/stop,
// manual execution and the performance read model.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/rustyeddy/stratengine/dispatch"
	"github.com/rustyeddy/stratengine/expr"
	"github.com/rustyeddy/stratengine/indicators"
	"github.com/rustyeddy/stratengine/ledger"
	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/metrics"
	"github.com/rustyeddy/stratengine/pkg/id"
	"github.com/rustyeddy/stratengine/sched"
	"github.com/rustyeddy/stratengine/store"
	"github.com/rustyeddy/stratengine/strategy"
)

// ValidationError reports which condition line failed to compile.
type ValidationError struct {
	Set  string // "entry" or "exit"
	Line int    // zero-based index into the submitted lines
	Text string
	Err  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s condition %d (%q): %v", e.Set, e.Line+1, e.Text, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// CreateRequest is a strategy submission from the UI.
type CreateRequest struct {
	Name   string
	Type   strategy.Type
	Params strategy.Params
	Entry  []string
	Exit   []string
}

// StatusResult answers start/stop requests.
type StatusResult struct {
	IsActive bool
	Message  string
}

// ManualResult echoes a manual execution back to the UI.
type ManualResult struct {
	Side   market.Side
	Amount float64
	Symbol string
	Price  float64
	Live   bool
}

// Engine wires the scheduler, trader and persistence together.
type Engine struct {
	compiler expr.Compiler
	sched    *sched.Scheduler
	trader   *dispatch.Trader
	book     *ledger.Book
	repo     store.StrategyRepo // nil disables persistence
}

func New(sc *sched.Scheduler, trader *dispatch.Trader, book *ledger.Book, repo store.StrategyRepo) *Engine {
	return &Engine{
		compiler: expr.Compiler{Resolve: indicators.Resolve},
		sched:    sc,
		trader:   trader,
		book:     book,
		repo:     repo,
	}
}

// CreateStrategy compiles, validates, registers and persists a new
// strategy. A strategy that fails compilation is never registered.
func (e *Engine) CreateStrategy(ctx context.Context, req CreateRequest) (*strategy.Strategy, error) {
	entry, err := e.compileSet("entry", req.Entry)
	if err != nil {
		return nil, err
	}
	exit, err := e.compileSet("exit", req.Exit)
	if err != nil {
		return nil, err
	}

	s := &strategy.Strategy{
		ID:        id.New(),
		Name:      req.Name,
		Type:      req.Type,
		Params:    req.Params,
		Entry:     entry,
		Exit:      exit,
		EntryText: req.Entry,
		ExitText:  req.Exit,
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}

	if err := e.sched.Register(s); err != nil {
		return nil, err
	}

	if e.repo != nil {
		if err := e.repo.Save(ctx, store.FromStrategy(s)); err != nil {
			// Roll back so memory and disk agree.
			if uerr := e.sched.Unregister(ctx, s.ID); uerr != nil {
				log.Printf("engine: rollback unregister %s: %v", s.ID, uerr)
			}
			return nil, fmt.Errorf("persist strategy: %w", err)
		}
	}

	return s, nil
}

// DeleteStrategy unregisters and removes a strategy.
func (e *Engine) DeleteStrategy(ctx context.Context, strategyID string) error {
	if err := e.sched.Unregister(ctx, strategyID); err != nil {
		return err
	}
	if e.repo != nil {
		return e.repo.Delete(ctx, strategyID)
	}
	return nil
}

// Start activates a strategy.
func (e *Engine) Start(_ context.Context, strategyID string) StatusResult {
	if err := e.sched.Activate(strategyID); err != nil {
		return StatusResult{IsActive: false, Message: err.Error()}
	}
	return StatusResult{IsActive: true, Message: "strategy started"}
}

// Stop deactivates a strategy.
func (e *Engine) Stop(ctx context.Context, strategyID string) StatusResult {
	if err := e.sched.Deactivate(ctx, strategyID); err != nil {
		return StatusResult{IsActive: e.sched.IsActive(strategyID), Message: err.Error()}
	}
	return StatusResult{IsActive: false, Message: "strategy stopped"}
}

// ManualExecute routes a one-off order outside any strategy. Live is
// always false against the paper venue.
func (e *Engine) ManualExecute(ctx context.Context, symbol string, side market.Side, amount float64) (ManualResult, error) {
	fill, err := e.trader.Manual(ctx, symbol, side, amount)
	if err != nil {
		return ManualResult{}, err
	}
	return ManualResult{
		Side:   fill.Side,
		Amount: fill.Qty,
		Symbol: fill.Symbol,
		Price:  fill.Price,
		Live:   false,
	}, nil
}

// Performance returns the strategy's read model, recomputed from the
// position ledger.
func (e *Engine) Performance(strategyID string) (ledger.Performance, bool) {
	return e.book.Snapshot(strategyID)
}

// Strategies lists the registered strategies.
func (e *Engine) Strategies() []*strategy.Strategy {
	return e.sched.Strategies()
}

// LoadPersisted recompiles and registers every stored strategy. Records
// that no longer compile are skipped and logged, not fatal.
func (e *Engine) LoadPersisted(ctx context.Context) error {
	if e.repo == nil {
		return nil
	}

	recs, err := e.repo.FindAll(ctx)
	if err != nil {
		return fmt.Errorf("load strategies: %w", err)
	}

	for _, rec := range recs {
		s := rec.Strategy()

		if s.Entry, err = e.compileSet("entry", s.EntryText); err != nil {
			log.Printf("engine: skip stored strategy %s: %v", s.ID, err)
			continue
		}
		if s.Exit, err = e.compileSet("exit", s.ExitText); err != nil {
			log.Printf("engine: skip stored strategy %s: %v", s.ID, err)
			continue
		}
		if err := e.sched.Register(s); err != nil {
			log.Printf("engine: skip stored strategy %s: %v", s.ID, err)
		}
	}
	return nil
}

func (e *Engine) compileSet(name string, lines []string) (expr.Set, error) {
	set, err := e.compiler.CompileAll(lines)
	if err == nil {
		return set, nil
	}

	metrics.ParseFailures.Inc()

	var le *expr.LineError
	if errors.As(err, &le) {
		return nil, &ValidationError{Set: name, Line: le.Index, Text: le.Line, Err: le.Err}
	}
	return nil, &ValidationError{Set: name, Err: err}
}

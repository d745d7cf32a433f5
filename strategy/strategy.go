// Package strategy defines the strategy record and the per-strategy
// runtime state machine that turns condition evaluations into trades.
package strategy

import (
	"fmt"

	"github.com/samber/lo"

	"github.com/rustyeddy/stratengine/expr"
	"github.com/rustyeddy/stratengine/market"
)

// Type tags the strategy template a record was built from. Custom covers
// user-authored condition sets.
type Type string

const (
	TrendFollowing Type = "trend_following"
	MeanReversion  Type = "mean_reversion"
	Momentum       Type = "momentum"
	Breakout       Type = "breakout"
	Custom         Type = "custom"
)

func (t Type) Valid() bool {
	switch t {
	case TrendFollowing, MeanReversion, Momentum, Breakout, Custom:
		return true
	}
	return false
}

// Params are the per-strategy trading knobs.
type Params struct {
	Symbol    string
	Timeframe market.Timeframe

	// StopLossPct and TakeProfitPct are percent moves from the entry
	// price. The stop distance also anchors position sizing, so
	// StopLossPct is required; a zero TakeProfitPct disables the target.
	StopLossPct   float64
	TakeProfitPct float64

	// RiskPct is the percent of account equity risked per trade.
	RiskPct float64

	// MaxPositions caps concurrent open positions. Zero means unlimited;
	// one (the default) disables pyramiding.
	MaxPositions int

	// ForceCloseOnStop closes any open position when the strategy stops.
	// When false the position is left open and no longer managed.
	ForceCloseOnStop bool
}

func (p Params) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("strategy params: symbol is required")
	}
	if !p.Timeframe.Valid() {
		return fmt.Errorf("strategy params: invalid timeframe %q", p.Timeframe)
	}
	if p.RiskPct <= 0 {
		return fmt.Errorf("strategy params: riskPct must be positive, got %v", p.RiskPct)
	}
	if p.StopLossPct <= 0 {
		return fmt.Errorf("strategy params: stopLossPct must be positive, got %v", p.StopLossPct)
	}
	if p.TakeProfitPct < 0 {
		return fmt.Errorf("strategy params: takeProfitPct must be non-negative, got %v", p.TakeProfitPct)
	}
	if p.MaxPositions < 0 {
		return fmt.Errorf("strategy params: maxPositions must be non-negative, got %d", p.MaxPositions)
	}
	return nil
}

// Strategy is one configured strategy. Entry and Exit hold the compiled
// condition sets; EntryText and ExitText keep the author's original lines
// for persistence and display. The compiled sets are immutable and shared
// read-only across evaluations.
type Strategy struct {
	ID   string
	Name string
	Type Type

	Params Params

	// Entry fires when every expression holds; Exit when any does.
	Entry expr.Set
	Exit  expr.Set

	EntryText []string
	ExitText  []string
}

func (s *Strategy) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("strategy: id is required")
	}
	if s.Name == "" {
		return fmt.Errorf("strategy: name is required")
	}
	if !s.Type.Valid() {
		return fmt.Errorf("strategy %s: invalid type %q", s.ID, s.Type)
	}
	if len(s.Entry) == 0 {
		return fmt.Errorf("strategy %s: at least one entry condition is required", s.ID)
	}
	return s.Params.Validate()
}

// Refs returns every operand name the strategy's conditions reference,
// deduplicated, for indicator registration.
func (s *Strategy) Refs() []string {
	return lo.Uniq(append(s.Entry.Refs(), s.Exit.Refs()...))
}

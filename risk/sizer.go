package risk

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrMaxPositions means the strategy already holds its configured
	// maximum number of open positions.
	ErrMaxPositions = errors.New("risk: max open positions reached")

	// ErrInsufficientEquity means the account cannot fund the trade, or
	// the computed quantity falls below the venue minimum.
	ErrInsufficientEquity = errors.New("risk: insufficient equity")
)

// Request carries everything sizing needs. OpenCount and MaxPositions
// come from the strategy; MinQty from the venue.
type Request struct {
	Price        float64
	RiskPct      float64 // percent of equity risked per trade
	StopLossPct  float64 // percent adverse move that triggers the stop
	MaxPositions int
	OpenCount    int
	MinQty       float64
}

// Sizing is the computed trade size. RiskAmount is the equity to reserve
// for the position's lifetime.
type Sizing struct {
	Qty        float64
	RiskAmount float64
}

// Sizer converts risk percentages into order quantities against an
// account's equity.
type Sizer struct {
	account *Account
}

func NewSizer(account *Account) *Sizer {
	return &Sizer{account: account}
}

// Size computes the quantity that risks RiskPct of equity given the stop
// distance implied by StopLossPct:
//
//	qty = (equity * riskPct/100) / (price * stopLossPct/100)
//
// Size is a pure computation and can be retried; nothing is reserved
// until the caller commits with Account.Reserve.
func (s *Sizer) Size(req Request) (Sizing, error) {
	if req.Price <= 0 {
		return Sizing{}, fmt.Errorf("risk: price must be positive, got %v", req.Price)
	}
	if req.RiskPct <= 0 || req.StopLossPct <= 0 {
		return Sizing{}, fmt.Errorf("risk: riskPct and stopLossPct must be positive, got %v and %v",
			req.RiskPct, req.StopLossPct)
	}
	if req.MaxPositions > 0 && req.OpenCount >= req.MaxPositions {
		return Sizing{}, ErrMaxPositions
	}

	equity := decimal.NewFromFloat(s.account.Equity())
	hundred := decimal.NewFromInt(100)

	riskAmount := equity.Mul(decimal.NewFromFloat(req.RiskPct)).Div(hundred)
	stopDistance := decimal.NewFromFloat(req.Price).
		Mul(decimal.NewFromFloat(req.StopLossPct)).Div(hundred)

	qty := riskAmount.Div(stopDistance)

	qtyF, _ := qty.Float64()
	riskF, _ := riskAmount.Float64()

	if qtyF < req.MinQty {
		return Sizing{}, fmt.Errorf("%w: quantity %v below venue minimum %v",
			ErrInsufficientEquity, qtyF, req.MinQty)
	}
	if riskF > s.account.Available() {
		return Sizing{}, fmt.Errorf("%w: risk amount %v exceeds available equity %v",
			ErrInsufficientEquity, riskF, s.account.Available())
	}

	return Sizing{Qty: qtyF, RiskAmount: riskF}, nil
}

package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/samber/lo"

	"github.com/rustyeddy/stratengine/broker"
	"github.com/rustyeddy/stratengine/journal"
	"github.com/rustyeddy/stratengine/ledger"
	"github.com/rustyeddy/stratengine/market"
	"github.com/rustyeddy/stratengine/metrics"
	"github.com/rustyeddy/stratengine/pkg/id"
	"github.com/rustyeddy/stratengine/risk"
	"github.com/rustyeddy/stratengine/strategy"
)

// Trader is the production strategy.Trader: it sizes intents against the
// account, routes orders through the dispatcher, books fills into the
// ledger and journals closed trades.
type Trader struct {
	venue      broker.Broker
	dispatcher *Dispatcher
	sizer      *risk.Sizer
	account    *risk.Account
	book       *ledger.Book
	journal    journal.Journal
}

func NewTrader(venue broker.Broker, d *Dispatcher, account *risk.Account, book *ledger.Book, j journal.Journal) *Trader {
	if j == nil {
		j = journal.Nop{}
	}
	return &Trader{
		venue:      venue,
		dispatcher: d,
		sizer:      risk.NewSizer(account),
		account:    account,
		book:       book,
		journal:    j,
	}
}

// Open sizes an entry at the given price, reserves the risked equity,
// submits the order and books the fill. Sizing and venue rejections are
// returned to the runtime as normal results.
func (t *Trader) Open(ctx context.Context, s *strategy.Strategy, side market.Side, price float64) (*ledger.Position, error) {
	led := t.book.Ledger(s.ID)

	sz, err := t.sizer.Size(risk.Request{
		Price:        price,
		RiskPct:      s.Params.RiskPct,
		StopLossPct:  s.Params.StopLossPct,
		MaxPositions: s.Params.MaxPositions,
		OpenCount:    led.OpenCount(),
		MinQty:       t.venue.MinQty(s.Params.Symbol),
	})
	if err != nil {
		metrics.SizingRejections.WithLabelValues(sizingReason(err)).Inc()
		return nil, err
	}

	if err := t.account.Reserve(sz.RiskAmount); err != nil {
		metrics.SizingRejections.WithLabelValues(sizingReason(err)).Inc()
		return nil, err
	}

	fill, err := t.submit(ctx, broker.Order{
		ID:          id.New(),
		StrategyID:  s.ID,
		Symbol:      s.Params.Symbol,
		Side:        side,
		Type:        broker.Market,
		Qty:         sz.Qty,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		t.account.Release(sz.RiskAmount)
		return nil, err
	}

	pos, err := led.Open(fill.Symbol, fill.Side, fill.Qty, fill.Price, fill.Time, sz.RiskAmount)
	if err != nil {
		t.account.Release(sz.RiskAmount)
		return nil, err
	}

	metrics.OpenPositions.WithLabelValues(s.ID).Set(float64(led.OpenCount()))
	t.publishAccount()
	return pos, nil
}

// Close submits the offsetting order for a position and realizes it in
// the ledger. The reserved equity is settled back with the realized P/L.
func (t *Trader) Close(ctx context.Context, s *strategy.Strategy, positionID, reason string) (ledger.Position, error) {
	led := t.book.Ledger(s.ID)

	pos, ok := lo.Find(led.OpenPositions(), func(p ledger.Position) bool { return p.ID == positionID })
	if !ok {
		return ledger.Position{}, fmt.Errorf("dispatch: position %q not open for strategy %s", positionID, s.ID)
	}

	fill, err := t.submit(ctx, broker.Order{
		ID:          id.New(),
		StrategyID:  s.ID,
		Symbol:      pos.Symbol,
		Side:        pos.Side.Opposite(),
		Type:        broker.Market,
		Qty:         pos.Size,
		SubmittedAt: time.Now().UTC(),
	})
	if err != nil {
		return ledger.Position{}, err
	}

	closed, err := led.Close(positionID, fill.Price, fill.Time, reason)
	if err != nil {
		return ledger.Position{}, err
	}

	t.account.Settle(closed.RiskAmount, closed.RealizedPnL)
	metrics.OpenPositions.WithLabelValues(s.ID).Set(float64(led.OpenCount()))
	t.publishAccount()

	if err := t.journal.RecordTrade(journal.TradeRecord{
		PositionID:  closed.ID,
		StrategyID:  closed.StrategyID,
		Symbol:      closed.Symbol,
		Side:        closed.Side,
		Size:        closed.Size,
		EntryPrice:  closed.EntryPrice,
		ExitPrice:   closed.ExitPrice,
		EntryTime:   closed.EntryTime,
		ExitTime:    closed.ExitTime,
		RealizedPnL: closed.RealizedPnL,
		Reason:      closed.CloseReason,
	}); err != nil {
		log.Printf("dispatch: journal trade %s: %v", closed.ID, err)
	}

	return closed, nil
}

// Manual submits an order outside any strategy, for the dashboard's
// manual-execute path. The fill is not tracked in a ledger.
func (t *Trader) Manual(ctx context.Context, symbol string, side market.Side, qty float64) (broker.Fill, error) {
	if !side.Valid() {
		return broker.Fill{}, fmt.Errorf("dispatch: invalid side %q", side)
	}
	if qty < t.venue.MinQty(symbol) {
		return broker.Fill{}, fmt.Errorf("%w: quantity %v below venue minimum %v",
			risk.ErrInsufficientEquity, qty, t.venue.MinQty(symbol))
	}

	return t.submit(ctx, broker.Order{
		ID:          id.New(),
		Symbol:      symbol,
		Side:        side,
		Type:        broker.Market,
		Qty:         qty,
		SubmittedAt: time.Now().UTC(),
	})
}

func (t *Trader) submit(ctx context.Context, o broker.Order) (broker.Fill, error) {
	metrics.OrdersSubmitted.WithLabelValues(o.Symbol, string(o.Side)).Inc()

	fill, err := t.dispatcher.Submit(ctx, o)
	if err != nil {
		var rej *broker.Rejection
		if errors.As(err, &rej) {
			metrics.OrderRejections.WithLabelValues(o.Symbol).Inc()
		}
		return broker.Fill{}, err
	}
	return fill, nil
}

func (t *Trader) publishAccount() {
	metrics.AccountEquity.Set(t.account.Equity())
	metrics.AccountReserved.Set(t.account.Reserved())
}

func sizingReason(err error) string {
	switch {
	case errors.Is(err, risk.ErrMaxPositions):
		return "max_positions"
	case errors.Is(err, risk.ErrInsufficientEquity):
		return "insufficient_equity"
	default:
		return "other"
	}
}

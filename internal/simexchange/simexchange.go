// Package simexchange implements SimExchange: the OrderRouter
// contract (send_order, cancel_order, is_up) realized against a set of
// per-instrument SimOrderBooks, matching deterministically against the
// replayed top-of-book rather than a live venue.
package simexchange

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/automatedalgo/apex/internal/apexctx"
	"github.com/automatedalgo/apex/internal/apexerr"
	"github.com/automatedalgo/apex/internal/domain"
	"github.com/automatedalgo/apex/internal/ids"
	"github.com/automatedalgo/apex/internal/money"
	"github.com/automatedalgo/apex/internal/orderbook"
	"github.com/automatedalgo/apex/internal/router"
)

// trackedOrder is SimExchange's private record of one live or
// terminal order, keyed by ext_order_id. The client-side domain.Order
// remains owned by the strategy; this is a non-owning reference plus
// the state this exchange has observed.
type trackedOrder struct {
	clientID   string
	instrument domain.Instrument
	state      domain.OrderState
}

// SimExchange implements router.OrderRouter. It owns its books map and
// ext-id index; no back-pointer to any owner is kept (Design Note
// §9) — only the small apexctx.Context value.
type SimExchange struct {
	ctx      apexctx.Context
	books    map[domain.InstrumentKey]*orderbook.Book
	extIDGen *ids.ClientIDGenerator
	tracked  map[string]*trackedOrder
	handler  router.OrderEventHandler
}

// New builds an exchange with no instruments listed yet.
func New(ctx apexctx.Context) *SimExchange {
	return &SimExchange{
		ctx:      ctx,
		books:    make(map[domain.InstrumentKey]*orderbook.Book),
		extIDGen: ids.NewClientIDGenerator("ext"),
		tracked:  make(map[string]*trackedOrder),
	}
}

// OnOrderEvent registers the sole handler for order lifecycle
// notifications. SimExchange emits to it synchronously or via the
// event loop, per spec.md §4.5.
func (x *SimExchange) OnOrderEvent(h router.OrderEventHandler) {
	x.handler = h
}

// AddInstrument lists an instrument for trading. SendOrder rejects
// with e0001 for any instrument not listed first — the decided default
// for the spec's "unlisted instruments" open question.
func (x *SimExchange) AddInstrument(instr domain.Instrument) {
	key := instr.Key()
	if _, ok := x.books[key]; ok {
		return
	}
	x.books[key] = orderbook.New()
}

// Book returns the resting-order book for instr. Returns nil if the
// instrument was never listed.
func (x *SimExchange) Book(instr domain.Instrument) *orderbook.Book {
	return x.books[instr.Key()]
}

func (x *SimExchange) emit(evt router.OrderEvent) {
	if x.handler != nil {
		x.handler(evt)
	}
}

// SendOrder implements router.OrderRouter. It assigns a fresh
// ext_order_id, emits ACCEPTED on the next event-loop opportunity (to
// mirror live latency), and resolves the order per spec.md §4.5:
// marketable limits fill immediately up to the displayed opposite
// quantity, non-marketable limits rest, and market orders either fill
// in full or reject with e0102.
func (x *SimExchange) SendOrder(order *domain.Order) {
	book, listed := x.books[order.Instrument.Key()]
	if !listed {
		x.ctx.Loop.Dispatch(func() {
			x.emit(router.OrderEvent{
				Time:       x.ctx.Loop.Now(),
				Type:       domain.EventReject,
				ClientID:   order.ClientID,
				Instrument: order.Instrument,
				Side:       order.Side,
				OrderType:  order.OrderType,
				Price:      order.Price,
				Size:       order.Size,
				State:      domain.Rejected,
				Reason:     string(apexerr.ReasonNoExchange),
			})
		})
		return
	}

	if order.OrderType == domain.Limit {
		order.Price = money.RoundToTick(order.Price, order.Instrument.TickSize(), order.Side == domain.Buy)
	}

	extID := x.extIDGen.Next()
	order.ExtOrderID = extID
	tracked := &trackedOrder{clientID: order.ClientID, instrument: order.Instrument, state: domain.Live}
	x.tracked[extID] = tracked

	x.ctx.Loop.Dispatch(func() {
		x.emit(router.OrderEvent{
			Time:       x.ctx.Loop.Now(),
			Type:       domain.EventAck,
			ExtOrderID: extID,
			ClientID:   order.ClientID,
			Instrument: order.Instrument,
			Side:       order.Side,
			OrderType:  order.OrderType,
			Price:      order.Price,
			Size:       order.Size,
			State:      domain.Live,
		})

		resting := &domain.SimLimitOrder{
			ExtOrderID:  extID,
			Side:        order.Side,
			Price:       order.Price,
			OriginalQty: order.Size,
			LeavesQty:   order.Size,
			ClientRef:   order.ClientID,
		}

		fill, remaining, shouldRest := book.MatchMarketable(resting, order.OrderType)

		if fill != nil {
			x.emit(router.OrderEvent{
				Time:       x.ctx.Loop.Now(),
				Type:       domain.EventFill,
				ExtOrderID: extID,
				ClientID:   order.ClientID,
				Instrument: order.Instrument,
				Side:       order.Side,
				OrderType:  order.OrderType,
				Price:      order.Price,
				Size:       order.Size,
				State:      stateAfterFill(remaining),
				FillQty:    fill.Qty,
				FillPrice:  fill.Price,
			})
			if remaining.IsZero() {
				tracked.state = domain.Filled
				delete(x.tracked, extID)
				return
			}
		}

		if order.OrderType == domain.Market {
			tracked.state = domain.Rejected
			delete(x.tracked, extID)
			x.emit(router.OrderEvent{
				Time:       x.ctx.Loop.Now(),
				Type:       domain.EventReject,
				ExtOrderID: extID,
				ClientID:   order.ClientID,
				Instrument: order.Instrument,
				Side:       order.Side,
				OrderType:  order.OrderType,
				Price:      order.Price,
				Size:       order.Size,
				State:      domain.Rejected,
				Reason:     string(apexerr.ReasonNewOrderReject),
			})
			return
		}

		if !shouldRest {
			return
		}

		resting.LeavesQty = remaining
		book.Insert(resting)
		book.AssertInvariants()
		if fill != nil {
			tracked.state = domain.Partial
		}
	})
}

func stateAfterFill(remaining decimal.Decimal) domain.OrderState {
	if remaining.IsZero() {
		return domain.Filled
	}
	return domain.Partial
}

// CancelOrder implements router.OrderRouter. Unknown or already
// terminal ext_order_ids reject with e0103; cancelling a live order
// removes it from its book and emits CANCELLED with leaves_qty -> 0.
func (x *SimExchange) CancelOrder(extOrderID string) {
	tracked, ok := x.tracked[extOrderID]
	if !ok || tracked.state.IsTerminal() {
		x.ctx.Loop.Dispatch(func() {
			x.emit(router.OrderEvent{
				Time:       x.ctx.Loop.Now(),
				Type:       domain.EventReject,
				ExtOrderID: extOrderID,
				State:      domain.Rejected,
				Reason:     string(apexerr.ReasonCancelReject),
			})
		})
		return
	}

	book := x.books[tracked.instrument.Key()]
	x.ctx.Loop.Dispatch(func() {
		resting, ok := book.Lookup(extOrderID)
		if !ok {
			x.emit(router.OrderEvent{
				Time:       x.ctx.Loop.Now(),
				Type:       domain.EventReject,
				ExtOrderID: extOrderID,
				State:      domain.Rejected,
				Reason:     string(apexerr.ReasonCancelReject),
			})
			return
		}
		book.Cancel(extOrderID)
		tracked.state = domain.Cancelled
		delete(x.tracked, extOrderID)
		x.emit(router.OrderEvent{
			Time:       x.ctx.Loop.Now(),
			Type:       domain.EventCancel,
			ExtOrderID: extOrderID,
			ClientID:   tracked.clientID,
			Instrument: tracked.instrument,
			Side:       resting.Side,
			OrderType:  domain.Limit,
			Price:      resting.Price,
			Size:       resting.OriginalQty,
			State:      domain.Cancelled,
		})
	})
}

// IsUp is constantly true in backtest: sim rejects are deterministic
// functions of inputs, there is no retry and no connectivity to lose.
func (x *SimExchange) IsUp() bool {
	return true
}

// NotifyTopOfBook re-evaluates every resting order against a new
// top-of-book for instr, emitting FILL events for any order that has
// become marketable, in the price-priority/arrival-time order
// orderbook.Book.OnTopOfBook produces.
func (x *SimExchange) NotifyTopOfBook(instr domain.Instrument, bid, bidQty, ask, askQty decimal.Decimal) {
	book, ok := x.books[instr.Key()]
	if !ok {
		return
	}
	fills := book.OnTopOfBook(bid, bidQty, ask, askQty)
	book.AssertInvariants()

	for _, f := range fills {
		tracked, ok := x.tracked[f.Order.ExtOrderID]
		if !ok {
			continue
		}
		state := stateAfterFill(f.Order.LeavesQty)
		tracked.state = state
		if state == domain.Filled {
			delete(x.tracked, f.Order.ExtOrderID)
		}
		x.emit(router.OrderEvent{
			Time:       x.ctx.Loop.Now(),
			Type:       domain.EventFill,
			ExtOrderID: f.Order.ExtOrderID,
			ClientID:   tracked.clientID,
			Instrument: tracked.instrument,
			Side:       f.Order.Side,
			OrderType:  domain.Limit,
			Price:      f.Order.Price,
			Size:       f.Order.OriginalQty,
			State:      state,
			FillQty:    f.Qty,
			FillPrice:  f.Price,
		})
	}
}

func (x *SimExchange) String() string {
	return fmt.Sprintf("SimExchange{instruments=%d}", len(x.books))
}

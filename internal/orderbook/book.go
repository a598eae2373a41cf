// Package orderbook implements SimOrderBook: a per-instrument
// container of resting SimLimitOrders that fills against the replayed
// top-of-book rather than against other resting orders, since the
// opposite side of every trade in a backtest is the historical market,
// not another client. Price-level bucketing and the orderIndex-by-id
// idiom are carried from the teacher's client-matching book.
package orderbook

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/automatedalgo/apex/internal/domain"
	"github.com/automatedalgo/apex/internal/money"
)

// Fill is one match produced against the replayed top-of-book, either
// at order acceptance (marketable-on-arrival) or on a later tick.
type Fill struct {
	Order *domain.SimLimitOrder
	Price decimal.Decimal
	Qty   decimal.Decimal
}

// PriceLevel holds all resting orders at a single price, FIFO by
// arrival sequence.
type PriceLevel struct {
	Price  decimal.Decimal
	Orders []*domain.SimLimitOrder
}

func (pl *PriceLevel) totalQty() decimal.Decimal {
	total := decimal.Zero
	for _, o := range pl.Orders {
		total = total.Add(o.LeavesQty)
	}
	return total
}

// Book is the resting-order book for one instrument. Bids is sorted
// descending by price (best bid first); Asks ascending (best ask
// first). The replayed top-of-book used to match resting orders is
// tracked separately in lastBid/lastAsk.
type Book struct {
	Bids []*PriceLevel
	Asks []*PriceLevel

	orderIndex map[string]*domain.SimLimitOrder
	arrivalSeq uint64

	haveTOB bool
	lastBid decimal.Decimal
	lastBidQty decimal.Decimal
	lastAsk decimal.Decimal
	lastAskQty decimal.Decimal
}

// New creates an empty order book for one instrument.
func New() *Book {
	return &Book{orderIndex: make(map[string]*domain.SimLimitOrder)}
}

// LastTopOfBook returns the most recently observed replayed
// bid/ask/quantities, and whether any top-of-book has been observed
// yet.
func (b *Book) LastTopOfBook() (bid, bidQty, ask, askQty decimal.Decimal, ok bool) {
	return b.lastBid, b.lastBidQty, b.lastAsk, b.lastAskQty, b.haveTOB
}

// nextSeq assigns the next FIFO arrival sequence number.
func (b *Book) nextSeq() uint64 {
	b.arrivalSeq++
	return b.arrivalSeq
}

// MatchMarketable attempts to fill a new limit or market order
// immediately against the last replayed top-of-book, returning any
// fill, the quantity left unfilled, and whether that remainder may
// rest (never for market orders, which fill their whole size or, with
// no displayed opposite quantity, nothing). order.Side determines which
// side of the book the new order crosses.
func (b *Book) MatchMarketable(order *domain.SimLimitOrder, orderType domain.OrderType) (*Fill, decimal.Decimal, bool) {
	if !b.haveTOB {
		return nil, order.LeavesQty, orderType == domain.Limit
	}

	if order.Side == domain.Buy {
		if orderType == domain.Market {
			if b.lastAskQty.IsZero() {
				return nil, order.LeavesQty, false
			}
			return &Fill{Order: order, Price: b.lastAsk, Qty: order.LeavesQty}, decimal.Zero, false
		}
		if order.Price.GreaterThanOrEqual(b.lastAsk) && b.lastAskQty.IsPositive() {
			qty := money.Min(order.LeavesQty, b.lastAskQty)
			return &Fill{Order: order, Price: order.Price, Qty: qty}, order.LeavesQty.Sub(qty), true
		}
		return nil, order.LeavesQty, true
	}

	// Sell side.
	if orderType == domain.Market {
		if b.lastBidQty.IsZero() {
			return nil, order.LeavesQty, false
		}
		return &Fill{Order: order, Price: b.lastBid, Qty: order.LeavesQty}, decimal.Zero, false
	}
	if order.Price.LessThanOrEqual(b.lastBid) && b.lastBidQty.IsPositive() {
		qty := money.Min(order.LeavesQty, b.lastBidQty)
		return &Fill{Order: order, Price: order.Price, Qty: qty}, order.LeavesQty.Sub(qty), true
	}
	return nil, order.LeavesQty, true
}

// Insert rests order in the book, keyed by ExtOrderID, maintaining
// price-level sort order.
func (b *Book) Insert(order *domain.SimLimitOrder) {
	order.ArrivalSeq = b.nextSeq()
	b.orderIndex[order.ExtOrderID] = order

	if order.Side == domain.Buy {
		b.Bids = insertIntoLevels(b.Bids, order, true)
	} else {
		b.Asks = insertIntoLevels(b.Asks, order, false)
	}
}

func insertIntoLevels(levels []*PriceLevel, order *domain.SimLimitOrder, descending bool) []*PriceLevel {
	for _, lvl := range levels {
		if lvl.Price.Equal(order.Price) {
			lvl.Orders = append(lvl.Orders, order)
			return levels
		}
	}
	lvl := &PriceLevel{Price: order.Price, Orders: []*domain.SimLimitOrder{order}}
	levels = append(levels, lvl)
	sort.Slice(levels, func(i, j int) bool {
		if descending {
			return levels[i].Price.GreaterThan(levels[j].Price)
		}
		return levels[i].Price.LessThan(levels[j].Price)
	})
	return levels
}

// Cancel removes a resting order by ext_order_id. Returns false if the
// id is unknown (already filled, already cancelled, or never existed).
func (b *Book) Cancel(extOrderID string) bool {
	order, ok := b.orderIndex[extOrderID]
	if !ok {
		return false
	}
	delete(b.orderIndex, extOrderID)

	if order.Side == domain.Buy {
		b.Bids = removeOrder(b.Bids, extOrderID)
	} else {
		b.Asks = removeOrder(b.Asks, extOrderID)
	}
	return true
}

func removeOrder(levels []*PriceLevel, extOrderID string) []*PriceLevel {
	out := levels[:0]
	for _, lvl := range levels {
		n := 0
		for _, o := range lvl.Orders {
			if o.ExtOrderID != extOrderID {
				lvl.Orders[n] = o
				n++
			}
		}
		lvl.Orders = lvl.Orders[:n]
		if len(lvl.Orders) > 0 {
			out = append(out, lvl)
		}
	}
	return out
}

// Lookup returns the resting order for an ext_order_id, or nil.
func (b *Book) Lookup(extOrderID string) (*domain.SimLimitOrder, bool) {
	o, ok := b.orderIndex[extOrderID]
	return o, ok
}

// OnTopOfBook updates the book's view of the replayed market and
// returns fills for every resting order that has become marketable
// against the new opposite side, in price-priority then
// arrival-sequence order. Fully filled orders are removed from the
// book as part of this call.
func (b *Book) OnTopOfBook(bid, bidQty, ask, askQty decimal.Decimal) []Fill {
	b.lastBid, b.lastBidQty = bid, bidQty
	b.lastAsk, b.lastAskQty = ask, askQty
	b.haveTOB = true

	var fills []Fill

	// Bids cross the new ask: walk best (highest) price first.
	for _, lvl := range b.Bids {
		if !lvl.Price.GreaterThanOrEqual(b.lastAsk) || b.lastAskQty.IsZero() {
			continue
		}
		for _, o := range ordersByArrival(lvl.Orders) {
			if b.lastAskQty.IsZero() {
				break
			}
			qty := money.Min(o.LeavesQty, b.lastAskQty)
			o.LeavesQty = o.LeavesQty.Sub(qty)
			b.lastAskQty = b.lastAskQty.Sub(qty)
			fills = append(fills, Fill{Order: o, Price: o.Price, Qty: qty})
		}
	}
	// Asks cross the new bid: walk best (lowest) price first.
	for _, lvl := range b.Asks {
		if !lvl.Price.LessThanOrEqual(b.lastBid) || b.lastBidQty.IsZero() {
			continue
		}
		for _, o := range ordersByArrival(lvl.Orders) {
			if b.lastBidQty.IsZero() {
				break
			}
			qty := money.Min(o.LeavesQty, b.lastBidQty)
			o.LeavesQty = o.LeavesQty.Sub(qty)
			b.lastBidQty = b.lastBidQty.Sub(qty)
			fills = append(fills, Fill{Order: o, Price: o.Price, Qty: qty})
		}
	}

	for _, f := range fills {
		if f.Order.Filled() {
			delete(b.orderIndex, f.Order.ExtOrderID)
		}
	}
	b.Bids = dropEmptyAndFilled(b.Bids)
	b.Asks = dropEmptyAndFilled(b.Asks)

	return fills
}

func ordersByArrival(orders []*domain.SimLimitOrder) []*domain.SimLimitOrder {
	out := make([]*domain.SimLimitOrder, len(orders))
	copy(out, orders)
	sort.Slice(out, func(i, j int) bool { return out[i].ArrivalSeq < out[j].ArrivalSeq })
	return out
}

func dropEmptyAndFilled(levels []*PriceLevel) []*PriceLevel {
	out := levels[:0]
	for _, lvl := range levels {
		n := 0
		for _, o := range lvl.Orders {
			if !o.Filled() {
				lvl.Orders[n] = o
				n++
			}
		}
		lvl.Orders = lvl.Orders[:n]
		if len(lvl.Orders) > 0 {
			out = append(out, lvl)
		}
	}
	return out
}

// AssertInvariants panics if any resting buy prices at or above the
// last replayed ask, or any resting sell prices at or below the last
// replayed bid, while the opposite side has positive displayed
// quantity — the post-acceptance invariant from the data model.
func (b *Book) AssertInvariants() {
	if !b.haveTOB {
		return
	}
	if b.lastAskQty.IsPositive() {
		for _, lvl := range b.Bids {
			if lvl.Price.GreaterThanOrEqual(b.lastAsk) {
				panic(fmt.Sprintf("orderbook: resting buy at %s crosses ask %s", lvl.Price, b.lastAsk))
			}
		}
	}
	if b.lastBidQty.IsPositive() {
		for _, lvl := range b.Asks {
			if lvl.Price.LessThanOrEqual(b.lastBid) {
				panic(fmt.Sprintf("orderbook: resting sell at %s crosses bid %s", lvl.Price, b.lastBid))
			}
		}
	}
}

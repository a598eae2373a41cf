package domain

import "github.com/shopspring/decimal"

// Order is the client-side record a strategy holds for one request. It
// is owned by the strategy; the SimExchange references it
// non-owningly via ClientID.
type Order struct {
	ClientID   string
	Instrument Instrument
	Side       Side
	OrderType  OrderType
	Price      decimal.Decimal // zero value for Market orders
	Size       decimal.Decimal
	TIF        TimeInForce
	State      OrderState
	ExtOrderID string // assigned by the exchange once accepted; empty until then
}

// LimitPrice reports whether the order carries a usable limit price
// (false for Market orders).
func (o Order) LimitPrice() (decimal.Decimal, bool) {
	if o.OrderType == Market {
		return decimal.Zero, false
	}
	return o.Price, true
}

// SimLimitOrder is the exchange-side twin of a resting limit Order.
// Owned by exactly one SimOrderBook while LeavesQty > 0; removed from
// the book when fully filled or cancelled. ClientRef is a non-owning
// back-reference used only for audit/event emission.
type SimLimitOrder struct {
	ExtOrderID  string
	Side        Side
	Price       decimal.Decimal
	OriginalQty decimal.Decimal
	LeavesQty   decimal.Decimal
	ClientRef   string // Order.ClientID
	ArrivalSeq  uint64 // FIFO tie-break within a price level
}

// Filled reports whether the resting order has no quantity left.
func (o *SimLimitOrder) Filled() bool {
	return o.LeavesQty.IsZero()
}

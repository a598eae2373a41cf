// Package router defines the OrderRouter contract shared by the live
// gateway session and SimExchange: a small capability set rather than
// a deep class hierarchy, per the Design Note on dynamic dispatch.
package router

import (
	"github.com/shopspring/decimal"

	"github.com/automatedalgo/apex/internal/domain"
)

// OrderEvent is a first-class lifecycle notification for one Order,
// delivered to whatever registered an OrderEventHandler. Logical
// rejects (unmarketable market order, cancel on terminal, unknown
// instrument) are OrderEvent values with a Reason code, never Go
// errors — only invariant violations panic.
type OrderEvent struct {
	Time       domain.Time
	Type       domain.EventType
	ExtOrderID string
	ClientID   string
	Instrument domain.Instrument
	Side       domain.Side
	OrderType  domain.OrderType
	Price      decimal.Decimal
	Size       decimal.Decimal
	State      domain.OrderState
	FillQty    decimal.Decimal
	FillPrice  decimal.Decimal
	Reason     string
}

// OrderEventHandler receives order lifecycle notifications in
// emission order, on the event thread.
type OrderEventHandler func(OrderEvent)

// OrderRouter is the contract SimExchange implements and the live
// gateway session would implement identically, so strategies never
// observe which one they are routed through.
type OrderRouter interface {
	// SendOrder takes ownership of routing responsibility for order
	// and must emit at least one terminal event for it via the
	// registered OrderEventHandler, synchronously or via the event
	// loop.
	SendOrder(order *domain.Order)
	// CancelOrder requests cancellation of a previously sent order by
	// its ext_order_id. Idempotent on terminal orders: emits a reject.
	CancelOrder(extOrderID string)
	// IsUp reports whether the router can currently accept requests.
	// Always true for SimExchange.
	IsUp() bool
}

// Package domain defines the core value types shared by the tick
// codec, replay scheduler, market data cache, and simulated exchange:
// instruments, assets, virtual time, tick events, orders, and
// positions.
package domain

import (
	"fmt"
	"strings"

	"github.com/automatedalgo/apex/internal/apexerr"
)

// ExchangeID is a closed enumeration of the venues Apex understands.
// Zero value is None, a sentinel meaning "no exchange configured".
type ExchangeID int8

const (
	ExchangeNone ExchangeID = iota
	ExchangeBinance
	ExchangeBinanceUSDFut
	ExchangeBinanceCoinFut
)

func (e ExchangeID) String() string {
	switch e {
	case ExchangeNone:
		return "none"
	case ExchangeBinance:
		return "binance"
	case ExchangeBinanceUSDFut:
		return "binance_usdfut"
	case ExchangeBinanceCoinFut:
		return "binance_coinfut"
	default:
		return "unknown"
	}
}

// ParseExchangeID round-trips String, failing with a ValidationError on
// any string not in the closed set.
func ParseExchangeID(s string) (ExchangeID, error) {
	switch strings.ToLower(s) {
	case "none", "":
		return ExchangeNone, nil
	case "binance":
		return ExchangeBinance, nil
	case "binance_usdfut":
		return ExchangeBinanceUSDFut, nil
	case "binance_coinfut":
		return ExchangeBinanceCoinFut, nil
	default:
		return ExchangeNone, apexerr.NewValidationError("ExchangeID", "unknown exchange id %q", s)
	}
}

func (e ExchangeID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + e.String() + `"`), nil
}

func (e *ExchangeID) UnmarshalJSON(data []byte) error {
	parsed, err := ParseExchangeID(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*e = parsed
	return nil
}

// Asset is an opaque currency/token identifier. The underlying string
// type makes it comparable, orderable, and usable as a map key without
// any extra machinery.
type Asset string

// MdStream names one of the two market-data streams a tick file can
// carry.
type MdStream int8

const (
	AggTrades MdStream = iota
	BookTicker
)

func (s MdStream) String() string {
	switch s {
	case AggTrades:
		return "aggTrades"
	case BookTicker:
		return "bookTicker"
	default:
		return "unknown"
	}
}

// ParseMdStream round-trips String.
func ParseMdStream(s string) (MdStream, error) {
	switch s {
	case "aggTrades":
		return AggTrades, nil
	case "bookTicker":
		return BookTicker, nil
	default:
		return 0, apexerr.NewValidationError("MdStream", "unknown stream %q", s)
	}
}

func (s MdStream) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *MdStream) UnmarshalJSON(data []byte) error {
	parsed, err := ParseMdStream(strings.Trim(string(data), `"`))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Side is the direction of an order or an aggressor.
type Side int8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "BUY"
	}
	return "SELL"
}

// Opposite returns the other side, used when matching against the
// opposing top-of-book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

func (s *Side) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "BUY":
		*s = Buy
	case "SELL":
		*s = Sell
	default:
		return fmt.Errorf("unknown Side: %s", data)
	}
	return nil
}

// OrderType distinguishes limit from market orders.
type OrderType int8

const (
	Limit OrderType = iota
	Market
)

func (t OrderType) String() string {
	if t == Market {
		return "MARKET"
	}
	return "LIMIT"
}

func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *OrderType) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "LIMIT":
		*t = Limit
	case "MARKET":
		*t = Market
	default:
		return fmt.Errorf("unknown OrderType: %s", data)
	}
	return nil
}

// TimeInForce constrains how long an order may rest.
type TimeInForce int8

const (
	GTC TimeInForce = iota // good-til-cancel, the only TIF exercised by SimExchange
	IOC
)

func (tif TimeInForce) String() string {
	if tif == IOC {
		return "IOC"
	}
	return "GTC"
}

// OrderState is the client-side order lifecycle: PENDING_NEW -> LIVE ->
// (PARTIAL)* -> {FILLED | CANCELLED | REJECTED}. No transition leaves a
// terminal state.
type OrderState int8

const (
	PendingNew OrderState = iota
	Live
	Partial
	Filled
	Cancelled
	Rejected
)

func (s OrderState) String() string {
	switch s {
	case PendingNew:
		return "PENDING_NEW"
	case Live:
		return "LIVE"
	case Partial:
		return "PARTIAL"
	case Filled:
		return "FILLED"
	case Cancelled:
		return "CANCELLED"
	case Rejected:
		return "REJECTED"
	default:
		return "UNKNOWN"
	}
}

// IsTerminal reports whether no further transition is possible.
func (s OrderState) IsTerminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// CanTransition reports whether moving from s to next is a legal edge
// in the order state machine. Terminal states accept no transition.
func (s OrderState) CanTransition(next OrderState) bool {
	if s.IsTerminal() {
		return false
	}
	switch s {
	case PendingNew:
		return next == Live || next == Rejected || next == Filled || next == Cancelled
	case Live, Partial:
		return next == Partial || next == Filled || next == Cancelled
	default:
		return false
	}
}

// EventType classifies an order-lifecycle event emitted to the
// strategy and recorded by the Auditor.
type EventType int8

const (
	EventAck EventType = iota
	EventFill
	EventCancel
	EventReject
)

func (e EventType) String() string {
	switch e {
	case EventAck:
		return "ACK"
	case EventFill:
		return "FILL"
	case EventCancel:
		return "CANCEL"
	case EventReject:
		return "REJECT"
	default:
		return "UNKNOWN"
	}
}

func (e EventType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + e.String() + `"`), nil
}

func (e *EventType) UnmarshalJSON(data []byte) error {
	switch strings.Trim(string(data), `"`) {
	case "ACK":
		*e = EventAck
	case "FILL":
		*e = EventFill
	case "CANCEL":
		*e = EventCancel
	case "REJECT":
		*e = EventReject
	default:
		return fmt.Errorf("unknown EventType: %s", data)
	}
	return nil
}

package domain

import "github.com/shopspring/decimal"

// TickKind tags which variant a TickEvent carries.
type TickKind int8

const (
	TickTopOfBook TickKind = iota
	TickTrade
)

func (k TickKind) String() string {
	if k == TickTrade {
		return "TRADE"
	}
	return "TOP_OF_BOOK"
}

// TopOfBookEvent is a best-bid/best-ask update for one instrument.
type TopOfBookEvent struct {
	BidPx  decimal.Decimal
	BidQty decimal.Decimal
	AskPx  decimal.Decimal
	AskQty decimal.Decimal
}

// TradeEvent is a single executed trade print.
type TradeEvent struct {
	Price     decimal.Decimal
	Qty       decimal.Decimal
	Aggressor Side
}

// TickEvent is a tagged union over the two tick record payloads,
// mirroring the record_type byte in the tick file codec. Exactly one
// of TopOfBook/Trade is non-nil, selected by Kind.
type TickEvent struct {
	Kind       TickKind
	Instrument Instrument
	Stream     MdStream
	ExchTime   Time
	RecvTime   Time
	TopOfBook  *TopOfBookEvent
	Trade      *TradeEvent
}

// NewTopOfBookTick builds a TickEvent carrying a TopOfBookEvent.
func NewTopOfBookTick(instr Instrument, stream MdStream, exchTime, recvTime Time, tob TopOfBookEvent) TickEvent {
	return TickEvent{
		Kind:       TickTopOfBook,
		Instrument: instr,
		Stream:     stream,
		ExchTime:   exchTime,
		RecvTime:   recvTime,
		TopOfBook:  &tob,
	}
}

// NewTradeTick builds a TickEvent carrying a TradeEvent.
func NewTradeTick(instr Instrument, stream MdStream, exchTime, recvTime Time, trade TradeEvent) TickEvent {
	return TickEvent{
		Kind:       TickTrade,
		Instrument: instr,
		Stream:     stream,
		ExchTime:   exchTime,
		RecvTime:   recvTime,
		Trade:      &trade,
	}
}

// MdStreamParams carries optional, stream-specific parameters
// (currently unused by any stream, reserved for depth/aggregation
// tuning knobs a future stream kind might need).
type MdStreamParams struct {
	Params map[string]string
}

// StreamDescriptor uniquely keys one TickReplayer and the bucket files
// that back it.
type StreamDescriptor struct {
	Instrument Instrument
	Stream     MdStream
	Params     MdStreamParams
}

// TickFileBucketID identifies a single day's bucket file for one
// stream.
type TickFileBucketID struct {
	Instrument Instrument
	Stream     MdStream
	Date       string // YYYY-MM-DD, civil date, no timezone
}

// Package apexerr defines the stable reject-reason catalogue and the
// error types used for input validation across the backtest core.
//
// Logical order rejects never use this package's error type: they are
// produced as first-class OrderEvent values carrying a Reason code, not
// as Go errors. ValidationError is reserved for construction-time input
// and format failures (bad record, bad exchange id, bad date range).
package apexerr

import "fmt"

// Reason is a stable short reject-reason code surfaced to strategies
// and recorded in the audit journal.
type Reason string

const (
	// ReasonNoExchange is an internal reject: no exchange configured
	// for the instrument (SimExchange.AddInstrument was never called).
	ReasonNoExchange Reason = "e0001"

	// ReasonGatewayDown is an internal reject: the live gateway
	// connection is not up. Not reachable in backtest, where IsUp is
	// constantly true, but kept for interface parity with live.
	ReasonGatewayDown Reason = "e0003"

	// ReasonNewOrderReject is an exchange-side new-order reject, e.g.
	// a marketable market order against an empty opposite side.
	ReasonNewOrderReject Reason = "e0102"

	// ReasonCancelReject is an exchange-side cancel reject: unknown
	// ext_order_id, or the order is already in a terminal state.
	ReasonCancelReject Reason = "e0103"

	// ReasonGatewayReject is an upstream gateway new-order reject.
	ReasonGatewayReject Reason = "e0200"

	// ReasonLogonReject is a gateway logon reject.
	ReasonLogonReject Reason = "e0201"
)

// ValidationError reports an input or format failure discovered at
// construction time: a malformed tick record, an unrecognized exchange
// id, or an invalid date range. These fail fast and are never retried.
type ValidationError struct {
	Context string // e.g. "ExchangeID", "TickFileBucketID", "TickRecord"
	Detail  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Context, e.Detail)
}

// NewValidationError builds a ValidationError with a formatted detail.
func NewValidationError(context, format string, args ...any) *ValidationError {
	return &ValidationError{Context: context, Detail: fmt.Sprintf(format, args...)}
}

// CorruptRecordError signals a short read mid-record in a tick file:
// the stream is truncated, not malformed. Readers stop cleanly at the
// last valid record rather than treating this as fatal.
type CorruptRecordError struct {
	Path   string
	Offset int64
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt tick record in %s at offset %d", e.Path, e.Offset)
}

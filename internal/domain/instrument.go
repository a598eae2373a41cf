package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Instrument identifies one tradeable symbol on one exchange. Identity
// is (ExchangeID, NativeSymbol). The struct itself embeds decimal.Decimal
// fields, which wrap a *big.Int and must never be compared with == or used
// as a map key directly (shopspring/decimal's own documented pitfall) — use
// Key() to obtain a plain comparable identity for maps and ==.
// Immutable after construction.
type Instrument struct {
	exchangeID   ExchangeID
	nativeSymbol string
	tickSize     decimal.Decimal
	lotSize      decimal.Decimal
	base         Asset
	quote        Asset
}

// InstrumentKey is the comparable identity of an Instrument, safe to use
// as a map key or with ==.
type InstrumentKey struct {
	exchangeID   ExchangeID
	nativeSymbol string
}

// Key returns i's comparable identity, derived from (ExchangeID, NativeSymbol)
// only. Use this instead of Instrument itself wherever a map key or == is
// needed.
func (i Instrument) Key() InstrumentKey {
	return InstrumentKey{exchangeID: i.exchangeID, nativeSymbol: i.nativeSymbol}
}

// String renders the same stable identity as Instrument.String.
func (k InstrumentKey) String() string {
	return fmt.Sprintf("%s:%s", k.exchangeID, k.nativeSymbol)
}

// NewInstrument validates and constructs an Instrument. TickSize and
// lotSize must be strictly positive.
func NewInstrument(exchangeID ExchangeID, nativeSymbol string, tickSize, lotSize decimal.Decimal, base, quote Asset) (Instrument, error) {
	if nativeSymbol == "" {
		return Instrument{}, fmt.Errorf("instrument: nativeSymbol must not be empty")
	}
	if !tickSize.IsPositive() {
		return Instrument{}, fmt.Errorf("instrument %s: tickSize must be positive", nativeSymbol)
	}
	if !lotSize.IsPositive() {
		return Instrument{}, fmt.Errorf("instrument %s: lotSize must be positive", nativeSymbol)
	}
	return Instrument{
		exchangeID:   exchangeID,
		nativeSymbol: nativeSymbol,
		tickSize:     tickSize,
		lotSize:      lotSize,
		base:         base,
		quote:        quote,
	}, nil
}

func (i Instrument) ExchangeID() ExchangeID     { return i.exchangeID }
func (i Instrument) NativeSymbol() string       { return i.nativeSymbol }
func (i Instrument) TickSize() decimal.Decimal  { return i.tickSize }
func (i Instrument) LotSize() decimal.Decimal   { return i.lotSize }
func (i Instrument) Base() Asset                { return i.base }
func (i Instrument) Quote() Asset               { return i.quote }

// String renders a stable human-readable identity, used in log lines,
// audit records, and the replay scheduler's tie-break key.
func (i Instrument) String() string {
	return fmt.Sprintf("%s:%s", i.exchangeID, i.nativeSymbol)
}

// Package money centralizes fixed-precision arithmetic for prices,
// quantities, and FX conversions on top of decimal.Decimal, replacing
// ad-hoc float64/int64 math anywhere a traded value flows through the
// backtest core.
package money

import "github.com/shopspring/decimal"

// Zero is the canonical zero value, reused to avoid repeated allocation
// at call sites that compare against "no quantity"/"no price".
var Zero = decimal.Zero

// RoundToTick snaps a price to the nearest multiple of tickSize in
// the direction that never crosses further into the book than quoted:
// buys round down, sells round up.
func RoundToTick(price, tickSize decimal.Decimal, isBuy bool) decimal.Decimal {
	if tickSize.IsZero() {
		return price
	}
	ticks := price.Div(tickSize)
	if isBuy {
		return ticks.Floor().Mul(tickSize)
	}
	return ticks.Ceil().Mul(tickSize)
}

// Min returns the smaller of two decimals.
func Min(a, b decimal.Decimal) decimal.Decimal {
	if a.LessThan(b) {
		return a
	}
	return b
}

// Max returns the larger of two decimals.
func Max(a, b decimal.Decimal) decimal.Decimal {
	if a.GreaterThan(b) {
		return a
	}
	return b
}

// ToUSD converts a native-asset notional to USD using the supplied
// fx_to_usd rate recorded alongside the originating transaction.
func ToUSD(notional, fxToUSD decimal.Decimal) decimal.Decimal {
	return notional.Mul(fxToUSD)
}

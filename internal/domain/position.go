package domain

import (
	"sync"

	"github.com/shopspring/decimal"
)

// Position tracks running long/short quantities for one instrument.
// Net = startup + traded_long - traded_short. Updated only on fill
// events; never backdated.
type Position struct {
	Startup     decimal.Decimal
	TradedLong  decimal.Decimal
	TradedShort decimal.Decimal
	LiveLong    decimal.Decimal
	LiveShort   decimal.Decimal
}

// ApplyFill folds one fill into the running totals.
func (p *Position) ApplyFill(side Side, qty decimal.Decimal) {
	if side == Buy {
		p.TradedLong = p.TradedLong.Add(qty)
	} else {
		p.TradedShort = p.TradedShort.Add(qty)
	}
}

// Net returns startup + traded_long - traded_short.
func (p *Position) Net() decimal.Decimal {
	return p.Startup.Add(p.TradedLong).Sub(p.TradedShort)
}

// AssetBalance is one entry of an Account's per-asset availability.
type AssetBalance struct {
	Asset     Asset
	Available decimal.Decimal
}

// Account holds wallet balances per Asset. The mutex exists only to
// support a future concurrent read from an external inspector thread
// (the backtest path itself never contends on it), grounded on the
// same defensive pattern as Engine.mutex in the orderbook example.
type Account struct {
	mu       sync.Mutex
	balances map[Asset]decimal.Decimal
}

// NewAccount builds an empty Account.
func NewAccount() *Account {
	return &Account{balances: make(map[Asset]decimal.Decimal)}
}

// Apply replaces the stored availability for one asset.
func (a *Account) Apply(update AssetBalance) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.balances[update.Asset] = update.Available
}

// Balance returns the current availability for an asset, zero if
// never set.
func (a *Account) Balance(asset Asset) decimal.Decimal {
	a.mu.Lock()
	defer a.mu.Unlock()
	if bal, ok := a.balances[asset]; ok {
		return bal
	}
	return decimal.Zero
}

// AlertBoard is a set of active alert identifiers with idempotent
// add/remove.
type AlertBoard struct {
	active map[string]struct{}
}

// NewAlertBoard builds an empty AlertBoard.
func NewAlertBoard() *AlertBoard {
	return &AlertBoard{active: make(map[string]struct{})}
}

// Raise adds an alert id; a repeat raise is a no-op.
func (b *AlertBoard) Raise(id string) {
	b.active[id] = struct{}{}
}

// Clear removes an alert id; clearing an absent id is a no-op.
func (b *AlertBoard) Clear(id string) {
	delete(b.active, id)
}

// Active reports whether an alert id is currently raised.
func (b *AlertBoard) Active(id string) bool {
	_, ok := b.active[id]
	return ok
}

// Count returns the number of currently active alerts.
func (b *AlertBoard) Count() int {
	return len(b.active)
}

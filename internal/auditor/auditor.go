// Package auditor appends transaction records to an append-only audit
// journal: one self-contained JSON object per line, fsync'd on close.
// Adapted from the teacher's eventlog.Writer idiom (bufio.Writer over
// os.Create, Flush then Close) with the transaction schema from
// spec.md §4.7 instead of a bare domain.Event.
package auditor

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/automatedalgo/apex/internal/domain"
	"github.com/automatedalgo/apex/internal/hostinfo"
)

// OrderSnapshot is the order state captured at the moment of the
// transaction.
type OrderSnapshot struct {
	ClientID   string          `json:"client_id"`
	ExtOrderID string          `json:"ext_order_id,omitempty"`
	Instrument string          `json:"instrument"`
	Side       domain.Side     `json:"side"`
	OrderType  domain.OrderType `json:"order_type"`
	Price      decimal.Decimal `json:"price"`
	Size       decimal.Decimal `json:"size"`
	State      domain.OrderState `json:"state"`
	Reason     string          `json:"reason,omitempty"`
}

// PositionSnapshot is the strategy's position at the moment of the
// transaction, consulted (never mutated) by the Auditor.
type PositionSnapshot struct {
	Net         decimal.Decimal `json:"net"`
	TradedLong  decimal.Decimal `json:"traded_long"`
	TradedShort decimal.Decimal `json:"traded_short"`
}

// MarketDataSnapshot is the last-known top-of-book at transaction
// time, nullable when no market data has arrived yet for the
// instrument.
type MarketDataSnapshot struct {
	Bid decimal.Decimal `json:"bid"`
	Ask decimal.Decimal `json:"ask"`
}

// TransactionRecord is one line of the audit journal.
type TransactionRecord struct {
	EventTime   domain.Time         `json:"event_time"`
	StrategyID  string              `json:"strategy_id"`
	Order       OrderSnapshot       `json:"order"`
	EventType   domain.EventType    `json:"event_type"`
	Position    PositionSnapshot    `json:"position"`
	MarketData  *MarketDataSnapshot `json:"market_data"`
	FxToUSD     decimal.Decimal     `json:"fx_to_usd"`
	IsFill      bool                `json:"is_fill"`
	FillQty     decimal.Decimal     `json:"fill_qty"`
	FillPrice   decimal.Decimal     `json:"fill_price"`
	NotionalUSD decimal.Decimal     `json:"notional_usd"`
	Hostname    string              `json:"hostname"`
	PID         int                 `json:"pid"`
}

// Auditor is the append-only journal writer. Writes reflect the order
// of calls on the event thread and are therefore a total order of the
// strategy's observable events.
type Auditor struct {
	file   *os.File
	writer *bufio.Writer
	count  uint64
	host   hostinfo.HostInfo
}

// New creates the audit journal at path, failing if it cannot be
// opened — per spec.md §7, this is the one resource error that must
// not be swallowed. host is stamped onto every record written for
// process provenance (Design Note §9); callers never set
// TransactionRecord.Hostname/PID themselves.
func New(path string, host hostinfo.HostInfo) (*Auditor, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("auditor: open journal %s: %w", path, err)
	}
	return &Auditor{
		file:   f,
		writer: bufio.NewWriterSize(f, 64*1024),
		host:   host,
	}, nil
}

// AddTransaction appends one record to the journal.
func (a *Auditor) AddTransaction(rec TransactionRecord) error {
	rec.Hostname = a.host.Hostname
	rec.PID = a.host.PID
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("auditor: marshal transaction: %w", err)
	}
	if _, err := a.writer.Write(data); err != nil {
		return err
	}
	if err := a.writer.WriteByte('\n'); err != nil {
		return err
	}
	a.count++
	return nil
}

// Count returns the number of transactions written so far.
func (a *Auditor) Count() uint64 {
	return a.count
}

// Close flushes buffered writes, fsyncs, and closes the journal file.
// Call it once; records added after Close are never written to the file.
func (a *Auditor) Close() error {
	if err := a.writer.Flush(); err != nil {
		a.file.Close()
		return err
	}
	if err := a.file.Sync(); err != nil {
		a.file.Close()
		return err
	}
	return a.file.Close()
}

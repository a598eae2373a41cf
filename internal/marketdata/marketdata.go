// Package marketdata implements MarketData, the per-instrument
// top-of-book/last-trade cache, and MarketDataService, the registry
// that hands out stable MarketData pointers. Mutated only by the
// ReplayScheduler on the event thread; the registration-order
// subscriber dispatch mirrors the teacher's trader.Agent/sim.Runner
// callback idiom.
package marketdata

import (
	"github.com/shopspring/decimal"

	"github.com/automatedalgo/apex/internal/domain"
)

// BookCallback receives every TopOfBook update for the instrument it
// was registered against.
type BookCallback func(domain.TopOfBookEvent, domain.Time)

// TradeCallback receives every Trade update for the instrument it was
// registered against.
type TradeCallback func(domain.TradeEvent, domain.Time)

// MarketData is a small state cache for one instrument: the last
// top-of-book and the most recent trade. The same instance is used in
// live and backtest; the replayer/gateway distinction never leaks in.
type MarketData struct {
	instrument domain.Instrument

	haveTOB bool
	lastTOB domain.TopOfBookEvent

	haveTrade bool
	lastTrade domain.TradeEvent

	bookSubs  []BookCallback
	tradeSubs []TradeCallback
}

func newMarketData(instr domain.Instrument) *MarketData {
	return &MarketData{instrument: instr}
}

// OnTickBook registers a subscriber, invoked in registration order on
// every subsequent TopOfBook update.
func (m *MarketData) OnTickBook(cb BookCallback) {
	m.bookSubs = append(m.bookSubs, cb)
}

// OnTickTrade registers a subscriber, invoked in registration order on
// every subsequent Trade update.
func (m *MarketData) OnTickTrade(cb TradeCallback) {
	m.tradeSubs = append(m.tradeSubs, cb)
}

// ApplyTick updates the cache from one dispatched TickEvent and fans
// it out to subscribers. Called only by ReplayScheduler.
func (m *MarketData) ApplyTick(evt domain.TickEvent) {
	switch evt.Kind {
	case domain.TickTopOfBook:
		m.haveTOB = true
		m.lastTOB = *evt.TopOfBook
		for _, cb := range m.bookSubs {
			cb(m.lastTOB, evt.ExchTime)
		}
	case domain.TickTrade:
		m.haveTrade = true
		m.lastTrade = *evt.Trade
		for _, cb := range m.tradeSubs {
			cb(m.lastTrade, evt.ExchTime)
		}
	}
}

// LastTopOfBook returns the most recent bid/ask/qtys and whether any
// have been observed yet.
func (m *MarketData) LastTopOfBook() (bid, bidQty, ask, askQty decimal.Decimal, ok bool) {
	if !m.haveTOB {
		return decimal.Zero, decimal.Zero, decimal.Zero, decimal.Zero, false
	}
	return m.lastTOB.BidPx, m.lastTOB.BidQty, m.lastTOB.AskPx, m.lastTOB.AskQty, true
}

// LastTrade returns the most recent trade and whether any has been
// observed yet.
func (m *MarketData) LastTrade() (domain.TradeEvent, bool) {
	return m.lastTrade, m.haveTrade
}

// Service is the MarketDataService contract: FindMarketData returns a
// stable pointer for the lifetime of the service, or nil if no source
// is configured for the instrument.
type Service struct {
	byInstrument map[domain.InstrumentKey]*MarketData
}

// NewService builds an empty registry.
func NewService() *Service {
	return &Service{byInstrument: make(map[domain.InstrumentKey]*MarketData)}
}

// Register creates the MarketData slot for an instrument. Must be
// called before FindMarketData returns non-nil for it.
func (s *Service) Register(instr domain.Instrument) *MarketData {
	key := instr.Key()
	if md, ok := s.byInstrument[key]; ok {
		return md
	}
	md := newMarketData(instr)
	s.byInstrument[key] = md
	return md
}

// FindMarketData returns the stable MarketData pointer for instr, or
// nil if it was never registered.
func (s *Service) FindMarketData(instr domain.Instrument) *MarketData {
	if md, ok := s.byInstrument[instr.Key()]; ok {
		return md
	}
	return nil
}

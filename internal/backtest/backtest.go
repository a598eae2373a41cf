// Package backtest implements BacktestService: the composition root
// that owns one ReplayScheduler, one MarketDataService, one
// SimExchange, and one Auditor, wiring replayed tick data through to
// a strategy's order flow and back out to the audit journal. No child
// holds a back-pointer to BacktestService (Design Note §9); each is
// constructed with the small apexctx.Context value instead.
package backtest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/automatedalgo/apex/internal/apexctx"
	"github.com/automatedalgo/apex/internal/auditor"
	"github.com/automatedalgo/apex/internal/domain"
	"github.com/automatedalgo/apex/internal/engine"
	"github.com/automatedalgo/apex/internal/hostinfo"
	"github.com/automatedalgo/apex/internal/marketdata"
	"github.com/automatedalgo/apex/internal/money"
	"github.com/automatedalgo/apex/internal/replay"
	"github.com/automatedalgo/apex/internal/router"
	"github.com/automatedalgo/apex/internal/simexchange"
)

// positionEntry pairs a live Position with the Instrument it was
// opened for, since domain.InstrumentKey (the map key) does not expose
// the exchange id and native symbol that WriteSnapshot writes out.
type positionEntry struct {
	instrument domain.Instrument
	position   *domain.Position
}

// Service composes one backtest run. Construct with New, register
// instruments with AddInstrument and streams with AddReplayer, then Run.
type Service struct {
	ctx       apexctx.Context
	loop      *engine.SimEventLoop
	scheduler *replay.Scheduler
	md        *marketdata.Service
	exchange  *simexchange.SimExchange
	audit     *auditor.Auditor

	strategyID string
	fxToUSD    decimal.Decimal
	positions  map[domain.InstrumentKey]*positionEntry
}

// New builds a Service. journalPath must be writable; failure to open
// it is a fatal resource error per spec.md §7 (the one journal open
// failure that is never swallowed). host is recorded with every
// journal transaction for provenance (Design Note §9).
func New(ctx apexctx.Context, loop *engine.SimEventLoop, strategyID string, replayUpto domain.Time, journalPath string, host hostinfo.HostInfo) (*Service, error) {
	if err := os.MkdirAll(filepath.Dir(journalPath), 0o755); err != nil {
		return nil, fmt.Errorf("backtest: prepare journal dir: %w", err)
	}
	audit, err := auditor.New(journalPath, host)
	if err != nil {
		return nil, err
	}

	md := marketdata.NewService()
	exchange := simexchange.New(ctx)

	s := &Service{
		ctx:        ctx,
		loop:       loop,
		md:         md,
		exchange:   exchange,
		audit:      audit,
		strategyID: strategyID,
		fxToUSD:    decimal.NewFromInt(1),
		positions:  make(map[domain.InstrumentKey]*positionEntry),
	}
	s.scheduler = replay.NewScheduler(loop, s, ctx.Logger, replayUpto)
	exchange.OnOrderEvent(s.onOrderEvent)
	return s, nil
}

// AddInstrument lists instr with the SimExchange and prepares its
// MarketData and Position slots.
func (s *Service) AddInstrument(instr domain.Instrument) {
	s.exchange.AddInstrument(instr)
	s.md.Register(instr)
	s.positions[instr.Key()] = &positionEntry{instrument: instr, position: &domain.Position{}}
}

// AddReplayer registers a TickReplayer the scheduler will merge in.
func (s *Service) AddReplayer(r *replay.TickReplayer) {
	s.scheduler.AddReplayer(r)
}

// Router exposes the OrderRouter contract for a strategy to send and
// cancel orders through.
func (s *Service) Router() router.OrderRouter {
	return s.exchange
}

// MarketData exposes the MarketDataService for a strategy to look up
// instrument state and subscribe to updates.
func (s *Service) MarketData() *marketdata.Service {
	return s.md
}

// StopFlag exposes the scheduler's cooperative stop flag.
func (s *Service) StopFlag() *replay.StopFlag {
	return s.scheduler.StopFlag()
}

// Run drives the replay to completion (exhaustion, replay_upto, or a
// stop request), then flushes and closes the audit journal.
func (s *Service) Run() error {
	if err := s.scheduler.Run(); err != nil {
		s.audit.Close()
		return err
	}
	return s.audit.Close()
}

// OnTick implements replay.TickSink: forwards the event to the
// instrument's MarketData, which fans out to strategy subscribers.
func (s *Service) OnTick(evt domain.TickEvent) {
	md := s.md.FindMarketData(evt.Instrument)
	if md == nil {
		return
	}
	md.ApplyTick(evt)
}

// OnTopOfBookRefresh implements replay.TickSink: re-evaluates resting
// orders for instr against the MarketData's latest top-of-book. The
// scheduler calls this only for top-of-book ticks, so trade ticks never
// trigger fills, per the Open Question decision to only let
// top-of-book updates drive matching.
func (s *Service) OnTopOfBookRefresh(instr domain.Instrument) {
	md := s.md.FindMarketData(instr)
	if md == nil {
		return
	}
	bid, bidQty, ask, askQty, ok := md.LastTopOfBook()
	if !ok {
		return
	}
	s.exchange.NotifyTopOfBook(instr, bid, bidQty, ask, askQty)
}

// onOrderEvent is the sole SimExchange order-event handler: every
// lifecycle event becomes one audit transaction, enriched with the
// instrument's current Position and last-known MarketData snapshot so
// the journal alone can reconstruct order/position/market state at
// each event. Fills are folded into positions only through RecordFill;
// onOrderEvent only reads s.positions, it never mutates it.
func (s *Service) onOrderEvent(evt router.OrderEvent) {
	rec := auditor.TransactionRecord{
		EventTime:  evt.Time,
		StrategyID: s.strategyID,
		Order: auditor.OrderSnapshot{
			ClientID:   evt.ClientID,
			ExtOrderID: evt.ExtOrderID,
			Instrument: evt.Instrument.String(),
			Side:       evt.Side,
			OrderType:  evt.OrderType,
			Price:      evt.Price,
			Size:       evt.Size,
			State:      evt.State,
			Reason:     evt.Reason,
		},
		EventType: evt.Type,
		FxToUSD:   s.fxToUSD,
		IsFill:    evt.Type == domain.EventFill,
		FillQty:   evt.FillQty,
		FillPrice: evt.FillPrice,
	}

	if entry, ok := s.positions[evt.Instrument.Key()]; ok {
		net := entry.position.Net()
		rec.Position = auditor.PositionSnapshot{
			Net:         net,
			TradedLong:  entry.position.TradedLong,
			TradedShort: entry.position.TradedShort,
		}
	}
	if md := s.md.FindMarketData(evt.Instrument); md != nil {
		if bid, _, ask, _, ok := md.LastTopOfBook(); ok {
			rec.MarketData = &auditor.MarketDataSnapshot{Bid: bid, Ask: ask}
		}
	}
	if rec.IsFill {
		rec.NotionalUSD = money.ToUSD(evt.FillQty.Mul(evt.FillPrice), s.fxToUSD)
	}

	if err := s.audit.AddTransaction(rec); err != nil {
		panic(fmt.Sprintf("backtest: audit write failed: %v", err))
	}
}

// RecordFill folds a fill into instr's Position, for a strategy that
// tracks its own order->instrument attribution.
func (s *Service) RecordFill(instr domain.Instrument, side domain.Side, qty decimal.Decimal) {
	entry, ok := s.positions[instr.Key()]
	if !ok {
		return
	}
	entry.position.ApplyFill(side, qty)
}

// Position returns the current position for instr.
func (s *Service) Position(instr domain.Instrument) domain.Position {
	if entry, ok := s.positions[instr.Key()]; ok {
		return *entry.position
	}
	return domain.Position{}
}

// WriteSnapshot persists one line per (strategy_id, exchange,
// native_symbol, qty) in a deterministic order, written atomically via
// write-to-tmp + rename, matching the teacher's sim.Runner pointer-file
// idiom generalized to the checkpoint-snapshot pattern.
func (s *Service) WriteSnapshot(path string) error {
	type line struct {
		exchange string
		symbol   string
		qty      decimal.Decimal
	}
	lines := make([]line, 0, len(s.positions))
	for _, entry := range s.positions {
		lines = append(lines, line{
			exchange: entry.instrument.ExchangeID().String(),
			symbol:   entry.instrument.NativeSymbol(),
			qty:      entry.position.Net(),
		})
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].exchange != lines[j].exchange {
			return lines[i].exchange < lines[j].exchange
		}
		return lines[i].symbol < lines[j].symbol
	})

	var buf []byte
	for _, l := range lines {
		buf = append(buf, []byte(fmt.Sprintf("%s\t%s\t%s\t%s\n", s.strategyID, l.exchange, l.symbol, l.qty.String()))...)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf, 0o644); err != nil {
		return fmt.Errorf("backtest: write snapshot tmp: %w", err)
	}
	return os.Rename(tmpPath, path)
}

package simexchange

import (
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/automatedalgo/apex/internal/apexctx"
	"github.com/automatedalgo/apex/internal/apexerr"
	"github.com/automatedalgo/apex/internal/domain"
	"github.com/automatedalgo/apex/internal/engine"
	"github.com/automatedalgo/apex/internal/router"
)

func testCtx() (apexctx.Context, *engine.SimEventLoop) {
	loop := engine.NewSimEventLoop()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return apexctx.New(logger, loop), loop
}

func testInstrument(t *testing.T) domain.Instrument {
	t.Helper()
	instr, err := domain.NewInstrument(domain.ExchangeBinance, "BTCUSDT", decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.0001), "BTC", "USDT")
	require.NoError(t, err)
	return instr
}

func TestSendOrderUnlistedInstrumentRejects(t *testing.T) {
	ctx, loop := testCtx()
	x := New(ctx)
	instr := testInstrument(t)

	var events []router.OrderEvent
	x.OnOrderEvent(func(e router.OrderEvent) { events = append(events, e) })

	x.SendOrder(&domain.Order{ClientID: "c1", Instrument: instr, Side: domain.Buy, OrderType: domain.Limit, Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(1)})
	loop.RunFIFO()

	require.Len(t, events, 1)
	require.Equal(t, domain.EventReject, events[0].Type)
	require.Equal(t, string(apexerr.ReasonNoExchange), events[0].Reason)
}

func TestSendOrderMarketOrderRejectsWhenUnmarketable(t *testing.T) {
	ctx, loop := testCtx()
	x := New(ctx)
	instr := testInstrument(t)
	x.AddInstrument(instr)

	var events []router.OrderEvent
	x.OnOrderEvent(func(e router.OrderEvent) { events = append(events, e) })

	x.SendOrder(&domain.Order{ClientID: "c1", Instrument: instr, Side: domain.Buy, OrderType: domain.Market, Size: decimal.NewFromInt(1)})
	loop.RunFIFO()

	require.Len(t, events, 2)
	require.Equal(t, domain.EventAck, events[0].Type)
	require.Equal(t, domain.EventReject, events[1].Type)
	require.Equal(t, string(apexerr.ReasonNewOrderReject), events[1].Reason)
}

func TestSendOrderLimitFillsAgainstTopOfBook(t *testing.T) {
	ctx, loop := testCtx()
	x := New(ctx)
	instr := testInstrument(t)
	x.AddInstrument(instr)
	x.NotifyTopOfBook(instr, decimal.NewFromInt(99), decimal.NewFromInt(5), decimal.NewFromInt(101), decimal.NewFromInt(3))

	var events []router.OrderEvent
	x.OnOrderEvent(func(e router.OrderEvent) { events = append(events, e) })

	x.SendOrder(&domain.Order{ClientID: "c1", Instrument: instr, Side: domain.Buy, OrderType: domain.Limit, Price: decimal.NewFromInt(101), Size: decimal.NewFromInt(3)})
	loop.RunFIFO()

	require.Len(t, events, 2)
	require.Equal(t, domain.EventAck, events[0].Type)
	require.Equal(t, domain.EventFill, events[1].Type)
	require.Equal(t, domain.Filled, events[1].State)
	require.True(t, events[1].FillQty.Equal(decimal.NewFromInt(3)))
}

func TestCancelOrderUnknownIDRejects(t *testing.T) {
	ctx, loop := testCtx()
	x := New(ctx)

	var events []router.OrderEvent
	x.OnOrderEvent(func(e router.OrderEvent) { events = append(events, e) })

	x.CancelOrder("never-existed")
	loop.RunFIFO()

	require.Len(t, events, 1)
	require.Equal(t, domain.EventReject, events[0].Type)
	require.Equal(t, string(apexerr.ReasonCancelReject), events[0].Reason)
}

func TestCancelOrderLiveOrderSucceeds(t *testing.T) {
	ctx, loop := testCtx()
	x := New(ctx)
	instr := testInstrument(t)
	x.AddInstrument(instr)
	x.NotifyTopOfBook(instr, decimal.NewFromInt(99), decimal.NewFromInt(5), decimal.NewFromInt(101), decimal.NewFromInt(3))

	var events []router.OrderEvent
	x.OnOrderEvent(func(e router.OrderEvent) { events = append(events, e) })

	x.SendOrder(&domain.Order{ClientID: "c1", Instrument: instr, Side: domain.Buy, OrderType: domain.Limit, Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(1)})
	loop.RunFIFO()

	require.Len(t, events, 1)
	require.Equal(t, domain.EventAck, events[0].Type)
	extID := events[0].ExtOrderID
	require.NotEmpty(t, extID)

	events = nil
	x.CancelOrder(extID)
	loop.RunFIFO()

	require.Len(t, events, 1)
	require.Equal(t, domain.EventCancel, events[0].Type)
	require.Equal(t, domain.Cancelled, events[0].State)

	events = nil
	x.CancelOrder(extID)
	loop.RunFIFO()
	require.Len(t, events, 1)
	require.Equal(t, domain.EventReject, events[0].Type)
}

func TestIsUpAlwaysTrue(t *testing.T) {
	ctx, _ := testCtx()
	x := New(ctx)
	require.True(t, x.IsUp())
}

package backtest

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/automatedalgo/apex/internal/apexctx"
	"github.com/automatedalgo/apex/internal/auditor"
	"github.com/automatedalgo/apex/internal/domain"
	"github.com/automatedalgo/apex/internal/engine"
	"github.com/automatedalgo/apex/internal/hostinfo"
	"github.com/automatedalgo/apex/internal/replay"
	"github.com/automatedalgo/apex/internal/tickfile"
)

var testHost = hostinfo.HostInfo{Hostname: "test-host", PID: 4242}

func testInstrument(t *testing.T) domain.Instrument {
	t.Helper()
	instr, err := domain.NewInstrument(domain.ExchangeBinance, "BTCUSDT", decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.0001), "BTC", "USDT")
	if err != nil {
		t.Fatal(err)
	}
	return instr
}

func writeFixtureBucket(t *testing.T, root string, instr domain.Instrument) {
	t.Helper()
	id := domain.TickFileBucketID{Instrument: instr, Stream: domain.BookTicker, Date: "2026-01-01"}
	path := tickfile.BucketPath(root, id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	w, err := tickfile.Create(path, tickfile.StreamInfo{NativeSymbol: instr.NativeSymbol(), ExchangeID: instr.ExchangeID(), Stream: domain.BookTicker}, nil)
	if err != nil {
		t.Fatal(err)
	}
	quotes := []struct {
		us                     int64
		bid, bidQty, ask, askQty int64
	}{
		{1000, 99, 5, 101, 5},
		{2000, 99, 5, 100, 5},
		{3000, 100, 5, 102, 5},
	}
	for _, q := range quotes {
		evt := domain.NewTopOfBookTick(instr, domain.BookTicker, domain.NewTimeFromUnixMicro(q.us), domain.NewTimeFromUnixMicro(q.us),
			domain.TopOfBookEvent{
				BidPx:  decimal.NewFromInt(q.bid),
				BidQty: decimal.NewFromInt(q.bidQty),
				AskPx:  decimal.NewFromInt(q.ask),
				AskQty: decimal.NewFromInt(q.askQty),
			})
		if err := w.Append(evt); err != nil {
			t.Fatal(err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
}

// runOnce builds one full Service over the fixture data, sends a
// single resting buy that later becomes marketable on the book move at
// t=2000, writing its journal to journalPath.
func runOnce(t *testing.T, tickRoot, journalPath string) {
	t.Helper()
	instr := testInstrument(t)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := engine.NewSimEventLoop()
	ctx := apexctx.New(logger, loop)

	upto, err := domain.NewTimeFromStdDate("2026-01-01")
	if err != nil {
		t.Fatal(err)
	}
	svc, err := New(ctx, loop, "demo", upto, journalPath, testHost)
	if err != nil {
		t.Fatal(err)
	}
	svc.AddInstrument(instr)

	r, err := replay.NewTickReplayer(tickRoot, instr, domain.BookTicker, "2026-01-01", "2026-01-01", logger)
	if err != nil {
		t.Fatal(err)
	}
	svc.AddReplayer(r)

	sent := false
	md := svc.MarketData().FindMarketData(instr)
	md.OnTickBook(func(tob domain.TopOfBookEvent, _ domain.Time) {
		if sent {
			return
		}
		sent = true
		svc.Router().SendOrder(&domain.Order{
			ClientID:   "c1",
			Instrument: instr,
			Side:       domain.Buy,
			OrderType:  domain.Limit,
			Price:      decimal.NewFromInt(100),
			Size:       decimal.NewFromInt(5),
			TIF:        domain.GTC,
			State:      domain.PendingNew,
		})
	})

	if err := svc.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestBacktestDeterministicJournalAcrossRuns(t *testing.T) {
	fixtureRoot := t.TempDir()
	instr := testInstrument(t)
	writeFixtureBucket(t, fixtureRoot, instr)

	journalA := filepath.Join(t.TempDir(), "journal.jsonl")
	journalB := filepath.Join(t.TempDir(), "journal.jsonl")

	runOnce(t, fixtureRoot, journalA)
	runOnce(t, fixtureRoot, journalB)

	dataA, err := os.ReadFile(journalA)
	if err != nil {
		t.Fatal(err)
	}
	dataB, err := os.ReadFile(journalB)
	if err != nil {
		t.Fatal(err)
	}
	if len(dataA) == 0 {
		t.Fatal("expected a non-empty journal (the resting order should ack and later fill)")
	}
	if !bytes.Equal(dataA, dataB) {
		t.Fatalf("two runs over identical inputs produced different journals:\n--- A ---\n%s\n--- B ---\n%s", dataA, dataB)
	}
}

func TestBacktestJournalRecordsCarryFullState(t *testing.T) {
	fixtureRoot := t.TempDir()
	instr := testInstrument(t)
	writeFixtureBucket(t, fixtureRoot, instr)

	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")
	runOnce(t, fixtureRoot, journalPath)

	data, err := os.ReadFile(journalPath)
	if err != nil {
		t.Fatal(err)
	}

	var sawFill bool
	for _, line := range bytes.Split(bytes.TrimRight(data, "\n"), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		var rec auditor.TransactionRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			t.Fatalf("unmarshal journal line: %v", err)
		}
		if rec.Order.Instrument != "binance:BTCUSDT" {
			t.Fatalf("expected Order.Instrument to be populated, got %q", rec.Order.Instrument)
		}
		if rec.Order.Side != domain.Buy {
			t.Fatalf("expected Order.Side to be populated, got %v", rec.Order.Side)
		}
		if rec.Hostname != testHost.Hostname || rec.PID != testHost.PID {
			t.Fatalf("expected host provenance on every record, got hostname=%q pid=%d", rec.Hostname, rec.PID)
		}
		if rec.IsFill {
			sawFill = true
			if rec.MarketData == nil {
				t.Fatal("expected a market data snapshot on the fill record")
			}
			if !rec.Position.TradedLong.IsZero() {
				t.Fatalf("onOrderEvent must read positions, not mutate them via RecordFill; expected TradedLong 0 here, got %s", rec.Position.TradedLong)
			}
			if rec.NotionalUSD.IsZero() {
				t.Fatal("expected a non-zero NotionalUSD on the fill record")
			}
		}
	}
	if !sawFill {
		t.Fatal("expected at least one fill record in the journal")
	}
}

func TestWriteSnapshotAtomicRename(t *testing.T) {
	instr := testInstrument(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	loop := engine.NewSimEventLoop()
	ctx := apexctx.New(logger, loop)

	upto, _ := domain.NewTimeFromStdDate("2026-01-01")
	journalPath := filepath.Join(t.TempDir(), "journal.jsonl")
	svc, err := New(ctx, loop, "demo", upto, journalPath, testHost)
	if err != nil {
		t.Fatal(err)
	}
	svc.AddInstrument(instr)
	svc.RecordFill(instr, domain.Buy, decimal.NewFromInt(3))

	snapshotPath := filepath.Join(t.TempDir(), "positions.snapshot")
	if err := svc.WriteSnapshot(snapshotPath); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(snapshotPath + ".tmp"); !os.IsNotExist(err) {
		t.Fatal("temp file should not survive a successful WriteSnapshot")
	}
	data, err := os.ReadFile(snapshotPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("expected a non-empty snapshot")
	}
}

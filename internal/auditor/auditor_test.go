package auditor

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/automatedalgo/apex/internal/domain"
	"github.com/automatedalgo/apex/internal/hostinfo"
)

var testHost = hostinfo.HostInfo{Hostname: "test-host", PID: 4242}

func TestAddTransactionAndClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	a, err := New(path, testHost)
	if err != nil {
		t.Fatal(err)
	}

	rec := TransactionRecord{
		EventTime:  domain.NewTimeFromUnixMicro(1000),
		StrategyID: "demo",
		Order: OrderSnapshot{
			ClientID:   "c1",
			ExtOrderID: "e1",
			Instrument: "binance:BTCUSDT",
			Side:       domain.Buy,
			OrderType:  domain.Limit,
			Price:      decimal.NewFromInt(100),
			Size:       decimal.NewFromInt(1),
			State:      domain.Filled,
		},
		EventType: domain.EventFill,
		FxToUSD:   decimal.NewFromInt(1),
		IsFill:    true,
		FillQty:   decimal.NewFromInt(1),
		FillPrice: decimal.NewFromInt(100),
	}
	if err := a.AddTransaction(rec); err != nil {
		t.Fatal(err)
	}
	if a.Count() != 1 {
		t.Fatalf("Count() = %d, want 1", a.Count())
	}

	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	lines := 0
	for scanner.Scan() {
		var got TransactionRecord
		if err := json.Unmarshal(scanner.Bytes(), &got); err != nil {
			t.Fatalf("line %d: %v", lines, err)
		}
		if got.StrategyID != "demo" || got.Order.ClientID != "c1" || !got.FillQty.Equal(decimal.NewFromInt(1)) {
			t.Fatalf("unexpected record: %+v", got)
		}
		if got.Hostname != testHost.Hostname || got.PID != testHost.PID {
			t.Fatalf("expected host provenance %+v stamped on record, got hostname=%q pid=%d", testHost, got.Hostname, got.PID)
		}
		lines++
	}
	if lines != 1 {
		t.Fatalf("expected exactly one journal line, got %d", lines)
	}
}

func TestAddTransactionMultipleLinesPreserveOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.jsonl")
	a, err := New(path, testHost)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		rec := TransactionRecord{
			EventTime:  domain.NewTimeFromUnixMicro(int64(1000 * (i + 1))),
			StrategyID: "demo",
			Order:      OrderSnapshot{ClientID: "c1"},
		}
		if err := a.AddTransaction(rec); err != nil {
			t.Fatal(err)
		}
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	var times []domain.Time
	for scanner.Scan() {
		var got TransactionRecord
		if err := json.Unmarshal(scanner.Bytes(), &got); err != nil {
			t.Fatal(err)
		}
		times = append(times, got.EventTime)
	}
	for i := 1; i < len(times); i++ {
		if !times[i-1].Before(times[i]) {
			t.Fatalf("journal lines out of order: %v", times)
		}
	}
}

package domain

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestExchangeIDRoundTrip(t *testing.T) {
	for _, e := range []ExchangeID{ExchangeNone, ExchangeBinance, ExchangeBinanceUSDFut, ExchangeBinanceCoinFut} {
		got, err := ParseExchangeID(e.String())
		if err != nil {
			t.Fatalf("ParseExchangeID(%q): %v", e.String(), err)
		}
		if got != e {
			t.Fatalf("round trip mismatch: %v -> %q -> %v", e, e.String(), got)
		}
	}
	if _, err := ParseExchangeID("not_a_real_exchange"); err == nil {
		t.Fatal("expected error for unknown exchange id")
	}
}

func TestExchangeIDJSON(t *testing.T) {
	data, err := json.Marshal(ExchangeBinance)
	if err != nil {
		t.Fatal(err)
	}
	var out ExchangeID
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out != ExchangeBinance {
		t.Fatalf("got %v, want %v", out, ExchangeBinance)
	}
}

func TestMdStreamRoundTrip(t *testing.T) {
	for _, s := range []MdStream{AggTrades, BookTicker} {
		got, err := ParseMdStream(s.String())
		if err != nil {
			t.Fatalf("ParseMdStream(%q): %v", s.String(), err)
		}
		if got != s {
			t.Fatalf("round trip mismatch: %v -> %q -> %v", s, s.String(), got)
		}
	}
	if _, err := ParseMdStream("depth"); err == nil {
		t.Fatal("expected error for unknown stream")
	}
}

func TestSideOpposite(t *testing.T) {
	if Buy.Opposite() != Sell {
		t.Fatal("Buy.Opposite() should be Sell")
	}
	if Sell.Opposite() != Buy {
		t.Fatal("Sell.Opposite() should be Buy")
	}
}

func TestOrderStateCanTransition(t *testing.T) {
	cases := []struct {
		from, to OrderState
		want     bool
	}{
		{PendingNew, Live, true},
		{PendingNew, Rejected, true},
		{Live, Partial, true},
		{Live, Filled, true},
		{Live, Cancelled, true},
		{Partial, Filled, true},
		{Filled, Live, false},
		{Cancelled, Live, false},
		{Rejected, Live, false},
		{PendingNew, PendingNew, false},
	}
	for _, c := range cases {
		got := c.from.CanTransition(c.to)
		if got != c.want {
			t.Errorf("%v.CanTransition(%v) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestOrderStateIsTerminal(t *testing.T) {
	for _, s := range []OrderState{Filled, Cancelled, Rejected} {
		if !s.IsTerminal() {
			t.Errorf("%v should be terminal", s)
		}
	}
	for _, s := range []OrderState{PendingNew, Live, Partial} {
		if s.IsTerminal() {
			t.Errorf("%v should not be terminal", s)
		}
	}
}

func TestPositionNet(t *testing.T) {
	p := Position{Startup: decimal.NewFromInt(10)}
	p.ApplyFill(Buy, decimal.NewFromInt(5))
	p.ApplyFill(Sell, decimal.NewFromInt(2))
	want := decimal.NewFromInt(13)
	if !p.Net().Equal(want) {
		t.Fatalf("Net() = %s, want %s", p.Net(), want)
	}
}

func TestAccountApplyAndBalance(t *testing.T) {
	acc := NewAccount()
	if !acc.Balance("USDT").IsZero() {
		t.Fatal("unset balance should be zero")
	}
	acc.Apply(AssetBalance{Asset: "USDT", Available: decimal.NewFromInt(100)})
	if !acc.Balance("USDT").Equal(decimal.NewFromInt(100)) {
		t.Fatalf("balance = %s, want 100", acc.Balance("USDT"))
	}
}

func TestAlertBoard(t *testing.T) {
	b := NewAlertBoard()
	if b.Active("risk.limit") {
		t.Fatal("alert should start inactive")
	}
	b.Raise("risk.limit")
	if !b.Active("risk.limit") || b.Count() != 1 {
		t.Fatal("alert should be active after Raise")
	}
	b.Raise("risk.limit")
	if b.Count() != 1 {
		t.Fatal("repeat Raise should be idempotent")
	}
	b.Clear("risk.limit")
	if b.Active("risk.limit") || b.Count() != 0 {
		t.Fatal("alert should be inactive after Clear")
	}
}

func TestNewInstrumentValidation(t *testing.T) {
	if _, err := NewInstrument(ExchangeBinance, "", decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.001), "BTC", "USDT"); err == nil {
		t.Fatal("expected error for empty native symbol")
	}
	if _, err := NewInstrument(ExchangeBinance, "BTCUSDT", decimal.Zero, decimal.NewFromFloat(0.001), "BTC", "USDT"); err == nil {
		t.Fatal("expected error for non-positive tick size")
	}
	instr, err := NewInstrument(ExchangeBinance, "BTCUSDT", decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.0001), "BTC", "USDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if instr.String() != "binance:BTCUSDT" {
		t.Fatalf("String() = %q, want %q", instr.String(), "binance:BTCUSDT")
	}
}

func TestInstrumentKeyComparable(t *testing.T) {
	// Two Instruments built from separate NewInstrument calls with
	// numerically-identical tick/lot sizes embed distinct *big.Int
	// pointers inside their decimal.Decimal fields, so Instrument
	// itself must never be compared with == or used as a map key
	// directly (shopspring/decimal's documented pitfall). Key()
	// strips tickSize/lotSize and is what identity actually means.
	a, _ := NewInstrument(ExchangeBinance, "BTCUSDT", decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.0001), "BTC", "USDT")
	b, _ := NewInstrument(ExchangeBinance, "BTCUSDT", decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.0001), "BTC", "USDT")
	m := map[InstrumentKey]int{a.Key(): 1}
	if _, ok := m[b.Key()]; !ok {
		t.Fatal("identical instruments should compare equal via Key() as map keys")
	}
	if a.Key() != b.Key() {
		t.Fatal("identical instruments should have == Key() values")
	}

	other, _ := NewInstrument(ExchangeBinance, "ETHUSDT", decimal.NewFromFloat(0.01), decimal.NewFromFloat(0.0001), "ETH", "USDT")
	if a.Key() == other.Key() {
		t.Fatal("distinct native symbols must not share a Key()")
	}
}

func TestTimeFromStdDate(t *testing.T) {
	end, err := NewTimeFromStdDate("2026-01-02")
	if err != nil {
		t.Fatal(err)
	}
	start, err := NewTimeFromStdDate("2026-01-01")
	if err != nil {
		t.Fatal(err)
	}
	if !start.Before(end) {
		t.Fatal("2026-01-01 end-of-day should be before 2026-01-02 end-of-day")
	}
	if _, err := NewTimeFromStdDate("not-a-date"); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

package symbols

import (
	"testing"
	"time"
)

func TestBuildForms(t *testing.T) {
	expiry := time.Date(2024, 12, 27, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		parts Parts
		want  string
	}{
		{Parts{Base: "BTC", Quote: "USDT"}, "BTC/USDT"},
		{Parts{Base: "BTC", Quote: "USDT", Settle: "USDT"}, "BTC/USDT:USDT"},
		{Parts{Base: "BTC", Quote: "USD", Settle: "BTC", Expiry: expiry}, "BTC/USD:BTC-241227"},
		{Parts{Base: "BTC", Quote: "USD", Settle: "USD", Expiry: expiry, Strike: "100000", OptionType: "C"}, "BTC/USD:USD-241227-100000-C"},
	}
	for _, c := range cases {
		if got := Build(c.parts); got != c.want {
			t.Fatalf("Build(%+v) = %q, want %q", c.parts, got, c.want)
		}
	}
}

func TestParseRoundTrip(t *testing.T) {
	for _, sym := range []string{
		"ETH/USDT",
		"ETH/USDT:USDT",
		"ETH/USD:ETH-250328",
		"ETH/USD:USD-250328-4000-P",
	} {
		parts, err := Parse(sym)
		if err != nil {
			t.Fatalf("Parse(%q): %v", sym, err)
		}
		if got := Build(parts); got != sym {
			t.Fatalf("round trip %q -> %q", sym, got)
		}
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	for _, sym := range []string{"", "BTCUSDT", "/USDT", "BTC/USD:USD-99x99"} {
		if _, err := Parse(sym); err == nil {
			t.Fatalf("Parse(%q) should fail", sym)
		}
	}
}

func TestFromOptionID(t *testing.T) {
	parts, err := FromOptionID("BTC-USD-241227-100000-C")
	if err != nil {
		t.Fatalf("FromOptionID: %v", err)
	}
	if parts.Base != "BTC" || parts.Quote != "USD" || parts.Settle != "USD" {
		t.Fatalf("got %+v", parts)
	}
	if parts.Expiry != time.Date(2024, 12, 27, 0, 0, 0, 0, time.UTC) {
		t.Fatalf("bad expiry %v", parts.Expiry)
	}
	if parts.Strike != "100000" || parts.OptionType != "C" {
		t.Fatalf("got %+v", parts)
	}
	if Build(parts) != "BTC/USD:USD-241227-100000-C" {
		t.Fatalf("unified symbol mismatch: %q", Build(parts))
	}
}

func TestFromOptionIDRejectsMalformed(t *testing.T) {
	for _, id := range []string{"BTC-USD-241227-100000", "BTC-USD-241232-1-C", "BTC-USD-241227-1-X"} {
		if _, err := FromOptionID(id); err == nil {
			t.Fatalf("FromOptionID(%q) should fail", id)
		}
	}
}

func TestIsOptionID(t *testing.T) {
	if !IsOptionID("BTC-USD-241227-100000-P") {
		t.Fatalf("expected option id")
	}
	if IsOptionID("BTC-USDT") {
		t.Fatalf("spot id misdetected as option")
	}
}

package unified

import (
	"testing"
	"time"

	"unifex/internal/safe"
)

func TestSortBook(t *testing.T) {
	raw := []byte(`{"ts": 1700000000000, "bids": [["99","2"],["100","1"]], "asks": [["102","3"],["101","1"]]}`)
	payload, err := safe.ParseObject(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	bids, err := ParseBookSide(safe.Slice(payload, "bids"))
	if err != nil {
		t.Fatalf("bids: %v", err)
	}
	asks, err := ParseBookSide(safe.Slice(payload, "asks"))
	if err != nil {
		t.Fatalf("asks: %v", err)
	}
	book := &OrderBook{
		Symbol:    "BTC/USDT",
		Timestamp: safe.MillisTime(payload, "ts"),
		Bids:      bids,
		Asks:      asks,
	}
	SortBook(book)

	if book.Timestamp != time.UnixMilli(1700000000000).UTC() {
		t.Fatalf("timestamp not carried: %v", book.Timestamp)
	}
	if book.Bids[0].Price.String() != "100" || book.Bids[1].Price.String() != "99" {
		t.Fatalf("bids not descending: %v", book.Bids)
	}
	if book.Asks[0].Price.String() != "101" || book.Asks[1].Price.String() != "102" {
		t.Fatalf("asks not ascending: %v", book.Asks)
	}
}

func TestParseBookSideRejectsMalformedRow(t *testing.T) {
	if _, err := ParseBookSide([]any{"not-a-pair"}); err == nil {
		t.Fatalf("expected error for malformed row")
	}
}

func TestMapStatusIdentityFallback(t *testing.T) {
	table := map[string]OrderStatus{"FILLED": StatusClosed}
	if got := MapStatus(table, "FILLED"); got != StatusClosed {
		t.Fatalf("got %q", got)
	}
	// Unrecognised raw statuses pass through verbatim.
	if got := MapStatus(table, "HALF_BAKED"); got != OrderStatus("HALF_BAKED") {
		t.Fatalf("got %q", got)
	}
}

func TestParseFeeAbsentStaysNil(t *testing.T) {
	m, _ := safe.ParseObject([]byte(`{"feeCurrency": "USDT"}`))
	if fee := ParseFee(m, []string{"fee", "commission"}, []string{"feeCurrency"}); fee != nil {
		t.Fatalf("fee with no cost must be nil, got %+v", fee)
	}
	m2, _ := safe.ParseObject([]byte(`{"commission": "0.25", "feeCurrency": "USDT"}`))
	fee := ParseFee(m2, []string{"fee", "commission"}, []string{"feeCurrency"})
	if fee == nil || fee.Cost.Decimal.String() != "0.25" || fee.Currency != "USDT" {
		t.Fatalf("got %+v", fee)
	}
}

package errs

import (
	"errors"
	"strings"
	"testing"
)

func TestErrorUnwrapsToKindSentinel(t *testing.T) {
	err := New("toobit", KindInsufficientFunds, "-1001", "balance too low")
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected errors.Is to match ErrInsufficientFunds: %v", err)
	}
	if errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("matched the wrong sentinel: %v", err)
	}
}

func TestErrorMessageCarriesRawCodeAndMessage(t *testing.T) {
	err := New("bingx", KindBadSymbol, "100421", "pair restricted from API trading")
	msg := err.Error()
	for _, want := range []string{"bingx", "100421", "pair restricted"} {
		if !strings.Contains(msg, want) {
			t.Fatalf("error message %q missing %q", msg, want)
		}
	}
}

func TestClassifyExactWinsOverBroad(t *testing.T) {
	table := Table{
		Exact: map[string]Kind{"5907": KindInsufficientFunds},
		Broad: map[string]Kind{"order": KindOrderNotFound},
	}
	// Message also matches the broad "order" entry, but the exact code entry
	// must decide the kind.
	err := table.Classify("btcex", "5907", "order asset not enough", 200)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("exact match did not win: %v", err)
	}
}

func TestClassifyBroadSubstring(t *testing.T) {
	table := Table{
		Broad: map[string]Kind{"Insufficient balance": KindInsufficientFunds},
	}
	err := table.Classify("hollaex", "", "Error: insufficient balance for order", 400)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("broad match failed: %v", err)
	}
}

func TestClassifyUnknownFallsBackToExchangeError(t *testing.T) {
	table := Table{Exact: map[string]Kind{"1": KindBadRequest}}
	err := table.Classify("oxfun", "9999", "mystery failure", 200)
	if !errors.Is(err, ErrExchange) {
		t.Fatalf("expected catch-all exchange error, got %v", err)
	}
	if !strings.Contains(err.Error(), "mystery failure") {
		t.Fatalf("original message discarded: %v", err)
	}
}

func TestClassifyHTTPStatusFallback(t *testing.T) {
	err := Table{}.Classify("hollaex", "", "", 429)
	if !errors.Is(err, ErrRateLimitExceeded) {
		t.Fatalf("expected rate limit from status 429, got %v", err)
	}
}

func TestTransientExcludesRateLimit(t *testing.T) {
	if Transient(New("oxfun", KindRateLimitExceeded, "-429", "slow down")) {
		t.Fatalf("rate limit errors must never be transient")
	}
	if !Transient(New("oxfun", KindExchangeNotAvailable, "", "down")) {
		t.Fatalf("exchange-not-available should be transient")
	}
}

func TestLocalFlag(t *testing.T) {
	err := ArgumentsRequired("toobit", "createOrder requires a symbol")
	if !err.Local {
		t.Fatalf("arguments-required must be a local validation error")
	}
	if !errors.Is(err, ErrArgumentsRequired) {
		t.Fatalf("wrong sentinel: %v", err)
	}
}

package request

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"unifex/internal/errs"
	"unifex/internal/unified"
)

var now = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestWindowDefaultsBothBounds(t *testing.T) {
	since, until := Window(time.Time{}, time.Time{}, now, 7*24*time.Hour)
	if until != now || since != now.AddDate(0, 0, -7) {
		t.Fatalf("got [%v, %v]", since, until)
	}
}

func TestWindowDerivesMissingBound(t *testing.T) {
	start := now.AddDate(0, 0, -3)
	// only since: until = since+span clamped to now
	since, until := Window(start, time.Time{}, now, 7*24*time.Hour)
	if since != start || until != now {
		t.Fatalf("derived until wrong: [%v, %v]", since, until)
	}
	// only until: since = until-span
	since, until = Window(time.Time{}, start, now, 24*time.Hour)
	if until != start || since != start.Add(-24*time.Hour) {
		t.Fatalf("derived since wrong: [%v, %v]", since, until)
	}
}

func TestWindowClampsFutureBound(t *testing.T) {
	_, until := Window(now.Add(-time.Hour), now.Add(time.Hour), now, 24*time.Hour)
	if until != now {
		t.Fatalf("future until not clamped: %v", until)
	}
	// a future until with no since derives since from the clamped bound so
	// the window never inverts
	since, until := Window(time.Time{}, now.Add(time.Hour), now, 24*time.Hour)
	if until != now || since != now.Add(-24*time.Hour) {
		t.Fatalf("window inverted: [%v, %v]", since, until)
	}
	if since.After(until) {
		t.Fatalf("since after until: [%v, %v]", since, until)
	}
}

func TestEnforceLookback(t *testing.T) {
	bound := 90 * 24 * time.Hour
	// 91 days back must fail fast as a bad request, not an empty page.
	err := EnforceLookback("bingx", now.AddDate(0, 0, -91), now, bound)
	if !errors.Is(err, errs.ErrBadRequest) {
		t.Fatalf("expected bad request, got %v", err)
	}
	if err := EnforceLookback("bingx", now.AddDate(0, 0, -89), now, bound); err != nil {
		t.Fatalf("within bound: %v", err)
	}
	if err := EnforceLookback("bingx", time.Time{}, now, bound); err != nil {
		t.Fatalf("absent since: %v", err)
	}
}

func TestTierUpRoundsUpNotNearest(t *testing.T) {
	tiers := []int{5, 25, 50, 100}
	cases := map[int]int{0: 5, 1: 5, 5: 5, 6: 25, 24: 25, 26: 50, 51: 100, 999: 100}
	for in, want := range cases {
		if got := TierUp(in, tiers); got != want {
			t.Fatalf("TierUp(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestAmountPriceFormatting(t *testing.T) {
	market := unified.Market{
		Precision: unified.Precision{
			Amount: unified.N(decimal.RequireFromString("0.001")),
			Price:  unified.N(decimal.RequireFromString("0.5")),
		},
	}
	amt, err := Amount(market, decimal.RequireFromString("1.23456"))
	if err != nil || amt != "1.235" {
		t.Fatalf("amount %q %v", amt, err)
	}
	price, err := Price(market, decimal.RequireFromString("101.3"))
	if err != nil || price != "101.5" {
		t.Fatalf("price %q %v", price, err)
	}
	// No declared step: plain decimal representation.
	plain, err := Amount(unified.Market{}, decimal.RequireFromString("2.5"))
	if err != nil || plain != "2.5" {
		t.Fatalf("plain %q %v", plain, err)
	}
}

func TestMarketBuyCost(t *testing.T) {
	amount := decimal.RequireFromString("2")
	price := unified.N(decimal.RequireFromString("100"))

	// explicit cost wins
	cost, err := MarketBuyCost("toobit", amount, price, unified.N(decimal.RequireFromString("150")), true)
	if err != nil || cost.String() != "150" {
		t.Fatalf("got %s %v", cost, err)
	}
	// amount * price
	cost, err = MarketBuyCost("toobit", amount, price, unified.Number{}, true)
	if err != nil || cost.String() != "200" {
		t.Fatalf("got %s %v", cost, err)
	}
	// no price, requiresPrice: InvalidOrder before any network call
	_, err = MarketBuyCost("toobit", amount, unified.Number{}, unified.Number{}, true)
	if !errors.Is(err, errs.ErrInvalidOrder) {
		t.Fatalf("expected invalid order, got %v", err)
	}
	var typed *errs.Error
	if !errors.As(err, &typed) || !typed.Local {
		t.Fatalf("expected local validation error, got %v", err)
	}
	// requiresPrice disabled: amount is already the cost
	cost, err = MarketBuyCost("toobit", amount, unified.Number{}, unified.Number{}, false)
	if err != nil || cost.String() != "2" {
		t.Fatalf("got %s %v", cost, err)
	}
}

func TestCostPrefersCostStep(t *testing.T) {
	market := unified.Market{
		Precision: unified.Precision{
			Price: unified.N(decimal.RequireFromString("0.5")),
			Cost:  unified.N(decimal.RequireFromString("0.0001")),
		},
	}
	// the quote cost follows the cost step, not the coarser price tick
	cost, err := Cost(market, decimal.RequireFromString("6"))
	if err != nil || cost != "6.0000" {
		t.Fatalf("cost %q %v", cost, err)
	}
	// without a cost step the price step is the fallback
	market.Precision.Cost = unified.Number{}
	cost, err = Cost(market, decimal.RequireFromString("6.2"))
	if err != nil || cost != "6.0" {
		t.Fatalf("fallback cost %q %v", cost, err)
	}
}

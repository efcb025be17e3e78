package exchange

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"unifex/internal/errs"
	"unifex/internal/unified"
	"unifex/logger"
)

func TestBaseDefaultsNotSupported(t *testing.T) {
	b := &Base{Exchange: "stub"}
	ctx := context.Background()

	if _, err := b.FetchMarkets(ctx, nil); !errors.Is(err, errs.ErrNotSupported) {
		t.Fatalf("FetchMarkets: expected not supported, got %v", err)
	}
	if _, err := b.FetchFundingRate(ctx, "BTC/USDT:USDT", nil); !errors.Is(err, errs.ErrNotSupported) {
		t.Fatalf("FetchFundingRate: expected not supported, got %v", err)
	}
	if err := b.SetLeverage(ctx, "BTC/USDT:USDT", 5, nil); !errors.Is(err, errs.ErrNotSupported) {
		t.Fatalf("SetLeverage: expected not supported, got %v", err)
	}

	var uerr *errs.Error
	_, err := b.Withdraw(ctx, "BTC", decimal.NewFromInt(1), "addr", "", nil)
	if !errors.As(err, &uerr) || !uerr.Local || uerr.Exchange != "stub" {
		t.Fatalf("expected a local stub error, got %#v", err)
	}
}

func TestMarketCacheResolve(t *testing.T) {
	var cache MarketCache
	if cache.Loaded() {
		t.Fatal("fresh cache must not report loaded")
	}
	cache.Store([]unified.Market{
		{ID: "BTCUSDT", Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT", Type: unified.TypeSpot},
		{ID: "ETHUSDT", Symbol: "ETH/USDT", Base: "ETH", Quote: "USDT", Type: unified.TypeSpot},
	})
	if !cache.Loaded() {
		t.Fatal("cache must report loaded after Store")
	}

	m, err := cache.Resolve("stub", "BTC/USDT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.ID != "BTCUSDT" {
		t.Fatalf("wrong market resolved: %+v", m)
	}

	if _, err := cache.Resolve("stub", "DOGE/USDT"); !errors.Is(err, errs.ErrBadSymbol) {
		t.Fatalf("expected bad symbol, got %v", err)
	}

	byID, ok := cache.ByID("ETHUSDT")
	if !ok || byID.Symbol != "ETH/USDT" {
		t.Fatalf("ByID lookup failed: %+v ok=%v", byID, ok)
	}

	syms := cache.Symbols()
	if len(syms) != 2 || syms[0] != "BTC/USDT" {
		t.Fatalf("unexpected symbol list: %v", syms)
	}
}

func TestRegistryUnknownExchange(t *testing.T) {
	if _, err := New("no-such-venue", Config{}, logger.Logger().WithComponent("test")); err == nil {
		t.Fatal("expected an error for an unregistered exchange")
	}
}

func TestParamsHelpers(t *testing.T) {
	p := Params{"network": "TRC20", "postOnly": true, "cost": "12.5"}
	if p.String("network") != "TRC20" {
		t.Fatalf("String: got %q", p.String("network"))
	}
	if p.String("missing") != "" {
		t.Fatal("missing string param must be empty")
	}
	if !p.Bool("postOnly") {
		t.Fatal("Bool: expected true")
	}
	cost := p.Decimal("cost")
	if !cost.Valid || cost.Decimal.String() != "12.5" {
		t.Fatalf("Decimal: got %+v", cost)
	}
	if p.Decimal("missing").Valid {
		t.Fatal("missing decimal param must be the unknown sentinel")
	}
}

// Package exchange defines the unified adapter surface and the registry the
// CLI and embedding applications construct adapters through. Every concrete
// exchange lives in its own subpackage and registers a factory at init time.
package exchange

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"unifex/internal/errs"
	"unifex/internal/paginate"
	"unifex/internal/sign"
	"unifex/internal/unified"
	"unifex/logger"
)

// Params is the trailing open-ended options object every operation accepts
// for exchange-specific overrides, keyed by the exchange's own parameter
// names.
type Params map[string]any

// String returns a string param, or "".
func (p Params) String(key string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return ""
}

// Decimal returns a decimal param from a decimal, string or Number value.
func (p Params) Decimal(key string) unified.Number {
	switch v := p[key].(type) {
	case decimal.Decimal:
		return unified.N(v)
	case unified.Number:
		return v
	case string:
		if d, err := decimal.NewFromString(v); err == nil {
			return unified.N(d)
		}
	}
	return unified.Number{}
}

// Has reports whether the key was supplied at all.
func (p Params) Has(key string) bool {
	_, ok := p[key]
	return ok
}

// Bool returns a boolean param, defaulting to false.
func (p Params) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

// Adapter is the uniform per-exchange surface. Operations an exchange does
// not offer return an error wrapping errs.ErrNotSupported.
type Adapter interface {
	Name() string

	FetchMarkets(ctx context.Context, params Params) ([]unified.Market, error)
	FetchCurrencies(ctx context.Context, params Params) (map[string]unified.Currency, error)
	FetchTicker(ctx context.Context, symbol string, params Params) (*unified.Ticker, error)
	FetchTickers(ctx context.Context, symbols []string, params Params) ([]unified.Ticker, error)
	FetchOrderBook(ctx context.Context, symbol string, limit int, params Params) (*unified.OrderBook, error)
	FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]unified.Trade, error)
	FetchOHLCV(ctx context.Context, symbol, timeframe string, since time.Time, limit int, params Params) ([]unified.Candle, error)

	FetchBalance(ctx context.Context, params Params) (*unified.Balances, error)
	CreateOrder(ctx context.Context, symbol string, typ unified.OrderType, side unified.OrderSide,
		amount decimal.Decimal, price unified.Number, params Params) (*unified.Order, error)
	EditOrder(ctx context.Context, id, symbol string, typ unified.OrderType, side unified.OrderSide,
		amount decimal.Decimal, price unified.Number, params Params) (*unified.Order, error)
	CancelOrder(ctx context.Context, id, symbol string, params Params) (*unified.Order, error)
	CancelAllOrders(ctx context.Context, symbol string, params Params) error
	FetchOrder(ctx context.Context, id, symbol string, params Params) (*unified.Order, error)
	FetchOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]unified.Order, error)
	FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]unified.Order, error)
	FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]unified.Order, error)
	FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params Params) ([]unified.Trade, error)
	FetchPositions(ctx context.Context, symbols []string, params Params) ([]unified.Position, error)

	Transfer(ctx context.Context, code string, amount decimal.Decimal, from, to string, params Params) (*unified.Transfer, error)
	Withdraw(ctx context.Context, code string, amount decimal.Decimal, address, tag string, params Params) (*unified.Transaction, error)
	FetchDepositAddress(ctx context.Context, code string, params Params) (*unified.DepositAddress, error)
	FetchDepositsWithdrawals(ctx context.Context, code string, since time.Time, limit int, params Params) ([]unified.Transaction, error)
	FetchLedger(ctx context.Context, code string, since time.Time, limit int, params Params) ([]unified.LedgerEntry, error)
	FetchFundingRate(ctx context.Context, symbol string, params Params) (*unified.FundingRate, error)
	FetchFundingRates(ctx context.Context, symbols []string, params Params) ([]unified.FundingRate, error)
	SetLeverage(ctx context.Context, symbol string, leverage int, params Params) error
	SetMarginMode(ctx context.Context, symbol, mode string, params Params) error
}

// Config carries everything a factory needs to build one adapter instance.
type Config struct {
	Credentials sign.Credentials
	BaseURL     string // overrides the adapter's default host
	Sandbox     bool   // selects the exchange's test host where one exists
	RateLimit   float64
	Burst       int
	Timeout     time.Duration
	Retry       paginate.RetryPolicy
	HTTPClient  *http.Client // test hook
}

// Base provides NotSupported defaults for the whole Adapter surface so a
// concrete adapter only implements what its exchange offers.
type Base struct {
	Exchange string
	Retry    paginate.RetryPolicy
}

func (b *Base) Name() string { return b.Exchange }

// WithRetry runs fn under the adapter's retry policy, retrying transient
// failures only. Mutating calls must not go through here: a request the
// exchange may have applied is never replayed.
func (b *Base) WithRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	return paginate.Retry(ctx, b.Retry, fn)
}

func (b *Base) notSupported(op string) *errs.Error {
	return errs.NotSupported(b.Exchange, op)
}

func (b *Base) FetchMarkets(context.Context, Params) ([]unified.Market, error) {
	return nil, b.notSupported("fetchMarkets")
}

func (b *Base) FetchCurrencies(context.Context, Params) (map[string]unified.Currency, error) {
	return nil, b.notSupported("fetchCurrencies")
}

func (b *Base) FetchTicker(context.Context, string, Params) (*unified.Ticker, error) {
	return nil, b.notSupported("fetchTicker")
}

func (b *Base) FetchTickers(context.Context, []string, Params) ([]unified.Ticker, error) {
	return nil, b.notSupported("fetchTickers")
}

func (b *Base) FetchOrderBook(context.Context, string, int, Params) (*unified.OrderBook, error) {
	return nil, b.notSupported("fetchOrderBook")
}

func (b *Base) FetchTrades(context.Context, string, time.Time, int, Params) ([]unified.Trade, error) {
	return nil, b.notSupported("fetchTrades")
}

func (b *Base) FetchOHLCV(context.Context, string, string, time.Time, int, Params) ([]unified.Candle, error) {
	return nil, b.notSupported("fetchOHLCV")
}

func (b *Base) FetchBalance(context.Context, Params) (*unified.Balances, error) {
	return nil, b.notSupported("fetchBalance")
}

func (b *Base) CreateOrder(context.Context, string, unified.OrderType, unified.OrderSide, decimal.Decimal, unified.Number, Params) (*unified.Order, error) {
	return nil, b.notSupported("createOrder")
}

func (b *Base) EditOrder(context.Context, string, string, unified.OrderType, unified.OrderSide, decimal.Decimal, unified.Number, Params) (*unified.Order, error) {
	return nil, b.notSupported("editOrder")
}

func (b *Base) CancelOrder(context.Context, string, string, Params) (*unified.Order, error) {
	return nil, b.notSupported("cancelOrder")
}

func (b *Base) CancelAllOrders(context.Context, string, Params) error {
	return b.notSupported("cancelAllOrders")
}

func (b *Base) FetchOrder(context.Context, string, string, Params) (*unified.Order, error) {
	return nil, b.notSupported("fetchOrder")
}

func (b *Base) FetchOrders(context.Context, string, time.Time, int, Params) ([]unified.Order, error) {
	return nil, b.notSupported("fetchOrders")
}

func (b *Base) FetchOpenOrders(context.Context, string, time.Time, int, Params) ([]unified.Order, error) {
	return nil, b.notSupported("fetchOpenOrders")
}

func (b *Base) FetchClosedOrders(context.Context, string, time.Time, int, Params) ([]unified.Order, error) {
	return nil, b.notSupported("fetchClosedOrders")
}

func (b *Base) FetchMyTrades(context.Context, string, time.Time, int, Params) ([]unified.Trade, error) {
	return nil, b.notSupported("fetchMyTrades")
}

func (b *Base) FetchPositions(context.Context, []string, Params) ([]unified.Position, error) {
	return nil, b.notSupported("fetchPositions")
}

func (b *Base) Transfer(context.Context, string, decimal.Decimal, string, string, Params) (*unified.Transfer, error) {
	return nil, b.notSupported("transfer")
}

func (b *Base) Withdraw(context.Context, string, decimal.Decimal, string, string, Params) (*unified.Transaction, error) {
	return nil, b.notSupported("withdraw")
}

func (b *Base) FetchDepositAddress(context.Context, string, Params) (*unified.DepositAddress, error) {
	return nil, b.notSupported("fetchDepositAddress")
}

func (b *Base) FetchDepositsWithdrawals(context.Context, string, time.Time, int, Params) ([]unified.Transaction, error) {
	return nil, b.notSupported("fetchDepositsWithdrawals")
}

func (b *Base) FetchLedger(context.Context, string, time.Time, int, Params) ([]unified.LedgerEntry, error) {
	return nil, b.notSupported("fetchLedger")
}

func (b *Base) FetchFundingRate(context.Context, string, Params) (*unified.FundingRate, error) {
	return nil, b.notSupported("fetchFundingRate")
}

func (b *Base) FetchFundingRates(context.Context, []string, Params) ([]unified.FundingRate, error) {
	return nil, b.notSupported("fetchFundingRates")
}

func (b *Base) SetLeverage(context.Context, string, int, Params) error {
	return b.notSupported("setLeverage")
}

func (b *Base) SetMarginMode(context.Context, string, string, Params) error {
	return b.notSupported("setMarginMode")
}

var _ Adapter = (*Base)(nil)

// Factory builds one adapter instance.
type Factory func(cfg Config, log *logger.Entry) (Adapter, error)

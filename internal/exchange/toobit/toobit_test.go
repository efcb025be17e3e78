package toobit

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"unifex/internal/errs"
	"unifex/internal/exchange"
	"unifex/internal/sign"
	"unifex/internal/unified"
	"unifex/logger"
)

const exchangeInfoFixture = `{
	"timezone": "UTC",
	"serverTime": "1755583099926",
	"symbols": [
		{
			"symbol": "ETHUSDT",
			"status": "TRADING",
			"baseAsset": "ETH",
			"quoteAsset": "USDT",
			"quotePrecision": "0.0001",
			"filters": [
				{"filterType": "PRICE_FILTER", "minPrice": "0.01", "maxPrice": "10000000.00000000", "tickSize": "0.01"},
				{"filterType": "LOT_SIZE", "minQty": "0.0001", "maxQty": "4000", "stepSize": "0.0001"},
				{"filterType": "MIN_NOTIONAL", "minNotional": "5"}
			]
		}
	],
	"contracts": [
		{
			"symbol": "BTC-SWAP-USDT",
			"status": "TRADING",
			"baseAsset": "BTC-SWAP-USDT",
			"quoteAsset": "USDT",
			"marginToken": "USDT",
			"inverse": false,
			"underlying": "BTC",
			"contractMultiplier": "0.001",
			"filters": [
				{"filterType": "PRICE_FILTER", "tickSize": "0.1"},
				{"filterType": "LOT_SIZE", "stepSize": "1"}
			]
		}
	],
	"coins": [
		{
			"coinId": "TCOM",
			"coinFullName": "TCOM",
			"allowWithdraw": true,
			"allowDeposit": true,
			"chainTypes": [
				{"chainType": "BSC", "withdrawFee": "49.55478", "minWithdrawQuantity": "77", "allowDeposit": true, "allowWithdraw": false}
			]
		}
	]
}`

func newTestAdapter(t *testing.T, handler http.Handler) (*Adapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	ad, err := New(exchange.Config{
		BaseURL:     srv.URL,
		Credentials: sign.Credentials{APIKey: "key", Secret: "secret"},
		HTTPClient:  srv.Client(),
	}, logger.Logger().WithComponent("toobit-test"))
	require.NoError(t, err)
	return ad.(*Adapter), srv
}

func TestFetchMarkets(t *testing.T) {
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/exchangeInfo", r.URL.Path)
		w.Write([]byte(exchangeInfoFixture))
	}))

	markets, err := a.FetchMarkets(context.Background(), nil)
	require.NoError(t, err)
	require.Len(t, markets, 2)

	spot, ok := a.markets.BySymbol("ETH/USDT")
	require.True(t, ok)
	require.Equal(t, "ETHUSDT", spot.ID)
	require.Equal(t, unified.TypeSpot, spot.Type)
	require.True(t, spot.Active)
	require.Equal(t, "0.0001", spot.Precision.Amount.Decimal.String())
	require.Equal(t, "5", spot.Limits.Cost.Min.Decimal.String())

	swap, ok := a.markets.BySymbol("BTC/USDT:USDT")
	require.True(t, ok)
	require.True(t, swap.Contract)
	require.True(t, swap.Linear)
	require.Equal(t, "0.001", swap.ContractSize.Decimal.String())
}

func TestFetchCurrenciesNetworks(t *testing.T) {
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(exchangeInfoFixture))
	}))
	currencies, err := a.FetchCurrencies(context.Background(), nil)
	require.NoError(t, err)
	tcom := currencies["TCOM"]
	require.True(t, tcom.Deposit)
	bsc := tcom.Networks["BSC"]
	require.True(t, bsc.Deposit)
	require.False(t, bsc.Withdraw)
	require.Equal(t, "49.55478", bsc.Fee.Decimal.String())
}

func TestFetchOrderBookSorted(t *testing.T) {
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/exchangeInfo" {
			w.Write([]byte(exchangeInfoFixture))
			return
		}
		require.Equal(t, "/quote/v1/depth", r.URL.Path)
		require.Equal(t, "ETHUSDT", r.URL.Query().Get("symbol"))
		w.Write([]byte(`{"t": "1755593995237",
			"b": [["99", "2"], ["100", "1"]],
			"a": [["102", "3"], ["101", "1"]]}`))
	}))

	book, err := a.FetchOrderBook(context.Background(), "ETH/USDT", 0, nil)
	require.NoError(t, err)
	require.Equal(t, int64(1755593995237), book.Timestamp.UnixMilli())
	require.Equal(t, "100", book.Bids[0].Price.String())
	require.Equal(t, "99", book.Bids[1].Price.String())
	require.Equal(t, "101", book.Asks[0].Price.String())
	require.Equal(t, "102", book.Asks[1].Price.String())
}

func TestCreateOrderSignsQuery(t *testing.T) {
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/exchangeInfo" {
			w.Write([]byte(exchangeInfoFixture))
			return
		}
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/v1/spot/order", r.URL.Path)
		q := r.URL.Query()
		require.Equal(t, "key", r.Header.Get("X-BB-APIKEY"))
		require.NotEmpty(t, q.Get("signature"))
		require.NotEmpty(t, q.Get("timestamp"))
		require.Equal(t, "5000", q.Get("recvWindow"))
		require.Equal(t, "ETHUSDT", q.Get("symbol"))
		require.Equal(t, "BUY", q.Get("side"))
		require.Equal(t, "LIMIT", q.Get("type"))
		// amount rounded to the 0.0001 step
		require.Equal(t, "0.0020", q.Get("quantity"))
		require.NotEmpty(t, q.Get("newClientOrderId"))
		w.Write([]byte(`{"symbol": "ETHUSDT", "clientOrderId": "abc", "orderId": "2024837825254460160",
			"transactTime": "1756115478604", "price": "3000", "origQty": "0.002", "executedQty": "0",
			"status": "PENDING_NEW", "timeInForce": "GTC", "type": "LIMIT", "side": "BUY"}`))
	}))

	order, err := a.CreateOrder(context.Background(), "ETH/USDT", unified.TypeLimit, unified.SideBuy,
		decimal.RequireFromString("0.002"), unified.N(decimal.RequireFromString("3000")), nil)
	require.NoError(t, err)
	require.Equal(t, unified.StatusOpen, order.Status)
	require.Equal(t, "2024837825254460160", order.ID)
	require.Equal(t, "3000", order.Price.Decimal.String())
	require.Equal(t, "0.002", order.Remaining.Decimal.String())
}

func TestCreateMarketBuySizedByCost(t *testing.T) {
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/exchangeInfo" {
			w.Write([]byte(exchangeInfoFixture))
			return
		}
		q := r.URL.Query()
		require.Equal(t, "MARKET", q.Get("type"))
		// 0.002 ETH at 3000 → 6 USDT to spend, at the 0.0001 quote step,
		// not the coarser 0.01 price tick
		require.Equal(t, "6.0000", q.Get("quantity"))
		w.Write([]byte(`{"symbol": "ETHUSDT", "orderId": "1", "status": "FILLED",
			"executedQty": "0.002", "origQty": "0.002", "type": "MARKET", "side": "BUY"}`))
	}))

	order, err := a.CreateOrder(context.Background(), "ETH/USDT", unified.TypeMarket, unified.SideBuy,
		decimal.RequireFromString("0.002"), unified.N(decimal.RequireFromString("3000")), nil)
	require.NoError(t, err)
	require.Equal(t, unified.StatusClosed, order.Status)
}

func TestCreateMarketBuyWithoutPriceFailsLocally(t *testing.T) {
	calls := 0
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/exchangeInfo" {
			w.Write([]byte(exchangeInfoFixture))
			return
		}
		calls++
	}))

	_, err := a.CreateOrder(context.Background(), "ETH/USDT", unified.TypeMarket, unified.SideBuy,
		decimal.NewFromInt(1), unified.Number{}, nil)
	require.ErrorIs(t, err, errs.ErrInvalidOrder)
	require.Zero(t, calls, "the order must be rejected before any network call")

	// an explicit cost param lifts the requirement
	a2, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/exchangeInfo" {
			w.Write([]byte(exchangeInfoFixture))
			return
		}
		require.Equal(t, "10.00", r.URL.Query().Get("quantity"))
		w.Write([]byte(`{"symbol": "ETHUSDT", "orderId": "2", "status": "FILLED", "type": "MARKET", "side": "BUY"}`))
	}))
	_, err = a2.CreateOrder(context.Background(), "ETH/USDT", unified.TypeMarket, unified.SideBuy,
		decimal.NewFromInt(1), unified.Number{}, exchange.Params{"cost": decimal.NewFromInt(10)})
	require.NoError(t, err)
}

func TestCreateOrderWithoutSecretFailsLocally(t *testing.T) {
	calls := 0
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/exchangeInfo" {
			w.Write([]byte(exchangeInfoFixture))
			return
		}
		calls++
	}))
	a.creds.Secret = ""

	_, err := a.CreateOrder(context.Background(), "ETH/USDT", unified.TypeLimit, unified.SideBuy,
		decimal.NewFromInt(1), unified.N(decimal.NewFromInt(100)), nil)
	require.ErrorIs(t, err, errs.ErrAuthentication)
	require.Zero(t, calls, "no private request may leave the process without credentials")
}

func TestOrderStatusReclassification(t *testing.T) {
	require.Equal(t, unified.StatusCanceled, orderStatus("CLOSED", "User cancelled"))
	require.Equal(t, unified.StatusClosed, orderStatus("CLOSED", "Filled"))
	require.Equal(t, unified.StatusClosed, orderStatus("CLOSED", ""))
	require.Equal(t, unified.StatusOpen, orderStatus("PARTIALLY_FILLED", ""))
	require.Equal(t, unified.StatusRejected, orderStatus("REJECTED", ""))
	// unmapped statuses pass through for observability
	require.Equal(t, unified.OrderStatus("ODDBALL"), orderStatus("ODDBALL", ""))
}

func TestErrorClassification(t *testing.T) {
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/exchangeInfo" {
			w.Write([]byte(exchangeInfoFixture))
			return
		}
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"code": "-1121", "msg": "Invalid symbol."}`))
	}))

	_, err := a.FetchOrder(context.Background(), "1", "ETH/USDT", nil)
	require.ErrorIs(t, err, errs.ErrBadSymbol)

	var uerr *errs.Error
	require.True(t, errors.As(err, &uerr))
	require.Equal(t, "-1121", uerr.Code)
	require.Equal(t, "Invalid symbol.", uerr.Message)
	require.False(t, uerr.Local)
}

func TestFetchBalance(t *testing.T) {
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/account", r.URL.Path)
		require.NotEmpty(t, r.URL.Query().Get("signature"))
		w.Write([]byte(`{"userId": "912902020", "balances": [
			{"asset": "ETH", "total": "0.025", "free": "0.015", "locked": "0.01"}]}`))
	}))

	balances, err := a.FetchBalance(context.Background(), nil)
	require.NoError(t, err)
	eth := balances.Accounts["ETH"]
	require.Equal(t, "0.025", eth.Total.Decimal.String())
	require.Equal(t, "0.015", eth.Free.Decimal.String())
	require.Equal(t, "0.01", eth.Used.Decimal.String())
}

func TestSyncTimeOffset(t *testing.T) {
	future := time.Now().Add(90 * time.Second).UnixMilli()
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/v1/time", r.URL.Path)
		w.Write([]byte(`{"serverTime": ` + itoa(future) + `}`))
	}))

	require.NoError(t, a.SyncTime(context.Background()))
	drift := a.now().Sub(time.Now())
	require.Greater(t, drift, 80*time.Second)
	require.Less(t, drift, 100*time.Second)
}

func itoa(v int64) string {
	return decimal.NewFromInt(v).String()
}

func TestPublicRetriesTransientFailures(t *testing.T) {
	calls := 0
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(exchangeInfoFixture))
	}))

	markets, err := a.FetchMarkets(context.Background(), nil)
	require.NoError(t, err)
	require.NotEmpty(t, markets)
	require.Equal(t, 3, calls)
}

func TestMutatingCallsAreNeverRetried(t *testing.T) {
	orderCalls := 0
	a, _ := newTestAdapter(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/v1/exchangeInfo" {
			w.Write([]byte(exchangeInfoFixture))
			return
		}
		orderCalls++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	_, err := a.CreateOrder(context.Background(), "ETH/USDT", unified.TypeLimit, unified.SideBuy,
		decimal.RequireFromString("0.002"), unified.N(decimal.RequireFromString("3000")), nil)
	require.ErrorIs(t, err, errs.ErrExchangeNotAvailable)
	require.Equal(t, 1, orderCalls)
}

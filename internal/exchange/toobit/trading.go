package toobit

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"unifex/internal/errs"
	"unifex/internal/exchange"
	"unifex/internal/request"
	"unifex/internal/safe"
	"unifex/internal/unified"
)

var orderStatuses = map[string]unified.OrderStatus{
	"PENDING_NEW":      unified.StatusOpen,
	"NEW":              unified.StatusOpen,
	"PARTIALLY_FILLED": unified.StatusOpen,
	"FILLED":           unified.StatusClosed,
	"CLOSED":           unified.StatusClosed,
	"PENDING_CANCEL":   unified.StatusCanceled,
	"CANCELED":         unified.StatusCanceled,
	"REJECTED":         unified.StatusRejected,
}

// orderStatus maps a raw status, with one documented exception: the exchange
// reports cancel-closed orders as CLOSED and only distinguishes them by the
// free-text reason "User cancelled". That exact string match is brittle but
// it is the only cancel signal the API exposes.
func orderStatus(raw, reason string) unified.OrderStatus {
	if raw == "CLOSED" && reason == "User cancelled" {
		return unified.StatusCanceled
	}
	return unified.MapStatus(orderStatuses, raw)
}

var orderTypes = map[string]unified.OrderType{
	"MARKET":      unified.TypeMarket,
	"LIMIT":       unified.TypeLimit,
	"LIMIT_MAKER": unified.TypeLimit,
}

// CreateOrder places a spot order. A client order id is generated when the
// caller supplies none so fills can always be correlated.
func (a *Adapter) CreateOrder(ctx context.Context, symbol string, typ unified.OrderType, side unified.OrderSide,
	amount decimal.Decimal, price unified.Number, params exchange.Params) (*unified.Order, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	query := url.Values{
		"symbol": {m.ID},
		"side":   {strings.ToUpper(string(side))},
	}
	if typ == unified.TypeMarket && side == unified.SideBuy {
		// market buys are sized as quote cost to spend, not base quantity
		cost, err := request.MarketBuyCost(name, amount, price, params.Decimal("cost"),
			!params.Has("createMarketBuyOrderRequiresPrice") || params.Bool("createMarketBuyOrderRequiresPrice"))
		if err != nil {
			return nil, err
		}
		formatted, err := request.Cost(m, cost)
		if err != nil {
			return nil, errs.InvalidOrder(name, err.Error())
		}
		query.Set("quantity", formatted)
	} else {
		quantity, err := request.Amount(m, amount)
		if err != nil {
			return nil, errs.InvalidOrder(name, err.Error())
		}
		query.Set("quantity", quantity)
	}
	if typ == unified.TypeLimit && !price.Valid {
		return nil, errs.InvalidOrder(name, "limit orders require a price")
	}
	if price.Valid {
		p, err := request.Price(m, price.Decimal)
		if err != nil {
			return nil, errs.InvalidOrder(name, err.Error())
		}
		query.Set("price", p)
	}
	orderType := strings.ToUpper(string(typ))
	if typ == unified.TypeLimit && params.Bool("postOnly") {
		orderType = "LIMIT_MAKER"
	}
	query.Set("type", orderType)
	clientID := params.String("clientOrderId")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	query.Set("newClientOrderId", clientID)
	if tif := params.String("timeInForce"); tif != "" {
		query.Set("timeInForce", tif)
	}

	raw, err := a.private(ctx, http.MethodPost, "/api/v1/spot/order", query)
	if err != nil {
		return nil, err
	}
	return a.parseOrderBody(raw, symbol)
}

// CancelOrder cancels one open order by exchange id.
func (a *Adapter) CancelOrder(ctx context.Context, id, symbol string, params exchange.Params) (*unified.Order, error) {
	raw, err := a.private(ctx, http.MethodDelete, "/api/v1/spot/order", url.Values{"orderId": {id}})
	if err != nil {
		return nil, err
	}
	return a.parseOrderBody(raw, symbol)
}

// CancelAllOrders cancels every open order, optionally scoped to one market.
func (a *Adapter) CancelAllOrders(ctx context.Context, symbol string, params exchange.Params) error {
	query := url.Values{}
	if symbol != "" {
		if err := a.loadMarkets(ctx); err != nil {
			return err
		}
		m, err := a.markets.Resolve(name, symbol)
		if err != nil {
			return err
		}
		query.Set("symbol", m.ID)
	}
	_, err := a.private(ctx, http.MethodDelete, "/api/v1/spot/openOrders", query)
	return err
}

// FetchOrder looks up one order by exchange id.
func (a *Adapter) FetchOrder(ctx context.Context, id, symbol string, params exchange.Params) (*unified.Order, error) {
	raw, err := a.private(ctx, http.MethodGet, "/api/v1/spot/order", url.Values{"orderId": {id}})
	if err != nil {
		return nil, err
	}
	return a.parseOrderBody(raw, symbol)
}

// FetchOpenOrders lists resting orders.
func (a *Adapter) FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Order, error) {
	return a.fetchOrderList(ctx, "/api/v1/spot/openOrders", symbol, since, limit)
}

// FetchClosedOrders lists finished orders.
func (a *Adapter) FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Order, error) {
	return a.fetchOrderList(ctx, "/api/v1/spot/tradeOrders", symbol, since, limit)
}

// FetchOrders lists the order history regardless of state.
func (a *Adapter) FetchOrders(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Order, error) {
	return a.fetchOrderList(ctx, "/api/v1/spot/tradeOrders", symbol, since, limit)
}

func (a *Adapter) fetchOrderList(ctx context.Context, path, symbol string, since time.Time, limit int) ([]unified.Order, error) {
	query := url.Values{}
	if symbol != "" {
		if err := a.loadMarkets(ctx); err != nil {
			return nil, err
		}
		m, err := a.markets.Resolve(name, symbol)
		if err != nil {
			return nil, err
		}
		query.Set("symbol", m.ID)
	}
	if !since.IsZero() {
		query.Set("startTime", strconv.FormatInt(since.UnixMilli(), 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	raw, err := a.private(ctx, http.MethodGet, path, query)
	if err != nil {
		return nil, err
	}
	rows, err := safe.ParseArray(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected order list payload: "+err.Error())
	}
	out := make([]unified.Order, 0, len(rows))
	for _, v := range rows {
		out = append(out, a.parseOrder(safe.Object(v), ""))
	}
	return out, nil
}

// FetchMyTrades lists the caller's fills.
func (a *Adapter) FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Trade, error) {
	query := url.Values{}
	if symbol != "" {
		if err := a.loadMarkets(ctx); err != nil {
			return nil, err
		}
		m, err := a.markets.Resolve(name, symbol)
		if err != nil {
			return nil, err
		}
		query.Set("symbol", m.ID)
	}
	if !since.IsZero() {
		query.Set("startTime", strconv.FormatInt(since.UnixMilli(), 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	raw, err := a.private(ctx, http.MethodGet, "/api/v1/account/trades", query)
	if err != nil {
		return nil, err
	}
	rows, err := safe.ParseArray(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected trade list payload: "+err.Error())
	}
	out := make([]unified.Trade, 0, len(rows))
	for _, v := range rows {
		row := safe.Object(v)
		side := unified.SideBuy
		if !safe.BoolOr(row, true, "isBuyer") {
			side = unified.SideSell
		}
		takerOrMaker := unified.Taker
		if safe.BoolOr(row, false, "isMaker") {
			takerOrMaker = unified.Maker
		}
		symbolOut := symbol
		if m, ok := a.markets.ByID(safe.String(row, "symbol")); ok {
			symbolOut = m.Symbol
		}
		out = append(out, unified.Trade{
			ID:           safe.String(row, "id", "tradeId"),
			OrderID:      safe.String(row, "orderId"),
			Symbol:       symbolOut,
			Timestamp:    safe.MillisTime(row, "time", "t"),
			Side:         side,
			Price:        safe.Decimal(row, "price"),
			Amount:       safe.Decimal(row, "qty"),
			Cost:         safe.Decimal(row, "quoteQty"),
			TakerOrMaker: takerOrMaker,
			Fee:          unified.ParseFee(row, []string{"commission"}, []string{"commissionAsset"}),
		})
	}
	return out, nil
}

// FetchPositions lists open swap positions.
func (a *Adapter) FetchPositions(ctx context.Context, syms []string, params exchange.Params) ([]unified.Position, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	raw, err := a.private(ctx, http.MethodGet, "/api/v1/futures/positions", url.Values{})
	if err != nil {
		return nil, err
	}
	rows, err := safe.ParseArray(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected positions payload: "+err.Error())
	}
	want := make(map[string]bool, len(syms))
	for _, s := range syms {
		want[s] = true
	}
	var out []unified.Position
	for _, v := range rows {
		row := safe.Object(v)
		m, ok := a.markets.ByID(safe.String(row, "symbol"))
		if !ok {
			continue
		}
		if len(want) > 0 && !want[m.Symbol] {
			continue
		}
		side := unified.PositionLong
		if strings.EqualFold(safe.String(row, "side"), "SHORT") {
			side = unified.PositionShort
		}
		out = append(out, unified.Position{
			Symbol:        m.Symbol,
			Side:          side,
			Contracts:     safe.Decimal(row, "position"),
			ContractSize:  m.ContractSize,
			EntryPrice:    safe.Decimal(row, "avgPrice"),
			MarkPrice:     safe.Decimal(row, "markPrice"),
			Leverage:      safe.Decimal(row, "leverage"),
			UnrealizedPnl: safe.Decimal(row, "unrealizedPnL"),
			MarginMode:    strings.ToLower(safe.String(row, "marginType")),
			Timestamp:     safe.MillisTime(row, "time"),
		})
	}
	return out, nil
}

// SetLeverage sets the leverage multiplier for one swap market.
func (a *Adapter) SetLeverage(ctx context.Context, symbol string, leverage int, params exchange.Params) error {
	if leverage < 1 {
		return errs.BadRequest(name, "leverage must be at least 1")
	}
	if err := a.loadMarkets(ctx); err != nil {
		return err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return err
	}
	if !m.Contract {
		return errs.BadRequest(name, "leverage applies to contract markets only")
	}
	_, err = a.private(ctx, http.MethodPost, "/api/v1/futures/leverage", url.Values{
		"symbol":   {m.ID},
		"leverage": {strconv.Itoa(leverage)},
	})
	return err
}

func (a *Adapter) parseOrderBody(raw []byte, symbol string) (*unified.Order, error) {
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected order payload: "+err.Error())
	}
	order := a.parseOrder(obj, symbol)
	return &order, nil
}

func (a *Adapter) parseOrder(raw map[string]any, symbol string) unified.Order {
	if symbol == "" {
		if m, ok := a.markets.ByID(safe.String(raw, "symbol")); ok {
			symbol = m.Symbol
		}
	}
	rawType := safe.String(raw, "type")
	order := unified.Order{
		ID:            safe.String(raw, "orderId"),
		ClientOrderID: safe.String(raw, "clientOrderId"),
		Symbol:        symbol,
		Timestamp:     safe.MillisTime(raw, "transactTime", "time"),
		Type:          unified.MapStatus(orderTypes, rawType),
		Side:          unified.OrderSide(strings.ToLower(safe.String(raw, "side"))),
		Amount:        safe.Decimal(raw, "origQty"),
		Filled:        safe.Decimal(raw, "executedQty"),
		Cost:          safe.Decimal(raw, "cumulativeQuoteQty", "cummulativeQuoteQty"),
		Status:        orderStatus(safe.String(raw, "status"), safe.String(raw, "statusReason")),
		TimeInForce:   safe.String(raw, "timeInForce"),
		PostOnly:      rawType == "LIMIT_MAKER",
	}
	// zero means unset on this API, for prices and averages alike
	if p := safe.Decimal(raw, "price"); p.Valid && !p.Decimal.IsZero() {
		order.Price = p
	}
	if avg := safe.Decimal(raw, "avgPrice"); avg.Valid && !avg.Decimal.IsZero() {
		order.Average = avg
	}
	if trigger := safe.Decimal(raw, "stopPrice"); trigger.Valid && !trigger.Decimal.IsZero() {
		order.TriggerPrice = trigger
	}
	if order.Amount.Valid && order.Filled.Valid {
		order.Remaining = unified.N(order.Amount.Decimal.Sub(order.Filled.Decimal))
	}
	return order
}

package bingx

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
	"NEW":              unified.StatusOpen,
	"PENDING":          unified.StatusOpen,
	"PARTIALLY_FILLED": unified.StatusOpen,
	"FILLED":           unified.StatusClosed,
	"CANCELED":         unified.StatusCanceled,
	"CANCELLED":        unified.StatusCanceled,
	"FAILED":           unified.StatusRejected,
}

// FetchBalance returns the perpetual account balance.
func (a *Adapter) FetchBalance(ctx context.Context, params exchange.Params) (*unified.Balances, error) {
	obj, err := a.private(ctx, http.MethodGet, "/openApi/swap/v2/user/balance", url.Values{}, nil)
	if err != nil {
		return nil, err
	}
	data := safe.Map(obj, "data")
	row := safe.Map(data, "balance")
	out := &unified.Balances{Accounts: make(map[string]unified.Account)}
	code := safe.String(row, "asset")
	if code != "" {
		total := safe.Decimal(row, "balance")
		free := safe.Decimal(row, "availableMargin")
		used := safe.Decimal(row, "usedMargin")
		out.Accounts[code] = unified.Account{Free: free, Used: used, Total: total}
	}
	return out, nil
}

// CreateOrder places a perpetual order.
func (a *Adapter) CreateOrder(ctx context.Context, symbol string, typ unified.OrderType, side unified.OrderSide,
	amount decimal.Decimal, price unified.Number, params exchange.Params) (*unified.Order, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	quantity, err := request.Amount(m, amount)
	if err != nil {
		return nil, errs.InvalidOrder(name, err.Error())
	}
	query := url.Values{
		"symbol":   {m.ID},
		"side":     {strings.ToUpper(string(side))},
		"type":     {strings.ToUpper(string(typ))},
		"quantity": {quantity},
	}
	if typ == unified.TypeLimit {
		if !price.Valid {
			return nil, errs.InvalidOrder(name, "limit orders require a price")
		}
		p, err := request.Price(m, price.Decimal)
		if err != nil {
			return nil, errs.InvalidOrder(name, err.Error())
		}
		query.Set("price", p)
	}
	positionSide := params.String("positionSide")
	if positionSide == "" {
		positionSide = "BOTH"
	}
	query.Set("positionSide", positionSide)
	clientID := params.String("clientOrderId")
	if clientID == "" {
		clientID = uuid.NewString()
	}
	query.Set("clientOrderID", clientID)

	obj, err := a.private(ctx, http.MethodPost, "/openApi/swap/v2/trade/order", query, nil)
	if err != nil {
		return nil, err
	}
	order := a.parseOrder(safe.Map(safe.Map(obj, "data"), "order"), symbol)
	return &order, nil
}

// CancelOrder cancels one open order.
func (a *Adapter) CancelOrder(ctx context.Context, id, symbol string, params exchange.Params) (*unified.Order, error) {
	if symbol == "" {
		return nil, errs.ArgumentsRequired(name, "cancelOrder requires a symbol")
	}
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	obj, err := a.private(ctx, http.MethodDelete, "/openApi/swap/v2/trade/order",
		url.Values{"symbol": {m.ID}, "orderId": {id}}, nil)
	if err != nil {
		return nil, err
	}
	order := a.parseOrder(safe.Map(safe.Map(obj, "data"), "order"), symbol)
	return &order, nil
}

// FetchOpenOrders lists resting perpetual orders.
func (a *Adapter) FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Order, error) {
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
	obj, err := a.private(ctx, http.MethodGet, "/openApi/swap/v2/trade/openOrders", query, nil)
	if err != nil {
		return nil, err
	}
	var out []unified.Order
	for _, v := range safe.Slice(safe.Map(obj, "data"), "orders") {
		out = append(out, a.parseOrder(safe.Object(v), symbol))
	}
	return out, nil
}

// FetchMyTrades lists the caller's fills. The exchange demands a bounded
// window: absent bounds default to the last seven days, and anything older
// than ninety days is rejected before the request leaves the process.
func (a *Adapter) FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Trade, error) {
	if symbol == "" {
		return nil, errs.ArgumentsRequired(name, "fetchMyTrades requires a symbol")
	}
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	var until time.Time
	if u := params.Decimal("until"); u.Valid {
		until = time.UnixMilli(u.Decimal.IntPart()).UTC()
	}
	from, to := request.Window(since, until, now, defaultWindow)
	if err := request.EnforceLookback(name, from, now, maxLookback); err != nil {
		return nil, err
	}
	query := url.Values{
		"symbol":  {m.ID},
		"startTs": {strconv.FormatInt(from.UnixMilli(), 10)},
		"endTs":   {strconv.FormatInt(to.UnixMilli(), 10)},
	}
	obj, err := a.private(ctx, http.MethodGet, "/openApi/swap/v2/trade/allFillOrders", query, nil)
	if err != nil {
		return nil, err
	}
	var out []unified.Trade
	for _, v := range safe.Slice(safe.Map(obj, "data"), "fill_orders") {
		row := safe.Object(v)
		price := safe.Decimal(row, "price")
		amount := safe.Decimal(row, "volume")
		trade := unified.Trade{
			ID:        safe.String(row, "tradeId"),
			OrderID:   safe.String(row, "orderId"),
			Symbol:    m.Symbol,
			Timestamp: safe.ISOTime(row, "filledTime"),
			Side:      unified.OrderSide(strings.ToLower(safe.String(row, "side"))),
			Price:     price,
			Amount:    amount,
			Cost:      safe.Decimal(row, "amount"),
			Fee:       unified.ParseFee(row, []string{"commission"}, []string{"currency"}),
		}
		if trade.Timestamp.IsZero() {
			trade.Timestamp = safe.MillisTime(row, "filledTm", "time")
		}
		out = append(out, trade)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// FetchPositions lists open perpetual positions.
func (a *Adapter) FetchPositions(ctx context.Context, syms []string, params exchange.Params) ([]unified.Position, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	obj, err := a.private(ctx, http.MethodGet, "/openApi/swap/v2/user/positions", url.Values{}, nil)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(syms))
	for _, s := range syms {
		want[s] = true
	}
	var out []unified.Position
	for _, v := range safe.Slice(obj, "data") {
		row := safe.Object(v)
		m, ok := a.markets.ByID(safe.String(row, "symbol"))
		if !ok {
			continue
		}
		if len(want) > 0 && !want[m.Symbol] {
			continue
		}
		side := unified.PositionLong
		if strings.EqualFold(safe.String(row, "positionSide"), "SHORT") {
			side = unified.PositionShort
		}
		marginMode := "cross"
		if safe.BoolOr(row, false, "isolated") {
			marginMode = "isolated"
		}
		out = append(out, unified.Position{
			Symbol:        m.Symbol,
			Side:          side,
			Contracts:     safe.Decimal(row, "positionAmt"),
			ContractSize:  m.ContractSize,
			EntryPrice:    safe.Decimal(row, "avgPrice", "entryPrice"),
			Notional:      safe.Decimal(row, "positionAmt"),
			Leverage:      safe.Decimal(row, "leverage"),
			UnrealizedPnl: safe.Decimal(row, "unrealizedProfit"),
			InitialMargin: safe.Decimal(row, "initialMargin"),
			MarginMode:    marginMode,
		})
	}
	return out, nil
}

// SetLeverage sets the leverage multiplier for one contract.
func (a *Adapter) SetLeverage(ctx context.Context, symbol string, leverage int, params exchange.Params) error {
	if leverage < 1 {
		return errs.BadRequest(name, "leverage must be at least 1")
	}
	if symbol == "" {
		return errs.ArgumentsRequired(name, "setLeverage requires a symbol")
	}
	if err := a.loadMarkets(ctx); err != nil {
		return err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return err
	}
	side := params.String("positionSide")
	if side == "" {
		side = "BOTH"
	}
	_, err = a.private(ctx, http.MethodPost, "/openApi/swap/v2/trade/leverage", url.Values{
		"symbol":   {m.ID},
		"leverage": {strconv.Itoa(leverage)},
		"side":     {side},
	}, nil)
	return err
}

// SetMarginMode switches one contract between isolated and cross margin.
func (a *Adapter) SetMarginMode(ctx context.Context, symbol, mode string, params exchange.Params) error {
	mode = strings.ToUpper(mode)
	if mode != "ISOLATED" && mode != "CROSSED" && mode != "CROSS" {
		return errs.BadRequest(name, "margin mode must be isolated or cross")
	}
	if mode == "CROSS" {
		mode = "CROSSED"
	}
	if symbol == "" {
		return errs.ArgumentsRequired(name, "setMarginMode requires a symbol")
	}
	if err := a.loadMarkets(ctx); err != nil {
		return err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return err
	}
	_, err = a.private(ctx, http.MethodPost, "/openApi/swap/v2/trade/marginType", url.Values{
		"symbol":     {m.ID},
		"marginType": {mode},
	}, nil)
	return err
}

func (a *Adapter) parseOrder(raw map[string]any, symbol string) unified.Order {
	if symbol == "" {
		if m, ok := a.markets.ByID(safe.String(raw, "symbol")); ok {
			symbol = m.Symbol
		}
	}
	order := unified.Order{
		ID:            safe.String(raw, "orderId"),
		ClientOrderID: safe.String(raw, "clientOrderID", "clientOrderId"),
		Symbol:        symbol,
		Timestamp:     safe.MillisTime(raw, "time", "transactTime"),
		Type:          unified.OrderType(strings.ToLower(safe.String(raw, "type"))),
		Side:          unified.OrderSide(strings.ToLower(safe.String(raw, "side"))),
		Price:         safe.Decimal(raw, "price"),
		Amount:        safe.Decimal(raw, "origQty", "quantity"),
		Filled:        safe.Decimal(raw, "executedQty"),
		Average:       safe.Decimal(raw, "avgPrice"),
		Status:        unified.MapStatus(orderStatuses, safe.String(raw, "status")),
		ReduceOnly:    safe.BoolOr(raw, false, "reduceOnly"),
	}
	if order.Amount.Valid && order.Filled.Valid {
		order.Remaining = unified.N(order.Amount.Decimal.Sub(order.Filled.Decimal))
	}
	return order
}

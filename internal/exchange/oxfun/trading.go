package oxfun

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"unifex/internal/errs"
	"unifex/internal/exchange"
	"unifex/internal/paginate"
	"unifex/internal/request"
	"unifex/internal/safe"
	"unifex/internal/unified"
)

var orderStatuses = map[string]unified.OrderStatus{
	"OPEN":                              unified.StatusOpen,
	"PARTIALLY_FILLED":                  unified.StatusOpen,
	"PARTIAL_FILL":                      unified.StatusOpen,
	"FILLED":                            unified.StatusClosed,
	"CANCELED":                          unified.StatusCanceled,
	"CANCELED_BY_USER":                  unified.StatusCanceled,
	"CANCELED_PARTIAL_BY_IOC":           unified.StatusCanceled,
	"CANCELED_BY_MAKER_ONLY":            unified.StatusRejected,
	"CANCELED_BY_FOK":                   unified.StatusRejected,
	"CANCELED_ALL_BY_IOC":               unified.StatusRejected,
	"CANCELED_BY_SELF_TRADE_PROTECTION": unified.StatusRejected,
}

var orderTypes = map[string]unified.OrderType{
	"LIMIT":       unified.TypeLimit,
	"STOP_LIMIT":  unified.TypeLimit,
	"MARKET":      unified.TypeMarket,
	"STOP_MARKET": unified.TypeMarket,
}

// FetchBalance returns the main account balances, or a named sub-account's
// when the subAcc param is given.
func (a *Adapter) FetchBalance(ctx context.Context, params exchange.Params) (*unified.Balances, error) {
	obj, err := a.private(ctx, http.MethodGet, "/v3/balances", url.Values{}, nil)
	if err != nil {
		return nil, err
	}
	accounts := safe.Slice(obj, "data")
	if len(accounts) == 0 {
		return &unified.Balances{Accounts: map[string]unified.Account{}}, nil
	}
	account := safe.Object(accounts[0])
	if subAcc := params.String("subAcc"); subAcc != "" {
		for _, v := range accounts {
			if row := safe.Object(v); safe.String(row, "name") == subAcc {
				account = row
				break
			}
		}
	}
	out := &unified.Balances{Accounts: make(map[string]unified.Account)}
	for _, v := range safe.Slice(account, "balances") {
		row := safe.Object(v)
		code := strings.ToUpper(safe.String(row, "asset"))
		if code == "" {
			continue
		}
		out.Accounts[code] = unified.Account{
			Total: safe.Decimal(row, "total"),
			Free:  safe.Decimal(row, "available"),
			Used:  safe.Decimal(row, "reserved"),
		}
		if ts := safe.MillisTime(row, "lastUpdatedAt"); ts.After(out.Timestamp) {
			out.Timestamp = ts
		}
	}
	return out, nil
}

// CreateOrder places one order through the batch endpoint. A triggerPrice
// param turns a plain limit/market order into its stop variant; post-only
// on a market order cannot be honored and is rejected locally.
func (a *Adapter) CreateOrder(ctx context.Context, symbol string, typ unified.OrderType, side unified.OrderSide,
	amount decimal.Decimal, price unified.Number, params exchange.Params) (*unified.Order, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	entry := map[string]any{
		"marketCode": m.ID,
		"side":       strings.ToUpper(string(side)),
	}
	if cost := params.Decimal("cost"); cost.Valid {
		entry["amount"] = json.Number(cost.Decimal.String())
	} else {
		quantity, qerr := request.Amount(m, amount)
		if qerr != nil {
			return nil, errs.InvalidOrder(name, qerr.Error())
		}
		entry["quantity"] = json.Number(quantity)
	}
	orderType := strings.ToUpper(string(typ))
	trigger := params.Decimal("triggerPrice")
	if trigger.Valid {
		switch orderType {
		case "MARKET":
			orderType = "STOP_MARKET"
		case "LIMIT":
			orderType = "STOP_LIMIT"
		}
		stop, perr := request.Price(m, trigger.Decimal)
		if perr != nil {
			return nil, errs.InvalidOrder(name, perr.Error())
		}
		entry["stopPrice"] = json.Number(stop)
	}
	entry["orderType"] = orderType
	if typ == unified.TypeLimit {
		if !price.Valid {
			return nil, errs.InvalidOrder(name, "limit orders require a price")
		}
		p, perr := request.Price(m, price.Decimal)
		if perr != nil {
			return nil, errs.InvalidOrder(name, perr.Error())
		}
		// stop-limit orders carry the resting price in limitPrice
		if orderType == "STOP_LIMIT" {
			entry["limitPrice"] = json.Number(p)
		} else {
			entry["price"] = json.Number(p)
		}
	}
	if params.Bool("postOnly") {
		if typ == unified.TypeMarket {
			return nil, errs.InvalidOrder(name, "market orders cannot be post-only")
		}
		entry["timeInForce"] = "MAKER_ONLY"
	} else if tif := params.String("timeInForce"); tif != "" {
		entry["timeInForce"] = tif
	}
	if clientID := params.String("clientOrderId"); clientID != "" {
		entry["clientOrderId"] = json.Number(clientID)
	}
	body, err := json.Marshal(map[string]any{
		"responseType": "FULL",
		"timestamp":    a.now().UnixMilli(),
		"orders":       []any{entry},
	})
	if err != nil {
		return nil, errs.Local(name, errs.KindBadRequest, "encode order: "+err.Error())
	}
	obj, err := a.private(ctx, http.MethodPost, "/v3/orders/place", url.Values{}, body)
	if err != nil {
		return nil, err
	}
	return a.firstOrder(obj)
}

// CancelOrder cancels one order through the batch cancel endpoint.
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
	body, err := json.Marshal(map[string]any{
		"responseType": "FULL",
		"timestamp":    a.now().UnixMilli(),
		"orders":       []any{map[string]any{"marketCode": m.ID, "orderId": id}},
	})
	if err != nil {
		return nil, errs.Local(name, errs.KindBadRequest, "encode cancel: "+err.Error())
	}
	obj, err := a.private(ctx, http.MethodDelete, "/v3/orders/cancel", url.Values{}, body)
	if err != nil {
		return nil, err
	}
	return a.firstOrder(obj)
}

// CancelAllOrders queues cancellation of every working order, optionally
// scoped to one market.
func (a *Adapter) CancelAllOrders(ctx context.Context, symbol string, params exchange.Params) error {
	payload := map[string]any{}
	if symbol != "" {
		if err := a.loadMarkets(ctx); err != nil {
			return err
		}
		m, err := a.markets.Resolve(name, symbol)
		if err != nil {
			return err
		}
		payload["marketCode"] = m.ID
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errs.Local(name, errs.KindBadRequest, "encode cancel-all: "+err.Error())
	}
	_, err = a.private(ctx, http.MethodDelete, "/v3/orders/cancel-all", url.Values{}, body)
	return err
}

// FetchOrder looks up one order by id.
func (a *Adapter) FetchOrder(ctx context.Context, id, symbol string, params exchange.Params) (*unified.Order, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	obj, err := a.private(ctx, http.MethodGet, "/v3/orders/status", url.Values{"orderId": {id}}, nil)
	if err != nil {
		return nil, err
	}
	order := a.parseOrder(safe.Map(obj, "data"))
	return &order, nil
}

// FetchOpenOrders lists working orders, optionally filtered by market.
func (a *Adapter) FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Order, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	query := url.Values{}
	if symbol != "" {
		m, err := a.markets.Resolve(name, symbol)
		if err != nil {
			return nil, err
		}
		query.Set("marketCode", m.ID)
	}
	obj, err := a.private(ctx, http.MethodGet, "/v3/orders/working", query, nil)
	if err != nil {
		return nil, err
	}
	var out []unified.Order
	for _, v := range safe.Slice(obj, "data") {
		order := a.parseOrder(safe.Object(v))
		if symbol != "" && order.Symbol != symbol {
			continue
		}
		if !since.IsZero() && order.Timestamp.Before(since) {
			continue
		}
		out = append(out, order)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// FetchMyTrades lists fills. The history endpoint caps each request at a
// 7-day window, so older ranges are walked backward page by page.
func (a *Adapter) FetchMyTrades(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Trade, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	marketID := ""
	if symbol != "" {
		m, err := a.markets.Resolve(name, symbol)
		if err != nil {
			return nil, err
		}
		marketID = m.ID
	}
	start := time.Now().UTC()
	if until := params.Decimal("until"); until.Valid {
		start = time.UnixMilli(until.Decimal.IntPart()).UTC()
	}
	if since.IsZero() {
		return a.fetchTradePage(ctx, marketID, start.Add(-historyWindow), start, limit)
	}
	return paginate.Dynamic(ctx, since, start, 0,
		func(ctx context.Context, until time.Time) ([]unified.Trade, time.Time, error) {
			from := until.Add(-historyWindow)
			if from.Before(since) {
				from = since
			}
			page, err := a.fetchTradePage(ctx, marketID, from, until, limit)
			if err != nil {
				return nil, time.Time{}, err
			}
			oldest := time.Time{}
			for _, trade := range page {
				if oldest.IsZero() || trade.Timestamp.Before(oldest) {
					oldest = trade.Timestamp
				}
			}
			return page, oldest, nil
		})
}

func (a *Adapter) fetchTradePage(ctx context.Context, marketID string, from, to time.Time, limit int) ([]unified.Trade, error) {
	query := url.Values{
		"startTime": {strconv.FormatInt(from.UnixMilli(), 10)},
		"endTime":   {strconv.FormatInt(to.UnixMilli(), 10)},
	}
	if marketID != "" {
		query.Set("marketCode", marketID)
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	obj, err := a.private(ctx, http.MethodGet, "/v3/trades", query, nil)
	if err != nil {
		return nil, err
	}
	var out []unified.Trade
	for _, v := range safe.Slice(obj, "data") {
		row := safe.Object(v)
		symbol := safe.String(row, "marketCode")
		if m, ok := a.markets.ByID(symbol); ok {
			symbol = m.Symbol
		}
		out = append(out, unified.Trade{
			ID:           safe.String(row, "matchId"),
			OrderID:      safe.String(row, "orderId"),
			Symbol:       symbol,
			Timestamp:    safe.MillisTime(row, "matchedAt"),
			Side:         unified.OrderSide(strings.ToLower(safe.String(row, "side"))),
			TakerOrMaker: unified.TakerOrMaker(strings.ToLower(safe.String(row, "matchType", "orderMatchType"))),
			Price:        safe.Decimal(row, "matchPrice"),
			Amount:       safe.Decimal(row, "matchQuantity", "matchedQuantity"),
			Fee:          unified.ParseFee(row, []string{"fee"}, []string{"feeAsset"}),
		})
	}
	return out, nil
}

// FetchPositions returns open positions across the account and any
// sub-accounts visible to the key.
func (a *Adapter) FetchPositions(ctx context.Context, syms []string, params exchange.Params) ([]unified.Position, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	obj, err := a.private(ctx, http.MethodGet, "/v3/positions", url.Values{}, nil)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(syms))
	for _, s := range syms {
		want[s] = true
	}
	var out []unified.Position
	for _, av := range safe.Slice(obj, "data") {
		for _, pv := range safe.Slice(safe.Object(av), "positions") {
			row := safe.Object(pv)
			symbol := safe.String(row, "marketCode")
			if m, ok := a.markets.ByID(symbol); ok {
				symbol = m.Symbol
			}
			if len(want) > 0 && !want[symbol] {
				continue
			}
			position := unified.Position{
				Symbol:        symbol,
				MarginMode:    "cross",
				Contracts:     safe.Decimal(row, "position"),
				EntryPrice:    safe.Decimal(row, "entryPrice"),
				MarkPrice:     safe.Decimal(row, "markPrice"),
				UnrealizedPnl: safe.Decimal(row, "positionPnl"),
				Timestamp:     safe.MillisTime(row, "lastUpdatedAt"),
			}
			if position.Contracts.Valid {
				if position.Contracts.Decimal.Sign() < 0 {
					position.Side = unified.PositionShort
				} else if position.Contracts.Decimal.Sign() > 0 {
					position.Side = unified.PositionLong
				}
			}
			out = append(out, position)
		}
	}
	return out, nil
}

// Transfer moves funds between the accounts linked to the key.
func (a *Adapter) Transfer(ctx context.Context, code string, amount decimal.Decimal, from, to string, params exchange.Params) (*unified.Transfer, error) {
	if from == "" || to == "" {
		return nil, errs.ArgumentsRequired(name, "transfer requires fromAccount and toAccount")
	}
	body, err := json.Marshal(map[string]any{
		"asset":       strings.ToUpper(code),
		"quantity":    json.Number(amount.String()),
		"fromAccount": from,
		"toAccount":   to,
	})
	if err != nil {
		return nil, errs.Local(name, errs.KindBadRequest, "encode transfer: "+err.Error())
	}
	obj, err := a.private(ctx, http.MethodPost, "/v3/transfer", url.Values{}, body)
	if err != nil {
		return nil, err
	}
	data := safe.Map(obj, "data")
	return &unified.Transfer{
		ID:          safe.String(data, "id"),
		Currency:    strings.ToUpper(safe.StringOr(data, code, "asset")),
		Amount:      safe.Decimal(data, "quantity"),
		FromAccount: safe.StringOr(data, from, "fromAccount"),
		ToAccount:   safe.StringOr(data, to, "toAccount"),
		Status:      unified.TxOK,
		Timestamp:   safe.MillisTime(data, "transferredAt"),
	}, nil
}

// FetchLedger reconstructs account-level flow from the transfer history. The
// accountId param orients the direction of each row; without it the
// direction is left blank.
func (a *Adapter) FetchLedger(ctx context.Context, code string, since time.Time, limit int, params exchange.Params) ([]unified.LedgerEntry, error) {
	query := url.Values{}
	if code != "" {
		query.Set("asset", strings.ToUpper(code))
	}
	if !since.IsZero() {
		query.Set("startTime", strconv.FormatInt(since.UnixMilli(), 10))
		query.Set("endTime", strconv.FormatInt(since.Add(historyWindow).UnixMilli(), 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	obj, err := a.private(ctx, http.MethodGet, "/v3/transfer", query, nil)
	if err != nil {
		return nil, err
	}
	accountID := params.String("accountId")
	var out []unified.LedgerEntry
	for _, v := range safe.Slice(obj, "data") {
		row := safe.Object(v)
		entry := unified.LedgerEntry{
			ID:        safe.String(row, "id"),
			Currency:  strings.ToUpper(safe.String(row, "asset")),
			Amount:    safe.Decimal(row, "quantity"),
			Type:      "transfer",
			Timestamp: safe.MillisTime(row, "transferredAt"),
		}
		switch accountID {
		case "":
		case safe.String(row, "toAccount"):
			entry.Direction = "in"
		case safe.String(row, "fromAccount"):
			entry.Direction = "out"
		}
		out = append(out, entry)
	}
	return out, nil
}

func (a *Adapter) firstOrder(obj map[string]any) (*unified.Order, error) {
	rows := safe.Slice(obj, "data")
	if len(rows) == 0 {
		return nil, errs.New(name, errs.KindExchangeError, "", "empty order response")
	}
	row := safe.Object(rows[0])
	// per-order rejections ride inside a successful envelope
	if code := safe.String(row, "code"); code != "" {
		return nil, errTable.Classify(name, code, safe.String(row, "message"), http.StatusOK)
	}
	order := a.parseOrder(row)
	return &order, nil
}

func (a *Adapter) parseOrder(raw map[string]any) unified.Order {
	symbol := safe.String(raw, "marketCode")
	if m, ok := a.markets.ByID(symbol); ok {
		symbol = m.Symbol
	}
	order := unified.Order{
		ID:            safe.String(raw, "orderId"),
		ClientOrderID: safe.String(raw, "clientOrderId"),
		Symbol:        symbol,
		Timestamp:     safe.MillisTime(raw, "createdAt"),
		Type:          unified.MapStatus(orderTypes, safe.String(raw, "orderType")),
		Side:          unified.OrderSide(strings.ToLower(safe.String(raw, "side"))),
		Price:         safe.Decimal(raw, "price", "matchPrice", "limitPrice"),
		TriggerPrice:  safe.Decimal(raw, "stopPrice"),
		Amount:        safe.Decimal(raw, "totalQuantity", "quantity"),
		Filled:        safe.Decimal(raw, "cumulativeMatchedQuantity", "matchQuantity"),
		Remaining:     safe.Decimal(raw, "remainQuantity"),
		Status:        unified.MapStatus(orderStatuses, safe.String(raw, "status")),
		TimeInForce:   safe.String(raw, "timeInForce"),
		Fee:           unified.ParseFee(raw, []string{"fees"}, []string{"feeInstrumentId"}),
	}
	if cost := safe.Decimal(raw, "amount"); cost.Valid && cost.Decimal.Sign() != 0 {
		order.Cost = cost
	}
	return order
}

package hollaex

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
	"unifex/internal/request"
	"unifex/internal/safe"
	"unifex/internal/unified"
)

var orderStatuses = map[string]unified.OrderStatus{
	"new":      unified.StatusOpen,
	"pfilled":  unified.StatusOpen,
	"filled":   unified.StatusClosed,
	"canceled": unified.StatusCanceled,
}

// FetchBalance returns the wallet balances. The endpoint flattens balances
// into <currency>_balance / <currency>_available keys.
func (a *Adapter) FetchBalance(ctx context.Context, params exchange.Params) (*unified.Balances, error) {
	raw, err := a.private(ctx, http.MethodGet, "/v2/user/balance", url.Values{}, nil)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected balance payload: "+err.Error())
	}
	out := &unified.Balances{
		Timestamp: safe.ISOTime(obj, "updated_at"),
		Accounts:  make(map[string]unified.Account),
	}
	for key := range obj {
		currency, ok := strings.CutSuffix(key, "_balance")
		if !ok {
			continue
		}
		total := safe.Decimal(obj, key)
		free := safe.Decimal(obj, currency+"_available")
		account := unified.Account{Free: free, Total: total}
		if total.Valid && free.Valid {
			account.Used = unified.N(total.Decimal.Sub(free.Decimal))
		}
		out.Accounts[strings.ToUpper(currency)] = account
	}
	return out, nil
}

// CreateOrder places an order as a JSON body. Market buys are sized in base
// units by this venue; the price argument is only consulted for limit
// orders.
func (a *Adapter) CreateOrder(ctx context.Context, symbol string, typ unified.OrderType, side unified.OrderSide,
	amount decimal.Decimal, price unified.Number, params exchange.Params) (*unified.Order, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	size, err := request.Amount(m, amount)
	if err != nil {
		return nil, errs.InvalidOrder(name, err.Error())
	}
	payload := map[string]any{
		"symbol": m.ID,
		"side":   string(side),
		"type":   string(typ),
		"size":   json.Number(size),
	}
	if typ == unified.TypeLimit {
		if !price.Valid {
			return nil, errs.InvalidOrder(name, "limit orders require a price")
		}
		p, err := request.Price(m, price.Decimal)
		if err != nil {
			return nil, errs.InvalidOrder(name, err.Error())
		}
		payload["price"] = json.Number(p)
	}
	if trigger := params.Decimal("triggerPrice"); trigger.Valid {
		p, err := request.Price(m, trigger.Decimal)
		if err != nil {
			return nil, errs.InvalidOrder(name, err.Error())
		}
		payload["stop"] = json.Number(p)
	}
	if params.Bool("postOnly") {
		payload["meta"] = map[string]any{"post_only": true}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errs.Local(name, errs.KindBadRequest, "encode order: "+err.Error())
	}
	raw, err := a.private(ctx, http.MethodPost, "/v2/order", url.Values{}, body)
	if err != nil {
		return nil, err
	}
	return parseOrderBody(raw, symbol)
}

// CancelOrder cancels one open order.
func (a *Adapter) CancelOrder(ctx context.Context, id, symbol string, params exchange.Params) (*unified.Order, error) {
	raw, err := a.private(ctx, http.MethodDelete, "/v2/order", url.Values{"order_id": {id}}, nil)
	if err != nil {
		return nil, err
	}
	return parseOrderBody(raw, symbol)
}

// CancelAllOrders cancels every open order in one market.
func (a *Adapter) CancelAllOrders(ctx context.Context, symbol string, params exchange.Params) error {
	if symbol == "" {
		return errs.ArgumentsRequired(name, "cancelAllOrders requires a symbol")
	}
	if err := a.loadMarkets(ctx); err != nil {
		return err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return err
	}
	_, err = a.private(ctx, http.MethodDelete, "/v2/order/all", url.Values{"symbol": {m.ID}}, nil)
	return err
}

// FetchOrder looks up one order.
func (a *Adapter) FetchOrder(ctx context.Context, id, symbol string, params exchange.Params) (*unified.Order, error) {
	raw, err := a.private(ctx, http.MethodGet, "/v2/order", url.Values{"order_id": {id}}, nil)
	if err != nil {
		return nil, err
	}
	return parseOrderBody(raw, symbol)
}

// FetchOrders lists the order history.
func (a *Adapter) FetchOrders(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Order, error) {
	return a.fetchOrderList(ctx, "", symbol, since, limit)
}

// FetchOpenOrders lists resting orders.
func (a *Adapter) FetchOpenOrders(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Order, error) {
	return a.fetchOrderList(ctx, "new", symbol, since, limit)
}

// FetchClosedOrders lists filled orders.
func (a *Adapter) FetchClosedOrders(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Order, error) {
	return a.fetchOrderList(ctx, "filled", symbol, since, limit)
}

func (a *Adapter) fetchOrderList(ctx context.Context, status, symbol string, since time.Time, limit int) ([]unified.Order, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
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
		query.Set("start_date", since.UTC().Format(time.RFC3339))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	raw, err := a.private(ctx, http.MethodGet, "/v2/orders", query, nil)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected orders payload: "+err.Error())
	}
	var out []unified.Order
	for _, v := range safe.Slice(obj, "data") {
		out = append(out, parseOrder(safe.Object(v), symbol))
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
		query.Set("start_date", since.UTC().Format(time.RFC3339))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	raw, err := a.private(ctx, http.MethodGet, "/v2/user/trades", query, nil)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected trades payload: "+err.Error())
	}
	var out []unified.Trade
	for _, v := range safe.Slice(obj, "data") {
		row := safe.Object(v)
		symbolOut := symbol
		if m, ok := a.markets.ByID(safe.String(row, "symbol")); ok {
			symbolOut = m.Symbol
		}
		price := safe.Decimal(row, "price")
		amount := safe.Decimal(row, "size")
		trade := unified.Trade{
			Symbol:    symbolOut,
			Timestamp: safe.ISOTime(row, "timestamp"),
			Side:      unified.OrderSide(safe.String(row, "side")),
			Price:     price,
			Amount:    amount,
			Fee:       unified.ParseFee(row, []string{"fee"}, []string{"fee_coin"}),
		}
		if price.Valid && amount.Valid {
			trade.Cost = unified.N(price.Decimal.Mul(amount.Decimal))
		}
		out = append(out, trade)
	}
	return out, nil
}

// Withdraw requests an on-chain withdrawal. The rail is ambiguous for
// multi-chain assets, so the network parameter is mandatory and its absence
// is rejected before any signed request is built.
func (a *Adapter) Withdraw(ctx context.Context, code string, amount decimal.Decimal, address, tag string, params exchange.Params) (*unified.Transaction, error) {
	network := params.String("network")
	if network == "" {
		return nil, errs.ArgumentsRequired(name, "withdraw requires a network parameter")
	}
	if address == "" {
		return nil, errs.ArgumentsRequired(name, "withdraw requires an address")
	}
	if tag != "" {
		address = address + ":" + tag
	}
	body, err := json.Marshal(map[string]any{
		"currency": strings.ToLower(code),
		"amount":   json.Number(amount.String()),
		"address":  address,
		"network":  strings.ToLower(network),
	})
	if err != nil {
		return nil, errs.Local(name, errs.KindBadRequest, "encode withdrawal: "+err.Error())
	}
	raw, err := a.private(ctx, http.MethodPost, "/v2/user/withdrawal", url.Values{}, body)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected withdrawal payload: "+err.Error())
	}
	return &unified.Transaction{
		ID:       safe.String(obj, "id", "transaction_id"),
		Type:     "withdrawal",
		Currency: strings.ToUpper(code),
		Amount:   unified.N(amount),
		Address:  address,
		Tag:      tag,
		Network:  network,
		Status:   unified.TxPending,
	}, nil
}

// FetchDepositAddress returns the wallet address for one currency, filtered
// by the optional network param when the asset has several rails.
func (a *Adapter) FetchDepositAddress(ctx context.Context, code string, params exchange.Params) (*unified.DepositAddress, error) {
	raw, err := a.private(ctx, http.MethodGet, "/v2/user", url.Values{}, nil)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected user payload: "+err.Error())
	}
	wantNetwork := strings.ToLower(params.String("network"))
	currency := strings.ToLower(code)
	for _, v := range safe.Slice(obj, "wallet") {
		row := safe.Object(v)
		if safe.String(row, "currency") != currency {
			continue
		}
		network := safe.String(row, "network")
		if wantNetwork != "" && network != wantNetwork {
			continue
		}
		address := safe.String(row, "address")
		tag := ""
		// xrp-style addresses embed the tag after a colon
		if at := strings.IndexByte(address, ':'); at >= 0 {
			tag = address[at+1:]
			address = address[:at]
		}
		return &unified.DepositAddress{
			Currency: strings.ToUpper(code),
			Network:  network,
			Address:  address,
			Tag:      tag,
		}, nil
	}
	return nil, errs.New(name, errs.KindBadRequest, "", "no deposit address on file for "+code)
}

// FetchDepositsWithdrawals lists deposit and withdrawal history merged into
// one timeline.
func (a *Adapter) FetchDepositsWithdrawals(ctx context.Context, code string, since time.Time, limit int, params exchange.Params) ([]unified.Transaction, error) {
	deposits, err := a.fetchTransactions(ctx, "/v2/user/deposits", "deposit", code, since, limit)
	if err != nil {
		return nil, err
	}
	withdrawals, err := a.fetchTransactions(ctx, "/v2/user/withdrawals", "withdrawal", code, since, limit)
	if err != nil {
		return nil, err
	}
	return append(deposits, withdrawals...), nil
}

func (a *Adapter) fetchTransactions(ctx context.Context, path, txType, code string, since time.Time, limit int) ([]unified.Transaction, error) {
	query := url.Values{}
	if code != "" {
		query.Set("currency", strings.ToLower(code))
	}
	if !since.IsZero() {
		query.Set("start_date", since.UTC().Format(time.RFC3339))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	raw, err := a.private(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected transaction payload: "+err.Error())
	}
	var out []unified.Transaction
	for _, v := range safe.Slice(obj, "data") {
		row := safe.Object(v)
		status := unified.TxPending
		switch {
		case safe.BoolOr(row, false, "status"):
			status = unified.TxOK
		case safe.BoolOr(row, false, "rejected"):
			status = unified.TxFailed
		case safe.BoolOr(row, false, "dismissed") || safe.BoolOr(row, false, "canceled"):
			status = unified.TxCanceled
		}
		out = append(out, unified.Transaction{
			ID:        safe.String(row, "id"),
			TxID:      safe.String(row, "transaction_id"),
			Type:      txType,
			Currency:  strings.ToUpper(safe.StringOr(row, strings.ToLower(code), "currency")),
			Amount:    safe.Decimal(row, "amount"),
			Address:   safe.String(row, "address"),
			Network:   safe.String(row, "network"),
			Status:    status,
			Fee:       unified.ParseFee(row, []string{"fee"}, []string{"fee_coin"}),
			Timestamp: safe.ISOTime(row, "created_at"),
		})
	}
	return out, nil
}

func parseOrderBody(raw []byte, symbol string) (*unified.Order, error) {
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected order payload: "+err.Error())
	}
	order := parseOrder(obj, symbol)
	return &order, nil
}

func parseOrder(raw map[string]any, symbol string) unified.Order {
	order := unified.Order{
		ID:        safe.String(raw, "id"),
		Symbol:    symbol,
		Timestamp: safe.ISOTime(raw, "created_at"),
		Type:      unified.OrderType(safe.String(raw, "type")),
		Side:      unified.OrderSide(safe.String(raw, "side")),
		Price:     safe.Decimal(raw, "price"),
		Amount:    safe.Decimal(raw, "size"),
		Filled:    safe.Decimal(raw, "filled"),
		Status:    unified.MapStatus(orderStatuses, safe.String(raw, "status")),
	}
	if trigger := safe.Decimal(raw, "stop"); trigger.Valid {
		order.TriggerPrice = trigger
	}
	if meta := safe.Map(raw, "meta"); meta != nil {
		order.PostOnly = safe.BoolOr(meta, false, "post_only")
	}
	if order.Amount.Valid && order.Filled.Valid {
		order.Remaining = unified.N(order.Amount.Decimal.Sub(order.Filled.Decimal))
	}
	return order
}

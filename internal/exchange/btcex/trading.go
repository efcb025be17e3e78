package btcex

import (
	"context"
	"net/url"
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
	"open":      unified.StatusOpen,
	"cancelled": unified.StatusCanceled,
	"filled":    unified.StatusClosed,
	"rejected":  unified.StatusRejected,
}

var timeInForces = map[string]string{
	"good_til_cancelled":  "GTC",
	"good_til_date":       "GTD",
	"fill_or_kill":        "FOK",
	"immediate_or_cancel": "IOC",
}

var txStatuses = map[string]unified.TxStatus{
	"deposit_confirmed":            unified.TxOK,
	"deposit_waiting_confirm":      unified.TxPending,
	"withdraw_init":                unified.TxPending,
	"withdraw_noticed_block_chain": unified.TxPending,
	"withdraw_waiting_confirm":     unified.TxPending,
	"withdraw_confirmed":           unified.TxOK,
	"withdraw_failed":              unified.TxFailed,
	"withdraw_auditing":            unified.TxPending,
	"withdraw_audit_reject":        unified.TxFailed,
}

// accountsByType maps the caller-facing account family to the wallet key the
// assets endpoint expects.
var accountsByType = map[string]string{
	"wallet": "WALLET",
	"spot":   "SPOT",
	"margin": "MARGIN",
	"swap":   "PERPETUAL",
}

// FetchBalance returns one wallet's balances. The WALLET and SPOT wallets
// itemise per coin under details; contract wallets report a single USDT
// aggregate.
func (a *Adapter) FetchBalance(ctx context.Context, params exchange.Params) (*unified.Balances, error) {
	family := strings.ToLower(params.String("type"))
	if family == "" {
		family = "wallet"
	}
	assetType, ok := accountsByType[family]
	if !ok {
		assetType = strings.ToUpper(family)
	}
	obj, err := a.privatePost(ctx, "/get_assets_info", map[string]any{
		"asset_type": []string{assetType},
	})
	if err != nil {
		return nil, err
	}
	out := &unified.Balances{Accounts: make(map[string]unified.Account)}
	for key, v := range safe.Map(obj, "result") {
		wallet := safe.Object(v)
		if wallet == nil {
			continue
		}
		if key == "WALLET" || key == "SPOT" {
			for _, dv := range safe.Slice(wallet, "details") {
				detail := safe.Object(dv)
				coin := safe.String(detail, "coin_type")
				if coin == "" {
					continue
				}
				out.Accounts[strings.ToUpper(coin)] = unified.Account{
					Free:  safe.Decimal(detail, "available"),
					Used:  safe.Decimal(detail, "freeze"),
					Total: safe.Decimal(detail, "total"),
				}
			}
			continue
		}
		// contract wallets are linear, margined in USDT
		out.Accounts["USDT"] = unified.Account{
			Free:  safe.Decimal(wallet, "available_withdraw_funds"),
			Total: safe.Decimal(wallet, "wallet_balance"),
		}
	}
	return out, nil
}

// CreateOrder places an order through the side-specific buy/sell endpoint.
// Spot market buys are sized by quote cost; swap market orders may be sized
// by cost too, in which case market_amount_order flags the amount as a quote
// value.
func (a *Adapter) CreateOrder(ctx context.Context, symbol string, typ unified.OrderType, side unified.OrderSide,
	amount decimal.Decimal, price unified.Number, params exchange.Params) (*unified.Order, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	body := map[string]any{
		"instrument_name": m.ID,
		"type":            string(typ),
	}
	switch {
	case typ == unified.TypeLimit:
		if !price.Valid {
			return nil, errs.InvalidOrder(name, "limit orders require a price")
		}
		size, err := request.Amount(m, amount)
		if err != nil {
			return nil, errs.InvalidOrder(name, err.Error())
		}
		p, err := request.Price(m, price.Decimal)
		if err != nil {
			return nil, errs.InvalidOrder(name, err.Error())
		}
		body["amount"] = size
		body["price"] = p
	case m.Type == unified.TypeSwap:
		cost := params.Decimal("cost")
		if !cost.Valid && price.Valid {
			cost = unified.N(amount.Mul(price.Decimal))
		}
		if cost.Valid {
			quote, err := request.Price(m, cost.Decimal)
			if err != nil {
				return nil, errs.InvalidOrder(name, err.Error())
			}
			body["amount"] = quote
			body["market_amount_order"] = true
		} else {
			size, err := request.Amount(m, amount)
			if err != nil {
				return nil, errs.InvalidOrder(name, err.Error())
			}
			body["amount"] = size
			body["market_amount_order"] = false
		}
	case side == unified.SideBuy:
		requiresPrice := !params.Has("createMarketBuyOrderRequiresPrice") || params.Bool("createMarketBuyOrderRequiresPrice")
		cost, err := request.MarketBuyCost(name, amount, price, params.Decimal("cost"), requiresPrice)
		if err != nil {
			return nil, err
		}
		quote, err := request.Price(m, cost)
		if err != nil {
			return nil, errs.InvalidOrder(name, err.Error())
		}
		body["amount"] = quote
	default:
		size, err := request.Amount(m, amount)
		if err != nil {
			return nil, errs.InvalidOrder(name, err.Error())
		}
		body["amount"] = size
	}
	if m.Type == unified.TypeSwap {
		if params.Bool("postOnly") {
			if typ == unified.TypeMarket {
				return nil, errs.InvalidOrder(name, "market orders cannot be post-only")
			}
			body["post_only"] = true
		}
		reduce := params.Bool("reduceOnly")
		if reduce {
			body["reduce_only"] = true
		}
		body["position_side"] = positionSide(side, reduce)
		switch strings.ToUpper(params.String("timeInForce")) {
		case "GTC":
			body["time_in_force"] = "good_till_cancelled"
		case "FOK":
			body["time_in_force"] = "fill_or_kill"
		case "IOC":
			body["time_in_force"] = "immediate_or_cancel"
		}
		if trigger := params.Decimal("triggerPrice"); trigger.Valid {
			p, err := request.Price(m, trigger.Decimal)
			if err != nil {
				return nil, errs.InvalidOrder(name, err.Error())
			}
			body["condition_type"] = "STOP"
			body["trigger_price"] = p
			body["trigger_price_type"] = 1
		}
	}
	path := "/sell"
	if side == unified.SideBuy {
		path = "/buy"
	}
	obj, err := a.privatePost(ctx, path, body)
	if err != nil {
		return nil, err
	}
	row := safe.Map(safe.Map(obj, "result"), "order")
	if row == nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "order response carries no order")
	}
	ord := parseOrder(row, m)
	// the placement ack is just an id pair; echo the accepted terms back
	ord.Symbol = m.Symbol
	ord.Type = typ
	ord.Side = side
	if !ord.Amount.Valid {
		ord.Amount = unified.N(amount)
	}
	if !ord.Price.Valid && typ == unified.TypeLimit {
		ord.Price = price
	}
	return &ord, nil
}

func positionSide(side unified.OrderSide, reduceOnly bool) string {
	long := side == unified.SideBuy
	if reduceOnly {
		long = !long
	}
	if long {
		return "LONG"
	}
	return "SHORT"
}

// CancelOrder cancels by order id. The ack echoes only the id; no lifecycle
// state is reported, so none is invented.
func (a *Adapter) CancelOrder(ctx context.Context, id, symbol string, params exchange.Params) (*unified.Order, error) {
	obj, err := a.privatePost(ctx, "/cancel", map[string]any{"order_id": id})
	if err != nil {
		return nil, err
	}
	result := safe.Map(obj, "result")
	return &unified.Order{
		ID:     safe.StringOr(result, id, "order_id"),
		Symbol: symbol,
	}, nil
}

// FetchOrder returns one order's current state.
func (a *Adapter) FetchOrder(ctx context.Context, id, symbol string, params exchange.Params) (*unified.Order, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("order_id", id)
	obj, err := a.privateGet(ctx, "/get_order_state", query)
	if err != nil {
		return nil, err
	}
	row := safe.Map(obj, "result")
	if row == nil {
		return nil, errs.Local(name, errs.KindOrderNotFound, "order "+id+" not found")
	}
	ord := parseOrder(row, a.marketForID(safe.String(row, "instrument_name")))
	return &ord, nil
}

// FetchDepositsWithdrawals merges the deposit and withdrawal records for one
// currency. The records endpoints are keyed by coin, so the code argument is
// mandatory.
func (a *Adapter) FetchDepositsWithdrawals(ctx context.Context, code string, since time.Time, limit int, params exchange.Params) ([]unified.Transaction, error) {
	if code == "" {
		return nil, errs.ArgumentsRequired(name, "fetchDepositsWithdrawals requires a currency code")
	}
	deposits, err := a.fetchTransactions(ctx, "/get_deposit_record", "deposit", code, since)
	if err != nil {
		return nil, err
	}
	withdrawals, err := a.fetchTransactions(ctx, "/get_withdraw_record", "withdrawal", code, since)
	if err != nil {
		return nil, err
	}
	out := append(deposits, withdrawals...)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *Adapter) fetchTransactions(ctx context.Context, path, txType, code string, since time.Time) ([]unified.Transaction, error) {
	query := url.Values{}
	query.Set("coin_type", strings.ToUpper(code))
	obj, err := a.privateGet(ctx, path, query)
	if err != nil {
		return nil, err
	}
	var out []unified.Transaction
	for _, v := range safe.Slice(obj, "result") {
		row := safe.Object(v)
		if row == nil {
			continue
		}
		tx := unified.Transaction{
			ID:        safe.String(row, "id"),
			TxID:      safe.String(row, "tx_hash"),
			Type:      txType,
			Currency:  strings.ToUpper(safe.StringOr(row, code, "coin_type")),
			Amount:    safe.Decimal(row, "amount"),
			Address:   safe.String(row, "address"),
			Status:    unified.MapStatus(txStatuses, safe.String(row, "state")),
			Timestamp: safe.MillisTime(row, "create_time"),
		}
		if !since.IsZero() && tx.Timestamp.Before(since) {
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

// parseOrder normalizes an order row. A price of "-1" means the exchange has
// no resting price for the order (market orders), not a real value.
func parseOrder(row map[string]any, m unified.Market) unified.Order {
	price := safe.Decimal(row, "price")
	if safe.String(row, "price") == "-1" {
		price = unified.Number{}
	}
	ord := unified.Order{
		ID:           safe.String(row, "order_id"),
		Symbol:       m.Symbol,
		Timestamp:    safe.MillisTime(row, "creation_timestamp"),
		Type:         unified.OrderType(strings.ToLower(safe.String(row, "order_type"))),
		Side:         unified.OrderSide(strings.ToLower(safe.String(row, "direction"))),
		Price:        price,
		TriggerPrice: safe.Decimal(row, "trigger_price"),
		Amount:       safe.Decimal(row, "amount"),
		Filled:       safe.Decimal(row, "filled_amount"),
		Average:      safe.Decimal(row, "average_price"),
		Status:       unified.MapStatus(orderStatuses, safe.String(row, "order_state")),
		TimeInForce:  unified.MapStatus(timeInForces, safe.String(row, "time_in_force")),
		PostOnly:     safe.BoolOr(row, false, "post_only"),
		ReduceOnly:   safe.BoolOr(row, false, "reduce_only"),
	}
	if clientID := safe.String(row, "custom_order_id"); clientID != "" && clientID != "-" {
		ord.ClientOrderID = clientID
	}
	if ord.Amount.Valid && ord.Filled.Valid {
		ord.Remaining = unified.N(ord.Amount.Decimal.Sub(ord.Filled.Decimal))
	}
	if fee := safe.Decimal(row, "commission"); fee.Valid {
		ord.Fee = &unified.Fee{Currency: m.Base, Cost: unified.N(fee.Decimal.Abs())}
	}
	return ord
}

package toobit

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"unifex/internal/errs"
	"unifex/internal/exchange"
	"unifex/internal/safe"
	"unifex/internal/unified"
)

var txStatuses = map[string]unified.TxStatus{
	"0": unified.TxPending,
	"1": unified.TxOK,
	"2": unified.TxFailed,
	"3": unified.TxCanceled,
}

// FetchBalance returns the spot account balances.
func (a *Adapter) FetchBalance(ctx context.Context, params exchange.Params) (*unified.Balances, error) {
	raw, err := a.private(ctx, http.MethodGet, "/api/v1/account", url.Values{})
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected account payload: "+err.Error())
	}
	out := &unified.Balances{Accounts: make(map[string]unified.Account)}
	for _, v := range safe.Slice(obj, "balances") {
		row := safe.Object(v)
		code := safe.String(row, "asset")
		if code == "" {
			continue
		}
		out.Accounts[code] = unified.Account{
			Free:  safe.Decimal(row, "free"),
			Used:  safe.Decimal(row, "locked"),
			Total: safe.Decimal(row, "total"),
		}
	}
	return out, nil
}

// Transfer moves funds between the caller's own accounts, e.g. spot and
// swap margin.
func (a *Adapter) Transfer(ctx context.Context, code string, amount decimal.Decimal, from, to string, params exchange.Params) (*unified.Transfer, error) {
	if from == "" || to == "" {
		return nil, errs.ArgumentsRequired(name, "transfer requires fromAccount and toAccount")
	}
	query := url.Values{
		"coin":     {code},
		"quantity": {amount.String()},
		"fromType": {from},
		"toType":   {to},
	}
	raw, err := a.private(ctx, http.MethodPost, "/api/v1/asset/transfer", query)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected transfer payload: "+err.Error())
	}
	return &unified.Transfer{
		ID:          safe.String(obj, "transferId", "id"),
		Currency:    code,
		Amount:      unified.N(amount),
		FromAccount: from,
		ToAccount:   to,
		Status:      unified.TxOK,
		Timestamp:   safe.MillisTime(obj, "timestamp"),
	}, nil
}

// Withdraw requests an on-chain withdrawal.
func (a *Adapter) Withdraw(ctx context.Context, code string, amount decimal.Decimal, address, tag string, params exchange.Params) (*unified.Transaction, error) {
	if address == "" {
		return nil, errs.ArgumentsRequired(name, "withdraw requires an address")
	}
	query := url.Values{
		"coin":     {code},
		"address":  {address},
		"quantity": {amount.String()},
	}
	if tag != "" {
		query.Set("addressExt", tag)
	}
	if network := params.String("network"); network != "" {
		query.Set("chainType", network)
	}
	raw, err := a.private(ctx, http.MethodPost, "/api/v1/account/withdraw", query)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected withdraw payload: "+err.Error())
	}
	return &unified.Transaction{
		ID:       safe.String(obj, "id", "orderId"),
		Type:     "withdrawal",
		Currency: code,
		Amount:   unified.N(amount),
		Address:  address,
		Tag:      tag,
		Network:  params.String("network"),
		Status:   unified.TxPending,
	}, nil
}

// FetchDepositsWithdrawals lists deposit and withdrawal history merged into
// one timeline.
func (a *Adapter) FetchDepositsWithdrawals(ctx context.Context, code string, since time.Time, limit int, params exchange.Params) ([]unified.Transaction, error) {
	deposits, err := a.fetchTransactions(ctx, "/api/v1/account/depositOrders", "deposit", code, since, limit)
	if err != nil {
		return nil, err
	}
	withdrawals, err := a.fetchTransactions(ctx, "/api/v1/account/withdrawOrders", "withdrawal", code, since, limit)
	if err != nil {
		return nil, err
	}
	return append(deposits, withdrawals...), nil
}

func (a *Adapter) fetchTransactions(ctx context.Context, path, txType, code string, since time.Time, limit int) ([]unified.Transaction, error) {
	query := url.Values{}
	if code != "" {
		query.Set("coin", code)
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
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected transaction payload: "+err.Error())
	}
	out := make([]unified.Transaction, 0, len(rows))
	for _, v := range rows {
		row := safe.Object(v)
		out = append(out, unified.Transaction{
			ID:        safe.String(row, "id", "orderId"),
			TxID:      safe.String(row, "txId"),
			Type:      txType,
			Currency:  safe.StringOr(row, code, "coin"),
			Amount:    safe.Decimal(row, "quantity"),
			Address:   safe.String(row, "address"),
			Tag:       safe.String(row, "addressExt"),
			Network:   safe.String(row, "chainType"),
			Status:    unified.MapStatus(txStatuses, safe.String(row, "status")),
			Fee:       unified.ParseFee(row, []string{"fee"}, []string{"feeCoin"}),
			Timestamp: safe.MillisTime(row, "time", "timestamp"),
		})
	}
	return out, nil
}

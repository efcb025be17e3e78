package oxfun

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"unifex/internal/errs"
	"unifex/internal/exchange"
	"unifex/internal/safe"
	"unifex/internal/symbols"
	"unifex/internal/unified"
)

// FetchMarkets loads the tradable instruments. Futures here are perpetuals
// settled in OX regardless of the counter asset.
func (a *Adapter) FetchMarkets(ctx context.Context, params exchange.Params) ([]unified.Market, error) {
	obj, err := a.public(ctx, "/v3/markets", nil)
	if err != nil {
		return nil, err
	}
	var markets []unified.Market
	for _, v := range safe.Slice(obj, "data") {
		row := safe.Object(v)
		if row == nil {
			continue
		}
		markets = append(markets, parseMarket(row))
	}
	a.markets.Store(markets)
	return markets, nil
}

func parseMarket(row map[string]any) unified.Market {
	id := safe.String(row, "marketCode")
	parts := strings.Split(id, "-")
	baseID, quoteID := "", ""
	if len(parts) >= 2 {
		baseID, quoteID = parts[0], parts[1]
	}
	base := strings.ToUpper(baseID)
	quote := strings.ToUpper(quoteID)
	m := unified.Market{
		ID:      id,
		Symbol:  symbols.Spot(base, quote),
		Base:    base,
		Quote:   quote,
		BaseID:  baseID,
		QuoteID: quoteID,
		Type:    unified.TypeSpot,
		Active:  true,
		Precision: unified.Precision{
			Price: safe.Decimal(row, "tickSize"),
		},
		Limits: unified.Limits{
			Amount: unified.MinMax{Min: safe.Decimal(row, "minSize")},
		},
	}
	if strings.EqualFold(safe.String(row, "type"), "FUTURE") {
		// only perpetuals are listed, all settled in OX
		m.Type = unified.TypeSwap
		m.Settle = "OX"
		m.SettleID = "OX"
		m.Symbol = symbols.Swap(base, quote, m.Settle)
		m.Contract = true
		m.Linear = true
		m.ContractSize = unified.N(decimal.NewFromInt(1))
	}
	return m
}

// FetchCurrencies loads the asset table. Multi-chain variants such as
// USDC.ARB fold into one currency with the union of their networks.
func (a *Adapter) FetchCurrencies(ctx context.Context, params exchange.Params) (map[string]unified.Currency, error) {
	obj, err := a.public(ctx, "/v3/assets", nil)
	if err != nil {
		return nil, err
	}
	out := make(map[string]unified.Currency)
	for _, v := range safe.Slice(obj, "data") {
		row := safe.Object(v)
		if row == nil {
			continue
		}
		id, _, _ := strings.Cut(safe.String(row, "asset"), ".")
		code := strings.ToUpper(id)
		cur, seen := out[code]
		if !seen {
			cur = unified.Currency{ID: id, Code: code, Networks: make(map[string]unified.Network)}
		}
		for _, nv := range safe.Slice(row, "networkList") {
			chain := safe.Object(nv)
			netID := safe.String(chain, "network")
			if netID == "" {
				continue
			}
			deposit := safe.BoolOr(chain, false, "canDeposit")
			withdraw := safe.BoolOr(chain, false, "canWithdraw")
			cur.Networks[netID] = unified.Network{
				ID:       netID,
				Network:  netID,
				Deposit:  deposit,
				Withdraw: withdraw,
				Limits:   unified.MinMax{Min: safe.Decimal(chain, "minWithdrawal")},
			}
			cur.Deposit = cur.Deposit || deposit
			cur.Withdraw = cur.Withdraw || withdraw
		}
		cur.Active = cur.Deposit || cur.Withdraw
		out[code] = cur
	}
	return out, nil
}

// FetchTicker returns the 24h statistics for one instrument.
func (a *Adapter) FetchTicker(ctx context.Context, symbol string, params exchange.Params) (*unified.Ticker, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	obj, err := a.public(ctx, "/v3/tickers", url.Values{"marketCode": {m.ID}})
	if err != nil {
		return nil, err
	}
	rows := safe.Slice(obj, "data")
	if len(rows) == 0 {
		return nil, errs.New(name, errs.KindExchangeError, "", "empty ticker response for "+m.ID)
	}
	t := parseTicker(safe.Object(rows[0]), symbol)
	return &t, nil
}

// FetchTickers returns 24h statistics for all or selected instruments.
func (a *Adapter) FetchTickers(ctx context.Context, syms []string, params exchange.Params) ([]unified.Ticker, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	obj, err := a.public(ctx, "/v3/tickers", nil)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(syms))
	for _, s := range syms {
		want[s] = true
	}
	var out []unified.Ticker
	for _, v := range safe.Slice(obj, "data") {
		row := safe.Object(v)
		m, ok := a.markets.ByID(safe.String(row, "marketCode"))
		if !ok {
			continue
		}
		if len(want) > 0 && !want[m.Symbol] {
			continue
		}
		out = append(out, parseTicker(row, m.Symbol))
	}
	return out, nil
}

func parseTicker(raw map[string]any, symbol string) unified.Ticker {
	return unified.Ticker{
		Symbol:      symbol,
		Timestamp:   safe.MillisTime(raw, "lastUpdatedAt"),
		High:        safe.Decimal(raw, "high24h"),
		Low:         safe.Decimal(raw, "low24h"),
		Open:        safe.Decimal(raw, "open24h"),
		Last:        safe.Decimal(raw, "lastTradedPrice"),
		BaseVolume:  safe.Decimal(raw, "currencyVolume24h"),
		QuoteVolume: safe.Decimal(raw, "volume24h"),
	}
}

// FetchOrderBook returns a depth snapshot, default 5 levels, max 100.
func (a *Adapter) FetchOrderBook(ctx context.Context, symbol string, limit int, params exchange.Params) (*unified.OrderBook, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	query := url.Values{"marketCode": {m.ID}}
	if limit > 0 {
		query.Set("level", strconv.Itoa(limit))
	}
	obj, err := a.public(ctx, "/v3/depth", query)
	if err != nil {
		return nil, err
	}
	data := safe.Map(obj, "data")
	bids, err := unified.ParseBookSide(safe.Slice(data, "bids"))
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "bad bid row: "+err.Error())
	}
	asks, err := unified.ParseBookSide(safe.Slice(data, "asks"))
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "bad ask row: "+err.Error())
	}
	out := &unified.OrderBook{
		Symbol:    symbol,
		Timestamp: safe.MillisTime(data, "lastUpdatedAt"),
		Bids:      bids,
		Asks:      asks,
	}
	unified.SortBook(out)
	return out, nil
}

// FetchOHLCV returns candle buckets. The exchange caps each request at a
// 7-day window.
func (a *Adapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, since time.Time, limit int, params exchange.Params) ([]unified.Candle, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	tf, ok := timeframes[timeframe]
	if !ok {
		return nil, errs.Local(name, errs.KindBadRequest, "unsupported timeframe "+timeframe)
	}
	query := url.Values{"marketCode": {m.ID}, "timeframe": {tf}}
	if !since.IsZero() {
		query.Set("startTime", strconv.FormatInt(since.UnixMilli(), 10))
		end := since.Add(historyWindow)
		if until := params.Decimal("until"); until.Valid {
			end = time.UnixMilli(until.Decimal.IntPart())
		}
		query.Set("endTime", strconv.FormatInt(end.UnixMilli(), 10))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	obj, err := a.public(ctx, "/v3/candles", query)
	if err != nil {
		return nil, err
	}
	var out []unified.Candle
	for _, v := range safe.Slice(obj, "data") {
		row := safe.Object(v)
		out = append(out, unified.Candle{
			Timestamp: safe.MillisTime(row, "openedAt"),
			Open:      safe.Decimal(row, "open").Decimal,
			High:      safe.Decimal(row, "high").Decimal,
			Low:       safe.Decimal(row, "low").Decimal,
			Close:     safe.Decimal(row, "close").Decimal,
			Volume:    safe.Decimal(row, "currencyVolume").Decimal,
		})
	}
	return out, nil
}

// FetchFundingRates returns the estimated next funding for all perpetuals.
func (a *Adapter) FetchFundingRates(ctx context.Context, syms []string, params exchange.Params) ([]unified.FundingRate, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	obj, err := a.public(ctx, "/v3/funding/estimates", nil)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(syms))
	for _, s := range syms {
		want[s] = true
	}
	var out []unified.FundingRate
	for _, v := range safe.Slice(obj, "data") {
		row := safe.Object(v)
		m, ok := a.markets.ByID(safe.String(row, "marketCode"))
		if !ok {
			continue
		}
		if len(want) > 0 && !want[m.Symbol] {
			continue
		}
		out = append(out, unified.FundingRate{
			Symbol:          m.Symbol,
			Rate:            safe.Decimal(row, "estFundingRate"),
			NextFundingTime: safe.MillisTime(row, "fundingAt"),
		})
	}
	return out, nil
}

// FetchFundingRate returns the estimated next funding for one perpetual.
func (a *Adapter) FetchFundingRate(ctx context.Context, symbol string, params exchange.Params) (*unified.FundingRate, error) {
	rates, err := a.FetchFundingRates(ctx, []string{symbol}, params)
	if err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return nil, errs.New(name, errs.KindBadSymbol, "", "no funding estimate for "+symbol)
	}
	return &rates[0], nil
}

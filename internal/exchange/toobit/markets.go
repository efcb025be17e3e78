package toobit

import (
	"context"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"unifex/internal/errs"
	"unifex/internal/exchange"
	"unifex/internal/paginate"
	"unifex/internal/safe"
	"unifex/internal/symbols"
	"unifex/internal/unified"
)

// FetchMarkets loads spot symbols and USDT-swap contracts from exchangeInfo
// and refreshes the market cache.
func (a *Adapter) FetchMarkets(ctx context.Context, params exchange.Params) ([]unified.Market, error) {
	raw, err := a.public(ctx, "/api/v1/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected exchangeInfo payload: "+err.Error())
	}

	var markets []unified.Market
	for _, v := range safe.Slice(obj, "symbols") {
		if m, ok := parseMarket(safe.Object(v), false); ok {
			markets = append(markets, m)
		}
	}
	for _, v := range safe.Slice(obj, "contracts") {
		if m, ok := parseMarket(safe.Object(v), true); ok {
			markets = append(markets, m)
		}
	}
	a.markets.Store(markets)
	return markets, nil
}

func parseMarket(raw map[string]any, contract bool) (unified.Market, bool) {
	if raw == nil {
		return unified.Market{}, false
	}
	id := safe.String(raw, "symbol")
	if id == "" {
		return unified.Market{}, false
	}
	baseID := safe.String(raw, "baseAsset")
	quoteID := safe.String(raw, "quoteAsset")
	// contract base ids look like "BTC-SWAP-USDT"; the currency code is the
	// first segment
	base := baseID
	if contract {
		base = safe.StringOr(raw, baseID, "underlying")
	}
	settleID := safe.String(raw, "marginToken")

	m := unified.Market{
		ID:       id,
		Base:     base,
		Quote:    quoteID,
		BaseID:   baseID,
		QuoteID:  quoteID,
		SettleID: settleID,
		Type:     unified.TypeSpot,
		Active:   safe.String(raw, "status") == "TRADING",
		Contract: contract,
	}
	if contract {
		inverse := safe.BoolOr(raw, false, "inverse", "isInverse")
		m.Type = unified.TypeSwap
		m.Settle = settleID
		m.Linear = !inverse
		m.Inverse = inverse
		m.ContractSize = safe.Decimal(raw, "contractMultiplier")
		m.Symbol = symbols.Swap(base, quoteID, settleID)
	} else {
		m.Symbol = symbols.Spot(base, quoteID)
	}

	m.Precision.Cost = safe.Decimal(raw, "quotePrecision", "quoteAssetPrecision")

	for _, f := range safe.Slice(raw, "filters") {
		filter := safe.Object(f)
		switch safe.String(filter, "filterType") {
		case "PRICE_FILTER":
			m.Precision.Price = safe.Decimal(filter, "tickSize")
			m.Limits.Price = unified.MinMax{
				Min: safe.Decimal(filter, "minPrice"),
				Max: safe.Decimal(filter, "maxPrice"),
			}
		case "LOT_SIZE":
			m.Precision.Amount = safe.Decimal(filter, "stepSize")
			m.Limits.Amount = unified.MinMax{
				Min: safe.Decimal(filter, "minQty"),
				Max: safe.Decimal(filter, "maxQty"),
			}
		case "MIN_NOTIONAL":
			m.Limits.Cost = unified.MinMax{Min: safe.Decimal(filter, "minNotional")}
		}
	}
	return m, true
}

// FetchCurrencies reads the coin list bundled with exchangeInfo, including
// per-chain deposit/withdraw enablement and fees.
func (a *Adapter) FetchCurrencies(ctx context.Context, params exchange.Params) (map[string]unified.Currency, error) {
	raw, err := a.public(ctx, "/api/v1/exchangeInfo", nil)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected exchangeInfo payload: "+err.Error())
	}
	out := make(map[string]unified.Currency)
	for _, v := range safe.Slice(obj, "coins") {
		coin := safe.Object(v)
		code := safe.String(coin, "coinId")
		if code == "" {
			continue
		}
		cur := unified.Currency{
			ID:       code,
			Code:     code,
			Name:     safe.StringOr(coin, code, "coinFullName", "coinName"),
			Deposit:  safe.BoolOr(coin, false, "allowDeposit"),
			Withdraw: safe.BoolOr(coin, false, "allowWithdraw"),
			Networks: make(map[string]unified.Network),
		}
		cur.Active = cur.Deposit || cur.Withdraw
		for _, c := range safe.Slice(coin, "chainTypes") {
			chain := safe.Object(c)
			netID := safe.String(chain, "chainType")
			if netID == "" {
				continue
			}
			cur.Networks[netID] = unified.Network{
				ID:       netID,
				Network:  netID,
				Deposit:  safe.BoolOr(chain, false, "allowDeposit"),
				Withdraw: safe.BoolOr(chain, false, "allowWithdraw"),
				Fee:      safe.Decimal(chain, "withdrawFee"),
				Limits: unified.MinMax{
					Min: safe.Decimal(chain, "minWithdrawQuantity"),
					Max: safe.Decimal(chain, "maxWithdrawQuantity"),
				},
			}
		}
		out[code] = cur
	}
	return out, nil
}

// FetchTicker returns the 24h statistics for one symbol.
func (a *Adapter) FetchTicker(ctx context.Context, symbol string, params exchange.Params) (*unified.Ticker, error) {
	tickers, err := a.FetchTickers(ctx, []string{symbol}, params)
	if err != nil {
		return nil, err
	}
	for i := range tickers {
		if tickers[i].Symbol == symbol {
			return &tickers[i], nil
		}
	}
	return nil, errs.Local(name, errs.KindBadSymbol, "no ticker returned for "+symbol)
}

// FetchTickers returns 24h statistics. The spot and contract books live on
// separate endpoints; the requested symbols decide which one is queried.
func (a *Adapter) FetchTickers(ctx context.Context, syms []string, params exchange.Params) ([]unified.Ticker, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	path := "/quote/v1/ticker/24hr"
	if len(syms) > 0 {
		m, err := a.markets.Resolve(name, syms[0])
		if err != nil {
			return nil, err
		}
		if m.Contract {
			path = "/quote/v1/contract/ticker/24hr"
		}
	}
	raw, err := a.public(ctx, path, nil)
	if err != nil {
		return nil, err
	}
	rows, err := safe.ParseArray(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected ticker payload: "+err.Error())
	}
	want := make(map[string]bool, len(syms))
	for _, s := range syms {
		want[s] = true
	}
	var out []unified.Ticker
	for _, v := range rows {
		t := a.parseTicker(safe.Object(v))
		if t.Symbol == "" {
			continue
		}
		if len(want) > 0 && !want[t.Symbol] {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (a *Adapter) parseTicker(raw map[string]any) unified.Ticker {
	id := safe.String(raw, "s")
	m, ok := a.markets.ByID(id)
	if !ok {
		return unified.Ticker{}
	}
	last := safe.Decimal(raw, "c")
	return unified.Ticker{
		Symbol:      m.Symbol,
		Timestamp:   safe.MillisTime(raw, "t"),
		High:        safe.Decimal(raw, "h"),
		Low:         safe.Decimal(raw, "l"),
		Open:        safe.Decimal(raw, "o"),
		Close:       last,
		Last:        last,
		Change:      safe.Decimal(raw, "pc"),
		Percentage:  safe.Decimal(raw, "pcp"),
		BaseVolume:  safe.Decimal(raw, "v"),
		QuoteVolume: safe.Decimal(raw, "qv"),
	}
}

// FetchOrderBook returns a depth snapshot with bids descending and asks
// ascending.
func (a *Adapter) FetchOrderBook(ctx context.Context, symbol string, limit int, params exchange.Params) (*unified.OrderBook, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	query := url.Values{"symbol": {m.ID}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	raw, err := a.public(ctx, "/quote/v1/depth", query)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected depth payload: "+err.Error())
	}
	bids, err := unified.ParseBookSide(safe.Slice(obj, "b"))
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "bad bid row: "+err.Error())
	}
	asks, err := unified.ParseBookSide(safe.Slice(obj, "a"))
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "bad ask row: "+err.Error())
	}
	book := &unified.OrderBook{
		Symbol:    symbol,
		Timestamp: safe.MillisTime(obj, "t"),
		Bids:      bids,
		Asks:      asks,
	}
	unified.SortBook(book)
	return book, nil
}

// FetchTrades returns the most recent public trades.
func (a *Adapter) FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Trade, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	query := url.Values{"symbol": {m.ID}}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	raw, err := a.public(ctx, "/quote/v1/trades", query)
	if err != nil {
		return nil, err
	}
	rows, err := safe.ParseArray(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected trades payload: "+err.Error())
	}
	var out []unified.Trade
	for _, v := range rows {
		row := safe.Object(v)
		ts := safe.MillisTime(row, "t")
		if !since.IsZero() && ts.Before(since) {
			continue
		}
		price := safe.Decimal(row, "p")
		amount := safe.Decimal(row, "q")
		trade := unified.Trade{
			Symbol:    symbol,
			Timestamp: ts,
			Price:     price,
			Amount:    amount,
		}
		if price.Valid && amount.Valid {
			trade.Cost = unified.N(price.Decimal.Mul(amount.Decimal))
		}
		// ibm: is buyer maker
		if maker, ok := safe.Bool(row, "ibm"); ok {
			if maker {
				trade.Side = unified.SideSell
			} else {
				trade.Side = unified.SideBuy
			}
		}
		out = append(out, trade)
	}
	return out, nil
}

// FetchOHLCV returns klines for the window [since, until]. When the caller
// asks for more than one exchange page the helper walks the window in fixed
// buckets.
func (a *Adapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, since time.Time, limit int, params exchange.Params) ([]unified.Candle, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	interval, ok := timeframes[timeframe]
	if !ok {
		return nil, errs.BadRequest(name, "unsupported timeframe "+timeframe)
	}
	fetch := func(ctx context.Context, from, to time.Time) ([]unified.Candle, error) {
		query := url.Values{"symbol": {m.ID}, "interval": {interval}}
		if !from.IsZero() {
			query.Set("startTime", strconv.FormatInt(from.UnixMilli(), 10))
		}
		if !to.IsZero() {
			query.Set("endTime", strconv.FormatInt(to.UnixMilli(), 10))
		}
		if limit > 0 {
			query.Set("limit", strconv.Itoa(limit))
		}
		raw, err := a.public(ctx, "/quote/v1/klines", query)
		if err != nil {
			return nil, err
		}
		rows, err := safe.ParseArray(raw)
		if err != nil {
			return nil, errs.New(name, errs.KindExchangeError, "", "unexpected klines payload: "+err.Error())
		}
		return parseCandles(rows)
	}
	if since.IsZero() {
		return fetch(ctx, time.Time{}, time.Time{})
	}
	until := params.Decimal("until")
	end := time.Now().UTC()
	if until.Valid {
		end = time.UnixMilli(until.Decimal.IntPart()).UTC()
	}
	span, err := timeframeSpan(timeframe, limit)
	if err != nil {
		return nil, err
	}
	return paginate.Deterministic(ctx, since, end, span, fetch)
}

func timeframeSpan(timeframe string, limit int) (time.Duration, error) {
	unit := time.Duration(0)
	switch timeframe[len(timeframe)-1] {
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	case 'd':
		unit = 24 * time.Hour
	case 'w':
		unit = 7 * 24 * time.Hour
	case 'M':
		unit = 30 * 24 * time.Hour
	default:
		return 0, errs.BadRequest(name, "unsupported timeframe "+timeframe)
	}
	n, err := strconv.Atoi(timeframe[:len(timeframe)-1])
	if err != nil || n <= 0 {
		return 0, errs.BadRequest(name, "unsupported timeframe "+timeframe)
	}
	page := limit
	if page <= 0 {
		page = 1000
	}
	return time.Duration(n) * unit * time.Duration(page), nil
}

// parseCandles handles the bare-array kline form [t, o, h, l, c, v, ...].
func parseCandles(rows []any) ([]unified.Candle, error) {
	var out []unified.Candle
	for _, v := range rows {
		row, ok := v.([]any)
		if !ok || len(row) < 6 {
			return nil, errs.New(name, errs.KindExchangeError, "", "short kline row")
		}
		cells := map[string]any{
			"t": row[0], "o": row[1], "h": row[2], "l": row[3], "c": row[4], "v": row[5],
		}
		candle := unified.Candle{Timestamp: safe.MillisTime(cells, "t")}
		for key, dst := range map[string]*decimal.Decimal{
			"o": &candle.Open, "h": &candle.High, "l": &candle.Low,
			"c": &candle.Close, "v": &candle.Volume,
		} {
			n := safe.Decimal(cells, key)
			if !n.Valid {
				return nil, errs.New(name, errs.KindExchangeError, "", "non-numeric kline cell "+key)
			}
			*dst = n.Decimal
		}
		out = append(out, candle)
	}
	return out, nil
}

// FetchFundingRates returns the next funding snapshot for all swap markets.
func (a *Adapter) FetchFundingRates(ctx context.Context, syms []string, params exchange.Params) ([]unified.FundingRate, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	raw, err := a.public(ctx, "/api/v1/futures/fundingRate", nil)
	if err != nil {
		return nil, err
	}
	rows, err := safe.ParseArray(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected funding payload: "+err.Error())
	}
	want := make(map[string]bool, len(syms))
	for _, s := range syms {
		want[s] = true
	}
	var out []unified.FundingRate
	for _, v := range rows {
		row := safe.Object(v)
		m, ok := a.markets.ByID(safe.String(row, "symbol"))
		if !ok {
			continue
		}
		if len(want) > 0 && !want[m.Symbol] {
			continue
		}
		out = append(out, unified.FundingRate{
			Symbol:          m.Symbol,
			Rate:            safe.Decimal(row, "rate"),
			NextFundingTime: safe.MillisTime(row, "nextFundingTime"),
		})
	}
	return out, nil
}

// FetchFundingRate returns the next funding snapshot for one swap market.
func (a *Adapter) FetchFundingRate(ctx context.Context, symbol string, params exchange.Params) (*unified.FundingRate, error) {
	rates, err := a.FetchFundingRates(ctx, []string{symbol}, params)
	if err != nil {
		return nil, err
	}
	for i := range rates {
		if rates[i].Symbol == symbol {
			return &rates[i], nil
		}
	}
	return nil, errs.Local(name, errs.KindBadSymbol, "no funding rate for "+symbol)
}

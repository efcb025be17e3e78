package hollaex

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"unifex/internal/errs"
	"unifex/internal/exchange"
	"unifex/internal/request"
	"unifex/internal/safe"
	"unifex/internal/symbols"
	"unifex/internal/unified"
)

// FetchMarkets loads the trading pairs from the constants endpoint.
func (a *Adapter) FetchMarkets(ctx context.Context, params exchange.Params) ([]unified.Market, error) {
	raw, err := a.public(ctx, "/v2/constants", nil)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected constants payload: "+err.Error())
	}
	var markets []unified.Market
	for _, v := range safe.Map(obj, "pairs") {
		pair := safe.Object(v)
		if pair == nil {
			continue
		}
		baseID := safe.String(pair, "pair_base")
		quoteID := safe.String(pair, "pair_2")
		if baseID == "" || quoteID == "" {
			continue
		}
		base := strings.ToUpper(baseID)
		quote := strings.ToUpper(quoteID)
		markets = append(markets, unified.Market{
			ID:      safe.String(pair, "name"),
			Symbol:  symbols.Spot(base, quote),
			Base:    base,
			Quote:   quote,
			BaseID:  baseID,
			QuoteID: quoteID,
			Type:    unified.TypeSpot,
			Active:  safe.BoolOr(pair, false, "active"),
			Precision: unified.Precision{
				Amount: safe.Decimal(pair, "increment_size"),
				Price:  safe.Decimal(pair, "increment_price"),
			},
			Limits: unified.Limits{
				Amount: unified.MinMax{
					Min: safe.Decimal(pair, "min_size"),
					Max: safe.Decimal(pair, "max_size"),
				},
				Price: unified.MinMax{
					Min: safe.Decimal(pair, "min_price"),
					Max: safe.Decimal(pair, "max_price"),
				},
			},
		})
	}
	a.markets.Store(markets)
	return markets, nil
}

// FetchCurrencies loads the coin table, with per-network withdraw fees when
// the kit reports them.
func (a *Adapter) FetchCurrencies(ctx context.Context, params exchange.Params) (map[string]unified.Currency, error) {
	raw, err := a.public(ctx, "/v2/constants", nil)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected constants payload: "+err.Error())
	}
	out := make(map[string]unified.Currency)
	for key, v := range safe.Map(obj, "coins") {
		coin := safe.Object(v)
		if coin == nil {
			continue
		}
		id := safe.StringOr(coin, key, "symbol")
		code := strings.ToUpper(id)
		cur := unified.Currency{
			ID:        id,
			Code:      code,
			Name:      safe.StringOr(coin, code, "fullname"),
			Active:    safe.BoolOr(coin, false, "active"),
			Deposit:   safe.BoolOr(coin, false, "allow_deposit"),
			Withdraw:  safe.BoolOr(coin, false, "allow_withdrawal"),
			Fee:       safe.Decimal(coin, "withdrawal_fee"),
			Precision: safe.Decimal(coin, "increment_unit"),
			Networks:  make(map[string]unified.Network),
		}
		// the kit lists rails as a comma-joined string, with per-network
		// fees in withdrawal_fees when the operator configures them
		fees := safe.Map(coin, "withdrawal_fees")
		for _, netID := range strings.Split(safe.String(coin, "network"), ",") {
			netID = strings.TrimSpace(netID)
			if netID == "" {
				continue
			}
			network := unified.Network{
				ID:       netID,
				Network:  netID,
				Deposit:  cur.Deposit,
				Withdraw: cur.Withdraw,
				Fee:      cur.Fee,
			}
			if feeInfo := safe.Map(fees, netID); feeInfo != nil {
				network.Fee = safe.Decimal(feeInfo, "value")
				network.Withdraw = safe.BoolOr(feeInfo, network.Withdraw, "active")
			}
			cur.Networks[netID] = network
		}
		out[code] = cur
	}
	return out, nil
}

// FetchTicker returns the 24h statistics for one pair.
func (a *Adapter) FetchTicker(ctx context.Context, symbol string, params exchange.Params) (*unified.Ticker, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	raw, err := a.public(ctx, "/v2/ticker", url.Values{"symbol": {m.ID}})
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected ticker payload: "+err.Error())
	}
	t := parseTicker(obj, symbol)
	return &t, nil
}

// FetchTickers returns 24h statistics for all pairs.
func (a *Adapter) FetchTickers(ctx context.Context, syms []string, params exchange.Params) ([]unified.Ticker, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	raw, err := a.public(ctx, "/v2/tickers", nil)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected tickers payload: "+err.Error())
	}
	want := make(map[string]bool, len(syms))
	for _, s := range syms {
		want[s] = true
	}
	var out []unified.Ticker
	for id, v := range obj {
		row := safe.Object(v)
		if row == nil {
			continue
		}
		m, ok := a.markets.ByID(safe.StringOr(row, id, "symbol"))
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
	last := safe.Decimal(raw, "last", "close")
	return unified.Ticker{
		Symbol:     symbol,
		Timestamp:  safe.ISOTime(raw, "timestamp", "time"),
		High:       safe.Decimal(raw, "high"),
		Low:        safe.Decimal(raw, "low"),
		Open:       safe.Decimal(raw, "open"),
		Close:      safe.Decimal(raw, "close"),
		Last:       last,
		BaseVolume: safe.Decimal(raw, "volume"),
	}
}

// FetchOrderBook returns a depth snapshot. The requested limit is rounded up
// to the next served tier; zero picks the smallest.
func (a *Adapter) FetchOrderBook(ctx context.Context, symbol string, limit int, params exchange.Params) (*unified.OrderBook, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	query := url.Values{"symbol": {m.ID}}
	query.Set("limit", strconv.Itoa(request.TierUp(limit, bookTiers)))
	raw, err := a.public(ctx, "/v2/orderbook", query)
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected orderbook payload: "+err.Error())
	}
	// the book is keyed by market id even for a single-symbol request
	book := safe.Map(obj, m.ID)
	if book == nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "orderbook response missing "+m.ID)
	}
	bids, err := unified.ParseBookSide(safe.Slice(book, "bids"))
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "bad bid row: "+err.Error())
	}
	asks, err := unified.ParseBookSide(safe.Slice(book, "asks"))
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "bad ask row: "+err.Error())
	}
	out := &unified.OrderBook{
		Symbol:    symbol,
		Timestamp: safe.ISOTime(book, "timestamp"),
		Bids:      bids,
		Asks:      asks,
	}
	unified.SortBook(out)
	return out, nil
}

// FetchTrades returns recent public trades.
func (a *Adapter) FetchTrades(ctx context.Context, symbol string, since time.Time, limit int, params exchange.Params) ([]unified.Trade, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	raw, err := a.public(ctx, "/v2/trades", url.Values{"symbol": {m.ID}})
	if err != nil {
		return nil, err
	}
	obj, err := safe.ParseObject(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected trades payload: "+err.Error())
	}
	var out []unified.Trade
	for _, v := range safe.Slice(obj, m.ID) {
		row := safe.Object(v)
		ts := safe.ISOTime(row, "timestamp")
		if !since.IsZero() && ts.Before(since) {
			continue
		}
		price := safe.Decimal(row, "price")
		amount := safe.Decimal(row, "size")
		trade := unified.Trade{
			Symbol:    symbol,
			Timestamp: ts,
			Side:      unified.OrderSide(safe.String(row, "side")),
			Price:     price,
			Amount:    amount,
		}
		if price.Valid && amount.Valid {
			trade.Cost = unified.N(price.Decimal.Mul(amount.Decimal))
		}
		out = append(out, trade)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// FetchOHLCV returns chart buckets for [since, until].
func (a *Adapter) FetchOHLCV(ctx context.Context, symbol, timeframe string, since time.Time, limit int, params exchange.Params) ([]unified.Candle, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	resolution, span, err := chartResolution(timeframe)
	if err != nil {
		return nil, err
	}
	to := time.Now().UTC()
	if until := params.Decimal("until"); until.Valid {
		to = time.UnixMilli(until.Decimal.IntPart()).UTC()
	}
	from := since
	if from.IsZero() {
		page := limit
		if page <= 0 {
			page = 500
		}
		from = to.Add(-span * time.Duration(page))
	}
	query := url.Values{
		"symbol":     {m.ID},
		"resolution": {resolution},
		"from":       {strconv.FormatInt(from.Unix(), 10)},
		"to":         {strconv.FormatInt(to.Unix(), 10)},
	}
	raw, err := a.public(ctx, "/v2/chart", query)
	if err != nil {
		return nil, err
	}
	rows, err := safe.ParseArray(raw)
	if err != nil {
		return nil, errs.New(name, errs.KindExchangeError, "", "unexpected chart payload: "+err.Error())
	}
	var out []unified.Candle
	for _, v := range rows {
		row := safe.Object(v)
		open := safe.Decimal(row, "open")
		high := safe.Decimal(row, "high")
		low := safe.Decimal(row, "low")
		closeP := safe.Decimal(row, "close")
		volume := safe.Decimal(row, "volume")
		if !open.Valid || !high.Valid || !low.Valid || !closeP.Valid || !volume.Valid {
			return nil, errs.New(name, errs.KindExchangeError, "", "non-numeric chart bucket")
		}
		out = append(out, unified.Candle{
			Timestamp: safe.ISOTime(row, "time"),
			Open:      open.Decimal,
			High:      high.Decimal,
			Low:       low.Decimal,
			Close:     closeP.Decimal,
			Volume:    volume.Decimal,
		})
	}
	return out, nil
}

func chartResolution(timeframe string) (string, time.Duration, error) {
	switch timeframe {
	case "1m":
		return "1m", time.Minute, nil
	case "5m":
		return "5m", 5 * time.Minute, nil
	case "15m":
		return "15m", 15 * time.Minute, nil
	case "1h":
		return "1h", time.Hour, nil
	case "4h":
		return "4h", 4 * time.Hour, nil
	case "1d":
		return "1D", 24 * time.Hour, nil
	case "1w":
		return "1W", 7 * 24 * time.Hour, nil
	}
	return "", 0, errs.BadRequest(name, "unsupported timeframe "+timeframe)
}

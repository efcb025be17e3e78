package bingx

import (
	"context"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"unifex/internal/errs"
	"unifex/internal/exchange"
	"unifex/internal/paginate"
	"unifex/internal/precision"
	"unifex/internal/safe"
	"unifex/internal/symbols"
	"unifex/internal/unified"
)

var timeframes = map[string]string{
	"1m": "1m", "3m": "3m", "5m": "5m", "15m": "15m", "30m": "30m",
	"1h": "1h", "2h": "2h", "4h": "4h", "6h": "6h", "8h": "8h", "12h": "12h",
	"1d": "1d", "3d": "3d", "1w": "1w", "1M": "1M",
}

// FetchMarkets loads the perpetual contract list and refreshes the market
// cache.
func (a *Adapter) FetchMarkets(ctx context.Context, params exchange.Params) ([]unified.Market, error) {
	obj, err := a.public(ctx, "/openApi/swap/v2/quote/contracts", nil)
	if err != nil {
		return nil, err
	}
	var markets []unified.Market
	for _, v := range safe.Slice(obj, "data") {
		raw := safe.Object(v)
		id := safe.String(raw, "symbol")
		parts := strings.SplitN(id, "-", 2)
		if len(parts) != 2 {
			continue
		}
		base, quote := parts[0], parts[1]
		settle := safe.StringOr(raw, quote, "currency")
		m := unified.Market{
			ID:           id,
			Symbol:       symbols.Swap(base, quote, settle),
			Base:         base,
			Quote:        quote,
			Settle:       settle,
			BaseID:       safe.StringOr(raw, base, "asset"),
			QuoteID:      quote,
			SettleID:     settle,
			Type:         unified.TypeSwap,
			Active:       safe.String(raw, "status") == "1",
			Contract:     true,
			Linear:       true,
			ContractSize: safe.Decimal(raw, "size"),
		}
		// precision arrives as decimal digit counts, not step sizes
		if digits, ok := safe.Int(raw, "pricePrecision"); ok {
			m.Precision.Price = unified.N(precision.StepFromDigits(int32(digits)))
		}
		if digits, ok := safe.Int(raw, "quantityPrecision"); ok {
			m.Precision.Amount = unified.N(precision.StepFromDigits(int32(digits)))
		}
		m.Limits.Leverage = unified.MinMax{Max: safe.Decimal(raw, "maxLongLeverage")}
		m.Limits.Amount = unified.MinMax{Min: safe.Decimal(raw, "tradeMinLimit")}
		m.TakerFee = safe.Decimal(raw, "feeRate")
		markets = append(markets, m)
	}
	a.markets.Store(markets)
	return markets, nil
}

// FetchTicker returns the 24h contract statistics for one symbol.
func (a *Adapter) FetchTicker(ctx context.Context, symbol string, params exchange.Params) (*unified.Ticker, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	obj, err := a.public(ctx, "/openApi/swap/v2/quote/ticker", url.Values{"symbol": {m.ID}})
	if err != nil {
		return nil, err
	}
	t := a.parseTicker(safe.Map(obj, "data"))
	if t.Symbol == "" {
		return nil, errs.Local(name, errs.KindBadSymbol, "no ticker returned for "+symbol)
	}
	return &t, nil
}

// FetchTickers returns 24h statistics for all contracts, optionally filtered.
func (a *Adapter) FetchTickers(ctx context.Context, syms []string, params exchange.Params) ([]unified.Ticker, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	obj, err := a.public(ctx, "/openApi/swap/v2/quote/ticker", nil)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(syms))
	for _, s := range syms {
		want[s] = true
	}
	var out []unified.Ticker
	for _, v := range safe.Slice(obj, "data") {
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
	m, ok := a.markets.ByID(safe.String(raw, "symbol"))
	if !ok {
		return unified.Ticker{}
	}
	last := safe.Decimal(raw, "lastPrice")
	return unified.Ticker{
		Symbol:      m.Symbol,
		Timestamp:   safe.MillisTime(raw, "closeTime", "time"),
		High:        safe.Decimal(raw, "highPrice"),
		Low:         safe.Decimal(raw, "lowPrice"),
		Open:        safe.Decimal(raw, "openPrice"),
		Close:       last,
		Last:        last,
		Change:      safe.Decimal(raw, "priceChange"),
		Percentage:  safe.Decimal(raw, "priceChangePercent"),
		BaseVolume:  safe.Decimal(raw, "volume"),
		QuoteVolume: safe.Decimal(raw, "quoteVolume"),
	}
}

// FetchOHLCV fetches klines, walking [since, until] in fixed windows when a
// start bound is given.
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
	page := limit
	if page <= 0 {
		page = 1000
	}
	fetch := func(ctx context.Context, from, to time.Time) ([]unified.Candle, error) {
		query := url.Values{"symbol": {m.ID}, "interval": {interval}}
		if !from.IsZero() {
			query.Set("startTime", strconv.FormatInt(from.UnixMilli(), 10))
		}
		if !to.IsZero() {
			query.Set("endTime", strconv.FormatInt(to.UnixMilli(), 10))
		}
		query.Set("limit", strconv.Itoa(page))
		obj, err := a.public(ctx, "/openApi/swap/v2/quote/klines", query)
		if err != nil {
			return nil, err
		}
		return parseCandles(safe.Slice(obj, "data"))
	}
	if since.IsZero() {
		return fetch(ctx, time.Time{}, time.Time{})
	}
	unit, err := timeframeUnit(timeframe)
	if err != nil {
		return nil, err
	}
	end := time.Now().UTC()
	if until := params.Decimal("until"); until.Valid {
		end = time.UnixMilli(until.Decimal.IntPart()).UTC()
	}
	return paginate.Deterministic(ctx, since, end, unit*time.Duration(page), fetch)
}

func timeframeUnit(timeframe string) (time.Duration, error) {
	n, err := strconv.Atoi(timeframe[:len(timeframe)-1])
	if err != nil || n <= 0 {
		return 0, errs.BadRequest(name, "unsupported timeframe "+timeframe)
	}
	switch timeframe[len(timeframe)-1] {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'M':
		return time.Duration(n) * 30 * 24 * time.Hour, nil
	}
	return 0, errs.BadRequest(name, "unsupported timeframe "+timeframe)
}

// parseCandles handles the object kline form {time, open, high, low, close,
// volume}.
func parseCandles(rows []any) ([]unified.Candle, error) {
	var out []unified.Candle
	for _, v := range rows {
		row := safe.Object(v)
		if row == nil {
			return nil, errs.New(name, errs.KindExchangeError, "", "unexpected kline row")
		}
		candle := unified.Candle{Timestamp: safe.MillisTime(row, "time", "t")}
		for key, dst := range map[string]*decimal.Decimal{
			"open": &candle.Open, "high": &candle.High, "low": &candle.Low,
			"close": &candle.Close, "volume": &candle.Volume,
		} {
			n := safe.Decimal(row, key)
			if !n.Valid {
				return nil, errs.New(name, errs.KindExchangeError, "", "non-numeric kline field "+key)
			}
			*dst = n.Decimal
		}
		out = append(out, candle)
	}
	return out, nil
}

// FetchFundingRate returns the current premium index snapshot for one
// contract.
func (a *Adapter) FetchFundingRate(ctx context.Context, symbol string, params exchange.Params) (*unified.FundingRate, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	m, err := a.markets.Resolve(name, symbol)
	if err != nil {
		return nil, err
	}
	obj, err := a.public(ctx, "/openApi/swap/v2/quote/premiumIndex", url.Values{"symbol": {m.ID}})
	if err != nil {
		return nil, err
	}
	rate := a.parseFundingRate(safe.Map(obj, "data"))
	if rate.Symbol == "" {
		return nil, errs.Local(name, errs.KindBadSymbol, "no funding rate for "+symbol)
	}
	return &rate, nil
}

// FetchFundingRates returns premium index snapshots for all contracts.
func (a *Adapter) FetchFundingRates(ctx context.Context, syms []string, params exchange.Params) ([]unified.FundingRate, error) {
	if err := a.loadMarkets(ctx); err != nil {
		return nil, err
	}
	obj, err := a.public(ctx, "/openApi/swap/v2/quote/premiumIndex", nil)
	if err != nil {
		return nil, err
	}
	want := make(map[string]bool, len(syms))
	for _, s := range syms {
		want[s] = true
	}
	var out []unified.FundingRate
	for _, v := range safe.Slice(obj, "data") {
		rate := a.parseFundingRate(safe.Object(v))
		if rate.Symbol == "" {
			continue
		}
		if len(want) > 0 && !want[rate.Symbol] {
			continue
		}
		out = append(out, rate)
	}
	return out, nil
}

func (a *Adapter) parseFundingRate(raw map[string]any) unified.FundingRate {
	m, ok := a.markets.ByID(safe.String(raw, "symbol"))
	if !ok {
		return unified.FundingRate{}
	}
	return unified.FundingRate{
		Symbol:          m.Symbol,
		Rate:            safe.Decimal(raw, "lastFundingRate"),
		NextFundingTime: safe.MillisTime(raw, "nextFundingTime"),
	}
}

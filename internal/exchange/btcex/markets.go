package btcex

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"

	"unifex/internal/exchange"
	"unifex/internal/safe"
	"unifex/internal/symbols"
	"unifex/internal/unified"
)

// FetchMarkets loads the instrument table across all families. The upstream
// payload swaps base and quote: base_currency holds the counter asset and
// quote_currency the traded one, so the mapping below reads crossed on
// purpose.
func (a *Adapter) FetchMarkets(ctx context.Context, params exchange.Params) ([]unified.Market, error) {
	obj, err := a.public(ctx, "/get_instruments", nil)
	if err != nil {
		return nil, err
	}
	var markets []unified.Market
	for _, v := range safe.Slice(obj, "result") {
		row := safe.Object(v)
		if row == nil {
			continue
		}
		m, ok := parseMarket(row)
		if !ok {
			continue
		}
		markets = append(markets, m)
	}
	a.markets.Store(markets)
	return markets, nil
}

func parseMarket(row map[string]any) (unified.Market, bool) {
	id := safe.String(row, "instrument_name")
	if id == "" {
		return unified.Market{}, false
	}
	kind := safe.String(row, "kind")
	baseID := safe.String(row, "quote_currency")
	quoteID := safe.String(row, "base_currency")
	m := unified.Market{
		ID:       id,
		Type:     unified.TypeSpot,
		Active:   safe.BoolOr(row, false, "is_active"),
		MakerFee: safe.Decimal(row, "maker_commission"),
		TakerFee: safe.Decimal(row, "taker_commission"),
		Precision: unified.Precision{
			Amount: safe.Decimal(row, "min_trade_amount"),
			Price:  safe.Decimal(row, "tick_size"),
		},
		Limits: unified.Limits{
			Amount:   unified.MinMax{Min: safe.Decimal(row, "min_trade_amount")},
			Price:    unified.MinMax{Min: safe.Decimal(row, "tick_size")},
			Leverage: unified.MinMax{Max: safe.Decimal(row, "leverage")},
		},
	}
	switch kind {
	case "spot", "margin":
	case "perpetual":
		m.Type = unified.TypeSwap
	case "future":
		m.Type = unified.TypeFuture
	case "option":
		m.Type = unified.TypeOption
	default:
		return unified.Market{}, false
	}
	if m.Type == unified.TypeFuture || m.Type == unified.TypeOption {
		baseID = safe.String(row, "currency")
		m.Expiry = safe.MillisTime(row, "expiration_timestamp")
	}
	m.BaseID = baseID
	m.QuoteID = quoteID
	m.Base = strings.ToUpper(baseID)
	m.Quote = strings.ToUpper(quoteID)
	switch m.Type {
	case unified.TypeSpot:
		m.Symbol = symbols.Spot(m.Base, m.Quote)
		if kind == "margin" {
			// margin pairs shadow their spot twins, keep the raw id apart
			m.Symbol = id
		}
	default:
		m.Contract = true
		m.Linear = true
		m.SettleID = quoteID
		m.Settle = m.Quote
		m.ContractSize = safe.Decimal(row, "contract_size")
		switch m.Type {
		case unified.TypeSwap:
			m.Symbol = symbols.Swap(m.Base, m.Quote, m.Settle)
		case unified.TypeFuture:
			m.Symbol = symbols.Future(m.Base, m.Quote, m.Settle, m.Expiry)
		case unified.TypeOption:
			m.Strike = safe.Decimal(row, "strike")
			m.OptionType = safe.String(row, "option_type")
			letter := "C"
			if m.OptionType == "put" {
				letter = "P"
			}
			m.Symbol = symbols.Option(m.Base, m.Quote, m.Settle, m.Expiry, m.Strike.Decimal.String(), letter)
		}
	}
	return m, true
}

// marketForID maps an exchange instrument id to its Market. Expired and
// delisted option contracts fall out of get_instruments, so when the id still
// decomposes as an option we rebuild a degraded Market from its encoded
// components rather than dropping the order or fill that referenced it.
func (a *Adapter) marketForID(id string) unified.Market {
	if m, ok := a.markets.ByID(id); ok {
		return m
	}
	if symbols.IsOptionID(id) {
		if p, err := symbols.FromOptionID(id); err == nil {
			return a.syntheticOption(id, p)
		}
	}
	return unified.Market{ID: id, Symbol: id}
}

func (a *Adapter) syntheticOption(id string, p symbols.Parts) unified.Market {
	optionType := "call"
	if p.OptionType == "P" {
		optionType = "put"
	}
	var strike unified.Number
	if d, err := decimal.NewFromString(p.Strike); err == nil {
		strike = unified.N(d)
	}
	return unified.Market{
		ID:         id,
		Symbol:     symbols.Build(p),
		Base:       p.Base,
		Quote:      p.Quote,
		Settle:     p.Settle,
		BaseID:     p.Base,
		QuoteID:    p.Quote,
		SettleID:   p.Settle,
		Type:       unified.TypeOption,
		Contract:   true,
		Linear:     true,
		Expiry:     p.Expiry,
		Strike:     strike,
		OptionType: optionType,
	}
}

// Package request implements the assembly policies shared by adapters:
// mandatory time windows, page-size tiers, quote-cost sizing for market buys
// and precision-formatted numeric fields.
package request

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"unifex/internal/errs"
	"unifex/internal/precision"
	"unifex/internal/unified"
)

// Window derives a mandatory bounded time window. When both bounds are
// absent the window defaults to [now-span, now]. When exactly one bound is
// given the other is derived by the fixed span, clamped to now on the future
// side. Both returned bounds are always set.
func Window(since, until, now time.Time, span time.Duration) (time.Time, time.Time) {
	clamp := func(t time.Time) time.Time {
		if t.After(now) {
			return now
		}
		return t
	}
	switch {
	case since.IsZero() && until.IsZero():
		return now.Add(-span), now
	case until.IsZero():
		return since, clamp(since.Add(span))
	case since.IsZero():
		u := clamp(until)
		return u.Add(-span), u
	default:
		return since, clamp(until)
	}
}

// EnforceLookback fails fast when since falls outside the exchange's
// declared maximum lookback, instead of letting the exchange answer with an
// empty page.
func EnforceLookback(exchange string, since, now time.Time, max time.Duration) error {
	if since.IsZero() || max <= 0 {
		return nil
	}
	if oldest := now.Add(-max); since.Before(oldest) {
		return errs.BadRequest(exchange, fmt.Sprintf(
			"requested history since %s exceeds the %s lookback bound",
			since.UTC().Format(time.RFC3339), max))
	}
	return nil
}

// TierUp quantizes a requested page size to the next allowed tier, rounding
// up, never to the nearest. Zero picks the smallest tier; anything above the
// largest tier clamps to it. Tiers must be ascending.
func TierUp(limit int, tiers []int) int {
	if len(tiers) == 0 {
		return limit
	}
	if limit <= 0 {
		return tiers[0]
	}
	for _, tier := range tiers {
		if limit <= tier {
			return tier
		}
	}
	return tiers[len(tiers)-1]
}

// Amount rounds and renders an order amount against the market's amount
// step. A missing step passes the plain decimal representation through.
func Amount(market unified.Market, v decimal.Decimal) (string, error) {
	return formatWithStep(v, market.Precision.Amount)
}

// Price rounds and renders a price against the market's price step.
func Price(market unified.Market, v decimal.Decimal) (string, error) {
	return formatWithStep(v, market.Precision.Price)
}

// Cost rounds and renders a quote cost against the market's cost step. A
// market without one falls back to the price step, which can over-truncate
// the spendable amount when the price tick is coarse.
func Cost(market unified.Market, v decimal.Decimal) (string, error) {
	step := market.Precision.Cost
	if !step.Valid {
		step = market.Precision.Price
	}
	return formatWithStep(v, step)
}

func formatWithStep(v decimal.Decimal, step unified.Number) (string, error) {
	if !step.Valid {
		return v.String(), nil
	}
	return precision.FormatToStep(v, step.Decimal)
}

// MarketBuyCost resolves the quote cost for a market buy on an exchange that
// sizes such orders by cost. An explicit cost wins; otherwise the cost is
// amount*price; when the price is unknown and requiresPrice is in force the
// order is rejected before any network call.
func MarketBuyCost(exchange string, amount decimal.Decimal, price, cost unified.Number, requiresPrice bool) (decimal.Decimal, error) {
	if cost.Valid {
		return cost.Decimal, nil
	}
	if price.Valid {
		return amount.Mul(price.Decimal), nil
	}
	if requiresPrice {
		return decimal.Decimal{}, errs.InvalidOrder(exchange,
			"market buy orders require the price argument (or an explicit cost) to compute the quote amount to spend; "+
				"supply a cost parameter or disable createMarketBuyOrderRequiresPrice to send the amount as cost")
	}
	return amount, nil
}

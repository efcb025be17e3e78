// Package symbols builds and parses the unified symbol notation shared by
// every adapter: BASE/QUOTE for spot, BASE/QUOTE:SETTLE for swaps,
// BASE/QUOTE:SETTLE-YYMMDD for futures and
// BASE/QUOTE:SETTLE-YYMMDD-STRIKE-C|P for options.
package symbols

import (
	"fmt"
	"strings"
	"time"
)

const expiryLayout = "060102"

// Parts holds the decomposed pieces of a unified symbol.
type Parts struct {
	Base       string
	Quote      string
	Settle     string
	Expiry     time.Time
	Strike     string // decimal string, empty for non-options
	OptionType string // "C" or "P", empty for non-options
}

// Spot renders BASE/QUOTE.
func Spot(base, quote string) string {
	return strings.ToUpper(base) + "/" + strings.ToUpper(quote)
}

// Swap renders BASE/QUOTE:SETTLE.
func Swap(base, quote, settle string) string {
	return Spot(base, quote) + ":" + strings.ToUpper(settle)
}

// Future renders BASE/QUOTE:SETTLE-YYMMDD.
func Future(base, quote, settle string, expiry time.Time) string {
	return Swap(base, quote, settle) + "-" + expiry.UTC().Format(expiryLayout)
}

// Option renders BASE/QUOTE:SETTLE-YYMMDD-STRIKE-C|P.
func Option(base, quote, settle string, expiry time.Time, strike, optionType string) string {
	return Future(base, quote, settle, expiry) + "-" + strike + "-" + strings.ToUpper(optionType)
}

// Build renders the unified symbol for p, choosing the densest form the
// populated fields allow.
func Build(p Parts) string {
	switch {
	case p.OptionType != "":
		return Option(p.Base, p.Quote, p.Settle, p.Expiry, p.Strike, p.OptionType)
	case !p.Expiry.IsZero():
		return Future(p.Base, p.Quote, p.Settle, p.Expiry)
	case p.Settle != "":
		return Swap(p.Base, p.Quote, p.Settle)
	default:
		return Spot(p.Base, p.Quote)
	}
}

// Parse decomposes a unified symbol back into Parts.
func Parse(symbol string) (Parts, error) {
	var p Parts
	slash := strings.IndexByte(symbol, '/')
	if slash <= 0 {
		return p, fmt.Errorf("symbol %q has no base/quote separator", symbol)
	}
	p.Base = symbol[:slash]
	rest := symbol[slash+1:]
	colon := strings.IndexByte(rest, ':')
	if colon < 0 {
		p.Quote = rest
		return p, nil
	}
	p.Quote = rest[:colon]
	contract := rest[colon+1:]
	segments := strings.Split(contract, "-")
	p.Settle = segments[0]
	if len(segments) >= 2 {
		expiry, err := ParseExpiry(segments[1])
		if err != nil {
			return p, fmt.Errorf("symbol %q: %w", symbol, err)
		}
		p.Expiry = expiry
	}
	if len(segments) >= 4 {
		p.Strike = segments[2]
		p.OptionType = strings.ToUpper(segments[3])
	}
	return p, nil
}

// ParseExpiry reads a YYMMDD contract date.
func ParseExpiry(s string) (time.Time, error) {
	t, err := time.Parse(expiryLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad expiry date %q: %w", s, err)
	}
	return t.UTC(), nil
}

// FromOptionID decomposes an exchange option id of the form
// BASE-QUOTE-YYMMDD-STRIKE-C|P. Delisted and expired contracts drop out of
// the markets index, so adapters reconstruct a degraded Market from the id's
// encoded components instead of failing.
func FromOptionID(id string) (Parts, error) {
	var p Parts
	segments := strings.Split(id, "-")
	if len(segments) != 5 {
		return p, fmt.Errorf("option id %q does not have 5 segments", id)
	}
	expiry, err := ParseExpiry(segments[2])
	if err != nil {
		return p, fmt.Errorf("option id %q: %w", id, err)
	}
	optionType := strings.ToUpper(segments[4])
	if optionType != "C" && optionType != "P" {
		return p, fmt.Errorf("option id %q has unknown option type %q", id, segments[4])
	}
	p.Base = strings.ToUpper(segments[0])
	p.Quote = strings.ToUpper(segments[1])
	p.Settle = p.Quote
	p.Expiry = expiry
	p.Strike = segments[3]
	p.OptionType = optionType
	return p, nil
}

// IsOptionID reports whether an exchange market id looks like an option
// contract id.
func IsOptionID(id string) bool {
	return strings.HasSuffix(id, "-C") || strings.HasSuffix(id, "-P")
}

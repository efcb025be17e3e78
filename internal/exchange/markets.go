package exchange

import (
	"sort"
	"sync"

	"unifex/internal/errs"
	"unifex/internal/unified"
)

// MarketCache is the per-instance market index: unified symbol → Market and
// exchange id → Market. It is replaced wholesale after each fetchMarkets and
// read everywhere else, so a RWMutex suffices.
type MarketCache struct {
	mu       sync.RWMutex
	bySymbol map[string]unified.Market
	byID     map[string]unified.Market
}

// Store replaces the cache contents with the given market list.
func (c *MarketCache) Store(markets []unified.Market) {
	bySymbol := make(map[string]unified.Market, len(markets))
	byID := make(map[string]unified.Market, len(markets))
	for _, m := range markets {
		bySymbol[m.Symbol] = m
		byID[m.ID] = m
	}
	c.mu.Lock()
	c.bySymbol = bySymbol
	c.byID = byID
	c.mu.Unlock()
}

// Loaded reports whether Store has run at least once.
func (c *MarketCache) Loaded() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bySymbol != nil
}

// BySymbol looks a market up by unified symbol.
func (c *MarketCache) BySymbol(symbol string) (unified.Market, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.bySymbol[symbol]
	return m, ok
}

// ByID looks a market up by the exchange's own instrument id.
func (c *MarketCache) ByID(id string) (unified.Market, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	m, ok := c.byID[id]
	return m, ok
}

// Symbols returns the cached unified symbols, sorted.
func (c *MarketCache) Symbols() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bySymbol))
	for s := range c.bySymbol {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Resolve maps a unified symbol to its Market, failing with BadSymbol when
// the symbol is unknown to the loaded market set.
func (c *MarketCache) Resolve(exchange, symbol string) (unified.Market, error) {
	if m, ok := c.BySymbol(symbol); ok {
		return m, nil
	}
	return unified.Market{}, errs.Local(exchange, errs.KindBadSymbol, "unknown symbol "+symbol)
}

package unified

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"unifex/internal/safe"
)

// ParseBookSide converts a raw [[price, amount], ...] array into sorted book
// levels. Entries are exact decimals; malformed rows are an error rather
// than a silent skip.
func ParseBookSide(raw []any) ([]BookLevel, error) {
	levels := make([]BookLevel, 0, len(raw))
	for _, entry := range raw {
		row, ok := entry.([]any)
		if !ok || len(row) < 2 {
			return nil, fmt.Errorf("order book row %v is not a [price, amount] pair", entry)
		}
		price, err := decimalFromAny(row[0])
		if err != nil {
			return nil, fmt.Errorf("order book price: %w", err)
		}
		amount, err := decimalFromAny(row[1])
		if err != nil {
			return nil, fmt.Errorf("order book amount: %w", err)
		}
		levels = append(levels, BookLevel{Price: price, Amount: amount})
	}
	return levels, nil
}

// SortBook orders bids descending and asks ascending by price, the invariant
// all normalized books satisfy regardless of the wire order.
func SortBook(book *OrderBook) {
	sort.Slice(book.Bids, func(i, j int) bool {
		return book.Bids[i].Price.GreaterThan(book.Bids[j].Price)
	})
	sort.Slice(book.Asks, func(i, j int) bool {
		return book.Asks[i].Price.LessThan(book.Asks[j].Price)
	})
}

// ParseFee builds a Fee only when the exchange reported a cost. Absent fees
// stay nil.
func ParseFee(raw map[string]any, costKeys []string, currencyKeys []string) *Fee {
	if raw == nil {
		return nil
	}
	cost := safe.Decimal(raw, costKeys...)
	if !cost.Valid {
		return nil
	}
	return &Fee{
		Currency: safe.String(raw, currencyKeys...),
		Cost:     cost,
	}
}

func decimalFromAny(v any) (decimal.Decimal, error) {
	switch t := v.(type) {
	case string:
		return decimal.NewFromString(t)
	case fmt.Stringer:
		return decimal.NewFromString(t.String())
	default:
		return decimal.Decimal{}, fmt.Errorf("unsupported numeric value %v (%T)", v, v)
	}
}

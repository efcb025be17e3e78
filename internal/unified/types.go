// Package unified defines the exchange-agnostic entity schema every adapter
// normalizes into. Monetary quantities are exact decimals end to end; an
// absent value is the invalid decimal.NullDecimal sentinel, never a
// fabricated zero.
package unified

import (
	"time"

	"github.com/shopspring/decimal"
)

// Number is an optional exact decimal. The zero value is the "unknown"
// sentinel.
type Number = decimal.NullDecimal

// N wraps a decimal into a valid Number.
func N(d decimal.Decimal) Number {
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

// MarketType distinguishes the four market families.
type MarketType string

const (
	TypeSpot   MarketType = "spot"
	TypeSwap   MarketType = "swap"
	TypeFuture MarketType = "future"
	TypeOption MarketType = "option"
)

// OrderSide is the direction of an order or trade.
type OrderSide string

const (
	SideBuy  OrderSide = "buy"
	SideSell OrderSide = "sell"
)

// OrderType is the unified order type.
type OrderType string

const (
	TypeLimit  OrderType = "limit"
	TypeMarket OrderType = "market"
)

// OrderStatus is the unified order lifecycle state. Unrecognised raw
// statuses pass through unchanged so callers can still observe them.
type OrderStatus string

const (
	StatusOpen     OrderStatus = "open"
	StatusClosed   OrderStatus = "closed"
	StatusCanceled OrderStatus = "canceled"
	StatusRejected OrderStatus = "rejected"
)

// TakerOrMaker records which side of the book a fill consumed.
type TakerOrMaker string

const (
	Taker TakerOrMaker = "taker"
	Maker TakerOrMaker = "maker"
)

// PositionSide is the direction of a contract position.
type PositionSide string

const (
	PositionLong  PositionSide = "long"
	PositionShort PositionSide = "short"
)

// TxStatus is the unified deposit/withdrawal/transfer state.
type TxStatus string

const (
	TxPending  TxStatus = "pending"
	TxOK       TxStatus = "ok"
	TxFailed   TxStatus = "failed"
	TxCanceled TxStatus = "canceled"
)

// MapStatus resolves a raw exchange status through a lookup table, passing
// unmapped values through verbatim instead of dropping them.
func MapStatus[T ~string](table map[string]T, raw string) T {
	if mapped, ok := table[raw]; ok {
		return mapped
	}
	return T(raw)
}

// Precision holds a market's decimal step sizes.
type Precision struct {
	Amount Number
	Price  Number
	Cost   Number
}

// MinMax is a closed numeric range; either bound may be the unknown sentinel.
type MinMax struct {
	Min Number
	Max Number
}

// Limits groups a market's order constraints.
type Limits struct {
	Amount   MinMax
	Price    MinMax
	Cost     MinMax
	Leverage MinMax
}

// Market describes one tradable instrument. One unified symbol maps to
// exactly one Market per exchange instance; contract markets always carry a
// settle currency, spot markets never carry expiry or strike.
type Market struct {
	ID           string
	Symbol       string
	Base         string
	Quote        string
	Settle       string
	BaseID       string
	QuoteID      string
	SettleID     string
	Type         MarketType
	Active       bool
	Contract     bool
	Linear       bool
	Inverse      bool
	ContractSize Number
	Expiry       time.Time
	Strike       Number
	OptionType   string // "call" or "put"
	Precision    Precision
	Limits       Limits
	MakerFee     Number
	TakerFee     Number
}

// Network is one deposit/withdraw rail of a currency.
type Network struct {
	ID       string
	Network  string
	Deposit  bool
	Withdraw bool
	Fee      Number
	Limits   MinMax
}

// Currency is one asset listed on the exchange.
type Currency struct {
	ID        string
	Code      string
	Name      string
	Active    bool
	Deposit   bool
	Withdraw  bool
	Fee       Number
	Precision Number
	Networks  map[string]Network
}

// Fee is a {currency, cost} pair. Adapters emit it only when the exchange
// reported one; an absent fee stays nil rather than becoming a zero-cost
// fabrication.
type Fee struct {
	Currency string
	Cost     Number
	Rate     Number
}

// Ticker is a 24h market statistics snapshot.
type Ticker struct {
	Symbol      string
	Timestamp   time.Time
	High        Number
	Low         Number
	Bid         Number
	BidVolume   Number
	Ask         Number
	AskVolume   Number
	Open        Number
	Close       Number
	Last        Number
	Change      Number
	Percentage  Number
	BaseVolume  Number
	QuoteVolume Number
}

// BookLevel is one price level of an order book.
type BookLevel struct {
	Price  decimal.Decimal
	Amount decimal.Decimal
}

// OrderBook is a normalized depth snapshot: bids descending, asks ascending.
type OrderBook struct {
	Symbol    string
	Timestamp time.Time
	Bids      []BookLevel
	Asks      []BookLevel
	Nonce     int64
}

// Candle is one OHLCV bucket.
type Candle struct {
	Timestamp time.Time
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
}

// Trade is a single execution, public or private.
type Trade struct {
	ID           string
	OrderID      string
	Symbol       string
	Timestamp    time.Time
	Side         OrderSide
	Price        Number
	Amount       Number
	Cost         Number
	TakerOrMaker TakerOrMaker
	Fee          *Fee
}

// Order is the unified order entity. Status transitions are exchange-driven;
// adapters never infer a transition the exchange did not report.
type Order struct {
	ID            string
	ClientOrderID string
	Symbol        string
	Timestamp     time.Time
	Type          OrderType
	Side          OrderSide
	Price         Number
	TriggerPrice  Number
	Amount        Number
	Filled        Number
	Remaining     Number
	Cost          Number
	Average       Number
	Status        OrderStatus
	TimeInForce   string
	PostOnly      bool
	ReduceOnly    bool
	Fee           *Fee
	Trades        []Trade
}

// Account is one currency's balance triple. Total is taken from the exchange
// when reported directly, to avoid precision drift against the authoritative
// number.
type Account struct {
	Free  Number
	Used  Number
	Total Number
}

// Balances maps currency code to Account.
type Balances struct {
	Timestamp time.Time
	Accounts  map[string]Account
}

// Position is an open contract position.
type Position struct {
	Symbol            string
	Side              PositionSide
	Contracts         Number
	ContractSize      Number
	EntryPrice        Number
	MarkPrice         Number
	Notional          Number
	Leverage          Number
	UnrealizedPnl     Number
	InitialMargin     Number
	MaintenanceMargin Number
	MarginMode        string
	Timestamp         time.Time
}

// Transaction is a deposit or withdrawal.
type Transaction struct {
	ID        string
	TxID      string
	Type      string // "deposit" or "withdrawal"
	Currency  string
	Amount    Number
	Address   string
	Tag       string
	Network   string
	Status    TxStatus
	Fee       *Fee
	Timestamp time.Time
}

// Transfer is an internal account-to-account move.
type Transfer struct {
	ID          string
	Currency    string
	Amount      Number
	FromAccount string
	ToAccount   string
	Status      TxStatus
	Timestamp   time.Time
}

// LedgerEntry is one row of the account ledger.
type LedgerEntry struct {
	ID        string
	Currency  string
	Amount    Number
	Before    Number
	After     Number
	Direction string // "in" or "out"
	Type      string
	Timestamp time.Time
}

// FundingRate is a perpetual swap funding snapshot.
type FundingRate struct {
	Symbol          string
	Rate            Number
	Timestamp       time.Time
	NextFundingTime time.Time
	Interval        string
}

// DepositAddress is a crypto deposit destination.
type DepositAddress struct {
	Currency string
	Network  string
	Address  string
	Tag      string
}

package types

type OrderSide string

type OrderKind string

type InstrumentKind string

type OptionType string

type TransactionStatus string

type Bucket string

type LedgerEntryType string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	OrderKindMarket OrderKind = "MARKET"
	OrderKindLimit  OrderKind = "LIMIT"
	OrderKindStop   OrderKind = "STOP"
)

const (
	InstrumentKindEquity InstrumentKind = "EQUITY"
	InstrumentKindFuture InstrumentKind = "FUTURE"
	InstrumentKindOption InstrumentKind = "OPTION"
)

const (
	OptionTypeCall OptionType = "CALL"
	OptionTypePut  OptionType = "PUT"
)

const (
	TransactionStatusCompleted TransactionStatus = "COMPLETED"
	TransactionStatusPending   TransactionStatus = "PENDING"
)

// Buckets partition an account's cash for double entry. The cash bucket
// mirrors accounts.cash_balance.
const (
	BucketCash   Bucket = "cash"
	BucketMargin Bucket = "margin"
	BucketMarket Bucket = "market"
)

const (
	LedgerEntryTypeTrade         LedgerEntryType = "trade"
	LedgerEntryTypeMarginReserve LedgerEntryType = "margin_reserve"
	LedgerEntryTypeMarginRelease LedgerEntryType = "margin_release"
	LedgerEntryTypePremium       LedgerEntryType = "premium"
	LedgerEntryTypeSettlement    LedgerEntryType = "settlement"
	LedgerEntryTypeDeposit       LedgerEntryType = "deposit"
)

func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

func (k OrderKind) Valid() bool {
	return k == OrderKindMarket || k == OrderKindLimit || k == OrderKindStop
}

func (k InstrumentKind) Valid() bool {
	return k == InstrumentKindEquity || k == InstrumentKindFuture || k == InstrumentKindOption
}

// Derivative reports whether positions in this kind are sized in lots.
func (k InstrumentKind) Derivative() bool {
	return k == InstrumentKindFuture || k == InstrumentKindOption
}

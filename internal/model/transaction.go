package model

import (
	"time"

	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
)

// Transaction is the write-once audit record of an order.
type Transaction struct {
	ID             string                  `json:"id"`
	AccountID      string                  `json:"account_id"`
	InstrumentID   string                  `json:"instrument_id"`
	InstrumentKind types.InstrumentKind    `json:"instrument_kind"`
	Side           types.OrderSide         `json:"side"`
	OrderKind      types.OrderKind         `json:"order_kind"`
	Quantity       int64                   `json:"quantity"`
	Price          decimal.Decimal         `json:"price"`
	Total          decimal.Decimal         `json:"total"`
	RealizedPnL    decimal.Decimal         `json:"realized_pnl"`
	CashDelta      decimal.Decimal         `json:"cash_delta"`
	Status         types.TransactionStatus `json:"status"`
	CreatedAt      time.Time               `json:"created_at"`
}

type LedgerEntry struct {
	ID        string                `json:"id"`
	TxRef     string                `json:"tx_ref"`
	AccountID string                `json:"account_id"`
	Bucket    types.Bucket          `json:"bucket"`
	Amount    decimal.Decimal       `json:"amount"`
	EntryType types.LedgerEntryType `json:"entry_type"`
	Sequence  int64                 `json:"sequence"`
	PrevHash  string                `json:"prev_hash"`
	Hash      string                `json:"hash"`
	CreatedAt time.Time             `json:"created_at"`
}

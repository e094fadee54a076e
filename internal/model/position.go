package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type EquityPosition struct {
	AccountID    string          `json:"account_id"`
	InstrumentID string          `json:"instrument_id"`
	Quantity     int64           `json:"quantity"`
	AvgBuyPrice  decimal.Decimal `json:"avg_buy_price"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// FuturesPosition.Quantity is signed: positive is long, negative is short.
type FuturesPosition struct {
	AccountID    string          `json:"account_id"`
	ContractID   string          `json:"contract_id"`
	Quantity     int64           `json:"quantity"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	Margin       decimal.Decimal `json:"margin"`
	PnL          decimal.Decimal `json:"pnl"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type OptionsPosition struct {
	AccountID    string          `json:"account_id"`
	ContractID   string          `json:"contract_id"`
	Quantity     int64           `json:"quantity"`
	EntryPrice   decimal.Decimal `json:"entry_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	PnL          decimal.Decimal `json:"pnl"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

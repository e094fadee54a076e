package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Account struct {
	ID          string          `json:"id"`
	CashBalance decimal.Decimal `json:"cash_balance"`
	Version     int64           `json:"version"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

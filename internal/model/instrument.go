package model

import (
	"fmt"
	"time"

	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
)

// Instrument is a read-only price snapshot owned by the price feed.
type Instrument struct {
	ID             string               `json:"id" yaml:"id"`
	Symbol         string               `json:"symbol" yaml:"symbol"`
	Kind           types.InstrumentKind `json:"kind" yaml:"kind"`
	CurrentPrice   decimal.Decimal      `json:"current_price" yaml:"current_price"`
	PreviousClose  decimal.Decimal      `json:"previous_close" yaml:"previous_close"`
	LotSize        int64                `json:"lot_size,omitempty" yaml:"lot_size"`
	MarginRequired decimal.Decimal      `json:"margin_required" yaml:"margin_required"`
	MarginPct      decimal.Decimal      `json:"margin_pct" yaml:"margin_pct"`
	PremiumPrice   decimal.Decimal      `json:"premium_price" yaml:"premium_price"`
	StrikePrice    decimal.Decimal      `json:"strike_price" yaml:"strike_price"`
	OptionType     types.OptionType     `json:"option_type,omitempty" yaml:"option_type"`
	ExpiryDate     *time.Time           `json:"expiry_date,omitempty" yaml:"expiry_date"`
	Version        int64                `json:"version" yaml:"-"`
}

// Lot is the contract multiplier; spot equities trade in single shares.
// Derivatives report LotSize as stored, so a missing lot shows up as 0.
func (i Instrument) Lot() int64 {
	if i.Kind == types.InstrumentKindEquity {
		return 1
	}
	return i.LotSize
}

// CheckTerms reports contract terms that would make sizing meaningless: a
// derivative without a lot size, or a future with no way to compute margin.
func (i Instrument) CheckTerms() error {
	if i.Kind.Derivative() && i.LotSize <= 0 {
		return fmt.Errorf("%s has no lot size", i.ID)
	}
	if i.Kind == types.InstrumentKindFuture && !i.MarginRequired.IsPositive() && !i.MarginPct.IsPositive() {
		return fmt.Errorf("%s has no margin terms", i.ID)
	}
	return nil
}

// TradePrice is the price a market order fills at.
func (i Instrument) TradePrice() decimal.Decimal {
	if i.Kind == types.InstrumentKindOption && i.PremiumPrice.GreaterThan(decimal.Zero) {
		return i.PremiumPrice
	}
	return i.CurrentPrice
}

func (i Instrument) Expired(at time.Time) bool {
	if i.ExpiryDate == nil {
		return false
	}
	return i.ExpiryDate.Before(at)
}

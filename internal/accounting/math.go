// Package accounting holds the pure money arithmetic shared by the position
// ledgers. Every function returns a value already rounded to cents so callers
// persist and compare exactly what was computed.
package accounting

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places every money value is rounded to.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Round rounds half away from zero to cents.
func Round(v decimal.Decimal) decimal.Decimal {
	return v.Round(Places)
}

// Total is the cash value of qty units at price.
func Total(price decimal.Decimal, qty int64) decimal.Decimal {
	return Round(price.Mul(decimal.NewFromInt(qty)))
}

// Notional is the cash value of qty contracts of lot units each.
func Notional(price decimal.Decimal, qty, lot int64) decimal.Decimal {
	return Round(price.Mul(decimal.NewFromInt(qty)).Mul(decimal.NewFromInt(lotOrOne(lot))))
}

// NewAverage is the weighted average cost after adding tradeQty at tradePrice
// to a position of oldQty at oldAvg. Only valid for same-direction increases;
// oldQty+tradeQty must be non-zero.
func NewAverage(oldAvg decimal.Decimal, oldQty int64, tradePrice decimal.Decimal, tradeQty int64) decimal.Decimal {
	cost := oldAvg.Mul(decimal.NewFromInt(oldQty)).Add(tradePrice.Mul(decimal.NewFromInt(tradeQty)))
	return Round(cost.Div(decimal.NewFromInt(oldQty + tradeQty)))
}

// Unwind is the entry price left on a position of oldAbsQty after tradeQty is
// closed at tradePrice. The closed lots' gain or loss stays folded into the
// remaining entry price and is realized when the position is finally closed.
// tradeQty must be strictly less than oldAbsQty.
func Unwind(oldEntry decimal.Decimal, oldAbsQty int64, tradePrice decimal.Decimal, tradeQty int64) decimal.Decimal {
	remaining := oldAbsQty - tradeQty
	cost := oldEntry.Mul(decimal.NewFromInt(oldAbsQty)).Sub(tradePrice.Mul(decimal.NewFromInt(tradeQty)))
	return Round(cost.Div(decimal.NewFromInt(remaining)))
}

// PnL is the profit of qty contracts moving from entry to current. qty is
// signed so short positions gain when the price falls.
func PnL(entry, current decimal.Decimal, lot, qty int64) decimal.Decimal {
	return Round(current.Sub(entry).Mul(decimal.NewFromInt(lotOrOne(lot))).Mul(decimal.NewFromInt(qty)))
}

// Margin is the cash reserved for one contract.
func Margin(contractPrice decimal.Decimal, lot int64, marginPct decimal.Decimal) decimal.Decimal {
	return Round(contractPrice.Mul(decimal.NewFromInt(lotOrOne(lot))).Mul(marginPct))
}

// Format renders an amount as USD for human readable messages.
func Format(v decimal.Decimal) string {
	cents := Round(v).Mul(hundred).IntPart()
	return money.New(cents, money.USD).Display()
}

func lotOrOne(lot int64) int64 {
	if lot <= 0 {
		return 1
	}
	return lot
}

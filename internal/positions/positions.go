// Package positions implements the per-instrument position ledgers as pure
// transitions: given the current row and a trade they return the next row
// and the cash movements the trade implies. Nothing here touches storage.
package positions

import (
	"time"

	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
)

// Trade is one fill against a single price snapshot.
type Trade struct {
	AccountID    string
	InstrumentID string
	Side         types.OrderSide
	Qty          int64
	Price        decimal.Decimal
	At           time.Time
}

// Movement is a signed change to the account's cash bucket against a
// counterpart bucket. Negative amounts debit cash.
type Movement struct {
	Counterpart types.Bucket
	Amount      decimal.Decimal
	EntryType   types.LedgerEntryType
}

// CashDelta sums the movements' effect on cash.
func CashDelta(ms []Movement) decimal.Decimal {
	sum := decimal.Zero
	for _, m := range ms {
		sum = sum.Add(m.Amount)
	}
	return sum
}

func validate(t Trade) error {
	if t.Qty <= 0 {
		return tradeerr.Newf(tradeerr.KindInvalidQuantity, "quantity must be a positive integer, got %d", t.Qty)
	}
	if !t.Side.Valid() {
		return tradeerr.Newf(tradeerr.KindInvalidOrder, "invalid side %q", t.Side)
	}
	if !t.Price.GreaterThan(decimal.Zero) {
		return tradeerr.Newf(tradeerr.KindInvalidOrder, "no tradable price for %s", t.InstrumentID)
	}
	return nil
}

func appendMovement(ms []Movement, counterpart types.Bucket, amount decimal.Decimal, entryType types.LedgerEntryType) []Movement {
	if amount.IsZero() {
		return ms
	}
	return append(ms, Movement{Counterpart: counterpart, Amount: amount, EntryType: entryType})
}

package positions

import (
	"lv-paperledger/internal/accounting"
	"lv-paperledger/internal/model"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
)

type EquityResult struct {
	// Position is nil when the trade leaves no shares and the row must be
	// deleted.
	Position    *model.EquityPosition
	Total       decimal.Decimal
	RealizedPnL decimal.Decimal
	Movements   []Movement
}

// ApplyEquity runs one spot trade through the Absent -> Held -> Absent
// machine. prev is nil when the account holds no shares.
func ApplyEquity(prev *model.EquityPosition, t Trade) (EquityResult, error) {
	if err := validate(t); err != nil {
		return EquityResult{}, err
	}
	total := accounting.Total(t.Price, t.Qty)
	if t.Side == types.OrderSideBuy {
		next := model.EquityPosition{
			AccountID:    t.AccountID,
			InstrumentID: t.InstrumentID,
			Quantity:     t.Qty,
			AvgBuyPrice:  accounting.Round(t.Price),
			UpdatedAt:    t.At,
		}
		if prev != nil {
			next.Quantity = prev.Quantity + t.Qty
			next.AvgBuyPrice = accounting.NewAverage(prev.AvgBuyPrice, prev.Quantity, t.Price, t.Qty)
		}
		return EquityResult{
			Position:  &next,
			Total:     total,
			Movements: appendMovement(nil, types.BucketMarket, total.Neg(), types.LedgerEntryTypeTrade),
		}, nil
	}

	held := int64(0)
	if prev != nil {
		held = prev.Quantity
	}
	if held < t.Qty {
		return EquityResult{}, tradeerr.Newf(tradeerr.KindInsufficientHoldings, "cannot sell %d shares of %s, holding %d", t.Qty, t.InstrumentID, held)
	}
	res := EquityResult{
		Total:       total,
		RealizedPnL: accounting.PnL(prev.AvgBuyPrice, t.Price, 1, t.Qty),
		Movements:   appendMovement(nil, types.BucketMarket, total, types.LedgerEntryTypeTrade),
	}
	if remaining := held - t.Qty; remaining > 0 {
		next := *prev
		next.Quantity = remaining
		next.UpdatedAt = t.At
		res.Position = &next
	}
	return res, nil
}

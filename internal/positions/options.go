package positions

import (
	"lv-paperledger/internal/accounting"
	"lv-paperledger/internal/model"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
)

type OptionsResult struct {
	// Position is nil when the row must be deleted.
	Position    *model.OptionsPosition
	Total       decimal.Decimal
	RealizedPnL decimal.Decimal
	Movements   []Movement
}

// ApplyOptions runs a long-only option trade. t.Price is the premium per unit
// and lot the contract multiplier. Writing options is not modeled, so a sell
// needs an existing position of at least t.Qty.
func ApplyOptions(prev *model.OptionsPosition, t Trade, lot int64) (OptionsResult, error) {
	if err := validate(t); err != nil {
		return OptionsResult{}, err
	}
	if lot <= 0 {
		return OptionsResult{}, tradeerr.Newf(tradeerr.KindInvalidOrder, "contract %s has no lot size", t.InstrumentID)
	}
	total := accounting.Notional(t.Price, t.Qty, lot)

	if t.Side == types.OrderSideBuy {
		next := model.OptionsPosition{
			AccountID:  t.AccountID,
			ContractID: t.InstrumentID,
			Quantity:   t.Qty,
			EntryPrice: accounting.Round(t.Price),
		}
		if prev != nil {
			next.Quantity = prev.Quantity + t.Qty
			next.EntryPrice = accounting.NewAverage(prev.EntryPrice, prev.Quantity, t.Price, t.Qty)
		}
		mark(&next, t, lot)
		return OptionsResult{
			Position:  &next,
			Total:     total,
			Movements: appendMovement(nil, types.BucketMarket, total.Neg(), types.LedgerEntryTypePremium),
		}, nil
	}

	if prev == nil {
		return OptionsResult{}, tradeerr.Newf(tradeerr.KindCannotSellUnownedOption, "no position in %s to sell", t.InstrumentID)
	}
	if prev.Quantity < t.Qty {
		return OptionsResult{}, tradeerr.Newf(tradeerr.KindCannotSellUnownedOption, "cannot sell %d lots of %s, holding %d", t.Qty, t.InstrumentID, prev.Quantity)
	}
	res := OptionsResult{
		Total:       total,
		RealizedPnL: accounting.PnL(prev.EntryPrice, t.Price, lot, t.Qty),
		Movements:   appendMovement(nil, types.BucketMarket, total, types.LedgerEntryTypePremium),
	}
	if remaining := prev.Quantity - t.Qty; remaining > 0 {
		next := *prev
		next.Quantity = remaining
		mark(&next, t, lot)
		res.Position = &next
	}
	return res, nil
}

// mark refreshes price and pnl as of this trade. There is no continuous
// mark-to-market, so both are stale until the next trade on the contract.
func mark(p *model.OptionsPosition, t Trade, lot int64) {
	p.CurrentPrice = accounting.Round(t.Price)
	p.PnL = accounting.PnL(p.EntryPrice, t.Price, lot, p.Quantity)
	p.UpdatedAt = t.At
}

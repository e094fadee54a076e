package orders

import (
	"context"

	"lv-paperledger/internal/model"
	"lv-paperledger/internal/positions"
	"lv-paperledger/internal/store"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
)

// fill is the outcome of running a trade through a position ledger: the
// cash movements to post and the row write that goes with them.
type fill struct {
	total     decimal.Decimal
	realized  decimal.Decimal
	movements []positions.Movement
	save      func(ctx context.Context, tx store.Tx) error
}

func fillFor(ctx context.Context, tx store.Tx, inst model.Instrument, t positions.Trade) (fill, error) {
	switch inst.Kind {
	case types.InstrumentKindEquity:
		return fillEquity(ctx, tx, t)
	case types.InstrumentKindFuture:
		return fillFutures(ctx, tx, inst, t)
	case types.InstrumentKindOption:
		return fillOptions(ctx, tx, inst, t)
	default:
		return fill{}, tradeerr.Newf(tradeerr.KindInvalidOrder, "instrument %s has unknown kind %q", inst.ID, inst.Kind)
	}
}

func fillEquity(ctx context.Context, tx store.Tx, t positions.Trade) (fill, error) {
	prev, err := tx.GetEquityPosition(ctx, t.AccountID, t.InstrumentID)
	if err != nil {
		return fill{}, err
	}
	res, err := positions.ApplyEquity(prev, t)
	if err != nil {
		return fill{}, err
	}
	return fill{
		total:     res.Total,
		realized:  res.RealizedPnL,
		movements: res.Movements,
		save: func(ctx context.Context, tx store.Tx) error {
			if res.Position == nil {
				return tx.DeleteEquityPosition(ctx, t.AccountID, t.InstrumentID)
			}
			return tx.SaveEquityPosition(ctx, *res.Position)
		},
	}, nil
}

func fillFutures(ctx context.Context, tx store.Tx, inst model.Instrument, t positions.Trade) (fill, error) {
	prev, err := tx.GetFuturesPosition(ctx, t.AccountID, t.InstrumentID)
	if err != nil {
		return fill{}, err
	}
	res, err := positions.ApplyFutures(prev, t, positions.ContractTerms(inst, t.Price))
	if err != nil {
		return fill{}, err
	}
	return fill{
		total:     res.Total,
		realized:  res.RealizedPnL,
		movements: res.Movements,
		save: func(ctx context.Context, tx store.Tx) error {
			if res.Position == nil {
				return tx.DeleteFuturesPosition(ctx, t.AccountID, t.InstrumentID)
			}
			return tx.SaveFuturesPosition(ctx, *res.Position)
		},
	}, nil
}

func fillOptions(ctx context.Context, tx store.Tx, inst model.Instrument, t positions.Trade) (fill, error) {
	prev, err := tx.GetOptionsPosition(ctx, t.AccountID, t.InstrumentID)
	if err != nil {
		return fill{}, err
	}
	res, err := positions.ApplyOptions(prev, t, inst.Lot())
	if err != nil {
		return fill{}, err
	}
	return fill{
		total:     res.Total,
		realized:  res.RealizedPnL,
		movements: res.Movements,
		save: func(ctx context.Context, tx store.Tx) error {
			if res.Position == nil {
				return tx.DeleteOptionsPosition(ctx, t.AccountID, t.InstrumentID)
			}
			return tx.SaveOptionsPosition(ctx, *res.Position)
		},
	}, nil
}

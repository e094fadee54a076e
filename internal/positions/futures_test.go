package positions

import (
	"testing"

	"lv-paperledger/internal/model"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var nifty = Contract{Lot: 50, PerLotMargin: decimal.NewFromInt(1000)}

func futTrade(side types.OrderSide, qty int64, price string) Trade {
	return Trade{AccountID: "acc-1", InstrumentID: "NIFTY-FUT", Side: side, Qty: qty, Price: dec(price), At: at}
}

func futRow(qty int64, entry string) *model.FuturesPosition {
	abs := qty
	if abs < 0 {
		abs = -abs
	}
	return &model.FuturesPosition{
		AccountID:  "acc-1",
		ContractID: "NIFTY-FUT",
		Quantity:   qty,
		EntryPrice: dec(entry),
		Margin:     nifty.PerLotMargin.Mul(decimal.NewFromInt(abs)),
	}
}

func TestApplyFuturesOpen(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		side types.OrderSide
		want int64
		dir  Direction
	}{
		{"buy opens long", types.OrderSideBuy, 4, Long},
		{"sell opens short", types.OrderSideSell, -4, Short},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			res, err := ApplyFutures(nil, futTrade(tt.side, 4, "100"), nifty)
			require.NoError(t, err)
			require.NotNil(t, res.Position)
			assert.Equal(t, tt.want, res.Position.Quantity)
			assert.Equal(t, tt.dir, res.State.Direction)
			assert.Equal(t, "100", res.Position.EntryPrice.String())
			assert.Equal(t, "4000", res.Position.Margin.String())
			assert.Equal(t, "-4000", CashDelta(res.Movements).String())
			assert.Equal(t, "20000", res.Total.String())
			assert.Equal(t, []Leg{{Kind: LegOpen, Qty: 4}}, res.Legs)
		})
	}
}

func TestApplyFuturesAddAverages(t *testing.T) {
	t.Parallel()

	res, err := ApplyFutures(futRow(-2, "100"), futTrade(types.OrderSideSell, 2, "110"), nifty)
	require.NoError(t, err)
	assert.Equal(t, int64(-4), res.Position.Quantity)
	assert.Equal(t, "105", res.Position.EntryPrice.String())
	assert.Equal(t, "4000", res.Position.Margin.String())
	assert.Equal(t, "-2000", CashDelta(res.Movements).String())
	// short from 105 marked at 110
	assert.Equal(t, "-1000", res.Position.PnL.String())
}

func TestApplyFuturesReduceUnwindsEntry(t *testing.T) {
	t.Parallel()

	res, err := ApplyFutures(futRow(10, "100"), futTrade(types.OrderSideSell, 5, "110"), nifty)
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Position.Quantity)
	assert.Equal(t, "90", res.Position.EntryPrice.String())
	assert.Equal(t, "5000", res.Position.Margin.String())
	assert.Equal(t, "5000", CashDelta(res.Movements).String())
	assert.True(t, res.RealizedPnL.IsZero())
	assert.Equal(t, LegReduce, res.Legs[0].Kind)
}

func TestApplyFuturesCloseReleasesMarginAndSettles(t *testing.T) {
	t.Parallel()

	res, err := ApplyFutures(futRow(-3, "100"), futTrade(types.OrderSideBuy, 3, "96"), nifty)
	require.NoError(t, err)
	assert.Nil(t, res.Position)
	assert.Equal(t, Flat, res.State.Direction)
	// short 3 lots of 50 gains 4 points each
	assert.Equal(t, "600", res.RealizedPnL.String())
	require.Len(t, res.Movements, 2)
	assert.Equal(t, types.BucketMargin, res.Movements[0].Counterpart)
	assert.Equal(t, "3000", res.Movements[0].Amount.String())
	assert.Equal(t, types.BucketMarket, res.Movements[1].Counterpart)
	assert.Equal(t, "600", res.Movements[1].Amount.String())
}

func TestApplyFuturesFlipClosesThenOpens(t *testing.T) {
	t.Parallel()

	res, err := ApplyFutures(futRow(5, "100"), futTrade(types.OrderSideSell, 8, "110"), nifty)
	require.NoError(t, err)
	require.NotNil(t, res.Position)
	assert.Equal(t, int64(-3), res.Position.Quantity)
	assert.Equal(t, "110", res.Position.EntryPrice.String())
	assert.Equal(t, "3000", res.Position.Margin.String())
	assert.True(t, res.Position.PnL.IsZero())
	assert.Equal(t, "2500", res.RealizedPnL.String())

	require.Len(t, res.Legs, 2)
	assert.Equal(t, LegClose, res.Legs[0].Kind)
	assert.Equal(t, int64(5), res.Legs[0].Qty)
	assert.Equal(t, "2500", res.Legs[0].RealizedPnL.String())
	assert.Equal(t, Leg{Kind: LegOpen, Qty: 3}, res.Legs[1])

	require.Len(t, res.Movements, 3)
	assert.Equal(t, types.LedgerEntryTypeMarginRelease, res.Movements[0].EntryType)
	assert.Equal(t, types.LedgerEntryTypeSettlement, res.Movements[1].EntryType)
	assert.Equal(t, types.LedgerEntryTypeMarginReserve, res.Movements[2].EntryType)
	// +5000 released +2500 won -3000 reserved
	assert.Equal(t, "4500", CashDelta(res.Movements).String())
}

func TestApplyFuturesRemarginsOnPriceDrivenMargin(t *testing.T) {
	t.Parallel()

	inst := model.Instrument{ID: "GOLD-FUT", Kind: types.InstrumentKindFuture, LotSize: 10, MarginPct: dec("0.1")}
	first := ContractTerms(inst, dec("200"))
	assert.Equal(t, "200", first.PerLotMargin.String())
	res, err := ApplyFutures(nil, futTrade(types.OrderSideBuy, 2, "200"), first)
	require.NoError(t, err)

	second := ContractTerms(inst, dec("300"))
	res, err = ApplyFutures(res.Position, futTrade(types.OrderSideBuy, 1, "300"), second)
	require.NoError(t, err)
	assert.Equal(t, "900", res.Position.Margin.String())
	assert.Equal(t, "-500", CashDelta(res.Movements).String())

	fixed := ContractTerms(model.Instrument{Kind: types.InstrumentKindFuture, LotSize: 10, MarginRequired: dec("750"), MarginPct: dec("0.5")}, dec("300"))
	assert.Equal(t, "750", fixed.PerLotMargin.String())
}

func TestApplyFuturesRejections(t *testing.T) {
	t.Parallel()

	_, err := ApplyFutures(nil, futTrade(types.OrderSideBuy, 0, "100"), nifty)
	assert.ErrorIs(t, err, tradeerr.ErrInvalidQuantity)
	_, err = ApplyFutures(nil, futTrade(types.OrderSideBuy, 1, "100"), Contract{Lot: 0})
	assert.ErrorIs(t, err, tradeerr.ErrInvalidOrder)
	_, err = ApplyFutures(nil, futTrade(types.OrderSideBuy, 1, "100"), Contract{Lot: 50, PerLotMargin: decimal.Zero})
	assert.ErrorIs(t, err, tradeerr.ErrInvalidOrder)

	unpriced := ContractTerms(model.Instrument{ID: "BAD-FUT", Kind: types.InstrumentKindFuture}, dec("100"))
	assert.Equal(t, int64(0), unpriced.Lot)
	_, err = ApplyFutures(nil, futTrade(types.OrderSideBuy, 5, "100"), unpriced)
	assert.ErrorIs(t, err, tradeerr.ErrInvalidOrder)
}

func TestStateOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Flat, StateOf(nil).Direction)
	s := StateOf(futRow(-7, "12"))
	assert.Equal(t, Short, s.Direction)
	assert.Equal(t, int64(7), s.Qty)
	assert.Equal(t, int64(-7), s.Signed())
	assert.Equal(t, "short 7 @ 12 (margin 7000)", s.String())
}

package positions

import (
	"testing"
	"time"

	"lv-paperledger/internal/model"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var at = time.Date(2024, 3, 1, 14, 30, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func trade(side types.OrderSide, qty int64, price string) Trade {
	return Trade{AccountID: "acc-1", InstrumentID: "AAPL", Side: side, Qty: qty, Price: dec(price), At: at}
}

func TestApplyEquityBuyIntoEmptyUsesTradePrice(t *testing.T) {
	t.Parallel()

	res, err := ApplyEquity(nil, trade(types.OrderSideBuy, 10, "100"))
	require.NoError(t, err)
	require.NotNil(t, res.Position)
	assert.Equal(t, int64(10), res.Position.Quantity)
	assert.Equal(t, "100", res.Position.AvgBuyPrice.String())
	assert.Equal(t, "1000", res.Total.String())
	assert.Equal(t, "-1000", CashDelta(res.Movements).String())
	assert.True(t, res.RealizedPnL.IsZero())
}

func TestApplyEquityBuyAveragesCost(t *testing.T) {
	t.Parallel()

	prev := &model.EquityPosition{AccountID: "acc-1", InstrumentID: "AAPL", Quantity: 10, AvgBuyPrice: dec("100")}
	res, err := ApplyEquity(prev, trade(types.OrderSideBuy, 30, "120"))
	require.NoError(t, err)
	assert.Equal(t, int64(40), res.Position.Quantity)
	assert.Equal(t, "115", res.Position.AvgBuyPrice.String())
	assert.Equal(t, int64(10), prev.Quantity, "input row must not be mutated")
}

func TestApplyEquitySellKeepsAverage(t *testing.T) {
	t.Parallel()

	prev := &model.EquityPosition{AccountID: "acc-1", InstrumentID: "AAPL", Quantity: 10, AvgBuyPrice: dec("100")}
	res, err := ApplyEquity(prev, trade(types.OrderSideSell, 4, "120"))
	require.NoError(t, err)
	require.NotNil(t, res.Position)
	assert.Equal(t, int64(6), res.Position.Quantity)
	assert.Equal(t, "100", res.Position.AvgBuyPrice.String())
	assert.Equal(t, "480", res.Total.String())
	assert.Equal(t, "80", res.RealizedPnL.String())
	assert.Equal(t, "480", CashDelta(res.Movements).String())
}

func TestApplyEquitySellAllDeletesRow(t *testing.T) {
	t.Parallel()

	prev := &model.EquityPosition{AccountID: "acc-1", InstrumentID: "AAPL", Quantity: 6, AvgBuyPrice: dec("100")}
	res, err := ApplyEquity(prev, trade(types.OrderSideSell, 6, "90"))
	require.NoError(t, err)
	assert.Nil(t, res.Position)
	assert.Equal(t, "-60", res.RealizedPnL.String())
}

func TestApplyEquityRejections(t *testing.T) {
	t.Parallel()

	held := &model.EquityPosition{AccountID: "acc-1", InstrumentID: "AAPL", Quantity: 3, AvgBuyPrice: dec("10")}
	tests := []struct {
		name string
		prev *model.EquityPosition
		tr   Trade
		want error
	}{
		{"sell more than held", held, trade(types.OrderSideSell, 4, "10"), tradeerr.ErrInsufficientHoldings},
		{"sell with no position", nil, trade(types.OrderSideSell, 1, "10"), tradeerr.ErrInsufficientHoldings},
		{"zero quantity buy", held, trade(types.OrderSideBuy, 0, "10"), tradeerr.ErrInvalidQuantity},
		{"negative quantity", nil, trade(types.OrderSideBuy, -2, "10"), tradeerr.ErrInvalidQuantity},
		{"bad side", nil, trade("HOLD", 1, "10"), tradeerr.ErrInvalidOrder},
		{"no price", nil, trade(types.OrderSideBuy, 1, "0"), tradeerr.ErrInvalidOrder},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ApplyEquity(tt.prev, tt.tr)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, int64(3), held.Quantity)
}

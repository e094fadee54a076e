package orders

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"lv-paperledger/internal/ledger"
	"lv-paperledger/internal/marketdata"
	"lv-paperledger/internal/model"
	"lv-paperledger/internal/store/sqlite"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	st     *sqlite.Store
	ledger *ledger.Service
	bus    *marketdata.Bus
	exec   *Executor
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newFixture(t *testing.T, balance string) *fixture {
	t.Helper()
	st, err := sqlite.Open(filepath.Join(t.TempDir(), "orders.db"))
	require.NoError(t, err)
	t.Cleanup(st.Close)
	ctx := context.Background()
	require.NoError(t, st.Migrate(ctx))

	f := &fixture{st: st, ledger: ledger.NewService(), bus: marketdata.NewBus()}
	f.exec = NewExecutor(st, f.ledger, Options{Bus: f.bus, Logger: zerolog.Nop(), Timeout: 10 * time.Second})
	_, err = f.ledger.OpenAccount(ctx, st, "acc-1", dec(balance))
	require.NoError(t, err)

	expiry := time.Now().UTC().AddDate(0, 3, 0)
	for _, inst := range []model.Instrument{
		{ID: "AAPL", Symbol: "AAPL", Kind: types.InstrumentKindEquity, CurrentPrice: dec("100")},
		{ID: "NIFTY-FUT", Symbol: "NIFTY", Kind: types.InstrumentKindFuture, CurrentPrice: dec("100"), LotSize: 50,
			MarginRequired: dec("1000"), ExpiryDate: &expiry},
		{ID: "NIFTY-CE", Symbol: "NIFTY", Kind: types.InstrumentKindOption, CurrentPrice: dec("22500"), LotSize: 50,
			PremiumPrice: dec("10"), StrikePrice: dec("22500"), OptionType: types.OptionTypeCall, ExpiryDate: &expiry},
	} {
		require.NoError(t, st.UpsertInstrument(ctx, inst))
	}
	return f
}

func (f *fixture) setPrice(t *testing.T, instrumentID, price string) {
	t.Helper()
	ctx := context.Background()
	inst, err := f.st.GetInstrument(ctx, instrumentID)
	require.NoError(t, err)
	if inst.Kind == types.InstrumentKindOption {
		inst.PremiumPrice = dec(price)
	} else {
		inst.CurrentPrice = dec(price)
	}
	require.NoError(t, f.st.UpsertInstrument(ctx, inst))
}

func (f *fixture) order(instrumentID string, side types.OrderSide, qty int64) (model.Transaction, error) {
	return f.exec.Execute(context.Background(), PlaceOrderRequest{
		AccountID: "acc-1", InstrumentID: instrumentID, Side: side, Kind: types.OrderKindMarket, Qty: qty,
	})
}

func (f *fixture) balance(t *testing.T) string {
	t.Helper()
	acct, err := f.st.GetAccount(context.Background(), "acc-1")
	require.NoError(t, err)
	return acct.CashBalance.String()
}

func (f *fixture) reconciled(t *testing.T) {
	t.Helper()
	rep, err := f.ledger.Reconcile(context.Background(), f.st, "acc-1")
	require.NoError(t, err)
	assert.True(t, rep.OK(), rep.Problems)
}

func TestEquityBuyThenSell(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "10000")
	ctx := context.Background()

	buy, err := f.order("AAPL", types.OrderSideBuy, 10)
	require.NoError(t, err)
	assert.Equal(t, types.TransactionStatusCompleted, buy.Status)
	assert.Equal(t, "1000", buy.Total.String())
	assert.Equal(t, "-1000", buy.CashDelta.String())
	assert.Equal(t, "9000", f.balance(t))

	eq, err := f.st.ListEquityPositions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, eq, 1)
	assert.Equal(t, int64(10), eq[0].Quantity)
	assert.Equal(t, "100", eq[0].AvgBuyPrice.String())

	f.setPrice(t, "AAPL", "120")
	sell, err := f.order("AAPL", types.OrderSideSell, 4)
	require.NoError(t, err)
	assert.Equal(t, "480", sell.Total.String())
	assert.Equal(t, "80", sell.RealizedPnL.String())
	assert.Equal(t, "9480", f.balance(t))

	eq, err = f.st.ListEquityPositions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, eq, 1)
	assert.Equal(t, int64(6), eq[0].Quantity)
	assert.Equal(t, "100", eq[0].AvgBuyPrice.String())

	history, err := f.st.ListTransactions(ctx, "acc-1", nil, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, sell.ID, history[0].ID)

	_, err = f.order("AAPL", types.OrderSideSell, 6)
	require.NoError(t, err)
	eq, err = f.st.ListEquityPositions(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, eq)
	assert.Equal(t, "10200", f.balance(t))
	f.reconciled(t)
}

func TestRejectedOrdersLeaveNoTrace(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "500")
	ctx := context.Background()
	_, err := f.order("AAPL", types.OrderSideBuy, 2)
	require.NoError(t, err)

	cases := []struct {
		name string
		req  PlaceOrderRequest
		want error
	}{
		{"zero qty", PlaceOrderRequest{AccountID: "acc-1", InstrumentID: "AAPL", Side: types.OrderSideBuy, Qty: 0}, tradeerr.ErrInvalidQuantity},
		{"negative qty", PlaceOrderRequest{AccountID: "acc-1", InstrumentID: "AAPL", Side: types.OrderSideBuy, Qty: -3}, tradeerr.ErrInvalidQuantity},
		{"bad side", PlaceOrderRequest{AccountID: "acc-1", InstrumentID: "AAPL", Side: "HOLD", Qty: 1}, tradeerr.ErrInvalidOrder},
		{"bad kind", PlaceOrderRequest{AccountID: "acc-1", InstrumentID: "AAPL", Side: types.OrderSideBuy, Kind: "ICEBERG", Qty: 1}, tradeerr.ErrInvalidOrder},
		{"unknown instrument", PlaceOrderRequest{AccountID: "acc-1", InstrumentID: "MSFT", Side: types.OrderSideBuy, Qty: 1}, tradeerr.ErrInstrumentNotFound},
		{"unknown account", PlaceOrderRequest{AccountID: "acc-2", InstrumentID: "AAPL", Side: types.OrderSideBuy, Qty: 1}, tradeerr.ErrAccountNotFound},
		{"overdraft", PlaceOrderRequest{AccountID: "acc-1", InstrumentID: "AAPL", Side: types.OrderSideBuy, Qty: 4}, tradeerr.ErrInsufficientFunds},
		{"oversell", PlaceOrderRequest{AccountID: "acc-1", InstrumentID: "AAPL", Side: types.OrderSideSell, Qty: 3}, tradeerr.ErrInsufficientHoldings},
		{"unowned option", PlaceOrderRequest{AccountID: "acc-1", InstrumentID: "NIFTY-CE", Side: types.OrderSideSell, Qty: 1}, tradeerr.ErrCannotSellUnownedOption},
		{"futures margin", PlaceOrderRequest{AccountID: "acc-1", InstrumentID: "NIFTY-FUT", Side: types.OrderSideBuy, Qty: 1}, tradeerr.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		_, err := f.exec.Execute(ctx, tc.req)
		assert.ErrorIs(t, err, tc.want, tc.name)
		assert.False(t, tradeerr.IsRetryable(err), tc.name)
	}

	assert.Equal(t, "300", f.balance(t))
	eq, err := f.st.ListEquityPositions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, eq, 1)
	assert.Equal(t, int64(2), eq[0].Quantity)
	fut, err := f.st.ListFuturesPositions(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, fut)
	history, err := f.st.ListTransactions(ctx, "acc-1", nil, 0)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	f.reconciled(t)
}

func TestConcurrentBuysNeverOverspend(t *testing.T) {
	t.Parallel()

	const n, affordable = 20, 7
	f := newFixture(t, "700")
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.order("AAPL", types.OrderSideBuy, 1)
		}(i)
	}
	wg.Wait()

	ok, rejected := 0, 0
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, tradeerr.ErrInsufficientFunds):
			rejected++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, affordable, ok)
	assert.Equal(t, n-affordable, rejected)

	eq, err := f.st.ListEquityPositions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, eq, 1)
	assert.Equal(t, int64(affordable), eq[0].Quantity)
	assert.True(t, dec(f.balance(t)).IsZero())
	f.reconciled(t)
}

func TestFuturesFlipSettlesAndRemargins(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "100000")
	ctx := context.Background()

	open, err := f.order("NIFTY-FUT", types.OrderSideBuy, 5)
	require.NoError(t, err)
	assert.Equal(t, "25000", open.Total.String())
	assert.Equal(t, "-5000", open.CashDelta.String())
	assert.Equal(t, "95000", f.balance(t))

	f.setPrice(t, "NIFTY-FUT", "110")
	flip, err := f.order("NIFTY-FUT", types.OrderSideSell, 8)
	require.NoError(t, err)
	assert.Equal(t, "2500", flip.RealizedPnL.String())
	assert.Equal(t, "4500", flip.CashDelta.String())
	assert.Equal(t, "99500", f.balance(t))

	fut, err := f.st.ListFuturesPositions(ctx, "acc-1")
	require.NoError(t, err)
	require.Len(t, fut, 1)
	assert.Equal(t, int64(-3), fut[0].Quantity)
	assert.Equal(t, "110", fut[0].EntryPrice.String())
	assert.Equal(t, "3000", fut[0].Margin.String())
	f.reconciled(t)

	f.setPrice(t, "NIFTY-FUT", "100")
	closed, err := f.order("NIFTY-FUT", types.OrderSideBuy, 3)
	require.NoError(t, err)
	assert.Equal(t, "1500", closed.RealizedPnL.String())
	assert.Equal(t, "104000", f.balance(t))
	fut, err = f.st.ListFuturesPositions(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, fut)
	f.reconciled(t)
}

func TestOptionsBuyAndSellOut(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "5000")
	ctx := context.Background()

	buy, err := f.order("NIFTY-CE", types.OrderSideBuy, 2)
	require.NoError(t, err)
	assert.Equal(t, "10", buy.Price.String())
	assert.Equal(t, "1000", buy.Total.String())
	assert.Equal(t, "4000", f.balance(t))

	_, err = f.order("NIFTY-CE", types.OrderSideSell, 3)
	assert.ErrorIs(t, err, tradeerr.ErrCannotSellUnownedOption)

	f.setPrice(t, "NIFTY-CE", "12")
	sell, err := f.order("NIFTY-CE", types.OrderSideSell, 2)
	require.NoError(t, err)
	assert.Equal(t, "1200", sell.Total.String())
	assert.Equal(t, "200", sell.RealizedPnL.String())
	assert.Equal(t, "5200", f.balance(t))

	opts, err := f.st.ListOptionsPositions(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, opts)
	f.reconciled(t)
}

func TestNonMarketOrderIsRecordedPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1000")
	ctx := context.Background()

	tr, err := f.exec.Execute(ctx, PlaceOrderRequest{
		AccountID: "acc-1", InstrumentID: "AAPL", Side: types.OrderSideBuy, Kind: types.OrderKindLimit, Qty: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, types.TransactionStatusPending, tr.Status)
	assert.Equal(t, "300", tr.Total.String())
	assert.True(t, tr.CashDelta.IsZero())
	assert.Equal(t, "1000", f.balance(t))

	eq, err := f.st.ListEquityPositions(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, eq)
	history, err := f.st.ListTransactions(ctx, "acc-1", nil, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, types.TransactionStatusPending, history[0].Status)
}

func TestExpiredContractIsRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "100000")
	ctx := context.Background()
	inst, err := f.st.GetInstrument(ctx, "NIFTY-FUT")
	require.NoError(t, err)
	past := time.Now().UTC().AddDate(0, 0, -1)
	inst.ExpiryDate = &past
	require.NoError(t, f.st.UpsertInstrument(ctx, inst))

	_, err = f.order("NIFTY-FUT", types.OrderSideBuy, 1)
	assert.ErrorIs(t, err, tradeerr.ErrContractExpired)
	assert.Equal(t, "100000", f.balance(t))
}

func TestCommittedOrdersArePublished(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "1000")
	sub := f.bus.Subscribe()
	defer f.bus.Unsubscribe(sub)

	tr, err := f.order("AAPL", types.OrderSideBuy, 1)
	require.NoError(t, err)
	select {
	case evt := <-sub:
		assert.Equal(t, marketdata.EventTransaction, evt.Type)
		assert.Equal(t, "acc-1", evt.AccountID)
		got, ok := evt.Data.(model.Transaction)
		require.True(t, ok)
		assert.Equal(t, tr.ID, got.ID)
	case <-time.After(time.Second):
		t.Fatal("no event published")
	}

	_, err = f.order("AAPL", types.OrderSideSell, 5)
	require.Error(t, err)
	select {
	case evt := <-sub:
		t.Fatalf("rejected order published %v", evt)
	default:
	}
}

func TestDerivativesWithoutTermsAreRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "100000")
	ctx := context.Background()
	for _, inst := range []model.Instrument{
		{ID: "NOLOT-FUT", Symbol: "NIFTY", Kind: types.InstrumentKindFuture, CurrentPrice: dec("100"), MarginRequired: dec("1000")},
		{ID: "NOMARGIN-FUT", Symbol: "NIFTY", Kind: types.InstrumentKindFuture, CurrentPrice: dec("100"), LotSize: 50},
		{ID: "NOLOT-OPT", Symbol: "NIFTY", Kind: types.InstrumentKindOption, CurrentPrice: dec("100"), PremiumPrice: dec("10"), OptionType: types.OptionTypeCall},
	} {
		require.NoError(t, f.st.UpsertInstrument(ctx, inst))
	}

	for _, id := range []string{"NOLOT-FUT", "NOMARGIN-FUT", "NOLOT-OPT"} {
		for _, kind := range []types.OrderKind{types.OrderKindMarket, types.OrderKindLimit} {
			_, err := f.exec.Execute(ctx, PlaceOrderRequest{
				AccountID: "acc-1", InstrumentID: id, Side: types.OrderSideBuy, Kind: kind, Qty: 5,
			})
			assert.ErrorIs(t, err, tradeerr.ErrInvalidOrder, "%s %s", id, kind)
		}
	}

	assert.Equal(t, "100000", f.balance(t))
	fut, err := f.st.ListFuturesPositions(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, fut)
	opt, err := f.st.ListOptionsPositions(ctx, "acc-1")
	require.NoError(t, err)
	assert.Empty(t, opt)
	history, err := f.st.ListTransactions(ctx, "acc-1", nil, 0)
	require.NoError(t, err)
	assert.Empty(t, history)
}

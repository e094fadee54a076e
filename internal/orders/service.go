// Package orders executes market orders against an account: it validates the
// request, takes one price snapshot, and runs the position ledger and the
// balance account for the order inside a single account transaction.
package orders

import (
	"context"
	"errors"
	"time"

	"lv-paperledger/internal/accounting"
	"lv-paperledger/internal/id"
	"lv-paperledger/internal/ledger"
	"lv-paperledger/internal/marketdata"
	"lv-paperledger/internal/model"
	"lv-paperledger/internal/positions"
	"lv-paperledger/internal/store"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Publisher receives committed transactions.
type Publisher interface {
	Publish(evt marketdata.Event)
}

type Options struct {
	Retry   RetryPolicy
	Timeout time.Duration
	Bus     Publisher
	Logger  zerolog.Logger
}

type Executor struct {
	store   store.Store
	ledger  *ledger.Service
	bus     Publisher
	log     zerolog.Logger
	retry   RetryPolicy
	timeout time.Duration
	now     func() time.Time
}

func NewExecutor(st store.Store, ledgerSvc *ledger.Service, opts Options) *Executor {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	return &Executor{
		store:   st,
		ledger:  ledgerSvc,
		bus:     opts.Bus,
		log:     opts.Logger,
		retry:   opts.Retry.withDefaults(),
		timeout: opts.Timeout,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

type PlaceOrderRequest struct {
	AccountID    string
	InstrumentID string
	Side         types.OrderSide
	Kind         types.OrderKind
	Qty          int64
}

// Execute places one order. On success the returned Transaction is already
// committed; on failure nothing was written.
func (e *Executor) Execute(ctx context.Context, req PlaceOrderRequest) (model.Transaction, error) {
	draft, err := e.execute(ctx, req)
	e.logOrder(req, draft, err)
	if err != nil {
		return model.Transaction{}, err
	}
	if e.bus != nil {
		e.bus.Publish(marketdata.Event{Type: marketdata.EventTransaction, AccountID: draft.AccountID, Data: draft})
	}
	return draft, nil
}

func (e *Executor) execute(ctx context.Context, req PlaceOrderRequest) (model.Transaction, error) {
	if req.Qty <= 0 {
		return model.Transaction{}, tradeerr.Newf(tradeerr.KindInvalidQuantity, "quantity must be a positive integer, got %d", req.Qty)
	}
	if !req.Side.Valid() {
		return model.Transaction{}, tradeerr.Newf(tradeerr.KindInvalidOrder, "invalid side %q", req.Side)
	}
	if req.Kind == "" {
		req.Kind = types.OrderKindMarket
	}
	if !req.Kind.Valid() {
		return model.Transaction{}, tradeerr.Newf(tradeerr.KindInvalidOrder, "invalid order kind %q", req.Kind)
	}
	if req.AccountID == "" {
		return model.Transaction{}, tradeerr.New(tradeerr.KindAccountNotFound, "account id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	inst, err := e.store.GetInstrument(ctx, req.InstrumentID)
	if errors.Is(err, store.ErrNotFound) {
		return model.Transaction{}, tradeerr.Newf(tradeerr.KindInstrumentNotFound, "instrument %s does not exist", req.InstrumentID)
	}
	if err != nil {
		return model.Transaction{}, err
	}
	if !inst.Kind.Valid() {
		return model.Transaction{}, tradeerr.Newf(tradeerr.KindInvalidOrder, "instrument %s has unknown kind %q", inst.ID, inst.Kind)
	}
	if err := inst.CheckTerms(); err != nil {
		return model.Transaction{}, tradeerr.Wrap(tradeerr.KindInvalidOrder, "contract "+err.Error(), err)
	}
	at := e.now()
	if inst.Expired(at) {
		return model.Transaction{}, tradeerr.Newf(tradeerr.KindContractExpired, "contract %s expired on %s", inst.ID, inst.ExpiryDate.Format(time.DateOnly))
	}
	price := inst.TradePrice()
	if !price.IsPositive() {
		return model.Transaction{}, tradeerr.Newf(tradeerr.KindInvalidOrder, "no tradable price for %s", inst.ID)
	}

	draft := model.Transaction{
		ID:             id.New(),
		AccountID:      req.AccountID,
		InstrumentID:   inst.ID,
		InstrumentKind: inst.Kind,
		Side:           req.Side,
		OrderKind:      req.Kind,
		Quantity:       req.Qty,
		Price:          price,
		RealizedPnL:    decimal.Zero,
		CashDelta:      decimal.Zero,
		CreatedAt:      at,
	}
	err = e.retry.do(ctx, func(attempt int) error {
		var err error
		draft, err = e.attempt(ctx, draft, inst)
		if err != nil && tradeerr.IsRetryable(err) {
			e.log.Debug().Str("account_id", req.AccountID).Int("attempt", attempt).Err(err).Msg("order attempt failed")
		}
		return err
	})
	// Only an unclassified deadline is known to have written nothing.
	if err != nil && errors.Is(err, context.DeadlineExceeded) {
		if _, classified := tradeerr.KindOf(err); !classified {
			err = tradeerr.Wrap(tradeerr.KindConcurrencyConflict, "order timed out waiting for the account, retry", err)
		}
	}
	return draft, err
}

// attempt runs one transaction. draft comes back with the computed totals
// even when the transaction fails so the caller can log what was attempted.
func (e *Executor) attempt(ctx context.Context, draft model.Transaction, inst model.Instrument) (model.Transaction, error) {
	err := e.store.InAccountTx(ctx, draft.AccountID, func(ctx context.Context, tx store.Tx) error {
		book, err := e.ledger.Open(ctx, tx, draft.AccountID)
		if err != nil {
			return err
		}

		if draft.OrderKind != types.OrderKindMarket {
			draft.Total = accounting.Notional(draft.Price, draft.Quantity, inst.Lot())
			draft.Status = types.TransactionStatusPending
			return tx.InsertTransaction(ctx, draft)
		}

		trade := positions.Trade{
			AccountID:    draft.AccountID,
			InstrumentID: inst.ID,
			Side:         draft.Side,
			Qty:          draft.Quantity,
			Price:        draft.Price,
			At:           draft.CreatedAt,
		}
		f, err := fillFor(ctx, tx, inst, trade)
		if err != nil {
			return err
		}
		draft.Total = f.total
		draft.RealizedPnL = f.realized
		draft.CashDelta = positions.CashDelta(f.movements)
		draft.Status = types.TransactionStatusCompleted

		if err := book.Apply(ctx, draft.ID, f.movements); err != nil {
			return err
		}
		if err := f.save(ctx, tx); err != nil {
			return err
		}
		return tx.InsertTransaction(ctx, draft)
	})
	return draft, err
}

func (e *Executor) logOrder(req PlaceOrderRequest, tr model.Transaction, err error) {
	if err == nil {
		e.log.Info().
			Str("event", "order").
			Str("tx_id", tr.ID).
			Str("account_id", tr.AccountID).
			Str("instrument_id", tr.InstrumentID).
			Str("side", string(tr.Side)).
			Str("kind", string(tr.OrderKind)).
			Int64("qty", tr.Quantity).
			Str("price", tr.Price.String()).
			Str("total", tr.Total.String()).
			Str("cash_delta", tr.CashDelta.String()).
			Str("realized_pnl", tr.RealizedPnL.String()).
			Str("status", string(tr.Status)).
			Msg("order executed")
		return
	}

	kind, _ := tradeerr.KindOf(err)
	evt := e.log.Warn()
	if kind == tradeerr.KindPersistenceFailure {
		evt = e.log.Error()
	}
	evt.Str("event", "order").
		Str("account_id", req.AccountID).
		Str("instrument_id", req.InstrumentID).
		Str("side", string(req.Side)).
		Int64("qty", req.Qty).
		Str("error_kind", string(kind)).
		Err(err)
	if kind == tradeerr.KindPersistenceFailure {
		evt.Str("attempted_cash_delta", tr.CashDelta.String()).
			Str("attempted_total", tr.Total.String()).
			Str("tx_id", tr.ID).
			Bool("outcome_unknown", tradeerr.OutcomeUnknown(err))
	}
	evt.Msg("order rejected")
}

// Package ledger is the balance account of a trading account. Every change
// to cash is posted as a pair of entries (cash and a counterpart bucket)
// that sum to zero, chained per account by SHA-256 so history cannot be
// rewritten without breaking Reconcile.
package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"lv-paperledger/internal/accounting"
	"lv-paperledger/internal/id"
	"lv-paperledger/internal/model"
	"lv-paperledger/internal/positions"
	"lv-paperledger/internal/store"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
)

type Service struct {
	now func() time.Time
}

func NewService() *Service {
	return &Service{now: func() time.Time { return time.Now().UTC() }}
}

// Book is an account locked for the duration of one store transaction.
type Book struct {
	svc     *Service
	tx      store.Tx
	account model.Account
	last    *model.LedgerEntry
}

// Open locks accountID inside tx. The returned Book must not outlive tx.
func (s *Service) Open(ctx context.Context, tx store.Tx, accountID string) (*Book, error) {
	acct, err := tx.LockAccount(ctx, accountID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, tradeerr.Newf(tradeerr.KindAccountNotFound, "account %s does not exist", accountID)
	}
	if err != nil {
		return nil, err
	}
	last, err := tx.LastLedgerEntry(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return &Book{svc: s, tx: tx, account: acct, last: last}, nil
}

func (b *Book) Account() model.Account {
	return b.account
}

func (b *Book) Balance() decimal.Decimal {
	return b.account.CashBalance
}

// Debit takes amount out of cash. It fails with InsufficientFunds, leaving
// the balance untouched, when cash would go negative.
func (b *Book) Debit(ctx context.Context, ref string, amount decimal.Decimal, counterpart types.Bucket, entryType types.LedgerEntryType) error {
	amount = accounting.Round(amount)
	if amount.IsNegative() {
		return tradeerr.Newf(tradeerr.KindInvalidOrder, "debit amount must not be negative, got %s", amount)
	}
	if err := b.ensureFunds(amount); err != nil {
		return err
	}
	return b.post(ctx, ref, amount.Neg(), counterpart, entryType)
}

// Credit adds amount to cash.
func (b *Book) Credit(ctx context.Context, ref string, amount decimal.Decimal, counterpart types.Bucket, entryType types.LedgerEntryType) error {
	amount = accounting.Round(amount)
	if amount.IsNegative() {
		return tradeerr.Newf(tradeerr.KindInvalidOrder, "credit amount must not be negative, got %s", amount)
	}
	return b.post(ctx, ref, amount, counterpart, entryType)
}

// Apply posts the movements of one trade in order. The net effect is checked
// up front so a trade that cannot be paid for writes nothing.
func (b *Book) Apply(ctx context.Context, ref string, ms []positions.Movement) error {
	if net := positions.CashDelta(ms); net.IsNegative() {
		if err := b.ensureFunds(net.Neg()); err != nil {
			return err
		}
	}
	for _, m := range ms {
		var err error
		if m.Amount.IsNegative() {
			err = b.Debit(ctx, ref, m.Amount.Neg(), m.Counterpart, m.EntryType)
		} else {
			err = b.Credit(ctx, ref, m.Amount, m.Counterpart, m.EntryType)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (b *Book) ensureFunds(amount decimal.Decimal) error {
	if b.account.CashBalance.LessThan(amount) {
		return tradeerr.Newf(tradeerr.KindInsufficientFunds, "need %s, available %s",
			accounting.Format(amount), accounting.Format(b.account.CashBalance))
	}
	return nil
}

func (b *Book) post(ctx context.Context, ref string, cashAmount decimal.Decimal, counterpart types.Bucket, entryType types.LedgerEntryType) error {
	if cashAmount.IsZero() {
		return nil
	}
	balance := accounting.Round(b.account.CashBalance.Add(cashAmount))
	if err := b.tx.UpdateAccountBalance(ctx, b.account.ID, balance, b.account.Version); err != nil {
		return err
	}
	if err := b.append(ctx, ref, types.BucketCash, cashAmount, entryType); err != nil {
		return err
	}
	if err := b.append(ctx, ref, counterpart, cashAmount.Neg(), entryType); err != nil {
		return err
	}
	b.account.CashBalance = balance
	b.account.Version++
	return nil
}

func (b *Book) append(ctx context.Context, ref string, bucket types.Bucket, amount decimal.Decimal, entryType types.LedgerEntryType) error {
	e := model.LedgerEntry{
		ID:        id.New(),
		TxRef:     ref,
		AccountID: b.account.ID,
		Bucket:    bucket,
		Amount:    amount,
		EntryType: entryType,
		Sequence:  1,
		CreatedAt: b.svc.now(),
	}
	if b.last != nil {
		e.Sequence = b.last.Sequence + 1
		e.PrevHash = b.last.Hash
	}
	e.Hash = computeHash(e)
	if err := b.tx.AppendLedgerEntry(ctx, e); err != nil {
		return err
	}
	b.last = &e
	return nil
}

// OpenAccount creates an empty account and funds it with an initial deposit
// so the ledger balances from the first entry.
func (s *Service) OpenAccount(ctx context.Context, st store.Store, accountID string, deposit decimal.Decimal) (model.Account, error) {
	if err := st.CreateAccount(ctx, model.Account{ID: accountID, CashBalance: decimal.Zero}); err != nil {
		return model.Account{}, err
	}
	if deposit.IsZero() {
		return st.GetAccount(ctx, accountID)
	}
	return s.Deposit(ctx, st, accountID, deposit)
}

// Deposit credits cash from the market bucket in its own transaction.
func (s *Service) Deposit(ctx context.Context, st store.Store, accountID string, amount decimal.Decimal) (model.Account, error) {
	if !amount.IsPositive() {
		return model.Account{}, tradeerr.Newf(tradeerr.KindInvalidOrder, "deposit must be positive, got %s", amount)
	}
	var out model.Account
	err := st.InAccountTx(ctx, accountID, func(ctx context.Context, tx store.Tx) error {
		book, err := s.Open(ctx, tx, accountID)
		if err != nil {
			return err
		}
		if err := book.Credit(ctx, id.New(), amount, types.BucketMarket, types.LedgerEntryTypeDeposit); err != nil {
			return err
		}
		out = book.Account()
		return nil
	})
	return out, err
}

func computeHash(e model.LedgerEntry) string {
	buf := e.ID + "|" + e.TxRef + "|" + e.AccountID + "|" + string(e.Bucket) + "|" + e.Amount.String() + "|" +
		string(e.EntryType) + "|" + strconv.FormatInt(e.Sequence, 10) + "|" + e.PrevHash
	sum := sha256.Sum256([]byte(buf))
	return hex.EncodeToString(sum[:])
}

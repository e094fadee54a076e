package ledger

import (
	"context"
	"fmt"

	"lv-paperledger/internal/accounting"
	"lv-paperledger/internal/positions"
	"lv-paperledger/internal/store"
	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
)

type Report struct {
	AccountID    string          `json:"account_id"`
	Entries      int             `json:"entries"`
	CashBalance  decimal.Decimal `json:"cash_balance"`
	LedgerCash   decimal.Decimal `json:"ledger_cash"`
	MarginHeld   decimal.Decimal `json:"margin_held"`
	LedgerMargin decimal.Decimal `json:"ledger_margin"`
	Problems     []string        `json:"problems,omitempty"`
}

func (r Report) OK() bool {
	return len(r.Problems) == 0
}

func (r *Report) problem(format string, args ...any) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Reconcile replays the account's ledger and checks it against the stored
// balances: the hash chain is intact, every posting nets to zero, the cash
// bucket equals the account balance and the margin bucket equals the margin
// recorded on open futures rows.
func (s *Service) Reconcile(ctx context.Context, st store.Store, accountID string) (Report, error) {
	var rep Report
	err := st.InAccountTx(ctx, accountID, func(ctx context.Context, tx store.Tx) error {
		book, err := s.Open(ctx, tx, accountID)
		if err != nil {
			return err
		}
		entries, err := tx.ListLedgerEntries(ctx, accountID)
		if err != nil {
			return err
		}
		futures, err := tx.ListFuturesPositions(ctx, accountID)
		if err != nil {
			return err
		}

		rep = Report{
			AccountID:    accountID,
			Entries:      len(entries),
			CashBalance:  book.Balance(),
			LedgerCash:   decimal.Zero,
			MarginHeld:   positions.MarginHeld(futures),
			LedgerMargin: decimal.Zero,
		}
		refs := map[string]decimal.Decimal{}
		var order []string
		prevHash := ""
		for i, e := range entries {
			if e.Sequence != int64(i+1) {
				rep.problem("entry %s has sequence %d, want %d", e.ID, e.Sequence, i+1)
			}
			if e.PrevHash != prevHash {
				rep.problem("entry %d does not link to its predecessor", e.Sequence)
			}
			if computeHash(e) != e.Hash {
				rep.problem("entry %d hash mismatch", e.Sequence)
			}
			prevHash = e.Hash

			switch e.Bucket {
			case types.BucketCash:
				rep.LedgerCash = rep.LedgerCash.Add(e.Amount)
			case types.BucketMargin:
				rep.LedgerMargin = rep.LedgerMargin.Add(e.Amount)
			}
			if _, ok := refs[e.TxRef]; !ok {
				order = append(order, e.TxRef)
			}
			refs[e.TxRef] = refs[e.TxRef].Add(e.Amount)
		}
		for _, ref := range order {
			if !refs[ref].IsZero() {
				rep.problem("posting %s is unbalanced by %s", ref, refs[ref])
			}
		}
		if !rep.LedgerCash.Equal(rep.CashBalance) {
			rep.problem("cash balance %s but ledger holds %s", accounting.Format(rep.CashBalance), accounting.Format(rep.LedgerCash))
		}
		if !rep.LedgerMargin.Equal(rep.MarginHeld) {
			rep.problem("positions hold margin %s but ledger holds %s", accounting.Format(rep.MarginHeld), accounting.Format(rep.LedgerMargin))
		}
		return nil
	})
	return rep, err
}

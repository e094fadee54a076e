package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"lv-paperledger/internal/model"
	"lv-paperledger/internal/store"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/shopspring/decimal"
)

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type tx struct {
	tx *sql.Tx
}

func (t *tx) LockAccount(ctx context.Context, accountID string) (model.Account, error) {
	return getAccount(ctx, t.tx, accountID)
}

func (t *tx) UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal, version int64) error {
	res, err := t.tx.ExecContext(ctx, "update accounts set cash_balance = ?, version = version + 1, updated_at = ? where id = ? and version = ?", balance, time.Now().UTC(), accountID, version)
	if err != nil {
		return classify("update balance", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("update balance", err)
	}
	if n == 0 {
		return tradeerr.New(tradeerr.KindConcurrencyConflict, "account changed during the order, retry")
	}
	return nil
}

func (t *tx) LastLedgerEntry(ctx context.Context, accountID string) (*model.LedgerEntry, error) {
	rows, err := t.tx.QueryContext(ctx, "select id, tx_ref, account_id, bucket, amount, entry_type, sequence, prev_hash, hash, created_at from ledger_entries where account_id = ? order by sequence desc limit 1", accountID)
	if err != nil {
		return nil, classify("last ledger entry", err)
	}
	entries, err := scanLedgerEntries(rows)
	if err != nil || len(entries) == 0 {
		return nil, err
	}
	return &entries[0], nil
}

func (t *tx) AppendLedgerEntry(ctx context.Context, e model.LedgerEntry) error {
	_, err := t.tx.ExecContext(ctx, "insert into ledger_entries (id, tx_ref, account_id, bucket, amount, entry_type, sequence, prev_hash, hash, created_at) values (?,?,?,?,?,?,?,?,?,?)", e.ID, e.TxRef, e.AccountID, string(e.Bucket), e.Amount, string(e.EntryType), e.Sequence, e.PrevHash, e.Hash, e.CreatedAt)
	return classify("append ledger entry", err)
}

func (t *tx) ListLedgerEntries(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	rows, err := t.tx.QueryContext(ctx, "select id, tx_ref, account_id, bucket, amount, entry_type, sequence, prev_hash, hash, created_at from ledger_entries where account_id = ? order by sequence asc", accountID)
	if err != nil {
		return nil, classify("list ledger entries", err)
	}
	return scanLedgerEntries(rows)
}

func (t *tx) GetEquityPosition(ctx context.Context, accountID, instrumentID string) (*model.EquityPosition, error) {
	var p model.EquityPosition
	err := t.tx.QueryRowContext(ctx, "select account_id, instrument_id, quantity, avg_buy_price, updated_at from equity_positions where account_id = ? and instrument_id = ?", accountID, instrumentID).Scan(&p.AccountID, &p.InstrumentID, &p.Quantity, &p.AvgBuyPrice, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get equity position", err)
	}
	return &p, nil
}

func (t *tx) SaveEquityPosition(ctx context.Context, p model.EquityPosition) error {
	_, err := t.tx.ExecContext(ctx, `
		insert into equity_positions (account_id, instrument_id, quantity, avg_buy_price, updated_at)
		values (?,?,?,?,?)
		on conflict (account_id, instrument_id) do update set
			quantity = excluded.quantity, avg_buy_price = excluded.avg_buy_price, updated_at = excluded.updated_at
	`, p.AccountID, p.InstrumentID, p.Quantity, p.AvgBuyPrice, p.UpdatedAt)
	return classify("save equity position", err)
}

func (t *tx) DeleteEquityPosition(ctx context.Context, accountID, instrumentID string) error {
	_, err := t.tx.ExecContext(ctx, "delete from equity_positions where account_id = ? and instrument_id = ?", accountID, instrumentID)
	return classify("delete equity position", err)
}

func (t *tx) GetFuturesPosition(ctx context.Context, accountID, contractID string) (*model.FuturesPosition, error) {
	rows, err := t.tx.QueryContext(ctx, "select account_id, contract_id, quantity, entry_price, current_price, margin, pnl, updated_at from futures_positions where account_id = ? and contract_id = ?", accountID, contractID)
	if err != nil {
		return nil, classify("get futures position", err)
	}
	out, err := scanFutures(rows)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

func (t *tx) SaveFuturesPosition(ctx context.Context, p model.FuturesPosition) error {
	_, err := t.tx.ExecContext(ctx, `
		insert into futures_positions (account_id, contract_id, quantity, entry_price, current_price, margin, pnl, updated_at)
		values (?,?,?,?,?,?,?,?)
		on conflict (account_id, contract_id) do update set
			quantity = excluded.quantity, entry_price = excluded.entry_price, current_price = excluded.current_price,
			margin = excluded.margin, pnl = excluded.pnl, updated_at = excluded.updated_at
	`, p.AccountID, p.ContractID, p.Quantity, p.EntryPrice, p.CurrentPrice, p.Margin, p.PnL, p.UpdatedAt)
	return classify("save futures position", err)
}

func (t *tx) DeleteFuturesPosition(ctx context.Context, accountID, contractID string) error {
	_, err := t.tx.ExecContext(ctx, "delete from futures_positions where account_id = ? and contract_id = ?", accountID, contractID)
	return classify("delete futures position", err)
}

func (t *tx) ListFuturesPositions(ctx context.Context, accountID string) ([]model.FuturesPosition, error) {
	return listFutures(ctx, t.tx, accountID)
}

func (t *tx) GetOptionsPosition(ctx context.Context, accountID, contractID string) (*model.OptionsPosition, error) {
	rows, err := t.tx.QueryContext(ctx, "select account_id, contract_id, quantity, entry_price, current_price, pnl, updated_at from options_positions where account_id = ? and contract_id = ?", accountID, contractID)
	if err != nil {
		return nil, classify("get options position", err)
	}
	out, err := scanOptions(rows)
	if err != nil || len(out) == 0 {
		return nil, err
	}
	return &out[0], nil
}

func (t *tx) SaveOptionsPosition(ctx context.Context, p model.OptionsPosition) error {
	_, err := t.tx.ExecContext(ctx, `
		insert into options_positions (account_id, contract_id, quantity, entry_price, current_price, pnl, updated_at)
		values (?,?,?,?,?,?,?)
		on conflict (account_id, contract_id) do update set
			quantity = excluded.quantity, entry_price = excluded.entry_price, current_price = excluded.current_price,
			pnl = excluded.pnl, updated_at = excluded.updated_at
	`, p.AccountID, p.ContractID, p.Quantity, p.EntryPrice, p.CurrentPrice, p.PnL, p.UpdatedAt)
	return classify("save options position", err)
}

func (t *tx) DeleteOptionsPosition(ctx context.Context, accountID, contractID string) error {
	_, err := t.tx.ExecContext(ctx, "delete from options_positions where account_id = ? and contract_id = ?", accountID, contractID)
	return classify("delete options position", err)
}

func (t *tx) InsertTransaction(ctx context.Context, tr model.Transaction) error {
	_, err := t.tx.ExecContext(ctx, `
		insert into transactions (id, account_id, instrument_id, instrument_kind, side, order_kind, quantity, price, total, realized_pnl, cash_delta, status, created_at)
		values (?,?,?,?,?,?,?,?,?,?,?,?,?)
	`, tr.ID, tr.AccountID, tr.InstrumentID, string(tr.InstrumentKind), string(tr.Side), string(tr.OrderKind), tr.Quantity, tr.Price, tr.Total, tr.RealizedPnL, tr.CashDelta, string(tr.Status), tr.CreatedAt)
	return classify("insert transaction", err)
}

func getAccount(ctx context.Context, q querier, accountID string) (model.Account, error) {
	var a model.Account
	err := q.QueryRowContext(ctx, "select id, cash_balance, version, created_at, updated_at from accounts where id = ?", accountID).Scan(&a.ID, &a.CashBalance, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, store.ErrNotFound
	}
	if err != nil {
		return a, classify("get account", err)
	}
	return a, nil
}

func listFutures(ctx context.Context, q querier, accountID string) ([]model.FuturesPosition, error) {
	rows, err := q.QueryContext(ctx, "select account_id, contract_id, quantity, entry_price, current_price, margin, pnl, updated_at from futures_positions where account_id = ? order by contract_id", accountID)
	if err != nil {
		return nil, classify("list futures positions", err)
	}
	return scanFutures(rows)
}

func scanFutures(rows *sql.Rows) ([]model.FuturesPosition, error) {
	defer rows.Close()
	var out []model.FuturesPosition
	for rows.Next() {
		var p model.FuturesPosition
		if err := rows.Scan(&p.AccountID, &p.ContractID, &p.Quantity, &p.EntryPrice, &p.CurrentPrice, &p.Margin, &p.PnL, &p.UpdatedAt); err != nil {
			return nil, classify("scan futures position", err)
		}
		out = append(out, p)
	}
	return out, classify("scan futures position", rows.Err())
}

func scanOptions(rows *sql.Rows) ([]model.OptionsPosition, error) {
	defer rows.Close()
	var out []model.OptionsPosition
	for rows.Next() {
		var p model.OptionsPosition
		if err := rows.Scan(&p.AccountID, &p.ContractID, &p.Quantity, &p.EntryPrice, &p.CurrentPrice, &p.PnL, &p.UpdatedAt); err != nil {
			return nil, classify("scan options position", err)
		}
		out = append(out, p)
	}
	return out, classify("scan options position", rows.Err())
}

func scanLedgerEntries(rows *sql.Rows) ([]model.LedgerEntry, error) {
	defer rows.Close()
	var out []model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var bucket, entryType string
		if err := rows.Scan(&e.ID, &e.TxRef, &e.AccountID, &bucket, &e.Amount, &entryType, &e.Sequence, &e.PrevHash, &e.Hash, &e.CreatedAt); err != nil {
			return nil, classify("scan ledger entry", err)
		}
		e.Bucket = types.Bucket(bucket)
		e.EntryType = types.LedgerEntryType(entryType)
		out = append(out, e)
	}
	return out, classify("scan ledger entry", rows.Err())
}

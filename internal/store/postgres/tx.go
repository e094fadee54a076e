package postgres

import (
	"context"
	"errors"
	"time"

	"lv-paperledger/internal/model"
	"lv-paperledger/internal/store"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type tx struct {
	tx pgx.Tx
}

func (t *tx) LockAccount(ctx context.Context, accountID string) (model.Account, error) {
	var a model.Account
	err := t.tx.QueryRow(ctx, "select id, cash_balance, version, created_at, updated_at from accounts where id = $1 for update", accountID).Scan(&a.ID, &a.CashBalance, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, store.ErrNotFound
	}
	if err != nil {
		return a, classify("lock account", err)
	}
	return a, nil
}

func (t *tx) UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal, version int64) error {
	tag, err := t.tx.Exec(ctx, "update accounts set cash_balance = $1, version = version + 1, updated_at = $2 where id = $3 and version = $4", balance, time.Now().UTC(), accountID, version)
	if err != nil {
		return classify("update balance", err)
	}
	if tag.RowsAffected() == 0 {
		return tradeerr.New(tradeerr.KindConcurrencyConflict, "account changed during the order, retry")
	}
	return nil
}

const ledgerColumns = "id, tx_ref, account_id, bucket, amount, entry_type, sequence, prev_hash, hash, created_at"

func (t *tx) LastLedgerEntry(ctx context.Context, accountID string) (*model.LedgerEntry, error) {
	rows, err := t.tx.Query(ctx, "select "+ledgerColumns+" from ledger_entries where account_id = $1 order by sequence desc limit 1", accountID)
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
	_, err := t.tx.Exec(ctx, "insert into ledger_entries ("+ledgerColumns+") values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)", e.ID, e.TxRef, e.AccountID, string(e.Bucket), e.Amount, string(e.EntryType), e.Sequence, e.PrevHash, e.Hash, e.CreatedAt)
	return classify("append ledger entry", err)
}

func (t *tx) ListLedgerEntries(ctx context.Context, accountID string) ([]model.LedgerEntry, error) {
	rows, err := t.tx.Query(ctx, "select "+ledgerColumns+" from ledger_entries where account_id = $1 order by sequence asc", accountID)
	if err != nil {
		return nil, classify("list ledger entries", err)
	}
	return scanLedgerEntries(rows)
}

func (t *tx) GetEquityPosition(ctx context.Context, accountID, instrumentID string) (*model.EquityPosition, error) {
	var p model.EquityPosition
	err := t.tx.QueryRow(ctx, "select account_id, instrument_id, quantity, avg_buy_price, updated_at from equity_positions where account_id = $1 and instrument_id = $2", accountID, instrumentID).Scan(&p.AccountID, &p.InstrumentID, &p.Quantity, &p.AvgBuyPrice, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, classify("get equity position", err)
	}
	return &p, nil
}

func (t *tx) SaveEquityPosition(ctx context.Context, p model.EquityPosition) error {
	_, err := t.tx.Exec(ctx, `
		insert into equity_positions (account_id, instrument_id, quantity, avg_buy_price, updated_at)
		values ($1,$2,$3,$4,$5)
		on conflict (account_id, instrument_id) do update set
			quantity = excluded.quantity, avg_buy_price = excluded.avg_buy_price, updated_at = excluded.updated_at
	`, p.AccountID, p.InstrumentID, p.Quantity, p.AvgBuyPrice, p.UpdatedAt)
	return classify("save equity position", err)
}

func (t *tx) DeleteEquityPosition(ctx context.Context, accountID, instrumentID string) error {
	_, err := t.tx.Exec(ctx, "delete from equity_positions where account_id = $1 and instrument_id = $2", accountID, instrumentID)
	return classify("delete equity position", err)
}

const futuresColumns = "account_id, contract_id, quantity, entry_price, current_price, margin, pnl, updated_at"

func (t *tx) GetFuturesPosition(ctx context.Context, accountID, contractID string) (*model.FuturesPosition, error) {
	rows, err := t.tx.Query(ctx, "select "+futuresColumns+" from futures_positions where account_id = $1 and contract_id = $2", accountID, contractID)
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
	_, err := t.tx.Exec(ctx, `
		insert into futures_positions (`+futuresColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7,$8)
		on conflict (account_id, contract_id) do update set
			quantity = excluded.quantity, entry_price = excluded.entry_price, current_price = excluded.current_price,
			margin = excluded.margin, pnl = excluded.pnl, updated_at = excluded.updated_at
	`, p.AccountID, p.ContractID, p.Quantity, p.EntryPrice, p.CurrentPrice, p.Margin, p.PnL, p.UpdatedAt)
	return classify("save futures position", err)
}

func (t *tx) DeleteFuturesPosition(ctx context.Context, accountID, contractID string) error {
	_, err := t.tx.Exec(ctx, "delete from futures_positions where account_id = $1 and contract_id = $2", accountID, contractID)
	return classify("delete futures position", err)
}

func (t *tx) ListFuturesPositions(ctx context.Context, accountID string) ([]model.FuturesPosition, error) {
	return listFutures(ctx, t.tx, accountID)
}

const optionsColumns = "account_id, contract_id, quantity, entry_price, current_price, pnl, updated_at"

func (t *tx) GetOptionsPosition(ctx context.Context, accountID, contractID string) (*model.OptionsPosition, error) {
	rows, err := t.tx.Query(ctx, "select "+optionsColumns+" from options_positions where account_id = $1 and contract_id = $2", accountID, contractID)
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
	_, err := t.tx.Exec(ctx, `
		insert into options_positions (`+optionsColumns+`)
		values ($1,$2,$3,$4,$5,$6,$7)
		on conflict (account_id, contract_id) do update set
			quantity = excluded.quantity, entry_price = excluded.entry_price, current_price = excluded.current_price,
			pnl = excluded.pnl, updated_at = excluded.updated_at
	`, p.AccountID, p.ContractID, p.Quantity, p.EntryPrice, p.CurrentPrice, p.PnL, p.UpdatedAt)
	return classify("save options position", err)
}

func (t *tx) DeleteOptionsPosition(ctx context.Context, accountID, contractID string) error {
	_, err := t.tx.Exec(ctx, "delete from options_positions where account_id = $1 and contract_id = $2", accountID, contractID)
	return classify("delete options position", err)
}

const transactionColumns = "id, account_id, instrument_id, instrument_kind, side, order_kind, quantity, price, total, realized_pnl, cash_delta, status, created_at"

func (t *tx) InsertTransaction(ctx context.Context, tr model.Transaction) error {
	_, err := t.tx.Exec(ctx, "insert into transactions ("+transactionColumns+") values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)",
		tr.ID, tr.AccountID, tr.InstrumentID, string(tr.InstrumentKind), string(tr.Side), string(tr.OrderKind), tr.Quantity,
		tr.Price, tr.Total, tr.RealizedPnL, tr.CashDelta, string(tr.Status), tr.CreatedAt)
	return classify("insert transaction", err)
}

func listFutures(ctx context.Context, q querier, accountID string) ([]model.FuturesPosition, error) {
	rows, err := q.Query(ctx, "select "+futuresColumns+" from futures_positions where account_id = $1 order by contract_id", accountID)
	if err != nil {
		return nil, classify("list futures positions", err)
	}
	return scanFutures(rows)
}

func scanFutures(rows pgx.Rows) ([]model.FuturesPosition, error) {
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

func scanOptions(rows pgx.Rows) ([]model.OptionsPosition, error) {
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

func scanLedgerEntries(rows pgx.Rows) ([]model.LedgerEntry, error) {
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

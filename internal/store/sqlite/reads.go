package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"lv-paperledger/internal/model"
	"lv-paperledger/internal/store"
	"lv-paperledger/internal/types"
)

func (s *Store) CreateAccount(ctx context.Context, a model.Account) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, "insert into accounts (id, cash_balance, version, created_at, updated_at) values (?,?,0,?,?)", a.ID, a.CashBalance, now, now)
	return classify("create account", err)
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (model.Account, error) {
	return getAccount(ctx, s.db, accountID)
}

func (s *Store) GetInstrument(ctx context.Context, instrumentID string) (model.Instrument, error) {
	var inst model.Instrument
	var kind, optType string
	var expiry sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		select id, symbol, kind, current_price, previous_close, lot_size, margin_required, margin_pct,
			premium_price, strike_price, option_type, expiry_date, version
		from instruments where id = ?
	`, instrumentID).Scan(&inst.ID, &inst.Symbol, &kind, &inst.CurrentPrice, &inst.PreviousClose, &inst.LotSize,
		&inst.MarginRequired, &inst.MarginPct, &inst.PremiumPrice, &inst.StrikePrice, &optType, &expiry, &inst.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return inst, store.ErrNotFound
	}
	if err != nil {
		return inst, classify("get instrument", err)
	}
	inst.Kind = types.InstrumentKind(kind)
	inst.OptionType = types.OptionType(optType)
	if expiry.Valid {
		t := expiry.Time.UTC()
		inst.ExpiryDate = &t
	}
	return inst, nil
}

func (s *Store) UpsertInstrument(ctx context.Context, inst model.Instrument) error {
	var expiry any
	if inst.ExpiryDate != nil {
		expiry = inst.ExpiryDate.UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into instruments (id, symbol, kind, current_price, previous_close, lot_size, margin_required, margin_pct,
			premium_price, strike_price, option_type, expiry_date, version)
		values (?,?,?,?,?,?,?,?,?,?,?,?,0)
		on conflict (id) do update set
			symbol = excluded.symbol, kind = excluded.kind, current_price = excluded.current_price,
			previous_close = excluded.previous_close, lot_size = excluded.lot_size,
			margin_required = excluded.margin_required, margin_pct = excluded.margin_pct,
			premium_price = excluded.premium_price, strike_price = excluded.strike_price,
			option_type = excluded.option_type, expiry_date = excluded.expiry_date,
			version = instruments.version + 1
	`, inst.ID, inst.Symbol, string(inst.Kind), inst.CurrentPrice, inst.PreviousClose, inst.LotSize, inst.MarginRequired,
		inst.MarginPct, inst.PremiumPrice, inst.StrikePrice, string(inst.OptionType), expiry)
	return classify("upsert instrument", err)
}

func (s *Store) ListEquityPositions(ctx context.Context, accountID string) ([]model.EquityPosition, error) {
	rows, err := s.db.QueryContext(ctx, "select account_id, instrument_id, quantity, avg_buy_price, updated_at from equity_positions where account_id = ? order by instrument_id", accountID)
	if err != nil {
		return nil, classify("list equity positions", err)
	}
	defer rows.Close()
	var out []model.EquityPosition
	for rows.Next() {
		var p model.EquityPosition
		if err := rows.Scan(&p.AccountID, &p.InstrumentID, &p.Quantity, &p.AvgBuyPrice, &p.UpdatedAt); err != nil {
			return nil, classify("scan equity position", err)
		}
		out = append(out, p)
	}
	return out, classify("scan equity position", rows.Err())
}

func (s *Store) ListFuturesPositions(ctx context.Context, accountID string) ([]model.FuturesPosition, error) {
	return listFutures(ctx, s.db, accountID)
}

func (s *Store) ListOptionsPositions(ctx context.Context, accountID string) ([]model.OptionsPosition, error) {
	rows, err := s.db.QueryContext(ctx, "select account_id, contract_id, quantity, entry_price, current_price, pnl, updated_at from options_positions where account_id = ? order by contract_id", accountID)
	if err != nil {
		return nil, classify("list options positions", err)
	}
	return scanOptions(rows)
}

func (s *Store) ListTransactions(ctx context.Context, accountID string, before *time.Time, limit int) ([]model.Transaction, error) {
	query := `
		select id, account_id, instrument_id, instrument_kind, side, order_kind, quantity, price, total, realized_pnl, cash_delta, status, created_at
		from transactions
		where account_id = ?
	`
	args := []any{accountID}
	if before != nil {
		query += " and created_at < ?"
		args = append(args, before.UTC())
	}
	query += " order by created_at desc, id desc limit ?"
	args = append(args, store.PageSize(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify("list transactions", err)
	}
	defer rows.Close()
	var out []model.Transaction
	for rows.Next() {
		var t model.Transaction
		var kind, side, orderKind, status string
		if err := rows.Scan(&t.ID, &t.AccountID, &t.InstrumentID, &kind, &side, &orderKind, &t.Quantity, &t.Price, &t.Total, &t.RealizedPnL, &t.CashDelta, &status, &t.CreatedAt); err != nil {
			return nil, classify("scan transaction", err)
		}
		t.InstrumentKind = types.InstrumentKind(kind)
		t.Side = types.OrderSide(side)
		t.OrderKind = types.OrderKind(orderKind)
		t.Status = types.TransactionStatus(status)
		out = append(out, t)
	}
	return out, classify("scan transaction", rows.Err())
}

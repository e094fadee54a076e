package postgres

import (
	"context"
	"errors"
	"time"

	"lv-paperledger/internal/model"
	"lv-paperledger/internal/store"
	"lv-paperledger/internal/types"

	"github.com/jackc/pgx/v5"
)

func (s *Store) CreateAccount(ctx context.Context, a model.Account) error {
	now := time.Now().UTC()
	_, err := s.pool.Exec(ctx, "insert into accounts (id, cash_balance, version, created_at, updated_at) values ($1, $2, 0, $3, $4)", a.ID, a.CashBalance, now, now)
	return classify("create account", err)
}

func (s *Store) GetAccount(ctx context.Context, accountID string) (model.Account, error) {
	var a model.Account
	err := s.pool.QueryRow(ctx, "select id, cash_balance, version, created_at, updated_at from accounts where id = $1", accountID).Scan(&a.ID, &a.CashBalance, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return a, store.ErrNotFound
	}
	if err != nil {
		return a, classify("get account", err)
	}
	return a, nil
}

func (s *Store) GetInstrument(ctx context.Context, instrumentID string) (model.Instrument, error) {
	var inst model.Instrument
	var kind, optType string
	err := s.pool.QueryRow(ctx, `
		select
			id, symbol, kind, current_price, previous_close, lot_size, margin_required, margin_pct,
			premium_price, strike_price, option_type, expiry_date, version
		from instruments
		where id = $1
	`, instrumentID).Scan(
		&inst.ID, &inst.Symbol, &kind, &inst.CurrentPrice, &inst.PreviousClose, &inst.LotSize,
		&inst.MarginRequired, &inst.MarginPct, &inst.PremiumPrice, &inst.StrikePrice, &optType, &inst.ExpiryDate, &inst.Version,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return inst, store.ErrNotFound
	}
	if err != nil {
		return inst, classify("get instrument", err)
	}
	inst.Kind = types.InstrumentKind(kind)
	inst.OptionType = types.OptionType(optType)
	return inst, nil
}

func (s *Store) UpsertInstrument(ctx context.Context, inst model.Instrument) error {
	_, err := s.pool.Exec(ctx, `
		insert into instruments (id, symbol, kind, current_price, previous_close, lot_size, margin_required, margin_pct,
			premium_price, strike_price, option_type, expiry_date, version)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,0)
		on conflict (id) do update set
			symbol = excluded.symbol, kind = excluded.kind, current_price = excluded.current_price,
			previous_close = excluded.previous_close, lot_size = excluded.lot_size,
			margin_required = excluded.margin_required, margin_pct = excluded.margin_pct,
			premium_price = excluded.premium_price, strike_price = excluded.strike_price,
			option_type = excluded.option_type, expiry_date = excluded.expiry_date,
			version = instruments.version + 1
	`, inst.ID, inst.Symbol, string(inst.Kind), inst.CurrentPrice, inst.PreviousClose, inst.LotSize, inst.MarginRequired,
		inst.MarginPct, inst.PremiumPrice, inst.StrikePrice, string(inst.OptionType), inst.ExpiryDate)
	return classify("upsert instrument", err)
}

func (s *Store) ListEquityPositions(ctx context.Context, accountID string) ([]model.EquityPosition, error) {
	rows, err := s.pool.Query(ctx, "select account_id, instrument_id, quantity, avg_buy_price, updated_at from equity_positions where account_id = $1 order by instrument_id", accountID)
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
	return listFutures(ctx, s.pool, accountID)
}

func (s *Store) ListOptionsPositions(ctx context.Context, accountID string) ([]model.OptionsPosition, error) {
	rows, err := s.pool.Query(ctx, "select "+optionsColumns+" from options_positions where account_id = $1 order by contract_id", accountID)
	if err != nil {
		return nil, classify("list options positions", err)
	}
	return scanOptions(rows)
}

func (s *Store) ListTransactions(ctx context.Context, accountID string, before *time.Time, limit int) ([]model.Transaction, error) {
	rows, err := s.pool.Query(ctx, `
		select `+transactionColumns+`
		from transactions
		where account_id = $1
		  and ($2::timestamptz is null or created_at < $2)
		order by created_at desc, id desc
		limit $3
	`, accountID, before, store.PageSize(limit))
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

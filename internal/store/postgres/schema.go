package postgres

const Schema = `
create table if not exists accounts (
	id           text primary key,
	cash_balance numeric(20,2) not null check (cash_balance >= 0),
	version      bigint not null default 0,
	created_at   timestamptz not null,
	updated_at   timestamptz not null
);

create table if not exists instruments (
	id              text primary key,
	symbol          text not null,
	kind            text not null check (kind in ('EQUITY','FUTURE','OPTION')),
	current_price   numeric(20,6) not null,
	previous_close  numeric(20,6) not null default 0,
	lot_size        bigint not null default 1,
	margin_required numeric(20,2) not null default 0,
	margin_pct      numeric(10,6) not null default 0,
	premium_price   numeric(20,6) not null default 0,
	strike_price    numeric(20,6) not null default 0,
	option_type     text not null default '',
	expiry_date     timestamptz,
	version         bigint not null default 0
);

create table if not exists equity_positions (
	account_id    text not null references accounts(id),
	instrument_id text not null references instruments(id),
	quantity      bigint not null check (quantity > 0),
	avg_buy_price numeric(20,2) not null,
	updated_at    timestamptz not null,
	primary key (account_id, instrument_id)
);

create table if not exists futures_positions (
	account_id    text not null references accounts(id),
	contract_id   text not null references instruments(id),
	quantity      bigint not null check (quantity <> 0),
	entry_price   numeric(20,2) not null,
	current_price numeric(20,2) not null,
	margin        numeric(20,2) not null check (margin >= 0),
	pnl           numeric(20,2) not null,
	updated_at    timestamptz not null,
	primary key (account_id, contract_id)
);

create table if not exists options_positions (
	account_id    text not null references accounts(id),
	contract_id   text not null references instruments(id),
	quantity      bigint not null check (quantity > 0),
	entry_price   numeric(20,2) not null,
	current_price numeric(20,2) not null,
	pnl           numeric(20,2) not null,
	updated_at    timestamptz not null,
	primary key (account_id, contract_id)
);

create table if not exists transactions (
	id              text primary key,
	account_id      text not null references accounts(id),
	instrument_id   text not null references instruments(id),
	instrument_kind text not null,
	side            text not null,
	order_kind      text not null,
	quantity        bigint not null check (quantity > 0),
	price           numeric(20,6) not null,
	total           numeric(20,2) not null,
	realized_pnl    numeric(20,2) not null,
	cash_delta      numeric(20,2) not null,
	status          text not null,
	created_at      timestamptz not null
);

create index if not exists transactions_account_created on transactions (account_id, created_at desc, id desc);

create table if not exists ledger_entries (
	id         text primary key,
	tx_ref     text not null,
	account_id text not null references accounts(id),
	bucket     text not null,
	amount     numeric(20,2) not null,
	entry_type text not null,
	sequence   bigint not null,
	prev_hash  text not null default '',
	hash       text not null,
	created_at timestamptz not null,
	unique (account_id, sequence)
);

create or replace function transactions_immutable() returns trigger as $$
begin
	raise exception 'transactions are append-only';
end;
$$ language plpgsql;

drop trigger if exists transactions_no_update on transactions;
create trigger transactions_no_update before update or delete on transactions
	for each row execute function transactions_immutable();
`

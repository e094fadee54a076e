package sqlite

// Money and prices are stored as TEXT so decimals round-trip exactly; checks
// cast because SQLite compares TEXT above any number.
const Schema = `
CREATE TABLE IF NOT EXISTS accounts (
	id           TEXT PRIMARY KEY,
	cash_balance TEXT NOT NULL CHECK (CAST(cash_balance AS REAL) >= 0),
	version      INTEGER NOT NULL DEFAULT 0,
	created_at   TIMESTAMP NOT NULL,
	updated_at   TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS instruments (
	id              TEXT PRIMARY KEY,
	symbol          TEXT NOT NULL,
	kind            TEXT NOT NULL CHECK (kind IN ('EQUITY','FUTURE','OPTION')),
	current_price   TEXT NOT NULL,
	previous_close  TEXT NOT NULL DEFAULT '0',
	lot_size        INTEGER NOT NULL DEFAULT 1,
	margin_required TEXT NOT NULL DEFAULT '0',
	margin_pct      TEXT NOT NULL DEFAULT '0',
	premium_price   TEXT NOT NULL DEFAULT '0',
	strike_price    TEXT NOT NULL DEFAULT '0',
	option_type     TEXT NOT NULL DEFAULT '',
	expiry_date     TIMESTAMP,
	version         INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS equity_positions (
	account_id    TEXT NOT NULL REFERENCES accounts(id),
	instrument_id TEXT NOT NULL REFERENCES instruments(id),
	quantity      INTEGER NOT NULL CHECK (quantity > 0),
	avg_buy_price TEXT NOT NULL,
	updated_at    TIMESTAMP NOT NULL,
	PRIMARY KEY (account_id, instrument_id)
);

CREATE TABLE IF NOT EXISTS futures_positions (
	account_id    TEXT NOT NULL REFERENCES accounts(id),
	contract_id   TEXT NOT NULL REFERENCES instruments(id),
	quantity      INTEGER NOT NULL CHECK (quantity <> 0),
	entry_price   TEXT NOT NULL,
	current_price TEXT NOT NULL,
	margin        TEXT NOT NULL,
	pnl           TEXT NOT NULL,
	updated_at    TIMESTAMP NOT NULL,
	PRIMARY KEY (account_id, contract_id)
);

CREATE TABLE IF NOT EXISTS options_positions (
	account_id    TEXT NOT NULL REFERENCES accounts(id),
	contract_id   TEXT NOT NULL REFERENCES instruments(id),
	quantity      INTEGER NOT NULL CHECK (quantity > 0),
	entry_price   TEXT NOT NULL,
	current_price TEXT NOT NULL,
	pnl           TEXT NOT NULL,
	updated_at    TIMESTAMP NOT NULL,
	PRIMARY KEY (account_id, contract_id)
);

CREATE TABLE IF NOT EXISTS transactions (
	id              TEXT PRIMARY KEY,
	account_id      TEXT NOT NULL REFERENCES accounts(id),
	instrument_id   TEXT NOT NULL REFERENCES instruments(id),
	instrument_kind TEXT NOT NULL,
	side            TEXT NOT NULL,
	order_kind      TEXT NOT NULL,
	quantity        INTEGER NOT NULL CHECK (quantity > 0),
	price           TEXT NOT NULL,
	total           TEXT NOT NULL,
	realized_pnl    TEXT NOT NULL,
	cash_delta      TEXT NOT NULL,
	status          TEXT NOT NULL,
	created_at      TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS transactions_account_created ON transactions (account_id, created_at DESC, id DESC);

CREATE TABLE IF NOT EXISTS ledger_entries (
	id         TEXT PRIMARY KEY,
	tx_ref     TEXT NOT NULL,
	account_id TEXT NOT NULL REFERENCES accounts(id),
	bucket     TEXT NOT NULL,
	amount     TEXT NOT NULL,
	entry_type TEXT NOT NULL,
	sequence   INTEGER NOT NULL,
	prev_hash  TEXT NOT NULL DEFAULT '',
	hash       TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	UNIQUE (account_id, sequence)
);
`

// Package store declares the persistence boundary of the ledger. Each backend
// guarantees that InAccountTx runs fn with exclusive access to the account row
// and that all writes made through Tx commit together or not at all.
package store

import (
	"context"
	"errors"
	"time"

	"lv-paperledger/internal/model"

	"github.com/shopspring/decimal"
)

var ErrNotFound = errors.New("not found")

// Tx is the read-modify-write surface available inside an account
// transaction. Position getters return nil, nil when the row is absent.
type Tx interface {
	LockAccount(ctx context.Context, accountID string) (model.Account, error)
	// UpdateAccountBalance writes balance if the row is still at version and
	// bumps the version; a stale version is a concurrency conflict.
	UpdateAccountBalance(ctx context.Context, accountID string, balance decimal.Decimal, version int64) error

	LastLedgerEntry(ctx context.Context, accountID string) (*model.LedgerEntry, error)
	AppendLedgerEntry(ctx context.Context, e model.LedgerEntry) error
	ListLedgerEntries(ctx context.Context, accountID string) ([]model.LedgerEntry, error)

	GetEquityPosition(ctx context.Context, accountID, instrumentID string) (*model.EquityPosition, error)
	SaveEquityPosition(ctx context.Context, p model.EquityPosition) error
	DeleteEquityPosition(ctx context.Context, accountID, instrumentID string) error

	GetFuturesPosition(ctx context.Context, accountID, contractID string) (*model.FuturesPosition, error)
	SaveFuturesPosition(ctx context.Context, p model.FuturesPosition) error
	DeleteFuturesPosition(ctx context.Context, accountID, contractID string) error
	ListFuturesPositions(ctx context.Context, accountID string) ([]model.FuturesPosition, error)

	GetOptionsPosition(ctx context.Context, accountID, contractID string) (*model.OptionsPosition, error)
	SaveOptionsPosition(ctx context.Context, p model.OptionsPosition) error
	DeleteOptionsPosition(ctx context.Context, accountID, contractID string) error

	InsertTransaction(ctx context.Context, t model.Transaction) error
}

type Store interface {
	// InAccountTx runs fn in one transaction scoped to accountID. An error
	// from fn rolls everything back and is returned unchanged. Lock and
	// serialization failures surface as tradeerr.KindConcurrencyConflict,
	// other commit failures as tradeerr.KindPersistenceFailure.
	InAccountTx(ctx context.Context, accountID string, fn func(ctx context.Context, tx Tx) error) error

	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()

	CreateAccount(ctx context.Context, a model.Account) error
	GetAccount(ctx context.Context, accountID string) (model.Account, error)

	GetInstrument(ctx context.Context, instrumentID string) (model.Instrument, error)
	UpsertInstrument(ctx context.Context, inst model.Instrument) error

	ListEquityPositions(ctx context.Context, accountID string) ([]model.EquityPosition, error)
	ListFuturesPositions(ctx context.Context, accountID string) ([]model.FuturesPosition, error)
	ListOptionsPositions(ctx context.Context, accountID string) ([]model.OptionsPosition, error)
	ListTransactions(ctx context.Context, accountID string, before *time.Time, limit int) ([]model.Transaction, error)
}

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// PageSize clamps a requested history page size.
func PageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

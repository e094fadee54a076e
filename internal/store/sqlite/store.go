// Package sqlite is the embedded backend. Transactions open with BEGIN
// IMMEDIATE so writers are serialized by the database lock; competing orders
// wait out the busy timeout instead of interleaving.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"lv-paperledger/internal/store"
	"lv-paperledger/internal/tradeerr"

	"github.com/mattn/go-sqlite3"
)

type Store struct {
	db *sql.DB
}

var _ store.Store = (*Store)(nil)

// Open opens (creating if needed) the database at path. path may already
// carry query parameters; the locking parameters are appended.
func Open(path string) (*Store, error) {
	dsn := path
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	dsn += sep + "_txlock=immediate&_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, Schema)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() {
	_ = s.db.Close()
}

// opCommit tags failures whose outcome the caller cannot know.
const opCommit = "commit"

func (s *Store) InAccountTx(ctx context.Context, accountID string, fn func(ctx context.Context, tx store.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin", err)
	}
	defer sqlTx.Rollback()
	if err := fn(ctx, &tx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return classify(opCommit, err)
	}
	return nil
}

// classify maps lock contention to a retryable conflict and anything else to
// a persistence failure. Errors already classified pass through.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *tradeerr.Error
	if errors.As(err, &te) {
		return err
	}
	if isBusy(err) {
		return tradeerr.Wrap(tradeerr.KindConcurrencyConflict, "account is busy, retry the order", fmt.Errorf("sqlite %s: %w", op, err))
	}
	if op == opCommit {
		return tradeerr.Wrap(tradeerr.KindPersistenceFailure, "storage failed during commit, the order may have executed",
			fmt.Errorf("sqlite %s: %w: %w", op, tradeerr.ErrOutcomeUnknown, err))
	}
	return tradeerr.Wrap(tradeerr.KindPersistenceFailure, "storage unavailable", fmt.Errorf("sqlite %s: %w", op, err))
}

func isBusy(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.Code == sqlite3.ErrBusy || se.Code == sqlite3.ErrLocked
	}
	return false
}

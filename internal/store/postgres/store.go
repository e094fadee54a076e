// Package postgres is the production backend. Each order runs in a
// serializable transaction that also row-locks the account, so orders for one
// account queue behind each other while other accounts proceed untouched.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"lv-paperledger/internal/store"
	"lv-paperledger/internal/tradeerr"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store struct {
	pool *pgxpool.Pool
}

var _ store.Store = (*Store)(nil)

func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) Close() {
	s.pool.Close()
}

// opCommit tags failures whose outcome the caller cannot know.
const opCommit = "commit"

func (s *Store) InAccountTx(ctx context.Context, accountID string, fn func(ctx context.Context, tx store.Tx) error) error {
	pgTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return classify("begin", err)
	}
	defer pgTx.Rollback(ctx)
	if err := fn(ctx, &tx{tx: pgTx}); err != nil {
		return err
	}
	if err := pgTx.Commit(ctx); err != nil {
		return classify(opCommit, err)
	}
	return nil
}

const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateLockNotAvailable     = "55P03"
)

func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var te *tradeerr.Error
	if errors.As(err, &te) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlStateSerializationFailure, sqlStateDeadlockDetected, sqlStateLockNotAvailable:
			return tradeerr.Wrap(tradeerr.KindConcurrencyConflict, "account is busy, retry the order", fmt.Errorf("postgres %s: %w", op, err))
		}
	}
	if op == opCommit {
		return tradeerr.Wrap(tradeerr.KindPersistenceFailure, "storage failed during commit, the order may have executed",
			fmt.Errorf("postgres %s: %w: %w", op, tradeerr.ErrOutcomeUnknown, err))
	}
	return tradeerr.Wrap(tradeerr.KindPersistenceFailure, "storage unavailable", fmt.Errorf("postgres %s: %w", op, err))
}

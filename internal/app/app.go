// Package app wires the ledger's services from configuration. Both the API
// server and paperctl build on it.
package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"lv-paperledger/internal/auth"
	"lv-paperledger/internal/config"
	"lv-paperledger/internal/ledger"
	"lv-paperledger/internal/logging"
	"lv-paperledger/internal/marketdata"
	"lv-paperledger/internal/orders"
	"lv-paperledger/internal/store"
	"lv-paperledger/internal/store/postgres"
	"lv-paperledger/internal/store/sqlite"

	"github.com/rs/zerolog"
)

type App struct {
	Config   config.Config
	Log      zerolog.Logger
	Store    store.Store
	Ledger   *ledger.Service
	Bus      *marketdata.Bus
	Feed     *marketdata.Feed
	Executor *orders.Executor
	Auth     *auth.Service
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	return NewWithLogOutput(ctx, cfg, os.Stdout)
}

// NewWithLogOutput is New with console logging sent to out.
func NewWithLogOutput(ctx context.Context, cfg config.Config, out io.Writer) (*App, error) {
	log := logging.NewWithWriter(logging.Config{Level: cfg.LogLevel, Console: cfg.LogConsole, FilePath: cfg.LogFile}, out)
	st, err := OpenStore(ctx, cfg.StoreDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	return Wire(cfg, log, st), nil
}

// Wire assembles the services around an already open store.
func Wire(cfg config.Config, log zerolog.Logger, st store.Store) *App {
	bus := marketdata.NewBus()
	ledgerSvc := ledger.NewService()
	exec := orders.NewExecutor(st, ledgerSvc, orders.Options{
		Retry:   orders.RetryPolicy{Attempts: cfg.RetryAttempts, BaseDelay: cfg.RetryBaseDelay},
		Timeout: cfg.OrderTimeout,
		Bus:     bus,
		Logger:  log,
	})
	return &App{
		Config:   cfg,
		Log:      log,
		Store:    st,
		Ledger:   ledgerSvc,
		Bus:      bus,
		Feed:     marketdata.NewFeed(st, bus),
		Executor: exec,
		Auth:     auth.NewService(cfg.JWTIssuer, []byte(cfg.JWTSecret), cfg.JWTTTL),
	}
}

func OpenStore(ctx context.Context, driver, dsn string) (store.Store, error) {
	switch driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, dsn)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		return postgres.NewStore(pool), nil
	case config.DriverSQLite, "":
		st, err := sqlite.Open(dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		return st, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}
}

func (a *App) Close() {
	a.Store.Close()
}

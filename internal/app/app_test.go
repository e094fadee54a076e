package app

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"lv-paperledger/internal/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWiresSQLite(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	cfg := config.Config{
		StoreDriver:     config.DriverSQLite,
		DBDSN:           filepath.Join(t.TempDir(), "app.db"),
		JWTIssuer:       "paperledger",
		JWTSecret:       "secret",
		JWTTTL:          time.Hour,
		RetryAttempts:   3,
		OrderTimeout:    time.Second,
		LogLevel:        "info",
		StartingBalance: decimal.NewFromInt(1000),
	}
	var logs bytes.Buffer
	a, err := NewWithLogOutput(ctx, cfg, &logs)
	require.NoError(t, err)
	t.Cleanup(a.Close)

	require.NoError(t, a.Store.Migrate(ctx))
	require.NoError(t, a.Store.Ping(ctx))

	acct, err := a.Ledger.OpenAccount(ctx, a.Store, "acc-1", cfg.StartingBalance)
	require.NoError(t, err)
	assert.Equal(t, "1000", acct.CashBalance.String())

	tok, err := a.Auth.IssueToken("acc-1")
	require.NoError(t, err)
	sub, err := a.Auth.ParseToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "acc-1", sub)
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	t.Parallel()

	_, err := OpenStore(context.Background(), "mysql", "dsn")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysql")
}

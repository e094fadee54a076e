package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_DSN", "file:test.db")
	t.Setenv("JWT_SECRET", "s3cret")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":8080", c.HTTPAddr)
	assert.Equal(t, DriverSQLite, c.StoreDriver)
	assert.Equal(t, 24*time.Hour, c.JWTTTL)
	assert.Equal(t, "*", c.WebSocketOrigin)
	assert.Equal(t, 5, c.RetryAttempts)
	assert.Equal(t, 10*time.Millisecond, c.RetryBaseDelay)
	assert.Equal(t, 5*time.Second, c.OrderTimeout)
	assert.True(t, c.LogConsole)
	assert.Equal(t, "100000", c.StartingBalance.String())
}

func TestLoadRequiresSecret(t *testing.T) {
	t.Setenv("DB_DSN", "file:test.db")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("DB_DSN", "file:test.db")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "mysql")

	_, err := Load()
	assert.ErrorContains(t, err, "STORE_DRIVER")
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("DB_DSN", "postgres://localhost/ledger")
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("RETRY_ATTEMPTS", "9")
	t.Setenv("ORDER_TIMEOUT", "750ms")
	t.Setenv("STARTING_BALANCE", "2500.50")

	c, err := Load()
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, c.StoreDriver)
	assert.Equal(t, 9, c.RetryAttempts)
	assert.Equal(t, 750*time.Millisecond, c.OrderTimeout)
	assert.Equal(t, "2500.5", c.StartingBalance.String())
}

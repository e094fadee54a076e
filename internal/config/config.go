package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	StoreDriver string `envconfig:"STORE_DRIVER" default:"sqlite"`
	DBDSN       string `envconfig:"DB_DSN" required:"true"`

	JWTIssuer string        `envconfig:"JWT_ISSUER" default:"paperledger"`
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"24h"`

	WebSocketOrigin string `envconfig:"WS_ORIGIN" default:"*"`

	RetryAttempts  int           `envconfig:"RETRY_ATTEMPTS" default:"5"`
	RetryBaseDelay time.Duration `envconfig:"RETRY_BASE_DELAY" default:"10ms"`
	OrderTimeout   time.Duration `envconfig:"ORDER_TIMEOUT" default:"5s"`

	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile    string `envconfig:"LOG_FILE"`
	LogConsole bool   `envconfig:"LOG_CONSOLE" default:"true"`

	StartingBalance decimal.Decimal `envconfig:"STARTING_BALANCE" default:"100000"`
}

// Load reads .env when present, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return c, fmt.Errorf("process env: %w", err)
	}
	c.StoreDriver = strings.ToLower(strings.TrimSpace(c.StoreDriver))
	return c, c.Validate()
}

func (c Config) Validate() error {
	if c.StoreDriver != DriverPostgres && c.StoreDriver != DriverSQLite {
		return fmt.Errorf("invalid STORE_DRIVER %q: use postgres or sqlite", c.StoreDriver)
	}
	if strings.TrimSpace(c.DBDSN) == "" {
		return errors.New("DB_DSN is required")
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.RetryAttempts < 1 {
		return errors.New("RETRY_ATTEMPTS must be at least 1")
	}
	if c.OrderTimeout <= 0 {
		return errors.New("ORDER_TIMEOUT must be positive")
	}
	if c.JWTTTL <= 0 {
		return errors.New("JWT_TTL must be positive")
	}
	if c.StartingBalance.IsNegative() {
		return errors.New("STARTING_BALANCE must not be negative")
	}
	return nil
}

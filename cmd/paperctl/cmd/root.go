package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"lv-paperledger/internal/app"
	"lv-paperledger/internal/config"

	"github.com/spf13/cobra"
)

var (
	flagDriver string
	flagDSN    string
)

var rootCmd = &cobra.Command{
	Use:   "paperctl",
	Short: "Operate the paper-trading ledger",
	Long: `paperctl runs operator tasks against the ledger database.

Configuration comes from the environment (and .env); --driver and --dsn
override STORE_DRIVER and DB_DSN.

Examples:
  paperctl migrate
  paperctl seed instruments.yaml
  paperctl account create acc-1 --balance 10000
  paperctl order acc-1 AAPL BUY 10
  paperctl reconcile acc-1`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDriver, "driver", "", "store driver: postgres or sqlite")
	rootCmd.PersistentFlags().StringVar(&flagDSN, "dsn", "", "database DSN or sqlite path")
}

func loadConfig() (config.Config, error) {
	if flagDriver != "" {
		_ = os.Setenv("STORE_DRIVER", flagDriver)
	}
	if flagDSN != "" {
		_ = os.Setenv("DB_DSN", flagDSN)
	}
	return config.Load()
}

// withApp builds the services for one command and tears them down after.
func withApp(fn func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		a, err := app.NewWithLogOutput(ctx, cfg, cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer a.Close()
		return fn(ctx, a, cmd, args)
	}
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package cmd

import (
	"context"
	"fmt"

	"lv-paperledger/internal/app"
	"lv-paperledger/internal/marketdata"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the schema",
	Args:  cobra.NoArgs,
	RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, _ []string) error {
		if err := a.Store.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
		return nil
	}),
}

var seedCmd = &cobra.Command{
	Use:   "seed <catalog.yaml>",
	Short: "Load instrument snapshots from a YAML catalog",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
		c, err := marketdata.LoadCatalog(args[0])
		if err != nil {
			return err
		}
		if err := c.Seed(ctx, a.Store); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d instruments\n", len(c.Instruments))
		return nil
	}),
}

var pricePremium string

var priceCmd = &cobra.Command{
	Use:   "price <instrument> <price>",
	Short: "Apply a price update to an instrument",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
		price, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid price %q: %w", args[1], err)
		}
		q := marketdata.Quote{InstrumentID: args[0], Price: price}
		if pricePremium != "" {
			if q.Premium, err = decimal.NewFromString(pricePremium); err != nil {
				return fmt.Errorf("invalid premium %q: %w", pricePremium, err)
			}
		}
		inst, err := a.Feed.Apply(ctx, q)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), inst)
	}),
}

func init() {
	priceCmd.Flags().StringVar(&pricePremium, "premium", "", "option premium")
	rootCmd.AddCommand(migrateCmd, seedCmd, priceCmd)
}

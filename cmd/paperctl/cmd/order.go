package cmd

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"lv-paperledger/internal/accounting"
	"lv-paperledger/internal/app"
	"lv-paperledger/internal/orders"
	"lv-paperledger/internal/tradeerr"
	"lv-paperledger/internal/types"

	"github.com/spf13/cobra"
)

var orderKind string

var orderCmd = &cobra.Command{
	Use:   "order <account-id> <instrument> <BUY|SELL> <qty>",
	Short: "Place an order",
	Args:  cobra.ExactArgs(4),
	RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
		qty, err := strconv.ParseInt(args[3], 10, 64)
		if err != nil {
			return tradeerr.Newf(tradeerr.KindInvalidQuantity, "quantity must be a positive integer, got %q", args[3])
		}
		tr, err := a.Executor.Execute(ctx, orders.PlaceOrderRequest{
			AccountID:    args[0],
			InstrumentID: args[1],
			Side:         types.OrderSide(strings.ToUpper(args[2])),
			Kind:         types.OrderKind(strings.ToUpper(orderKind)),
			Qty:          qty,
		})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), tr)
	}),
}

var positionsCmd = &cobra.Command{
	Use:   "positions <account-id>",
	Short: "List open positions",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
		eq, err := a.Store.ListEquityPositions(ctx, args[0])
		if err != nil {
			return err
		}
		fut, err := a.Store.ListFuturesPositions(ctx, args[0])
		if err != nil {
			return err
		}
		opt, err := a.Store.ListOptionsPositions(ctx, args[0])
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KIND\tINSTRUMENT\tQTY\tENTRY\tMARGIN\tPNL")
		for _, p := range eq {
			fmt.Fprintf(w, "equity\t%s\t%d\t%s\t-\t-\n", p.InstrumentID, p.Quantity, accounting.Format(p.AvgBuyPrice))
		}
		for _, p := range fut {
			fmt.Fprintf(w, "future\t%s\t%d\t%s\t%s\t%s\n", p.ContractID, p.Quantity, accounting.Format(p.EntryPrice), accounting.Format(p.Margin), accounting.Format(p.PnL))
		}
		for _, p := range opt {
			fmt.Fprintf(w, "option\t%s\t%d\t%s\t-\t%s\n", p.ContractID, p.Quantity, accounting.Format(p.EntryPrice), accounting.Format(p.PnL))
		}
		return w.Flush()
	}),
}

var (
	historyLimit  int
	historyBefore string
)

var historyCmd = &cobra.Command{
	Use:   "history <account-id>",
	Short: "List transactions, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
		var before *time.Time
		if historyBefore != "" {
			ts, err := time.Parse(time.RFC3339Nano, historyBefore)
			if err != nil {
				return fmt.Errorf("invalid --before: %w", err)
			}
			before = &ts
		}
		items, err := a.Store.ListTransactions(ctx, args[0], before, historyLimit)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tID\tINSTRUMENT\tSIDE\tQTY\tPRICE\tTOTAL\tCASH\tSTATUS")
		for _, t := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
				t.CreatedAt.Format(time.RFC3339Nano), t.ID, t.InstrumentID, t.Side, t.Quantity,
				t.Price.String(), accounting.Format(t.Total), accounting.Format(t.CashDelta), t.Status)
		}
		return w.Flush()
	}),
}

func init() {
	orderCmd.Flags().StringVar(&orderKind, "kind", string(types.OrderKindMarket), "order kind: MARKET, LIMIT or STOP")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "page size (max 200)")
	historyCmd.Flags().StringVar(&historyBefore, "before", "", "only transactions before this RFC3339 time")
	rootCmd.AddCommand(orderCmd, positionsCmd, historyCmd)
}

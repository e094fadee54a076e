package cmd

import (
	"context"
	"fmt"

	"lv-paperledger/internal/accounting"
	"lv-paperledger/internal/app"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manage trading accounts",
}

var accountBalance string

var accountCreateCmd = &cobra.Command{
	Use:   "create <account-id>",
	Short: "Open an account funded with a starting balance",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
		balance := a.Config.StartingBalance
		if accountBalance != "" {
			v, err := decimal.NewFromString(accountBalance)
			if err != nil {
				return fmt.Errorf("invalid balance %q: %w", accountBalance, err)
			}
			balance = v
		}
		acct, err := a.Ledger.OpenAccount(ctx, a.Store, args[0], balance)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "opened %s with %s\n", acct.ID, accounting.Format(acct.CashBalance))
		return nil
	}),
}

var accountDepositCmd = &cobra.Command{
	Use:   "deposit <account-id> <amount>",
	Short: "Credit cash to an account",
	Args:  cobra.ExactArgs(2),
	RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
		amount, err := decimal.NewFromString(args[1])
		if err != nil {
			return fmt.Errorf("invalid amount %q: %w", args[1], err)
		}
		acct, err := a.Ledger.Deposit(ctx, a.Store, args[0], amount)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s balance %s\n", acct.ID, accounting.Format(acct.CashBalance))
		return nil
	}),
}

var accountShowCmd = &cobra.Command{
	Use:   "show <account-id>",
	Short: "Print an account",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
		acct, err := a.Store.GetAccount(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), acct)
	}),
}

var tokenCmd = &cobra.Command{
	Use:   "token <account-id>",
	Short: "Issue a bearer token for an account",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(_ context.Context, a *app.App, cmd *cobra.Command, args []string) error {
		tok, err := a.Auth.IssueToken(args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok)
		return nil
	}),
}

var reconcileCmd = &cobra.Command{
	Use:   "reconcile <account-id>",
	Short: "Replay the ledger and compare it with stored balances",
	Args:  cobra.ExactArgs(1),
	RunE: withApp(func(ctx context.Context, a *app.App, cmd *cobra.Command, args []string) error {
		rep, err := a.Ledger.Reconcile(ctx, a.Store, args[0])
		if err != nil {
			return err
		}
		if err := printJSON(cmd.OutOrStdout(), rep); err != nil {
			return err
		}
		if !rep.OK() {
			return fmt.Errorf("%s: %d reconciliation problems", args[0], len(rep.Problems))
		}
		return nil
	}),
}

func init() {
	accountCreateCmd.Flags().StringVar(&accountBalance, "balance", "", "starting balance (default STARTING_BALANCE)")
	accountCmd.AddCommand(accountCreateCmd, accountDepositCmd, accountShowCmd)
	rootCmd.AddCommand(accountCmd, tokenCmd, reconcileCmd)
}

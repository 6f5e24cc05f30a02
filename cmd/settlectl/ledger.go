package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/radieske/bet-settlement-engine/internal/ledger"
	"github.com/radieske/bet-settlement-engine/internal/settlement"
	"github.com/radieske/bet-settlement-engine/internal/shared/money"
)

//nolint:gochecknoglobals // Cobra boilerplate
var (
	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// openDeps já aplica o schema
			d, err := openDeps(cmd.Context())
			if err != nil {
				return err
			}
			defer d.close()
			fmt.Printf("schema applied (%s)\n", d.dialect)
			return nil
		},
	}

	balanceCmd = &cobra.Command{
		Use:   "balance",
		Short: "Show a user's derived balance and latest entries",
		RunE:  runBalance,
	}

	depositCmd = &cobra.Command{
		Use:   "deposit",
		Short: "Credit a completed deposit to a user (test data)",
		RunE:  runDeposit,
	}

	reconcileCmd = &cobra.Command{
		Use:   "reconcile",
		Short: "Check that settlement credits match the payouts of terminal bets",
		RunE:  runReconcile,
	}
)

var (
	userID  string
	amount  string
	entries int
)

//nolint:gochecknoinits // Cobra boilerplate
func init() {
	rootCmd.AddCommand(migrateCmd, balanceCmd, depositCmd, reconcileCmd)

	balanceCmd.Flags().StringVarP(&userID, "user", "u", "", "user id")
	balanceCmd.Flags().IntVarP(&entries, "entries", "n", 10, "latest entries to list")
	_ = balanceCmd.MarkFlagRequired("user")

	depositCmd.Flags().StringVarP(&userID, "user", "u", "", "user id")
	depositCmd.Flags().StringVarP(&amount, "amount", "a", "", "amount, e.g. 100.00")
	_ = depositCmd.MarkFlagRequired("user")
	_ = depositCmd.MarkFlagRequired("amount")
}

func runBalance(cmd *cobra.Command, _ []string) error {
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.close()

	bal, err := d.ledger.BalanceOf(cmd.Context(), userID)
	if err != nil {
		return err
	}
	list, err := d.ledger.Entries(cmd.Context(), userID, entries)
	if err != nil {
		return err
	}
	return printJSON(map[string]any{
		"userId":  userID,
		"balance": money.Format(bal, d.cfg.CurrencyDecimals),
		"entries": list,
	})
}

func runDeposit(cmd *cobra.Command, _ []string) error {
	v, err := money.Parse(amount)
	if err != nil {
		return err
	}
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.close()

	e, err := d.ledger.Append(cmd.Context(), ledger.Entry{UserID: userID, Type: ledger.TypeDeposit, Amount: v})
	if err != nil {
		return err
	}
	return printJSON(e)
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	d, err := openDeps(cmd.Context())
	if err != nil {
		return err
	}
	defer d.close()

	rep, err := settlement.NewReconciler(d.registry, d.store).Reconcile(cmd.Context())
	if err != nil {
		return err
	}
	if err := printJSON(rep); err != nil {
		return err
	}
	if !rep.Clean() {
		return fmt.Errorf("%d mismatches, %d orphan credits", len(rep.Mismatches), len(rep.Orphans))
	}
	return nil
}

package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"bilancio/internal/core"
)

func init() {
	rootCmd.AddCommand(entryCmd)
	entryCmd.AddCommand(entryAddCmd)
	entryCmd.AddCommand(entryUpdateCmd)
	entryCmd.AddCommand(entryDeleteCmd)

	entryAddCmd.Flags().StringP("month", "m", "", "Billing month (YYYY-MM)")
	entryAddCmd.Flags().StringP("date", "d", "", "Calendar date (YYYY-MM-DD)")
	entryAddCmd.Flags().StringP("amount", "a", "", "Amount in euros, e.g. 12.50")
	entryAddCmd.Flags().String("direction", string(core.Expense), "income or expense")
	entryAddCmd.Flags().StringP("category", "c", "", "Category id")
	entryAddCmd.Flags().String("description", "", "Description")
	entryAddCmd.Flags().String("status", string(core.StatusConfirmed), "confirmed or projected")
	entryAddCmd.Flags().String("id", "", "Transaction id (generated when omitted)")

	entryUpdateCmd.Flags().StringP("date", "d", "", "New calendar date (YYYY-MM-DD)")
	entryUpdateCmd.Flags().StringP("amount", "a", "", "New amount in euros")
	entryUpdateCmd.Flags().String("direction", "", "income or expense")
	entryUpdateCmd.Flags().StringP("category", "c", "", "New category id")
	entryUpdateCmd.Flags().String("description", "", "New description")
	entryUpdateCmd.Flags().String("status", "", "confirmed or projected")
}

var entryCmd = &cobra.Command{
	Use:   "entry",
	Short: "Manage manual ledger entries",
}

var entryAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a transaction to a month",
	RunE:  runEntryAdd,
}

func runEntryAdd(cmd *cobra.Command, args []string) error {
	monthArg, _ := cmd.Flags().GetString("month")
	dateArg, _ := cmd.Flags().GetString("date")
	amountArg, _ := cmd.Flags().GetString("amount")
	direction, _ := cmd.Flags().GetString("direction")
	category, _ := cmd.Flags().GetString("category")
	description, _ := cmd.Flags().GetString("description")
	status, _ := cmd.Flags().GetString("status")
	id, _ := cmd.Flags().GetString("id")

	date, err := core.ParseDate(dateArg)
	if err != nil {
		return err
	}

	// Default the bucket to the transaction's calendar month.
	var month core.MonthKey
	if monthArg == "" {
		month = date.MonthKeyOf()
	} else {
		month, err = core.ParseMonthKey(monthArg)
		if err != nil {
			return err
		}
	}

	cents, err := core.ParseDecimalToCents(amountArg)
	if err != nil {
		return err
	}
	if id == "" {
		id = uuid.NewString()
	}

	tx := core.Transaction{
		ID:          id,
		Date:        date,
		Amount:      core.Money{Cents: cents},
		Direction:   core.Direction(direction),
		CategoryID:  category,
		Description: description,
		Status:      core.Status(status),
		Source:      core.SourceManual,
	}
	created, err := appLedger.AddEntry(cmd.Context(), month, tx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Added %s to %s (%.2f %s)\n",
		created.ID, month, created.Amount.Euros(), created.Direction)
	return nil
}

var entryUpdateCmd = &cobra.Command{
	Use:   "update YYYY-MM ID",
	Short: "Edit a transaction's fields",
	Long: `Edit a transaction in place. Only the flags that are set change;
everything else keeps its stored value. Installment parcels are edited
with "installment update-parcel" instead.`,
	Args: cobra.ExactArgs(2),
	RunE: runEntryUpdate,
}

func runEntryUpdate(cmd *cobra.Command, args []string) error {
	month, err := core.ParseMonthKey(args[0])
	if err != nil {
		return err
	}
	doc, err := appLedger.GetMonth(cmd.Context(), month)
	if err != nil {
		return err
	}
	i, ok := doc.FindTransaction(args[1])
	if !ok {
		return &core.NotFoundError{Resource: "transaction", ID: args[1]}
	}
	tx := doc.Transactions[i]
	if err := applyTransactionFlags(cmd, &tx); err != nil {
		return err
	}
	if cmd.Flags().Changed("status") {
		status, _ := cmd.Flags().GetString("status")
		tx.Status = core.Status(status)
	}

	updated, err := appLedger.UpdateEntry(cmd.Context(), month, tx)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Updated %s in %s (%.2f %s)\n",
		updated.ID, month, updated.Amount.Euros(), updated.Direction)
	return nil
}

// applyTransactionFlags overrides the transaction's mutable fields with
// the flags the caller actually set.
func applyTransactionFlags(cmd *cobra.Command, tx *core.Transaction) error {
	flags := cmd.Flags()
	if flags.Lookup("date") != nil && flags.Changed("date") {
		dateArg, _ := flags.GetString("date")
		date, err := core.ParseDate(dateArg)
		if err != nil {
			return err
		}
		tx.Date = date
	}
	if flags.Changed("amount") {
		amountArg, _ := flags.GetString("amount")
		cents, err := core.ParseDecimalToCents(amountArg)
		if err != nil {
			return err
		}
		tx.Amount = core.Money{Cents: cents}
	}
	if flags.Changed("direction") {
		direction, _ := flags.GetString("direction")
		tx.Direction = core.Direction(direction)
	}
	if flags.Changed("category") {
		category, _ := flags.GetString("category")
		tx.CategoryID = category
	}
	if flags.Changed("description") {
		description, _ := flags.GetString("description")
		tx.Description = description
	}
	return nil
}

var entryDeleteCmd = &cobra.Command{
	Use:   "delete YYYY-MM ID",
	Short: "Delete a transaction from a month",
	Args:  cobra.ExactArgs(2),
	RunE:  runEntryDelete,
}

func runEntryDelete(cmd *cobra.Command, args []string) error {
	month, err := core.ParseMonthKey(args[0])
	if err != nil {
		return err
	}
	if err := appLedger.DeleteEntry(cmd.Context(), month, args[1]); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Deleted %s from %s\n", args[1], month)
	return nil
}

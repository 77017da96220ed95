package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"bilancio/internal/core"
)

func init() {
	rootCmd.AddCommand(monthCmd)
	monthCmd.AddCommand(monthShowCmd)
}

var monthCmd = &cobra.Command{
	Use:   "month",
	Short: "Inspect month documents",
}

var monthShowCmd = &cobra.Command{
	Use:   "show YYYY-MM",
	Short: "Print the month's transactions and side sections",
	Args:  cobra.ExactArgs(1),
	RunE:  runMonthShow,
}

func runMonthShow(cmd *cobra.Command, args []string) error {
	month, err := core.ParseMonthKey(args[0])
	if err != nil {
		return err
	}

	doc, err := appLedger.GetMonth(cmd.Context(), month)
	if err != nil {
		return err
	}

	if len(doc.Transactions) == 0 {
		fmt.Fprintf(os.Stdout, "No transactions in %s\n", month)
	} else {
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "DATE\tID\tDESCRIPTION\tAMOUNT\tDIRECTION\tSTATUS\tSOURCE")
		for _, tx := range doc.Transactions {
			fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%s\t%s\t%s\n",
				tx.Date, tx.ID, tx.Description, tx.Amount.Euros(),
				tx.Direction, tx.Status, tx.Source)
		}
		w.Flush()
	}

	if len(doc.Calendar) > 0 {
		fmt.Fprintln(os.Stdout, "\nCalendar:")
		for _, e := range doc.Calendar {
			fmt.Fprintf(os.Stdout, "  %s  %s\n", e.Date, e.Note)
		}
	}
	if len(doc.Savings) > 0 {
		fmt.Fprintln(os.Stdout, "\nSavings:")
		for _, e := range doc.Savings {
			fmt.Fprintf(os.Stdout, "  %.2f  %s\n", e.Amount.Euros(), e.Description)
		}
	}
	if len(doc.Loans) > 0 {
		fmt.Fprintln(os.Stdout, "\nLoans:")
		for _, loan := range doc.Loans {
			state := "open"
			if loan.Settled {
				state = "settled"
			}
			fmt.Fprintf(os.Stdout, "  %.2f  %s (%s, %s, %s)\n",
				loan.Amount.Euros(), loan.Description, loan.Counterparty, loan.Direction, state)
		}
	}
	return nil
}

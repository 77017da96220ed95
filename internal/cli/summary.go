package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"bilancio/internal/core"
)

func init() {
	rootCmd.AddCommand(summaryCmd)
	summaryCmd.AddCommand(summaryMonthCmd)
	summaryCmd.AddCommand(summaryYearCmd)
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Aggregate totals and balances",
}

var summaryMonthCmd = &cobra.Command{
	Use:   "month YYYY-MM",
	Short: "Print the monthly summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummaryMonth,
}

func runSummaryMonth(cmd *cobra.Command, args []string) error {
	month, err := core.ParseMonthKey(args[0])
	if err != nil {
		return err
	}
	summary, err := appLedger.MonthlySummary(cmd.Context(), month)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Summary for %s\n", summary.Month)
	printTotals(summary.Totals, summary.Balances)
	return nil
}

var summaryYearCmd = &cobra.Command{
	Use:   "year YYYY",
	Short: "Print the annual summary",
	Args:  cobra.ExactArgs(1),
	RunE:  runSummaryYear,
}

func runSummaryYear(cmd *cobra.Command, args []string) error {
	year, err := core.ParseYear(args[0])
	if err != nil {
		return err
	}
	summary, err := appLedger.AnnualSummary(cmd.Context(), year)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Summary for %d\n", summary.Year)
	printTotals(summary.Totals, summary.Balances)
	return nil
}

func printTotals(totals core.SummaryTotals, balances core.SummaryBalances) {
	fmt.Fprintf(os.Stdout, "  Confirmed: income %.2f, expense %.2f\n",
		totals.Confirmed.Income.Euros(), totals.Confirmed.Expense.Euros())
	fmt.Fprintf(os.Stdout, "  Projected: income %.2f, expense %.2f\n",
		totals.Projected.Income.Euros(), totals.Projected.Expense.Euros())
	fmt.Fprintf(os.Stdout, "  Balance:   confirmed %.2f, projected %.2f\n",
		balances.Confirmed.Euros(), balances.Projected.Euros())
}

package cli

import (
	"fmt"
	"os"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"bilancio/internal/core"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configClosingDayCmd)
	configCmd.AddCommand(configSalaryCmd)

	configSalaryCmd.Flags().String("base", "", "Base salary in euros")
	configSalaryCmd.Flags().Int("payment-day", 27, "Day of month the salary arrives")
	configSalaryCmd.Flags().StringP("category", "c", "", "Category id")
	configSalaryCmd.Flags().String("description", "Salary", "Entry description")
	configSalaryCmd.Flags().String("advance-percent", "", "Advance as a percent of the base, e.g. 40")
	configSalaryCmd.Flags().Int("advance-day", 14, "Day of month the advance arrives")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change ledger configuration",
}

var configClosingDayCmd = &cobra.Command{
	Use:   "closing-day [DAY]",
	Short: "Show or set the credit-card statement closing day",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runConfigClosingDay,
}

func runConfigClosingDay(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		billing, err := appLedger.BillingConfig(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Closing day: %d\n", billing.ClosingDay)
		return nil
	}

	day, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid day %q: %w", args[0], err)
	}
	if err := appLedger.SetClosingDay(cmd.Context(), day); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Closing day set to %d\n", day)
	return nil
}

var configSalaryCmd = &cobra.Command{
	Use:   "salary",
	Short: "Show or set the salary configuration",
	Long: `Without flags, prints the stored salary configuration. With --base,
stores a new configuration; --advance-percent enables the mid-month
advance.`,
	RunE: runConfigSalary,
}

func runConfigSalary(cmd *cobra.Command, args []string) error {
	base, _ := cmd.Flags().GetString("base")
	if base == "" {
		cfg, ok, err := appLedger.SalaryConfig(cmd.Context())
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(os.Stdout, "No salary configuration")
			return nil
		}
		fmt.Fprintf(os.Stdout, "Base salary: %.2f on day %d (%s, category %s)\n",
			cfg.BaseSalary.Euros(), cfg.PaymentDay, cfg.Description, cfg.CategoryID)
		if cfg.Advance.Enabled {
			fmt.Fprintf(os.Stdout, "Advance: %s%% on day %d (%.2f)\n",
				cfg.Advance.Value, cfg.Advance.Day, cfg.AdvanceAmount().Euros())
		}
		return nil
	}

	cents, err := core.ParseDecimalToCents(base)
	if err != nil {
		return err
	}
	paymentDay, _ := cmd.Flags().GetInt("payment-day")
	category, _ := cmd.Flags().GetString("category")
	description, _ := cmd.Flags().GetString("description")
	advancePercent, _ := cmd.Flags().GetString("advance-percent")
	advanceDay, _ := cmd.Flags().GetInt("advance-day")

	cfg := core.SalaryConfig{
		BaseSalary:  core.Money{Cents: cents},
		PaymentDay:  paymentDay,
		CategoryID:  category,
		Description: description,
	}
	if advancePercent != "" {
		value, err := decimal.NewFromString(advancePercent)
		if err != nil {
			return fmt.Errorf("invalid advance percent %q: %w", advancePercent, err)
		}
		cfg.Advance = core.AdvanceConfig{
			Enabled: true,
			Day:     advanceDay,
			Value:   value,
		}
	}
	if err := appLedger.SetSalaryConfig(cmd.Context(), cfg); err != nil {
		return err
	}
	fmt.Fprintln(os.Stdout, "Salary configuration saved")
	return nil
}

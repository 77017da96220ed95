package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

func init() {
	rootCmd.AddCommand(recurringCmd)
	recurringCmd.AddCommand(recurringListCmd)
	recurringCmd.AddCommand(recurringAddCmd)
	recurringCmd.AddCommand(recurringUpdateCmd)
	recurringCmd.AddCommand(recurringDeleteCmd)
	recurringCmd.AddCommand(recurringGenerateCmd)

	recurringAddCmd.Flags().String("id", "", "Rule id (generated when omitted)")
	recurringAddCmd.Flags().StringP("name", "n", "", "Rule name, used as the entry description")
	recurringAddCmd.Flags().StringP("amount", "a", "", "Amount in euros")
	recurringAddCmd.Flags().String("direction", string(core.Expense), "income or expense")
	recurringAddCmd.Flags().StringP("category", "c", "", "Category id")
	recurringAddCmd.Flags().String("schedule", "monthly", "monthly or yearly")
	recurringAddCmd.Flags().Int("day", 1, "Day of month")
	recurringAddCmd.Flags().Int("month", 0, "Month 1..12 (yearly schedules only)")
	recurringAddCmd.Flags().String("payment", string(core.PayDirect), "direct or creditCard")
	recurringAddCmd.Flags().Bool("inactive", false, "Create the rule disabled")

	recurringUpdateCmd.Flags().StringP("name", "n", "", "New rule name")
	recurringUpdateCmd.Flags().StringP("amount", "a", "", "New amount in euros")
	recurringUpdateCmd.Flags().String("direction", "", "income or expense")
	recurringUpdateCmd.Flags().StringP("category", "c", "", "New category id")
	recurringUpdateCmd.Flags().String("schedule", "", "monthly or yearly")
	recurringUpdateCmd.Flags().Int("day", 0, "Day of month")
	recurringUpdateCmd.Flags().Int("month", 0, "Month 1..12 (yearly schedules only)")
	recurringUpdateCmd.Flags().String("payment", "", "direct or creditCard")
	recurringUpdateCmd.Flags().Bool("active", true, "Enable or disable the rule")
}

var recurringCmd = &cobra.Command{
	Use:   "recurring",
	Short: "Manage recurring rules",
}

var recurringListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recurring rules",
	RunE:  runRecurringList,
}

func runRecurringList(cmd *cobra.Command, args []string) error {
	rules, err := appLedger.RecurringRules(cmd.Context())
	if err != nil {
		return err
	}
	if len(rules) == 0 {
		fmt.Fprintln(os.Stdout, "No recurring rules")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tAMOUNT\tDIRECTION\tSCHEDULE\tPAYMENT\tACTIVE")
	for _, rule := range rules {
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%s\t%s\t%s\t%t\n",
			rule.ID, rule.Name, rule.Amount.Euros(), rule.Direction,
			describeSchedule(rule.Schedule), rule.Payment, rule.IsActive)
	}
	return w.Flush()
}

func describeSchedule(s core.Schedule) string {
	switch sched := s.(type) {
	case core.MonthlySchedule:
		return fmt.Sprintf("monthly day %d", sched.DayOfMonth)
	case core.YearlySchedule:
		return fmt.Sprintf("yearly %02d-%02d", sched.Month, sched.DayOfMonth)
	default:
		return "unknown"
	}
}

var recurringAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a recurring rule",
	RunE:  runRecurringAdd,
}

func runRecurringAdd(cmd *cobra.Command, args []string) error {
	id, _ := cmd.Flags().GetString("id")
	name, _ := cmd.Flags().GetString("name")
	amountArg, _ := cmd.Flags().GetString("amount")
	direction, _ := cmd.Flags().GetString("direction")
	category, _ := cmd.Flags().GetString("category")
	scheduleType, _ := cmd.Flags().GetString("schedule")
	day, _ := cmd.Flags().GetInt("day")
	month, _ := cmd.Flags().GetInt("month")
	payment, _ := cmd.Flags().GetString("payment")
	inactive, _ := cmd.Flags().GetBool("inactive")

	cents, err := core.ParseDecimalToCents(amountArg)
	if err != nil {
		return err
	}
	if id == "" {
		id = uuid.NewString()
	}

	var schedule core.Schedule
	switch scheduleType {
	case "monthly":
		schedule = core.MonthlySchedule{DayOfMonth: day}
	case "yearly":
		schedule = core.YearlySchedule{DayOfMonth: day, Month: month}
	default:
		return fmt.Errorf("unknown schedule type %q (want monthly or yearly)", scheduleType)
	}

	rule := core.RecurringRule{
		ID:         id,
		Name:       name,
		Direction:  core.Direction(direction),
		Amount:     core.Money{Cents: cents},
		CategoryID: category,
		Schedule:   schedule,
		Payment:    core.PaymentMode(payment),
		IsActive:   !inactive,
	}
	if err := appLedger.AddRecurring(cmd.Context(), rule); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Added rule %s (%s)\n", rule.ID, rule.Name)
	return nil
}

var recurringUpdateCmd = &cobra.Command{
	Use:   "update ID",
	Short: "Edit a recurring rule",
	Long: `Edit a recurring rule in place. Only the flags that are set change;
everything else keeps its stored value. Already materialized entries are
not touched.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecurringUpdate,
}

func runRecurringUpdate(cmd *cobra.Command, args []string) error {
	rules, err := appLedger.RecurringRules(cmd.Context())
	if err != nil {
		return err
	}
	var rule core.RecurringRule
	found := false
	for _, r := range rules {
		if r.ID == args[0] {
			rule = r
			found = true
			break
		}
	}
	if !found {
		return &core.NotFoundError{Resource: "rule", ID: args[0]}
	}

	flags := cmd.Flags()
	if flags.Changed("name") {
		rule.Name, _ = flags.GetString("name")
	}
	if flags.Changed("amount") {
		amountArg, _ := flags.GetString("amount")
		cents, err := core.ParseDecimalToCents(amountArg)
		if err != nil {
			return err
		}
		rule.Amount = core.Money{Cents: cents}
	}
	if flags.Changed("direction") {
		direction, _ := flags.GetString("direction")
		rule.Direction = core.Direction(direction)
	}
	if flags.Changed("category") {
		rule.CategoryID, _ = flags.GetString("category")
	}
	if flags.Changed("payment") {
		payment, _ := flags.GetString("payment")
		rule.Payment = core.PaymentMode(payment)
	}
	if flags.Changed("active") {
		rule.IsActive, _ = flags.GetBool("active")
	}
	if flags.Changed("schedule") || flags.Changed("day") || flags.Changed("month") {
		schedule, err := mergeScheduleFlags(cmd, rule.Schedule)
		if err != nil {
			return err
		}
		rule.Schedule = schedule
	}

	if err := appLedger.UpdateRecurring(cmd.Context(), rule); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Updated rule %s (%s)\n", rule.ID, rule.Name)
	return nil
}

// mergeScheduleFlags rebuilds a schedule from the current one, taking
// type, day and month from the flags that were set.
func mergeScheduleFlags(cmd *cobra.Command, current core.Schedule) (core.Schedule, error) {
	flags := cmd.Flags()
	scheduleType, _ := flags.GetString("schedule")
	day, _ := flags.GetInt("day")
	month, _ := flags.GetInt("month")

	if !flags.Changed("schedule") {
		switch current.(type) {
		case core.YearlySchedule:
			scheduleType = "yearly"
		default:
			scheduleType = "monthly"
		}
	}
	if !flags.Changed("day") {
		switch s := current.(type) {
		case core.MonthlySchedule:
			day = s.DayOfMonth
		case core.YearlySchedule:
			day = s.DayOfMonth
		}
	}
	if !flags.Changed("month") {
		if s, ok := current.(core.YearlySchedule); ok {
			month = s.Month
		}
	}

	switch scheduleType {
	case "monthly":
		return core.MonthlySchedule{DayOfMonth: day}, nil
	case "yearly":
		return core.YearlySchedule{DayOfMonth: day, Month: month}, nil
	default:
		return nil, fmt.Errorf("unknown schedule type %q (want monthly or yearly)", scheduleType)
	}
}

var recurringDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a recurring rule",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecurringDelete,
}

func runRecurringDelete(cmd *cobra.Command, args []string) error {
	if err := appLedger.DeleteRecurring(cmd.Context(), args[0]); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Deleted rule %s\n", args[0])
	return nil
}

var recurringGenerateCmd = &cobra.Command{
	Use:   "generate YYYY-MM",
	Short: "Materialize recurring occurrences into the month",
	Args:  cobra.ExactArgs(1),
	RunE:  runRecurringGenerate,
}

func runRecurringGenerate(cmd *cobra.Command, args []string) error {
	month, err := core.ParseMonthKey(args[0])
	if err != nil {
		return err
	}
	created, err := appLedger.GenerateRecurringForMonth(cmd.Context(), month, services.UUIDAllocator{})
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Generated %d transactions in %s\n", len(created), month)
	return nil
}

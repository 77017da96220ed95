package cli

import (
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"bilancio/internal/core"
	"bilancio/internal/services"
)

func init() {
	rootCmd.AddCommand(installmentCmd)
	installmentCmd.AddCommand(installmentCreateCmd)
	installmentCmd.AddCommand(installmentUpdateParentCmd)
	installmentCmd.AddCommand(installmentUpdateParcelCmd)
	installmentCmd.AddCommand(installmentDeleteCmd)

	installmentCreateCmd.Flags().String("group", "", "Group id (generated when omitted)")
	installmentCreateCmd.Flags().IntP("total", "t", 0, "Number of parcels")
	installmentCreateCmd.Flags().String("mode", string(core.PayCreditCard), "direct or creditCard")
	installmentCreateCmd.Flags().StringP("first-date", "d", "", "Date of the first parcel (YYYY-MM-DD)")
	installmentCreateCmd.Flags().StringP("amount", "a", "", "Per-parcel amount in euros")
	installmentCreateCmd.Flags().String("direction", string(core.Expense), "income or expense")
	installmentCreateCmd.Flags().StringP("category", "c", "", "Category id")
	installmentCreateCmd.Flags().String("description", "", "Description")

	installmentUpdateParentCmd.Flags().StringP("amount", "a", "", "New per-parcel amount in euros")
	installmentUpdateParentCmd.Flags().String("direction", "", "income or expense")
	installmentUpdateParentCmd.Flags().StringP("category", "c", "", "New category id")
	installmentUpdateParentCmd.Flags().String("description", "", "New description")
	installmentUpdateParentCmd.Flags().String("strategy", "", "Conflict strategy for edited parcels: skipEdited, overwriteEdited or cancel")

	installmentUpdateParcelCmd.Flags().StringP("date", "d", "", "New date (YYYY-MM-DD), must bill into the same month")
	installmentUpdateParcelCmd.Flags().StringP("amount", "a", "", "New amount in euros")
	installmentUpdateParcelCmd.Flags().String("direction", "", "income or expense")
	installmentUpdateParcelCmd.Flags().StringP("category", "c", "", "New category id")
	installmentUpdateParcelCmd.Flags().String("description", "", "New description")

	installmentDeleteCmd.Flags().Bool("keep-parcels", false, "Delete only the group registration, leave parcels in place")
}

var installmentCmd = &cobra.Command{
	Use:   "installment",
	Short: "Manage installment plans",
}

var installmentCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an installment plan",
	Long: `Create an installment plan: one parcel per month starting from the
first date, each bucketed into its billing month. The first parcel is
confirmed, the rest projected.`,
	RunE: runInstallmentCreate,
}

func runInstallmentCreate(cmd *cobra.Command, args []string) error {
	group, _ := cmd.Flags().GetString("group")
	total, _ := cmd.Flags().GetInt("total")
	mode, _ := cmd.Flags().GetString("mode")
	firstDateArg, _ := cmd.Flags().GetString("first-date")
	amountArg, _ := cmd.Flags().GetString("amount")
	direction, _ := cmd.Flags().GetString("direction")
	category, _ := cmd.Flags().GetString("category")
	description, _ := cmd.Flags().GetString("description")

	firstDate, err := core.ParseDate(firstDateArg)
	if err != nil {
		return err
	}
	cents, err := core.ParseDecimalToCents(amountArg)
	if err != nil {
		return err
	}
	if group == "" {
		group = uuid.NewString()
	}

	ids := make([]string, total)
	for i := range ids {
		ids[i] = uuid.NewString()
	}

	plan := services.InstallmentPlan{
		ParentID:    uuid.NewString(),
		GroupID:     group,
		Total:       total,
		Mode:        core.PaymentMode(mode),
		FirstDate:   firstDate,
		Amount:      core.Money{Cents: cents},
		Direction:   core.Direction(direction),
		CategoryID:  category,
		Description: description,
		IDs:         ids,
	}
	parcels, err := appLedger.CreateInstallmentPlan(cmd.Context(), plan)
	if err != nil {
		return err
	}

	billing, err := appLedger.BillingConfig(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Created group %s with %d parcels:\n", group, len(parcels))
	for _, parcel := range parcels {
		month, _ := core.BillingMonth(parcel.Date, core.PaymentMode(mode), billing.ClosingDay)
		fmt.Fprintf(os.Stdout, "  %s  %s  %.2f (%s, month %s)\n",
			parcel.Date, parcel.ID, parcel.Amount.Euros(), parcel.Status, month)
	}
	return nil
}

var installmentUpdateParentCmd = &cobra.Command{
	Use:   "update-parent GROUP_ID",
	Short: "Edit the parent and cascade onto projected parcels",
	Long: `Edit the parent's amount, direction, category or description and
cascade the change onto the group's projected parcels. Confirmed parcels
never change. When any projected parcel was edited manually a --strategy
is required: skipEdited keeps the edits, overwriteEdited replaces them,
cancel aborts.`,
	Args: cobra.ExactArgs(1),
	RunE: runInstallmentUpdateParent,
}

func runInstallmentUpdateParent(cmd *cobra.Command, args []string) error {
	parent, err := appLedger.InstallmentGroup(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if err := applyTransactionFlags(cmd, &parent); err != nil {
		return err
	}
	strategy, _ := cmd.Flags().GetString("strategy")

	result, err := appLedger.UpdateInstallmentParent(cmd.Context(), parent, services.ConflictStrategy(strategy))
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Updated %d parcels in group %s (%d edited parcels kept)\n",
		result.UpdatedParcels, args[0], result.SkippedEdited)
	return nil
}

var installmentUpdateParcelCmd = &cobra.Command{
	Use:   "update-parcel YYYY-MM ID",
	Short: "Edit one parcel in place",
	Long: `Edit a single parcel. Only the flags that are set change. The parcel
is flagged as manually edited, opting it out of future parent cascades
until overwritten.`,
	Args: cobra.ExactArgs(2),
	RunE: runInstallmentUpdateParcel,
}

func runInstallmentUpdateParcel(cmd *cobra.Command, args []string) error {
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
		return &core.NotFoundError{Resource: "parcel", ID: args[1]}
	}
	parcel := doc.Transactions[i]
	if err := applyTransactionFlags(cmd, &parcel); err != nil {
		return err
	}

	updated, err := appLedger.UpdateInstallmentParcel(cmd.Context(), month, parcel)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Updated parcel %s in %s (%.2f)\n",
		updated.ID, month, updated.Amount.Euros())
	return nil
}

var installmentDeleteCmd = &cobra.Command{
	Use:   "delete GROUP_ID",
	Short: "Delete an installment group",
	Args:  cobra.ExactArgs(1),
	RunE:  runInstallmentDelete,
}

func runInstallmentDelete(cmd *cobra.Command, args []string) error {
	keepParcels, _ := cmd.Flags().GetBool("keep-parcels")
	if err := appLedger.DeleteInstallmentGroup(cmd.Context(), args[0], !keepParcels); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "Deleted group %s\n", args[0])
	return nil
}

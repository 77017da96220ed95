package cli

import (
	"context"
	"testing"

	"github.com/spf13/cobra"

	"bilancio/internal/core"
	"bilancio/internal/services"
	"bilancio/internal/store/memory"
)

func newCLILedger(t *testing.T) *services.Ledger {
	t.Helper()
	appLedger = services.NewLedger(memory.New())
	t.Cleanup(func() { appLedger = nil })
	return appLedger
}

// runCommand invokes a command's RunE directly with the given flags set,
// bypassing the backend bootstrap of the persistent pre-run.
func runCommand(t *testing.T, cmd *cobra.Command, flags map[string]string, args ...string) error {
	t.Helper()
	cmd.SetContext(context.Background())
	for name, value := range flags {
		if err := cmd.Flags().Set(name, value); err != nil {
			t.Fatalf("set --%s: %v", name, err)
		}
	}
	return cmd.RunE(cmd, args)
}

func cliMonth(t *testing.T, s string) core.MonthKey {
	t.Helper()
	month, err := core.ParseMonthKey(s)
	if err != nil {
		t.Fatalf("ParseMonthKey(%s): %v", s, err)
	}
	return month
}

func cliDate(t *testing.T, s string) core.Date {
	t.Helper()
	date, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%s): %v", s, err)
	}
	return date
}

func seedInstallmentGroup(t *testing.T, ledger *services.Ledger) {
	t.Helper()
	plan := services.InstallmentPlan{
		ParentID:    "parent-1",
		GroupID:     "group-1",
		Total:       3,
		Mode:        core.PayDirect,
		FirstDate:   cliDate(t, "2025-01-15"),
		Amount:      core.Money{Cents: 25000},
		Direction:   core.Expense,
		CategoryID:  "electronics",
		Description: "Laptop",
		IDs:         []string{"p1", "p2", "p3"},
	}
	if _, err := ledger.CreateInstallmentPlan(context.Background(), plan); err != nil {
		t.Fatalf("CreateInstallmentPlan(): %v", err)
	}
}

func TestEntryUpdateCommand(t *testing.T) {
	ctx := context.Background()
	ledger := newCLILedger(t)

	month := cliMonth(t, "2025-03")
	if _, err := ledger.AddEntry(ctx, month, core.Transaction{
		ID:          "e1",
		Date:        cliDate(t, "2025-03-05"),
		Amount:      core.Money{Cents: 4200},
		Direction:   core.Expense,
		CategoryID:  "misc",
		Description: "Groceries",
		Status:      core.StatusConfirmed,
		Source:      core.SourceManual,
	}); err != nil {
		t.Fatalf("AddEntry(): %v", err)
	}

	if err := runCommand(t, entryUpdateCmd, map[string]string{"amount": "99.00"}, "2025-03", "e1"); err != nil {
		t.Fatalf("entry update: %v", err)
	}

	doc, err := ledger.GetMonth(ctx, month)
	if err != nil {
		t.Fatalf("GetMonth(): %v", err)
	}
	i, ok := doc.FindTransaction("e1")
	if !ok {
		t.Fatal("e1 vanished")
	}
	if doc.Transactions[i].Amount.Cents != 9900 {
		t.Errorf("amount = %d, want 9900", doc.Transactions[i].Amount.Cents)
	}
	if doc.Transactions[i].Description != "Groceries" {
		t.Errorf("unset flags must not change fields, description = %q", doc.Transactions[i].Description)
	}
}

func TestRecurringUpdateCommand(t *testing.T) {
	ctx := context.Background()
	ledger := newCLILedger(t)

	if err := ledger.AddRecurring(ctx, core.RecurringRule{
		ID:         "rent",
		Name:       "Rent",
		Direction:  core.Expense,
		Amount:     core.Money{Cents: 85000},
		CategoryID: "housing",
		Schedule:   core.MonthlySchedule{DayOfMonth: 1},
		Payment:    core.PayDirect,
		IsActive:   true,
	}); err != nil {
		t.Fatalf("AddRecurring(): %v", err)
	}

	if err := runCommand(t, recurringUpdateCmd, map[string]string{"amount": "900.00", "day": "3"}, "rent"); err != nil {
		t.Fatalf("recurring update: %v", err)
	}

	rules, err := ledger.RecurringRules(ctx)
	if err != nil {
		t.Fatalf("RecurringRules(): %v", err)
	}
	if len(rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rules))
	}
	rule := rules[0]
	if rule.Amount.Cents != 90000 {
		t.Errorf("amount = %d, want 90000", rule.Amount.Cents)
	}
	monthly, ok := rule.Schedule.(core.MonthlySchedule)
	if !ok || monthly.DayOfMonth != 3 {
		t.Errorf("schedule = %+v, want monthly day 3", rule.Schedule)
	}
	if rule.Name != "Rent" {
		t.Errorf("unset flags must not change fields, name = %q", rule.Name)
	}
}

func TestInstallmentUpdateParentCommand(t *testing.T) {
	ctx := context.Background()
	ledger := newCLILedger(t)
	seedInstallmentGroup(t, ledger)

	if err := runCommand(t, installmentUpdateParentCmd, map[string]string{"amount": "300.00"}, "group-1"); err != nil {
		t.Fatalf("installment update-parent: %v", err)
	}

	// Projected parcels follow the cascade, the confirmed first one stays.
	for _, tc := range []struct {
		month string
		id    string
		want  int64
	}{
		{"2025-01", "p1", 25000},
		{"2025-02", "p2", 30000},
		{"2025-03", "p3", 30000},
	} {
		doc, err := ledger.GetMonth(ctx, cliMonth(t, tc.month))
		if err != nil {
			t.Fatalf("GetMonth(%s): %v", tc.month, err)
		}
		i, ok := doc.FindTransaction(tc.id)
		if !ok {
			t.Fatalf("%s missing from %s", tc.id, tc.month)
		}
		if doc.Transactions[i].Amount.Cents != tc.want {
			t.Errorf("%s amount = %d, want %d", tc.id, doc.Transactions[i].Amount.Cents, tc.want)
		}
	}
}

func TestInstallmentUpdateParcelCommand(t *testing.T) {
	ctx := context.Background()
	ledger := newCLILedger(t)
	seedInstallmentGroup(t, ledger)

	if err := runCommand(t, installmentUpdateParcelCmd, map[string]string{"amount": "199.00"}, "2025-02", "p2"); err != nil {
		t.Fatalf("installment update-parcel: %v", err)
	}

	doc, err := ledger.GetMonth(ctx, cliMonth(t, "2025-02"))
	if err != nil {
		t.Fatalf("GetMonth(): %v", err)
	}
	i, ok := doc.FindTransaction("p2")
	if !ok {
		t.Fatal("p2 vanished")
	}
	if doc.Transactions[i].Amount.Cents != 19900 {
		t.Errorf("amount = %d, want 19900", doc.Transactions[i].Amount.Cents)
	}
	if !doc.Transactions[i].EditedManually {
		t.Error("parcel must be flagged as manually edited")
	}
}
